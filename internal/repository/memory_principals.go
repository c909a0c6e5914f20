package repository

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/spec-kit/task-distribution/internal/domain"
)

// MemoryPrincipalRepository keeps principals in process when no database is
// configured. Data is lost on restart.
type MemoryPrincipalRepository struct {
	mu         sync.RWMutex
	seq        int64
	principals map[string]memoryPrincipal
}

type memoryPrincipal struct {
	domain.Principal
	seq int64
}

// NewMemoryPrincipalRepository returns an empty store.
func NewMemoryPrincipalRepository() *MemoryPrincipalRepository {
	return &MemoryPrincipalRepository{principals: map[string]memoryPrincipal{}}
}

func (r *MemoryPrincipalRepository) Create(_ context.Context, p *domain.Principal) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	p.Email = domain.NormalizeEmail(p.Email)
	if r.emailTakenLocked(p.Role, p.Email, "") {
		return ErrDuplicateEmail
	}
	if p.ID == "" {
		p.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	p.CreatedAt, p.UpdatedAt = now, now

	r.seq++
	r.principals[p.ID] = memoryPrincipal{Principal: clonePrincipal(*p), seq: r.seq}
	return nil
}

func (r *MemoryPrincipalRepository) Update(_ context.Context, p *domain.Principal) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	existing, ok := r.principals[p.ID]
	if !ok || existing.Role != p.Role {
		return ErrNotFound
	}
	p.Email = domain.NormalizeEmail(p.Email)
	if r.emailTakenLocked(p.Role, p.Email, p.ID) {
		return ErrDuplicateEmail
	}

	existing.Name = p.Name
	existing.Email = p.Email
	existing.Mobile = p.Mobile
	existing.PasswordHash = p.PasswordHash
	existing.UpdatedAt = time.Now().UTC()
	r.principals[p.ID] = existing

	p.CreatedAt = existing.CreatedAt
	p.UpdatedAt = existing.UpdatedAt
	return nil
}

func (r *MemoryPrincipalRepository) GetByID(_ context.Context, role domain.Role, id string) (*domain.Principal, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	p, ok := r.principals[id]
	if !ok || p.Role != role {
		return nil, ErrNotFound
	}
	out := clonePrincipal(p.Principal)
	return &out, nil
}

func (r *MemoryPrincipalRepository) GetByEmail(_ context.Context, role domain.Role, email string) (*domain.Principal, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	email = domain.NormalizeEmail(email)
	for _, p := range r.principals {
		if p.Role == role && p.Email == email {
			out := clonePrincipal(p.Principal)
			return &out, nil
		}
	}
	return nil, ErrNotFound
}

func (r *MemoryPrincipalRepository) List(_ context.Context, filter PrincipalFilter) ([]domain.Principal, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	matches := make([]memoryPrincipal, 0, len(r.principals))
	for _, p := range r.principals {
		if p.Role != filter.Role {
			continue
		}
		if filter.ParentAgentID != nil && (p.ParentAgentID == nil || *p.ParentAgentID != *filter.ParentAgentID) {
			continue
		}
		matches = append(matches, p)
	}
	sort.Slice(matches, func(i, j int) bool { return matches[i].seq < matches[j].seq })

	out := make([]domain.Principal, len(matches))
	for i, p := range matches {
		out[i] = clonePrincipal(p.Principal)
	}
	return out, nil
}

func (r *MemoryPrincipalRepository) Delete(_ context.Context, role domain.Role, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	p, ok := r.principals[id]
	if !ok || p.Role != role {
		return ErrNotFound
	}
	delete(r.principals, id)
	return nil
}

func (r *MemoryPrincipalRepository) CountByRole(_ context.Context, role domain.Role) (int, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	count := 0
	for _, p := range r.principals {
		if p.Role == role {
			count++
		}
	}
	return count, nil
}

func (r *MemoryPrincipalRepository) Summaries(_ context.Context, ids []string) (map[string]domain.PrincipalSummary, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make(map[string]domain.PrincipalSummary, len(ids))
	for _, id := range ids {
		if p, ok := r.principals[id]; ok {
			out[id] = domain.PrincipalSummary{ID: p.ID, Name: p.Name, Email: p.Email}
		}
	}
	return out, nil
}

func (r *MemoryPrincipalRepository) emailTakenLocked(role domain.Role, email, exceptID string) bool {
	for id, p := range r.principals {
		if id != exceptID && p.Role == role && p.Email == email {
			return true
		}
	}
	return false
}

func clonePrincipal(p domain.Principal) domain.Principal {
	if p.ParentAgentID != nil {
		parent := *p.ParentAgentID
		p.ParentAgentID = &parent
	}
	return p
}
