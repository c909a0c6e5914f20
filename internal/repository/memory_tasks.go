package repository

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/spec-kit/task-distribution/internal/domain"
)

// MemoryTaskRepository keeps tasks in process when no database is configured.
type MemoryTaskRepository struct {
	mu      sync.RWMutex
	batches int64
	seq     int64
	tasks   map[string]memoryTask
}

type memoryTask struct {
	domain.Task
	batch int64
	seq   int64
}

// NewMemoryTaskRepository returns an empty store.
func NewMemoryTaskRepository() *MemoryTaskRepository {
	return &MemoryTaskRepository{tasks: map[string]memoryTask{}}
}

func (r *MemoryTaskRepository) CreateBatch(_ context.Context, tasks []domain.Task) error {
	if len(tasks) == 0 {
		return nil
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	seen := make(map[string]struct{}, len(tasks))
	for _, t := range tasks {
		if _, exists := r.tasks[t.ID]; exists {
			return fmt.Errorf("task %s already exists", t.ID)
		}
		if _, dup := seen[t.ID]; dup {
			return fmt.Errorf("task %s appears twice in batch", t.ID)
		}
		seen[t.ID] = struct{}{}
	}

	now := time.Now().UTC()
	r.batches++
	for i := range tasks {
		t := &tasks[i]
		if t.CreatedAt.IsZero() {
			t.CreatedAt = now
		}
		t.UpdatedAt = t.CreatedAt
		r.seq++
		r.tasks[t.ID] = memoryTask{Task: cloneTask(*t), batch: r.batches, seq: r.seq}
	}
	return nil
}

func (r *MemoryTaskRepository) GetByID(_ context.Context, id string) (*domain.Task, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	t, ok := r.tasks[id]
	if !ok {
		return nil, ErrNotFound
	}
	out := cloneTask(t.Task)
	return &out, nil
}

func (r *MemoryTaskRepository) UpdateStatus(_ context.Context, id string, status domain.TaskStatus) (*domain.Task, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	t, ok := r.tasks[id]
	if !ok {
		return nil, ErrNotFound
	}
	t.Status = status
	t.UpdatedAt = time.Now().UTC()
	r.tasks[id] = t

	out := cloneTask(t.Task)
	return &out, nil
}

func (r *MemoryTaskRepository) Delete(_ context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.tasks[id]; !ok {
		return ErrNotFound
	}
	delete(r.tasks, id)
	return nil
}

func (r *MemoryTaskRepository) List(_ context.Context, filter TaskFilter) ([]domain.Task, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	matches := make([]memoryTask, 0)
	for _, t := range r.tasks {
		if filter.Status != nil && t.Status != *filter.Status {
			continue
		}
		if !matchesOwner(&t.Task, filter) {
			continue
		}
		matches = append(matches, t)
	}
	sort.Slice(matches, func(i, j int) bool {
		if matches[i].batch != matches[j].batch {
			return matches[i].batch > matches[j].batch
		}
		return matches[i].seq < matches[j].seq
	})

	if filter.Limit > 0 {
		start := filter.Offset
		if start > len(matches) {
			start = len(matches)
		}
		end := start + filter.Limit
		if end > len(matches) {
			end = len(matches)
		}
		matches = matches[start:end]
	}

	out := make([]domain.Task, len(matches))
	for i, t := range matches {
		out[i] = cloneTask(t.Task)
	}
	return out, nil
}

func (r *MemoryTaskRepository) CountByAssignee(_ context.Context, batchID string, field domain.AssignmentField) (map[string]int, error) {
	if field != domain.AssignToAgent && field != domain.AssignToSubAgent {
		return nil, fmt.Errorf("unknown assignment field %q", field)
	}

	r.mu.RLock()
	defer r.mu.RUnlock()

	counts := make(map[string]int)
	for _, t := range r.tasks {
		if t.BatchID != batchID {
			continue
		}
		if id := t.AssigneeID(field); id != nil {
			counts[*id]++
		}
	}
	return counts, nil
}

func matchesOwner(t *domain.Task, filter TaskFilter) bool {
	if filter.CreatedBy == nil && filter.AssignedAgentID == nil && filter.AssignedSubAgentID == nil {
		return true
	}
	if filter.CreatedBy != nil && t.CreatedBy == *filter.CreatedBy {
		return true
	}
	if filter.AssignedAgentID != nil && t.AssignedAgentID != nil && *t.AssignedAgentID == *filter.AssignedAgentID {
		return true
	}
	if filter.AssignedSubAgentID != nil && t.AssignedSubAgentID != nil && *t.AssignedSubAgentID == *filter.AssignedSubAgentID {
		return true
	}
	return false
}

func cloneTask(t domain.Task) domain.Task {
	if t.AssignedAgentID != nil {
		id := *t.AssignedAgentID
		t.AssignedAgentID = &id
	}
	if t.AssignedSubAgentID != nil {
		id := *t.AssignedSubAgentID
		t.AssignedSubAgentID = &id
	}
	return t
}
