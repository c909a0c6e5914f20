package service

import (
	"context"
	"errors"
	"strings"

	"github.com/google/uuid"

	"github.com/spec-kit/task-distribution/internal/auth"
	"github.com/spec-kit/task-distribution/internal/config"
	"github.com/spec-kit/task-distribution/internal/domain"
	"github.com/spec-kit/task-distribution/internal/repository"
	apperrors "github.com/spec-kit/task-distribution/pkg/util/errorutil"
)

// PrincipalService manages the accounts one role administers for another:
// admins manage agents, agents manage their own sub-agents.
type PrincipalService struct {
	principals repository.PrincipalRepository
	bcryptCost int
}

// NewPrincipalService constructs the service.
func NewPrincipalService(cfg config.Config, principals repository.PrincipalRepository) *PrincipalService {
	return &PrincipalService{principals: principals, bcryptCost: cfg.Auth.BcryptCost}
}

// AccountInput creates a managed account.
type AccountInput struct {
	Name     string
	Email    string
	Mobile   string
	Password string
}

// AccountUpdate changes a managed account. Nil fields are left as they are.
type AccountUpdate struct {
	Name     *string
	Email    *string
	Mobile   *string
	Password *string
}

// managedScope resolves which role actor manages and the listing filter that
// confines it to actor's own accounts.
func managedScope(actor domain.PrincipalRef) (repository.PrincipalFilter, error) {
	caps := actor.Role.Capabilities()
	if caps.Manages == "" {
		return repository.PrincipalFilter{}, apperrors.NewForbidden("role cannot manage accounts")
	}
	filter := repository.PrincipalFilter{Role: caps.Manages}
	if caps.ScopedToParent {
		parent := actor.ID
		filter.ParentAgentID = &parent
	}
	return filter, nil
}

// Create registers a new managed account owned by actor.
func (s *PrincipalService) Create(ctx context.Context, actor domain.PrincipalRef, in AccountInput) (*domain.Principal, error) {
	scope, err := managedScope(actor)
	if err != nil {
		return nil, err
	}

	in.Name = strings.TrimSpace(in.Name)
	in.Email = domain.NormalizeEmail(in.Email)
	in.Mobile = strings.TrimSpace(in.Mobile)
	if err := validateAccountFields(in.Name, in.Email, in.Password, true); err != nil {
		return nil, err
	}
	if err := requireMobile(in.Mobile); err != nil {
		return nil, err
	}

	hash, err := auth.HashPassword(in.Password, s.bcryptCost)
	if err != nil {
		return nil, apperrors.NewInternalError(err)
	}

	principal := &domain.Principal{
		ID:            uuid.NewString(),
		Role:          scope.Role,
		Name:          in.Name,
		Email:         in.Email,
		Mobile:        in.Mobile,
		PasswordHash:  hash,
		ParentAgentID: scope.ParentAgentID,
	}
	if err := s.principals.Create(ctx, principal); err != nil {
		return nil, mapPrincipalWriteError(err, principal.Email)
	}
	return principal, nil
}

// List returns the accounts actor manages, oldest first.
func (s *PrincipalService) List(ctx context.Context, actor domain.PrincipalRef) ([]domain.Principal, error) {
	scope, err := managedScope(actor)
	if err != nil {
		return nil, err
	}
	principals, err := s.principals.List(ctx, scope)
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	return principals, nil
}

// Get fetches one managed account. Accounts owned by someone else are reported
// as missing.
func (s *PrincipalService) Get(ctx context.Context, actor domain.PrincipalRef, id string) (*domain.Principal, error) {
	scope, err := managedScope(actor)
	if err != nil {
		return nil, err
	}
	principal, err := s.principals.GetByID(ctx, scope.Role, id)
	if err != nil {
		return nil, lookupError(err, string(scope.Role), map[string]any{"id": id})
	}
	if !ownedBy(principal, scope) {
		return nil, apperrors.NewNotFound(string(scope.Role), map[string]any{"id": id})
	}
	return principal, nil
}

// Update applies in to a managed account. A supplied password is re-hashed.
func (s *PrincipalService) Update(ctx context.Context, actor domain.PrincipalRef, id string, in AccountUpdate) (*domain.Principal, error) {
	principal, err := s.Get(ctx, actor, id)
	if err != nil {
		return nil, err
	}

	if in.Name != nil {
		principal.Name = strings.TrimSpace(*in.Name)
	}
	if in.Email != nil {
		principal.Email = domain.NormalizeEmail(*in.Email)
	}
	if in.Mobile != nil {
		principal.Mobile = strings.TrimSpace(*in.Mobile)
	}
	password := ""
	if in.Password != nil {
		password = *in.Password
		if password == "" {
			return nil, apperrors.NewValidationError("invalid account fields", map[string]any{"password": "must not be empty"})
		}
	}
	if err := validateAccountFields(principal.Name, principal.Email, password, false); err != nil {
		return nil, err
	}
	if err := requireMobile(principal.Mobile); err != nil {
		return nil, err
	}
	if password != "" {
		hash, err := auth.HashPassword(password, s.bcryptCost)
		if err != nil {
			return nil, apperrors.NewInternalError(err)
		}
		principal.PasswordHash = hash
	}

	if err := s.principals.Update(ctx, principal); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, apperrors.NewNotFound(string(principal.Role), map[string]any{"id": id})
		}
		return nil, mapPrincipalWriteError(err, principal.Email)
	}
	return principal, nil
}

// Delete removes a managed account. Tasks and sub-agents referencing it are
// left in place.
func (s *PrincipalService) Delete(ctx context.Context, actor domain.PrincipalRef, id string) error {
	principal, err := s.Get(ctx, actor, id)
	if err != nil {
		return err
	}
	if err := s.principals.Delete(ctx, principal.Role, principal.ID); err != nil {
		return lookupError(err, string(principal.Role), map[string]any{"id": id})
	}
	return nil
}

func ownedBy(p *domain.Principal, scope repository.PrincipalFilter) bool {
	if scope.ParentAgentID == nil {
		return true
	}
	return p.ParentAgentID != nil && *p.ParentAgentID == *scope.ParentAgentID
}
