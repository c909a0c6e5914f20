package service

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/spec-kit/task-distribution/internal/auth"
	"github.com/spec-kit/task-distribution/internal/config"
	"github.com/spec-kit/task-distribution/internal/domain"
	"github.com/spec-kit/task-distribution/internal/repository"
	apperrors "github.com/spec-kit/task-distribution/pkg/util/errorutil"
)

// AuthService coordinates registration and login flows.
type AuthService struct {
	principals       repository.PrincipalRepository
	tokenMgr         *auth.TokenManager
	bcryptCost       int
	allowAdminSignup bool

	// registerMu serializes the admin count check with the insert.
	registerMu sync.Mutex
}

// AuthDependencies encapsulates requirements for the auth service.
type AuthDependencies struct {
	PrincipalRepo repository.PrincipalRepository
	TokenManager  *auth.TokenManager
}

// NewAuthService builds the service.
func NewAuthService(cfg config.Config, deps AuthDependencies) *AuthService {
	return &AuthService{
		principals:       deps.PrincipalRepo,
		tokenMgr:         deps.TokenManager,
		bcryptCost:       cfg.Auth.BcryptCost,
		allowAdminSignup: cfg.Auth.AllowAdminSignup,
	}
}

// Session is the outcome of a successful login or registration.
type Session struct {
	Principal *domain.Principal
	Token     string
	ExpiresAt time.Time
}

// RegisterAdminInput is the payload for creating an admin.
type RegisterAdminInput struct {
	Name     string
	Email    string
	Password string
}

// RegisterAdmin creates an admin account. Only the first admin may register
// unless open admin signup is enabled.
func (s *AuthService) RegisterAdmin(ctx context.Context, in RegisterAdminInput) (*Session, error) {
	in.Name = strings.TrimSpace(in.Name)
	in.Email = domain.NormalizeEmail(in.Email)
	if err := validateAccountFields(in.Name, in.Email, in.Password, true); err != nil {
		return nil, err
	}

	hash, err := auth.HashPassword(in.Password, s.bcryptCost)
	if err != nil {
		return nil, apperrors.NewInternalError(err)
	}

	s.registerMu.Lock()
	defer s.registerMu.Unlock()

	if !s.allowAdminSignup {
		count, err := s.principals.CountByRole(ctx, domain.RoleAdmin)
		if err != nil {
			return nil, apperrors.MapError(err)
		}
		if count > 0 {
			return nil, apperrors.NewForbidden("admin registration is closed")
		}
	}

	admin := &domain.Principal{
		ID:           uuid.NewString(),
		Role:         domain.RoleAdmin,
		Name:         in.Name,
		Email:        in.Email,
		PasswordHash: hash,
	}
	if err := s.principals.Create(ctx, admin); err != nil {
		return nil, mapPrincipalWriteError(err, admin.Email)
	}
	return s.issue(admin)
}

// Login verifies credentials within role's namespace. Unknown email and wrong
// password produce the same error.
func (s *AuthService) Login(ctx context.Context, role domain.Role, email, password string) (*Session, error) {
	if role == "" {
		return nil, apperrors.NewValidationError("role is required", nil)
	}
	if !role.Valid() {
		return nil, apperrors.NewValidationError("invalid role", map[string]any{"role": role})
	}
	email = domain.NormalizeEmail(email)
	if email == "" || password == "" {
		return nil, apperrors.NewValidationError("email and password are required", nil)
	}

	principal, err := s.principals.GetByEmail(ctx, role, email)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			auth.CompareDummy(password, s.bcryptCost)
			return nil, errInvalidCredentials()
		}
		return nil, apperrors.MapError(err)
	}
	if err := auth.ComparePassword(principal.PasswordHash, password); err != nil {
		return nil, errInvalidCredentials()
	}
	return s.issue(principal)
}

func (s *AuthService) issue(principal *domain.Principal) (*Session, error) {
	token, exp, err := s.tokenMgr.Issue(principal)
	if err != nil {
		return nil, apperrors.NewInternalError(err)
	}
	return &Session{Principal: principal, Token: token, ExpiresAt: exp}, nil
}

func errInvalidCredentials() error {
	return apperrors.NewUnauthorized("invalid credentials")
}
