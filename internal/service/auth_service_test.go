package service

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/spec-kit/task-distribution/internal/auth"
	"github.com/spec-kit/task-distribution/internal/domain"
	"github.com/spec-kit/task-distribution/internal/repository"
	apperrors "github.com/spec-kit/task-distribution/pkg/util/errorutil"
)

func newAuthFixture(t *testing.T, allowSignup bool) (*AuthService, *PrincipalService, *auth.TokenManager, *repository.MemoryPrincipalRepository) {
	t.Helper()
	cfg := testConfig()
	cfg.Auth.AllowAdminSignup = allowSignup
	repo := repository.NewMemoryPrincipalRepository()
	tokens := auth.NewTokenManager(cfg.Auth.JWTSecret, cfg.Auth.AccessTokenTTL())
	return NewAuthService(cfg, AuthDependencies{PrincipalRepo: repo, TokenManager: tokens}),
		NewPrincipalService(cfg, repo), tokens, repo
}

func TestRegisterAdmin_FirstAdminOnly(t *testing.T) {
	svc, _, tokens, _ := newAuthFixture(t, false)
	ctx := context.Background()

	session, err := svc.RegisterAdmin(ctx, RegisterAdminInput{Name: "Root", Email: "Root@Example.com", Password: "secret1"})
	require.NoError(t, err)
	require.Equal(t, domain.RoleAdmin, session.Principal.Role)
	require.Equal(t, "root@example.com", session.Principal.Email)
	require.NotEqual(t, "secret1", session.Principal.PasswordHash)

	claims, err := tokens.Validate(session.Token)
	require.NoError(t, err)
	require.Equal(t, session.Principal.ID, claims.Subject)
	require.Equal(t, domain.RoleAdmin, claims.Role)

	_, err = svc.RegisterAdmin(ctx, RegisterAdminInput{Name: "Second", Email: "second@example.com", Password: "secret1"})
	requireStatus(t, err, http.StatusForbidden)
}

func TestRegisterAdmin_OpenSignup(t *testing.T) {
	svc, _, _, _ := newAuthFixture(t, true)
	ctx := context.Background()

	_, err := svc.RegisterAdmin(ctx, RegisterAdminInput{Name: "One", Email: "one@example.com", Password: "secret1"})
	require.NoError(t, err)
	_, err = svc.RegisterAdmin(ctx, RegisterAdminInput{Name: "Two", Email: "two@example.com", Password: "secret1"})
	require.NoError(t, err)

	_, err = svc.RegisterAdmin(ctx, RegisterAdminInput{Name: "Dup", Email: "ONE@example.com", Password: "secret1"})
	requireStatus(t, err, http.StatusConflict)
}

func TestRegisterAdmin_Validation(t *testing.T) {
	svc, _, _, _ := newAuthFixture(t, false)

	_, err := svc.RegisterAdmin(context.Background(), RegisterAdminInput{Name: "", Email: "bad", Password: "123"})
	requireStatus(t, err, http.StatusBadRequest)
	details := apperrors.ToDomainError(err).Details
	require.Contains(t, details, "name")
	require.Contains(t, details, "email")
	require.Contains(t, details, "password")
}

func TestLogin(t *testing.T) {
	svc, accounts, tokens, _ := newAuthFixture(t, false)
	ctx := context.Background()

	admin, err := svc.RegisterAdmin(ctx, RegisterAdminInput{Name: "Root", Email: "root@example.com", Password: "secret1"})
	require.NoError(t, err)
	agent, err := accounts.Create(ctx, admin.Principal.Ref(), AccountInput{
		Name: "Agent", Email: "agent@example.com", Mobile: "555-1000", Password: "agentpw",
	})
	require.NoError(t, err)

	session, err := svc.Login(ctx, domain.RoleAgent, " Agent@Example.com ", "agentpw")
	require.NoError(t, err)
	require.Equal(t, agent.ID, session.Principal.ID)
	claims, err := tokens.Validate(session.Token)
	require.NoError(t, err)
	require.Equal(t, domain.RoleAgent, claims.Role)

	_, err = svc.Login(ctx, domain.RoleAgent, "agent@example.com", "wrong-pw")
	requireStatus(t, err, http.StatusUnauthorized)
	wrongPassword := apperrors.ToDomainError(err).Message

	_, err = svc.Login(ctx, domain.RoleAgent, "nobody@example.com", "agentpw")
	requireStatus(t, err, http.StatusUnauthorized)
	require.Equal(t, wrongPassword, apperrors.ToDomainError(err).Message, "unknown email and wrong password look the same")

	// Emails are namespaced by role.
	_, err = svc.Login(ctx, domain.RoleAdmin, "agent@example.com", "agentpw")
	requireStatus(t, err, http.StatusUnauthorized)
}

func TestLogin_RequestValidation(t *testing.T) {
	svc, _, _, _ := newAuthFixture(t, false)
	ctx := context.Background()

	_, err := svc.Login(ctx, "", "a@example.com", "secret1")
	requireStatus(t, err, http.StatusBadRequest)
	require.Equal(t, "role is required", apperrors.ToDomainError(err).Message)

	_, err = svc.Login(ctx, "supervisor", "a@example.com", "secret1")
	requireStatus(t, err, http.StatusBadRequest)

	_, err = svc.Login(ctx, domain.RoleAdmin, "", "secret1")
	requireStatus(t, err, http.StatusBadRequest)
}

func TestLogin_SameEmailAcrossRoles(t *testing.T) {
	svc, accounts, _, _ := newAuthFixture(t, false)
	ctx := context.Background()

	admin, err := svc.RegisterAdmin(ctx, RegisterAdminInput{Name: "Root", Email: "shared@example.com", Password: "adminpw"})
	require.NoError(t, err)
	_, err = accounts.Create(ctx, admin.Principal.Ref(), AccountInput{
		Name: "Agent", Email: "shared@example.com", Mobile: "555", Password: "agentpw",
	})
	require.NoError(t, err)

	asAdmin, err := svc.Login(ctx, domain.RoleAdmin, "shared@example.com", "adminpw")
	require.NoError(t, err)
	asAgent, err := svc.Login(ctx, domain.RoleAgent, "shared@example.com", "agentpw")
	require.NoError(t, err)
	require.NotEqual(t, asAdmin.Principal.ID, asAgent.Principal.ID)
}

func TestRegisterAdmin_PasswordOverBcryptLimit(t *testing.T) {
	svc, _, _, repo := newAuthFixture(t, false)

	_, err := svc.RegisterAdmin(context.Background(), RegisterAdminInput{
		Name: "Root", Email: "root@example.com", Password: strings.Repeat("p", MaxPasswordBytes+1),
	})
	requireStatus(t, err, http.StatusBadRequest)
	require.Equal(t, "must be at most 72 bytes", apperrors.ToDomainError(err).Details["password"])

	count, err := repo.CountByRole(context.Background(), domain.RoleAdmin)
	require.NoError(t, err)
	require.Zero(t, count)

	_, err = svc.RegisterAdmin(context.Background(), RegisterAdminInput{
		Name: "Root", Email: "root@example.com", Password: strings.Repeat("p", MaxPasswordBytes),
	})
	require.NoError(t, err, "exactly 72 bytes is accepted")
}

func TestRegisterAdmin_ConcurrentFirstRegistrations(t *testing.T) {
	svc, _, _, repo := newAuthFixture(t, false)

	const attempts = 8
	var (
		wg        sync.WaitGroup
		mu        sync.Mutex
		succeeded int
		forbidden int
	)
	for i := 0; i < attempts; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, err := svc.RegisterAdmin(context.Background(), RegisterAdminInput{
				Name: "Admin", Email: fmt.Sprintf("admin%d@example.com", i), Password: "secret1",
			})
			mu.Lock()
			defer mu.Unlock()
			if err == nil {
				succeeded++
			} else if apperrors.ToDomainError(err).HTTPStatus == http.StatusForbidden {
				forbidden++
			}
		}(i)
	}
	wg.Wait()

	require.Equal(t, 1, succeeded)
	require.Equal(t, attempts-1, forbidden)
	count, err := repo.CountByRole(context.Background(), domain.RoleAdmin)
	require.NoError(t, err)
	require.Equal(t, 1, count)
}
