package auth

import (
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/task-distribution/internal/domain"
	apperrors "github.com/spec-kit/task-distribution/pkg/util/errorutil"
)

const principalKey = "auth_principal"

// Principal represents the authenticated caller as carried by its token.
type Principal struct {
	ID    string
	Email string
	Role  domain.Role
}

// Ref returns the tagged reference to the caller.
func (p *Principal) Ref() domain.PrincipalRef {
	return domain.PrincipalRef{ID: p.ID, Role: p.Role}
}

// Guard validates bearer tokens and enforces per-route role sets. It keeps no
// state between calls and never consults storage.
type Guard struct {
	tokens *TokenManager
}

// NewGuard constructs the guard.
func NewGuard(tokens *TokenManager) *Guard {
	return &Guard{tokens: tokens}
}

// Authorize returns a handler admitting only callers whose role is in allowed.
// An empty allowed set admits any authenticated caller.
func (g *Guard) Authorize(allowed ...domain.Role) fiber.Handler {
	roles := newRoleSet(allowed)

	return func(c *fiber.Ctx) error {
		token := bearerToken(c.Get(fiber.HeaderAuthorization))
		if token == "" {
			return apperrors.NewUnauthorized("no token, access denied")
		}

		claims, err := g.tokens.Validate(token)
		if err != nil {
			return apperrors.NewUnauthorized("token is not valid")
		}

		if !roles.allows(claims.Role) {
			return apperrors.NewForbidden(roles.deniedMessage(claims.Role))
		}

		c.Locals(principalKey, &Principal{
			ID:    claims.Subject,
			Email: claims.Email,
			Role:  claims.Role,
		})
		return c.Next()
	}
}

// PrincipalFromContext retrieves the authenticated caller.
func PrincipalFromContext(c *fiber.Ctx) (*Principal, bool) {
	val := c.Locals(principalKey)
	if val == nil {
		return nil, false
	}
	principal, ok := val.(*Principal)
	return principal, ok
}

// MustPrincipal is PrincipalFromContext for handlers mounted behind Authorize.
func MustPrincipal(c *fiber.Ctx) (*Principal, error) {
	principal, ok := PrincipalFromContext(c)
	if !ok {
		return nil, apperrors.NewUnauthorized("no token, access denied")
	}
	return principal, nil
}

func bearerToken(header string) string {
	parts := strings.SplitN(strings.TrimSpace(header), " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return ""
	}
	return strings.TrimSpace(parts[1])
}
