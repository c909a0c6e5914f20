package dto

import (
	"time"

	"github.com/spec-kit/task-distribution/internal/domain"
)

// RegisterRequest payload for the initial admin.
type RegisterRequest struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

// LoginRequest payload for login. Role selects the account namespace.
type LoginRequest struct {
	Email    string      `json:"email"`
	Password string      `json:"password"`
	Role     domain.Role `json:"role"`
}

// AuthResponse standard response for auth endpoints.
type AuthResponse struct {
	Token     string            `json:"token"`
	ExpiresAt time.Time         `json:"expires_at"`
	Principal PrincipalResponse `json:"user"`
}

// NewAuthResponse builds the response for a session.
func NewAuthResponse(p *domain.Principal, token string, expiresAt time.Time) AuthResponse {
	return AuthResponse{Token: token, ExpiresAt: expiresAt, Principal: NewPrincipalResponse(p)}
}
