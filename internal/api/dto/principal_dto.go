package dto

import (
	"time"

	"github.com/spec-kit/task-distribution/internal/domain"
)

// AccountCreateRequest creates an agent or sub-agent.
type AccountCreateRequest struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Mobile   string `json:"mobile"`
	Password string `json:"password"`
}

// AccountUpdateRequest modifies an agent or sub-agent; omitted fields are kept.
type AccountUpdateRequest struct {
	Name     *string `json:"name"`
	Email    *string `json:"email"`
	Mobile   *string `json:"mobile"`
	Password *string `json:"password"`
}

// PrincipalResponse is the public view of an account. The password hash is never serialized.
type PrincipalResponse struct {
	ID            string      `json:"id"`
	Role          domain.Role `json:"role"`
	Name          string      `json:"name"`
	Email         string      `json:"email"`
	Mobile        string      `json:"mobile,omitempty"`
	ParentAgentID *string     `json:"parent_agent_id,omitempty"`
	CreatedAt     time.Time   `json:"created_at"`
	UpdatedAt     time.Time   `json:"updated_at"`
}

// NewPrincipalResponse converts a domain principal.
func NewPrincipalResponse(p *domain.Principal) PrincipalResponse {
	return PrincipalResponse{
		ID:            p.ID,
		Role:          p.Role,
		Name:          p.Name,
		Email:         p.Email,
		Mobile:        p.Mobile,
		ParentAgentID: p.ParentAgentID,
		CreatedAt:     p.CreatedAt,
		UpdatedAt:     p.UpdatedAt,
	}
}

// NewPrincipalList converts a slice, never returning nil.
func NewPrincipalList(principals []domain.Principal) []PrincipalResponse {
	out := make([]PrincipalResponse, len(principals))
	for i := range principals {
		out[i] = NewPrincipalResponse(&principals[i])
	}
	return out
}
