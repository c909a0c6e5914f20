package domain

import (
	"strings"
	"time"
)

// Principal is any account that can authenticate: admin, agent or sub-agent.
type Principal struct {
	ID            string
	Role          Role
	Name          string
	Email         string
	Mobile        string
	PasswordHash  string
	ParentAgentID *string
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// Ref returns the tagged reference to p.
func (p *Principal) Ref() PrincipalRef {
	return PrincipalRef{ID: p.ID, Role: p.Role}
}

// PrincipalRef points at a principal of a specific role. The role selects which
// namespace the id belongs to.
type PrincipalRef struct {
	ID   string
	Role Role
}

// PrincipalSummary is the public projection of a principal embedded in task listings.
type PrincipalSummary struct {
	ID    string
	Name  string
	Email string
}

// NormalizeEmail lower-cases and trims an address so lookups are case-insensitive.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
