package service

import (
	"github.com/spec-kit/task-distribution/internal/domain"
	"github.com/spec-kit/task-distribution/internal/repository"
)

// CanUpdateStatus reports whether p created t or is assigned to it. The caller's
// role plays no part.
func CanUpdateStatus(p domain.PrincipalRef, t *domain.Task) bool {
	if p.ID == "" || t == nil {
		return false
	}
	return p.ID == t.CreatedBy.ID ||
		(t.AssignedAgentID != nil && p.ID == *t.AssignedAgentID) ||
		(t.AssignedSubAgentID != nil && p.ID == *t.AssignedSubAgentID)
}

// CanDelete reports whether p may delete t: admins always, others only their own uploads.
func CanDelete(p domain.PrincipalRef, t *domain.Task) bool {
	if t == nil {
		return false
	}
	return p.Role == domain.RoleAdmin || (p.ID != "" && p.ID == t.CreatedBy.ID)
}

// ListScope returns the filter for tasks p may see: admins see everything,
// agents their inbox plus what they distributed, sub-agents their inbox.
func ListScope(p domain.PrincipalRef) (repository.TaskFilter, bool) {
	id := p.ID
	switch p.Role {
	case domain.RoleAdmin:
		return repository.TaskFilter{}, true
	case domain.RoleAgent:
		return repository.TaskFilter{AssignedAgentID: &id, CreatedBy: &p}, true
	case domain.RoleSubAgent:
		return repository.TaskFilter{AssignedSubAgentID: &id}, true
	}
	return repository.TaskFilter{}, false
}
