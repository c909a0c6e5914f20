package auth

import (
	"fmt"
	"strings"

	"github.com/spec-kit/task-distribution/internal/domain"
)

// roleSet keeps the declared order so denial messages are stable.
type roleSet struct {
	order []domain.Role
	set   map[domain.Role]struct{}
}

func newRoleSet(allowed []domain.Role) roleSet {
	rs := roleSet{set: make(map[domain.Role]struct{}, len(allowed))}
	for _, role := range allowed {
		if _, dup := rs.set[role]; dup {
			continue
		}
		rs.set[role] = struct{}{}
		rs.order = append(rs.order, role)
	}
	return rs
}

func (rs roleSet) allows(role domain.Role) bool {
	if len(rs.set) == 0 {
		return true
	}
	_, ok := rs.set[role]
	return ok
}

func (rs roleSet) deniedMessage(actual domain.Role) string {
	names := make([]string, len(rs.order))
	for i, role := range rs.order {
		names[i] = string(role)
	}
	return fmt.Sprintf("access denied. required role: %s. your role: %s", strings.Join(names, " or "), actual)
}
