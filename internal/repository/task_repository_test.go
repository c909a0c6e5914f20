package repository

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/spec-kit/task-distribution/internal/domain"
)

func TestListTasksQuery_OrdersByBatchPosition(t *testing.T) {
	query, args := listTasksQuery(TaskFilter{})
	require.Empty(t, args)
	require.True(t, strings.HasSuffix(query, "ORDER BY created_at DESC, batch_id, batch_position ASC"), query)
}

func TestListTasksQuery_OwnersAreAlternatives(t *testing.T) {
	agent := "agent-1"
	creator := domain.PrincipalRef{ID: agent, Role: domain.RoleAgent}
	status := domain.TaskStatusPending

	query, args := listTasksQuery(TaskFilter{
		CreatedBy:       &creator,
		AssignedAgentID: &agent,
		Status:          &status,
		Limit:           10,
		Offset:          20,
	})
	require.Contains(t, query, "((created_by_id=$1 AND created_by_role=$2) OR assigned_agent_id=$3)")
	require.Contains(t, query, "AND status=$4")
	require.True(t, strings.HasSuffix(query, "batch_position ASC LIMIT $5 OFFSET $6"), query)
	require.Equal(t, []any{agent, domain.RoleAgent, agent, status, 10, 20}, args)
}

func TestTaskCopyColumns_IncludePosition(t *testing.T) {
	require.Equal(t, "batch_position", taskCopyColumns[len(taskCopyColumns)-1])
}
