package events

import (
	"time"

	"github.com/spec-kit/task-distribution/internal/domain"
)

// EventType enumerates supported event identifiers.
type EventType string

const (
	EventTasksDistributed  EventType = "tasks_distributed"
	EventTaskStatusChanged EventType = "task_status_changed"
	EventTaskDeleted       EventType = "task_deleted"
)

// Actor identifies who caused an event.
type Actor struct {
	ID   string      `json:"id"`
	Role domain.Role `json:"role"`
}

// ActorFrom converts a principal reference.
func ActorFrom(ref domain.PrincipalRef) Actor {
	return Actor{ID: ref.ID, Role: ref.Role}
}

// Event represents a domain event emitted by services. SubjectID is the batch
// id for distributions and the task id otherwise.
type Event struct {
	ID        string    `json:"id"`
	Type      EventType `json:"type"`
	SubjectID string    `json:"subject_id"`
	Actor     Actor     `json:"actor"`
	Timestamp time.Time `json:"timestamp"`
	Payload   any       `json:"payload"`
}

// AssigneeShare is one assignee's part of a distribution.
type AssigneeShare struct {
	AssigneeID string `json:"assignee_id"`
	TaskCount  int    `json:"task_count"`
}

// TasksDistributedPayload payload.
type TasksDistributedPayload struct {
	TotalTasks int                    `json:"total_tasks"`
	Field      domain.AssignmentField `json:"assignment_field"`
	Shares     []AssigneeShare        `json:"distribution"`
}

// TaskStatusChangedPayload payload.
type TaskStatusChangedPayload struct {
	OldStatus domain.TaskStatus `json:"old_status"`
	NewStatus domain.TaskStatus `json:"new_status"`
}

// TaskDeletedPayload payload.
type TaskDeletedPayload struct {
	BatchID string `json:"batch_id"`
}
