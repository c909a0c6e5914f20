package domain

import (
	"strings"
	"time"
)

// TaskStatus enumerates lifecycle states for tasks.
type TaskStatus string

const (
	TaskStatusPending    TaskStatus = "pending"
	TaskStatusInProgress TaskStatus = "in-progress"
	TaskStatusCompleted  TaskStatus = "completed"
)

// Valid reports whether s is a known status.
func (s TaskStatus) Valid() bool {
	switch s {
	case TaskStatusPending, TaskStatusInProgress, TaskStatusCompleted:
		return true
	}
	return false
}

// Task is a single contact to call, assigned to exactly one agent or sub-agent.
type Task struct {
	ID                 string
	BatchID            string
	FirstName          string
	Phone              string
	Notes              string
	AssignedAgentID    *string
	AssignedSubAgentID *string
	CreatedBy          PrincipalRef
	Status             TaskStatus
	CreatedAt          time.Time
	UpdatedAt          time.Time
}

// AssigneeID returns the id stored in the given assignment field.
func (t *Task) AssigneeID(field AssignmentField) *string {
	switch field {
	case AssignToAgent:
		return t.AssignedAgentID
	case AssignToSubAgent:
		return t.AssignedSubAgentID
	}
	return nil
}

// Assign writes id into the given assignment field.
func (t *Task) Assign(field AssignmentField, id string) {
	switch field {
	case AssignToAgent:
		t.AssignedAgentID = &id
	case AssignToSubAgent:
		t.AssignedSubAgentID = &id
	}
}

// TaskView is a task with its references resolved for display.
type TaskView struct {
	Task
	AssignedAgent    *PrincipalSummary
	AssignedSubAgent *PrincipalSummary
	Creator          *PrincipalSummary
}

// TaskRecord is one parsed row of an uploaded contact list.
type TaskRecord struct {
	FirstName string
	Phone     string
	Notes     string
}

// Valid reports whether all three fields carry non-blank text.
func (r TaskRecord) Valid() bool {
	return strings.TrimSpace(r.FirstName) != "" &&
		strings.TrimSpace(r.Phone) != "" &&
		strings.TrimSpace(r.Notes) != ""
}

// AssigneeCount is one line of a distribution summary.
type AssigneeCount struct {
	AssigneeID   string
	AssigneeName string
	TaskCount    int
}

// DistributionSummary reports the outcome of one upload.
type DistributionSummary struct {
	BatchID     string
	TotalTasks  int
	PerAssignee []AssigneeCount
}
