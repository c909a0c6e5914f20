package dto

import (
	"time"

	"github.com/spec-kit/task-distribution/internal/domain"
)

// TaskStatusRequest payload for PATCH /tasks/:id/status.
type TaskStatusRequest struct {
	Status domain.TaskStatus `json:"status"`
}

// PrincipalSummaryResponse is a resolved reference inside a task.
type PrincipalSummaryResponse struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Email string `json:"email"`
}

// CreatorResponse identifies who uploaded a task.
type CreatorResponse struct {
	ID    string      `json:"id"`
	Role  domain.Role `json:"role"`
	Name  string      `json:"name,omitempty"`
	Email string      `json:"email,omitempty"`
}

// TaskResponse is the public view of a task.
type TaskResponse struct {
	ID                 string                    `json:"id"`
	BatchID            string                    `json:"batch_id"`
	FirstName          string                    `json:"first_name"`
	Phone              string                    `json:"phone"`
	Notes              string                    `json:"notes"`
	Status             domain.TaskStatus         `json:"status"`
	AssignedAgentID    *string                   `json:"assigned_agent_id,omitempty"`
	AssignedSubAgentID *string                   `json:"assigned_sub_agent_id,omitempty"`
	AssignedAgent      *PrincipalSummaryResponse `json:"assigned_agent,omitempty"`
	AssignedSubAgent   *PrincipalSummaryResponse `json:"assigned_sub_agent,omitempty"`
	CreatedBy          CreatorResponse           `json:"created_by"`
	CreatedAt          time.Time                 `json:"created_at"`
	UpdatedAt          time.Time                 `json:"updated_at"`
}

// NewTaskResponse converts a bare task.
func NewTaskResponse(t *domain.Task) TaskResponse {
	return TaskResponse{
		ID:                 t.ID,
		BatchID:            t.BatchID,
		FirstName:          t.FirstName,
		Phone:              t.Phone,
		Notes:              t.Notes,
		Status:             t.Status,
		AssignedAgentID:    t.AssignedAgentID,
		AssignedSubAgentID: t.AssignedSubAgentID,
		CreatedBy:          CreatorResponse{ID: t.CreatedBy.ID, Role: t.CreatedBy.Role},
		CreatedAt:          t.CreatedAt,
		UpdatedAt:          t.UpdatedAt,
	}
}

// NewTaskViewList converts listing results, never returning nil.
func NewTaskViewList(views []domain.TaskView) []TaskResponse {
	out := make([]TaskResponse, len(views))
	for i := range views {
		v := &views[i]
		resp := NewTaskResponse(&v.Task)
		resp.AssignedAgent = summary(v.AssignedAgent)
		resp.AssignedSubAgent = summary(v.AssignedSubAgent)
		if v.Creator != nil {
			resp.CreatedBy.Name = v.Creator.Name
			resp.CreatedBy.Email = v.Creator.Email
		}
		out[i] = resp
	}
	return out
}

func summary(s *domain.PrincipalSummary) *PrincipalSummaryResponse {
	if s == nil {
		return nil
	}
	return &PrincipalSummaryResponse{ID: s.ID, Name: s.Name, Email: s.Email}
}

// AssigneeCountResponse is one line of a distribution summary.
type AssigneeCountResponse struct {
	AssigneeID   string `json:"assignee_id"`
	AssigneeName string `json:"assignee_name"`
	TaskCount    int    `json:"task_count"`
}

// DistributionResponse reports an upload.
type DistributionResponse struct {
	TotalTasks   int                     `json:"total_tasks"`
	BatchID      string                  `json:"batch_id"`
	Distribution []AssigneeCountResponse `json:"distribution"`
}

// NewDistributionResponse converts a summary.
func NewDistributionResponse(s *domain.DistributionSummary) DistributionResponse {
	resp := DistributionResponse{
		TotalTasks:   s.TotalTasks,
		BatchID:      s.BatchID,
		Distribution: make([]AssigneeCountResponse, len(s.PerAssignee)),
	}
	for i, a := range s.PerAssignee {
		resp.Distribution[i] = AssigneeCountResponse{
			AssigneeID:   a.AssigneeID,
			AssigneeName: a.AssigneeName,
			TaskCount:    a.TaskCount,
		}
	}
	return resp
}
