package service

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/spec-kit/task-distribution/internal/domain"
	"github.com/spec-kit/task-distribution/internal/events"
	"github.com/spec-kit/task-distribution/internal/repository"
	apperrors "github.com/spec-kit/task-distribution/pkg/util/errorutil"
)

// TaskView selects one of the listing variants.
type TaskView string

const (
	// ViewScoped lists whatever the caller's role may see.
	ViewScoped           TaskView = ""
	ViewAdminCreated     TaskView = "admin"
	ViewAgentAssigned    TaskView = "agent"
	ViewAgentCreated     TaskView = "agent-created"
	ViewSubAgentAssigned TaskView = "subagent"
)

// TaskService lists, updates and deletes distributed tasks.
type TaskService struct {
	tasks      repository.TaskRepository
	principals repository.PrincipalRepository
	dispatcher events.Dispatcher
	now        func() time.Time
}

// TaskDependencies bundles repositories.
type TaskDependencies struct {
	TaskRepo      repository.TaskRepository
	PrincipalRepo repository.PrincipalRepository
	Dispatcher    events.Dispatcher
}

// NewTaskService creates the service.
func NewTaskService(deps TaskDependencies) *TaskService {
	return &TaskService{
		tasks:      deps.TaskRepo,
		principals: deps.PrincipalRepo,
		dispatcher: deps.Dispatcher,
		now:        time.Now,
	}
}

// ListTasksInput carries listing parameters. A zero Limit returns every match.
type ListTasksInput struct {
	View   TaskView
	Status *domain.TaskStatus
	Limit  int
	Offset int
}

// List returns tasks visible to actor through the requested view, with
// assignee and creator names resolved.
func (s *TaskService) List(ctx context.Context, actor domain.PrincipalRef, in ListTasksInput) ([]domain.TaskView, error) {
	filter, err := viewFilter(actor, in.View)
	if err != nil {
		return nil, err
	}
	if in.Status != nil && !in.Status.Valid() {
		return nil, apperrors.NewValidationError("invalid status", map[string]any{"status": *in.Status})
	}
	filter.Status = in.Status
	filter.Limit = in.Limit
	filter.Offset = in.Offset

	tasks, err := s.tasks.List(ctx, filter)
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	return s.populate(ctx, tasks)
}

func viewFilter(actor domain.PrincipalRef, view TaskView) (repository.TaskFilter, error) {
	id := actor.ID
	requireRole := func(role domain.Role) error {
		if actor.Role != role {
			return apperrors.NewForbidden("view not available for role " + string(actor.Role))
		}
		return nil
	}

	switch view {
	case ViewScoped:
		filter, ok := ListScope(actor)
		if !ok {
			return filter, apperrors.NewForbidden("unknown role")
		}
		return filter, nil
	case ViewAdminCreated:
		if err := requireRole(domain.RoleAdmin); err != nil {
			return repository.TaskFilter{}, err
		}
		return repository.TaskFilter{CreatedBy: &actor}, nil
	case ViewAgentAssigned:
		if err := requireRole(domain.RoleAgent); err != nil {
			return repository.TaskFilter{}, err
		}
		return repository.TaskFilter{AssignedAgentID: &id}, nil
	case ViewAgentCreated:
		if err := requireRole(domain.RoleAgent); err != nil {
			return repository.TaskFilter{}, err
		}
		return repository.TaskFilter{CreatedBy: &actor}, nil
	case ViewSubAgentAssigned:
		if err := requireRole(domain.RoleSubAgent); err != nil {
			return repository.TaskFilter{}, err
		}
		return repository.TaskFilter{AssignedSubAgentID: &id}, nil
	}
	return repository.TaskFilter{}, apperrors.NewValidationError("unknown task view", map[string]any{"view": view})
}

// UpdateStatus changes the status of a task actor created or is assigned to.
func (s *TaskService) UpdateStatus(ctx context.Context, actor domain.PrincipalRef, id string, status domain.TaskStatus) (*domain.Task, error) {
	if !status.Valid() {
		return nil, apperrors.NewValidationError("invalid status", map[string]any{
			"status":  status,
			"allowed": []domain.TaskStatus{domain.TaskStatusPending, domain.TaskStatusInProgress, domain.TaskStatusCompleted},
		})
	}

	task, err := s.tasks.GetByID(ctx, id)
	if err != nil {
		return nil, lookupError(err, "task", map[string]any{"id": id})
	}
	if !CanUpdateStatus(actor, task) {
		return nil, apperrors.NewForbidden("not authorized to update this task")
	}

	oldStatus := task.Status
	updated, err := s.tasks.UpdateStatus(ctx, id, status)
	if err != nil {
		return nil, lookupError(err, "task", map[string]any{"id": id})
	}
	s.publish(ctx, events.EventTaskStatusChanged, actor, id, events.TaskStatusChangedPayload{
		OldStatus: oldStatus,
		NewStatus: status,
	})
	return updated, nil
}

// Delete removes a task. Admins may delete any task, others only their own uploads.
func (s *TaskService) Delete(ctx context.Context, actor domain.PrincipalRef, id string) error {
	task, err := s.tasks.GetByID(ctx, id)
	if err != nil {
		return lookupError(err, "task", map[string]any{"id": id})
	}
	if !CanDelete(actor, task) {
		return apperrors.NewForbidden("not authorized to delete this task")
	}
	if err := s.tasks.Delete(ctx, id); err != nil {
		return lookupError(err, "task", map[string]any{"id": id})
	}
	s.publish(ctx, events.EventTaskDeleted, actor, id, events.TaskDeletedPayload{BatchID: task.BatchID})
	return nil
}

func (s *TaskService) populate(ctx context.Context, tasks []domain.Task) ([]domain.TaskView, error) {
	seen := make(map[string]struct{})
	var ids []string
	add := func(id *string) {
		if id == nil || *id == "" {
			return
		}
		if _, ok := seen[*id]; !ok {
			seen[*id] = struct{}{}
			ids = append(ids, *id)
		}
	}
	for i := range tasks {
		add(tasks[i].AssignedAgentID)
		add(tasks[i].AssignedSubAgentID)
		add(&tasks[i].CreatedBy.ID)
	}

	summaries, err := s.principals.Summaries(ctx, ids)
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	lookup := func(id *string) *domain.PrincipalSummary {
		if id == nil {
			return nil
		}
		if sum, ok := summaries[*id]; ok {
			return &sum
		}
		return nil
	}

	views := make([]domain.TaskView, len(tasks))
	for i, t := range tasks {
		views[i] = domain.TaskView{
			Task:             t,
			AssignedAgent:    lookup(t.AssignedAgentID),
			AssignedSubAgent: lookup(t.AssignedSubAgentID),
			Creator:          lookup(&t.CreatedBy.ID),
		}
	}
	return views, nil
}

func (s *TaskService) publish(ctx context.Context, eventType events.EventType, actor domain.PrincipalRef, taskID string, payload any) {
	if s.dispatcher == nil {
		return
	}
	_ = s.dispatcher.Publish(ctx, events.Event{
		ID:        uuid.NewString(),
		Type:      eventType,
		SubjectID: taskID,
		Actor:     events.ActorFrom(actor),
		Timestamp: s.now().UTC(),
		Payload:   payload,
	})
}
