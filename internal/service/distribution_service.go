package service

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/spec-kit/task-distribution/internal/config"
	"github.com/spec-kit/task-distribution/internal/domain"
	"github.com/spec-kit/task-distribution/internal/events"
	"github.com/spec-kit/task-distribution/internal/persistence"
	"github.com/spec-kit/task-distribution/internal/repository"
	apperrors "github.com/spec-kit/task-distribution/pkg/util/errorutil"
)

// Locker serializes work on a shared key across processes.
type Locker interface {
	Acquire(ctx context.Context, key string, ttl time.Duration) (func(context.Context), error)
}

// DistributionService splits uploaded records across the creator's assignees.
type DistributionService struct {
	principals repository.PrincipalRepository
	tasks      repository.TaskRepository
	dispatcher events.Dispatcher
	locker     Locker
	lockTTL    time.Duration
	logger     *zap.Logger
	now        func() time.Time
}

// DistributionDependencies bundles collaborators. Locker may be nil.
type DistributionDependencies struct {
	PrincipalRepo repository.PrincipalRepository
	TaskRepo      repository.TaskRepository
	Dispatcher    events.Dispatcher
	Locker        Locker
	Logger        *zap.Logger
}

// NewDistributionService creates the service. The locker is only used when
// distribution locking is enabled in cfg.
func NewDistributionService(cfg config.Config, deps DistributionDependencies) *DistributionService {
	svc := &DistributionService{
		principals: deps.PrincipalRepo,
		tasks:      deps.TaskRepo,
		dispatcher: deps.Dispatcher,
		lockTTL:    cfg.Distribution.LockTTL(),
		logger:     deps.Logger,
		now:        time.Now,
	}
	if cfg.Distribution.LockEnabled {
		svc.locker = deps.Locker
	}
	if svc.logger == nil {
		svc.logger = zap.NewNop()
	}
	return svc
}

// DistributeInput is one upload to split.
type DistributeInput struct {
	Records []domain.TaskRecord
	Creator domain.PrincipalRef
}

// Distribute drops invalid records, partitions the rest over the creator's
// assignee pool in contiguous blocks and stores them as one batch.
func (s *DistributionService) Distribute(ctx context.Context, in DistributeInput) (*domain.DistributionSummary, error) {
	caps := in.Creator.Role.Capabilities()
	if !in.Creator.Role.CanDistribute() {
		return nil, apperrors.NewForbidden("role cannot distribute tasks")
	}

	valid := make([]domain.TaskRecord, 0, len(in.Records))
	for _, rec := range in.Records {
		if rec.Valid() {
			valid = append(valid, rec)
		}
	}
	if len(valid) == 0 {
		return nil, apperrors.NewValidationError("no valid tasks found in file", nil)
	}

	pool := repository.PrincipalFilter{Role: caps.DistributesTo}
	if caps.ScopedToParent {
		parent := in.Creator.ID
		pool.ParentAgentID = &parent
	}

	if s.locker != nil {
		release, err := s.locker.Acquire(ctx, poolKey(pool), s.lockTTL)
		if err != nil {
			if errors.Is(err, persistence.ErrLockHeld) {
				return nil, apperrors.NewConflict("another distribution to the same assignees is in progress", nil)
			}
			return nil, apperrors.NewInternalError(err)
		}
		defer release(context.WithoutCancel(ctx))
	}

	assignees, err := s.principals.List(ctx, pool)
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	if len(assignees) == 0 {
		return nil, apperrors.NewValidationError(noAssigneesMessage(caps.DistributesTo), nil)
	}

	batchID := uuid.NewString()
	tasks := buildBatch(valid, assignees, Partition(len(valid), len(assignees)), batchID, in.Creator, caps.Target, s.now().UTC())
	if err := s.tasks.CreateBatch(ctx, tasks); err != nil {
		return nil, apperrors.NewInternalError(err)
	}

	counts, err := s.tasks.CountByAssignee(ctx, batchID, caps.Target)
	if err != nil {
		return nil, apperrors.NewInternalError(err)
	}

	summary := &domain.DistributionSummary{BatchID: batchID, TotalTasks: len(tasks)}
	shares := make([]events.AssigneeShare, 0, len(assignees))
	for _, a := range assignees {
		count := counts[a.ID]
		if count == 0 {
			continue
		}
		summary.PerAssignee = append(summary.PerAssignee, domain.AssigneeCount{
			AssigneeID:   a.ID,
			AssigneeName: a.Name,
			TaskCount:    count,
		})
		shares = append(shares, events.AssigneeShare{AssigneeID: a.ID, TaskCount: count})
	}

	s.logger.Info("tasks distributed",
		zap.String("batch_id", batchID),
		zap.String("creator_id", in.Creator.ID),
		zap.String("creator_role", string(in.Creator.Role)),
		zap.Int("total_tasks", len(tasks)),
		zap.Int("dropped_rows", len(in.Records)-len(valid)),
		zap.Int("assignees", len(assignees)))

	s.publish(ctx, in.Creator, batchID, events.TasksDistributedPayload{
		TotalTasks: len(tasks),
		Field:      caps.Target,
		Shares:     shares,
	})
	return summary, nil
}

func buildBatch(records []domain.TaskRecord, assignees []domain.Principal, sizes []int, batchID string, creator domain.PrincipalRef, field domain.AssignmentField, now time.Time) []domain.Task {
	tasks := make([]domain.Task, 0, len(records))
	next := 0
	for i, assignee := range assignees {
		for j := 0; j < sizes[i]; j++ {
			rec := records[next]
			next++
			task := domain.Task{
				ID:        uuid.NewString(),
				BatchID:   batchID,
				FirstName: rec.FirstName,
				Phone:     rec.Phone,
				Notes:     rec.Notes,
				CreatedBy: creator,
				Status:    domain.TaskStatusPending,
				CreatedAt: now,
				UpdatedAt: now,
			}
			task.Assign(field, assignee.ID)
			tasks = append(tasks, task)
		}
	}
	return tasks
}

func poolKey(pool repository.PrincipalFilter) string {
	if pool.ParentAgentID != nil {
		return string(pool.Role) + ":" + *pool.ParentAgentID
	}
	return string(pool.Role) + ":all"
}

func noAssigneesMessage(role domain.Role) string {
	if role == domain.RoleSubAgent {
		return "no sub-agents available for distribution"
	}
	return "no agents available for distribution"
}

func (s *DistributionService) publish(ctx context.Context, actor domain.PrincipalRef, batchID string, payload events.TasksDistributedPayload) {
	if s.dispatcher == nil {
		return
	}
	_ = s.dispatcher.Publish(ctx, events.Event{
		ID:        uuid.NewString(),
		Type:      events.EventTasksDistributed,
		SubjectID: batchID,
		Actor:     events.ActorFrom(actor),
		Timestamp: s.now().UTC(),
		Payload:   payload,
	})
}
