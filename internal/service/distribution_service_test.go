package service

import (
	"context"
	"errors"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/spec-kit/task-distribution/internal/domain"
	"github.com/spec-kit/task-distribution/internal/events"
	"github.com/spec-kit/task-distribution/internal/persistence"
	"github.com/spec-kit/task-distribution/internal/repository"
	apperrors "github.com/spec-kit/task-distribution/pkg/util/errorutil"
)

type distributionFixture struct {
	principals *repository.MemoryPrincipalRepository
	tasks      *repository.MemoryTaskRepository
	published  []events.Event
	svc        *DistributionService
}

func newDistributionFixture(t *testing.T, locker Locker, lockEnabled bool) *distributionFixture {
	t.Helper()
	f := &distributionFixture{
		principals: repository.NewMemoryPrincipalRepository(),
		tasks:      repository.NewMemoryTaskRepository(),
	}
	dispatcher := events.NewInMemoryDispatcher(zap.NewNop())
	dispatcher.Subscribe(events.EventTasksDistributed, func(_ context.Context, e events.Event) error {
		f.published = append(f.published, e)
		return nil
	})

	cfg := testConfig()
	cfg.Distribution.LockEnabled = lockEnabled
	f.svc = NewDistributionService(cfg, DistributionDependencies{
		PrincipalRepo: f.principals,
		TaskRepo:      f.tasks,
		Dispatcher:    dispatcher,
		Locker:        locker,
		Logger:        zap.NewNop(),
	})
	return f
}

func requireStatus(t *testing.T, err error, status int) {
	t.Helper()
	require.Error(t, err)
	require.Equal(t, status, apperrors.ToDomainError(err).HTTPStatus, err.Error())
}

func TestDistribute_TenRowsThreeAgents(t *testing.T) {
	f := newDistributionFixture(t, nil, false)
	a1 := seedPrincipal(t, f.principals, domain.RoleAgent, "alpha", nil)
	a2 := seedPrincipal(t, f.principals, domain.RoleAgent, "bravo", nil)
	a3 := seedPrincipal(t, f.principals, domain.RoleAgent, "charlie", nil)
	admin := domain.PrincipalRef{ID: "admin-1", Role: domain.RoleAdmin}

	summary, err := f.svc.Distribute(context.Background(), DistributeInput{Records: records(10), Creator: admin})
	require.NoError(t, err)

	require.Equal(t, 10, summary.TotalTasks)
	require.NotEmpty(t, summary.BatchID)
	require.Equal(t, []domain.AssigneeCount{
		{AssigneeID: a1.ID, AssigneeName: "alpha", TaskCount: 4},
		{AssigneeID: a2.ID, AssigneeName: "bravo", TaskCount: 3},
		{AssigneeID: a3.ID, AssigneeName: "charlie", TaskCount: 3},
	}, summary.PerAssignee)

	// Blocks are contiguous in input order.
	stored, err := f.tasks.List(context.Background(), repository.TaskFilter{})
	require.NoError(t, err)
	require.Len(t, stored, 10)
	for i, task := range stored {
		want := a1.ID
		switch {
		case i >= 7:
			want = a3.ID
		case i >= 4:
			want = a2.ID
		}
		require.Equal(t, want, *task.AssignedAgentID, "row %d", i)
		require.Nil(t, task.AssignedSubAgentID)
		require.Equal(t, domain.TaskStatusPending, task.Status)
		require.Equal(t, admin, task.CreatedBy)
		require.Equal(t, summary.BatchID, task.BatchID)
	}
	require.Equal(t, "contact-00", stored[0].FirstName)
	require.Equal(t, "contact-09", stored[9].FirstName)

	require.Len(t, f.published, 1)
	require.Equal(t, summary.BatchID, f.published[0].SubjectID)
}

func TestDistribute_MoreAgentsThanTasks(t *testing.T) {
	f := newDistributionFixture(t, nil, false)
	var agents []domain.Principal
	for _, name := range []string{"a", "b", "c", "d", "e"} {
		agents = append(agents, seedPrincipal(t, f.principals, domain.RoleAgent, name, nil))
	}

	summary, err := f.svc.Distribute(context.Background(), DistributeInput{
		Records: records(2),
		Creator: domain.PrincipalRef{ID: "admin-1", Role: domain.RoleAdmin},
	})
	require.NoError(t, err)
	require.Equal(t, 2, summary.TotalTasks)
	require.Len(t, summary.PerAssignee, 2)
	require.Equal(t, agents[0].ID, summary.PerAssignee[0].AssigneeID)
	require.Equal(t, agents[1].ID, summary.PerAssignee[1].AssigneeID)
}

func TestDistribute_DropsInvalidRows(t *testing.T) {
	f := newDistributionFixture(t, nil, false)
	seedPrincipal(t, f.principals, domain.RoleAgent, "solo", nil)

	input := records(3)
	input = append(input, domain.TaskRecord{FirstName: "No", Phone: "Notes"})
	summary, err := f.svc.Distribute(context.Background(), DistributeInput{
		Records: input,
		Creator: domain.PrincipalRef{ID: "admin-1", Role: domain.RoleAdmin},
	})
	require.NoError(t, err)
	require.Equal(t, 3, summary.TotalTasks)
}

func TestDistribute_SecondUploadIsIndependentBatch(t *testing.T) {
	f := newDistributionFixture(t, nil, false)
	seedPrincipal(t, f.principals, domain.RoleAgent, "one", nil)
	seedPrincipal(t, f.principals, domain.RoleAgent, "two", nil)
	admin := domain.PrincipalRef{ID: "admin-1", Role: domain.RoleAdmin}

	first, err := f.svc.Distribute(context.Background(), DistributeInput{Records: records(5), Creator: admin})
	require.NoError(t, err)
	second, err := f.svc.Distribute(context.Background(), DistributeInput{Records: records(5), Creator: admin})
	require.NoError(t, err)

	require.NotEqual(t, first.BatchID, second.BatchID)
	require.Equal(t, first.PerAssignee, second.PerAssignee, "each summary covers its own batch only")

	stored, err := f.tasks.List(context.Background(), repository.TaskFilter{})
	require.NoError(t, err)
	require.Len(t, stored, 10)
}

func TestDistribute_AgentToOwnSubAgentsOnly(t *testing.T) {
	f := newDistributionFixture(t, nil, false)
	agent := seedPrincipal(t, f.principals, domain.RoleAgent, "agent", nil)
	other := seedPrincipal(t, f.principals, domain.RoleAgent, "other", nil)
	mine1 := seedPrincipal(t, f.principals, domain.RoleSubAgent, "mine1", &agent.ID)
	seedPrincipal(t, f.principals, domain.RoleSubAgent, "theirs", &other.ID)
	mine2 := seedPrincipal(t, f.principals, domain.RoleSubAgent, "mine2", &agent.ID)

	summary, err := f.svc.Distribute(context.Background(), DistributeInput{Records: records(3), Creator: agent.Ref()})
	require.NoError(t, err)
	require.Equal(t, []domain.AssigneeCount{
		{AssigneeID: mine1.ID, AssigneeName: "mine1", TaskCount: 2},
		{AssigneeID: mine2.ID, AssigneeName: "mine2", TaskCount: 1},
	}, summary.PerAssignee)

	stored, err := f.tasks.List(context.Background(), repository.TaskFilter{})
	require.NoError(t, err)
	for _, task := range stored {
		require.Nil(t, task.AssignedAgentID)
		require.NotNil(t, task.AssignedSubAgentID)
		require.Equal(t, agent.Ref(), task.CreatedBy)
	}
}

func TestDistribute_Rejections(t *testing.T) {
	f := newDistributionFixture(t, nil, false)
	admin := domain.PrincipalRef{ID: "admin-1", Role: domain.RoleAdmin}

	_, err := f.svc.Distribute(context.Background(), DistributeInput{Records: records(3), Creator: admin})
	requireStatus(t, err, http.StatusBadRequest)
	require.Contains(t, err.Error(), "no agents available")

	seedPrincipal(t, f.principals, domain.RoleAgent, "agent", nil)
	_, err = f.svc.Distribute(context.Background(), DistributeInput{
		Records: []domain.TaskRecord{{FirstName: "x"}},
		Creator: admin,
	})
	requireStatus(t, err, http.StatusBadRequest)
	require.Contains(t, err.Error(), "no valid tasks")

	_, err = f.svc.Distribute(context.Background(), DistributeInput{
		Records: records(1),
		Creator: domain.PrincipalRef{ID: "s", Role: domain.RoleSubAgent},
	})
	requireStatus(t, err, http.StatusForbidden)

	agentNoSubs := domain.PrincipalRef{ID: "lonely", Role: domain.RoleAgent}
	_, err = f.svc.Distribute(context.Background(), DistributeInput{Records: records(1), Creator: agentNoSubs})
	requireStatus(t, err, http.StatusBadRequest)
	require.Contains(t, err.Error(), "no sub-agents available")

	stored, err := f.tasks.List(context.Background(), repository.TaskFilter{})
	require.NoError(t, err)
	require.Empty(t, stored, "rejections persist nothing")
}

type stubLocker struct {
	err      error
	keys     []string
	released int
}

func (l *stubLocker) Acquire(_ context.Context, key string, _ time.Duration) (func(context.Context), error) {
	l.keys = append(l.keys, key)
	if l.err != nil {
		return nil, l.err
	}
	return func(context.Context) { l.released++ }, nil
}

func TestDistribute_Locking(t *testing.T) {
	held := &stubLocker{err: persistence.ErrLockHeld}
	f := newDistributionFixture(t, held, true)
	seedPrincipal(t, f.principals, domain.RoleAgent, "agent", nil)
	admin := domain.PrincipalRef{ID: "admin-1", Role: domain.RoleAdmin}

	_, err := f.svc.Distribute(context.Background(), DistributeInput{Records: records(2), Creator: admin})
	requireStatus(t, err, http.StatusConflict)
	require.Equal(t, []string{"agent:all"}, held.keys)

	broken := &stubLocker{err: errors.New("redis down")}
	f = newDistributionFixture(t, broken, true)
	seedPrincipal(t, f.principals, domain.RoleAgent, "agent", nil)
	_, err = f.svc.Distribute(context.Background(), DistributeInput{Records: records(2), Creator: admin})
	requireStatus(t, err, http.StatusInternalServerError)

	free := &stubLocker{}
	f = newDistributionFixture(t, free, true)
	seedPrincipal(t, f.principals, domain.RoleAgent, "agent", nil)
	_, err = f.svc.Distribute(context.Background(), DistributeInput{Records: records(2), Creator: admin})
	require.NoError(t, err)
	require.Equal(t, 1, free.released)

	disabled := &stubLocker{err: persistence.ErrLockHeld}
	f = newDistributionFixture(t, disabled, false)
	seedPrincipal(t, f.principals, domain.RoleAgent, "agent", nil)
	_, err = f.svc.Distribute(context.Background(), DistributeInput{Records: records(2), Creator: admin})
	require.NoError(t, err, "locker is ignored when locking is disabled")
	require.Empty(t, disabled.keys)
}
