package repository

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/spec-kit/task-distribution/internal/domain"
)

// TaskFilter narrows task listings. The ownership criteria (CreatedBy,
// AssignedAgentID, AssignedSubAgentID) are alternatives: a task matches when
// any set criterion holds, and every task matches when none is set. Status is
// always applied on top.
type TaskFilter struct {
	CreatedBy          *domain.PrincipalRef
	AssignedAgentID    *string
	AssignedSubAgentID *string
	Status             *domain.TaskStatus
	Limit              int
	Offset             int
}

// TaskRepository encapsulates task persistence.
type TaskRepository interface {
	// CreateBatch stores all tasks or none of them.
	CreateBatch(ctx context.Context, tasks []domain.Task) error
	GetByID(ctx context.Context, id string) (*domain.Task, error)
	UpdateStatus(ctx context.Context, id string, status domain.TaskStatus) (*domain.Task, error)
	Delete(ctx context.Context, id string) error
	// List returns matches newest first.
	List(ctx context.Context, filter TaskFilter) ([]domain.Task, error)
	// CountByAssignee groups the tasks of one batch by the given assignment field.
	CountByAssignee(ctx context.Context, batchID string, field domain.AssignmentField) (map[string]int, error)
}

type taskRepository struct {
	pool *pgxpool.Pool
}

// NewTaskRepository instantiates repository.
func NewTaskRepository(pool *pgxpool.Pool) TaskRepository {
	return &taskRepository{pool: pool}
}

var taskCopyColumns = []string{
	"id", "batch_id", "first_name", "phone", "notes",
	"assigned_agent_id", "assigned_sub_agent_id",
	"created_by_id", "created_by_role", "status", "created_at", "updated_at",
	"batch_position",
}

const taskColumns = `id, batch_id, first_name, phone, notes, assigned_agent_id, assigned_sub_agent_id,
               created_by_id, created_by_role, status, created_at, updated_at`

func (r *taskRepository) CreateBatch(ctx context.Context, tasks []domain.Task) error {
	if len(tasks) == 0 {
		return nil
	}

	now := time.Now().UTC()
	rows := make([][]any, len(tasks))
	for i := range tasks {
		t := &tasks[i]
		if t.CreatedAt.IsZero() {
			t.CreatedAt = now
		}
		t.UpdatedAt = t.CreatedAt
		rows[i] = []any{
			t.ID, t.BatchID, t.FirstName, t.Phone, t.Notes,
			t.AssignedAgentID, t.AssignedSubAgentID,
			t.CreatedBy.ID, t.CreatedBy.Role, t.Status, t.CreatedAt, t.UpdatedAt,
			i,
		}
	}

	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	copied, err := tx.CopyFrom(ctx, pgx.Identifier{"tasks"}, taskCopyColumns, pgx.CopyFromRows(rows))
	if err != nil {
		return fmt.Errorf("copy tasks: %w", err)
	}
	if int(copied) != len(tasks) {
		return fmt.Errorf("copy tasks: wrote %d of %d rows", copied, len(tasks))
	}
	return tx.Commit(ctx)
}

func (r *taskRepository) GetByID(ctx context.Context, id string) (*domain.Task, error) {
	query := `SELECT ` + taskColumns + ` FROM tasks WHERE id=$1`
	return scanTask(r.pool.QueryRow(ctx, query, id))
}

func (r *taskRepository) UpdateStatus(ctx context.Context, id string, status domain.TaskStatus) (*domain.Task, error) {
	query := `UPDATE tasks SET status=$1, updated_at=NOW() WHERE id=$2 RETURNING ` + taskColumns
	return scanTask(r.pool.QueryRow(ctx, query, status, id))
}

func (r *taskRepository) Delete(ctx context.Context, id string) error {
	cmd, err := r.pool.Exec(ctx, `DELETE FROM tasks WHERE id=$1`, id)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *taskRepository) List(ctx context.Context, filter TaskFilter) ([]domain.Task, error) {
	query, args := listTasksQuery(filter)
	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var tasks []domain.Task
	for rows.Next() {
		t, err := scanTask(rows)
		if err != nil {
			return nil, err
		}
		tasks = append(tasks, *t)
	}
	return tasks, rows.Err()
}

// listTasksQuery builds the listing query. Batches come newest first and
// tasks keep their upload order inside a batch.
func listTasksQuery(filter TaskFilter) (string, []any) {
	clauses := []string{"1=1"}
	args := []any{}

	var owners []string
	if filter.CreatedBy != nil {
		args = append(args, filter.CreatedBy.ID, filter.CreatedBy.Role)
		owners = append(owners, fmt.Sprintf("(created_by_id=$%d AND created_by_role=$%d)", len(args)-1, len(args)))
	}
	if filter.AssignedAgentID != nil {
		args = append(args, *filter.AssignedAgentID)
		owners = append(owners, fmt.Sprintf("assigned_agent_id=$%d", len(args)))
	}
	if filter.AssignedSubAgentID != nil {
		args = append(args, *filter.AssignedSubAgentID)
		owners = append(owners, fmt.Sprintf("assigned_sub_agent_id=$%d", len(args)))
	}
	if len(owners) > 0 {
		clauses = append(clauses, "("+strings.Join(owners, " OR ")+")")
	}
	if filter.Status != nil {
		args = append(args, *filter.Status)
		clauses = append(clauses, fmt.Sprintf("status=$%d", len(args)))
	}

	query := `SELECT ` + taskColumns + ` FROM tasks WHERE ` + strings.Join(clauses, " AND ") +
		` ORDER BY created_at DESC, batch_id, batch_position ASC`
	if filter.Limit > 0 {
		args = append(args, filter.Limit, filter.Offset)
		query += fmt.Sprintf(" LIMIT $%d OFFSET $%d", len(args)-1, len(args))
	}
	return query, args
}

func (r *taskRepository) CountByAssignee(ctx context.Context, batchID string, field domain.AssignmentField) (map[string]int, error) {
	var column string
	switch field {
	case domain.AssignToAgent:
		column = "assigned_agent_id"
	case domain.AssignToSubAgent:
		column = "assigned_sub_agent_id"
	default:
		return nil, fmt.Errorf("unknown assignment field %q", field)
	}

	query := `SELECT ` + column + `, COUNT(*) FROM tasks
        WHERE batch_id=$1 AND ` + column + ` IS NOT NULL
        GROUP BY ` + column
	rows, err := r.pool.Query(ctx, query, batchID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	counts := make(map[string]int)
	for rows.Next() {
		var (
			id    string
			count int
		)
		if err := rows.Scan(&id, &count); err != nil {
			return nil, err
		}
		counts[id] = count
	}
	return counts, rows.Err()
}

func scanTask(row pgx.Row) (*domain.Task, error) {
	var t domain.Task
	if err := row.Scan(
		&t.ID,
		&t.BatchID,
		&t.FirstName,
		&t.Phone,
		&t.Notes,
		&t.AssignedAgentID,
		&t.AssignedSubAgentID,
		&t.CreatedBy.ID,
		&t.CreatedBy.Role,
		&t.Status,
		&t.CreatedAt,
		&t.UpdatedAt,
	); err != nil {
		return nil, err
	}
	return &t, nil
}
