package repository

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/spec-kit/task-distribution/internal/domain"
)

// Repository errors shared by every backend.
var (
	ErrNotFound       = pgx.ErrNoRows
	ErrDuplicateEmail = errors.New("email already registered for this role")
)

const uniqueViolation = "23505"

// PrincipalFilter narrows principal listings.
type PrincipalFilter struct {
	Role          domain.Role
	ParentAgentID *string
}

// PrincipalRepository persists admins, agents and sub-agents.
type PrincipalRepository interface {
	Create(ctx context.Context, principal *domain.Principal) error
	Update(ctx context.Context, principal *domain.Principal) error
	GetByID(ctx context.Context, role domain.Role, id string) (*domain.Principal, error)
	GetByEmail(ctx context.Context, role domain.Role, email string) (*domain.Principal, error)
	// List returns matches ordered by creation time, oldest first.
	List(ctx context.Context, filter PrincipalFilter) ([]domain.Principal, error)
	Delete(ctx context.Context, role domain.Role, id string) error
	CountByRole(ctx context.Context, role domain.Role) (int, error)
	// Summaries resolves display projections for the given ids. Unknown ids are
	// absent from the result.
	Summaries(ctx context.Context, ids []string) (map[string]domain.PrincipalSummary, error)
}

type principalRepository struct {
	pool *pgxpool.Pool
}

// NewPrincipalRepository returns a Postgres-backed implementation.
func NewPrincipalRepository(pool *pgxpool.Pool) PrincipalRepository {
	return &principalRepository{pool: pool}
}

const principalColumns = `id, role, name, email, mobile, password_hash, parent_agent_id, created_at, updated_at`

func (r *principalRepository) Create(ctx context.Context, p *domain.Principal) error {
	const query = `
        INSERT INTO principals (id, role, name, email, mobile, password_hash, parent_agent_id)
        VALUES ($1, $2, $3, $4, $5, $6, $7)
        RETURNING created_at, updated_at`

	err := r.pool.QueryRow(ctx, query,
		p.ID,
		p.Role,
		p.Name,
		p.Email,
		p.Mobile,
		p.PasswordHash,
		p.ParentAgentID,
	).Scan(&p.CreatedAt, &p.UpdatedAt)
	return mapWriteError(err)
}

func (r *principalRepository) Update(ctx context.Context, p *domain.Principal) error {
	const query = `
        UPDATE principals SET name=$1, email=$2, mobile=$3, password_hash=$4, updated_at=NOW()
        WHERE id=$5 AND role=$6
        RETURNING updated_at`

	err := r.pool.QueryRow(ctx, query,
		p.Name,
		p.Email,
		p.Mobile,
		p.PasswordHash,
		p.ID,
		p.Role,
	).Scan(&p.UpdatedAt)
	return mapWriteError(err)
}

func (r *principalRepository) GetByID(ctx context.Context, role domain.Role, id string) (*domain.Principal, error) {
	query := `SELECT ` + principalColumns + ` FROM principals WHERE id=$1 AND role=$2`
	return scanPrincipal(r.pool.QueryRow(ctx, query, id, role))
}

func (r *principalRepository) GetByEmail(ctx context.Context, role domain.Role, email string) (*domain.Principal, error) {
	query := `SELECT ` + principalColumns + ` FROM principals WHERE email=$1 AND role=$2`
	return scanPrincipal(r.pool.QueryRow(ctx, query, domain.NormalizeEmail(email), role))
}

func (r *principalRepository) List(ctx context.Context, filter PrincipalFilter) ([]domain.Principal, error) {
	clauses := []string{"role=$1"}
	args := []any{filter.Role}
	if filter.ParentAgentID != nil {
		args = append(args, *filter.ParentAgentID)
		clauses = append(clauses, fmt.Sprintf("parent_agent_id=$%d", len(args)))
	}
	query := `SELECT ` + principalColumns + ` FROM principals WHERE ` +
		strings.Join(clauses, " AND ") + ` ORDER BY created_at ASC, id ASC`

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var principals []domain.Principal
	for rows.Next() {
		p, err := scanPrincipal(rows)
		if err != nil {
			return nil, err
		}
		principals = append(principals, *p)
	}
	return principals, rows.Err()
}

func (r *principalRepository) Delete(ctx context.Context, role domain.Role, id string) error {
	cmd, err := r.pool.Exec(ctx, `DELETE FROM principals WHERE id=$1 AND role=$2`, id, role)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *principalRepository) CountByRole(ctx context.Context, role domain.Role) (int, error) {
	var count int
	err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM principals WHERE role=$1`, role).Scan(&count)
	return count, err
}

func (r *principalRepository) Summaries(ctx context.Context, ids []string) (map[string]domain.PrincipalSummary, error) {
	out := make(map[string]domain.PrincipalSummary, len(ids))
	if len(ids) == 0 {
		return out, nil
	}
	rows, err := r.pool.Query(ctx, `SELECT id, name, email FROM principals WHERE id = ANY($1)`, ids)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	for rows.Next() {
		var s domain.PrincipalSummary
		if err := rows.Scan(&s.ID, &s.Name, &s.Email); err != nil {
			return nil, err
		}
		out[s.ID] = s
	}
	return out, rows.Err()
}

func scanPrincipal(row pgx.Row) (*domain.Principal, error) {
	var p domain.Principal
	if err := row.Scan(
		&p.ID,
		&p.Role,
		&p.Name,
		&p.Email,
		&p.Mobile,
		&p.PasswordHash,
		&p.ParentAgentID,
		&p.CreatedAt,
		&p.UpdatedAt,
	); err != nil {
		return nil, err
	}
	return &p, nil
}

func mapWriteError(err error) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
		return ErrDuplicateEmail
	}
	return err
}
