package agents

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/tutorhub/tutorhub/internal/authz"
	"github.com/tutorhub/tutorhub/internal/shared"
)

const agentColumns = `agents.id, agents.course_id, agents.name, agents.model, agents.instructions, agents.enabled, agents.created_at, agents.updated_at`

// Repository provides PostgreSQL backed persistence.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// List returns agents within the scope condition.
func (r *Repository) List(ctx context.Context, cond authz.Condition) ([]Agent, error) {
	query := "SELECT " + agentColumns + " FROM agents"
	var args []any
	if !cond.Empty() {
		if cond.Joins() != "" {
			query += " " + cond.Joins()
		}
		query += " WHERE " + cond.Render(1)
		args = append(args, cond.Args()...)
	}
	query += " ORDER BY agents.course_id, agents.name"

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("agents: list: %w", err)
	}
	defer rows.Close()

	var out []Agent
	for rows.Next() {
		var a Agent
		if err := rows.Scan(&a.ID, &a.CourseID, &a.Name, &a.Model, &a.Instructions, &a.Enabled, &a.CreatedAt, &a.UpdatedAt); err != nil {
			return nil, fmt.Errorf("agents: scan: %w", err)
		}
		out = append(out, a)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("agents: list: %w", err)
	}
	return out, nil
}

// Get fetches one agent by id.
func (r *Repository) Get(ctx context.Context, id int64) (*Agent, error) {
	var a Agent
	err := r.pool.QueryRow(ctx, "SELECT "+agentColumns+" FROM agents WHERE agents.id = $1", id).
		Scan(&a.ID, &a.CourseID, &a.Name, &a.Model, &a.Instructions, &a.Enabled, &a.CreatedAt, &a.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, shared.ErrNotFound
		}
		return nil, fmt.Errorf("agents: get: %w", err)
	}
	return &a, nil
}

// Create inserts an agent under a course.
func (r *Repository) Create(ctx context.Context, a Agent) (*Agent, error) {
	var out Agent
	err := r.pool.QueryRow(ctx, `
		INSERT INTO agents (course_id, name, model, instructions, enabled, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, NOW(), NOW())
		RETURNING `+agentColumns,
		a.CourseID, a.Name, a.Model, a.Instructions, a.Enabled,
	).Scan(&out.ID, &out.CourseID, &out.Name, &out.Model, &out.Instructions, &out.Enabled, &out.CreatedAt, &out.UpdatedAt)
	if err != nil {
		return nil, fmt.Errorf("agents: create: %w", err)
	}
	return &out, nil
}

// Update edits agent configuration.
func (r *Repository) Update(ctx context.Context, id int64, name, model, instructions string, enabled bool) (*Agent, error) {
	var out Agent
	err := r.pool.QueryRow(ctx, `
		UPDATE agents SET name = $2, model = $3, instructions = $4, enabled = $5, updated_at = NOW()
		WHERE id = $1
		RETURNING `+agentColumns,
		id, name, model, instructions, enabled,
	).Scan(&out.ID, &out.CourseID, &out.Name, &out.Model, &out.Instructions, &out.Enabled, &out.CreatedAt, &out.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, shared.ErrNotFound
		}
		return nil, fmt.Errorf("agents: update: %w", err)
	}
	return &out, nil
}

// Delete removes an agent.
func (r *Repository) Delete(ctx context.Context, id int64) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM agents WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("agents: delete: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return shared.ErrNotFound
	}
	return nil
}
