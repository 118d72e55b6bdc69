package universities

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/tutorhub/tutorhub/internal/authz"
	"github.com/tutorhub/tutorhub/internal/shared"
)

// Repository provides PostgreSQL backed persistence.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// List returns universities within the scope condition.
func (r *Repository) List(ctx context.Context, cond authz.Condition, page shared.Pagination) ([]University, int, error) {
	where := ""
	args := []any{}
	if !cond.Empty() {
		where = " WHERE " + cond.Render(1)
		args = append(args, cond.Args()...)
	}

	var total int
	if err := r.pool.QueryRow(ctx, "SELECT COUNT(*) FROM universities"+where, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("universities: count: %w", err)
	}

	query := "SELECT id, name, domain, created_at, updated_at FROM universities" + where +
		fmt.Sprintf(" ORDER BY name LIMIT $%d OFFSET $%d", len(args)+1, len(args)+2)
	args = append(args, page.PerPage, (page.Page-1)*page.PerPage)

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("universities: list: %w", err)
	}
	defer rows.Close()

	var out []University
	for rows.Next() {
		var u University
		if err := rows.Scan(&u.ID, &u.Name, &u.Domain, &u.CreatedAt, &u.UpdatedAt); err != nil {
			return nil, 0, fmt.Errorf("universities: scan: %w", err)
		}
		out = append(out, u)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("universities: list: %w", err)
	}
	return out, total, nil
}

// Get fetches one university by id.
func (r *Repository) Get(ctx context.Context, id int64) (*University, error) {
	var u University
	err := r.pool.QueryRow(ctx, `SELECT id, name, domain, created_at, updated_at FROM universities WHERE id = $1`, id).
		Scan(&u.ID, &u.Name, &u.Domain, &u.CreatedAt, &u.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, shared.ErrNotFound
		}
		return nil, fmt.Errorf("universities: get: %w", err)
	}
	return &u, nil
}

// Create inserts a new university.
func (r *Repository) Create(ctx context.Context, name, domain string) (*University, error) {
	var u University
	err := r.pool.QueryRow(ctx, `
		INSERT INTO universities (name, domain, created_at, updated_at)
		VALUES ($1, $2, NOW(), NOW())
		RETURNING id, name, domain, created_at, updated_at`,
		name, domain,
	).Scan(&u.ID, &u.Name, &u.Domain, &u.CreatedAt, &u.UpdatedAt)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return nil, shared.ErrConflict
		}
		return nil, fmt.Errorf("universities: create: %w", err)
	}
	return &u, nil
}

// Update edits name and domain.
func (r *Repository) Update(ctx context.Context, id int64, name, domain string) (*University, error) {
	var u University
	err := r.pool.QueryRow(ctx, `
		UPDATE universities SET name = $2, domain = $3, updated_at = NOW()
		WHERE id = $1
		RETURNING id, name, domain, created_at, updated_at`,
		id, name, domain,
	).Scan(&u.ID, &u.Name, &u.Domain, &u.CreatedAt, &u.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, shared.ErrNotFound
		}
		return nil, fmt.Errorf("universities: update: %w", err)
	}
	return &u, nil
}
