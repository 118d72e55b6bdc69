package modules

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/tutorhub/tutorhub/internal/authz"
	"github.com/tutorhub/tutorhub/internal/shared"
)

const moduleColumns = `course_modules.id, course_modules.course_id, course_modules.name, course_modules.description, course_modules.position, course_modules.created_at, course_modules.updated_at`

// Repository provides PostgreSQL backed persistence.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// List returns modules within the scope condition, optionally narrowed
// to one course.
func (r *Repository) List(ctx context.Context, cond authz.Condition, courseID int64) ([]Module, error) {
	query := "SELECT " + moduleColumns + " FROM course_modules"
	var args []any
	var predicates []string

	if !cond.Empty() {
		if cond.Joins() != "" {
			query += " " + cond.Joins()
		}
		predicates = append(predicates, cond.Render(len(args)+1))
		args = append(args, cond.Args()...)
	}
	if courseID > 0 {
		predicates = append(predicates, fmt.Sprintf("course_modules.course_id = $%d", len(args)+1))
		args = append(args, courseID)
	}
	for i, pred := range predicates {
		if i == 0 {
			query += " WHERE " + pred
		} else {
			query += " AND " + pred
		}
	}
	query += " ORDER BY course_modules.course_id, course_modules.position, course_modules.id"

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("modules: list: %w", err)
	}
	defer rows.Close()

	var out []Module
	for rows.Next() {
		var m Module
		if err := rows.Scan(&m.ID, &m.CourseID, &m.Name, &m.Description, &m.Position, &m.CreatedAt, &m.UpdatedAt); err != nil {
			return nil, fmt.Errorf("modules: scan: %w", err)
		}
		out = append(out, m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("modules: list: %w", err)
	}
	return out, nil
}

// Get fetches one module by id.
func (r *Repository) Get(ctx context.Context, id int64) (*Module, error) {
	var m Module
	err := r.pool.QueryRow(ctx, "SELECT "+moduleColumns+" FROM course_modules WHERE course_modules.id = $1", id).
		Scan(&m.ID, &m.CourseID, &m.Name, &m.Description, &m.Position, &m.CreatedAt, &m.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, shared.ErrNotFound
		}
		return nil, fmt.Errorf("modules: get: %w", err)
	}
	return &m, nil
}

// Create inserts a module under a course.
func (r *Repository) Create(ctx context.Context, m Module) (*Module, error) {
	var out Module
	err := r.pool.QueryRow(ctx, `
		INSERT INTO course_modules (course_id, name, description, position, created_at, updated_at)
		VALUES ($1, $2, $3, $4, NOW(), NOW())
		RETURNING `+moduleColumns,
		m.CourseID, m.Name, m.Description, m.Position,
	).Scan(&out.ID, &out.CourseID, &out.Name, &out.Description, &out.Position, &out.CreatedAt, &out.UpdatedAt)
	if err != nil {
		return nil, fmt.Errorf("modules: create: %w", err)
	}
	return &out, nil
}

// Update edits module metadata.
func (r *Repository) Update(ctx context.Context, id int64, name, description string, position int) (*Module, error) {
	var out Module
	err := r.pool.QueryRow(ctx, `
		UPDATE course_modules SET name = $2, description = $3, position = $4, updated_at = NOW()
		WHERE id = $1
		RETURNING `+moduleColumns,
		id, name, description, position,
	).Scan(&out.ID, &out.CourseID, &out.Name, &out.Description, &out.Position, &out.CreatedAt, &out.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, shared.ErrNotFound
		}
		return nil, fmt.Errorf("modules: update: %w", err)
	}
	return &out, nil
}

// Delete removes a module and its file metadata rows.
func (r *Repository) Delete(ctx context.Context, id int64) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM course_modules WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("modules: delete: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return shared.ErrNotFound
	}
	return nil
}

// ListFiles returns file metadata rows for one module.
func (r *Repository) ListFiles(ctx context.Context, moduleID int64) ([]File, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id, module_id, name, content_type, size_bytes, created_at
		FROM module_files WHERE module_id = $1 ORDER BY name`,
		moduleID,
	)
	if err != nil {
		return nil, fmt.Errorf("modules: list files: %w", err)
	}
	defer rows.Close()

	var out []File
	for rows.Next() {
		var f File
		if err := rows.Scan(&f.ID, &f.ModuleID, &f.Name, &f.ContentType, &f.SizeBytes, &f.CreatedAt); err != nil {
			return nil, fmt.Errorf("modules: scan file: %w", err)
		}
		out = append(out, f)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("modules: list files: %w", err)
	}
	return out, nil
}

// CreateFile records metadata for an uploaded file.
func (r *Repository) CreateFile(ctx context.Context, f File) (*File, error) {
	var out File
	err := r.pool.QueryRow(ctx, `
		INSERT INTO module_files (module_id, name, content_type, size_bytes, created_at)
		VALUES ($1, $2, $3, $4, NOW())
		RETURNING id, module_id, name, content_type, size_bytes, created_at`,
		f.ModuleID, f.Name, f.ContentType, f.SizeBytes,
	).Scan(&out.ID, &out.ModuleID, &out.Name, &out.ContentType, &out.SizeBytes, &out.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("modules: create file: %w", err)
	}
	return &out, nil
}

// DeleteFile removes one file metadata row.
func (r *Repository) DeleteFile(ctx context.Context, fileID int64) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM module_files WHERE id = $1`, fileID)
	if err != nil {
		return fmt.Errorf("modules: delete file: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return shared.ErrNotFound
	}
	return nil
}
