package courses

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

const courseColumns = `courses.id, courses.university_id, courses.name, courses.code, courses.description, courses.created_at, courses.updated_at`

// Repository provides PostgreSQL backed persistence.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// List returns courses within the scope condition, paginated.
func (r *Repository) List(ctx context.Context, cond authz.Condition, page shared.Pagination) ([]Course, int, error) {
	where := ""
	args := []any{}
	if !cond.Empty() {
		where = " WHERE " + cond.Render(1)
		args = append(args, cond.Args()...)
	}

	var total int
	if err := r.pool.QueryRow(ctx, "SELECT COUNT(*) FROM courses"+where, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("courses: count: %w", err)
	}

	query := "SELECT " + courseColumns + " FROM courses" + where +
		fmt.Sprintf(" ORDER BY courses.name LIMIT $%d OFFSET $%d", len(args)+1, len(args)+2)
	args = append(args, page.PerPage, (page.Page-1)*page.PerPage)

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("courses: list: %w", err)
	}
	defer rows.Close()

	var out []Course
	for rows.Next() {
		var c Course
		if err := rows.Scan(&c.ID, &c.UniversityID, &c.Name, &c.Code, &c.Description, &c.CreatedAt, &c.UpdatedAt); err != nil {
			return nil, 0, fmt.Errorf("courses: scan: %w", err)
		}
		out = append(out, c)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("courses: list: %w", err)
	}
	return out, total, nil
}

// Get fetches one course by id.
func (r *Repository) Get(ctx context.Context, id int64) (*Course, error) {
	var c Course
	err := r.pool.QueryRow(ctx, "SELECT "+courseColumns+" FROM courses WHERE courses.id = $1", id).
		Scan(&c.ID, &c.UniversityID, &c.Name, &c.Code, &c.Description, &c.CreatedAt, &c.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, shared.ErrNotFound
		}
		return nil, fmt.Errorf("courses: get: %w", err)
	}
	return &c, nil
}

// Create inserts a new course under a university.
func (r *Repository) Create(ctx context.Context, c Course) (*Course, error) {
	var out Course
	err := r.pool.QueryRow(ctx, `
		INSERT INTO courses (university_id, name, code, description, created_at, updated_at)
		VALUES ($1, $2, $3, $4, NOW(), NOW())
		RETURNING `+courseColumns,
		c.UniversityID, c.Name, c.Code, c.Description,
	).Scan(&out.ID, &out.UniversityID, &out.Name, &out.Code, &out.Description, &out.CreatedAt, &out.UpdatedAt)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return nil, shared.ErrConflict
		}
		return nil, fmt.Errorf("courses: create: %w", err)
	}
	return &out, nil
}

// Update edits course metadata.
func (r *Repository) Update(ctx context.Context, id int64, name, code, description string) (*Course, error) {
	var out Course
	err := r.pool.QueryRow(ctx, `
		UPDATE courses SET name = $2, code = $3, description = $4, updated_at = NOW()
		WHERE id = $1
		RETURNING `+courseColumns,
		id, name, code, description,
	).Scan(&out.ID, &out.UniversityID, &out.Name, &out.Code, &out.Description, &out.CreatedAt, &out.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, shared.ErrNotFound
		}
		return nil, fmt.Errorf("courses: update: %w", err)
	}
	return &out, nil
}

// AssignProfessor creates a professor-course assignment. Assigning an
// already assigned professor is a no-op.
func (r *Repository) AssignProfessor(ctx context.Context, courseID, professorID int64) error {
	_, err := r.pool.Exec(ctx, `
		INSERT INTO course_professors (course_id, professor_id, created_at)
		VALUES ($1, $2, NOW())
		ON CONFLICT (course_id, professor_id) DO NOTHING`,
		courseID, professorID,
	)
	if err != nil {
		return fmt.Errorf("courses: assign professor: %w", err)
	}
	return nil
}

// UnassignProfessor removes an assignment.
func (r *Repository) UnassignProfessor(ctx context.Context, courseID, professorID int64) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM course_professors WHERE course_id = $1 AND professor_id = $2`, courseID, professorID)
	if err != nil {
		return fmt.Errorf("courses: unassign professor: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return shared.ErrNotFound
	}
	return nil
}

// ListProfessors returns the assignments for one course.
func (r *Repository) ListProfessors(ctx context.Context, courseID int64) ([]ProfessorAssignment, error) {
	rows, err := r.pool.Query(ctx, `SELECT professor_id, course_id, created_at FROM course_professors WHERE course_id = $1 ORDER BY professor_id`, courseID)
	if err != nil {
		return nil, fmt.Errorf("courses: list professors: %w", err)
	}
	defer rows.Close()

	var out []ProfessorAssignment
	for rows.Next() {
		var a ProfessorAssignment
		if err := rows.Scan(&a.ProfessorID, &a.CourseID, &a.CreatedAt); err != nil {
			return nil, fmt.Errorf("courses: scan assignment: %w", err)
		}
		out = append(out, a)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("courses: list professors: %w", err)
	}
	return out, nil
}

// ListStudents returns students enrolled in one course.
func (r *Repository) ListStudents(ctx context.Context, courseID int64) ([]Student, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT users.id, users.email, users.name, enrollments.created_at
		FROM enrollments
		JOIN users ON users.id = enrollments.student_id
		WHERE enrollments.course_id = $1
		ORDER BY users.name`,
		courseID,
	)
	if err != nil {
		return nil, fmt.Errorf("courses: list students: %w", err)
	}
	defer rows.Close()

	var out []Student
	for rows.Next() {
		var s Student
		if err := rows.Scan(&s.UserID, &s.Email, &s.Name, &s.EnrolledAt); err != nil {
			return nil, fmt.Errorf("courses: scan student: %w", err)
		}
		out = append(out, s)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("courses: list students: %w", err)
	}
	return out, nil
}
