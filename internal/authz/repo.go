package authz

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PGOwnership resolves ownership chains against PostgreSQL using the
// registered path's join chain.
type PGOwnership struct {
	pool *pgxpool.Pool
}

// NewPGOwnership constructs the lookup.
func NewPGOwnership(pool *pgxpool.Pool) *PGOwnership {
	return &PGOwnership{pool: pool}
}

// ResolveOwnership fetches the owning course and university ids for one
// resource row. Returns ErrNotFound when the row does not exist.
func (o *PGOwnership) ResolveOwnership(ctx context.Context, path OwnershipPath, id int64) (Ownership, error) {
	courseExpr := path.CourseExpr
	if courseExpr == "" {
		courseExpr = "NULL::bigint"
	}
	universityExpr := path.UniversityExpr
	if universityExpr == "" {
		universityExpr = "NULL::bigint"
	}
	query := fmt.Sprintf(
		"SELECT %s, %s FROM %s %s WHERE %s.id = $1",
		courseExpr, universityExpr, path.Table, path.Joins, path.Table,
	)

	var own Ownership
	if err := o.pool.QueryRow(ctx, query, id).Scan(&own.CourseID, &own.UniversityID); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Ownership{}, fmt.Errorf("%w: %s %d", ErrNotFound, path.Table, id)
		}
		return Ownership{}, fmt.Errorf("authz: resolve ownership for %s: %w", path.Table, err)
	}
	return own, nil
}

var _ OwnershipLookup = (*PGOwnership)(nil)

// AssignmentRepository reads professor-course assignments from PostgreSQL.
type AssignmentRepository struct {
	pool *pgxpool.Pool
}

// NewAssignmentRepository constructs the repository.
func NewAssignmentRepository(pool *pgxpool.Pool) *AssignmentRepository {
	return &AssignmentRepository{pool: pool}
}

// AssignedCourses returns the course ids assigned to the professor. An
// unassigned professor gets an empty set.
func (r *AssignmentRepository) AssignedCourses(ctx context.Context, professorID int64) ([]int64, error) {
	rows, err := r.pool.Query(ctx, `SELECT course_id FROM course_professors WHERE professor_id = $1 ORDER BY course_id`, professorID)
	if err != nil {
		return nil, fmt.Errorf("authz: list assignments: %w", err)
	}
	defer rows.Close()

	ids := make([]int64, 0, 8)
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("authz: scan assignment: %w", err)
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("authz: list assignments: %w", err)
	}
	return ids, nil
}

var _ AssignmentSource = (*AssignmentRepository)(nil)
