package authz

import (
	"context"
	"fmt"
	"log/slog"
	"slices"
	"strings"

	"github.com/tutorhub/tutorhub/internal/principal"
)

// Condition narrows a listing query to the principal's scope. Render
// substitutes bind placeholders starting at the given index so callers
// can splice the predicate into their own argument list.
type Condition struct {
	joins  string
	clause string // {1}, {2}, ... mark bind positions
	args   []any
}

// Empty reports whether the condition imposes no restriction.
func (c Condition) Empty() bool { return c.clause == "" }

// Joins returns the join chain the predicate depends on.
func (c Condition) Joins() string { return c.joins }

// Args returns the bind arguments for the rendered predicate.
func (c Condition) Args() []any { return c.args }

// Render produces the SQL predicate with placeholders numbered from start.
func (c Condition) Render(start int) string {
	out := c.clause
	for i := range c.args {
		out = strings.Replace(out, fmt.Sprintf("{%d}", i+1), fmt.Sprintf("$%d", start+i), 1)
	}
	return out
}

// AssignmentSource looks up the course ids assigned to a professor.
type AssignmentSource interface {
	AssignedCourses(ctx context.Context, professorID int64) ([]int64, error)
}

// Ownership is a resolved ownership chain for one resource row. Nil
// fields mean the hop does not exist for that resource type.
type Ownership struct {
	CourseID     *int64
	UniversityID *int64
}

// OwnershipLookup resolves the ownership chain of a single resource row.
type OwnershipLookup interface {
	ResolveOwnership(ctx context.Context, path OwnershipPath, id int64) (Ownership, error)
}

// Scoper is the tenant scope filter. Every tenant-owned resource type
// registers its ownership path once; handlers and repositories obtain
// their predicates here instead of hand-rolling them.
type Scoper struct {
	paths       map[Resource]OwnershipPath
	assignments AssignmentSource
	lookup      OwnershipLookup
	logger      *slog.Logger
}

// NewScoper constructs a Scoper with the canonical ownership paths
// registered.
func NewScoper(assignments AssignmentSource, lookup OwnershipLookup, logger *slog.Logger) *Scoper {
	s := &Scoper{
		paths:       make(map[Resource]OwnershipPath, len(defaultPaths)),
		assignments: assignments,
		lookup:      lookup,
		logger:      logger,
	}
	for res, path := range defaultPaths {
		s.Register(res, path)
	}
	return s
}

// Register declares the ownership path for a resource type. Registering
// the same type twice replaces the previous path.
func (s *Scoper) Register(res Resource, path OwnershipPath) {
	s.paths[res] = path
}

// ScopeQuery computes the predicate restricting res listings to what
// the principal may see. SuperAdmin is unrestricted; an admin professor
// is pinned to their university; a non-admin professor to their
// assigned courses. An empty assignment set produces an empty listing,
// not an error.
func (s *Scoper) ScopeQuery(ctx context.Context, p *principal.Principal, res Resource) (Condition, error) {
	path, ok := s.paths[res]
	if !ok {
		return Condition{}, fmt.Errorf("authz: unregistered resource type %q", res)
	}
	if p == nil {
		return Condition{}, fmt.Errorf("%w: no principal", ErrForbidden)
	}

	switch p.Role {
	case principal.RoleSuperAdmin:
		return Condition{}, nil
	case principal.RoleAdminProfessor:
		return Condition{
			joins:  path.Joins,
			clause: path.UniversityExpr + " = {1}",
			args:   []any{p.UniversityID},
		}, nil
	case principal.RoleProfessor:
		if path.CourseExpr == "" {
			return Condition{}, fmt.Errorf("%w: %s has no course in its ownership path", ErrScopeDenied, res)
		}
		courses, err := s.assignedCourses(ctx, p)
		if err != nil {
			return Condition{}, err
		}
		return Condition{
			joins:  path.Joins,
			clause: path.CourseExpr + " = ANY({1})",
			args:   []any{courses},
		}, nil
	default:
		return Condition{}, fmt.Errorf("%w: role %s has no administrative scope", ErrForbidden, p.Role)
	}
}

// AuthorizeResource checks an explicitly referenced resource row against
// the principal's scope. Both a missing row and an out-of-scope row
// surface as not found to the caller, masking existence uniformly.
func (s *Scoper) AuthorizeResource(ctx context.Context, p *principal.Principal, res Resource, id int64) error {
	path, ok := s.paths[res]
	if !ok {
		return fmt.Errorf("authz: unregistered resource type %q", res)
	}
	if p == nil {
		return fmt.Errorf("%w: no principal", ErrForbidden)
	}

	own, err := s.lookup.ResolveOwnership(ctx, path, id)
	if err != nil {
		return err
	}

	switch p.Role {
	case principal.RoleSuperAdmin:
		return nil
	case principal.RoleAdminProfessor:
		if own.UniversityID != nil && *own.UniversityID == p.UniversityID {
			return nil
		}
		return fmt.Errorf("%w: %s %d outside university %d", ErrScopeDenied, res, id, p.UniversityID)
	case principal.RoleProfessor:
		if own.CourseID == nil {
			return fmt.Errorf("%w: %s has no course in its ownership path", ErrScopeDenied, res)
		}
		courses, err := s.assignedCourses(ctx, p)
		if err != nil {
			return err
		}
		if slices.Contains(courses, *own.CourseID) {
			return nil
		}
		return fmt.Errorf("%w: %s %d outside assigned courses", ErrScopeDenied, res, id)
	default:
		return fmt.Errorf("%w: role %s has no administrative scope", ErrForbidden, p.Role)
	}
}

// assignedCourses loads the professor's course set once per request and
// memoizes it on the principal.
func (s *Scoper) assignedCourses(ctx context.Context, p *principal.Principal) ([]int64, error) {
	if ids, ok := p.Courses(); ok {
		return ids, nil
	}
	ids, err := s.assignments.AssignedCourses(ctx, p.UserID)
	if err != nil {
		return nil, fmt.Errorf("authz: load assignments: %w", err)
	}
	p.SetCourses(ids)
	return ids, nil
}
