package authz

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/tutorhub/tutorhub/internal/principal"
)

type memoryAssignments struct {
	byProfessor map[int64][]int64
	calls       int
}

func (m *memoryAssignments) AssignedCourses(ctx context.Context, professorID int64) ([]int64, error) {
	m.calls++
	return m.byProfessor[professorID], nil
}

type memoryOwnership struct {
	rows map[Resource]map[int64]Ownership
}

func (m *memoryOwnership) ResolveOwnership(ctx context.Context, path OwnershipPath, id int64) (Ownership, error) {
	for res, p := range defaultPaths {
		if p.Table != path.Table {
			continue
		}
		own, ok := m.rows[res][id]
		if !ok {
			return Ownership{}, ErrNotFound
		}
		return own, nil
	}
	return Ownership{}, ErrNotFound
}

func ptr(v int64) *int64 { return &v }

func newTestScoper(assignments *memoryAssignments, ownership *memoryOwnership) *Scoper {
	return NewScoper(assignments, ownership, nil)
}

func TestScopeQuerySuperAdminUnrestricted(t *testing.T) {
	s := newTestScoper(&memoryAssignments{}, &memoryOwnership{})
	root := &principal.Principal{UserID: 1, Role: principal.RoleSuperAdmin}

	cond, err := s.ScopeQuery(context.Background(), root, ResourceCourse)
	require.NoError(t, err)
	require.True(t, cond.Empty())
}

func TestScopeQueryAdminProfessorPinnedToUniversity(t *testing.T) {
	s := newTestScoper(&memoryAssignments{}, &memoryOwnership{})
	admin := &principal.Principal{UserID: 2, Role: principal.RoleAdminProfessor, UniversityID: 10}

	cond, err := s.ScopeQuery(context.Background(), admin, ResourceModule)
	require.NoError(t, err)
	require.False(t, cond.Empty())
	require.Equal(t, "courses.university_id = $3", cond.Render(3))
	require.Equal(t, []any{int64(10)}, cond.Args())
	require.Contains(t, cond.Joins(), "JOIN courses")
}

func TestScopeQueryProfessorLimitedToAssignedCourses(t *testing.T) {
	assignments := &memoryAssignments{byProfessor: map[int64][]int64{3: {5, 9}}}
	s := newTestScoper(assignments, &memoryOwnership{})
	prof := &principal.Principal{UserID: 3, Role: principal.RoleProfessor, UniversityID: 10}

	cond, err := s.ScopeQuery(context.Background(), prof, ResourceCourse)
	require.NoError(t, err)
	require.Equal(t, "courses.id = ANY($1)", cond.Render(1))
	require.Equal(t, []any{[]int64{5, 9}}, cond.Args())
}

func TestScopeQueryProfessorWithNoAssignmentsGetsEmptySet(t *testing.T) {
	assignments := &memoryAssignments{byProfessor: map[int64][]int64{}}
	s := newTestScoper(assignments, &memoryOwnership{})
	prof := &principal.Principal{UserID: 3, Role: principal.RoleProfessor, UniversityID: 10}

	// No assignments is an empty listing, not an error.
	cond, err := s.ScopeQuery(context.Background(), prof, ResourceCourse)
	require.NoError(t, err)
	require.False(t, cond.Empty())
	require.Equal(t, []any{[]int64(nil)}, cond.Args())
}

func TestScopeQueryProfessorDeniedOnUniversityLevelResource(t *testing.T) {
	s := newTestScoper(&memoryAssignments{}, &memoryOwnership{})
	prof := &principal.Principal{UserID: 3, Role: principal.RoleProfessor, UniversityID: 10}

	_, err := s.ScopeQuery(context.Background(), prof, ResourceUniversity)
	require.ErrorIs(t, err, ErrScopeDenied)
}

func TestScopeQueryStudentForbidden(t *testing.T) {
	s := newTestScoper(&memoryAssignments{}, &memoryOwnership{})
	student := &principal.Principal{UserID: 4, Role: principal.RoleStudent, UniversityID: 10}

	_, err := s.ScopeQuery(context.Background(), student, ResourceCourse)
	require.ErrorIs(t, err, ErrForbidden)
}

func TestAuthorizeResource(t *testing.T) {
	assignments := &memoryAssignments{byProfessor: map[int64][]int64{3: {5}}}
	ownership := &memoryOwnership{rows: map[Resource]map[int64]Ownership{
		ResourceModule: {
			42: {CourseID: ptr(5), UniversityID: ptr(10)},
			77: {CourseID: ptr(6), UniversityID: ptr(10)},
			88: {CourseID: ptr(90), UniversityID: ptr(20)},
		},
	}}
	s := newTestScoper(assignments, ownership)
	ctx := context.Background()

	prof := &principal.Principal{UserID: 3, Role: principal.RoleProfessor, UniversityID: 10}
	require.NoError(t, s.AuthorizeResource(ctx, prof, ResourceModule, 42))
	require.ErrorIs(t, s.AuthorizeResource(ctx, prof, ResourceModule, 77), ErrScopeDenied)

	admin := &principal.Principal{UserID: 2, Role: principal.RoleAdminProfessor, UniversityID: 10}
	require.NoError(t, s.AuthorizeResource(ctx, admin, ResourceModule, 77))
	require.ErrorIs(t, s.AuthorizeResource(ctx, admin, ResourceModule, 88), ErrScopeDenied)

	root := &principal.Principal{UserID: 1, Role: principal.RoleSuperAdmin}
	require.NoError(t, s.AuthorizeResource(ctx, root, ResourceModule, 88))
}

func TestAuthorizeResourceMissingRow(t *testing.T) {
	s := newTestScoper(&memoryAssignments{}, &memoryOwnership{rows: map[Resource]map[int64]Ownership{}})
	root := &principal.Principal{UserID: 1, Role: principal.RoleSuperAdmin}

	err := s.AuthorizeResource(context.Background(), root, ResourceModule, 404)
	require.ErrorIs(t, err, ErrNotFound)
}

func TestAssignedCoursesMemoizedPerRequest(t *testing.T) {
	assignments := &memoryAssignments{byProfessor: map[int64][]int64{3: {5}}}
	ownership := &memoryOwnership{rows: map[Resource]map[int64]Ownership{
		ResourceModule: {42: {CourseID: ptr(5), UniversityID: ptr(10)}},
	}}
	s := newTestScoper(assignments, ownership)
	ctx := context.Background()
	prof := &principal.Principal{UserID: 3, Role: principal.RoleProfessor, UniversityID: 10}

	require.NoError(t, s.AuthorizeResource(ctx, prof, ResourceModule, 42))
	_, err := s.ScopeQuery(ctx, prof, ResourceCourse)
	require.NoError(t, err)
	require.Equal(t, 1, assignments.calls)
}

func TestConditionRenderNumbersPlaceholders(t *testing.T) {
	cond := Condition{
		clause: "a = {1} AND b = ANY({2})",
		args:   []any{int64(1), []int64{2, 3}},
	}
	require.Equal(t, "a = $4 AND b = ANY($5)", cond.Render(4))
}
