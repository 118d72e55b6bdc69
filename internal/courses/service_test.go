package courses

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/tutorhub/tutorhub/internal/authz"
	"github.com/tutorhub/tutorhub/internal/principal"
	"github.com/tutorhub/tutorhub/internal/shared"
)

type memoryStore struct {
	nextID      int64
	courses     map[int64]Course
	assignments map[int64][]int64 // courseID -> professorIDs
	students    map[int64][]Student
	lastCond    authz.Condition
}

func newMemoryStore() *memoryStore {
	return &memoryStore{
		nextID:      100,
		courses:     make(map[int64]Course),
		assignments: make(map[int64][]int64),
		students:    make(map[int64][]Student),
	}
}

func (s *memoryStore) List(ctx context.Context, cond authz.Condition, page shared.Pagination) ([]Course, int, error) {
	s.lastCond = cond
	var out []Course
	for _, c := range s.courses {
		out = append(out, c)
	}
	return out, len(out), nil
}

func (s *memoryStore) Get(ctx context.Context, id int64) (*Course, error) {
	c, ok := s.courses[id]
	if !ok {
		return nil, shared.ErrNotFound
	}
	return &c, nil
}

func (s *memoryStore) Create(ctx context.Context, c Course) (*Course, error) {
	s.nextID++
	c.ID = s.nextID
	c.CreatedAt = time.Now().UTC()
	c.UpdatedAt = c.CreatedAt
	s.courses[c.ID] = c
	return &c, nil
}

func (s *memoryStore) Update(ctx context.Context, id int64, name, code, description string) (*Course, error) {
	c, ok := s.courses[id]
	if !ok {
		return nil, shared.ErrNotFound
	}
	c.Name = name
	c.Code = code
	c.Description = description
	c.UpdatedAt = time.Now().UTC()
	s.courses[id] = c
	return &c, nil
}

func (s *memoryStore) AssignProfessor(ctx context.Context, courseID, professorID int64) error {
	s.assignments[courseID] = append(s.assignments[courseID], professorID)
	return nil
}

func (s *memoryStore) UnassignProfessor(ctx context.Context, courseID, professorID int64) error {
	ids := s.assignments[courseID]
	for i, id := range ids {
		if id == professorID {
			s.assignments[courseID] = append(ids[:i], ids[i+1:]...)
			break
		}
	}
	return nil
}

func (s *memoryStore) ListProfessors(ctx context.Context, courseID int64) ([]ProfessorAssignment, error) {
	var out []ProfessorAssignment
	for _, id := range s.assignments[courseID] {
		out = append(out, ProfessorAssignment{ProfessorID: id, CourseID: courseID})
	}
	return out, nil
}

func (s *memoryStore) ListStudents(ctx context.Context, courseID int64) ([]Student, error) {
	return s.students[courseID], nil
}

var _ Store = (*memoryStore)(nil)

type recordingInvalidator struct {
	professorIDs []int64
}

func (r *recordingInvalidator) Invalidate(ctx context.Context, professorID int64) error {
	r.professorIDs = append(r.professorIDs, professorID)
	return nil
}

type stubAssignments struct {
	byProfessor map[int64][]int64
}

func (s *stubAssignments) AssignedCourses(ctx context.Context, professorID int64) ([]int64, error) {
	return s.byProfessor[professorID], nil
}

type stubOwnership struct {
	courses      map[int64]authz.Ownership
	universities map[int64]authz.Ownership
}

func (s *stubOwnership) ResolveOwnership(ctx context.Context, path authz.OwnershipPath, id int64) (authz.Ownership, error) {
	var rows map[int64]authz.Ownership
	switch path.Table {
	case "courses":
		rows = s.courses
	case "universities":
		rows = s.universities
	}
	own, ok := rows[id]
	if !ok {
		return authz.Ownership{}, authz.ErrNotFound
	}
	return own, nil
}

func ptr(v int64) *int64 { return &v }

// newTestService sets up an admin professor over university 10 with
// course 5 in it, and professor 3 assigned to course 5.
func newTestService(t *testing.T) (*Service, *memoryStore, *recordingInvalidator) {
	t.Helper()
	store := newMemoryStore()
	store.courses[5] = Course{ID: 5, UniversityID: 10, Name: "Linear Algebra", Code: "MATH-201"}

	scoper := authz.NewScoper(
		&stubAssignments{byProfessor: map[int64][]int64{3: {5}}},
		&stubOwnership{
			courses: map[int64]authz.Ownership{
				5: {CourseID: ptr(5), UniversityID: ptr(10)},
				6: {CourseID: ptr(6), UniversityID: ptr(20)},
			},
			universities: map[int64]authz.Ownership{
				10: {UniversityID: ptr(10)},
				20: {UniversityID: ptr(20)},
			},
		},
		nil,
	)
	inv := &recordingInvalidator{}
	return NewService(store, scoper, inv, nil, nil), store, inv
}

func admin() *principal.Principal {
	return &principal.Principal{UserID: 2, Role: principal.RoleAdminProfessor, UniversityID: 10}
}

func TestCreateRequiresAdminWithinUniversity(t *testing.T) {
	svc, store, _ := newTestService(t)
	ctx := context.Background()

	created, err := svc.Create(ctx, admin(), CreateInput{
		UniversityID: 10, Name: "  Databases ", Code: "CS-350",
	})
	require.NoError(t, err)
	require.Equal(t, "Databases", created.Name)
	require.Len(t, store.courses, 2)

	// Plain professors cannot create courses.
	prof := &principal.Principal{UserID: 3, Role: principal.RoleProfessor, UniversityID: 10}
	_, err = svc.Create(ctx, prof, CreateInput{UniversityID: 10, Name: "X"})
	require.ErrorIs(t, err, authz.ErrForbidden)

	// Admins cannot create in another university.
	_, err = svc.Create(ctx, admin(), CreateInput{UniversityID: 20, Name: "X"})
	require.ErrorIs(t, err, authz.ErrScopeDenied)

	_, err = svc.Create(ctx, admin(), CreateInput{UniversityID: 10, Name: "  "})
	require.ErrorIs(t, err, shared.ErrInvalidInput)
}

func TestListScopesByRole(t *testing.T) {
	svc, store, _ := newTestService(t)
	ctx := context.Background()

	_, _, err := svc.List(ctx, admin(), shared.Pagination{Page: 1, PerPage: 20})
	require.NoError(t, err)
	require.Equal(t, "courses.university_id = $1", store.lastCond.Render(1))

	root := &principal.Principal{UserID: 1, Role: principal.RoleSuperAdmin}
	_, _, err = svc.List(ctx, root, shared.Pagination{Page: 1, PerPage: 20})
	require.NoError(t, err)
	require.Empty(t, store.lastCond.Render(1))

	student := &principal.Principal{UserID: 9, Role: principal.RoleStudent, UniversityID: 10}
	_, _, err = svc.List(ctx, student, shared.Pagination{Page: 1, PerPage: 20})
	require.ErrorIs(t, err, authz.ErrForbidden)
}

func TestAssignProfessorInvalidatesCache(t *testing.T) {
	svc, store, inv := newTestService(t)
	ctx := context.Background()

	require.NoError(t, svc.AssignProfessor(ctx, admin(), 5, 7))
	require.Equal(t, []int64{7}, store.assignments[5])
	require.Equal(t, []int64{7}, inv.professorIDs)

	require.NoError(t, svc.UnassignProfessor(ctx, admin(), 5, 7))
	require.Empty(t, store.assignments[5])
	require.Equal(t, []int64{7, 7}, inv.professorIDs)
}

func TestAssignProfessorOutOfScope(t *testing.T) {
	svc, _, inv := newTestService(t)
	ctx := context.Background()

	// Course 6 belongs to university 20.
	err := svc.AssignProfessor(ctx, admin(), 6, 7)
	require.ErrorIs(t, err, authz.ErrScopeDenied)
	require.Empty(t, inv.professorIDs)

	err = svc.AssignProfessor(ctx, admin(), 404, 7)
	require.ErrorIs(t, err, authz.ErrNotFound)
}

func TestGetWithinAssignedCourses(t *testing.T) {
	svc, _, _ := newTestService(t)
	ctx := context.Background()

	prof := &principal.Principal{UserID: 3, Role: principal.RoleProfessor, UniversityID: 10}
	got, err := svc.Get(ctx, prof, 5)
	require.NoError(t, err)
	require.Equal(t, "MATH-201", got.Code)

	_, err = svc.Get(ctx, prof, 6)
	require.ErrorIs(t, err, authz.ErrScopeDenied)
}

func TestListProfessorsAndStudents(t *testing.T) {
	svc, store, _ := newTestService(t)
	ctx := context.Background()

	store.assignments[5] = []int64{3}
	store.students[5] = []Student{{UserID: 9, Email: "student@riverside.edu", Name: "Sam"}}

	prof := &principal.Principal{UserID: 3, Role: principal.RoleProfessor, UniversityID: 10}
	profs, err := svc.ListProfessors(ctx, prof, 5)
	require.NoError(t, err)
	require.Len(t, profs, 1)

	students, err := svc.ListStudents(ctx, prof, 5)
	require.NoError(t, err)
	require.Len(t, students, 1)
	require.Equal(t, "Sam", students[0].Name)
}
