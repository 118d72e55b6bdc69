package principal

import "errors"

// ErrUnauthenticated indicates missing or unrecognized credential claims.
var ErrUnauthenticated = errors.New("principal: unauthenticated")

// Role is the access level of an authenticated actor. Professor admin
// status is folded into the role exactly once at resolve time and never
// re-derived downstream.
type Role int

const (
	RoleUnknown Role = iota
	RoleAPIClient
	RoleStudent
	RoleProfessor
	RoleAdminProfessor
	RoleSuperAdmin
)

// String returns the wire name of the role.
func (r Role) String() string {
	switch r {
	case RoleSuperAdmin:
		return "superadmin"
	case RoleAdminProfessor:
		return "admin_professor"
	case RoleProfessor:
		return "professor"
	case RoleStudent:
		return "student"
	case RoleAPIClient:
		return "api_client"
	default:
		return "unknown"
	}
}

// Principal describes the resolved identity, role and tenant context for
// the current request. It is built once at the HTTP boundary and passed
// explicitly through every authorization and scoping call.
type Principal struct {
	UserID       int64
	Role         Role
	UniversityID int64 // zero for a SuperAdmin without a tenant

	courses       []int64
	coursesLoaded bool
}

// Courses returns the memoized assigned-course set and whether it has
// been loaded for this request.
func (p *Principal) Courses() ([]int64, bool) {
	return p.courses, p.coursesLoaded
}

// SetCourses memoizes the assigned-course set on the principal.
func (p *Principal) SetCourses(ids []int64) {
	p.courses = ids
	p.coursesLoaded = true
}

// Tenanted reports whether the principal is bound to a university.
func (p *Principal) Tenanted() bool {
	return p.UniversityID != 0
}
