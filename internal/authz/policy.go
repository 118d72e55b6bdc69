// Package authz implements the role-hierarchy policy gate and the
// tenant scope filter applied uniformly by every handler.
package authz

import (
	"errors"
	"fmt"

	"github.com/tutorhub/tutorhub/internal/principal"
)

var (
	// ErrForbidden indicates the principal's role is below the required policy threshold.
	ErrForbidden = errors.New("authz: forbidden")
	// ErrScopeDenied indicates a referenced resource lies outside the principal's tenant scope.
	ErrScopeDenied = errors.New("authz: out of scope")
	// ErrNotFound indicates the referenced resource does not exist.
	ErrNotFound = errors.New("authz: resource not found")
)

// Policy is a minimum-role threshold on the total role order
// SuperAdmin > AdminProfessor > Professor > Student.
type Policy int

const (
	// ProfessorOrAbove admits any professor and super admins.
	ProfessorOrAbove Policy = iota + 1
	// AdminOrAbove admits admin professors and super admins.
	AdminOrAbove
	// SuperAdminOnly admits super admins exclusively.
	SuperAdminOnly
)

// String returns a readable policy name.
func (p Policy) String() string {
	switch p {
	case SuperAdminOnly:
		return "super_admin_only"
	case AdminOrAbove:
		return "admin_or_above"
	case ProfessorOrAbove:
		return "professor_or_above"
	default:
		return "unknown"
	}
}

func rank(r principal.Role) int {
	switch r {
	case principal.RoleSuperAdmin:
		return 4
	case principal.RoleAdminProfessor:
		return 3
	case principal.RoleProfessor:
		return 2
	case principal.RoleStudent:
		return 1
	default:
		return 0
	}
}

func threshold(p Policy) int {
	switch p {
	case SuperAdminOnly:
		return 4
	case AdminOrAbove:
		return 3
	case ProfessorOrAbove:
		return 2
	default:
		// Unknown policies admit nobody.
		return rank(principal.RoleSuperAdmin) + 1
	}
}

// CanPerform reports whether the principal is at or above the policy threshold.
func CanPerform(p *principal.Principal, min Policy) bool {
	if p == nil {
		return false
	}
	return rank(p.Role) >= threshold(min)
}

// Authorize rejects principals below the policy threshold. It runs
// before any data access; a failure aborts the request with no partial
// scoping applied.
func Authorize(p *principal.Principal, min Policy) error {
	if CanPerform(p, min) {
		return nil
	}
	if p == nil {
		return fmt.Errorf("%w: no principal", ErrForbidden)
	}
	return fmt.Errorf("%w: role %s does not satisfy %s", ErrForbidden, p.Role, min)
}
