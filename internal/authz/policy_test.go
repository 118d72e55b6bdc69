package authz

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/tutorhub/tutorhub/internal/principal"
)

func TestCanPerform(t *testing.T) {
	cases := []struct {
		role   principal.Role
		policy Policy
		want   bool
	}{
		{principal.RoleSuperAdmin, SuperAdminOnly, true},
		{principal.RoleSuperAdmin, AdminOrAbove, true},
		{principal.RoleSuperAdmin, ProfessorOrAbove, true},
		{principal.RoleAdminProfessor, SuperAdminOnly, false},
		{principal.RoleAdminProfessor, AdminOrAbove, true},
		{principal.RoleAdminProfessor, ProfessorOrAbove, true},
		{principal.RoleProfessor, AdminOrAbove, false},
		{principal.RoleProfessor, ProfessorOrAbove, true},
		{principal.RoleStudent, ProfessorOrAbove, false},
		{principal.RoleAPIClient, ProfessorOrAbove, false},
	}
	for _, tc := range cases {
		t.Run(tc.role.String()+"/"+tc.policy.String(), func(t *testing.T) {
			p := &principal.Principal{UserID: 1, Role: tc.role, UniversityID: 10}
			require.Equal(t, tc.want, CanPerform(p, tc.policy))
		})
	}
}

func TestAuthorize(t *testing.T) {
	prof := &principal.Principal{UserID: 1, Role: principal.RoleProfessor, UniversityID: 10}
	require.NoError(t, Authorize(prof, ProfessorOrAbove))
	require.ErrorIs(t, Authorize(prof, AdminOrAbove), ErrForbidden)
	require.ErrorIs(t, Authorize(nil, ProfessorOrAbove), ErrForbidden)
}

func TestUnknownPolicyAdmitsNobody(t *testing.T) {
	root := &principal.Principal{UserID: 1, Role: principal.RoleSuperAdmin}
	require.False(t, CanPerform(root, Policy(99)))
}
