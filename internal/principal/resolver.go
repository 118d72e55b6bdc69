package principal

import (
	"fmt"
	"strconv"
	"strings"
)

// Claims is the credential claim set produced by the external
// credential-issuance layer. The resolver is the only place that
// interprets these raw values.
type Claims struct {
	Subject      string
	Role         string
	UniversityID int64
	IsAdmin      bool
}

// Resolve turns credential claims into a typed Principal. It is a pure
// function: no lookups, no ambient state.
func Resolve(c Claims) (*Principal, error) {
	subject := strings.TrimSpace(c.Subject)
	if subject == "" {
		return nil, fmt.Errorf("%w: missing subject", ErrUnauthenticated)
	}
	userID, err := strconv.ParseInt(subject, 10, 64)
	if err != nil || userID <= 0 {
		return nil, fmt.Errorf("%w: invalid subject %q", ErrUnauthenticated, c.Subject)
	}

	var role Role
	switch strings.ToLower(strings.TrimSpace(c.Role)) {
	case "superadmin":
		role = RoleSuperAdmin
	case "professor":
		role = RoleProfessor
		if c.IsAdmin {
			role = RoleAdminProfessor
		}
	case "student":
		role = RoleStudent
	case "api_client":
		role = RoleAPIClient
	case "":
		return nil, fmt.Errorf("%w: missing role", ErrUnauthenticated)
	default:
		return nil, fmt.Errorf("%w: unrecognized role %q", ErrUnauthenticated, c.Role)
	}

	if role != RoleSuperAdmin && c.UniversityID <= 0 {
		return nil, fmt.Errorf("%w: missing university for role %s", ErrUnauthenticated, role)
	}

	return &Principal{
		UserID:       userID,
		Role:         role,
		UniversityID: c.UniversityID,
	}, nil
}
