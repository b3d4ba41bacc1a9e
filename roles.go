package auth

// Role is the principal's global role
type Role string

const (
	// RoleUser is the default role for registered accounts
	RoleUser Role = "user"
	// RoleModerator can act on content owned by others
	RoleModerator Role = "moderator"
	// RoleAdmin bypasses ownership checks
	RoleAdmin Role = "admin"
)

// IsValid checks if the role is one of the predefined valid roles
func (r Role) IsValid() bool {
	switch r {
	case RoleUser, RoleModerator, RoleAdmin:
		return true
	default:
		return false
	}
}

// In reports whether r is one of roles
func (r Role) In(roles ...Role) bool {
	for _, role := range roles {
		if r == role {
			return true
		}
	}
	return false
}

// GetAllRoles returns all predefined roles
func GetAllRoles() []Role {
	return []Role{
		RoleUser,
		RoleModerator,
		RoleAdmin,
	}
}

// ParseRole safely parses a string into a Role
func ParseRole(roleStr string) (Role, bool) {
	role := Role(roleStr)
	return role, role.IsValid()
}
