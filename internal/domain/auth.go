package domain

// Role enumerates the fixed set of account roles.
type Role string

const (
	RoleUser    Role = "USER"
	RoleSupport Role = "SUPPORT"
	RoleManager Role = "MANAGER"
)

// Roles returns every known role.
func Roles() []Role {
	return []Role{RoleUser, RoleSupport, RoleManager}
}

// Valid reports whether r is one of the known roles.
func (r Role) Valid() bool {
	switch r {
	case RoleUser, RoleSupport, RoleManager:
		return true
	}
	return false
}

// ParseRole converts a role name into a Role.
func ParseRole(name string) (Role, bool) {
	role := Role(name)
	return role, role.Valid()
}

// Identity is the result of a successful credential check.
type Identity struct {
	UserID string
	Name   string
	Email  string
	Role   Role
}

// Actor returns the acting identity used by authorization checks.
func (i Identity) Actor() Actor {
	return Actor{ID: i.UserID, Role: i.Role}
}

// Actor is the authenticated caller of an operation.
type Actor struct {
	ID   string
	Role Role
}
