package entity

// Permission is the access level a protected route demands.
type Permission int

const (
	// PermissionLogged allows any caller holding a valid access token.
	PermissionLogged Permission = iota + 1
	// PermissionLoggedUser allows the owner of the target resource, or an admin.
	PermissionLoggedUser
	// PermissionAdmin allows admins only.
	PermissionAdmin
)

// String returns the name used in logs.
func (p Permission) String() string {
	switch p {
	case PermissionLogged:
		return "LOGGED"
	case PermissionLoggedUser:
		return "LOGGED_USER"
	case PermissionAdmin:
		return "ADMIN"
	default:
		return "UNKNOWN"
	}
}
