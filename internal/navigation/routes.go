package navigation

import "authsync/internal/authstate"

// Canonical redirect targets of the auth state machine.
const (
	PathLogin      = "/login"
	PathRegister   = "/register"
	PathSelectRole = "/select-role"
	PathDashboard  = "/dashboard"
)

// Route describes the requirements of the route being entered.
type Route struct {
	Path         string
	RequiresAuth bool
	// AllowedRoles restricts the route to the listed roles. Empty means any
	// authenticated, registered user with a role.
	AllowedRoles []authstate.Role
}

// PublicRoute builds a route anyone may enter.
func PublicRoute(path string) Route {
	return Route{Path: path}
}

// ProtectedRoute builds a route requiring authentication, optionally limited
// to specific roles.
func ProtectedRoute(path string, roles ...authstate.Role) Route {
	return Route{Path: path, RequiresAuth: true, AllowedRoles: roles}
}

func (r Route) allows(role authstate.Role) bool {
	if len(r.AllowedRoles) == 0 {
		return true
	}
	for _, allowed := range r.AllowedRoles {
		if allowed == role {
			return true
		}
	}
	return false
}
