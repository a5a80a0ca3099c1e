package router

import "github.com/medibook/hms/pkg/domain"

// Decision is the guard's verdict for one navigation.
type Decision struct {
	// Redirect names the route to go to instead; empty means proceed.
	Redirect string
}

// Allowed reports whether navigation may proceed unchanged.
func (d Decision) Allowed() bool {
	return d.Redirect == ""
}

// HomeFor returns the dashboard route of role.
func HomeFor(role domain.Role) (string, bool) {
	switch role {
	case domain.RoleAdmin:
		return RouteAdminDashboard, true
	case domain.RoleDoctor:
		return RouteDoctorDashboard, true
	case domain.RolePatient:
		return RoutePatientDashboard, true
	default:
		return "", false
	}
}

// Guard decides whether the session may enter to. The first matching rule wins:
//  1. protected route, not signed in: login
//  2. protected route reserved for another role: the user's dashboard, or login for an unknown role
//  3. signed in and heading to login or register: the user's dashboard, or root for an unknown role
//  4. otherwise proceed
func Guard(to Route, s domain.Session) Decision {
	req := to.Requirement
	switch {
	case req.RequiresAuth && !s.IsAuthenticated():
		return Decision{Redirect: RouteLogin}
	case req.RequiresAuth && req.Role != "" && s.Role() != req.Role:
		if home, ok := HomeFor(s.Role()); ok {
			return Decision{Redirect: home}
		}
		return Decision{Redirect: RouteLogin}
	case s.IsAuthenticated() && (to.Name == RouteLogin || to.Name == RouteRegister):
		if home, ok := HomeFor(s.Role()); ok {
			return Decision{Redirect: home}
		}
		return Decision{Redirect: RouteRoot}
	}
	return Decision{}
}
