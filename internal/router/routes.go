package router

import (
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/gorilla/mux"

	"github.com/medibook/hms/pkg/domain"
)

// Route names used as redirect targets.
const (
	RouteRoot             = "root"
	RouteLogin            = "login"
	RouteRegister         = "register"
	RouteAdminDashboard   = "admin-dashboard"
	RouteDoctorDashboard  = "doctor-dashboard"
	RoutePatientDashboard = "patient-dashboard"
)

// Requirement is the access policy attached to a route.
type Requirement struct {
	RequiresAuth bool
	// Role is empty when any signed-in user may enter.
	Role domain.Role
}

// Route is one entry of the route table. Path uses {name} placeholders.
type Route struct {
	Name        string
	Path        string
	Title       string
	Requirement Requirement
	// Redirect, when set, sends every visit straight to another path.
	Redirect string
	// Resource is the API path whose data the page shows, with the same
	// placeholders as Path.
	Resource string
}

// HasParams reports whether the path needs parameters to be built.
func (r Route) HasParams() bool {
	return strings.Contains(r.Path, "{")
}

// ResourcePath fills the route's resource placeholders from params.
// It returns "" for routes without a resource.
func (r Route) ResourcePath(params map[string]string) string {
	p := r.Resource
	for k, v := range params {
		p = strings.ReplaceAll(p, "{"+k+"}", url.PathEscape(v))
	}
	return p
}

func authed(role domain.Role) Requirement {
	return Requirement{RequiresAuth: true, Role: role}
}

// DefaultRoutes is the application's route table.
var DefaultRoutes = []Route{
	{Name: RouteRoot, Path: "/", Redirect: "/login"},
	{Name: RouteLogin, Path: "/login", Title: "Login"},
	{Name: RouteRegister, Path: "/register", Title: "Register"},

	{Name: RouteAdminDashboard, Path: "/admin", Title: "Dashboard", Resource: "/admin/stats", Requirement: authed(domain.RoleAdmin)},
	{Name: "admin-doctors", Path: "/admin/doctors", Title: "Doctors", Resource: "/doctors", Requirement: authed(domain.RoleAdmin)},
	{Name: "admin-patients", Path: "/admin/patients", Title: "Patients", Resource: "/patients", Requirement: authed(domain.RoleAdmin)},
	{Name: "admin-departments", Path: "/admin/departments", Title: "Departments", Resource: "/departments", Requirement: authed(domain.RoleAdmin)},
	{Name: "admin-appointments", Path: "/admin/appointments", Title: "Appointments", Resource: "/appointments", Requirement: authed(domain.RoleAdmin)},
	{Name: "admin-report", Path: "/admin/report", Title: "Report", Resource: "/admin/stats", Requirement: authed(domain.RoleAdmin)},

	{Name: RouteDoctorDashboard, Path: "/doctor", Title: "Dashboard", Resource: "/appointments", Requirement: authed(domain.RoleDoctor)},
	{Name: "doctor-schedule", Path: "/doctor/schedule", Title: "Schedule", Resource: "/doctor/availability", Requirement: authed(domain.RoleDoctor)},
	{Name: "doctor-appointments", Path: "/doctor/appointments", Title: "Appointments", Resource: "/appointments", Requirement: authed(domain.RoleDoctor)},
	{Name: "doctor-treatments", Path: "/doctor/treatments", Title: "Treatment history", Resource: "/appointments", Requirement: authed(domain.RoleDoctor)},
	{Name: "doctor-treatment-detail", Path: "/doctor/treatments/{id}", Title: "Treatment", Resource: "/treatments/{id}", Requirement: authed(domain.RoleDoctor)},
	{Name: "doctor-profile", Path: "/doctor/profile", Title: "Profile", Resource: "/auth/me", Requirement: authed(domain.RoleDoctor)},
	// Patients and doctors both view doctor profiles.
	{Name: "doctor-profile-view", Path: "/doctor/profile/{id}", Title: "Doctor profile", Resource: "/doctors/{id}", Requirement: authed("")},

	{Name: RoutePatientDashboard, Path: "/patient", Title: "Dashboard", Resource: "/appointments", Requirement: authed(domain.RolePatient)},
	{Name: "patient-appointments", Path: "/patient/appointments", Title: "Appointments", Resource: "/appointments", Requirement: authed(domain.RolePatient)},
	{Name: "patient-treatments", Path: "/patient/treatments", Title: "Treatments", Resource: "/appointments", Requirement: authed(domain.RolePatient)},
	{Name: "patient-profile", Path: "/patient/profile", Title: "Profile", Resource: "/auth/me", Requirement: authed(domain.RolePatient)},
	{Name: "patient-profile-view", Path: "/patient/profile/{id}", Title: "Patient profile", Resource: "/patients/{id}", Requirement: authed(domain.RoleDoctor)},
	{Name: "patient-book-appointment", Path: "/patient/book", Title: "Book appointment", Resource: "/departments", Requirement: authed(domain.RolePatient)},
}

// Table resolves paths to routes and builds paths from route names.
type Table struct {
	routes []Route
	byName map[string]Route
	mux    *mux.Router
}

// NewTable indexes routes. Names must be unique.
func NewTable(routes []Route) (*Table, error) {
	t := &Table{
		routes: routes,
		byName: make(map[string]Route, len(routes)),
		mux:    mux.NewRouter(),
	}
	for _, r := range routes {
		if _, dup := t.byName[r.Name]; dup {
			return nil, fmt.Errorf("router: duplicate route name %q", r.Name)
		}
		t.byName[r.Name] = r
		if err := t.mux.Path(r.Path).Name(r.Name).GetError(); err != nil {
			return nil, fmt.Errorf("router: route %q: %w", r.Name, err)
		}
	}
	return t, nil
}

// MustTable is NewTable for static tables.
func MustTable(routes []Route) *Table {
	t, err := NewTable(routes)
	if err != nil {
		panic(err)
	}
	return t
}

// Routes returns the table in declaration order.
func (t *Table) Routes() []Route {
	return append([]Route(nil), t.routes...)
}

// Lookup returns the route with the given name.
func (t *Table) Lookup(name string) (Route, bool) {
	r, ok := t.byName[name]
	return r, ok
}

// Match resolves path to a route and its parameters.
func (t *Table) Match(path string) (Route, map[string]string, bool) {
	if path != "/" {
		path = strings.TrimRight(path, "/")
	}
	req := &http.Request{Method: http.MethodGet, URL: &url.URL{Path: path}}
	var m mux.RouteMatch
	if !t.mux.Match(req, &m) || m.MatchErr != nil || m.Route == nil {
		return Route{}, nil, false
	}
	r, ok := t.byName[m.Route.GetName()]
	return r, m.Vars, ok
}

// URL builds the path of a named route.
func (t *Table) URL(name string, params map[string]string) (string, error) {
	mr := t.mux.Get(name)
	if mr == nil {
		return "", fmt.Errorf("router: unknown route %q: %w", name, ErrNotFound)
	}
	pairs := make([]string, 0, 2*len(params))
	for k, v := range params {
		pairs = append(pairs, k, v)
	}
	u, err := mr.URLPath(pairs...)
	if err != nil {
		return "", fmt.Errorf("router: build %q: %w", name, err)
	}
	return u.Path, nil
}

// Menu returns the parameterless routes reserved for role, dashboard first.
func (t *Table) Menu(role domain.Role) []Route {
	var out []Route
	for _, r := range t.routes {
		if r.Requirement.Role == role && r.Requirement.RequiresAuth && !r.HasParams() {
			out = append(out, r)
		}
	}
	return out
}
