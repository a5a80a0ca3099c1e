package domain

// Role is the access level the backend assigns to a user.
type Role string

const (
	RoleAdmin   Role = "ADMIN"
	RoleDoctor  Role = "DOCTOR"
	RolePatient Role = "PATIENT"
)

// RoleInfo describes how a role is presented.
type RoleInfo struct {
	Role     Role
	Name     string
	HexColor string
}

// The three roles the backend knows about.
var Roles = map[Role]RoleInfo{
	RoleAdmin:   {Role: RoleAdmin, Name: "Admin", HexColor: "#E67E22"},
	RoleDoctor:  {Role: RoleDoctor, Name: "Doctor", HexColor: "#3498DB"},
	RolePatient: {Role: RolePatient, Name: "Patient", HexColor: "#2ECC71"},
}

// ParseRole returns the role for s. Matching is exact, as on the backend.
func ParseRole(s string) (Role, bool) {
	r := Role(s)
	return r, r.Valid()
}

// Valid returns true if r is one of the known roles.
func (r Role) Valid() bool {
	_, ok := Roles[r]
	return ok
}

// Name returns the display name, or the raw value for unknown roles.
func (r Role) Name() string {
	if info, ok := Roles[r]; ok {
		return info.Name
	}
	return string(r)
}
