package domain

// User is the identity returned by auth/login and auth/me.
type User struct {
	ID     int64  `json:"user_id"`
	Name   string `json:"name"`
	Email  string `json:"email"`
	Role   Role   `json:"role"`
	Status string `json:"status,omitempty"` // "ACTIVE", "DISABLED"
}
