package domain

import "time"

// Session is a point-in-time copy of the client's authentication state.
type Session struct {
	AccessToken  string
	RefreshToken string
	User         *User
	// Expiry is read from the access token's exp claim; zero when unknown.
	Expiry time.Time
}

// IsAuthenticated reports whether an access token is held. A session
// without a user is never authenticated.
func (s Session) IsAuthenticated() bool {
	return s.AccessToken != "" && s.User != nil
}

// Role returns the user's role, or "" when there is no user.
func (s Session) Role() Role {
	if s.User == nil {
		return ""
	}
	return s.User.Role
}

// Clone returns a copy that shares no pointers with s.
func (s Session) Clone() Session {
	if s.User != nil {
		u := *s.User
		s.User = &u
	}
	return s
}

// HasRole reports whether the session is authenticated as r.
func (s Session) HasRole(r Role) bool {
	return s.IsAuthenticated() && s.User.Role == r
}
