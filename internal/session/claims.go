package session

import (
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// tokenClaims reads exp and role from an access token without verifying
// it. The backend verifies; the client only uses these for display.
func tokenClaims(raw string) (expiry time.Time, role string) {
	claims := jwt.MapClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(raw, claims); err != nil {
		return time.Time{}, ""
	}
	if exp, err := claims.GetExpirationTime(); err == nil && exp != nil {
		expiry = exp.Time
	}
	role, _ = claims["role"].(string)
	return expiry, role
}
