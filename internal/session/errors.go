package session

import (
	"errors"

	"github.com/medibook/hms/pkg/client"
)

var (
	// ErrNotAuthenticated is returned when no access token is held.
	ErrNotAuthenticated = errors.New("not authenticated")
	// ErrNoRefreshToken is returned by Refresh when there is nothing to exchange.
	ErrNoRefreshToken = errors.New("no refresh token")
	// ErrRefreshFailed wraps any failure of the renewal call.
	ErrRefreshFailed = errors.New("refresh failed")
)

// FailureKind tells login failures from registration failures.
type FailureKind int

const (
	KindAuthentication FailureKind = iota + 1
	KindValidation
)

// AuthError is a rejected login or registration. Message is safe to show.
type AuthError struct {
	Kind    FailureKind
	Message string
	Err     error
}

func (e *AuthError) Error() string {
	return e.Message
}

func (e *AuthError) Unwrap() error {
	return e.Err
}

// authError converts a backend rejection into an AuthError. Transport
// failures are returned unchanged.
func authError(kind FailureKind, fallback string, err error) error {
	if client.IsNetwork(err) {
		return err
	}
	msg := fallback
	var httpErr *client.HTTPError
	if errors.As(err, &httpErr) && httpErr.Message != "" {
		msg = httpErr.Message
	}
	return &AuthError{Kind: kind, Message: msg, Err: err}
}

// Message renders err as text for the user.
func Message(err error) string {
	var authErr *AuthError
	var httpErr *client.HTTPError
	switch {
	case err == nil:
		return ""
	case errors.As(err, &authErr):
		return authErr.Message
	case errors.Is(err, ErrRefreshFailed), errors.Is(err, ErrNoRefreshToken), errors.Is(err, client.ErrUnauthorized):
		return "Your session has expired. Please log in again."
	case client.IsNetwork(err):
		return "Cannot reach the server. Check your connection."
	case errors.As(err, &httpErr) && httpErr.Message != "":
		return httpErr.Message
	default:
		return err.Error()
	}
}
