package domain

import (
	"time"

	"github.com/google/uuid"
)

// Kind classifies a toast.
type Kind string

const (
	KindSuccess Kind = "success"
	KindError   Kind = "error"
	KindWarning Kind = "warning"
	KindInfo    Kind = "info"
)

// Toast is a short-lived message shown to the user.
type Toast struct {
	ID        uuid.UUID
	Kind      Kind
	Message   string
	CreatedAt time.Time
}
