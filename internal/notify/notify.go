// Package notify holds the toasts shown to the user. Toasts with a
// duration dismiss themselves; the rest stay until Dismiss is called.
package notify

import (
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/medibook/hms/pkg/domain"
)

// DefaultDuration is used by the kind helpers when the center was built
// with a zero duration.
const DefaultDuration = 3 * time.Second

type entry struct {
	toast domain.Toast
	timer *time.Timer
}

// Center is safe for concurrent use.
type Center struct {
	log      zerolog.Logger
	duration time.Duration
	now      func() time.Time

	mu      sync.Mutex
	entries []*entry
	changes chan struct{}
}

// New returns a Center whose kind helpers keep toasts for d.
func New(d time.Duration, log zerolog.Logger) *Center {
	if d == 0 {
		d = DefaultDuration
	}
	return &Center{
		log:      log.With().Str("component", "notify").Logger(),
		duration: d,
		now:      time.Now,
		changes:  make(chan struct{}, 1),
	}
}

// Notify shows message and returns its id. A toast with d <= 0 is sticky.
func (c *Center) Notify(kind domain.Kind, message string, d time.Duration) uuid.UUID {
	t := domain.Toast{ID: uuid.New(), Kind: kind, Message: message, CreatedAt: c.now()}
	e := &entry{toast: t}

	c.mu.Lock()
	c.entries = append(c.entries, e)
	if d > 0 {
		e.timer = time.AfterFunc(d, func() { c.Dismiss(t.ID) })
	}
	c.mu.Unlock()

	c.log.Debug().Str("kind", string(kind)).Str("id", t.ID.String()).Msg(message)
	c.signal()
	return t.ID
}

func (c *Center) Success(message string) uuid.UUID {
	return c.Notify(domain.KindSuccess, message, c.duration)
}

func (c *Center) Error(message string) uuid.UUID {
	return c.Notify(domain.KindError, message, c.duration)
}

func (c *Center) Warning(message string) uuid.UUID {
	return c.Notify(domain.KindWarning, message, c.duration)
}

func (c *Center) Info(message string) uuid.UUID {
	return c.Notify(domain.KindInfo, message, c.duration)
}

// Dismiss removes the toast and stops its timer. Unknown ids are ignored.
func (c *Center) Dismiss(id uuid.UUID) bool {
	c.mu.Lock()
	found := false
	for i, e := range c.entries {
		if e.toast.ID != id {
			continue
		}
		if e.timer != nil {
			e.timer.Stop()
		}
		c.entries = append(c.entries[:i], c.entries[i+1:]...)
		found = true
		break
	}
	c.mu.Unlock()

	if found {
		c.signal()
	}
	return found
}

// Clear dismisses every toast.
func (c *Center) Clear() {
	c.mu.Lock()
	for _, e := range c.entries {
		if e.timer != nil {
			e.timer.Stop()
		}
	}
	n := len(c.entries)
	c.entries = nil
	c.mu.Unlock()

	if n > 0 {
		c.signal()
	}
}

// List returns the visible toasts, oldest first.
func (c *Center) List() []domain.Toast {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]domain.Toast, len(c.entries))
	for i, e := range c.entries {
		out[i] = e.toast
	}
	return out
}

// Changes receives a value after the toast list changes. Bursts of
// changes coalesce into one pending value.
func (c *Center) Changes() <-chan struct{} {
	return c.changes
}

func (c *Center) signal() {
	select {
	case c.changes <- struct{}{}:
	default:
	}
}
