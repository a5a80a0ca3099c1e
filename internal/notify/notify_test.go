package notify

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/medibook/hms/pkg/domain"
)

func TestNotifyAutoDismiss(t *testing.T) {
	c := New(20*time.Millisecond, zerolog.Nop())
	id := c.Success("Appointment booked")

	toasts := c.List()
	require.Len(t, toasts, 1)
	require.Equal(t, id, toasts[0].ID)
	require.Equal(t, domain.KindSuccess, toasts[0].Kind)

	require.Eventually(t, func() bool { return len(c.List()) == 0 }, time.Second, 5*time.Millisecond)
}

func TestNotifySticky(t *testing.T) {
	c := New(time.Minute, zerolog.Nop())
	id := c.Notify(domain.KindWarning, "Your session has expired", 0)

	time.Sleep(20 * time.Millisecond)
	require.Len(t, c.List(), 1)

	require.True(t, c.Dismiss(id))
	require.Empty(t, c.List())
	require.False(t, c.Dismiss(id))
}

func TestDismissStopsTimer(t *testing.T) {
	c := New(time.Minute, zerolog.Nop())
	first := c.Notify(domain.KindInfo, "first", 30*time.Millisecond)
	second := c.Info("second")

	require.True(t, c.Dismiss(first))
	time.Sleep(50 * time.Millisecond)

	toasts := c.List()
	require.Len(t, toasts, 1)
	require.Equal(t, second, toasts[0].ID)
}

func TestIDsAreUnique(t *testing.T) {
	c := New(time.Minute, zerolog.Nop())
	seen := make(map[uuid.UUID]bool)
	for range 50 {
		id := c.Error("Login failed")
		require.False(t, seen[id])
		seen[id] = true
	}
	c.Clear()
	require.Empty(t, c.List())
}

func TestChangesCoalesce(t *testing.T) {
	c := New(time.Minute, zerolog.Nop())
	c.Info("a")
	c.Info("b")
	c.Warning("c")

	select {
	case <-c.Changes():
	default:
		t.Fatal("no change signalled")
	}
	select {
	case <-c.Changes():
		t.Fatal("changes did not coalesce")
	default:
	}
}

func TestDefaultDuration(t *testing.T) {
	c := New(0, zerolog.Nop())
	require.Equal(t, DefaultDuration, c.duration)
}
