// Package router resolves navigation targets against the route table and
// runs every transition through Guard.
package router

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/rs/zerolog"

	"github.com/medibook/hms/pkg/domain"
)

var (
	// ErrNotFound is returned for paths and names missing from the table.
	ErrNotFound = errors.New("route not found")
	// ErrRedirectLoop is returned when redirects never settle on a route.
	ErrRedirectLoop = errors.New("redirect loop")
)

const maxRedirects = 8

// SessionView is the read side of the session the router needs.
type SessionView interface {
	Snapshot() domain.Session
	WaitReady(ctx context.Context) error
}

// Location is a committed navigation.
type Location struct {
	Route  Route
	Path   string
	Params map[string]string
	// Redirected is set when the requested path was not the one entered.
	Redirected bool

	ctx context.Context
}

// Context is cancelled as soon as the router leaves this location. Page
// requests should use it so they are dropped on navigation.
func (l Location) Context() context.Context {
	if l.ctx == nil {
		return context.Background()
	}
	return l.ctx
}

// Router is the navigator. It is safe for concurrent use.
type Router struct {
	table   *Table
	session SessionView
	log     zerolog.Logger

	mu        sync.Mutex
	current   *Location
	cancel    context.CancelFunc
	history   []string
	listeners []func(Location)
}

// New returns a Router with no current location.
func New(table *Table, session SessionView, log zerolog.Logger) *Router {
	return &Router{
		table:   table,
		session: session,
		log:     log.With().Str("component", "router").Logger(),
	}
}

// Table returns the route table.
func (r *Router) Table() *Table {
	return r.table
}

// OnChange registers fn to run after every committed navigation.
func (r *Router) OnChange(fn func(Location)) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.listeners = append(r.listeners, fn)
}

// Current returns the current location, if any.
func (r *Router) Current() (Location, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.current == nil {
		return Location{}, false
	}
	return *r.current, true
}

// Push navigates to path, following static redirects and guard
// redirects until a route admits the session. It waits for the session
// to be restored before evaluating the guard.
func (r *Router) Push(ctx context.Context, path string) (Location, error) {
	if err := r.session.WaitReady(ctx); err != nil {
		return Location{}, fmt.Errorf("router.Push: %w", err)
	}

	target := path
	seen := make(map[string]bool, 2)
	for hops := 0; hops <= maxRedirects; hops++ {
		if seen[target] {
			break
		}
		seen[target] = true

		route, params, ok := r.table.Match(target)
		if !ok {
			return Location{}, fmt.Errorf("router.Push %q: %w", target, ErrNotFound)
		}
		if route.Redirect != "" {
			target = route.Redirect
			continue
		}

		d := Guard(route, r.session.Snapshot())
		if !d.Allowed() {
			next, err := r.table.URL(d.Redirect, nil)
			if err != nil {
				return Location{}, fmt.Errorf("router.Push: %w", err)
			}
			r.log.Debug().Str("from", target).Str("to", next).Msg("guard redirect")
			target = next
			continue
		}

		return r.commit(route, target, params, target != path), nil
	}
	r.log.Warn().Str("path", path).Msg("redirect loop")
	return Location{}, fmt.Errorf("router.Push %q: %w", path, ErrRedirectLoop)
}

// PushNamed navigates to a named route.
func (r *Router) PushNamed(ctx context.Context, name string, params map[string]string) (Location, error) {
	path, err := r.table.URL(name, params)
	if err != nil {
		return Location{}, err
	}
	return r.Push(ctx, path)
}

// Back returns to the previous location, re-running the guard. With no
// history it goes to the root.
func (r *Router) Back(ctx context.Context) (Location, error) {
	r.mu.Lock()
	target := "/"
	if n := len(r.history); n >= 2 {
		target = r.history[n-2]
		r.history = r.history[:n-2]
	}
	r.mu.Unlock()
	return r.Push(ctx, target)
}

// Expire sends the user to the login page after the session has ended.
func (r *Router) Expire(ctx context.Context) {
	if _, err := r.Push(ctx, "/login"); err != nil {
		r.log.Error().Err(err).Msg("navigate to login after expiry")
	}
}

func (r *Router) commit(route Route, path string, params map[string]string, redirected bool) Location {
	ctx, cancel := context.WithCancel(context.Background())
	loc := Location{Route: route, Path: path, Params: params, Redirected: redirected, ctx: ctx}

	r.mu.Lock()
	if r.cancel != nil {
		r.cancel()
	}
	r.cancel = cancel
	r.current = &loc
	r.history = append(r.history, path)
	listeners := append(([]func(Location))(nil), r.listeners...)
	r.mu.Unlock()

	r.log.Debug().Str("route", route.Name).Str("path", path).Msg("navigated")
	for _, fn := range listeners {
		fn(loc)
	}
	return loc
}
