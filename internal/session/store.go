// Package session owns the client's authentication state: the access and
// refresh tokens, the signed-in user, and their persisted copies.
//
// A Store is created once per process, restored from Storage, and then
// mutated only by Login, Refresh and Logout. Readers get copies.
package session

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/rs/zerolog"
	"golang.org/x/oauth2"
	"golang.org/x/sync/singleflight"

	"github.com/medibook/hms/pkg/client"
	"github.com/medibook/hms/pkg/domain"
)

// Authenticator is the backend contract the store depends on.
type Authenticator interface {
	Login(ctx context.Context, email, password string) (*client.LoginResponse, error)
	Register(ctx context.Context, r client.RegisterRequest) error
	Refresh(ctx context.Context, refreshToken string) (*client.RefreshResponse, error)
}

// Store holds the process-wide session.
type Store struct {
	auth    Authenticator
	storage Storage
	log     zerolog.Logger

	// writeMu serializes mutations (persist + swap); mu guards the
	// in-memory copy so readers never wait on storage.
	writeMu sync.Mutex
	mu      sync.RWMutex
	session domain.Session
	gen     uint64

	flight    singleflight.Group
	ready     chan struct{}
	readyOnce sync.Once
}

// New returns an empty, not yet restored Store.
func New(auth Authenticator, storage Storage, log zerolog.Logger) *Store {
	return &Store{
		auth:    auth,
		storage: storage,
		log:     log.With().Str("component", "session").Logger(),
		ready:   make(chan struct{}),
	}
}

// Restore loads the session from storage. The presence of the access
// token decides whether the user is signed in; a token without a readable
// user is treated as corrupt and cleared. The store is marked ready even
// when restoring fails.
func (s *Store) Restore(ctx context.Context) error {
	defer s.markReady()

	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	token, hasToken, err := s.storage.Get(ctx, KeyToken)
	if err != nil {
		return fmt.Errorf("session.Restore: %w", err)
	}
	refresh, _, err := s.storage.Get(ctx, KeyRefreshToken)
	if err != nil {
		return fmt.Errorf("session.Restore: %w", err)
	}
	rawUser, hasUser, err := s.storage.Get(ctx, KeyUser)
	if err != nil {
		return fmt.Errorf("session.Restore: %w", err)
	}

	var user *domain.User
	if hasUser {
		var u domain.User
		if jsonErr := json.Unmarshal([]byte(rawUser), &u); jsonErr == nil {
			user = &u
		} else {
			s.log.Warn().Err(jsonErr).Msg("stored user is unreadable")
		}
	}

	if hasToken && token != "" && user == nil {
		s.log.Warn().Msg("stored token has no user, clearing session")
		return s.clearLocked(ctx)
	}

	next := domain.Session{RefreshToken: refresh, User: user}
	if hasToken {
		next.AccessToken = token
		next.Expiry, _ = tokenClaims(token)
	}
	s.swap(next)
	s.log.Debug().Bool("authenticated", next.IsAuthenticated()).Msg("session restored")
	return nil
}

func (s *Store) markReady() {
	s.readyOnce.Do(func() { close(s.ready) })
}

// WaitReady blocks until Restore has finished or ctx is done.
func (s *Store) WaitReady(ctx context.Context) error {
	select {
	case <-s.ready:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Login authenticates against the backend and persists the new session.
// A rejected login returns an *AuthError and leaves the session unchanged.
func (s *Store) Login(ctx context.Context, email, password string) error {
	resp, err := s.auth.Login(ctx, email, password)
	if err != nil {
		return fmt.Errorf("session.Login: %w", authError(KindAuthentication, "Login failed", err))
	}

	user := resp.User
	if !user.Role.Valid() {
		s.log.Warn().Str("role", string(user.Role)).Msg("login returned an unknown role")
	}
	expiry, claimRole := tokenClaims(resp.AccessToken)
	if claimRole != "" && claimRole != string(user.Role) {
		s.log.Warn().Str("claim_role", claimRole).Str("user_role", string(user.Role)).Msg("token role differs from user role")
	}
	next := domain.Session{
		AccessToken:  resp.AccessToken,
		RefreshToken: resp.RefreshToken,
		User:         &user,
		Expiry:       expiry,
	}

	userJSON, err := json.Marshal(user)
	if err != nil {
		return fmt.Errorf("session.Login: encode user: %w", err)
	}

	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	prev, err := s.stored(ctx)
	if err != nil {
		return fmt.Errorf("session.Login: read stored session: %w", err)
	}
	err = s.storage.Set(ctx, map[string]string{
		KeyToken:        next.AccessToken,
		KeyRefreshToken: next.RefreshToken,
		KeyUser:         string(userJSON),
	})
	if err != nil {
		s.rollback(ctx, prev)
		return fmt.Errorf("session.Login: persist: %w", err)
	}
	s.swap(next)
	s.log.Info().Int64("user_id", user.ID).Str("role", string(user.Role)).Msg("logged in")
	return nil
}

// stored returns the persisted session keys that are present.
func (s *Store) stored(ctx context.Context) (map[string]string, error) {
	prev := make(map[string]string, len(allKeys))
	for _, k := range allKeys {
		v, ok, err := s.storage.Get(ctx, k)
		if err != nil {
			return nil, err
		}
		if ok {
			prev[k] = v
		}
	}
	return prev, nil
}

// rollback puts back the keys read by stored after a partial write and
// removes the ones that were absent, so storage keeps matching memory.
func (s *Store) rollback(ctx context.Context, prev map[string]string) {
	if len(prev) > 0 {
		if err := s.storage.Set(ctx, prev); err != nil {
			s.log.Error().Err(err).Msg("restore persisted session")
		}
	}
	var absent []string
	for _, k := range allKeys {
		if _, ok := prev[k]; !ok {
			absent = append(absent, k)
		}
	}
	if len(absent) == 0 {
		return
	}
	if err := s.storage.Delete(ctx, absent...); err != nil {
		s.log.Error().Err(err).Msg("remove partial session")
	}
}

// Register creates a patient account. It does not sign the user in.
func (s *Store) Register(ctx context.Context, r client.RegisterRequest) error {
	if err := s.auth.Register(ctx, r); err != nil {
		return fmt.Errorf("session.Register: %w", authError(KindValidation, "Registration failed", err))
	}
	return nil
}

// Refresh exchanges the refresh token for a new access token. Only the
// access token and its persisted copy change.
//
// stale is the access token the caller's failed request carried. If the
// session already holds a different token, another caller refreshed in
// the meantime and Refresh returns immediately. Pass "" to refresh
// unconditionally. Concurrent callers share a single renewal call.
//
// Any failure clears the session.
func (s *Store) Refresh(ctx context.Context, stale string) error {
	if s.superseded(stale) {
		return nil
	}
	_, err, shared := s.flight.Do("refresh", func() (any, error) {
		// A previous flight may have finished between the check above and here.
		if s.superseded(stale) {
			return nil, nil
		}
		return nil, s.refresh(context.WithoutCancel(ctx))
	})
	if shared {
		s.log.Debug().Msg("joined in-flight refresh")
	}
	return err
}

// superseded reports whether the session already holds a token other than stale.
func (s *Store) superseded(stale string) bool {
	cur := s.AccessToken()
	return stale != "" && cur != "" && cur != stale
}

func (s *Store) refresh(ctx context.Context) error {
	s.mu.RLock()
	rt, gen := s.session.RefreshToken, s.gen
	s.mu.RUnlock()

	if rt == "" {
		s.writeMu.Lock()
		defer s.writeMu.Unlock()
		if s.generation() == gen {
			s.clearLocked(ctx) //nolint:errcheck // logged inside
		}
		s.log.Info().Msg("refresh skipped: no refresh token")
		return ErrNoRefreshToken
	}

	resp, err := s.auth.Refresh(ctx, rt)

	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	if s.generation() != gen {
		// A login or logout landed while the call was in flight.
		if s.IsAuthenticated() {
			return nil
		}
		return ErrNotAuthenticated
	}
	if err != nil {
		s.log.Warn().Err(err).Msg("refresh failed, logging out")
		s.clearLocked(ctx) //nolint:errcheck // logged inside
		return fmt.Errorf("%w: %w", ErrRefreshFailed, err)
	}

	// The new token is used even if it cannot be stored. A later restart
	// loads the expired token, whose first 401 refreshes again.
	if err := s.storage.Set(ctx, map[string]string{KeyToken: resp.AccessToken}); err != nil {
		s.log.Error().Err(err).Msg("persist refreshed token, keeping it in memory only")
	}
	expiry, _ := tokenClaims(resp.AccessToken)
	s.mu.Lock()
	s.session.AccessToken = resp.AccessToken
	s.session.Expiry = expiry
	s.mu.Unlock()
	s.log.Info().Msg("access token refreshed")
	return nil
}

// Logout clears the session and its persisted copies. It makes no network
// call and is safe to call repeatedly.
func (s *Store) Logout(ctx context.Context) error {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()
	return s.clearLocked(ctx)
}

func (s *Store) clearLocked(ctx context.Context) error {
	wasAuthenticated := s.IsAuthenticated()
	s.swap(domain.Session{})
	if err := s.storage.Delete(ctx, allKeys...); err != nil {
		s.log.Error().Err(err).Msg("remove persisted session")
		return fmt.Errorf("session.Logout: %w", err)
	}
	if wasAuthenticated {
		s.log.Info().Msg("logged out")
	}
	return nil
}

func (s *Store) swap(next domain.Session) {
	s.mu.Lock()
	s.session = next
	s.gen++
	s.mu.Unlock()
}

func (s *Store) generation() uint64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.gen
}

// Snapshot returns a copy of the current session.
func (s *Store) Snapshot() domain.Session {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.session.Clone()
}

// AccessToken returns the current access token, or "".
func (s *Store) AccessToken() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.session.AccessToken
}

// IsAuthenticated reports whether a user is signed in.
func (s *Store) IsAuthenticated() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.session.IsAuthenticated()
}

// User returns a copy of the signed-in user, or nil.
func (s *Store) User() *domain.User {
	return s.Snapshot().User
}

// Token implements oauth2.TokenSource over the current session.
func (s *Store) Token() (*oauth2.Token, error) {
	snap := s.Snapshot()
	if snap.AccessToken == "" {
		return nil, ErrNotAuthenticated
	}
	return &oauth2.Token{
		AccessToken:  snap.AccessToken,
		RefreshToken: snap.RefreshToken,
		TokenType:    "Bearer",
		Expiry:       snap.Expiry,
	}, nil
}

var (
	_ oauth2.TokenSource = (*Store)(nil)
	_ client.Authority   = (*Store)(nil)
	_ client.Gate        = (*Store)(nil)
	_ Authenticator      = (*client.Client)(nil)
)
