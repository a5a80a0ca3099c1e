package client

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/oauth2"
)

// Doer sends a single HTTP request.
type Doer interface {
	Do(req *http.Request) (*http.Response, error)
}

// DoerFunc adapts a function to Doer.
type DoerFunc func(req *http.Request) (*http.Response, error)

func (f DoerFunc) Do(req *http.Request) (*http.Response, error) {
	return f(req)
}

// Middleware wraps a Doer with a pre-send and/or post-receive stage.
type Middleware func(next Doer) Doer

// Chain composes mws around base. The first middleware is the outermost.
func Chain(base Doer, mws ...Middleware) Doer {
	for i := len(mws) - 1; i >= 0; i-- {
		base = mws[i](base)
	}
	return base
}

// Gate blocks until the session has been restored from storage.
type Gate interface {
	WaitReady(ctx context.Context) error
}

// AwaitReady holds every request until g reports ready.
func AwaitReady(g Gate) Middleware {
	return func(next Doer) Doer {
		return DoerFunc(func(req *http.Request) (*http.Response, error) {
			if err := g.WaitReady(req.Context()); err != nil {
				return nil, fmt.Errorf("await session: %w", err)
			}
			return next.Do(req)
		})
	}
}

// BearerAuth attaches the current access token. Requests go out without
// an Authorization header when src has no token.
func BearerAuth(src oauth2.TokenSource) Middleware {
	return func(next Doer) Doer {
		return DoerFunc(func(req *http.Request) (*http.Response, error) {
			tok, err := src.Token()
			if err != nil || tok == nil || tok.AccessToken == "" {
				return next.Do(req)
			}
			if sent, ok := req.Context().Value(sentTokenKey{}).(*sentToken); ok {
				sent.value = tok.AccessToken
			}
			authed := req.Clone(req.Context())
			tok.SetAuthHeader(authed)
			return next.Do(authed)
		})
	}
}

// sentToken is filled in by BearerAuth with the token it attached.
type sentToken struct{ value string }

type sentTokenKey struct{}

// Authority is the session side of the 401 handling.
type Authority interface {
	// Refresh obtains a new access token. stale is the token the failed
	// request carried, so callers racing on the same expiry share one refresh.
	Refresh(ctx context.Context, stale string) error
	// Logout clears the session. It must be idempotent.
	Logout(ctx context.Context) error
}

type retriedKey struct{}

func markRetried(ctx context.Context) context.Context {
	return context.WithValue(ctx, retriedKey{}, true)
}

// Retried reports whether ctx belongs to a request replayed after a refresh.
func Retried(ctx context.Context) bool {
	v, _ := ctx.Value(retriedKey{}).(bool)
	return v
}

// RetryUnauthorized refreshes the session on a 401 and replays the
// original request once. When the refresh fails the session is logged out,
// and the original 401 response is returned. onExpired runs once per
// expired token however many requests failed with it. A 401 for a request
// sent without a token is returned as is.
// Requests that were already replayed pass through untouched.
//
// BearerAuth must sit after RetryUnauthorized in the chain.
func RetryUnauthorized(auth Authority, onExpired func(ctx context.Context)) Middleware {
	var reported expiryLatch
	return func(next Doer) Doer {
		return DoerFunc(func(req *http.Request) (*http.Response, error) {
			if Retried(req.Context()) {
				return next.Do(req)
			}
			pending, err := capture(req)
			if err != nil {
				return nil, err
			}

			sent := &sentToken{}
			resp, err := next.Do(pending.build(context.WithValue(req.Context(), sentTokenKey{}, sent)))
			if err != nil || resp.StatusCode != http.StatusUnauthorized || sent.value == "" {
				return resp, err
			}

			ctx := markRetried(req.Context())
			if refreshErr := auth.Refresh(ctx, sent.value); refreshErr != nil {
				_ = auth.Logout(ctx) //nolint:errcheck // the session logs its own storage failures
				if onExpired != nil && reported.first(sent.value) {
					onExpired(context.WithoutCancel(ctx))
				}
				return resp, nil
			}

			drain(resp)
			return next.Do(pending.build(ctx))
		})
	}
}

// expiryLatch remembers the last token whose expiry was reported.
type expiryLatch struct {
	mu    sync.Mutex
	token string
}

// first reports whether tok has not been reported yet and marks it.
func (l *expiryLatch) first(tok string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.token == tok {
		return false
	}
	l.token = tok
	return true
}

// pendingRequest is a request captured so it can be sent again with a
// fresh Authorization header.
type pendingRequest struct {
	orig *http.Request
	body []byte
}

func capture(req *http.Request) (*pendingRequest, error) {
	p := &pendingRequest{orig: req}
	if req.Body != nil && req.Body != http.NoBody {
		data, err := io.ReadAll(req.Body)
		req.Body.Close() //nolint:errcheck // fully read
		if err != nil {
			return nil, fmt.Errorf("capture request body: %w", err)
		}
		p.body = data
	}
	return p, nil
}

func (p *pendingRequest) build(ctx context.Context) *http.Request {
	req := p.orig.Clone(ctx)
	req.Header.Del("Authorization")
	if p.body == nil {
		req.Body = http.NoBody
		req.GetBody = nil
		return req
	}
	body := p.body
	req.Body = io.NopCloser(bytes.NewReader(body))
	req.GetBody = func() (io.ReadCloser, error) {
		return io.NopCloser(bytes.NewReader(body)), nil
	}
	req.ContentLength = int64(len(body))
	return req
}

func drain(resp *http.Response) {
	io.Copy(io.Discard, io.LimitReader(resp.Body, 1<<20)) //nolint:errcheck // best-effort drain for connection reuse
	resp.Body.Close()                                     //nolint:errcheck // best-effort close
}

// Logging records one debug line per attempt.
func Logging(log zerolog.Logger) Middleware {
	return func(next Doer) Doer {
		return DoerFunc(func(req *http.Request) (*http.Response, error) {
			start := time.Now()
			resp, err := next.Do(req)
			ev := log.Debug().
				Str("method", req.Method).
				Str("path", req.URL.Path).
				Bool("retry", Retried(req.Context())).
				Dur("elapsed", time.Since(start))
			if err != nil {
				ev.Err(err).Msg("request failed")
				return resp, err
			}
			ev.Int("status", resp.StatusCode).Msg("request")
			return resp, nil
		})
	}
}
