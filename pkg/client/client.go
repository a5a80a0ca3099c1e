package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/oauth2"

	"github.com/medibook/hms/pkg/domain"
)

const defaultTimeout = 30 * time.Second

// LoginResponse is the body of a successful auth/login.
type LoginResponse struct {
	AccessToken  string      `json:"access_token"`
	RefreshToken string      `json:"refresh_token"`
	User         domain.User `json:"user"`
}

// RefreshResponse is the body of a successful auth/refresh.
type RefreshResponse struct {
	AccessToken string `json:"access_token"`
}

// RegisterRequest is the patient self-registration payload.
type RegisterRequest struct {
	Name        string `json:"name"`
	Email       string `json:"email"`
	Password    string `json:"password"`
	ContactNo   string `json:"contact_no,omitempty"`
	Gender      string `json:"gender,omitempty"`
	DateOfBirth string `json:"date_of_birth,omitempty"` // YYYY-MM-DD
	Address     string `json:"address,omitempty"`
	City        string `json:"city,omitempty"`
	State       string `json:"state,omitempty"`
	ZipCode     string `json:"zip_code,omitempty"`
}

// Client is the hospital-management API client.
//
// Calls to the auth endpoints go out without the token pipeline; every
// other call runs through the middleware installed with Use.
type Client struct {
	baseURL    string
	httpClient *http.Client
	timeout    time.Duration
	log        zerolog.Logger

	mu         sync.RWMutex
	middleware []Middleware
	pipeline   Doer
	direct     Doer
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient replaces the underlying http.Client. The client is used
// as given; WithTimeout does not change it.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		c.httpClient = hc
	}
}

// WithTimeout sets the per-attempt timeout of the default http.Client.
// Non-positive values keep the default.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		if d > 0 {
			c.timeout = d
		}
	}
}

// WithLogger sets the logger used by the request log stage.
func WithLogger(log zerolog.Logger) Option {
	return func(c *Client) {
		c.log = log
	}
}

// WithMiddleware installs middleware at construction time.
func WithMiddleware(mws ...Middleware) Option {
	return func(c *Client) {
		c.middleware = append(c.middleware, mws...)
	}
}

// New creates a new API client.
func New(baseURL string, opts ...Option) *Client {
	c := &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		timeout: defaultTimeout,
		log:     zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.httpClient == nil {
		c.httpClient = &http.Client{Timeout: c.timeout}
	}
	c.rebuild()
	return c
}

// Use appends middleware to the token pipeline. Call it before issuing requests.
func (c *Client) Use(mws ...Middleware) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.middleware = append(c.middleware, mws...)
	c.rebuildLocked()
}

func (c *Client) rebuild() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.rebuildLocked()
}

func (c *Client) rebuildLocked() {
	transport := DoerFunc(func(req *http.Request) (*http.Response, error) {
		resp, err := c.httpClient.Do(req)
		if err != nil {
			return nil, &NetworkError{Op: req.Method + " " + req.URL.Path, Err: err}
		}
		return resp, nil
	})
	logged := Logging(c.log.With().Str("component", "client").Logger())(transport)
	c.direct = logged
	c.pipeline = Chain(logged, c.middleware...)
}

func (c *Client) doers() (pipeline, direct Doer) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.pipeline, c.direct
}

// Login exchanges credentials for a token pair.
func (c *Client) Login(ctx context.Context, email, password string) (*LoginResponse, error) {
	_, direct := c.doers()
	body := map[string]string{"email": email, "password": password}
	var out LoginResponse
	if err := c.doRequest(ctx, direct, http.MethodPost, "/auth/login", body, &out); err != nil {
		return nil, fmt.Errorf("client.Login: %w", err)
	}
	if out.AccessToken == "" {
		return nil, fmt.Errorf("client.Login: %w: missing access_token", ErrMalformedResponse)
	}
	return &out, nil
}

// Register creates a patient account. The response body is ignored.
func (c *Client) Register(ctx context.Context, r RegisterRequest) error {
	_, direct := c.doers()
	if err := c.doRequest(ctx, direct, http.MethodPost, "/auth/register", r, nil); err != nil {
		return fmt.Errorf("client.Register: %w", err)
	}
	return nil
}

// Refresh presents the refresh token as the bearer credential and returns
// the new access token. It never passes through the token pipeline.
func (c *Client) Refresh(ctx context.Context, refreshToken string) (*RefreshResponse, error) {
	_, direct := c.doers()
	bearer := &oauth2.Token{AccessToken: refreshToken, TokenType: "Bearer"}
	var out RefreshResponse
	if err := c.doRequest(ctx, direct, http.MethodPost, "/auth/refresh", nil, &out, bearer.SetAuthHeader); err != nil {
		return nil, fmt.Errorf("client.Refresh: %w", err)
	}
	if out.AccessToken == "" {
		return nil, fmt.Errorf("client.Refresh: %w: missing access_token", ErrMalformedResponse)
	}
	return &out, nil
}

// Me returns the authenticated user's profile.
func (c *Client) Me(ctx context.Context) (*domain.User, error) {
	var u domain.User
	if err := c.Get(ctx, "/auth/me", &u); err != nil {
		return nil, fmt.Errorf("client.Me: %w", err)
	}
	return &u, nil
}

// Do sends a JSON request through the token pipeline. body and out may be nil.
func (c *Client) Do(ctx context.Context, method, path string, body, out any) error {
	pipeline, _ := c.doers()
	return c.doRequest(ctx, pipeline, method, path, body, out)
}

// Get sends a GET through the token pipeline.
func (c *Client) Get(ctx context.Context, path string, out any) error {
	return c.Do(ctx, http.MethodGet, path, nil, out)
}

// Post sends a POST through the token pipeline.
func (c *Client) Post(ctx context.Context, path string, body, out any) error {
	return c.Do(ctx, http.MethodPost, path, body, out)
}

// Put sends a PUT through the token pipeline.
func (c *Client) Put(ctx context.Context, path string, body, out any) error {
	return c.Do(ctx, http.MethodPut, path, body, out)
}

// Delete sends a DELETE through the token pipeline.
func (c *Client) Delete(ctx context.Context, path string) error {
	return c.Do(ctx, http.MethodDelete, path, nil, nil)
}

func (c *Client) doRequest(ctx context.Context, d Doer, method, path string, body any, out any, prepare ...func(*http.Request)) error {
	var reqBody io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("marshal body: %w", err)
		}
		reqBody = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+ensureLeadingSlash(path), reqBody)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Accept", "application/json")
	for _, fn := range prepare {
		fn(req)
	}

	resp, err := d.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close() //nolint:errcheck // best-effort close

	if resp.StatusCode >= 400 {
		respBody, readErr := io.ReadAll(io.LimitReader(resp.Body, 1<<20)) // 1 MB max error body
		if readErr != nil {
			return &HTTPError{StatusCode: resp.StatusCode, Message: fmt.Sprintf("failed to read body: %v", readErr)}
		}
		return &HTTPError{StatusCode: resp.StatusCode, Message: errorMessage(respBody)}
	}

	if out == nil {
		return nil
	}
	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return &NetworkError{Op: "read response", Err: err}
	}
	if len(bytes.TrimSpace(data)) == 0 {
		return nil
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

// errorMessage pulls the human-readable text out of an error body. The
// backend answers with {"msg": ...}; {"error": ...} is accepted too.
func errorMessage(body []byte) string {
	var apiErr struct {
		Msg   string `json:"msg"`
		Error string `json:"error"`
	}
	if json.Unmarshal(body, &apiErr) == nil {
		if apiErr.Msg != "" {
			return apiErr.Msg
		}
		if apiErr.Error != "" {
			return apiErr.Error
		}
	}
	return strings.TrimSpace(string(body))
}

func ensureLeadingSlash(path string) string {
	if strings.HasPrefix(path, "/") {
		return path
	}
	return "/" + path
}
