package tui

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"sync"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/rs/zerolog"

	"github.com/medibook/hms/internal/notify"
	"github.com/medibook/hms/internal/router"
	"github.com/medibook/hms/internal/session"
	"github.com/medibook/hms/pkg/client"
	"github.com/medibook/hms/pkg/domain"
)

type fakeAuth struct {
	role        domain.Role
	loginErr    error
	registerErr error

	mu         sync.Mutex
	registered []client.RegisterRequest
}

func (f *fakeAuth) Login(_ context.Context, email, _ string) (*client.LoginResponse, error) {
	if f.loginErr != nil {
		return nil, f.loginErr
	}
	return &client.LoginResponse{
		AccessToken:  "acc-" + email,
		RefreshToken: "ref-" + email,
		User:         domain.User{ID: 1, Name: "Ana Rao", Email: email, Role: f.role},
	}, nil
}

func (f *fakeAuth) Register(_ context.Context, r client.RegisterRequest) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.registered = append(f.registered, r)
	return f.registerErr
}

func (f *fakeAuth) Refresh(context.Context, string) (*client.RefreshResponse, error) {
	return nil, errors.New("refresh not expected")
}

type fakeAPI struct {
	mu    sync.Mutex
	paths []string
	data  any
	err   error
}

func (f *fakeAPI) Get(_ context.Context, path string, out any) error {
	f.mu.Lock()
	f.paths = append(f.paths, path)
	data, err := f.data, f.err
	f.mu.Unlock()
	if err != nil {
		return err
	}
	raw, err := json.Marshal(data)
	if err != nil {
		return err
	}
	return json.Unmarshal(raw, out)
}

type harness struct {
	app    App
	auth   *fakeAuth
	store  *session.Store
	router *router.Router
	notify *notify.Center
	api    *fakeAPI
	copied []string
	opened []string
}

func newHarness(t *testing.T, auth *fakeAuth) *harness {
	t.Helper()
	store := session.New(auth, session.NewMemoryStorage(), zerolog.Nop())
	if err := store.Restore(context.Background()); err != nil {
		t.Fatalf("Restore() error: %v", err)
	}
	h := &harness{
		auth:   auth,
		store:  store,
		router: router.New(router.MustTable(router.DefaultRoutes), store, zerolog.Nop()),
		notify: notify.New(time.Minute, zerolog.Nop()),
		api:    &fakeAPI{data: []any{map[string]any{"appointment_id": 7, "status": "Booked"}}},
	}
	h.app = NewApp(Options{
		Session:   store,
		Router:    h.router,
		Notify:    h.notify,
		API:       h.api,
		PortalURL: "http://portal.test",
		Log:       zerolog.Nop(),
		Clipboard: func(s string) error {
			h.copied = append(h.copied, s)
			return nil
		},
		OpenPage: func(base, path string) error {
			h.opened = append(h.opened, base+path)
			return nil
		},
	})
	h.app.width = 100
	h.app.height = 40
	return h
}

func (h *harness) update(msg tea.Msg) tea.Cmd {
	m, cmd := h.app.Update(msg)
	h.app = m.(App)
	return cmd
}

// run executes cmd and feeds the resulting messages back until the chain ends.
func (h *harness) run(cmd tea.Cmd) {
	for cmd != nil {
		msg := cmd()
		if msg == nil {
			return
		}
		cmd = h.update(msg)
	}
}

// settle applies the pending navigation and returns the page load command.
func (h *harness) settle(t *testing.T) tea.Cmd {
	t.Helper()
	select {
	case loc := <-h.app.locs:
		return h.app.enter(loc)
	case <-time.After(time.Second):
		t.Fatal("no navigation happened")
		return nil
	}
}

func (h *harness) typeText(s string) {
	for _, r := range s {
		h.update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{r}})
	}
}

func (h *harness) press(k tea.KeyType) tea.Cmd {
	return h.update(tea.KeyMsg{Type: k})
}

func (h *harness) key(s string) tea.Cmd {
	return h.update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)})
}

func (h *harness) toasts() []string {
	var out []string
	for _, t := range h.notify.List() {
		out = append(out, t.Message)
	}
	return out
}

func (h *harness) start(t *testing.T) {
	t.Helper()
	h.run(h.app.navigate("/"))
	h.run(h.settle(t))
}

func (h *harness) loginAs(t *testing.T) {
	t.Helper()
	if err := h.store.Login(context.Background(), "ana@clinic.test", "pw"); err != nil {
		t.Fatalf("Login() error: %v", err)
	}
	h.run(h.app.navigate("/login"))
	h.run(h.settle(t))
}

func contains(list []string, want string) bool {
	for _, s := range list {
		if s == want {
			return true
		}
	}
	return false
}

func TestAppStartsOnLogin(t *testing.T) {
	h := newHarness(t, &fakeAuth{role: domain.RoleDoctor})
	h.start(t)
	if h.app.screen != screenLogin {
		t.Fatalf("screen = %d, want login", h.app.screen)
	}
	if h.app.loc.Path != "/login" {
		t.Errorf("path = %q, want /login", h.app.loc.Path)
	}
}

func TestAppLoginFlow(t *testing.T) {
	h := newHarness(t, &fakeAuth{role: domain.RoleDoctor})
	h.start(t)

	h.typeText("ana@clinic.test")
	h.press(tea.KeyTab)
	h.typeText("pw")
	cmd := h.press(tea.KeyEnter)
	if cmd == nil {
		t.Fatal("expected login command on enter, got nil")
	}
	h.run(cmd)
	h.run(h.settle(t))

	if h.app.screen != screenDashboard {
		t.Fatalf("screen = %d, want dashboard", h.app.screen)
	}
	if h.app.loc.Path != "/doctor" {
		t.Errorf("path = %q, want /doctor", h.app.loc.Path)
	}
	if want := len(h.router.Table().Menu(domain.RoleDoctor)); len(h.app.menu.items) != want {
		t.Errorf("menu has %d items, want %d", len(h.app.menu.items), want)
	}
	if !contains(h.toasts(), "Login successful") {
		t.Errorf("toasts = %q, want login success", h.toasts())
	}
	if len(h.api.paths) != 1 || h.api.paths[0] != "/appointments" {
		t.Errorf("API paths = %q, want [/appointments]", h.api.paths)
	}
	if h.app.page.loading || h.app.page.data == nil {
		t.Errorf("page = %+v, want loaded data", h.app.page)
	}

	view := h.app.View()
	for _, want := range []string{"Ana Rao", "[Doctor]", "Schedule", "Booked"} {
		if !strings.Contains(view, want) {
			t.Errorf("View() missing %q", want)
		}
	}
}

func TestAppLoginFailureKeepsForm(t *testing.T) {
	auth := &fakeAuth{loginErr: &client.HTTPError{StatusCode: http.StatusUnauthorized, Message: "Invalid credentials"}}
	h := newHarness(t, auth)
	h.start(t)

	h.typeText("ana@clinic.test")
	h.press(tea.KeyTab)
	h.typeText("wrong")
	h.run(h.press(tea.KeyEnter))

	if h.app.screen != screenLogin {
		t.Fatalf("screen = %d, want login", h.app.screen)
	}
	if h.app.login.submitting {
		t.Error("form still submitting after failure")
	}
	if got := h.app.login.raw("password"); got != "" {
		t.Errorf("password = %q after failure, want cleared", got)
	}
	if got := h.app.login.value("email"); got != "ana@clinic.test" {
		t.Errorf("email = %q after failure, want kept", got)
	}
	if !contains(h.toasts(), "Invalid credentials") {
		t.Errorf("toasts = %q, want backend message", h.toasts())
	}
	if !strings.Contains(h.app.View(), "danger") {
		t.Error("View() does not render the error toast as danger")
	}
	if h.store.IsAuthenticated() {
		t.Error("session authenticated after failed login")
	}
}

func TestAppLoginValidation(t *testing.T) {
	h := newHarness(t, &fakeAuth{role: domain.RolePatient})
	h.start(t)

	if cmd := h.press(tea.KeyEnter); cmd != nil {
		t.Fatal("enter on the email field should move focus, not submit")
	}
	if h.app.login.focus != 1 {
		t.Errorf("focus = %d, want 1", h.app.login.focus)
	}
	if cmd := h.press(tea.KeyEnter); cmd != nil {
		t.Fatal("submitted an empty form")
	}
	if h.app.login.statusMsg != "email is required" {
		t.Errorf("statusMsg = %q, want %q", h.app.login.statusMsg, "email is required")
	}
	if h.app.login.focus != 0 {
		t.Errorf("focus = %d, want the missing field", h.app.login.focus)
	}
}

func TestAppRegisterFlow(t *testing.T) {
	auth := &fakeAuth{role: domain.RolePatient}
	h := newHarness(t, auth)
	h.start(t)

	h.run(h.press(tea.KeyCtrlR))
	h.run(h.settle(t))
	if h.app.screen != screenRegister {
		t.Fatalf("screen = %d, want register", h.app.screen)
	}

	h.typeText("Pat Lee")
	h.press(tea.KeyTab)
	h.typeText("pat@clinic.test")
	h.press(tea.KeyTab)
	h.typeText("secret")
	h.press(tea.KeyTab)
	h.typeText("555-0100")
	h.run(h.press(tea.KeyCtrlS))
	h.run(h.settle(t))

	if h.app.screen != screenLogin {
		t.Fatalf("screen = %d, want login after registering", h.app.screen)
	}
	if len(auth.registered) != 1 {
		t.Fatalf("register calls = %d, want 1", len(auth.registered))
	}
	got := auth.registered[0]
	if got.Name != "Pat Lee" || got.Email != "pat@clinic.test" || got.Password != "secret" || got.ContactNo != "555-0100" {
		t.Errorf("register request = %+v", got)
	}
	if !contains(h.toasts(), "Registration successful! Please login.") {
		t.Errorf("toasts = %q, want registration success", h.toasts())
	}
	if h.store.IsAuthenticated() {
		t.Error("registering signed the user in")
	}
}

func TestAppRegisterEscReturnsToLogin(t *testing.T) {
	h := newHarness(t, &fakeAuth{role: domain.RolePatient})
	h.start(t)
	h.run(h.press(tea.KeyCtrlR))
	h.run(h.settle(t))

	h.run(h.press(tea.KeyEsc))
	h.run(h.settle(t))
	if h.app.screen != screenLogin {
		t.Errorf("screen = %d, want login", h.app.screen)
	}
}

func TestAppDashboardMenuAndBack(t *testing.T) {
	h := newHarness(t, &fakeAuth{role: domain.RolePatient})
	h.start(t)
	h.loginAs(t)
	if h.app.loc.Path != "/patient" {
		t.Fatalf("path = %q, want /patient", h.app.loc.Path)
	}

	h.key("j")
	want := h.app.menu.items[1]
	h.run(h.press(tea.KeyEnter))
	h.run(h.settle(t))
	if h.app.screen != screenPage || h.app.loc.Path != want.Path {
		t.Fatalf("screen = %d path = %q, want page %q", h.app.screen, h.app.loc.Path, want.Path)
	}

	h.run(h.press(tea.KeyEsc))
	h.run(h.settle(t))
	if h.app.screen != screenDashboard || h.app.loc.Path != "/patient" {
		t.Errorf("screen = %d path = %q, want dashboard /patient", h.app.screen, h.app.loc.Path)
	}
}

func TestAppLogoutKey(t *testing.T) {
	h := newHarness(t, &fakeAuth{role: domain.RoleAdmin})
	h.start(t)
	h.loginAs(t)

	h.run(h.key("L"))
	h.run(h.settle(t))

	if h.app.screen != screenLogin {
		t.Fatalf("screen = %d, want login", h.app.screen)
	}
	if h.store.IsAuthenticated() {
		t.Error("session still authenticated after logout")
	}
	if !contains(h.toasts(), "Logged out") {
		t.Errorf("toasts = %q, want logout notice", h.toasts())
	}
}

func TestAppSessionExpiryReturnsToLogin(t *testing.T) {
	h := newHarness(t, &fakeAuth{role: domain.RoleDoctor})
	h.start(t)
	h.loginAs(t)

	// What the client does once a refresh fails.
	if err := h.store.Logout(context.Background()); err != nil {
		t.Fatalf("Logout() error: %v", err)
	}
	h.notify.Warning("Your session has expired. Please log in again.")
	h.router.Expire(context.Background())
	h.run(h.settle(t))

	if h.app.screen != screenLogin {
		t.Fatalf("screen = %d, want login", h.app.screen)
	}
	if !strings.Contains(h.app.View(), "Your session has expired") {
		t.Error("View() does not show the expiry toast")
	}
}

func TestAppUnknownRoleIsSignedOut(t *testing.T) {
	h := newHarness(t, &fakeAuth{role: "NURSE"})
	h.start(t)

	h.typeText("nurse@clinic.test")
	h.press(tea.KeyTab)
	h.typeText("pw")
	h.run(h.press(tea.KeyEnter))
	h.run(h.settle(t))

	if h.store.IsAuthenticated() {
		t.Error("session with an unsupported role stayed signed in")
	}
	if h.app.screen != screenLogin {
		t.Errorf("screen = %d, want login", h.app.screen)
	}
	if !contains(h.toasts(), "Your account role is not supported.") {
		t.Errorf("toasts = %q, want role notice", h.toasts())
	}
}

func TestAppIgnoresStalePageResults(t *testing.T) {
	h := newHarness(t, &fakeAuth{role: domain.RoleDoctor})
	h.start(t)
	h.loginAs(t)
	h.app.page.loading = true
	h.app.page.data = nil

	h.update(pageLoadedMsg{path: "/doctor/schedule", data: "old"})
	if h.app.page.data != nil {
		t.Errorf("page data = %v, want stale result ignored", h.app.page.data)
	}
	h.update(pageLoadedMsg{path: "/doctor", err: context.Canceled})
	if !h.app.page.loading || h.app.page.err != nil {
		t.Errorf("page = %+v, want cancelled result ignored", h.app.page)
	}
}

func TestAppPageErrorNotifies(t *testing.T) {
	h := newHarness(t, &fakeAuth{role: domain.RoleAdmin})
	h.api.err = &client.HTTPError{StatusCode: http.StatusInternalServerError, Message: "boom"}
	h.start(t)
	h.loginAs(t)

	if h.app.page.err == nil {
		t.Fatal("page error not recorded")
	}
	if !contains(h.toasts(), "boom") {
		t.Errorf("toasts = %q, want backend message", h.toasts())
	}
}

func TestAppCopyTokenAndOpenPortal(t *testing.T) {
	h := newHarness(t, &fakeAuth{role: domain.RoleDoctor})
	h.start(t)
	h.loginAs(t)

	h.key("c")
	if len(h.copied) != 1 || h.copied[0] != "acc-ana@clinic.test" {
		t.Errorf("copied = %q, want the access token", h.copied)
	}
	if !contains(h.toasts(), "Access token copied") {
		t.Errorf("toasts = %q", h.toasts())
	}

	h.key("o")
	if len(h.opened) != 1 || h.opened[0] != "http://portal.test/doctor" {
		t.Errorf("opened = %q, want portal dashboard", h.opened)
	}
}

func TestAppQuit(t *testing.T) {
	h := newHarness(t, &fakeAuth{role: domain.RoleDoctor})
	h.start(t)

	// On a form, q is text.
	if cmd := h.key("q"); cmd != nil {
		t.Error("q on the login form returned a command")
	}
	if got := h.app.login.value("email"); got != "q" {
		t.Errorf("email = %q, want %q", got, "q")
	}

	h.loginAs(t)
	cmd := h.key("q")
	if cmd == nil {
		t.Fatal("expected quit command on 'q', got nil")
	}
	if _, ok := cmd().(tea.QuitMsg); !ok {
		t.Error("q did not quit")
	}
	if cmd := h.press(tea.KeyCtrlC); cmd == nil {
		t.Error("ctrl+c did not quit")
	}
}

func TestAppLocationMsgKeepsListening(t *testing.T) {
	h := newHarness(t, &fakeAuth{role: domain.RoleDoctor})
	loc, err := h.router.Push(context.Background(), "/login")
	if err != nil {
		t.Fatalf("Push() error: %v", err)
	}
	<-h.app.locs
	if cmd := h.update(locationMsg{loc: loc}); cmd == nil {
		t.Error("locationMsg did not re-arm the location listener")
	}
	if h.app.screen != screenLogin {
		t.Errorf("screen = %d, want login", h.app.screen)
	}
}

func TestAppViewFitsSmallTerminal(t *testing.T) {
	h := newHarness(t, &fakeAuth{role: domain.RoleDoctor})
	h.start(t)
	h.loginAs(t)
	h.update(tea.WindowSizeMsg{Width: 30, Height: 8})
	if view := h.app.View(); view == "" {
		t.Error("View() is empty")
	}
}

func TestPublishLocationKeepsNewest(t *testing.T) {
	ch := make(chan router.Location, 1)
	publishLocation(ch, router.Location{Path: "/a"})
	publishLocation(ch, router.Location{Path: "/b"})
	if got := (<-ch).Path; got != "/b" {
		t.Errorf("got %q, want /b", got)
	}
}
