package tui

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/atotto/clipboard"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/rs/zerolog"

	"github.com/medibook/hms/internal/browser"
	"github.com/medibook/hms/internal/notify"
	"github.com/medibook/hms/internal/router"
	"github.com/medibook/hms/internal/session"
	"github.com/medibook/hms/pkg/client"
	"github.com/medibook/hms/pkg/domain"
)

type screen int

const (
	screenLoading screen = iota
	screenLogin
	screenRegister
	screenDashboard
	screenPage
)

// Session is the part of the session store the TUI drives.
type Session interface {
	Login(ctx context.Context, email, password string) error
	Register(ctx context.Context, r client.RegisterRequest) error
	Logout(ctx context.Context) error
	Snapshot() domain.Session
}

// API fetches page data.
type API interface {
	Get(ctx context.Context, path string, out any) error
}

// Options wires the App to the rest of the client.
type Options struct {
	Session   Session
	Router    *router.Router
	Notify    *notify.Center
	API       API
	PortalURL string
	Log       zerolog.Logger

	// Clipboard and OpenPage default to the system clipboard and browser.
	Clipboard func(string) error
	OpenPage  func(base, path string) error
}

type (
	locationMsg      struct{ loc router.Location }
	toastsChangedMsg struct{}
	navFailedMsg     struct {
		path string
		err  error
	}
	loginDoneMsg    struct{ err error }
	registerDoneMsg struct{ err error }
	logoutDoneMsg   struct{ err error }
)

// App is the root Bubbletea model. Every screen change comes from the
// router, so guard redirects and session expiry look the same as a key
// press that navigates.
type App struct {
	opts     Options
	locs     chan router.Location
	screen   screen
	loc      router.Location
	login    formModel
	register formModel
	menu     menuModel
	page     pageModel
	width    int
	height   int
	frame    int
}

// NewApp creates the TUI and subscribes it to the router.
func NewApp(opts Options) App {
	if opts.Clipboard == nil {
		opts.Clipboard = clipboard.WriteAll
	}
	if opts.OpenPage == nil {
		opts.OpenPage = browser.Open
	}
	locs := make(chan router.Location, 1)
	opts.Router.OnChange(func(l router.Location) { publishLocation(locs, l) })
	return App{
		opts:     opts,
		locs:     locs,
		login:    newLoginForm(),
		register: newRegisterForm(),
	}
}

// publishLocation keeps only the newest location in ch.
func publishLocation(ch chan router.Location, l router.Location) {
	for {
		select {
		case ch <- l:
			return
		default:
			select {
			case <-ch:
			default:
			}
		}
	}
}

func waitForLocation(ch <-chan router.Location) tea.Cmd {
	return func() tea.Msg {
		return locationMsg{loc: <-ch}
	}
}

func waitForToasts(ch <-chan struct{}) tea.Cmd {
	return func() tea.Msg {
		<-ch
		return toastsChangedMsg{}
	}
}

func (a App) Init() tea.Cmd {
	return tea.Batch(
		a.navigate("/"),
		waitForLocation(a.locs),
		waitForToasts(a.opts.Notify.Changes()),
		shimmerTickCmd(),
	)
}

func (a App) navigate(path string) tea.Cmd {
	r := a.opts.Router
	return func() tea.Msg {
		if _, err := r.Push(context.Background(), path); err != nil {
			return navFailedMsg{path: path, err: err}
		}
		return nil
	}
}

func (a App) back() tea.Cmd {
	r := a.opts.Router
	return func() tea.Msg {
		if _, err := r.Back(context.Background()); err != nil {
			return navFailedMsg{err: err}
		}
		return nil
	}
}

func (a App) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		a.width = msg.Width
		a.height = msg.Height
		return a, nil

	case shimmerTickMsg:
		a.frame++
		return a, shimmerTickCmd()

	case toastsChangedMsg:
		return a, waitForToasts(a.opts.Notify.Changes())

	case locationMsg:
		cmd := a.enter(msg.loc)
		return a, tea.Batch(cmd, waitForLocation(a.locs))

	case navFailedMsg:
		return a.navFailed(msg)

	case loginDoneMsg:
		if msg.err != nil {
			a.login = a.login.failed()
			a.opts.Notify.Error(session.Message(msg.err))
			return a, nil
		}
		a.login = newLoginForm()
		a.opts.Notify.Success("Login successful")
		// The guard sends a signed-in user from the login page to their dashboard.
		return a, a.navigate("/login")

	case registerDoneMsg:
		if msg.err != nil {
			a.register = a.register.failed()
			a.opts.Notify.Error(session.Message(msg.err))
			return a, nil
		}
		a.register = newRegisterForm()
		a.opts.Notify.Success("Registration successful! Please login.")
		return a, a.navigate("/login")

	case logoutDoneMsg:
		if msg.err != nil {
			a.opts.Log.Error().Err(msg.err).Msg("logout")
		}
		a.opts.Notify.Info("Logged out")
		return a, a.navigate("/login")

	case pageLoadedMsg:
		var ok bool
		if a.page, ok = a.page.apply(msg); ok && msg.err != nil && !errors.Is(msg.err, client.ErrUnauthorized) {
			a.opts.Notify.Error(session.Message(msg.err))
		}
		return a, nil

	case tea.KeyMsg:
		return a.updateKeys(msg)
	}
	return a, nil
}

// enter switches to the screen for loc.
func (a *App) enter(loc router.Location) tea.Cmd {
	a.loc = loc
	a.page = newPageModel(loc)

	switch loc.Route.Name {
	case router.RouteLogin:
		if a.screen != screenLogin {
			a.login = newLoginForm()
		}
		a.screen = screenLogin
		return nil
	case router.RouteRegister:
		if a.screen != screenRegister {
			a.register = newRegisterForm()
		}
		a.screen = screenRegister
		return nil
	}

	role := a.opts.Session.Snapshot().Role()
	if home, ok := router.HomeFor(role); ok && home == loc.Route.Name {
		a.screen = screenDashboard
		a.menu = newMenuModel(a.opts.Router.Table().Menu(role))
	} else {
		a.screen = screenPage
	}
	return loadPage(a.opts.API, loc)
}

func (a App) navFailed(msg navFailedMsg) (tea.Model, tea.Cmd) {
	switch {
	case errors.Is(msg.err, router.ErrRedirectLoop):
		// Only a signed-in user whose role has no dashboard gets here.
		a.opts.Log.Warn().Str("role", string(a.opts.Session.Snapshot().Role())).Msg("no home for role")
		a.opts.Notify.Error("Your account role is not supported.")
		return a, a.logout()
	case errors.Is(msg.err, router.ErrNotFound):
		a.opts.Notify.Warning("Page not found")
	case errors.Is(msg.err, context.Canceled):
	default:
		a.opts.Notify.Error(session.Message(msg.err))
	}
	return a, nil
}

func (a App) logout() tea.Cmd {
	s := a.opts.Session
	return func() tea.Msg {
		return logoutDoneMsg{err: s.Logout(context.Background())}
	}
}

func (a App) updateKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	key := msg.String()
	if key == "ctrl+c" {
		return a, tea.Quit
	}

	switch a.screen {
	case screenLogin:
		if key == "ctrl+r" {
			return a, a.navigate("/register")
		}
		var submit bool
		a.login, submit = a.login.update(msg)
		if !submit {
			return a, nil
		}
		s, email, password := a.opts.Session, a.login.value("email"), a.login.raw("password")
		return a, func() tea.Msg {
			return loginDoneMsg{err: s.Login(context.Background(), email, password)}
		}

	case screenRegister:
		if key == "esc" {
			return a, a.navigate("/login")
		}
		var submit bool
		a.register, submit = a.register.update(msg)
		if !submit {
			return a, nil
		}
		s, req := a.opts.Session, a.register.registerRequest()
		return a, func() tea.Msg {
			return registerDoneMsg{err: s.Register(context.Background(), req)}
		}

	case screenLoading:
		if key == "q" {
			return a, tea.Quit
		}
		return a, nil
	}

	switch key {
	case "q":
		return a, tea.Quit
	case "L":
		return a, a.logout()
	case "c":
		a.copyToken()
		return a, nil
	case "o":
		if err := a.opts.OpenPage(a.opts.PortalURL, a.loc.Path); err != nil {
			a.opts.Notify.Error("Could not open the portal: " + err.Error())
		}
		return a, nil
	case "r":
		a.page = newPageModel(a.loc)
		return a, loadPage(a.opts.API, a.loc)
	case "esc", "backspace":
		if a.screen == screenPage {
			return a, a.back()
		}
		return a, nil
	}

	if a.screen == screenDashboard {
		var chosen *router.Route
		a.menu, chosen = a.menu.update(key)
		if chosen != nil {
			return a, a.navigate(chosen.Path)
		}
	}
	return a, nil
}

func (a App) copyToken() {
	tok := a.opts.Session.Snapshot().AccessToken
	if tok == "" {
		a.opts.Notify.Warning("Not logged in")
		return
	}
	if err := a.opts.Clipboard(tok); err != nil {
		a.opts.Notify.Error("Could not copy the access token")
		return
	}
	a.opts.Notify.Success("Access token copied")
}

func (a App) View() string {
	logo := renderShimmerLogo(a.frame)
	header := lipgloss.PlaceHorizontal(a.width, lipgloss.Center, logo)

	snap := a.opts.Session.Snapshot()
	status := ""
	if snap.IsAuthenticated() {
		parts := []string{normalStyle.Render(snap.User.Name), RoleBadge(snap.Role())}
		if exp := formatExpiry(snap.Expiry, time.Now()); exp != "" {
			parts = append(parts, metaStyle.Render(exp))
		}
		status = strings.Join(parts, " ")
	}
	header += "\n" + lipgloss.PlaceHorizontal(a.width, lipgloss.Center, status)

	var body, help string
	switch a.screen {
	case screenLoading:
		body = dimStyle.Render("  restoring session...")
		help = helpBar([2]string{"q", "quit"})
	case screenLogin:
		body = a.login.View()
		help = helpBar([2]string{"tab", "next"}, [2]string{"enter", "login"}, [2]string{"ctrl+r", "register"}, [2]string{"ctrl+c", "quit"})
	case screenRegister:
		body = a.register.View()
		help = helpBar([2]string{"tab", "next"}, [2]string{"ctrl+s", "register"}, [2]string{"esc", "login"})
	case screenDashboard:
		body = a.menu.View() + "\n" + a.page.View(a.width)
		help = helpBar([2]string{"j/k", "nav"}, [2]string{"enter", "open"}, [2]string{"r", "reload"}, [2]string{"c", "copy token"}, [2]string{"o", "portal"}, [2]string{"L", "logout"}, [2]string{"q", "quit"})
	case screenPage:
		body = a.page.View(a.width)
		help = helpBar([2]string{"esc", "back"}, [2]string{"r", "reload"}, [2]string{"c", "copy token"}, [2]string{"o", "portal"}, [2]string{"L", "logout"}, [2]string{"q", "quit"})
	}

	toasts := a.renderToasts()
	// Chrome: header(2) + blank(1) + help(1)
	chrome := 4 + lipgloss.Height(toasts)
	if toasts == "" {
		chrome--
	}
	body = strings.TrimRight(clipLines(body, a.height-chrome), "\n")

	out := header + "\n"
	if toasts != "" {
		out += toasts + "\n"
	}
	return fmt.Sprintf("%s\n%s\n%s", out, body, help)
}

func (a App) renderToasts() string {
	list := a.opts.Notify.List()
	if len(list) == 0 {
		return ""
	}
	boxes := make([]string, 0, len(list))
	for _, t := range list {
		text := toastLabel(t.Kind) + ": " + t.Message
		if a.width > 8 {
			text = truncStr(text, a.width-6)
		}
		boxes = append(boxes, ToastStyle(t.Kind).Render(text))
	}
	stack := lipgloss.JoinVertical(lipgloss.Right, boxes...)
	return lipgloss.PlaceHorizontal(a.width, lipgloss.Right, stack)
}
