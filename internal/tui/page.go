package tui

import (
	"context"
	"errors"
	"fmt"
	"strings"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/medibook/hms/internal/router"
	"github.com/medibook/hms/internal/session"
)

// pageLoadedMsg carries the data behind a page. path identifies the
// location that asked for it.
type pageLoadedMsg struct {
	path string
	data any
	err  error
}

type pageModel struct {
	route   router.Route
	path    string
	loading bool
	data    any
	err     error
}

func newPageModel(loc router.Location) pageModel {
	return pageModel{route: loc.Route, path: loc.Path, loading: loc.Route.Resource != ""}
}

// loadPage fetches the route's resource. The request is bound to the
// location's context, so it is dropped once the user navigates away.
func loadPage(api API, loc router.Location) tea.Cmd {
	resource := loc.Route.ResourcePath(loc.Params)
	if api == nil || resource == "" {
		return nil
	}
	ctx := loc.Context()
	return func() tea.Msg {
		var data any
		err := api.Get(ctx, resource, &data)
		return pageLoadedMsg{path: loc.Path, data: data, err: err}
	}
}

// apply stores a load result. It reports false for results that no
// longer belong to this page.
func (m pageModel) apply(msg pageLoadedMsg) (pageModel, bool) {
	if msg.path != m.path || errors.Is(msg.err, context.Canceled) {
		return m, false
	}
	m.loading = false
	m.data, m.err = msg.data, msg.err
	return m, true
}

func (m pageModel) View(width int) string {
	var b strings.Builder
	fmt.Fprintf(&b, "  %s  %s\n\n", titleStyle.Render(m.route.Title), metaStyle.Render(m.path))
	switch {
	case m.route.Resource == "":
	case m.loading:
		b.WriteString(dimStyle.Render("  loading..."))
	case m.err != nil:
		b.WriteString(errorTextStyle.Render("  " + session.Message(m.err)))
	default:
		for _, line := range strings.Split(renderJSON(m.data, width-2), "\n") {
			b.WriteString("  " + line + "\n")
		}
	}
	return b.String()
}
