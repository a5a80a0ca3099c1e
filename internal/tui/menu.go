package tui

import (
	"fmt"
	"strings"

	"github.com/medibook/hms/internal/router"
)

// menuModel lists the pages of a role's dashboard.
type menuModel struct {
	items  []router.Route
	cursor int
}

func newMenuModel(items []router.Route) menuModel {
	return menuModel{items: items}
}

// update moves the cursor; on enter it returns the chosen route.
func (m menuModel) update(key string) (menuModel, *router.Route) {
	switch key {
	case "j", "down":
		if m.cursor < len(m.items)-1 {
			m.cursor++
		}
	case "k", "up":
		if m.cursor > 0 {
			m.cursor--
		}
	case "enter":
		if m.cursor < len(m.items) {
			r := m.items[m.cursor]
			return m, &r
		}
	}
	return m, nil
}

func (m menuModel) View() string {
	if len(m.items) == 0 {
		return dimStyle.Render("  no pages for this role")
	}
	var b strings.Builder
	for i, r := range m.items {
		if i == m.cursor {
			fmt.Fprintf(&b, "  %s %s  %s\n", accentStyle.Render(">"), selectedStyle.Render(r.Title), metaStyle.Render(r.Path))
		} else {
			fmt.Fprintf(&b, "    %s  %s\n", normalStyle.Render(r.Title), metaStyle.Render(r.Path))
		}
	}
	return b.String()
}
