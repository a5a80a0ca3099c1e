package tui

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"
)

// formatExpiry renders the time left on the access token.
func formatExpiry(exp, now time.Time) string {
	if exp.IsZero() {
		return ""
	}
	d := exp.Sub(now)
	switch {
	case d <= 0:
		return "expired"
	case d < time.Minute:
		return "expires in <1m"
	case d < time.Hour:
		return fmt.Sprintf("expires in %dm", int(d.Minutes()))
	case d < 24*time.Hour:
		return fmt.Sprintf("expires in %dh", int(d.Hours()))
	default:
		return fmt.Sprintf("expires in %dd", int(d.Hours()/24))
	}
}

// truncStr truncates a string to maxLen runes, appending an ellipsis if needed.
func truncStr(s string, maxLen int) string {
	if utf8.RuneCountInString(s) <= maxLen {
		return s
	}
	runes := []rune(s)
	return string(runes[:maxLen-1]) + "…"
}

// renderJSON pretty-prints page data, clipping each line to width.
func renderJSON(v any, width int) string {
	if v == nil {
		return dimStyle.Render("nothing here yet")
	}
	if list, ok := v.([]any); ok && len(list) == 0 {
		return dimStyle.Render("nothing here yet")
	}
	raw, err := json.Marshal(v)
	if err != nil {
		return errorTextStyle.Render(err.Error())
	}
	var buf bytes.Buffer
	if err := json.Indent(&buf, raw, "", "  "); err != nil {
		return errorTextStyle.Render(err.Error())
	}
	lines := strings.Split(buf.String(), "\n")
	if width > 4 {
		for i, l := range lines {
			lines[i] = truncStr(l, width-2)
		}
	}
	return strings.Join(lines, "\n")
}

// maskSecret hides a password while keeping its length visible.
func maskSecret(s string) string {
	return strings.Repeat("•", utf8.RuneCountInString(s))
}
