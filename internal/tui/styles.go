package tui

import (
	"fmt"
	"math"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/medibook/hms/pkg/domain"
)

// Shimmer animation for the header logo.
type shimmerTickMsg time.Time

func shimmerTickCmd() tea.Cmd {
	return tea.Tick(120*time.Millisecond, func(t time.Time) tea.Msg {
		return shimmerTickMsg(t)
	})
}

// renderShimmerLogo renders "M E D I B O O K" as a slow wave of teal light.
// Deep (#134e4a) -> bright (#5eead4).
func renderShimmerLogo(frame int) string {
	const text = "MEDIBOOK"
	n := len(text)
	t := float64(frame)

	var out strings.Builder
	for i := 0; i < n; i++ {
		x := float64(i) / float64(n-1)
		phase := t*0.1 - x*3.0
		b := math.Sin(phase)*0.5 + 0.5
		b = b*0.8 + 0.15
		if b > 1.0 {
			b = 1.0
		}

		r := clampByte(19 + b*(94-19))
		g := clampByte(78 + b*(234-78))
		bl := clampByte(74 + b*(212-74))
		color := fmt.Sprintf("#%02X%02X%02X", r, g, bl)

		out.WriteString(lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color(color)).Render(string(text[i])))
		if i < n-1 {
			out.WriteString("  ")
		}
	}
	return out.String()
}

func clampByte(v float64) int {
	if v > 255 {
		return 255
	}
	if v < 0 {
		return 0
	}
	return int(v)
}

var (
	dimStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#8890a0"))

	selectedStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#e4e4ec")).
			Bold(true)

	normalStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#c0c4d0"))

	metaStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#505868"))

	titleStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#5eead4")).
			Bold(true)

	// Help bar
	helpKeyStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#8890a0"))

	helpLabelStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#505868"))

	accentStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#2dd4bf"))

	errorTextStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#e06060"))

	inputPromptStyle = lipgloss.NewStyle().
				Foreground(lipgloss.Color("#2dd4bf")).
				Bold(true)

	inputPlaceholderStyle = lipgloss.NewStyle().
				Foreground(lipgloss.Color("#343c4a"))

	toastBoxStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			Padding(0, 1)

	// Toast colors. Error toasts use the "danger" palette.
	toastColors = map[domain.Kind]lipgloss.Color{
		domain.KindSuccess: lipgloss.Color("#34d474"),
		domain.KindError:   lipgloss.Color("#e06060"),
		domain.KindWarning: lipgloss.Color("#f0b44a"),
		domain.KindInfo:    lipgloss.Color("#60a0e0"),
	}
)

// RoleStyle returns a bold style colored for role.
func RoleStyle(role domain.Role) lipgloss.Style {
	if info, ok := domain.Roles[role]; ok {
		return lipgloss.NewStyle().Foreground(lipgloss.Color(info.HexColor)).Bold(true)
	}
	return lipgloss.NewStyle().Foreground(lipgloss.Color("#8890a0")).Bold(true)
}

// RoleBadge returns a short colored badge, e.g. "[Doctor]".
func RoleBadge(role domain.Role) string {
	if role == "" {
		return ""
	}
	return RoleStyle(role).Render("[" + role.Name() + "]")
}

// ToastStyle returns the box style for a toast kind.
func ToastStyle(kind domain.Kind) lipgloss.Style {
	c, ok := toastColors[kind]
	if !ok {
		c = toastColors[domain.KindInfo]
	}
	return toastBoxStyle.BorderForeground(c).Foreground(c)
}

// toastLabel is the word shown before a toast message.
func toastLabel(kind domain.Kind) string {
	if kind == domain.KindError {
		return "danger"
	}
	return string(kind)
}

// helpEntry renders a single "key label" pair for help bars.
func helpEntry(key, label string) string {
	return helpKeyStyle.Render(key) + " " + helpLabelStyle.Render(label)
}

func helpBar(entries ...[2]string) string {
	parts := make([]string, len(entries))
	for i, e := range entries {
		parts[i] = helpEntry(e[0], e[1])
	}
	return " " + strings.Join(parts, "  ")
}
