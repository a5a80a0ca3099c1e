package tui

import (
	"strings"
	"testing"
	"time"

	"github.com/medibook/hms/pkg/domain"
)

func TestRoleStyleKnownRole(t *testing.T) {
	for role, info := range domain.Roles {
		t.Run(string(role), func(t *testing.T) {
			rendered := RoleStyle(role).Render(info.Name)
			if !strings.Contains(rendered, info.Name) {
				t.Errorf("RoleStyle(%q).Render(%q) = %q, want to contain %q", role, info.Name, rendered, info.Name)
			}
		})
	}
}

func TestRoleStyleUnknownRoleFallback(t *testing.T) {
	rendered := RoleStyle("NURSE").Render("NURSE")
	if !strings.Contains(rendered, "NURSE") {
		t.Errorf("RoleStyle fallback did not render text: %q", rendered)
	}
}

func TestRoleBadge(t *testing.T) {
	tests := []struct {
		role domain.Role
		want string
	}{
		{domain.RoleAdmin, "[Admin]"},
		{domain.RoleDoctor, "[Doctor]"},
		{domain.RolePatient, "[Patient]"},
		{"NURSE", "[NURSE]"},
	}
	for _, tc := range tests {
		t.Run(string(tc.role), func(t *testing.T) {
			if badge := RoleBadge(tc.role); !strings.Contains(badge, tc.want) {
				t.Errorf("RoleBadge(%q) = %q, want to contain %q", tc.role, badge, tc.want)
			}
		})
	}
	if badge := RoleBadge(""); badge != "" {
		t.Errorf("RoleBadge(\"\") = %q, want empty string", badge)
	}
}

func TestToastLabel(t *testing.T) {
	tests := []struct {
		kind domain.Kind
		want string
	}{
		{domain.KindSuccess, "success"},
		{domain.KindError, "danger"},
		{domain.KindWarning, "warning"},
		{domain.KindInfo, "info"},
	}
	for _, tc := range tests {
		if got := toastLabel(tc.kind); got != tc.want {
			t.Errorf("toastLabel(%q) = %q, want %q", tc.kind, got, tc.want)
		}
		if rendered := ToastStyle(tc.kind).Render("saved"); !strings.Contains(rendered, "saved") {
			t.Errorf("ToastStyle(%q) did not render text: %q", tc.kind, rendered)
		}
	}
}

func TestHelpEntryFormat(t *testing.T) {
	result := helpEntry("q", "quit")
	if !strings.Contains(result, "q") {
		t.Errorf("helpEntry('q','quit') does not contain key 'q': %q", result)
	}
	if !strings.Contains(result, "quit") {
		t.Errorf("helpEntry('q','quit') does not contain label 'quit': %q", result)
	}
}

func TestHelpBar(t *testing.T) {
	bar := helpBar([2]string{"j/k", "nav"}, [2]string{"L", "logout"})
	for _, want := range []string{"j/k", "nav", "L", "logout"} {
		if !strings.Contains(bar, want) {
			t.Errorf("helpBar() = %q, missing %q", bar, want)
		}
	}
}

func TestRenderShimmerLogo(t *testing.T) {
	for _, frame := range []int{0, 7, 500} {
		logo := renderShimmerLogo(frame)
		for _, r := range "MEDIBOOK" {
			if !strings.ContainsRune(logo, r) {
				t.Errorf("frame %d: logo %q missing %q", frame, logo, r)
			}
		}
	}
}

func TestFormatExpiry(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	tests := []struct {
		exp  time.Time
		want string
	}{
		{time.Time{}, ""},
		{now.Add(-time.Second), "expired"},
		{now.Add(30 * time.Second), "expires in <1m"},
		{now.Add(14 * time.Minute), "expires in 14m"},
		{now.Add(5 * time.Hour), "expires in 5h"},
		{now.Add(72 * time.Hour), "expires in 3d"},
	}
	for _, tc := range tests {
		if got := formatExpiry(tc.exp, now); got != tc.want {
			t.Errorf("formatExpiry(%v) = %q, want %q", tc.exp, got, tc.want)
		}
	}
}

func TestRenderJSON(t *testing.T) {
	data := []any{map[string]any{"appointment_id": 4.0, "status": "Booked"}}
	out := renderJSON(data, 80)
	if !strings.Contains(out, `"status": "Booked"`) {
		t.Errorf("renderJSON() = %q, want indented status", out)
	}
	if empty := renderJSON([]any{}, 80); !strings.Contains(empty, "nothing here yet") {
		t.Errorf("renderJSON(empty) = %q", empty)
	}
	if masked := maskSecret("héllo"); masked != "•••••" {
		t.Errorf("maskSecret() = %q, want 5 dots", masked)
	}
}
