package tui

import (
	"fmt"
	"strings"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/medibook/hms/pkg/client"
)

type formField struct {
	key      string
	label    string
	value    string
	secret   bool
	required bool
	// limit caps the value in runes; zero means maxInputLen.
	limit    int
}

// formModel is a single-column form. Every key it receives is treated as
// editing except the navigation and submit keys.
type formModel struct {
	title      string
	fields     []formField
	focus      int
	submitting bool
	statusMsg  string
}

func newLoginForm() formModel {
	return formModel{
		title: "Login",
		fields: []formField{
			{key: "email", label: "email", required: true},
			{key: "password", label: "password", secret: true, required: true},
		},
	}
}

func newRegisterForm() formModel {
	return formModel{
		title: "Register",
		fields: []formField{
			{key: "name", label: "name", required: true},
			{key: "email", label: "email", required: true},
			{key: "password", label: "password", secret: true, required: true},
			{key: "contact_no", label: "contact no", limit: 20},
			{key: "gender", label: "gender", limit: 10},
			{key: "date_of_birth", label: "date of birth (YYYY-MM-DD)", limit: 10},
			{key: "address", label: "address"},
			{key: "city", label: "city", limit: 64},
			{key: "state", label: "state", limit: 64},
			{key: "zip_code", label: "zip code", limit: 10},
		},
	}
}

func (m formModel) value(key string) string {
	return strings.TrimSpace(m.raw(key))
}

// raw returns the field exactly as typed.
func (m formModel) raw(key string) string {
	for _, f := range m.fields {
		if f.key == key {
			return f.value
		}
	}
	return ""
}

// update applies a key press. submit is true when the form is complete
// and should be sent.
func (m formModel) update(msg tea.KeyMsg) (next formModel, submit bool) {
	if m.submitting {
		return m, false
	}
	m.statusMsg = ""
	n := len(m.fields)

	switch msg.String() {
	case "tab", "down":
		m.focus = (m.focus + 1) % n
	case "shift+tab", "up":
		m.focus = (m.focus - 1 + n) % n
	case "ctrl+s":
		return m.validate()
	case "enter":
		if m.focus == n-1 {
			return m.validate()
		}
		m.focus++
	default:
		f := &m.fields[m.focus]
		f.value = editText(f.value, msg, f.limit)
	}
	return m, false
}

func (m formModel) validate() (formModel, bool) {
	for i, f := range m.fields {
		if f.required && strings.TrimSpace(f.value) == "" {
			m.statusMsg = f.label + " is required"
			m.focus = i
			return m, false
		}
	}
	m.submitting = true
	return m, true
}

// failed re-enables the form after a rejected submit and clears secrets.
func (m formModel) failed() formModel {
	m.submitting = false
	for i := range m.fields {
		if m.fields[i].secret {
			m.fields[i].value = ""
			m.focus = i
		}
	}
	return m
}

func (m formModel) registerRequest() client.RegisterRequest {
	return client.RegisterRequest{
		Name:        m.value("name"),
		Email:       m.value("email"),
		Password:    m.raw("password"),
		ContactNo:   m.value("contact_no"),
		Gender:      m.value("gender"),
		DateOfBirth: m.value("date_of_birth"),
		Address:     m.value("address"),
		City:        m.value("city"),
		State:       m.value("state"),
		ZipCode:     m.value("zip_code"),
	}
}

func (m formModel) View() string {
	var b strings.Builder
	fmt.Fprintf(&b, "  %s\n\n", titleStyle.Render(m.title))

	for i, f := range m.fields {
		cursor := " "
		style := metaStyle
		if i == m.focus {
			cursor = inputPromptStyle.Render(">")
			style = selectedStyle
		}
		value := f.value
		if f.secret {
			value = maskSecret(value)
		}
		if i == m.focus && !m.submitting {
			value += "█"
		}
		label := f.label
		if f.required {
			label += "*"
		}
		fmt.Fprintf(&b, "%s %s: %s\n", cursor, style.Render(label), normalStyle.Render(value))
	}

	b.WriteString("\n")
	switch {
	case m.submitting:
		b.WriteString(dimStyle.Render("  sending..."))
	case m.statusMsg != "":
		b.WriteString(errorTextStyle.Render("  " + m.statusMsg))
	}
	return b.String()
}
