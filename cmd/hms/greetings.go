package main

import (
	"fmt"
	"io"
	"math/rand/v2"

	"github.com/charmbracelet/lipgloss"
)

var greetings = [...]string{
	"The waiting room is empty. Come on in.",
	"Appointments don't book themselves.",
	"Your chart is ready. You just need to sign in.",
	"The front desk is open.",
	"Doctors are in. Are you?",
}

var (
	brandStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#2dd4bf")).Bold(true)
	quoteStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("245")).Italic(true)
	cmdStyle   = lipgloss.NewStyle().Bold(true)
	descStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("245"))
	hintStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("245"))
)

var commands = []struct{ cmd, desc string }{
	{"hms", "Open the hospital portal (interactive TUI)"},
	{"hms login [email]", "Sign in with email and password"},
	{"hms logout", "Clear your session"},
	{"hms whoami", "Show the signed-in user"},
	{"hms token [--print]", "Copy the access token to the clipboard"},
	{"hms routes", "List pages and whether you may open them"},
	{"hms --version", "Show version"},
	{"hms help", "You are here"},
}

func printHelp(w io.Writer) {
	fmt.Fprintf(w, "\n  %s\n\n  %s\n\n  Commands:\n",
		brandStyle.Render("M E D I B O O K"),
		quoteStyle.Render("Hospital management from your terminal."))
	for _, c := range commands {
		fmt.Fprintf(w, "    %s  %s\n", cmdStyle.Render(fmt.Sprintf("%-22s", c.cmd)), descStyle.Render(c.desc))
	}
	fmt.Fprintf(w, "\n  %s\n\n", hintStyle.Render("Set HMS_API_URL to point at another server."))
}

func printGreeting(w io.Writer) {
	msg := greetings[rand.IntN(len(greetings))]
	fmt.Fprintf(w, "\n%s\n\n%s\n\n", brandStyle.Render("MEDIBOOK"), quoteStyle.Render(msg))
}
