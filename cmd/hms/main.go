package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/medibook/hms/internal/config"
	"github.com/medibook/hms/internal/logging"
	"github.com/medibook/hms/internal/tui"
)

// version is set at build time via -ldflags "-X main.version=..."
var version = "dev"

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()
	if err := run(ctx, os.Args[1:], os.Stdin, os.Stdout); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, args []string, stdin io.Reader, stdout io.Writer) error {
	cmd := ""
	if len(args) > 0 {
		cmd = args[0]
		args = args[1:]
	}

	switch cmd {
	case "--version", "version", "-v":
		fmt.Fprintln(stdout, "hms "+version)
		return nil
	case "help", "--help", "-h":
		printHelp(stdout)
		return nil
	case "", "login", "logout", "whoami", "token", "routes":
	default:
		printHelp(stdout)
		return fmt.Errorf("unknown command %q", cmd)
	}

	cfg, err := config.Load()
	if err != nil {
		return err
	}
	if cmd == "" {
		return runTUI(ctx, cfg)
	}

	log, err := logging.Console(cfg.LogLevel, os.Stderr)
	if err != nil {
		return err
	}
	a, err := newApp(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer a.Close()

	switch cmd {
	case "login":
		return runLogin(ctx, a, args, stdin, stdout)
	case "logout":
		return runLogout(ctx, a, stdout)
	case "whoami":
		return runWhoami(ctx, a, stdout)
	case "token":
		return runToken(a, args, stdout)
	default:
		return runRoutes(a, stdout)
	}
}

func runTUI(ctx context.Context, cfg *config.Config) error {
	f, err := logging.OpenFile(cfg.LogFile)
	if err != nil {
		return err
	}
	defer f.Close() //nolint:errcheck

	log, err := logging.New(cfg.LogLevel, f)
	if err != nil {
		return err
	}
	a, err := newApp(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer a.Close()

	app := tui.NewApp(tui.Options{
		Session:   a.store,
		Router:    a.router,
		Notify:    a.notify,
		API:       a.api,
		PortalURL: cfg.PortalURL,
		Log:       log,
	})
	p := tea.NewProgram(app, tea.WithAltScreen(), tea.WithContext(ctx))
	if _, err := p.Run(); err != nil {
		return fmt.Errorf("tui error: %w", err)
	}
	if !a.store.IsAuthenticated() {
		printGreeting(os.Stdout)
	}
	return nil
}
