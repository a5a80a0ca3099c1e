package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"text/tabwriter"

	"github.com/atotto/clipboard"
	"github.com/charmbracelet/x/term"

	"github.com/medibook/hms/internal/router"
	"github.com/medibook/hms/internal/session"
	"github.com/medibook/hms/internal/tui"
)

// copyToClipboard is swapped out in tests.
var copyToClipboard = clipboard.WriteAll

// runLogin signs in with email and password. Both may be passed as
// arguments; missing ones are read from stdin.
func runLogin(ctx context.Context, a *app, args []string, stdin io.Reader, stdout io.Writer) error {
	in := bufio.NewReader(stdin)
	email, password := "", ""
	if len(args) > 0 {
		email = args[0]
	}
	if len(args) > 1 {
		password = args[1]
	}

	var err error
	if email == "" {
		if email, err = prompt(in, stdout, "Email: "); err != nil {
			return err
		}
	}
	if password == "" {
		if password, err = promptSecret(in, stdin, stdout, "Password: "); err != nil {
			return err
		}
	}
	if email == "" || password == "" {
		return errors.New("email and password are required")
	}

	if err := a.store.Login(ctx, email, password); err != nil {
		return fmt.Errorf("login: %s", session.Message(err))
	}
	u := a.store.User()
	fmt.Fprintf(stdout, "Logged in as %s %s\n", u.Name, tui.RoleBadge(u.Role))
	return nil
}

func prompt(in *bufio.Reader, out io.Writer, label string) (string, error) {
	fmt.Fprint(out, label)
	line, err := in.ReadString('\n')
	if err != nil && !errors.Is(err, io.EOF) {
		return "", fmt.Errorf("read input: %w", err)
	}
	return strings.TrimSpace(line), nil
}

// promptSecret reads without echo when stdin is a terminal.
func promptSecret(in *bufio.Reader, stdin io.Reader, out io.Writer, label string) (string, error) {
	f, ok := stdin.(*os.File)
	if !ok || !term.IsTerminal(f.Fd()) {
		return prompt(in, out, label)
	}
	fmt.Fprint(out, label)
	b, err := term.ReadPassword(f.Fd())
	fmt.Fprintln(out)
	if err != nil {
		return "", fmt.Errorf("read password: %w", err)
	}
	return strings.TrimSpace(string(b)), nil
}

func runLogout(ctx context.Context, a *app, stdout io.Writer) error {
	if !a.store.IsAuthenticated() {
		fmt.Fprintln(stdout, "Not logged in.")
		return nil
	}
	if err := a.store.Logout(ctx); err != nil {
		return fmt.Errorf("logout: %w", err)
	}
	fmt.Fprintln(stdout, "Logged out.")
	return nil
}

// runWhoami asks the server who the stored token belongs to, which
// exercises the refresh path when the access token has expired.
func runWhoami(ctx context.Context, a *app, stdout io.Writer) error {
	if !a.store.IsAuthenticated() {
		return errors.New("not logged in; run: hms login")
	}
	u, err := a.api.Me(ctx)
	if err != nil {
		return errors.New(session.Message(err))
	}
	fmt.Fprintf(stdout, "%s <%s> %s\n", u.Name, u.Email, tui.RoleBadge(u.Role))
	if exp := a.store.Snapshot().Expiry; !exp.IsZero() {
		fmt.Fprintf(stdout, "token expires %s\n", exp.Local().Format("2006-01-02 15:04:05"))
	}
	return nil
}

// runToken copies the access token to the clipboard, or prints it with --print.
func runToken(a *app, args []string, stdout io.Writer) error {
	tok := a.store.AccessToken()
	if tok == "" {
		return errors.New("not logged in; run: hms login")
	}
	if len(args) > 0 && args[0] == "--print" {
		fmt.Fprintln(stdout, tok)
		return nil
	}
	if err := copyToClipboard(tok); err != nil {
		return fmt.Errorf("copy token: %w", err)
	}
	fmt.Fprintln(stdout, "Access token copied to clipboard.")
	return nil
}

// runRoutes prints the route table with the guard's verdict for the
// current session.
func runRoutes(a *app, stdout io.Writer) error {
	snap := a.store.Snapshot()
	table := a.router.Table()

	tw := tabwriter.NewWriter(stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "NAME\tPATH\tACCESS\tVERDICT")
	for _, rt := range table.Routes() {
		access := "public"
		if rt.Requirement.RequiresAuth {
			access = "signed in"
			if rt.Requirement.Role != "" {
				access = string(rt.Requirement.Role)
			}
		}
		verdict := "allow"
		switch {
		case rt.Redirect != "":
			verdict = "-> " + rt.Redirect
		default:
			if d := router.Guard(rt, snap); !d.Allowed() {
				verdict = "-> " + d.Redirect
			}
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", rt.Name, rt.Path, access, verdict)
	}
	return tw.Flush()
}
