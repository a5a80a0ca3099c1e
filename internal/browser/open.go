// Package browser hands web portal pages to the system browser.
package browser

import (
	"fmt"
	"net/url"
	"os/exec"
	"runtime"
	"strings"
)

// PageURL joins a portal base URL and an application path. Only http and
// https bases are accepted so a misconfigured portal cannot launch
// arbitrary handlers.
func PageURL(base, path string) (string, error) {
	u, err := url.Parse(base)
	if err != nil {
		return "", fmt.Errorf("browser: portal url: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return "", fmt.Errorf("browser: portal url %q must be http or https", base)
	}
	if path != "" && path != "/" {
		u.Path = strings.TrimRight(u.Path, "/") + "/" + strings.TrimLeft(path, "/")
	}
	return u.String(), nil
}

// Open opens the portal page at path in the user's default browser.
func Open(base, path string) error {
	target, err := PageURL(base, path)
	if err != nil {
		return err
	}
	return command(target).Start()
}

func command(target string) *exec.Cmd {
	switch runtime.GOOS {
	case "darwin":
		return exec.Command("open", target)
	case "windows":
		return exec.Command("rundll32", "url.dll,FileProtocolHandler", target)
	default:
		return exec.Command("xdg-open", target)
	}
}
