// Package browser opens crawled page URLs with the desktop's default handler
package browser

import (
	"fmt"
	"net/url"
	"os/exec"
	"runtime"
)

// Opener implements ports.URLOpener
type Opener struct {
	goos string
	run  func(*exec.Cmd) error
}

// NewOpener creates an opener for the current operating system
func NewOpener() *Opener {
	return &Opener{goos: runtime.GOOS, run: (*exec.Cmd).Start}
}

// Open launches the default browser on rawURL without waiting for it
func (o *Opener) Open(rawURL string) error {
	cmd, err := o.Command(rawURL)
	if err != nil {
		return err
	}
	return o.run(cmd)
}

// Command builds the platform command that opens rawURL. Only http(s)
// URLs are accepted.
func (o *Opener) Command(rawURL string) (*exec.Cmd, error) {
	u, err := url.Parse(rawURL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return nil, fmt.Errorf("not a web URL: %q", rawURL)
	}
	uri := u.String()

	switch o.goos {
	case "darwin":
		return exec.Command("open", uri), nil
	case "linux", "freebsd", "openbsd", "netbsd":
		return exec.Command("xdg-open", uri), nil
	case "windows":
		return exec.Command("rundll32", "url.dll,FileProtocolHandler", uri), nil
	default:
		return nil, fmt.Errorf("unsupported operating system: %s", o.goos)
	}
}
