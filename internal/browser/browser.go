// Package browser opens URLs in the OS default browser.
package browser

import (
	"fmt"
	"os/exec"
	"runtime"
)

// Opener launches a URL in the user's default browser. The auth flow
// takes an Opener so tests can capture the login URL instead of
// spawning a browser.
type Opener interface {
	Open(url string) error
}

// Default opens URLs with the platform launcher command.
type Default struct{}

// Open starts the default browser without waiting for it to exit.
func (Default) Open(url string) error {
	name, args, err := launcherCommand(runtime.GOOS, url)
	if err != nil {
		return err
	}
	return exec.Command(name, args...).Start()
}

func launcherCommand(goos, url string) (string, []string, error) {
	switch goos {
	case "darwin":
		return "open", []string{url}, nil
	case "linux":
		return "xdg-open", []string{url}, nil
	case "windows":
		return "cmd", []string{"/c", "start", url}, nil
	default:
		return "", nil, fmt.Errorf("unsupported platform %q", goos)
	}
}

// OpenerFunc adapts a function to the Opener interface.
type OpenerFunc func(url string) error

func (f OpenerFunc) Open(url string) error { return f(url) }
