// Package browser opens URLs in the user's default web browser.
//
// The BROWSER environment variable is honoured the way front-end tooling
// does it: "none" disables opening, any other value names the program to
// run with the URL as its only argument. Otherwise the platform opener is
// used (xdg-open, open or rundll32).
package browser

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"runtime"
	"strings"
)

// ErrDisabled is returned when BROWSER=none.
var ErrDisabled = errors.New("opening a browser is disabled (BROWSER=none)")

// Launcher starts a browser process.
type Launcher struct {
	// GOOS selects the platform opener. Defaults to runtime.GOOS.
	GOOS string

	// Getenv reads environment variables. Defaults to os.Getenv.
	Getenv func(key string) string

	// Command builds the process to start. Defaults to exec.CommandContext.
	Command func(ctx context.Context, name string, args ...string) *exec.Cmd
}

// NewLauncher creates a Launcher for the current platform.
func NewLauncher() *Launcher {
	return &Launcher{
		GOOS:    runtime.GOOS,
		Getenv:  os.Getenv,
		Command: exec.CommandContext,
	}
}

// Open starts the browser on url without waiting for it to exit.
func (l *Launcher) Open(ctx context.Context, url string) error {
	name, args, err := l.command(url)
	if err != nil {
		return err
	}

	build := l.Command
	if build == nil {
		build = exec.CommandContext
	}
	cmd := build(context.WithoutCancel(ctx), name, args...)
	if err := cmd.Start(); err != nil {
		return fmt.Errorf("failed to open browser with %s: %w", name, err)
	}
	go func() { _ = cmd.Wait() }()
	return nil
}

// command returns the program and arguments that open url.
func (l *Launcher) command(url string) (string, []string, error) {
	getenv := l.Getenv
	if getenv == nil {
		getenv = os.Getenv
	}
	if b := strings.TrimSpace(getenv("BROWSER")); b != "" {
		if strings.EqualFold(b, "none") {
			return "", nil, ErrDisabled
		}
		return b, []string{url}, nil
	}

	goos := l.GOOS
	if goos == "" {
		goos = runtime.GOOS
	}
	switch goos {
	case "darwin":
		return "open", []string{url}, nil
	case "windows":
		return "rundll32", []string{"url.dll,FileProtocolHandler", url}, nil
	case "linux", "freebsd", "openbsd", "netbsd", "dragonfly", "solaris":
		return "xdg-open", []string{url}, nil
	default:
		return "", nil, fmt.Errorf("don't know how to open a browser on %s", goos)
	}
}
