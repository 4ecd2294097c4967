// Package console formats the human-facing terminal output of the CLI.
//
// Colours and screen clearing are only used when the destination is a
// terminal (detected with golang.org/x/term), so piped output stays plain.
package console

import (
	"fmt"
	"io"
	"os"
	"runtime"

	"golang.org/x/term"
)

const (
	ansiReset  = "\x1b[0m"
	ansiDim    = "\x1b[2m"
	ansiRed    = "\x1b[31m"
	ansiYellow = "\x1b[33m"
	ansiCyan   = "\x1b[36m"
)

// Console writes banner, info, warning and error lines.
type Console struct {
	out      io.Writer
	errOut   io.Writer
	outTTY   bool
	errTTY   bool
	clearSeq string
}

// New creates a Console writing normal output to out and diagnostics to
// errOut.
func New(out, errOut io.Writer) *Console {
	clearSeq := "\x1b[2J\x1b[3J\x1b[H"
	if runtime.GOOS == "windows" {
		clearSeq = "\x1bc"
	}
	return &Console{
		out:      out,
		errOut:   errOut,
		outTTY:   isTerminal(out),
		errTTY:   isTerminal(errOut),
		clearSeq: clearSeq,
	}
}

// Std creates a Console on os.Stdout and os.Stderr.
func Std() *Console {
	return New(os.Stdout, os.Stderr)
}

func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	return ok && term.IsTerminal(int(f.Fd()))
}

// Clear clears the screen when stdout is a terminal.
func (c *Console) Clear() {
	if c.outTTY {
		_, _ = io.WriteString(c.out, c.clearSeq)
	}
}

// Banner prints the startup banner.
func (c *Console) Banner() {
	_, _ = fmt.Fprintf(c.out, "\n  Starting Catalog …\n\n")
}

// InfoDimmed prints msg dimmed.
func (c *Console) InfoDimmed(msg string) {
	_, _ = fmt.Fprintln(c.out, paint(c.outTTY, ansiDim, msg))
}

// Info prints msg with the highlighted parts in cyan.
func (c *Console) Info(format string, args ...any) {
	for i, a := range args {
		args[i] = paint(c.outTTY, ansiCyan, fmt.Sprint(a))
	}
	_, _ = fmt.Fprintf(c.out, format+"\n", args...)
}

// Warn prints msg in yellow on the diagnostics stream.
func (c *Console) Warn(msg string) {
	_, _ = fmt.Fprintln(c.errOut, paint(c.errTTY, ansiYellow, msg))
}

// Error prints msg in red on the diagnostics stream.
func (c *Console) Error(msg string) {
	_, _ = fmt.Fprintln(c.errOut, paint(c.errTTY, ansiRed, msg))
}

func paint(enabled bool, code, s string) string {
	if !enabled {
		return s
	}
	return code + s + ansiReset
}
