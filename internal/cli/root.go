// Package cli implements the cobra commands of the catalog binary.
//
// The root command only carries global flags; "start" runs the dev server.
package cli

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/interactivethings/catalog-cli/internal/console"
	"github.com/interactivethings/catalog-cli/internal/model"
)

// verbose enables debug logging on stderr.
var verbose bool

// Version, Commit and Date are set from main, which receives them via
// ldflags at build time.
var (
	Version = "dev"
	Commit  = "none"
	Date    = "unknown"
)

// NewRootCommand creates the root command with every subcommand
// registered.
func NewRootCommand() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "catalog",
		Short: "Catalog living style guide tooling",
		Long: `catalog builds and serves Catalog style guides.

Run "catalog start" inside a project to serve its catalog/ directory with
live reload, using the project's Create React App or Next.js setup when
one is detected.`,

		// Errors are printed by Execute.
		SilenceUsage:  true,
		SilenceErrors: true,

		Version: fmt.Sprintf("%s (commit: %s, built: %s)", Version, Commit, Date),
	}

	// Flag parse errors ("--port abc") take the same path as invalid option
	// values ("--port 0"), so both are reported as a failed start.
	rootCmd.SetFlagErrorFunc(func(_ *cobra.Command, err error) error {
		return model.WrapCLIError(model.ExitGeneralError, "invalid flags", err)
	})

	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable verbose output")

	rootCmd.AddCommand(NewStartCommand())

	return rootCmd
}

// Execute runs rootCmd and exits with the code carried by a CLIError, or
// 1 for any other error.
func Execute(rootCmd *cobra.Command) {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(int(printError(console.Std(), err)))
	}
}

// errorPrinter is the part of console.Console printError needs.
type errorPrinter interface {
	Error(msg string)
}

// printError reports err and returns the exit code for it.
//
// Every failure, whether a flag that does not parse, an option that fails
// validation or a pipeline stage, is a failed start: it gets the same
// "Could not start Catalog" report and exit status 1, unless a CLIError
// asks for a different non-zero code.
func printError(out errorPrinter, err error) model.ExitCode {
	out.Error(formatStartError(err))

	var cliErr *model.CLIError
	if errors.As(err, &cliErr) && cliErr.Code != model.ExitSuccess {
		return cliErr.Code
	}
	return model.ExitGeneralError
}

// formatStartError renders the failure report of a start attempt.
func formatStartError(err error) string {
	return "Could not start Catalog\n\n" + err.Error()
}

// newLogger returns the diagnostic logger: debug level with --verbose,
// warnings only otherwise.
func newLogger(w io.Writer) *slog.Logger {
	level := slog.LevelWarn
	if verbose {
		level = slog.LevelDebug
	}
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: level}))
}
