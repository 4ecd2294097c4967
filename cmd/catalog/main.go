// Package main is the entry point for the catalog CLI.
//
// Build-time variables (version, commit, date) are injected via ldflags
// and default to "dev", "none" and "unknown" in local builds.
package main

import (
	"github.com/interactivethings/catalog-cli/internal/cli"
)

var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

func main() {
	cli.Version = version
	cli.Commit = commit
	cli.Date = date

	cli.Execute(cli.NewRootCommand())
}
