// Package main is the entry point for the modcommit CLI.
//
// This binary installs package-manager modules into a scratch directory and
// records them as a git commit without touching the caller's checkout. It
// delegates all functionality to the internal/cli package.
//
// Build-time variables (version, commit, date) are injected via ldflags
// during the release process. During development, they default to "dev",
// "none", and "unknown" respectively.
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/mmr-tortoise/modcommit/internal/cli"
)

// version, commit, and date are set at build time via ldflags.
// They provide binary identification for the --version flag output.
var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

func main() {
	// Inject build-time version info into the CLI package.
	cli.Version = version
	cli.Commit = commit
	cli.Date = date

	// Cancel on SIGINT/SIGTERM so subprocesses are killed and the
	// temporary workspace is removed before exit.
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	rootCmd := cli.NewRootCommand()
	rootCmd.SetContext(ctx)
	cli.Execute(rootCmd)
}
