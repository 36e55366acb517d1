// Package model defines the domain types and value objects for the
// modcommit CLI.
//
// This package contains pure data structures with no external dependencies.
// Every value here is transient: it lives for one process invocation and
// describes the inputs and outputs of a single commit build
// (CommitResult, InstalledModule).
//
// The package also defines exit codes (ExitCode) and a custom error type
// (CLIError) that carries exit codes for proper OS process exit handling.
package model
