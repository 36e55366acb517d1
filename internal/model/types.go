package model

import (
	"fmt"
	"strings"
)

// DefaultParent is the parent reference used when --parent is not given.
const DefaultParent = "HEAD"

// InstalledModule describes one module requested on the command line after
// the installer has run.
type InstalledModule struct {
	// Name is the module name exactly as passed on the command line
	// (e.g., "lodash" or "@types/node").
	Name string `json:"name"`

	// Version is read from the installed package.json. Empty when the
	// installer did not produce a manifest for this module.
	Version string `json:"version,omitempty"`
}

// String returns "name@version", or just the name when the version is unknown.
func (m InstalledModule) String() string {
	if m.Version == "" {
		return m.Name
	}
	return m.Name + "@" + m.Version
}

// CommitResult holds the object identifiers produced by one run.
type CommitResult struct {
	// Parent is the resolved commit id the new commit is parented on.
	Parent string `json:"parent"`

	// Tree is the id of the tree object built from the installed files.
	Tree string `json:"tree"`

	// Commit is the id of the new commit object. No ref points at it.
	Commit string `json:"commit"`

	// Message is the commit message that was recorded.
	Message string `json:"message"`

	// Modules lists the requested modules in argument order.
	Modules []InstalledModule `json:"modules"`
}

// CommitMessage builds the fixed commit message listing the modules in the
// order they were requested.
func CommitMessage(modules []string) string {
	if len(modules) == 0 {
		return "Install (no modules)"
	}
	return "Install " + strings.Join(modules, " ")
}

// ValidateModuleName rejects names the installer would misread. A leading
// dash would be parsed as an installer option rather than a module.
func ValidateModuleName(name string) error {
	if strings.TrimSpace(name) == "" {
		return fmt.Errorf("module name must not be empty")
	}
	if strings.HasPrefix(name, "-") {
		return fmt.Errorf("invalid module name %q: must not start with '-'", name)
	}
	return nil
}

// ExitCode defines standard CLI exit codes.
// These codes allow scripts and CI systems to programmatically determine
// which stage of the pipeline failed.
type ExitCode int

const (
	// ExitSuccess indicates the command completed successfully.
	ExitSuccess ExitCode = 0

	// ExitGeneralError indicates an unspecified error occurred.
	ExitGeneralError ExitCode = 1

	// ExitUsage indicates unrecognized options or invalid arguments.
	ExitUsage ExitCode = 2

	// ExitParentNotFound indicates the --parent reference does not name a commit.
	ExitParentNotFound ExitCode = 3

	// ExitInstallFailed indicates the package installer exited non-zero.
	ExitInstallFailed ExitCode = 4

	// ExitGitError indicates a git plumbing command failed.
	ExitGitError ExitCode = 5

	// ExitDockerNotRunning indicates the Docker daemon is not accessible
	// when a container installer was requested.
	ExitDockerNotRunning ExitCode = 6

	// ExitConfigInvalid indicates the configuration file could not be loaded.
	ExitConfigInvalid ExitCode = 7
)

// CLIError is a custom error type that carries an exit code.
// This allows the CLI layer to translate domain errors into
// appropriate process exit codes.
type CLIError struct {
	// Code is the exit code to return to the OS.
	Code ExitCode

	// Message is the human-readable error description.
	Message string

	// Err is the underlying error, if any.
	Err error
}

// Error satisfies the error interface. It returns the human-readable
// error message, optionally including the underlying error.
func (e *CLIError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

// Unwrap returns the underlying error for use with errors.Is/errors.As.
func (e *CLIError) Unwrap() error {
	return e.Err
}

// NewCLIError creates a new CLIError with the given exit code and message.
func NewCLIError(code ExitCode, message string) *CLIError {
	return &CLIError{Code: code, Message: message}
}

// WrapCLIError creates a new CLIError that wraps an existing error.
func WrapCLIError(code ExitCode, message string, err error) *CLIError {
	return &CLIError{Code: code, Message: message, Err: err}
}
