package command

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"strings"

	"github.com/charmbracelet/log"
)

// Cmd describes one external program invocation.
type Cmd struct {
	// Name is the program to run, resolved through PATH.
	Name string

	// Args are passed to the program verbatim.
	Args []string

	// Dir is the working directory. Empty means the current directory.
	Dir string

	// Env holds KEY=VALUE overrides appended to the inherited environment.
	// Later entries win, so an override replaces an inherited value for
	// this subprocess only.
	Env []string

	// Stdin, when non-nil, is written to the program's standard input.
	Stdin []byte
}

// String renders the command line for logs and error messages.
func (c Cmd) String() string {
	if len(c.Args) == 0 {
		return c.Name
	}
	return c.Name + " " + strings.Join(c.Args, " ")
}

// Error reports an external command that could not be started or that
// exited with a non-zero status.
type Error struct {
	// Name is the program that was run.
	Name string

	// Args are the arguments it was run with.
	Args []string

	// ExitStatus is the process exit status, or -1 when the program
	// could not be started or was killed by a signal.
	ExitStatus int

	// Stderr is the trimmed standard error output, if any.
	Stderr string

	// Err is the underlying error from os/exec.
	Err error
}

// Error renders the command line, exit status and stderr. When the program
// never ran, the start error replaces the exit status.
func (e *Error) Error() string {
	msg := fmt.Sprintf("command failed: %s (exit status %d)", Cmd{Name: e.Name, Args: e.Args}, e.ExitStatus)
	if e.ExitStatus < 0 && e.Err != nil {
		msg = fmt.Sprintf("command failed: %s: %v", Cmd{Name: e.Name, Args: e.Args}, e.Err)
	}
	if e.Stderr != "" {
		msg += ": " + e.Stderr
	}
	return msg
}

// Unwrap returns the underlying os/exec error for use with errors.Is/errors.As.
func (e *Error) Unwrap() error {
	return e.Err
}

// Runner executes Cmds and captures their standard output.
type Runner struct {
	logger *log.Logger
}

// NewRunner creates a Runner that debug-logs every invocation to logger.
// A nil logger discards the logs.
func NewRunner(logger *log.Logger) *Runner {
	if logger == nil {
		logger = log.New(io.Discard)
	}
	return &Runner{logger: logger}
}

// Run executes c and returns its standard output.
//
// On a non-zero exit status the returned error is an *Error carrying the
// command name, arguments, exit status and stderr. Run blocks until the
// program exits or ctx is cancelled.
func (r *Runner) Run(ctx context.Context, c Cmd) (string, error) {
	r.logger.Debug("exec", "cmd", c.String(), "dir", c.Dir, "env", c.Env)

	// #nosec G204 -- the program and arguments come from configuration and
	// the command line of the user running modcommit.
	cmd := exec.CommandContext(ctx, c.Name, c.Args...)
	cmd.Dir = c.Dir
	if len(c.Env) > 0 {
		cmd.Env = append(os.Environ(), c.Env...)
	}
	if c.Stdin != nil {
		cmd.Stdin = bytes.NewReader(c.Stdin)
	}

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		status := -1
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			status = exitErr.ExitCode()
		}
		return "", &Error{
			Name:       c.Name,
			Args:       c.Args,
			ExitStatus: status,
			Stderr:     strings.TrimSpace(stderr.String()),
			Err:        err,
		}
	}

	return stdout.String(), nil
}
