package installer

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/charmbracelet/log"
	"mvdan.cc/sh/v3/shell"

	"github.com/mmr-tortoise/modcommit/internal/command"
)

// InstallDirVar is the variable that expands to the install directory in
// the configured command line.
const InstallDirVar = "INSTALL_DIR"

// DefaultCommand installs with npm into $INSTALL_DIR without writing a
// lockfile or touching any project outside the directory.
const DefaultCommand = `npm install --no-save --no-package-lock --no-audit --no-fund --prefix "$INSTALL_DIR"`

// Installer installs modules into dir.
type Installer interface {
	Install(ctx context.Context, dir string, modules []string) error
}

// Executor runs external commands. *command.Runner satisfies it.
type Executor interface {
	Run(ctx context.Context, c command.Cmd) (string, error)
}

// Argv splits commandLine into an argument vector and appends modules.
//
// $INSTALL_DIR expands to installDir; every other variable expands from
// the process environment. Quoting follows POSIX shell rules.
func Argv(commandLine, installDir string, modules []string) ([]string, error) {
	fields, err := shell.Fields(commandLine, func(name string) string {
		if name == InstallDirVar {
			return installDir
		}
		return os.Getenv(name)
	})
	if err != nil {
		return nil, fmt.Errorf("parse installer command %q: %w", commandLine, err)
	}
	if len(fields) == 0 {
		return nil, fmt.Errorf("installer command is empty")
	}
	return append(fields, modules...), nil
}

// ExecInstaller runs the installer command on the host with the install
// directory as its working directory.
type ExecInstaller struct {
	exec        Executor
	commandLine string
	logger      *log.Logger
}

// NewExecInstaller creates an ExecInstaller. An empty commandLine means
// DefaultCommand; a nil logger discards logs.
func NewExecInstaller(exec Executor, commandLine string, logger *log.Logger) *ExecInstaller {
	if commandLine == "" {
		commandLine = DefaultCommand
	}
	if logger == nil {
		logger = log.New(io.Discard)
	}
	return &ExecInstaller{exec: exec, commandLine: commandLine, logger: logger}
}

// Install runs the installer for modules in dir. A non-zero exit status is
// returned as *command.Error.
func (i *ExecInstaller) Install(ctx context.Context, dir string, modules []string) error {
	argv, err := Argv(i.commandLine, dir, modules)
	if err != nil {
		return err
	}

	out, err := i.exec.Run(ctx, command.Cmd{Name: argv[0], Args: argv[1:], Dir: dir})
	if out = strings.TrimSpace(out); out != "" {
		i.logger.Debug("installer output", "stdout", out)
	}
	return err
}
