package installer

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/charmbracelet/log"

	"github.com/mmr-tortoise/modcommit/internal/command"
	"github.com/mmr-tortoise/modcommit/internal/docker"
)

// ContainerWorkDir is where the install directory is mounted inside the
// installer container.
const ContainerWorkDir = "/work"

// containerRunner runs one-shot containers. *docker.Client satisfies it.
type containerRunner interface {
	Run(ctx context.Context, opts docker.RunOptions) (*docker.RunResult, error)
}

// ContainerInstaller runs the installer command inside a container image.
//
// The install directory is bind-mounted at ContainerWorkDir and
// $INSTALL_DIR expands to that path. The process runs as the invoking
// user so the installed files are owned by them on the host.
type ContainerInstaller struct {
	runner      containerRunner
	image       string
	commandLine string
	logger      *log.Logger
	now         func() time.Time
}

// NewContainerInstaller creates a ContainerInstaller for image. An empty
// commandLine means DefaultCommand; a nil logger discards logs.
func NewContainerInstaller(runner containerRunner, image, commandLine string, logger *log.Logger) *ContainerInstaller {
	if commandLine == "" {
		commandLine = DefaultCommand
	}
	if logger == nil {
		logger = log.New(io.Discard)
	}
	return &ContainerInstaller{
		runner:      runner,
		image:       image,
		commandLine: commandLine,
		logger:      logger,
		now:         time.Now,
	}
}

// Install runs the installer for modules in a container with dir mounted.
// A non-zero container exit is returned as *command.Error named after the
// image.
func (i *ContainerInstaller) Install(ctx context.Context, dir string, modules []string) error {
	hostDir, err := filepath.Abs(dir)
	if err != nil {
		return fmt.Errorf("resolve install directory: %w", err)
	}

	argv, err := Argv(i.commandLine, ContainerWorkDir, modules)
	if err != nil {
		return err
	}

	opts := docker.RunOptions{
		Image:   i.image,
		Cmd:     argv,
		HostDir: hostDir,
		WorkDir: ContainerWorkDir,
		User:    hostUser(),
		// HOME must be writable by an arbitrary uid for npm's cache.
		Env:    []string{"HOME=/tmp", InstallDirVar + "=" + ContainerWorkDir},
		Labels: docker.BuildLabels(modules, i.now()),
	}
	i.logger.Debug("running installer container", "image", i.image, "cmd", strings.Join(argv, " "), "mount", hostDir)

	res, err := i.runner.Run(ctx, opts)
	if err != nil {
		return err
	}
	if out := strings.TrimSpace(res.Stdout); out != "" {
		i.logger.Debug("installer output", "stdout", out)
	}
	if res.ExitCode != 0 {
		return &command.Error{
			Name:       i.image,
			Args:       argv,
			ExitStatus: int(res.ExitCode),
			Stderr:     strings.TrimSpace(res.Stderr),
		}
	}
	return nil
}

// hostUser returns "uid:gid" of the current process, or "" where the
// platform has no numeric ids.
func hostUser() string {
	uid, gid := os.Getuid(), os.Getgid()
	if uid < 0 || gid < 0 {
		return ""
	}
	return fmt.Sprintf("%d:%d", uid, gid)
}
