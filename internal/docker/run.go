package docker

import (
	"bytes"
	"context"
	"fmt"
	"io"

	cerrdefs "github.com/containerd/errdefs"
	"github.com/docker/docker/api/types/container"
	"github.com/docker/docker/api/types/image"
	"github.com/docker/docker/api/types/network"
	"github.com/docker/docker/pkg/stdcopy"
	ocispec "github.com/opencontainers/image-spec/specs-go/v1"

	"github.com/mmr-tortoise/modcommit/internal/model"
)

// containerAPI is the subset of the Docker SDK client used by Run.
// *client.Client satisfies it.
type containerAPI interface {
	ContainerCreate(ctx context.Context, config *container.Config, hostConfig *container.HostConfig, networkingConfig *network.NetworkingConfig, platform *ocispec.Platform, containerName string) (container.CreateResponse, error)
	ContainerStart(ctx context.Context, containerID string, options container.StartOptions) error
	ContainerWait(ctx context.Context, containerID string, condition container.WaitCondition) (<-chan container.WaitResponse, <-chan error)
	ContainerLogs(ctx context.Context, containerID string, options container.LogsOptions) (io.ReadCloser, error)
	ContainerRemove(ctx context.Context, containerID string, options container.RemoveOptions) error
	ImagePull(ctx context.Context, refStr string, options image.PullOptions) (io.ReadCloser, error)
}

// RunOptions describes a one-shot container run.
type RunOptions struct {
	// Image is the image reference, pulled when not present locally.
	Image string

	// Cmd is the argv run inside the container.
	Cmd []string

	// HostDir is bind-mounted read-write at WorkDir.
	HostDir string

	// WorkDir is the mount point and working directory inside the container.
	WorkDir string

	// User is the "uid:gid" the process runs as. Empty keeps the image default.
	User string

	// Env holds KEY=VALUE pairs for the container process.
	Env []string

	// Labels are applied to the container.
	Labels map[string]string
}

// RunResult is the outcome of a container run that reached completion.
type RunResult struct {
	// ExitCode is the exit status of the container's main process.
	ExitCode int64

	// Stdout and Stderr are the demultiplexed container logs.
	Stdout string
	Stderr string
}

// Run creates a container from opts, starts it, waits for it to exit and
// returns its exit code and logs. The container is removed afterwards,
// also when ctx is cancelled.
//
// A non-zero exit code is not an error: callers decide how to report it.
// Errors are returned as model.CLIError with ExitDockerNotRunning.
func (c *Client) Run(ctx context.Context, opts RunOptions) (*RunResult, error) {
	return run(ctx, c.inner, opts)
}

func run(ctx context.Context, api containerAPI, opts RunOptions) (*RunResult, error) {
	cfg, hostCfg := containerSpec(opts)

	created, err := api.ContainerCreate(ctx, cfg, hostCfg, nil, nil, "")
	if err != nil && cerrdefs.IsNotFound(err) {
		if pullErr := pullImage(ctx, api, opts.Image); pullErr != nil {
			return nil, model.WrapCLIError(model.ExitDockerNotRunning,
				fmt.Sprintf("failed to pull image %q", opts.Image), pullErr)
		}
		created, err = api.ContainerCreate(ctx, cfg, hostCfg, nil, nil, "")
	}
	if err != nil {
		return nil, model.WrapCLIError(model.ExitDockerNotRunning,
			fmt.Sprintf("failed to create container from %q", opts.Image), err)
	}

	defer func() {
		// Removal must survive cancellation of ctx.
		_ = api.ContainerRemove(context.WithoutCancel(ctx), created.ID, container.RemoveOptions{Force: true})
	}()

	// Register the wait before starting so a fast exit is not missed.
	statusCh, errCh := api.ContainerWait(ctx, created.ID, container.WaitConditionNextExit)

	if err := api.ContainerStart(ctx, created.ID, container.StartOptions{}); err != nil {
		return nil, model.WrapCLIError(model.ExitDockerNotRunning,
			fmt.Sprintf("failed to start container %q", created.ID), err)
	}

	var exitCode int64
	select {
	case err := <-errCh:
		return nil, model.WrapCLIError(model.ExitDockerNotRunning,
			fmt.Sprintf("failed waiting for container %q", created.ID), err)
	case status := <-statusCh:
		if status.Error != nil && status.Error.Message != "" {
			return nil, model.WrapCLIError(model.ExitDockerNotRunning,
				fmt.Sprintf("container %q failed", created.ID), fmt.Errorf("%s", status.Error.Message))
		}
		exitCode = status.StatusCode
	}

	stdout, stderr, err := collectLogs(ctx, api, created.ID)
	if err != nil {
		return nil, model.WrapCLIError(model.ExitDockerNotRunning,
			fmt.Sprintf("failed to read logs of container %q", created.ID), err)
	}

	return &RunResult{ExitCode: exitCode, Stdout: stdout, Stderr: stderr}, nil
}

// containerSpec translates RunOptions into Docker API configuration.
func containerSpec(opts RunOptions) (*container.Config, *container.HostConfig) {
	cfg := &container.Config{
		Image:      opts.Image,
		Cmd:        opts.Cmd,
		WorkingDir: opts.WorkDir,
		User:       opts.User,
		Env:        opts.Env,
		Labels:     opts.Labels,
	}
	hostCfg := &container.HostConfig{
		Binds: []string{opts.HostDir + ":" + opts.WorkDir},
	}
	return cfg, hostCfg
}

// pullImage pulls ref and drains the progress stream, which must be read
// to completion for the pull to finish.
func pullImage(ctx context.Context, api containerAPI, ref string) error {
	rc, err := api.ImagePull(ctx, ref, image.PullOptions{})
	if err != nil {
		return err
	}
	defer rc.Close()

	_, err = io.Copy(io.Discard, rc)
	return err
}

// collectLogs reads the container's multiplexed log stream into separate
// stdout and stderr strings.
func collectLogs(ctx context.Context, api containerAPI, id string) (string, string, error) {
	rc, err := api.ContainerLogs(ctx, id, container.LogsOptions{ShowStdout: true, ShowStderr: true})
	if err != nil {
		return "", "", err
	}
	defer rc.Close()

	var stdout, stderr bytes.Buffer
	if _, err := stdcopy.StdCopy(&stdout, &stderr, rc); err != nil {
		return "", "", err
	}
	return stdout.String(), stderr.String(), nil
}
