package docker

import (
	"bytes"
	"context"
	"errors"
	"io"
	"testing"
	"time"

	cerrdefs "github.com/containerd/errdefs"
	"github.com/docker/docker/api/types/container"
	"github.com/docker/docker/api/types/image"
	"github.com/docker/docker/api/types/network"
	"github.com/docker/docker/pkg/stdcopy"
	ocispec "github.com/opencontainers/image-spec/specs-go/v1"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mmr-tortoise/modcommit/internal/model"
)

// fakeAPI is an in-memory containerAPI that records calls.
type fakeAPI struct {
	imagePresent bool
	exitCode     int64
	stdout       string
	stderr       string
	startErr     error

	pulled  []string
	created []*container.Config
	hosts   []*container.HostConfig
	removed []string
}

func (f *fakeAPI) ContainerCreate(_ context.Context, cfg *container.Config, host *container.HostConfig, _ *network.NetworkingConfig, _ *ocispec.Platform, _ string) (container.CreateResponse, error) {
	if !f.imagePresent {
		return container.CreateResponse{}, cerrdefs.ErrNotFound.WithMessage("No such image: " + cfg.Image)
	}
	f.created = append(f.created, cfg)
	f.hosts = append(f.hosts, host)
	return container.CreateResponse{ID: "c0ffee"}, nil
}

func (f *fakeAPI) ContainerStart(context.Context, string, container.StartOptions) error {
	return f.startErr
}

func (f *fakeAPI) ContainerWait(context.Context, string, container.WaitCondition) (<-chan container.WaitResponse, <-chan error) {
	statusCh := make(chan container.WaitResponse, 1)
	statusCh <- container.WaitResponse{StatusCode: f.exitCode}
	return statusCh, make(chan error)
}

func (f *fakeAPI) ContainerLogs(context.Context, string, container.LogsOptions) (io.ReadCloser, error) {
	var buf bytes.Buffer
	if f.stdout != "" {
		_, _ = stdcopy.NewStdWriter(&buf, stdcopy.Stdout).Write([]byte(f.stdout))
	}
	if f.stderr != "" {
		_, _ = stdcopy.NewStdWriter(&buf, stdcopy.Stderr).Write([]byte(f.stderr))
	}
	return io.NopCloser(&buf), nil
}

func (f *fakeAPI) ContainerRemove(_ context.Context, id string, _ container.RemoveOptions) error {
	f.removed = append(f.removed, id)
	return nil
}

func (f *fakeAPI) ImagePull(_ context.Context, ref string, _ image.PullOptions) (io.ReadCloser, error) {
	f.pulled = append(f.pulled, ref)
	f.imagePresent = true
	return io.NopCloser(bytes.NewReader([]byte(`{"status":"Pulling"}`))), nil
}

func testRunOptions() RunOptions {
	return RunOptions{
		Image:   "node:22-alpine",
		Cmd:     []string{"npm", "install", "--prefix", "/work", "lodash"},
		HostDir: "/tmp/modcommit-123",
		WorkDir: "/work",
		User:    "1000:1000",
		Env:     []string{"HOME=/tmp"},
		Labels:  BuildLabels([]string{"lodash"}, time.Date(2026, 10, 19, 12, 0, 0, 0, time.UTC)),
	}
}

// TestRunSuccess verifies the happy path: logs are demultiplexed, the exit
// code is reported and the container is removed.
func TestRunSuccess(t *testing.T) {
	api := &fakeAPI{imagePresent: true, stdout: "added 1 package\n", stderr: "npm warn\n"}

	res, err := run(context.Background(), api, testRunOptions())
	require.NoError(t, err)

	assert.Equal(t, int64(0), res.ExitCode)
	assert.Equal(t, "added 1 package\n", res.Stdout)
	assert.Equal(t, "npm warn\n", res.Stderr)
	assert.Empty(t, api.pulled, "present image must not be pulled")
	assert.Equal(t, []string{"c0ffee"}, api.removed)
}

// TestRunPullsMissingImage verifies that a missing image is pulled and the
// create is retried.
func TestRunPullsMissingImage(t *testing.T) {
	api := &fakeAPI{imagePresent: false}

	_, err := run(context.Background(), api, testRunOptions())
	require.NoError(t, err)

	assert.Equal(t, []string{"node:22-alpine"}, api.pulled)
	assert.Len(t, api.created, 1)
}

// TestRunNonZeroExit verifies that a failing installer is reported through
// RunResult rather than as an error, and the container is still removed.
func TestRunNonZeroExit(t *testing.T) {
	api := &fakeAPI{imagePresent: true, exitCode: 1, stderr: "npm error 404 Not Found\n"}

	res, err := run(context.Background(), api, testRunOptions())
	require.NoError(t, err)
	assert.Equal(t, int64(1), res.ExitCode)
	assert.Contains(t, res.Stderr, "404")
	assert.Equal(t, []string{"c0ffee"}, api.removed)
}

// TestRunStartFailure verifies that a start failure is a Docker error and
// the created container is removed.
func TestRunStartFailure(t *testing.T) {
	api := &fakeAPI{imagePresent: true, startErr: errors.New("mount denied")}

	_, err := run(context.Background(), api, testRunOptions())
	require.Error(t, err)

	var cliErr *model.CLIError
	require.True(t, errors.As(err, &cliErr))
	assert.Equal(t, model.ExitDockerNotRunning, cliErr.Code)
	assert.Equal(t, []string{"c0ffee"}, api.removed)
}

// TestContainerSpec verifies the translation of RunOptions into API config.
func TestContainerSpec(t *testing.T) {
	opts := testRunOptions()
	cfg, host := containerSpec(opts)

	assert.Equal(t, "node:22-alpine", cfg.Image)
	assert.Equal(t, []string(opts.Cmd), []string(cfg.Cmd))
	assert.Equal(t, "/work", cfg.WorkingDir)
	assert.Equal(t, "1000:1000", cfg.User)
	assert.Equal(t, []string{"HOME=/tmp"}, cfg.Env)
	assert.True(t, isManaged(cfg.Labels))
	assert.Equal(t, []string{"/tmp/modcommit-123:/work"}, host.Binds)
}

// TestBuildLabels verifies the label set stamped on installer containers.
func TestBuildLabels(t *testing.T) {
	created := time.Date(2026, 10, 19, 21, 30, 0, 0, time.FixedZone("JST", 9*3600))
	labels := BuildLabels([]string{"lodash", "@types/node"}, created)

	assert.Equal(t, map[string]string{
		"modcommit.managed-by": "modcommit",
		"modcommit.modules":    "lodash,@types/node",
		"modcommit.created-at": "2026-10-19T12:30:00Z",
	}, labels)
}

// TestIsManaged verifies detection of modcommit-owned containers.
func TestIsManaged(t *testing.T) {
	assert.True(t, isManaged(map[string]string{LabelManagedBy: ManagedByValue}))
	assert.False(t, isManaged(map[string]string{LabelManagedBy: "someone-else"}))
	assert.False(t, isManaged(nil))
}

// TestDetectUnixSocket verifies socket probing order and the not-found error.
func TestDetectUnixSocket(t *testing.T) {
	existing := t.TempDir()

	host, err := detectUnixSocket([]string{"/nonexistent/docker.sock", existing})
	require.NoError(t, err)
	assert.Equal(t, "unix://"+existing, host)

	_, err = detectUnixSocket([]string{"/nonexistent/a.sock", "/nonexistent/b.sock"})
	assert.Error(t, err)
}
