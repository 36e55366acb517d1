package docker

import (
	"context"
	"fmt"
	"net"
	"os"
	"path/filepath"
	"runtime"
	"time"

	"github.com/docker/docker/client"

	"github.com/mmr-tortoise/modcommit/internal/model"
)

// defaultPingTimeout bounds the daemon health check. Docker Desktop on
// macOS can take a few seconds to answer.
const defaultPingTimeout = 5 * time.Second

// Client wraps the Docker Engine SDK client. It is created with automatic
// socket detection and exposes only what the installer needs.
type Client struct {
	inner *client.Client
}

// NewClient creates a Docker client.
//
// DOCKER_HOST wins when set. Otherwise the platform's default socket
// locations are probed:
//   - Linux: /var/run/docker.sock
//   - macOS: /var/run/docker.sock, then ~/.docker/run/docker.sock
//   - Windows: npipe:////./pipe/docker_engine
//
// Failures are returned as model.CLIError with ExitDockerNotRunning.
func NewClient() (*Client, error) {
	if host := os.Getenv("DOCKER_HOST"); host != "" {
		return newClientWithHost(host)
	}

	host, err := detectDockerHost()
	if err != nil {
		return nil, model.WrapCLIError(model.ExitDockerNotRunning, "Docker socket not found", err)
	}
	return newClientWithHost(host)
}

func newClientWithHost(host string) (*Client, error) {
	c, err := client.NewClientWithOpts(
		client.WithHost(host),
		client.WithAPIVersionNegotiation(),
	)
	if err != nil {
		return nil, model.WrapCLIError(
			model.ExitDockerNotRunning,
			fmt.Sprintf("failed to create Docker client for host %q", host),
			err,
		)
	}
	return &Client{inner: c}, nil
}

// detectDockerHost returns the Docker host URI for the current platform.
// It only checks that a socket exists; Ping verifies the daemon answers.
func detectDockerHost() (string, error) {
	switch runtime.GOOS {
	case "linux":
		return detectUnixSocket([]string{"/var/run/docker.sock"})

	case "darwin":
		paths := []string{"/var/run/docker.sock"}
		if home, err := os.UserHomeDir(); err == nil {
			paths = append(paths, filepath.Join(home, ".docker", "run", "docker.sock"))
		}
		return detectUnixSocket(paths)

	case "windows":
		// os.Stat does not work on named pipes, so probe with a dial.
		pipePath := `//./pipe/docker_engine`
		conn, err := net.DialTimeout("pipe", pipePath, time.Second)
		if err != nil {
			return "", fmt.Errorf("Docker named pipe not found at %s: %w", pipePath, err)
		}
		_ = conn.Close()
		return "npipe://" + pipePath, nil

	default:
		return "", fmt.Errorf("unsupported platform: %s", runtime.GOOS)
	}
}

// detectUnixSocket returns the unix:// URI of the first existing path.
func detectUnixSocket(paths []string) (string, error) {
	for _, path := range paths {
		if _, err := os.Stat(path); err == nil {
			return "unix://" + path, nil
		}
	}
	return "", fmt.Errorf("Docker socket not found at any of: %v (is Docker running?)", paths)
}

// Ping verifies that the Docker daemon is reachable and responsive.
func (c *Client) Ping(ctx context.Context) error {
	pingCtx, cancel := context.WithTimeout(ctx, defaultPingTimeout)
	defer cancel()

	if _, err := c.inner.Ping(pingCtx); err != nil {
		return model.WrapCLIError(
			model.ExitDockerNotRunning,
			"Docker daemon is not responding (is Docker running?)",
			err,
		)
	}
	return nil
}

// Close releases the client's connections. Safe to call more than once.
func (c *Client) Close() error {
	if c.inner != nil {
		return c.inner.Close()
	}
	return nil
}
