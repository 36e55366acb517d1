// Package docker provides Docker Engine API wrappers for running the
// package installer inside a container.
//
// This package handles:
//   - Docker client initialization with automatic socket detection
//     (Linux, macOS, Windows)
//   - Labels that mark installer containers as owned by modcommit
//   - One-shot container runs: create (pulling the image if needed),
//     start, wait, collect logs, remove
//
// The package uses github.com/docker/docker/client as the underlying
// Docker SDK, with version negotiation enabled for broad compatibility.
package docker
