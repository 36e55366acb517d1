// Package workspace acquires the scratch resources of one modcommit run: a
// temporary directory the installer writes into and a temporary index path
// git creates on first use. Both are removed by Close.
package workspace

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
)

const (
	dirPattern   = "modcommit-*"
	indexPattern = "modcommit-index-*"
)

// Workspace is a temporary install directory paired with a temporary
// index file path.
type Workspace struct {
	// Dir is the directory the installer populates and git stages from.
	Dir string

	// IndexFile is a path that does not exist when New returns. git
	// creates it on the first write.
	IndexFile string
}

// New creates a Workspace under base. An empty base means os.TempDir().
// A relative base is resolved against the working directory, so Dir and
// IndexFile are always absolute.
//
// The index file is created to reserve a unique name and removed again
// immediately, because git refuses to read a zero-length index.
func New(base string) (*Workspace, error) {
	if base != "" {
		abs, err := filepath.Abs(base)
		if err != nil {
			return nil, fmt.Errorf("resolve temporary base %s: %w", base, err)
		}
		base = abs
	}

	dir, err := os.MkdirTemp(base, dirPattern)
	if err != nil {
		return nil, fmt.Errorf("create temporary directory: %w", err)
	}

	f, err := os.CreateTemp(base, indexPattern)
	if err != nil {
		_ = os.RemoveAll(dir)
		return nil, fmt.Errorf("create temporary index: %w", err)
	}
	indexFile := f.Name()
	_ = f.Close()

	if err := os.Remove(indexFile); err != nil {
		_ = os.RemoveAll(dir)
		return nil, fmt.Errorf("unlink temporary index: %w", err)
	}

	return &Workspace{Dir: dir, IndexFile: indexFile}, nil
}

// Close removes the directory tree and the index file. It is safe to call
// more than once; missing paths are not an error.
func (w *Workspace) Close() error {
	var errs []error
	if err := os.RemoveAll(w.Dir); err != nil {
		errs = append(errs, fmt.Errorf("remove %s: %w", w.Dir, err))
	}
	// git may also leave index.lock behind if it was interrupted.
	for _, path := range []string{w.IndexFile, w.IndexFile + ".lock"} {
		if err := os.Remove(path); err != nil && !errors.Is(err, os.ErrNotExist) {
			errs = append(errs, fmt.Errorf("remove %s: %w", path, err))
		}
	}
	return errors.Join(errs...)
}
