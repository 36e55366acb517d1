package plumbing

import (
	"context"
	"fmt"
	"strings"

	"github.com/mmr-tortoise/modcommit/internal/command"
)

// DefaultBinary is the git executable used when none is configured.
const DefaultBinary = "git"

// EmptyTreeSHA1 is the id git assigns to a tree with no entries in a
// SHA-1 repository.
const EmptyTreeSHA1 = "4b825dc642cb6eb9a060e54bf8d69288fbee4904"

// Executor runs external commands. *command.Runner satisfies it; tests may
// substitute a recorder.
type Executor interface {
	Run(ctx context.Context, c command.Cmd) (string, error)
}

// Options configures how the repository is located.
type Options struct {
	// Binary is the git executable. Empty means DefaultBinary.
	Binary string

	// RepoPath is the directory repository discovery starts from
	// (passed to git via -C). Empty means the working directory; the CLI
	// sets it from --repo/-C.
	RepoPath string

	// GitDir, when set, is passed as GIT_DIR and skips discovery.
	GitDir string
}

// WorkTree is an isolated work tree and index used to build one tree object.
type WorkTree struct {
	// Dir is the directory whose contents are staged.
	Dir string

	// IndexFile is the index path git reads and writes instead of the
	// repository's own index.
	IndexFile string
}

// Repo issues git plumbing commands against one repository.
//
// Every command carries GIT_DIR explicitly, so the result does not depend
// on the working directory the command happens to run in.
type Repo struct {
	exec   Executor
	binary string
	gitDir string
}

// Open resolves the repository's git directory and returns a Repo bound to it.
//
// It runs `git rev-parse --absolute-git-dir`, which honours GIT_DIR when
// Options.GitDir is set and otherwise performs standard discovery from
// Options.RepoPath.
func Open(ctx context.Context, exec Executor, opts Options) (*Repo, error) {
	binary := opts.Binary
	if binary == "" {
		binary = DefaultBinary
	}

	c := command.Cmd{Name: binary, Args: []string{"rev-parse", "--absolute-git-dir"}}
	if opts.RepoPath != "" {
		c.Args = append([]string{"-C", opts.RepoPath}, c.Args...)
	}
	if opts.GitDir != "" {
		c.Env = []string{"GIT_DIR=" + opts.GitDir}
	}

	out, err := exec.Run(ctx, c)
	if err != nil {
		return nil, fmt.Errorf("locate git directory: %w", err)
	}

	gitDir := strings.TrimSpace(out)
	if gitDir == "" {
		return nil, fmt.Errorf("locate git directory: git printed an empty path")
	}

	return &Repo{exec: exec, binary: binary, gitDir: gitDir}, nil
}

// GitDir returns the absolute path of the repository's git directory.
func (r *Repo) GitDir() string {
	return r.gitDir
}

// ResolveCommit resolves ref to a full commit id.
//
// The ^{commit} suffix peels annotated tags and rejects refs that name
// trees or blobs, so the result is always usable as a commit parent.
func (r *Repo) ResolveCommit(ctx context.Context, ref string) (string, error) {
	out, err := r.git(ctx, command.Cmd{
		Args: []string{"rev-parse", "--verify", "--quiet", ref + "^{commit}"},
	})
	if err != nil {
		return "", fmt.Errorf("resolve %q to a commit: %w", ref, err)
	}
	return parseObjectID(out)
}

// StageAll stages every file under wt.Dir into wt.IndexFile.
//
// --force bypasses .gitignore and the user's exclude files: installed
// packages are committed exactly as the installer laid them out.
func (r *Repo) StageAll(ctx context.Context, wt WorkTree) error {
	_, err := r.git(ctx, command.Cmd{
		Args: []string{"add", "--all", "--force"},
		Dir:  wt.Dir,
		Env:  wt.env(),
	})
	return err
}

// WriteTree writes the contents of wt.IndexFile as a tree object and
// returns its id. A missing or empty index yields the empty tree.
func (r *Repo) WriteTree(ctx context.Context, wt WorkTree) (string, error) {
	out, err := r.git(ctx, command.Cmd{
		Args: []string{"write-tree"},
		Dir:  wt.Dir,
		Env:  wt.env(),
	})
	if err != nil {
		return "", err
	}
	return parseObjectID(out)
}

// CommitTree creates a commit object for tree with a single parent and
// returns its id. The message is passed on stdin. No ref is updated.
func (r *Repo) CommitTree(ctx context.Context, tree, parent, message string) (string, error) {
	out, err := r.git(ctx, command.Cmd{
		Args:  []string{"commit-tree", tree, "-p", parent},
		Stdin: []byte(message + "\n"),
	})
	if err != nil {
		return "", err
	}
	return parseObjectID(out)
}

// git runs the configured git binary with GIT_DIR pinned to this repository.
func (r *Repo) git(ctx context.Context, c command.Cmd) (string, error) {
	c.Name = r.binary
	c.Env = append([]string{"GIT_DIR=" + r.gitDir}, c.Env...)
	return r.exec.Run(ctx, c)
}

// env returns the overrides that point git at the isolated work tree and index.
func (wt WorkTree) env() []string {
	return []string{
		"GIT_WORK_TREE=" + wt.Dir,
		"GIT_INDEX_FILE=" + wt.IndexFile,
	}
}

// parseObjectID validates a single hex object id printed by git.
// Both SHA-1 (40) and SHA-256 (64) repositories are accepted.
func parseObjectID(out string) (string, error) {
	id := strings.TrimSpace(out)
	if len(id) != 40 && len(id) != 64 {
		return "", fmt.Errorf("unexpected git output %q: want an object id", id)
	}
	for _, r := range id {
		if (r < '0' || r > '9') && (r < 'a' || r > 'f') {
			return "", fmt.Errorf("unexpected git output %q: want an object id", id)
		}
	}
	return id, nil
}
