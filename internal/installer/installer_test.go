package installer

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mmr-tortoise/modcommit/internal/command"
)

// recordingExecutor records the commands it is asked to run.
type recordingExecutor struct {
	cmds []command.Cmd
	err  error
}

func (r *recordingExecutor) Run(_ context.Context, c command.Cmd) (string, error) {
	r.cmds = append(r.cmds, c)
	return "", r.err
}

// TestArgv verifies command-line splitting, $INSTALL_DIR expansion and
// module appending.
func TestArgv(t *testing.T) {
	t.Setenv("MODCOMMIT_TEST_REGISTRY", "https://registry.example.test")

	tests := []struct {
		name        string
		commandLine string
		installDir  string
		modules     []string
		want        []string
		wantErr     bool
	}{
		{
			name:        "default command",
			commandLine: DefaultCommand,
			installDir:  "/tmp/modcommit-1",
			modules:     []string{"lodash", "@types/node"},
			want: []string{
				"npm", "install", "--no-save", "--no-package-lock", "--no-audit", "--no-fund",
				"--prefix", "/tmp/modcommit-1", "lodash", "@types/node",
			},
		},
		{
			name:        "install dir with spaces stays one word",
			commandLine: `npm install --prefix "$INSTALL_DIR"`,
			installDir:  "/tmp/my dir",
			modules:     []string{"left-pad"},
			want:        []string{"npm", "install", "--prefix", "/tmp/my dir", "left-pad"},
		},
		{
			name:        "other variables come from the environment",
			commandLine: `npm install --registry=$MODCOMMIT_TEST_REGISTRY`,
			installDir:  "/tmp/x",
			want:        []string{"npm", "install", "--registry=https://registry.example.test"},
		},
		{
			name:        "single quotes suppress expansion",
			commandLine: `sh -c 'echo $INSTALL_DIR'`,
			installDir:  "/tmp/x",
			modules:     []string{"a"},
			want:        []string{"sh", "-c", "echo $INSTALL_DIR", "a"},
		},
		{
			name:        "module names are not expanded",
			commandLine: "pnpm add",
			installDir:  "/tmp/x",
			modules:     []string{"$HOME"},
			want:        []string{"pnpm", "add", "$HOME"},
		},
		{
			name:        "empty command",
			commandLine: "   ",
			wantErr:     true,
		},
		{
			name:        "unterminated quote",
			commandLine: `npm install "oops`,
			wantErr:     true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Argv(tt.commandLine, tt.installDir, tt.modules)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

// TestExecInstallerRunsInDir verifies that the installer runs with the
// install directory as its working directory.
func TestExecInstallerRunsInDir(t *testing.T) {
	rec := &recordingExecutor{}
	inst := NewExecInstaller(rec, "", nil)

	require.NoError(t, inst.Install(context.Background(), "/tmp/modcommit-9", []string{"lodash"}))

	require.Len(t, rec.cmds, 1)
	c := rec.cmds[0]
	assert.Equal(t, "npm", c.Name)
	assert.Equal(t, "/tmp/modcommit-9", c.Dir)
	assert.Equal(t, "lodash", c.Args[len(c.Args)-1])
	assert.Contains(t, c.Args, "/tmp/modcommit-9")
	assert.Empty(t, c.Env, "installer must not receive git overrides")
}

// TestExecInstallerWritesFiles runs a shell stand-in for npm and checks
// that it populates the install directory.
func TestExecInstallerWritesFiles(t *testing.T) {
	dir := t.TempDir()
	fake := `sh -c 'for m in "$@"; do mkdir -p node_modules/$m && echo "{\"version\":\"1.0.0\"}" > node_modules/$m/package.json; done' fake-npm`
	inst := NewExecInstaller(command.NewRunner(nil), fake, nil)

	require.NoError(t, inst.Install(context.Background(), dir, []string{"alpha", "beta"}))

	for _, m := range []string{"alpha", "beta"} {
		_, err := os.Stat(filepath.Join(dir, "node_modules", m, "package.json"))
		assert.NoError(t, err, "manifest for %s should exist", m)
	}
}

// TestExecInstallerFailure verifies that a failing installer surfaces as
// *command.Error with its exit status.
func TestExecInstallerFailure(t *testing.T) {
	inst := NewExecInstaller(command.NewRunner(nil), `sh -c 'echo "404 Not Found" >&2; exit 7' fake-npm`, nil)

	err := inst.Install(context.Background(), t.TempDir(), []string{"does-not-exist"})
	require.Error(t, err)

	var cmdErr *command.Error
	require.True(t, errors.As(err, &cmdErr))
	assert.Equal(t, 7, cmdErr.ExitStatus)
	assert.Equal(t, "sh", cmdErr.Name)
	assert.Contains(t, cmdErr.Args, "does-not-exist")
	assert.Equal(t, "404 Not Found", cmdErr.Stderr)
}

// TestExecInstallerBadCommand verifies that an unparsable command line is
// rejected before anything runs.
func TestExecInstallerBadCommand(t *testing.T) {
	rec := &recordingExecutor{}
	inst := NewExecInstaller(rec, `npm "install`, nil)

	assert.Error(t, inst.Install(context.Background(), t.TempDir(), []string{"x"}))
	assert.Empty(t, rec.cmds)
}
