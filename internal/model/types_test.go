package model

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestCommitMessage verifies that the commit message lists modules in
// argument order and has a stable form for the empty case.
func TestCommitMessage(t *testing.T) {
	tests := []struct {
		name    string
		modules []string
		want    string
	}{
		{"no modules", nil, "Install (no modules)"},
		{"empty slice", []string{}, "Install (no modules)"},
		{"single module", []string{"lodash"}, "Install lodash"},
		{"keeps argument order", []string{"zod", "@types/node", "lodash@4"}, "Install zod @types/node lodash@4"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, CommitMessage(tt.modules))
		})
	}
}

// TestValidateModuleName checks the module names accepted on the command line.
func TestValidateModuleName(t *testing.T) {
	tests := []struct {
		input    string
		hasError bool
	}{
		{"lodash", false},
		{"@scope/pkg", false},
		{"left-pad@1.3.0", false},
		{"git+https://example.com/repo.git", false},
		{"", true},
		{"   ", true},
		{"--save", true},
		{"-g", true},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			err := ValidateModuleName(tt.input)
			if tt.hasError {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

// TestInstalledModule_String verifies the name@version rendering.
func TestInstalledModule_String(t *testing.T) {
	assert.Equal(t, "lodash@4.17.21", InstalledModule{Name: "lodash", Version: "4.17.21"}.String())
	assert.Equal(t, "lodash", InstalledModule{Name: "lodash"}.String())
}

// TestCLIError verifies message formatting and unwrapping.
func TestCLIError(t *testing.T) {
	t.Run("without underlying error", func(t *testing.T) {
		err := NewCLIError(ExitUsage, "bad flag")
		assert.Equal(t, "bad flag", err.Error())
		assert.Nil(t, err.Unwrap())
		assert.Equal(t, ExitUsage, err.Code)
	})

	t.Run("with underlying error", func(t *testing.T) {
		inner := errors.New("exit status 128")
		err := WrapCLIError(ExitGitError, "git write-tree failed", inner)
		assert.Equal(t, "git write-tree failed: exit status 128", err.Error())
		assert.True(t, errors.Is(err, inner))
	})

	t.Run("errors.As finds CLIError", func(t *testing.T) {
		var wrapped error = WrapCLIError(ExitParentNotFound, "bad parent", nil)
		var cliErr *CLIError
		require.True(t, errors.As(wrapped, &cliErr))
		assert.Equal(t, ExitParentNotFound, cliErr.Code)
	})
}

// TestExitCodes pins the numeric values scripts depend on.
func TestExitCodes(t *testing.T) {
	assert.Equal(t, 0, int(ExitSuccess))
	assert.Equal(t, 1, int(ExitGeneralError))
	assert.Equal(t, 2, int(ExitUsage))
	assert.Equal(t, 3, int(ExitParentNotFound))
	assert.Equal(t, 4, int(ExitInstallFailed))
	assert.Equal(t, 5, int(ExitGitError))
	assert.Equal(t, 6, int(ExitDockerNotRunning))
	assert.Equal(t, 7, int(ExitConfigInvalid))
}
