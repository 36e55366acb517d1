// Package cli implements the cobra-based command line for modcommit.
//
// modcommit has a single command: the root command installs the given
// modules into a scratch directory and prints the id of a commit holding
// them. This file defines the command, its flags and the error-to-exit-code
// mapping; commit.go holds the pipeline and output.go the result printing.
package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"

	"github.com/mmr-tortoise/modcommit/internal/model"
)

// Global flag variables. They are bound to cobra flags in NewRootCommand,
// which also resets them, so each command instance starts clean.
var (
	// jsonOutput prints the full result as JSON instead of the bare id.
	// Errors are printed as JSON on stderr as well.
	jsonOutput bool

	// verbose enables debug logging to stderr.
	verbose bool
)

// logger is the CLI logger. It discards output until runCommit replaces it
// with a stderr logger configured from the effective settings.
var logger = log.New(io.Discard)

// version, commit, and date are set at build time via ldflags.
// They are injected from the main package to display version information.
var (
	// Version is the semantic version of the binary (e.g., "1.0.0").
	Version = "dev"

	// Commit is the Git commit hash the binary was built from.
	Commit = "none"

	// Date is the build timestamp.
	Date = "unknown"
)

// NewRootCommand creates and configures the modcommit command.
func NewRootCommand() *cobra.Command {
	flags := &commitFlags{}

	rootCmd := &cobra.Command{
		Use:   "modcommit [flags] <module>...",
		Short: "Commit installed package modules without touching your checkout",
		Long: `modcommit installs the given modules into a temporary directory and
records the result as a git commit object parented on --parent.
The installer defaults to npm; set installer.command to use another
package manager, e.g. cpanm -L "$INSTALL_DIR" for a Perl local::lib.

The working directory, the index and all refs are left untouched. The new
commit is printed on stdout and is reachable only by its id; point a ref at
it with git update-ref or git branch if you want to keep it.

Examples:
  modcommit lodash
  modcommit --parent main lodash @types/node
  modcommit --image node:22-alpine left-pad
  modcommit -C ~/src/app lodash
  MODCOMMIT_INSTALLER_COMMAND='cpanm -n -L "$INSTALL_DIR"' modcommit Moo
  git branch deps $(modcommit lodash)`,

		// Zero modules is valid and produces an empty tree.
		Args: cobra.ArbitraryArgs,

		RunE: func(cmd *cobra.Command, args []string) error {
			return runCommit(cmd, args, flags)
		},

		// SilenceUsage prevents cobra from printing usage on every error.
		// Usage is printed only for flag errors, by the FlagErrorFunc below.
		SilenceUsage: true,

		// SilenceErrors prevents cobra from printing errors automatically.
		// We format errors ourselves (text or JSON based on --json flag).
		SilenceErrors: true,

		// Version is displayed when --version flag is used.
		Version: fmt.Sprintf("%s (commit: %s, built: %s)", Version, Commit, Date),
	}

	jsonOutput = false
	verbose = false
	logger = log.New(io.Discard)

	rootCmd.Flags().StringVar(&flags.parent, "parent", model.DefaultParent, "Revision the new commit is parented on")
	rootCmd.Flags().StringVarP(&flags.repoPath, "repo", "C", "", "Run as if started in this directory when locating the repository")
	rootCmd.Flags().StringVar(&flags.configFile, "config", "", "Config file (default ./.modcommit.yaml, then $XDG_CONFIG_HOME/modcommit/config.yaml)")
	rootCmd.Flags().StringVar(&flags.image, "image", "", "Run the installer inside this container image")
	rootCmd.Flags().BoolVar(&flags.printConfig, "print-config", false, "Print the effective configuration as YAML and exit")
	rootCmd.Flags().BoolVar(&jsonOutput, "json", false, "Output in JSON format")
	rootCmd.Flags().BoolVarP(&verbose, "verbose", "v", false, "Enable verbose output")

	// Unknown options print usage on stderr and exit with ExitUsage.
	rootCmd.SetFlagErrorFunc(func(c *cobra.Command, err error) error {
		fmt.Fprint(c.ErrOrStderr(), c.UsageString())
		return model.WrapCLIError(model.ExitUsage, "invalid arguments", err)
	})

	return rootCmd
}

// Execute runs the root command and handles exit codes.
// This is the main entry point called from main.go.
//
// It inspects errors returned by the command and translates them into
// OS exit codes. CLIError types carry their own exit codes; other errors
// default to exit code 1.
func Execute(rootCmd *cobra.Command) {
	if code := run(rootCmd); code != model.ExitSuccess {
		os.Exit(int(code))
	}
}

// run executes rootCmd, prints any error and returns the exit code.
func run(rootCmd *cobra.Command) model.ExitCode {
	err := rootCmd.Execute()
	if err == nil {
		return model.ExitSuccess
	}

	// A type assertion is enough: the pipeline returns CLIErrors unwrapped.
	if cliErr, ok := err.(*model.CLIError); ok {
		printError(rootCmd.ErrOrStderr(), cliErr.Message, cliErr.Err)
		return cliErr.Code
	}

	printError(rootCmd.ErrOrStderr(), err.Error(), nil)
	return model.ExitGeneralError
}

// printError outputs an error message in the appropriate format
// (JSON or text) based on the --json flag.
func printError(w io.Writer, message string, underlying error) {
	if jsonOutput {
		errObj := map[string]interface{}{
			"error": map[string]interface{}{
				"message": message,
			},
		}
		if underlying != nil {
			if errMap, ok := errObj["error"].(map[string]interface{}); ok {
				errMap["detail"] = underlying.Error()
			}
		}
		// Errors go to stderr even in JSON mode; stdout is reserved for
		// the result.
		data, _ := json.MarshalIndent(errObj, "", "  ")
		fmt.Fprintln(w, string(data))
		return
	}

	if underlying != nil {
		fmt.Fprintf(w, "Error: %s: %v\n", message, underlying)
	} else {
		fmt.Fprintf(w, "Error: %s\n", message)
	}
}

// newLogger returns a stderr logger at Debug level when debug is set and
// Info level otherwise.
func newLogger(w io.Writer, debug bool) *log.Logger {
	l := log.NewWithOptions(w, log.Options{
		Prefix: "modcommit",
	})
	if debug {
		l.SetLevel(log.DebugLevel)
	}
	return l
}

// VerboseLog prints a message to stderr only when verbose mode is enabled.
// It traces the pipeline stages; subprocess calls are logged by the
// command runner.
func VerboseLog(format string, args ...interface{}) {
	logger.Debugf(format, args...)
}

// IsJSONOutput returns whether the --json flag is set.
func IsJSONOutput() bool {
	return jsonOutput
}
