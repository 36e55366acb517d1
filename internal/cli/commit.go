package cli

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/mmr-tortoise/modcommit/internal/command"
	"github.com/mmr-tortoise/modcommit/internal/config"
	"github.com/mmr-tortoise/modcommit/internal/docker"
	"github.com/mmr-tortoise/modcommit/internal/installer"
	"github.com/mmr-tortoise/modcommit/internal/model"
	"github.com/mmr-tortoise/modcommit/internal/plumbing"
	"github.com/mmr-tortoise/modcommit/internal/workspace"
)

// commitFlags holds the flag values of the root command.
// These are bound to cobra flags in NewRootCommand.
type commitFlags struct {
	// parent is the revision the new commit is parented on.
	parent string

	// repoPath is where repository discovery starts. Empty means the
	// working directory.
	repoPath string

	// configFile is an explicit config file path.
	configFile string

	// image runs the installer inside this container image.
	image string

	// printConfig prints the effective configuration and exits.
	printConfig bool
}

// runCommit is the main logic of modcommit. It resolves the parent, installs
// the modules into a scratch directory, records that directory as a tree
// and commit, and prints the result.
//
// The pipeline is fail-fast: the first error aborts it. Nothing needs to be
// rolled back because no ref is updated; objects written before the failure
// are unreachable and will be pruned by git gc.
func runCommit(cmd *cobra.Command, modules []string, flags *commitFlags) error {
	ctx := cmd.Context()

	// Step 1: Load configuration. Changed flags override every other layer.
	cfg, cfgPath, err := config.Load(config.LoadOptions{File: flags.configFile, Flags: cmd.Flags()})
	if err != nil {
		return err // Load already returns CLIError with ExitConfigInvalid
	}
	verbose = cfg.Verbose
	logger = newLogger(cmd.ErrOrStderr(), cfg.Verbose)
	if cfgPath != "" {
		VerboseLog("Loaded config from %s", cfgPath)
	}

	if flags.printConfig {
		out, err := config.Render(cfg)
		if err != nil {
			return model.WrapCLIError(model.ExitGeneralError, "failed to render configuration", err)
		}
		_, err = cmd.OutOrStdout().Write(out)
		return err
	}

	for _, m := range modules {
		if err := model.ValidateModuleName(m); err != nil {
			return model.WrapCLIError(model.ExitUsage, "invalid module name", err)
		}
	}

	// Step 2: Locate the repository and resolve the parent. This happens
	// before anything is installed so a typo in --parent fails fast.
	runner := command.NewRunner(logger)
	repo, err := plumbing.Open(ctx, runner, plumbing.Options{
		Binary:   cfg.Git.Binary,
		RepoPath: flags.repoPath,
		GitDir:   cfg.Git.Dir,
	})
	if err != nil {
		return model.WrapCLIError(model.ExitGitError, "not inside a git repository", err)
	}
	VerboseLog("Using git directory %s", repo.GitDir())

	parent, err := repo.ResolveCommit(ctx, cfg.Parent)
	if err != nil {
		return model.WrapCLIError(model.ExitParentNotFound,
			fmt.Sprintf("parent %q does not name a commit", cfg.Parent), err)
	}
	VerboseLog("Resolved parent %s to %s", cfg.Parent, parent)

	// Step 3: Acquire the scratch directory and index. Close runs on every
	// return path, including cancellation by SIGINT/SIGTERM.
	ws, err := workspace.New(cfg.TempDir)
	if err != nil {
		return model.WrapCLIError(model.ExitGeneralError, "failed to create temporary workspace", err)
	}
	defer func() {
		if err := ws.Close(); err != nil {
			logger.Warn("failed to remove temporary workspace", "dir", ws.Dir, "err", err)
		}
	}()
	VerboseLog("Workspace %s, index %s", ws.Dir, ws.IndexFile)

	// Step 4: Install. With no modules there is nothing to install and the
	// tree comes out empty.
	if len(modules) > 0 {
		if err := install(ctx, cfg, runner, ws.Dir, modules); err != nil {
			return err
		}
	} else {
		VerboseLog("No modules requested, skipping installer")
	}

	// Step 5: Record the directory as a tree and commit it.
	wt := plumbing.WorkTree{Dir: ws.Dir, IndexFile: ws.IndexFile}
	if err := repo.StageAll(ctx, wt); err != nil {
		return model.WrapCLIError(model.ExitGitError, "failed to stage installed files", err)
	}
	tree, err := repo.WriteTree(ctx, wt)
	if err != nil {
		return model.WrapCLIError(model.ExitGitError, "failed to write tree", err)
	}
	VerboseLog("Wrote tree %s", tree)

	message := model.CommitMessage(modules)
	commitID, err := repo.CommitTree(ctx, tree, parent, message)
	if err != nil {
		return model.WrapCLIError(model.ExitGitError, "failed to create commit", err)
	}
	VerboseLog("Created commit %s", commitID)

	// Step 6: Report. Versions are informational; a manifest problem
	// must not fail a run whose commit already exists.
	installed, err := installer.ReadInstalled(ws.Dir, modules)
	if err != nil {
		logger.Warn("could not read installed versions", "err", err)
		installed = make([]model.InstalledModule, 0, len(modules))
		for _, m := range modules {
			installed = append(installed, model.InstalledModule{Name: m})
		}
	}
	if len(installed) > 0 {
		names := make([]string, 0, len(installed))
		for _, m := range installed {
			names = append(names, m.String())
		}
		VerboseLog("Installed %s", strings.Join(names, " "))
	}

	return printCommitResult(cmd.OutOrStdout(), &model.CommitResult{
		Parent:  parent,
		Tree:    tree,
		Commit:  commitID,
		Message: message,
		Modules: installed,
	})
}

// install runs the configured installer for modules in dir and maps its
// failure to ExitInstallFailed.
func install(ctx context.Context, cfg *config.Config, runner *command.Runner, dir string, modules []string) error {
	var inst installer.Installer

	if cfg.Installer.Image != "" {
		cli, err := docker.NewClient()
		if err != nil {
			return err // NewClient already returns CLIError with ExitDockerNotRunning
		}
		// Close releases the HTTP connection to the daemon.
		defer func() { _ = cli.Close() }()

		if err := cli.Ping(ctx); err != nil {
			return err
		}
		VerboseLog("Installing in container image %s", cfg.Installer.Image)
		inst = installer.NewContainerInstaller(cli, cfg.Installer.Image, cfg.Installer.Command, logger)
	} else {
		inst = installer.NewExecInstaller(runner, cfg.Installer.Command, logger)
	}

	VerboseLog("Installing %s", strings.Join(modules, " "))
	if err := inst.Install(ctx, dir, modules); err != nil {
		var cliErr *model.CLIError
		if errors.As(err, &cliErr) {
			return cliErr
		}
		return model.WrapCLIError(model.ExitInstallFailed, "failed to install modules", err)
	}
	return nil
}
