package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"

	"github.com/mmr-tortoise/modcommit/internal/installer"
	"github.com/mmr-tortoise/modcommit/internal/model"
	"github.com/mmr-tortoise/modcommit/internal/plumbing"
)

const (
	// AppName is the application name used for the config directory.
	AppName = "modcommit"

	// EnvPrefix is prepended to upper-cased keys to form override
	// variables, e.g. MODCOMMIT_INSTALLER_IMAGE for installer.image.
	EnvPrefix = "MODCOMMIT"

	// LocalFileName is the config file looked up in the working directory.
	LocalFileName = ".modcommit.yaml"

	// UserFileName is the config file looked up in the user config directory.
	UserFileName = "config.yaml"
)

// Config holds the effective settings for one run.
type Config struct {
	// Parent is the revision the new commit is parented on.
	Parent string `mapstructure:"parent" yaml:"parent"`

	Git       GitConfig       `mapstructure:"git" yaml:"git"`
	Installer InstallerConfig `mapstructure:"installer" yaml:"installer"`

	// TempDir is the base directory for the temporary install directory.
	// Empty means the system default.
	TempDir string `mapstructure:"temp_dir" yaml:"temp_dir"`

	// Verbose enables debug logging.
	Verbose bool `mapstructure:"verbose" yaml:"verbose"`
}

// GitConfig selects the git binary and repository.
type GitConfig struct {
	Binary string `mapstructure:"binary" yaml:"binary"`

	// Dir is the repository's git directory. Empty means discovery from
	// the working directory.
	Dir string `mapstructure:"dir" yaml:"dir,omitempty"`
}

// InstallerConfig selects how modules are installed.
type InstallerConfig struct {
	// Command is the installer command line. $INSTALL_DIR expands to the
	// directory being populated.
	Command string `mapstructure:"command" yaml:"command"`

	// Image, when set, runs Command inside this container image.
	Image string `mapstructure:"image" yaml:"image,omitempty"`
}

// LoadOptions controls where configuration is read from.
type LoadOptions struct {
	// File is an explicit config file. It must exist when set.
	File string

	// Flags, when set, overrides keys with flags the user changed.
	// Flags are matched through FlagKeys.
	Flags *pflag.FlagSet
}

// FlagKeys maps command-line flag names to config keys. Load binds each
// flag present in LoadOptions.Flags, and a flag only overrides the other
// layers when the user set it on the command line.
var FlagKeys = map[string]string{
	"parent":  "parent",
	"image":   "installer.image",
	"verbose": "verbose",
}

// Default returns the built-in configuration.
func Default() Config {
	return Config{
		Parent: model.DefaultParent,
		Git: GitConfig{
			Binary: plumbing.DefaultBinary,
		},
		Installer: InstallerConfig{
			Command: installer.DefaultCommand,
		},
	}
}

// Load builds the effective configuration. It returns the config and the
// path of the file that was read, or "" when none was found.
//
// Errors are returned as model.CLIError with ExitConfigInvalid.
func Load(opts LoadOptions) (*Config, string, error) {
	v := viper.New()

	defaults := Default()
	v.SetDefault("parent", defaults.Parent)
	v.SetDefault("git.binary", defaults.Git.Binary)
	v.SetDefault("git.dir", defaults.Git.Dir)
	v.SetDefault("installer.command", defaults.Installer.Command)
	v.SetDefault("installer.image", defaults.Installer.Image)
	v.SetDefault("temp_dir", defaults.TempDir)
	v.SetDefault("verbose", defaults.Verbose)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	// MODCOMMIT_GIT_DIR wins over GIT_DIR when both are set.
	if err := v.BindEnv("git.dir", EnvPrefix+"_GIT_DIR", "GIT_DIR"); err != nil {
		return nil, "", model.WrapCLIError(model.ExitConfigInvalid, "failed to bind environment", err)
	}

	path, err := resolveFile(opts.File)
	if err != nil {
		return nil, "", err
	}
	if path != "" {
		v.SetConfigFile(path)
		v.SetConfigType("yaml")
		if err := v.ReadInConfig(); err != nil {
			return nil, "", model.WrapCLIError(model.ExitConfigInvalid,
				fmt.Sprintf("failed to read config file %s", path), err)
		}
	}

	if opts.Flags != nil {
		for name, key := range FlagKeys {
			if f := opts.Flags.Lookup(name); f != nil {
				if err := v.BindPFlag(key, f); err != nil {
					return nil, "", model.WrapCLIError(model.ExitConfigInvalid,
						fmt.Sprintf("failed to bind flag --%s", name), err)
				}
			}
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, "", model.WrapCLIError(model.ExitConfigInvalid, "failed to parse config", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, "", model.WrapCLIError(model.ExitConfigInvalid, "invalid configuration", err)
	}
	return &cfg, path, nil
}

// Validate checks values that would otherwise fail late in the pipeline.
func (c *Config) Validate() error {
	if strings.TrimSpace(c.Parent) == "" {
		return errors.New("parent must not be empty")
	}
	if strings.TrimSpace(c.Git.Binary) == "" {
		return errors.New("git.binary must not be empty")
	}
	if strings.TrimSpace(c.Installer.Command) == "" {
		return errors.New("installer.command must not be empty")
	}
	return nil
}

// Render returns the configuration as YAML.
func Render(cfg *Config) ([]byte, error) {
	out, err := yaml.Marshal(cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to render config: %w", err)
	}
	return out, nil
}

// resolveFile picks the config file: the explicit path, else
// ./.modcommit.yaml, else <user config dir>/modcommit/config.yaml.
func resolveFile(explicit string) (string, error) {
	if explicit != "" {
		if !fileExists(explicit) {
			return "", model.NewCLIError(model.ExitConfigInvalid,
				fmt.Sprintf("config file not found: %s", explicit))
		}
		return explicit, nil
	}

	if fileExists(LocalFileName) {
		return LocalFileName, nil
	}

	dir, err := Dir()
	if err != nil {
		// No home directory; run on defaults.
		return "", nil
	}
	if p := filepath.Join(dir, UserFileName); fileExists(p) {
		return p, nil
	}
	return "", nil
}

// Dir returns the user config directory for modcommit:
// $XDG_CONFIG_HOME/modcommit, defaulting to ~/.config/modcommit.
func Dir() (string, error) {
	base := os.Getenv("XDG_CONFIG_HOME")
	if base == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("failed to get home directory: %w", err)
		}
		base = filepath.Join(home, ".config")
	}
	return filepath.Join(base, AppName), nil
}

func fileExists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && !info.IsDir()
}
