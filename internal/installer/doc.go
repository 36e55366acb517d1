// Package installer runs the package installer that populates the
// temporary directory a tree is built from.
//
// Two installers are provided. ExecInstaller runs the configured command
// line on the host. ContainerInstaller runs the same command line inside a
// container image with the directory bind-mounted, for hosts without the
// package manager or for reproducible toolchains.
//
// The command line is split with POSIX shell word rules and $INSTALL_DIR
// expands to the directory being populated. Module names are appended as
// trailing arguments, never interpolated into the command line.
package installer
