// Package command runs external programs for modcommit.
//
// It is the only I/O primitive the pipeline uses for both the package
// installer and git. Each invocation gets its own environment overrides,
// working directory and optional stdin payload; nothing here touches the
// environment or working directory of the modcommit process itself.
package command
