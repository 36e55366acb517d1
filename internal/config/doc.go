// Package config loads modcommit settings.
//
// Values are layered, lowest precedence first: built-in defaults, an
// optional YAML file, MODCOMMIT_* environment variables, then command-line
// flags. GIT_DIR is honoured for git.dir so modcommit locates the
// repository the same way git does.
package config
