// Package plumbing builds git objects through the git CLI.
//
// All Git operations are performed via the command runner rather than a Go
// Git library like go-git. This keeps object hashing, index format and
// repository discovery exactly as the user's git binary implements them.
//
// Commands that stage or write trees run against an isolated work tree and
// index (WorkTree) passed as per-command environment overrides. The caller's
// working directory, index and refs are never read or written.
package plumbing
