// Package app assembles concrete implementations into running pieces:
// environment config for the daemon, and constructors the CLI and daemon
// share.
package app
