// Package commands defines the courier CLI and wires dependencies for
// subcommands.
//
// Commands
//
//   - init           Set up encryption with a PIN and create the identity
//   - unlock         Check a PIN against the stored key material
//   - prekeys        Mint a batch of one-time pre-keys
//   - register-keys  Print the public key material to upload
//   - status         Show installation state
//
// # Implementation
//
// The root command opens the key store under --home and initializes the
// engine before any subcommand runs, so handlers share one app context.
package commands
