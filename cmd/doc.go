// Package cmd implements the ekv command line interface. Every command opens
// the database selected by the global flags, runs a single operation and
// closes the connection again.
//
// The package is organized into several subpackages:
//
//   - kv: Commands for records and documents (store, fetch, delete, bench, etc.)
//   - cfg: Commands to read and write engine tunables
//   - random: Commands that draw from the engine's random generator
//   - hex: Commands to encode and decode hex strings
//   - util: Shared utilities for command-line processing and configuration (internal use)
//
// All flags can also be set through the environment with the EKV_ prefix
// (e.g. EKV_DB=data.db). .env and .env.local are loaded if present.
//
// See ekv -help for a list of all commands.
package cmd
