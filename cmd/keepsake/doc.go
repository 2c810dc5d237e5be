// Package main provides the entry point for keepsake.
//
// keepsake is the save data inspection and repair tool. It operates
// on a saves directory directly:
//
//   - Slot listing, inspection, export, and deletion
//   - Backup listing and retention pruning
//   - Integrity validation and backup promotion (repair)
//   - Operation history from the journal
//   - A read-only diagnostics HTTP server
//   - Live saves directory watching
//
// Usage:
//
//	keepsake [command] [flags]
//	keepsake slots list --output json
//	keepsake repair 2
//	keepsake serve --addr 127.0.0.1:6480
//
// Exit codes: 0 on success, 2 for invalid input or configuration, 3
// when a named slot or its backups do not exist, 1 for other failures.
//
// Build metadata is injected via ldflags on the
// internal/infra/buildinfo package.
package main
