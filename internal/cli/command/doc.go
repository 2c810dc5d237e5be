// Package command defines the keepsake CLI commands.
//
// The CLI works on a saves directory directly rather than through a
// running game: each command loads the configuration, assembles the
// engine over the configured directory, runs one operation, and tears
// the engine down again. The exceptions are serve, which keeps the
// engine open behind the diagnostics HTTP server, and watch, which
// only observes the directory.
//
//   - root.go: application assembly and global flags
//   - runtime.go: configuration loading and engine assembly
//   - slots.go: slot listing, inspection, deletion, export
//   - backup.go: backup listing, pruning, and rollback
//   - validate.go: artifact integrity checks
//   - repair.go: backup promotion over a corrupt primary
//   - quicksave.go: quicksave export
//   - history.go: operation journal queries
//   - serve.go: the diagnostics HTTP server
//   - watch.go: live view of saves directory changes
//   - config.go: configuration inspection and scaffolding
//
// Commands parse flags, call the engine, and hand results to the
// output package.
package command
