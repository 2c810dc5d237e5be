// Package service orchestrates save and load operations for Keepsake.
//
// The Engine owns the full persistence pipeline: it collects snapshots
// from registered collaborators, runs them through the codec, and moves
// artifacts in and out of the slot store, rotating backups and falling
// back to them when a primary turns out to be corrupt. It defines the
// narrow interfaces it needs from its dependencies (BackupRotator,
// Recorder), so storage and journaling stay swappable in tests.
//
// This package contains:
//
//   - Engine: save, load, quicksave, delete, validate, repair and
//     backup rollback, listing
//   - Autosaver: interval plus event-triggered saves with debouncing
//
// Operations on one slot are serialized by per-slot guards; operations
// on different slots run independently. No failure here may take the
// process down: errors degrade to error returns, failure events, and
// journal entries.
package service
