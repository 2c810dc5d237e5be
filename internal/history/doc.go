// Package history provides an optional append-only journal of
// persistence operations backed by Badger.
//
// Each completed save, load, delete, backup, repair, restore, or
// validate run appends one Entry. Keys are ULIDs derived from the entry timestamp,
// so lexicographic key order equals chronological order and a reverse
// scan yields "most recent first" without a secondary index.
//
// The journal is diagnostics, not state: the engine never reads it
// back, and a journal write failure must not fail the operation that
// produced the entry. A background loop prunes old entries past the
// retention cap and runs Badger value-log GC.
package history
