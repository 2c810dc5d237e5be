// Package snapshot assembles and distributes save state.
//
// Game subsystems register as collaborators under a unique section
// name. At save time the aggregator queries every collaborator and
// builds one root record; at load time it hands each stored section
// back to the collaborator that owns it. Section payloads are opaque
// to the aggregator. It forwards bytes and never interprets them, so
// subsystems can evolve their own schemas independently.
//
// A collaborator with nothing to persist (no active player yet)
// returns a nil section and is omitted from the record rather than
// treated as an error. Unknown sections found in a record are skipped
// on apply, which keeps newer saves loadable by older builds.
package snapshot
