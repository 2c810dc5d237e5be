// Package domain defines the core domain models for Keepsake.
//
// Domain models are pure value objects and entities without any
// IO dependencies or framework coupling. This package contains:
//
//   - RootSaveRecord: the unit of persistence, assembled from opaque
//     per-subsystem sections
//   - SlotMetadata: the denormalized slot summary used for fast listing
//   - SaveSummary: caller-supplied display fields attached to a save
//   - Errors: domain-specific error definitions with stable codes
//
// Nothing in this package touches the filesystem or the codec; records
// carry sections as raw bytes and never interpret them.
package domain
