// Package storage owns the on-disk layout of a saves directory and the
// file-level operations on it.
//
// Layout inside the configured directory:
//
//	save_slot_<N>.json          primary artifact for slot N
//	metadata_<N>.json           denormalized summary for slot N
//	save_screenshot_<N>.png     optional companion image
//	quicksave.json              reduced fast-save artifact
//	backups/                    rotated copies, newest kept
//	history/                    optional operation journal
//
// Artifact bytes pass through opaquely; encoding and decoding live in the
// codec package. Every write lands in a temp file first and is renamed into
// place, so readers never observe a half-written artifact. The package
// assumes one writer process per directory.
package storage
