// Package codec turns save records into durable artifact bytes and back.
//
// The stage order is fixed: serialize, then compress, then encrypt on
// encode; decrypt, then decompress, then deserialize on decode. Stages are
// independently toggleable through Options, but an artifact does not
// describe which stages produced it. The caller owns that contract: decode
// with the same options the artifact was encoded with, or the decode fails
// with the error of the first stage that rejects the bytes.
//
// Encoding is fully in-memory. Callers receive the complete artifact before
// any file write starts, so a failed encode can never corrupt what is
// already on disk.
package codec
