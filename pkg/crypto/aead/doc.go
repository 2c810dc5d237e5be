// Package aead provides authenticated encryption for save artifacts.
//
// Two algorithms are supported, selected by name or automatically from the
// host architecture:
//
//   - AES-GCM: preferred where hardware AES instructions exist (amd64, arm64)
//   - ChaCha20-Poly1305: constant-time software fallback elsewhere
//
// Both produce the same framing: a fresh random nonce prepended to the
// sealed ciphertext, so the artifact carries everything needed for
// decryption except the key. Tampering with any ciphertext byte fails
// authentication on open; callers never see silently corrupted plaintext.
//
// All cipher operations are safe for concurrent use.
package aead
