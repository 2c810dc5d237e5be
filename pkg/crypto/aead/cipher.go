package aead

import (
	"crypto/cipher"
	"crypto/rand"
	"errors"
	"fmt"
	"io"
	"runtime"
)

// Algorithm identifies an AEAD construction.
type Algorithm string

const (
	// AlgorithmAuto picks AES-GCM on amd64/arm64 and ChaCha20-Poly1305
	// elsewhere.
	AlgorithmAuto Algorithm = "auto"

	// AlgorithmAESGCM is AES in Galois/Counter Mode.
	AlgorithmAESGCM Algorithm = "aes-gcm"

	// AlgorithmChaCha20 is ChaCha20-Poly1305.
	AlgorithmChaCha20 Algorithm = "chacha20-poly1305"
)

var (
	// ErrKeySize indicates key material of a length the algorithm rejects.
	ErrKeySize = errors.New("aead: invalid key size")

	// ErrCiphertextShort indicates input shorter than the nonce prefix.
	ErrCiphertextShort = errors.New("aead: ciphertext shorter than nonce")
)

// Cipher seals and opens save artifacts with authenticated encryption.
type Cipher interface {
	// Algorithm returns the construction in use.
	Algorithm() Algorithm

	// Encrypt seals plaintext, binding additionalData into the
	// authentication tag. The returned buffer is nonce || ciphertext.
	Encrypt(plaintext, additionalData []byte) ([]byte, error)

	// Decrypt opens a nonce-prefixed buffer produced by Encrypt. It fails
	// on truncation, a wrong key, mismatched additionalData, or any
	// modified byte.
	Decrypt(ciphertext, additionalData []byte) ([]byte, error)

	// NonceSize returns the nonce prefix length in bytes.
	NonceSize() int

	// Overhead returns the authentication tag length in bytes.
	Overhead() int
}

// New constructs a cipher for the given algorithm. AlgorithmAuto (and the
// empty string) resolve via Preferred.
func New(algorithm Algorithm, key []byte) (Cipher, error) {
	switch algorithm {
	case AlgorithmAuto, "":
		return New(Preferred(), key)
	case AlgorithmAESGCM:
		return NewAESGCM(key)
	case AlgorithmChaCha20:
		return NewChaCha20(key)
	default:
		return nil, fmt.Errorf("aead: unknown algorithm %q", algorithm)
	}
}

// Preferred returns the algorithm AlgorithmAuto resolves to on this host.
// Go's crypto/aes uses AES instructions on amd64 and the ARMv8 crypto
// extensions on arm64; other architectures get the software ChaCha20 path.
func Preferred() Algorithm {
	switch runtime.GOARCH {
	case "amd64", "arm64":
		return AlgorithmAESGCM
	default:
		return AlgorithmChaCha20
	}
}

// base carries the shared nonce-prefix framing over any crypto/cipher.AEAD.
type base struct {
	algorithm Algorithm
	aead      cipher.AEAD
}

func (b *base) Algorithm() Algorithm { return b.algorithm }
func (b *base) NonceSize() int       { return b.aead.NonceSize() }
func (b *base) Overhead() int        { return b.aead.Overhead() }

func (b *base) Encrypt(plaintext, additionalData []byte) ([]byte, error) {
	nonce := make([]byte, b.aead.NonceSize())
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return nil, fmt.Errorf("aead: nonce generation: %w", err)
	}
	// Seal appends to the nonce slice, producing nonce || ciphertext.
	return b.aead.Seal(nonce, nonce, plaintext, additionalData), nil
}

func (b *base) Decrypt(ciphertext, additionalData []byte) ([]byte, error) {
	n := b.aead.NonceSize()
	if len(ciphertext) < n {
		return nil, ErrCiphertextShort
	}
	return b.aead.Open(nil, ciphertext[:n], ciphertext[n:], additionalData)
}
