package aead

import (
	"fmt"

	"golang.org/x/crypto/chacha20poly1305"
)

// NewChaCha20 builds a ChaCha20-Poly1305 cipher. The key must be exactly
// 32 bytes.
func NewChaCha20(key []byte) (Cipher, error) {
	if len(key) != chacha20poly1305.KeySize {
		return nil, fmt.Errorf("%w: ChaCha20-Poly1305 needs %d bytes, got %d",
			ErrKeySize, chacha20poly1305.KeySize, len(key))
	}

	aead, err := chacha20poly1305.New(key)
	if err != nil {
		return nil, fmt.Errorf("aead: chacha20poly1305: %w", err)
	}

	return &base{algorithm: AlgorithmChaCha20, aead: aead}, nil
}
