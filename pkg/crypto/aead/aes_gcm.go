package aead

import (
	"crypto/aes"
	"crypto/cipher"
	"fmt"
)

// NewAESGCM builds an AES-GCM cipher. The key must be 16, 24, or 32 bytes
// (AES-128, AES-192, AES-256).
func NewAESGCM(key []byte) (Cipher, error) {
	switch len(key) {
	case 16, 24, 32:
	default:
		return nil, fmt.Errorf("%w: AES-GCM needs 16, 24, or 32 bytes, got %d", ErrKeySize, len(key))
	}

	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, fmt.Errorf("aead: aes cipher: %w", err)
	}
	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return nil, fmt.Errorf("aead: gcm mode: %w", err)
	}

	return &base{algorithm: AlgorithmAESGCM, aead: gcm}, nil
}
