package codec

import (
	"golang.org/x/crypto/argon2"

	"github.com/calderhale/keepsake-go/internal/core/domain"
	"github.com/calderhale/keepsake-go/pkg/crypto/aead"
)

// Key material constraints.
const (
	// KeyLength is the derived key length in bytes (AES-256 / ChaCha20).
	KeyLength = 32

	// MinKeyLength is the minimum accepted raw key length.
	MinKeyLength = 16

	// MinPassphraseLength is the minimum accepted passphrase length.
	MinPassphraseLength = 8
)

// Argon2id parameters. Saves are encoded rarely, so the cost leans toward
// memory-hardness over speed.
const (
	argonTime    = 3
	argonMemory  = 64 * 1024 // KiB
	argonThreads = 4
)

// defaultSalt seeds Argon2id when no per-install salt is configured.
// Deployments that can persist configuration should set their own.
var defaultSalt = []byte("keepsake.argon2.v1")

// KDF names a passphrase-to-key derivation scheme.
type KDF string

const (
	// KDFRepeat cycles the passphrase bytes until the key length is filled.
	// This matches artifacts produced by earlier releases and is the
	// compatibility default.
	KDFRepeat KDF = "repeat"

	// KDFArgon2id derives the key with Argon2id. New installations should
	// prefer it.
	KDFArgon2id KDF = "argon2id"
)

// KeyConfig describes where the cipher key comes from. A raw Key wins over
// a Passphrase; exactly one of the two must be set when encryption is used.
type KeyConfig struct {
	// Key is raw key material (16, 24, or 32 bytes).
	Key []byte

	// Passphrase is stretched to KeyLength by the configured KDF.
	Passphrase []byte

	// Salt feeds Argon2id. Empty selects the built-in default.
	Salt []byte

	// KDF selects the derivation scheme. Empty means KDFRepeat.
	KDF KDF

	// Algorithm selects the AEAD construction. Empty means automatic.
	Algorithm aead.Algorithm
}

// Validate checks that the configuration can produce a usable key.
func (c KeyConfig) Validate() error {
	if len(c.Key) == 0 && len(c.Passphrase) == 0 {
		return domain.ErrKeyConfig.WithDetails("no key or passphrase configured")
	}
	if len(c.Key) > 0 && len(c.Key) < MinKeyLength {
		return domain.ErrKeyConfig.WithDetailsf("key must be at least %d bytes, got %d", MinKeyLength, len(c.Key))
	}
	if len(c.Key) == 0 && len(c.Passphrase) < MinPassphraseLength {
		return domain.ErrKeyConfig.WithDetailsf("passphrase must be at least %d bytes, got %d", MinPassphraseLength, len(c.Passphrase))
	}
	switch c.KDF {
	case "", KDFRepeat, KDFArgon2id:
	default:
		return domain.ErrKeyConfig.WithDetailsf("unknown kdf %q", c.KDF)
	}
	return nil
}

// DeriveKey produces the cipher key. The caller owns the returned slice and
// should ZeroKey it when done.
func (c KeyConfig) DeriveKey() ([]byte, error) {
	if err := c.Validate(); err != nil {
		return nil, err
	}

	if len(c.Key) > 0 {
		key := make([]byte, len(c.Key))
		copy(key, c.Key)
		return key, nil
	}

	switch c.KDF {
	case KDFArgon2id:
		salt := c.Salt
		if len(salt) == 0 {
			salt = defaultSalt
		}
		return argon2.IDKey(c.Passphrase, salt, argonTime, argonMemory, argonThreads, KeyLength), nil
	default:
		return stretchPassphrase(c.Passphrase, KeyLength), nil
	}
}

// NewCipher derives the key and builds the AEAD cipher in one step.
func NewCipher(cfg KeyConfig) (aead.Cipher, error) {
	key, err := cfg.DeriveKey()
	if err != nil {
		return nil, err
	}
	defer ZeroKey(key)

	cipher, err := aead.New(cfg.Algorithm, key)
	if err != nil {
		return nil, domain.ErrKeyConfig.WithDetails(err.Error())
	}
	return cipher, nil
}

// stretchPassphrase fills an n-byte key by repeating the passphrase
// cyclically. Artifacts from earlier releases were keyed this way.
func stretchPassphrase(passphrase []byte, n int) []byte {
	key := make([]byte, n)
	for i := range key {
		key[i] = passphrase[i%len(passphrase)]
	}
	return key
}

// ZeroKey overwrites key material after use.
func ZeroKey(key []byte) {
	for i := range key {
		key[i] = 0
	}
}
