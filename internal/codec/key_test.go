package codec

import (
	"bytes"
	"errors"
	"testing"

	"github.com/calderhale/keepsake-go/internal/core/domain"
	"github.com/calderhale/keepsake-go/pkg/crypto/aead"
)

func TestKeyConfig_Validate(t *testing.T) {
	tests := []struct {
		name    string
		cfg     KeyConfig
		wantErr bool
	}{
		{"passphrase ok", KeyConfig{Passphrase: []byte("longenough")}, false},
		{"raw key ok", KeyConfig{Key: make([]byte, 32)}, false},
		{"raw key minimum", KeyConfig{Key: make([]byte, MinKeyLength)}, false},
		{"nothing configured", KeyConfig{}, true},
		{"key too short", KeyConfig{Key: make([]byte, 8)}, true},
		{"passphrase too short", KeyConfig{Passphrase: []byte("short")}, true},
		{"unknown kdf", KeyConfig{Passphrase: []byte("longenough"), KDF: "pbkdf9"}, true},
		{"argon2id kdf", KeyConfig{Passphrase: []byte("longenough"), KDF: KDFArgon2id}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.cfg.Validate()
			if tt.wantErr && !errors.Is(err, domain.ErrKeyConfig) {
				t.Errorf("Validate() = %v, want ErrKeyConfig", err)
			}
			if !tt.wantErr && err != nil {
				t.Errorf("Validate() = %v, want nil", err)
			}
		})
	}
}

func TestStretchPassphrase(t *testing.T) {
	key := stretchPassphrase([]byte("abc"), 8)
	if !bytes.Equal(key, []byte("abcabcab")) {
		t.Errorf("stretchPassphrase = %q, want %q", key, "abcabcab")
	}

	// Passphrase longer than the key truncates.
	key = stretchPassphrase([]byte("0123456789"), 4)
	if !bytes.Equal(key, []byte("0123")) {
		t.Errorf("stretchPassphrase = %q, want %q", key, "0123")
	}
}

func TestDeriveKey_RepeatIsDeterministic(t *testing.T) {
	cfg := KeyConfig{Passphrase: []byte("winter-garden-7")}

	k1, err := cfg.DeriveKey()
	if err != nil {
		t.Fatalf("DeriveKey: %v", err)
	}
	k2, err := cfg.DeriveKey()
	if err != nil {
		t.Fatalf("DeriveKey: %v", err)
	}

	if len(k1) != KeyLength {
		t.Errorf("key length = %d, want %d", len(k1), KeyLength)
	}
	if !bytes.Equal(k1, k2) {
		t.Error("repeat KDF should be deterministic")
	}

	// The cyclic stretch is observable byte-for-byte.
	want := stretchPassphrase([]byte("winter-garden-7"), KeyLength)
	if !bytes.Equal(k1, want) {
		t.Error("repeat KDF should equal the cyclic stretch")
	}
}

func TestDeriveKey_Argon2idDiffersFromRepeat(t *testing.T) {
	pass := []byte("winter-garden-7")

	repeat, err := KeyConfig{Passphrase: pass, KDF: KDFRepeat}.DeriveKey()
	if err != nil {
		t.Fatalf("DeriveKey(repeat): %v", err)
	}
	argon, err := KeyConfig{Passphrase: pass, KDF: KDFArgon2id}.DeriveKey()
	if err != nil {
		t.Fatalf("DeriveKey(argon2id): %v", err)
	}

	if len(argon) != KeyLength {
		t.Errorf("argon2id key length = %d, want %d", len(argon), KeyLength)
	}
	if bytes.Equal(repeat, argon) {
		t.Error("argon2id and repeat should derive different keys")
	}

	// Same passphrase and salt derive the same key.
	argon2nd, _ := KeyConfig{Passphrase: pass, KDF: KDFArgon2id}.DeriveKey()
	if !bytes.Equal(argon, argon2nd) {
		t.Error("argon2id with identical inputs should be deterministic")
	}

	// A different salt changes the key.
	salted, _ := KeyConfig{Passphrase: pass, KDF: KDFArgon2id, Salt: []byte("per-install-salt")}.DeriveKey()
	if bytes.Equal(argon, salted) {
		t.Error("argon2id with different salt should derive a different key")
	}
}

func TestDeriveKey_RawKeyWins(t *testing.T) {
	raw := bytes.Repeat([]byte{0x42}, 32)
	cfg := KeyConfig{Key: raw, Passphrase: []byte("ignored-passphrase")}

	key, err := cfg.DeriveKey()
	if err != nil {
		t.Fatalf("DeriveKey: %v", err)
	}
	if !bytes.Equal(key, raw) {
		t.Error("raw key should win over passphrase")
	}

	// The returned key is a copy; zeroing it must not touch the config.
	ZeroKey(key)
	if raw[0] != 0x42 {
		t.Error("DeriveKey should return a copy of the raw key")
	}
}

func TestNewCipher(t *testing.T) {
	c, err := NewCipher(KeyConfig{Passphrase: []byte("longenough"), Algorithm: aead.AlgorithmChaCha20})
	if err != nil {
		t.Fatalf("NewCipher: %v", err)
	}
	if c.Algorithm() != aead.AlgorithmChaCha20 {
		t.Errorf("Algorithm = %s, want %s", c.Algorithm(), aead.AlgorithmChaCha20)
	}

	if _, err := NewCipher(KeyConfig{}); !errors.Is(err, domain.ErrKeyConfig) {
		t.Errorf("NewCipher(empty) = %v, want ErrKeyConfig", err)
	}

	// A raw key of a length the algorithm rejects maps to ErrKeyConfig.
	if _, err := NewCipher(KeyConfig{Key: make([]byte, 20), Algorithm: aead.AlgorithmChaCha20}); !errors.Is(err, domain.ErrKeyConfig) {
		t.Errorf("NewCipher(20-byte chacha key) = %v, want ErrKeyConfig", err)
	}
}

func TestZeroKey(t *testing.T) {
	key := []byte{1, 2, 3, 4}
	ZeroKey(key)
	for i, b := range key {
		if b != 0 {
			t.Errorf("key[%d] = %d, want 0", i, b)
		}
	}
}
