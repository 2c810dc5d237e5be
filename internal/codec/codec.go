package codec

import (
	"encoding/json"

	"github.com/calderhale/keepsake-go/internal/core/domain"
	"github.com/calderhale/keepsake-go/pkg/crypto/aead"
)

// Options selects which stages apply to one encode or decode. The same
// options must be used on both sides; artifacts carry no stage markers.
type Options struct {
	// Compress runs the zstd stage.
	Compress bool

	// Encrypt runs the AEAD stage. Requires key material in the Codec.
	Encrypt bool
}

// Config assembles a Codec.
type Config struct {
	// Key supplies cipher key material. Leave zero when encryption is
	// never requested; Encode/Decode with Encrypt=true then fail with
	// ErrKeyConfig.
	Key KeyConfig
}

// Codec encodes save records into artifact bytes and decodes them back.
// Safe for concurrent use.
type Codec struct {
	cipher aead.Cipher
}

// New builds a Codec. Key material is derived once, up front, so a
// misconfigured passphrase surfaces at assembly time rather than on the
// first save.
func New(cfg Config) (*Codec, error) {
	c := &Codec{}
	if len(cfg.Key.Key) > 0 || len(cfg.Key.Passphrase) > 0 {
		cipher, err := NewCipher(cfg.Key)
		if err != nil {
			return nil, err
		}
		c.cipher = cipher
	}
	return c, nil
}

// Cipher exposes the configured cipher, or nil when no key material was
// supplied. Used by diagnostics to report the active algorithm.
func (c *Codec) Cipher() aead.Cipher {
	return c.cipher
}

// Encode runs serialize, then optionally compress, then optionally encrypt,
// and returns the complete artifact. Nothing is written anywhere; the caller
// decides what to do with the bytes.
func (c *Codec) Encode(r *domain.RootSaveRecord, opts Options) ([]byte, error) {
	if r == nil {
		return nil, domain.ErrSerialization.WithDetails("nil record")
	}
	if err := r.Validate(); err != nil {
		return nil, err
	}

	data, err := json.Marshal(r)
	if err != nil {
		return nil, domain.ErrSerialization.WithCause(err)
	}

	if opts.Compress {
		data, err = compress(data)
		if err != nil {
			return nil, domain.ErrCompression.WithCause(err)
		}
	}

	if opts.Encrypt {
		if c.cipher == nil {
			return nil, domain.ErrKeyConfig.WithDetails("encryption requested but no key material configured")
		}
		data, err = c.cipher.Encrypt(data, nil)
		if err != nil {
			return nil, domain.ErrCrypto.WithCause(err)
		}
	}

	return data, nil
}

// Decode reverses Encode with the same options. The first stage that rejects
// the bytes names the failure: ErrCrypto for authentication or truncation,
// ErrCompression for a broken frame, ErrSerialization for malformed JSON.
func (c *Codec) Decode(data []byte, opts Options) (*domain.RootSaveRecord, error) {
	var err error

	if opts.Encrypt {
		if c.cipher == nil {
			return nil, domain.ErrKeyConfig.WithDetails("decryption requested but no key material configured")
		}
		data, err = c.cipher.Decrypt(data, nil)
		if err != nil {
			return nil, domain.ErrCrypto.WithCause(err)
		}
	}

	if opts.Compress {
		data, err = decompress(data)
		if err != nil {
			return nil, domain.ErrCompression.WithCause(err)
		}
	}

	var r domain.RootSaveRecord
	if err := json.Unmarshal(data, &r); err != nil {
		return nil, domain.ErrSerialization.WithCause(err)
	}
	// A plaintext artifact can be valid JSON of the wrong shape; an empty
	// format version is the cheapest reliable tell.
	if r.FormatVersion == "" {
		return nil, domain.ErrSerialization.WithDetails("missing format version")
	}

	return &r, nil
}
