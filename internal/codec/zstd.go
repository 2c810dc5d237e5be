package codec

import (
	"bytes"
	"fmt"
	"io"

	"github.com/klauspost/compress/zstd"
)

// compress wraps data in a zstd frame. Save artifacts are written far less
// often than they are listed, so encode speed is favored over ratio.
func compress(data []byte) ([]byte, error) {
	var buf bytes.Buffer
	enc, err := zstd.NewWriter(&buf, zstd.WithEncoderLevel(zstd.SpeedFastest))
	if err != nil {
		return nil, fmt.Errorf("codec: new zstd writer: %w", err)
	}
	if _, err := enc.Write(data); err != nil {
		enc.Close()
		return nil, fmt.Errorf("codec: zstd write: %w", err)
	}
	if err := enc.Close(); err != nil {
		return nil, fmt.Errorf("codec: zstd close: %w", err)
	}
	return buf.Bytes(), nil
}

// decompress expands a zstd frame. Truncated or non-zstd input fails here,
// which is how plaintext corruption of compressed artifacts surfaces.
func decompress(data []byte) ([]byte, error) {
	dec, err := zstd.NewReader(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("codec: new zstd reader: %w", err)
	}
	defer dec.Close()

	out, err := io.ReadAll(dec)
	if err != nil {
		return nil, fmt.Errorf("codec: zstd read: %w", err)
	}
	return out, nil
}
