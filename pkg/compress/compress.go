// Package compress wraps zstd with shared encoder and decoder instances.
package compress

import (
	"bytes"
	"fmt"
	"io"
	"sync"

	"github.com/klauspost/compress/zstd"
)

var (
	encOnce sync.Once
	enc     *zstd.Encoder
	decOnce sync.Once
	dec     *zstd.Decoder
)

func encoder() *zstd.Encoder {
	encOnce.Do(func() {
		// Options are static; NewWriter(nil) cannot fail with them.
		enc, _ = zstd.NewWriter(nil, zstd.WithEncoderLevel(zstd.SpeedDefault))
	})
	return enc
}

func decoder() *zstd.Decoder {
	decOnce.Do(func() {
		dec, _ = zstd.NewReader(nil)
	})
	return dec
}

// Encode compresses src in one shot. Safe for concurrent use.
func Encode(src []byte) []byte {
	return encoder().EncodeAll(src, make([]byte, 0, len(src)/2))
}

// Decode decompresses a frame produced by Encode.
func Decode(src []byte) ([]byte, error) {
	out, err := decoder().DecodeAll(src, nil)
	if err != nil {
		return nil, fmt.Errorf("compress.Decode: %w", err)
	}
	return out, nil
}

// NewWriter returns a streaming zstd writer on w. Close it to flush.
func NewWriter(w io.Writer) (io.WriteCloser, error) {
	zw, err := zstd.NewWriter(w)
	if err != nil {
		return nil, fmt.Errorf("compress.NewWriter: %w", err)
	}
	return zw, nil
}

// Buffer compresses the output of fill into memory.
func Buffer(fill func(w io.Writer) error) (*bytes.Buffer, error) {
	var buf bytes.Buffer
	zw, err := NewWriter(&buf)
	if err != nil {
		return nil, err
	}
	if err := fill(zw); err != nil {
		_ = zw.Close()
		return nil, err
	}
	if err := zw.Close(); err != nil {
		return nil, fmt.Errorf("compress.Buffer: %w", err)
	}
	return &buf, nil
}
