//go:build !cgo

package frame

import (
	"io"

	"github.com/klauspost/compress/zstd"
)

// newZstdReader returns a streaming Zstandard decompressor in pure Go, used
// when the toolchain builds without cgo.
func newZstdReader(r io.Reader) (io.ReadCloser, error) {
	dec, err := zstd.NewReader(r, zstd.WithDecoderConcurrency(1))
	if err != nil {
		return nil, err
	}

	return dec.IOReadCloser(), nil
}
