//go:build cgo

package frame

import (
	"io"

	"github.com/valyala/gozstd"
)

// newZstdReader returns a streaming Zstandard decompressor backed by the
// cgo libzstd bindings.
func newZstdReader(r io.Reader) (io.ReadCloser, error) {
	return &gozstdReader{zr: gozstd.NewReader(r)}, nil
}

type gozstdReader struct {
	zr *gozstd.Reader
}

func (g *gozstdReader) Read(p []byte) (int, error) {
	return g.zr.Read(p)
}

// Close releases the C-side decompression context.
func (g *gozstdReader) Close() error {
	g.zr.Release()
	return nil
}
