package frame

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/klauspost/compress/gzip"
	"github.com/pierrec/lz4/v4"
)

// Open reads a CSV file into a Frame, transparently decompressing by file
// extension: .gz (gzip), .zst (Zstandard) and .lz4 are recognized; any other
// extension is read as plain CSV.
//
// Example:
//
//	f, err := frame.Open("data/brfss_extract.csv.gz")
//	if err != nil {
//	    return err
//	}
func Open(path string) (*Frame, error) {
	rc, err := openReader(path)
	if err != nil {
		return nil, err
	}
	defer rc.Close()

	f, err := ReadCSV(rc)
	if err != nil {
		return nil, fmt.Errorf("frame: %s: %w", path, err)
	}

	return f, nil
}

// openReader opens path and stacks the decompressor its extension calls for.
func openReader(path string) (io.ReadCloser, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("frame: %w", err)
	}

	switch strings.ToLower(filepath.Ext(path)) {
	case ".gz":
		gz, err := gzip.NewReader(file)
		if err != nil {
			file.Close()
			return nil, fmt.Errorf("frame: %s: %w", path, err)
		}

		return &layeredReader{r: gz, closers: []io.Closer{gz, file}}, nil

	case ".zst":
		zr, err := newZstdReader(file)
		if err != nil {
			file.Close()
			return nil, fmt.Errorf("frame: %s: %w", path, err)
		}

		return &layeredReader{r: zr, closers: []io.Closer{zr, file}}, nil

	case ".lz4":
		return &layeredReader{r: lz4.NewReader(file), closers: []io.Closer{file}}, nil

	default:
		return file, nil
	}
}

// layeredReader closes the decompressor before the file underneath it.
type layeredReader struct {
	r       io.Reader
	closers []io.Closer
}

func (l *layeredReader) Read(p []byte) (int, error) {
	return l.r.Read(p)
}

func (l *layeredReader) Close() error {
	var first error
	for _, c := range l.closers {
		if err := c.Close(); err != nil && first == nil {
			first = err
		}
	}

	return first
}
