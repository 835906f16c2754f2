package compression

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/klauspost/compress/gzip"
	"github.com/klauspost/compress/zstd"
	"github.com/ulikunitz/xz"
)

// Format identifies a compression container by file extension.
type Format string

const (
	None Format = ""
	Gzip Format = "gzip"
	Zstd Format = "zstd"
	Xz   Format = "xz"
)

// DetectFormat maps the file extension onto a Format.
func DetectFormat(path string) Format {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".gz":
		return Gzip
	case ".zst", ".zstd":
		return Zstd
	case ".xz":
		return Xz
	default:
		return None
	}
}

type multiCloser struct {
	io.Reader
	closers []func() error
}

func (m *multiCloser) Close() error {
	var first error
	for _, c := range m.closers {
		if err := c(); err != nil && first == nil {
			first = err
		}
	}
	return first
}

// Open returns a reader over the decompressed content of path.
// Errors from os.Open are returned unwrapped so callers can use os.IsNotExist.
func Open(path string) (io.ReadCloser, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, err
	}

	rc, err := NewReader(file, DetectFormat(path))
	if err != nil {
		file.Close()
		return nil, fmt.Errorf("failed to open %s: %w", path, err)
	}
	return &multiCloser{Reader: rc, closers: []func() error{rc.Close, file.Close}}, nil
}

// NewReader wraps r with a decompressor for format. Closing the result does
// not close r.
func NewReader(r io.Reader, format Format) (io.ReadCloser, error) {
	switch format {
	case Gzip:
		gzReader, err := gzip.NewReader(r)
		if err != nil {
			return nil, fmt.Errorf("failed to create gzip reader: %w", err)
		}
		return gzReader, nil
	case Zstd:
		zstdReader, err := zstd.NewReader(r)
		if err != nil {
			return nil, fmt.Errorf("failed to create zstd reader: %w", err)
		}
		return zstdReader.IOReadCloser(), nil
	case Xz:
		xzReader, err := xz.NewReader(r)
		if err != nil {
			return nil, fmt.Errorf("failed to create xz reader: %w", err)
		}
		return io.NopCloser(xzReader), nil
	case None:
		return io.NopCloser(r), nil
	default:
		return nil, fmt.Errorf("unsupported compression format %q", format)
	}
}

// ReadFile reads and decompresses the whole file.
func ReadFile(path string) ([]byte, error) {
	rc, err := Open(path)
	if err != nil {
		return nil, err
	}
	defer rc.Close()

	data, err := io.ReadAll(rc)
	if err != nil {
		return nil, fmt.Errorf("failed to decompress %s: %w", path, err)
	}
	return data, nil
}
