// Package compression opens raw frame streams that may be xz, gzip or bzip2
// compressed.
package compression

import (
	"bufio"
	"bytes"
	"compress/bzip2"
	"compress/gzip"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/ulikunitz/xz"
)

// Format identifies the compression of a raw frame stream.
type Format string

const (
	FormatNone  Format = "none"
	FormatXz    Format = "xz"
	FormatGzip  Format = "gzip"
	FormatBzip2 Format = "bzip2"
)

var (
	xzMagic    = []byte{0xfd, '7', 'z', 'X', 'Z', 0x00}
	gzipMagic  = []byte{0x1f, 0x8b}
	bzip2Magic = []byte{'B', 'Z', 'h'}
)

// DetectFormat detects the compression format from the leading bytes of a
// stream, falling back to the filename extension.
func DetectFormat(header []byte, filename string) Format {
	switch {
	case bytes.HasPrefix(header, xzMagic):
		return FormatXz
	case bytes.HasPrefix(header, gzipMagic):
		return FormatGzip
	case bytes.HasPrefix(header, bzip2Magic):
		return FormatBzip2
	}
	switch strings.ToLower(filepath.Ext(filename)) {
	case ".xz":
		return FormatXz
	case ".gz":
		return FormatGzip
	case ".bz2":
		return FormatBzip2
	}
	return FormatNone
}

// NewReader wraps r with a decompressor matching its contents.
func NewReader(r io.Reader, filename string) (io.Reader, Format, error) {
	br := bufio.NewReaderSize(r, 1<<20)
	header, err := br.Peek(len(xzMagic))
	if err != nil && err != io.EOF {
		return nil, FormatNone, fmt.Errorf("failed to read stream header: %w", err)
	}

	format := DetectFormat(header, filename)
	switch format {
	case FormatXz:
		xzr, err := xz.NewReader(br)
		if err != nil {
			return nil, format, fmt.Errorf("failed to create xz reader: %w", err)
		}
		return xzr, format, nil
	case FormatGzip:
		gzr, err := gzip.NewReader(br)
		if err != nil {
			return nil, format, fmt.Errorf("failed to create gzip reader: %w", err)
		}
		return gzr, format, nil
	case FormatBzip2:
		return bzip2.NewReader(br), format, nil
	default:
		return br, FormatNone, nil
	}
}

// Stream is a possibly decompressed raw frame stream backed by a file.
type Stream struct {
	io.Reader
	Format Format
	closer io.Closer
}

// Close closes the underlying file.
func (s *Stream) Close() error {
	if s.closer == nil {
		return nil
	}
	return s.closer.Close()
}

// Open opens path (or stdin for "-") and transparently decompresses it.
func Open(path string) (*Stream, error) {
	var (
		src    io.Reader
		closer io.Closer
	)
	if path == "-" {
		src = os.Stdin
	} else {
		file, err := os.Open(path) // #nosec G304 - User-specified input path, intended to be read
		if err != nil {
			return nil, fmt.Errorf("failed to open raw stream: %w", err)
		}
		src, closer = file, file
	}

	r, format, err := NewReader(src, path)
	if err != nil {
		if closer != nil {
			closer.Close()
		}
		return nil, err
	}
	return &Stream{Reader: r, Format: format, closer: closer}, nil
}
