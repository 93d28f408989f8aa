package refrance

import (
	"compress/bzip2"
	"compress/gzip"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/klauspost/compress/zstd"
	"github.com/ulikunitz/xz"
)

// CompressionType represents a stream compression scheme.
type CompressionType int

const (
	// CompressionNone represents no compression.
	CompressionNone CompressionType = iota
	// CompressionGZ represents gzip compression.
	CompressionGZ
	// CompressionBZ2 represents bzip2 compression (read-only).
	CompressionBZ2
	// CompressionXZ represents xz compression.
	CompressionXZ
	// CompressionZSTD represents zstd compression.
	CompressionZSTD
)

// String returns the short name of the compression type.
func (c CompressionType) String() string {
	switch c {
	case CompressionGZ:
		return "gz"
	case CompressionBZ2:
		return "bz2"
	case CompressionXZ:
		return "xz"
	case CompressionZSTD:
		return "zstd"
	default:
		return "none"
	}
}

// DetectCompressionType detects the compression type from a file path.
func DetectCompressionType(path string) CompressionType {
	switch lower := strings.ToLower(path); {
	case strings.HasSuffix(lower, extGZ):
		return CompressionGZ
	case strings.HasSuffix(lower, extBZ2):
		return CompressionBZ2
	case strings.HasSuffix(lower, extXZ):
		return CompressionXZ
	case strings.HasSuffix(lower, extZSTD):
		return CompressionZSTD
	default:
		return CompressionNone
	}
}

// NewDecompressingReader wraps a reader with the decompressor for the given
// type. The returned close function releases decompressor resources only;
// closing the underlying reader stays with the caller.
func NewDecompressingReader(reader io.Reader, c CompressionType) (io.Reader, func() error, error) {
	switch c {
	case CompressionNone:
		return reader, func() error { return nil }, nil

	case CompressionGZ:
		gzReader, err := gzip.NewReader(reader)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to create gzip reader: %w", err)
		}
		return gzReader, gzReader.Close, nil

	case CompressionBZ2:
		// bzip2.Reader has nothing to close.
		return bzip2.NewReader(reader), func() error { return nil }, nil

	case CompressionXZ:
		xzReader, err := xz.NewReader(reader)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to create xz reader: %w", err)
		}
		return xzReader, func() error { return nil }, nil

	case CompressionZSTD:
		decoder, err := zstd.NewReader(reader)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to create zstd reader: %w", err)
		}
		return decoder, func() error {
			decoder.Close()
			return nil
		}, nil

	default:
		return nil, nil, fmt.Errorf("unsupported compression type for reading: %v", c)
	}
}

// NewCompressingWriter wraps a writer with the compressor for the given
// type. The returned close function flushes and closes the compressor but
// not the underlying writer.
func NewCompressingWriter(writer io.Writer, c CompressionType) (io.Writer, func() error, error) {
	switch c {
	case CompressionNone:
		return writer, func() error { return nil }, nil

	case CompressionGZ:
		gzWriter := gzip.NewWriter(writer)
		return gzWriter, gzWriter.Close, nil

	case CompressionBZ2:
		// The standard library has no bzip2 writer.
		return nil, nil, errors.New("bzip2 compression is not supported for writing")

	case CompressionXZ:
		xzWriter, err := xz.NewWriter(writer)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to create xz writer: %w", err)
		}
		return xzWriter, xzWriter.Close, nil

	case CompressionZSTD:
		zstdWriter, err := zstd.NewWriter(writer)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to create zstd writer: %w", err)
		}
		return zstdWriter, zstdWriter.Close, nil

	default:
		return nil, nil, fmt.Errorf("unsupported compression type for writing: %v", c)
	}
}
