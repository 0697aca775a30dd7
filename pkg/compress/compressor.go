package compress

import (
	"bytes"
	"fmt"

	"github.com/andybalholm/brotli"
	"github.com/klauspost/compress/flate"
	"github.com/klauspost/compress/gzip"
)

// Compressor executes one content encoding. Implementations are selected at
// construction time; there is no runtime capability probing.
type Compressor interface {
	// Method returns the encoding this compressor produces.
	Method() Method

	// Compress encodes data. Implementations must be safe for concurrent use.
	Compress(data []byte) ([]byte, error)
}

// NewCompressor returns the compressor for a method, or an error for
// Identity and unknown methods.
func NewCompressor(method Method) (Compressor, error) {
	switch method {
	case Brotli:
		return brotliCompressor{}, nil
	case Gzip:
		return gzipCompressor{}, nil
	case Deflate:
		return deflateCompressor{}, nil
	default:
		return nil, fmt.Errorf("no compressor for method %q", method)
	}
}

type brotliCompressor struct{}

func (brotliCompressor) Method() Method { return Brotli }

func (brotliCompressor) Compress(data []byte) ([]byte, error) {
	var buf bytes.Buffer
	w := brotli.NewWriterLevel(&buf, brotli.DefaultCompression)
	if _, err := w.Write(data); err != nil {
		return nil, fmt.Errorf("brotli write: %w", err)
	}
	if err := w.Close(); err != nil {
		return nil, fmt.Errorf("brotli close: %w", err)
	}
	return buf.Bytes(), nil
}

type gzipCompressor struct{}

func (gzipCompressor) Method() Method { return Gzip }

func (gzipCompressor) Compress(data []byte) ([]byte, error) {
	var buf bytes.Buffer
	w, err := gzip.NewWriterLevel(&buf, gzip.DefaultCompression)
	if err != nil {
		return nil, fmt.Errorf("gzip writer: %w", err)
	}
	if _, err := w.Write(data); err != nil {
		return nil, fmt.Errorf("gzip write: %w", err)
	}
	if err := w.Close(); err != nil {
		return nil, fmt.Errorf("gzip close: %w", err)
	}
	return buf.Bytes(), nil
}

type deflateCompressor struct{}

func (deflateCompressor) Method() Method { return Deflate }

func (deflateCompressor) Compress(data []byte) ([]byte, error) {
	var buf bytes.Buffer
	w, err := flate.NewWriter(&buf, flate.DefaultCompression)
	if err != nil {
		return nil, fmt.Errorf("deflate writer: %w", err)
	}
	if _, err := w.Write(data); err != nil {
		return nil, fmt.Errorf("deflate write: %w", err)
	}
	if err := w.Close(); err != nil {
		return nil, fmt.Errorf("deflate close: %w", err)
	}
	return buf.Bytes(), nil
}
