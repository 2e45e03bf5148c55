// Package archive builds compressed tar artifacts for day buckets and commits
// them atomically to a destination sink.
package archive

import (
	"compress/gzip"
	"errors"
	"fmt"
	"io"

	"github.com/pierrec/lz4/v4"
)

// Codec names accepted in configuration.
const (
	CodecGzip = "gzip"
	CodecLZ4  = "lz4"
)

// File extensions for supported codecs.
const (
	gzipExtension = ".tar.gz"
	lz4Extension  = ".tar.lz4"
)

// ErrUnknownCodec is returned for an unsupported codec name.
var ErrUnknownCodec = errors.New("unknown archive codec")

// Codec defines how the tar stream of an artifact is compressed.
type Codec interface {
	// Name returns the configuration name of the codec.
	Name() string
	// Extension returns the artifact file extension (e.g., ".tar.gz").
	Extension() string
	// NewWriter wraps w with a compressor. Close flushes the compressed stream
	// but does not close w.
	NewWriter(w io.Writer) (io.WriteCloser, error)
	// NewReader wraps r with a decompressor.
	NewReader(r io.Reader) (io.Reader, error)
}

// GzipCodec compresses artifacts with gzip.
// The zero value uses gzip.DefaultCompression.
type GzipCodec struct {
	level    int
	levelSet bool
}

// NewGzipCodec returns a gzip codec with an explicit compression level,
// including gzip.NoCompression.
func NewGzipCodec(level int) GzipCodec {
	return GzipCodec{level: level, levelSet: true}
}

// Name implements Codec.
func (c GzipCodec) Name() string { return CodecGzip }

// Extension implements Codec.
func (c GzipCodec) Extension() string { return gzipExtension }

// NewWriter implements Codec.
func (c GzipCodec) NewWriter(w io.Writer) (io.WriteCloser, error) {
	level := gzip.DefaultCompression
	if c.levelSet {
		level = c.level
	}

	zw, err := gzip.NewWriterLevel(w, level)
	if err != nil {
		return nil, fmt.Errorf("gzip writer: %w", err)
	}

	return zw, nil
}

// NewReader implements Codec.
func (c GzipCodec) NewReader(r io.Reader) (io.Reader, error) {
	zr, err := gzip.NewReader(r)
	if err != nil {
		return nil, fmt.Errorf("gzip reader: %w", err)
	}

	return zr, nil
}

// LZ4Codec compresses artifacts with the LZ4 frame format.
type LZ4Codec struct{}

// Name implements Codec.
func (c LZ4Codec) Name() string { return CodecLZ4 }

// Extension implements Codec.
func (c LZ4Codec) Extension() string { return lz4Extension }

// NewWriter implements Codec.
func (c LZ4Codec) NewWriter(w io.Writer) (io.WriteCloser, error) {
	return lz4.NewWriter(w), nil
}

// NewReader implements Codec.
func (c LZ4Codec) NewReader(r io.Reader) (io.Reader, error) {
	return lz4.NewReader(r), nil
}

// CodecByName returns the codec registered under name.
func CodecByName(name string) (Codec, error) {
	switch name {
	case CodecGzip, "":
		return GzipCodec{}, nil
	case CodecLZ4:
		return LZ4Codec{}, nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownCodec, name)
	}
}
