// Package fileio opens plain, gzip and zstd compressed inputs and outputs.
package fileio

import (
	"io"
	"strings"

	"github.com/klauspost/compress/gzip"
	"github.com/klauspost/compress/zstd"
)

// Codec provides compression and decompression functionality.
type Codec interface {
	// Reader wraps r to decompress data read from it.
	Reader(r io.Reader) (io.ReadCloser, error)
	// Writer wraps w to compress data written to it.
	Writer(w io.Writer) (io.WriteCloser, error)
	// Extension returns the file extension without dot (e.g., "zst", "gz").
	// Returns empty string for no compression.
	Extension() string
}

// Compile-time checks that the codecs implement Codec.
var (
	_ Codec = GzipCodec{}
	_ Codec = ZstdCodec{}
	_ Codec = PlainCodec{}
)

// GzipCodec implements gzip compression.
type GzipCodec struct{}

func (GzipCodec) Reader(r io.Reader) (io.ReadCloser, error) {
	return gzip.NewReader(r)
}

func (GzipCodec) Writer(w io.Writer) (io.WriteCloser, error) {
	return gzip.NewWriter(w), nil
}

func (GzipCodec) Extension() string { return "gz" }

// ZstdCodec implements zstd compression.
type ZstdCodec struct{}

func (ZstdCodec) Reader(r io.Reader) (io.ReadCloser, error) {
	decoder, err := zstd.NewReader(r)
	if err != nil {
		return nil, err
	}
	return decoder.IOReadCloser(), nil
}

func (ZstdCodec) Writer(w io.Writer) (io.WriteCloser, error) {
	return zstd.NewWriter(w)
}

func (ZstdCodec) Extension() string { return "zst" }

// PlainCodec passes data through unchanged.
type PlainCodec struct{}

func (PlainCodec) Reader(r io.Reader) (io.ReadCloser, error) {
	return io.NopCloser(r), nil
}

func (PlainCodec) Writer(w io.Writer) (io.WriteCloser, error) {
	return nopWriteCloser{w}, nil
}

func (PlainCodec) Extension() string { return "" }

type nopWriteCloser struct{ io.Writer }

func (nopWriteCloser) Close() error { return nil }

// CodecForMagic picks a codec from the leading bytes of a stream.
func CodecForMagic(head []byte) Codec {
	switch {
	case len(head) >= 2 && head[0] == 0x1f && head[1] == 0x8b:
		return GzipCodec{}
	case len(head) >= 4 && head[0] == 0x28 && head[1] == 0xb5 && head[2] == 0x2f && head[3] == 0xfd:
		return ZstdCodec{}
	}
	return PlainCodec{}
}

// CodecForPath picks a codec from a file name extension.
func CodecForPath(path string) Codec {
	lower := strings.ToLower(path)
	switch {
	case strings.HasSuffix(lower, ".gz"):
		return GzipCodec{}
	case strings.HasSuffix(lower, ".zst"):
		return ZstdCodec{}
	}
	return PlainCodec{}
}
