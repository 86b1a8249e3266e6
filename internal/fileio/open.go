package fileio

import (
	"bufio"
	"fmt"
	"io"
	"os"
)

// Open opens path for reading, transparently decompressing gzip and zstd
// content detected by magic bytes. Use "-" for stdin.
func Open(path string) (io.ReadCloser, error) {
	if path == "-" {
		return NewReader(os.Stdin)
	}

	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}

	rc, err := NewReader(file)
	if err != nil {
		file.Close()
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	return &stackedCloser{ReadCloser: rc, under: file}, nil
}

// NewReader wraps r, decompressing it if it starts with a known magic number.
// The returned closer does not close r.
func NewReader(r io.Reader) (io.ReadCloser, error) {
	br := bufio.NewReader(r)

	// Peek returns fewer bytes and io.EOF for short inputs, which is fine.
	head, err := br.Peek(4)
	if err != nil && err != io.EOF {
		return nil, fmt.Errorf("read header: %w", err)
	}

	rc, err := CodecForMagic(head).Reader(br)
	if err != nil {
		return nil, fmt.Errorf("create decompressor: %w", err)
	}
	return rc, nil
}

// Create opens path for writing, compressing according to its extension.
// An empty path or "-" writes to stdout.
func Create(path string) (io.WriteCloser, error) {
	if path == "" || path == "-" {
		return nopWriteCloser{os.Stdout}, nil
	}

	file, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("create %s: %w", path, err)
	}

	wc, err := CodecForPath(path).Writer(file)
	if err != nil {
		file.Close()
		return nil, fmt.Errorf("create compressor: %w", err)
	}
	return &stackedWriteCloser{WriteCloser: wc, under: file}, nil
}

// stackedCloser closes the decoder and then the file beneath it.
type stackedCloser struct {
	io.ReadCloser
	under io.Closer
}

func (s *stackedCloser) Close() error {
	err := s.ReadCloser.Close()
	if uerr := s.under.Close(); err == nil {
		err = uerr
	}
	return err
}

// stackedWriteCloser flushes the encoder and then closes the file.
type stackedWriteCloser struct {
	io.WriteCloser
	under io.Closer
}

func (s *stackedWriteCloser) Close() error {
	err := s.WriteCloser.Close()
	if uerr := s.under.Close(); err == nil {
		err = uerr
	}
	return err
}
