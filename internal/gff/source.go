package gff

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/klauspost/compress/gzip"
)

// Source is a line stream that can be opened more than once. The conversion
// pipeline reads its input twice (attribute discovery, then emission), so it
// requires the stream content to be identical across opens.
type Source interface {
	// Open returns a fresh reader positioned at the start of the stream.
	Open() (io.ReadCloser, error)

	// Name identifies the source in diagnostics.
	Name() string
}

// FileSource re-opens a file for every pass. Paths ending in ".gz" are
// decompressed transparently.
type FileSource struct {
	Path string
}

// Open opens the file, wrapping it in a gzip reader when the path has a
// ".gz" suffix.
func (s FileSource) Open() (io.ReadCloser, error) {
	f, err := os.Open(s.Path)
	if err != nil {
		return nil, err
	}

	if !strings.HasSuffix(s.Path, ".gz") {
		return f, nil
	}

	gz, err := gzip.NewReader(f)
	if err != nil {
		_ = f.Close()

		return nil, fmt.Errorf("open gzip %s: %w", s.Path, err)
	}

	return &gzipReadCloser{gz: gz, file: f}, nil
}

// Name returns the file path.
func (s FileSource) Name() string {
	return s.Path
}

// gzipReadCloser closes both the decompressor and the underlying file.
type gzipReadCloser struct {
	gz   *gzip.Reader
	file *os.File
}

func (g *gzipReadCloser) Read(p []byte) (int, error) {
	return g.gz.Read(p)
}

func (g *gzipReadCloser) Close() error {
	gzErr := g.gz.Close()

	if err := g.file.Close(); err != nil {
		return err
	}

	return gzErr
}

// BufferSource serves a fully buffered stream. It backs non-seekable inputs
// (stdin pipes) where re-reading the origin cannot be guaranteed stable:
// the bytes are captured once and both passes iterate the same buffer.
type BufferSource struct {
	Label string
	Data  []byte
}

// BufferAll drains r into memory and returns a source over the captured
// bytes.
func BufferAll(label string, r io.Reader) (BufferSource, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return BufferSource{}, fmt.Errorf("read %s: %w", label, err)
	}

	return BufferSource{Label: label, Data: data}, nil
}

// Open returns a reader over the buffered bytes.
func (s BufferSource) Open() (io.ReadCloser, error) {
	return io.NopCloser(bytes.NewReader(s.Data)), nil
}

// Name returns the label given at capture time.
func (s BufferSource) Name() string {
	return s.Label
}
