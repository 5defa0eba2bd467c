package dump

import (
	"io"
	"os"
	"strings"

	"github.com/klauspost/compress/gzip"
	"github.com/klauspost/compress/zstd"
	"golang.org/x/xerrors"
)

// OpenFile opens path for reading, transparently decompressing files whose
// name ends in .gz or .zst.
func OpenFile(path string) (io.ReadCloser, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}

	switch {
	case strings.HasSuffix(path, ".gz"):
		zr, err := gzip.NewReader(f)
		if err != nil {
			_ = f.Close()
			return nil, xerrors.Errorf("gzip %s: %w", path, err)
		}
		return &stackedReadCloser{Reader: zr, closers: []io.Closer{zr, f}}, nil
	case strings.HasSuffix(path, ".zst"):
		zr, err := zstd.NewReader(f)
		if err != nil {
			_ = f.Close()
			return nil, xerrors.Errorf("zstd %s: %w", path, err)
		}
		return &stackedReadCloser{Reader: zr, closers: []io.Closer{zr.IOReadCloser(), f}}, nil
	}
	return f, nil
}

// CreateFile creates path for writing, compressing the output when the name
// ends in .gz or .zst.
func CreateFile(path string) (io.WriteCloser, error) {
	f, err := os.Create(path)
	if err != nil {
		return nil, err
	}

	switch {
	case strings.HasSuffix(path, ".gz"):
		zw := gzip.NewWriter(f)
		return &stackedWriteCloser{Writer: zw, closers: []io.Closer{zw, f}}, nil
	case strings.HasSuffix(path, ".zst"):
		zw, err := zstd.NewWriter(f)
		if err != nil {
			_ = f.Close()
			return nil, xerrors.Errorf("zstd %s: %w", path, err)
		}
		return &stackedWriteCloser{Writer: zw, closers: []io.Closer{zw, f}}, nil
	}
	return f, nil
}

type stackedReadCloser struct {
	io.Reader
	closers []io.Closer
}

func (s *stackedReadCloser) Close() error {
	return closeAll(s.closers)
}

type stackedWriteCloser struct {
	io.Writer
	closers []io.Closer
}

func (s *stackedWriteCloser) Close() error {
	return closeAll(s.closers)
}

// closeAll closes every closer in order and reports the first failure.
func closeAll(closers []io.Closer) error {
	var first error
	for _, c := range closers {
		if err := c.Close(); err != nil && first == nil {
			first = err
		}
	}
	return first
}
