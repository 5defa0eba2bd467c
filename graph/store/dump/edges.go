package dump

import (
	"bufio"
	"io"
	"strings"

	"github.com/Ahmed-Sermani/webrank/graph"
	"github.com/sirupsen/logrus"
	"golang.org/x/xerrors"
)

// maxLineSize bounds a single dump line; longer lines fail the scan.
const maxLineSize = 16 << 20

// EdgeOptions tune an edge dump reader.
type EdgeOptions struct {
	// Strict turns malformed lines into a graph.ErrMalformedEdge failure
	// instead of skipping them.
	Strict bool

	// Logger receives a warning for each skipped line. Optional.
	Logger *logrus.Entry
}

// EdgeReader iterates the "src,dst" lines of an edge dump. Everything after
// the second comma-separated field is ignored. Blank lines are skipped
// silently.
type EdgeReader struct {
	sc     *bufio.Scanner
	closer io.Closer
	opts   EdgeOptions

	line      uint64
	malformed uint64
	lastErr   error
	latched   *graph.Edge
}

// NewEdgeReader reads an uncompressed edge dump from r.
func NewEdgeReader(r io.Reader, opts EdgeOptions) *EdgeReader {
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 64*1024), maxLineSize)
	return &EdgeReader{sc: sc, opts: opts}
}

// OpenEdgeFile opens the edge dump at path. Files ending in .gz or .zst are
// decompressed on the fly.
func OpenEdgeFile(path string, opts EdgeOptions) (*EdgeReader, error) {
	rc, err := OpenFile(path)
	if err != nil {
		return nil, xerrors.Errorf("open edge dump: %w", err)
	}
	r := NewEdgeReader(rc, opts)
	r.closer = rc
	return r, nil
}

func (r *EdgeReader) Next() bool {
	for r.lastErr == nil && r.sc.Scan() {
		r.line++
		text := strings.TrimSuffix(r.sc.Text(), "\r")
		if text == "" {
			continue
		}

		src, dst, ok := splitEdge(text)
		if ok {
			r.latched = &graph.Edge{Src: src, Dst: dst, Line: r.line}
			return true
		}

		if r.opts.Strict {
			r.lastErr = xerrors.Errorf("line %d: %w", r.line, graph.ErrMalformedEdge)
			return false
		}
		r.malformed++
		if r.opts.Logger != nil {
			r.opts.Logger.WithField("line", r.line).Warn("skipping malformed edge record")
		}
	}

	if r.lastErr == nil {
		if err := r.sc.Err(); err != nil {
			r.lastErr = xerrors.Errorf("read edge dump: %w", err)
		}
	}
	return false
}

func splitEdge(text string) (string, string, bool) {
	src, rest, found := strings.Cut(text, ",")
	if !found {
		return "", "", false
	}
	dst, _, _ := strings.Cut(rest, ",")
	if src == "" || dst == "" {
		return "", "", false
	}
	return src, dst, true
}

func (r *EdgeReader) Edge() *graph.Edge {
	return r.latched
}

func (r *EdgeReader) Error() error {
	return r.lastErr
}

// Malformed returns the number of lines skipped so far.
func (r *EdgeReader) Malformed() uint64 {
	return r.malformed
}

func (r *EdgeReader) Close() error {
	if r.closer == nil {
		return nil
	}
	err := r.closer.Close()
	r.closer = nil
	if err != nil {
		return xerrors.Errorf("edge dump: %w", err)
	}
	return nil
}

// EdgeWriter writes "src,dst" edge dump lines.
type EdgeWriter struct {
	w      *bufio.Writer
	closer io.Closer
}

// NewEdgeWriter writes an uncompressed edge dump to w.
func NewEdgeWriter(w io.Writer) *EdgeWriter {
	return &EdgeWriter{w: bufio.NewWriter(w)}
}

// CreateEdgeFile creates an edge dump at path, compressed according to its
// suffix.
func CreateEdgeFile(path string) (*EdgeWriter, error) {
	wc, err := CreateFile(path)
	if err != nil {
		return nil, xerrors.Errorf("create edge dump: %w", err)
	}
	w := NewEdgeWriter(wc)
	w.closer = wc
	return w, nil
}

func (w *EdgeWriter) Write(src, dst string) error {
	if _, err := w.w.WriteString(src); err != nil {
		return err
	}
	if err := w.w.WriteByte(','); err != nil {
		return err
	}
	if _, err := w.w.WriteString(dst); err != nil {
		return err
	}
	return w.w.WriteByte('\n')
}

// Close flushes buffered lines and closes the underlying file, if any.
func (w *EdgeWriter) Close() error {
	err := w.w.Flush()
	if w.closer != nil {
		if cErr := w.closer.Close(); err == nil {
			err = cErr
		}
		w.closer = nil
	}
	if err != nil {
		return xerrors.Errorf("edge dump: %w", err)
	}
	return nil
}
