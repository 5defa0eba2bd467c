package dump

import (
	"database/sql"
	"encoding/csv"
	"io"
	"strconv"
	"strings"

	"github.com/Ahmed-Sermani/webrank/graph"
	"github.com/Ahmed-Sermani/webrank/identity"
	"golang.org/x/xerrors"
)

// VertexOptions tune a vertex file reader.
type VertexOptions struct {
	// Prehashed reads the first column as a "hi-lo" identity instead of a
	// URL.
	Prehashed bool
}

// VertexReader iterates the rows of a "url,trustrank,pornrank" CSV file.
// Missing or empty score columns are null. A leading header row whose first
// column is "url" or "hash" is skipped.
type VertexReader struct {
	r      *csv.Reader
	closer io.Closer
	opts   VertexOptions

	row     uint64
	lastErr error
	latched *graph.Vertex
}

// NewVertexReader reads an uncompressed vertex file from r.
func NewVertexReader(r io.Reader, opts VertexOptions) *VertexReader {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.ReuseRecord = true
	return &VertexReader{r: cr, opts: opts}
}

// OpenVertexFile opens the vertex file at path. Files ending in .gz or .zst
// are decompressed on the fly.
func OpenVertexFile(path string, opts VertexOptions) (*VertexReader, error) {
	rc, err := OpenFile(path)
	if err != nil {
		return nil, xerrors.Errorf("open vertex file: %w", err)
	}
	r := NewVertexReader(rc, opts)
	r.closer = rc
	return r, nil
}

func (r *VertexReader) Next() bool {
	if r.lastErr != nil {
		return false
	}

	for {
		rec, err := r.r.Read()
		if err == io.EOF {
			return false
		} else if err != nil {
			r.lastErr = xerrors.Errorf("read vertex file: %w", err)
			return false
		}
		r.row++
		if r.row == 1 && isHeader(rec) {
			continue
		}

		v, err := r.parse(rec)
		if err != nil {
			r.lastErr = xerrors.Errorf("row %d: %w", r.row, err)
			return false
		}
		r.latched = v
		return true
	}
}

func isHeader(rec []string) bool {
	first := strings.ToLower(strings.TrimSpace(rec[0]))
	return first == "url" || first == "hash"
}

func (r *VertexReader) parse(rec []string) (*graph.Vertex, error) {
	if len(rec) == 0 || len(rec) > 3 || rec[0] == "" {
		return nil, graph.ErrMalformedVertex
	}

	v := &graph.Vertex{}
	if r.opts.Prehashed {
		id, err := identity.Parse(rec[0])
		if err != nil {
			return nil, xerrors.Errorf("%v: %w", err, graph.ErrMalformedVertex)
		}
		v.ID, v.HasID = id, true
	} else {
		v.URL = rec[0]
	}

	var err error
	if len(rec) > 1 {
		if v.TrustRank, err = parseScore(rec[1]); err != nil {
			return nil, err
		}
	}
	if len(rec) > 2 {
		if v.PornRank, err = parseScore(rec[2]); err != nil {
			return nil, err
		}
	}
	return v, nil
}

func parseScore(field string) (sql.NullFloat64, error) {
	field = strings.TrimSpace(field)
	if field == "" {
		return sql.NullFloat64{}, nil
	}
	f, err := strconv.ParseFloat(field, 64)
	if err != nil {
		return sql.NullFloat64{}, xerrors.Errorf("score %q: %w", field, graph.ErrMalformedVertex)
	}
	return sql.NullFloat64{Float64: f, Valid: true}, nil
}

func (r *VertexReader) Vertex() *graph.Vertex {
	return r.latched
}

func (r *VertexReader) Error() error {
	return r.lastErr
}

func (r *VertexReader) Close() error {
	if r.closer == nil {
		return nil
	}
	err := r.closer.Close()
	r.closer = nil
	if err != nil {
		return xerrors.Errorf("vertex file: %w", err)
	}
	return nil
}
