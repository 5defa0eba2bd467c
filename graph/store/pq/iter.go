package pq

import (
	"database/sql"

	"github.com/Ahmed-Sermani/webrank/graph"
	"github.com/Ahmed-Sermani/webrank/identity"
	"golang.org/x/xerrors"
)

type vertexIterator struct {
	rows          *sql.Rows
	prehashed     bool
	lastErr       error
	latchedVertex *graph.Vertex
}

func (i *vertexIterator) Next() bool {
	if i.lastErr != nil || !i.rows.Next() {
		if i.lastErr == nil {
			i.lastErr = i.rows.Err()
		}
		return false
	}

	v := &graph.Vertex{}
	if i.prehashed {
		var hi, lo int64
		i.lastErr = i.rows.Scan(&hi, &lo, &v.TrustRank, &v.PornRank)
		v.ID, v.HasID = identity.FromWords(hi, lo), true
	} else {
		i.lastErr = i.rows.Scan(&v.URL, &v.TrustRank, &v.PornRank)
	}
	if i.lastErr != nil {
		i.lastErr = xerrors.Errorf("scan vertex: %w", i.lastErr)
		return false
	}
	i.latchedVertex = v
	return true
}

func (i *vertexIterator) Error() error {
	return i.lastErr
}

func (i *vertexIterator) Close() error {
	if err := i.rows.Close(); err != nil {
		return xerrors.Errorf("vertex iter: %w", err)
	}
	return nil
}

func (i *vertexIterator) Vertex() *graph.Vertex {
	return i.latchedVertex
}
