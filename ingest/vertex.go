package ingest

import (
	"context"

	"github.com/Ahmed-Sermani/webrank/graph"
	"github.com/Ahmed-Sermani/webrank/identity"
	"github.com/Ahmed-Sermani/webrank/idmap"
	"github.com/Ahmed-Sermani/webrank/metrics"
	"github.com/Ahmed-Sermani/webrank/vector"
	"github.com/hashicorp/go-multierror"
	"github.com/sirupsen/logrus"
	"golang.org/x/xerrors"
)

// ErrOutOfStep is returned when the identity log, the vertex data vector
// and the sequence disagree on the index of a vertex.
var ErrOutOfStep = xerrors.New("vertex stores out of step")

// VertexIngesterConfig encapsulates the settings for a VertexIngester.
type VertexIngesterConfig struct {
	// Map receives identity -> index associations. It must not be sealed.
	Map idmap.Map

	// Identities is the identity log: entry i holds the identity of
	// vertex i.
	Identities *vector.Vector[identity.Identity]

	// Data receives the initial record of every vertex.
	Data *vector.Vector[graph.VertexData]

	// Sequence hands out vertex indices. A fresh sequence is used if nil.
	Sequence *Sequence

	Metrics *metrics.Metrics
	Logger  *logrus.Entry
}

func (cfg *VertexIngesterConfig) validate() error {
	var err error
	if cfg.Map == nil {
		err = multierror.Append(err, xerrors.Errorf("identity map has not been provided"))
	}
	if cfg.Identities == nil {
		err = multierror.Append(err, xerrors.Errorf("identity log has not been provided"))
	}
	if cfg.Data == nil {
		err = multierror.Append(err, xerrors.Errorf("vertex data vector has not been provided"))
	}
	if cfg.Sequence == nil {
		cfg.Sequence = new(Sequence)
	}
	if cfg.Logger == nil {
		cfg.Logger = discardLogger()
	}
	return err
}

// VertexIngester assigns dense indices to the rows of a vertex source.
type VertexIngester struct {
	cfg        VertexIngesterConfig
	collisions uint64
}

func NewVertexIngester(cfg VertexIngesterConfig) (*VertexIngester, error) {
	if err := cfg.validate(); err != nil {
		return nil, xerrors.Errorf("vertex ingester config validation failed: %w", err)
	}
	return &VertexIngester{cfg: cfg}, nil
}

// Ingest reads every row of it. Row i (counting rows of previous calls)
// gets index i: its identity is appended to the identity log, its record
// to the vertex data vector and the pair to the identity map. When two rows
// share an identity the later one wins the map entry.
//
// Ingest returns the number of rows read by this call.
func (vi *VertexIngester) Ingest(ctx context.Context, it graph.VertexIterator) (uint64, error) {
	var count uint64
	for it.Next() {
		if err := ctx.Err(); err != nil {
			return count, err
		}

		v := it.Vertex()
		id := v.Identity()
		idx := vi.cfg.Sequence.Next()

		pos, err := vi.cfg.Identities.Append(id)
		if err != nil {
			return count, xerrors.Errorf("ingest vertex %d: %w", idx, err)
		}
		if pos != idx {
			return count, xerrors.Errorf("ingest vertex %d: identity log position %d: %w", idx, pos, ErrOutOfStep)
		}
		if pos, err = vi.cfg.Data.Append(v.Data()); err != nil {
			return count, xerrors.Errorf("ingest vertex %d: %w", idx, err)
		} else if pos != idx {
			return count, xerrors.Errorf("ingest vertex %d: vertex data position %d: %w", idx, pos, ErrOutOfStep)
		}

		prev, replaced, err := vi.cfg.Map.Insert(id, idx)
		if err != nil {
			return count, xerrors.Errorf("ingest vertex %d: %w", idx, err)
		}
		if replaced {
			vi.collisions++
			vi.cfg.Metrics.Collision()
			vi.cfg.Logger.WithFields(logrus.Fields{
				"identity": id,
				"previous": prev,
				"index":    idx,
				"url":      v.URL,
			}).Warn("duplicate vertex identity; keeping the later row")
		}

		vi.cfg.Metrics.VertexIngested()
		count++
	}
	if err := it.Error(); err != nil {
		return count, xerrors.Errorf("read vertex source: %w", err)
	}
	return count, nil
}

// Collisions returns the number of rows whose identity was already mapped.
func (vi *VertexIngester) Collisions() uint64 { return vi.collisions }

// NumVertices returns the number of indices assigned so far.
func (vi *VertexIngester) NumVertices() uint64 { return vi.cfg.Sequence.Len() }
