/*
   Out-of-core vertex-centric graph processing over the sharded graph store.
   Each iteration walks the vertex intervals in order; for interval p the
   in-edges come from shard p (loaded whole) and the out-edges from the
   matching window of every shard.
*/
package engine

import (
	"context"
	"encoding/binary"
	"io"

	"github.com/Ahmed-Sermani/webrank/shard"
	"github.com/Ahmed-Sermani/webrank/vector"
	"github.com/hashicorp/go-multierror"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"
	"golang.org/x/xerrors"
)

// ErrCorruptShard is returned when the shard files disagree with the degree
// file or the manifest.
var ErrCorruptShard = xerrors.New("corrupt shard")

type Aggregator interface {
	Type() string
	Set(val any)
	Get() any
	// updates the Aggregator value based on the current value.
	Aggregate(val any)

	// Delta returns the change in the aggregator's value since the last
	// call to Delta.
	Delta() any
}

// Program is executed by the engine. Update is called once per vertex per
// iteration, sequentially and in vertex index order. Changes made through
// the vertex and its edges are persisted when the interval completes.
type Program[VT, ET any] interface {
	// BeforeIteration is invoked before the first interval of every
	// iteration. This is a good place to reset aggregators.
	BeforeIteration(e *Engine[VT, ET]) error

	// BeforeInterval is invoked once the vertices in [start, end) are
	// loaded.
	BeforeInterval(e *Engine[VT, ET], start, end uint64) error

	Update(e *Engine[VT, ET], v *Vertex[VT, ET]) error

	// AfterIteration is invoked after the last interval of every
	// iteration.
	AfterIteration(e *Engine[VT, ET]) error
}

type Vertex[VT, ET any] struct {
	id    uint64
	value *VT
	in    []Edge[ET]
	out   []Edge[ET]
}

func (v *Vertex[VT, ET]) ID() uint64 { return v.id }

func (v *Vertex[VT, ET]) Value() VT { return *v.value }

func (v *Vertex[VT, ET]) SetValue(val VT) { *v.value = val }

func (v *Vertex[VT, ET]) InEdges() []Edge[ET] { return v.in }

func (v *Vertex[VT, ET]) OutEdges() []Edge[ET] { return v.out }

func (v *Vertex[VT, ET]) NumInEdges() int { return len(v.in) }

func (v *Vertex[VT, ET]) NumOutEdges() int { return len(v.out) }

// Edge is a reference to the value of an edge loaded for the current
// interval.
type Edge[ET any] struct {
	neighbor uint64
	value    *ET
}

// Neighbor returns the vertex at the other end of the edge: the source of an
// in-edge or the destination of an out-edge.
func (e Edge[ET]) Neighbor() uint64 { return e.neighbor }

func (e Edge[ET]) Value() ET { return *e.value }

func (e Edge[ET]) SetValue(val ET) { *e.value = val }

// Config configures an Engine.
type Config struct {
	// Dir and Name locate the sharded graph.
	Dir  string
	Name string

	// Logger for progress output. Defaults to a discarding logger.
	Logger *logrus.Entry
}

func (cfg *Config) validate() error {
	var err error
	if cfg.Dir == "" {
		err = multierror.Append(err, xerrors.Errorf("graph directory has not been specified"))
	}
	if cfg.Name == "" {
		cfg.Name = shard.DefaultName
	}
	if cfg.Logger == nil {
		l := logrus.New()
		l.Out = io.Discard
		cfg.Logger = logrus.NewEntry(l)
	}
	return err
}

// Engine runs a Program over a sharded graph. It is important for callers
// to invoke Close() when they are done using it.
type Engine[VT, ET any] struct {
	cfg      Config
	manifest *shard.Manifest

	vdata *vector.Vector[VT]
	deg   *vector.Vector[shard.Degree]
	adj   []*vector.Vector[shard.Edge]
	edata []*vector.Vector[ET]

	aggregators   map[string]Aggregator
	iteration     int
	numIterations int
}

// Open opens the sharded graph described by cfg.
func Open[VT, ET any](cfg Config) (*Engine[VT, ET], error) {
	if err := cfg.validate(); err != nil {
		return nil, xerrors.Errorf("engine config validation failed: %w", err)
	}

	m, err := shard.LoadManifest(cfg.Dir, cfg.Name)
	if err != nil {
		return nil, xerrors.Errorf("open engine: %w", err)
	}
	var (
		zeroV VT
		zeroE ET
	)
	if binary.Size(zeroV) != m.VertexSize || binary.Size(zeroE) != m.EdgeSize {
		return nil, xerrors.Errorf("open engine: value sizes %d/%d do not match graph %d/%d",
			binary.Size(zeroV), binary.Size(zeroE), m.VertexSize, m.EdgeSize)
	}

	e := &Engine[VT, ET]{
		cfg:         cfg,
		manifest:    m,
		adj:         make([]*vector.Vector[shard.Edge], m.NumShards()),
		edata:       make([]*vector.Vector[ET], m.NumShards()),
		aggregators: make(map[string]Aggregator),
	}
	if err = e.openFiles(); err != nil {
		_ = e.Close()
		return nil, xerrors.Errorf("open engine: %w", err)
	}
	return e, nil
}

func (e *Engine[VT, ET]) openFiles() error {
	var err error
	if e.vdata, err = vector.Open[VT](shard.VertexDataPath(e.cfg.Dir, e.cfg.Name)); err != nil {
		return err
	}
	if e.vdata.Len() != e.manifest.NumVertices {
		return xerrors.Errorf("vertex data holds %d of %d vertices: %w", e.vdata.Len(), e.manifest.NumVertices, ErrCorruptShard)
	}
	if e.deg, err = vector.Open[shard.Degree](shard.DegreePath(e.cfg.Dir, e.cfg.Name)); err != nil {
		return err
	}
	for p, info := range e.manifest.Shards {
		if e.adj[p], err = vector.Open[shard.Edge](shard.AdjPath(e.cfg.Dir, e.cfg.Name, p)); err != nil {
			return err
		}
		if e.edata[p], err = vector.Open[ET](shard.EdgeDataPath(e.cfg.Dir, e.cfg.Name, p)); err != nil {
			return err
		}
		if e.adj[p].Len() != info.Edges || e.edata[p].Len() != info.Edges {
			return xerrors.Errorf("shard %d: %w", p, ErrCorruptShard)
		}
	}
	return nil
}

// Close releases the graph files.
func (e *Engine[VT, ET]) Close() error {
	var err error
	closeVec := func(c interface{ Close() error }) {
		if cErr := c.Close(); cErr != nil {
			err = multierror.Append(err, cErr)
		}
	}
	if e.vdata != nil {
		closeVec(e.vdata)
	}
	if e.deg != nil {
		closeVec(e.deg)
	}
	for p := range e.adj {
		if e.adj[p] != nil {
			closeVec(e.adj[p])
		}
		if e.edata[p] != nil {
			closeVec(e.edata[p])
		}
	}
	return err
}

func (e *Engine[VT, ET]) RegisterAggregator(name string, aggregator Aggregator) {
	e.aggregators[name] = aggregator
}

func (e *Engine[VT, ET]) Aggregator(name string) Aggregator {
	return e.aggregators[name]
}

func (e *Engine[VT, ET]) Aggregators() map[string]Aggregator { return e.aggregators }

// Iteration returns the zero-based index of the running iteration.
func (e *Engine[VT, ET]) Iteration() int { return e.iteration }

// NumIterations returns the number of iterations requested from Run.
func (e *Engine[VT, ET]) NumIterations() int { return e.numIterations }

// IsLastIteration reports whether the running iteration is the final one.
func (e *Engine[VT, ET]) IsLastIteration() bool { return e.iteration == e.numIterations-1 }

func (e *Engine[VT, ET]) NumVertices() uint64 { return e.manifest.NumVertices }

func (e *Engine[VT, ET]) NumEdges() uint64 { return e.manifest.NumEdges }

func (e *Engine[VT, ET]) NumShards() int { return e.manifest.NumShards() }

// Run executes numIterations iterations of prog unless the context expires
// or an error occurs. Cancellation is checked between intervals.
func (e *Engine[VT, ET]) Run(ctx context.Context, prog Program[VT, ET], numIterations int) error {
	e.numIterations = numIterations
	for e.iteration = 0; e.iteration < numIterations; e.iteration++ {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := prog.BeforeIteration(e); err != nil {
			return xerrors.Errorf("iteration %d: %w", e.iteration, err)
		}
		for p := range e.manifest.Intervals {
			if err := ctx.Err(); err != nil {
				return err
			}
			if err := e.processInterval(ctx, prog, p); err != nil {
				return xerrors.Errorf("iteration %d: interval %d: %w", e.iteration, p, err)
			}
		}
		if err := prog.AfterIteration(e); err != nil {
			return xerrors.Errorf("iteration %d: %w", e.iteration, err)
		}
		e.cfg.Logger.WithField("iteration", e.iteration).Debug("iteration completed")
	}
	return nil
}

// intervalData is the in-memory working set of one interval.
type intervalData[VT, ET any] struct {
	start, end uint64
	values     []VT
	degrees    []shard.Degree

	// adj[q] and edata[q] hold the window of shard q; for the memory shard
	// they hold the whole shard.
	adj   [][]shard.Edge
	edata [][]ET
}

func (e *Engine[VT, ET]) processInterval(ctx context.Context, prog Program[VT, ET], p int) error {
	iv := e.manifest.Intervals[p]
	data, err := e.load(ctx, p)
	if err != nil {
		return err
	}
	vertices, err := e.buildVertices(p, data)
	if err != nil {
		return err
	}

	if err = prog.BeforeInterval(e, iv[0], iv[1]); err != nil {
		return err
	}
	for i := range vertices {
		if err = prog.Update(e, &vertices[i]); err != nil {
			return xerrors.Errorf("update vertex %d: %w", vertices[i].id, err)
		}
	}
	return e.store(ctx, p, data)
}

// load reads the vertex values, degrees and edge windows of interval p
// concurrently.
func (e *Engine[VT, ET]) load(ctx context.Context, p int) (*intervalData[VT, ET], error) {
	var (
		iv        = e.manifest.Intervals[p]
		numShards = e.manifest.NumShards()
		data      = &intervalData[VT, ET]{
			start:   iv[0],
			end:     iv[1],
			values:  make([]VT, iv[1]-iv[0]),
			degrees: make([]shard.Degree, iv[1]-iv[0]),
			adj:     make([][]shard.Edge, numShards),
			edata:   make([][]ET, numShards),
		}
	)

	g, _ := errgroup.WithContext(ctx)
	g.Go(func() error { return e.vdata.ReadRange(data.start, data.values) })
	g.Go(func() error { return e.deg.ReadRange(data.start, data.degrees) })
	for q := 0; q < numShards; q++ {
		q := q
		from, to := e.manifest.Shards[q].Window(p)
		if q == p {
			from, to = 0, e.manifest.Shards[q].Edges
		}
		data.adj[q] = make([]shard.Edge, to-from)
		data.edata[q] = make([]ET, to-from)
		g.Go(func() error { return e.adj[q].ReadRange(from, data.adj[q]) })
		g.Go(func() error { return e.edata[q].ReadRange(from, data.edata[q]) })
	}
	if err := g.Wait(); err != nil {
		return nil, xerrors.Errorf("load: %w", err)
	}
	return data, nil
}

// buildVertices links every vertex of the interval to its in-edges in the
// memory shard and to its out-edges in the shard windows.
func (e *Engine[VT, ET]) buildVertices(p int, data *intervalData[VT, ET]) ([]Vertex[VT, ET], error) {
	var (
		n      = data.end - data.start
		inOff  = make([]uint64, n+1)
		outOff = make([]uint64, n+1)
	)
	for i, d := range data.degrees {
		inOff[i+1] = inOff[i] + uint64(d.In)
		outOff[i+1] = outOff[i] + uint64(d.Out)
	}
	if inOff[n] != uint64(len(data.adj[p])) {
		return nil, xerrors.Errorf("shard %d holds %d in-edges, degrees say %d: %w", p, len(data.adj[p]), inOff[n], ErrCorruptShard)
	}

	var (
		inEdges  = make([]Edge[ET], inOff[n])
		outEdges = make([]Edge[ET], outOff[n])
		inFill   = make([]uint64, n)
		outFill  = make([]uint64, n)
	)
	for k, edge := range data.adj[p] {
		local := edge.Dst - data.start
		if local >= n {
			return nil, xerrors.Errorf("shard %d: edge to %d outside interval: %w", p, edge.Dst, ErrCorruptShard)
		}
		inEdges[inOff[local]+inFill[local]] = Edge[ET]{neighbor: edge.Src, value: &data.edata[p][k]}
		inFill[local]++
	}
	for q := range data.adj {
		lo, hi := 0, len(data.adj[q])
		if q == p {
			from, to := e.manifest.Shards[p].Window(p)
			lo, hi = int(from), int(to)
		}
		for k := lo; k < hi; k++ {
			edge := data.adj[q][k]
			local := edge.Src - data.start
			if local >= n || outFill[local] >= outOff[local+1]-outOff[local] {
				return nil, xerrors.Errorf("shard %d window for interval %d: %w", q, p, ErrCorruptShard)
			}
			outEdges[outOff[local]+outFill[local]] = Edge[ET]{neighbor: edge.Dst, value: &data.edata[q][k]}
			outFill[local]++
		}
	}

	vertices := make([]Vertex[VT, ET], n)
	for i := range vertices {
		vertices[i] = Vertex[VT, ET]{
			id:    data.start + uint64(i),
			value: &data.values[i],
			in:    inEdges[inOff[i]:inOff[i+1]],
			out:   outEdges[outOff[i]:outOff[i+1]],
		}
	}
	return vertices, nil
}

// store writes back the vertex values and edge windows of interval p
// concurrently.
func (e *Engine[VT, ET]) store(ctx context.Context, p int, data *intervalData[VT, ET]) error {
	g, _ := errgroup.WithContext(ctx)
	g.Go(func() error { return e.vdata.WriteRange(data.start, data.values) })
	for q := range data.edata {
		q := q
		from, _ := e.manifest.Shards[q].Window(p)
		if q == p {
			from = 0
		}
		g.Go(func() error { return e.edata[q].WriteRange(from, data.edata[q]) })
	}
	if err := g.Wait(); err != nil {
		return xerrors.Errorf("store: %w", err)
	}
	return nil
}
