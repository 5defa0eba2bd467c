package shard

import (
	"bufio"
	"encoding/binary"
	"io"
	"os"
	"sort"

	"github.com/Ahmed-Sermani/webrank/partition"
	"github.com/Ahmed-Sermani/webrank/vector"
	"github.com/hashicorp/go-multierror"
	"github.com/pierrec/lz4/v4"
	"github.com/sirupsen/logrus"
	"golang.org/x/xerrors"
)

const (
	// DefaultName is the base name of the files of a sharded graph.
	DefaultName = "graph"

	// DefaultMemoryBudget is the working-set size a single shard is sized
	// for in automatic mode.
	DefaultMemoryBudget = 800 << 20
)

// Config configures a Sharder.
type Config struct {
	// Dir holds the graph files. It is created if missing.
	Dir string

	// Name is the base name of the graph files. Defaults to DefaultName.
	Name string

	// MemoryBudget in bytes drives automatic shard sizing. Defaults to
	// DefaultMemoryBudget.
	MemoryBudget int64

	// Logger for progress output. Defaults to a discarding logger.
	Logger *logrus.Entry
}

func (cfg *Config) validate() error {
	var err error
	if cfg.Dir == "" {
		err = multierror.Append(err, xerrors.Errorf("graph directory has not been specified"))
	}
	if cfg.Name == "" {
		cfg.Name = DefaultName
	}
	if cfg.MemoryBudget < 0 {
		err = multierror.Append(err, xerrors.Errorf("memory budget must be positive"))
	} else if cfg.MemoryBudget == 0 {
		cfg.MemoryBudget = DefaultMemoryBudget
	}
	if cfg.Logger == nil {
		l := logrus.New()
		l.Out = io.Discard
		cfg.Logger = logrus.NewEntry(l)
	}
	return err
}

type sharderState int

const (
	stateIdle sharderState = iota
	statePreprocessing
	statePreprocessed
	stateSharded
)

// Sharder converts a stream of (src, dst) index pairs into a sharded graph
// whose vertices carry VT values and edges ET values.
//
// Its lifecycle is strictly ordered: StartPreprocessing, AddEdge for every
// edge, EndPreprocessing, SetNumVertices and finally ExecuteSharding. The
// vertex value file at VertexDataPath is expected to be written by the
// caller before ExecuteSharding; it is zero-padded to the vertex count.
//
// Self-loops are dropped. A Sharder is not safe for concurrent use.
type Sharder[VT, ET any] struct {
	cfg   Config
	state sharderState

	spill *os.File
	lzw   *lz4.Writer
	rec   [edgeRecordSize]byte

	numEdges    uint64
	selfLoops   uint64
	inDeg       []uint32
	outDeg      []uint32
	numVertices uint64
	countSet    bool
}

// NewSharder returns a Sharder writing the graph files described by cfg.
func NewSharder[VT, ET any](cfg Config) (*Sharder[VT, ET], error) {
	if err := cfg.validate(); err != nil {
		return nil, xerrors.Errorf("sharder config validation failed: %w", err)
	}
	var (
		zeroV VT
		zeroE ET
	)
	if binary.Size(zeroV) <= 0 || binary.Size(zeroE) <= 0 {
		return nil, xerrors.Errorf("sharder: vertex and edge values must have a fixed size")
	}
	return &Sharder[VT, ET]{cfg: cfg}, nil
}

// VertexDataPath returns where the initial vertex values are expected.
func (s *Sharder[VT, ET]) VertexDataPath() string {
	return VertexDataPath(s.cfg.Dir, s.cfg.Name)
}

// NumEdges returns the number of edges accepted so far.
func (s *Sharder[VT, ET]) NumEdges() uint64 { return s.numEdges }

// SelfLoops returns the number of dropped self-loops.
func (s *Sharder[VT, ET]) SelfLoops() uint64 { return s.selfLoops }

// StartPreprocessing opens the preprocessing session.
func (s *Sharder[VT, ET]) StartPreprocessing() error {
	if s.state != stateIdle {
		return xerrors.Errorf("start preprocessing: session already started")
	}
	if err := os.MkdirAll(s.cfg.Dir, 0750); err != nil {
		return xerrors.Errorf("start preprocessing: %w", err)
	}

	f, err := os.Create(spillPath(s.cfg.Dir, s.cfg.Name))
	if err != nil {
		return xerrors.Errorf("start preprocessing: %w", err)
	}
	s.spill, s.lzw = f, lz4.NewWriter(f)
	s.state = statePreprocessing
	return nil
}

// AddEdge feeds one edge into the preprocessing session.
func (s *Sharder[VT, ET]) AddEdge(src, dst uint64) error {
	if s.state != statePreprocessing {
		return xerrors.Errorf("add edge %d -> %d: %w", src, dst, ErrNotPreprocessing)
	}
	if src == dst {
		s.selfLoops++
		return nil
	}

	binary.LittleEndian.PutUint64(s.rec[0:8], src)
	binary.LittleEndian.PutUint64(s.rec[8:16], dst)
	if _, err := s.lzw.Write(s.rec[:]); err != nil {
		return xerrors.Errorf("add edge %d -> %d: %w", src, dst, err)
	}

	maxIdx := src
	if dst > maxIdx {
		maxIdx = dst
	}
	s.inDeg = growDegrees(s.inDeg, maxIdx+1)
	s.outDeg = growDegrees(s.outDeg, maxIdx+1)
	s.inDeg[dst]++
	s.outDeg[src]++
	s.numEdges++
	return nil
}

func growDegrees(deg []uint32, n uint64) []uint32 {
	if uint64(len(deg)) >= n {
		return deg
	}
	if uint64(cap(deg)) >= n {
		return deg[:n]
	}
	grown := make([]uint32, n, 2*n)
	copy(grown, deg)
	return grown
}

// EndPreprocessing closes the preprocessing session. Edges fed afterwards
// are rejected.
func (s *Sharder[VT, ET]) EndPreprocessing() error {
	if s.state != statePreprocessing {
		return xerrors.Errorf("end preprocessing: %w", ErrNotPreprocessing)
	}
	s.state = statePreprocessed

	err := s.lzw.Close()
	if cErr := s.spill.Close(); err == nil {
		err = cErr
	}
	s.lzw, s.spill = nil, nil
	if err != nil {
		return xerrors.Errorf("end preprocessing: %w", err)
	}

	s.cfg.Logger.WithFields(logrus.Fields{
		"edges":      s.numEdges,
		"self_loops": s.selfLoops,
	}).Info("preprocessing completed")
	return nil
}

// SetNumVertices declares the final vertex count. It must exceed every
// vertex index fed through AddEdge.
func (s *Sharder[VT, ET]) SetNumVertices(n uint64) error {
	if s.state != statePreprocessed {
		return xerrors.Errorf("set vertex count: preprocessing session not closed")
	}
	if referenced := uint64(len(s.inDeg)); n < referenced {
		return xerrors.Errorf("declared %d vertices but index %d is referenced: %w", n, referenced-1, ErrVertexCount)
	}
	s.numVertices, s.countSet = n, true
	return nil
}

// NumShardsFor resolves spec into a concrete shard count for the current
// graph.
func (s *Sharder[VT, ET]) NumShardsFor(spec Spec) int {
	var (
		zeroE ET
		n     int
	)
	if spec.Auto {
		bytes := s.numEdges * uint64(edgeRecordSize+binary.Size(zeroE))
		budget := uint64(s.cfg.MemoryBudget)
		n = int((bytes + budget - 1) / budget)
	} else {
		n = spec.Shards
	}

	if n < 1 {
		n = 1
	}
	if uint64(n) > s.numVertices {
		n = int(s.numVertices)
	}
	return n
}

// ExecuteSharding partitions the preprocessed edges into shards and returns
// the number of shards created.
func (s *Sharder[VT, ET]) ExecuteSharding(spec Spec) (int, error) {
	if s.state != statePreprocessed || !s.countSet {
		return 0, xerrors.Errorf("execute sharding: vertex count has not been declared")
	}
	if s.numVertices == 0 {
		return 0, xerrors.Errorf("execute sharding: %w", ErrEmptyGraph)
	}

	numShards := s.NumShardsFor(spec)
	if !spec.Auto && numShards != spec.Shards {
		s.cfg.Logger.WithFields(logrus.Fields{
			"requested": spec.Shards,
			"vertices":  s.numVertices,
		}).Warn("shard count capped to the vertex count")
	}

	s.inDeg = growDegrees(s.inDeg, s.numVertices)
	s.outDeg = growDegrees(s.outDeg, s.numVertices)
	intervals, err := partition.NewWeightedRange(s.inDeg, numShards)
	if err != nil {
		return 0, xerrors.Errorf("execute sharding: %w", err)
	}

	var (
		zeroV VT
		zeroE ET
	)
	m := &Manifest{
		Name:        s.cfg.Name,
		NumVertices: s.numVertices,
		NumEdges:    s.numEdges,
		VertexSize:  binary.Size(zeroV),
		EdgeSize:    binary.Size(zeroE),
		Intervals:   make([][2]uint64, numShards),
		Shards:      make([]ShardInfo, numShards),
	}
	for p := 0; p < numShards; p++ {
		from, to, _ := intervals.PartitionExtents(p)
		m.Intervals[p] = [2]uint64{from, to}
	}

	if err = s.bucketEdges(intervals); err != nil {
		return 0, xerrors.Errorf("execute sharding: %w", err)
	}
	for p := 0; p < numShards; p++ {
		if m.Shards[p], err = s.writeShard(p, m.Intervals); err != nil {
			return 0, xerrors.Errorf("execute sharding: shard %d: %w", p, err)
		}
	}
	if err = s.writeDegrees(); err != nil {
		return 0, xerrors.Errorf("execute sharding: %w", err)
	}
	if err = s.padVertexData(); err != nil {
		return 0, xerrors.Errorf("execute sharding: %w", err)
	}
	if err = writeManifest(s.cfg.Dir, m); err != nil {
		return 0, xerrors.Errorf("execute sharding: %w", err)
	}
	_ = os.Remove(spillPath(s.cfg.Dir, s.cfg.Name))

	s.state = stateSharded
	s.cfg.Logger.WithFields(logrus.Fields{
		"shards":   numShards,
		"vertices": s.numVertices,
		"edges":    s.numEdges,
	}).Info("sharding completed")
	return numShards, nil
}

// bucketEdges streams the spill file into one bucket per destination
// interval.
func (s *Sharder[VT, ET]) bucketEdges(intervals partition.Range) (err error) {
	buckets := make([]*vector.Vector[Edge], intervals.NumPartitions())
	defer func() {
		for _, b := range buckets {
			if b == nil {
				continue
			}
			if cErr := b.Close(); err == nil && cErr != nil {
				err = cErr
			}
		}
	}()
	for p := range buckets {
		if buckets[p], err = vector.Create[Edge](bucketPath(s.cfg.Dir, s.cfg.Name, p)); err != nil {
			return err
		}
	}

	if s.numEdges == 0 {
		return nil
	}
	f, err := os.Open(spillPath(s.cfg.Dir, s.cfg.Name))
	if err != nil {
		return xerrors.Errorf("open spill file: %w", err)
	}
	defer func() { _ = f.Close() }()

	var (
		r   = bufio.NewReaderSize(lz4.NewReader(f), 1<<16)
		rec [edgeRecordSize]byte
	)
	for {
		if _, err = io.ReadFull(r, rec[:]); err == io.EOF {
			return nil
		} else if err != nil {
			return xerrors.Errorf("read spill file: %w", err)
		}

		e := Edge{
			Src: binary.LittleEndian.Uint64(rec[0:8]),
			Dst: binary.LittleEndian.Uint64(rec[8:16]),
		}
		if _, err = buckets[intervals.PartitionOf(e.Dst)].Append(e); err != nil {
			return err
		}
	}
}

// writeShard sorts bucket p by source and writes its adjacency and edge
// value files.
func (s *Sharder[VT, ET]) writeShard(p int, intervals [][2]uint64) (ShardInfo, error) {
	bucketFile := bucketPath(s.cfg.Dir, s.cfg.Name, p)
	bucket, err := vector.Open[Edge](bucketFile)
	if err != nil {
		return ShardInfo{}, err
	}
	edges := make([]Edge, bucket.Len())
	err = bucket.ReadRange(0, edges)
	if cErr := bucket.Close(); err == nil {
		err = cErr
	}
	if err != nil {
		return ShardInfo{}, err
	}
	_ = os.Remove(bucketFile)

	sort.Slice(edges, func(i, j int) bool {
		if edges[i].Src != edges[j].Src {
			return edges[i].Src < edges[j].Src
		}
		return edges[i].Dst < edges[j].Dst
	})

	info := ShardInfo{
		Edges:   uint64(len(edges)),
		Windows: make([]uint64, len(intervals)+1),
	}
	for q, iv := range intervals {
		start := iv[0]
		info.Windows[q] = uint64(sort.Search(len(edges), func(i int) bool {
			return edges[i].Src >= start
		}))
	}
	info.Windows[len(intervals)] = info.Edges

	adj, err := vector.Create[Edge](AdjPath(s.cfg.Dir, s.cfg.Name, p))
	if err != nil {
		return ShardInfo{}, err
	}
	if err = adj.Resize(info.Edges); err == nil {
		err = adj.WriteRange(0, edges)
	}
	if cErr := adj.Close(); err == nil {
		err = cErr
	}
	if err != nil {
		return ShardInfo{}, err
	}

	edata, err := vector.Create[ET](EdgeDataPath(s.cfg.Dir, s.cfg.Name, p))
	if err != nil {
		return ShardInfo{}, err
	}
	err = edata.Resize(info.Edges)
	if cErr := edata.Close(); err == nil {
		err = cErr
	}
	return info, err
}

func (s *Sharder[VT, ET]) writeDegrees() error {
	deg, err := vector.Create[Degree](DegreePath(s.cfg.Dir, s.cfg.Name))
	if err != nil {
		return err
	}
	for i := uint64(0); i < s.numVertices && err == nil; i++ {
		_, err = deg.Append(Degree{In: s.inDeg[i], Out: s.outDeg[i]})
	}
	if cErr := deg.Close(); err == nil {
		err = cErr
	}
	return err
}

// padVertexData makes sure the vertex value file holds exactly one record
// per vertex, zero-filling vertices that were declared but never written.
func (s *Sharder[VT, ET]) padVertexData() error {
	path := s.VertexDataPath()
	var (
		vdata *vector.Vector[VT]
		err   error
	)
	if _, statErr := os.Stat(path); statErr == nil {
		vdata, err = vector.Open[VT](path)
	} else {
		vdata, err = vector.Create[VT](path)
	}
	if err != nil {
		return err
	}

	switch n := vdata.Len(); {
	case n > s.numVertices:
		err = xerrors.Errorf("vertex data holds %d records for %d vertices: %w", n, s.numVertices, ErrVertexCount)
	case n < s.numVertices:
		s.cfg.Logger.WithFields(logrus.Fields{
			"records":  n,
			"vertices": s.numVertices,
		}).Warn("zero-filling missing vertex records")
		err = vdata.Resize(s.numVertices)
	}
	if cErr := vdata.Close(); err == nil {
		err = cErr
	}
	return err
}
