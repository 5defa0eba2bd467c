/*
   On-disk sharded graph store. A graph is split into P vertex intervals;
   shard p holds every edge whose destination lies in interval p, sorted by
   source, so the out-edges of any interval form one contiguous window in
   each shard.
*/
package shard

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"golang.org/x/xerrors"
)

var (
	// ErrNotPreprocessing is returned when edges are fed outside of a
	// preprocessing session.
	ErrNotPreprocessing = xerrors.New("sharder is not in a preprocessing session")

	// ErrInvalidSpec is returned for shard specs that are neither "auto" nor a
	// positive integer.
	ErrInvalidSpec = xerrors.New("invalid shard spec")

	// ErrVertexCount is returned when the declared vertex count does not
	// cover every referenced vertex index.
	ErrVertexCount = xerrors.New("vertex count does not cover referenced vertices")

	// ErrEmptyGraph is returned when sharding a graph without vertices.
	ErrEmptyGraph = xerrors.New("graph has no vertices")
)

// Spec selects the number of shards: a fixed count or automatic sizing from
// the memory budget.
type Spec struct {
	Auto   bool
	Shards int
}

// Auto is the Spec for automatic shard sizing.
var Auto = Spec{Auto: true}

// Fixed returns a Spec requesting n shards.
func Fixed(n int) Spec { return Spec{Shards: n} }

// ParseSpec parses "auto" or a positive shard count.
func ParseSpec(s string) (Spec, error) {
	s = strings.TrimSpace(s)
	if strings.EqualFold(s, "auto") {
		return Auto, nil
	}
	n, err := strconv.Atoi(s)
	if err != nil || n <= 0 {
		return Spec{}, xerrors.Errorf("parse %q: %w", s, ErrInvalidSpec)
	}
	return Fixed(n), nil
}

func (s Spec) String() string {
	if s.Auto {
		return "auto"
	}
	return strconv.Itoa(s.Shards)
}

// Edge is the adjacency record stored in shard files.
type Edge struct {
	Src uint64
	Dst uint64
}

// edgeRecordSize is the encoded size of an Edge.
const edgeRecordSize = 16

// Degree holds the edge counts of a vertex.
type Degree struct {
	In  uint32
	Out uint32
}

// ShardInfo describes one shard of a sharded graph.
type ShardInfo struct {
	Edges uint64 `json:"edges"`

	// Windows[q] is the offset of the first edge whose source lies in
	// interval q; Windows[P] equals Edges.
	Windows []uint64 `json:"windows"`
}

// Window returns the [start, end) edge offsets of the edges of this shard
// whose source lies in interval q.
func (s ShardInfo) Window(q int) (uint64, uint64) {
	return s.Windows[q], s.Windows[q+1]
}

// Manifest describes a sharded graph on disk.
type Manifest struct {
	Name        string      `json:"name"`
	NumVertices uint64      `json:"num_vertices"`
	NumEdges    uint64      `json:"num_edges"`
	VertexSize  int         `json:"vertex_size"`
	EdgeSize    int         `json:"edge_size"`
	Intervals   [][2]uint64 `json:"intervals"`
	Shards      []ShardInfo `json:"shards"`
}

// NumShards returns the number of shards (and intervals) of the graph.
func (m *Manifest) NumShards() int { return len(m.Shards) }

// LoadManifest reads the manifest of the graph called name in dir.
func LoadManifest(dir, name string) (*Manifest, error) {
	data, err := os.ReadFile(ManifestPath(dir, name))
	if err != nil {
		return nil, xerrors.Errorf("load manifest: %w", err)
	}
	m := new(Manifest)
	if err = json.Unmarshal(data, m); err != nil {
		return nil, xerrors.Errorf("decode manifest: %w", err)
	}
	if len(m.Intervals) != len(m.Shards) {
		return nil, xerrors.Errorf("manifest %s: %d intervals for %d shards", name, len(m.Intervals), len(m.Shards))
	}
	return m, nil
}

func writeManifest(dir string, m *Manifest) error {
	data, err := json.MarshalIndent(m, "", "  ")
	if err != nil {
		return xerrors.Errorf("encode manifest: %w", err)
	}
	if err = os.WriteFile(ManifestPath(dir, m.Name), data, 0600); err != nil {
		return xerrors.Errorf("write manifest: %w", err)
	}
	return nil
}

// ManifestPath returns the location of the manifest of graph name.
func ManifestPath(dir, name string) string {
	return filepath.Join(dir, name+".manifest.json")
}

// VertexDataPath returns the location of the per-vertex value file of graph
// name. The file is written before sharding and updated by the engine.
func VertexDataPath(dir, name string) string {
	return filepath.Join(dir, name+".vdata")
}

// DegreePath returns the location of the degree file of graph name.
func DegreePath(dir, name string) string {
	return filepath.Join(dir, name+".deg")
}

// AdjPath returns the location of the adjacency file of shard p.
func AdjPath(dir, name string, p int) string {
	return filepath.Join(dir, fmt.Sprintf("%s.shard%d.adj", name, p))
}

// EdgeDataPath returns the location of the edge value file of shard p.
func EdgeDataPath(dir, name string, p int) string {
	return filepath.Join(dir, fmt.Sprintf("%s.shard%d.edata", name, p))
}

func spillPath(dir, name string) string {
	return filepath.Join(dir, name+".preproc.lz4")
}

func bucketPath(dir, name string, p int) string {
	return filepath.Join(dir, fmt.Sprintf("%s.bucket%d.tmp", name, p))
}
