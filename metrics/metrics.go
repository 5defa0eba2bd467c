/*
   Prometheus counters describing a ranking run.
*/
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
)

const namespace = "webrank"

// Metrics groups the counters updated while importing and ranking a graph.
// A nil *Metrics is valid and discards every update.
type Metrics struct {
	verticesIngested prometheus.Counter
	collisions       prometheus.Counter
	edgesRead        prometheus.Counter
	edgesForwarded   prometheus.Counter
	edgesDropped     *prometheus.CounterVec
	edgesMalformed   prometheus.Counter
	shardsCreated    prometheus.Gauge
	iterations       prometheus.Counter
	lastDelta        prometheus.Gauge
}

// New creates the run counters and registers them with reg. A nil reg
// leaves the counters unregistered.
func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		verticesIngested: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "vertices_ingested_total",
			Help:      "Number of vertex rows appended to the identity log.",
		}),
		collisions: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "identity_collisions_total",
			Help:      "Number of vertex rows whose identity was already mapped.",
		}),
		edgesRead: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "edges_read_total",
			Help:      "Number of edge records read from the edge source.",
		}),
		edgesForwarded: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "edges_forwarded_total",
			Help:      "Number of resolved edges handed to the graph store.",
		}),
		edgesDropped: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "edges_dropped_total",
			Help:      "Number of edges dropped because an endpoint is unknown.",
		}, []string{"side"}),
		edgesMalformed: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "edges_malformed_total",
			Help:      "Number of edge records that could not be parsed.",
		}),
		shardsCreated: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "shards",
			Help:      "Number of shards written by the last sharding pass.",
		}),
		iterations: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "iterations_total",
			Help:      "Number of completed rank propagation iterations.",
		}),
		lastDelta: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "pagerank_delta",
			Help:      "Sum of absolute page rank changes in the last iteration.",
		}),
	}

	if reg != nil {
		reg.MustRegister(
			m.verticesIngested,
			m.collisions,
			m.edgesRead,
			m.edgesForwarded,
			m.edgesDropped,
			m.edgesMalformed,
			m.shardsCreated,
			m.iterations,
			m.lastDelta,
		)
	}
	return m
}

func (m *Metrics) VertexIngested() {
	if m != nil {
		m.verticesIngested.Inc()
	}
}

func (m *Metrics) Collision() {
	if m != nil {
		m.collisions.Inc()
	}
}

func (m *Metrics) EdgeRead() {
	if m != nil {
		m.edgesRead.Inc()
	}
}

func (m *Metrics) EdgeForwarded() {
	if m != nil {
		m.edgesForwarded.Inc()
	}
}

// EdgeDropped counts an edge dropped because its side ("source" or
// "destination") could not be resolved.
func (m *Metrics) EdgeDropped(side string) {
	if m != nil {
		m.edgesDropped.WithLabelValues(side).Inc()
	}
}

func (m *Metrics) EdgesMalformed(n uint64) {
	if m != nil {
		m.edgesMalformed.Add(float64(n))
	}
}

func (m *Metrics) ShardsCreated(n int) {
	if m != nil {
		m.shardsCreated.Set(float64(n))
	}
}

// IterationDone records a completed iteration and its page rank delta.
func (m *Metrics) IterationDone(delta float64) {
	if m != nil {
		m.iterations.Inc()
		m.lastDelta.Set(delta)
	}
}

// Snapshot is a point-in-time copy of the run counters.
type Snapshot struct {
	VerticesIngested   uint64
	Collisions         uint64
	EdgesRead          uint64
	EdgesForwarded     uint64
	DroppedSource      uint64
	DroppedDestination uint64
	EdgesMalformed     uint64
	Shards             int
	Iterations         uint64
	LastDelta          float64
}

// Snapshot reads the current value of every counter.
func (m *Metrics) Snapshot() Snapshot {
	if m == nil {
		return Snapshot{}
	}
	return Snapshot{
		VerticesIngested:   uint64(value(m.verticesIngested)),
		Collisions:         uint64(value(m.collisions)),
		EdgesRead:          uint64(value(m.edgesRead)),
		EdgesForwarded:     uint64(value(m.edgesForwarded)),
		DroppedSource:      uint64(value(m.edgesDropped.WithLabelValues("source"))),
		DroppedDestination: uint64(value(m.edgesDropped.WithLabelValues("destination"))),
		EdgesMalformed:     uint64(value(m.edgesMalformed)),
		Shards:             int(value(m.shardsCreated)),
		Iterations:         uint64(value(m.iterations)),
		LastDelta:          value(m.lastDelta),
	}
}

func value(c prometheus.Metric) float64 {
	var pb dto.Metric
	if err := c.Write(&pb); err != nil {
		return 0
	}
	switch {
	case pb.Counter != nil:
		return pb.Counter.GetValue()
	case pb.Gauge != nil:
		return pb.Gauge.GetValue()
	}
	return 0
}
