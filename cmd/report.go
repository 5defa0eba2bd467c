package cmd

import (
	"fmt"
	"io"

	"github.com/Ahmed-Sermani/webrank/job"
	"github.com/Ahmed-Sermani/webrank/metrics"
	"github.com/jedib0t/go-pretty/table"
	"github.com/jedib0t/go-pretty/text"
)

// writeReport renders the top ranked vertices of res followed by the run
// counters.
func writeReport(w io.Writer, res *job.Result, snap metrics.Snapshot) error {
	t := table.NewWriter()
	t.SetOutputMirror(w)

	// Don't uppercase the header values.
	t.Style().Format.Header = text.FormatDefault

	t.AppendHeader(table.Row{"rank", "vertex", "identity", "uuid", "page rank", "trust rank", "porn rank"})
	for _, e := range res.Top {
		t.AppendRow(table.Row{
			e.Rank,
			e.Vertex,
			e.Identity.String(),
			e.Identity.UUID().String(),
			fmt.Sprintf("%.6f", e.Scores.PageRank),
			fmt.Sprintf("%.6f", e.Scores.TrustRank),
			fmt.Sprintf("%.6f", e.Scores.PornRank),
		})
	}
	t.Render()

	s := table.NewWriter()
	s.SetOutputMirror(w)
	s.Style().Format.Header = text.FormatDefault
	s.AppendHeader(table.Row{"counter", "value"})
	counters := []table.Row{
		{"vertices", snap.VerticesIngested},
		{"identity collisions", snap.Collisions},
		{"edges read", snap.EdgesRead},
		{"edges forwarded", snap.EdgesForwarded},
		{"edges dropped (source)", snap.DroppedSource},
		{"edges dropped (destination)", snap.DroppedDestination},
		{"edges malformed", snap.EdgesMalformed},
		{"shards", snap.Shards},
		{"iterations", snap.Iterations},
		{"scores exported", res.Exported},
	}
	for _, row := range counters {
		s.AppendRow(row)
	}
	for i, d := range res.Deltas {
		s.AppendRow(table.Row{fmt.Sprintf("delta #%d", i+1), fmt.Sprintf("%.6f", d)})
	}
	for _, p := range res.Phases {
		s.AppendRow(table.Row{"phase " + p.Name, p.Took.String()})
	}

	// Add some white space between the tables.
	if _, err := w.Write([]byte("\n")); err != nil {
		return err
	}
	s.Render()
	return nil
}
