package cmd

import (
	"context"
	"io"
	"path/filepath"
	"runtime"
	"time"

	"github.com/Ahmed-Sermani/webrank/idmap/store/bolt"
	"github.com/Ahmed-Sermani/webrank/job"
	"github.com/Ahmed-Sermani/webrank/metrics"
	"github.com/Ahmed-Sermani/webrank/ranker"
	"github.com/Ahmed-Sermani/webrank/service"
	"github.com/Ahmed-Sermani/webrank/service/exporter"
	"github.com/Ahmed-Sermani/webrank/service/rank"
	"github.com/Ahmed-Sermani/webrank/shard"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

type rankOptions struct {
	vertexSource    string
	vertexTable     string
	vertexPrehashed bool
	edgeSource      string
	edgePrehashed   bool
	strictEdges     bool

	workDir       string
	idMap         string
	idMapBatch    int
	shards        string
	memBudgetMB   int64
	hashWorkers   int
	resetProb     float64
	iterations    int
	top           int
	scoreIndexURI string

	metricsAddr    string
	updateInterval time.Duration
}

func newRankCommand(logger *logrus.Entry, stdout io.Writer) *cobra.Command {
	var opts rankOptions
	cmd := &cobra.Command{
		Use:   "rank",
		Short: "Import the graph and compute the ranks of every page.",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runRank(cmd.Context(), opts, logger, stdout)
		},
	}

	flags := cmd.Flags()
	flags.StringVar(&opts.vertexSource, "vertex-source", "", "The URI of the vertex source (supported URIs: postgresql://user@host:5432/db?sslmode=disable, file:///path/to/vertices.csv)")
	flags.StringVar(&opts.vertexTable, "vertex-table", "scores", "The table holding the vertex rows of a postgres vertex source")
	flags.BoolVar(&opts.vertexPrehashed, "vertex-prehashed", false, "Read the vertex identities from the hashl/hashr columns instead of hashing URLs")
	flags.StringVar(&opts.edgeSource, "edge-source", "", "The URI of the edge dump (supported URIs: file:///path/to/edges[.gz|.zst])")
	flags.BoolVar(&opts.edgePrehashed, "edge-prehashed", false, "Read hi-lo identities from the edge dump instead of URLs")
	flags.BoolVar(&opts.strictEdges, "strict-edges", false, "Abort on malformed edge records instead of skipping them")

	flags.StringVar(&opts.workDir, "work-dir", filepath.Join(".", "webrank-work"), "The directory holding the identity map, the identity log and the graph shards")
	flags.StringVar(&opts.idMap, "idmap", "bolt", "The identity map implementation (bolt, memory)")
	flags.IntVar(&opts.idMapBatch, "idmap-batch-size", bolt.DefaultBatchSize, "The number of inserts per bolt write transaction")
	flags.StringVar(&opts.shards, "nshards", "auto", "The number of shards, or auto to size shards from the memory budget")
	flags.Int64Var(&opts.memBudgetMB, "membudget-mb", shard.DefaultMemoryBudget>>20, "The memory budget in MiB used to size shards automatically")
	flags.IntVar(&opts.hashWorkers, "hash-workers", 1, "The number of workers hashing edge records (defaults to number of CPUs if not positive)")
	flags.Float64Var(&opts.resetProb, "reset-prob", ranker.DefaultResetProbability, "The random reset probability of the page rank update")
	flags.IntVar(&opts.iterations, "niters", ranker.DefaultIterations, "The number of rank propagation iterations")
	flags.IntVar(&opts.top, "top", job.DefaultTop, "The number of top ranked vertices to report")
	flags.StringVar(&opts.scoreIndexURI, "score-index-uri", "", "The URI of the score index to export every vertex score to (supported URIs: in-memory://, es://node1:9200,...,nodeN:9200/index)")

	flags.StringVar(&opts.metricsAddr, "metrics-listen-addr", "", "The address to expose prometheus metrics on while running (disabled if empty)")
	flags.DurationVar(&opts.updateInterval, "update-interval", 0, "The time between subsequent runs (run once if zero)")
	return cmd
}

func runRank(ctx context.Context, opts rankOptions, logger *logrus.Entry, stdout io.Writer) error {
	spec, err := shard.ParseSpec(opts.shards)
	if err != nil {
		return err
	}
	vertexSource, closer, err := getVertexSource(opts.vertexSource, opts.vertexTable, opts.vertexPrehashed, logger)
	if err != nil {
		return err
	}
	defer func() { _ = closer.Close() }()
	edgeSource, err := getEdgeSource(opts.edgeSource, opts.strictEdges, logger)
	if err != nil {
		return err
	}
	newMap, err := getMapFactory(opts.idMap, opts.idMapBatch, logger)
	if err != nil {
		return err
	}

	reg := prometheus.NewRegistry()
	m := metrics.New(reg)
	cfg := job.Config{
		WorkDir:          opts.workDir,
		VertexSource:     vertexSource,
		EdgeSource:       edgeSource,
		NewMap:           newMap,
		Shards:           spec,
		MemoryBudget:     opts.memBudgetMB << 20,
		HashWorkers:      opts.hashWorkers,
		PrehashedEdges:   opts.edgePrehashed,
		StrictEdges:      opts.strictEdges,
		ResetProbability: &opts.resetProb,
		Iterations:       opts.iterations,
		Top:              opts.top,
		Metrics:          m,
		Logger:           logger.WithField("service", "job"),
	}
	if idx, err := getScoreIndexer(opts.scoreIndexURI, logger); err != nil {
		return err
	} else if idx != nil {
		defer func() { _ = idx.Close() }()
		cfg.Indexer = idx
	}
	if opts.hashWorkers <= 0 {
		cfg.HashWorkers = runtime.NumCPU()
	}

	j, err := job.New(cfg)
	if err != nil {
		return err
	}
	rankSvc, err := rank.NewService(rank.Config{
		Runner:         j,
		UpdateInterval: opts.updateInterval,
		OnResult: func(res *job.Result) {
			if err := writeReport(stdout, res, m.Snapshot()); err != nil {
				logger.WithField("err", err).Error("unable to write report")
			}
		},
		Logger: logger.WithField("service", "rank"),
	})
	if err != nil {
		return err
	}

	svcGroup := service.ServiceGroup{rankSvc}
	if opts.metricsAddr != "" {
		exp, err := exporter.NewService(exporter.Config{
			ListenAddr: opts.metricsAddr,
			Gatherer:   reg,
			Logger:     logger.WithField("service", "metrics-exporter"),
		})
		if err != nil {
			return err
		}
		svcGroup = append(svcGroup, exp)
	}
	return svcGroup.Run(ctx)
}
