package cmd

import (
	"context"
	"io"
	"net/url"
	"strings"

	"github.com/Ahmed-Sermani/webrank/graph"
	"github.com/Ahmed-Sermani/webrank/graph/store/dump"
	"github.com/Ahmed-Sermani/webrank/graph/store/pq"
	"github.com/Ahmed-Sermani/webrank/idmap"
	"github.com/Ahmed-Sermani/webrank/idmap/store/bolt"
	memmap "github.com/Ahmed-Sermani/webrank/idmap/store/memory"
	"github.com/Ahmed-Sermani/webrank/indexer"
	"github.com/Ahmed-Sermani/webrank/indexer/store/es"
	memindexer "github.com/Ahmed-Sermani/webrank/indexer/store/memory"
	"github.com/Ahmed-Sermani/webrank/job"
	"github.com/juju/clock"
	"github.com/sirupsen/logrus"
	"golang.org/x/xerrors"
)

type nopCloser struct{}

func (nopCloser) Close() error { return nil }

func getVertexSource(vertexSourceURI, table string, prehashed bool, logger *logrus.Entry) (job.VertexSource, io.Closer, error) {
	if vertexSourceURI == "" {
		return nil, nil, xerrors.Errorf("vertex source URI must be specified with --vertex-source")
	}

	uri, err := url.Parse(vertexSourceURI)
	if err != nil {
		return nil, nil, xerrors.Errorf("could not parse vertex source URI: %w", err)
	}

	switch uri.Scheme {
	case "postgresql", "postgres":
		logger.Info("using postgres vertex source")
		src, err := pq.NewPostgresVertexSource(vertexSourceURI, pq.Options{Table: table, Prehashed: prehashed})
		if err != nil {
			return nil, nil, err
		}
		return src, src, nil
	case "file":
		logger.WithField("path", uri.Path).Info("using vertex dump file")
		opts := dump.VertexOptions{Prehashed: prehashed}
		return job.VertexSourceFunc(func(context.Context) (graph.VertexIterator, error) {
			r, err := dump.OpenVertexFile(uri.Path, opts)
			if err != nil {
				return nil, err
			}
			return r, nil
		}), nopCloser{}, nil
	default:
		return nil, nil, xerrors.Errorf("unsupported vertex source URI scheme: %q", uri.Scheme)
	}
}

func getEdgeSource(edgeSourceURI string, strict bool, logger *logrus.Entry) (job.EdgeSource, error) {
	if edgeSourceURI == "" {
		return nil, xerrors.Errorf("edge source URI must be specified with --edge-source")
	}

	uri, err := url.Parse(edgeSourceURI)
	if err != nil {
		return nil, xerrors.Errorf("could not parse edge source URI: %w", err)
	}

	switch uri.Scheme {
	case "file":
		logger.WithField("path", uri.Path).Info("using edge dump file")
		opts := dump.EdgeOptions{Strict: strict, Logger: logger.WithField("component", "edge-dump")}
		return job.EdgeSourceFunc(func(context.Context) (graph.EdgeIterator, error) {
			r, err := dump.OpenEdgeFile(uri.Path, opts)
			if err != nil {
				return nil, err
			}
			return r, nil
		}), nil
	default:
		return nil, xerrors.Errorf("unsupported edge source URI scheme: %q", uri.Scheme)
	}
}

func getMapFactory(kind string, batchSize int, logger *logrus.Entry) (job.MapFactory, error) {
	switch kind {
	case "bolt":
		logger.Info("using bolt identity map")
		return job.BoltMapFactory(bolt.Options{BatchSize: batchSize}), nil
	case "memory":
		logger.Info("using in-memory identity map")
		return func(string) (idmap.Map, error) { return memmap.NewInMemoryMap(), nil }, nil
	default:
		return nil, xerrors.Errorf("unsupported identity map: %q", kind)
	}
}

func getScoreIndexer(scoreIndexURI string, logger *logrus.Entry) (indexer.Indexer, error) {
	if scoreIndexURI == "" {
		return nil, nil
	}

	uri, err := url.Parse(scoreIndexURI)
	if err != nil {
		return nil, xerrors.Errorf("could not parse score index URI: %w", err)
	}

	switch uri.Scheme {
	case "in-memory":
		logger.Info("using in-memory score index")
		return memindexer.NewInMemoryIndexer(clock.WallClock)
	case "es":
		nodes := strings.Split(uri.Host, ",")
		for i := 0; i < len(nodes); i++ {
			nodes[i] = "http://" + nodes[i]
		}
		logger.Info("using ES score index")
		return es.NewESIndexer(nodes, strings.TrimPrefix(uri.Path, "/"), clock.WallClock)
	default:
		return nil, xerrors.Errorf("unsupported score index URI scheme: %q", uri.Scheme)
	}
}
