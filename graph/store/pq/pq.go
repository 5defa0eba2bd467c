package pq

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/Ahmed-Sermani/webrank/graph"
	"github.com/lib/pq"
	"golang.org/x/xerrors"
)

const (
	// DefaultTable is the table holding one row per vertex.
	DefaultTable = "scores"

	iterURLQuery    = `SELECT url, trustrank, pornrank FROM %s`
	iterHashedQuery = `SELECT hashl, hashr, trustrank, pornrank FROM %s`
)

// Options tune the vertex source.
type Options struct {
	// Table to read vertices from. Defaults to DefaultTable.
	Table string

	// Prehashed selects the hashl/hashr identity columns instead of url.
	Prehashed bool
}

// PostgresVertexSource streams vertex rows out of a PostgreSQL table.
type PostgresVertexSource struct {
	db   *sql.DB
	opts Options
}

// NewPostgresVertexSource connects to the database at dsn and verifies that it
// is reachable.
func NewPostgresVertexSource(dsn string, opts Options) (*PostgresVertexSource, error) {
	if opts.Table == "" {
		opts.Table = DefaultTable
	}

	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, xerrors.Errorf("open vertex source: %w", err)
	}
	if err = db.Ping(); err != nil {
		_ = db.Close()
		return nil, xerrors.Errorf("connect vertex source: %w", err)
	}

	return &PostgresVertexSource{db: db, opts: opts}, nil
}

func (s *PostgresVertexSource) Close() error {
	return s.db.Close()
}

// Vertices returns an iterator over every row of the configured table. Rows
// are returned in the order the database produces them.
func (s *PostgresVertexSource) Vertices(ctx context.Context) (graph.VertexIterator, error) {
	query := iterURLQuery
	if s.opts.Prehashed {
		query = iterHashedQuery
	}

	rows, err := s.db.QueryContext(ctx, fmt.Sprintf(query, pq.QuoteIdentifier(s.opts.Table)))
	if err != nil {
		return nil, xerrors.Errorf("vertices: %w", err)
	}
	return &vertexIterator{rows: rows, prehashed: s.opts.Prehashed}, nil
}
