package es

import (
	"os"
	"strings"
	"testing"

	"github.com/Ahmed-Sermani/webrank/indexer/indexertest"
	gc "gopkg.in/check.v1"
)

var _ = gc.Suite(new(ESIndexerTestSuite))

func Test(t *testing.T) {
	gc.TestingT(t)
}

type ESIndexerTestSuite struct {
	indexertest.SuiteBase
	nodes []string
	idx   *ESIndexer
}

func (s *ESIndexerTestSuite) SetUpSuite(c *gc.C) {
	nodesList := os.Getenv("ES_NODES")
	if nodesList == "" {
		c.Skip("Missing ES_NODES env; skipping es-based indexer tests")
	}
	s.nodes = strings.Split(nodesList, ",")
}

func (s *ESIndexerTestSuite) SetUpTest(c *gc.C) {
	idx, err := NewESIndexer(s.nodes, "webrank-scores-test", nil)
	c.Assert(err, gc.IsNil)
	_, err = idx.es.Indices.Delete([]string{idx.indexName})
	c.Assert(err, gc.IsNil)

	// Recreate the index so every test starts empty.
	idx, err = NewESIndexer(s.nodes, "webrank-scores-test", nil)
	c.Assert(err, gc.IsNil)
	s.idx = idx
	s.SetIndexer(idx)
}

func (s *ESIndexerTestSuite) TearDownTest(c *gc.C) {
	c.Assert(s.idx.Close(), gc.IsNil)
}
