package aggregators

import (
	"sync/atomic"

	"github.com/Ahmed-Sermani/webrank/engine"
)

var _ engine.Aggregator = (*IntAggregator)(nil)

// IntAggregator counts int values without locking.
type IntAggregator struct {
	cur, prev atomic.Int64
}

func (a *IntAggregator) Type() string {
	return "IntAggregator"
}

func (a *IntAggregator) Get() any {
	return int(a.cur.Load())
}

// Set resets the count. It must not race with Aggregate.
func (a *IntAggregator) Set(v any) {
	a.cur.Store(int64(v.(int)))
	a.prev.Store(int64(v.(int)))
}

func (a *IntAggregator) Aggregate(v any) {
	a.cur.Add(int64(v.(int)))
}

func (a *IntAggregator) Delta() any {
	cur := a.cur.Load()
	return int(cur - a.prev.Swap(cur))
}
