package aggregators

import (
	"math"
	"sync/atomic"

	"github.com/Ahmed-Sermani/webrank/engine"
)

var (
	_ engine.Aggregator = (*Float64Aggregator)(nil)
	_ engine.Aggregator = (*MaxFloat64Aggregator)(nil)
)

// Float64Aggregator sums float64 values. Updates are lock-free; the sums
// are stored as their IEEE 754 bits.
type Float64Aggregator struct {
	cur, prev atomic.Uint64
}

func (a *Float64Aggregator) Type() string {
	return "Float64Aggregator"
}

func (a *Float64Aggregator) Get() any {
	return math.Float64frombits(a.cur.Load())
}

// Set resets the sum. It must not race with Aggregate.
func (a *Float64Aggregator) Set(v any) {
	bits := math.Float64bits(v.(float64))
	a.cur.Store(bits)
	a.prev.Store(bits)
}

func (a *Float64Aggregator) Aggregate(v any) {
	add := v.(float64)
	for {
		old := a.cur.Load()
		if a.cur.CompareAndSwap(old, math.Float64bits(math.Float64frombits(old)+add)) {
			return
		}
	}
}

func (a *Float64Aggregator) Delta() any {
	cur := a.cur.Load()
	prev := a.prev.Swap(cur)
	return math.Float64frombits(cur) - math.Float64frombits(prev)
}

// MaxFloat64Aggregator keeps the largest value aggregated since the last
// Set.
type MaxFloat64Aggregator struct {
	cur, prev atomic.Uint64
}

func (a *MaxFloat64Aggregator) Type() string {
	return "MaxFloat64Aggregator"
}

func (a *MaxFloat64Aggregator) Get() any {
	return math.Float64frombits(a.cur.Load())
}

// Set resets the maximum. It must not race with Aggregate.
func (a *MaxFloat64Aggregator) Set(v any) {
	bits := math.Float64bits(v.(float64))
	a.cur.Store(bits)
	a.prev.Store(bits)
}

func (a *MaxFloat64Aggregator) Aggregate(v any) {
	val := v.(float64)
	for {
		old := a.cur.Load()
		if val <= math.Float64frombits(old) || a.cur.CompareAndSwap(old, math.Float64bits(val)) {
			return
		}
	}
}

// Delta returns how much the maximum grew since the previous call.
func (a *MaxFloat64Aggregator) Delta() any {
	cur := a.cur.Load()
	prev := a.prev.Swap(cur)
	return math.Float64frombits(cur) - math.Float64frombits(prev)
}
