package runners

import (
	"context"

	"github.com/Ahmed-Sermani/webrank/pipeline"
)

// windowPerWorker bounds the payloads an ordered pool holds while waiting
// for an earlier one to finish.
const windowPerWorker = 4

// sequenced carries a payload and its processing result through the
// workers of an ordered pool.
type sequenced struct {
	seq uint64
	in  pipeline.Payload
	out pipeline.Payload
}

func (s *sequenced) Clone() pipeline.Payload {
	return &sequenced{seq: s.seq, in: s.in.Clone()}
}

func (s *sequenced) MarkAsProcessed() {
	s.in.MarkAsProcessed()
}

type orderedWorkerPool struct {
	proc   pipeline.Processor
	pool   pipeline.StageRunner
	window int
}

// OrderedWorkerPool returns a StageRunner that processes payloads with
// numWorkers concurrent workers but emits them in the order they were
// received. Dropped payloads keep their slot in the sequence.
func OrderedWorkerPool(proc pipeline.Processor, numWorkers int) pipeline.StageRunner {
	if numWorkers <= 0 {
		panic("number of workers should be greater than 0")
	}
	runner := &orderedWorkerPool{proc: proc, window: numWorkers * windowPerWorker}
	runner.pool = FixedWorkerPool(pipeline.ProcessorFunc(runner.process), numWorkers)
	return runner
}

func (runner *orderedWorkerPool) process(ctx context.Context, p pipeline.Payload) (pipeline.Payload, error) {
	s := p.(*sequenced)
	out, err := runner.proc.Process(ctx, s.in)
	s.out = out
	return s, err
}

func (runner *orderedWorkerPool) Run(ctx context.Context, params pipeline.StageParams) {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	var (
		window = make(chan struct{}, runner.window)
		workCh = make(chan pipeline.Payload)
		doneCh = make(chan pipeline.Payload)
	)
	go runner.sequence(ctx, params.Input(), workCh, window)
	go func() {
		runner.pool.Run(ctx, &pipeline.WorkerParams{
			Stage: params.StageIndex(),
			InCh:  workCh,
			OutCh: doneCh,
			ErrCh: params.Error(),
		})
		close(doneCh)
	}()

	// Results arrive in completion order; hold them back until every
	// earlier sequence number has been emitted.
	pending := make(map[uint64]*sequenced)
	var next uint64
	for p := range doneCh {
		s := p.(*sequenced)
		pending[s.seq] = s
		for s, ok := pending[next]; ok; s, ok = pending[next] {
			delete(pending, next)
			next++
			<-window
			if s.out == nil {
				s.in.MarkAsProcessed()
				continue
			}
			select {
			case params.Output() <- s.out:
			case <-ctx.Done():
				return
			}
		}
	}
}

// sequence numbers the stage input and hands it to the workers, keeping at
// most cap(window) payloads in flight.
func (runner *orderedWorkerPool) sequence(ctx context.Context, inCh <-chan pipeline.Payload, workCh chan<- pipeline.Payload, window chan struct{}) {
	defer close(workCh)
	for seq := uint64(0); ; seq++ {
		var payload pipeline.Payload
		select {
		case <-ctx.Done():
			return
		case p, open := <-inCh:
			if !open {
				return
			}
			payload = p
		}

		select {
		case window <- struct{}{}:
		case <-ctx.Done():
			payload.MarkAsProcessed()
			return
		}
		select {
		case workCh <- &sequenced{seq: seq, in: payload}:
		case <-ctx.Done():
			payload.MarkAsProcessed()
			return
		}
	}
}
