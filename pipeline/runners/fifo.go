package runners

import (
	"context"

	"github.com/Ahmed-Sermani/webrank/pipeline"
	"golang.org/x/xerrors"
)

type fifo struct {
	proc pipeline.Processor
}

// FIFO returns a StageRunner that processes payloads one at a time, in the
// order they arrive, and forwards results in that same order. The edge
// ingester uses it for the resolve stage and for hashing with one worker.
func FIFO(proc pipeline.Processor) pipeline.StageRunner {
	return fifo{proc: proc}
}

func (runner fifo) Run(ctx context.Context, params pipeline.StageParams) {
	for {
		select {
		case <-ctx.Done():
			return
		case payload, open := <-params.Input():
			if !open {
				return
			}
			processedPayload, err := runner.proc.Process(ctx, payload)
			if err != nil {
				emitError(
					xerrors.Errorf("pipeline stage %d: %w", params.StageIndex(), err),
					params.Error(),
				)
			}
			// if the processor does not output a payload.
			// then discard since there's nothing to do in the next stage.
			if processedPayload == nil {
				payload.MarkAsProcessed()
				continue
			}

			// send the processedPayload to the next stage.
			select {
			case params.Output() <- processedPayload:
			case <-ctx.Done():
				return
			}
		}
	}
}
