package pipeline

// compile time check that WorkerParams implements StageParams
var _ StageParams = (*WorkerParams)(nil)

// WorkerParams is the StageParams implementation handed to each stage by the
// pipeline. Stage runners that fan out to nested runners build their own.
type WorkerParams struct {
	Stage int

	InCh  <-chan Payload
	OutCh chan<- Payload
	ErrCh chan<- error
}

func (wp *WorkerParams) StageIndex() int        { return wp.Stage }
func (wp *WorkerParams) Input() <-chan Payload  { return wp.InCh }
func (wp *WorkerParams) Output() chan<- Payload { return wp.OutCh }
func (wp *WorkerParams) Error() chan<- error    { return wp.ErrCh }
