package flow

import (
	"github.com/reugn/kadence"
)

// PassThrough retransmits incoming elements downstream as they are.
//
// in  -- 1 -- 2 ---- 3 -- 4 ------ 5 --
//
//	|    |      |    |        |
//
// out -- 1 -- 2 ---- 3 -- 4 ------ 5 --
type PassThrough struct {
	in chan any
}

// Verify PassThrough satisfies the Flow interface.
var _ kadence.Flow = (*PassThrough)(nil)

// NewPassThrough returns a new PassThrough operator.
func NewPassThrough() *PassThrough {
	return &PassThrough{
		in: make(chan any),
	}
}

// Via asynchronously streams data to the given Flow and returns it.
func (pt *PassThrough) Via(flow kadence.Flow) kadence.Flow {
	DoStream(pt, flow)
	return flow
}

// To streams data to the given Sink and blocks until the Sink has completed
// processing all data.
func (pt *PassThrough) To(sink kadence.Sink) {
	DoStream(pt, sink)
	sink.AwaitCompletion()
}

// Out returns the output channel of the PassThrough operator.
func (pt *PassThrough) Out() <-chan any {
	return pt.in
}

// In returns the input channel of the PassThrough operator.
func (pt *PassThrough) In() chan<- any {
	return pt.in
}
