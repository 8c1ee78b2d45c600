package extension

import (
	"github.com/reugn/kadence"
	"github.com/reugn/kadence/flow"
)

// ChanSource represents an inbound connector that streams items from a channel.
type ChanSource struct {
	in chan any
}

var _ kadence.Source = (*ChanSource)(nil)

// NewChanSource returns a new ChanSource connector.
func NewChanSource(in chan any) *ChanSource {
	return &ChanSource{in}
}

// Via asynchronously streams data to the given Flow and returns it.
func (cs *ChanSource) Via(operator kadence.Flow) kadence.Flow {
	flow.DoStream(cs, operator)
	return operator
}

// Out returns the output channel of the ChanSource connector.
func (cs *ChanSource) Out() <-chan any {
	return cs.in
}

// ChanSink represents an outbound connector that streams items to a channel.
type ChanSink struct {
	Out chan any
}

var _ kadence.Sink = (*ChanSink)(nil)

// NewChanSink returns a new ChanSink connector.
func NewChanSink(out chan any) *ChanSink {
	return &ChanSink{out}
}

// In returns the input channel of the ChanSink connector.
func (ch *ChanSink) In() chan<- any {
	return ch.Out
}

// AwaitCompletion is a no-op for the ChanSink; the channel is closed by
// the upstream when the stream completes.
func (ch *ChanSink) AwaitCompletion() {
	// no-op
}
