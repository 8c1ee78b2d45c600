package extension

import (
	"fmt"
	"log/slog"

	"github.com/reugn/kadence"
	"github.com/reugn/kadence/session"
	"github.com/reugn/kadence/stats"
)

// SessionSample is a frame sample addressed to a session.
type SessionSample struct {
	SessionID uint64
	Sample    stats.FrameSample
}

// Ingester accepts frame samples for a session.
type Ingester interface {
	Ingest(id uint64, sample stats.FrameSample) error
}

var _ Ingester = (*session.Service)(nil)

// SessionSink represents an outbound connector that ingests SessionSample
// elements into the session service, in stream order.
type SessionSink struct {
	ingester Ingester
	in       chan any
	done     chan struct{}

	opts options
}

var _ kadence.Sink = (*SessionSink)(nil)

// NewSessionSink returns a new SessionSink connector.
func NewSessionSink(ingester Ingester, opts ...Opt) *SessionSink {
	sessionSink := &SessionSink{
		ingester: ingester,
		in:       make(chan any),
		done:     make(chan struct{}),
		opts:     makeDefaultOptions(),
	}

	// apply functional options to configure the sink
	for _, opt := range opts {
		opt(&sessionSink.opts)
	}

	// asynchronously process stream data
	go sessionSink.process()

	return sessionSink
}

func (s *SessionSink) process() {
	defer close(s.done)

	for element := range s.in {
		var sample SessionSample
		switch e := element.(type) {
		case *SessionSample:
			if e == nil {
				continue
			}
			sample = *e
		case SessionSample:
			sample = e
		default:
			s.opts.logger.Warn("Discarded stream element",
				slog.String("type", fmt.Sprintf("%T", e)))
			continue
		}

		if err := s.ingester.Ingest(sample.SessionID, sample.Sample); err != nil {
			s.opts.logger.Warn("Failed to ingest sample",
				slog.Uint64("session", sample.SessionID),
				slog.Any("error", err))
		}
	}
	s.opts.logger.Info("Session sink completed")
}

// In returns the input channel of the SessionSink connector.
func (s *SessionSink) In() chan<- any {
	return s.in
}

// AwaitCompletion blocks until the SessionSink has ingested all received
// samples.
func (s *SessionSink) AwaitCompletion() {
	<-s.done
}
