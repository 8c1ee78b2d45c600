package extension

import (
	"math/rand/v2"
	"time"

	"github.com/reugn/kadence"
	"github.com/reugn/kadence/flow"
	"github.com/reugn/kadence/stats"
)

const (
	syntheticMinFrameMs = 6.0
	syntheticMaxFrameMs = 16.0
)

// SyntheticSource represents an inbound connector that emits a
// stats.FrameSample on every tick of its interval. Timestamps come from a
// monotonic clock started when the source is created; frame times are
// uniformly distributed in [6, 16) milliseconds.
type SyntheticSource struct {
	interval time.Duration
	rng      *rand.Rand
	start    time.Time
	out      chan any

	opts options
}

var _ kadence.Source = (*SyntheticSource)(nil)

// NewSyntheticSource returns a new SyntheticSource connector. It stops
// emitting and closes its output when the context configured with
// WithContext is canceled.
func NewSyntheticSource(interval time.Duration, opts ...Opt) *SyntheticSource {
	if interval <= 0 {
		interval = 16 * time.Millisecond
	}
	syntheticSource := &SyntheticSource{
		interval: interval,
		rng:      rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64())),
		start:    time.Now(),
		out:      make(chan any),
		opts:     makeDefaultOptions(),
	}

	// apply functional options to configure the source
	for _, opt := range opts {
		opt(&syntheticSource.opts)
	}

	// asynchronously send samples downstream
	go syntheticSource.process()

	return syntheticSource
}

func (s *SyntheticSource) process() {
	ticker := time.NewTicker(s.interval)
	defer func() {
		ticker.Stop()
		close(s.out)
		s.opts.logger.Info("Synthetic source stopped")
	}()

	for {
		select {
		case <-s.opts.ctx.Done():
			return
		case now := <-ticker.C:
			select {
			case s.out <- s.sample(now):
			case <-s.opts.ctx.Done():
				return
			}
		}
	}
}

func (s *SyntheticSource) sample(now time.Time) stats.FrameSample {
	// time.Time.Sub uses the monotonic clock reading
	elapsed := now.Sub(s.start)
	if elapsed <= 0 {
		elapsed = 1
	}
	return stats.FrameSample{
		TimestampNs: uint64(elapsed.Nanoseconds()),
		FrameTimeMs: syntheticMinFrameMs +
			s.rng.Float64()*(syntheticMaxFrameMs-syntheticMinFrameMs),
	}
}

// Via asynchronously streams data to the given Flow and returns it.
func (s *SyntheticSource) Via(operator kadence.Flow) kadence.Flow {
	flow.DoStream(s, operator)
	return operator
}

// Out returns the output channel of the SyntheticSource connector.
func (s *SyntheticSource) Out() <-chan any {
	return s.out
}
