package stats

import (
	"math"
	"sort"
)

const (
	p1Quantile  = 0.99
	p01Quantile = 0.999
)

// Analyzer ingests frame samples into session windows and keeps the derived
// statistics consistent with the window contents.
// An Analyzer holds no mutable state and is safe for concurrent use; the
// sessions it operates on are not.
type Analyzer struct {
	capacity        int
	dropThresholdMs float64
}

// Option configures an Analyzer.
type Option func(*Analyzer)

// WithCapacity sets the maximum number of samples retained per session.
// Non-positive values keep the default.
func WithCapacity(capacity int) Option {
	return func(a *Analyzer) {
		if capacity > 0 {
			a.capacity = capacity
		}
	}
}

// WithDropThreshold sets the frame time, in milliseconds, at or above which
// a frame is counted as dropped. Non-positive values keep the default.
func WithDropThreshold(thresholdMs float64) Option {
	return func(a *Analyzer) {
		if thresholdMs > 0 {
			a.dropThresholdMs = thresholdMs
		}
	}
}

// NewAnalyzer returns a new Analyzer configured with the given options.
func NewAnalyzer(opts ...Option) *Analyzer {
	analyzer := &Analyzer{
		capacity:        DefaultCapacity,
		dropThresholdMs: DefaultDropThresholdMs,
	}
	for _, opt := range opts {
		opt(analyzer)
	}
	return analyzer
}

// Capacity returns the per-session window capacity.
func (a *Analyzer) Capacity() int {
	return a.capacity
}

// DropThreshold returns the drop threshold in milliseconds.
func (a *Analyzer) DropThreshold() float64 {
	return a.dropThresholdMs
}

// NewSession returns an empty session with a window sized for the Analyzer.
func (a *Analyzer) NewSession(id uint64, processID int32, processName string) *Session {
	return &Session{
		ID:          id,
		ProcessID:   processID,
		ProcessName: processName,
		window:      NewWindow(a.capacity),
	}
}

// AddSample appends the sample to the session window, evicts the oldest
// samples beyond capacity, and recomputes the session statistics.
//
// Samples are accepted in any order. The end timestamp always follows the
// last ingested sample, even when it is not the latest one in the window.
func (a *Analyzer) AddSample(session *Session, sample FrameSample) {
	if session.window == nil {
		session.window = NewWindow(a.capacity)
	}

	sample.Dropped = sample.FrameTimeMs >= a.dropThresholdMs
	session.window.Push(sample)

	if session.stats.StartTimestampNs == 0 {
		session.stats.StartTimestampNs = sample.TimestampNs
	}
	session.stats.EndTimestampNs = sample.TimestampNs

	computed := a.Compute(session.window.Samples(), session.stats.EndTimestampNs)
	computed.StartTimestampNs = session.stats.StartTimestampNs
	session.stats = computed
}

// Compute derives the statistics of the given samples from scratch.
// endTimestampNs anchors the one-second dropped frame span and is copied to
// the result; StartTimestampNs is left zero since it is session metadata.
func (a *Analyzer) Compute(samples []FrameSample, endTimestampNs uint64) SessionStats {
	result := SessionStats{EndTimestampNs: endTimestampNs}
	n := len(samples)
	if n == 0 {
		return result
	}

	frameTimes := make([]float64, n)
	var sumMs float64
	for i, s := range samples {
		frameTimes[i] = s.FrameTimeMs
		sumMs += s.FrameTimeMs
	}
	result.AvgFPS = fpsFromMs(sumMs / float64(n))

	// the slowest frames sit at the top of the ascending order
	sort.Float64s(frameTimes)
	result.P1LowFPS = fpsFromMs(frameTimes[percentileIndex(n, p1Quantile)])
	result.P01LowFPS = fpsFromMs(frameTimes[percentileIndex(n, p01Quantile)])

	var windowStart uint64
	if endTimestampNs >= OneSecondNs {
		windowStart = endTimestampNs - OneSecondNs
	}
	// scan the whole window, timestamps may arrive out of order
	for _, s := range samples {
		if s.TimestampNs >= windowStart && s.FrameTimeMs >= a.dropThresholdMs {
			result.DroppedLastSec++
		}
	}

	return result
}

// percentileIndex returns min(n-1, floor(n*q)).
func percentileIndex(n int, q float64) int {
	idx := int(math.Floor(float64(n) * q))
	if idx > n-1 {
		idx = n - 1
	}
	return idx
}
