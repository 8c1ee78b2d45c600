package stats

import "math"

const (
	// DefaultCapacity is the default number of samples retained per session.
	DefaultCapacity = 2048
	// DefaultDropThresholdMs is the default frame time, in milliseconds, at
	// or above which a frame is considered dropped.
	DefaultDropThresholdMs = 50.0
	// OneSecondNs is one second expressed in nanoseconds.
	OneSecondNs uint64 = 1_000_000_000
)

// FrameSample is a single observed frame.
type FrameSample struct {
	// TimestampNs is a monotonic timestamp of the frame in nanoseconds.
	TimestampNs uint64
	// FrameTimeMs is the duration of the frame in milliseconds.
	FrameTimeMs float64
	// Dropped is derived on ingest from the configured drop threshold.
	Dropped bool
}

// SessionStats is the statistics snapshot derived from a session window.
type SessionStats struct {
	StartTimestampNs uint64
	EndTimestampNs   uint64
	AvgFPS           float64
	P1LowFPS         float64
	P01LowFPS        float64
	DroppedLastSec   uint32
}

// Session holds the identity of a monitored process together with its
// bounded sample window and the statistics derived from it.
// A Session is not safe for concurrent use.
type Session struct {
	ID          uint64
	ProcessID   int32
	ProcessName string

	window *Window
	stats  SessionStats
}

// Stats returns the current statistics snapshot of the session.
func (s *Session) Stats() SessionStats {
	return s.stats
}

// Len returns the number of samples currently in the session window.
func (s *Session) Len() int {
	if s.window == nil {
		return 0
	}
	return s.window.Len()
}

// Samples returns a copy of the session window, oldest sample first.
func (s *Session) Samples() []FrameSample {
	if s.window == nil {
		return nil
	}
	return s.window.Samples()
}

// fpsFromMs converts a frame time in milliseconds to frames per second.
// Frame times that do not yield a finite rate, such as NaN or subnormal
// values, report 0.
func fpsFromMs(ms float64) float64 {
	if !(ms > 0) {
		return 0
	}
	fps := 1000.0 / ms
	if math.IsInf(fps, 0) {
		return 0
	}
	return fps
}
