package extension

import (
	"encoding/json"
	"errors"
	"log/slog"
	"math"

	"github.com/reugn/kadence/flow"
	"github.com/reugn/kadence/stats"
)

// feedRecord is one line of a sample feed.
type feedRecord struct {
	SessionID   *uint64  `json:"session_id"`
	TimestampNs *uint64  `json:"timestamp_ns"`
	FrameTimeMs *float64 `json:"frame_time_ms"`
}

var errInvalidRecord = errors.New("invalid feed record")

// ParseFeedLine decodes a feed line of the form
// {"session_id":1,"timestamp_ns":16000000,"frame_time_ms":16.6}.
// Records without a session_id are addressed to defaultSession.
func ParseFeedLine(line []byte, defaultSession uint64) (*SessionSample, error) {
	var record feedRecord
	if err := json.Unmarshal(line, &record); err != nil {
		return nil, err
	}
	if record.TimestampNs == nil || record.FrameTimeMs == nil {
		return nil, errInvalidRecord
	}
	frameTime := *record.FrameTimeMs
	if frameTime < 0 || math.IsNaN(frameTime) || math.IsInf(frameTime, 0) {
		return nil, errInvalidRecord
	}

	sessionID := defaultSession
	if record.SessionID != nil {
		sessionID = *record.SessionID
	}
	return &SessionSample{
		SessionID: sessionID,
		Sample: stats.FrameSample{
			TimestampNs: *record.TimestampNs,
			FrameTimeMs: frameTime,
		},
	}, nil
}

// FeedDecoder returns a flow.MapFunction decoding feed lines. Malformed
// lines are logged and mapped to nil, to be removed with NonNilSample.
func FeedDecoder(defaultSession uint64, logger *slog.Logger) flow.MapFunction[[]byte, *SessionSample] {
	if logger == nil {
		logger = slog.Default()
	}
	return func(line []byte) *SessionSample {
		sample, err := ParseFeedLine(line, defaultSession)
		if err != nil {
			logger.Warn("Skipped malformed feed line",
				slog.String("line", string(line)),
				slog.Any("error", err))
			return nil
		}
		return sample
	}
}

// NonNilSample is a flow.FilterPredicate dropping nil samples.
func NonNilSample(sample *SessionSample) bool {
	return sample != nil
}

// SyntheticSample returns a flow.MapFunction addressing synthetic frame
// samples to the given session.
func SyntheticSample(sessionID uint64) flow.MapFunction[stats.FrameSample, *SessionSample] {
	return func(sample stats.FrameSample) *SessionSample {
		return &SessionSample{SessionID: sessionID, Sample: sample}
	}
}
