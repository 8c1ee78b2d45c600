package protocol

import (
	"encoding/json"
	"errors"
	"math"
)

// Request types.
const (
	TypeGetLiveMetrics = "get_live_metrics"
	TypeGetSessionInfo = "get_session_info"
	TypeListSessions   = "list_sessions"
)

// Response types.
const (
	TypeLiveMetrics = "live_metrics"
	TypeSessionInfo = "session_info"
	TypeSessions    = "sessions"
	TypeError       = "error"
)

// Error messages carried by error responses.
const (
	MessageInvalidJSON     = "invalid_json"
	MessageUnknownCommand  = "unknown_command"
	MessageSessionNotFound = "session_not_found"
	MessageInternalError   = "internal_error"
)

// ErrInvalidJSON is returned by ParseRequest when a message is not a JSON
// object.
var ErrInvalidJSON = errors.New(MessageInvalidJSON)

// Request is a decoded client request.
type Request struct {
	ID   int
	Type string
	// SessionID is nil when the request does not name a session.
	SessionID *uint64
}

// ParseRequest decodes a single request message. The id defaults to 0 when
// it is absent or not an integral number, and the type defaults to the
// empty string when it is absent or not a string.
func ParseRequest(message []byte) (Request, error) {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(message, &fields); err != nil || fields == nil {
		return Request{}, ErrInvalidJSON
	}

	request := Request{
		ID: parseID(fields["id"]),
	}
	if raw, ok := fields["type"]; ok {
		_ = json.Unmarshal(raw, &request.Type)
	}
	if raw, ok := fields["session_id"]; ok {
		var sessionID uint64
		if err := json.Unmarshal(raw, &sessionID); err == nil {
			request.SessionID = &sessionID
		}
	}

	return request, nil
}

func parseID(raw json.RawMessage) int {
	if raw == nil {
		return 0
	}
	var number float64
	if err := json.Unmarshal(raw, &number); err != nil {
		return 0
	}
	if number != math.Trunc(number) || number < math.MinInt32 || number > math.MaxInt32 {
		return 0
	}
	return int(number)
}

// LiveMetricsResponse carries the live statistics of a session.
type LiveMetricsResponse struct {
	ID             int     `json:"id"`
	Type           string  `json:"type"`
	FPS            float64 `json:"fps"`
	FrameTimeMs    float64 `json:"frame_time_ms"`
	P1LowFPS       float64 `json:"p1_low_fps"`
	P01LowFPS      float64 `json:"p01_low_fps"`
	DroppedLastSec uint32  `json:"dropped_last_sec"`
}

// SessionInfo describes a session on the wire.
type SessionInfo struct {
	SessionID        uint64 `json:"session_id"`
	ProcessID        int32  `json:"process_id"`
	ProcessName      string `json:"process_name"`
	StartTimestampNs uint64 `json:"start_timestamp_ns"`
	EndTimestampNs   uint64 `json:"end_timestamp_ns"`
	SampleCount      int    `json:"sample_count"`
}

// SessionInfoResponse carries the description of a single session.
type SessionInfoResponse struct {
	ID   int    `json:"id"`
	Type string `json:"type"`
	SessionInfo
}

// SessionsResponse lists all sessions.
type SessionsResponse struct {
	ID       int           `json:"id"`
	Type     string        `json:"type"`
	Sessions []SessionInfo `json:"sessions"`
}

// ErrorResponse reports a failed request.
type ErrorResponse struct {
	ID      int    `json:"id"`
	Type    string `json:"type"`
	Message string `json:"message"`
}

// Encode serializes a response as a single compact JSON line terminated
// by a newline.
func Encode(response any) ([]byte, error) {
	encoded, err := json.Marshal(response)
	if err != nil {
		return nil, err
	}
	return append(encoded, '\n'), nil
}
