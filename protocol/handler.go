package protocol

import (
	"errors"
	"log/slog"

	"github.com/reugn/kadence/metrics"
	"github.com/reugn/kadence/session"
)

// Querier is the read side of the session service used by the Handler.
type Querier interface {
	LiveMetrics(id uint64) (session.LiveMetrics, error)
	Info(id uint64) (session.Info, error)
	List() []session.Info
}

var _ Querier = (*session.Service)(nil)

// Handler dispatches decoded requests to the session service and encodes
// the responses. A Handler is safe for concurrent use by many connections.
type Handler struct {
	querier        Querier
	defaultSession uint64
	logger         *slog.Logger
}

// HandlerOpt configures a Handler.
type HandlerOpt func(*Handler)

// WithDefaultSession sets the session used by requests that do not name one.
// If not specified, session.DefaultID is used.
func WithDefaultSession(id uint64) HandlerOpt {
	return func(h *Handler) {
		h.defaultSession = id
	}
}

// WithHandlerLogger configures the Handler with a custom logger.
// If not specified, slog.Default() is used.
func WithHandlerLogger(logger *slog.Logger) HandlerOpt {
	return func(h *Handler) {
		h.logger = logger
	}
}

// NewHandler returns a new Handler serving requests from the querier.
func NewHandler(querier Querier, opts ...HandlerOpt) *Handler {
	handler := &Handler{
		querier:        querier,
		defaultSession: session.DefaultID,
		logger:         slog.Default(),
	}
	for _, opt := range opts {
		opt(handler)
	}
	return handler
}

// Handle processes a single request message and returns the encoded
// response line. Failures are reported in-band as error responses.
func (h *Handler) Handle(message []byte) []byte {
	request, err := ParseRequest(message)
	if err != nil {
		metrics.Requests.WithLabelValues("", "invalid").Inc()
		return encodeError(errorResponse(0, MessageInvalidJSON))
	}

	response := h.dispatch(request)
	encoded, err := Encode(response)
	if err != nil {
		h.logger.Error("Failed to encode response",
			slog.Int("id", request.ID), slog.Any("error", err))
		failure := errorResponse(request.ID, MessageInternalError)
		response, encoded = failure, encodeError(failure)
	}

	status := "ok"
	if e, ok := response.(ErrorResponse); ok {
		status = e.Message
	}
	metrics.Requests.WithLabelValues(requestLabel(request.Type), status).Inc()

	return encoded
}

func (h *Handler) dispatch(request Request) any {
	sessionID := h.defaultSession
	if request.SessionID != nil {
		sessionID = *request.SessionID
	}

	switch request.Type {
	case TypeGetLiveMetrics:
		live, err := h.querier.LiveMetrics(sessionID)
		if err != nil {
			return h.queryError(request.ID, err)
		}
		return LiveMetricsResponse{
			ID:             request.ID,
			Type:           TypeLiveMetrics,
			FPS:            live.AvgFPS,
			FrameTimeMs:    live.LastFrameTimeMs,
			P1LowFPS:       live.P1LowFPS,
			P01LowFPS:      live.P01LowFPS,
			DroppedLastSec: live.DroppedLastSec,
		}

	case TypeGetSessionInfo:
		info, err := h.querier.Info(sessionID)
		if err != nil {
			return h.queryError(request.ID, err)
		}
		return SessionInfoResponse{
			ID:          request.ID,
			Type:        TypeSessionInfo,
			SessionInfo: sessionInfo(info),
		}

	case TypeListSessions:
		infos := h.querier.List()
		sessions := make([]SessionInfo, len(infos))
		for i, info := range infos {
			sessions[i] = sessionInfo(info)
		}
		return SessionsResponse{
			ID:       request.ID,
			Type:     TypeSessions,
			Sessions: sessions,
		}

	default:
		return errorResponse(request.ID, MessageUnknownCommand)
	}
}

func (h *Handler) queryError(id int, err error) ErrorResponse {
	if errors.Is(err, session.ErrNotFound) {
		return errorResponse(id, MessageSessionNotFound)
	}
	h.logger.Error("Query failed", slog.Int("id", id), slog.Any("error", err))
	return errorResponse(id, err.Error())
}

// encodeError marshals an error response; it holds no floats, so it
// cannot fail.
func encodeError(response ErrorResponse) []byte {
	encoded, _ := Encode(response)
	return encoded
}

// requestLabel bounds the label values to the known request types.
func requestLabel(requestType string) string {
	switch requestType {
	case TypeGetLiveMetrics, TypeGetSessionInfo, TypeListSessions:
		return requestType
	default:
		return "unknown"
	}
}

func errorResponse(id int, message string) ErrorResponse {
	return ErrorResponse{
		ID:      id,
		Type:    TypeError,
		Message: message,
	}
}

func sessionInfo(info session.Info) SessionInfo {
	return SessionInfo{
		SessionID:        info.ID,
		ProcessID:        info.ProcessID,
		ProcessName:      info.ProcessName,
		StartTimestampNs: info.StartTimestampNs,
		EndTimestampNs:   info.EndTimestampNs,
		SampleCount:      info.SampleCount,
	}
}
