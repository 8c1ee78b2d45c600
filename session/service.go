package session

import (
	"errors"
	"log/slog"
	"slices"
	"strconv"
	"sync"

	"github.com/reugn/kadence/metrics"
	"github.com/reugn/kadence/stats"
)

// DefaultID is the identifier of the session registered at start-up.
const DefaultID uint64 = 1

const (
	// DefaultMetricSessionLimit is the default number of sessions that get
	// their own metric label.
	DefaultMetricSessionLimit = 64
	// OverflowLabel is the metric label shared by sessions registered after
	// the limit is reached.
	OverflowLabel = "other"
)

var (
	// ErrNotFound is returned when a session identifier is unknown.
	ErrNotFound = errors.New("session not found")
	// ErrExists is returned when registering an identifier that is taken.
	ErrExists = errors.New("session already exists")
)

// LiveMetrics is an immutable snapshot of the live statistics of a session.
type LiveMetrics struct {
	AvgFPS          float64
	LastFrameTimeMs float64
	P1LowFPS        float64
	P01LowFPS       float64
	DroppedLastSec  uint32
}

// Info describes a registered session.
type Info struct {
	ID               uint64
	ProcessID        int32
	ProcessName      string
	StartTimestampNs uint64
	EndTimestampNs   uint64
	SampleCount      int
}

// entry guards the mutable state of a single session.
type entry struct {
	sync.Mutex
	session         *stats.Session
	lastFrameTimeMs float64
	label           string
}

// Service owns the registered sessions and serializes ingestion and queries
// per session. Operations on different sessions never contend for the same
// lock; the registry lock is held only to look sessions up.
type Service struct {
	mu       sync.RWMutex
	sessions map[uint64]*entry

	analyzer     *stats.Analyzer
	autoRegister bool
	labelLimit   int
	labeled      int // guarded by mu
	logger       *slog.Logger
}

// Opt configures a Service.
type Opt func(*Service)

// WithLogger configures the Service with a custom logger.
// If not specified, slog.Default() is used.
func WithLogger(logger *slog.Logger) Opt {
	return func(s *Service) {
		s.logger = logger
	}
}

// WithAutoRegister makes Ingest register unknown session identifiers
// instead of failing with ErrNotFound.
func WithAutoRegister(enabled bool) Opt {
	return func(s *Service) {
		s.autoRegister = enabled
	}
}

// WithMetricSessionLimit caps the number of distinct session labels on the
// per-session collectors. Samples of sessions past the cap are reported
// under OverflowLabel. A negative limit labels every session with
// OverflowLabel.
func WithMetricSessionLimit(limit int) Opt {
	return func(s *Service) {
		s.labelLimit = limit
	}
}

// NewService returns a new Service that computes statistics with the given
// analyzer. A nil analyzer is replaced with one using default settings.
func NewService(analyzer *stats.Analyzer, opts ...Opt) *Service {
	if analyzer == nil {
		analyzer = stats.NewAnalyzer()
	}

	service := &Service{
		sessions: make(map[uint64]*entry),
		analyzer:   analyzer,
		labelLimit: DefaultMetricSessionLimit,
		logger:     slog.Default(),
	}
	for _, opt := range opts {
		opt(service)
	}

	return service
}

// Register creates an empty session with the given identity.
func (s *Service) Register(id uint64, processID int32, processName string) error {
	s.mu.Lock()
	if _, ok := s.sessions[id]; ok {
		s.mu.Unlock()
		return ErrExists
	}
	s.sessions[id] = s.newEntry(id, processID, processName)
	s.mu.Unlock()

	s.logger.Info("Registered session",
		slog.Uint64("session", id),
		slog.Int("pid", int(processID)),
		slog.String("process", processName))
	return nil
}

// Ingest adds the sample to the session and recomputes its statistics.
func (s *Service) Ingest(id uint64, sample stats.FrameSample) error {
	e, err := s.lookup(id)
	if err != nil {
		if !s.autoRegister || !errors.Is(err, ErrNotFound) {
			return err
		}
		e = s.loadOrRegister(id)
	}

	e.Lock()
	s.analyzer.AddSample(e.session, sample)
	e.lastFrameTimeMs = sample.FrameTimeMs
	e.Unlock()

	metrics.SamplesIngested.WithLabelValues(e.label).Inc()
	if sample.FrameTimeMs >= s.analyzer.DropThreshold() {
		metrics.DroppedFrames.WithLabelValues(e.label).Inc()
	}
	return nil
}

// LiveMetrics returns a snapshot of the live statistics of the session.
func (s *Service) LiveMetrics(id uint64) (LiveMetrics, error) {
	e, err := s.lookup(id)
	if err != nil {
		return LiveMetrics{}, err
	}

	e.Lock()
	defer e.Unlock()

	current := e.session.Stats()
	return LiveMetrics{
		AvgFPS:          current.AvgFPS,
		LastFrameTimeMs: e.lastFrameTimeMs,
		P1LowFPS:        current.P1LowFPS,
		P01LowFPS:       current.P01LowFPS,
		DroppedLastSec:  current.DroppedLastSec,
	}, nil
}

// Info returns the description of the session.
func (s *Service) Info(id uint64) (Info, error) {
	e, err := s.lookup(id)
	if err != nil {
		return Info{}, err
	}
	return e.info(), nil
}

// List returns the descriptions of all sessions ordered by identifier.
func (s *Service) List() []Info {
	s.mu.RLock()
	entries := make([]*entry, 0, len(s.sessions))
	for _, e := range s.sessions {
		entries = append(entries, e)
	}
	s.mu.RUnlock()

	infos := make([]Info, len(entries))
	for i, e := range entries {
		infos[i] = e.info()
	}
	slices.SortFunc(infos, func(a, b Info) int {
		switch {
		case a.ID < b.ID:
			return -1
		case a.ID > b.ID:
			return 1
		default:
			return 0
		}
	})
	return infos
}

func (s *Service) lookup(id uint64) (*entry, error) {
	s.mu.RLock()
	e, ok := s.sessions[id]
	s.mu.RUnlock()
	if !ok {
		return nil, ErrNotFound
	}
	return e, nil
}

// loadOrRegister returns the session entry, registering an anonymous
// session if another goroutine has not done so already.
func (s *Service) loadOrRegister(id uint64) *entry {
	s.mu.Lock()
	e, ok := s.sessions[id]
	if !ok {
		e = s.newEntry(id, 0, "")
		s.sessions[id] = e
	}
	s.mu.Unlock()

	if !ok {
		s.logger.Info("Auto-registered session", slog.Uint64("session", id))
	}
	return e
}

// newEntry must be called with mu held.
func (s *Service) newEntry(id uint64, processID int32, processName string) *entry {
	label := OverflowLabel
	if s.labeled < s.labelLimit {
		label = strconv.FormatUint(id, 10)
		s.labeled++
	}
	return &entry{
		session: s.analyzer.NewSession(id, processID, processName),
		label:   label,
	}
}

func (e *entry) info() Info {
	e.Lock()
	defer e.Unlock()

	current := e.session.Stats()
	return Info{
		ID:               e.session.ID,
		ProcessID:        e.session.ProcessID,
		ProcessName:      e.session.ProcessName,
		StartTimestampNs: current.StartTimestampNs,
		EndTimestampNs:   current.EndTimestampNs,
		SampleCount:      e.session.Len(),
	}
}
