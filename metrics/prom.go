package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
)

const namespace = "kadence"

var (
	SamplesIngested = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "samples_ingested_total",
			Help:      "Frame samples ingested per session",
		},
		[]string{"session"},
	)
	DroppedFrames = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "dropped_frames_total",
			Help:      "Ingested frames at or above the drop threshold per session",
		},
		[]string{"session"},
	)
	Requests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "requests_total",
			Help:      "Protocol requests by type and outcome",
		},
		[]string{"type", "status"},
	)
	ConnectionsActive = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "connections_active",
			Help:      "Currently open client connections",
		},
	)
	ConnectionsTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "connections_total",
			Help:      "Accepted client connections",
		},
	)
)

// Collectors returns all kadence collectors for registration.
func Collectors() []prometheus.Collector {
	return []prometheus.Collector{
		SamplesIngested,
		DroppedFrames,
		Requests,
		ConnectionsActive,
		ConnectionsTotal,
	}
}

// NewRegistry returns a registry holding the kadence collectors together
// with the Go runtime and process collectors.
func NewRegistry() *prometheus.Registry {
	registry := prometheus.NewRegistry()
	registry.MustRegister(Collectors()...)
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return registry
}
