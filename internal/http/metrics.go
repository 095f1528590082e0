package http

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"chorus/internal/compose"
)

// Metrics holds the service collectors on a private registry, so several
// servers can live in one process.
type Metrics struct {
	registry *prometheus.Registry

	ComposeRuns     *prometheus.CounterVec
	ResolvedTracks  *prometheus.CounterVec
	SourceMisses    *prometheus.CounterVec
	ComposeDuration prometheus.Histogram
	ComposedTracks  prometheus.Gauge
	RateLimited     prometheus.Counter
}

var _ compose.Recorder = (*Metrics)(nil)

func NewMetrics() *Metrics {
	metrics := &Metrics{
		registry: prometheus.NewRegistry(),
		ComposeRuns: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "chorus_compose_runs_total",
				Help: "Total number of compose requests by outcome",
			},
			[]string{"status"},
		),
		ResolvedTracks: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "chorus_resolved_tracks_total",
				Help: "Total number of tracks contributed per source kind",
			},
			[]string{"kind"},
		),
		SourceMisses: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "chorus_source_misses_total",
				Help: "Total number of sources that contributed nothing",
			},
			[]string{"kind"},
		),
		ComposeDuration: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "chorus_compose_duration_seconds",
				Help:    "Time spent resolving a composition",
				Buckets: prometheus.DefBuckets,
			},
		),
		ComposedTracks: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "chorus_composed_tracks",
				Help: "Number of tracks in the last composition",
			},
		),
		RateLimited: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "chorus_compose_rate_limited_total",
				Help: "Total number of compose requests rejected by the rate limit",
			},
		),
	}

	metrics.registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		metrics.ComposeRuns,
		metrics.ResolvedTracks,
		metrics.SourceMisses,
		metrics.ComposeDuration,
		metrics.ComposedTracks,
		metrics.RateLimited,
	)

	return metrics
}

// Registry exposes the registry the collectors live on.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

func (m *Metrics) ObserveResolved(kind compose.Kind, n int) {
	m.ResolvedTracks.WithLabelValues(string(kind)).Add(float64(n))
}

func (m *Metrics) ObserveMiss(kind compose.Kind) {
	m.SourceMisses.WithLabelValues(string(kind)).Inc()
}

func (m *Metrics) ObserveCompose(d time.Duration, n int) {
	m.ComposeDuration.Observe(d.Seconds())
	m.ComposedTracks.Set(float64(n))
}

func (m *Metrics) RecordComposeRun(status string) {
	m.ComposeRuns.WithLabelValues(status).Inc()
}
