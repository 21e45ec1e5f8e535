package metrics

import (
	"github.com/proxyfleet/orchestrator/pkg/config"

	"github.com/prometheus/client_golang/prometheus"
)

// SourceMetrics tracks metrics related to subscription source health and
// fetch performance.
//
// Metrics:
//   - proxyfleet_orchestrator_source_health: Source reachability (1=healthy, 0=unhealthy)
//   - proxyfleet_orchestrator_source_fetch_latency_seconds: Fetch latency per source
//   - proxyfleet_orchestrator_source_errors_total: Fetch error count by type
//   - proxyfleet_orchestrator_source_uris_total: Total URIs returned by each source
type SourceMetrics struct {
	// Source reachability (gauge: 1=healthy, 0=unhealthy)
	health *prometheus.GaugeVec

	// Fetch latency histogram
	latency *prometheus.HistogramVec

	// Fetch error counter
	errors *prometheus.CounterVec

	// Total URIs returned by a source
	uris *prometheus.CounterVec
}

// NewSourceMetrics creates and registers source metrics with the provided registry.
func NewSourceMetrics(cfg *config.MetricsConfig, registry *prometheus.Registry) *SourceMetrics {
	sm := &SourceMetrics{
		health: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: cfg.Namespace,
				Subsystem: cfg.Subsystem,
				Name:      "source_health",
				Help:      "Subscription source reachability (1=healthy, 0=unhealthy)",
			},
			[]string{"source"},
		),

		latency: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: cfg.Namespace,
				Subsystem: cfg.Subsystem,
				Name:      "source_fetch_latency_seconds",
				Help:      "Subscription source fetch latency in seconds",
				Buckets:   cfg.ProbeDurationBuckets,
			},
			[]string{"source"},
		),

		errors: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: cfg.Namespace,
				Subsystem: cfg.Subsystem,
				Name:      "source_errors_total",
				Help:      "Total number of subscription source fetch errors by type",
			},
			[]string{"source", "error_type"},
		),

		uris: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: cfg.Namespace,
				Subsystem: cfg.Subsystem,
				Name:      "source_uris_total",
				Help:      "Total number of URIs returned by each source",
			},
			[]string{"source"},
		),
	}

	registry.MustRegister(
		sm.health,
		sm.latency,
		sm.errors,
		sm.uris,
	)

	return sm
}

// UpdateHealth updates the reachability status of a source.
//
// Parameters:
//   - source: source URL or name
//   - healthy: true if the last fetch succeeded, false otherwise
func (sm *SourceMetrics) UpdateHealth(source string, healthy bool) {
	value := 0.0
	if healthy {
		value = 1.0
	}
	sm.health.WithLabelValues(source).Set(value)
}

// RecordLatency records the latency of a source fetch.
func (sm *SourceMetrics) RecordLatency(source string, latencySeconds float64) {
	sm.latency.WithLabelValues(source).Observe(latencySeconds)
}

// RecordError records a fetch error from a source.
//
// Common error types:
//   - "timeout": Fetch deadline exceeded
//   - "http_error": Non-2xx response
//   - "decode": Subscription body could not be decoded
//   - "network": Network connectivity error
func (sm *SourceMetrics) RecordError(source, errorType string) {
	sm.errors.WithLabelValues(source, errorType).Inc()
}

// RecordURIs records the number of URIs a source's fetch returned.
func (sm *SourceMetrics) RecordURIs(source string, count int) {
	if count > 0 {
		sm.uris.WithLabelValues(source).Add(float64(count))
	}
}
