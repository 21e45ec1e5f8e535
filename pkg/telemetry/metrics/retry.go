package metrics

import (
	"github.com/proxyfleet/orchestrator/pkg/config"

	"github.com/prometheus/client_golang/prometheus"
)

// RetryMetrics tracks metrics related to descriptor retry and blacklisting
// behavior.
//
// Metrics:
//   - proxyfleet_orchestrator_retries_total: Total retry attempts by protocol and reason
//   - proxyfleet_orchestrator_retry_depth: Retry count distribution per descriptor (histogram)
//   - proxyfleet_orchestrator_blacklist_size: Current number of permanently blacklisted URIs
type RetryMetrics struct {
	// Total retry attempts
	retriesTotal *prometheus.CounterVec

	// Retry count distribution per descriptor
	retryDepth *prometheus.HistogramVec

	// Current blacklist size
	blacklistSize prometheus.Gauge
}

// NewRetryMetrics creates and registers retry metrics with the provided registry.
func NewRetryMetrics(cfg *config.MetricsConfig, registry *prometheus.Registry) *RetryMetrics {
	rm := &RetryMetrics{
		retriesTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: cfg.Namespace,
				Subsystem: cfg.Subsystem,
				Name:      "retries_total",
				Help:      "Total number of descriptor retry attempts",
			},
			[]string{"protocol", "reason"},
		),

		retryDepth: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: cfg.Namespace,
				Subsystem: cfg.Subsystem,
				Name:      "retry_depth",
				Help:      "Number of retry attempts made before a descriptor succeeded or was blacklisted",
				Buckets:   []float64{0, 1, 2, 3, 4, 5},
			},
			[]string{"protocol"},
		),

		blacklistSize: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Namespace: cfg.Namespace,
				Subsystem: cfg.Subsystem,
				Name:      "blacklist_size",
				Help:      "Current number of permanently blacklisted URIs",
			},
		),
	}

	registry.MustRegister(
		rm.retriesTotal,
		rm.retryDepth,
		rm.blacklistSize,
	)

	return rm
}

// RecordRetry records a single retry attempt.
//
// Common reasons: "probe_failed", "fragment_failed", "sni_failed".
func (rm *RetryMetrics) RecordRetry(protocol, reason string) {
	rm.retriesTotal.WithLabelValues(protocol, reason).Inc()
}

// RecordRetryDepth records the total number of attempts a descriptor took
// before reaching a terminal outcome.
func (rm *RetryMetrics) RecordRetryDepth(protocol string, attempts int) {
	rm.retryDepth.WithLabelValues(protocol).Observe(float64(attempts))
}

// UpdateBlacklistSize sets the current blacklist size.
func (rm *RetryMetrics) UpdateBlacklistSize(size int) {
	rm.blacklistSize.Set(float64(size))
}
