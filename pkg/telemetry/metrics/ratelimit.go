package metrics

import (
	"github.com/proxyfleet/orchestrator/pkg/config"

	"github.com/prometheus/client_golang/prometheus"
)

// RateLimitMetrics tracks rate limiter performance metrics.
//
// Metrics:
//   - proxyfleet_orchestrator_ratelimit_allowed_total: Total requests allowed by class bucket
//   - proxyfleet_orchestrator_ratelimit_throttled_total: Total requests throttled by class bucket
//   - proxyfleet_orchestrator_ratelimit_tokens_available: Current token count per class bucket
//   - proxyfleet_orchestrator_ratelimit_wait_seconds: Time spent waiting for a token
type RateLimitMetrics struct {
	// Requests allowed immediately
	allowedTotal *prometheus.CounterVec

	// Requests throttled (had to wait or were rejected)
	throttledTotal *prometheus.CounterVec

	// Current tokens available per bucket
	tokensAvailable *prometheus.GaugeVec

	// Time spent waiting for a token
	waitSeconds *prometheus.HistogramVec
}

// NewRateLimitMetrics creates and registers rate limiter metrics with the provided registry.
func NewRateLimitMetrics(cfg *config.MetricsConfig, registry *prometheus.Registry) *RateLimitMetrics {
	rm := &RateLimitMetrics{
		allowedTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: cfg.Namespace,
				Subsystem: cfg.Subsystem,
				Name:      "ratelimit_allowed_total",
				Help:      "Total number of requests allowed immediately by a rate limit bucket",
			},
			[]string{"bucket"},
		),

		throttledTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: cfg.Namespace,
				Subsystem: cfg.Subsystem,
				Name:      "ratelimit_throttled_total",
				Help:      "Total number of requests throttled by a rate limit bucket",
			},
			[]string{"bucket"},
		),

		tokensAvailable: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: cfg.Namespace,
				Subsystem: cfg.Subsystem,
				Name:      "ratelimit_tokens_available",
				Help:      "Current number of tokens available in a rate limit bucket",
			},
			[]string{"bucket"},
		),

		waitSeconds: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: cfg.Namespace,
				Subsystem: cfg.Subsystem,
				Name:      "ratelimit_wait_seconds",
				Help:      "Time spent waiting for a rate limit token",
				Buckets:   prometheus.ExponentialBuckets(0.001, 2, 12), // 1ms to ~4s
			},
			[]string{"bucket"},
		),
	}

	registry.MustRegister(
		rm.allowedTotal,
		rm.throttledTotal,
		rm.tokensAvailable,
		rm.waitSeconds,
	)

	return rm
}

// RecordAllowed records a request allowed immediately by a bucket.
//
// Parameters:
//   - bucket: rate limit class or domain key (e.g. "test", "fetch", "geoip", "api.telegram.org")
func (rm *RateLimitMetrics) RecordAllowed(bucket string) {
	rm.allowedTotal.WithLabelValues(bucket).Inc()
}

// RecordThrottled records a request that had to wait for a token.
func (rm *RateLimitMetrics) RecordThrottled(bucket string) {
	rm.throttledTotal.WithLabelValues(bucket).Inc()
}

// UpdateTokensAvailable sets the current token count for a bucket.
func (rm *RateLimitMetrics) UpdateTokensAvailable(bucket string, tokens float64) {
	rm.tokensAvailable.WithLabelValues(bucket).Set(tokens)
}

// RecordWait records the time spent waiting for a token.
func (rm *RateLimitMetrics) RecordWait(bucket string, waitSeconds float64) {
	rm.waitSeconds.WithLabelValues(bucket).Observe(waitSeconds)
}
