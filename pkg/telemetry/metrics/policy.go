package metrics

import (
	"time"

	"github.com/proxyfleet/orchestrator/pkg/config"

	"github.com/prometheus/client_golang/prometheus"
)

// ValidationMetrics tracks metrics related to descriptor validation and
// blocklist matching.
//
// Metrics:
//   - proxyfleet_orchestrator_validation_evaluations_total: Total validation evaluations by scheme and action
//   - proxyfleet_orchestrator_validation_duration_seconds: Validation duration
//   - proxyfleet_orchestrator_validation_rejections_total: Number of descriptors rejected by reason
//   - proxyfleet_orchestrator_blocklist_hits_total: Number of descriptors matched against the blocklist
type ValidationMetrics struct {
	// Total validation evaluations
	evaluationsTotal *prometheus.CounterVec

	// Validation duration histogram
	evaluationDuration *prometheus.HistogramVec

	// Descriptors rejected by reason
	rejectionsTotal *prometheus.CounterVec

	// Descriptors matched against the blocklist
	blocklistHitsTotal *prometheus.CounterVec
}

// NewValidationMetrics creates and registers validation metrics with the provided registry.
func NewValidationMetrics(cfg *config.MetricsConfig, registry *prometheus.Registry) *ValidationMetrics {
	vm := &ValidationMetrics{
		evaluationsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: cfg.Namespace,
				Subsystem: cfg.Subsystem,
				Name:      "validation_evaluations_total",
				Help:      "Total number of descriptor validation evaluations",
			},
			[]string{"scheme", "action"},
		),

		evaluationDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: cfg.Namespace,
				Subsystem: cfg.Subsystem,
				Name:      "validation_duration_seconds",
				Help:      "Duration of descriptor validation in seconds",
				// Validation is URI parsing plus regex matching, should be fast
				Buckets: prometheus.ExponentialBuckets(0.000001, 2, 15), // 1µs to 16ms
			},
			[]string{"scheme"},
		),

		rejectionsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: cfg.Namespace,
				Subsystem: cfg.Subsystem,
				Name:      "validation_rejections_total",
				Help:      "Total number of descriptors rejected by validation",
			},
			[]string{"scheme", "reason"},
		),

		blocklistHitsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: cfg.Namespace,
				Subsystem: cfg.Subsystem,
				Name:      "blocklist_hits_total",
				Help:      "Total number of descriptors matched against the blocklist",
			},
			[]string{"mode"},
		),
	}

	registry.MustRegister(
		vm.evaluationsTotal,
		vm.evaluationDuration,
		vm.rejectionsTotal,
		vm.blocklistHitsTotal,
	)

	return vm
}

// RecordEvaluation records a descriptor validation evaluation.
//
// Parameters:
//   - scheme: outbound scheme ("vless", "vmess", "trojan", ...)
//   - action: outcome of validation ("accept", "reject")
//   - duration: time taken to validate
func (vm *ValidationMetrics) RecordEvaluation(scheme, action string, duration time.Duration) {
	vm.evaluationsTotal.WithLabelValues(scheme, action).Inc()
	vm.evaluationDuration.WithLabelValues(scheme).Observe(duration.Seconds())
}

// RecordRejection records a descriptor rejected by validation.
//
// Common reasons: "unsupported_scheme", "missing_host", "malformed_uri".
func (vm *ValidationMetrics) RecordRejection(scheme, reason string) {
	vm.rejectionsTotal.WithLabelValues(scheme, reason).Inc()
}

// RecordBlocklistHit records a descriptor matched against the blocklist.
//
// Parameters:
//   - mode: blocklist source mode ("file" or "git")
func (vm *ValidationMetrics) RecordBlocklistHit(mode string) {
	vm.blocklistHitsTotal.WithLabelValues(mode).Inc()
}
