package metrics

import (
	"time"

	"github.com/proxyfleet/orchestrator/pkg/config"

	"github.com/prometheus/client_golang/prometheus"
)

// ProbeMetrics tracks metrics related to per-descriptor probe processing.
//
// Metrics:
//   - proxyfleet_orchestrator_probes_total: Total probe count by protocol, outcome
//   - proxyfleet_orchestrator_probe_duration_seconds: Probe duration histogram
//   - proxyfleet_orchestrator_probe_latency_ms: Observed connect latency for successful probes
//   - proxyfleet_orchestrator_probe_payload_bytes: Bytes transferred during a probe, if measured
type ProbeMetrics struct {
	// Total probe count
	probesTotal *prometheus.CounterVec

	// Probe duration histogram (wall-clock time spent testing a descriptor)
	probeDuration *prometheus.HistogramVec

	// Observed connect latency for successful probes
	probeLatency *prometheus.HistogramVec

	// Bytes transferred during a probe, if measured
	payloadBytes *prometheus.HistogramVec
}

// NewProbeMetrics creates and registers probe metrics with the provided registry.
func NewProbeMetrics(cfg *config.MetricsConfig, registry *prometheus.Registry) *ProbeMetrics {
	pm := &ProbeMetrics{
		probesTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: cfg.Namespace,
				Subsystem: cfg.Subsystem,
				Name:      "probes_total",
				Help:      "Total number of descriptor probes processed",
			},
			[]string{"protocol", "outcome"},
		),

		probeDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: cfg.Namespace,
				Subsystem: cfg.Subsystem,
				Name:      "probe_duration_seconds",
				Help:      "Duration of descriptor probes in seconds",
				Buckets:   cfg.ProbeDurationBuckets,
			},
			[]string{"protocol"},
		),

		probeLatency: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: cfg.Namespace,
				Subsystem: cfg.Subsystem,
				Name:      "probe_latency_ms",
				Help:      "Connect latency observed by successful probes, in milliseconds",
				Buckets:   prometheus.ExponentialBuckets(10, 2, 10), // 10ms to ~5s
			},
			[]string{"protocol"},
		),

		payloadBytes: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: cfg.Namespace,
				Subsystem: cfg.Subsystem,
				Name:      "probe_payload_bytes",
				Help:      "Bytes transferred during a probe",
				Buckets:   prometheus.ExponentialBuckets(64, 2, 12),
			},
			[]string{"protocol", "direction"},
		),
	}

	registry.MustRegister(
		pm.probesTotal,
		pm.probeDuration,
		pm.probeLatency,
		pm.payloadBytes,
	)

	return pm
}

// RecordProbe records metrics for a completed probe.
//
// Parameters:
//   - protocol: outbound protocol ("vless", "vmess", "trojan", ...)
//   - outcome: probe outcome ("success", "timeout", "refused", "error")
//   - duration: wall-clock duration of the probe attempt
//   - latencyMS: connect latency in milliseconds, 0 if unknown
func (pm *ProbeMetrics) RecordProbe(protocol, outcome string, duration time.Duration, latencyMS float64) {
	pm.probesTotal.WithLabelValues(protocol, outcome).Inc()
	pm.probeDuration.WithLabelValues(protocol).Observe(duration.Seconds())

	if latencyMS > 0 {
		pm.probeLatency.WithLabelValues(protocol).Observe(latencyMS)
	}
}

// RecordPayload records the size of data transferred during a probe.
//
// Parameters:
//   - protocol: outbound protocol
//   - direction: "sent" or "received"
//   - sizeBytes: size in bytes
func (pm *ProbeMetrics) RecordPayload(protocol, direction string, sizeBytes int) {
	if sizeBytes > 0 {
		pm.payloadBytes.WithLabelValues(protocol, direction).Observe(float64(sizeBytes))
	}
}
