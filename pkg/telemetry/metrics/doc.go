// Package metrics provides Prometheus metrics collection for the proxy
// fleet test orchestrator.
//
// # Overview
//
// The metrics package implements Prometheus metrics for monitoring descriptor
// probing, subscription source health, validation/blocklist decisions, retry
// behavior, and rate limiter throughput. It provides low-overhead metric
// collection suitable for runs that probe thousands of descriptors.
//
// # Metrics Categories
//
//   - Probe Metrics: probe count, duration, latency, and payload sizes
//   - Source Metrics: subscription source health, fetch latency, error rates, URI counts
//   - Validation Metrics: validation outcomes, duration, rejections, blocklist hits
//   - Retry Metrics: retry counts, retry depth, blacklist size
//   - Rate Limit Metrics: allowed/throttled counts, available tokens, wait time
//
// # Usage
//
//	// Create collector
//	collector := metrics.NewCollector(config, registry)
//
//	// Record probe metrics
//	collector.RecordProbe(
//		"vless",          // protocol
//		"success",        // outcome
//		time.Second,      // duration
//		180,              // latency in ms
//	)
//
//	// Record source metrics
//	collector.RecordSourceLatency("https://example.com/sub1", 0.95)
//	collector.UpdateSourceHealth("https://example.com/sub1", true)
//
//	// Record validation metrics
//	collector.RecordValidation("vless", "accept", 2*time.Microsecond)
//
// # Custom Histogram Buckets
//
// The collector uses buckets tuned for proxy-probing workloads, configurable
// via config.MetricsConfig.ProbeDurationBuckets:
//
//	Probe Duration: 0.1s, 0.25s, 0.5s, 1s, 2s, 5s, 10s, 30s (default)
//
// # Prometheus Endpoint and File Export
//
// Metrics are exposed on the /metrics endpoint in standard Prometheus format
// via Collector.Handler, and additionally flushed to a flat text file at the
// end of a run via Collector.WriteToFile:
//
//	# HELP proxyfleet_orchestrator_probes_total Total number of descriptor probes processed
//	# TYPE proxyfleet_orchestrator_probes_total counter
//	proxyfleet_orchestrator_probes_total{protocol="vless",outcome="success"} 1234
//
// # Cardinality Management
//
// The collector implements cardinality limits to prevent memory issues when
// a run processes URIs from many distinct hosts:
//
//   - One CardinalityLimiter of 10,000 values bounds the protocol label of
//     RecordProbe; other metrics' labels are not limited
//   - Overflowing protocol labels collapse to "other"
//
// # Integration with pkg/limits
//
// The collector complements (does not replace) pkg/limits' own accounting:
// pkg/limits tracks in-process token bucket state for decision-making, while
// this package exposes that same activity for external scraping.
package metrics
