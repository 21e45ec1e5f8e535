package metrics

import (
	"fmt"
	"sync"
	"time"

	"github.com/proxyfleet/orchestrator/pkg/config"

	"github.com/prometheus/client_golang/prometheus"
)

// Collector is the main orchestrator for all Prometheus metrics emitted
// during a fleet test run. It manages metric registration, collection, and
// provides a unified interface for recording metrics across all components.
//
// The collector is designed for high-performance with minimal overhead (<50µs per update):
//   - Pre-allocated metric instances
//   - Lock-free counters where possible
//   - Cardinality limits to prevent memory issues
//   - Custom histogram buckets tuned for proxy probe latencies
type Collector struct {
	config   *config.MetricsConfig
	registry *prometheus.Registry

	// Probe metrics
	probeMetrics *ProbeMetrics

	// Source metrics
	sourceMetrics *SourceMetrics

	// Validation metrics
	validationMetrics *ValidationMetrics

	// Retry/blacklist metrics
	retryMetrics *RetryMetrics

	// Rate limiter metrics
	rateLimitMetrics *RateLimitMetrics

	// Cardinality tracking
	cardinalityLimiter *CardinalityLimiter
}

// NewCollector creates a new metrics collector with the specified configuration
// and Prometheus registry. If registry is nil, a new, empty registry is
// created.
//
// Example:
//
//	cfg := &config.MetricsConfig{
//		Enabled:   true,
//		Namespace: "proxyfleet",
//		Subsystem: "orchestrator",
//	}
//	collector := metrics.NewCollector(cfg, nil)
func NewCollector(cfg *config.MetricsConfig, registry *prometheus.Registry) *Collector {
	if registry == nil {
		registry = prometheus.NewRegistry()
	}

	// Set defaults if not specified
	if cfg.Namespace == "" {
		cfg.Namespace = "proxyfleet"
	}
	if cfg.Subsystem == "" {
		cfg.Subsystem = "orchestrator"
	}
	if len(cfg.ProbeDurationBuckets) == 0 {
		// Optimized for proxy probe durations (100ms - 30s)
		cfg.ProbeDurationBuckets = []float64{0.1, 0.25, 0.5, 1.0, 2.0, 5.0, 10.0, 30.0}
	}

	c := &Collector{
		config:             cfg,
		registry:           registry,
		cardinalityLimiter: NewCardinalityLimiter(10000), // Max 10K unique label sets
	}

	// Initialize metric subsystems
	c.probeMetrics = NewProbeMetrics(cfg, registry)
	c.sourceMetrics = NewSourceMetrics(cfg, registry)
	c.validationMetrics = NewValidationMetrics(cfg, registry)
	c.retryMetrics = NewRetryMetrics(cfg, registry)
	c.rateLimitMetrics = NewRateLimitMetrics(cfg, registry)

	return c
}

// RecordProbe records metrics for a completed descriptor probe.
//
// Parameters:
//   - protocol: outbound protocol (e.g., "vless", "vmess", "trojan")
//   - outcome: probe outcome ("success", "timeout", "refused", "error")
//   - duration: total probe duration
//   - latencyMS: observed connect latency in milliseconds, 0 if unknown
//
// Example:
//
//	collector.RecordProbe(
//		"vless",
//		"success",
//		1200*time.Millisecond,
//		180,
//	)
func (c *Collector) RecordProbe(protocol, outcome string, duration time.Duration, latencyMS float64) {
	if !c.config.Enabled {
		return
	}

	// Check cardinality limit
	labelSet := fmt.Sprintf("probe:%s:%s", protocol, outcome)
	if !c.cardinalityLimiter.Allow(labelSet) {
		// Aggregate into "other" to prevent cardinality explosion
		protocol = "other"
	}

	c.probeMetrics.RecordProbe(protocol, outcome, duration, latencyMS)
}

// UpdateSourceHealth updates the reachability status of a subscription source.
func (c *Collector) UpdateSourceHealth(source string, healthy bool) {
	if !c.config.Enabled {
		return
	}

	c.sourceMetrics.UpdateHealth(source, healthy)
}

// RecordSourceLatency records the latency for a subscription source fetch.
func (c *Collector) RecordSourceLatency(source string, latencySeconds float64) {
	if !c.config.Enabled {
		return
	}

	c.sourceMetrics.RecordLatency(source, latencySeconds)
}

// RecordSourceError records an error fetching from a subscription source.
//
// Parameters:
//   - source: source URL or name
//   - errorType: type of error (e.g., "timeout", "http_error", "decode", "network")
func (c *Collector) RecordSourceError(source, errorType string) {
	if !c.config.Enabled {
		return
	}

	c.sourceMetrics.RecordError(source, errorType)
}

// RecordSourceURIs records the number of URIs a source's fetch returned.
func (c *Collector) RecordSourceURIs(source string, count int) {
	if !c.config.Enabled {
		return
	}

	c.sourceMetrics.RecordURIs(source, count)
}

// RecordValidation records a descriptor validation evaluation.
//
// Parameters:
//   - scheme: outbound scheme
//   - action: validation outcome ("accept", "reject")
//   - duration: time taken to validate
//
// Example:
//
//	collector.RecordValidation(
//		"vless",
//		"accept",
//		2*time.Microsecond,
//	)
func (c *Collector) RecordValidation(scheme, action string, duration time.Duration) {
	if !c.config.Enabled {
		return
	}

	c.validationMetrics.RecordEvaluation(scheme, action, duration)
}

// RecordRejection records a descriptor rejected by validation.
func (c *Collector) RecordRejection(scheme, reason string) {
	if !c.config.Enabled {
		return
	}

	c.validationMetrics.RecordRejection(scheme, reason)
}

// RecordBlocklistHit records a descriptor matched against the blocklist.
func (c *Collector) RecordBlocklistHit(mode string) {
	if !c.config.Enabled {
		return
	}

	c.validationMetrics.RecordBlocklistHit(mode)
}

// RecordRetry records a retry attempt for a descriptor.
func (c *Collector) RecordRetry(protocol, reason string) {
	if !c.config.Enabled {
		return
	}

	c.retryMetrics.RecordRetry(protocol, reason)
}

// RecordRetryDepth records the final retry count for a descriptor.
func (c *Collector) RecordRetryDepth(protocol string, attempts int) {
	if !c.config.Enabled {
		return
	}

	c.retryMetrics.RecordRetryDepth(protocol, attempts)
}

// UpdateBlacklistSize sets the current blacklist size.
func (c *Collector) UpdateBlacklistSize(size int) {
	if !c.config.Enabled {
		return
	}

	c.retryMetrics.UpdateBlacklistSize(size)
}

// RecordRateLimitAllowed records a request allowed immediately by a bucket.
func (c *Collector) RecordRateLimitAllowed(bucket string) {
	if !c.config.Enabled {
		return
	}

	c.rateLimitMetrics.RecordAllowed(bucket)
}

// RecordRateLimitThrottled records a request that had to wait for a token.
func (c *Collector) RecordRateLimitThrottled(bucket string) {
	if !c.config.Enabled {
		return
	}

	c.rateLimitMetrics.RecordThrottled(bucket)
}

// UpdateRateLimitTokens sets the current token count for a bucket.
func (c *Collector) UpdateRateLimitTokens(bucket string, tokens float64) {
	if !c.config.Enabled {
		return
	}

	c.rateLimitMetrics.UpdateTokensAvailable(bucket, tokens)
}

// Registry returns the Prometheus registry used by this collector.
// This can be used to create an HTTP handler for the /metrics endpoint:
//
//	http.Handle("/metrics", promhttp.HandlerFor(
//		collector.Registry(),
//		promhttp.HandlerOpts{},
//	))
func (c *Collector) Registry() *prometheus.Registry {
	return c.registry
}

// CardinalityLimiter prevents metric cardinality explosion by limiting
// the number of unique label combinations per metric.
type CardinalityLimiter struct {
	maxCardinality int
	current        map[string]struct{}
	mu             sync.RWMutex
}

// NewCardinalityLimiter creates a new cardinality limiter with the specified
// maximum cardinality.
func NewCardinalityLimiter(maxCardinality int) *CardinalityLimiter {
	return &CardinalityLimiter{
		maxCardinality: maxCardinality,
		current:        make(map[string]struct{}),
	}
}

// Allow checks if a label set is allowed. Returns true if the label set
// already exists or if we haven't reached the cardinality limit yet.
// Returns false if adding this label set would exceed the limit.
func (cl *CardinalityLimiter) Allow(labelSet string) bool {
	cl.mu.RLock()
	if _, exists := cl.current[labelSet]; exists {
		cl.mu.RUnlock()
		return true
	}
	cl.mu.RUnlock()

	cl.mu.Lock()
	defer cl.mu.Unlock()

	// Double-check after acquiring write lock
	if _, exists := cl.current[labelSet]; exists {
		return true
	}

	if len(cl.current) >= cl.maxCardinality {
		return false
	}

	cl.current[labelSet] = struct{}{}
	return true
}

// Count returns the current cardinality.
func (cl *CardinalityLimiter) Count() int {
	cl.mu.RLock()
	defer cl.mu.RUnlock()
	return len(cl.current)
}
