package metrics

import (
	"testing"
	"time"

	"github.com/proxyfleet/orchestrator/pkg/config"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

// Helper function to create test config
func testConfig() *config.MetricsConfig {
	return &config.MetricsConfig{
		Enabled:              true,
		Namespace:            "test",
		Subsystem:            "metrics",
		ProbeDurationBuckets: []float64{0.1, 0.5, 1.0, 5.0},
	}
}

// TestCollector_NewCollector tests collector creation
func TestCollector_NewCollector(t *testing.T) {
	cfg := testConfig()
	registry := prometheus.NewRegistry()

	collector := NewCollector(cfg, registry)

	if collector == nil {
		t.Fatal("Expected non-nil collector")
	}
	if collector.config != cfg {
		t.Error("Collector config not set correctly")
	}
	if collector.registry != registry {
		t.Error("Collector registry not set correctly")
	}
}

// TestCollector_RecordProbe tests probe recording
func TestCollector_RecordProbe(t *testing.T) {
	cfg := testConfig()
	registry := prometheus.NewRegistry()
	collector := NewCollector(cfg, registry)

	tests := []struct {
		name      string
		protocol  string
		outcome   string
		duration  time.Duration
		latencyMS float64
	}{
		{
			name:      "success probe",
			protocol:  "vless",
			outcome:   "success",
			duration:  1200 * time.Millisecond,
			latencyMS: 180,
		},
		{
			name:      "error probe",
			protocol:  "vmess",
			outcome:   "error",
			duration:  500 * time.Millisecond,
			latencyMS: 0,
		},
		{
			name:      "timeout probe",
			protocol:  "trojan",
			outcome:   "timeout",
			duration:  10 * time.Second,
			latencyMS: 0,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			collector.RecordProbe(tt.protocol, tt.outcome, tt.duration, tt.latencyMS)

			count := testutil.ToFloat64(collector.probeMetrics.probesTotal.WithLabelValues(tt.protocol, tt.outcome))
			if count < 1 {
				t.Errorf("Expected probe counter >= 1, got %f", count)
			}
		})
	}
}

// TestCollector_SourceMetrics tests source metric recording
func TestCollector_SourceMetrics(t *testing.T) {
	cfg := testConfig()
	registry := prometheus.NewRegistry()
	collector := NewCollector(cfg, registry)

	t.Run("update health", func(t *testing.T) {
		collector.UpdateSourceHealth("https://example.com/sub1", true)
		health := testutil.ToFloat64(collector.sourceMetrics.health.WithLabelValues("https://example.com/sub1"))
		if health != 1.0 {
			t.Errorf("Expected health=1.0, got %f", health)
		}

		collector.UpdateSourceHealth("https://example.com/sub1", false)
		health = testutil.ToFloat64(collector.sourceMetrics.health.WithLabelValues("https://example.com/sub1"))
		if health != 0.0 {
			t.Errorf("Expected health=0.0, got %f", health)
		}
	})

	t.Run("record latency", func(t *testing.T) {
		collector.RecordSourceLatency("https://example.com/sub1", 0.95)
		// Just verify it doesn't panic
	})

	t.Run("record error", func(t *testing.T) {
		collector.RecordSourceError("https://example.com/sub1", "timeout")
		count := testutil.ToFloat64(collector.sourceMetrics.errors.WithLabelValues("https://example.com/sub1", "timeout"))
		if count < 1 {
			t.Errorf("Expected error count >= 1, got %f", count)
		}
	})

	t.Run("record uris", func(t *testing.T) {
		collector.RecordSourceURIs("https://example.com/sub1", 50)
		count := testutil.ToFloat64(collector.sourceMetrics.uris.WithLabelValues("https://example.com/sub1"))
		if count < 50 {
			t.Errorf("Expected uri count >= 50, got %f", count)
		}
	})
}

// TestCollector_ValidationMetrics tests validation metric recording
func TestCollector_ValidationMetrics(t *testing.T) {
	cfg := testConfig()
	registry := prometheus.NewRegistry()
	collector := NewCollector(cfg, registry)

	t.Run("record evaluation", func(t *testing.T) {
		collector.RecordValidation("vless", "accept", 2*time.Microsecond)
		count := testutil.ToFloat64(collector.validationMetrics.evaluationsTotal.WithLabelValues("vless", "accept"))
		if count < 1 {
			t.Errorf("Expected evaluation count >= 1, got %f", count)
		}
	})

	t.Run("record rejection", func(t *testing.T) {
		collector.RecordRejection("vless", "missing_host")
		count := testutil.ToFloat64(collector.validationMetrics.rejectionsTotal.WithLabelValues("vless", "missing_host"))
		if count < 1 {
			t.Errorf("Expected rejection count >= 1, got %f", count)
		}
	})

	t.Run("record blocklist hit", func(t *testing.T) {
		collector.RecordBlocklistHit("file")
		count := testutil.ToFloat64(collector.validationMetrics.blocklistHitsTotal.WithLabelValues("file"))
		if count < 1 {
			t.Errorf("Expected blocklist hit count >= 1, got %f", count)
		}
	})
}

// TestCollector_RetryMetrics tests retry metric recording
func TestCollector_RetryMetrics(t *testing.T) {
	cfg := testConfig()
	registry := prometheus.NewRegistry()
	collector := NewCollector(cfg, registry)

	t.Run("record retry", func(t *testing.T) {
		collector.RecordRetry("vless", "probe_failed")
		count := testutil.ToFloat64(collector.retryMetrics.retriesTotal.WithLabelValues("vless", "probe_failed"))
		if count < 1 {
			t.Errorf("Expected retry count >= 1, got %f", count)
		}
	})

	t.Run("update blacklist size", func(t *testing.T) {
		collector.UpdateBlacklistSize(42)
		size := testutil.ToFloat64(collector.retryMetrics.blacklistSize)
		if size != 42 {
			t.Errorf("Expected size=42, got %f", size)
		}
	})
}

// TestCollector_RateLimitMetrics tests rate limiter metric recording
func TestCollector_RateLimitMetrics(t *testing.T) {
	cfg := testConfig()
	registry := prometheus.NewRegistry()
	collector := NewCollector(cfg, registry)

	t.Run("record allowed", func(t *testing.T) {
		collector.RecordRateLimitAllowed("test")
		count := testutil.ToFloat64(collector.rateLimitMetrics.allowedTotal.WithLabelValues("test"))
		if count < 1 {
			t.Errorf("Expected allowed count >= 1, got %f", count)
		}
	})

	t.Run("record throttled", func(t *testing.T) {
		collector.RecordRateLimitThrottled("test")
		count := testutil.ToFloat64(collector.rateLimitMetrics.throttledTotal.WithLabelValues("test"))
		if count < 1 {
			t.Errorf("Expected throttled count >= 1, got %f", count)
		}
	})

	t.Run("update tokens available", func(t *testing.T) {
		collector.UpdateRateLimitTokens("test", 7)
		tokens := testutil.ToFloat64(collector.rateLimitMetrics.tokensAvailable.WithLabelValues("test"))
		if tokens != 7 {
			t.Errorf("Expected tokens=7, got %f", tokens)
		}
	})
}

// TestCollector_Disabled tests that recording on a disabled collector does not panic
func TestCollector_Disabled(t *testing.T) {
	cfg := testConfig()
	cfg.Enabled = false
	registry := prometheus.NewRegistry()
	collector := NewCollector(cfg, registry)

	// These should not panic
	collector.RecordProbe("vless", "success", time.Second, 100)
	collector.UpdateSourceHealth("src", true)
	collector.RecordValidation("vless", "accept", time.Millisecond)
	collector.RecordRateLimitAllowed("test")
}

// TestCardinalityLimiter tests cardinality limiting
func TestCardinalityLimiter(t *testing.T) {
	limiter := NewCardinalityLimiter(3)

	if !limiter.Allow("label1") {
		t.Error("Expected first label to be allowed")
	}
	if !limiter.Allow("label2") {
		t.Error("Expected second label to be allowed")
	}
	if !limiter.Allow("label3") {
		t.Error("Expected third label to be allowed")
	}

	if limiter.Allow("label4") {
		t.Error("Expected fourth label to be rejected")
	}

	if !limiter.Allow("label1") {
		t.Error("Expected existing label to be allowed")
	}

	if limiter.Count() != 3 {
		t.Errorf("Expected count=3, got %d", limiter.Count())
	}
}

// TestProbeMetrics_RecordPayload tests payload size recording
func TestProbeMetrics_RecordPayload(t *testing.T) {
	cfg := testConfig()
	registry := prometheus.NewRegistry()
	pm := NewProbeMetrics(cfg, registry)

	pm.RecordPayload("vless", "sent", 5120)
	pm.RecordPayload("vless", "received", 10240)

	// Just verify it doesn't panic
}

// TestRetryMetrics_RecordRetryDepth tests retry depth recording
func TestRetryMetrics_RecordRetryDepth(t *testing.T) {
	cfg := testConfig()
	registry := prometheus.NewRegistry()
	rm := NewRetryMetrics(cfg, registry)

	rm.RecordRetryDepth("vless", 3)

	// Just verify it doesn't panic
}

// TestCollector_ConcurrentRecording tests thread-safety
func TestCollector_ConcurrentRecording(t *testing.T) {
	cfg := testConfig()
	registry := prometheus.NewRegistry()
	collector := NewCollector(cfg, registry)

	done := make(chan bool)

	for i := 0; i < 10; i++ {
		go func() {
			for j := 0; j < 100; j++ {
				collector.RecordProbe("vless", "success", time.Second, 100)
				collector.UpdateSourceHealth("src", true)
				collector.RecordValidation("vless", "accept", time.Millisecond)
			}
			done <- true
		}()
	}

	for i := 0; i < 10; i++ {
		<-done
	}

	count := testutil.ToFloat64(collector.probeMetrics.probesTotal.WithLabelValues("vless", "success"))
	if count != 1000 {
		t.Errorf("Expected 1000 probes, got %f", count)
	}
}
