// Package notify delivers a narrow notification for each working
// descriptor the orchestrator finds, independent of the batched emission
// pkg/subscription performs at Phase 4.
//
// Only one sink ships today: a rate-limited structured-log sink. The
// batching/fan-out window for richer sinks (webhook, message queue) is
// an open question left to a future notifier rather than invented here.
package notify

import (
	"context"
	"log/slog"

	"github.com/proxyfleet/orchestrator/pkg/limits/ratelimit"
	"github.com/proxyfleet/orchestrator/pkg/orchestrator"
)

// Sink delivers a notification for a single result. Implementations
// satisfy orchestrator.Dependencies.Notifier.
type Sink interface {
	Notify(ctx context.Context, result orchestrator.Result) error
}

// LogSink logs each result at info level, rate-limited per protocol so a
// run that finds thousands of working descriptors of the same protocol
// does not flood the log stream.
//
// Grounded on the teacher's provider circuit-breaker health tracking
// (consecutive-failure counting gated by a mutex): here a token bucket
// gates emission instead of failure counting gating health.
type LogSink struct {
	logger  *slog.Logger
	buckets *ratelimit.KeyedLimiter
}

// NewLogSink builds a LogSink. logger is typically the orchestrator's
// base structured logger, scoped with a "component" field by the caller.
func NewLogSink(logger *slog.Logger) *LogSink {
	if logger == nil {
		logger = slog.Default()
	}
	return &LogSink{
		logger:  logger,
		buckets: ratelimit.NewKeyedLimiter(),
	}
}

// Notify logs the result if the per-protocol notification bucket has
// capacity, and silently drops it otherwise — a dropped notification
// never fails the run, since pkg/history and pkg/subscription already
// hold the authoritative record of the result.
func (s *LogSink) Notify(ctx context.Context, result orchestrator.Result) error {
	// A pre-cancelled context turns Acquire into a non-blocking try: it
	// returns false at once instead of waiting for a token.
	tryCtx, cancel := context.WithCancel(ctx)
	cancel()
	if !s.buckets.Acquire(tryCtx, result.Protocol, ratelimit.OpDefault) {
		return nil
	}

	s.logger.InfoContext(ctx, "descriptor verified",
		"protocol", result.Protocol,
		"address", result.Address,
		"ping_ms", result.PingMs,
		"download_mbps", result.DownloadMbps,
		"upload_mbps", result.UploadMbps,
		"country_code", result.CountryCode,
		"isp", result.ISP,
	)
	return nil
}
