package output

import (
	"context"
	"fmt"

	"github.com/proxyfleet/orchestrator/pkg/telemetry/metrics"
)

// MetricsExporter writes the run's collected metrics to a Prometheus text
// exposition file at Phase 4. Satisfies
// orchestrator.Dependencies.MetricsExporter.
type MetricsExporter struct {
	// Path is the destination file, e.g. "metrics.txt".
	Path string

	Collector *metrics.Collector
}

// NewMetricsExporter builds a MetricsExporter writing collector's metrics
// to path.
func NewMetricsExporter(path string, collector *metrics.Collector) *MetricsExporter {
	return &MetricsExporter{Path: path, Collector: collector}
}

// Export writes the metrics file. A nil Collector is a no-op, matching
// Dependencies' convention that an optional emission side effect is
// skipped rather than failing the run.
func (e *MetricsExporter) Export(ctx context.Context) error {
	if e.Collector == nil {
		return nil
	}
	if err := e.Collector.WriteToFile(e.Path); err != nil {
		return fmt.Errorf("output: write metrics: %w", err)
	}
	return nil
}
