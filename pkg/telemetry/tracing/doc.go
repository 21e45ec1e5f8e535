// Package tracing provides OpenTelemetry distributed tracing for the proxy
// fleet test orchestrator.
//
// # Overview
//
// The tracing package implements W3C Trace Context propagation, span creation,
// and trace export to OTLP collectors. It provides visibility
// into a run's Fetch → Validate → Test → Emit pipeline with minimal overhead
// (<100µs per span).
//
// # Distributed Tracing
//
// Distributed tracing tracks a run as it flows through the pipeline's phases,
// creating a hierarchy of spans that represent operations. Each span records:
//   - Operation name and duration
//   - Attributes (key-value pairs)
//   - Events (timestamped logs within the span)
//   - Trace context (trace ID, span ID, sampling decision)
//
// # Trace Context Propagation
//
// The package implements W3C Trace Context (https://www.w3.org/TR/trace-context/)
// for propagating trace context across job boundaries:
//
//	traceparent: 00-4bf92f3577b34da6a3ce929d0e0e4736-00f067aa0ba902b7-01
//	tracestate: congo=t61rcWkgMzE
//
// # Sampling Strategies
//
// Three sampling strategies are supported:
//   - always: Sample all traces (development/debugging)
//   - never: Sample no traces (tracing disabled)
//   - ratio: Sample a percentage of traces (production)
//
// # Usage
//
//	// Initialize tracer
//	cfg := &config.TracingConfig{
//	    Enabled:     true,
//	    Sampler:     "ratio",
//	    SampleRatio: 0.1,
//	    Exporter:    "otlp",
//	    Endpoint:    "localhost:4317",
//	    ServiceName: "proxyfleet-orchestrator",
//	}
//	tracer, err := tracing.New(cfg)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer tracer.Shutdown(context.Background())
//
//	// Create span
//	ctx, span := tracer.Start(ctx, "proxyfleet.probe")
//	defer span.End()
//
//	// Add attributes
//	span.SetAttributes(
//	    attribute.String("protocol", "vless"),
//	    attribute.String("host", "edge-hk-03.example.net"),
//	    attribute.Int64("latency_ms", 180),
//	)
//
//	// Add event
//	span.AddEvent("validation_evaluated", trace.WithAttributes(
//	    attribute.String("scheme", "vless"),
//	    attribute.String("action", "accept"),
//	))
//
// # Span Hierarchy
//
// Spans form a hierarchy representing a run's call tree:
//
//	proxyfleet.run (90s)
//	├── proxyfleet.fetch (5s)
//	├── proxyfleet.validate (50ms)
//	├── proxyfleet.job (2s)
//	│   ├── proxyfleet.probe.latency (200ms)
//	│   ├── proxyfleet.probe.throughput (1.5s)
//	│   └── proxyfleet.probe.bypass (300ms)
//	└── proxyfleet.emit (10ms)
//
// # HTTP Integration
//
// Extract trace context from incoming HTTP requests (health/metrics endpoint):
//
//	ctx := tracing.Extract(r.Context(), r.Header)
//	ctx, span := tracer.Start(ctx, "handle_request")
//	defer span.End()
//
// Inject trace context into outgoing HTTP requests made by the source fetcher
// or geoip lookups:
//
//	req, _ := http.NewRequestWithContext(ctx, "POST", url, body)
//	tracing.Inject(ctx, req.Header)
//
// # Performance
//
// The tracing package is designed for minimal overhead:
//   - Span creation: <100µs per span
//   - Context propagation: <10µs
//   - Sampling decision: <1µs
//   - When disabled: <1µs (noop span)
//
// # Trace Exporters
//
// OTLP (OpenTelemetry Protocol) over gRPC is the only exporter
// implemented. New returns an error when the exporter is "jaeger" or
// "zipkin".
//
//	tracing:
//	  exporter: otlp
//	  endpoint: localhost:4317
//	  otlp:
//	    insecure: true
//	    timeout: 10s
//
// # Attribute Helpers
//
// Common attributes can be set using helper functions:
//
//	// Descriptor attributes
//	tracing.SetDescriptorAttributes(span, "vless", "edge-hk-03.example.net")
//
//	// Job attributes
//	tracing.SetJobAttributes(span, jobID, descriptorUUID, workerID)
//
//	// Throughput attributes
//	tracing.SetThroughputAttributes(span, 180, 42.5, 8.1)
//
//	// Error attributes
//	tracing.SetErrorAttributes(span, err, "probe_timeout")
package tracing
