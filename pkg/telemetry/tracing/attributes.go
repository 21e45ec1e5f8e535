package tracing

import (
	"fmt"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// Span Attribute Helpers
//
// These functions provide a convenient way to set common attributes on spans.
// They use semantic conventions where applicable and ensure consistent attribute
// naming across the codebase.
//
// # Attribute Keys
//
// Standard attribute keys follow OpenTelemetry semantic conventions:
//   - http.*: HTTP-related attributes
//   - rpc.*: RPC-related attributes
//   - db.*: Database-related attributes
//
// Custom attribute keys use the "proxyfleet.*" namespace:
//   - proxyfleet.protocol: descriptor connection-URI scheme
//   - proxyfleet.host: descriptor target host
//   - proxyfleet.job_id: orchestrator job identifier

// Common attribute keys used throughout the system
const (
	// Descriptor attributes
	AttrProtocol = "proxyfleet.protocol"
	AttrHost     = "proxyfleet.host"

	// Job attributes
	AttrJobID         = "proxyfleet.job_id"
	AttrDescriptorID  = "proxyfleet.descriptor_uuid"
	AttrWorkerID      = "proxyfleet.worker_id"
	AttrRunID         = "proxyfleet.run_id"

	// Throughput attributes
	AttrLatencyMS     = "proxyfleet.latency_ms"
	AttrDownloadMbps  = "proxyfleet.throughput.download_mbps"
	AttrUploadMbps    = "proxyfleet.throughput.upload_mbps"

	// Validation attributes
	AttrValidationScheme = "proxyfleet.validation.scheme"
	AttrValidationRule   = "proxyfleet.validation.rule"
	AttrValidationAction = "proxyfleet.validation.action"

	// Blocklist attributes
	AttrBlocklistHit    = "proxyfleet.blocklist.hit"
	AttrBlocklistSource = "proxyfleet.blocklist.source"

	// Error attributes
	AttrErrorType    = "proxyfleet.error.type"
	AttrErrorMessage = "error.message"
	AttrErrorStack   = "error.stack"

	// Performance attributes
	AttrDuration   = "proxyfleet.duration_ms"
	AttrQueueTime  = "proxyfleet.queue_time_ms"
	AttrRetryCount = "proxyfleet.retry_count"
)

// SetDescriptorAttributes sets descriptor-related attributes on a span.
//
// Example:
//
//	SetDescriptorAttributes(span, "vless", "edge-hk-03.example.net")
func SetDescriptorAttributes(span trace.Span, protocol, host string) {
	span.SetAttributes(
		attribute.String(AttrProtocol, protocol),
		attribute.String(AttrHost, host),
	)
}

// SetJobAttributes sets job-related attributes on a span.
//
// Example:
//
//	SetJobAttributes(span, "job-123", "4a1f9e20-6b3d-4c1a-9f2e-8d7c6b5a4f3e", "worker-07")
func SetJobAttributes(span trace.Span, jobID, descriptorUUID, workerID string) {
	attrs := []attribute.KeyValue{
		attribute.String(AttrJobID, jobID),
	}

	if descriptorUUID != "" {
		attrs = append(attrs, attribute.String(AttrDescriptorID, RedactUUIDAttr(descriptorUUID)))
	}

	if workerID != "" {
		attrs = append(attrs, attribute.String(AttrWorkerID, workerID))
	}

	span.SetAttributes(attrs...)
}

// RedactUUIDAttr truncates a descriptor UUID to its first segment so full
// client credentials never reach a trace backend.
func RedactUUIDAttr(uuid string) string {
	if len(uuid) <= 8 {
		return "***"
	}
	return uuid[:8] + "-***"
}

// SetThroughputAttributes sets latency and bandwidth attributes on a span.
//
// Example:
//
//	SetThroughputAttributes(span, 180, 42.5, 8.1)
func SetThroughputAttributes(span trace.Span, latencyMS int64, downloadMbps, uploadMbps float64) {
	span.SetAttributes(
		attribute.Int64(AttrLatencyMS, latencyMS),
		attribute.Float64(AttrDownloadMbps, downloadMbps),
		attribute.Float64(AttrUploadMbps, uploadMbps),
	)
}

// SetValidationAttributes sets validation-decision attributes on a span.
//
// Example:
//
//	SetValidationAttributes(span, "vless", "max_uri_length", "accept")
func SetValidationAttributes(span trace.Span, scheme, rule, action string) {
	span.SetAttributes(
		attribute.String(AttrValidationScheme, scheme),
		attribute.String(AttrValidationRule, rule),
		attribute.String(AttrValidationAction, action),
	)
}

// SetBlocklistAttributes sets blocklist-check attributes on a span.
//
// Example:
//
//	SetBlocklistAttributes(span, true, "git")
func SetBlocklistAttributes(span trace.Span, hit bool, source string) {
	span.SetAttributes(
		attribute.Bool(AttrBlocklistHit, hit),
		attribute.String(AttrBlocklistSource, source),
	)
}

// SetErrorAttributes sets error-related attributes on a span.
// This also records the error using span.RecordError() and sets the span status.
//
// Example:
//
//	SetErrorAttributes(span, err, "probe_timeout")
func SetErrorAttributes(span trace.Span, err error, errorType string) {
	if err == nil {
		return
	}

	span.SetAttributes(
		attribute.Bool("error", true),
		attribute.String(AttrErrorType, errorType),
		attribute.String(AttrErrorMessage, err.Error()),
	)

	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
}

// SetDurationAttribute sets the duration attribute on a span.
// Duration is recorded in milliseconds.
//
// Example:
//
//	start := time.Now()
//	// ... do work ...
//	SetDurationAttribute(span, time.Since(start).Milliseconds())
func SetDurationAttribute(span trace.Span, durationMs int64) {
	span.SetAttributes(attribute.Int64(AttrDuration, durationMs))
}

// SetRetryAttribute sets the retry count attribute on a span.
//
// Example:
//
//	SetRetryAttribute(span, 2)
func SetRetryAttribute(span trace.Span, retryCount int) {
	span.SetAttributes(attribute.Int(AttrRetryCount, retryCount))
}

// SetRunAttribute sets the run identifier attribute on a span.
//
// Example:
//
//	SetRunAttribute(span, "run-2026-02-14T08-00-00Z")
func SetRunAttribute(span trace.Span, runID string) {
	if runID != "" {
		span.SetAttributes(attribute.String(AttrRunID, runID))
	}
}

// AddEvent adds a named event to the span with optional attributes.
// Events represent interesting points in the span's lifetime.
//
// Example:
//
//	AddEvent(span, "validation_evaluated",
//	    attribute.String("scheme", "vless"),
//	    attribute.String("action", "accept"),
//	)
func AddEvent(span trace.Span, name string, attrs ...attribute.KeyValue) {
	span.AddEvent(name, trace.WithAttributes(attrs...))
}

// AddEventWithTimestamp adds a named event with a specific timestamp,
// given in Unix nanoseconds.
//
// Example:
//
//	AddEventWithTimestamp(span, "blocklist_miss", time.Now().UnixNano(),
//	    attribute.String("source", "git"),
//	)
func AddEventWithTimestamp(span trace.Span, name string, timestamp int64, attrs ...attribute.KeyValue) {
	span.AddEvent(name, trace.WithAttributes(attrs...), trace.WithTimestamp(time.Unix(0, timestamp)))
}

// RecordException records an exception event on the span.
// This is a convenience wrapper around span.RecordError that ignores nil errors.
//
// Example:
//
//	RecordException(span, err)
func RecordException(span trace.Span, err error) {
	if err != nil {
		span.RecordError(err)
	}
}

// AttributeBuilder provides a fluent interface for building span attributes.
type AttributeBuilder struct {
	attrs []attribute.KeyValue
}

// NewAttributeBuilder creates a new attribute builder.
func NewAttributeBuilder() *AttributeBuilder {
	return &AttributeBuilder{
		attrs: make([]attribute.KeyValue, 0, 10),
	}
}

// WithDescriptor adds protocol and host attributes.
func (ab *AttributeBuilder) WithDescriptor(protocol, host string) *AttributeBuilder {
	ab.attrs = append(ab.attrs,
		attribute.String(AttrProtocol, protocol),
		attribute.String(AttrHost, host),
	)
	return ab
}

// WithJob adds job-related attributes.
func (ab *AttributeBuilder) WithJob(jobID, workerID string) *AttributeBuilder {
	ab.attrs = append(ab.attrs, attribute.String(AttrJobID, jobID))
	if workerID != "" {
		ab.attrs = append(ab.attrs, attribute.String(AttrWorkerID, workerID))
	}
	return ab
}

// WithThroughput adds latency and bandwidth attributes.
func (ab *AttributeBuilder) WithThroughput(latencyMS int64, downloadMbps, uploadMbps float64) *AttributeBuilder {
	ab.attrs = append(ab.attrs,
		attribute.Int64(AttrLatencyMS, latencyMS),
		attribute.Float64(AttrDownloadMbps, downloadMbps),
		attribute.Float64(AttrUploadMbps, uploadMbps),
	)
	return ab
}

// WithValidation adds validation-decision attributes.
func (ab *AttributeBuilder) WithValidation(scheme, rule, action string) *AttributeBuilder {
	ab.attrs = append(ab.attrs,
		attribute.String(AttrValidationScheme, scheme),
		attribute.String(AttrValidationRule, rule),
		attribute.String(AttrValidationAction, action),
	)
	return ab
}

// WithBlocklist adds blocklist-check attributes.
func (ab *AttributeBuilder) WithBlocklist(hit bool, source string) *AttributeBuilder {
	ab.attrs = append(ab.attrs,
		attribute.Bool(AttrBlocklistHit, hit),
		attribute.String(AttrBlocklistSource, source),
	)
	return ab
}

// WithCustom adds a custom attribute.
func (ab *AttributeBuilder) WithCustom(key string, value interface{}) *AttributeBuilder {
	switch v := value.(type) {
	case string:
		ab.attrs = append(ab.attrs, attribute.String(key, v))
	case int:
		ab.attrs = append(ab.attrs, attribute.Int(key, v))
	case int64:
		ab.attrs = append(ab.attrs, attribute.Int64(key, v))
	case float64:
		ab.attrs = append(ab.attrs, attribute.Float64(key, v))
	case bool:
		ab.attrs = append(ab.attrs, attribute.Bool(key, v))
	default:
		ab.attrs = append(ab.attrs, attribute.String(key, fmt.Sprintf("%v", v)))
	}
	return ab
}

// Build returns the built attributes as a trace.SpanStartOption.
func (ab *AttributeBuilder) Build() trace.SpanStartOption {
	return trace.WithAttributes(ab.attrs...)
}

// Apply applies the attributes to a span.
func (ab *AttributeBuilder) Apply(span trace.Span) {
	span.SetAttributes(ab.attrs...)
}

// Attributes returns the raw attribute slice.
func (ab *AttributeBuilder) Attributes() []attribute.KeyValue {
	return ab.attrs
}
