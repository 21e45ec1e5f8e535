// Package logging provides structured logging with proxy-credential redaction.
//
// # Overview
//
// The logging package wraps Go's standard log/slog package to provide:
//   - Structured logging with JSON, text, and console formats
//   - Automatic redaction of client UUIDs, passwords, and pre-shared keys
//   - Context-aware logging with request IDs and run metadata
//   - Synchronous writes to the configured writer
//   - Configurable log levels (debug, info, warn, error)
//
// # Usage
//
//	// Create a logger
//	logger := logging.New(logging.Config{
//	    Level:     "info",
//	    Format:    "json",
//	    RedactSecrets: true,
//	})
//
//	// Log structured data
//	logger.Info("descriptor tested",
//	    "request_id", "req-123",
//	    "uuid", "4a1f9e20-6b3d-4c1a-9f2e-8d7c6b5a4f3e",  // Automatically redacted
//	    "duration_ms", 1234,
//	)
//
//	// Create context-aware logger
//	ctx := context.WithValue(ctx, logging.RequestIDKey, "req-123")
//	ctxLogger := logger.WithContext(ctx)
//	ctxLogger.Info("processing")  // Includes request_id automatically
//
// # Credential Redaction
//
// Proxy credentials are automatically redacted from log fields when
// RedactSecrets is enabled:
//
//   - Client UUIDs: 4a1f9e20-6b3d-4c1a-9f2e-8d7c6b5a4f3e → ********-****-****-****-************
//   - vmess:// blobs: vmess://eyJhZGQiOi... → vmess://***
//   - Reality/PSK params: pbk=abc123 → pbk=***
//   - IP addresses: 192.168.1.100 → 192.*.*.*
//   - Bearer tokens: Bearer abc123 → Bearer ***
//
// # Performance
//
// Each record is written to the configured writer in the calling
// goroutine, so a slow writer slows the caller:
//   - <1µs when log level filters out the message
//   - No records are queued or dropped; DroppedCount stays zero
package logging
