// Package logging provides structured logging utilities for zoomscribe.
//
// This package centralizes logging patterns to ensure consistent, structured logging
// throughout the codebase using the standard library's slog package.
//
// # Key Features
//
//   - Structured logging with slog
//   - PII redaction (identifier hashing, URL query stripping)
//   - Consistent attribute naming across the codebase
//   - Logger adapter interface for flexibility
//
// # Usage Patterns
//
// Create a logger with standard attributes:
//
//	logger := logging.WithOperation(slog.Default(), "recordings.list")
//	logger.Info("listing recordings",
//	    logging.Status("success"))
//
// Redact sensitive data before logging:
//
//	logger.Info("download complete",
//	    logging.HostHash(rec.HostEmail),
//	    slog.String("url", logging.RedactURL(file.DownloadURL)))
//
// # Security Considerations
//
// This package is designed with security in mind:
//   - Host emails and meeting UUIDs are hashed to prevent PII leakage while
//     still allowing correlation
//   - Download URLs are logged without query strings, which can embed access
//     tokens
//   - Bearer tokens are never logged directly
package logging
