// Package instrumentation provides OpenTelemetry instrumentation for the
// zoomscribe retrieval and download engine.
//
// This package enables production-grade observability through:
//   - OpenTelemetry metrics for Zoom API requests, token refreshes, and downloads
//   - Distributed tracing for listing flows and file downloads
//   - Prometheus metrics export via /metrics endpoint in serve mode
//   - OTLP export support for modern observability platforms
//   - An audit logger for per-file download events
//
// # Metrics
//
// The package exposes the following metric categories:
//
// Server/HTTP Metrics (serve mode):
//   - http_requests_total: Counter of HTTP requests by method, path, and status
//   - http_request_duration_seconds: Histogram of HTTP request durations
//
// Zoom API Metrics:
//   - zoom_api_requests_total: Counter of API requests by method, masked path, status
//   - zoom_api_request_duration_seconds: Histogram of API request durations
//
// OAuth Metrics:
//   - oauth_token_refresh_total: Counter of token refresh attempts by result
//
// Download Metrics:
//   - recording_downloads_total: Counter of downloads by file type and outcome
//   - recording_download_bytes_total: Counter of bytes written by file type
//   - recording_download_duration_seconds: Histogram of download durations
//   - active_downloads: Gauge of in-flight downloads
//
// # Tracing
//
// Distributed tracing spans are created for:
//   - Zoom API calls (zoom.<operation>)
//   - Recording file downloads (download.<file_type>)
//
// Span attributes never carry raw identifiers: meeting UUIDs are hashed and
// download URLs are omitted entirely.
//
// # Configuration
//
// Instrumentation can be configured via environment variables:
//   - INSTRUMENTATION_ENABLED: Enable/disable instrumentation (default: true)
//   - METRICS_EXPORTER: Metrics exporter type (prometheus, otlp, stdout, default: prometheus)
//   - TRACING_EXPORTER: Tracing exporter type (otlp, stdout, none, default: none)
//   - OTEL_EXPORTER_OTLP_ENDPOINT: OTLP endpoint for traces/metrics
//   - OTEL_TRACES_SAMPLER_ARG: Sampling rate (0.0 to 1.0, default: 0.1)
//   - OTEL_SERVICE_NAME: Service name (default: zoomscribe)
//   - AUDIT_LOGGING_ENABLED: Enable/disable the download audit log (default: true)
//   - AUDIT_LOGGING_INCLUDE_PII: Include full host emails in audit logs (default: false)
//
// # Example Usage
//
//	// Initialize instrumentation
//	provider, err := instrumentation.NewProvider(ctx, instrumentation.Config{
//		ServiceName:    "zoomscribe",
//		ServiceVersion: "0.1.0",
//		Enabled:        true,
//	})
//	if err != nil {
//		return err
//	}
//	defer provider.Shutdown(ctx)
//
//	// Get metrics recorder
//	recorder := provider.Metrics()
//
//	// Record a Zoom API request
//	recorder.RecordAPIRequest(ctx, "GET", "users/:id/recordings", 200, time.Since(start))
//
//	// Record a completed download
//	recorder.RecordDownload(ctx, "video", instrumentation.OutcomeSucceeded, written, time.Since(start))
package instrumentation
