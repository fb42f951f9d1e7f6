package instrumentation

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// Metric attribute keys - using constants for consistency and DRY
const (
	// Common attributes (reused across metrics)
	attrMethod   = "method"
	attrPath     = "path"
	attrStatus   = "status"
	attrResult   = "result"
	attrFileType = "file_type"
	attrOutcome  = "outcome"
)

// Metrics provides methods for recording observability metrics.
type Metrics struct {
	// HTTP server metrics (serve mode)
	httpRequestsTotal   metric.Int64Counter
	httpRequestDuration metric.Float64Histogram

	// Zoom API metrics
	zoomAPIRequestsTotal   metric.Int64Counter
	zoomAPIRequestDuration metric.Float64Histogram

	// OAuth metrics
	oauthTokenRefreshTotal metric.Int64Counter

	// Download metrics
	downloadsTotal     metric.Int64Counter
	downloadBytesTotal metric.Int64Counter
	downloadDuration   metric.Float64Histogram
	activeDownloads    metric.Int64UpDownCounter
}

// NewMetrics creates a new Metrics instance with all metrics initialized.
func NewMetrics(meter metric.Meter) (*Metrics, error) {
	m := &Metrics{}

	var err error

	// HTTP Metrics
	m.httpRequestsTotal, err = meter.Int64Counter(
		"http_requests_total",
		metric.WithDescription("Total number of HTTP requests"),
		metric.WithUnit("{request}"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create http_requests_total counter: %w", err)
	}

	m.httpRequestDuration, err = meter.Float64Histogram(
		"http_request_duration_seconds",
		metric.WithDescription("HTTP request duration in seconds"),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(0.001, 0.01, 0.1, 0.5, 1.0, 2.5, 5.0, 10.0),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create http_request_duration_seconds histogram: %w", err)
	}

	// Zoom API Metrics
	m.zoomAPIRequestsTotal, err = meter.Int64Counter(
		"zoom_api_requests_total",
		metric.WithDescription("Total number of Zoom API requests"),
		metric.WithUnit("{request}"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create zoom_api_requests_total counter: %w", err)
	}

	m.zoomAPIRequestDuration, err = meter.Float64Histogram(
		"zoom_api_request_duration_seconds",
		metric.WithDescription("Zoom API request duration in seconds"),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(0.01, 0.05, 0.1, 0.25, 0.5, 1.0, 2.5, 5.0, 10.0, 30.0),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create zoom_api_request_duration_seconds histogram: %w", err)
	}

	// OAuth Metrics
	m.oauthTokenRefreshTotal, err = meter.Int64Counter(
		"oauth_token_refresh_total",
		metric.WithDescription("Total number of OAuth token refresh attempts"),
		metric.WithUnit("{attempt}"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create oauth_token_refresh_total counter: %w", err)
	}

	// Download Metrics
	m.downloadsTotal, err = meter.Int64Counter(
		"recording_downloads_total",
		metric.WithDescription("Total number of recording file downloads by outcome"),
		metric.WithUnit("{download}"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create recording_downloads_total counter: %w", err)
	}

	m.downloadBytesTotal, err = meter.Int64Counter(
		"recording_download_bytes_total",
		metric.WithDescription("Total number of bytes written by recording downloads"),
		metric.WithUnit("By"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create recording_download_bytes_total counter: %w", err)
	}

	m.downloadDuration, err = meter.Float64Histogram(
		"recording_download_duration_seconds",
		metric.WithDescription("Recording file download duration in seconds"),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(0.1, 0.5, 1.0, 5.0, 15.0, 30.0, 60.0, 120.0, 300.0, 600.0),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create recording_download_duration_seconds histogram: %w", err)
	}

	m.activeDownloads, err = meter.Int64UpDownCounter(
		"active_downloads",
		metric.WithDescription("Number of downloads currently in flight"),
		metric.WithUnit("{download}"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create active_downloads gauge: %w", err)
	}

	return m, nil
}

// RecordHTTPRequest records an HTTP request with method, path, status code, and duration.
func (m *Metrics) RecordHTTPRequest(ctx context.Context, method, path string, statusCode int, duration time.Duration) {
	if m.httpRequestsTotal == nil || m.httpRequestDuration == nil {
		return // Instrumentation not initialized
	}

	attrs := []attribute.KeyValue{
		attribute.String(attrMethod, method),
		attribute.String(attrPath, path),
		attribute.String(attrStatus, strconv.Itoa(statusCode)),
	}

	m.httpRequestsTotal.Add(ctx, 1, metric.WithAttributes(attrs...))
	m.httpRequestDuration.Record(ctx, duration.Seconds(), metric.WithAttributes(attrs...))
}

// RecordAPIRequest records a Zoom API request with method, masked path,
// response status code, and duration. The path must already be masked of
// identifiers by the caller.
func (m *Metrics) RecordAPIRequest(ctx context.Context, method, path string, statusCode int, duration time.Duration) {
	if m.zoomAPIRequestsTotal == nil || m.zoomAPIRequestDuration == nil {
		return // Instrumentation not initialized
	}

	attrs := []attribute.KeyValue{
		attribute.String(attrMethod, method),
		attribute.String(attrPath, path),
		attribute.String(attrStatus, strconv.Itoa(statusCode)),
	}

	m.zoomAPIRequestsTotal.Add(ctx, 1, metric.WithAttributes(attrs...))
	m.zoomAPIRequestDuration.Record(ctx, duration.Seconds(), metric.WithAttributes(attrs...))
}

// RecordTokenRefresh records an OAuth token refresh attempt with result.
// Result should be one of: "success", "error"
func (m *Metrics) RecordTokenRefresh(ctx context.Context, result string) {
	if m.oauthTokenRefreshTotal == nil {
		return // Instrumentation not initialized
	}

	attrs := []attribute.KeyValue{
		attribute.String(attrResult, result),
	}

	m.oauthTokenRefreshTotal.Add(ctx, 1, metric.WithAttributes(attrs...))
}

// RecordDownload records a completed download attempt.
//
// Parameters:
//   - fileType: normalized recording file type (video, audio, transcript, chat, other)
//   - outcome: terminal state of the download (succeeded, skipped, failed)
//   - bytes: number of bytes written to disk, 0 for skipped or failed downloads
//   - duration: time taken for the download
func (m *Metrics) RecordDownload(ctx context.Context, fileType, outcome string, bytes int64, duration time.Duration) {
	if m.downloadsTotal == nil || m.downloadDuration == nil {
		return // Instrumentation not initialized
	}

	label := SafeFileType(fileType)
	attrs := []attribute.KeyValue{
		attribute.String(attrFileType, label),
		attribute.String(attrOutcome, outcome),
	}

	m.downloadsTotal.Add(ctx, 1, metric.WithAttributes(attrs...))
	m.downloadDuration.Record(ctx, duration.Seconds(), metric.WithAttributes(attrs...))
	if bytes > 0 && m.downloadBytesTotal != nil {
		m.downloadBytesTotal.Add(ctx, bytes, metric.WithAttributes(attribute.String(attrFileType, label)))
	}
}

// IncrementActiveDownloads increments the in-flight downloads gauge.
func (m *Metrics) IncrementActiveDownloads(ctx context.Context) {
	if m.activeDownloads == nil {
		return // Instrumentation not initialized
	}

	m.activeDownloads.Add(ctx, 1)
}

// DecrementActiveDownloads decrements the in-flight downloads gauge.
func (m *Metrics) DecrementActiveDownloads(ctx context.Context) {
	if m.activeDownloads == nil {
		return // Instrumentation not initialized
	}

	m.activeDownloads.Add(ctx, -1)
}
