package instrumentation

import (
	"context"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel/trace"

	"github.com/zoomscribe/zoomscribe/internal/logging"
)

// DownloadEvent captures all information about a single recording file
// download for audit logging. This provides an audit trail of which
// recordings were fetched, when, and where they were written.
//
// # Privacy Considerations
//
// The HostEmail and MeetingUUID fields contain identifying data. When
// logging, consider:
//   - Using LogAttrs() which hashes both before emitting
//   - Only logging full identifiers in audit-specific log streams
//   - Ensuring audit logs have appropriate access controls
type DownloadEvent struct {
	// Run identifier shared by all downloads of one invocation
	RunID string

	// Recording identity
	HostEmail   string
	MeetingUUID string
	FileID      string
	FileType    string

	// Local destination path relative to the download root
	Destination string

	// Execution details
	StartTime time.Time
	Duration  time.Duration
	Bytes     int64
	Resumed   bool
	Outcome   string
	Error     string

	// Tracing context
	TraceID string
	SpanID  string
}

// LogAttrs returns slog attributes for structured logging with identifying
// data hashed. This is the cardinality-safe form suitable for general
// operational log streams. For full audit logging, use LogAuditAttrs.
func (de *DownloadEvent) LogAttrs() []slog.Attr {
	attrs := []slog.Attr{
		slog.String("run_id", de.RunID),
		slog.String("host_hash", logging.AnonymizeIdentifier(de.HostEmail)),
		slog.String("meeting", logging.AnonymizeIdentifier(de.MeetingUUID)),
		slog.String("file_type", de.FileType),
		slog.String("outcome", de.Outcome),
		slog.Int64("bytes", de.Bytes),
		slog.Duration("duration", de.Duration),
	}

	// Add optional fields only if present
	if de.Destination != "" {
		attrs = append(attrs, slog.String("destination", de.Destination))
	}
	if de.Resumed {
		attrs = append(attrs, slog.Bool("resumed", true))
	}
	if de.TraceID != "" {
		attrs = append(attrs, slog.String("trace_id", de.TraceID))
	}
	if de.Error != "" {
		attrs = append(attrs, slog.String("error", de.Error))
	}

	return attrs
}

// LogAuditAttrs returns slog attributes for full audit logging.
// This includes the full host email and meeting UUID for compliance purposes.
//
// # Security Warning
//
// This method includes PII (full email and meeting identifiers). Ensure
// audit logs are:
//   - Stored securely with appropriate access controls
//   - Not exposed to general monitoring dashboards
//   - Retained according to compliance requirements
func (de *DownloadEvent) LogAuditAttrs() []slog.Attr {
	attrs := []slog.Attr{
		slog.String("run_id", de.RunID),
		slog.String("host", de.HostEmail),
		slog.String("meeting_uuid", de.MeetingUUID),
		slog.String("file_id", de.FileID),
		slog.String("file_type", de.FileType),
		slog.String("outcome", de.Outcome),
		slog.Int64("bytes", de.Bytes),
		slog.Duration("duration", de.Duration),
	}

	if de.Destination != "" {
		attrs = append(attrs, slog.String("destination", de.Destination))
	}
	if de.Resumed {
		attrs = append(attrs, slog.Bool("resumed", true))
	}
	if de.TraceID != "" {
		attrs = append(attrs, slog.String("trace_id", de.TraceID))
	}
	if de.SpanID != "" {
		attrs = append(attrs, slog.String("span_id", de.SpanID))
	}
	if de.Error != "" {
		attrs = append(attrs, slog.String("error", de.Error))
	}

	return attrs
}

// NewDownloadEvent creates a new DownloadEvent with timing started.
// Call Complete() when the download finishes.
func NewDownloadEvent(runID string) *DownloadEvent {
	return &DownloadEvent{
		RunID:     runID,
		StartTime: time.Now(),
	}
}

// WithRecording sets the recording identity fields.
func (de *DownloadEvent) WithRecording(hostEmail, meetingUUID string) *DownloadEvent {
	de.HostEmail = hostEmail
	de.MeetingUUID = meetingUUID
	return de
}

// WithFile sets the recording file identity fields.
func (de *DownloadEvent) WithFile(fileID, fileType string) *DownloadEvent {
	de.FileID = fileID
	de.FileType = fileType
	return de
}

// WithDestination sets the local destination path.
func (de *DownloadEvent) WithDestination(path string) *DownloadEvent {
	de.Destination = path
	return de
}

// WithSpanContext extracts trace context from the current span.
func (de *DownloadEvent) WithSpanContext(ctx context.Context) *DownloadEvent {
	span := trace.SpanFromContext(ctx)
	if span.SpanContext().IsValid() {
		de.TraceID = span.SpanContext().TraceID().String()
		de.SpanID = span.SpanContext().SpanID().String()
	}
	return de
}

// Complete marks the download as finished and calculates duration.
// Returns the same DownloadEvent for method chaining.
func (de *DownloadEvent) Complete(outcome string, bytes int64, err error) *DownloadEvent {
	de.Duration = time.Since(de.StartTime)
	de.Outcome = outcome
	de.Bytes = bytes
	if err != nil {
		de.Error = err.Error()
	}
	return de
}

// AuditLogger provides structured audit logging for recording downloads.
// It wraps slog.Logger with convenience methods for logging download events.
type AuditLogger struct {
	logger     *slog.Logger
	includePII bool
	enabled    bool
}

// NewAuditLogger creates a new AuditLogger with the given slog.Logger.
// By default, PII is not included in logs (hashed identifiers are used instead).
func NewAuditLogger(logger *slog.Logger) *AuditLogger {
	if logger == nil {
		logger = slog.Default()
	}
	return &AuditLogger{
		logger:     logger,
		includePII: false,
		enabled:    true,
	}
}

// NewAuditLoggerWithConfig creates a new AuditLogger with the given configuration.
func NewAuditLoggerWithConfig(logger *slog.Logger, config AuditLoggingConfig) *AuditLogger {
	if logger == nil {
		logger = slog.Default()
	}
	return &AuditLogger{
		logger:     logger,
		includePII: config.IncludePII,
		enabled:    config.Enabled,
	}
}

// SetIncludePII sets whether to include full identifiers in audit logs.
func (al *AuditLogger) SetIncludePII(include bool) {
	al.includePII = include
}

// SetEnabled sets whether audit logging is enabled.
func (al *AuditLogger) SetEnabled(enabled bool) {
	al.enabled = enabled
}

// LogDownload logs a download event. If the logger is configured with
// IncludePII, full host emails and meeting UUIDs are logged; otherwise
// hashed identifiers are used.
func (al *AuditLogger) LogDownload(de *DownloadEvent) {
	if !al.enabled {
		return
	}

	var attrs []slog.Attr
	if al.includePII {
		attrs = de.LogAuditAttrs()
	} else {
		attrs = de.LogAttrs()
	}

	args := make([]any, len(attrs))
	for i, attr := range attrs {
		args[i] = attr
	}

	switch de.Outcome {
	case OutcomeFailed:
		al.logger.Warn("download_failed", args...)
	default:
		al.logger.Info("download_completed", args...)
	}
}
