package instrumentation

import "strings"

// Cardinality management helpers for metrics.
// These functions reduce high-cardinality label values to prevent metrics explosion.
//
// # Warning
//
// High cardinality in metrics can cause:
// - Increased memory usage in Prometheus/metrics backends
// - Slower query performance
// - Higher storage costs
//
// Zoom reports free-form file type strings and arbitrary host emails.
// Always pass identifiers through these helpers before using them as labels.

// Normalized file type label values.
const (
	FileTypeVideo      = "video"
	FileTypeAudio      = "audio"
	FileTypeTranscript = "transcript"
	FileTypeChat       = "chat"
	FileTypeOther      = "other"
)

// SafeFileType clamps a file type string to the known label set.
// Unknown or empty values collapse to "other" so that a misbehaving API
// response cannot mint new label values.
func SafeFileType(fileType string) string {
	switch strings.ToLower(fileType) {
	case FileTypeVideo, FileTypeAudio, FileTypeTranscript, FileTypeChat:
		return strings.ToLower(fileType)
	default:
		return FileTypeOther
	}
}

// ExtractHostDomain extracts the domain part from a host email address.
// This reduces cardinality by using the domain instead of the full email.
//
// Example:
//
//	ExtractHostDomain("jane@example.com")  // "example.com"
//	ExtractHostDomain("invalid")           // "unknown"
//	ExtractHostDomain("")                  // "unknown"
func ExtractHostDomain(email string) string {
	if email == "" {
		return "unknown"
	}

	parts := strings.Split(email, "@")
	if len(parts) == 2 && parts[1] != "" {
		return parts[1]
	}

	return "unknown"
}

// Common operation types for Zoom API metrics and spans.
const (
	OperationList      = "list"
	OperationGet       = "get"
	OperationInstances = "instances"
	OperationDownload  = "download"
)
