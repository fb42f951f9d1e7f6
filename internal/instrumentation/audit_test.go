package instrumentation

import (
	"bytes"
	"errors"
	"log/slog"
	"strings"
	"testing"
)

// Test constants to reduce string repetition and satisfy goconst
const (
	testHostEmail   = "jane@example.com"
	testMeetingUUID = "aZ3+xY9/Qw=="
	testRunID       = "8b7df1a2-1111-2222-3333-444455556666"
	testFileID      = "f-001"
	testDestination = "jane_example.com/2026/08/20/standup-abc/video-2026-08-20T10-00-00.mp4"
)

func TestDownloadEvent_NewAndComplete(t *testing.T) {
	de := NewDownloadEvent(testRunID)

	// Verify initial state
	if de.RunID != testRunID {
		t.Errorf("RunID = %q, want %q", de.RunID, testRunID)
	}
	if de.StartTime.IsZero() {
		t.Error("StartTime should not be zero")
	}

	// Complete the download - duration should be calculated from StartTime
	de.Complete(OutcomeSucceeded, 1024, nil)

	if de.Outcome != OutcomeSucceeded {
		t.Errorf("Outcome = %q, want %q", de.Outcome, OutcomeSucceeded)
	}
	if de.Bytes != 1024 {
		t.Errorf("Bytes = %d, want 1024", de.Bytes)
	}
	// Duration is calculated from StartTime, so it should be >= 0
	// We don't check for > 0 as the test may complete instantly
	if de.Duration < 0 {
		t.Error("Duration should not be negative")
	}
	if de.Error != "" {
		t.Errorf("Error should be empty, got %q", de.Error)
	}
}

func TestDownloadEvent_CompleteWithError(t *testing.T) {
	de := NewDownloadEvent(testRunID)

	de.Complete(OutcomeFailed, 0, errors.New("host not allowed"))

	if de.Outcome != OutcomeFailed {
		t.Errorf("Outcome = %q, want %q", de.Outcome, OutcomeFailed)
	}
	if de.Error != "host not allowed" {
		t.Errorf("Error = %q, want %q", de.Error, "host not allowed")
	}
}

func TestDownloadEvent_Builders(t *testing.T) {
	de := NewDownloadEvent(testRunID).
		WithRecording(testHostEmail, testMeetingUUID).
		WithFile(testFileID, FileTypeVideo).
		WithDestination(testDestination)

	if de.HostEmail != testHostEmail {
		t.Errorf("HostEmail = %q, want %q", de.HostEmail, testHostEmail)
	}
	if de.MeetingUUID != testMeetingUUID {
		t.Errorf("MeetingUUID = %q, want %q", de.MeetingUUID, testMeetingUUID)
	}
	if de.FileID != testFileID {
		t.Errorf("FileID = %q, want %q", de.FileID, testFileID)
	}
	if de.FileType != FileTypeVideo {
		t.Errorf("FileType = %q, want %q", de.FileType, FileTypeVideo)
	}
	if de.Destination != testDestination {
		t.Errorf("Destination = %q, want %q", de.Destination, testDestination)
	}
}

func TestDownloadEvent_LogAttrs_HashesIdentifiers(t *testing.T) {
	de := NewDownloadEvent(testRunID).
		WithRecording(testHostEmail, testMeetingUUID).
		WithFile(testFileID, FileTypeVideo)
	de.Complete(OutcomeSucceeded, 100, nil)

	attrs := de.LogAttrs()

	for _, attr := range attrs {
		val := attr.Value.String()
		if strings.Contains(val, testHostEmail) {
			t.Errorf("LogAttrs leaked host email in %s=%q", attr.Key, val)
		}
		if strings.Contains(val, testMeetingUUID) {
			t.Errorf("LogAttrs leaked meeting UUID in %s=%q", attr.Key, val)
		}
	}
}

func TestDownloadEvent_LogAuditAttrs_IncludesPII(t *testing.T) {
	de := NewDownloadEvent(testRunID).
		WithRecording(testHostEmail, testMeetingUUID).
		WithFile(testFileID, FileTypeVideo)
	de.Complete(OutcomeSucceeded, 100, nil)

	attrs := de.LogAuditAttrs()

	var sawHost, sawMeeting bool
	for _, attr := range attrs {
		switch attr.Key {
		case "host":
			sawHost = attr.Value.String() == testHostEmail
		case "meeting_uuid":
			sawMeeting = attr.Value.String() == testMeetingUUID
		}
	}
	if !sawHost {
		t.Error("LogAuditAttrs should include full host email")
	}
	if !sawMeeting {
		t.Error("LogAuditAttrs should include full meeting UUID")
	}
}

func newBufferLogger() (*slog.Logger, *bytes.Buffer) {
	var buf bytes.Buffer
	return slog.New(slog.NewTextHandler(&buf, nil)), &buf
}

func TestAuditLogger_LogDownload(t *testing.T) {
	logger, buf := newBufferLogger()
	al := NewAuditLogger(logger)

	de := NewDownloadEvent(testRunID).
		WithRecording(testHostEmail, testMeetingUUID).
		WithFile(testFileID, FileTypeVideo)
	de.Complete(OutcomeSucceeded, 2048, nil)

	al.LogDownload(de)

	out := buf.String()
	if !strings.Contains(out, "download_completed") {
		t.Errorf("expected download_completed log, got %q", out)
	}
	if strings.Contains(out, testHostEmail) {
		t.Errorf("default audit logger leaked host email: %q", out)
	}
}

func TestAuditLogger_LogDownload_Failed(t *testing.T) {
	logger, buf := newBufferLogger()
	al := NewAuditLogger(logger)

	de := NewDownloadEvent(testRunID).
		WithRecording(testHostEmail, testMeetingUUID).
		WithFile(testFileID, FileTypeAudio)
	de.Complete(OutcomeFailed, 0, errors.New("redirect refused"))

	al.LogDownload(de)

	out := buf.String()
	if !strings.Contains(out, "download_failed") {
		t.Errorf("expected download_failed log, got %q", out)
	}
}

func TestAuditLogger_IncludePII(t *testing.T) {
	logger, buf := newBufferLogger()
	al := NewAuditLoggerWithConfig(logger, AuditLoggingConfig{Enabled: true, IncludePII: true})

	de := NewDownloadEvent(testRunID).
		WithRecording(testHostEmail, testMeetingUUID).
		WithFile(testFileID, FileTypeVideo)
	de.Complete(OutcomeSucceeded, 100, nil)

	al.LogDownload(de)

	if !strings.Contains(buf.String(), testHostEmail) {
		t.Error("IncludePII audit logger should log full host email")
	}
}

func TestAuditLogger_Disabled(t *testing.T) {
	logger, buf := newBufferLogger()
	al := NewAuditLoggerWithConfig(logger, AuditLoggingConfig{Enabled: false})

	de := NewDownloadEvent(testRunID).
		WithFile(testFileID, FileTypeVideo)
	de.Complete(OutcomeSucceeded, 100, nil)

	al.LogDownload(de)

	if buf.Len() != 0 {
		t.Errorf("disabled audit logger should emit nothing, got %q", buf.String())
	}
}
