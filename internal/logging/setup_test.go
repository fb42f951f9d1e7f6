package logging

import (
	"bytes"
	"log/slog"
	"strings"
	"testing"
)

func TestSetup_JSONFormat(t *testing.T) {
	var buf bytes.Buffer

	logger, err := Setup(&buf, "info", FormatJSON)
	if err != nil {
		t.Fatalf("Setup returned error: %v", err)
	}

	logger.Info("hello", "key", "value")

	out := buf.String()
	if !strings.Contains(out, `"msg":"hello"`) {
		t.Errorf("expected JSON output, got %q", out)
	}
}

func TestSetup_TextFormat(t *testing.T) {
	var buf bytes.Buffer

	logger, err := Setup(&buf, "info", FormatText)
	if err != nil {
		t.Fatalf("Setup returned error: %v", err)
	}

	logger.Info("hello", "key", "value")

	out := buf.String()
	if !strings.Contains(out, "msg=hello") {
		t.Errorf("expected text output, got %q", out)
	}
}

func TestSetup_AutoFallsBackToJSON(t *testing.T) {
	// A bytes.Buffer is not a terminal, so auto selects JSON
	var buf bytes.Buffer

	logger, err := Setup(&buf, "info", FormatAuto)
	if err != nil {
		t.Fatalf("Setup returned error: %v", err)
	}

	logger.Info("hello")

	if !strings.Contains(buf.String(), `"msg":"hello"`) {
		t.Errorf("auto format with non-terminal writer should emit JSON, got %q", buf.String())
	}
}

func TestSetup_LevelFiltering(t *testing.T) {
	var buf bytes.Buffer

	logger, err := Setup(&buf, "warn", FormatJSON)
	if err != nil {
		t.Fatalf("Setup returned error: %v", err)
	}

	logger.Info("dropped")
	logger.Warn("kept")

	out := buf.String()
	if strings.Contains(out, "dropped") {
		t.Errorf("info log should be filtered at warn level: %q", out)
	}
	if !strings.Contains(out, "kept") {
		t.Errorf("warn log should pass at warn level: %q", out)
	}
}

func TestSetup_InvalidInputs(t *testing.T) {
	var buf bytes.Buffer

	if _, err := Setup(&buf, "verbose", FormatJSON); err == nil {
		t.Error("expected error for unknown level")
	}
	if _, err := Setup(&buf, "info", "xml"); err == nil {
		t.Error("expected error for unknown format")
	}
}

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in   string
		want slog.Level
	}{
		{"debug", slog.LevelDebug},
		{"info", slog.LevelInfo},
		{"", slog.LevelInfo},
		{"warn", slog.LevelWarn},
		{"warning", slog.LevelWarn},
		{"ERROR", slog.LevelError},
	}

	for _, tt := range tests {
		got, err := parseLevel(tt.in)
		if err != nil {
			t.Errorf("parseLevel(%q) returned error: %v", tt.in, err)
			continue
		}
		if got != tt.want {
			t.Errorf("parseLevel(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}
