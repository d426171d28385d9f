package errors

import (
	"bytes"
	"encoding/json"
	stderrors "errors"
	"fmt"
	"log/slog"
	"testing"
)

func TestAppErrorMessage(t *testing.T) {
	cause := fmt.Errorf("boom")
	err := NewAIError(ErrCodeAIServiceFailed, "generate failed", cause)

	if got, want := err.Error(), "AI_SERVICE_FAILED: generate failed (caused by: boom)"; got != want {
		t.Errorf("Error() = %q, want %q", got, want)
	}
	if !stderrors.Is(err, cause) {
		t.Error("expected errors.Is to find the cause")
	}

	plain := NewValidationError(ErrCodeMissingFile, "file is required", nil)
	if got, want := plain.Error(), "MISSING_FILE: file is required"; got != want {
		t.Errorf("Error() = %q, want %q", got, want)
	}
}

func TestCodeOfWrapped(t *testing.T) {
	base := NewUpstreamError(ErrCodeUpstreamQuotaExceeded, "quota", nil)
	wrapped := fmt.Errorf("analyze: %w", base)

	if got := CodeOf(wrapped); got != ErrCodeUpstreamQuotaExceeded {
		t.Errorf("CodeOf() = %q, want %q", got, ErrCodeUpstreamQuotaExceeded)
	}
	if got := CodeOf(fmt.Errorf("plain")); got != "" {
		t.Errorf("CodeOf(plain) = %q, want empty", got)
	}
	if got := CodeOf(nil); got != "" {
		t.Errorf("CodeOf(nil) = %q, want empty", got)
	}
}

func TestWithContext(t *testing.T) {
	err := NewConfigError(ErrCodeMissingAPIKey, "missing", nil).
		WithContext("provider", "gemini").
		WithContext("model", "gemini-2.5-flash")

	if len(err.Context) != 2 {
		t.Fatalf("expected 2 context entries, got %d", len(err.Context))
	}
	if err.Context["provider"] != "gemini" {
		t.Errorf("unexpected provider context: %v", err.Context["provider"])
	}
}

func TestParseLevel(t *testing.T) {
	tests := []struct {
		input   string
		want    slog.Level
		wantErr bool
	}{
		{"debug", slog.LevelDebug, false},
		{"info", slog.LevelInfo, false},
		{"warn", slog.LevelWarn, false},
		{"error", slog.LevelError, false},
		{"verbose", slog.LevelInfo, true},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got, err := ParseLevel(tt.input)
			if (err != nil) != tt.wantErr {
				t.Fatalf("ParseLevel(%q) error = %v, wantErr %v", tt.input, err, tt.wantErr)
			}
			if got != tt.want {
				t.Errorf("ParseLevel(%q) = %v, want %v", tt.input, got, tt.want)
			}
		})
	}
}

func TestLogErrorFlattensAppError(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLoggerWithWriter(&buf, slog.LevelDebug)

	err := NewUpstreamError(ErrCodeUpstreamUnavailable, "model not found", fmt.Errorf("404")).
		WithContext("model", "gemini-2.5-flash")
	logger.LogError(fmt.Errorf("wrapped: %w", err), "analysis failed", "request_id", "abc")

	var entry map[string]any
	if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
		t.Fatalf("log line is not JSON: %v (%s)", err, buf.String())
	}

	checks := map[string]any{
		"msg":        "analysis failed",
		"error_code": ErrCodeUpstreamUnavailable,
		"error_type": string(ErrorTypeUpstream),
		"model":      "gemini-2.5-flash",
		"request_id": "abc",
		"cause":      "404",
	}
	for key, want := range checks {
		if entry[key] != want {
			t.Errorf("log field %s = %v, want %v", key, entry[key], want)
		}
	}
}

func TestLoggerWith(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLoggerWithWriter(&buf, slog.LevelInfo).With("request_id", "r-1")
	logger.Info("hello")
	logger.Debug("suppressed")

	var entry map[string]any
	if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
		t.Fatalf("expected exactly one JSON line, got %q: %v", buf.String(), err)
	}
	if entry["request_id"] != "r-1" {
		t.Errorf("request_id = %v, want r-1", entry["request_id"])
	}
}
