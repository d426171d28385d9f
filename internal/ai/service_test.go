package ai

import (
	"bytes"
	"context"
	stderrors "errors"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"testing"

	"atsquick/internal/config"
	"atsquick/internal/errors"

	"google.golang.org/genai"
)

func newTestLogger() *errors.Logger {
	return errors.NewLoggerWithWriter(io.Discard, slog.LevelDebug)
}

// fakeGenerator returns canned output and records what it was sent
type fakeGenerator struct {
	text  string
	usage *TokenUsage
	err   error

	calls        int
	lastDoc      Document
	instructions string
}

func (f *fakeGenerator) Generate(_ context.Context, doc Document, instructions string) (string, *TokenUsage, error) {
	f.calls++
	f.lastDoc = doc
	f.instructions = instructions
	return f.text, f.usage, f.err
}

func (f *fakeGenerator) GetModelInfo(_ context.Context) *ModelInfo {
	return &ModelInfo{Name: "fake-model", Available: true}
}

func (f *fakeGenerator) Close() error { return nil }

func TestServiceAnalyze(t *testing.T) {
	gen := &fakeGenerator{
		text:  "```json\n{\"score\": 78, \"skills\": {\"Go\": 88}}\n```",
		usage: &TokenUsage{InputTokens: 10, OutputTokens: 5, TotalTokens: 15},
	}
	service := NewServiceWithGenerator(gen, NewPromptResolver(nil), "fake-model", newTestLogger())

	result, usage, err := service.Analyze(context.Background(), []byte("%PDF-1.7 resume"))
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}

	if result["score"] != float64(78) {
		t.Errorf("Expected score 78, got %v", result["score"])
	}
	if usage == nil || usage.TotalTokens != 15 {
		t.Errorf("Expected token usage to pass through, got %+v", usage)
	}
	if gen.lastDoc.MIMEType != PDFMIMEType {
		t.Errorf("Expected MIME type %s, got %s", PDFMIMEType, gen.lastDoc.MIMEType)
	}
	if string(gen.lastDoc.Data) != "%PDF-1.7 resume" {
		t.Errorf("Expected document bytes to be forwarded unchanged")
	}
	if gen.instructions != BuildAnalysisPrompt() {
		t.Errorf("Expected default prompt to be used")
	}
}

func TestServiceAnalyzeUnconfigured(t *testing.T) {
	service := NewServiceWithGenerator(nil, nil, "gemini-2.5-flash", newTestLogger())

	if service.Configured() {
		t.Fatal("Service without generator must report unconfigured")
	}

	_, _, err := service.Analyze(context.Background(), []byte("%PDF-"))
	if code := errors.CodeOf(err); code != errors.ErrCodeMissingAPIKey {
		t.Errorf("Expected %s, got %s", errors.ErrCodeMissingAPIKey, code)
	}

	info := service.GetModelInfo(context.Background())
	if info.Available || info.Name != "gemini-2.5-flash" {
		t.Errorf("Unexpected model info %+v", info)
	}
}

func TestServiceAnalyzeClassifiesUpstreamErrors(t *testing.T) {
	gen := &fakeGenerator{err: errors.NewAIError(errors.ErrCodeAIServiceFailed, "Failed to generate resume analysis",
		genai.APIError{Code: http.StatusTooManyRequests, Status: "RESOURCE_EXHAUSTED"})}
	service := NewServiceWithGenerator(gen, nil, "fake-model", newTestLogger())

	_, _, err := service.Analyze(context.Background(), []byte("%PDF-"))
	if code := errors.CodeOf(err); code != errors.ErrCodeUpstreamQuotaExceeded {
		t.Errorf("Expected %s, got %s", errors.ErrCodeUpstreamQuotaExceeded, code)
	}
}

func TestServiceAnalyzeLogsRawOutputOnNormalizationFailure(t *testing.T) {
	var logs bytes.Buffer
	logger := errors.NewLoggerWithWriter(&logs, slog.LevelDebug)

	gen := &fakeGenerator{text: "Sorry, I cannot help with that resume."}
	service := NewServiceWithGenerator(gen, nil, "fake-model", logger)

	_, _, err := service.Analyze(context.Background(), []byte("%PDF-"))

	var normErr *NormalizationError
	if !stderrors.As(err, &normErr) {
		t.Fatalf("Expected NormalizationError, got %v", err)
	}
	if !strings.Contains(logs.String(), "Sorry, I cannot help with that resume.") {
		t.Errorf("Expected raw model output in server logs, got %s", logs.String())
	}
}

func TestServiceCircuitBreakerStatsWithoutProvider(t *testing.T) {
	service := NewServiceWithGenerator(&fakeGenerator{}, nil, "fake-model", newTestLogger())

	if enabled, _ := service.CircuitBreakerStats()["enabled"].(bool); enabled {
		t.Error("Fake generator exposes no breaker stats")
	}
	if err := service.Close(); err != nil {
		t.Errorf("Unexpected close error: %v", err)
	}
}

func TestNewServiceWithoutAPIKey(t *testing.T) {
	cfg := &config.Config{AI: config.AIConfig{Provider: "gemini", Model: "gemini-2.5-flash"}}

	service, err := NewService(context.Background(), cfg, newTestLogger())
	if err != nil {
		t.Fatalf("Missing API key must not fail construction: %v", err)
	}
	if service.Configured() {
		t.Error("Service must be unconfigured without an API key")
	}
}

func TestNewServiceUnsupportedProvider(t *testing.T) {
	cfg := &config.Config{AI: config.AIConfig{Provider: "openai", APIKey: "key"}}

	_, err := NewService(context.Background(), cfg, newTestLogger())
	if code := errors.CodeOf(err); code != errors.ErrCodeInvalidConfig {
		t.Errorf("Expected %s, got %s", errors.ErrCodeInvalidConfig, code)
	}
}
