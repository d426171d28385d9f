package ai

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"atsquick/internal/config"
	"atsquick/internal/errors"

	"google.golang.org/genai"
)

func newTestProvider(t *testing.T, handler http.HandlerFunc) *GeminiProvider {
	t.Helper()

	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	cfg := &config.AIConfig{
		Model:          "gemini-2.5-flash",
		Timeout:        5 * time.Second,
		APIKey:         "test-key",
		BaseURL:        server.URL,
		CircuitBreaker: testBreakerConfig(),
	}

	provider, err := NewGeminiProvider(context.Background(), cfg, time.Second, newTestLogger())
	if err != nil {
		t.Fatalf("Failed to create provider: %v", err)
	}
	return provider
}

func genaiErr(code int) error {
	return genai.APIError{Code: code, Message: http.StatusText(code)}
}

func upstreamError(status int, body string) http.HandlerFunc {
	return func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_, _ = w.Write([]byte(body))
	}
}

func TestRejectedRequestsKeepBreakerClosed(t *testing.T) {
	tests := []struct {
		name     string
		status   int
		body     string
		wantCode string
	}{
		{
			name:     "invalid key",
			status:   http.StatusBadRequest,
			body:     `{"error":{"code":400,"message":"API key not valid. Please pass a valid API key.","status":"INVALID_ARGUMENT"}}`,
			wantCode: errors.ErrCodeInvalidCredential,
		},
		{
			name:     "permission denied",
			status:   http.StatusForbidden,
			body:     `{"error":{"code":403,"message":"The caller does not have permission","status":"PERMISSION_DENIED"}}`,
			wantCode: errors.ErrCodeUpstreamPermissionDenied,
		},
		{
			name:     "quota exceeded",
			status:   http.StatusTooManyRequests,
			body:     `{"error":{"code":429,"message":"Resource has been exhausted","status":"RESOURCE_EXHAUSTED"}}`,
			wantCode: errors.ErrCodeUpstreamQuotaExceeded,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			provider := newTestProvider(t, upstreamError(tt.status, tt.body))
			service := NewServiceWithGenerator(provider, NewPromptResolver(nil), "gemini-2.5-flash", newTestLogger())

			for attempt := 1; attempt <= 5; attempt++ {
				_, _, err := service.Analyze(context.Background(), []byte("%PDF-1.7 resume"))
				if code := errors.CodeOf(err); code != tt.wantCode {
					t.Fatalf("Attempt %d: expected code %s, got %s (%v)", attempt, tt.wantCode, code, err)
				}
			}

			if !provider.circuitBreaker.IsHealthy() {
				t.Error("Rejected requests must not open the circuit")
			}
		})
	}
}

func TestServerErrorsOpenBreaker(t *testing.T) {
	var calls atomic.Int32
	provider := newTestProvider(t, func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		upstreamError(http.StatusInternalServerError,
			`{"error":{"code":500,"message":"Internal error","status":"INTERNAL"}}`)(w, r)
	})
	service := NewServiceWithGenerator(provider, NewPromptResolver(nil), "gemini-2.5-flash", newTestLogger())

	for range 3 {
		_, _, _ = service.Analyze(context.Background(), []byte("%PDF-1.7 resume"))
	}
	if provider.circuitBreaker.IsHealthy() {
		t.Fatal("Repeated server errors should open the circuit")
	}

	before := calls.Load()
	_, _, err := service.Analyze(context.Background(), []byte("%PDF-1.7 resume"))
	if code := errors.CodeOf(err); code != errors.ErrCodeUpstreamUnavailable {
		t.Errorf("Expected %s while open, got %s", errors.ErrCodeUpstreamUnavailable, code)
	}
	if calls.Load() != before {
		t.Error("Open circuit must not reach the model API")
	}
}

func TestCountsAgainstBreaker(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"success", nil, true},
		{"cancelled", context.Canceled, true},
		{"bad request", genaiErr(http.StatusBadRequest), true},
		{"unauthorized", genaiErr(http.StatusUnauthorized), true},
		{"forbidden", genaiErr(http.StatusForbidden), true},
		{"not found", genaiErr(http.StatusNotFound), true},
		{"quota", genaiErr(http.StatusTooManyRequests), true},
		{"server error", genaiErr(http.StatusInternalServerError), false},
		{"unavailable", genaiErr(http.StatusServiceUnavailable), false},
		{"deadline", context.DeadlineExceeded, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := countsAgainstBreaker(tt.err); got != tt.want {
				t.Errorf("countsAgainstBreaker(%v) = %v, want %v", tt.err, got, tt.want)
			}
		})
	}
}
