package ai

import (
	"context"
	stderrors "errors"
	"testing"
	"time"

	"atsquick/internal/config"
	"atsquick/internal/errors"

	"github.com/sony/gobreaker/v2"
	"google.golang.org/genai"
)

func testBreakerConfig() config.CircuitBreakerConfig {
	return config.CircuitBreakerConfig{
		Enabled:          true,
		MaxRequests:      1,
		Interval:         time.Minute,
		Timeout:          time.Minute,
		MinRequests:      3,
		FailureThreshold: 0.6,
	}
}

func TestCircuitBreakerInitialState(t *testing.T) {
	cb := NewAICircuitBreaker(testBreakerConfig(), nil)
	if cb == nil {
		t.Fatal("Circuit breaker should not be nil")
	}

	stats := cb.GetStats()
	if name, _ := stats["name"].(string); name != generateBreakerName {
		t.Errorf("Expected circuit breaker name %q, got %q", generateBreakerName, name)
	}
	if state, _ := stats["state"].(string); state != "closed" {
		t.Errorf("Expected initial state 'closed', got %q", state)
	}
	if enabled, _ := stats["enabled"].(bool); !enabled {
		t.Error("Circuit breaker should be enabled")
	}
	if !cb.IsHealthy() {
		t.Error("Circuit breaker should be healthy initially")
	}
}

func TestCircuitBreakerTripsAndFailsFast(t *testing.T) {
	cb := NewAICircuitBreaker(testBreakerConfig(), newTestLogger())
	upstream := stderrors.New("upstream exploded")

	for range 3 {
		_, err := cb.Execute(func() (*genai.GenerateContentResponse, error) {
			return nil, upstream
		})
		if !stderrors.Is(err, upstream) {
			t.Fatalf("Expected upstream error while closed, got %v", err)
		}
	}

	if cb.IsHealthy() {
		t.Fatal("Circuit breaker should be open after repeated failures")
	}

	called := false
	_, err := cb.Execute(func() (*genai.GenerateContentResponse, error) {
		called = true
		return &genai.GenerateContentResponse{}, nil
	})
	if called {
		t.Error("Open circuit must not invoke the upstream call")
	}
	if !stderrors.Is(err, gobreaker.ErrOpenState) {
		t.Fatalf("Expected ErrOpenState, got %v", err)
	}

	if code := errors.CodeOf(ClassifyError(err)); code != errors.ErrCodeUpstreamUnavailable {
		t.Errorf("Expected open circuit to classify as %s, got %s", errors.ErrCodeUpstreamUnavailable, code)
	}
}

func TestCircuitBreakerIgnoresCancellation(t *testing.T) {
	cb := NewAICircuitBreaker(testBreakerConfig(), nil)

	for range 5 {
		_, _ = cb.Execute(func() (*genai.GenerateContentResponse, error) {
			return nil, context.Canceled
		})
	}

	if !cb.IsHealthy() {
		t.Error("Caller cancellations must not open the circuit")
	}
}

func TestCircuitBreakerDisabled(t *testing.T) {
	cfg := testBreakerConfig()
	cfg.Enabled = false

	cb := NewAICircuitBreaker(cfg, nil)
	if cb != nil {
		t.Fatal("Circuit breaker should be nil when disabled")
	}

	// A nil breaker runs calls directly
	want := &genai.GenerateContentResponse{}
	got, err := cb.Execute(func() (*genai.GenerateContentResponse, error) { return want, nil })
	if err != nil || got != want {
		t.Errorf("Expected direct execution, got %v, %v", got, err)
	}
	if !cb.IsHealthy() {
		t.Error("Nil breaker should report healthy")
	}
	if enabled, _ := cb.GetStats()["enabled"].(bool); enabled {
		t.Error("Nil breaker should report disabled")
	}

	if NewModelCircuitBreaker(cfg, nil) != nil {
		t.Error("Model circuit breaker should be nil when disabled")
	}
}

func TestModelCircuitBreakerStats(t *testing.T) {
	cb := NewModelCircuitBreaker(testBreakerConfig(), nil)

	model, err := cb.ExecuteModel(func() (*genai.Model, error) {
		return &genai.Model{DisplayName: "Gemini"}, nil
	})
	if err != nil || model.DisplayName != "Gemini" {
		t.Fatalf("Unexpected result: %v, %v", model, err)
	}

	stats := cb.GetModelStats()
	if name, _ := stats["name"].(string); name != modelBreakerName {
		t.Errorf("Expected name %q, got %q", modelBreakerName, name)
	}
	if !cb.IsModelHealthy() {
		t.Error("Model breaker should be healthy")
	}
}
