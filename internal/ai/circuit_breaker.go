package ai

import (
	"net/http"

	"atsquick/internal/config"
	"atsquick/internal/errors"

	"github.com/sony/gobreaker/v2"
	"google.golang.org/genai"
)

// Breaker names reported in stats and state change logs
const (
	generateBreakerName = "gemini-generate"
	modelBreakerName    = "gemini-model-info"
)

// AICircuitBreaker fronts generate calls. A nil breaker runs calls directly.
type AICircuitBreaker struct {
	cb *gobreaker.CircuitBreaker[*genai.GenerateContentResponse]
}

// ModelCircuitBreaker fronts model info lookups used by health checks
type ModelCircuitBreaker struct {
	cb *gobreaker.CircuitBreaker[*genai.Model]
}

// NewAICircuitBreaker returns nil when the breaker is disabled
func NewAICircuitBreaker(cfg config.CircuitBreakerConfig, logger *errors.Logger) *AICircuitBreaker {
	if !cfg.Enabled {
		return nil
	}

	settings := gobreaker.Settings{
		Name:        generateBreakerName,
		MaxRequests: cfg.MaxRequests,
		Interval:    cfg.Interval,
		Timeout:     cfg.Timeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			failureRatio := float64(counts.TotalFailures) / float64(counts.Requests)
			return counts.Requests >= cfg.MinRequests &&
				failureRatio >= cfg.FailureThreshold
		},
		IsSuccessful: countsAgainstBreaker,
		OnStateChange: func(name string, from gobreaker.State, to gobreaker.State) {
			if logger == nil {
				return
			}
			logger.Info("Circuit breaker state changed",
				"name", name,
				"from", from.String(),
				"to", to.String(),
				"max_requests", cfg.MaxRequests,
				"failure_threshold", cfg.FailureThreshold)
		},
	}

	return &AICircuitBreaker{
		cb: gobreaker.NewCircuitBreaker[*genai.GenerateContentResponse](settings),
	}
}

// NewModelCircuitBreaker returns nil when the breaker is disabled
func NewModelCircuitBreaker(cfg config.CircuitBreakerConfig, logger *errors.Logger) *ModelCircuitBreaker {
	if !cfg.Enabled {
		return nil
	}

	settings := gobreaker.Settings{
		Name:        modelBreakerName,
		MaxRequests: cfg.MaxRequests,
		Interval:    cfg.Interval,
		Timeout:     cfg.Timeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			// Health lookups are less critical, so trip later
			failureRatio := float64(counts.TotalFailures) / float64(counts.Requests)
			return counts.Requests >= 5 && failureRatio >= 0.8
		},
		IsSuccessful: countsAgainstBreaker,
		OnStateChange: func(name string, from gobreaker.State, to gobreaker.State) {
			if logger == nil {
				return
			}
			logger.Info("Circuit breaker state changed",
				"name", name,
				"from", from.String(),
				"to", to.String())
		},
	}

	return &ModelCircuitBreaker{
		cb: gobreaker.NewCircuitBreaker[*genai.Model](settings),
	}
}

// countsAgainstBreaker reports whether err leaves the breaker's view of the model
// healthy. Only unavailability counts as a failure: server errors, transport
// errors and deadlines. Caller cancellation and rejections of the request itself
// (credential, permission, quota, unknown model) pass through untouched so the
// client keeps seeing the specific status.
func countsAgainstBreaker(err error) bool {
	if err == nil || isContextCanceled(err) {
		return true
	}

	switch code, _ := upstreamStatus(err); code {
	case http.StatusBadRequest,
		http.StatusUnauthorized,
		http.StatusForbidden,
		http.StatusNotFound,
		http.StatusTooManyRequests:
		return true
	}
	return false
}

// Execute runs fn with circuit breaker protection
func (cb *AICircuitBreaker) Execute(fn func() (*genai.GenerateContentResponse, error)) (*genai.GenerateContentResponse, error) {
	if cb == nil || cb.cb == nil {
		return fn()
	}
	return cb.cb.Execute(fn)
}

// ExecuteModel runs fn with circuit breaker protection
func (cb *ModelCircuitBreaker) ExecuteModel(fn func() (*genai.Model, error)) (*genai.Model, error) {
	if cb == nil || cb.cb == nil {
		return fn()
	}
	return cb.cb.Execute(fn)
}

// GetStats returns circuit breaker statistics
func (cb *AICircuitBreaker) GetStats() map[string]any {
	if cb == nil || cb.cb == nil {
		return map[string]any{"enabled": false}
	}
	return breakerStats(cb.cb.Name(), cb.cb.State(), cb.cb.Counts())
}

// GetModelStats returns model circuit breaker statistics
func (cb *ModelCircuitBreaker) GetModelStats() map[string]any {
	if cb == nil || cb.cb == nil {
		return map[string]any{"enabled": false}
	}
	return breakerStats(cb.cb.Name(), cb.cb.State(), cb.cb.Counts())
}

func breakerStats(name string, state gobreaker.State, counts gobreaker.Counts) map[string]any {
	return map[string]any{
		"name":    name,
		"state":   state.String(),
		"counts":  counts,
		"enabled": true,
	}
}

// IsHealthy returns true if the circuit breaker is not open
func (cb *AICircuitBreaker) IsHealthy() bool {
	if cb == nil || cb.cb == nil {
		return true
	}
	return cb.cb.State() != gobreaker.StateOpen
}

// IsModelHealthy returns true if the model circuit breaker is not open
func (cb *ModelCircuitBreaker) IsModelHealthy() bool {
	if cb == nil || cb.cb == nil {
		return true
	}
	return cb.cb.State() != gobreaker.StateOpen
}
