package server

import (
	"context"
	"encoding/json"
	stderrors "errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"time"

	"atsquick/internal/contact"
	"atsquick/internal/errors"
)

// statusForError maps an error code to an HTTP status and client message.
// Unknown failures get 500 with fallback.
func statusForError(err error, fallback string) (int, string) {
	switch errors.CodeOf(err) {
	case errors.ErrCodeMissingFile:
		return http.StatusBadRequest, MessageFileRequired
	case errors.ErrCodeInvalidFormat:
		return http.StatusBadRequest, MessageOnlyPDF
	case errors.ErrCodeFileTooLarge:
		return http.StatusRequestEntityTooLarge, MessageFileTooLarge
	case errors.ErrCodeMissingAPIKey, errors.ErrCodeInvalidConfig:
		return http.StatusInternalServerError, MessageConfigError
	case errors.ErrCodeInvalidCredential:
		return http.StatusUnauthorized, MessageInvalidCredential
	case errors.ErrCodeUpstreamPermissionDenied:
		return http.StatusForbidden, MessagePermissionDenied
	case errors.ErrCodeUpstreamQuotaExceeded:
		return http.StatusTooManyRequests, MessageQuotaExceeded
	case errors.ErrCodeUpstreamUnavailable:
		return http.StatusServiceUnavailable, MessageModelUnavailable
	case errors.ErrCodeMissingFields:
		return http.StatusBadRequest, contact.MessageMissingFields
	case errors.ErrCodeMissingToken:
		return http.StatusBadRequest, contact.MessageMissingToken
	case errors.ErrCodeBotCheckFailed:
		return http.StatusForbidden, contact.MessageVerificationFailed
	case errors.ErrCodeBotScoreTooLow:
		return http.StatusForbidden, contact.MessageScoreTooLow
	default:
		return http.StatusInternalServerError, fallback
	}
}

// getHealthCheckTimeout returns the configured health check timeout
func (s *Server) getHealthCheckTimeout() time.Duration {
	if timeout := s.AppConfig.Observability.HealthCheck.Timeout; timeout > 0 {
		return timeout
	}
	return 15 * time.Second
}

// healthHandler reports service health including AI model availability and
// circuit breaker state
func (s *Server) healthHandler(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), s.getHealthCheckTimeout())
	defer cancel()

	modelInfo := s.Analyzer.GetModelInfo(ctx)
	breakers := s.Analyzer.CircuitBreakerStats()

	response := map[string]any{
		"status":           "healthy",
		"service":          "atsquick",
		"version":          s.Version,
		"ai_configured":    s.Analyzer.Configured(),
		"ai_model":         modelInfo,
		"circuit_breakers": breakers,
	}

	status := http.StatusOK
	if !modelInfo.Available || breakerOpen(breakers) {
		response["status"] = "degraded"
		status = http.StatusServiceUnavailable
	}

	writeJSON(w, status, response)
}

// breakerOpen reports whether any breaker in stats is open
func breakerOpen(stats map[string]any) bool {
	for _, raw := range stats {
		if breaker, ok := raw.(map[string]any); ok {
			if state, ok := breaker["state"].(string); ok && state == "open" {
				return true
			}
		}
	}
	return false
}

// statsHandler provides server statistics including rate limiting info
func (s *Server) statsHandler(w http.ResponseWriter, r *http.Request) {
	response := map[string]any{
		"service": "atsquick",
		"version": s.Version,
		"server": map[string]any{
			"max_upload_size_bytes": s.MaxRequestSize,
			"auth_enabled":          len(s.APIKeys) > 0,
			"cors_origins":          len(s.AllowedOrigins),
		},
		"ai": map[string]any{
			"configured": s.Analyzer.Configured(),
			"model":      s.Analyzer.Model(),
		},
	}

	if s.RateLimiter != nil {
		response["rate_limiting"] = s.RateLimiter.GetStats()
	} else {
		response["rate_limiting"] = map[string]any{"enabled": false}
	}

	if s.RateLimit != nil {
		response["rate_limit_config"] = map[string]any{
			"enabled":          s.RateLimit.Enabled,
			"requests_per_min": s.RateLimit.RequestsPerMin,
			"burst_capacity":   s.RateLimit.BurstCapacity,
			"by_ip":            s.RateLimit.ByIP,
			"by_api_key":       s.RateLimit.ByAPIKey,
		}
	}

	writeJSON(w, http.StatusOK, response)
}

// parseJSONRequest parses a JSON request body into v
func parseJSONRequest(r *http.Request, v any) error {
	if !isJSONContentType(r.Header.Get("Content-Type")) {
		return fmt.Errorf("content-type must be application/json")
	}

	body, err := io.ReadAll(r.Body)
	if err != nil {
		var maxBytesErr *http.MaxBytesError
		if stderrors.As(err, &maxBytesErr) {
			return fmt.Errorf("request body too large (limit is %d bytes)", maxBytesErr.Limit)
		}
		return fmt.Errorf("failed to read request body: %w", err)
	}
	defer func() {
		if err := r.Body.Close(); err != nil {
			log.Printf("Failed to close request body: %v", err)
		}
	}()

	if err := json.Unmarshal(body, v); err != nil {
		return fmt.Errorf("failed to parse JSON: %w", err)
	}

	return nil
}

// writeErrorResponse writes a standardized error response
func writeErrorResponse(w http.ResponseWriter, statusCode int, response ErrorResponse) {
	writeJSON(w, statusCode, response)
}
