package ai

import (
	"context"
	stderrors "errors"
	"net/http"
	"strings"

	"atsquick/internal/errors"

	"github.com/sony/gobreaker/v2"
	"google.golang.org/api/googleapi"
	"google.golang.org/genai"
)

// upstreamStatus extracts the HTTP status and status text reported by the model API
func upstreamStatus(err error) (int, string) {
	var apiErr genai.APIError
	if stderrors.As(err, &apiErr) {
		return apiErr.Code, apiErr.Status
	}

	var gErr *googleapi.Error
	if stderrors.As(err, &gErr) {
		return gErr.Code, ""
	}

	return 0, ""
}

// ClassifyError maps a failed analysis to an AppError whose code selects the client response.
// Errors that already carry an analysis code pass through unchanged.
func ClassifyError(err error) *errors.AppError {
	if err == nil {
		return nil
	}

	if appErr, ok := errors.AsAppError(err); ok {
		switch appErr.Code {
		case errors.ErrCodeNormalizationFailed,
			errors.ErrCodeMissingAPIKey,
			errors.ErrCodeInvalidCredential,
			errors.ErrCodeUpstreamUnavailable,
			errors.ErrCodeUpstreamQuotaExceeded,
			errors.ErrCodeUpstreamPermissionDenied,
			errors.ErrCodeAITimeout:
			return appErr
		}
	}

	if stderrors.Is(err, gobreaker.ErrOpenState) || stderrors.Is(err, gobreaker.ErrTooManyRequests) {
		return errors.NewUpstreamError(errors.ErrCodeUpstreamUnavailable, "AI circuit breaker is open", err)
	}

	if stderrors.Is(err, context.DeadlineExceeded) {
		return errors.NewAIError(errors.ErrCodeAITimeout, "AI request timed out", err)
	}

	code, status := upstreamStatus(err)
	message := err.Error()

	switch {
	case strings.Contains(message, "API key") || code == http.StatusBadRequest || code == http.StatusUnauthorized:
		return errors.NewUpstreamError(errors.ErrCodeInvalidCredential, "AI service rejected the credential", err)

	case code == http.StatusNotFound || code == http.StatusServiceUnavailable ||
		strings.Contains(message, "not found") || status == "UNAVAILABLE" || strings.Contains(message, "UNAVAILABLE"):
		return errors.NewUpstreamError(errors.ErrCodeUpstreamUnavailable, "AI model is unavailable", err)

	case code == http.StatusTooManyRequests || strings.Contains(strings.ToLower(message), "quota") ||
		status == "RESOURCE_EXHAUSTED" || strings.Contains(message, "RESOURCE_EXHAUSTED"):
		return errors.NewUpstreamError(errors.ErrCodeUpstreamQuotaExceeded, "AI service quota exceeded", err)

	case code == http.StatusForbidden || status == "PERMISSION_DENIED":
		return errors.NewUpstreamError(errors.ErrCodeUpstreamPermissionDenied, "AI service permission denied", err)
	}

	return errors.NewAIError(errors.ErrCodeAIServiceFailed, "Resume analysis failed", err)
}

func isContextCanceled(err error) bool {
	return stderrors.Is(err, context.Canceled)
}
