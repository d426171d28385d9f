package contact

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"atsquick/internal/config"
	"atsquick/internal/errors"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

// BotVerifier checks a client-side bot verification token
type BotVerifier interface {
	Verify(ctx context.Context, token, remoteIP string) (*Verification, error)
}

// Verification is the siteverify answer
type Verification struct {
	Success    bool     `json:"success"`
	Score      *float64 `json:"score,omitempty"`
	Action     string   `json:"action,omitempty"`
	Hostname   string   `json:"hostname,omitempty"`
	ErrorCodes []string `json:"error-codes,omitempty"`
}

// RecaptchaVerifier calls the reCAPTCHA siteverify API
type RecaptchaVerifier struct {
	secret     string
	verifyURL  string
	httpClient *http.Client
}

// NewRecaptchaVerifier creates a verifier from the contact configuration
func NewRecaptchaVerifier(cfg config.RecaptchaConfig) *RecaptchaVerifier {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &RecaptchaVerifier{
		secret:    cfg.SecretKey,
		verifyURL: cfg.VerifyURL,
		httpClient: &http.Client{
			Timeout:   timeout,
			Transport: otelhttp.NewTransport(http.DefaultTransport),
		},
	}
}

// Verify posts the token and returns the decoded answer. Transport and decode
// failures are VerifierFailed errors.
func (v *RecaptchaVerifier) Verify(ctx context.Context, token, remoteIP string) (*Verification, error) {
	form := url.Values{
		"secret":   {v.secret},
		"response": {token},
	}
	if remoteIP != "" {
		form.Set("remoteip", remoteIP)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, v.verifyURL, strings.NewReader(form.Encode()))
	if err != nil {
		return nil, errors.NewNetworkError(errors.ErrCodeVerifierFailed, "cannot build verification request", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := v.httpClient.Do(req)
	if err != nil {
		return nil, errors.NewNetworkError(errors.ErrCodeVerifierFailed, "verification request failed", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, errors.NewNetworkError(errors.ErrCodeVerifierFailed,
			fmt.Sprintf("verification service returned %d", resp.StatusCode), nil)
	}

	var verification Verification
	if err := json.NewDecoder(io.LimitReader(resp.Body, 1<<20)).Decode(&verification); err != nil {
		return nil, errors.NewNetworkError(errors.ErrCodeVerifierFailed, "cannot decode verification response", err)
	}
	return &verification, nil
}

// checkVerification applies the pass rules: success is required, and a score,
// when present, must reach minScore.
func checkVerification(v *Verification, minScore float64) error {
	if !v.Success {
		return errors.NewValidationError(errors.ErrCodeBotCheckFailed, MessageVerificationFailed, nil).
			WithContext("error_codes", v.ErrorCodes)
	}
	if v.Score != nil && *v.Score < minScore {
		return errors.NewValidationError(errors.ErrCodeBotScoreTooLow, MessageScoreTooLow, nil).
			WithContext("score", *v.Score).
			WithContext("min_score", minScore)
	}
	return nil
}
