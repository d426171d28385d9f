// Package client talks to the ATSQuick HTTP server on behalf of the CLI.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	stderrors "errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"path/filepath"
	"strings"
	"sync/atomic"
	"time"

	"atsquick/internal/config"
	"atsquick/internal/errors"
	"atsquick/internal/types"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

// FailureMessage is shown to the user for every failed analysis, whatever the cause
const FailureMessage = "Our system is currently experiencing high demand and is temporarily overloaded. Please try your request again shortly."

var (
	// ErrAnalysisFailed is returned for any unsuccessful analysis call
	ErrAnalysisFailed = stderrors.New("resume analysis failed")
	// ErrAnalysisInFlight is returned when Submit is called while another call is outstanding
	ErrAnalysisInFlight = stderrors.New("an analysis is already in progress")
)

// maxResponseBytes bounds decoded server responses
const maxResponseBytes = 4 << 20

// Client submits resumes and contact messages to the server
type Client struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
	inFlight   atomic.Bool
}

// New creates a client from the CLI client configuration
func New(cfg config.ClientConfig) *Client {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 90 * time.Second
	}
	return NewWithHTTPClient(cfg.BaseURL, cfg.APIKey, &http.Client{
		Timeout:   timeout,
		Transport: otelhttp.NewTransport(http.DefaultTransport),
	})
}

// NewWithHTTPClient creates a client that sends requests through httpClient
func NewWithHTTPClient(baseURL, apiKey string, httpClient *http.Client) *Client {
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		apiKey:     apiKey,
		httpClient: httpClient,
	}
}

// InFlight reports whether an analysis call is outstanding
func (c *Client) InFlight() bool {
	return c.inFlight.Load()
}

// Submit uploads a PDF to the analysis endpoint and returns the decoded result verbatim.
// Every failure wraps ErrAnalysisFailed; the cause is kept for logs only.
func (c *Client) Submit(ctx context.Context, filename string, data []byte) (types.AnalysisResult, error) {
	if !c.inFlight.CompareAndSwap(false, true) {
		return nil, ErrAnalysisInFlight
	}
	defer c.inFlight.Store(false)

	body, contentType, err := buildUploadBody(filename, data)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrAnalysisFailed, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/api/analyze", body)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrAnalysisFailed, err)
	}
	req.Header.Set("Content-Type", contentType)
	c.authorize(req)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrAnalysisFailed, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		// Drain so the connection can be reused
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, maxResponseBytes))
		return nil, fmt.Errorf("%w: server returned %d", ErrAnalysisFailed, resp.StatusCode)
	}

	var result types.AnalysisResult
	if err := json.NewDecoder(io.LimitReader(resp.Body, maxResponseBytes)).Decode(&result); err != nil {
		return nil, fmt.Errorf("%w: decoding response: %v", ErrAnalysisFailed, err)
	}
	return result, nil
}

// buildUploadBody encodes the file under the "file" form field
func buildUploadBody(filename string, data []byte) (io.Reader, string, error) {
	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)

	header := make(textproto.MIMEHeader)
	header.Set("Content-Disposition", fmt.Sprintf(`form-data; name="file"; filename=%q`, filepath.Base(filename)))
	header.Set("Content-Type", "application/pdf")

	part, err := writer.CreatePart(header)
	if err != nil {
		return nil, "", err
	}
	if _, err := part.Write(data); err != nil {
		return nil, "", err
	}
	if err := writer.Close(); err != nil {
		return nil, "", err
	}
	return &buf, writer.FormDataContentType(), nil
}

// SendContact posts a contact message. On a non-2xx answer the server's message is
// returned both in the response and in the error.
func (c *Client) SendContact(ctx context.Context, msg types.ContactMessage) (types.ContactResponse, error) {
	payload, err := json.Marshal(msg)
	if err != nil {
		return types.ContactResponse{}, fmt.Errorf("encoding contact message: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/api/contact", bytes.NewReader(payload))
	if err != nil {
		return types.ContactResponse{}, fmt.Errorf("creating contact request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	c.authorize(req)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return types.ContactResponse{}, errors.NewNetworkError(errors.ErrCodeDeliveryFailed, "contact request failed", err)
	}
	defer resp.Body.Close()

	var result types.ContactResponse
	decodeErr := json.NewDecoder(io.LimitReader(resp.Body, maxResponseBytes)).Decode(&result)

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		message := result.Message
		if decodeErr != nil || message == "" {
			message = fmt.Sprintf("server returned %d", resp.StatusCode)
		}
		result.Success = false
		result.Message = message
		return result, errors.NewUpstreamError(errors.ErrCodeDeliveryFailed, message, nil).
			WithContext("status", resp.StatusCode)
	}
	if decodeErr != nil {
		return types.ContactResponse{}, fmt.Errorf("decoding contact response: %w", decodeErr)
	}
	return result, nil
}

func (c *Client) authorize(req *http.Request) {
	if c.apiKey != "" {
		req.Header.Set("X-API-Key", c.apiKey)
	}
}
