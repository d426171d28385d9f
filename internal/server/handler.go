package server

import (
	"bytes"
	"context"
	"encoding/json"
	stderrors "errors"
	"io"
	"net/http"
	"strings"

	"atsquick/internal/ai"
	"atsquick/internal/contact"
	"atsquick/internal/errors"
	"atsquick/internal/observability"
	"atsquick/internal/types"

	"go.opentelemetry.io/otel/attribute"
)

// multipartOverhead is the slack allowed on top of the file size limit for
// multipart boundaries and part headers
const multipartOverhead = 64 << 10

// Client-facing messages for the analysis endpoint
const (
	MessageFileRequired      = "Resume file is required"
	MessageOnlyPDF           = "Only PDF files are allowed"
	MessageFileTooLarge      = "Resume file is too large"
	MessageConfigError       = "API configuration error"
	MessageInvalidCredential = "Invalid API key. Please check your configuration."
	MessagePermissionDenied  = "Permission denied for the AI service."
	MessageQuotaExceeded     = "AI service quota exceeded. Please try again later."
	MessageModelUnavailable  = "AI model is currently unavailable. Please try again later."
	MessageAnalysisFailed    = "Resume analysis failed"
)

// ErrorResponse is the JSON body of every non-contact error
type ErrorResponse struct {
	Error   string `json:"error"`
	Code    string `json:"code,omitempty"`
	Details string `json:"details,omitempty"`
}

// createAnalyzeHandler accepts a multipart PDF upload and returns the model's analysis
func (s *Server) createAnalyzeHandler(om *observability.ObservabilityManager) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			w.Header().Set("Allow", http.MethodPost)
			writeErrorResponse(w, http.StatusMethodNotAllowed, ErrorResponse{Error: "Method not allowed"})
			return
		}

		ctx, span := om.Tracer("atsquick.api").Start(r.Context(), "api.analyze")
		defer span.End()
		logger := s.Logger.With("request_id", requestIDFrom(ctx))
		metrics := om.GetMetrics()

		filename, data, err := s.readUpload(r)
		if err != nil {
			span.RecordError(err)
			span.SetAttributes(attribute.String("error.type", "validation"))
			s.writeAppError(w, err, MessageAnalysisFailed, logger)
			return
		}

		metrics.RecordUploadSize(ctx, int64(len(data)))
		span.SetAttributes(
			attribute.String("upload.filename", filename),
			attribute.Int("upload.size", len(data)),
		)

		if info, inspectErr := InspectPDF(data); inspectErr != nil {
			logger.Warn("Could not inspect uploaded PDF", "error", inspectErr.Error(), "filename", filename)
		} else {
			span.SetAttributes(attribute.Int("upload.pages", info.Pages))
			logger.Debug("Inspected uploaded PDF", "filename", filename, "pages", info.Pages)
		}

		var result types.AnalysisResult
		err = metrics.TrackAIOperationWithTokens(ctx, "analyze_resume", func(ctx context.Context) *observability.AIOperationResult {
			output, usage, aiErr := s.Analyzer.Analyze(ctx, data)
			result = output
			return &observability.AIOperationResult{
				Error:      aiErr,
				ErrorCode:  errors.CodeOf(aiErr),
				TokenUsage: (*observability.TokenUsage)(usage),
			}
		})

		if err != nil {
			span.RecordError(err)
			span.SetAttributes(attribute.String("error.code", errors.CodeOf(err)))
			metrics.RecordBusinessMetric(ctx, observability.MetricResumeAnalyzed, false,
				attribute.String("error_code", errors.CodeOf(err)))
			var normErr *ai.NormalizationError
			if stderrors.As(err, &normErr) {
				metrics.RecordBusinessMetric(ctx, observability.MetricNormalizationFailure, false)
			}
			s.writeAppError(w, err, MessageAnalysisFailed, logger)
			return
		}

		metrics.RecordBusinessMetric(ctx, observability.MetricResumeAnalyzed, true)
		span.SetAttributes(attribute.Bool("success", true))
		logger.Info("Resume analyzed", "filename", filename, "size", len(data))

		writeJSON(w, http.StatusOK, result)
	}
}

// readUpload extracts the "file" part. Failures are validation AppErrors.
func (s *Server) readUpload(r *http.Request) (string, []byte, error) {
	file, header, err := r.FormFile("file")
	if err != nil {
		var maxBytesErr *http.MaxBytesError
		if stderrors.As(err, &maxBytesErr) || (s.MaxRequestSize > 0 && r.ContentLength > s.MaxRequestSize+multipartOverhead) {
			return "", nil, errors.NewValidationError(errors.ErrCodeFileTooLarge, MessageFileTooLarge, err)
		}
		return "", nil, errors.NewValidationError(errors.ErrCodeMissingFile, MessageFileRequired, err)
	}
	defer func() { _ = file.Close() }()

	var data []byte
	if s.MaxRequestSize > 0 {
		data, err = io.ReadAll(io.LimitReader(file, s.MaxRequestSize+1))
	} else {
		data, err = io.ReadAll(file)
	}
	if err != nil {
		return "", nil, errors.NewIOError(errors.ErrCodeFileNotReadable, "Failed to read uploaded file", err)
	}

	if len(data) == 0 {
		return "", nil, errors.NewValidationError(errors.ErrCodeMissingFile, MessageFileRequired, nil)
	}
	if s.MaxRequestSize > 0 && int64(len(data)) > s.MaxRequestSize {
		return "", nil, errors.NewValidationError(errors.ErrCodeFileTooLarge, MessageFileTooLarge, nil).
			WithContext("limit", s.MaxRequestSize)
	}
	if s.AppConfig.App.ValidatePDF && !hasPDFHeader(data) {
		return "", nil, errors.NewValidationError(errors.ErrCodeInvalidFormat, MessageOnlyPDF, nil).
			WithContext("filename", header.Filename)
	}

	return header.Filename, data, nil
}

// createContactHandler verifies and forwards contact form submissions
func (s *Server) createContactHandler(om *observability.ObservabilityManager) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			w.Header().Set("Allow", http.MethodPost)
			writeJSON(w, http.StatusMethodNotAllowed, types.ContactResponse{Message: "Method not allowed"})
			return
		}

		ctx, span := om.Tracer("atsquick.api").Start(r.Context(), "api.contact")
		defer span.End()
		logger := s.Logger.With("request_id", requestIDFrom(ctx))
		metrics := om.GetMetrics()

		var msg types.ContactMessage
		if err := parseJSONRequest(r, &msg); err != nil {
			span.RecordError(err)
			writeJSON(w, http.StatusBadRequest, types.ContactResponse{Message: contact.MessageMissingFields})
			return
		}

		err := s.Contact.Submit(ctx, msg, getClientIP(r))
		if err != nil {
			code := errors.CodeOf(err)
			status, message := statusForError(err, contact.MessageServerError)
			span.RecordError(err)
			span.SetAttributes(attribute.String("error.code", code))

			switch code {
			case errors.ErrCodeBotCheckFailed, errors.ErrCodeBotScoreTooLow:
				metrics.RecordBusinessMetric(ctx, observability.MetricBotRejection, false,
					attribute.String("error_code", code))
			}
			metrics.RecordBusinessMetric(ctx, observability.MetricContactMessage, false,
				attribute.String("error_code", code))

			if status >= http.StatusInternalServerError {
				logger.LogError(err, "Contact submission failed")
			} else {
				logger.Info("Contact submission rejected", "code", code)
			}
			writeJSON(w, status, types.ContactResponse{Message: message})
			return
		}

		metrics.RecordBusinessMetric(ctx, observability.MetricContactMessage, true)
		writeJSON(w, http.StatusOK, types.ContactResponse{Success: true, Message: contact.MessageSent})
	}
}

// writeAppError maps err to a status and client message. Details are only
// exposed in development.
func (s *Server) writeAppError(w http.ResponseWriter, err error, fallback string, logger *errors.Logger) {
	status, message := statusForError(err, fallback)

	if status >= http.StatusInternalServerError {
		logger.LogError(err, "Request failed", "status", status)
	} else {
		logger.Info("Request rejected", "status", status, "code", errors.CodeOf(err))
	}

	resp := ErrorResponse{Error: message, Code: errors.CodeOf(err)}
	if s.AppConfig.App.IsDevelopment() {
		resp.Details = err.Error()
	}
	writeErrorResponse(w, status, resp)
}

// createRateLimitMiddleware counts rejected requests on top of rateLimitMiddleware
func (s *Server) createRateLimitMiddleware(om *observability.ObservabilityManager) func(http.HandlerFunc) http.HandlerFunc {
	limit := s.rateLimitMiddleware()

	return func(next http.HandlerFunc) http.HandlerFunc {
		limited := limit(next)
		return func(w http.ResponseWriter, r *http.Request) {
			wrapper := &responseWrapper{ResponseWriter: w, statusCode: http.StatusOK}
			limited(wrapper, r)

			if wrapper.statusCode == http.StatusTooManyRequests && wrapper.limited {
				om.GetMetrics().RecordBusinessMetric(r.Context(), observability.MetricRateLimitHit, false,
					attribute.String("endpoint", r.URL.Path))
			}
		}
	}
}

// responseWrapper captures the status code written by the wrapped handler
type responseWrapper struct {
	http.ResponseWriter
	statusCode  int
	wroteHeader bool
	limited     bool
}

func (rw *responseWrapper) WriteHeader(code int) {
	if !rw.wroteHeader {
		rw.statusCode = code
		rw.wroteHeader = true
		rw.limited = code == http.StatusTooManyRequests && rw.Header().Get("Retry-After") != ""
	}
	rw.ResponseWriter.WriteHeader(code)
}

func (rw *responseWrapper) Write(b []byte) (int, error) {
	if !rw.wroteHeader {
		rw.WriteHeader(http.StatusOK)
	}
	return rw.ResponseWriter.Write(b)
}

func hasPDFHeader(data []byte) bool {
	return bytes.HasPrefix(bytes.TrimLeft(data[:min(len(data), 1024)], "\x00\t\n\r "), []byte("%PDF-"))
}

func isJSONContentType(contentType string) bool {
	mediaType, _, _ := strings.Cut(contentType, ";")
	return strings.EqualFold(strings.TrimSpace(mediaType), "application/json")
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
