package errors

import (
	stderrors "errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
)

// ErrorType is the broad category of an AppError
type ErrorType string

const (
	ErrorTypeValidation ErrorType = "validation"
	ErrorTypeIO         ErrorType = "io"
	ErrorTypeAI         ErrorType = "ai"
	ErrorTypeUpstream   ErrorType = "upstream"
	ErrorTypeNetwork    ErrorType = "network"
	ErrorTypeConfig     ErrorType = "config"
	ErrorTypeInternal   ErrorType = "internal"
)

// Local file handling
const (
	ErrCodeFileNotFound    = "FILE_NOT_FOUND"
	ErrCodeFileNotReadable = "FILE_NOT_READABLE"
	ErrCodeFileNotWritable = "FILE_NOT_WRITABLE"
	ErrCodeFileTooLarge    = "FILE_TOO_LARGE"
	ErrCodeInvalidFormat   = "INVALID_FORMAT"
	ErrCodeInvalidRequest  = "INVALID_REQUEST"
	ErrCodeInvalidConfig   = "INVALID_CONFIG"
)

// Resume analysis
const (
	ErrCodeMissingFile              = "MISSING_FILE"
	ErrCodeMissingAPIKey            = "MISSING_API_KEY"
	ErrCodeInvalidCredential        = "INVALID_CREDENTIAL"
	ErrCodeUpstreamUnavailable      = "UPSTREAM_UNAVAILABLE"
	ErrCodeUpstreamQuotaExceeded    = "UPSTREAM_QUOTA_EXCEEDED"
	ErrCodeUpstreamPermissionDenied = "UPSTREAM_PERMISSION_DENIED"
	ErrCodeNormalizationFailed      = "NORMALIZATION_FAILED"
	ErrCodeAIServiceFailed          = "AI_SERVICE_FAILED"
	ErrCodeAITimeout                = "AI_TIMEOUT"
)

// Contact form
const (
	ErrCodeMissingFields  = "MISSING_FIELDS"
	ErrCodeMissingToken   = "MISSING_TOKEN"
	ErrCodeBotCheckFailed = "BOT_CHECK_FAILED"
	ErrCodeBotScoreTooLow = "BOT_SCORE_TOO_LOW"
	ErrCodeVerifierFailed = "VERIFIER_FAILED"
	ErrCodeDeliveryFailed = "DELIVERY_FAILED"
)

// AppError carries a stable code that callers map to user-facing responses,
// plus optional structured context for logs.
type AppError struct {
	Type    ErrorType      `json:"type"`
	Code    string         `json:"code"`
	Message string         `json:"message"`
	Cause   error          `json:"cause,omitempty"`
	Context map[string]any `json:"context,omitempty"`
}

func (e *AppError) Error() string {
	msg := e.Code + ": " + e.Message
	if e.Cause == nil {
		return msg
	}
	return fmt.Sprintf("%s (caused by: %v)", msg, e.Cause)
}

func (e *AppError) Unwrap() error { return e.Cause }

// WithContext attaches a key/value pair that LogError emits as a log attribute
func (e *AppError) WithContext(key string, value any) *AppError {
	if e.Context == nil {
		e.Context = map[string]any{}
	}
	e.Context[key] = value
	return e
}

func NewValidationError(code, message string, cause error) *AppError {
	return &AppError{Type: ErrorTypeValidation, Code: code, Message: message, Cause: cause}
}

func NewIOError(code, message string, cause error) *AppError {
	return &AppError{Type: ErrorTypeIO, Code: code, Message: message, Cause: cause}
}

func NewAIError(code, message string, cause error) *AppError {
	return &AppError{Type: ErrorTypeAI, Code: code, Message: message, Cause: cause}
}

// NewUpstreamError reports a failure signalled by the external AI service
func NewUpstreamError(code, message string, cause error) *AppError {
	return &AppError{Type: ErrorTypeUpstream, Code: code, Message: message, Cause: cause}
}

func NewNetworkError(code, message string, cause error) *AppError {
	return &AppError{Type: ErrorTypeNetwork, Code: code, Message: message, Cause: cause}
}

func NewConfigError(code, message string, cause error) *AppError {
	return &AppError{Type: ErrorTypeConfig, Code: code, Message: message, Cause: cause}
}

func NewInternalError(code, message string, cause error) *AppError {
	return &AppError{Type: ErrorTypeInternal, Code: code, Message: message, Cause: cause}
}

// AsAppError returns the first AppError in err's chain
func AsAppError(err error) (*AppError, bool) {
	var appErr *AppError
	if stderrors.As(err, &appErr) {
		return appErr, true
	}
	return nil, false
}

// CodeOf returns the code of the outermost AppError in err's chain, or ""
func CodeOf(err error) string {
	if appErr, ok := AsAppError(err); ok {
		return appErr.Code
	}
	return ""
}

// Logger is the application's JSON slog logger
type Logger struct {
	logger *slog.Logger
}

// New returns a stdout logger for a config level name
func New(level string) (*Logger, error) {
	lvl, err := ParseLevel(level)
	if err != nil {
		return nil, err
	}
	return NewLogger(lvl), nil
}

// NewLogger returns a logger writing JSON lines to stdout
func NewLogger(level slog.Level) *Logger {
	return NewLoggerWithWriter(os.Stdout, level)
}

// NewLoggerWithWriter returns a logger writing JSON lines to w
func NewLoggerWithWriter(w io.Writer, level slog.Level) *Logger {
	return &Logger{logger: slog.New(slog.NewJSONHandler(w, &slog.HandlerOptions{Level: level}))}
}

var levelNames = map[string]slog.Level{
	"debug": slog.LevelDebug,
	"info":  slog.LevelInfo,
	"warn":  slog.LevelWarn,
	"error": slog.LevelError,
}

// ParseLevel maps a config level name to a slog level. Unknown names yield
// LevelInfo and an error.
func ParseLevel(level string) (slog.Level, error) {
	if lvl, ok := levelNames[strings.ToLower(level)]; ok {
		return lvl, nil
	}
	return slog.LevelInfo, fmt.Errorf("invalid log level: %s", level)
}

// With returns a logger that always includes the given attributes
func (l *Logger) With(args ...any) *Logger {
	return &Logger{logger: l.logger.With(args...)}
}

// LogError logs err at error level. An AppError anywhere in the chain is
// flattened into error_type, error_code, error_message, cause and its context.
func (l *Logger) LogError(err error, message string, args ...any) {
	l.logger.Error(message, append(errorAttrs(err), args...)...)
}

func errorAttrs(err error) []any {
	appErr, ok := AsAppError(err)
	if !ok {
		return []any{"error", err.Error()}
	}

	attrs := []any{
		"error_type", appErr.Type,
		"error_code", appErr.Code,
		"error_message", appErr.Message,
	}
	if appErr.Cause != nil {
		attrs = append(attrs, "cause", appErr.Cause.Error())
	}
	for key, value := range appErr.Context {
		attrs = append(attrs, key, value)
	}
	return attrs
}

func (l *Logger) Info(message string, args ...any)  { l.logger.Info(message, args...) }
func (l *Logger) Debug(message string, args ...any) { l.logger.Debug(message, args...) }
func (l *Logger) Warn(message string, args ...any)  { l.logger.Warn(message, args...) }
