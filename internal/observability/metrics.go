package observability

import (
	"context"
	"errors"
	"fmt"
	"time"

	"atsquick/internal/config"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// Business metric kinds accepted by RecordBusinessMetric
const (
	MetricResumeAnalyzed       = "resume_analyzed"
	MetricNormalizationFailure = "normalization_failed"
	MetricContactMessage       = "contact_message"
	MetricBotRejection         = "bot_rejection"
	MetricRateLimitHit         = "rate_limit_hit"
)

// businessCounters lists the counter behind each business metric kind
var businessCounters = []struct {
	kind        string
	name        string
	description string
}{
	{MetricResumeAnalyzed, "atsquick_resumes_analyzed_total", "Resume analysis requests by outcome"},
	{MetricNormalizationFailure, "atsquick_normalization_failures_total", "Model replies that could not be parsed into an analysis"},
	{MetricContactMessage, "atsquick_contact_messages_total", "Contact form submissions by outcome"},
	{MetricBotRejection, "atsquick_bot_rejections_total", "Contact submissions rejected by bot verification"},
	{MetricRateLimitHit, "atsquick_rate_limit_hits_total", "Requests rejected by the rate limiter"},
}

// metricSwitches decides which instruments record. With no config everything does.
type metricSwitches struct {
	aiCalls    bool
	aiDuration bool
	aiTokens   bool
	uploads    bool
	kinds      map[string]bool
}

func switchesFor(full *config.Config) metricSwitches {
	if full == nil {
		kinds := make(map[string]bool, len(businessCounters))
		for _, c := range businessCounters {
			kinds[c.kind] = true
		}
		return metricSwitches{aiCalls: true, aiDuration: true, aiTokens: true, uploads: true, kinds: kinds}
	}

	custom := full.Observability.CustomMetrics
	ai := custom.AIOperations
	business := custom.BusinessMetrics
	infra := custom.Infrastructure

	return metricSwitches{
		aiCalls:    ai.Enabled,
		aiDuration: ai.Enabled && ai.TrackDuration,
		aiTokens:   ai.Enabled && ai.TrackTokenUsage,
		uploads:    business.Enabled && business.TrackContentSizes,
		kinds: map[string]bool{
			MetricResumeAnalyzed:       business.Enabled,
			MetricNormalizationFailure: business.Enabled,
			MetricContactMessage:       business.Enabled && business.TrackContact,
			MetricBotRejection:         business.Enabled && business.TrackContact,
			MetricRateLimitHit:         infra.Enabled && infra.TrackRateLimits,
		},
	}
}

// Metrics records the service's own instruments. The zero value records nothing.
type Metrics struct {
	aiDuration metric.Float64Histogram
	aiRequests metric.Int64Counter
	aiErrors   metric.Int64Counter
	aiTokens   metric.Int64Histogram
	uploadSize metric.Int64Histogram
	counters   map[string]metric.Int64Counter

	on metricSwitches
}

func newMetrics(meter metric.Meter, on metricSwitches) (*Metrics, error) {
	m := &Metrics{on: on, counters: make(map[string]metric.Int64Counter, len(businessCounters))}
	var errs []error
	keep := func(err error) {
		if err != nil {
			errs = append(errs, err)
		}
	}

	var err error
	m.aiDuration, err = meter.Float64Histogram("atsquick_ai_processing_duration_seconds",
		metric.WithDescription("Time spent waiting for the model to analyze a resume"), metric.WithUnit("s"))
	keep(err)
	m.aiRequests, err = meter.Int64Counter("atsquick_ai_requests_total",
		metric.WithDescription("Model calls by outcome"))
	keep(err)
	m.aiErrors, err = meter.Int64Counter("atsquick_ai_errors_total",
		metric.WithDescription("Failed model calls by error code"))
	keep(err)
	m.aiTokens, err = meter.Int64Histogram("atsquick_ai_token_usage",
		metric.WithDescription("Tokens per model call by token type"), metric.WithUnit("tokens"))
	keep(err)
	m.uploadSize, err = meter.Int64Histogram("atsquick_upload_size_bytes",
		metric.WithDescription("Size of accepted resume uploads"), metric.WithUnit("By"))
	keep(err)

	for _, c := range businessCounters {
		counter, err := meter.Int64Counter(c.name, metric.WithDescription(c.description))
		keep(err)
		m.counters[c.kind] = counter
	}

	if len(errs) > 0 {
		return nil, fmt.Errorf("failed to create metrics: %w", errors.Join(errs...))
	}
	return m, nil
}

// AIOperationResult holds the result of an AI operation including token usage
type AIOperationResult struct {
	Error      error
	ErrorCode  string
	TokenUsage *TokenUsage
}

// TokenUsage represents token usage information from AI responses
type TokenUsage struct {
	InputTokens  int64
	OutputTokens int64
	TotalTokens  int64
}

// TrackAIOperationWithTokens runs fn inside a span and records its duration,
// outcome and token usage. It returns fn's error.
func (m *Metrics) TrackAIOperationWithTokens(ctx context.Context, operation string, fn func(context.Context) *AIOperationResult) error {
	if m.aiRequests == nil {
		if result := fn(ctx); result != nil {
			return result.Error
		}
		return nil
	}

	ctx, span := otel.Tracer(defaultServiceName+".ai").Start(ctx, "ai."+operation)
	defer span.End()

	start := time.Now()
	result := fn(ctx)
	if result == nil {
		result = &AIOperationResult{}
	}
	elapsed := time.Since(start).Seconds()

	attrs := []attribute.KeyValue{
		attribute.String("operation", operation),
		attribute.Bool("success", result.Error == nil),
	}
	span.SetAttributes(attrs...)
	opt := metric.WithAttributes(attrs...)

	if m.on.aiCalls {
		m.aiRequests.Add(ctx, 1, opt)
		if result.Error != nil {
			m.aiErrors.Add(ctx, 1, metric.WithAttributes(append(attrs, attribute.String("error_code", result.ErrorCode))...))
		}
	}
	if m.on.aiDuration {
		m.aiDuration.Record(ctx, elapsed, opt)
	}

	if usage := result.TokenUsage; usage != nil {
		span.SetAttributes(
			attribute.Int64("ai.tokens.input", usage.InputTokens),
			attribute.Int64("ai.tokens.output", usage.OutputTokens),
			attribute.Int64("ai.tokens.total", usage.TotalTokens),
		)
		if m.on.aiTokens {
			for tokenType, n := range map[string]int64{"input": usage.InputTokens, "output": usage.OutputTokens, "total": usage.TotalTokens} {
				m.aiTokens.Record(ctx, n, metric.WithAttributes(append(attrs, attribute.String("token_type", tokenType))...))
			}
		}
	}

	if result.Error != nil {
		span.RecordError(result.Error)
	}
	return result.Error
}

// RecordUploadSize records the size of an accepted upload
func (m *Metrics) RecordUploadSize(ctx context.Context, size int64) {
	if m.uploadSize == nil || !m.on.uploads {
		return
	}
	m.uploadSize.Record(ctx, size)
}

// RecordBusinessMetric adds one to the counter for kind. Unknown kinds are ignored.
func (m *Metrics) RecordBusinessMetric(ctx context.Context, kind string, success bool, attributes ...attribute.KeyValue) {
	counter, ok := m.counters[kind]
	if !ok || !m.on.kinds[kind] {
		return
	}
	attrs := append([]attribute.KeyValue{attribute.Bool("success", success)}, attributes...)
	counter.Add(ctx, 1, metric.WithAttributes(attrs...))
}
