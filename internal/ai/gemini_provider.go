package ai

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"atsquick/internal/config"
	"atsquick/internal/errors"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"google.golang.org/genai"
)

const defaultModelCheckTimeout = 10 * time.Second

// GeminiProvider implements Generator for Google Gemini
type GeminiProvider struct {
	client            *genai.Client
	config            *config.AIConfig
	modelCheckTimeout time.Duration
	circuitBreaker    *AICircuitBreaker
	modelBreaker      *ModelCircuitBreaker
	logger            *errors.Logger
}

// Ensure GeminiProvider implements Generator
var _ Generator = (*GeminiProvider)(nil)

// NewGeminiProvider creates a Gemini client for cfg. Outbound calls go through an
// otelhttp transport so they join the request trace.
func NewGeminiProvider(ctx context.Context, cfg *config.AIConfig, modelCheckTimeout time.Duration, logger *errors.Logger) (*GeminiProvider, error) {
	if cfg.APIKey == "" {
		return nil, errors.NewConfigError(errors.ErrCodeMissingAPIKey, "Gemini API key is not configured", nil)
	}

	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  cfg.APIKey,
		Backend: genai.BackendGeminiAPI,
		HTTPOptions: genai.HTTPOptions{
			BaseURL: cfg.BaseURL,
		},
		HTTPClient: &http.Client{
			Transport: otelhttp.NewTransport(http.DefaultTransport),
		},
	})
	if err != nil {
		return nil, errors.NewAIError(errors.ErrCodeAIServiceFailed,
			"Failed to create Gemini client", err)
	}

	if modelCheckTimeout <= 0 {
		modelCheckTimeout = defaultModelCheckTimeout
	}

	return &GeminiProvider{
		client:            client,
		config:            cfg,
		modelCheckTimeout: modelCheckTimeout,
		circuitBreaker:    NewAICircuitBreaker(cfg.CircuitBreaker, logger),
		modelBreaker:      NewModelCircuitBreaker(cfg.CircuitBreaker, logger),
		logger:            logger,
	}, nil
}

// Generate sends the document as inline data together with the instructions and
// returns the model's raw text. The call is bounded by the configured AI timeout.
func (g *GeminiProvider) Generate(ctx context.Context, doc Document, instructions string) (string, *TokenUsage, error) {
	tracer := otel.Tracer("atsquick.ai.gemini")
	ctx, span := tracer.Start(ctx, "gemini.analyze_resume")
	defer span.End()

	span.SetAttributes(
		attribute.String("ai.provider", "gemini"),
		attribute.String("ai.model", g.config.Model),
		attribute.Float64("ai.temperature", float64(g.config.Temperature)),
		attribute.Int("input.document_bytes", len(doc.Data)),
		attribute.String("input.document_mime", doc.MIMEType),
		attribute.Int("input.prompt_length", len(instructions)),
	)

	callCtx, cancel := context.WithTimeout(ctx, g.config.Timeout)
	defer cancel()

	contents := []*genai.Content{
		genai.NewContentFromParts([]*genai.Part{
			genai.NewPartFromBytes(doc.Data, doc.MIMEType),
			genai.NewPartFromText(instructions),
		}, genai.RoleUser),
	}

	result, err := g.circuitBreaker.Execute(func() (*genai.GenerateContentResponse, error) {
		return g.client.Models.GenerateContent(callCtx, g.config.Model, contents, g.buildGenerateConfig())
	})
	if err != nil {
		span.RecordError(err)
		span.SetAttributes(attribute.Bool("success", false))
		return "", nil, errors.NewAIError(errors.ErrCodeAIServiceFailed, "Failed to generate resume analysis", err).
			WithContext("model", g.config.Model)
	}

	text := result.Text()
	tokenUsage := extractTokenUsage(result)
	if tokenUsage != nil {
		span.SetAttributes(
			attribute.Int64("ai.tokens.input", tokenUsage.InputTokens),
			attribute.Int64("ai.tokens.output", tokenUsage.OutputTokens),
			attribute.Int64("ai.tokens.total", tokenUsage.TotalTokens),
		)
	}

	span.SetAttributes(
		attribute.Int("output.text_length", len(text)),
		attribute.Bool("success", true),
	)
	return text, tokenUsage, nil
}

// buildGenerateConfig asks for JSON output; the normalizer still handles prose
func (g *GeminiProvider) buildGenerateConfig() *genai.GenerateContentConfig {
	cfg := &genai.GenerateContentConfig{
		ResponseMIMEType: "application/json",
	}
	if g.config.Temperature > 0 {
		temperature := g.config.Temperature
		cfg.Temperature = &temperature
	}
	return cfg
}

// GetModelInfo checks the readiness and availability of the configured model
func (g *GeminiProvider) GetModelInfo(ctx context.Context) *ModelInfo {
	modelInfo := &ModelInfo{
		Name:      g.config.Model,
		Available: false,
	}

	checkCtx, cancel := context.WithTimeout(ctx, g.modelCheckTimeout)
	defer cancel()

	model, err := g.modelBreaker.ExecuteModel(func() (*genai.Model, error) {
		return g.client.Models.Get(checkCtx, g.config.Model, &genai.GetModelConfig{})
	})
	if err != nil {
		modelInfo.Error = fmt.Sprintf("Failed to get model info: %v", err)
		g.logger.Warn("Model availability check failed",
			"model", g.config.Model,
			"error", err.Error())
		return modelInfo
	}

	modelInfo.Available = true
	modelInfo.DisplayName = model.DisplayName
	modelInfo.Version = model.Version

	g.logger.Debug("Model availability check successful",
		"model", g.config.Model,
		"display_name", modelInfo.DisplayName,
		"version", modelInfo.Version)

	return modelInfo
}

// GetCircuitBreakerStats returns circuit breaker statistics
func (g *GeminiProvider) GetCircuitBreakerStats() map[string]any {
	return map[string]any{
		"ai_operations":    g.circuitBreaker.GetStats(),
		"model_operations": g.modelBreaker.GetModelStats(),
		"overall_healthy":  g.circuitBreaker.IsHealthy() && g.modelBreaker.IsModelHealthy(),
	}
}

// Close implements Generator. The genai client holds no resources in single-shot use.
func (g *GeminiProvider) Close() error {
	return nil
}

// extractTokenUsage extracts token usage information from Gemini API response
func extractTokenUsage(result *genai.GenerateContentResponse) *TokenUsage {
	if result == nil || result.UsageMetadata == nil {
		return nil
	}

	usage := result.UsageMetadata
	return &TokenUsage{
		InputTokens:  int64(usage.PromptTokenCount),
		OutputTokens: int64(usage.CandidatesTokenCount),
		TotalTokens:  int64(usage.TotalTokenCount),
	}
}
