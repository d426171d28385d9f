package ai

import (
	"context"

	"atsquick/internal/config"
	"atsquick/internal/errors"
	"atsquick/internal/types"
)

// PDFMIMEType tags resume payloads sent to the model
const PDFMIMEType = "application/pdf"

// Service runs resume analyses against a Generator
type Service struct {
	generator Generator
	prompts   *PromptResolver
	model     string
	logger    *errors.Logger
}

// NewService creates the analysis service for cfg. A missing API key is not an
// error here: the service stays unconfigured and every analysis reports it.
func NewService(ctx context.Context, cfg *config.Config, logger *errors.Logger) (*Service, error) {
	logger.Debug("Initializing AI service",
		"provider", cfg.AI.Provider,
		"model", cfg.AI.Model,
		"temperature", cfg.AI.Temperature,
		"timeout", cfg.AI.Timeout,
		"circuit_breaker", cfg.AI.CircuitBreaker.Enabled)

	service := &Service{
		prompts: NewPromptResolver(cfg),
		model:   cfg.AI.Model,
		logger:  logger,
	}

	if cfg.AI.APIKey == "" {
		logger.Warn("AI API key is not configured, analysis requests will fail")
		return service, nil
	}

	switch cfg.AI.Provider {
	case "", "gemini":
		provider, err := NewGeminiProvider(ctx, &cfg.AI, cfg.Observability.HealthCheck.AIModelCheckTimeout, logger)
		if err != nil {
			return nil, err
		}
		service.generator = provider
	default:
		return nil, errors.NewConfigError(errors.ErrCodeInvalidConfig,
			"Unsupported AI provider: "+cfg.AI.Provider, nil)
	}

	return service, nil
}

// NewServiceWithGenerator wires a service around an existing generator
func NewServiceWithGenerator(generator Generator, prompts *PromptResolver, model string, logger *errors.Logger) *Service {
	return &Service{
		generator: generator,
		prompts:   prompts,
		model:     model,
		logger:    logger,
	}
}

// Configured reports whether an AI credential was available at startup
func (s *Service) Configured() bool {
	return s.generator != nil
}

// Model returns the configured model name
func (s *Service) Model() string {
	return s.model
}

// Analyze sends a PDF resume to the model and normalizes its answer.
// Every returned error is an AppError whose code identifies the failure class.
func (s *Service) Analyze(ctx context.Context, pdf []byte) (types.AnalysisResult, *TokenUsage, error) {
	if !s.Configured() {
		return nil, nil, errors.NewConfigError(errors.ErrCodeMissingAPIKey, "AI API key is not configured", nil)
	}

	raw, usage, err := s.generator.Generate(ctx, Document{Data: pdf, MIMEType: PDFMIMEType}, s.prompts.AnalysisPrompt())
	if err != nil {
		return nil, usage, ClassifyError(err)
	}

	result, err := Normalize(raw)
	if err != nil {
		s.logger.LogError(err, "Model returned non-JSON output", "raw_output", raw)
		return nil, usage, err
	}

	return result, usage, nil
}

// GetModelInfo returns information about the AI model for health checks
func (s *Service) GetModelInfo(ctx context.Context) *ModelInfo {
	if !s.Configured() {
		return &ModelInfo{Name: s.model, Error: "AI API key is not configured"}
	}
	return s.generator.GetModelInfo(ctx)
}

// CircuitBreakerStats returns breaker state when the generator exposes it
func (s *Service) CircuitBreakerStats() map[string]any {
	if reporter, ok := s.generator.(interface{ GetCircuitBreakerStats() map[string]any }); ok {
		return reporter.GetCircuitBreakerStats()
	}
	return map[string]any{"enabled": false}
}

// Close releases the generator
func (s *Service) Close() error {
	if s.generator == nil {
		return nil
	}
	return s.generator.Close()
}
