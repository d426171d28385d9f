package ai

import (
	"context"
)

// Document is a binary payload sent to the model alongside the instructions
type Document struct {
	Data     []byte
	MIMEType string
}

// Generator produces raw model text for a document and an instruction prompt.
// Token usage is optional and may be nil.
type Generator interface {
	Generate(ctx context.Context, doc Document, instructions string) (string, *TokenUsage, error)
	GetModelInfo(ctx context.Context) *ModelInfo
	Close() error
}

// TokenUsage represents token usage information from AI responses
type TokenUsage struct {
	InputTokens  int64
	OutputTokens int64
	TotalTokens  int64
}

// ModelInfo represents information about the AI model
type ModelInfo struct {
	Name        string `json:"name"`
	DisplayName string `json:"displayName,omitempty"`
	Version     string `json:"version,omitempty"`
	Available   bool   `json:"available"`
	Error       string `json:"error,omitempty"`
}
