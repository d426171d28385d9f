// Package store keeps the most recent analysis result between CLI invocations.
package store

import (
	"context"
	"encoding/json"
	"fmt"

	"atsquick/internal/config"
	"atsquick/internal/errors"
	"atsquick/internal/types"
)

// SlotKey names the single result slot
const SlotKey = "analysis"

// Store holds at most one analysis result. Every Save replaces the previous one.
type Store interface {
	Save(ctx context.Context, result types.AnalysisResult) error
	// Load reports false when nothing is stored or the stored data is unreadable
	Load(ctx context.Context) (types.AnalysisResult, bool)
	Clear(ctx context.Context) error
	Close() error
}

// New opens the backend selected by cfg
func New(cfg config.StoreConfig, logger *errors.Logger) (Store, error) {
	switch cfg.Backend {
	case "memory":
		return NewMemoryStore(logger), nil
	case "", "file":
		return NewFileStore(cfg.Path, logger)
	case "sqlite":
		return NewSQLiteStore(cfg.Path, logger)
	default:
		return nil, errors.NewConfigError(errors.ErrCodeInvalidConfig,
			fmt.Sprintf("unknown store backend: %s", cfg.Backend), nil)
	}
}

func encodeResult(result types.AnalysisResult) ([]byte, error) {
	if result == nil {
		return nil, fmt.Errorf("cannot store an empty analysis result")
	}
	payload, err := json.Marshal(result)
	if err != nil {
		return nil, fmt.Errorf("encoding analysis result: %w", err)
	}
	return payload, nil
}

// decodeResult parses a stored payload. Corrupt payloads are logged and treated as absent.
func decodeResult(payload []byte, source string, logger *errors.Logger) (types.AnalysisResult, bool) {
	var result types.AnalysisResult
	if err := json.Unmarshal(payload, &result); err != nil {
		if logger != nil {
			logger.Warn("Ignoring corrupt stored analysis", "source", source, "error", err.Error())
		}
		return nil, false
	}
	if result == nil {
		return nil, false
	}
	return result, true
}
