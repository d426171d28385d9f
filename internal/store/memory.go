package store

import (
	"context"
	"sync"

	"atsquick/internal/errors"
	"atsquick/internal/types"
)

// MemoryStore keeps the result for the life of the process
type MemoryStore struct {
	mu      sync.RWMutex
	payload []byte
	logger  *errors.Logger
}

func NewMemoryStore(logger *errors.Logger) *MemoryStore {
	return &MemoryStore{logger: logger}
}

func (s *MemoryStore) Save(_ context.Context, result types.AnalysisResult) error {
	payload, err := encodeResult(result)
	if err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.payload = payload
	return nil
}

func (s *MemoryStore) Load(_ context.Context) (types.AnalysisResult, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.payload == nil {
		return nil, false
	}
	return decodeResult(s.payload, "memory", s.logger)
}

func (s *MemoryStore) Clear(_ context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.payload = nil
	return nil
}

func (s *MemoryStore) Close() error { return nil }
