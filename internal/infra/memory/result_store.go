package memory

import (
	"context"
	"sync"

	"exam-session-service/internal/domain"
)

// ResultStore keeps scored results in memory (dev mode and tests).
type ResultStore struct {
	mu      sync.RWMutex
	results map[string]domain.Result
}

func NewResultStore() *ResultStore {
	return &ResultStore{results: make(map[string]domain.Result)}
}

func (s *ResultStore) SaveResult(_ context.Context, sessionID string, result domain.Result) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.results[sessionID] = result
	return nil
}

// GetResult returns a previously saved result.
func (s *ResultStore) GetResult(sessionID string) (domain.Result, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	result, ok := s.results[sessionID]
	return result, ok
}
