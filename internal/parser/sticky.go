package parser

import (
	"context"
	"sync"
)

// MemoryStickyStore хранит last-saved значения в памяти процесса
type MemoryStickyStore struct {
	mu     sync.RWMutex
	values map[string]string
}

func NewMemoryStickyStore() *MemoryStickyStore {
	return &MemoryStickyStore{values: make(map[string]string)}
}

func (s *MemoryStickyStore) Get(_ context.Context, field string) (string, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	v, ok := s.values[field]
	return v, ok, nil
}

func (s *MemoryStickyStore) Set(_ context.Context, field, value string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.values[field] = value
	return nil
}
