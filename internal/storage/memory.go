package storage

import (
	"context"
	"fmt"
	"sync"

	"github.com/v0xg/webmacro/internal/macro"
)

// MemoryStore implements macro.Repository using in-memory storage
type MemoryStore struct {
	macros map[string]macro.Macro
	mu     sync.RWMutex
}

// NewMemoryStore creates an empty in-memory store
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		macros: make(map[string]macro.Macro),
	}
}

func (s *MemoryStore) Save(_ context.Context, m macro.Macro) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.macros[m.Name] = m.Clone()
	return nil
}

func (s *MemoryStore) Get(_ context.Context, name string) (macro.Macro, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	m, exists := s.macros[name]
	if !exists {
		return macro.Macro{}, fmt.Errorf("%w: %s", macro.ErrNotFound, name)
	}
	return m.Clone(), nil
}

func (s *MemoryStore) List(_ context.Context) ([]macro.Macro, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	macros := make([]macro.Macro, 0, len(s.macros))
	for _, m := range s.macros {
		macros = append(macros, m.Clone())
	}
	return macros, nil
}

func (s *MemoryStore) Delete(_ context.Context, name string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.macros, name)
	return nil
}
