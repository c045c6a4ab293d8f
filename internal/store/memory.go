package store

import (
	"context"
	"sync"
)

// MemoryBackend keeps every namespace in process memory.
type MemoryBackend struct {
	mu     sync.RWMutex
	spaces map[string]map[string]string
}

// NewMemoryBackend returns an empty in-memory backend.
func NewMemoryBackend() *MemoryBackend {
	return &MemoryBackend{spaces: make(map[string]map[string]string)}
}

// Scope returns the store for namespace.
func (b *MemoryBackend) Scope(namespace string) (Store, error) {
	if namespace == "" {
		return nil, ErrEmptyNamespace
	}
	return &memoryStore{backend: b, namespace: namespace}, nil
}

// Close is a no-op.
func (b *MemoryBackend) Close() error { return nil }

type memoryStore struct {
	backend   *MemoryBackend
	namespace string
}

func (s *memoryStore) Get(_ context.Context, key string) (string, bool, error) {
	s.backend.mu.RLock()
	defer s.backend.mu.RUnlock()
	value, ok := s.backend.spaces[s.namespace][key]
	return value, ok, nil
}

func (s *memoryStore) Set(_ context.Context, key, value string) error {
	s.backend.mu.Lock()
	defer s.backend.mu.Unlock()
	space, ok := s.backend.spaces[s.namespace]
	if !ok {
		space = make(map[string]string)
		s.backend.spaces[s.namespace] = space
	}
	space[key] = value
	return nil
}

func (s *memoryStore) Remove(_ context.Context, key string) error {
	s.backend.mu.Lock()
	defer s.backend.mu.Unlock()
	delete(s.backend.spaces[s.namespace], key)
	return nil
}

// NewMemory returns a standalone in-memory Store, handy for tests and tools.
func NewMemory() Store {
	s, _ := NewMemoryBackend().Scope("default")
	return s
}
