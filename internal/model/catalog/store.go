package catalog

import "sync"

// Store exposes catalog retrieval to the assistant and HTTP handlers.
type Store interface {
	List() []Product
	FindByID(id string) (Product, bool)
}

// MemoryStore implements Store over an in-memory snapshot. Replace swaps the
// snapshot atomically, so readers never observe a partially loaded catalog.
type MemoryStore struct {
	mu    sync.RWMutex
	items []Product
}

// NewMemoryStore returns a MemoryStore preloaded with the supplied products.
func NewMemoryStore(items []Product) *MemoryStore {
	return &MemoryStore{items: append([]Product(nil), items...)}
}

// List returns a copy of the catalog in its original order.
func (s *MemoryStore) List() []Product {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]Product(nil), s.items...)
}

// FindByID looks up a product by identifier.
func (s *MemoryStore) FindByID(id string) (Product, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, item := range s.items {
		if item.ID == id {
			return item, true
		}
	}
	return Product{}, false
}

// Replace swaps the whole catalog.
func (s *MemoryStore) Replace(items []Product) {
	s.mu.Lock()
	s.items = append([]Product(nil), items...)
	s.mu.Unlock()
}
