// Package catalog serves the product list, generated once at startup with a
// static fallback.
package catalog

import (
	"context"
	"log"
	"strings"

	"github.com/carinitosdigital/detalles/internal/analysis/text"
	"github.com/carinitosdigital/detalles/internal/model/catalog"
)

// AllCategories is the category filter value that disables filtering.
const AllCategories = "Todos"

// Source produces a product list.
type Source interface {
	Generate(ctx context.Context) ([]catalog.Product, error)
}

// Service wraps the catalog store with search and loading.
type Service struct {
	store  *catalog.MemoryStore
	source Source
}

// NewService starts with the seed catalog. source may be nil.
func NewService(source Source) *Service {
	return &Service{store: catalog.NewMemoryStore(catalog.Seed()), source: source}
}

// Load replaces the catalog with generated products. Any failure or an empty
// result keeps the seed catalog.
func (s *Service) Load(ctx context.Context) {
	if s.source == nil {
		log.Printf("[catalog] no generator configured, serving %d seed products", len(s.store.List()))
		return
	}
	products, err := s.source.Generate(ctx)
	if err != nil {
		log.Printf("[catalog] generation failed, keeping seed catalog: %v", err)
		return
	}
	if len(products) == 0 {
		log.Printf("[catalog] generator returned no products, keeping seed catalog")
		return
	}
	s.store.Replace(products)
	log.Printf("[catalog] loaded %d generated products", len(products))
}

// Store exposes the underlying catalog store.
func (s *Service) Store() catalog.Store {
	return s.store
}

// List returns every product.
func (s *Service) List() []catalog.Product {
	return s.store.List()
}

// FindByID looks a product up.
func (s *Service) FindByID(id string) (catalog.Product, bool) {
	return s.store.FindByID(id)
}

// Browse applies the category filter and then the search query.
func (s *Service) Browse(query, category string) []catalog.Product {
	return Search(query, FilterCategory(s.store.List(), category))
}

// Categories lists the distinct categories in first-seen order.
func (s *Service) Categories() []string {
	return Categories(s.store.List())
}

// Search matches query against name, category and description. Plain
// substring hits win; only when there are none, and the query is long
// enough, are near-miss spellings considered.
func Search(query string, products []catalog.Product) []catalog.Product {
	q := text.Normalize(query)
	if q == "" {
		return products
	}

	var exact []catalog.Product
	for _, p := range products {
		if strings.Contains(searchable(p), q) {
			exact = append(exact, p)
		}
	}
	if len(exact) > 0 {
		return exact
	}

	var fuzzy []catalog.Product
	for _, p := range products {
		if text.Matches(q, searchable(p)) {
			fuzzy = append(fuzzy, p)
		}
	}
	return fuzzy
}

func searchable(p catalog.Product) string {
	return text.Normalize(p.Name + " " + p.Category + " " + p.Description)
}

// FilterCategory keeps the products of one category; empty or AllCategories
// keeps everything.
func FilterCategory(products []catalog.Product, category string) []catalog.Product {
	if category == "" || category == AllCategories {
		return products
	}
	var out []catalog.Product
	for _, p := range products {
		if p.Category == category {
			out = append(out, p)
		}
	}
	return out
}

// Categories lists the distinct categories in first-seen order.
func Categories(products []catalog.Product) []string {
	seen := make(map[string]struct{})
	var out []string
	for _, p := range products {
		if _, ok := seen[p.Category]; ok || p.Category == "" {
			continue
		}
		seen[p.Category] = struct{}{}
		out = append(out, p.Category)
	}
	return out
}
