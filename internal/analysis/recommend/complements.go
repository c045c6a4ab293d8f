package recommend

import (
	"github.com/carinitosdigital/detalles/internal/analysis/text"
	"github.com/carinitosdigital/detalles/internal/model/catalog"
)

// DefaultComplementLimit is how many "complete your gift" items are suggested.
const DefaultComplementLimit = 4

var complementCategories = map[string]struct{}{
	"chocolates": {},
	"globos":     {},
	"tarjetas":   {},
	"mugs":       {},
	"peluches":   {},
	"empaques":   {},
}

// Complements suggests small add-ons for a cart: products in a complement
// category or under the budget threshold, skipping anything already in the
// cart. Catalog order is kept.
func (m *Matcher) Complements(items []catalog.Product, cartIDs []string, limit int) []catalog.Product {
	if limit <= 0 {
		limit = DefaultComplementLimit
	}
	skip := make(map[string]struct{}, len(cartIDs))
	for _, id := range cartIDs {
		skip[id] = struct{}{}
	}

	out := make([]catalog.Product, 0, limit)
	for _, item := range items {
		if len(out) == limit {
			break
		}
		if _, ok := skip[item.ID]; ok {
			continue
		}
		_, complement := complementCategories[text.Normalize(item.Category)]
		if !complement && item.Price >= m.budget {
			continue
		}
		skip[item.ID] = struct{}{}
		out = append(out, item)
	}
	return out
}
