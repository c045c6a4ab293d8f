// Package cart keeps a visitor's shopping cart in the persisted-session store.
package cart

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"

	"github.com/carinitosdigital/detalles/internal/model/catalog"
	"github.com/carinitosdigital/detalles/internal/store"
)

// ErrItemNotFound is returned when an operation names a product not in the cart.
var ErrItemNotFound = errors.New("cart item not found")

// Item is a product line with its quantity.
type Item struct {
	catalog.Product
	Quantity int `json:"quantity"`
}

// Subtotal is price times quantity.
func (i Item) Subtotal() int64 {
	return i.Price * int64(i.Quantity)
}

// Cart reads and writes the dc_cart record of one session.
type Cart struct {
	mu    sync.Mutex
	store store.Store
}

// New binds a cart to a session store.
func New(s store.Store) *Cart {
	return &Cart{store: s}
}

// Items returns the cart lines in insertion order.
func (c *Cart) Items(ctx context.Context) ([]Item, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.load(ctx)
}

// AddItem adds one unit of p, incrementing the line if it already exists.
func (c *Cart) AddItem(ctx context.Context, p catalog.Product) ([]Item, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	items, err := c.load(ctx)
	if err != nil {
		return nil, err
	}
	found := false
	for i := range items {
		if items[i].ID == p.ID {
			items[i].Quantity++
			found = true
			break
		}
	}
	if !found {
		items = append(items, Item{Product: p, Quantity: 1})
	}
	log.Printf("[cart] add %s (lines=%d)", p.ID, len(items))
	return items, c.save(ctx, items)
}

// UpdateQuantity sets the quantity of a line. Zero or less removes it.
func (c *Cart) UpdateQuantity(ctx context.Context, productID string, quantity int) ([]Item, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	items, err := c.load(ctx)
	if err != nil {
		return nil, err
	}
	idx := indexOf(items, productID)
	if idx < 0 {
		return items, ErrItemNotFound
	}
	if quantity <= 0 {
		items = append(items[:idx], items[idx+1:]...)
	} else {
		items[idx].Quantity = quantity
	}
	return items, c.save(ctx, items)
}

// Remove drops a line.
func (c *Cart) Remove(ctx context.Context, productID string) ([]Item, error) {
	return c.UpdateQuantity(ctx, productID, 0)
}

// Clear empties the cart.
func (c *Cart) Clear(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.save(ctx, []Item{})
}

func (c *Cart) load(ctx context.Context) ([]Item, error) {
	var items []Item
	ok, err := store.GetJSON(ctx, c.store, store.KeyCart, &items)
	if err != nil {
		return nil, fmt.Errorf("load cart: %w", err)
	}
	if !ok {
		return nil, nil
	}
	return items, nil
}

func (c *Cart) save(ctx context.Context, items []Item) error {
	if err := store.SetJSON(ctx, c.store, store.KeyCart, items); err != nil {
		return fmt.Errorf("persist cart: %w", err)
	}
	return nil
}

func indexOf(items []Item, productID string) int {
	for i, it := range items {
		if it.ID == productID {
			return i
		}
	}
	return -1
}

// Total sums the subtotals.
func Total(items []Item) int64 {
	var total int64
	for _, it := range items {
		total += it.Subtotal()
	}
	return total
}

// Count sums the quantities.
func Count(items []Item) int {
	n := 0
	for _, it := range items {
		n += it.Quantity
	}
	return n
}

// IDs lists the product ids in the cart.
func IDs(items []Item) []string {
	ids := make([]string, len(items))
	for i, it := range items {
		ids[i] = it.ID
	}
	return ids
}
