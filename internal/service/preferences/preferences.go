// Package preferences stores the storefront's display choices per session.
package preferences

import (
	"context"
	"errors"
	"fmt"

	"github.com/carinitosdigital/detalles/internal/store"
)

// ViewMode is how the catalog is laid out.
type ViewMode string

const (
	ViewGrid   ViewMode = "grid"
	ViewList   ViewMode = "list"
	ViewSingle ViewMode = "single"

	DefaultViewMode = ViewList
)

// ErrInvalidViewMode is returned for a view mode outside grid, list and single.
var ErrInvalidViewMode = errors.New("invalid view mode")

// Preferences is the persisted display state. An empty category means all.
type Preferences struct {
	SelectedCategory string   `json:"selectedCategory"`
	ViewMode         ViewMode `json:"viewMode"`
}

// Valid reports whether v is a known view mode.
func (v ViewMode) Valid() bool {
	switch v {
	case ViewGrid, ViewList, ViewSingle:
		return true
	}
	return false
}

// Load reads the preferences, defaulting what is missing or unknown.
func Load(ctx context.Context, s store.Store) (Preferences, error) {
	prefs := Preferences{ViewMode: DefaultViewMode}

	var category string
	if _, err := store.GetJSON(ctx, s, store.KeySelectedCategory, &category); err != nil {
		return prefs, fmt.Errorf("load category: %w", err)
	}
	prefs.SelectedCategory = category

	var mode ViewMode
	if _, err := store.GetJSON(ctx, s, store.KeyViewMode, &mode); err != nil {
		return prefs, fmt.Errorf("load view mode: %w", err)
	}
	if mode.Valid() {
		prefs.ViewMode = mode
	}
	return prefs, nil
}

// Save validates and persists p.
func Save(ctx context.Context, s store.Store, p Preferences) (Preferences, error) {
	if p.ViewMode == "" {
		p.ViewMode = DefaultViewMode
	}
	if !p.ViewMode.Valid() {
		return Preferences{}, fmt.Errorf("%w: %q", ErrInvalidViewMode, p.ViewMode)
	}
	if err := store.SetJSON(ctx, s, store.KeySelectedCategory, p.SelectedCategory); err != nil {
		return Preferences{}, err
	}
	if err := store.SetJSON(ctx, s, store.KeyViewMode, p.ViewMode); err != nil {
		return Preferences{}, err
	}
	return p, nil
}
