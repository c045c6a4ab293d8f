// Package store is the persisted-session key/value layer. Every browser
// session gets its own namespace holding opaque string blobs.
package store

import (
	"context"
	"errors"
)

// Well-known keys.
const (
	KeyChatHistory      = "dc_chat_history"
	KeyCustomerInfo     = "dc_customerInfo"
	KeyChatFlow         = "dc_chat_flow"
	KeyCart             = "dc_cart"
	KeySelectedCategory = "dc_selectedCategory"
	KeyViewMode         = "dc_viewMode"
)

// ErrEmptyNamespace is returned when a scope is requested without a session id.
var ErrEmptyNamespace = errors.New("store namespace is required")

// Store is a get/set/remove blob store. A missing key is reported with ok=false
// and a nil error.
type Store interface {
	Get(ctx context.Context, key string) (value string, ok bool, err error)
	Set(ctx context.Context, key, value string) error
	Remove(ctx context.Context, key string) error
}

// Backend hands out per-session stores.
type Backend interface {
	Scope(namespace string) (Store, error)
	Close() error
}
