package store

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
)

// GetJSON decodes the value at key into out. Missing and malformed values
// both report false; malformed ones are logged and otherwise ignored.
func GetJSON(ctx context.Context, s Store, key string, out any) (bool, error) {
	raw, ok, err := s.Get(ctx, key)
	if err != nil || !ok {
		return false, err
	}
	if err := json.Unmarshal([]byte(raw), out); err != nil {
		log.Printf("[store] ignoring malformed %s: %v", key, err)
		return false, nil
	}
	return true, nil
}

// SetJSON encodes value and stores it at key.
func SetJSON(ctx context.Context, s Store, key string, value any) error {
	data, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("encode %s: %w", key, err)
	}
	return s.Set(ctx, key, string(data))
}
