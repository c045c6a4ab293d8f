package store

import (
	"context"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"time"

	bolt "go.etcd.io/bbolt"
)

var sessionsBucket = []byte("sessions")

// BoltBackend persists namespaces as nested buckets of a single bbolt file.
type BoltBackend struct {
	db *bolt.DB
}

// OpenBolt opens (creating if needed) the database at path.
func OpenBolt(path string) (*BoltBackend, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("create store dir: %w", err)
	}
	db, err := bolt.Open(path, 0o600, &bolt.Options{Timeout: 2 * time.Second})
	if err != nil {
		return nil, fmt.Errorf("open bolt store: %w", err)
	}
	err = db.Update(func(tx *bolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists(sessionsBucket)
		return err
	})
	if err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("init bolt store: %w", err)
	}
	log.Printf("[store] bolt database opened at %s", path)
	return &BoltBackend{db: db}, nil
}

// Scope returns the store for namespace.
func (b *BoltBackend) Scope(namespace string) (Store, error) {
	if namespace == "" {
		return nil, ErrEmptyNamespace
	}
	return &boltStore{db: b.db, namespace: []byte(namespace)}, nil
}

// Close releases the database file.
func (b *BoltBackend) Close() error {
	return b.db.Close()
}

type boltStore struct {
	db        *bolt.DB
	namespace []byte
}

func (s *boltStore) Get(ctx context.Context, key string) (string, bool, error) {
	if err := ctx.Err(); err != nil {
		return "", false, err
	}
	var (
		value string
		found bool
	)
	err := s.db.View(func(tx *bolt.Tx) error {
		root := tx.Bucket(sessionsBucket)
		if root == nil {
			return nil
		}
		space := root.Bucket(s.namespace)
		if space == nil {
			return nil
		}
		if raw := space.Get([]byte(key)); raw != nil {
			// raw is only valid inside the transaction
			value, found = string(raw), true
		}
		return nil
	})
	if err != nil {
		return "", false, fmt.Errorf("bolt get %s: %w", key, err)
	}
	return value, found, nil
}

func (s *boltStore) Set(ctx context.Context, key, value string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	err := s.db.Update(func(tx *bolt.Tx) error {
		root, err := tx.CreateBucketIfNotExists(sessionsBucket)
		if err != nil {
			return err
		}
		space, err := root.CreateBucketIfNotExists(s.namespace)
		if err != nil {
			return err
		}
		return space.Put([]byte(key), []byte(value))
	})
	if err != nil {
		return fmt.Errorf("bolt set %s: %w", key, err)
	}
	return nil
}

func (s *boltStore) Remove(ctx context.Context, key string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	err := s.db.Update(func(tx *bolt.Tx) error {
		root := tx.Bucket(sessionsBucket)
		if root == nil {
			return nil
		}
		space := root.Bucket(s.namespace)
		if space == nil {
			return nil
		}
		return space.Delete([]byte(key))
	})
	if err != nil {
		return fmt.Errorf("bolt remove %s: %w", key, err)
	}
	return nil
}
