package assistant

import (
	"context"
	"errors"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/carinitosdigital/detalles/internal/store"
)

func TestRegistryRejectsInvalidID(t *testing.T) {
	r := NewRegistry(store.NewMemoryBackend(), testDeps(), quickOptions())
	defer r.Close()
	if _, err := r.Get(context.Background(), "../etc"); !errors.Is(err, ErrInvalidSession) {
		t.Fatalf("expected ErrInvalidSession, got %v", err)
	}
}

func TestRegistryReusesEngines(t *testing.T) {
	r := NewRegistry(store.NewMemoryBackend(), testDeps(), quickOptions())
	defer r.Close()
	ctx := context.Background()

	sess, err := r.Create(ctx)
	if err != nil {
		t.Fatalf("Create err: %v", err)
	}
	a, err := r.Get(ctx, sess.ID)
	if err != nil {
		t.Fatalf("Get err: %v", err)
	}
	b, _ := r.Get(ctx, sess.ID)
	if a != b || r.Len() != 1 {
		t.Fatalf("expected a single cached engine")
	}
}

func TestRegistryRestoresFromBolt(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sessions.db")
	ctx := context.Background()

	backend, err := store.OpenBolt(path)
	if err != nil {
		t.Fatalf("OpenBolt err: %v", err)
	}
	r := NewRegistry(backend, testDeps(), quickOptions())
	sess, err := r.Create(ctx)
	if err != nil {
		t.Fatalf("Create err: %v", err)
	}
	e, _ := r.Get(ctx, sess.ID)
	events, cancel := e.Subscribe()
	if _, err := e.Submit(ctx, "hola"); err != nil {
		t.Fatalf("Submit err: %v", err)
	}
	waitEvent(t, events, isReply)
	cancel()
	r.Close()
	if err := backend.Close(); err != nil {
		t.Fatalf("Close err: %v", err)
	}

	backend, err = store.OpenBolt(path)
	if err != nil {
		t.Fatalf("reopen err: %v", err)
	}
	defer backend.Close()
	r = NewRegistry(backend, testDeps(), quickOptions())
	defer r.Close()

	e, err = r.Get(ctx, sess.ID)
	if err != nil {
		t.Fatalf("Get err: %v", err)
	}
	if got := len(e.Transcript()); got != 3 {
		t.Fatalf("expected restored transcript of 3, got %d", got)
	}
	if res := e.Open(ctx); !res.ResumeAvailable {
		t.Fatalf("restored session should offer resume")
	}
}

func TestRegistryRejectsUnknownSession(t *testing.T) {
	r := NewRegistry(store.NewMemoryBackend(), testDeps(), quickOptions())
	defer r.Close()
	if _, err := r.Get(context.Background(), uuid.NewString()); !errors.Is(err, ErrInvalidSession) {
		t.Fatalf("expected ErrInvalidSession, got %v", err)
	}
	if r.Len() != 0 {
		t.Fatalf("unknown ids must not load an engine, got %d", r.Len())
	}
}

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

func TestRegistryEvictsIdleSessions(t *testing.T) {
	opts := quickOptions()
	opts.SessionIdle = time.Hour
	r := NewRegistry(store.NewMemoryBackend(), testDeps(), opts)
	defer r.Close()
	clock := &fakeClock{now: time.Date(2024, 2, 14, 9, 0, 0, 0, time.UTC)}
	r.now = clock.Now
	ctx := context.Background()

	idle, err := r.Create(ctx)
	if err != nil {
		t.Fatalf("Create err: %v", err)
	}
	watched, err := r.Create(ctx)
	if err != nil {
		t.Fatalf("Create err: %v", err)
	}
	w, _ := r.Get(ctx, watched.ID)
	_, unsubscribe := w.Subscribe()
	defer unsubscribe()

	clock.Advance(30 * time.Minute)
	if n := r.Evict(); n != 0 {
		t.Fatalf("nothing is idle yet, evicted %d", n)
	}

	clock.Advance(time.Hour)
	if n := r.Evict(); n != 1 || r.Len() != 1 {
		t.Fatalf("expected only the idle session unloaded, evicted=%d live=%d", n, r.Len())
	}

	e, err := r.Get(ctx, idle.ID)
	if err != nil {
		t.Fatalf("evicted session should reload from the store: %v", err)
	}
	if got := len(e.Transcript()); got != 1 {
		t.Fatalf("expected greeting transcript, got %d messages", got)
	}
}
