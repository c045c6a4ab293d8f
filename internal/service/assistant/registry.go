package assistant

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/carinitosdigital/detalles/internal/model/chat"
	"github.com/carinitosdigital/detalles/internal/store"
)

// ErrInvalidSession is returned for session ids that are not uuids or that
// were never created.
var ErrInvalidSession = errors.New("invalid session id")

type entry struct {
	engine   *Engine
	lastUsed time.Time
}

// Registry keeps one engine per chat session. Engines are loaded lazily from
// the persisted store, so a returning visitor picks up where they left, and
// unloaded again after Options.SessionIdle without use.
type Registry struct {
	mu      sync.Mutex
	backend store.Backend
	deps    Deps
	opts    Options
	now     func() time.Time
	engines map[string]*entry

	stop chan struct{}
	done chan struct{}
}

// NewRegistry creates an empty registry. With a positive Options.SessionIdle
// it also starts the idle sweeper.
func NewRegistry(backend store.Backend, deps Deps, opts Options) *Registry {
	r := &Registry{
		backend: backend,
		deps:    deps,
		opts:    opts,
		now:     time.Now,
		engines: make(map[string]*entry),
		stop:    make(chan struct{}),
		done:    make(chan struct{}),
	}
	if opts.SessionIdle > 0 {
		go r.sweep(sweepInterval(opts.SessionIdle))
	} else {
		close(r.done)
	}
	return r
}

func sweepInterval(idle time.Duration) time.Duration {
	interval := idle / 4
	if interval < time.Second {
		interval = time.Second
	}
	return interval
}

// Create provisions a new anonymous session and stores its greeting, so the
// id stays valid after the engine is unloaded.
func (r *Registry) Create(ctx context.Context) (chat.Session, error) {
	sess := chat.Session{ID: uuid.NewString(), CreatedAt: time.Now().UTC()}
	s, err := r.backend.Scope(sess.ID)
	if err != nil {
		return chat.Session{}, err
	}
	e, err := New(ctx, sess.ID, s, r.deps, r.opts)
	if err != nil {
		return chat.Session{}, err
	}
	if err := e.session.Persist(ctx); err != nil {
		e.Close()
		return chat.Session{}, err
	}

	r.mu.Lock()
	r.engines[sess.ID] = &entry{engine: e, lastUsed: r.now()}
	r.mu.Unlock()

	log.Printf("[assistant] session created: %s", sess.ID)
	return sess, nil
}

// Get returns the engine for id, loading it from the store on first use.
// Ids with nothing stored are rejected rather than provisioned.
func (r *Registry) Get(ctx context.Context, id string) (*Engine, error) {
	if _, err := uuid.Parse(id); err != nil {
		return nil, fmt.Errorf("%w: %q", ErrInvalidSession, id)
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if ent, ok := r.engines[id]; ok {
		ent.lastUsed = r.now()
		return ent.engine, nil
	}

	s, err := r.backend.Scope(id)
	if err != nil {
		return nil, err
	}
	if _, ok, err := s.Get(ctx, store.KeyChatHistory); err != nil {
		return nil, fmt.Errorf("look up session: %w", err)
	} else if !ok {
		return nil, fmt.Errorf("%w: unknown session %s", ErrInvalidSession, id)
	}

	e, err := New(ctx, id, s, r.deps, r.opts)
	if err != nil {
		return nil, err
	}
	r.engines[id] = &entry{engine: e, lastUsed: r.now()}
	return e, nil
}

// Len reports how many engines are live.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.engines)
}

// Evict unloads engines unused for longer than the idle limit. Engines with a
// reply in progress or a connected client are kept. It returns how many were
// closed.
func (r *Registry) Evict() int {
	if r.opts.SessionIdle <= 0 {
		return 0
	}
	cutoff := r.now().Add(-r.opts.SessionIdle)

	r.mu.Lock()
	var idle []*Engine
	for id, ent := range r.engines {
		if ent.lastUsed.After(cutoff) || ent.engine.busy() {
			continue
		}
		idle = append(idle, ent.engine)
		delete(r.engines, id)
	}
	r.mu.Unlock()

	for _, e := range idle {
		e.Close()
	}
	if len(idle) > 0 {
		log.Printf("[assistant] unloaded %d idle sessions", len(idle))
	}
	return len(idle)
}

func (r *Registry) sweep(interval time.Duration) {
	defer close(r.done)
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-r.stop:
			return
		case <-ticker.C:
			r.Evict()
		}
	}
}

// Close stops the sweeper and tears down every engine.
func (r *Registry) Close() {
	r.mu.Lock()
	select {
	case <-r.stop:
	default:
		close(r.stop)
	}
	engines := r.engines
	r.engines = make(map[string]*entry)
	r.mu.Unlock()
	<-r.done

	for _, ent := range engines {
		ent.engine.Close()
	}
}
