package session

import (
	"context"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/carinitosdigital/detalles/internal/model/chat"
	"github.com/carinitosdigital/detalles/internal/service/flow"
	"github.com/carinitosdigital/detalles/internal/store"
)

// Manager owns one visitor's transcript, flow state and collected order data,
// writing each mutation through to the persisted-session store.
type Manager struct {
	mu         sync.RWMutex
	store      store.Store
	now        func() time.Time
	transcript []chat.Message
	state      flow.State
}

// Option customizes a Manager.
type Option func(*Manager)

// WithClock overrides the time source.
func WithClock(now func() time.Time) Option {
	return func(m *Manager) { m.now = now }
}

// Load restores a Manager from s. Missing or malformed data falls back to the
// single greeting transcript and the Idle state.
func Load(ctx context.Context, s store.Store, opts ...Option) (*Manager, error) {
	m := &Manager{store: s, now: func() time.Time { return time.Now().UTC() }, state: flow.Idle}
	for _, opt := range opts {
		opt(m)
	}

	var history []chat.Message
	ok, err := store.GetJSON(ctx, s, store.KeyChatHistory, &history)
	if err != nil {
		return nil, fmt.Errorf("load transcript: %w", err)
	}
	if ok && len(history) > 0 {
		m.transcript = history
	} else {
		m.transcript = []chat.Message{chat.GreetingMessage(m.now())}
	}

	var raw string
	if ok, err := store.GetJSON(ctx, s, store.KeyChatFlow, &raw); err != nil {
		return nil, fmt.Errorf("load flow state: %w", err)
	} else if ok {
		if state, valid := flow.ParseState(raw); valid {
			m.state = state
		}
	}
	return m, nil
}

// Open reports whether there is history beyond the greeting to resume.
func (m *Manager) Open(context.Context) chat.OpenResult {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return chat.OpenResult{ResumeAvailable: len(m.transcript) > 1}
}

// Resume keeps the existing conversation and returns it.
func (m *Manager) Resume(context.Context) []chat.Message {
	return m.Transcript()
}

// Reset discards the conversation: the transcript goes back to the greeting,
// the flow to Idle and the collected order data is removed.
func (m *Manager) Reset(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.transcript = []chat.Message{chat.GreetingMessage(m.now())}
	m.state = flow.Idle

	if err := store.SetJSON(ctx, m.store, store.KeyChatHistory, m.transcript); err != nil {
		return fmt.Errorf("persist reset transcript: %w", err)
	}
	if err := store.SetJSON(ctx, m.store, store.KeyChatFlow, string(flow.Idle)); err != nil {
		return fmt.Errorf("persist reset flow: %w", err)
	}
	if err := m.store.Remove(ctx, store.KeyCustomerInfo); err != nil {
		return fmt.Errorf("clear order form: %w", err)
	}
	log.Printf("[session] conversation reset")
	return nil
}

// Persist writes the current transcript and flow state, so a session that
// has not spoken yet still exists in the store.
func (m *Manager) Persist(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := store.SetJSON(ctx, m.store, store.KeyChatHistory, m.transcript); err != nil {
		return fmt.Errorf("persist transcript: %w", err)
	}
	if err := store.SetJSON(ctx, m.store, store.KeyChatFlow, string(m.state)); err != nil {
		return fmt.Errorf("persist flow state: %w", err)
	}
	return nil
}

// Append adds msg to the transcript, filling in id and timestamp, and persists.
// The write happens under the lock so snapshots reach the store in order.
func (m *Manager) Append(ctx context.Context, msg chat.Message) (chat.Message, error) {
	if msg.ID == "" {
		msg.ID = uuid.NewString()
	}
	if msg.Timestamp.IsZero() {
		msg.Timestamp = m.now()
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	m.transcript = append(m.transcript, msg)

	if err := store.SetJSON(ctx, m.store, store.KeyChatHistory, m.transcript); err != nil {
		return msg, fmt.Errorf("persist transcript: %w", err)
	}
	return msg, nil
}

// Transcript returns a copy of the messages in insertion order.
func (m *Manager) Transcript() []chat.Message {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return append([]chat.Message(nil), m.transcript...)
}

// State returns the current flow state.
func (m *Manager) State() flow.State {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.state
}

// SetState records the flow state.
func (m *Manager) SetState(ctx context.Context, state flow.State) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.state = state
	if err := store.SetJSON(ctx, m.store, store.KeyChatFlow, string(state)); err != nil {
		return fmt.Errorf("persist flow state: %w", err)
	}
	return nil
}

// Order reads the collected order data. The checkout form shares this record,
// so it is always read from the store.
func (m *Manager) Order(ctx context.Context) (chat.OrderData, error) {
	var order chat.OrderData
	if _, err := store.GetJSON(ctx, m.store, store.KeyCustomerInfo, &order); err != nil {
		return chat.OrderData{}, fmt.Errorf("load order form: %w", err)
	}
	return order, nil
}

// MergeOrder applies patch to the persisted order data (read-modify-write,
// last write wins) and returns the merged record.
func (m *Manager) MergeOrder(ctx context.Context, patch chat.OrderPatch) (chat.OrderData, error) {
	if patch.Empty() {
		return m.Order(ctx)
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	var current chat.OrderData
	if _, err := store.GetJSON(ctx, m.store, store.KeyCustomerInfo, &current); err != nil {
		return chat.OrderData{}, fmt.Errorf("load order form: %w", err)
	}
	merged := current.Apply(patch)
	if err := store.SetJSON(ctx, m.store, store.KeyCustomerInfo, merged); err != nil {
		return current, fmt.Errorf("persist order form: %w", err)
	}
	return merged, nil
}
