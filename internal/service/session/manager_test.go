package session

import (
	"context"
	"encoding/json"
	"sync"
	"testing"
	"time"

	"github.com/carinitosdigital/detalles/internal/model/chat"
	"github.com/carinitosdigital/detalles/internal/service/flow"
	"github.com/carinitosdigital/detalles/internal/store"
)

var fixed = time.Date(2024, 2, 14, 9, 0, 0, 0, time.UTC)

func load(t *testing.T, s store.Store) *Manager {
	t.Helper()
	m, err := Load(context.Background(), s, WithClock(func() time.Time { return fixed }))
	if err != nil {
		t.Fatalf("Load err: %v", err)
	}
	return m
}

func strPtr(s string) *string { return &s }

func TestFreshSessionStartsWithGreeting(t *testing.T) {
	m := load(t, store.NewMemory())
	transcript := m.Transcript()
	if len(transcript) != 1 || transcript[0].Text != chat.Greeting || transcript[0].Role != chat.RoleAssistant {
		t.Fatalf("unexpected initial transcript: %+v", transcript)
	}
	if m.Open(context.Background()).ResumeAvailable {
		t.Fatal("fresh session should not offer resume")
	}
	if m.State() != flow.Idle {
		t.Fatalf("expected Idle, got %s", m.State())
	}
}

func TestResumeAvailableAfterExchangeAndNotAfterReset(t *testing.T) {
	ctx := context.Background()
	s := store.NewMemory()
	m := load(t, s)

	if _, err := m.Append(ctx, chat.Message{Role: chat.RoleUser, Text: "hola"}); err != nil {
		t.Fatalf("Append err: %v", err)
	}

	reopened := load(t, s)
	if !reopened.Open(ctx).ResumeAvailable {
		t.Fatal("expected resume to be available after an exchange")
	}
	if got := reopened.Resume(ctx); len(got) != 2 || got[1].Text != "hola" {
		t.Fatalf("resume should restore the transcript, got %+v", got)
	}

	if err := reopened.Reset(ctx); err != nil {
		t.Fatalf("Reset err: %v", err)
	}
	again := load(t, s)
	if again.Open(ctx).ResumeAvailable {
		t.Fatal("expected no resume after reset")
	}
}

func TestResetClearsStateAndOrder(t *testing.T) {
	ctx := context.Background()
	s := store.NewMemory()
	m := load(t, s)

	if err := m.SetState(ctx, flow.AskingAddress); err != nil {
		t.Fatalf("SetState err: %v", err)
	}
	if _, err := m.MergeOrder(ctx, chat.OrderPatch{Name: strPtr("Ana")}); err != nil {
		t.Fatalf("MergeOrder err: %v", err)
	}
	if err := m.Reset(ctx); err != nil {
		t.Fatalf("Reset err: %v", err)
	}

	if m.State() != flow.Idle {
		t.Fatalf("expected Idle after reset, got %s", m.State())
	}
	if _, ok, _ := s.Get(ctx, store.KeyCustomerInfo); ok {
		t.Fatal("order form should be removed on reset")
	}
	transcript := m.Transcript()
	if len(transcript) != 1 || transcript[0].Text != chat.Greeting || !transcript[0].Timestamp.Equal(fixed) {
		t.Fatalf("expected greeting-only transcript, got %+v", transcript)
	}
}

func TestStatePersistsAcrossLoads(t *testing.T) {
	ctx := context.Background()
	s := store.NewMemory()
	if err := load(t, s).SetState(ctx, flow.AskingPhone); err != nil {
		t.Fatalf("SetState err: %v", err)
	}
	if got := load(t, s).State(); got != flow.AskingPhone {
		t.Fatalf("expected AskingPhone after reload, got %s", got)
	}
}

func TestMergeOrderIsReadModifyWrite(t *testing.T) {
	ctx := context.Background()
	s := store.NewMemory()
	m := load(t, s)

	// the checkout form wrote its own field in the meantime
	if err := store.SetJSON(ctx, s, store.KeyCustomerInfo, chat.OrderData{PaymentMethod: "Nequi"}); err != nil {
		t.Fatalf("SetJSON err: %v", err)
	}
	merged, err := m.MergeOrder(ctx, chat.OrderPatch{Phone: strPtr("3001234567")})
	if err != nil {
		t.Fatalf("MergeOrder err: %v", err)
	}
	if merged.PaymentMethod != "Nequi" || merged.Phone != "3001234567" {
		t.Fatalf("merge lost data: %+v", merged)
	}

	stored, err := m.Order(ctx)
	if err != nil || stored != merged {
		t.Fatalf("Order = %+v err=%v, want %+v", stored, err, merged)
	}
}

func TestMalformedPersistedDataIsIgnored(t *testing.T) {
	ctx := context.Background()
	s := store.NewMemory()
	_ = s.Set(ctx, store.KeyChatHistory, "[{broken")
	_ = s.Set(ctx, store.KeyChatFlow, "AskingName")
	_ = s.Set(ctx, store.KeyCustomerInfo, "nope")

	m := load(t, s)
	if len(m.Transcript()) != 1 {
		t.Fatalf("expected greeting-only transcript, got %d messages", len(m.Transcript()))
	}
	if m.State() != flow.Idle {
		t.Fatalf("expected Idle for malformed flow, got %s", m.State())
	}
	order, err := m.Order(ctx)
	if err != nil || order != (chat.OrderData{}) {
		t.Fatalf("expected empty order, got %+v err=%v", order, err)
	}
}

func TestAppendAssignsIDAndTimestamp(t *testing.T) {
	m := load(t, store.NewMemory())
	msg, err := m.Append(context.Background(), chat.Message{Role: chat.RoleUser, Text: "flores"})
	if err != nil {
		t.Fatalf("Append err: %v", err)
	}
	if msg.ID == "" || !msg.Timestamp.Equal(fixed) {
		t.Fatalf("expected id and timestamp to be set, got %+v", msg)
	}
}

// slowStore stalls the first transcript write that holds two messages.
type slowStore struct {
	store.Store
	once    sync.Once
	entered chan struct{}
	release chan struct{}
}

func (s *slowStore) Set(ctx context.Context, key, value string) error {
	if key == store.KeyChatHistory {
		var history []chat.Message
		if json.Unmarshal([]byte(value), &history) == nil && len(history) == 2 {
			s.once.Do(func() {
				close(s.entered)
				<-s.release
			})
		}
	}
	return s.Store.Set(ctx, key, value)
}

func TestConcurrentAppendsPersistEveryMessage(t *testing.T) {
	ctx := context.Background()
	s := &slowStore{Store: store.NewMemory(), entered: make(chan struct{}), release: make(chan struct{})}
	m := load(t, s)

	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		if _, err := m.Append(ctx, chat.Message{Role: chat.RoleUser, Text: "hola"}); err != nil {
			t.Errorf("Append err: %v", err)
		}
	}()
	<-s.entered
	go func() {
		defer wg.Done()
		if _, err := m.Append(ctx, chat.Message{Role: chat.RoleAssistant, Text: "¡Hola!"}); err != nil {
			t.Errorf("Append err: %v", err)
		}
	}()
	time.Sleep(20 * time.Millisecond)
	close(s.release)
	wg.Wait()

	var persisted []chat.Message
	if ok, err := store.GetJSON(ctx, s, store.KeyChatHistory, &persisted); !ok || err != nil {
		t.Fatalf("GetJSON ok=%v err=%v", ok, err)
	}
	if len(persisted) != 3 || len(m.Transcript()) != 3 {
		t.Fatalf("memory=%d persisted=%d, want 3 and 3", len(m.Transcript()), len(persisted))
	}
}

func TestPersistWritesGreeting(t *testing.T) {
	ctx := context.Background()
	s := store.NewMemory()
	m := load(t, s)
	if err := m.Persist(ctx); err != nil {
		t.Fatalf("Persist err: %v", err)
	}
	if _, ok, _ := s.Get(ctx, store.KeyChatHistory); !ok {
		t.Fatal("expected the greeting transcript to be stored")
	}
	if got := load(t, s).Transcript(); len(got) != 1 || got[0].Text != chat.Greeting {
		t.Fatalf("unexpected reloaded transcript: %+v", got)
	}
}
