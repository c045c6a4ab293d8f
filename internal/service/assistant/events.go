package assistant

import (
	"log"
	"sync"

	"github.com/carinitosdigital/detalles/internal/model/chat"
)

// EventType names what changed in a conversation.
type EventType string

const (
	EventTyping     EventType = "typing"
	EventMessage    EventType = "message"
	EventSpeech     EventType = "speech"
	EventTranscript EventType = "transcript"
	EventNotice     EventType = "notice"
	EventReset      EventType = "reset"
)

// Event is pushed to subscribers (SSE and WebSocket clients).
type Event struct {
	Type        EventType      `json:"type"`
	SessionID   string         `json:"sessionId"`
	Typing      bool           `json:"typing"`
	Message     *chat.Message  `json:"message,omitempty"`
	Transcript  []chat.Message `json:"transcript,omitempty"`
	Text        string         `json:"text,omitempty"`
	Audio       []byte         `json:"audio,omitempty"`
	AudioFormat string         `json:"audioFormat,omitempty"`
	AutoSubmit  int64          `json:"autoSubmitMs,omitempty"`
}

const subscriberBuffer = 32

// hub fans events out without ever blocking the publisher; a subscriber that
// falls behind loses events.
type hub struct {
	mu     sync.Mutex
	next   int
	subs   map[int]chan Event
	closed bool
}

func newHub() *hub {
	return &hub{subs: make(map[int]chan Event)}
}

func (h *hub) subscribe() (<-chan Event, func()) {
	h.mu.Lock()
	defer h.mu.Unlock()

	ch := make(chan Event, subscriberBuffer)
	if h.closed {
		close(ch)
		return ch, func() {}
	}
	id := h.next
	h.next++
	h.subs[id] = ch

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			h.mu.Lock()
			defer h.mu.Unlock()
			if sub, ok := h.subs[id]; ok {
				delete(h.subs, id)
				close(sub)
			}
		})
	}
}

func (h *hub) len() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.subs)
}

func (h *hub) publish(ev Event) {
	h.mu.Lock()
	defer h.mu.Unlock()
	for id, ch := range h.subs {
		select {
		case ch <- ev:
		default:
			log.Printf("[assistant] subscriber %d is slow, dropped %s event", id, ev.Type)
		}
	}
}

func (h *hub) close() {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.closed = true
	for id, ch := range h.subs {
		delete(h.subs, id)
		close(ch)
	}
}
