package stream

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/gorilla/websocket"

	"github.com/carinitosdigital/detalles/internal/service/assistant"
)

const (
	readTimeout  = 60 * time.Second
	pingInterval = 54 * time.Second
	writeTimeout = 10 * time.Second
)

// WebSocketHandler carries a whole conversation over one socket: text and
// recorded audio in, assistant events out.
type WebSocketHandler struct {
	sessions Sessions
	upgrader websocket.Upgrader
}

// NewWebSocketHandler creates a WebSocket handler.
func NewWebSocketHandler(sessions Sessions) *WebSocketHandler {
	return &WebSocketHandler{
		sessions: sessions,
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool {
				return true
			},
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
		},
	}
}

type inboundMessage struct {
	Type string          `json:"type"`
	Data json.RawMessage `json:"data"`
}

// AudioMessage is one chunk of a recording; the buffer is transcribed when
// IsFinal is set.
type AudioMessage struct {
	AudioData []byte `json:"audioData"`
	Format    string `json:"format"`
	IsFinal   bool   `json:"isFinal"`
}

// TextMessage is a typed utterance.
type TextMessage struct {
	Text string `json:"text"`
}

// ConfigMessage toggles per-connection options.
type ConfigMessage struct {
	VoiceOutput *bool `json:"voiceOutput,omitempty"`
	Open        *bool `json:"open,omitempty"`
}

type outgoingMessage struct {
	Type      string `json:"type"`
	SessionID string `json:"sessionId,omitempty"`
	Data      any    `json:"data,omitempty"`
	Timestamp int64  `json:"timestamp"`
}

// socket serializes writes; gorilla allows one concurrent writer.
type socket struct {
	mu   sync.Mutex
	conn *websocket.Conn
}

func (s *socket) writeJSON(v any) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.conn.SetWriteDeadline(time.Now().Add(writeTimeout))
	return s.conn.WriteJSON(v)
}

func (s *socket) ping() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(writeTimeout))
}

type connectionState struct {
	engine      *assistant.Engine
	audioFormat string
	buffer      bytes.Buffer
}

func (h *WebSocketHandler) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	sessionID := chi.URLParam(r, "sessionID")
	engine, err := h.sessions.Get(r.Context(), sessionID)
	if err != nil {
		if errors.Is(err, assistant.ErrInvalidSession) {
			http.Error(w, "session not found", http.StatusNotFound)
			return
		}
		http.Error(w, "failed to load session", http.StatusInternalServerError)
		return
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("[ws] upgrade failed: %v", err)
		return
	}
	defer conn.Close()

	log.Printf("[ws] new connection for session: %s", sessionID)

	ctx, cancel := context.WithCancel(context.Background())
	sock := &socket{conn: conn}
	state := &connectionState{engine: engine}

	conn.SetReadDeadline(time.Now().Add(readTimeout))
	conn.SetPongHandler(func(string) error {
		conn.SetReadDeadline(time.Now().Add(readTimeout))
		return nil
	})

	events, unsubscribe := engine.Subscribe()
	defer unsubscribe()

	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		h.forwardEvents(ctx, sock, events)
	}()
	go func() {
		defer wg.Done()
		h.pingLoop(ctx, sock)
	}()
	defer wg.Wait()
	defer cancel()

	h.send(sock, sessionID, "connected", map[string]any{
		"voiceOutput": engine.VoiceOutput(),
		"voice":       engine.VoiceAvailable(),
	})

	for {
		var msg inboundMessage
		if err := conn.ReadJSON(&msg); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				log.Printf("[ws] read error session=%s: %v", sessionID, err)
			}
			return
		}
		conn.SetReadDeadline(time.Now().Add(readTimeout))
		h.handleMessage(ctx, sock, state, &msg)
	}
}

func (h *WebSocketHandler) forwardEvents(ctx context.Context, sock *socket, events <-chan assistant.Event) {
	for {
		select {
		case <-ctx.Done():
			return
		case ev, ok := <-events:
			if !ok {
				return
			}
			if err := sock.writeJSON(outgoingMessage{
				Type:      "event",
				SessionID: ev.SessionID,
				Data:      ev,
				Timestamp: time.Now().Unix(),
			}); err != nil {
				log.Printf("[ws] write event failed: %v", err)
				return
			}
		}
	}
}

func (h *WebSocketHandler) handleMessage(ctx context.Context, sock *socket, state *connectionState, msg *inboundMessage) {
	switch msg.Type {
	case "text":
		h.handleText(ctx, sock, state, msg.Data)
	case "audio":
		h.handleAudio(ctx, sock, state, msg.Data)
	case "cancel":
		state.engine.CancelAutoSubmit()
	case "config":
		h.handleConfig(ctx, sock, state, msg.Data)
	case "reset":
		if err := state.engine.Reset(ctx); err != nil {
			h.sendError(sock, "reset failed")
		}
	default:
		h.sendError(sock, "unsupported message type: "+msg.Type)
	}
}

func (h *WebSocketHandler) handleText(ctx context.Context, sock *socket, state *connectionState, raw json.RawMessage) {
	var text TextMessage
	if err := json.Unmarshal(raw, &text); err != nil {
		h.sendError(sock, "invalid text payload")
		return
	}
	if _, err := state.engine.Submit(ctx, text.Text); err != nil && !errors.Is(err, assistant.ErrEmptyMessage) {
		h.sendError(sock, err.Error())
	}
}

func (h *WebSocketHandler) handleAudio(ctx context.Context, sock *socket, state *connectionState, raw json.RawMessage) {
	var audio AudioMessage
	if err := json.Unmarshal(raw, &audio); err != nil {
		h.sendError(sock, "invalid audio payload")
		return
	}

	if len(audio.AudioData) > 0 {
		state.buffer.Write(audio.AudioData)
	}
	if audio.Format != "" {
		state.audioFormat = audio.Format
	}
	if !audio.IsFinal {
		return
	}

	data := bytes.Clone(state.buffer.Bytes())
	state.buffer.Reset()
	if len(data) == 0 {
		return
	}

	log.Printf("[ws] transcribing session=%s format=%s bytes=%d", state.engine.ID(), state.audioFormat, len(data))
	// The transcript itself arrives as an event; unsupported voice publishes a
	// notice and a failed recognition is silent.
	if _, err := state.engine.Listen(ctx, data, state.audioFormat); err != nil &&
		!errors.Is(err, assistant.ErrRecognitionFailed) && !errors.Is(err, assistant.ErrVoiceUnsupported) {
		h.sendError(sock, "speech recognition failed")
	}
}

func (h *WebSocketHandler) handleConfig(ctx context.Context, sock *socket, state *connectionState, raw json.RawMessage) {
	var cfg ConfigMessage
	if err := json.Unmarshal(raw, &cfg); err != nil {
		h.sendError(sock, "invalid config payload")
		return
	}

	h.applyConfig(state, cfg)

	h.send(sock, state.engine.ID(), "config", map[string]any{
		"voiceOutput": state.engine.VoiceOutput(),
		"voice":       state.engine.VoiceAvailable(),
		"open":        state.engine.IsOpen(),
	})
}

func (h *WebSocketHandler) applyConfig(state *connectionState, cfg ConfigMessage) {
	if cfg.Open != nil {
		state.engine.SetOpen(*cfg.Open)
	}
	if cfg.VoiceOutput != nil {
		if err := state.engine.SetVoiceOutput(*cfg.VoiceOutput); err != nil {
			log.Printf("[ws] voice output refused session=%s: %v", state.engine.ID(), err)
		}
	}
}

func (h *WebSocketHandler) send(sock *socket, sessionID, kind string, data any) {
	msg := outgoingMessage{
		Type:      kind,
		SessionID: sessionID,
		Data:      data,
		Timestamp: time.Now().Unix(),
	}
	if err := sock.writeJSON(msg); err != nil {
		log.Printf("[ws] write %s failed: %v", kind, err)
	}
}

func (h *WebSocketHandler) sendError(sock *socket, message string) {
	h.send(sock, "", "error", map[string]string{"message": message})
}

func (h *WebSocketHandler) pingLoop(ctx context.Context, sock *socket) {
	ticker := time.NewTicker(pingInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := sock.ping(); err != nil {
				return
			}
		}
	}
}
