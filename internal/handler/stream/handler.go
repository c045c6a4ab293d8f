package stream

import (
	"context"
	"errors"
	"log"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/carinitosdigital/detalles/internal/service/assistant"
	"github.com/carinitosdigital/detalles/pkg/utils"
)

const heartbeatInterval = 15 * time.Second

// Sessions looks up assistant engines.
type Sessions interface {
	Get(ctx context.Context, id string) (*assistant.Engine, error)
}

// Handler pushes conversation events to the widget over SSE or WebSocket.
type Handler struct {
	sessions  Sessions
	heartbeat time.Duration
	ws        *WebSocketHandler
}

// New creates a stream handler.
func New(sessions Sessions) *Handler {
	return &Handler{
		sessions:  sessions,
		heartbeat: heartbeatInterval,
		ws:        NewWebSocketHandler(sessions),
	}
}

// RegisterRoutes mounts the SSE and WebSocket endpoints.
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Get("/chat/{sessionID}/events", h.handleEvents)
	r.Get("/chat/{sessionID}/ws", h.ws.handleWebSocket)
}

func (h *Handler) handleEvents(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		utils.RespondError(w, http.StatusInternalServerError, "streaming unsupported")
		return
	}

	sessionID := chi.URLParam(r, "sessionID")
	engine, err := h.sessions.Get(r.Context(), sessionID)
	if err != nil {
		if errors.Is(err, assistant.ErrInvalidSession) {
			utils.RespondError(w, http.StatusNotFound, "session not found")
			return
		}
		utils.RespondError(w, http.StatusInternalServerError, "failed to load session")
		return
	}

	events, unsubscribe := engine.Subscribe()
	defer unsubscribe()

	utils.SetupSSEHeaders(w)
	w.WriteHeader(http.StatusOK)
	utils.SendSSEEvent(w, flusher, "ready", map[string]any{
		"sessionId":   sessionID,
		"voiceOutput": engine.VoiceOutput(),
		"voice":       engine.VoiceAvailable(),
	})

	log.Printf("[sse] stream opened session=%s", sessionID)
	defer log.Printf("[sse] stream closed session=%s", sessionID)

	ticker := time.NewTicker(h.heartbeat)
	defer ticker.Stop()

	ctx := r.Context()
	for {
		select {
		case <-ctx.Done():
			return
		case ev, ok := <-events:
			if !ok {
				return
			}
			utils.SendSSEEvent(w, flusher, string(ev.Type), ev)
		case <-ticker.C:
			utils.SendSSEComment(w, flusher, "heartbeat")
		}
	}
}
