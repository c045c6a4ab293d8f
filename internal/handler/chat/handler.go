package chat

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log"
	"net/http"
	"path/filepath"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/carinitosdigital/detalles/internal/model/chat"
	"github.com/carinitosdigital/detalles/internal/service/assistant"
	"github.com/carinitosdigital/detalles/internal/service/cart"
	"github.com/carinitosdigital/detalles/pkg/utils"
)

const maxAudioBytes = 16 << 20

// Sessions provisions and looks up assistant engines.
type Sessions interface {
	Create(ctx context.Context) (chat.Session, error)
	Get(ctx context.Context, id string) (*assistant.Engine, error)
}

// Handler exposes the chat widget over HTTP.
type Handler struct {
	sessions Sessions
}

// New creates a chat handler.
func New(sessions Sessions) *Handler {
	return &Handler{sessions: sessions}
}

// RegisterRoutes mounts the chat routes.
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Post("/chat/sessions", h.handleCreateSession)
	r.Post("/chat/{sessionID}/open", h.handleOpen)
	r.Post("/chat/{sessionID}/close", h.handleClose)
	r.Post("/chat/{sessionID}/resume", h.handleResume)
	r.Post("/chat/{sessionID}/reset", h.handleReset)
	r.Get("/chat/{sessionID}/messages", h.handleTranscript)
	r.Post("/chat/{sessionID}/messages", h.handleSubmit)
	r.Post("/chat/{sessionID}/voice", h.handleVoice)
	r.Post("/chat/{sessionID}/voice/cancel", h.handleVoiceCancel)
	r.Put("/chat/{sessionID}/voice/output", h.handleVoiceOutput)
	r.Post("/chat/{sessionID}/speak", h.handleSpeak)
	r.Post("/chat/{sessionID}/recommendations/{productID}/cart", h.handleAddRecommendation)
}

func (h *Handler) engine(w http.ResponseWriter, r *http.Request) (*assistant.Engine, bool) {
	e, err := h.sessions.Get(r.Context(), chi.URLParam(r, "sessionID"))
	if err != nil {
		if errors.Is(err, assistant.ErrInvalidSession) {
			utils.RespondError(w, http.StatusNotFound, "session not found")
			return nil, false
		}
		log.Printf("[chat] load session failed: %v", err)
		utils.RespondError(w, http.StatusInternalServerError, "failed to load session")
		return nil, false
	}
	return e, true
}

func (h *Handler) handleCreateSession(w http.ResponseWriter, r *http.Request) {
	session, err := h.sessions.Create(r.Context())
	if err != nil {
		log.Printf("[chat] create session failed: %v", err)
		utils.RespondError(w, http.StatusInternalServerError, "failed to create session")
		return
	}
	utils.RespondJSON(w, http.StatusCreated, session)
}

func (h *Handler) handleOpen(w http.ResponseWriter, r *http.Request) {
	e, ok := h.engine(w, r)
	if !ok {
		return
	}
	utils.RespondJSON(w, http.StatusOK, e.Open(r.Context()))
}

// handleClose hides the widget; a reply already being typed still arrives.
func (h *Handler) handleClose(w http.ResponseWriter, r *http.Request) {
	e, ok := h.engine(w, r)
	if !ok {
		return
	}
	e.SetOpen(false)
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) handleResume(w http.ResponseWriter, r *http.Request) {
	e, ok := h.engine(w, r)
	if !ok {
		return
	}
	utils.RespondJSON(w, http.StatusOK, e.Resume(r.Context()))
}

func (h *Handler) handleReset(w http.ResponseWriter, r *http.Request) {
	e, ok := h.engine(w, r)
	if !ok {
		return
	}
	if err := e.Reset(r.Context()); err != nil {
		log.Printf("[chat] reset failed session=%s: %v", e.ID(), err)
		utils.RespondError(w, http.StatusInternalServerError, "failed to reset conversation")
		return
	}
	utils.RespondJSON(w, http.StatusOK, e.Transcript())
}

func (h *Handler) handleTranscript(w http.ResponseWriter, r *http.Request) {
	e, ok := h.engine(w, r)
	if !ok {
		return
	}
	utils.RespondJSON(w, http.StatusOK, e.Transcript())
}

// handleSubmit records the utterance and returns at once; the reply is
// delivered on the event stream.
func (h *Handler) handleSubmit(w http.ResponseWriter, r *http.Request) {
	var payload struct {
		Text string `json:"text"`
	}
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		utils.RespondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	e, ok := h.engine(w, r)
	if !ok {
		return
	}

	msg, err := e.Submit(r.Context(), payload.Text)
	switch {
	case errors.Is(err, assistant.ErrEmptyMessage):
		utils.RespondError(w, http.StatusBadRequest, "text is required")
		return
	case errors.Is(err, assistant.ErrClosed):
		utils.RespondError(w, http.StatusGone, "session closed")
		return
	case err != nil:
		utils.RespondError(w, http.StatusInternalServerError, "failed to submit message")
		return
	}
	utils.RespondJSON(w, http.StatusAccepted, msg)
}

func (h *Handler) handleVoice(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseMultipartForm(maxAudioBytes); err != nil {
		utils.RespondError(w, http.StatusBadRequest, "failed to parse multipart form: "+err.Error())
		return
	}
	if r.MultipartForm != nil {
		defer r.MultipartForm.RemoveAll()
	}

	file, header, err := r.FormFile("audio")
	if err != nil {
		utils.RespondError(w, http.StatusBadRequest, "audio file is required")
		return
	}
	defer file.Close()

	audio, err := io.ReadAll(io.LimitReader(file, maxAudioBytes))
	if err != nil {
		utils.RespondError(w, http.StatusBadRequest, "failed to read audio")
		return
	}

	e, ok := h.engine(w, r)
	if !ok {
		return
	}

	format := r.FormValue("format")
	if format == "" {
		format = InferAudioFormat(header.Filename)
	}

	transcript, err := e.Listen(r.Context(), audio, format)
	switch {
	case errors.Is(err, assistant.ErrVoiceUnsupported):
		utils.RespondJSON(w, http.StatusNotImplemented, map[string]string{
			"error":  "voice unsupported",
			"notice": assistant.VoiceUnsupportedNotice,
		})
		return
	case errors.Is(err, assistant.ErrRecognitionFailed):
		// Nothing is added to the conversation.
		w.WriteHeader(http.StatusNoContent)
		return
	case err != nil:
		utils.RespondError(w, http.StatusInternalServerError, "speech recognition failed")
		return
	}
	utils.RespondJSON(w, http.StatusOK, map[string]string{"transcript": transcript})
}

// handleVoiceCancel is called when the visitor edits the transcript.
func (h *Handler) handleVoiceCancel(w http.ResponseWriter, r *http.Request) {
	e, ok := h.engine(w, r)
	if !ok {
		return
	}
	utils.RespondJSON(w, http.StatusOK, map[string]bool{"cancelled": e.CancelAutoSubmit()})
}

func (h *Handler) handleVoiceOutput(w http.ResponseWriter, r *http.Request) {
	var payload struct {
		Enabled bool `json:"enabled"`
	}
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		utils.RespondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	e, ok := h.engine(w, r)
	if !ok {
		return
	}
	if err := e.SetVoiceOutput(payload.Enabled); err != nil {
		utils.RespondJSON(w, http.StatusNotImplemented, map[string]string{
			"error":  "voice unsupported",
			"notice": assistant.VoiceUnsupportedNotice,
		})
		return
	}
	utils.RespondJSON(w, http.StatusOK, map[string]bool{"enabled": e.VoiceOutput()})
}

// handleSpeak reads the latest reply aloud; audio arrives as a speech event.
func (h *Handler) handleSpeak(w http.ResponseWriter, r *http.Request) {
	e, ok := h.engine(w, r)
	if !ok {
		return
	}
	if !e.VoiceAvailable() {
		utils.RespondError(w, http.StatusNotImplemented, "voice unsupported")
		return
	}
	if !e.SpeakLast() {
		utils.RespondError(w, http.StatusNotFound, "nothing to read")
		return
	}
	w.WriteHeader(http.StatusAccepted)
}

func (h *Handler) handleAddRecommendation(w http.ResponseWriter, r *http.Request) {
	e, ok := h.engine(w, r)
	if !ok {
		return
	}

	items, err := e.AddRecommendation(r.Context(), chi.URLParam(r, "productID"))
	if errors.Is(err, assistant.ErrProductNotFound) {
		utils.RespondError(w, http.StatusNotFound, "product not found")
		return
	}
	if err != nil {
		log.Printf("[chat] add recommendation failed session=%s: %v", e.ID(), err)
		utils.RespondError(w, http.StatusInternalServerError, "failed to update cart")
		return
	}
	utils.RespondJSON(w, http.StatusOK, map[string]any{
		"items": items,
		"count": cart.Count(items),
		"total": cart.Total(items),
	})
}

// InferAudioFormat guesses the container from an upload's file name.
func InferAudioFormat(filename string) string {
	switch ext := strings.ToLower(filepath.Ext(filename)); ext {
	case ".mp3", ".wav", ".ogg", ".pcm":
		return strings.TrimPrefix(ext, ".")
	default:
		return "wav"
	}
}
