package preferences

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/carinitosdigital/detalles/internal/service/assistant"
	prefservice "github.com/carinitosdigital/detalles/internal/service/preferences"
	"github.com/carinitosdigital/detalles/pkg/utils"
)

// Sessions looks up assistant engines.
type Sessions interface {
	Get(ctx context.Context, id string) (*assistant.Engine, error)
}

// Handler serves the storefront display preferences.
type Handler struct {
	sessions Sessions
}

// New creates a preferences handler.
func New(sessions Sessions) *Handler {
	return &Handler{sessions: sessions}
}

// RegisterRoutes mounts the preferences routes.
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Get("/preferences/{sessionID}", h.handleGet)
	r.Put("/preferences/{sessionID}", h.handlePut)
}

func (h *Handler) engine(w http.ResponseWriter, r *http.Request) (*assistant.Engine, bool) {
	e, err := h.sessions.Get(r.Context(), chi.URLParam(r, "sessionID"))
	if err != nil {
		if errors.Is(err, assistant.ErrInvalidSession) {
			utils.RespondError(w, http.StatusNotFound, "session not found")
			return nil, false
		}
		utils.RespondError(w, http.StatusInternalServerError, "failed to load session")
		return nil, false
	}
	return e, true
}

func (h *Handler) handleGet(w http.ResponseWriter, r *http.Request) {
	e, ok := h.engine(w, r)
	if !ok {
		return
	}
	prefs, err := prefservice.Load(r.Context(), e.Store())
	if err != nil {
		log.Printf("[preferences] load failed session=%s: %v", e.ID(), err)
	}
	utils.RespondJSON(w, http.StatusOK, prefs)
}

func (h *Handler) handlePut(w http.ResponseWriter, r *http.Request) {
	var prefs prefservice.Preferences
	if err := json.NewDecoder(r.Body).Decode(&prefs); err != nil {
		utils.RespondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	e, ok := h.engine(w, r)
	if !ok {
		return
	}
	saved, err := prefservice.Save(r.Context(), e.Store(), prefs)
	if errors.Is(err, prefservice.ErrInvalidViewMode) {
		utils.RespondError(w, http.StatusBadRequest, "viewMode must be grid, list or single")
		return
	}
	if err != nil {
		log.Printf("[preferences] save failed session=%s: %v", e.ID(), err)
		utils.RespondError(w, http.StatusInternalServerError, "failed to save preferences")
		return
	}
	utils.RespondJSON(w, http.StatusOK, saved)
}
