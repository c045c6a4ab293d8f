package checkout

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/carinitosdigital/detalles/internal/service/assistant"
	checkoutservice "github.com/carinitosdigital/detalles/internal/service/checkout"
	"github.com/carinitosdigital/detalles/pkg/utils"
)

// Sessions looks up assistant engines.
type Sessions interface {
	Get(ctx context.Context, id string) (*assistant.Engine, error)
}

// Handler serves the checkout form and the WhatsApp hand-off.
type Handler struct {
	sessions Sessions
	checkout *checkoutservice.Service
}

// New creates a checkout handler.
func New(sessions Sessions, checkout *checkoutservice.Service) *Handler {
	return &Handler{sessions: sessions, checkout: checkout}
}

// RegisterRoutes mounts the checkout routes.
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Get("/checkout/payment-methods", h.handlePaymentMethods)
	r.Get("/checkout/{sessionID}/prefill", h.handlePrefill)
	r.Put("/checkout/{sessionID}/form", h.handleSaveForm)
	r.Post("/checkout/{sessionID}", h.handleCheckout)
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

func (h *Handler) handlePaymentMethods(w http.ResponseWriter, r *http.Request) {
	utils.RespondJSON(w, http.StatusOK, checkoutservice.PaymentMethods)
}

// handlePrefill returns the order form, seeded with whatever the assistant
// collected during the conversation.
func (h *Handler) handlePrefill(w http.ResponseWriter, r *http.Request) {
	e, ok := h.engine(w, r)
	if !ok {
		return
	}
	info, err := h.checkout.Prefill(r.Context(), e.Store())
	if err != nil {
		log.Printf("[checkout] prefill failed session=%s: %v", e.ID(), err)
		utils.RespondError(w, http.StatusInternalServerError, "failed to load order form")
		return
	}
	utils.RespondJSON(w, http.StatusOK, info)
}

func (h *Handler) handleSaveForm(w http.ResponseWriter, r *http.Request) {
	var info checkoutservice.CustomerInfo
	if err := json.NewDecoder(r.Body).Decode(&info); err != nil {
		utils.RespondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	e, ok := h.engine(w, r)
	if !ok {
		return
	}
	if err := h.checkout.SaveForm(r.Context(), e.Store(), info); err != nil {
		log.Printf("[checkout] save form failed session=%s: %v", e.ID(), err)
		utils.RespondError(w, http.StatusInternalServerError, "failed to save order form")
		return
	}
	utils.RespondJSON(w, http.StatusOK, info)
}

func (h *Handler) handleCheckout(w http.ResponseWriter, r *http.Request) {
	var info checkoutservice.CustomerInfo
	if err := json.NewDecoder(r.Body).Decode(&info); err != nil {
		utils.RespondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	e, ok := h.engine(w, r)
	if !ok {
		return
	}

	result, err := h.checkout.Checkout(r.Context(), e.Cart(), e.Store(), info)
	switch {
	case errors.Is(err, checkoutservice.ErrEmptyCart):
		utils.RespondError(w, http.StatusConflict, err.Error())
		return
	case errors.Is(err, checkoutservice.ErrPaymentMethodRequired),
		errors.Is(err, checkoutservice.ErrCustomerInfoIncomplete):
		utils.RespondError(w, http.StatusUnprocessableEntity, err.Error())
		return
	case err != nil:
		log.Printf("[checkout] checkout failed session=%s: %v", e.ID(), err)
		utils.RespondError(w, http.StatusInternalServerError, "checkout failed")
		return
	}
	utils.RespondJSON(w, http.StatusOK, result)
}
