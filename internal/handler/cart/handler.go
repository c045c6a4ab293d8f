package cart

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/carinitosdigital/detalles/internal/analysis/recommend"
	"github.com/carinitosdigital/detalles/internal/model/catalog"
	"github.com/carinitosdigital/detalles/internal/service/assistant"
	cartservice "github.com/carinitosdigital/detalles/internal/service/cart"
	"github.com/carinitosdigital/detalles/pkg/utils"
)

// Sessions looks up assistant engines; each owns its visitor's cart.
type Sessions interface {
	Get(ctx context.Context, id string) (*assistant.Engine, error)
}

// Handler serves the shopping cart.
type Handler struct {
	sessions Sessions
	catalog  catalog.Store
	matcher  *recommend.Matcher
}

// New creates a cart handler.
func New(sessions Sessions, products catalog.Store, matcher *recommend.Matcher) *Handler {
	return &Handler{sessions: sessions, catalog: products, matcher: matcher}
}

// RegisterRoutes mounts the cart routes.
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Route("/cart/{sessionID}", func(cr chi.Router) {
		cr.Get("/", h.handleGet)
		cr.Delete("/", h.handleClear)
		cr.Post("/items", h.handleAdd)
		cr.Patch("/items/{productID}", h.handleUpdate)
		cr.Delete("/items/{productID}", h.handleRemove)
		cr.Get("/suggestions", h.handleSuggestions)
	})
}

type cartView struct {
	Items []cartservice.Item `json:"items"`
	Count int                `json:"count"`
	Total int64              `json:"total"`
}

func view(items []cartservice.Item) cartView {
	if items == nil {
		items = []cartservice.Item{}
	}
	return cartView{Items: items, Count: cartservice.Count(items), Total: cartservice.Total(items)}
}

func (h *Handler) cart(w http.ResponseWriter, r *http.Request) (*cartservice.Cart, bool) {
	e, err := h.sessions.Get(r.Context(), chi.URLParam(r, "sessionID"))
	if err != nil {
		if errors.Is(err, assistant.ErrInvalidSession) {
			utils.RespondError(w, http.StatusNotFound, "session not found")
			return nil, false
		}
		utils.RespondError(w, http.StatusInternalServerError, "failed to load session")
		return nil, false
	}
	return e.Cart(), true
}

func (h *Handler) respond(w http.ResponseWriter, items []cartservice.Item, err error) {
	switch {
	case errors.Is(err, cartservice.ErrItemNotFound):
		utils.RespondError(w, http.StatusNotFound, "item not in cart")
	case err != nil:
		log.Printf("[cart] update failed: %v", err)
		utils.RespondError(w, http.StatusInternalServerError, "failed to update cart")
	default:
		utils.RespondJSON(w, http.StatusOK, view(items))
	}
}

func (h *Handler) handleGet(w http.ResponseWriter, r *http.Request) {
	c, ok := h.cart(w, r)
	if !ok {
		return
	}
	items, err := c.Items(r.Context())
	h.respond(w, items, err)
}

func (h *Handler) handleClear(w http.ResponseWriter, r *http.Request) {
	c, ok := h.cart(w, r)
	if !ok {
		return
	}
	h.respond(w, nil, c.Clear(r.Context()))
}

func (h *Handler) handleAdd(w http.ResponseWriter, r *http.Request) {
	var payload struct {
		ProductID string `json:"productId"`
	}
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil || payload.ProductID == "" {
		utils.RespondError(w, http.StatusBadRequest, "productId is required")
		return
	}

	product, found := h.catalog.FindByID(payload.ProductID)
	if !found {
		utils.RespondError(w, http.StatusNotFound, "product not found")
		return
	}

	c, ok := h.cart(w, r)
	if !ok {
		return
	}
	items, err := c.AddItem(r.Context(), product)
	h.respond(w, items, err)
}

func (h *Handler) handleUpdate(w http.ResponseWriter, r *http.Request) {
	var payload struct {
		Quantity *int `json:"quantity"`
	}
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil || payload.Quantity == nil {
		utils.RespondError(w, http.StatusBadRequest, "quantity is required")
		return
	}

	c, ok := h.cart(w, r)
	if !ok {
		return
	}
	items, err := c.UpdateQuantity(r.Context(), chi.URLParam(r, "productID"), *payload.Quantity)
	h.respond(w, items, err)
}

func (h *Handler) handleRemove(w http.ResponseWriter, r *http.Request) {
	c, ok := h.cart(w, r)
	if !ok {
		return
	}
	items, err := c.Remove(r.Context(), chi.URLParam(r, "productID"))
	h.respond(w, items, err)
}

// handleSuggestions lists "complete your gift" add-ons for the current cart.
func (h *Handler) handleSuggestions(w http.ResponseWriter, r *http.Request) {
	limit := recommend.DefaultComplementLimit
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 {
			utils.RespondError(w, http.StatusBadRequest, "invalid limit")
			return
		}
		limit = n
	}

	c, ok := h.cart(w, r)
	if !ok {
		return
	}
	items, err := c.Items(r.Context())
	if err != nil {
		h.respond(w, nil, err)
		return
	}

	suggestions := h.matcher.Complements(h.catalog.List(), cartservice.IDs(items), limit)
	utils.RespondJSON(w, http.StatusOK, suggestions)
}
