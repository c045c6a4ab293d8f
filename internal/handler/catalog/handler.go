package catalog

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	catalogmodel "github.com/carinitosdigital/detalles/internal/model/catalog"
	catalogservice "github.com/carinitosdigital/detalles/internal/service/catalog"
	"github.com/carinitosdigital/detalles/pkg/utils"
)

// Handler serves the product catalog.
type Handler struct {
	catalog *catalogservice.Service
}

// New creates a catalog handler.
func New(catalog *catalogservice.Service) *Handler {
	return &Handler{catalog: catalog}
}

// RegisterRoutes mounts the catalog routes.
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Route("/catalog", func(cr chi.Router) {
		cr.Get("/", h.handleList)
		cr.Get("/categories", h.handleCategories)
		cr.Get("/{productID}", h.handleProduct)
	})
}

// handleList filters by ?category= and searches by ?q=.
func (h *Handler) handleList(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()
	products := h.catalog.Browse(query.Get("q"), query.Get("category"))
	if products == nil {
		products = []catalogmodel.Product{}
	}
	utils.RespondJSON(w, http.StatusOK, products)
}

func (h *Handler) handleCategories(w http.ResponseWriter, r *http.Request) {
	categories := append([]string{catalogservice.AllCategories}, h.catalog.Categories()...)
	utils.RespondJSON(w, http.StatusOK, categories)
}

func (h *Handler) handleProduct(w http.ResponseWriter, r *http.Request) {
	product, ok := h.catalog.FindByID(chi.URLParam(r, "productID"))
	if !ok {
		utils.RespondError(w, http.StatusNotFound, "product not found")
		return
	}
	utils.RespondJSON(w, http.StatusOK, product)
}
