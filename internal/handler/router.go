package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/carinitosdigital/detalles/internal/analysis/recommend"
	"github.com/carinitosdigital/detalles/internal/handler/cart"
	"github.com/carinitosdigital/detalles/internal/handler/catalog"
	"github.com/carinitosdigital/detalles/internal/handler/chat"
	"github.com/carinitosdigital/detalles/internal/handler/checkout"
	"github.com/carinitosdigital/detalles/internal/handler/preferences"
	"github.com/carinitosdigital/detalles/internal/handler/stream"
	"github.com/carinitosdigital/detalles/internal/metrics"
	middlewarePkg "github.com/carinitosdigital/detalles/internal/middleware"
	"github.com/carinitosdigital/detalles/internal/service/assistant"
	catalogService "github.com/carinitosdigital/detalles/internal/service/catalog"
	checkoutService "github.com/carinitosdigital/detalles/internal/service/checkout"
	"github.com/carinitosdigital/detalles/pkg/utils"
)

// Services are the collaborators the HTTP layer needs.
type Services struct {
	Catalog  *catalogService.Service
	Sessions *assistant.Registry
	Matcher  *recommend.Matcher
	Checkout *checkoutService.Service
	Metrics  *metrics.Recorder
}

// NewRouter wires HTTP routes to core services.
func NewRouter(svc Services) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middlewarePkg.CORS)

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		utils.RespondJSON(w, http.StatusOK, map[string]any{
			"status":   "ok",
			"sessions": svc.Sessions.Len(),
		})
	})
	r.Handle("/metrics", svc.Metrics.Handler())

	r.Route("/api", func(api chi.Router) {
		catalog.New(svc.Catalog).RegisterRoutes(api)
		chat.New(svc.Sessions).RegisterRoutes(api)
		stream.New(svc.Sessions).RegisterRoutes(api)
		cart.New(svc.Sessions, svc.Catalog.Store(), svc.Matcher).RegisterRoutes(api)
		checkout.New(svc.Sessions, svc.Checkout).RegisterRoutes(api)
		preferences.New(svc.Sessions).RegisterRoutes(api)
	})

	return r
}
