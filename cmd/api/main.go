package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/carinitosdigital/detalles/internal/analysis/recommend"
	"github.com/carinitosdigital/detalles/internal/config"
	"github.com/carinitosdigital/detalles/internal/handler"
	"github.com/carinitosdigital/detalles/internal/metrics"
	"github.com/carinitosdigital/detalles/internal/service/assistant"
	"github.com/carinitosdigital/detalles/internal/service/catalog"
	"github.com/carinitosdigital/detalles/internal/service/checkout"
	"github.com/carinitosdigital/detalles/internal/service/flow"
	"github.com/carinitosdigital/detalles/internal/service/speech"
	"github.com/carinitosdigital/detalles/internal/store"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := godotenv.Load(); err != nil {
		log.Printf("warning: failed to load .env file: %v", err)
		log.Println("continuing with system environment variables only")
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load configuration: %v", err)
	}

	backend, err := openBackend(cfg.Store)
	if err != nil {
		log.Fatalf("failed to open session store: %v", err)
	}
	defer backend.Close()

	recorder := metrics.New()

	catalogSvc := catalog.NewService(newCatalogSource(ctx, cfg))
	catalogSvc.Load(ctx)

	matcher := recommend.NewMatcher(recommend.SharedRand{}, 0)
	machine := flow.New(matcher, cfg.Shop)

	deps := assistant.Deps{
		Machine: machine,
		Catalog: catalogSvc.Store(),
		Metrics: recorder,
	}
	if cfg.Speech.Enabled {
		speechSvc := speech.NewService(cfg.Speech.Model(), recorder)
		deps.Speaker = speechSvc
		deps.Listener = speechSvc
		log.Println("Speech service initialized successfully")
	} else {
		log.Println("speech credentials not configured, voice features disabled")
	}

	registry := assistant.NewRegistry(backend, deps, assistant.Options{
		TypingMin:   cfg.Assistant.TypingMin,
		TypingMax:   cfg.Assistant.TypingMax,
		AutoSubmit:  cfg.Assistant.AutoSubmit,
		VoiceOutput: cfg.Assistant.VoiceOutput,
		Language:    cfg.Assistant.Language,
		SessionIdle: cfg.Assistant.SessionIdle,
	})
	defer registry.Close()

	router := handler.NewRouter(handler.Services{
		Catalog:  catalogSvc,
		Sessions: registry,
		Matcher:  matcher,
		Checkout: checkout.NewService(cfg.Shop.WhatsApp, recorder),
		Metrics:  recorder,
	})

	startServer(ctx, cfg.Server, router)
}

func openBackend(cfg config.StoreConfig) (store.Backend, error) {
	if !cfg.Persistent() {
		log.Println("STORE_PATH not set, sessions are kept in memory")
		return store.NewMemoryBackend(), nil
	}
	backend, err := store.OpenBolt(cfg.Path)
	if err != nil {
		return nil, err
	}
	log.Printf("sessions persisted to %s", cfg.Path)
	return backend, nil
}

// newCatalogSource returns the Ark-backed generator, or nil to serve the seed
// catalog.
func newCatalogSource(ctx context.Context, cfg *config.Config) catalog.Source {
	if !cfg.AI.Enabled() {
		log.Println("Ark credentials not configured, serving the seed catalog")
		return nil
	}

	chatModel, err := cfg.AI.NewChatModel(ctx)
	if err != nil {
		log.Printf("warning: failed to initialize Ark chat model: %v", err)
		return nil
	}

	generator, err := catalog.NewGenerator(ctx, chatModel, catalog.GeneratorConfig{
		ShopName: cfg.Shop.Name,
		Count:    cfg.AI.CatalogCount,
	})
	if err != nil {
		log.Printf("warning: failed to build catalog generator: %v", err)
		return nil
	}
	return generator
}

func startServer(ctx context.Context, serverCfg config.ServerConfig, router http.Handler) {
	addr := serverCfg.Addr
	srv := &http.Server{
		Addr:              addr,
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	log.Printf("Detalles Cariñitos backend listening on %s", addr)
	if err := runServer(ctx, srv); err != nil {
		log.Printf("server error: %v", err)
	}
}

func runServer(ctx context.Context, srv *http.Server) error {
	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
		err := <-errCh
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	}
}
