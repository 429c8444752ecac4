// Package server assembles all HTTP handlers and starts the server.
package server

import (
	"context"
	"errors"
	"log"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/matthewbaird/uibuilder/internal/aigen"
	"github.com/matthewbaird/uibuilder/internal/eventbus"
	"github.com/matthewbaird/uibuilder/internal/packaging"
	"github.com/matthewbaird/uibuilder/internal/preview"
	"github.com/matthewbaird/uibuilder/internal/registry"
	"github.com/matthewbaird/uibuilder/internal/store"
)

// ComponentGenerator turns a prompt into a registered custom component.
type ComponentGenerator interface {
	Generate(ctx context.Context, req aigen.Request) (aigen.ComponentSpec, error)
}

// Config holds server configuration.
type Config struct {
	Address  string
	Registry *registry.Registry
	Store    store.Store
	// AI is optional; without it the AI endpoint answers 503.
	AI       ComponentGenerator
	Sessions *preview.Manager
	// Archiver defaults to a ZipArchiver.
	Archiver     packaging.Archiver
	VerifySyntax bool
	// Bus receives change events; nil discards them.
	Bus *eventbus.Bus
}

// NewRouter registers every route on a chi router.
func NewRouter(cfg Config) http.Handler {
	if cfg.Archiver == nil {
		cfg.Archiver = packaging.ZipArchiver{}
	}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)

	// Health check
	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	gh := &generateHandler{registry: cfg.Registry, archiver: cfg.Archiver, verifySyntax: cfg.VerifySyntax, bus: cfg.Bus}
	dh := &documentHandler{store: cfg.Store, bus: cfg.Bus}
	ah := &aiHandler{generator: cfg.AI, registry: cfg.Registry, bus: cfg.Bus}

	r.Route("/api", func(r chi.Router) {
		r.Get("/components/registry", gh.ListRegistry)
		r.Post("/components/registry", gh.RegisterComponent)

		r.Post("/generate/page", gh.GeneratePage)
		r.Post("/generate/app", gh.GenerateApp)
		r.Post("/export", gh.Export)

		r.Post("/ai/components", ah.GenerateComponent)

		if cfg.Sessions != nil {
			r.Handle("/preview/ws", preview.NewHandler(cfg.Sessions, cfg.Registry, cfg.VerifySyntax).WithBus(cfg.Bus))
		}

		r.Route("/{collection}", func(r chi.Router) {
			r.Get("/", dh.List)
			r.Post("/", dh.Create)
			r.Get("/{id}", dh.Get)
			r.Put("/{id}", dh.Update)
			r.Delete("/{id}", dh.Delete)
			r.Post("/{id}/backup", dh.Backup)
		})
	})

	return r
}

// Run starts the HTTP server and shuts it down gracefully when ctx is done.
func Run(ctx context.Context, cfg Config) error {
	srv := &http.Server{
		Addr:              cfg.Address,
		Handler:           NewRouter(cfg),
		ReadHeaderTimeout: 10 * time.Second,
	}

	if cfg.Sessions != nil {
		go cfg.Sessions.Run(ctx, time.Minute)
	}

	errc := make(chan error, 1)
	go func() {
		log.Printf("starting server on %s", cfg.Address)
		errc <- srv.ListenAndServe()
	}()

	select {
	case err := <-errc:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	if err := <-errc; !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}
