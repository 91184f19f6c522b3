// Package server exposes the dataset catalog and the line rasterizer over HTTP.
//
// Routes:
//
//	GET  /healthz
//	GET  /datasets
//	GET  /datasets/{id}
//	GET  /datasets/{id}/sources
//	GET  /datasets/{id}/views
//	GET  /datasets/{id}/views/{name}
//	GET  /datasets/{id}/thumbnail?width=N
//	POST /rasterize
//
// Errors are JSON objects {"code": ..., "message": ...} using the codes of
// [github.com/microsim/cosem/pkg/errors].
package server

import (
	"context"
	"errors"
	"image"
	"net/http"
	"time"

	"github.com/charmbracelet/log"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/rs/cors"

	"github.com/microsim/cosem/pkg/catalog"
)

// DefaultAddr is the listen address used when none is configured.
const DefaultAddr = "localhost:8080"

// DefaultMaxCells bounds the grid a single rasterize request may allocate.
const DefaultMaxCells = 1 << 24

// Catalog is the part of [*catalog.Client] the server needs.
type Catalog interface {
	Datasets(ctx context.Context, refresh bool) (map[string]string, error)
	Manifest(ctx context.Context, id string, refresh bool) (*catalog.Manifest, error)
	Thumbnail(ctx context.Context, id string, refresh bool) (image.Image, error)
}

// Config configures a [Server].
type Config struct {
	Addr string
	// AllowedOrigins lists CORS origins; empty allows any origin.
	AllowedOrigins []string
	// MaxCells bounds rasterize grids; zero uses DefaultMaxCells.
	MaxCells int
	Logger   *log.Logger
}

// Server serves the HTTP API.
type Server struct {
	catalog  Catalog
	addr     string
	maxCells int
	logger   *log.Logger
	handler  http.Handler
}

// New builds a server over cat.
func New(cat Catalog, cfg Config) *Server {
	s := &Server{
		catalog:  cat,
		addr:     cfg.Addr,
		maxCells: cfg.MaxCells,
		logger:   cfg.Logger,
	}
	if s.addr == "" {
		s.addr = DefaultAddr
	}
	if s.maxCells <= 0 {
		s.maxCells = DefaultMaxCells
	}
	if s.logger == nil {
		s.logger = log.Default()
	}

	origins := cfg.AllowedOrigins
	if len(origins) == 0 {
		origins = []string{"*"}
	}
	c := cors.New(cors.Options{
		AllowedOrigins: origins,
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders: []string{"Content-Type", requestIDHeader},
		ExposedHeaders: []string{requestIDHeader},
	})

	r := chi.NewRouter()
	r.Use(requestID)
	r.Use(s.logRequests)
	r.Use(middleware.Recoverer)
	r.Use(c.Handler)

	r.Get("/healthz", s.handleHealth)
	r.Route("/datasets", func(r chi.Router) {
		r.Get("/", s.handleDatasets)
		r.Route("/{id}", func(r chi.Router) {
			r.Get("/", s.handleManifest)
			r.Get("/sources", s.handleSources)
			r.Get("/views", s.handleViews)
			r.Get("/views/{name}", s.handleView)
			r.Get("/thumbnail", s.handleThumbnail)
		})
	})
	r.Post("/rasterize", s.handleRasterize)
	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		writeError(w, r, errNotFoundRoute)
	})

	s.handler = r
	return s
}

// Handler returns the root handler, for tests and embedding.
func (s *Server) Handler() http.Handler { return s.handler }

// Addr returns the configured listen address.
func (s *Server) Addr() string { return s.addr }

// ListenAndServe serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) ListenAndServe(ctx context.Context) error {
	srv := &http.Server{
		Addr:              s.addr,
		Handler:           s.handler,
		ReadHeaderTimeout: 10 * time.Second,
	}
	errc := make(chan error, 1)
	go func() {
		s.logger.Info("listening", "addr", s.addr)
		errc <- srv.ListenAndServe()
	}()

	select {
	case err := <-errc:
		return err
	case <-ctx.Done():
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
}
