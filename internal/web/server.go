// Package web provides the HTTP server and JSON handlers for the inventory API.
package web

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/JonMunkholm/Inventory/internal/config"
	"github.com/JonMunkholm/Inventory/internal/core"
	"github.com/JonMunkholm/Inventory/internal/media"
	"github.com/JonMunkholm/Inventory/internal/metrics"
	"github.com/JonMunkholm/Inventory/internal/web/middleware"
)

// Server is the HTTP server for the inventory API.
type Server struct {
	service *core.Service
	cfg     *config.Config
	staging *media.LocalStore
	images  media.ImageStore
	metrics *metrics.Metrics
	proxies *middleware.Proxies
	router  *chi.Mux
	server  *http.Server
	stop    chan struct{}
	now     func() time.Time
}

// Option configures a Server.
type Option func(*Server)

// WithImageStore sends uploaded images somewhere other than the local upload
// directory, e.g. an S3 bucket.
func WithImageStore(store media.ImageStore) Option {
	return func(s *Server) {
		if store != nil {
			s.images = store
		}
	}
}

// WithMetrics instruments requests and serves cfg.Metrics.Path.
func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Server) {
		s.metrics = m
	}
}

// NewServer builds the router. staging is the local upload directory used
// for import files, and for images unless WithImageStore says otherwise.
func NewServer(service *core.Service, cfg *config.Config, staging *media.LocalStore, opts ...Option) *Server {
	s := &Server{
		service: service,
		cfg:     cfg,
		staging: staging,
		images:  staging,
		proxies: middleware.NewProxies(cfg.Security.TrustedProxies),
		router:  chi.NewRouter(),
		stop:    make(chan struct{}),
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	s.setupMiddleware()
	s.setupRoutes()
	return s
}

// setupMiddleware configures middleware for all routes.
func (s *Server) setupMiddleware() {
	s.router.Use(chimw.RequestID)
	s.router.Use(s.proxies.RealIP)
	s.router.Use(middleware.Logger)
	s.router.Use(chimw.Recoverer)
	if s.metrics != nil {
		s.router.Use(s.metrics.Middleware)
	}
	s.router.Use(middleware.SecurityHeaders)
	s.router.Use(cors.Handler(cors.Options{
		AllowedOrigins: s.cfg.Security.AllowedOrigins,
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete, http.MethodOptions},
		AllowedHeaders: []string{"Accept", "Content-Type", "X-Changed-By", "X-Request-Id"},
		ExposedHeaders: []string{"Content-Disposition", "X-Request-Id"},
		MaxAge:         300,
	}))

	s.router.NotFound(respondRouteNotFound)
	s.router.MethodNotAllowed(respondMethodNotAllowed)
}

// setupRoutes configures all HTTP routes.
func (s *Server) setupRoutes() {
	s.router.Get("/", s.handleBanner)

	if s.images == media.ImageStore(s.staging) {
		s.router.Handle(s.staging.PublicPath()+"/*", s.uploadsHandler())
	}

	if s.metrics != nil && s.cfg.Metrics.Enabled {
		s.router.Handle(s.cfg.Metrics.Path, s.metrics.Handler())
	}

	s.router.Route("/api", func(r chi.Router) {
		if s.cfg.Rate.Enabled {
			limiter := middleware.NewRateLimiter(s.cfg.Rate.RequestsPerMinute, respondRateLimited)
			go limiter.RunCleanup(s.stop, time.Minute)
			r.Use(limiter.Middleware)
		}
		r.Use(withActor)

		r.Get("/health", s.handleHealth)

		r.Route("/products", func(r chi.Router) {
			// Ordinary requests share the request timeout.
			r.Group(func(r chi.Router) {
				r.Use(chimw.Timeout(s.cfg.Server.RequestTimeout))

				r.Get("/", s.handleListProducts)
				r.Post("/", s.handleCreateProduct)
				r.Get("/search", s.handleSearchProducts)
				r.Get("/export", s.handleExportProducts)

				r.Get("/{id}", s.handleGetProduct)
				r.Put("/{id}", s.handleUpdateProduct)
				r.Delete("/{id}", s.handleDeleteProduct)
				r.Get("/{id}/history", s.handleProductHistory)
			})

			// Uploads get their own rate limit and the longer import timeout.
			r.Group(func(r chi.Router) {
				if s.cfg.Rate.Enabled {
					limiter := middleware.NewRateLimiter(s.cfg.Rate.UploadLimit, respondRateLimited)
					go limiter.RunCleanup(s.stop, time.Minute)
					r.Use(limiter.Middleware)
				}
				r.With(chimw.Timeout(s.cfg.Server.RequestTimeout)).Post("/upload", s.handleUploadImage)
				r.With(chimw.Timeout(s.cfg.Upload.Timeout)).Post("/import", s.handleImportProducts)
			})
		})
	})
}

// uploadsHandler serves stored images from the local upload directory.
// Directory listings and staged import files are never served.
func (s *Server) uploadsHandler() http.Handler {
	files := http.StripPrefix(s.staging.PublicPath(), http.FileServer(http.Dir(s.staging.Dir())))
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		name := chi.URLParam(r, "*")
		if name == "" || strings.HasSuffix(name, "/") || strings.Contains(name, "/") || media.IsImportName(name) {
			respondRouteNotFound(w, r)
			return
		}
		w.Header().Set("Cache-Control", "public, max-age=86400")
		files.ServeHTTP(w, r)
	})
}

// Start begins listening for HTTP requests.
func (s *Server) Start() error {
	// Imports may legitimately run for the whole upload timeout.
	writeTimeout := s.cfg.Server.WriteTimeout
	if floor := s.cfg.Upload.Timeout + 10*time.Second; writeTimeout < floor {
		writeTimeout = floor
	}

	s.server = &http.Server{
		Addr:         s.cfg.Server.Addr(),
		Handler:      s.router,
		ReadTimeout:  s.cfg.Server.ReadTimeout,
		WriteTimeout: writeTimeout,
		IdleTimeout:  s.cfg.Server.IdleTimeout,
	}

	slog.Info("starting server", "addr", s.server.Addr)
	if err := s.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Shutdown gracefully stops the server and its background cleanup loops.
func (s *Server) Shutdown(ctx context.Context) error {
	select {
	case <-s.stop:
	default:
		close(s.stop)
	}
	if s.server == nil {
		return nil
	}
	return s.server.Shutdown(ctx)
}

// Router returns the underlying chi router for testing.
func (s *Server) Router() *chi.Mux {
	return s.router
}
