// Package server assembles the HTTP API.
package server

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/cors"

	analyticshandler "github.com/FACorreiaa/sales-analytics/internal/domain/analytics/handler"
	dshandler "github.com/FACorreiaa/sales-analytics/internal/domain/datasource/handler"
	importhandler "github.com/FACorreiaa/sales-analytics/internal/domain/import/handler"
	"github.com/FACorreiaa/sales-analytics/internal/domain/templates"
	"github.com/FACorreiaa/sales-analytics/pkg/middleware"
	"github.com/FACorreiaa/sales-analytics/pkg/respond"
)

// Handlers are the domain handlers mounted under /api/v1.
type Handlers struct {
	DataSources *dshandler.DataSourceHandler
	Imports     *importhandler.ImportHandler
	Analytics   *analyticshandler.AnalyticsHandler
	Templates   *templates.Handler
}

// Options configure the cross-cutting middleware.
type Options struct {
	CORSOrigins []string
	// RateLimiter is applied to /api/v1 when set.
	RateLimiter *middleware.RateLimiter
	// Verifier enables bearer authentication. Without it every request acts
	// as the local owner.
	Verifier *middleware.TokenVerifier
	// Gatherer serves /metrics when set.
	Gatherer prometheus.Gatherer
	Health   func(ctx context.Context) error
}

// Server is the HTTP server of the API.
type Server struct {
	router *chi.Mux
	server *http.Server
	logger *slog.Logger
}

func New(h Handlers, opts Options, logger *slog.Logger) *Server {
	s := &Server{router: chi.NewRouter(), logger: logger}
	s.setupMiddleware(opts)
	s.setupRoutes(h, opts)
	return s
}

func (s *Server) setupMiddleware(opts Options) {
	s.router.Use(chimw.RequestID)
	s.router.Use(chimw.RealIP)
	s.router.Use(middleware.Logger(s.logger))
	s.router.Use(chimw.Recoverer)

	origins := opts.CORSOrigins
	if len(origins) == 0 {
		origins = []string{"*"}
	}
	s.router.Use(cors.New(cors.Options{
		AllowedOrigins:   origins,
		AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodOptions},
		AllowedHeaders:   []string{"Authorization", "Content-Type", "X-Request-Id"},
		ExposedHeaders:   []string{"Content-Disposition", "Retry-After"},
		AllowCredentials: false,
		MaxAge:           300,
	}).Handler)
}

func (s *Server) setupRoutes(h Handlers, opts Options) {
	s.router.Get("/healthz", s.health(opts.Health))
	if opts.Gatherer != nil {
		s.router.Handle("/metrics", promhttp.HandlerFor(opts.Gatherer, promhttp.HandlerOpts{}))
	}

	s.router.Route("/api/v1", func(r chi.Router) {
		if opts.RateLimiter != nil {
			r.Use(opts.RateLimiter.Middleware)
		}

		r.Get("/templates/sales.csv", h.Templates.SalesCSV)
		r.Get("/templates/sales.xlsx", h.Templates.SalesXLSX)

		r.Group(func(r chi.Router) {
			r.Use(middleware.Auth(opts.Verifier, s.logger))

			r.Route("/datasources", func(r chi.Router) {
				h.DataSources.Routes(r)
				r.Post("/{id}/upload", h.Imports.Upload)
			})
			r.Route("/imports/{id}", func(r chi.Router) {
				r.Get("/", h.Imports.GetImport)
				r.Post("/preview", h.Imports.Preview)
				r.Post("/parse", h.Imports.Parse)
			})
			r.Route("/analytics/sales", h.Analytics.Routes)
		})
	})
}

func (s *Server) health(check func(ctx context.Context) error) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if check != nil {
			ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
			defer cancel()
			if err := check(ctx); err != nil {
				s.logger.Warn("health check failed", slog.Any("error", err))
				respond.JSON(w, http.StatusServiceUnavailable, map[string]string{"status": "unavailable"})
				return
			}
		}
		respond.JSON(w, http.StatusOK, map[string]string{"status": "ok"})
	}
}

// Start listens on addr until Shutdown.
func (s *Server) Start(addr string) error {
	s.server = &http.Server{
		Addr:              addr,
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       5 * time.Minute,
		WriteTimeout:      5 * time.Minute,
		IdleTimeout:       60 * time.Second,
	}

	s.logger.Info("server starting", slog.String("addr", addr))
	return s.server.ListenAndServe()
}

// Shutdown gracefully stops the server.
func (s *Server) Shutdown(ctx context.Context) error {
	if s.server == nil {
		return nil
	}
	return s.server.Shutdown(ctx)
}

// Router returns the underlying chi router for testing.
func (s *Server) Router() *chi.Mux {
	return s.router
}
