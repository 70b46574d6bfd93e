// Package api provides the HTTP API server and handlers for the Pagekeep service.
package api

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/pagekeep/pagekeep-server/internal/service"
)

// Server holds dependencies for HTTP handlers.
type Server struct {
	readerService *service.ReaderService
	limiter       *RateLimiter
	router        *chi.Mux
	logger        *slog.Logger
}

// NewServer creates a new HTTP server with all routes configured.
// limiter may be nil to disable rate limiting (tests).
func NewServer(readerService *service.ReaderService, limiter *RateLimiter, logger *slog.Logger) *Server {
	s := &Server{
		readerService: readerService,
		limiter:       limiter,
		router:        chi.NewRouter(),
		logger:        logger,
	}

	s.setupMiddleware()
	s.setupRoutes()

	return s
}

// ServeHTTP implements http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

// setupMiddleware configures middleware stack.
func (s *Server) setupMiddleware() {
	s.router.Use(middleware.RequestID)
	s.router.Use(middleware.RealIP)
	s.router.Use(middleware.Logger)
	s.router.Use(middleware.Recoverer)
	s.router.Use(middleware.Compress(5))
	// Reader clients are browsers; geometry reports come from page scripts.
	s.router.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Content-Type"},
		MaxAge:         300,
	}))
	if s.limiter != nil {
		s.router.Use(RateLimitMiddleware(s.limiter, s.logger))
	}
}

// setupRoutes configures all HTTP routes.
func (s *Server) setupRoutes() {
	// Health check.
	s.router.Get("/health", s.handleHealthCheck)

	// API v1.
	s.router.Route("/api/v1", func(r chi.Router) {
		r.Route("/readers", func(r chi.Router) {
			r.Post("/", s.handleOpenReader)

			r.Route("/{sessionID}", func(r chi.Router) {
				r.Get("/", s.handleReaderState)
				r.Delete("/", s.handleCloseReader)
				r.Post("/geometry", s.handleReportGeometry)
				r.Put("/settings", s.handleUpdateSettings)
				r.Post("/goto", s.handleGoToPage)
				r.Post("/next", s.handleNext)
				r.Post("/previous", s.handlePrevious)
				r.Post("/start", s.handleGoToStart)
				r.Post("/end", s.handleGoToEnd)
			})
		})

		r.Get("/positions/{contentID}", s.handleGetPosition)
	})
}
