// Package web provides the HTTP server and handlers for the menu import API.
package web

import (
	"context"
	"io"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"menu-import-service/internal/config"
	"menu-import-service/internal/domain"
	"menu-import-service/internal/web/middleware"
)

// rateWindow is the window both rate limiters count against.
const rateWindow = time.Minute

// ImportService is the surface of the core service the handlers use.
type ImportService interface {
	ParseUpload(ctx context.Context, userID, businessID, filename, contentType string, data []byte) (*domain.ImportSession, error)
	GetSession(ctx context.Context, id uuid.UUID, userID string) (*domain.ImportSession, error)
	ListSessions(ctx context.Context, userID, businessID string, status domain.SessionStatus) ([]*domain.ImportSession, error)
	UpdateSession(ctx context.Context, id uuid.UUID, userID string, bundle *domain.ParsedImportData) (*domain.ImportSession, error)
	SaveSession(ctx context.Context, id uuid.UUID, userID string) (*domain.ImportSession, error)
	DiscardSession(ctx context.Context, id uuid.UUID, userID string) error
	RollbackSession(ctx context.Context, id uuid.UUID, userID string) (*domain.ImportSession, error)
	DeleteSession(ctx context.Context, id uuid.UUID, userID string) error
	DeleteAllSessions(ctx context.Context, userID string) (int64, error)
	WriteIssuesCSV(w io.Writer, sess *domain.ImportSession, includeWarnings bool) error
	Healthy(ctx context.Context) error
}

// Server is the HTTP server for the menu import service.
type Server struct {
	service  ImportService
	cfg      *config.Config
	router   *chi.Mux
	server   *http.Server
	limiters []*middleware.RateLimiter
}

// NewServer creates a new Server instance.
func NewServer(service ImportService, cfg *config.Config) *Server {
	s := &Server{
		service: service,
		cfg:     cfg,
		router:  chi.NewRouter(),
	}
	s.setupMiddleware()
	s.setupRoutes()
	return s
}

// setupMiddleware configures middleware for all routes.
func (s *Server) setupMiddleware() {
	s.router.Use(chimw.RequestID)
	s.router.Use(chimw.RealIP)
	s.router.Use(middleware.Logger)
	s.router.Use(chimw.Recoverer)
	s.router.Use(chimw.Compress(5))
	s.router.Use(chimw.Timeout(s.cfg.Server.RequestTimeout))

	if s.cfg.Rate.Enabled {
		limiter := middleware.NewRateLimiter(s.cfg.Rate.RequestsPerMinute, rateWindow)
		s.limiters = append(s.limiters, limiter)
		s.router.Use(limiter.Middleware)
	}
}

// setupRoutes configures all HTTP routes.
func (s *Server) setupRoutes() {
	s.router.Get("/healthz", s.handleHealth)
	s.router.Handle("/metrics", promhttp.Handler())

	s.router.Route("/api/import", func(r chi.Router) {
		r.Use(middleware.RequireIdentity)

		// Parse gets its own, tighter rate limit
		r.Group(func(r chi.Router) {
			if s.cfg.Rate.Enabled {
				uploadLimiter := middleware.NewRateLimiter(s.cfg.Rate.UploadLimit, rateWindow)
				s.limiters = append(s.limiters, uploadLimiter)
				r.Use(uploadLimiter.Middleware)
			}
			r.Post("/parse", s.handleParse)
		})

		r.Route("/sessions", func(r chi.Router) {
			r.Get("/", s.handleListSessions)
			r.Delete("/", s.handleDeleteAllSessions)

			r.Route("/{sessionID}", func(r chi.Router) {
				r.Get("/", s.handleGetSession)
				r.Put("/", s.handleUpdateSession)
				r.Delete("/", s.handleDeleteSession)
				r.Post("/save", s.handleSaveSession)
				r.Post("/discard", s.handleDiscardSession)
				r.Post("/rollback", s.handleRollbackSession)
				r.Get("/errors", s.handleExportIssues)
			})
		})
	})
}

// Start begins listening for HTTP requests.
func (s *Server) Start() error {
	s.server = &http.Server{
		Addr:         s.cfg.Server.Addr(),
		Handler:      s.router,
		ReadTimeout:  s.cfg.Server.ReadTimeout,
		WriteTimeout: s.cfg.Server.WriteTimeout,
		IdleTimeout:  s.cfg.Server.IdleTimeout,
	}
	return s.server.ListenAndServe()
}

// Shutdown gracefully stops the server and its rate limiters.
func (s *Server) Shutdown(ctx context.Context) error {
	for _, l := range s.limiters {
		l.Stop()
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
