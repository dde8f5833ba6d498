package httpapi

import (
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/aman-news/searchcore/internal/projection"
	"github.com/aman-news/searchcore/internal/searchservice"
)

// CORSConfig mirrors the CORS environment options.
type CORSConfig struct {
	AllowedOrigins   []string
	AllowedMethods   []string
	AllowedHeaders   []string
	AllowCredentials bool
}

// ServerConfig configures the HTTP surface.
type ServerConfig struct {
	Host string
	Port int
	CORS CORSConfig
}

// Server is the HTTP boundary over a searchservice.Service.
type Server struct {
	router     *chi.Mux
	httpServer *http.Server
	svc        *searchservice.Service
	schema     *projection.Schema
	log        *slog.Logger
}

// New builds a Server routing the four read-only search endpoints.
func New(svc *searchservice.Service, schema *projection.Schema, cfg ServerConfig, log *slog.Logger) *Server {
	if log == nil {
		log = slog.Default()
	}
	s := &Server{
		router: chi.NewRouter(),
		svc:    svc,
		schema: schema,
		log:    log,
	}

	s.router.Use(middleware.RequestID)
	s.router.Use(middleware.RealIP)
	s.router.Use(middleware.Logger)
	s.router.Use(middleware.Recoverer)
	s.router.Use(middleware.Timeout(60 * time.Second))

	if len(cfg.CORS.AllowedOrigins) > 0 {
		s.router.Use(cors.Handler(cors.Options{
			AllowedOrigins:   cfg.CORS.AllowedOrigins,
			AllowedMethods:   cfg.CORS.AllowedMethods,
			AllowedHeaders:   cfg.CORS.AllowedHeaders,
			AllowCredentials: cfg.CORS.AllowCredentials,
			MaxAge:           300,
		}))
	}

	s.router.Route("/api/v1/search", func(r chi.Router) {
		r.Get("/articles", s.handleSearchArticles)
		r.Get("/topics", s.handleSearchTopics)
		r.Get("/topic-batches", s.handleSearchTopicBatches)
		r.Get("/categories", s.handleSearchCategories)
	})
	s.router.Get("/health", s.handleHealth)
	s.router.Get("/healthz", s.handleHealth)

	addr := fmt.Sprintf("%s:%d", cfg.Host, cfg.Port)
	s.httpServer = &http.Server{
		Addr:         addr,
		Handler:      s.router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
	}
	return s
}

// Handler exposes the router, for tests and embedding.
func (s *Server) Handler() http.Handler {
	return s.router
}

// ListenAndServe starts the HTTP server; it blocks until the server stops.
func (s *Server) ListenAndServe() error {
	return s.httpServer.ListenAndServe()
}

// Shutdown gracefully drains in-flight requests.
func (s *Server) Shutdown(ctxTimeout time.Duration) error {
	ctx, cancel := contextWithTimeout(ctxTimeout)
	defer cancel()
	return s.httpServer.Shutdown(ctx)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte(`{"status":"ok"}`))
}
