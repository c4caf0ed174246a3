// Package api provides the HTTP API server and handlers for the Crate library.
package api

import (
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/danielgtaylor/huma/v2"
	"github.com/danielgtaylor/huma/v2/adapters/humachi"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/crateapp/crate-server/internal/http/response"
	"github.com/crateapp/crate-server/internal/ratelimit"
	"github.com/crateapp/crate-server/internal/service"
	"github.com/crateapp/crate-server/internal/sse"
)

// DocumentCounter reports how many documents the full-text index holds.
type DocumentCounter interface {
	Count() (uint64, error)
}

// Options configures the HTTP surface.
type Options struct {
	Version     string
	CORSOrigins []string
	// RateLimit is requests per second per client. Zero disables limiting.
	RateLimit float64
	RateBurst int
	// Index is reported on /health when set.
	Index DocumentCounter
}

// Server holds dependencies for HTTP handlers.
type Server struct {
	library    *service.LibraryService
	sseManager *sse.Manager
	sseHandler *sse.Handler
	index      DocumentCounter
	limiter    *ratelimit.KeyedRateLimiter
	router     *chi.Mux
	api        huma.API
	logger     *slog.Logger
}

// NewServer creates a new HTTP server with all routes configured.
func NewServer(library *service.LibraryService, sseManager *sse.Manager, opts Options, logger *slog.Logger) *Server {
	if opts.Version == "" {
		opts.Version = "dev"
	}

	s := &Server{
		library:    library,
		sseManager: sseManager,
		index:      opts.Index,
		router:     chi.NewRouter(),
		logger:     logger,
	}
	if sseManager != nil {
		s.sseHandler = sse.NewHandler(sseManager, logger)
	}
	if opts.RateLimit > 0 {
		s.limiter = ratelimit.New(opts.RateLimit, opts.RateBurst)
	}

	s.setupMiddleware(opts)

	humaConfig := huma.DefaultConfig("Crate API", opts.Version)
	humaConfig.Info.Description = "Music library hierarchy, track collection and search"
	s.api = humachi.New(s.router, humaConfig)
	RegisterErrorHandler()

	s.setupRoutes()

	return s
}

// ServeHTTP implements http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

// API exposes the huma API, mostly for OpenAPI export.
func (s *Server) API() huma.API {
	return s.api
}

// Close stops background work owned by the server.
func (s *Server) Close() {
	if s.limiter != nil {
		s.limiter.Stop()
	}
}

// setupMiddleware configures middleware stack.
func (s *Server) setupMiddleware(opts Options) {
	s.router.Use(middleware.RequestID)
	s.router.Use(middleware.RealIP)
	s.router.Use(s.requestLogger)
	s.router.Use(middleware.Recoverer)
	s.router.Use(cors.Handler(cors.Options{
		AllowedOrigins:   opts.CORSOrigins,
		AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodPatch, http.MethodDelete, http.MethodOptions},
		AllowedHeaders:   []string{"Accept", "Content-Type", "X-Request-ID"},
		ExposedHeaders:   []string{"X-Request-ID", "Retry-After"},
		AllowCredentials: false,
		MaxAge:           300,
	}))
	if s.limiter != nil {
		s.router.Use(s.limiter.Middleware)
	}
	s.router.Use(middleware.Compress(5))
}

// setupRoutes configures all HTTP routes.
func (s *Server) setupRoutes() {
	s.registerHealthRoutes()
	s.registerLibraryRoutes()
	s.registerNodeRoutes()
	s.registerTrackRoutes()
	s.registerSearchRoutes()

	if s.sseHandler != nil {
		s.router.Get("/api/v1/events", s.handleEventStream)
	}

	s.router.NotFound(response.NotFound(s.logger))
	s.router.MethodNotAllowed(response.MethodNotAllowed(s.logger))
}

// handleEventStream serves the SSE stream without the server write timeout.
func (s *Server) handleEventStream(w http.ResponseWriter, r *http.Request) {
	rc := http.NewResponseController(w)
	if err := rc.SetWriteDeadline(time.Time{}); err != nil && !errors.Is(err, http.ErrNotSupported) {
		s.logger.Warn("clear write deadline", slog.String("error", err.Error()))
	}
	s.sseHandler.ServeHTTP(w, r)
}

// requestLogger logs one line per request at debug, or warn for server errors.
func (s *Server) requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()

		next.ServeHTTP(ww, r)

		level := slog.LevelDebug
		if ww.Status() >= http.StatusInternalServerError {
			level = slog.LevelWarn
		}
		s.logger.Log(r.Context(), level, "http request",
			slog.String("method", r.Method),
			slog.String("path", r.URL.Path),
			slog.Int("status", ww.Status()),
			slog.Int("bytes", ww.BytesWritten()),
			slog.Duration("duration", time.Since(start)),
			slog.String("request_id", middleware.GetReqID(r.Context())))
	})
}
