// Package server provides the HTTP API for the universe, the run history and
// the discovery trigger.
package server

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/rs/zerolog"

	"github.com/aristath/nasdaq-universe/internal/database"
	"github.com/aristath/nasdaq-universe/internal/history"
)

// UniverseReader reads the last written universe
type UniverseReader interface {
	Load() ([]string, error)
	Path() string
}

// RunStore reads run history
type RunStore interface {
	List(limit int) ([]history.Run, error)
	Latest() (*history.Run, error)
	Get(id string) (*history.Run, error)
}

// DiscoveryTrigger starts discovery runs in the background
type DiscoveryTrigger interface {
	Trigger() (string, error)
	Running() bool
	LastRun() (time.Time, error)
}

// Config holds server configuration
type Config struct {
	Log        zerolog.Logger
	Port       int
	Universe   UniverseReader
	Runs       RunStore         // Optional - nil when run history is disabled
	Discovery  DiscoveryTrigger // Optional
	DB         *database.DB     // Optional - reported by the status endpoint
	CronSecret string           // Bearer token for the trigger endpoint, empty = open
	DevMode    bool
}

// Server represents the HTTP server
type Server struct {
	router         *chi.Mux
	server         *http.Server
	log            zerolog.Logger
	port           int
	universe       UniverseReader
	runs           RunStore
	systemHandlers *SystemHandlers
}

// New creates a new HTTP server
func New(cfg Config) *Server {
	s := &Server{
		router:         chi.NewRouter(),
		log:            cfg.Log.With().Str("component", "server").Logger(),
		port:           cfg.Port,
		universe:       cfg.Universe,
		runs:           cfg.Runs,
		systemHandlers: NewSystemHandlers(cfg.Log, cfg.DB, cfg.Discovery, cfg.CronSecret),
	}

	s.setupMiddleware(cfg.DevMode)
	s.setupRoutes()

	s.server = &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Port),
		Handler:      s.router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	return s
}

// setupMiddleware configures middleware
func (s *Server) setupMiddleware(devMode bool) {
	// Recovery from panics
	s.router.Use(middleware.Recoverer)

	// Request ID
	s.router.Use(middleware.RequestID)

	// Real IP
	s.router.Use(middleware.RealIP)

	// Logging
	s.router.Use(s.loggingMiddleware)

	// Timeout
	s.router.Use(middleware.Timeout(60 * time.Second))

	// CORS
	s.router.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"*"},
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		ExposedHeaders:   []string{"Link"},
		AllowCredentials: false,
		MaxAge:           300,
	}))

	// Compress responses
	if !devMode {
		s.router.Use(middleware.Compress(5))
	}
}

// setupRoutes configures all routes
func (s *Server) setupRoutes() {
	s.router.Get("/health", s.handleHealth)

	s.router.Route("/api", func(r chi.Router) {
		r.Get("/universe", s.handleGetUniverse)

		r.Route("/runs", func(r chi.Router) {
			r.Get("/", s.handleListRuns)
			r.Get("/latest", s.handleLatestRun)
			r.Get("/{id}", s.handleGetRun)
		})

		// GET is accepted so hosted cron services can call it
		r.Post("/discover", s.systemHandlers.HandleTriggerDiscover)
		r.Get("/discover", s.systemHandlers.HandleTriggerDiscover)

		r.Get("/system/status", s.systemHandlers.HandleSystemStatus)
	})
}

// Handler returns the root handler
func (s *Server) Handler() http.Handler {
	return s.router
}

// Start starts the HTTP server
func (s *Server) Start() error {
	s.log.Info().Int("port", s.port).Msg("Starting HTTP server")
	return s.server.ListenAndServe()
}

// Shutdown gracefully shuts down the server
func (s *Server) Shutdown(ctx context.Context) error {
	s.log.Info().Msg("Shutting down HTTP server")
	return s.server.Shutdown(ctx)
}

// loggingMiddleware logs HTTP requests
func (s *Server) loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()

		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)

		s.log.Info().
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Int("status", ww.Status()).
			Int("bytes", ww.BytesWritten()).
			Dur("duration_ms", time.Since(start)).
			Str("request_id", middleware.GetReqID(r.Context())).
			Msg("HTTP request")
	})
}
