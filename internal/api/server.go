// Package api provides the HTTP API server and handlers for the music library.
package api

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/151henry151/rompmusic-server/internal/scanner"
	"github.com/151henry151/rompmusic-server/internal/search"
	"github.com/151henry151/rompmusic-server/internal/sse"
	"github.com/151henry151/rompmusic-server/internal/store"
)

// Server holds dependencies for HTTP handlers.
type Server struct {
	store      *store.Store
	search     *search.Index
	scanner    *scanner.Scanner
	sseHandler *sse.Handler
	router     *chi.Mux
	logger     *slog.Logger
}

// NewServer creates a new HTTP server with all routes configured.
func NewServer(st *store.Store, searchIndex *search.Index, sc *scanner.Scanner, sseHandler *sse.Handler, logger *slog.Logger) *Server {
	s := &Server{
		store:      st,
		search:     searchIndex,
		scanner:    sc,
		sseHandler: sseHandler,
		router:     chi.NewRouter(),
		logger:     logger,
	}

	s.setupMiddleware()
	s.setupRoutes()

	return s
}

// ServeHTTP implements http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

// setupMiddleware configures the middleware stack.
func (s *Server) setupMiddleware() {
	s.router.Use(middleware.RequestID)
	s.router.Use(middleware.RealIP)
	s.router.Use(middleware.Logger)
	s.router.Use(middleware.Recoverer)
	s.router.Use(middleware.Compress(5))
	s.router.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"*"},
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Content-Type", "Range"},
		ExposedHeaders:   []string{"Content-Range", "Accept-Ranges", "Content-Length"},
		AllowCredentials: false,
		MaxAge:           300,
	}))
}

// setupRoutes configures all HTTP routes.
func (s *Server) setupRoutes() {
	// Health check.
	s.router.Get("/health", s.handleHealthCheck)

	// API v1.
	s.router.Route("/api/v1", func(r chi.Router) {
		r.Route("/library", func(r chi.Router) {
			r.Get("/artists", s.handleListArtists)
			r.Get("/artists/{id}", s.handleGetArtist)
			r.Get("/albums", s.handleListAlbums)
			r.Get("/albums/{id}", s.handleGetAlbum)
			r.Get("/albums/{id}/tracks", s.handleListAlbumTracks)
			r.Get("/tracks", s.handleListTracks)
			r.Get("/tracks/{id}", s.handleGetTrack)
			r.Get("/stats", s.handleLibraryStats)
		})

		r.Get("/search", s.handleSearch)

		r.Route("/scan", func(r chi.Router) {
			r.Post("/", s.handleStartScan)
			r.Post("/cancel", s.handleCancelScan)
			r.Get("/status", s.handleScanStatus)
			r.Get("/runs", s.handleListScanRuns)
			r.Get("/events", s.handleScanEvents)
		})

		r.Get("/stream/{id}", s.handleStreamTrack)
	})
}
