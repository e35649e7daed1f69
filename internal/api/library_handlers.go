package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/151henry151/rompmusic-server/internal/domain"
	"github.com/151henry151/rompmusic-server/internal/http/response"
	"github.com/151henry151/rompmusic-server/internal/store"
)

// ListResponse wraps a page of entities with pagination echo.
type ListResponse[T any] struct {
	Items  []T `json:"items"`
	Count  int `json:"count"`
	Limit  int `json:"limit"`
	Offset int `json:"offset"`
}

func listResponse[T any](items []T, limit, offset int) ListResponse[T] {
	if items == nil {
		items = []T{}
	}
	return ListResponse[T]{Items: items, Count: len(items), Limit: limit, Offset: offset}
}

// handleListArtists returns artists ordered by name.
// GET /api/v1/library/artists
func (s *Server) handleListArtists(w http.ResponseWriter, r *http.Request) {
	limit, offset := parsePagination(r)

	artists, err := s.store.ListArtists(r.Context(), store.ListArtistsOptions{
		Search: r.URL.Query().Get("search"),
		Limit:  limit,
		Offset: offset,
	})
	if err != nil {
		s.logger.Error("Failed to list artists", "error", err)
		response.InternalError(w, "Failed to list artists", s.logger)
		return
	}

	response.Success(w, listResponse(artists, limit, offset), s.logger)
}

// handleGetArtist returns a single artist by ID.
// GET /api/v1/library/artists/{id}
func (s *Server) handleGetArtist(w http.ResponseWriter, r *http.Request) {
	artist, err := s.store.GetArtist(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		response.HandleError(w, err, s.logger)
		return
	}
	response.Success(w, artist, s.logger)
}

// handleListAlbums returns albums ordered by title. With ?artwork_first=true
// albums carrying artwork sort ahead of those without, so browsing grids
// render covers before placeholders.
// GET /api/v1/library/albums
func (s *Server) handleListAlbums(w http.ResponseWriter, r *http.Request) {
	limit, offset := parsePagination(r)

	albums, err := s.store.ListAlbums(r.Context(), store.ListAlbumsOptions{
		ArtistID:     r.URL.Query().Get("artist_id"),
		Search:       r.URL.Query().Get("search"),
		ArtworkFirst: r.URL.Query().Get("artwork_first") == "true",
		Limit:        limit,
		Offset:       offset,
	})
	if err != nil {
		s.logger.Error("Failed to list albums", "error", err)
		response.InternalError(w, "Failed to list albums", s.logger)
		return
	}

	response.Success(w, listResponse(albums, limit, offset), s.logger)
}

// handleGetAlbum returns a single album by ID.
// GET /api/v1/library/albums/{id}
func (s *Server) handleGetAlbum(w http.ResponseWriter, r *http.Request) {
	album, err := s.store.GetAlbum(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		response.HandleError(w, err, s.logger)
		return
	}
	response.Success(w, album, s.logger)
}

// handleListAlbumTracks returns an album's tracks in playback order:
// disc ascending, then track number ascending, unknown numbers last.
// GET /api/v1/library/albums/{id}/tracks
func (s *Server) handleListAlbumTracks(w http.ResponseWriter, r *http.Request) {
	albumID := chi.URLParam(r, "id")

	// 404 for unknown albums rather than an empty list.
	if _, err := s.store.GetAlbum(r.Context(), albumID); err != nil {
		response.HandleError(w, err, s.logger)
		return
	}

	tracks, err := s.store.ListTracks(r.Context(), store.ListTracksOptions{AlbumID: albumID})
	if err != nil {
		s.logger.Error("Failed to list album tracks", "error", err, "album_id", albumID)
		response.InternalError(w, "Failed to list tracks", s.logger)
		return
	}

	response.Success(w, listResponse(tracks, 0, 0), s.logger)
}

// handleListTracks returns tracks, optionally filtered by album, artist, or
// a case-insensitive title/artist substring.
// GET /api/v1/library/tracks
func (s *Server) handleListTracks(w http.ResponseWriter, r *http.Request) {
	limit, offset := parsePagination(r)

	tracks, err := s.store.ListTracks(r.Context(), store.ListTracksOptions{
		AlbumID:  r.URL.Query().Get("album_id"),
		ArtistID: r.URL.Query().Get("artist_id"),
		Search:   r.URL.Query().Get("search"),
		Limit:    limit,
		Offset:   offset,
	})
	if err != nil {
		s.logger.Error("Failed to list tracks", "error", err)
		response.InternalError(w, "Failed to list tracks", s.logger)
		return
	}

	response.Success(w, listResponse(tracks, limit, offset), s.logger)
}

// handleGetTrack returns a single track by ID.
// GET /api/v1/library/tracks/{id}
func (s *Server) handleGetTrack(w http.ResponseWriter, r *http.Request) {
	track, err := s.store.GetTrack(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		response.HandleError(w, err, s.logger)
		return
	}
	response.Success(w, track, s.logger)
}

// LibraryStats summarizes library contents.
type LibraryStats struct {
	Tracks  int             `json:"tracks"`
	Albums  int             `json:"albums"`
	Artists int             `json:"artists"`
	LastRun *domain.ScanRun `json:"last_scan,omitempty"`
}

// handleLibraryStats returns entity counts plus the most recent scan run.
// GET /api/v1/library/stats
func (s *Server) handleLibraryStats(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	tracks, err := s.store.CountTracks(ctx)
	if err != nil {
		s.logger.Error("Failed to count tracks", "error", err)
		response.InternalError(w, "Failed to compute stats", s.logger)
		return
	}
	albums, err := s.store.CountAlbums(ctx)
	if err != nil {
		s.logger.Error("Failed to count albums", "error", err)
		response.InternalError(w, "Failed to compute stats", s.logger)
		return
	}
	artists, err := s.store.CountArtists(ctx)
	if err != nil {
		s.logger.Error("Failed to count artists", "error", err)
		response.InternalError(w, "Failed to compute stats", s.logger)
		return
	}

	stats := LibraryStats{Tracks: tracks, Albums: albums, Artists: artists}
	if run, err := s.store.LatestScanRun(ctx); err == nil {
		stats.LastRun = run
	}

	response.Success(w, stats, s.logger)
}
