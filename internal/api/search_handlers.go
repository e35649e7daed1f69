package api

import (
	"net/http"
	"strings"

	"github.com/151henry151/rompmusic-server/internal/http/response"
)

// handleSearch runs a relevance-ranked track search over the Bleve index.
// GET /api/v1/search?q=...
func (s *Server) handleSearch(w http.ResponseWriter, r *http.Request) {
	queryText := strings.TrimSpace(r.URL.Query().Get("q"))
	if queryText == "" {
		response.BadRequest(w, "Query parameter 'q' is required", s.logger)
		return
	}

	limit, offset := parsePagination(r)

	result, err := s.search.Search(r.Context(), queryText, limit, offset)
	if err != nil {
		s.logger.Error("Search failed", "error", err, "query", queryText)
		response.InternalError(w, "Search failed", s.logger)
		return
	}

	response.Success(w, result, s.logger)
}
