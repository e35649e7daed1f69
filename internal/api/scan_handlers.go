package api

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/151henry151/rompmusic-server/internal/domain"
	"github.com/151henry151/rompmusic-server/internal/http/response"
)

// handleStartScan kicks off a background library scan. Exactly one scan runs
// at a time; a second trigger while one is active returns 409. The upstream
// auth proxy identifies the caller via X-Actor; absent that, the run is
// recorded as manually triggered.
// POST /api/v1/scan
func (s *Server) handleStartScan(w http.ResponseWriter, r *http.Request) {
	trigger := domain.TriggerManual
	if actor := strings.TrimSpace(r.Header.Get("X-Actor")); actor != "" {
		trigger = domain.ScanTrigger(actor)
	}

	run, err := s.scanner.Start(trigger)
	if err != nil {
		response.HandleError(w, err, s.logger)
		return
	}

	s.logger.Info("Scan started", "run_id", run.ID, "triggered_by", run.TriggeredBy)
	response.Accepted(w, run, s.logger)
}

// handleCancelScan requests cancellation of the active scan. The scan stops
// at the next file boundary; already-applied updates are kept.
// POST /api/v1/scan/cancel
func (s *Server) handleCancelScan(w http.ResponseWriter, r *http.Request) {
	if err := s.scanner.Cancel(); err != nil {
		response.HandleError(w, err, s.logger)
		return
	}

	s.logger.Info("Scan cancellation requested")
	response.Accepted(w, map[string]string{"status": "cancelling"}, s.logger)
}

// handleScanStatus returns the active or most recent scan run.
// GET /api/v1/scan/status
func (s *Server) handleScanStatus(w http.ResponseWriter, r *http.Request) {
	run, err := s.store.LatestScanRun(r.Context())
	if err != nil {
		response.HandleError(w, err, s.logger)
		return
	}
	response.Success(w, run, s.logger)
}

// handleListScanRuns returns scan run history, newest first.
// GET /api/v1/scan/runs
func (s *Server) handleListScanRuns(w http.ResponseWriter, r *http.Request) {
	limit := 20
	if raw := r.URL.Query().Get("limit"); raw != "" {
		if n, err := strconv.Atoi(raw); err == nil && n > 0 {
			limit = min(n, 100)
		}
	}

	runs, err := s.store.ListScanRuns(r.Context(), limit)
	if err != nil {
		s.logger.Error("Failed to list scan runs", "error", err)
		response.InternalError(w, "Failed to list scan runs", s.logger)
		return
	}
	if runs == nil {
		runs = []*domain.ScanRun{}
	}

	response.Success(w, runs, s.logger)
}

// handleScanEvents streams live scan progress over SSE.
// GET /api/v1/scan/events
func (s *Server) handleScanEvents(w http.ResponseWriter, r *http.Request) {
	s.sseHandler.ServeHTTP(w, r)
}
