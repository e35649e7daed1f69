package sse

import (
	"encoding/json/v2"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/151henry151/rompmusic-server/internal/domain"
)

const heartbeatInterval = 30 * time.Second

// Handler streams scan progress at GET /api/v1/scan/events.
type Handler struct {
	broadcaster *Broadcaster
	logger      *slog.Logger
}

// NewHandler creates a new SSE Handler.
func NewHandler(broadcaster *Broadcaster, logger *slog.Logger) *Handler {
	return &Handler{
		broadcaster: broadcaster,
		logger:      logger,
	}
}

// ServeHTTP handles the SSE connection. The stream opens with a status event
// carrying the last known run (so late subscribers always learn the current
// or terminal state), then relays live events. It ends naturally once a
// terminal event is delivered, or when the client disconnects.
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	if r.Context().Err() != nil {
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("X-Accel-Buffering", "no") // Disable nginx buffering

	rc := http.NewResponseController(w)
	if err := rc.Flush(); err != nil {
		h.logger.Error("failed to flush headers", slog.String("error", err.Error()))
		http.Error(w, "Streaming not supported", http.StatusInternalServerError)
		return
	}

	sub, err := h.broadcaster.Subscribe()
	if err != nil {
		h.logger.Error("failed to attach subscriber", slog.String("error", err.Error()))
		http.Error(w, "Failed to establish connection", http.StatusInternalServerError)
		return
	}
	defer h.broadcaster.Unsubscribe(sub.ID)

	subLogger := h.logger.With(slog.String("subscriber_id", sub.ID))

	type statusPayload struct {
		SubscriberID string          `json:"subscriber_id"`
		LastRun      *domain.ScanRun `json:"last_run,omitempty"`
	}
	if err := h.sendEvent(w, rc, "status", statusPayload{
		SubscriberID: sub.ID,
		LastRun:      h.broadcaster.LastRun(),
	}); err != nil {
		subLogger.Warn("failed to send initial status", slog.String("error", err.Error()))
		return
	}

	ctx := r.Context()

	heartbeatTicker := time.NewTicker(heartbeatInterval)
	defer heartbeatTicker.Stop()

	for {
		select {
		case event := <-sub.Events():
			if err := h.sendEvent(w, rc, string(event.Kind), event); err != nil {
				// Client disconnect is normal, not an error condition.
				subLogger.Debug("subscriber disconnected during send")
				return
			}
			if event.Kind.IsTerminal() {
				subLogger.Debug("run finished, closing stream",
					slog.Int64("run_id", event.RunID),
					slog.String("outcome", string(event.Kind)))
				return
			}

		case <-heartbeatTicker.C:
			hb := &ProgressEvent{Kind: EventHeartbeat, At: time.Now().UTC()}
			if err := h.sendEvent(w, rc, string(EventHeartbeat), hb); err != nil {
				subLogger.Debug("subscriber disconnected during heartbeat")
				return
			}

		case <-sub.Done():
			subLogger.Debug("subscriber closed by broadcaster")
			return

		case <-ctx.Done():
			subLogger.Debug("subscriber context canceled")
			return
		}
	}
}

// sendEvent writes one SSE frame and flushes it.
func (h *Handler) sendEvent(w http.ResponseWriter, rc *http.ResponseController, eventType string, data any) error {
	jsonData, err := json.Marshal(data)
	if err != nil {
		return fmt.Errorf("marshal event data: %w", err)
	}

	if _, err := fmt.Fprintf(w, "event: %s\n", eventType); err != nil {
		return err
	}
	if _, err := fmt.Fprintf(w, "data: %s\n\n", jsonData); err != nil {
		return err
	}
	if err := rc.Flush(); err != nil {
		return err
	}

	// Reset the write deadline after each successful write so hung
	// connections eventually fail.
	if err := rc.SetWriteDeadline(time.Now().Add(60 * time.Second)); err != nil {
		h.logger.Debug("failed to set write deadline", slog.String("error", err.Error()))
	}

	return nil
}
