// Package sse implements the scan progress broadcaster: a single producer
// (the active scan run) fanning sequence-numbered events out to any number
// of subscribers over Server-Sent Events.
package sse

import (
	"time"

	"github.com/151henry151/rompmusic-server/internal/domain"
)

// EventKind classifies progress events.
type EventKind string

const (
	EventRunStarted   EventKind = "run_started"
	EventPhase        EventKind = "phase"
	EventFileProgress EventKind = "file_progress"
	EventCompleted    EventKind = "completed"
	EventFailed       EventKind = "failed"
	EventCancelled    EventKind = "cancelled"
	EventHeartbeat    EventKind = "heartbeat"
)

// IsTerminal reports whether this kind ends a run's event stream.
func (k EventKind) IsTerminal() bool {
	switch k {
	case EventCompleted, EventFailed, EventCancelled:
		return true
	}
	return false
}

// isDroppable reports whether the event may be coalesced when a subscriber
// falls behind. Only high-frequency file-progress events are droppable;
// lifecycle events always reach every attached subscriber.
func (k EventKind) isDroppable() bool {
	return k == EventFileProgress || k == EventHeartbeat
}

// ProgressEvent is one entry in a run's ordered event stream. Seq is
// assigned by the broadcaster and is strictly increasing within a run; each
// subscriber observes events in non-decreasing sequence order.
type ProgressEvent struct {
	RunID   int64     `json:"run_id"`
	Seq     uint64    `json:"seq"`
	Kind    EventKind `json:"kind"`
	At      time.Time `json:"at"`
	Payload any       `json:"payload,omitempty"`
}

// PhasePayload announces a phase transition within a run.
type PhasePayload struct {
	Phase string `json:"phase"`
}

// FileProgressPayload reports per-file progress. Processed never decreases
// and never exceeds Discovered.
type FileProgressPayload struct {
	Path       string `json:"path,omitempty"`
	Discovered int    `json:"files_discovered"`
	Processed  int    `json:"files_processed"`
}

// CompletionPayload carries the final counters of a terminal event.
type CompletionPayload struct {
	Run *domain.ScanRun `json:"run"`
}
