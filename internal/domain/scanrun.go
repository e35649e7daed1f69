package domain

import "time"

// ScanStatus is the lifecycle state of a library scan run.
type ScanStatus string

const (
	ScanPending   ScanStatus = "pending"
	ScanRunning   ScanStatus = "running"
	ScanSucceeded ScanStatus = "succeeded"
	ScanFailed    ScanStatus = "failed"
	ScanCancelled ScanStatus = "cancelled"
)

// IsTerminal reports whether the status is final. A terminal run never
// transitions again and its counters are frozen.
func (s ScanStatus) IsTerminal() bool {
	switch s {
	case ScanSucceeded, ScanFailed, ScanCancelled:
		return true
	}
	return false
}

// ScanTrigger records what initiated a scan run.
type ScanTrigger string

const (
	TriggerManual    ScanTrigger = "manual"
	TriggerScheduler ScanTrigger = "scheduler"
	TriggerWatcher   ScanTrigger = "watcher"
)

// ScanRun is one execution of the ingestion pipeline. IDs are assigned by
// the store and are strictly increasing, so clients can order runs without
// comparing timestamps.
type ScanRun struct {
	ID              int64       `json:"id"`
	Status          ScanStatus  `json:"status"`
	TriggeredBy     ScanTrigger `json:"triggered_by"`
	FilesDiscovered int         `json:"files_discovered"`
	FilesProcessed  int         `json:"files_processed"`
	TracksAdded     int         `json:"tracks_added"`
	TracksUpdated   int         `json:"tracks_updated"`
	TracksRemoved   int         `json:"tracks_removed"`
	ExtractErrors   int         `json:"extract_errors"`
	ErrorMessage    string      `json:"error_message,omitempty"`
	StartedAt       time.Time   `json:"started_at"`
	FinishedAt      *time.Time  `json:"finished_at,omitempty"`
}
