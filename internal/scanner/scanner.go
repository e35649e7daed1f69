// Package scanner orchestrates library scans: it walks the configured root,
// diffs the filesystem against the persisted index, extracts metadata for
// new and changed files on a bounded worker pool, applies upserts serially,
// removes vanished tracks, and reports ordered progress events.
package scanner

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"runtime"
	"sync"
	"time"

	"github.com/151henry151/rompmusic-server/internal/domain"
	apperrors "github.com/151henry151/rompmusic-server/internal/errors"
	"github.com/151henry151/rompmusic-server/internal/metadata"
	"github.com/151henry151/rompmusic-server/internal/sse"
	"github.com/151henry151/rompmusic-server/internal/store"
)

// SearchIndexer keeps the full-text index in step with the library index.
// The scanner calls it for every track it adds, updates, or removes.
type SearchIndexer interface {
	IndexTrack(track *domain.Track) error
	DeleteTrack(trackID string) error
}

// NoopSearchIndexer satisfies SearchIndexer without doing anything.
type NoopSearchIndexer struct{}

func (NoopSearchIndexer) IndexTrack(*domain.Track) error { return nil }
func (NoopSearchIndexer) DeleteTrack(string) error       { return nil }

// Scanner runs library scans. At most one run is active at a time; a second
// trigger while one is running is rejected with errors.ErrScanInProgress.
// Runs are detached from the triggering caller: they carry their own context
// and survive client disconnects. Cancel stops a run cooperatively at a
// file boundary, preserving all upserts applied so far.
type Scanner struct {
	root        string
	workers     int
	store       *store.Store
	extractor   metadata.Extractor
	search      SearchIndexer
	broadcaster *sse.Broadcaster
	walker      *Walker
	logger      *slog.Logger

	// mu guards the one-run-at-a-time token. The token is released on
	// every exit path of run, including failure and cancellation.
	mu      sync.Mutex
	running bool
	cancel  context.CancelFunc
	wg      sync.WaitGroup
}

// Config configures a Scanner.
type Config struct {
	Root    string
	Workers int // extraction pool size; defaults to NumCPU
}

// New creates a Scanner. The search indexer may be nil.
func New(cfg Config, st *store.Store, extractor metadata.Extractor, broadcaster *sse.Broadcaster, search SearchIndexer, logger *slog.Logger) *Scanner {
	workers := cfg.Workers
	if workers <= 0 {
		workers = runtime.NumCPU()
	}
	if search == nil {
		search = NoopSearchIndexer{}
	}
	return &Scanner{
		root:        filepath.Clean(cfg.Root),
		workers:     workers,
		store:       st,
		extractor:   extractor,
		search:      search,
		broadcaster: broadcaster,
		walker:      NewWalker(logger),
		logger:      logger,
	}
}

// Root returns the library root the scanner watches.
func (s *Scanner) Root() string { return s.root }

// IsRunning reports whether a scan is currently active.
func (s *Scanner) IsRunning() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.running
}

// Start triggers a scan on behalf of actor. It returns the created run
// immediately; the scan itself executes on a detached goroutine with its own
// context, so the triggering client disconnecting never aborts it. Returns
// errors.ErrScanInProgress when a run is already active.
func (s *Scanner) Start(actor domain.ScanTrigger) (*domain.ScanRun, error) {
	s.mu.Lock()
	if s.running {
		s.mu.Unlock()
		return nil, apperrors.ScanInProgress("a scan is already running")
	}
	s.running = true
	ctx, cancel := context.WithCancel(context.Background())
	s.cancel = cancel
	s.mu.Unlock()

	run := &domain.ScanRun{
		Status:      domain.ScanRunning,
		TriggeredBy: actor,
		StartedAt:   time.Now().UTC(),
	}
	if err := s.store.CreateScanRun(ctx, run); err != nil {
		s.release()
		cancel()
		return nil, fmt.Errorf("create scan run: %w", err)
	}

	s.broadcaster.Publish(sse.EventRunStarted, run, nil)
	s.logger.Info("scan started",
		slog.Int64("run_id", run.ID),
		slog.String("triggered_by", string(actor)))

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		defer cancel()
		s.run(ctx, run)
	}()

	snapshot := *run
	return &snapshot, nil
}

// Cancel requests cancellation of the active run. The signal is observed at
// the next file boundary; in-flight extractions finish but their results are
// not applied. Returns errors.ErrNotFound when no run is active.
func (s *Scanner) Cancel() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.running || s.cancel == nil {
		return apperrors.NotFound("no scan in progress")
	}
	s.cancel()
	return nil
}

// Wait blocks until the active run (if any) finishes. Used in shutdown and
// tests.
func (s *Scanner) Wait() {
	s.wg.Wait()
}

// Shutdown cancels any active run and waits for it to wind down.
func (s *Scanner) Shutdown(ctx context.Context) error {
	s.mu.Lock()
	if s.cancel != nil {
		s.cancel()
	}
	s.mu.Unlock()

	done := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (s *Scanner) release() {
	s.mu.Lock()
	s.running = false
	s.cancel = nil
	s.mu.Unlock()
}

type extractJob struct {
	file  WalkResult
	isNew bool
}

type extractResult struct {
	job  extractJob
	meta *metadata.TrackMetadata
	err  error
}

// run executes one scan to its terminal state. The one-run token is released
// on every exit path.
func (s *Scanner) run(ctx context.Context, run *domain.ScanRun) {
	defer s.release()

	if info, err := os.Stat(s.root); err != nil {
		s.fail(run, fmt.Errorf("library root inaccessible: %w", err))
		return
	} else if !info.IsDir() {
		s.fail(run, fmt.Errorf("library root %s is not a directory", s.root))
		return
	}

	s.broadcaster.Publish(sse.EventPhase, run, &sse.PhasePayload{Phase: "discovering"})

	discovered, ok := s.discover(ctx)
	if !ok {
		s.finish(run, domain.ScanCancelled)
		return
	}

	signatures, err := s.store.TrackSignatures(ctx)
	if err != nil {
		s.fail(run, fmt.Errorf("load track signatures: %w", err))
		return
	}

	// Classify. Unchanged files count as processed without re-extraction.
	var (
		toExtract []extractJob
		seen      = make(map[string]struct{}, len(discovered))
	)
	run.FilesDiscovered = len(discovered)
	s.broadcaster.SetLastRun(run)

	for _, file := range discovered {
		seen[file.RelPath] = struct{}{}
		sig, exists := signatures[file.RelPath]
		switch {
		case !exists:
			toExtract = append(toExtract, extractJob{file: file, isNew: true})
		case sig.Changed(domain.Signature{Size: file.Size, ModTime: file.ModTime}):
			toExtract = append(toExtract, extractJob{file: file, isNew: false})
		default:
			run.FilesProcessed++
			s.publishFileProgress(run, file.RelPath)
		}
	}

	var removedPaths []string
	for path := range signatures {
		if _, ok := seen[path]; !ok {
			removedPaths = append(removedPaths, path)
		}
	}

	s.broadcaster.Publish(sse.EventPhase, run, &sse.PhasePayload{Phase: "extracting"})

	cancelled := s.extractAndApply(ctx, run, toExtract)
	if cancelled {
		s.finish(run, domain.ScanCancelled)
		return
	}

	s.broadcaster.Publish(sse.EventPhase, run, &sse.PhasePayload{Phase: "reconciling"})

	if err := s.removeVanished(ctx, run, removedPaths); err != nil {
		s.fail(run, err)
		return
	}

	s.finish(run, domain.ScanSucceeded)
}

// discover collects the candidate file set. Returns ok=false when the walk
// was cut short by cancellation.
func (s *Scanner) discover(ctx context.Context) ([]WalkResult, bool) {
	var discovered []WalkResult
	for file := range s.walker.Walk(ctx, s.root) {
		discovered = append(discovered, file)
	}
	if ctx.Err() != nil {
		return discovered, false
	}
	return discovered, true
}

// extractAndApply runs the bounded extraction pool and applies results
// serially. Extraction of independent files is parallel; index writes happen
// one at a time on this goroutine, so worker count never races the index.
// Returns true when the run was cancelled mid-way.
func (s *Scanner) extractAndApply(ctx context.Context, run *domain.ScanRun, toExtract []extractJob) bool {
	if len(toExtract) == 0 {
		return ctx.Err() != nil
	}

	jobs := make(chan extractJob, len(toExtract))
	results := make(chan extractResult, len(toExtract))

	for range s.workers {
		go func() {
			for j := range jobs {
				select {
				case <-ctx.Done():
					results <- extractResult{job: j, err: ctx.Err()}
					continue
				default:
				}
				meta, err := s.extractor.Extract(ctx, j.file.Path)
				results <- extractResult{job: j, meta: meta, err: err}
			}
		}()
	}

	for _, j := range toExtract {
		jobs <- j
	}
	close(jobs)

	for range len(toExtract) {
		// Cancellation is observed here, between files: in-flight
		// extractions finish in the background (the buffered results
		// channel means the workers never block), but nothing further is
		// applied to the index.
		if ctx.Err() != nil {
			return true
		}

		r := <-results
		if r.err != nil {
			if ctx.Err() != nil {
				return true
			}
			run.ExtractErrors++
			run.FilesProcessed++
			s.logger.Warn("extraction failed, keeping any prior record",
				slog.String("path", r.job.file.RelPath),
				slog.String("error", r.err.Error()))
			s.publishFileProgress(run, r.job.file.RelPath)
			continue
		}

		track, created, err := s.store.UpsertTrack(ctx, &store.TrackUpsert{
			Path:    r.job.file.RelPath,
			Size:    r.job.file.Size,
			ModTime: r.job.file.ModTime,
			Meta:    r.meta,
		})
		if err != nil {
			if ctx.Err() != nil {
				return true
			}
			run.ExtractErrors++
			run.FilesProcessed++
			s.logger.Error("track upsert failed",
				slog.String("path", r.job.file.RelPath),
				slog.String("error", err.Error()))
			s.publishFileProgress(run, r.job.file.RelPath)
			continue
		}

		if created {
			run.TracksAdded++
		} else {
			run.TracksUpdated++
		}
		run.FilesProcessed++
		if err := s.search.IndexTrack(track); err != nil {
			s.logger.Warn("search index update failed",
				slog.String("track_id", track.ID),
				slog.String("error", err.Error()))
		}
		s.publishFileProgress(run, r.job.file.RelPath)
	}

	return false
}

// removeVanished deletes tracks whose paths are gone and prunes empty albums
// and artists.
func (s *Scanner) removeVanished(ctx context.Context, run *domain.ScanRun, removedPaths []string) error {
	if len(removedPaths) == 0 {
		return nil
	}

	removedIDs, err := s.store.DeleteTracksByPaths(ctx, removedPaths)
	if err != nil {
		return fmt.Errorf("delete vanished tracks: %w", err)
	}
	run.TracksRemoved = len(removedIDs)

	albums, artists, err := s.store.PruneEmpty(ctx)
	if err != nil {
		return fmt.Errorf("prune empty aggregates: %w", err)
	}
	if albums > 0 || artists > 0 {
		s.logger.Info("pruned empty aggregates",
			slog.Int("albums", albums),
			slog.Int("artists", artists))
	}

	for _, trackID := range removedIDs {
		if err := s.search.DeleteTrack(trackID); err != nil {
			s.logger.Warn("search index delete failed",
				slog.String("track_id", trackID),
				slog.String("error", err.Error()))
		}
	}
	return nil
}

func (s *Scanner) publishFileProgress(run *domain.ScanRun, path string) {
	s.broadcaster.SetLastRun(run)
	s.broadcaster.Publish(sse.EventFileProgress, run, &sse.FileProgressPayload{
		Path:       path,
		Discovered: run.FilesDiscovered,
		Processed:  run.FilesProcessed,
	})
}

// finish drives the run to a terminal status and emits the final event. The
// completion (or cancellation) event is always the last event of the run.
func (s *Scanner) finish(run *domain.ScanRun, status domain.ScanStatus) {
	now := time.Now().UTC()
	run.Status = status
	run.FinishedAt = &now

	// Persist with a fresh context: the run context is already canceled on
	// the cancellation path.
	persistCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := s.store.UpdateScanRun(persistCtx, run); err != nil {
		s.logger.Error("failed to persist scan run", slog.Int64("run_id", run.ID), slog.String("error", err.Error()))
	}

	kind := sse.EventCompleted
	if status == domain.ScanCancelled {
		kind = sse.EventCancelled
	}
	s.broadcaster.Publish(kind, run, &sse.CompletionPayload{Run: run})

	s.logger.Info("scan finished",
		slog.Int64("run_id", run.ID),
		slog.String("status", string(status)),
		slog.Int("files_discovered", run.FilesDiscovered),
		slog.Int("files_processed", run.FilesProcessed),
		slog.Int("tracks_added", run.TracksAdded),
		slog.Int("tracks_updated", run.TracksUpdated),
		slog.Int("tracks_removed", run.TracksRemoved),
		slog.Int("extract_errors", run.ExtractErrors))
}

// fail drives the run to failed with a stored error message.
func (s *Scanner) fail(run *domain.ScanRun, cause error) {
	now := time.Now().UTC()
	run.Status = domain.ScanFailed
	run.ErrorMessage = cause.Error()
	run.FinishedAt = &now

	persistCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := s.store.UpdateScanRun(persistCtx, run); err != nil {
		s.logger.Error("failed to persist scan run", slog.Int64("run_id", run.ID), slog.String("error", err.Error()))
	}

	s.broadcaster.Publish(sse.EventFailed, run, &sse.CompletionPayload{Run: run})
	s.logger.Error("scan failed",
		slog.Int64("run_id", run.ID),
		slog.String("error", cause.Error()))
}
