// Package scheduler runs periodic background jobs: library rescans and
// artwork fetching via an external helper.
package scheduler

import (
	"context"
	"log/slog"
	"os/exec"
	"strings"
	"sync"
	"time"

	"github.com/151henry151/rompmusic-server/internal/domain"
	apperrors "github.com/151henry151/rompmusic-server/internal/errors"
)

// ScanTriggerer starts a library scan. Satisfied by *scanner.Scanner.
type ScanTriggerer interface {
	Start(actor domain.ScanTrigger) (*domain.ScanRun, error)
}

// Config controls the scheduler's two timers. A zero interval disables that
// timer entirely.
type Config struct {
	ScanInterval    time.Duration
	ArtworkInterval time.Duration
	ArtworkCommand  string // path to the artwork-fetch executable
	LibraryRoot     string
}

// Scheduler owns the periodic scan and artwork timers.
type Scheduler struct {
	cfg     Config
	trigger ScanTriggerer
	logger  *slog.Logger

	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// New creates a Scheduler. Call Start to arm the timers.
func New(cfg Config, trigger ScanTriggerer, logger *slog.Logger) *Scheduler {
	return &Scheduler{cfg: cfg, trigger: trigger, logger: logger}
}

// Start launches the enabled timers in background goroutines.
func (s *Scheduler) Start() {
	ctx, cancel := context.WithCancel(context.Background())
	s.cancel = cancel

	if s.cfg.ScanInterval > 0 {
		s.wg.Add(1)
		go s.runTimer(ctx, s.cfg.ScanInterval, s.triggerScan)
		s.logger.Info("Scheduled scans enabled", "interval", s.cfg.ScanInterval)
	}

	if s.cfg.ArtworkInterval > 0 && s.cfg.ArtworkCommand != "" {
		s.wg.Add(1)
		go s.runTimer(ctx, s.cfg.ArtworkInterval, s.fetchArtwork)
		s.logger.Info("Scheduled artwork fetch enabled",
			"interval", s.cfg.ArtworkInterval,
			"command", s.cfg.ArtworkCommand,
		)
	}
}

// Stop cancels the timers and waits for in-flight jobs to return.
func (s *Scheduler) Stop() {
	if s.cancel != nil {
		s.cancel()
	}
	s.wg.Wait()
}

func (s *Scheduler) runTimer(ctx context.Context, interval time.Duration, job func(context.Context)) {
	defer s.wg.Done()

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			job(ctx)
		}
	}
}

func (s *Scheduler) triggerScan(context.Context) {
	run, err := s.trigger.Start(domain.TriggerScheduler)
	switch {
	case err == nil:
		s.logger.Info("Scheduled scan started", "run_id", run.ID)
	case apperrors.Is(err, apperrors.ErrScanInProgress):
		s.logger.Debug("Skipping scheduled scan, one already running")
	default:
		s.logger.Error("Scheduled scan failed to start", "error", err)
	}
}

// fetchArtwork shells out to the configured artwork helper with the library
// root as its argument and logs whatever it prints.
func (s *Scheduler) fetchArtwork(ctx context.Context) {
	start := time.Now()

	cmd := exec.CommandContext(ctx, s.cfg.ArtworkCommand, s.cfg.LibraryRoot)
	output, err := cmd.CombinedOutput()

	trimmed := strings.TrimSpace(string(output))
	if err != nil {
		s.logger.Error("Artwork fetch failed",
			"error", err,
			"output", trimmed,
			"duration", time.Since(start),
		)
		return
	}

	s.logger.Info("Artwork fetch completed", "duration", time.Since(start))
	if trimmed != "" {
		s.logger.Debug("Artwork fetch output", "output", trimmed)
	}
}
