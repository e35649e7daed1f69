package providers

import (
	"context"

	"github.com/samber/do/v2"

	"github.com/151henry151/rompmusic-server/internal/config"
	"github.com/151henry151/rompmusic-server/internal/logger"
	"github.com/151henry151/rompmusic-server/internal/scheduler"
	"github.com/151henry151/rompmusic-server/internal/watcher"
)

// SchedulerHandle wraps the scheduler with shutdown capability.
type SchedulerHandle struct {
	*scheduler.Scheduler
}

// Shutdown implements do.Shutdownable.
func (h *SchedulerHandle) Shutdown() error {
	h.Scheduler.Stop()
	return nil
}

// ProvideScheduler provides the periodic job scheduler.
func ProvideScheduler(i do.Injector) (*SchedulerHandle, error) {
	cfg := do.MustInvoke[*config.Config](i)
	log := do.MustInvoke[*logger.Logger](i)
	scannerHandle := do.MustInvoke[*ScannerHandle](i)

	s := scheduler.New(scheduler.Config{
		ScanInterval:    cfg.Scheduler.ScanInterval,
		ArtworkInterval: cfg.Scheduler.ArtworkInterval,
		ArtworkCommand:  cfg.Artwork.Command,
		LibraryRoot:     cfg.Library.MusicPath,
	}, scannerHandle.Scanner, log.Logger)

	s.Start()

	return &SchedulerHandle{Scheduler: s}, nil
}

// FileWatcherHandle wraps the file watcher with shutdown capability.
type FileWatcherHandle struct {
	*watcher.Watcher
	cancel context.CancelFunc
}

// Shutdown implements do.Shutdownable.
func (h *FileWatcherHandle) Shutdown() error {
	if h.Watcher == nil {
		return nil
	}
	h.cancel()
	return h.Watcher.Stop()
}

// ProvideFileWatcher provides the library file watcher. Disabled via config,
// it returns an empty handle.
func ProvideFileWatcher(i do.Injector) (*FileWatcherHandle, error) {
	cfg := do.MustInvoke[*config.Config](i)
	log := do.MustInvoke[*logger.Logger](i)
	scannerHandle := do.MustInvoke[*ScannerHandle](i)

	if !cfg.Scanner.WatchEnabled {
		log.Info("File watcher disabled")
		return &FileWatcherHandle{}, nil
	}

	w, err := watcher.New(cfg.Library.MusicPath, cfg.Scanner.WatchDebounce, scannerHandle.Scanner, log.Logger)
	if err != nil {
		return nil, err
	}

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		if err := w.Start(ctx); err != nil {
			log.Error("File watcher error", "error", err)
		}
	}()

	log.Info("File watcher started", "root", cfg.Library.MusicPath, "debounce", cfg.Scanner.WatchDebounce)

	return &FileWatcherHandle{Watcher: w, cancel: cancel}, nil
}
