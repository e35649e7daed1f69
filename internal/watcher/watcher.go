// Package watcher monitors the library directory and triggers rescans when
// audio files change on disk.
package watcher

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/151henry151/rompmusic-server/internal/domain"
	apperrors "github.com/151henry151/rompmusic-server/internal/errors"
	"github.com/151henry151/rompmusic-server/internal/metadata"
)

// DefaultDebounce is how long the library must stay quiet before a change
// burst collapses into a single scan. Rips and large copies touch hundreds
// of files; one scan at the end covers them all.
const DefaultDebounce = 5 * time.Second

// ScanTriggerer starts a library scan. Satisfied by *scanner.Scanner.
type ScanTriggerer interface {
	Start(actor domain.ScanTrigger) (*domain.ScanRun, error)
}

// Watcher converts filesystem events under the library root into debounced
// scan triggers. Directories are watched recursively; newly created
// directories are picked up as they appear.
type Watcher struct {
	root     string
	debounce time.Duration
	trigger  ScanTriggerer
	logger   *slog.Logger

	fsw *fsnotify.Watcher

	mu    sync.Mutex
	timer *time.Timer

	done chan struct{}
	wg   sync.WaitGroup
}

// New creates a Watcher over the library root. A non-positive debounce uses
// DefaultDebounce.
func New(root string, debounce time.Duration, trigger ScanTriggerer, logger *slog.Logger) (*Watcher, error) {
	if debounce <= 0 {
		debounce = DefaultDebounce
	}

	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to create fsnotify watcher: %w", err)
	}

	w := &Watcher{
		root:     filepath.Clean(root),
		debounce: debounce,
		trigger:  trigger,
		logger:   logger,
		fsw:      fsw,
		done:     make(chan struct{}),
	}

	if err := w.watchTree(w.root); err != nil {
		fsw.Close()
		return nil, err
	}

	return w, nil
}

// Start begins processing events. It blocks until the context is cancelled
// or Stop is called.
func (w *Watcher) Start(ctx context.Context) error {
	w.wg.Add(1)
	go w.processEvents(ctx)

	select {
	case <-ctx.Done():
	case <-w.done:
	}
	return nil
}

// Stop stops the watcher and releases resources.
func (w *Watcher) Stop() error {
	select {
	case <-w.done:
	default:
		close(w.done)
	}
	err := w.fsw.Close()
	w.wg.Wait()

	w.mu.Lock()
	if w.timer != nil {
		w.timer.Stop()
	}
	w.mu.Unlock()

	return err
}

// watchTree recursively adds watches for root and every subdirectory,
// skipping hidden directories.
func (w *Watcher) watchTree(root string) error {
	return filepath.WalkDir(root, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			w.logger.Warn("Failed to access path while watching", "path", path, "error", err)
			return nil
		}
		if !d.IsDir() {
			return nil
		}
		if path != root && isHidden(d.Name()) {
			return filepath.SkipDir
		}
		if err := w.fsw.Add(path); err != nil {
			w.logger.Error("Failed to add watch", "path", path, "error", err)
			return nil
		}
		w.logger.Debug("Added watch", "path", path)
		return nil
	})
}

func (w *Watcher) processEvents(ctx context.Context) {
	defer w.wg.Done()

	for {
		select {
		case <-ctx.Done():
			return
		case <-w.done:
			return
		case event, ok := <-w.fsw.Events:
			if !ok {
				return
			}
			w.handleEvent(event)
		case err, ok := <-w.fsw.Errors:
			if !ok {
				return
			}
			w.logger.Warn("File watcher error", "error", err)
		}
	}
}

func (w *Watcher) handleEvent(event fsnotify.Event) {
	name := filepath.Base(event.Name)
	if isHidden(name) {
		return
	}

	// New directories need their own watch before events inside them arrive.
	if event.Op.Has(fsnotify.Create) {
		if info, err := os.Stat(event.Name); err == nil && info.IsDir() {
			if err := w.watchTree(event.Name); err != nil {
				w.logger.Warn("Failed to watch new directory", "path", event.Name, "error", err)
			}
			w.scheduleScan(event.Name)
			return
		}
	}

	// Remove and Rename events for audio files matter even though the file
	// is gone; Stat no longer works, so judge by extension alone.
	if !metadata.IsSupported(name) {
		return
	}

	w.scheduleScan(event.Name)
}

// scheduleScan arms (or re-arms) the debounce timer.
func (w *Watcher) scheduleScan(path string) {
	w.mu.Lock()
	defer w.mu.Unlock()

	w.logger.Debug("Library change detected", "path", path)

	if w.timer != nil {
		w.timer.Reset(w.debounce)
		return
	}

	w.timer = time.AfterFunc(w.debounce, func() {
		select {
		case <-w.done:
			return
		default:
		}

		run, err := w.trigger.Start(domain.TriggerWatcher)
		switch {
		case err == nil:
			w.logger.Info("Scan triggered by file watcher", "run_id", run.ID)
		case apperrors.Is(err, apperrors.ErrScanInProgress):
			w.logger.Debug("Skipping watcher scan, one already running")
		default:
			w.logger.Error("Watcher scan trigger failed", "error", err)
		}
	})
}

func isHidden(name string) bool {
	return strings.HasPrefix(name, ".") && name != "." && name != ".."
}
