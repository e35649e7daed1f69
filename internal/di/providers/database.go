package providers

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/samber/do/v2"

	"github.com/151henry151/rompmusic-server/internal/config"
	"github.com/151henry151/rompmusic-server/internal/logger"
	"github.com/151henry151/rompmusic-server/internal/search"
	"github.com/151henry151/rompmusic-server/internal/sse"
	"github.com/151henry151/rompmusic-server/internal/store"
)

// StoreHandle wraps the store with shutdown capability.
type StoreHandle struct {
	*store.Store
}

// Shutdown implements do.Shutdownable.
func (h *StoreHandle) Shutdown() error {
	return h.Close()
}

// ProvideStore provides the database store.
func ProvideStore(i do.Injector) (*StoreHandle, error) {
	cfg := do.MustInvoke[*config.Config](i)
	log := do.MustInvoke[*logger.Logger](i)

	if err := os.MkdirAll(cfg.Library.DataPath, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create data directory: %w", err)
	}

	dbPath := filepath.Join(cfg.Library.DataPath, "library.db")
	db, err := store.Open(dbPath, log.Logger)
	if err != nil {
		return nil, err
	}

	log.Info("Database initialized", "path", dbPath)

	return &StoreHandle{Store: db}, nil
}

// ProvideBroadcaster provides the scan progress broadcaster.
func ProvideBroadcaster(i do.Injector) (*sse.Broadcaster, error) {
	log := do.MustInvoke[*logger.Logger](i)
	return sse.NewBroadcaster(log.Logger), nil
}

// SearchIndexHandle wraps the search index with shutdown capability.
type SearchIndexHandle struct {
	*search.Index
}

// Shutdown implements do.Shutdownable.
func (h *SearchIndexHandle) Shutdown() error {
	return h.Close()
}

// ProvideSearchIndex provides the Bleve track index.
func ProvideSearchIndex(i do.Injector) (*SearchIndexHandle, error) {
	cfg := do.MustInvoke[*config.Config](i)
	log := do.MustInvoke[*logger.Logger](i)
	storeHandle := do.MustInvoke[*StoreHandle](i)

	ix, err := search.NewIndex(search.Options{
		DataPath: filepath.Join(cfg.Library.DataPath, "search"),
		Namer:    storeHandle.Store,
		Logger:   log.Logger,
	})
	if err != nil {
		return nil, err
	}

	count, _ := ix.DocumentCount()
	log.Info("Search index ready", "documents", count)

	return &SearchIndexHandle{Index: ix}, nil
}
