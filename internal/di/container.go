// Package di provides dependency injection configuration for the RompMusic
// server.
package di

import (
	"github.com/samber/do/v2"

	"github.com/151henry151/rompmusic-server/internal/config"
	"github.com/151henry151/rompmusic-server/internal/di/providers"
	"github.com/151henry151/rompmusic-server/internal/logger"
	"github.com/151henry151/rompmusic-server/internal/metadata"
	"github.com/151henry151/rompmusic-server/internal/sse"
)

// NewContainer creates and configures the DI container with all providers.
func NewContainer() *do.RootScope {
	injector := do.New()

	// Core infrastructure
	do.Provide(injector, providers.ProvideConfig)
	do.Provide(injector, providers.ProvideLogger)

	// Storage layer
	do.Provide(injector, providers.ProvideStore)
	do.Provide(injector, providers.ProvideBroadcaster)
	do.Provide(injector, providers.ProvideSearchIndex)

	// Scan pipeline
	do.Provide(injector, providers.ProvideExtractor)
	do.Provide(injector, providers.ProvideScanner)

	// Workers
	do.Provide(injector, providers.ProvideScheduler)
	do.Provide(injector, providers.ProvideFileWatcher)

	// Server
	do.Provide(injector, providers.ProvideHTTPServer)

	return injector
}

// Bootstrap initializes all services and returns once every provider has run.
// Invocation order triggers lazy initialization of the full dependency graph.
func Bootstrap(injector *do.RootScope) error {
	_ = do.MustInvoke[*config.Config](injector)
	_ = do.MustInvoke[*logger.Logger](injector)
	_ = do.MustInvoke[*providers.StoreHandle](injector)
	_ = do.MustInvoke[*sse.Broadcaster](injector)
	_ = do.MustInvoke[*providers.SearchIndexHandle](injector)
	_ = do.MustInvoke[*metadata.TagLibExtractor](injector)
	_ = do.MustInvoke[*providers.ScannerHandle](injector)
	_ = do.MustInvoke[*providers.SchedulerHandle](injector)
	_ = do.MustInvoke[*providers.FileWatcherHandle](injector)
	_ = do.MustInvoke[*providers.HTTPServerHandle](injector)

	return nil
}
