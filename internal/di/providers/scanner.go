package providers

import (
	"context"

	"github.com/samber/do/v2"

	"github.com/151henry151/rompmusic-server/internal/config"
	"github.com/151henry151/rompmusic-server/internal/logger"
	"github.com/151henry151/rompmusic-server/internal/metadata"
	"github.com/151henry151/rompmusic-server/internal/scanner"
	"github.com/151henry151/rompmusic-server/internal/sse"
)

// ProvideExtractor provides the taglib metadata extractor.
func ProvideExtractor(i do.Injector) (*metadata.TagLibExtractor, error) {
	return metadata.NewExtractor(), nil
}

// ScannerHandle wraps the scanner with shutdown capability.
type ScannerHandle struct {
	*scanner.Scanner
}

// Shutdown implements do.Shutdownable.
func (h *ScannerHandle) Shutdown() error {
	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	return h.Scanner.Shutdown(ctx)
}

// ProvideScanner provides the library scan orchestrator.
func ProvideScanner(i do.Injector) (*ScannerHandle, error) {
	cfg := do.MustInvoke[*config.Config](i)
	log := do.MustInvoke[*logger.Logger](i)
	storeHandle := do.MustInvoke[*StoreHandle](i)
	broadcaster := do.MustInvoke[*sse.Broadcaster](i)
	extractor := do.MustInvoke[*metadata.TagLibExtractor](i)
	searchHandle := do.MustInvoke[*SearchIndexHandle](i)

	sc := scanner.New(scanner.Config{
		Root:    cfg.Library.MusicPath,
		Workers: cfg.Scanner.Workers,
	}, storeHandle.Store, extractor, broadcaster, searchHandle.Index, log.Logger)

	log.Info("Scanner ready", "root", cfg.Library.MusicPath, "workers", cfg.Scanner.Workers)

	return &ScannerHandle{Scanner: sc}, nil
}
