package search

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"

	"github.com/blevesearch/bleve/v2"
	"github.com/blevesearch/bleve/v2/analysis/analyzer/keyword"
	"github.com/blevesearch/bleve/v2/analysis/lang/en"
	"github.com/blevesearch/bleve/v2/mapping"

	"github.com/151henry151/rompmusic-server/internal/domain"
)

// mappingVersion is incremented whenever the index mapping changes. A
// version mismatch on startup drops and recreates the index; the next scan
// repopulates it.
const mappingVersion = "1"

// EntityNamer resolves artist and album display names for denormalization.
// The library store implements it.
type EntityNamer interface {
	GetArtist(ctx context.Context, artistID string) (*domain.Artist, error)
	GetAlbum(ctx context.Context, albumID string) (*domain.Album, error)
}

// Index wraps a Bleve index with track-specific operations. All public
// methods are safe for concurrent use; the mutex guards rebuilds.
type Index struct {
	index  bleve.Index
	namer  EntityNamer
	path   string
	logger *slog.Logger
	mu     sync.RWMutex
}

// Options configures the search index.
type Options struct {
	DataPath string
	Namer    EntityNamer
	Logger   *slog.Logger
}

// NewIndex creates or opens the track search index under DataPath. An
// existing index with an outdated mapping version or that fails to open is
// removed and recreated.
func NewIndex(opts Options) (*Index, error) {
	logger := opts.Logger
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(os.Stderr, nil))
	}

	indexPath := filepath.Join(opts.DataPath, "search.bleve")
	versionPath := filepath.Join(opts.DataPath, "search.version")

	var (
		index        bleve.Index
		err          error
		needsRebuild bool
	)

	indexExists := false
	if _, statErr := os.Stat(indexPath); statErr == nil {
		indexExists = true
	}

	if indexExists {
		existingVersion, readErr := os.ReadFile(versionPath)
		if readErr != nil || string(existingVersion) != mappingVersion {
			logger.Info("search index mapping outdated, will rebuild",
				"new_version", mappingVersion)
			needsRebuild = true
		}
	}

	if !needsRebuild && indexExists {
		index, err = bleve.Open(indexPath)
		if err != nil {
			logger.Warn("failed to open existing search index, will recreate",
				"path", indexPath, "error", err)
			needsRebuild = true
		}
	}

	if needsRebuild {
		if removeErr := os.RemoveAll(indexPath); removeErr != nil {
			return nil, fmt.Errorf("remove old index: %w", removeErr)
		}
		index = nil
	}

	if index == nil {
		index, err = bleve.New(indexPath, buildIndexMapping())
		if err != nil {
			return nil, fmt.Errorf("create index: %w", err)
		}
		if writeErr := os.WriteFile(versionPath, []byte(mappingVersion), 0o644); writeErr != nil {
			logger.Warn("failed to write search version file", "error", writeErr)
		}
		logger.Info("created search index", "path", indexPath, "mapping_version", mappingVersion)
	} else {
		logger.Info("opened search index", "path", indexPath)
	}

	return &Index{
		index:  index,
		namer:  opts.Namer,
		path:   indexPath,
		logger: logger,
	}, nil
}

// buildIndexMapping creates the Bleve mapping: English-analyzed text fields
// for title/artist/album with term vectors for highlighting, keyword id.
func buildIndexMapping() mapping.IndexMapping {
	indexMapping := bleve.NewIndexMapping()
	indexMapping.DefaultAnalyzer = en.AnalyzerName

	docMapping := bleve.NewDocumentMapping()

	for _, field := range []string{"title", "artist", "album"} {
		fieldMapping := bleve.NewTextFieldMapping()
		fieldMapping.Analyzer = en.AnalyzerName
		fieldMapping.Store = true
		fieldMapping.IncludeTermVectors = true
		docMapping.AddFieldMappingsAt(field, fieldMapping)
	}

	idFieldMapping := bleve.NewTextFieldMapping()
	idFieldMapping.Analyzer = keyword.Name
	docMapping.AddFieldMappingsAt("id", idFieldMapping)

	indexMapping.AddDocumentMapping("_default", docMapping)
	return indexMapping
}

// Close closes the index and releases resources.
func (ix *Index) Close() error {
	ix.mu.Lock()
	defer ix.mu.Unlock()
	return ix.index.Close()
}

// IndexTrack indexes one track, denormalizing artist and album names.
// Implements the scanner's SearchIndexer contract.
func (ix *Index) IndexTrack(track *domain.Track) error {
	doc := &TrackDocument{
		ID:    track.ID,
		Title: track.Title,
	}

	ctx := context.Background()
	if ix.namer != nil {
		if artist, err := ix.namer.GetArtist(ctx, track.ArtistID); err == nil {
			doc.Artist = artist.Name
		}
		if album, err := ix.namer.GetAlbum(ctx, track.AlbumID); err == nil {
			doc.Album = album.Title
		}
	}

	ix.mu.RLock()
	defer ix.mu.RUnlock()
	return ix.index.Index(doc.ID, doc.ToMap())
}

// DeleteTrack removes a track document from the index.
func (ix *Index) DeleteTrack(trackID string) error {
	ix.mu.RLock()
	defer ix.mu.RUnlock()
	return ix.index.Delete(trackID)
}

// DocumentCount returns the number of indexed track documents.
func (ix *Index) DocumentCount() (uint64, error) {
	ix.mu.RLock()
	defer ix.mu.RUnlock()
	return ix.index.DocCount()
}

// Rebuild drops the index and creates a fresh empty one. The next scan
// repopulates it. Blocks all other index operations while it runs.
func (ix *Index) Rebuild() error {
	ix.mu.Lock()
	defer ix.mu.Unlock()

	if err := ix.index.Close(); err != nil {
		return fmt.Errorf("close index: %w", err)
	}
	if err := os.RemoveAll(ix.path); err != nil {
		return fmt.Errorf("remove index: %w", err)
	}
	index, err := bleve.New(ix.path, buildIndexMapping())
	if err != nil {
		return fmt.Errorf("create index: %w", err)
	}
	ix.index = index
	ix.logger.Info("rebuilt search index", "path", ix.path)
	return nil
}
