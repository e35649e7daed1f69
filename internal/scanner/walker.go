package scanner

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/151henry151/rompmusic-server/internal/metadata"
)

// Walker traverses the library root and discovers candidate audio files.
type Walker struct {
	logger *slog.Logger
}

// NewWalker creates a new walker.
func NewWalker(logger *slog.Logger) *Walker {
	return &Walker{
		logger: logger,
	}
}

// WalkResult represents an audio file discovered during walking.
type WalkResult struct {
	Path    string // absolute
	RelPath string // slash-separated, relative to the root; the index identity
	Size    int64
	ModTime int64 // unix milliseconds
}

// Walk traverses rootPath recursively and streams discovered audio files.
// Hidden files and directories are skipped, as is anything not on the
// extension allowlist. The channel closes when the walk completes or the
// context is canceled. Unreadable subdirectories are logged and skipped;
// only an unreadable root is fatal to the caller (checked before Walk).
func (w *Walker) Walk(ctx context.Context, rootPath string) <-chan WalkResult {
	results := make(chan WalkResult, 100)

	go func() {
		defer close(results)

		err := filepath.WalkDir(rootPath, func(path string, d os.DirEntry, err error) error {
			select {
			case <-ctx.Done():
				return ctx.Err()
			default:
			}

			if err != nil {
				w.logger.Warn("walk error, skipping", "path", path, "error", err)
				return nil
			}

			// The root itself is exempt from the hidden-name skip so a
			// library living under a dot-directory still scans.
			if path != rootPath && strings.HasPrefix(d.Name(), ".") {
				if d.IsDir() {
					return filepath.SkipDir
				}
				return nil
			}

			if d.IsDir() {
				return nil
			}

			if !metadata.IsSupported(path) {
				return nil
			}

			info, err := d.Info()
			if err != nil {
				w.logger.Warn("failed to stat file, skipping", "path", path, "error", err)
				return nil
			}

			relPath, err := filepath.Rel(rootPath, path)
			if err != nil {
				w.logger.Warn("failed to compute relative path, skipping", "path", path, "error", err)
				return nil
			}

			result := WalkResult{
				Path:    path,
				RelPath: filepath.ToSlash(relPath),
				Size:    info.Size(),
				ModTime: info.ModTime().UnixMilli(),
			}

			select {
			case results <- result:
			case <-ctx.Done():
				return ctx.Err()
			}

			return nil
		})

		if err != nil && !errors.Is(err, context.Canceled) {
			w.logger.Error("walk failed", "root", rootPath, "error", err)
		}
	}()

	return results
}
