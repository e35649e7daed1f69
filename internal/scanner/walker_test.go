package scanner

import (
	"context"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"
)

func collectWalk(t *testing.T, root string) map[string]WalkResult {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	w := NewWalker(logger)

	results := make(map[string]WalkResult)
	for r := range w.Walk(context.Background(), root) {
		results[r.RelPath] = r
	}
	return results
}

func writeFile(t *testing.T, root string, parts ...string) {
	t.Helper()
	path := filepath.Join(append([]string{root}, parts...)...)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}
}

func TestWalkFiltersByExtension(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "artist", "album", "song.mp3")
	writeFile(t, root, "artist", "album", "song.flac")
	writeFile(t, root, "artist", "album", "cover.jpg")
	writeFile(t, root, "artist", "album", "notes.txt")

	results := collectWalk(t, root)
	if len(results) != 2 {
		t.Fatalf("discovered %d files, want 2: %v", len(results), results)
	}
	if _, ok := results["artist/album/song.mp3"]; !ok {
		t.Error("song.mp3 not discovered")
	}
	if _, ok := results["artist/album/song.flac"]; !ok {
		t.Error("song.flac not discovered")
	}
}

func TestWalkSkipsHidden(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "visible", "song.mp3")
	writeFile(t, root, ".hidden", "song.mp3")
	writeFile(t, root, "visible", ".hidden.mp3")

	results := collectWalk(t, root)
	if len(results) != 1 {
		t.Fatalf("discovered %d files, want 1: %v", len(results), results)
	}
	if _, ok := results["visible/song.mp3"]; !ok {
		t.Error("visible/song.mp3 not discovered")
	}
}

func TestWalkHiddenRootIsScanned(t *testing.T) {
	root := filepath.Join(t.TempDir(), ".music")
	writeFile(t, root, "artist", "album", "01 - song.mp3")
	writeFile(t, root, ".hidden", "song.mp3")

	results := collectWalk(t, root)
	if len(results) != 1 {
		t.Fatalf("discovered %d files, want 1: %v", len(results), results)
	}
	if _, ok := results["artist/album/01 - song.mp3"]; !ok {
		t.Error("file under dot-named root not discovered")
	}
}

func TestWalkReportsSignature(t *testing.T) {
	root := t.TempDir()
	path := filepath.Join(root, "a.mp3")
	if err := os.WriteFile(path, []byte("12345"), 0o644); err != nil {
		t.Fatal(err)
	}

	results := collectWalk(t, root)
	r, ok := results["a.mp3"]
	if !ok {
		t.Fatal("a.mp3 not discovered")
	}
	if r.Size != 5 {
		t.Errorf("size: got %d, want 5", r.Size)
	}
	if r.ModTime == 0 {
		t.Error("mod time not populated")
	}
	if r.Path != path {
		t.Errorf("absolute path: got %q, want %q", r.Path, path)
	}
}

func TestWalkCancelledContext(t *testing.T) {
	root := t.TempDir()
	for i := range 20 {
		writeFile(t, root, "d", "f"+string(rune('a'+i))+".mp3")
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	w := NewWalker(logger)

	count := 0
	for range w.Walk(ctx, root) {
		count++
	}
	// The channel must close promptly; a few buffered results are fine.
	if count > 5 {
		t.Errorf("cancelled walk still delivered %d results", count)
	}
}
