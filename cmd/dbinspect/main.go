// Command dbinspect prints a summary of the library database: entity counts,
// recent scan runs, and a sample of tracks. Useful when debugging scans.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/151henry151/rompmusic-server/internal/store"
)

func main() {
	dbPath := os.Getenv("DB_PATH")
	if dbPath == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			fmt.Fprintf(os.Stderr, "Failed to resolve home directory: %v\n", err)
			os.Exit(1)
		}
		dbPath = filepath.Join(home, "RompMusic", "data", "library.db")
	}

	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelWarn}))

	s, err := store.Open(dbPath, logger)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to open database: %v\n", err)
		os.Exit(1)
	}
	defer s.Close()

	ctx := context.Background()

	fmt.Println("=== Library Inspection ===")
	fmt.Println()

	tracks, err := s.CountTracks(ctx)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to count tracks: %v\n", err)
		os.Exit(1)
	}
	albums, _ := s.CountAlbums(ctx)
	artists, _ := s.CountArtists(ctx)

	fmt.Printf("Tracks:  %d\n", tracks)
	fmt.Printf("Albums:  %d\n", albums)
	fmt.Printf("Artists: %d\n", artists)
	fmt.Println()

	runs, err := s.ListScanRuns(ctx, 5)
	if err == nil && len(runs) > 0 {
		fmt.Println("Recent scan runs:")
		for _, r := range runs {
			fmt.Printf("  #%d %-10s trigger=%-9s discovered=%d processed=%d +%d ~%d -%d errors=%d\n",
				r.ID, r.Status, r.TriggeredBy,
				r.FilesDiscovered, r.FilesProcessed,
				r.TracksAdded, r.TracksUpdated, r.TracksRemoved, r.ExtractErrors)
		}
		fmt.Println()
	}

	sample, err := s.ListTracks(ctx, store.ListTracksOptions{Limit: 10})
	if err == nil && len(sample) > 0 {
		fmt.Println("Sample tracks:")
		for _, tr := range sample {
			fmt.Printf("  %s  %s (%s) [%d.%02d]\n", tr.ID, tr.Title, tr.Format, tr.DiscNumber, tr.TrackNumber)
		}
	}
}
