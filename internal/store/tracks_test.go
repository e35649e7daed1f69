package store

import (
	"context"
	"errors"
	"strings"
	"testing"

	apperrors "github.com/151henry151/rompmusic-server/internal/errors"
)

func TestGetUnknownEntitiesReturnNotFound(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	lookups := []struct {
		name string
		id   string
		get  func() error
	}{
		{"track", "trk-nope", func() error { _, err := s.GetTrack(ctx, "trk-nope"); return err }},
		{"artist", "art-nope", func() error { _, err := s.GetArtist(ctx, "art-nope"); return err }},
		{"album", "alb-nope", func() error { _, err := s.GetAlbum(ctx, "alb-nope"); return err }},
	}
	for _, l := range lookups {
		err := l.get()
		if !errors.Is(err, apperrors.ErrNotFound) {
			t.Errorf("%s: expected ErrNotFound, got %v", l.name, err)
			continue
		}
		if !strings.Contains(err.Error(), l.id) {
			t.Errorf("%s: message %q does not name the ID", l.name, err.Error())
		}
	}
}

func TestUpsertTrackCreatesArtistAndAlbum(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	track, created, err := s.UpsertTrack(ctx, makeUpsert(
		"Radiohead/OK Computer/01 - Airbag.mp3", "Airbag", "Radiohead", "OK Computer", 1, 1))
	if err != nil {
		t.Fatalf("UpsertTrack: %v", err)
	}
	if !created {
		t.Error("expected created=true for new track")
	}
	if track.Title != "Airbag" {
		t.Errorf("Title: got %q, want %q", track.Title, "Airbag")
	}

	artist, err := s.GetArtist(ctx, track.ArtistID)
	if err != nil {
		t.Fatalf("GetArtist: %v", err)
	}
	if artist.Name != "Radiohead" {
		t.Errorf("artist name: got %q, want %q", artist.Name, "Radiohead")
	}
	if artist.TrackCount != 1 {
		t.Errorf("artist track count: got %d, want 1", artist.TrackCount)
	}

	album, err := s.GetAlbum(ctx, track.AlbumID)
	if err != nil {
		t.Fatalf("GetAlbum: %v", err)
	}
	if album.Title != "OK Computer" {
		t.Errorf("album title: got %q, want %q", album.Title, "OK Computer")
	}
	if album.TrackCount != 1 {
		t.Errorf("album track count: got %d, want 1", album.TrackCount)
	}
}

func TestUpsertTrackIdempotent(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	u := makeUpsert("a/b/01.mp3", "Song", "Artist", "Album", 1, 1)

	first, created, err := s.UpsertTrack(ctx, u)
	if err != nil {
		t.Fatalf("first UpsertTrack: %v", err)
	}
	if !created {
		t.Error("first upsert should create")
	}

	second, created, err := s.UpsertTrack(ctx, u)
	if err != nil {
		t.Fatalf("second UpsertTrack: %v", err)
	}
	if created {
		t.Error("second upsert should update, not create")
	}
	if second.ID != first.ID {
		t.Errorf("track ID changed across upserts: %q != %q", second.ID, first.ID)
	}

	count, err := s.CountTracks(ctx)
	if err != nil {
		t.Fatalf("CountTracks: %v", err)
	}
	if count != 1 {
		t.Errorf("track count: got %d, want 1", count)
	}
	artists, err := s.ListArtists(ctx, ListArtistsOptions{})
	if err != nil {
		t.Fatalf("ListArtists: %v", err)
	}
	if len(artists) != 1 {
		t.Errorf("artist count: got %d, want 1", len(artists))
	}
}

func TestUpsertTrackSharedAlbumAcrossCaseVariants(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	first, _, err := s.UpsertTrack(ctx, makeUpsert("x/1.mp3", "One", "The Band", "Greatest Hits", 1, 1))
	if err != nil {
		t.Fatalf("UpsertTrack: %v", err)
	}
	// Same identity modulo case and spacing.
	second, _, err := s.UpsertTrack(ctx, makeUpsert("x/2.mp3", "Two", "the  band", "GREATEST HITS", 1, 2))
	if err != nil {
		t.Fatalf("UpsertTrack: %v", err)
	}

	if second.AlbumID != first.AlbumID {
		t.Errorf("case variants split the album: %q != %q", second.AlbumID, first.AlbumID)
	}
	if second.ArtistID != first.ArtistID {
		t.Errorf("case variants split the artist: %q != %q", second.ArtistID, first.ArtistID)
	}
}

func TestTrackSignatures(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	u := makeUpsert("sig/1.mp3", "One", "A", "B", 1, 1)
	u.Size = 2048
	u.ModTime = 1700000123456
	if _, _, err := s.UpsertTrack(ctx, u); err != nil {
		t.Fatalf("UpsertTrack: %v", err)
	}

	sigs, err := s.TrackSignatures(ctx)
	if err != nil {
		t.Fatalf("TrackSignatures: %v", err)
	}
	sig, ok := sigs["sig/1.mp3"]
	if !ok {
		t.Fatal("signature for sig/1.mp3 missing")
	}
	if sig.Size != 2048 || sig.ModTime != 1700000123456 {
		t.Errorf("signature: got %+v", sig)
	}
}

func TestDeleteAndPruneConvergence(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	only, _, err := s.UpsertTrack(ctx, makeUpsert("solo/1.mp3", "Only", "Lone Artist", "Lone Album", 1, 1))
	if err != nil {
		t.Fatalf("UpsertTrack: %v", err)
	}

	removed, err := s.DeleteTracksByPaths(ctx, []string{"solo/1.mp3"})
	if err != nil {
		t.Fatalf("DeleteTracksByPaths: %v", err)
	}
	if len(removed) != 1 || removed[0] != only.ID {
		t.Errorf("removed IDs: got %v, want [%s]", removed, only.ID)
	}

	albumsPruned, artistsPruned, err := s.PruneEmpty(ctx)
	if err != nil {
		t.Fatalf("PruneEmpty: %v", err)
	}
	if albumsPruned != 1 {
		t.Errorf("albums pruned: got %d, want 1", albumsPruned)
	}
	if artistsPruned != 1 {
		t.Errorf("artists pruned: got %d, want 1", artistsPruned)
	}

	if _, err := s.GetTrack(ctx, only.ID); !errors.Is(err, apperrors.ErrNotFound) {
		t.Errorf("expected ErrNotFound for deleted track, got %v", err)
	}
}

func TestPruneKeepsNonEmptyAlbums(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	keep, _, err := s.UpsertTrack(ctx, makeUpsert("k/1.mp3", "Keep", "Artist", "Album", 1, 1))
	if err != nil {
		t.Fatalf("UpsertTrack: %v", err)
	}
	if _, _, err := s.UpsertTrack(ctx, makeUpsert("k/2.mp3", "Drop", "Artist", "Album", 1, 2)); err != nil {
		t.Fatalf("UpsertTrack: %v", err)
	}

	if _, err := s.DeleteTracksByPaths(ctx, []string{"k/2.mp3"}); err != nil {
		t.Fatalf("DeleteTracksByPaths: %v", err)
	}
	albumsPruned, artistsPruned, err := s.PruneEmpty(ctx)
	if err != nil {
		t.Fatalf("PruneEmpty: %v", err)
	}
	if albumsPruned != 0 || artistsPruned != 0 {
		t.Errorf("prune: got (%d, %d), want (0, 0)", albumsPruned, artistsPruned)
	}

	album, err := s.GetAlbum(ctx, keep.AlbumID)
	if err != nil {
		t.Fatalf("GetAlbum: %v", err)
	}
	if album.TrackCount != 1 {
		t.Errorf("album track count after delete: got %d, want 1", album.TrackCount)
	}
}

func TestListTracksAlbumOrdering(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	// Inserted out of order on purpose.
	pairs := []struct{ disc, track int }{{2, 1}, {1, 2}, {1, 1}}
	var albumID string
	for i, p := range pairs {
		u := makeUpsert(
			"ord/"+string(rune('a'+i))+".mp3",
			"T", "Artist", "Ordered", p.disc, p.track)
		tr, _, err := s.UpsertTrack(ctx, u)
		if err != nil {
			t.Fatalf("UpsertTrack: %v", err)
		}
		albumID = tr.AlbumID
	}

	tracks, err := s.ListTracks(ctx, ListTracksOptions{AlbumID: albumID})
	if err != nil {
		t.Fatalf("ListTracks: %v", err)
	}
	if len(tracks) != 3 {
		t.Fatalf("track count: got %d, want 3", len(tracks))
	}

	want := []struct{ disc, track int }{{1, 1}, {1, 2}, {2, 1}}
	for i, w := range want {
		if tracks[i].DiscNumber != w.disc || tracks[i].TrackNumber != w.track {
			t.Errorf("position %d: got (%d,%d), want (%d,%d)",
				i, tracks[i].DiscNumber, tracks[i].TrackNumber, w.disc, w.track)
		}
	}
}

func TestListTracksUnknownNumbersSortLast(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	var albumID string
	for i, p := range []struct{ disc, track int }{{0, 0}, {1, 1}, {1, 0}} {
		tr, _, err := s.UpsertTrack(ctx, makeUpsert(
			"unk/"+string(rune('a'+i))+".mp3", "T", "A", "Al", p.disc, p.track))
		if err != nil {
			t.Fatalf("UpsertTrack: %v", err)
		}
		albumID = tr.AlbumID
	}

	tracks, err := s.ListTracks(ctx, ListTracksOptions{AlbumID: albumID})
	if err != nil {
		t.Fatalf("ListTracks: %v", err)
	}

	want := []struct{ disc, track int }{{1, 1}, {1, 0}, {0, 0}}
	for i, w := range want {
		if tracks[i].DiscNumber != w.disc || tracks[i].TrackNumber != w.track {
			t.Errorf("position %d: got (%d,%d), want (%d,%d)",
				i, tracks[i].DiscNumber, tracks[i].TrackNumber, w.disc, w.track)
		}
	}
}

func TestListAlbumsArtworkFirst(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	plain := makeUpsert("art/1.mp3", "One", "A", "AAA Plain", 1, 1)
	if _, _, err := s.UpsertTrack(ctx, plain); err != nil {
		t.Fatalf("UpsertTrack: %v", err)
	}
	withArt := makeUpsert("art/2.mp3", "Two", "A", "ZZZ Artful", 1, 1)
	withArt.Meta.HasArtwork = true
	if _, _, err := s.UpsertTrack(ctx, withArt); err != nil {
		t.Fatalf("UpsertTrack: %v", err)
	}

	albums, err := s.ListAlbums(ctx, ListAlbumsOptions{ArtworkFirst: true})
	if err != nil {
		t.Fatalf("ListAlbums: %v", err)
	}
	if len(albums) != 2 {
		t.Fatalf("album count: got %d, want 2", len(albums))
	}
	if albums[0].Title != "ZZZ Artful" {
		t.Errorf("artwork-first order: got %q first, want %q", albums[0].Title, "ZZZ Artful")
	}

	albums, err = s.ListAlbums(ctx, ListAlbumsOptions{})
	if err != nil {
		t.Fatalf("ListAlbums: %v", err)
	}
	if albums[0].Title != "AAA Plain" {
		t.Errorf("title order: got %q first, want %q", albums[0].Title, "AAA Plain")
	}
}

func TestSearchTracks(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	if _, _, err := s.UpsertTrack(ctx, makeUpsert("s/1.mp3", "Paranoid Android", "Radiohead", "OK Computer", 1, 2)); err != nil {
		t.Fatalf("UpsertTrack: %v", err)
	}
	if _, _, err := s.UpsertTrack(ctx, makeUpsert("s/2.mp3", "Yellow", "Coldplay", "Parachutes", 1, 5)); err != nil {
		t.Fatalf("UpsertTrack: %v", err)
	}

	// Matches track title.
	tracks, err := s.ListTracks(ctx, ListTracksOptions{Search: "android"})
	if err != nil {
		t.Fatalf("ListTracks: %v", err)
	}
	if len(tracks) != 1 || tracks[0].Title != "Paranoid Android" {
		t.Errorf("title search: got %d results", len(tracks))
	}

	// Matches artist name.
	tracks, err = s.ListTracks(ctx, ListTracksOptions{Search: "coldplay"})
	if err != nil {
		t.Fatalf("ListTracks: %v", err)
	}
	if len(tracks) != 1 || tracks[0].Title != "Yellow" {
		t.Errorf("artist search: got %d results", len(tracks))
	}
}
