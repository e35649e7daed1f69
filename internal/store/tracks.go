package store

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/151henry151/rompmusic-server/internal/domain"
	apperrors "github.com/151henry151/rompmusic-server/internal/errors"
	"github.com/151henry151/rompmusic-server/internal/id"
	"github.com/151henry151/rompmusic-server/internal/metadata"
	"github.com/151henry151/rompmusic-server/internal/normalize"
)

// trackColumns is the ordered list of columns selected in track queries.
// Must match the scan order in scanTrack.
const trackColumns = `id, file_path, title, artist_id, album_id, track_number,
	disc_number, duration, size_bytes, mod_time_ms, format, mime_type,
	bitrate, has_artwork, created_at, updated_at`

// trackOrder sorts album listings: disc ascending then track ascending, with
// unknown (zero) numbers after known values, title as the tie-breaker.
const trackOrder = `ORDER BY
	CASE WHEN disc_number = 0 THEN 1 ELSE 0 END, disc_number,
	CASE WHEN track_number = 0 THEN 1 ELSE 0 END, track_number,
	title COLLATE NOCASE`

func scanTrack(scanner interface{ Scan(dest ...any) error }) (*domain.Track, error) {
	var t domain.Track

	var (
		hasArtwork int
		createdAt  string
		updatedAt  string
	)

	err := scanner.Scan(
		&t.ID,
		&t.FilePath,
		&t.Title,
		&t.ArtistID,
		&t.AlbumID,
		&t.TrackNumber,
		&t.DiscNumber,
		&t.Duration,
		&t.Size,
		&t.ModTime,
		&t.Format,
		&t.MIMEType,
		&t.Bitrate,
		&hasArtwork,
		&createdAt,
		&updatedAt,
	)
	if err != nil {
		return nil, err
	}

	t.HasArtwork = hasArtwork != 0
	t.CreatedAt, err = parseTime(createdAt)
	if err != nil {
		return nil, err
	}
	t.UpdatedAt, err = parseTime(updatedAt)
	if err != nil {
		return nil, err
	}

	return &t, nil
}

// TrackUpsert is the per-file write unit produced by the scanner: one
// discovered file plus its extracted metadata.
type TrackUpsert struct {
	Path    string // relative to the library root, slash-separated
	Size    int64
	ModTime int64 // unix milliseconds
	Meta    *metadata.TrackMetadata
}

// UpsertTrack inserts or overwrites the track for a file path, resolving or
// creating its artist and album on the way. The whole write is one
// transaction, so a failure leaves any prior record for the path untouched.
// Returns the stored track and whether it was newly created.
//
// Album aggregate writes (year, artwork flag) happen under a per-album lock
// keyed by normalized (artist, album) identity, so upserts for distinct
// albums proceed fully in parallel.
func (s *Store) UpsertTrack(ctx context.Context, u *TrackUpsert) (*domain.Track, bool, error) {
	if u.Meta == nil {
		return nil, false, apperrors.Validation("track upsert missing metadata")
	}

	artistName := u.Meta.AlbumArtist
	if artistName == "" {
		artistName = u.Meta.Artist
	}
	if artistName == "" {
		artistName = "Unknown Artist"
	}
	albumTitle := u.Meta.Album
	if albumTitle == "" {
		albumTitle = "Unknown Album"
	}

	albumKey := normalize.Key(artistName) + "\x00" + normalize.Key(albumTitle)
	unlock := s.lockAlbum(albumKey)
	defer unlock()

	track, created, err := s.upsertTrackTx(ctx, u, artistName, albumTitle)
	if err != nil && strings.Contains(err.Error(), "UNIQUE constraint failed") {
		// Two albums of the same artist upserting concurrently can race on
		// artist creation; the loser retries and finds the committed row.
		track, created, err = s.upsertTrackTx(ctx, u, artistName, albumTitle)
	}
	return track, created, err
}

func (s *Store) upsertTrackTx(ctx context.Context, u *TrackUpsert, artistName, albumTitle string) (*domain.Track, bool, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, false, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	now := time.Now().UTC()

	artistID, err := findOrCreateArtistTx(ctx, tx, artistName, now)
	if err != nil {
		return nil, false, err
	}
	albumID, err := findOrCreateAlbumTx(ctx, tx, artistID, albumTitle, u.Meta.Year, u.Meta.HasArtwork, now)
	if err != nil {
		return nil, false, err
	}

	var existingID string
	err = tx.QueryRowContext(ctx,
		`SELECT id FROM tracks WHERE file_path = ?`, u.Path).Scan(&existingID)
	if err != nil && err != sql.ErrNoRows {
		return nil, false, fmt.Errorf("lookup track by path: %w", err)
	}
	created := err == sql.ErrNoRows

	trackID := existingID
	if created {
		trackID, err = id.Generate("trk")
		if err != nil {
			return nil, false, fmt.Errorf("generate track id: %w", err)
		}
		_, err = tx.ExecContext(ctx, `
			INSERT INTO tracks (id, file_path, title, artist_id, album_id,
				track_number, disc_number, duration, size_bytes, mod_time_ms,
				format, mime_type, bitrate, has_artwork, created_at, updated_at)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			trackID, u.Path, u.Meta.Title, artistID, albumID,
			u.Meta.TrackNumber, u.Meta.DiscNumber, u.Meta.Duration, u.Size, u.ModTime,
			u.Meta.Format, u.Meta.MIMEType, u.Meta.Bitrate, boolInt(u.Meta.HasArtwork),
			formatTime(now), formatTime(now),
		)
		if err != nil {
			return nil, false, fmt.Errorf("insert track %s: %w", u.Path, err)
		}
	} else {
		_, err = tx.ExecContext(ctx, `
			UPDATE tracks SET title = ?, artist_id = ?, album_id = ?,
				track_number = ?, disc_number = ?, duration = ?, size_bytes = ?,
				mod_time_ms = ?, format = ?, mime_type = ?, bitrate = ?,
				has_artwork = ?, updated_at = ?
			WHERE id = ?`,
			u.Meta.Title, artistID, albumID,
			u.Meta.TrackNumber, u.Meta.DiscNumber, u.Meta.Duration, u.Size,
			u.ModTime, u.Meta.Format, u.Meta.MIMEType, u.Meta.Bitrate,
			boolInt(u.Meta.HasArtwork), formatTime(now),
			trackID,
		)
		if err != nil {
			return nil, false, fmt.Errorf("update track %s: %w", u.Path, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return nil, false, fmt.Errorf("commit track upsert: %w", err)
	}

	track, err := s.GetTrack(ctx, trackID)
	if err != nil {
		return nil, false, err
	}
	return track, created, nil
}

// GetTrack retrieves a track by ID. Returns errors.ErrNotFound when absent.
func (s *Store) GetTrack(ctx context.Context, trackID string) (*domain.Track, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+trackColumns+` FROM tracks WHERE id = ?`, trackID)

	t, err := scanTrack(row)
	if err == sql.ErrNoRows {
		return nil, apperrors.NotFoundf("track %s not found", trackID)
	}
	if err != nil {
		return nil, err
	}
	return t, nil
}

// ListTracksOptions filters and pages track listings. Zero values mean
// "no filter".
type ListTracksOptions struct {
	AlbumID  string
	ArtistID string
	Search   string // matches track title or artist name, case-insensitive
	Limit    int
	Offset   int
}

// ListTracks returns tracks in album order: disc ascending, then track
// ascending, unknown numbers last.
func (s *Store) ListTracks(ctx context.Context, opts ListTracksOptions) ([]*domain.Track, error) {
	query := `SELECT ` + trackColumns + ` FROM tracks`
	var (
		where []string
		args  []any
	)
	if opts.AlbumID != "" {
		where = append(where, "album_id = ?")
		args = append(args, opts.AlbumID)
	}
	if opts.ArtistID != "" {
		where = append(where, "artist_id = ?")
		args = append(args, opts.ArtistID)
	}
	if opts.Search != "" {
		where = append(where,
			`(title LIKE ? ESCAPE '\' OR artist_id IN (SELECT id FROM artists WHERE name LIKE ? ESCAPE '\'))`)
		pattern := "%" + escapeLike(opts.Search) + "%"
		args = append(args, pattern, pattern)
	}
	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}
	query += " " + trackOrder
	if opts.Limit > 0 {
		query += " LIMIT ? OFFSET ?"
		args = append(args, opts.Limit, opts.Offset)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query tracks: %w", err)
	}
	defer rows.Close()

	tracks := []*domain.Track{}
	for rows.Next() {
		t, err := scanTrack(rows)
		if err != nil {
			return nil, err
		}
		tracks = append(tracks, t)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return tracks, nil
}

// CountTracks returns the number of indexed tracks.
func (s *Store) CountTracks(ctx context.Context) (int, error) {
	var count int
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM tracks`).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("count tracks: %w", err)
	}
	return count, nil
}

// TrackSignatures returns the modification signature of every indexed track
// keyed by file path. The scanner diffs this map against the filesystem to
// classify files as new, changed, unchanged, or removed.
func (s *Store) TrackSignatures(ctx context.Context) (map[string]domain.Signature, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT file_path, size_bytes, mod_time_ms FROM tracks`)
	if err != nil {
		return nil, fmt.Errorf("query track signatures: %w", err)
	}
	defer rows.Close()

	sigs := make(map[string]domain.Signature)
	for rows.Next() {
		var (
			path string
			sig  domain.Signature
		)
		if err := rows.Scan(&path, &sig.Size, &sig.ModTime); err != nil {
			return nil, err
		}
		sigs[path] = sig
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return sigs, nil
}

// DeleteTracksByPaths removes the tracks for the given file paths and
// returns the IDs of the deleted tracks so callers can update the search
// index. Empty albums and artists are not pruned here; call PruneEmpty after
// the removal pass.
func (s *Store) DeleteTracksByPaths(ctx context.Context, paths []string) ([]string, error) {
	if len(paths) == 0 {
		return nil, nil
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	var removed []string
	// Chunked so the IN list stays under SQLite's bound-parameter limit.
	const chunkSize = 500
	for start := 0; start < len(paths); start += chunkSize {
		end := min(start+chunkSize, len(paths))
		chunk := paths[start:end]

		placeholders := strings.Repeat("?,", len(chunk)-1) + "?"
		args := make([]any, len(chunk))
		for i, p := range chunk {
			args[i] = p
		}

		rows, err := tx.QueryContext(ctx,
			`SELECT id FROM tracks WHERE file_path IN (`+placeholders+`)`, args...)
		if err != nil {
			return nil, fmt.Errorf("query tracks to delete: %w", err)
		}
		for rows.Next() {
			var trackID string
			if err := rows.Scan(&trackID); err != nil {
				rows.Close()
				return nil, err
			}
			removed = append(removed, trackID)
		}
		if err := rows.Close(); err != nil {
			return nil, err
		}

		if _, err := tx.ExecContext(ctx,
			`DELETE FROM tracks WHERE file_path IN (`+placeholders+`)`, args...); err != nil {
			return nil, fmt.Errorf("delete tracks: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit track deletes: %w", err)
	}
	return removed, nil
}

// PruneEmpty deletes albums with no remaining tracks, then artists with no
// remaining albums or tracks. Returns (albums pruned, artists pruned).
func (s *Store) PruneEmpty(ctx context.Context) (int, int, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, 0, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	res, err := tx.ExecContext(ctx,
		`DELETE FROM albums WHERE id NOT IN (SELECT DISTINCT album_id FROM tracks)`)
	if err != nil {
		return 0, 0, fmt.Errorf("prune albums: %w", err)
	}
	albumsPruned, _ := res.RowsAffected()

	res, err = tx.ExecContext(ctx, `
		DELETE FROM artists WHERE id NOT IN (SELECT DISTINCT artist_id FROM tracks)
			AND id NOT IN (SELECT DISTINCT artist_id FROM albums)`)
	if err != nil {
		return 0, 0, fmt.Errorf("prune artists: %w", err)
	}
	artistsPruned, _ := res.RowsAffected()

	if err := tx.Commit(); err != nil {
		return 0, 0, fmt.Errorf("commit prune: %w", err)
	}
	return int(albumsPruned), int(artistsPruned), nil
}

// escapeLike escapes LIKE wildcards in user-supplied search text.
func escapeLike(s string) string {
	s = strings.ReplaceAll(s, `\`, `\\`)
	s = strings.ReplaceAll(s, `%`, `\%`)
	s = strings.ReplaceAll(s, `_`, `\_`)
	return s
}
