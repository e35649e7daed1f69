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
	"github.com/151henry151/rompmusic-server/internal/normalize"
)

// albumColumns selects album rows with the artist name denormalized and the
// track count derived.
const albumColumns = `al.id, al.title, al.norm_title, al.artist_id, a.name,
	al.year, al.has_artwork, al.created_at, al.updated_at,
	(SELECT COUNT(*) FROM tracks t WHERE t.album_id = al.id)`

func scanAlbum(scanner interface{ Scan(dest ...any) error }) (*domain.Album, error) {
	var al domain.Album

	var (
		hasArtwork int
		createdAt  string
		updatedAt  string
	)

	err := scanner.Scan(
		&al.ID,
		&al.Title,
		&al.NormTitle,
		&al.ArtistID,
		&al.ArtistName,
		&al.Year,
		&hasArtwork,
		&createdAt,
		&updatedAt,
		&al.TrackCount,
	)
	if err != nil {
		return nil, err
	}

	al.HasArtwork = hasArtwork != 0
	al.CreatedAt, err = parseTime(createdAt)
	if err != nil {
		return nil, err
	}
	al.UpdatedAt, err = parseTime(updatedAt)
	if err != nil {
		return nil, err
	}

	return &al, nil
}

// findOrCreateAlbumTx resolves an album by (artist, normalized title) inside
// an open transaction, creating it when absent. Known year and artwork
// presence from a track upgrade the album aggregate; they never downgrade it
// (one track without artwork does not clear a flag another track set).
func findOrCreateAlbumTx(ctx context.Context, tx *sql.Tx, artistID, title string, year int, hasArtwork bool, now time.Time) (string, error) {
	display := normalize.Name(title)
	key := normalize.Key(title)

	var (
		albumID       string
		currentYear   int
		currentHasArt int
	)
	err := tx.QueryRowContext(ctx,
		`SELECT id, year, has_artwork FROM albums WHERE artist_id = ? AND norm_title = ?`,
		artistID, key).Scan(&albumID, &currentYear, &currentHasArt)
	if err != nil && err != sql.ErrNoRows {
		return "", fmt.Errorf("lookup album %q: %w", display, err)
	}

	if err == sql.ErrNoRows {
		albumID, err = id.Generate("alb")
		if err != nil {
			return "", fmt.Errorf("generate album id: %w", err)
		}
		_, err = tx.ExecContext(ctx, `
			INSERT INTO albums (id, title, norm_title, artist_id, year, has_artwork, created_at, updated_at)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
			albumID, display, key, artistID, year, boolInt(hasArtwork),
			formatTime(now), formatTime(now),
		)
		if err != nil {
			return "", fmt.Errorf("insert album %q: %w", display, err)
		}
		return albumID, nil
	}

	newYear := currentYear
	if newYear == 0 && year != 0 {
		newYear = year
	}
	newHasArt := currentHasArt
	if hasArtwork {
		newHasArt = 1
	}
	if newYear != currentYear || newHasArt != currentHasArt {
		_, err = tx.ExecContext(ctx,
			`UPDATE albums SET year = ?, has_artwork = ?, updated_at = ? WHERE id = ?`,
			newYear, newHasArt, formatTime(now), albumID)
		if err != nil {
			return "", fmt.Errorf("update album aggregates %q: %w", display, err)
		}
	}
	return albumID, nil
}

// GetAlbum retrieves an album by ID. Returns errors.ErrNotFound when absent.
func (s *Store) GetAlbum(ctx context.Context, albumID string) (*domain.Album, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT `+albumColumns+` FROM albums al
		JOIN artists a ON a.id = al.artist_id
		WHERE al.id = ?`, albumID)

	al, err := scanAlbum(row)
	if err == sql.ErrNoRows {
		return nil, apperrors.NotFoundf("album %s not found", albumID)
	}
	if err != nil {
		return nil, err
	}
	return al, nil
}

// ListAlbumsOptions filters and orders album listings. ArtworkFirst puts
// albums with artwork before ones without, preserving title order within
// each group.
type ListAlbumsOptions struct {
	ArtistID     string
	Search       string
	ArtworkFirst bool
	Limit        int
	Offset       int
}

// ListAlbums returns albums ordered by title, optionally artwork-first.
func (s *Store) ListAlbums(ctx context.Context, opts ListAlbumsOptions) ([]*domain.Album, error) {
	query := `SELECT ` + albumColumns + ` FROM albums al JOIN artists a ON a.id = al.artist_id`
	var (
		where []string
		args  []any
	)
	if opts.ArtistID != "" {
		where = append(where, "al.artist_id = ?")
		args = append(args, opts.ArtistID)
	}
	if opts.Search != "" {
		where = append(where, `(al.title LIKE ? ESCAPE '\' OR a.name LIKE ? ESCAPE '\')`)
		pattern := "%" + escapeLike(opts.Search) + "%"
		args = append(args, pattern, pattern)
	}
	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}
	if opts.ArtworkFirst {
		query += " ORDER BY al.has_artwork DESC, al.title COLLATE NOCASE"
	} else {
		query += " ORDER BY al.title COLLATE NOCASE"
	}
	if opts.Limit > 0 {
		query += " LIMIT ? OFFSET ?"
		args = append(args, opts.Limit, opts.Offset)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query albums: %w", err)
	}
	defer rows.Close()

	albums := []*domain.Album{}
	for rows.Next() {
		al, err := scanAlbum(rows)
		if err != nil {
			return nil, err
		}
		albums = append(albums, al)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return albums, nil
}

// CountAlbums returns the number of indexed albums.
func (s *Store) CountAlbums(ctx context.Context) (int, error) {
	var count int
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM albums`).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("count albums: %w", err)
	}
	return count, nil
}
