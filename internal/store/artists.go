package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/151henry151/rompmusic-server/internal/domain"
	apperrors "github.com/151henry151/rompmusic-server/internal/errors"
	"github.com/151henry151/rompmusic-server/internal/id"
	"github.com/151henry151/rompmusic-server/internal/normalize"
)

// artistColumns selects artist rows together with derived album and track
// counts and an any-album-has-artwork flag.
const artistColumns = `a.id, a.name, a.norm_name, a.created_at, a.updated_at,
	(SELECT COUNT(*) FROM albums al WHERE al.artist_id = a.id),
	(SELECT COUNT(*) FROM tracks t WHERE t.artist_id = a.id),
	(SELECT COUNT(*) FROM albums al WHERE al.artist_id = a.id AND al.has_artwork = 1)`

func scanArtist(scanner interface{ Scan(dest ...any) error }) (*domain.Artist, error) {
	var a domain.Artist

	var (
		createdAt     string
		updatedAt     string
		artworkAlbums int
	)

	err := scanner.Scan(
		&a.ID,
		&a.Name,
		&a.NormName,
		&createdAt,
		&updatedAt,
		&a.AlbumCount,
		&a.TrackCount,
		&artworkAlbums,
	)
	if err != nil {
		return nil, err
	}

	a.HasArtwork = artworkAlbums > 0
	a.CreatedAt, err = parseTime(createdAt)
	if err != nil {
		return nil, err
	}
	a.UpdatedAt, err = parseTime(updatedAt)
	if err != nil {
		return nil, err
	}

	return &a, nil
}

// findOrCreateArtistTx resolves an artist by normalized name inside an open
// transaction, creating it when absent. Returns the artist ID.
func findOrCreateArtistTx(ctx context.Context, tx *sql.Tx, name string, now time.Time) (string, error) {
	display := normalize.Name(name)
	key := normalize.Key(name)

	var artistID string
	err := tx.QueryRowContext(ctx,
		`SELECT id FROM artists WHERE norm_name = ?`, key).Scan(&artistID)
	if err == nil {
		return artistID, nil
	}
	if err != sql.ErrNoRows {
		return "", fmt.Errorf("lookup artist %q: %w", display, err)
	}

	artistID, err = id.Generate("art")
	if err != nil {
		return "", fmt.Errorf("generate artist id: %w", err)
	}
	_, err = tx.ExecContext(ctx, `
		INSERT INTO artists (id, name, norm_name, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?)`,
		artistID, display, key, formatTime(now), formatTime(now),
	)
	if err != nil {
		return "", fmt.Errorf("insert artist %q: %w", display, err)
	}
	return artistID, nil
}

// GetArtist retrieves an artist by ID. Returns errors.ErrNotFound when absent.
func (s *Store) GetArtist(ctx context.Context, artistID string) (*domain.Artist, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+artistColumns+` FROM artists a WHERE a.id = ?`, artistID)

	a, err := scanArtist(row)
	if err == sql.ErrNoRows {
		return nil, apperrors.NotFoundf("artist %s not found", artistID)
	}
	if err != nil {
		return nil, err
	}
	return a, nil
}

// ListArtistsOptions filters and pages artist listings.
type ListArtistsOptions struct {
	Search string
	Limit  int
	Offset int
}

// ListArtists returns artists ordered by name.
func (s *Store) ListArtists(ctx context.Context, opts ListArtistsOptions) ([]*domain.Artist, error) {
	query := `SELECT ` + artistColumns + ` FROM artists a`
	var args []any
	if opts.Search != "" {
		query += ` WHERE a.name LIKE ? ESCAPE '\'`
		args = append(args, "%"+escapeLike(opts.Search)+"%")
	}
	query += ` ORDER BY a.name COLLATE NOCASE`
	if opts.Limit > 0 {
		query += ` LIMIT ? OFFSET ?`
		args = append(args, opts.Limit, opts.Offset)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query artists: %w", err)
	}
	defer rows.Close()

	artists := []*domain.Artist{}
	for rows.Next() {
		a, err := scanArtist(rows)
		if err != nil {
			return nil, err
		}
		artists = append(artists, a)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return artists, nil
}

// CountArtists returns the number of indexed artists.
func (s *Store) CountArtists(ctx context.Context) (int, error) {
	var count int
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM artists`).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("count artists: %w", err)
	}
	return count, nil
}
