package domain

import "time"

// Album groups tracks under (artist, normalized title) identity.
// TrackCount is derived from the tracks table; an album with zero remaining
// tracks is pruned during reconciliation.
type Album struct {
	ID         string    `json:"id"`
	Title      string    `json:"title"`
	NormTitle  string    `json:"-"`
	ArtistID   string    `json:"artist_id"`
	ArtistName string    `json:"artist_name,omitempty"` // denormalized for listings
	Year       int       `json:"year,omitempty"`        // 0 when unknown
	HasArtwork bool      `json:"has_artwork"`
	TrackCount int       `json:"track_count"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}

// Artist is a derived aggregate: it exists only while at least one track or
// album references it.
type Artist struct {
	ID         string    `json:"id"`
	Name       string    `json:"name"`
	NormName   string    `json:"-"`
	AlbumCount int       `json:"album_count"`
	TrackCount int       `json:"track_count"`
	HasArtwork bool      `json:"has_artwork"` // any album with artwork
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}
