// Package domain defines the core entities of the music library.
package domain

import "time"

// Track is a single audio file in the library.
//
// Identity is the file path relative to the library root; a track that moves
// on disk is treated as a remove plus an add. TrackNumber and DiscNumber use
// zero for "unknown", which sorts after all known numbers in album listings.
type Track struct {
	ID          string    `json:"id"`
	Title       string    `json:"title"`
	ArtistID    string    `json:"artist_id"`
	AlbumID     string    `json:"album_id"`
	TrackNumber int       `json:"track_number"`
	DiscNumber  int       `json:"disc_number"`
	Duration    float64   `json:"duration"` // seconds
	FilePath    string    `json:"file_path"`
	Size        int64     `json:"size"`
	ModTime     int64     `json:"mod_time"` // unix milliseconds
	Format      string    `json:"format"`   // container, e.g. "mp3", "flac"
	MIMEType    string    `json:"mime_type"`
	Bitrate     int       `json:"bitrate,omitempty"` // kbps, 0 when unknown
	HasArtwork  bool      `json:"has_artwork"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// Signature is the cheap change-detection fingerprint for a file:
// size plus modification time in unix milliseconds. A track whose signature
// matches the one on record is skipped without re-reading its tags.
type Signature struct {
	Size    int64
	ModTime int64
}

// Changed reports whether the on-disk signature differs from the recorded one.
func (s Signature) Changed(other Signature) bool {
	return s.Size != other.Size || s.ModTime != other.ModTime
}
