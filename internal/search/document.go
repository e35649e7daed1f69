// Package search provides full-text track search using Bleve. Track titles,
// artist names, and album titles are denormalized into one document per
// track so a single query matches across all three.
package search

// TrackDocument is the Bleve document for one track.
type TrackDocument struct {
	ID     string `json:"id"`
	Title  string `json:"title"`
	Artist string `json:"artist"`
	Album  string `json:"album"`
}

// ToMap converts the document to a map with lowercase field names. Bleve by
// default uses Go struct field names (capitalized), but the mapping uses
// lowercase names, so we convert explicitly.
func (d *TrackDocument) ToMap() map[string]any {
	return map[string]any{
		"id":     d.ID,
		"title":  d.Title,
		"artist": d.Artist,
		"album":  d.Album,
	}
}
