package search

import (
	"context"
	"fmt"
	"strings"

	"github.com/blevesearch/bleve/v2"
	"github.com/blevesearch/bleve/v2/search/query"
)

// Result is one search response.
type Result struct {
	Query  string `json:"query"`
	Total  uint64 `json:"total"`
	TookMs int64  `json:"took_ms"`
	Hits   []Hit  `json:"hits"`
}

// Hit is a single matching track.
type Hit struct {
	TrackID    string            `json:"track_id"`
	Score      float64           `json:"score"`
	Title      string            `json:"title"`
	Artist     string            `json:"artist,omitempty"`
	Album      string            `json:"album,omitempty"`
	Highlights map[string]string `json:"highlights,omitempty"`
}

// Search matches the query text against track titles, artist names, and
// album titles, with fuzzy matching for typo tolerance and a prefix query
// for search-as-you-type.
func (ix *Index) Search(ctx context.Context, queryText string, limit, offset int) (*Result, error) {
	if limit <= 0 {
		limit = 20
	}

	ix.mu.RLock()
	defer ix.mu.RUnlock()

	searchRequest := bleve.NewSearchRequestOptions(buildTrackQuery(queryText), limit, offset, false)
	searchRequest.Fields = []string{"title", "artist", "album"}
	searchRequest.Highlight = bleve.NewHighlight()
	searchRequest.Highlight.AddField("title")
	searchRequest.Highlight.AddField("artist")
	searchRequest.Highlight.AddField("album")

	searchResult, err := ix.index.SearchInContext(ctx, searchRequest)
	if err != nil {
		return nil, fmt.Errorf("execute search: %w", err)
	}

	result := &Result{
		Query:  queryText,
		Total:  searchResult.Total,
		TookMs: searchResult.Took.Milliseconds(),
		Hits:   make([]Hit, 0, len(searchResult.Hits)),
	}

	for _, hit := range searchResult.Hits {
		h := Hit{
			TrackID: hit.ID,
			Score:   hit.Score,
		}
		if v, ok := hit.Fields["title"].(string); ok {
			h.Title = v
		}
		if v, ok := hit.Fields["artist"].(string); ok {
			h.Artist = v
		}
		if v, ok := hit.Fields["album"].(string); ok {
			h.Album = v
		}
		if len(hit.Fragments) > 0 {
			h.Highlights = make(map[string]string)
			for field, fragments := range hit.Fragments {
				if len(fragments) > 0 {
					h.Highlights[field] = fragments[0]
				}
			}
		}
		result.Hits = append(result.Hits, h)
	}

	return result, nil
}

// buildTrackQuery combines per-field match queries with fuzzy and prefix
// variants. Title matches rank above artist, which ranks above album.
func buildTrackQuery(queryText string) query.Query {
	queries := []query.Query{}

	titleMatch := bleve.NewMatchQuery(queryText)
	titleMatch.SetField("title")
	titleMatch.SetBoost(3.0)
	queries = append(queries, titleMatch)

	artistMatch := bleve.NewMatchQuery(queryText)
	artistMatch.SetField("artist")
	artistMatch.SetBoost(2.0)
	queries = append(queries, artistMatch)

	albumMatch := bleve.NewMatchQuery(queryText)
	albumMatch.SetField("album")
	albumMatch.SetBoost(1.5)
	queries = append(queries, albumMatch)

	fuzzyQuery := bleve.NewFuzzyQuery(queryText)
	fuzzyQuery.SetFuzziness(1)
	fuzzyQuery.SetField("title")
	fuzzyQuery.SetBoost(0.8)
	queries = append(queries, fuzzyQuery)

	if len(queryText) >= 2 {
		prefixQuery := bleve.NewPrefixQuery(strings.ToLower(queryText))
		prefixQuery.SetField("title")
		prefixQuery.SetBoost(0.5)
		queries = append(queries, prefixQuery)
	}

	return bleve.NewDisjunctionQuery(queries...)
}
