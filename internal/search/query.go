package search

import (
	"context"
	"fmt"
	"strings"

	"github.com/blevesearch/bleve/v2"
	"github.com/blevesearch/bleve/v2/search/query"

	"github.com/crateapp/crate-server/internal/domain"
)

// DefaultLimit is the page size used when a query asks for none.
const DefaultLimit = 50

// Hit is a single full-text match.
type Hit struct {
	TrackID    int64             `json:"trackId"`
	Score      float64           `json:"score"`
	Name       string            `json:"name,omitempty"`
	Artist     string            `json:"artist,omitempty"`
	Highlights map[string]string `json:"highlights,omitempty"`
}

// Query runs a full-text query and returns hits ordered by score.
func (x *TrackIndex) Query(ctx context.Context, text string, limit int) ([]Hit, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return []Hit{}, nil
	}
	if limit <= 0 {
		limit = DefaultLimit
	}

	x.mu.RLock()
	defer x.mu.RUnlock()

	req := bleve.NewSearchRequestOptions(buildTrackQuery(text), limit, 0, false)
	req.SortBy([]string{"-_score", "_id"})
	req.Fields = []string{"name", "artist"}
	req.Highlight = bleve.NewHighlight()
	req.Highlight.AddField("name")
	req.Highlight.AddField("artist")

	res, err := x.index.SearchInContext(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("execute search: %w", err)
	}

	hits := make([]Hit, 0, len(res.Hits))
	for _, h := range res.Hits {
		trackID, err := domain.ParseTrackKey(h.ID)
		if err != nil {
			x.logger.Warn("skipping hit with malformed id", "id", h.ID)
			continue
		}
		hit := Hit{TrackID: trackID, Score: h.Score}
		if n, ok := h.Fields["name"].(string); ok {
			hit.Name = n
		}
		if a, ok := h.Fields["artist"].(string); ok {
			hit.Artist = a
		}
		if len(h.Fragments) > 0 {
			hit.Highlights = make(map[string]string)
			for field, fragments := range h.Fragments {
				if len(fragments) > 0 {
					hit.Highlights[field] = fragments[0]
				}
			}
		}
		hits = append(hits, hit)
	}
	return hits, nil
}

// buildTrackQuery matches name and artist most strongly, then comments and
// exact tags, with fuzzy and prefix variants on the name for typing.
func buildTrackQuery(text string) query.Query {
	lower := strings.ToLower(text)

	nameMatch := bleve.NewMatchQuery(text)
	nameMatch.SetField("name")
	nameMatch.SetBoost(3.0)

	artistMatch := bleve.NewMatchQuery(text)
	artistMatch.SetField("artist")
	artistMatch.SetBoost(2.0)

	commentsMatch := bleve.NewMatchQuery(text)
	commentsMatch.SetField("comments")
	commentsMatch.SetBoost(0.5)

	tagTerm := bleve.NewTermQuery(text)
	tagTerm.SetField("tags")

	fuzzy := bleve.NewFuzzyQuery(lower)
	fuzzy.SetFuzziness(1)
	fuzzy.SetField("name")
	fuzzy.SetBoost(0.8)

	queries := []query.Query{nameMatch, artistMatch, commentsMatch, tagTerm, fuzzy}

	if len(lower) >= MinQueryLength {
		prefix := bleve.NewPrefixQuery(lower)
		prefix.SetField("name")
		prefix.SetBoost(0.5)
		queries = append(queries, prefix)

		artistPrefix := bleve.NewPrefixQuery(lower)
		artistPrefix.SetField("artist")
		artistPrefix.SetBoost(0.4)
		queries = append(queries, artistPrefix)
	}

	return bleve.NewDisjunctionQuery(queries...)
}
