package api

import (
	"context"
	"net/http"

	"github.com/danielgtaylor/huma/v2"

	"github.com/crateapp/crate-server/internal/search"
)

func (s *Server) registerSearchRoutes() {
	huma.Register(s.api, huma.Operation{
		OperationID: "searchTracks",
		Method:      http.MethodGet,
		Path:        "/api/v1/search",
		Summary:     "Search tracks",
		Description: "Relevance search over track titles and artists. Word-boundary matches rank first; queries under two characters return nothing.",
		Tags:        []string{"Search"},
	}, s.handleSearchTracks)

	huma.Register(s.api, huma.Operation{
		OperationID: "fullTextSearch",
		Method:      http.MethodGet,
		Path:        "/api/v1/search/fulltext",
		Summary:     "Full-text search",
		Description: "Scored full-text search over titles, artists, comments and tags with fuzzy title matching",
		Tags:        []string{"Search"},
	}, s.handleFullTextSearch)
}

// === DTOs ===

type SearchTracksInput struct {
	Query string `query:"q" maxLength:"500" doc:"Search text"`
}

type FullTextSearchInput struct {
	Query string `query:"q" maxLength:"500" doc:"Search text"`
	Limit int    `query:"limit" minimum:"0" maximum:"100" default:"20" doc:"Maximum hits, 0 for the default"`
}

type FullTextSearchResponse struct {
	Hits []search.Hit `json:"hits" doc:"Hits ordered by score"`
}

type FullTextSearchOutput struct {
	Body FullTextSearchResponse
}

// === Handlers ===

func (s *Server) handleSearchTracks(_ context.Context, input *SearchTracksInput) (*TracksOutput, error) {
	list := s.library.Search(input.Query)
	return &TracksOutput{Body: TracksResponse{Tracks: mapTrackResponses(list, s.library.ColorTags())}}, nil
}

func (s *Server) handleFullTextSearch(ctx context.Context, input *FullTextSearchInput) (*FullTextSearchOutput, error) {
	hits, err := s.library.FullTextSearch(ctx, input.Query, input.Limit)
	if err != nil {
		return nil, err
	}
	if hits == nil {
		hits = []search.Hit{}
	}
	return &FullTextSearchOutput{Body: FullTextSearchResponse{Hits: hits}}, nil
}
