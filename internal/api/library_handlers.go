package api

import (
	"context"
	"net/http"
	"time"

	"github.com/danielgtaylor/huma/v2"

	"github.com/crateapp/crate-server/internal/domain"
	"github.com/crateapp/crate-server/internal/hierarchy"
	"github.com/crateapp/crate-server/internal/service"
)

// maxImportBytes bounds an import body; exported libraries run large.
const maxImportBytes = 256 << 20

func (s *Server) registerLibraryRoutes() {
	huma.Register(s.api, huma.Operation{
		OperationID: "getLibrary",
		Method:      http.MethodGet,
		Path:        "/api/v1/library",
		Summary:     "Get library",
		Description: "Returns the whole folder/playlist tree, its path index and library counts",
		Tags:        []string{"Library"},
	}, s.handleGetLibrary)

	huma.Register(s.api, huma.Operation{
		OperationID: "syncLibrary",
		Method:      http.MethodPost,
		Path:        "/api/v1/library/sync",
		Summary:     "Sync library",
		Description: "Waits until every change so far is persisted and reports the first failure since the last sync",
		Tags:        []string{"Library"},
	}, s.handleSyncLibrary)

	huma.Register(s.api, huma.Operation{
		OperationID:  "importLibrary",
		Method:       http.MethodPost,
		Path:         "/api/v1/library/import",
		Summary:      "Import library",
		Description:  "Replaces the library with the given tracks and flat folder/playlist items",
		Tags:         []string{"Library"},
		MaxBodyBytes: maxImportBytes,
	}, s.handleImportLibrary)

	huma.Register(s.api, huma.Operation{
		OperationID: "enrichLibrary",
		Method:      http.MethodPost,
		Path:        "/api/v1/library/enrich",
		Summary:     "Enrich tracks",
		Description: "Fills unset track metadata from the configured enrichment sources",
		Tags:        []string{"Library"},
	}, s.handleEnrichLibrary)
}

// === DTOs ===

type LibraryResponse struct {
	Hierarchy []NodeResponse   `json:"hierarchy" doc:"Root-level nodes with their subtrees"`
	Index     map[string][]int `json:"index" doc:"Node ID to tree path"`
	Stats     service.Stats    `json:"stats" doc:"Library counts"`
}

type LibraryOutput struct {
	Body LibraryResponse
}

// ImportTrack is a track record in the persisted document format.
type ImportTrack struct {
	TrackID      int64     `json:"trackId" doc:"Track ID, must be positive"`
	Name         string    `json:"name" doc:"Title"`
	Artist       string    `json:"artist,omitempty" doc:"Artist"`
	TotalTime    int64     `json:"totalTime,omitempty" doc:"Duration in milliseconds"`
	BPM          int       `json:"bpm,omitempty" doc:"Beats per minute"`
	Tags         []string  `json:"tags,omitempty" doc:"Free-form tags"`
	DateAdded    time.Time `json:"dateAdded,omitempty" doc:"When the track entered the library"`
	DateModified time.Time `json:"dateModified,omitempty" doc:"Last file modification"`
	Comments     string    `json:"comments,omitempty" doc:"Comments"`
	PersistentID string    `json:"persistentId,omitempty" doc:"ID in the originating library"`
	TrackType    string    `json:"trackType,omitempty" doc:"Source kind"`
	Location     string    `json:"location,omitempty" doc:"File location"`
}

type ImportLibraryRequest struct {
	Tracks []ImportTrack        `json:"tracks" doc:"Track records"`
	Items  []hierarchy.FlatItem `json:"items" doc:"Folders and playlists, parents before children"`
}

type ImportLibraryInput struct {
	Body ImportLibraryRequest
}

type ImportLibraryOutput struct {
	Body service.ImportResult
}

type EnrichLibraryRequest struct {
	TrackIDs []int64 `json:"track_ids,omitempty" doc:"Tracks to enrich, all when empty"`
}

type EnrichLibraryInput struct {
	Body EnrichLibraryRequest
}

type EnrichLibraryOutput struct {
	Body service.EnrichResult
}

// === Handlers ===

func (s *Server) handleGetLibrary(_ context.Context, _ *struct{}) (*LibraryOutput, error) {
	snap := s.library.Snapshot()

	index := make(map[string][]int, len(snap.Index))
	for id, path := range snap.Index {
		index[id] = path
	}

	return &LibraryOutput{Body: LibraryResponse{
		Hierarchy: mapRootResponses(snap.Hierarchy),
		Index:     index,
		Stats:     s.library.Stats(),
	}}, nil
}

func (s *Server) handleSyncLibrary(ctx context.Context, _ *struct{}) (*MessageOutput, error) {
	if err := s.library.Sync(ctx); err != nil {
		return nil, err
	}
	return &MessageOutput{Body: MessageResponse{Message: "Library persisted"}}, nil
}

func (s *Server) handleImportLibrary(ctx context.Context, input *ImportLibraryInput) (*ImportLibraryOutput, error) {
	req := service.ImportRequest{
		Tracks: make([]*domain.Track, len(input.Body.Tracks)),
		Items:  input.Body.Items,
	}
	for i, t := range input.Body.Tracks {
		req.Tracks[i] = &domain.Track{
			TrackID:      t.TrackID,
			Name:         t.Name,
			Artist:       t.Artist,
			TotalTime:    t.TotalTime,
			BPM:          t.BPM,
			Tags:         t.Tags,
			DateAdded:    t.DateAdded,
			DateModified: t.DateModified,
			Comments:     t.Comments,
			PersistentID: t.PersistentID,
			TrackType:    t.TrackType,
			Location:     t.Location,
		}
	}

	result, err := s.library.Import(ctx, req)
	if err != nil {
		return nil, err
	}
	return &ImportLibraryOutput{Body: *result}, nil
}

func (s *Server) handleEnrichLibrary(ctx context.Context, input *EnrichLibraryInput) (*EnrichLibraryOutput, error) {
	result, err := s.library.Enrich(ctx, service.EnrichRequest{TrackIDs: input.Body.TrackIDs})
	if err != nil {
		return nil, err
	}
	return &EnrichLibraryOutput{Body: *result}, nil
}
