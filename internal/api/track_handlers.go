package api

import (
	"context"
	"net/http"

	"github.com/danielgtaylor/huma/v2"

	"github.com/crateapp/crate-server/internal/service"
	"github.com/crateapp/crate-server/internal/tracks"
)

func (s *Server) registerTrackRoutes() {
	huma.Register(s.api, huma.Operation{
		OperationID: "listTracks",
		Method:      http.MethodGet,
		Path:        "/api/v1/tracks",
		Summary:     "List tracks",
		Description: "Returns the collection, or the tracks under node_id, optionally sorted by a column",
		Tags:        []string{"Tracks"},
	}, s.handleListTracks)

	huma.Register(s.api, huma.Operation{
		OperationID: "getTrack",
		Method:      http.MethodGet,
		Path:        "/api/v1/tracks/{id}",
		Summary:     "Get track",
		Description: "Returns a track by ID",
		Tags:        []string{"Tracks"},
	}, s.handleGetTrack)

	huma.Register(s.api, huma.Operation{
		OperationID:   "addTrack",
		Method:        http.MethodPost,
		Path:          "/api/v1/tracks",
		Summary:       "Add track",
		Description:   "Adds a track under the next free ID",
		Tags:          []string{"Tracks"},
		DefaultStatus: http.StatusCreated,
	}, s.handleAddTrack)

	huma.Register(s.api, huma.Operation{
		OperationID: "updateTrack",
		Method:      http.MethodPatch,
		Path:        "/api/v1/tracks/{id}",
		Summary:     "Update track",
		Description: "Edits track metadata. Omitted fields are left unchanged.",
		Tags:        []string{"Tracks"},
	}, s.handleUpdateTrack)

	huma.Register(s.api, huma.Operation{
		OperationID: "deleteTracks",
		Method:      http.MethodPost,
		Path:        "/api/v1/tracks/delete",
		Summary:     "Delete tracks",
		Description: "Removes tracks from the collection. Playlists keep their references.",
		Tags:        []string{"Tracks"},
	}, s.handleDeleteTracks)

	huma.Register(s.api, huma.Operation{
		OperationID: "setTrackTag",
		Method:      http.MethodPut,
		Path:        "/api/v1/tracks/{id}/tag",
		Summary:     "Set color tag",
		Description: "Sets or clears the color tag of a track",
		Tags:        []string{"Tracks"},
	}, s.handleSetTrackTag)

	huma.Register(s.api, huma.Operation{
		OperationID: "listColorTags",
		Method:      http.MethodGet,
		Path:        "/api/v1/tags",
		Summary:     "List color tags",
		Description: "Returns every tagged track with its color",
		Tags:        []string{"Tracks"},
	}, s.handleListColorTags)
}

// === DTOs ===

type ListTracksInput struct {
	Sort      string `query:"sort" enum:"num,tag,bpm,title,time,artist,comments" doc:"Sort column, insertion order when empty"`
	Direction int    `query:"direction" enum:"-1,0,1" default:"1" doc:"1 ascending, -1 descending, 0 unsorted"`
	NodeID    string `query:"node_id" doc:"Restrict to the tracks under this node"`
}

type TrackIDInput struct {
	ID int64 `path:"id" doc:"Track ID"`
}

type TrackOutput struct {
	Body TrackResponse
}

type AddTrackRequest struct {
	Name      string   `json:"name" minLength:"1" maxLength:"1000" doc:"Title"`
	Artist    string   `json:"artist,omitempty" maxLength:"1000" doc:"Artist"`
	TotalTime int64    `json:"total_time,omitempty" minimum:"0" doc:"Duration in milliseconds"`
	BPM       int      `json:"bpm,omitempty" minimum:"0" maximum:"999" doc:"Beats per minute"`
	Tags      []string `json:"tags,omitempty" maxItems:"100" doc:"Free-form tags"`
	Comments  string   `json:"comments,omitempty" doc:"Comments"`
	TrackType string   `json:"track_type,omitempty" doc:"Source kind"`
	Location  string   `json:"location,omitempty" doc:"File location"`
}

type AddTrackInput struct {
	Body AddTrackRequest
}

type UpdateTrackRequest struct {
	Name      *string   `json:"name,omitempty" doc:"Title"`
	Artist    *string   `json:"artist,omitempty" doc:"Artist"`
	TotalTime *int64    `json:"total_time,omitempty" minimum:"0" doc:"Duration in milliseconds"`
	BPM       *int      `json:"bpm,omitempty" minimum:"0" maximum:"999" doc:"Beats per minute"`
	Tags      *[]string `json:"tags,omitempty" doc:"Replaces all tags"`
	Comments  *string   `json:"comments,omitempty" doc:"Comments"`
	TrackType *string   `json:"track_type,omitempty" doc:"Source kind"`
	Location  *string   `json:"location,omitempty" doc:"File location"`
}

type UpdateTrackInput struct {
	ID   int64 `path:"id" doc:"Track ID"`
	Body UpdateTrackRequest
}

type DeleteTracksRequest struct {
	TrackIDs []int64 `json:"track_ids" minItems:"1" doc:"Track IDs"`
}

type DeleteTracksInput struct {
	Body DeleteTracksRequest
}

type DeleteTracksResponse struct {
	Deleted int `json:"deleted" doc:"Number of tracks removed"`
}

type DeleteTracksOutput struct {
	Body DeleteTracksResponse
}

type SetTrackTagRequest struct {
	Color string `json:"color" enum:",red,orange,yellow,green,mint,blue" doc:"Color, empty to clear"`
}

type SetTrackTagInput struct {
	ID   int64 `path:"id" doc:"Track ID"`
	Body SetTrackTagRequest
}

type ColorTagsResponse struct {
	Tags map[int64]string `json:"tags" doc:"Track ID to color"`
}

type ColorTagsOutput struct {
	Body ColorTagsResponse
}

// === Handlers ===

func (s *Server) handleListTracks(_ context.Context, input *ListTracksInput) (*TracksOutput, error) {
	list, err := s.library.SortedTracks(service.ListTracksRequest{
		Sort:      input.Sort,
		Direction: input.Direction,
		NodeID:    input.NodeID,
	})
	if err != nil {
		return nil, err
	}
	return &TracksOutput{Body: TracksResponse{Tracks: mapTrackResponses(list, s.library.ColorTags())}}, nil
}

func (s *Server) handleGetTrack(_ context.Context, input *TrackIDInput) (*TrackOutput, error) {
	t, err := s.library.Track(input.ID)
	if err != nil {
		return nil, err
	}
	return &TrackOutput{Body: mapTrackResponse(t, s.library.ColorTags())}, nil
}

func (s *Server) handleAddTrack(ctx context.Context, input *AddTrackInput) (*TrackOutput, error) {
	t, err := s.library.AddTrack(ctx, service.AddTrackRequest{
		Name:      input.Body.Name,
		Artist:    input.Body.Artist,
		TotalTime: input.Body.TotalTime,
		BPM:       input.Body.BPM,
		Tags:      input.Body.Tags,
		Comments:  input.Body.Comments,
		TrackType: input.Body.TrackType,
		Location:  input.Body.Location,
	})
	if err != nil {
		return nil, err
	}
	return &TrackOutput{Body: mapTrackResponse(t, nil)}, nil
}

func (s *Server) handleUpdateTrack(ctx context.Context, input *UpdateTrackInput) (*TrackOutput, error) {
	t, err := s.library.UpdateTrack(ctx, input.ID, tracks.TrackPatch{
		Name:      input.Body.Name,
		Artist:    input.Body.Artist,
		TotalTime: input.Body.TotalTime,
		BPM:       input.Body.BPM,
		Tags:      input.Body.Tags,
		Comments:  input.Body.Comments,
		TrackType: input.Body.TrackType,
		Location:  input.Body.Location,
	})
	if err != nil {
		return nil, err
	}
	return &TrackOutput{Body: mapTrackResponse(t, s.library.ColorTags())}, nil
}

func (s *Server) handleDeleteTracks(ctx context.Context, input *DeleteTracksInput) (*DeleteTracksOutput, error) {
	n, err := s.library.DeleteTracks(ctx, service.DeleteTracksRequest{TrackIDs: input.Body.TrackIDs})
	if err != nil {
		return nil, err
	}
	return &DeleteTracksOutput{Body: DeleteTracksResponse{Deleted: n}}, nil
}

func (s *Server) handleSetTrackTag(ctx context.Context, input *SetTrackTagInput) (*TrackOutput, error) {
	if err := s.library.SetColorTag(ctx, input.ID, service.SetColorTagRequest{Color: input.Body.Color}); err != nil {
		return nil, err
	}
	t, err := s.library.Track(input.ID)
	if err != nil {
		return nil, err
	}
	return &TrackOutput{Body: mapTrackResponse(t, s.library.ColorTags())}, nil
}

func (s *Server) handleListColorTags(_ context.Context, _ *struct{}) (*ColorTagsOutput, error) {
	return &ColorTagsOutput{Body: ColorTagsResponse{Tags: s.library.ColorTags()}}, nil
}
