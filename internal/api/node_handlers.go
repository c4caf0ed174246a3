package api

import (
	"context"
	"net/http"

	"github.com/danielgtaylor/huma/v2"

	"github.com/crateapp/crate-server/internal/domain"
	"github.com/crateapp/crate-server/internal/service"
)

func (s *Server) registerNodeRoutes() {
	huma.Register(s.api, huma.Operation{
		OperationID: "getNode",
		Method:      http.MethodGet,
		Path:        "/api/v1/nodes/{id}",
		Summary:     "Get node",
		Description: "Returns a folder or playlist with its subtree",
		Tags:        []string{"Nodes"},
	}, s.handleGetNode)

	huma.Register(s.api, huma.Operation{
		OperationID:   "createNode",
		Method:        http.MethodPost,
		Path:          "/api/v1/nodes",
		Summary:       "Create node",
		Description:   "Creates a folder or playlist inside a folder, or at root level without a parent",
		Tags:          []string{"Nodes"},
		DefaultStatus: http.StatusCreated,
	}, s.handleCreateNode)

	huma.Register(s.api, huma.Operation{
		OperationID: "renameNode",
		Method:      http.MethodPatch,
		Path:        "/api/v1/nodes/{id}",
		Summary:     "Rename node",
		Description: "Renames a node in place. Sibling order is unchanged.",
		Tags:        []string{"Nodes"},
	}, s.handleRenameNode)

	huma.Register(s.api, huma.Operation{
		OperationID: "removeNode",
		Method:      http.MethodDelete,
		Path:        "/api/v1/nodes/{id}",
		Summary:     "Remove node",
		Description: "Removes a node and its whole subtree. Tracks stay in the collection.",
		Tags:        []string{"Nodes"},
	}, s.handleRemoveNode)

	huma.Register(s.api, huma.Operation{
		OperationID: "moveNode",
		Method:      http.MethodPost,
		Path:        "/api/v1/nodes/{id}/move",
		Summary:     "Move node",
		Description: "Moves a node into a folder, or to root level when target_id is empty",
		Tags:        []string{"Nodes"},
	}, s.handleMoveNode)

	huma.Register(s.api, huma.Operation{
		OperationID: "getFolderTracks",
		Method:      http.MethodGet,
		Path:        "/api/v1/folders/{id}/tracks",
		Summary:     "Get folder tracks",
		Description: "Returns the tracks of every playlist under a node in tree order",
		Tags:        []string{"Nodes"},
	}, s.handleGetFolderTracks)

	huma.Register(s.api, huma.Operation{
		OperationID: "addPlaylistTracks",
		Method:      http.MethodPost,
		Path:        "/api/v1/playlists/{id}/tracks",
		Summary:     "Add playlist tracks",
		Description: "Appends tracks the playlist does not contain yet",
		Tags:        []string{"Nodes"},
	}, s.handleAddPlaylistTracks)

	huma.Register(s.api, huma.Operation{
		OperationID: "removePlaylistTracks",
		Method:      http.MethodPost,
		Path:        "/api/v1/playlists/{id}/tracks/remove",
		Summary:     "Remove playlist tracks",
		Description: "Removes every occurrence of the given tracks from the playlist",
		Tags:        []string{"Nodes"},
	}, s.handleRemovePlaylistTracks)
}

// === DTOs ===

type NodeIDInput struct {
	ID string `path:"id" doc:"Node ID"`
}

type CreateNodeRequest struct {
	ParentID string `json:"parent_id,omitempty" doc:"Containing folder, empty for root level"`
	Kind     string `json:"kind" enum:"folder,playlist" doc:"Node kind"`
	Name     string `json:"name" minLength:"1" maxLength:"500" doc:"Display name"`
}

type CreateNodeInput struct {
	Body CreateNodeRequest
}

type RenameNodeRequest struct {
	Name string `json:"name" minLength:"1" maxLength:"500" doc:"New name"`
}

type RenameNodeInput struct {
	ID   string `path:"id" doc:"Node ID"`
	Body RenameNodeRequest
}

type MoveNodeRequest struct {
	TargetID string `json:"target_id,omitempty" doc:"Destination folder, empty for root level"`
}

type MoveNodeInput struct {
	ID   string `path:"id" doc:"Node ID"`
	Body MoveNodeRequest
}

type PlaylistTracksRequest struct {
	TrackIDs []int64 `json:"track_ids" minItems:"1" maxItems:"10000" doc:"Track IDs"`
}

type PlaylistTracksInput struct {
	ID   string `path:"id" doc:"Playlist ID"`
	Body PlaylistTracksRequest
}

type FolderTracksResponse struct {
	Name   string          `json:"name" doc:"Name of the selected node"`
	Tracks []TrackResponse `json:"tracks" doc:"Tracks in tree order"`
}

type FolderTracksOutput struct {
	Body FolderTracksResponse
}

// === Handlers ===

func (s *Server) handleGetNode(_ context.Context, input *NodeIDInput) (*NodeOutput, error) {
	node, err := s.library.Node(input.ID)
	if err != nil {
		return nil, err
	}
	return s.nodeOutput(node), nil
}

func (s *Server) handleCreateNode(ctx context.Context, input *CreateNodeInput) (*NodeOutput, error) {
	node, err := s.library.CreateNode(ctx, service.CreateNodeRequest{
		ParentID: input.Body.ParentID,
		Kind:     input.Body.Kind,
		Name:     input.Body.Name,
	})
	if err != nil {
		return nil, err
	}
	return s.nodeOutput(node), nil
}

func (s *Server) handleRenameNode(ctx context.Context, input *RenameNodeInput) (*NodeOutput, error) {
	node, err := s.library.RenameNode(ctx, input.ID, service.RenameNodeRequest{Name: input.Body.Name})
	if err != nil {
		return nil, err
	}
	return s.nodeOutput(node), nil
}

func (s *Server) handleRemoveNode(ctx context.Context, input *NodeIDInput) (*struct{}, error) {
	if err := s.library.RemoveNode(ctx, input.ID); err != nil {
		return nil, err
	}
	return nil, nil
}

func (s *Server) handleMoveNode(ctx context.Context, input *MoveNodeInput) (*NodeOutput, error) {
	node, err := s.library.MoveNode(ctx, input.ID, input.Body.TargetID)
	if err != nil {
		return nil, err
	}
	return s.nodeOutput(node), nil
}

func (s *Server) handleGetFolderTracks(_ context.Context, input *NodeIDInput) (*FolderTracksOutput, error) {
	view, err := s.library.FolderTracks(input.ID)
	if err != nil {
		return nil, err
	}
	return &FolderTracksOutput{Body: FolderTracksResponse{
		Name:   view.Name,
		Tracks: mapTrackResponses(view.Tracks, s.library.ColorTags()),
	}}, nil
}

func (s *Server) handleAddPlaylistTracks(ctx context.Context, input *PlaylistTracksInput) (*NodeOutput, error) {
	node, err := s.library.AddTracksToPlaylist(ctx, input.ID, service.PlaylistTracksRequest{TrackIDs: input.Body.TrackIDs})
	if err != nil {
		return nil, err
	}
	return s.nodeOutput(node), nil
}

func (s *Server) handleRemovePlaylistTracks(ctx context.Context, input *PlaylistTracksInput) (*NodeOutput, error) {
	node, err := s.library.RemoveTracksFromPlaylist(ctx, input.ID, service.PlaylistTracksRequest{TrackIDs: input.Body.TrackIDs})
	if err != nil {
		return nil, err
	}
	return s.nodeOutput(node), nil
}

// nodeOutput maps a node at its current tree position.
func (s *Server) nodeOutput(node domain.Node) *NodeOutput {
	path, _ := s.library.Path(node.ID)
	return &NodeOutput{Body: mapNodeResponse(&node, path)}
}
