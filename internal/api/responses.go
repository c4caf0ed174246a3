package api

import (
	"time"

	"github.com/crateapp/crate-server/internal/domain"
)

// MessageResponse is a plain acknowledgement.
type MessageResponse struct {
	Message string `json:"message" doc:"What happened"`
}

// MessageOutput wraps MessageResponse for Huma.
type MessageOutput struct {
	Body MessageResponse
}

// NodeResponse is a folder or playlist with its subtree.
type NodeResponse struct {
	ID          string         `json:"id" doc:"Node ID"`
	Kind        string         `json:"kind" enum:"folder,playlist" doc:"Node kind"`
	Name        string         `json:"name" doc:"Display name"`
	ParentID    string         `json:"parent_id,omitempty" doc:"Containing folder, empty at root level"`
	Path        []int          `json:"path" doc:"Child positions from the root sequence down to this node"`
	Children    []NodeResponse `json:"children,omitempty" doc:"Child nodes in name order (folders only)"`
	TrackIDs    []int64        `json:"track_ids,omitempty" doc:"Ordered track IDs (playlists only)"`
	Description string         `json:"description,omitempty" doc:"Free-form description"`
	Smart       bool           `json:"smart,omitempty" doc:"Imported as a smart playlist"`
}

// NodeOutput wraps NodeResponse for Huma.
type NodeOutput struct {
	Body NodeResponse
}

// TrackResponse is one track of the collection.
type TrackResponse struct {
	ID           int64     `json:"id" doc:"Track ID"`
	Name         string    `json:"name" doc:"Title"`
	Artist       string    `json:"artist,omitempty" doc:"Artist"`
	TotalTime    int64     `json:"total_time,omitempty" doc:"Duration in milliseconds"`
	BPM          int       `json:"bpm,omitempty" doc:"Beats per minute, 0 when unknown"`
	Tags         []string  `json:"tags,omitempty" doc:"Free-form tags"`
	Comments     string    `json:"comments,omitempty" doc:"Comments"`
	TrackType    string    `json:"track_type,omitempty" doc:"Source kind, e.g. File or Remote"`
	Location     string    `json:"location,omitempty" doc:"File location"`
	PersistentID string    `json:"persistent_id,omitempty" doc:"ID in the originating library"`
	DateAdded    time.Time `json:"date_added,omitzero" doc:"When the track entered the library"`
	DateModified time.Time `json:"date_modified,omitzero" doc:"Last file modification"`
	ColorTag     string    `json:"color_tag,omitempty" doc:"Color tag, empty when untagged"`
}

// TracksResponse is a list of tracks.
type TracksResponse struct {
	Tracks []TrackResponse `json:"tracks" doc:"Tracks in result order"`
}

// TracksOutput wraps TracksResponse for Huma.
type TracksOutput struct {
	Body TracksResponse
}

// mapNodeResponse maps n and its subtree. Child paths extend path by the
// child position.
func mapNodeResponse(n *domain.Node, path domain.Path) NodeResponse {
	resp := NodeResponse{
		ID:          n.ID,
		Kind:        string(n.Kind),
		Name:        n.Name,
		ParentID:    n.ParentID,
		Path:        append([]int{}, path...),
		TrackIDs:    n.TrackIDs,
		Description: n.Description,
		Smart:       n.Smart,
	}
	if len(n.Children) > 0 {
		resp.Children = make([]NodeResponse, len(n.Children))
		for i, child := range n.Children {
			resp.Children[i] = mapNodeResponse(child, append(path[:len(path):len(path)], i))
		}
	}
	return resp
}

func mapRootResponses(roots []*domain.Node) []NodeResponse {
	resp := make([]NodeResponse, len(roots))
	for i, n := range roots {
		resp[i] = mapNodeResponse(n, domain.Path{i})
	}
	return resp
}

func mapTrackResponse(t *domain.Track, colors map[int64]string) TrackResponse {
	return TrackResponse{
		ID:           t.TrackID,
		Name:         t.Name,
		Artist:       t.Artist,
		TotalTime:    t.TotalTime,
		BPM:          t.BPM,
		Tags:         t.Tags,
		Comments:     t.Comments,
		TrackType:    t.TrackType,
		Location:     t.Location,
		PersistentID: t.PersistentID,
		DateAdded:    t.DateAdded,
		DateModified: t.DateModified,
		ColorTag:     colors[t.TrackID],
	}
}

func mapTrackResponses(list []*domain.Track, colors map[int64]string) []TrackResponse {
	resp := make([]TrackResponse, len(list))
	for i, t := range list {
		resp[i] = mapTrackResponse(t, colors)
	}
	return resp
}
