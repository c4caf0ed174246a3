// Package sse implements Server-Sent Events for real-time library change
// notifications.
package sse

import (
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/crateapp/crate-server/internal/domain"
)

// EventType represents the type of SSE Event.
type EventType string

const (
	// EventNodeCreated is sent after a folder or playlist is created.
	EventNodeCreated EventType = "node.created"
	// EventNodeRenamed is sent after a node's display name changes.
	EventNodeRenamed EventType = "node.renamed"
	// EventNodeMoved is sent after a node moves to another folder or to root level.
	EventNodeMoved EventType = "node.moved"
	// EventNodeRemoved is sent after a node and its subtree are removed.
	EventNodeRemoved EventType = "node.removed"
	// EventPlaylistTracksChanged is sent after tracks are added to or removed from a playlist.
	EventPlaylistTracksChanged EventType = "playlist.tracks_changed"

	// EventTracksChanged is sent after tracks are added, edited or deleted.
	EventTracksChanged EventType = "tracks.changed"
	// EventTrackTagged is sent after a track's color tag changes.
	EventTrackTagged EventType = "track.tagged"

	// EventLibraryImported is sent after the library is replaced wholesale.
	EventLibraryImported EventType = "library.imported"
	// EventPersistenceFailed is sent when a background save fails. The
	// in-memory library keeps the change.
	EventPersistenceFailed EventType = "persistence.failed"

	// EventHeartbeat represents a connection keepalive event.
	EventHeartbeat EventType = "heartbeat"
)

// Subscribable lists the event types a client may subscribe to.
var Subscribable = []EventType{
	EventNodeCreated,
	EventNodeRenamed,
	EventNodeMoved,
	EventNodeRemoved,
	EventPlaylistTracksChanged,
	EventTracksChanged,
	EventTrackTagged,
	EventLibraryImported,
	EventPersistenceFailed,
}

// ParseEventTypes parses a comma-separated subscription such as
// "node.renamed,node.moved". An empty list subscribes to everything.
func ParseEventTypes(list string) ([]EventType, error) {
	var types []EventType
	for part := range strings.SplitSeq(list, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		t := EventType(part)
		if !slices.Contains(Subscribable, t) {
			return nil, fmt.Errorf("unknown event type %q", part)
		}
		types = append(types, t)
	}
	return types, nil
}

// Event represents an SSE event to be sent to clients.
type Event struct {
	ID        string    `json:"id"`
	Timestamp time.Time `json:"timestamp"`
	Data      any       `json:"data"`
	Type      EventType `json:"type"`
}

func newEvent(t EventType, data any) Event {
	return Event{
		ID:        uuid.NewString(),
		Type:      t,
		Data:      data,
		Timestamp: time.Now(),
	}
}

// NodeEventData is the payload of node.created and node.moved events.
type NodeEventData struct {
	ID       string          `json:"id"`
	ParentID string          `json:"parentId"`
	Kind     domain.NodeKind `json:"kind,omitempty"`
	Name     string          `json:"name,omitempty"`
}

// NodeRenamedEventData is the payload of node.renamed events.
type NodeRenamedEventData struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// NodeRemovedEventData is the payload of node.removed events.
type NodeRemovedEventData struct {
	ID string `json:"id"`
}

// PlaylistTracksEventData is the payload of playlist.tracks_changed events.
type PlaylistTracksEventData struct {
	ID         string `json:"id"`
	TrackCount int    `json:"trackCount"`
}

// TracksChangedEventData is the payload of tracks.changed events.
type TracksChangedEventData struct {
	Added   []int64 `json:"added,omitempty"`
	Updated []int64 `json:"updated,omitempty"`
	Deleted []int64 `json:"deleted,omitempty"`
}

// TrackTaggedEventData is the payload of track.tagged events.
type TrackTaggedEventData struct {
	TrackID int64  `json:"trackId"`
	Color   string `json:"color"`
}

// LibraryImportedEventData is the payload of library.imported events.
type LibraryImportedEventData struct {
	Tracks  int `json:"tracks"`
	Nodes   int `json:"nodes"`
	Skipped int `json:"skipped"`
}

// PersistenceFailedEventData is the payload of persistence.failed events.
type PersistenceFailedEventData struct {
	Error string `json:"error"`
}

// HeartbeatEventData is the data payload for heartbeat events.
type HeartbeatEventData struct {
	ServerTime time.Time `json:"server_time"`
}

// NewNodeCreatedEvent creates a node.created event.
func NewNodeCreatedEvent(node domain.Node) Event {
	return newEvent(EventNodeCreated, NodeEventData{
		ID:       node.ID,
		ParentID: node.ParentID,
		Kind:     node.Kind,
		Name:     node.Name,
	})
}

// NewNodeRenamedEvent creates a node.renamed event.
func NewNodeRenamedEvent(nodeID, name string) Event {
	return newEvent(EventNodeRenamed, NodeRenamedEventData{ID: nodeID, Name: name})
}

// NewNodeMovedEvent creates a node.moved event. An empty parentID means root level.
func NewNodeMovedEvent(nodeID, parentID string) Event {
	return newEvent(EventNodeMoved, NodeEventData{ID: nodeID, ParentID: parentID})
}

// NewNodeRemovedEvent creates a node.removed event.
func NewNodeRemovedEvent(nodeID string) Event {
	return newEvent(EventNodeRemoved, NodeRemovedEventData{ID: nodeID})
}

// NewPlaylistTracksChangedEvent creates a playlist.tracks_changed event.
func NewPlaylistTracksChangedEvent(playlistID string, trackCount int) Event {
	return newEvent(EventPlaylistTracksChanged, PlaylistTracksEventData{ID: playlistID, TrackCount: trackCount})
}

// NewTracksChangedEvent creates a tracks.changed event.
func NewTracksChangedEvent(data TracksChangedEventData) Event {
	return newEvent(EventTracksChanged, data)
}

// NewTrackTaggedEvent creates a track.tagged event.
func NewTrackTaggedEvent(trackID int64, color string) Event {
	return newEvent(EventTrackTagged, TrackTaggedEventData{TrackID: trackID, Color: color})
}

// NewLibraryImportedEvent creates a library.imported event.
func NewLibraryImportedEvent(tracks, nodes, skipped int) Event {
	return newEvent(EventLibraryImported, LibraryImportedEventData{Tracks: tracks, Nodes: nodes, Skipped: skipped})
}

// NewPersistenceFailedEvent creates a persistence.failed event.
func NewPersistenceFailedEvent(err error) Event {
	return newEvent(EventPersistenceFailed, PersistenceFailedEventData{Error: err.Error()})
}

// NewHeartbeatEvent creates a heartbeat event.
func NewHeartbeatEvent() Event {
	return newEvent(EventHeartbeat, HeartbeatEventData{ServerTime: time.Now()})
}
