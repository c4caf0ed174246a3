package service

import (
	"context"
	"log/slog"
	"slices"
	"time"

	"github.com/crateapp/crate-server/internal/domain"
	"github.com/crateapp/crate-server/internal/sse"
)

// Node returns a copy of a folder or playlist.
func (s *LibraryService) Node(nodeID string) (domain.Node, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.tree.Node(nodeID)
}

// Path returns the current tree position of a node.
func (s *LibraryService) Path(nodeID string) (domain.Path, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.tree.Path(nodeID)
}

// CreateNodeRequest contains fields for creating a folder or playlist.
type CreateNodeRequest struct {
	// ParentID is the containing folder. Empty creates at root level.
	ParentID string `json:"parent_id" validate:"max=64"`
	Kind     string `json:"kind" validate:"required,nodekind"`
	Name     string `json:"name" validate:"required,max=500"`
}

// CreateNode creates an empty folder or playlist.
func (s *LibraryService) CreateNode(ctx context.Context, req CreateNodeRequest) (domain.Node, error) {
	if err := s.validator.Validate(req); err != nil {
		return domain.Node{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	start := time.Now()
	nodeID, err := s.tree.Create(req.ParentID, domain.NodeKind(req.Kind), req.Name)
	if err != nil {
		return domain.Node{}, err
	}
	node, err := s.tree.Node(nodeID)
	if err != nil {
		return domain.Node{}, err
	}

	s.persistLocked(ctx)
	s.emitter.Emit(sse.NewNodeCreatedEvent(node))

	s.logger.DebugContext(ctx, "node created",
		slog.String("id", nodeID),
		slog.String("kind", req.Kind),
		slog.String("parent", req.ParentID),
		slog.Duration("duration", time.Since(start)))
	return node, nil
}

// RenameNodeRequest contains the new display name of a node.
type RenameNodeRequest struct {
	Name string `json:"name" validate:"required,max=500"`
}

// RenameNode changes a node's display name and returns the updated node.
// The name is not re-sorted among its siblings.
func (s *LibraryService) RenameNode(ctx context.Context, nodeID string, req RenameNodeRequest) (domain.Node, error) {
	if err := s.validator.Validate(req); err != nil {
		return domain.Node{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	node, err := s.tree.Rename(nodeID, req.Name)
	if err != nil {
		return domain.Node{}, err
	}

	s.persistLocked(ctx)
	s.emitter.Emit(sse.NewNodeRenamedEvent(node.ID, node.Name))

	s.logger.DebugContext(ctx, "node renamed", slog.String("id", nodeID), slog.String("name", req.Name))
	return node, nil
}

// RemoveNode deletes a node and its whole subtree. Tracks are untouched.
func (s *LibraryService) RemoveNode(ctx context.Context, nodeID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.tree.Remove(nodeID); err != nil {
		return err
	}

	s.persistLocked(ctx)
	s.emitter.Emit(sse.NewNodeRemovedEvent(nodeID))

	s.logger.DebugContext(ctx, "node removed", slog.String("id", nodeID))
	return nil
}

// MoveNode moves a node into a folder, or to root level when targetFolderID
// is empty. Moving a root node to root level changes nothing and is not
// persisted.
func (s *LibraryService) MoveNode(ctx context.Context, nodeID, targetFolderID string) (domain.Node, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	start := time.Now()
	if targetFolderID == "" {
		moved, err := s.tree.MoveToRoot(nodeID)
		if err != nil {
			return domain.Node{}, err
		}
		if !moved {
			return s.tree.Node(nodeID)
		}
	} else if err := s.tree.Move(nodeID, targetFolderID); err != nil {
		return domain.Node{}, err
	}

	node, err := s.tree.Node(nodeID)
	if err != nil {
		return domain.Node{}, err
	}

	s.persistLocked(ctx)
	s.emitter.Emit(sse.NewNodeMovedEvent(nodeID, node.ParentID))

	s.logger.DebugContext(ctx, "node moved",
		slog.String("id", nodeID),
		slog.String("target", targetFolderID),
		slog.Duration("duration", time.Since(start)))
	return node, nil
}

// PlaylistTracksRequest lists the track ids to add to or remove from a playlist.
type PlaylistTracksRequest struct {
	TrackIDs []int64 `json:"track_ids" validate:"required,min=1,max=10000"`
}

// AddTracksToPlaylist appends tracks a playlist does not hold yet. Track ids
// are not checked against the collection. On a folder it does nothing.
func (s *LibraryService) AddTracksToPlaylist(ctx context.Context, playlistID string, req PlaylistTracksRequest) (domain.Node, error) {
	return s.editPlaylist(ctx, playlistID, req, s.tree.AddTracksToPlaylist)
}

// RemoveTracksFromPlaylist drops tracks from a playlist. On a folder it does
// nothing.
func (s *LibraryService) RemoveTracksFromPlaylist(ctx context.Context, playlistID string, req PlaylistTracksRequest) (domain.Node, error) {
	return s.editPlaylist(ctx, playlistID, req, s.tree.RemoveTracksFromPlaylist)
}

func (s *LibraryService) editPlaylist(
	ctx context.Context,
	playlistID string,
	req PlaylistTracksRequest,
	edit func(string, []int64) (bool, error),
) (domain.Node, error) {
	if err := s.validator.Validate(req); err != nil {
		return domain.Node{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	before, err := s.tree.Node(playlistID)
	if err != nil {
		return domain.Node{}, err
	}
	applied, err := edit(playlistID, req.TrackIDs)
	if err != nil {
		return domain.Node{}, err
	}
	node, err := s.tree.Node(playlistID)
	if err != nil {
		return domain.Node{}, err
	}
	if !applied || slices.Equal(before.TrackIDs, node.TrackIDs) {
		return node, nil
	}

	s.persistLocked(ctx)
	s.emitter.Emit(sse.NewPlaylistTracksChangedEvent(playlistID, len(node.TrackIDs)))

	s.logger.DebugContext(ctx, "playlist tracks changed",
		slog.String("id", playlistID),
		slog.Int("track_count", len(node.TrackIDs)))
	return node, nil
}

// FolderView is the track list shown for a selected node.
type FolderView struct {
	Name   string          `json:"name"`
	Tracks []*domain.Track `json:"tracks"`
}

// FolderTracks returns the tracks of every playlist under a node in tree
// order. Ids with no track in the collection are skipped.
func (s *LibraryService) FolderTracks(nodeID string) (FolderView, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	name, trackIDs, err := s.tree.FolderTrackIDs(nodeID)
	if err != nil {
		return FolderView{}, err
	}
	return FolderView{Name: name, Tracks: s.tracks.Lookup(trackIDs)}, nil
}
