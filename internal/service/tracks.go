package service

import (
	"context"
	"log/slog"

	"github.com/crateapp/crate-server/internal/domain"
	"github.com/crateapp/crate-server/internal/errors"
	"github.com/crateapp/crate-server/internal/search"
	"github.com/crateapp/crate-server/internal/sse"
	"github.com/crateapp/crate-server/internal/tracks"
	"github.com/crateapp/crate-server/internal/tracksort"
)

// Track returns a copy of one track.
func (s *LibraryService) Track(trackID int64) (*domain.Track, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	t, ok := s.tracks.Get(trackID)
	if !ok {
		return nil, errors.NotFoundf("track %d not found", trackID)
	}
	return t, nil
}

// Tracks returns copies of every track in ascending id order.
func (s *LibraryService) Tracks() []*domain.Track {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.tracks.All()
}

// ListTracksRequest selects the column order of the track table. An empty
// Sort or a zero Direction keeps id order.
type ListTracksRequest struct {
	Sort      string `json:"sort" validate:"omitempty,sortcolumn"`
	Direction int    `json:"direction" validate:"oneof=-1 0 1"`
	// NodeID limits the list to the tracks under a folder or playlist.
	NodeID string `json:"node_id"`
}

// SortedTracks returns tracks ordered by a column of the track table. Ties
// keep their previous relative order.
func (s *LibraryService) SortedTracks(req ListTracksRequest) ([]*domain.Track, error) {
	if err := s.validator.Validate(req); err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	list := s.tracks.All()
	if req.NodeID != "" {
		_, trackIDs, err := s.tree.FolderTrackIDs(req.NodeID)
		if err != nil {
			return nil, err
		}
		list = s.tracks.Lookup(trackIDs)
	}
	if req.Sort == "" {
		return list, nil
	}
	return tracksort.Sort(list, tracksort.Column(req.Sort), tracksort.Direction(req.Direction), s.tags), nil
}

// Search runs the relevance search over track names and artists. Queries
// shorter than two characters return nothing; at most 100 tracks are
// returned, word-boundary matches first.
func (s *LibraryService) Search(query string) []*domain.Track {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.tracks.Lookup(search.Rank(query, s.tracks))
}

// FullTextSearch queries the full-text track index.
func (s *LibraryService) FullTextSearch(ctx context.Context, query string, limit int) ([]search.Hit, error) {
	if limit < 0 || limit > search.MaxResults {
		return nil, errors.Validationf("limit must be between 0 and %d", search.MaxResults)
	}
	hits, err := s.index.Query(ctx, query, limit)
	if err != nil {
		return nil, errors.Wrap(err, errors.CodeInternal, "full-text search")
	}
	return hits, nil
}

// AddTrackRequest contains fields for a new track. The id is assigned.
type AddTrackRequest struct {
	Name      string   `json:"name" validate:"required,max=1000"`
	Artist    string   `json:"artist" validate:"max=1000"`
	TotalTime int64    `json:"total_time" validate:"gte=0"`
	BPM       int      `json:"bpm" validate:"gte=0,lte=999"`
	Tags      []string `json:"tags" validate:"max=100"`
	Comments  string   `json:"comments"`
	TrackType string   `json:"track_type"`
	Location  string   `json:"location"`
}

// AddTrack stores a new track under the next free id.
func (s *LibraryService) AddTrack(ctx context.Context, req AddTrackRequest) (*domain.Track, error) {
	if err := s.validator.Validate(req); err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	t := s.tracks.Add(&domain.Track{
		Name:      req.Name,
		Artist:    req.Artist,
		TotalTime: req.TotalTime,
		BPM:       req.BPM,
		Tags:      req.Tags,
		Comments:  req.Comments,
		TrackType: req.TrackType,
		Location:  req.Location,
	})
	s.indexLocked(ctx, t)

	s.persistLocked(ctx)
	s.emitter.Emit(sse.NewTracksChangedEvent(sse.TracksChangedEventData{Added: []int64{t.TrackID}}))

	s.logger.DebugContext(ctx, "track added", slog.Int64("id", t.TrackID))
	return t, nil
}

// UpdateTrack edits track metadata in place. An empty patch changes nothing.
func (s *LibraryService) UpdateTrack(ctx context.Context, trackID int64, patch tracks.TrackPatch) (*domain.Track, error) {
	if err := s.validator.Validate(patch); err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	t, err := s.tracks.Update(trackID, patch)
	if err != nil {
		return nil, err
	}
	if patch.IsEmpty() {
		return t, nil
	}
	s.indexLocked(ctx, t)

	s.persistLocked(ctx)
	s.emitter.Emit(sse.NewTracksChangedEvent(sse.TracksChangedEventData{Updated: []int64{trackID}}))

	s.logger.DebugContext(ctx, "track updated", slog.Int64("id", trackID))
	return t, nil
}

// DeleteTracksRequest lists tracks to delete.
type DeleteTracksRequest struct {
	TrackIDs []int64 `json:"track_ids" validate:"required,min=1"`
}

// DeleteTracks removes tracks from the collection and returns how many
// existed. Playlists keep the dangling ids; color tags are dropped.
func (s *LibraryService) DeleteTracks(ctx context.Context, req DeleteTracksRequest) (int, error) {
	if err := s.validator.Validate(req); err != nil {
		return 0, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	removed := s.tracks.Delete(req.TrackIDs)
	if removed == 0 {
		return 0, nil
	}

	tagsChanged := false
	for _, trackID := range req.TrackIDs {
		// Clearing never fails.
		cleared, _ := s.tags.Set(trackID, "")
		tagsChanged = tagsChanged || cleared
	}
	if err := s.index.DeleteTracks(req.TrackIDs); err != nil {
		s.logger.WarnContext(ctx, "delete tracks from index", slog.String("error", err.Error()))
	}

	s.persistLocked(ctx)
	if tagsChanged {
		s.persistTagsLocked(ctx)
	}
	s.emitter.Emit(sse.NewTracksChangedEvent(sse.TracksChangedEventData{Deleted: req.TrackIDs}))

	s.logger.DebugContext(ctx, "tracks deleted", slog.Int("count", removed))
	return removed, nil
}

// SetColorTagRequest sets or clears a track's color tag.
type SetColorTagRequest struct {
	// Color is a color cycle entry; empty clears the tag.
	Color string `json:"color" validate:"colortag"`
}

// SetColorTag labels a track with a color. The track must exist.
func (s *LibraryService) SetColorTag(ctx context.Context, trackID int64, req SetColorTagRequest) error {
	if err := s.validator.Validate(req); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.tracks.Has(trackID) {
		return errors.NotFoundf("track %d not found", trackID)
	}
	changed, err := s.tags.Set(trackID, req.Color)
	if err != nil {
		return err
	}
	if !changed {
		return nil
	}

	s.persistTagsLocked(ctx)
	s.emitter.Emit(sse.NewTrackTaggedEvent(trackID, req.Color))
	return nil
}

// ColorTags returns every track's color tag.
func (s *LibraryService) ColorTags() map[int64]string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.tags.All()
}

func (s *LibraryService) indexLocked(ctx context.Context, t *domain.Track) {
	if err := s.index.IndexTracks([]*domain.Track{t}); err != nil {
		s.logger.WarnContext(ctx, "index track", slog.Int64("id", t.TrackID), slog.String("error", err.Error()))
	}
}
