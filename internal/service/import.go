package service

import (
	"context"
	"log/slog"
	"time"

	"github.com/crateapp/crate-server/internal/domain"
	"github.com/crateapp/crate-server/internal/enrich"
	"github.com/crateapp/crate-server/internal/errors"
	"github.com/crateapp/crate-server/internal/hierarchy"
	"github.com/crateapp/crate-server/internal/sse"
	"github.com/crateapp/crate-server/internal/tracks"
)

// ImportRequest is a whole library in flat form: tracks keyed by their own
// ids and a parent-before-child list of tree items.
type ImportRequest struct {
	Tracks []*domain.Track      `json:"tracks"`
	Items  []hierarchy.FlatItem `json:"items"`
}

// ImportResult reports what an import kept.
type ImportResult struct {
	Tracks int `json:"tracks"`
	Nodes  int `json:"nodes"`
	// Skipped holds one message per record that could not be imported.
	Skipped []string `json:"skipped"`
	// Rooted lists items whose parent was missing, late or a playlist.
	Rooted []string `json:"rooted"`
}

// Import replaces the library wholesale. Malformed records are skipped and
// reported; the rest is imported. Color tags of tracks that no longer exist
// are dropped.
func (s *LibraryService) Import(ctx context.Context, req ImportRequest) (*ImportResult, error) {
	start := time.Now()
	result := &ImportResult{Skipped: []string{}, Rooted: []string{}}

	collection := tracks.New()
	for _, t := range req.Tracks {
		switch {
		case t == nil:
			result.Skipped = append(result.Skipped, errors.ImportMalformedf("null track record").Error())
		case t.TrackID <= 0:
			result.Skipped = append(result.Skipped,
				errors.ImportMalformedf("track %q has no positive id", t.Name).Error())
		case collection.Has(t.TrackID):
			result.Skipped = append(result.Skipped,
				errors.ImportMalformedf("duplicate track id %d", t.TrackID).Error())
		default:
			collection.Put(t)
		}
	}

	roots, _, report := hierarchy.BuildFromFlat(req.Items)
	for _, err := range report.Skipped {
		result.Skipped = append(result.Skipped, err.Error())
	}
	result.Rooted = append(result.Rooted, report.Rooted...)

	s.mu.Lock()
	defer s.mu.Unlock()

	s.tree = hierarchy.NewStore(roots, s.storeOpts...)
	s.tracks = collection
	tagsChanged := false
	for trackID := range s.tags.All() {
		if !collection.Has(trackID) {
			// Clearing never fails.
			_, _ = s.tags.Set(trackID, "")
			tagsChanged = true
		}
	}
	s.reindexAllLocked(ctx)

	result.Tracks = s.tracks.Len()
	result.Nodes = s.tree.Len()

	s.persistLocked(ctx)
	if tagsChanged {
		s.persistTagsLocked(ctx)
	}
	s.emitter.Emit(sse.NewLibraryImportedEvent(result.Tracks, result.Nodes, len(result.Skipped)))

	s.logger.InfoContext(ctx, "library imported",
		slog.Int("tracks", result.Tracks),
		slog.Int("nodes", result.Nodes),
		slog.Int("skipped", len(result.Skipped)),
		slog.Int("rooted", len(result.Rooted)),
		slog.Duration("duration", time.Since(start)))
	return result, nil
}

// EnrichRequest selects the tracks to enrich. No ids means every track.
type EnrichRequest struct {
	TrackIDs []int64 `json:"track_ids"`
}

// EnrichResult reports an enrichment run.
type EnrichResult struct {
	Updated []int64 `json:"updated"`
	// Missing counts tracks no source knew about.
	Missing int `json:"missing"`
	// Failed counts lookups that returned an error.
	Failed int `json:"failed"`
}

// Enrich fills unset track metadata from the configured enrichment source.
// Fields already set are never overwritten. Lookups run without holding
// the library lock; a track edited meanwhile is enriched on its new state.
func (s *LibraryService) Enrich(ctx context.Context, req EnrichRequest) (*EnrichResult, error) {
	if s.enricher == nil {
		return nil, errors.Validation("no enrichment source configured")
	}

	s.mu.Lock()
	candidates := s.tracks.All()
	if len(req.TrackIDs) > 0 {
		candidates = s.tracks.Lookup(req.TrackIDs)
	}
	s.mu.Unlock()

	result := &EnrichResult{Updated: []int64{}}
	records := make(map[int64]enrich.Record)
	for _, t := range candidates {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		path := enrich.LocalPath(t.Location)
		if path == "" {
			result.Missing++
			continue
		}
		rec, ok, err := s.enricher.Lookup(ctx, path)
		if err != nil {
			result.Failed++
			s.logger.WarnContext(ctx, "enrichment lookup failed",
				slog.Int64("track_id", t.TrackID),
				slog.String("path", path),
				slog.String("error", err.Error()))
			continue
		}
		if !ok {
			result.Missing++
			continue
		}
		records[t.TrackID] = rec
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	changed := make([]*domain.Track, 0, len(records))
	for _, candidate := range candidates {
		rec, ok := records[candidate.TrackID]
		if !ok {
			continue
		}
		t, exists := s.tracks.Get(candidate.TrackID)
		if !exists || !enrich.Apply(t, rec) {
			continue
		}
		s.tracks.Put(t)
		stored, _ := s.tracks.Get(t.TrackID)
		changed = append(changed, stored)
		result.Updated = append(result.Updated, t.TrackID)
	}
	if len(changed) == 0 {
		return result, nil
	}

	if err := s.index.IndexTracks(changed); err != nil {
		s.logger.WarnContext(ctx, "index enriched tracks", slog.String("error", err.Error()))
	}
	s.persistLocked(ctx)
	s.emitter.Emit(sse.NewTracksChangedEvent(sse.TracksChangedEventData{Updated: result.Updated}))

	s.logger.InfoContext(ctx, "tracks enriched",
		slog.Int("updated", len(result.Updated)),
		slog.Int("missing", result.Missing),
		slog.Int("failed", result.Failed))
	return result, nil
}
