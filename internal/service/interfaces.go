package service

import (
	"context"

	"github.com/crateapp/crate-server/internal/domain"
	"github.com/crateapp/crate-server/internal/search"
	"github.com/crateapp/crate-server/internal/sse"
)

// EventEmitter is the interface for emitting change events.
type EventEmitter interface {
	Emit(event sse.Event)
}

// NoopEmitter is a no-op implementation of EventEmitter for testing and the CLI.
type NoopEmitter struct{}

// Emit implements EventEmitter.
func (NoopEmitter) Emit(_ sse.Event) {}

// SearchIndexer is the interface for keeping the full-text index in step
// with the track collection.
type SearchIndexer interface {
	IndexTracks(tracks []*domain.Track) error
	DeleteTracks(trackIDs []int64) error
	Rebuild(tracks []*domain.Track) error
	Query(ctx context.Context, text string, limit int) ([]search.Hit, error)
}

// NoopSearchIndexer is a no-op implementation of SearchIndexer. Full-text
// queries against it return no hits.
type NoopSearchIndexer struct{}

func (NoopSearchIndexer) IndexTracks(_ []*domain.Track) error { return nil }
func (NoopSearchIndexer) DeleteTracks(_ []int64) error        { return nil }
func (NoopSearchIndexer) Rebuild(_ []*domain.Track) error     { return nil }
func (NoopSearchIndexer) Query(_ context.Context, _ string, _ int) ([]search.Hit, error) {
	return []search.Hit{}, nil
}

var (
	_ EventEmitter  = (*sse.Manager)(nil)
	_ SearchIndexer = (*search.TrackIndex)(nil)
)
