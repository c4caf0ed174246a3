package search

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"sync"

	"github.com/blevesearch/bleve/v2"

	"github.com/crateapp/crate-server/internal/domain"
)

// TrackIndex wraps a Bleve index of tracks.
//
// All methods are safe for concurrent use. Rebuild takes the write lock and
// blocks queries until it finishes.
type TrackIndex struct {
	index  bleve.Index
	path   string // empty for an in-memory index
	logger *slog.Logger
	mu     sync.RWMutex
}

// Options configures the track index.
type Options struct {
	DataPath string       // Directory for index storage; empty keeps the index in memory
	Logger   *slog.Logger // Uses discard if nil
}

// mappingVersion is bumped whenever buildIndexMapping changes. An on-disk
// index with another version is dropped and recreated on open.
const mappingVersion = "1"

const batchSize = 500

// NewTrackIndex opens the index under opts.DataPath, creating it when absent,
// outdated or unreadable.
func NewTrackIndex(opts Options) (*TrackIndex, error) {
	logger := opts.Logger
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}

	if opts.DataPath == "" {
		index, err := bleve.NewMemOnly(buildIndexMapping())
		if err != nil {
			return nil, fmt.Errorf("create in-memory index: %w", err)
		}
		return &TrackIndex{index: index, logger: logger}, nil
	}

	if err := os.MkdirAll(opts.DataPath, 0o755); err != nil {
		return nil, fmt.Errorf("create index directory: %w", err)
	}

	indexPath := filepath.Join(opts.DataPath, "tracks.bleve")
	versionPath := filepath.Join(opts.DataPath, "tracks.version")

	var index bleve.Index
	needsRebuild := false

	if _, statErr := os.Stat(indexPath); statErr == nil {
		existingVersion, readErr := os.ReadFile(versionPath)
		switch {
		case readErr != nil:
			logger.Info("track index has no version file, will rebuild", "new_version", mappingVersion)
			needsRebuild = true
		case string(existingVersion) != mappingVersion:
			logger.Info("track index mapping version changed, will rebuild",
				"old_version", string(existingVersion),
				"new_version", mappingVersion,
			)
			needsRebuild = true
		default:
			var err error
			index, err = bleve.Open(indexPath)
			if err != nil {
				logger.Warn("failed to open existing index, will recreate", "path", indexPath, "error", err)
				needsRebuild = true
			}
		}
	}

	if needsRebuild {
		if err := os.RemoveAll(indexPath); err != nil {
			return nil, fmt.Errorf("remove old index: %w", err)
		}
		index = nil
	}

	if index == nil {
		var err error
		index, err = bleve.New(indexPath, buildIndexMapping())
		if err != nil {
			return nil, fmt.Errorf("create index: %w", err)
		}
		if err := os.WriteFile(versionPath, []byte(mappingVersion), 0o644); err != nil {
			logger.Warn("failed to write index version file", "error", err)
		}
		logger.Info("created new track index", "path", indexPath, "mapping_version", mappingVersion)
	} else {
		logger.Info("opened existing track index", "path", indexPath)
	}

	return &TrackIndex{index: index, path: indexPath, logger: logger}, nil
}

// Close releases the index.
func (x *TrackIndex) Close() error {
	x.mu.Lock()
	defer x.mu.Unlock()
	return x.index.Close()
}

// IndexTracks adds or replaces tracks, committing in batches.
func (x *TrackIndex) IndexTracks(tracks []*domain.Track) error {
	x.mu.RLock()
	defer x.mu.RUnlock()
	return x.indexLocked(tracks)
}

func (x *TrackIndex) indexLocked(tracks []*domain.Track) error {
	for i := 0; i < len(tracks); i += batchSize {
		end := min(i+batchSize, len(tracks))

		batch := x.index.NewBatch()
		for _, t := range tracks[i:end] {
			doc := newTrackDocument(t)
			if err := batch.Index(doc.ID, doc.toMap()); err != nil {
				return fmt.Errorf("batch index %s: %w", doc.ID, err)
			}
		}
		if err := x.index.Batch(batch); err != nil {
			return fmt.Errorf("commit batch %d-%d: %w", i, end, err)
		}
	}
	return nil
}

// DeleteTracks removes tracks by id. Unknown ids are ignored.
func (x *TrackIndex) DeleteTracks(trackIDs []int64) error {
	x.mu.RLock()
	defer x.mu.RUnlock()

	batch := x.index.NewBatch()
	for _, trackID := range trackIDs {
		batch.Delete(domain.TrackKey(trackID))
	}
	return x.index.Batch(batch)
}

// Count returns the number of indexed tracks.
func (x *TrackIndex) Count() (uint64, error) {
	x.mu.RLock()
	defer x.mu.RUnlock()
	return x.index.DocCount()
}

// Rebuild drops every document and indexes tracks from scratch.
func (x *TrackIndex) Rebuild(tracks []*domain.Track) error {
	x.mu.Lock()
	defer x.mu.Unlock()

	if err := x.index.Close(); err != nil {
		return fmt.Errorf("close index: %w", err)
	}

	var (
		index bleve.Index
		err   error
	)
	if x.path == "" {
		index, err = bleve.NewMemOnly(buildIndexMapping())
	} else {
		if err := os.RemoveAll(x.path); err != nil {
			return fmt.Errorf("remove index: %w", err)
		}
		index, err = bleve.New(x.path, buildIndexMapping())
	}
	if err != nil {
		return fmt.Errorf("create index: %w", err)
	}
	x.index = index

	if err := x.indexLocked(tracks); err != nil {
		return err
	}
	x.logger.Info("rebuilt track index", "path", x.path, "tracks", len(tracks))
	return nil
}
