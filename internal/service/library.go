// Package service orchestrates the library engine: the folder/playlist tree,
// the track collection, color tags, search and persistence.
package service

import (
	"context"
	"io"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/text/language"

	"github.com/crateapp/crate-server/internal/colortag"
	"github.com/crateapp/crate-server/internal/domain"
	"github.com/crateapp/crate-server/internal/enrich"
	"github.com/crateapp/crate-server/internal/errors"
	"github.com/crateapp/crate-server/internal/hierarchy"
	"github.com/crateapp/crate-server/internal/sse"
	"github.com/crateapp/crate-server/internal/store"
	"github.com/crateapp/crate-server/internal/tracks"
	"github.com/crateapp/crate-server/internal/validation"
)

// Options configures a LibraryService. Only Gateway is required.
type Options struct {
	Gateway  store.Gateway
	Index    SearchIndexer
	Enricher enrich.Source
	Emitter  EventEmitter
	Logger   *slog.Logger

	// Collation orders sibling names. Defaults to English.
	Collation language.Tag
	// IDGenerator overrides node id generation (tests).
	IDGenerator func() (string, error)
	// WriteTimeout bounds a single background save.
	WriteTimeout time.Duration
}

// LibraryService is the single writer of the library. Every method is safe
// for concurrent use; mutations are serialized on one mutex.
//
// A successful mutation is applied in memory, queued for persistence and
// announced through the emitter, in that order. Mutations return before the
// write lands; call Sync to wait for it.
type LibraryService struct {
	mu        sync.Mutex
	tree      *hierarchy.Store
	tracks    *tracks.Collection
	tags      *colortag.Tags
	storeOpts []hierarchy.Option

	gateway   store.Gateway
	writer    *store.Writer
	index     SearchIndexer
	enricher  enrich.Source
	emitter   EventEmitter
	validator *validation.Validator
	logger    *slog.Logger
}

// NewLibraryService creates a service over an empty library. Call Load to
// restore persisted state.
func NewLibraryService(opts Options) *LibraryService {
	logger := opts.Logger
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	emitter := opts.Emitter
	if emitter == nil {
		emitter = NoopEmitter{}
	}
	index := opts.Index
	if index == nil {
		index = NoopSearchIndexer{}
	}
	collation := opts.Collation
	if collation == language.Und {
		collation = language.English
	}

	storeOpts := []hierarchy.Option{hierarchy.WithCollation(collation)}
	if opts.IDGenerator != nil {
		storeOpts = append(storeOpts, hierarchy.WithIDGenerator(opts.IDGenerator))
	}

	s := &LibraryService{
		tree:      hierarchy.NewStore(nil, storeOpts...),
		tracks:    tracks.New(),
		tags:      colortag.New(),
		storeOpts: storeOpts,
		gateway:   opts.Gateway,
		index:     index,
		enricher:  opts.Enricher,
		emitter:   emitter,
		validator: validation.New(),
		logger:    logger,
	}
	s.writer = store.NewWriter(opts.Gateway, store.WriterOptions{
		Logger:  logger,
		Timeout: opts.WriteTimeout,
		OnError: func(err error) {
			s.emitter.Emit(sse.NewPersistenceFailedEvent(err))
		},
	})
	return s
}

// Load replaces the in-memory library with the persisted documents and
// rebuilds the full-text index. It reports whether anything was stored.
func (s *LibraryService) Load(ctx context.Context) (bool, error) {
	result, err := s.gateway.Load(ctx)
	if err != nil {
		return false, err
	}

	collection, err := tracks.FromDocument(result.Tracks)
	if err != nil {
		return false, err
	}
	if err := hierarchy.CheckUniqueIDs(result.Hierarchy.Hierarchy); err != nil {
		s.logger.ErrorContext(ctx, "persisted hierarchy rejected", slog.String("error", err.Error()))
		return false, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	// The index is derived; the persisted one is ignored in favor of a fresh walk.
	s.tree = hierarchy.NewStore(result.Hierarchy.Hierarchy, s.storeOpts...)
	s.tracks = collection
	s.tags = colortag.FromDocument(result.ColorTags)
	s.reindexAllLocked(ctx)

	s.logger.InfoContext(ctx, "library loaded",
		slog.Bool("found", result.Found),
		slog.Int("tracks", s.tracks.Len()),
		slog.Int("nodes", s.tree.Len()),
		slog.Int("color_tags", s.tags.Len()))
	return result.Found, nil
}

// Snapshot returns a copy of the whole library.
func (s *LibraryService) Snapshot() *domain.Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snapshotLocked()
}

// Stats summarizes the library size.
type Stats struct {
	Tracks    int `json:"tracks"`
	Nodes     int `json:"nodes"`
	ColorTags int `json:"colorTags"`
}

// Stats returns the current library size.
func (s *LibraryService) Stats() Stats {
	s.mu.Lock()
	defer s.mu.Unlock()
	return Stats{Tracks: s.tracks.Len(), Nodes: s.tree.Len(), ColorTags: s.tags.Len()}
}

// Sync blocks until every change made so far is persisted and returns the
// first persistence failure since the previous Sync.
func (s *LibraryService) Sync(ctx context.Context) error {
	if err := s.writer.Flush(ctx); err != nil {
		if errors.Is(err, errors.ErrPersistenceFailure) || ctx.Err() != nil {
			return err
		}
		return errors.PersistenceFailure(err)
	}
	return nil
}

// Close stops the background writer after flushing pending changes. The
// gateway is closed by its owner.
func (s *LibraryService) Close(ctx context.Context) error {
	return s.writer.Close(ctx)
}

func (s *LibraryService) snapshotLocked() *domain.Snapshot {
	roots, index := s.tree.Snapshot()
	return &domain.Snapshot{
		Tracks:    s.tracks.Document().Tracks,
		Hierarchy: roots,
		Index:     index,
	}
}

// persistLocked queues the full snapshot. Submit only fails after Close.
func (s *LibraryService) persistLocked(ctx context.Context) {
	if err := s.writer.Submit(store.SnapshotJob(s.snapshotLocked())); err != nil {
		s.logger.ErrorContext(ctx, "queue library snapshot", slog.String("error", err.Error()))
	}
}

func (s *LibraryService) persistTagsLocked(ctx context.Context) {
	if err := s.writer.Submit(store.Job{ColorTags: s.tags.Document()}); err != nil {
		s.logger.ErrorContext(ctx, "queue color tags", slog.String("error", err.Error()))
	}
}

// reindexAllLocked rebuilds the full-text index. Index failures are logged
// and never fail the mutation.
func (s *LibraryService) reindexAllLocked(ctx context.Context) {
	if err := s.index.Rebuild(s.tracks.All()); err != nil {
		s.logger.WarnContext(ctx, "rebuild track index", slog.String("error", err.Error()))
	}
}
