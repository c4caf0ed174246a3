package service

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/crateapp/crate-server/internal/domain"
	"github.com/crateapp/crate-server/internal/enrich"
	"github.com/crateapp/crate-server/internal/errors"
	"github.com/crateapp/crate-server/internal/hierarchy"
	"github.com/crateapp/crate-server/internal/search"
	"github.com/crateapp/crate-server/internal/sse"
	"github.com/crateapp/crate-server/internal/store"
	"github.com/crateapp/crate-server/internal/tracks"
)

// recordingEmitter keeps every emitted event. Safe for concurrent use.
type recordingEmitter struct {
	mu     sync.Mutex
	events []sse.Event
}

func (r *recordingEmitter) Emit(event sse.Event) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, event)
}

func (r *recordingEmitter) types() []sse.EventType {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]sse.EventType, 0, len(r.events))
	for _, ev := range r.events {
		out = append(out, ev.Type)
	}
	return out
}

func (r *recordingEmitter) reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = nil
}

// flakyDocs is a document store whose writes can be made to fail.
type flakyDocs struct {
	store.DocumentStore
	mu   sync.Mutex
	fail bool
}

func (f *flakyDocs) setFail(fail bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.fail = fail
}

func (f *flakyDocs) Put(ctx context.Context, name string, data []byte) error {
	f.mu.Lock()
	fail := f.fail
	f.mu.Unlock()
	if fail {
		return fmt.Errorf("disk full")
	}
	return f.DocumentStore.Put(ctx, name, data)
}

type testEnv struct {
	svc     *LibraryService
	events  *recordingEmitter
	docs    *flakyDocs
	gateway store.Gateway
	dir     string
}

func sequentialIDs() func() (string, error) {
	n := 0
	return func() (string, error) {
		n++
		return fmt.Sprintf("N%d", n), nil
	}
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	dir := t.TempDir()
	return openTestEnv(t, dir)
}

func openTestEnv(t *testing.T, dir string) *testEnv {
	t.Helper()

	files, err := store.NewJSONFiles(dir)
	require.NoError(t, err)
	docs := &flakyDocs{DocumentStore: files}
	gateway := store.NewGateway(docs, nil)

	index, err := search.NewTrackIndex(search.Options{})
	require.NoError(t, err)

	events := &recordingEmitter{}
	svc := NewLibraryService(Options{
		Gateway:     gateway,
		Index:       index,
		Emitter:     events,
		IDGenerator: sequentialIDs(),
	})
	t.Cleanup(func() {
		_ = svc.Close(context.Background())
		_ = index.Close()
		_ = gateway.Close()
	})
	return &testEnv{svc: svc, events: events, docs: docs, gateway: gateway, dir: dir}
}

func mustCreate(t *testing.T, svc *LibraryService, parent, kind, name string) domain.Node {
	t.Helper()
	node, err := svc.CreateNode(context.Background(), CreateNodeRequest{ParentID: parent, Kind: kind, Name: name})
	require.NoError(t, err)
	return node
}

func mustAddTrack(t *testing.T, svc *LibraryService, name, artist string) *domain.Track {
	t.Helper()
	track, err := svc.AddTrack(context.Background(), AddTrackRequest{Name: name, Artist: artist})
	require.NoError(t, err)
	return track
}

func requireIndexFresh(t *testing.T, snap *domain.Snapshot) {
	t.Helper()
	assert.Equal(t, hierarchy.RebuildIndex(snap.Hierarchy), snap.Index)
}

func TestLibraryService_CreateAndReload(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	techno := mustCreate(t, env.svc, "", "folder", "Techno")
	peak := mustCreate(t, env.svc, techno.ID, "playlist", "Peak")
	track := mustAddTrack(t, env.svc, "Strobe", "deadmau5")
	_, err := env.svc.AddTracksToPlaylist(ctx, peak.ID, PlaylistTracksRequest{TrackIDs: []int64{track.TrackID}})
	require.NoError(t, err)
	require.NoError(t, env.svc.SetColorTag(ctx, track.TrackID, SetColorTagRequest{Color: "mint"}))

	require.NoError(t, env.svc.Sync(ctx))
	before := env.svc.Snapshot()
	requireIndexFresh(t, before)

	reopened := openTestEnv(t, env.dir)
	found, err := reopened.svc.Load(ctx)
	require.NoError(t, err)
	assert.True(t, found)

	after := reopened.svc.Snapshot()
	assert.Equal(t, before, after)
	assert.Equal(t, map[int64]string{track.TrackID: "mint"}, reopened.svc.ColorTags())
	assert.Equal(t, Stats{Tracks: 1, Nodes: 2, ColorTags: 1}, reopened.svc.Stats())

	hits, err := reopened.svc.FullTextSearch(ctx, "strobe", 10)
	require.NoError(t, err)
	require.Len(t, hits, 1)
	assert.Equal(t, track.TrackID, hits[0].TrackID)
}

func TestLibraryService_LoadEmpty(t *testing.T) {
	env := newTestEnv(t)

	found, err := env.svc.Load(context.Background())
	require.NoError(t, err)
	assert.False(t, found)
	assert.Empty(t, env.svc.Snapshot().Hierarchy)
}

func TestLibraryService_LoadRejectsDuplicateNodeIDs(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	folder := domain.NewFolder("F1", "Techno", "")
	folder.Children = append(folder.Children, domain.NewPlaylist("P1", "Peak", "F1"))
	roots := []*domain.Node{folder, domain.NewPlaylist("P1", "Shadow", "")}
	require.NoError(t, env.gateway.SaveHierarchy(ctx, domain.HierarchyDocument{Hierarchy: roots}))

	_, err := env.svc.Load(ctx)
	require.Error(t, err)
	assert.ErrorIs(t, err, errors.ErrImportMalformed)
	assert.Empty(t, env.svc.Snapshot().Hierarchy)
}

func TestLibraryService_EmitsEvents(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	genres := mustCreate(t, env.svc, "", "folder", "Genres")
	house := mustCreate(t, env.svc, "", "folder", "House")
	_, err := env.svc.RenameNode(ctx, house.ID, RenameNodeRequest{Name: "Deep House"})
	require.NoError(t, err)
	moved, err := env.svc.MoveNode(ctx, house.ID, genres.ID)
	require.NoError(t, err)
	assert.Equal(t, genres.ID, moved.ParentID)
	require.NoError(t, env.svc.RemoveNode(ctx, genres.ID))

	assert.Equal(t, []sse.EventType{
		sse.EventNodeCreated,
		sse.EventNodeCreated,
		sse.EventNodeRenamed,
		sse.EventNodeMoved,
		sse.EventNodeRemoved,
	}, env.events.types())
	assert.Empty(t, env.svc.Snapshot().Hierarchy)
}

func TestLibraryService_NoOpsDoNotEmit(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	folder := mustCreate(t, env.svc, "", "folder", "Crates")
	env.events.reset()

	// Already at root level.
	node, err := env.svc.MoveNode(ctx, folder.ID, "")
	require.NoError(t, err)
	assert.Equal(t, folder.ID, node.ID)

	// Track edits on a folder do nothing.
	_, err = env.svc.AddTracksToPlaylist(ctx, folder.ID, PlaylistTracksRequest{TrackIDs: []int64{1}})
	require.NoError(t, err)

	playlist := mustCreate(t, env.svc, "", "playlist", "Warmup")
	env.events.reset()

	// Removing ids the playlist does not hold.
	_, err = env.svc.RemoveTracksFromPlaylist(ctx, playlist.ID, PlaylistTracksRequest{TrackIDs: []int64{9}})
	require.NoError(t, err)

	// Repeating the current color.
	track := mustAddTrack(t, env.svc, "Opus", "Eric Prydz")
	require.NoError(t, env.svc.SetColorTag(ctx, track.TrackID, SetColorTagRequest{Color: "red"}))
	env.events.reset()
	require.NoError(t, env.svc.SetColorTag(ctx, track.TrackID, SetColorTagRequest{Color: "red"}))

	// Empty metadata patch.
	_, err = env.svc.UpdateTrack(ctx, track.TrackID, tracks.TrackPatch{})
	require.NoError(t, err)

	assert.Empty(t, env.events.types())
}

func TestLibraryService_InvalidMoveLeavesStateAlone(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	f1 := mustCreate(t, env.svc, "", "folder", "F1")
	f2 := mustCreate(t, env.svc, f1.ID, "folder", "F2")
	playlist := mustCreate(t, env.svc, "", "playlist", "P")
	before := env.svc.Snapshot()
	env.events.reset()

	_, err := env.svc.MoveNode(ctx, f1.ID, f2.ID)
	require.True(t, errors.Is(err, errors.ErrInvalidMove))
	assert.Equal(t, errors.ReasonCyclicMove, errors.Reason(err))

	_, err = env.svc.MoveNode(ctx, f1.ID, f1.ID)
	require.True(t, errors.Is(err, errors.ErrInvalidMove))
	assert.Equal(t, errors.ReasonSelfMove, errors.Reason(err))

	_, err = env.svc.MoveNode(ctx, f2.ID, playlist.ID)
	assert.True(t, errors.Is(err, errors.ErrNotAFolder))

	_, err = env.svc.MoveNode(ctx, "missing", f1.ID)
	assert.True(t, errors.Is(err, errors.ErrNotFound))

	assert.Equal(t, before, env.svc.Snapshot())
	assert.Empty(t, env.events.types())
}

func TestLibraryService_CreateValidation(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	_, err := env.svc.CreateNode(ctx, CreateNodeRequest{Kind: "smart", Name: "x"})
	assert.True(t, errors.Is(err, errors.ErrValidation))

	_, err = env.svc.CreateNode(ctx, CreateNodeRequest{Kind: "folder"})
	assert.True(t, errors.Is(err, errors.ErrValidation))

	_, err = env.svc.CreateNode(ctx, CreateNodeRequest{ParentID: "nope", Kind: "folder", Name: "x"})
	assert.True(t, errors.Is(err, errors.ErrNotFound))
}

func TestLibraryService_TracksSearchAndSort(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	a := mustAddTrack(t, env.svc, "Strobe", "deadmau5")
	b := mustAddTrack(t, env.svc, "Opus", "Eric Prydz")
	c := mustAddTrack(t, env.svc, "Café del Mar", "Energy 52")

	assert.Equal(t, []int64{a.TrackID, b.TrackID, c.TrackID}, trackIDs(env.svc.Tracks()))

	results := env.svc.Search("cafe")
	require.Len(t, results, 1)
	assert.Equal(t, c.TrackID, results[0].TrackID)
	assert.Empty(t, env.svc.Search("c"))

	require.NoError(t, env.svc.SetColorTag(ctx, b.TrackID, SetColorTagRequest{Color: "red"}))
	require.NoError(t, env.svc.SetColorTag(ctx, c.TrackID, SetColorTagRequest{Color: "blue"}))

	sorted, err := env.svc.SortedTracks(ListTracksRequest{Sort: "tag", Direction: 1})
	require.NoError(t, err)
	assert.Equal(t, []int64{b.TrackID, c.TrackID, a.TrackID}, trackIDs(sorted))

	sorted, err = env.svc.SortedTracks(ListTracksRequest{Sort: "title", Direction: -1})
	require.NoError(t, err)
	assert.Equal(t, []int64{a.TrackID, b.TrackID, c.TrackID}, trackIDs(sorted))

	_, err = env.svc.SortedTracks(ListTracksRequest{Sort: "genre", Direction: 1})
	assert.True(t, errors.Is(err, errors.ErrValidation))

	name := "Strobe (Club Edit)"
	updated, err := env.svc.UpdateTrack(ctx, a.TrackID, tracks.TrackPatch{Name: &name})
	require.NoError(t, err)
	assert.Equal(t, name, updated.Name)
	assert.False(t, updated.DateModified.IsZero())

	hits, err := env.svc.FullTextSearch(ctx, "club", 5)
	require.NoError(t, err)
	require.Len(t, hits, 1)
	assert.Equal(t, a.TrackID, hits[0].TrackID)

	_, err = env.svc.FullTextSearch(ctx, "club", 1000)
	assert.True(t, errors.Is(err, errors.ErrValidation))
}

func TestLibraryService_SortedTracksForNode(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	a := mustAddTrack(t, env.svc, "B side", "")
	b := mustAddTrack(t, env.svc, "A side", "")
	mustAddTrack(t, env.svc, "Unlisted", "")
	folder := mustCreate(t, env.svc, "", "folder", "Crate")
	playlist := mustCreate(t, env.svc, folder.ID, "playlist", "Set")
	_, err := env.svc.AddTracksToPlaylist(ctx, playlist.ID, PlaylistTracksRequest{TrackIDs: []int64{a.TrackID, b.TrackID, 99}})
	require.NoError(t, err)

	view, err := env.svc.FolderTracks(folder.ID)
	require.NoError(t, err)
	assert.Equal(t, "Crate", view.Name)
	assert.Equal(t, []int64{a.TrackID, b.TrackID}, trackIDs(view.Tracks))

	sorted, err := env.svc.SortedTracks(ListTracksRequest{Sort: "title", Direction: 1, NodeID: folder.ID})
	require.NoError(t, err)
	assert.Equal(t, []int64{b.TrackID, a.TrackID}, trackIDs(sorted))
}

func TestLibraryService_DeleteTracks(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	a := mustAddTrack(t, env.svc, "Strobe", "deadmau5")
	b := mustAddTrack(t, env.svc, "Opus", "Eric Prydz")
	playlist := mustCreate(t, env.svc, "", "playlist", "Set")
	_, err := env.svc.AddTracksToPlaylist(ctx, playlist.ID, PlaylistTracksRequest{TrackIDs: []int64{a.TrackID, b.TrackID}})
	require.NoError(t, err)
	require.NoError(t, env.svc.SetColorTag(ctx, a.TrackID, SetColorTagRequest{Color: "green"}))

	removed, err := env.svc.DeleteTracks(ctx, DeleteTracksRequest{TrackIDs: []int64{a.TrackID, 42}})
	require.NoError(t, err)
	assert.Equal(t, 1, removed)

	_, err = env.svc.Track(a.TrackID)
	assert.True(t, errors.Is(err, errors.ErrNotFound))
	assert.Empty(t, env.svc.ColorTags())

	// Playlists keep the dangling id.
	node, err := env.svc.Node(playlist.ID)
	require.NoError(t, err)
	assert.Equal(t, []int64{a.TrackID, b.TrackID}, node.TrackIDs)

	hits, err := env.svc.FullTextSearch(ctx, "strobe", 5)
	require.NoError(t, err)
	assert.Empty(t, hits)

	err = env.svc.SetColorTag(ctx, a.TrackID, SetColorTagRequest{Color: "red"})
	assert.True(t, errors.Is(err, errors.ErrNotFound))
}

func TestLibraryService_Import(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	old := mustAddTrack(t, env.svc, "Old", "")
	require.NoError(t, env.svc.SetColorTag(ctx, old.TrackID, SetColorTagRequest{Color: "red"}))
	env.events.reset()

	result, err := env.svc.Import(ctx, ImportRequest{
		Tracks: []*domain.Track{
			{TrackID: 10, Name: "Strobe"},
			{TrackID: 11, Name: "Opus"},
			{TrackID: 0, Name: "No id"},
			{TrackID: 10, Name: "Duplicate"},
		},
		Items: []hierarchy.FlatItem{
			{ID: "F1", Name: "Techno", Folder: true},
			{ID: "P1", ParentID: "F1", Name: "Peak", TrackIDs: []int64{10, 11}},
			{ID: "P2", ParentID: "LATE", Name: "Orphan"},
			{Name: "no id"},
		},
	})
	require.NoError(t, err)

	assert.Equal(t, 2, result.Tracks)
	assert.Equal(t, 3, result.Nodes)
	assert.Len(t, result.Skipped, 3)
	assert.Equal(t, []string{"P2"}, result.Rooted)
	assert.Equal(t, []sse.EventType{sse.EventLibraryImported}, env.events.types())

	snap := env.svc.Snapshot()
	requireIndexFresh(t, snap)
	assert.Equal(t, domain.Path{0, 0}, snap.Index["P1"])
	assert.Equal(t, domain.Path{1}, snap.Index["P2"])
	assert.Empty(t, env.svc.ColorTags())

	imported, err := env.svc.Track(10)
	require.NoError(t, err)
	assert.Equal(t, "Strobe", imported.Name)

	// New tracks continue after the highest imported id.
	next := mustAddTrack(t, env.svc, "Next", "")
	assert.Equal(t, int64(12), next.TrackID)
}

type mapSource map[string]enrich.Record

func (m mapSource) Lookup(_ context.Context, path string) (enrich.Record, bool, error) {
	rec, ok := m[path]
	return rec, ok, nil
}

func TestLibraryService_Enrich(t *testing.T) {
	files, err := store.NewJSONFiles(t.TempDir())
	require.NoError(t, err)
	gateway := store.NewGateway(files, nil)
	defer gateway.Close()

	events := &recordingEmitter{}
	svc := NewLibraryService(Options{
		Gateway: gateway,
		Emitter: events,
		Enricher: mapSource{
			"/music/strobe.mp3": {Artist: "deadmau5", BPM: 128, TotalTime: 634000},
			"/music/opus.mp3":   {Artist: "Someone Else", BPM: 126},
		},
	})
	defer svc.Close(context.Background())
	ctx := context.Background()

	strobe, err := svc.AddTrack(ctx, AddTrackRequest{Name: "Strobe", Location: "file:///music/strobe.mp3"})
	require.NoError(t, err)
	opus, err := svc.AddTrack(ctx, AddTrackRequest{Name: "Opus", Artist: "Eric Prydz", BPM: 126, Location: "/music/opus.mp3"})
	require.NoError(t, err)
	_, err = svc.AddTrack(ctx, AddTrackRequest{Name: "Unknown", Location: "/music/missing.mp3"})
	require.NoError(t, err)
	events.reset()

	result, err := svc.Enrich(ctx, EnrichRequest{})
	require.NoError(t, err)
	assert.Equal(t, []int64{strobe.TrackID}, result.Updated)
	assert.Equal(t, 1, result.Missing)

	enriched, err := svc.Track(strobe.TrackID)
	require.NoError(t, err)
	assert.Equal(t, "deadmau5", enriched.Artist)
	assert.Equal(t, 128, enriched.BPM)
	assert.Equal(t, int64(634000), enriched.TotalTime)

	// Already set fields are never overwritten.
	untouched, err := svc.Track(opus.TrackID)
	require.NoError(t, err)
	assert.Equal(t, "Eric Prydz", untouched.Artist)

	results := svc.Search("deadmau5")
	require.Len(t, results, 1)
	assert.Equal(t, []sse.EventType{sse.EventTracksChanged}, events.types())
}

func TestLibraryService_EnrichWithoutSource(t *testing.T) {
	env := newTestEnv(t)
	_, err := env.svc.Enrich(context.Background(), EnrichRequest{})
	assert.True(t, errors.Is(err, errors.ErrValidation))
}

func TestLibraryService_PersistenceFailure(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	env.docs.setFail(true)
	node := mustCreate(t, env.svc, "", "folder", "Unsaved")

	err := env.svc.Sync(ctx)
	require.Error(t, err)
	assert.True(t, errors.Is(err, errors.ErrPersistenceFailure))

	// Memory keeps the change.
	_, err = env.svc.Node(node.ID)
	require.NoError(t, err)

	require.Eventually(t, func() bool {
		for _, typ := range env.events.types() {
			if typ == sse.EventPersistenceFailed {
				return true
			}
		}
		return false
	}, 2*time.Second, 10*time.Millisecond)

	// The failure is reported once; later saves succeed.
	env.docs.setFail(false)
	mustCreate(t, env.svc, "", "folder", "Saved")
	require.NoError(t, env.svc.Sync(ctx))
}

func TestLibraryService_ConcurrentMutations(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	root := mustCreate(t, env.svc, "", "folder", "Root")

	var wg sync.WaitGroup
	for i := range 20 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := env.svc.AddTrack(ctx, AddTrackRequest{Name: fmt.Sprintf("Track %d", i)})
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	for i := range 5 {
		mustCreate(t, env.svc, root.ID, "playlist", fmt.Sprintf("P%d", i))
	}

	snap := env.svc.Snapshot()
	requireIndexFresh(t, snap)
	assert.Len(t, snap.Tracks, 20)
	require.NoError(t, env.svc.Sync(ctx))
}

func trackIDs(list []*domain.Track) []int64 {
	out := make([]int64, 0, len(list))
	for _, t := range list {
		out = append(out, t.TrackID)
	}
	return out
}
