package api

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/danielgtaylor/huma/v2/humatest"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/crateapp/crate-server/internal/logger"
	"github.com/crateapp/crate-server/internal/search"
	"github.com/crateapp/crate-server/internal/service"
	"github.com/crateapp/crate-server/internal/sse"
	"github.com/crateapp/crate-server/internal/store"
)

type testServer struct {
	*Server
	api     humatest.TestAPI
	library *service.LibraryService
}

func setupTestServer(t *testing.T) *testServer {
	t.Helper()

	log := logger.Discard()

	docs, err := store.NewJSONFiles(t.TempDir())
	require.NoError(t, err)
	gateway := store.NewGateway(docs, log)

	index, err := search.NewTrackIndex(search.Options{Logger: log})
	require.NoError(t, err)

	manager := sse.NewManager(log)
	ctx, cancel := context.WithCancel(context.Background())
	go manager.Start(ctx)

	var seq int
	library := service.NewLibraryService(service.Options{
		Gateway: gateway,
		Index:   index,
		Emitter: manager,
		Logger:  log,
		IDGenerator: func() (string, error) {
			seq++
			return fmt.Sprintf("N%d", seq), nil
		},
	})

	srv := NewServer(library, manager, Options{Index: index}, log)

	t.Cleanup(func() {
		srv.Close()
		require.NoError(t, library.Close(context.Background()))
		cancel()
		_ = manager.Shutdown(context.Background())
		_ = index.Close()
		_ = gateway.Close()
	})

	return &testServer{Server: srv, api: humatest.Wrap(t, srv.API()), library: library}
}

func decode[T any](t *testing.T, resp *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(resp.Body.Bytes(), &v), resp.Body.String())
	return v
}

func (ts *testServer) createNode(t *testing.T, parentID, kind, name string) NodeResponse {
	t.Helper()
	resp := ts.api.Post("/api/v1/nodes", map[string]any{"parent_id": parentID, "kind": kind, "name": name})
	require.Equal(t, http.StatusCreated, resp.Code, resp.Body.String())
	return decode[NodeResponse](t, resp)
}

func (ts *testServer) addTrack(t *testing.T, name, artist string) TrackResponse {
	t.Helper()
	resp := ts.api.Post("/api/v1/tracks", map[string]any{"name": name, "artist": artist})
	require.Equal(t, http.StatusCreated, resp.Code, resp.Body.String())
	return decode[TrackResponse](t, resp)
}

func TestHealthCheck(t *testing.T) {
	ts := setupTestServer(t)

	resp := ts.api.Get("/health")

	require.Equal(t, http.StatusOK, resp.Code)
	health := decode[HealthResponse](t, resp)
	assert.Equal(t, "healthy", health.Status)
	assert.Contains(t, health.Components, "library")
	assert.Contains(t, health.Components, "search")
	assert.Contains(t, health.Components, "sse")
}

func TestNodes_CreateGetRename(t *testing.T) {
	ts := setupTestServer(t)

	genres := ts.createNode(t, "", "folder", "Genres")
	house := ts.createNode(t, genres.ID, "playlist", "House")
	ts.createNode(t, genres.ID, "playlist", "Disco")

	assert.Equal(t, []int{0}, genres.Path)
	assert.Equal(t, genres.ID, house.ParentID)

	resp := ts.api.Get("/api/v1/nodes/" + genres.ID)
	require.Equal(t, http.StatusOK, resp.Code)
	got := decode[NodeResponse](t, resp)
	require.Len(t, got.Children, 2)
	assert.Equal(t, "Disco", got.Children[0].Name)
	assert.Equal(t, []int{0, 1}, got.Children[1].Path)

	resp = ts.api.Patch("/api/v1/nodes/"+house.ID, map[string]any{"name": "Acid"})
	require.Equal(t, http.StatusOK, resp.Code)
	renamed := decode[NodeResponse](t, resp)
	assert.Equal(t, "Acid", renamed.Name)
	assert.Equal(t, []int{0, 0}, renamed.Path)
}

func TestNodes_ErrorMapping(t *testing.T) {
	ts := setupTestServer(t)

	outer := ts.createNode(t, "", "folder", "Outer")
	inner := ts.createNode(t, outer.ID, "folder", "Inner")
	list := ts.createNode(t, "", "playlist", "List")

	tests := []struct {
		name       string
		resp       *httptest.ResponseRecorder
		wantStatus int
		wantCode   string
		wantReason string
	}{
		{
			name:       "unknown node",
			resp:       ts.api.Get("/api/v1/nodes/MISSING"),
			wantStatus: http.StatusNotFound,
			wantCode:   "NOT_FOUND",
		},
		{
			name:       "self move",
			resp:       ts.api.Post("/api/v1/nodes/"+outer.ID+"/move", map[string]any{"target_id": outer.ID}),
			wantStatus: http.StatusConflict,
			wantCode:   "INVALID_MOVE",
			wantReason: "self_move",
		},
		{
			name:       "cyclic move",
			resp:       ts.api.Post("/api/v1/nodes/"+outer.ID+"/move", map[string]any{"target_id": inner.ID}),
			wantStatus: http.StatusConflict,
			wantCode:   "INVALID_MOVE",
			wantReason: "cyclic_move",
		},
		{
			name:       "move into playlist",
			resp:       ts.api.Post("/api/v1/nodes/"+inner.ID+"/move", map[string]any{"target_id": list.ID}),
			wantStatus: http.StatusConflict,
			wantCode:   "NOT_A_FOLDER",
		},
		{
			name:       "bad kind",
			resp:       ts.api.Post("/api/v1/nodes", map[string]any{"kind": "crate", "name": "x"}),
			wantStatus: http.StatusUnprocessableEntity,
			wantCode:   "VALIDATION",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.wantStatus, tt.resp.Code, tt.resp.Body.String())
			body := decode[map[string]any](t, tt.resp)
			assert.Equal(t, tt.wantCode, body["code"])
			if tt.wantReason != "" {
				details, ok := body["details"].(map[string]any)
				require.True(t, ok)
				assert.Equal(t, tt.wantReason, details["reason"])
			}
		})
	}

	// Failed moves leave the tree untouched.
	resp := ts.api.Get("/api/v1/nodes/" + inner.ID)
	require.Equal(t, http.StatusOK, resp.Code)
	assert.Equal(t, []int{1, 0}, decode[NodeResponse](t, resp).Path)
}

func TestNodes_MoveToRootAndRemove(t *testing.T) {
	ts := setupTestServer(t)

	folder := ts.createNode(t, "", "folder", "B")
	child := ts.createNode(t, folder.ID, "playlist", "A")

	resp := ts.api.Post("/api/v1/nodes/"+child.ID+"/move", map[string]any{})
	require.Equal(t, http.StatusOK, resp.Code)
	moved := decode[NodeResponse](t, resp)
	assert.Empty(t, moved.ParentID)
	assert.Equal(t, []int{0}, moved.Path)

	resp = ts.api.Delete("/api/v1/nodes/" + folder.ID)
	assert.Equal(t, http.StatusNoContent, resp.Code)

	resp = ts.api.Get("/api/v1/nodes/" + folder.ID)
	assert.Equal(t, http.StatusNotFound, resp.Code)
}

func TestPlaylists_TracksAndFolderView(t *testing.T) {
	ts := setupTestServer(t)

	folder := ts.createNode(t, "", "folder", "Sets")
	list := ts.createNode(t, folder.ID, "playlist", "Warmup")
	first := ts.addTrack(t, "Strings of Life", "Rhythim Is Rhythim")
	second := ts.addTrack(t, "Energy Flash", "Joey Beltram")

	resp := ts.api.Post("/api/v1/playlists/"+list.ID+"/tracks", map[string]any{"track_ids": []int64{second.ID, first.ID, second.ID}})
	require.Equal(t, http.StatusOK, resp.Code, resp.Body.String())
	assert.Equal(t, []int64{second.ID, first.ID}, decode[NodeResponse](t, resp).TrackIDs)

	resp = ts.api.Get("/api/v1/folders/" + folder.ID + "/tracks")
	require.Equal(t, http.StatusOK, resp.Code)
	view := decode[FolderTracksResponse](t, resp)
	assert.Equal(t, "Sets", view.Name)
	require.Len(t, view.Tracks, 2)
	assert.Equal(t, "Energy Flash", view.Tracks[0].Name)

	resp = ts.api.Post("/api/v1/playlists/"+list.ID+"/tracks/remove", map[string]any{"track_ids": []int64{second.ID}})
	require.Equal(t, http.StatusOK, resp.Code)
	assert.Equal(t, []int64{first.ID}, decode[NodeResponse](t, resp).TrackIDs)

	// Track edits on a folder change nothing.
	resp = ts.api.Post("/api/v1/playlists/"+folder.ID+"/tracks", map[string]any{"track_ids": []int64{first.ID}})
	require.Equal(t, http.StatusOK, resp.Code)
	assert.Empty(t, decode[NodeResponse](t, resp).TrackIDs)
}

func TestTracks_SortTagAndDelete(t *testing.T) {
	ts := setupTestServer(t)

	a := ts.addTrack(t, "Beta", "Zed")
	b := ts.addTrack(t, "alpha", "Yan")

	resp := ts.api.Get("/api/v1/tracks?sort=title&direction=1")
	require.Equal(t, http.StatusOK, resp.Code)
	list := decode[TracksResponse](t, resp)
	require.Len(t, list.Tracks, 2)
	assert.Equal(t, b.ID, list.Tracks[0].ID)

	resp = ts.api.Put(fmt.Sprintf("/api/v1/tracks/%d/tag", a.ID), map[string]any{"color": "red"})
	require.Equal(t, http.StatusOK, resp.Code, resp.Body.String())
	assert.Equal(t, "red", decode[TrackResponse](t, resp).ColorTag)

	resp = ts.api.Put(fmt.Sprintf("/api/v1/tracks/%d/tag", a.ID), map[string]any{"color": "purple"})
	assert.Equal(t, http.StatusUnprocessableEntity, resp.Code)

	resp = ts.api.Get("/api/v1/tracks?sort=tag&direction=1")
	require.Equal(t, http.StatusOK, resp.Code)
	assert.Equal(t, a.ID, decode[TracksResponse](t, resp).Tracks[0].ID)

	resp = ts.api.Patch(fmt.Sprintf("/api/v1/tracks/%d", b.ID), map[string]any{"bpm": 128})
	require.Equal(t, http.StatusOK, resp.Code)
	assert.Equal(t, 128, decode[TrackResponse](t, resp).BPM)

	resp = ts.api.Post("/api/v1/tracks/delete", map[string]any{"track_ids": []int64{a.ID, 999}})
	require.Equal(t, http.StatusOK, resp.Code)
	assert.Equal(t, 1, decode[DeleteTracksResponse](t, resp).Deleted)

	resp = ts.api.Get(fmt.Sprintf("/api/v1/tracks/%d", a.ID))
	assert.Equal(t, http.StatusNotFound, resp.Code)

	resp = ts.api.Get("/api/v1/tags")
	require.Equal(t, http.StatusOK, resp.Code)
	assert.Empty(t, decode[ColorTagsResponse](t, resp).Tags)
}

func TestSearch(t *testing.T) {
	ts := setupTestServer(t)

	ts.addTrack(t, "Humarta", "Ana")
	ts.addTrack(t, "Café del Mar", "Energy 52")

	resp := ts.api.Get("/api/v1/search?q=mar")
	require.Equal(t, http.StatusOK, resp.Code)
	list := decode[TracksResponse](t, resp)
	require.Len(t, list.Tracks, 2)
	assert.Equal(t, "Café del Mar", list.Tracks[0].Name, "word-boundary match ranks first")

	resp = ts.api.Get("/api/v1/search?q=m")
	require.Equal(t, http.StatusOK, resp.Code)
	assert.Empty(t, decode[TracksResponse](t, resp).Tracks)

	resp = ts.api.Get("/api/v1/search/fulltext?q=energy&limit=5")
	require.Equal(t, http.StatusOK, resp.Code)
	hits := decode[FullTextSearchResponse](t, resp).Hits
	require.NotEmpty(t, hits)
	assert.Equal(t, "Café del Mar", hits[0].Name)

	resp = ts.api.Get("/api/v1/search/fulltext?q=energy&limit=500")
	assert.Equal(t, http.StatusUnprocessableEntity, resp.Code)
}

func TestLibrary_ImportSnapshotSync(t *testing.T) {
	ts := setupTestServer(t)

	resp := ts.api.Post("/api/v1/library/import", map[string]any{
		"tracks": []map[string]any{
			{"trackId": 10, "name": "One"},
			{"trackId": 11, "name": "Two"},
			{"trackId": 10, "name": "Duplicate"},
		},
		"items": []map[string]any{
			{"id": "F", "name": "Folder", "folder": true},
			{"id": "P", "parentId": "F", "name": "List", "folder": false, "trackIds": []int64{11, 10}},
			{"id": "L", "parentId": "LATER", "name": "Orphan", "folder": false},
		},
	})
	require.Equal(t, http.StatusOK, resp.Code, resp.Body.String())
	result := decode[service.ImportResult](t, resp)
	assert.Equal(t, 2, result.Tracks)
	assert.Equal(t, 3, result.Nodes)
	assert.Len(t, result.Skipped, 1)
	assert.Equal(t, []string{"L"}, result.Rooted)

	resp = ts.api.Get("/api/v1/library")
	require.Equal(t, http.StatusOK, resp.Code)
	lib := decode[LibraryResponse](t, resp)
	require.Len(t, lib.Hierarchy, 2)
	assert.Equal(t, "Folder", lib.Hierarchy[0].Name)
	assert.Equal(t, []int{0, 0}, lib.Index["P"])
	assert.Equal(t, 2, lib.Stats.Tracks)

	resp = ts.api.Post("/api/v1/library/sync", map[string]any{})
	assert.Equal(t, http.StatusOK, resp.Code)
}

func TestLibrary_EnrichWithoutSource(t *testing.T) {
	ts := setupTestServer(t)

	resp := ts.api.Post("/api/v1/library/enrich", map[string]any{})

	assert.Equal(t, http.StatusBadRequest, resp.Code)
	assert.Equal(t, "VALIDATION", decode[map[string]any](t, resp)["code"])
}

func TestRouterFallbacks(t *testing.T) {
	ts := setupTestServer(t)

	rec := httptest.NewRecorder()
	ts.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/nothing", nil))

	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "ROUTE_NOT_FOUND", decode[map[string]any](t, rec)["code"])
}

func TestRateLimit(t *testing.T) {
	log := logger.Discard()
	docs, err := store.NewJSONFiles(t.TempDir())
	require.NoError(t, err)
	library := service.NewLibraryService(service.Options{Gateway: store.NewGateway(docs, log), Logger: log})
	t.Cleanup(func() { _ = library.Close(context.Background()) })

	srv := NewServer(library, nil, Options{RateLimit: 1, RateBurst: 2}, log)
	t.Cleanup(srv.Close)

	codes := make([]int, 0, 3)
	for range 3 {
		rec := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodGet, "/health", nil)
		req.RemoteAddr = "10.0.0.1:5000"
		srv.ServeHTTP(rec, req)
		codes = append(codes, rec.Code)
	}

	assert.Equal(t, []int{http.StatusOK, http.StatusOK, http.StatusTooManyRequests}, codes)
}
