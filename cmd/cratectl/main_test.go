package main

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"

	"github.com/crateapp/crate-server/internal/domain"
)

const testExport = `{
  "tracks": [
    {"trackId": 1, "name": "Night Drive", "artist": "Kavinsky", "totalTime": 245000, "bpm": 120},
    {"trackId": 2, "name": "Nightcall", "artist": "Kavinsky", "totalTime": 258000, "bpm": 96},
    {"trackId": 3, "name": "Sunrise", "artist": "Night Shift", "totalTime": 61000},
    {"trackId": 0, "name": "broken"}
  ],
  "items": [
    {"id": "F1", "name": "Sets", "folder": true},
    {"id": "P1", "parentId": "F1", "name": "Warmup", "trackIds": [2, 1]},
    {"id": "P2", "parentId": "missing", "name": "Loose", "trackIds": [3]}
  ]
}`

// run executes cratectl against dir and returns its standard output.
func run(t *testing.T, dir string, args ...string) string {
	t.Helper()

	// Reset flag state shared between executions.
	treeOutput, searchFullText, searchLimit = "text", false, 20
	sortColumn, sortDirection, sortNode = "title", 1, ""
	enrichVDJ, enrichFileTags, enrichTracks = "", false, nil

	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&bytes.Buffer{})
	rootCmd.SetArgs(append([]string{"--data-path", dir, "--log-level", "error"}, args...))
	require.NoError(t, rootCmd.Execute())
	return out.String()
}

func importTestLibrary(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	export := filepath.Join(t.TempDir(), "export.json")
	require.NoError(t, os.WriteFile(export, []byte(testExport), 0o644))

	out := run(t, dir, "import", export)
	assert.Contains(t, out, "Imported 3 tracks and 3 nodes")
	assert.Contains(t, out, "Skipped: 1 records")
	assert.Contains(t, out, "Placed at root: 1 items")
	return dir
}

func TestImportThenTree(t *testing.T) {
	dir := importTestLibrary(t)

	text := run(t, dir, "tree")
	assert.Contains(t, text, "Sets/  [0]")
	assert.Contains(t, text, "  Warmup  [0 0] (2 tracks)")
	assert.Contains(t, text, "Loose  [1] (1 tracks)")

	var entries []treeEntry
	require.NoError(t, yaml.Unmarshal([]byte(run(t, dir, "tree", "--output", "yaml")), &entries))
	require.Len(t, entries, 2)
	assert.Equal(t, "F1", entries[0].ID)
	assert.Equal(t, "folder", entries[0].Kind)
	require.Len(t, entries[0].Children, 1)
	assert.Equal(t, []int{0, 0}, entries[0].Children[0].Path)
	assert.Equal(t, 2, entries[0].Children[0].Tracks)
}

func TestImportPersistsAcrossRuns(t *testing.T) {
	dir := importTestLibrary(t)

	_, err := os.Stat(filepath.Join(dir, "tracks.json"))
	require.NoError(t, err)

	out := run(t, dir, "sort", "--column", "bpm", "--direction=-1")
	lines := bytes.Split(bytes.TrimSpace([]byte(out)), []byte("\n"))
	require.Len(t, lines, 4)
	assert.Contains(t, string(lines[1]), "Night Drive")
	assert.Contains(t, string(lines[2]), "Nightcall")
	assert.Contains(t, string(lines[3]), "Sunrise")
	assert.Contains(t, string(lines[1]), "4:05")
}

func TestSortWithinNode(t *testing.T) {
	dir := importTestLibrary(t)

	out := run(t, dir, "sort", "--node", "P1", "--direction=0")
	lines := bytes.Split(bytes.TrimSpace([]byte(out)), []byte("\n"))
	require.Len(t, lines, 3)
	assert.Contains(t, string(lines[1]), "Nightcall")
	assert.Contains(t, string(lines[2]), "Night Drive")
}

func TestSearch(t *testing.T) {
	dir := importTestLibrary(t)

	out := run(t, dir, "search", "night")
	lines := bytes.Split(bytes.TrimSpace([]byte(out)), []byte("\n"))
	require.Len(t, lines, 4)
	assert.Contains(t, out, "Night Drive")
	assert.Contains(t, out, "Nightcall")
	assert.Contains(t, out, "Night Shift")

	out = run(t, dir, "search", "drive")
	assert.Contains(t, out, "Night Drive")
	assert.NotContains(t, out, "Sunrise")

	out = run(t, dir, "search", "--fulltext", "sunrise")
	assert.Contains(t, out, "Sunrise")
}

func TestEnrichRequiresSource(t *testing.T) {
	rootCmd.SetOut(&bytes.Buffer{})
	rootCmd.SetErr(&bytes.Buffer{})
	enrichVDJ, enrichFileTags = "", false
	rootCmd.SetArgs([]string{"--data-path", t.TempDir(), "enrich"})
	require.Error(t, rootCmd.Execute())
}

func TestTreeRejectsUnknownFormat(t *testing.T) {
	rootCmd.SetOut(&bytes.Buffer{})
	rootCmd.SetErr(&bytes.Buffer{})
	rootCmd.SetArgs([]string{"--data-path", t.TempDir(), "tree", "--output", "xml"})
	require.Error(t, rootCmd.Execute())
}

func TestBuildTreeEntries(t *testing.T) {
	folder := domain.NewFolder("F", "Root", "")
	folder.Children = []*domain.Node{
		{ID: "A", Name: "A", Kind: domain.KindPlaylist, TrackIDs: []int64{1}},
		{ID: "B", Name: "B", Kind: domain.KindPlaylist},
	}

	entries := buildTreeEntries([]*domain.Node{folder}, nil)
	require.Len(t, entries, 1)
	assert.Equal(t, []int{0}, entries[0].Path)
	assert.Equal(t, []int{0, 0}, entries[0].Children[0].Path)
	assert.Equal(t, []int{0, 1}, entries[0].Children[1].Path)
	assert.Equal(t, 1, entries[0].Children[0].Tracks)
}

func TestFormatDuration(t *testing.T) {
	assert.Equal(t, "", formatDuration(0))
	assert.Equal(t, "1:01", formatDuration(61000))
	assert.Equal(t, "4:05", formatDuration(245000))
	assert.Equal(t, "61:00", formatDuration(3660000))
}
