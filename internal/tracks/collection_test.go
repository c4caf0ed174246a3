package tracks

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/crateapp/crate-server/internal/domain"
	"github.com/crateapp/crate-server/internal/errors"
)

var fixedNow = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

func newTestCollection() *Collection {
	c := New()
	c.now = func() time.Time { return fixedNow }
	return c
}

func ids(tracks []*domain.Track) []int64 {
	out := make([]int64, len(tracks))
	for i, t := range tracks {
		out[i] = t.TrackID
	}
	return out
}

func TestPut_OrdersByID(t *testing.T) {
	c := newTestCollection()
	for _, trackID := range []int64{30, 10, 20} {
		c.Put(&domain.Track{TrackID: trackID, Name: "t"})
	}

	assert.Equal(t, []int64{10, 20, 30}, ids(c.All()))
	assert.Equal(t, 3, c.Len())

	var visited []int64
	c.Each(func(t *domain.Track) bool {
		visited = append(visited, t.TrackID)
		return t.TrackID < 20
	})
	assert.Equal(t, []int64{10, 20}, visited, "Each stops when fn returns false")
}

func TestPut_Replaces(t *testing.T) {
	c := newTestCollection()
	c.Put(&domain.Track{TrackID: 1, Name: "Old"})
	c.Put(&domain.Track{TrackID: 1, Name: "Café", Artist: "Énergie"})

	got, ok := c.Get(1)
	require.True(t, ok)
	assert.Equal(t, "Café", got.Name)
	assert.Equal(t, "cafe", got.SimplifiedName)
	assert.Equal(t, "energie", got.SimplifiedArtist)
	assert.Equal(t, 1, c.Len())
}

func TestAdd_AssignsNextID(t *testing.T) {
	c := newTestCollection()
	c.Put(&domain.Track{TrackID: 41, Name: "existing"})

	added := c.Add(&domain.Track{TrackID: 5, Name: "new"})

	assert.Equal(t, int64(42), added.TrackID)
	assert.Equal(t, fixedNow, added.DateAdded)
	assert.True(t, c.Has(42))
	assert.False(t, c.Has(5))

	next := c.Add(&domain.Track{Name: "newer"})
	assert.Equal(t, int64(43), next.TrackID)
}

func TestAdd_KeepsDateAdded(t *testing.T) {
	c := newTestCollection()
	added := time.Date(2020, 1, 1, 0, 0, 0, 0, time.UTC)

	got := c.Add(&domain.Track{Name: "x", DateAdded: added})

	assert.Equal(t, added, got.DateAdded)
}

func TestUpdate(t *testing.T) {
	c := newTestCollection()
	c.Put(&domain.Track{TrackID: 1, Name: "Strobe", Artist: "deadmau5", BPM: 128})

	name := "Strobe (Club Edit)"
	bpm := 126
	tags := []string{"progressive"}
	got, err := c.Update(1, TrackPatch{Name: &name, BPM: &bpm, Tags: &tags})
	require.NoError(t, err)

	assert.Equal(t, name, got.Name)
	assert.Equal(t, "strobe (club edit)", got.SimplifiedName)
	assert.Equal(t, "deadmau5", got.Artist)
	assert.Equal(t, 126, got.BPM)
	assert.Equal(t, []string{"progressive"}, got.Tags)
	assert.Equal(t, fixedNow, got.DateModified)

	// Caller's slice is not shared.
	tags[0] = "mutated"
	stored, _ := c.Get(1)
	assert.Equal(t, []string{"progressive"}, stored.Tags)
}

func TestUpdate_EmptyPatch(t *testing.T) {
	c := newTestCollection()
	c.Put(&domain.Track{TrackID: 1, Name: "Strobe"})

	got, err := c.Update(1, TrackPatch{})
	require.NoError(t, err)
	assert.True(t, got.DateModified.IsZero())
}

func TestUpdate_NotFound(t *testing.T) {
	c := newTestCollection()
	_, err := c.Update(9, TrackPatch{})
	assert.ErrorIs(t, err, errors.ErrNotFound)
}

func TestDelete(t *testing.T) {
	c := newTestCollection()
	for _, trackID := range []int64{1, 2, 3} {
		c.Put(&domain.Track{TrackID: trackID})
	}

	removed := c.Delete([]int64{2, 2, 99})

	assert.Equal(t, 1, removed)
	assert.Equal(t, []int64{1, 3}, ids(c.All()))
}

func TestGetReturnsCopy(t *testing.T) {
	c := newTestCollection()
	c.Put(&domain.Track{TrackID: 1, Name: "Strobe", Tags: []string{"a"}})

	got, _ := c.Get(1)
	got.Name = "mutated"
	got.Tags[0] = "mutated"

	again, _ := c.Get(1)
	assert.Equal(t, "Strobe", again.Name)
	assert.Equal(t, []string{"a"}, again.Tags)
}

func TestLookup(t *testing.T) {
	c := newTestCollection()
	for _, trackID := range []int64{1, 2, 3} {
		c.Put(&domain.Track{TrackID: trackID})
	}

	assert.Equal(t, []int64{3, 1}, ids(c.Lookup([]int64{3, 7, 1})))
}

func TestDocumentRoundTrip(t *testing.T) {
	c := newTestCollection()
	c.Put(&domain.Track{TrackID: 1, Name: "Strobe"})
	c.Put(&domain.Track{TrackID: 12, Name: "Opus"})

	doc := c.Document()
	require.Len(t, doc.Tracks, 2)
	assert.Equal(t, "Opus", doc.Tracks["12"].Name)

	restored, err := FromDocument(doc)
	require.NoError(t, err)
	assert.Equal(t, c.All(), restored.All())

	next := restored.Add(&domain.Track{Name: "next"})
	assert.Equal(t, int64(13), next.TrackID)
}

func TestFromDocument_Malformed(t *testing.T) {
	tests := []struct {
		name string
		doc  domain.TracksDocument
	}{
		{"non numeric key", domain.TracksDocument{Tracks: map[string]*domain.Track{"abc": {Name: "x"}}}},
		{"mismatched id", domain.TracksDocument{Tracks: map[string]*domain.Track{"1": {TrackID: 2}}}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := FromDocument(tt.doc)
			assert.ErrorIs(t, err, errors.ErrImportMalformed)
		})
	}
}

func TestClone(t *testing.T) {
	c := newTestCollection()
	c.Put(&domain.Track{TrackID: 1, Name: "Strobe"})

	clone := c.Clone()
	clone.Put(&domain.Track{TrackID: 2})
	clone.Delete([]int64{1})

	assert.Equal(t, []int64{1}, ids(c.All()))
	assert.Equal(t, []int64{2}, ids(clone.All()))
}
