package tracksort

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/crateapp/crate-server/internal/domain"
)

type tagMap map[int64]string

func (m tagMap) Get(trackID int64) string { return m[trackID] }

func sample() []*domain.Track {
	return []*domain.Track{
		{TrackID: 1, Name: "beta", Artist: "Zed", BPM: 128, TotalTime: 300},
		{TrackID: 2, Name: "Alpha", Artist: "amber", BPM: 122, TotalTime: 420},
		{TrackID: 3, Name: "gamma", Artist: "Zed", BPM: 128, TotalTime: 180},
		{TrackID: 4, Name: "", Artist: "", BPM: 0, TotalTime: 0, Comments: "warmup"},
	}
}

func trackIDs(tracks []*domain.Track) []int64 {
	out := make([]int64, len(tracks))
	for i, t := range tracks {
		out[i] = t.TrackID
	}
	return out
}

func TestSort_Unsorted(t *testing.T) {
	tracks := sample()

	for _, tt := range []struct {
		name   string
		column Column
		dir    Direction
	}{
		{"direction zero", ColumnTitle, Unsorted},
		{"no column", "", Ascending},
		{"unknown column", "genre", Ascending},
	} {
		t.Run(tt.name, func(t *testing.T) {
			got := Sort(tracks, tt.column, tt.dir, nil)
			assert.Equal(t, tracks, got)
			assert.Same(t, &tracks[0], &got[0], "input returned as is")
		})
	}
}

func TestSort_Columns(t *testing.T) {
	tags := tagMap{1: "blue", 2: "red", 4: "yellow"}

	tests := []struct {
		name   string
		column Column
		dir    Direction
		want   []int64
	}{
		{"num asc", ColumnNum, Ascending, []int64{1, 2, 3, 4}},
		{"num desc", ColumnNum, Descending, []int64{4, 3, 2, 1}},
		{"bpm asc is stable", ColumnBPM, Ascending, []int64{4, 2, 1, 3}},
		{"bpm desc is stable", ColumnBPM, Descending, []int64{1, 3, 2, 4}},
		{"time asc", ColumnTime, Ascending, []int64{4, 3, 1, 2}},
		{"title asc ignores case first", ColumnTitle, Ascending, []int64{4, 2, 1, 3}},
		{"title desc", ColumnTitle, Descending, []int64{3, 1, 2, 4}},
		{"artist asc", ColumnArtist, Ascending, []int64{4, 2, 1, 3}},
		{"comments asc", ColumnComments, Ascending, []int64{1, 2, 3, 4}},
		{"tag asc", ColumnTag, Ascending, []int64{2, 4, 1, 3}},
		{"tag desc keeps untagged last", ColumnTag, Descending, []int64{1, 4, 2, 3}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tracks := sample()
			got := Sort(tracks, tt.column, tt.dir, tags)
			assert.Equal(t, tt.want, trackIDs(got))
			assert.Equal(t, []int64{1, 2, 3, 4}, trackIDs(tracks), "input left untouched")
		})
	}
}

func TestSort_TagWithoutLookup(t *testing.T) {
	got := Sort(sample(), ColumnTag, Descending, nil)
	assert.Equal(t, []int64{1, 2, 3, 4}, trackIDs(got))
}

func TestSort_NumUsesInputPosition(t *testing.T) {
	tracks := []*domain.Track{{TrackID: 9}, {TrackID: 3}, {TrackID: 5}}

	got := Sort(tracks, ColumnNum, Descending, nil)

	assert.Equal(t, []int64{5, 3, 9}, trackIDs(got))
}

func TestNextDirection(t *testing.T) {
	assert.Equal(t, Descending, NextDirection(Ascending))
	assert.Equal(t, Ascending, NextDirection(Descending))
	assert.Equal(t, Ascending, NextDirection(Unsorted))
}
