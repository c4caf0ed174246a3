// Package tracksort orders track lists by a display column.
package tracksort

import (
	"cmp"
	"slices"

	"golang.org/x/text/collate"
	"golang.org/x/text/language"

	"github.com/crateapp/crate-server/internal/colortag"
	"github.com/crateapp/crate-server/internal/domain"
)

// Column names a sortable track list column.
type Column string

// Sortable columns.
const (
	ColumnNum      Column = "num"
	ColumnTag      Column = "tag"
	ColumnBPM      Column = "bpm"
	ColumnTitle    Column = "title"
	ColumnTime     Column = "time"
	ColumnArtist   Column = "artist"
	ColumnComments Column = "comments"
)

// Columns lists every sortable column.
var Columns = []Column{ColumnNum, ColumnTag, ColumnBPM, ColumnTitle, ColumnTime, ColumnArtist, ColumnComments}

// Valid reports whether c is a known column.
func (c Column) Valid() bool {
	return slices.Contains(Columns, c)
}

// Direction is 1 for ascending, -1 for descending and 0 for unsorted.
type Direction int

// Sort directions.
const (
	Unsorted   Direction = 0
	Ascending  Direction = 1
	Descending Direction = -1
)

// NextDirection toggles between ascending and descending. Anything other
// than ascending becomes ascending.
func NextDirection(d Direction) Direction {
	if d == Ascending {
		return Descending
	}
	return Ascending
}

// TagLookup resolves the color tag of a track; "" means untagged.
type TagLookup interface {
	Get(trackID int64) string
}

type indexed struct {
	track *domain.Track
	i     int
}

// Sort returns tracks ordered by column in direction. With no column, an
// unknown column, or direction 0 it returns tracks itself. Otherwise the
// result is a new slice and equal keys keep their input order.
//
// The num column orders by input position. Untagged tracks sort after tagged
// ones in both directions. tags may be nil, in which case every track is
// untagged.
func Sort(tracks []*domain.Track, column Column, direction Direction, tags TagLookup) []*domain.Track {
	if direction == Unsorted || !column.Valid() {
		return tracks
	}
	dir := 1
	if direction < 0 {
		dir = -1
	}

	items := make([]indexed, len(tracks))
	for i, t := range tracks {
		items[i] = indexed{track: t, i: i}
	}

	var compare func(a, b indexed) int
	switch column {
	case ColumnNum:
		compare = func(a, b indexed) int { return dir * cmp.Compare(a.i, b.i) }
	case ColumnTag:
		last := len(colortag.Cycle)
		rank := func(t *domain.Track) int {
			if tags == nil {
				return last
			}
			return colortag.Rank(tags.Get(t.TrackID))
		}
		compare = func(a, b indexed) int {
			ra, rb := rank(a.track), rank(b.track)
			switch {
			case ra == last && rb == last:
				return 0
			case ra == last:
				return 1
			case rb == last:
				return -1
			}
			return dir * cmp.Compare(ra, rb)
		}
	case ColumnBPM:
		compare = func(a, b indexed) int { return dir * cmp.Compare(a.track.BPM, b.track.BPM) }
	case ColumnTime:
		compare = func(a, b indexed) int { return dir * cmp.Compare(a.track.TotalTime, b.track.TotalTime) }
	case ColumnTitle, ColumnArtist, ColumnComments:
		field := stringField(column)
		collator := collate.New(language.English)
		compare = func(a, b indexed) int {
			return dir * collator.CompareString(field(a.track), field(b.track))
		}
	}

	slices.SortStableFunc(items, compare)

	out := make([]*domain.Track, len(items))
	for i, item := range items {
		out[i] = item.track
	}
	return out
}

func stringField(column Column) func(*domain.Track) string {
	switch column {
	case ColumnArtist:
		return func(t *domain.Track) string { return t.Artist }
	case ColumnComments:
		return func(t *domain.Track) string { return t.Comments }
	default:
		return func(t *domain.Track) string { return t.Name }
	}
}
