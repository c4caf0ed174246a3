// Package enrich fills missing track metadata from external sources such as
// a DJ software database or the audio file's own tags.
package enrich

import (
	"context"
	"net/url"
	"strings"
	"time"

	"github.com/crateapp/crate-server/internal/domain"
)

// Record is what a source knows about one file. Zero fields are unknown.
type Record struct {
	Title     string
	Artist    string
	BPM       int
	TotalTime int64 // milliseconds
	Comment   string
	FirstSeen time.Time
	Modified  time.Time
}

// IsZero reports whether the record carries nothing.
func (r Record) IsZero() bool {
	return r == Record{}
}

// Source looks up metadata by local file path. ok is false when the source
// has nothing for path.
type Source interface {
	Lookup(ctx context.Context, path string) (rec Record, ok bool, err error)
}

// Chain asks each source in turn; the first hit wins.
type Chain []Source

// Lookup implements Source.
func (c Chain) Lookup(ctx context.Context, path string) (Record, bool, error) {
	for _, src := range c {
		rec, ok, err := src.Lookup(ctx, path)
		if err != nil {
			return Record{}, false, err
		}
		if ok {
			return rec, true, nil
		}
	}
	return Record{}, false, nil
}

// Apply copies record fields into t where t has no value yet and reports
// whether anything changed. Fields already set on t are never overwritten.
func Apply(t *domain.Track, rec Record) bool {
	changed := false
	if t.Name == "" && rec.Title != "" {
		t.Name = rec.Title
		changed = true
	}
	if t.Artist == "" && rec.Artist != "" {
		t.Artist = rec.Artist
		changed = true
	}
	if t.BPM == 0 && rec.BPM > 0 {
		t.BPM = rec.BPM
		changed = true
	}
	if t.TotalTime == 0 && rec.TotalTime > 0 {
		t.TotalTime = rec.TotalTime
		changed = true
	}
	if t.Comments == "" && rec.Comment != "" {
		t.Comments = rec.Comment
		changed = true
	}
	if t.DateAdded.IsZero() && !rec.FirstSeen.IsZero() {
		t.DateAdded = rec.FirstSeen
		changed = true
	}
	if t.DateModified.IsZero() && !rec.Modified.IsZero() {
		t.DateModified = rec.Modified
		changed = true
	}
	return changed
}

// LocalPath turns a track location into a file system path. Locations may be
// plain paths or file:// URLs as written by library exports.
func LocalPath(location string) string {
	if !strings.HasPrefix(location, "file://") {
		return location
	}
	u, err := url.Parse(location)
	if err != nil {
		return location
	}
	path := u.Path
	// file://localhost/C:/Music/x.mp3 style URLs carry a drive letter.
	if len(path) >= 3 && path[0] == '/' && path[2] == ':' {
		path = path[1:]
	}
	return path
}
