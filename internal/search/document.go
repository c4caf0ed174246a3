package search

import (
	"github.com/crateapp/crate-server/internal/domain"
)

// trackDocument is the indexed form of a track.
type trackDocument struct {
	ID        string
	Name      string
	Artist    string
	Comments  string
	Tags      []string
	TrackType string
	BPM       int
	TotalTime int64
	DateAdded int64 // Unix millis
}

func newTrackDocument(t *domain.Track) *trackDocument {
	doc := &trackDocument{
		ID:        t.Key(),
		Name:      t.Name,
		Artist:    t.Artist,
		Comments:  t.Comments,
		Tags:      t.Tags,
		TrackType: t.TrackType,
		BPM:       t.BPM,
		TotalTime: t.TotalTime,
	}
	if !t.DateAdded.IsZero() {
		doc.DateAdded = t.DateAdded.UnixMilli()
	}
	return doc
}

// toMap converts the document to a map keyed by the field names of the
// index mapping. Bleve would otherwise use the capitalized struct names.
func (d *trackDocument) toMap() map[string]any {
	m := map[string]any{
		"id":   d.ID,
		"name": d.Name,
	}

	if d.Artist != "" {
		m["artist"] = d.Artist
	}
	if d.Comments != "" {
		m["comments"] = d.Comments
	}
	if len(d.Tags) > 0 {
		m["tags"] = d.Tags
	}
	if d.TrackType != "" {
		m["track_type"] = d.TrackType
	}
	if d.BPM > 0 {
		m["bpm"] = d.BPM
	}
	if d.TotalTime > 0 {
		m["total_time"] = d.TotalTime
	}
	if d.DateAdded > 0 {
		m["date_added"] = d.DateAdded
	}

	return m
}
