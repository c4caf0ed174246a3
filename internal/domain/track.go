// Package domain contains the core entities of the music library: tracks, the
// folder/playlist tree, its path index and persisted snapshot documents.
package domain

import (
	"strconv"
	"time"
)

// Track is a single entry of the flat track collection.
// Playlists reference tracks by TrackID without any integrity check.
type Track struct {
	TrackID      int64     `json:"trackId"`
	Name         string    `json:"name"`
	Artist       string    `json:"artist,omitempty"`
	TotalTime    int64     `json:"totalTime,omitempty"` // milliseconds
	BPM          int       `json:"bpm,omitempty"`       // 0 = unknown
	Tags         []string  `json:"tags,omitempty"`
	DateAdded    time.Time `json:"dateAdded,omitzero"`
	DateModified time.Time `json:"dateModified,omitzero"`
	Comments     string    `json:"comments,omitempty"`
	PersistentID string    `json:"persistentId,omitempty"`
	TrackType    string    `json:"trackType,omitempty"`
	Location     string    `json:"location,omitempty"`

	// Search keys, derived from Name and Artist by the track collection.
	SimplifiedName   string `json:"simplifiedName,omitempty"`
	SimplifiedArtist string `json:"simplifiedArtist,omitempty"`
}

// Key returns the track id in the string form used as a document map key.
func (t *Track) Key() string {
	return TrackKey(t.TrackID)
}

// Clone returns a copy of the track that shares no slices with t.
func (t *Track) Clone() *Track {
	c := *t
	if t.Tags != nil {
		c.Tags = append([]string(nil), t.Tags...)
	}
	return &c
}

// TrackKey formats a track id as a document map key.
func TrackKey(trackID int64) string {
	return strconv.FormatInt(trackID, 10)
}

// ParseTrackKey is the inverse of TrackKey.
func ParseTrackKey(key string) (int64, error) {
	return strconv.ParseInt(key, 10, 64)
}
