// Package colortag stores the per-track color labels used for quick visual
// grouping in playlists.
package colortag

import (
	"maps"
	"slices"
	"sync"

	"github.com/crateapp/crate-server/internal/domain"
	"github.com/crateapp/crate-server/internal/errors"
)

// Cycle is the fixed color order. Position 0 stands for "no tag".
var Cycle = []string{"", "red", "orange", "yellow", "green", "mint", "blue"}

// Rank returns the position of color in Cycle. No tag and unknown colors
// rank after every real color.
func Rank(color string) int {
	idx := slices.Index(Cycle, color)
	if idx <= 0 {
		return len(Cycle)
	}
	return idx
}

// Valid reports whether color is a Cycle entry. The empty string is valid and
// means no tag.
func Valid(color string) bool {
	return slices.Contains(Cycle, color)
}

// Next returns the color following color in Cycle, wrapping back to no tag.
func Next(color string) string {
	idx := slices.Index(Cycle, color)
	return Cycle[(idx+1)%len(Cycle)]
}

// Tags maps track ids to colors. Safe for concurrent use.
type Tags struct {
	mu     sync.RWMutex
	colors map[int64]string
}

// New returns an empty tag set.
func New() *Tags {
	return &Tags{colors: make(map[int64]string)}
}

// FromDocument loads tags from their persisted form. Entries with a
// malformed key or an unknown color are dropped.
func FromDocument(doc map[string]string) *Tags {
	t := New()
	for key, color := range doc {
		trackID, err := domain.ParseTrackKey(key)
		if err != nil || color == "" || !Valid(color) {
			continue
		}
		t.colors[trackID] = color
	}
	return t
}

// Get returns the color of a track, or "" when untagged.
func (t *Tags) Get(trackID int64) string {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.colors[trackID]
}

// Set assigns a color to a track. An empty color clears the tag. It reports
// whether anything changed.
func (t *Tags) Set(trackID int64, color string) (bool, error) {
	if !Valid(color) {
		return false, errors.ValidationWithDetails("unknown color",
			map[string]any{"color": color, "allowed": Cycle[1:]})
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	if t.colors[trackID] == color {
		return false, nil
	}
	if color == "" {
		delete(t.colors, trackID)
	} else {
		t.colors[trackID] = color
	}
	return true, nil
}

// Len returns the number of tagged tracks.
func (t *Tags) Len() int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return len(t.colors)
}

// Document returns the persisted form, keyed by decimal track id.
func (t *Tags) Document() map[string]string {
	t.mu.RLock()
	defer t.mu.RUnlock()

	doc := make(map[string]string, len(t.colors))
	for trackID, color := range t.colors {
		doc[domain.TrackKey(trackID)] = color
	}
	return doc
}

// All returns a copy of the track id to color map.
func (t *Tags) All() map[int64]string {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return maps.Clone(t.colors)
}
