// Package tracks holds the flat track collection.
package tracks

import (
	"slices"
	"time"

	"github.com/crateapp/crate-server/internal/domain"
	"github.com/crateapp/crate-server/internal/errors"
	"github.com/crateapp/crate-server/internal/search"
)

// Collection maps track ids to tracks and iterates them in ascending id order.
// It is not safe for concurrent use.
type Collection struct {
	byID   map[int64]*domain.Track
	order  []int64 // ascending
	nextID int64
	now    func() time.Time
}

// New returns an empty collection.
func New() *Collection {
	return &Collection{
		byID:   make(map[int64]*domain.Track),
		nextID: 1,
		now:    time.Now,
	}
}

// FromDocument builds a collection from its persisted form.
func FromDocument(doc domain.TracksDocument) (*Collection, error) {
	c := New()
	for key, t := range doc.Tracks {
		if t == nil {
			continue
		}
		trackID, err := domain.ParseTrackKey(key)
		if err != nil {
			return nil, errors.ImportMalformedf("track key %q is not a number", key)
		}
		if t.TrackID != 0 && t.TrackID != trackID {
			return nil, errors.ImportMalformedf("track key %q holds track %d", key, t.TrackID)
		}
		stored := t.Clone()
		stored.TrackID = trackID
		c.Put(stored)
	}
	return c, nil
}

// Len returns the number of tracks.
func (c *Collection) Len() int {
	return len(c.order)
}

// Get returns a copy of the track with the given id.
func (c *Collection) Get(trackID int64) (*domain.Track, bool) {
	t, ok := c.byID[trackID]
	if !ok {
		return nil, false
	}
	return t.Clone(), true
}

// Has reports whether the collection holds trackID.
func (c *Collection) Has(trackID int64) bool {
	_, ok := c.byID[trackID]
	return ok
}

// Each calls fn for every track in ascending id order until fn returns false.
// fn must not modify the track or the collection.
func (c *Collection) Each(fn func(*domain.Track) bool) {
	for _, trackID := range c.order {
		if !fn(c.byID[trackID]) {
			return
		}
	}
}

// All returns copies of every track in ascending id order.
func (c *Collection) All() []*domain.Track {
	out := make([]*domain.Track, 0, len(c.order))
	for _, trackID := range c.order {
		out = append(out, c.byID[trackID].Clone())
	}
	return out
}

// Lookup returns copies of the tracks with the given ids, in the given
// order. Ids without a track are skipped.
func (c *Collection) Lookup(trackIDs []int64) []*domain.Track {
	out := make([]*domain.Track, 0, len(trackIDs))
	for _, trackID := range trackIDs {
		if t, ok := c.byID[trackID]; ok {
			out = append(out, t.Clone())
		}
	}
	return out
}

// Put inserts or replaces a track under its own id and refreshes its search
// keys. The collection keeps a copy.
func (c *Collection) Put(t *domain.Track) {
	stored := t.Clone()
	simplify(stored)

	if _, exists := c.byID[stored.TrackID]; !exists {
		i, _ := slices.BinarySearch(c.order, stored.TrackID)
		c.order = slices.Insert(c.order, i, stored.TrackID)
	}
	c.byID[stored.TrackID] = stored
	if stored.TrackID >= c.nextID {
		c.nextID = stored.TrackID + 1
	}
}

// Add stores t under the next free id and returns the stored copy.
func (c *Collection) Add(t *domain.Track) *domain.Track {
	stored := t.Clone()
	stored.TrackID = c.nextID
	if stored.DateAdded.IsZero() {
		stored.DateAdded = c.now().UTC()
	}
	c.Put(stored)
	return c.byID[stored.TrackID].Clone()
}

// Update applies a metadata patch and returns the updated copy.
func (c *Collection) Update(trackID int64, patch TrackPatch) (*domain.Track, error) {
	t, ok := c.byID[trackID]
	if !ok {
		return nil, errors.NotFoundf("track %d not found", trackID)
	}
	if patch.IsEmpty() {
		return t.Clone(), nil
	}

	patch.apply(t)
	t.DateModified = c.now().UTC()
	simplify(t)
	return t.Clone(), nil
}

// Delete removes the given tracks and returns how many existed. Playlists
// referencing them are left alone.
func (c *Collection) Delete(trackIDs []int64) int {
	removed := 0
	for _, trackID := range trackIDs {
		if _, ok := c.byID[trackID]; !ok {
			continue
		}
		delete(c.byID, trackID)
		if i, found := slices.BinarySearch(c.order, trackID); found {
			c.order = slices.Delete(c.order, i, i+1)
		}
		removed++
	}
	return removed
}

// Clone returns a deep copy of the collection.
func (c *Collection) Clone() *Collection {
	out := &Collection{
		byID:   make(map[int64]*domain.Track, len(c.byID)),
		order:  slices.Clone(c.order),
		nextID: c.nextID,
		now:    c.now,
	}
	for trackID, t := range c.byID {
		out.byID[trackID] = t.Clone()
	}
	return out
}

// Document returns the persisted form of the collection.
func (c *Collection) Document() domain.TracksDocument {
	doc := domain.TracksDocument{Tracks: make(map[string]*domain.Track, len(c.byID))}
	for _, t := range c.byID {
		doc.Tracks[t.Key()] = t.Clone()
	}
	return doc
}

func simplify(t *domain.Track) {
	t.SimplifiedName = search.Simplify(t.Name)
	t.SimplifiedArtist = search.Simplify(t.Artist)
}
