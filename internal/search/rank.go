// Package search finds tracks by name and artist.
//
// Rank is the interactive search used while typing: substring matching over
// the simplified artist and name, with word-boundary hits ranked first.
// TrackIndex is a bleve full-text index over a wider set of fields.
package search

import (
	"strings"
	"unicode/utf8"

	"github.com/crateapp/crate-server/internal/domain"
)

// MaxResults caps the number of ids Rank returns.
const MaxResults = 100

// MinQueryLength is the shortest simplified query, in characters, Rank will run.
const MinQueryLength = 2

// TrackSource iterates tracks in a stable order until fn returns false.
type TrackSource interface {
	Each(fn func(*domain.Track) bool)
}

// Rank returns the ids of tracks whose simplified artist or name contains the
// simplified query. Word-boundary matches come first, then mid-word matches;
// each group keeps the source's iteration order.
func Rank(query string, tracks TrackSource) []int64 {
	q := strings.TrimSpace(Simplify(query))
	if utf8.RuneCountInString(q) < MinQueryLength {
		return []int64{}
	}

	var relevant, lessRelevant []int64
	tracks.Each(func(t *domain.Track) bool {
		artistIdx := strings.Index(t.SimplifiedArtist, q)
		nameIdx := strings.Index(t.SimplifiedName, q)
		if artistIdx == -1 && nameIdx == -1 {
			return true
		}

		if atBoundary(t.SimplifiedArtist, artistIdx, len(q)) || atBoundary(t.SimplifiedName, nameIdx, len(q)) {
			relevant = append(relevant, t.TrackID)
		} else {
			lessRelevant = append(lessRelevant, t.TrackID)
		}
		// Stop once boundary matches alone fill the result.
		return len(relevant) < MaxResults
	})

	out := make([]int64, 0, len(relevant)+len(lessRelevant))
	out = append(out, relevant...)
	out = append(out, lessRelevant...)
	if len(out) > MaxResults {
		out = out[:MaxResults]
	}
	return out
}

// atBoundary reports whether the match of length n at idx in s starts the
// string, follows a space, or is followed by a space or comma.
func atBoundary(s string, idx, n int) bool {
	switch {
	case idx == 0:
		return true
	case idx < 0:
		return false
	}
	if s[idx-1] == ' ' {
		return true
	}
	end := idx + n
	return end < len(s) && (s[end] == ' ' || s[end] == ',')
}
