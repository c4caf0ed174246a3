package tracks

import (
	"slices"

	"github.com/crateapp/crate-server/internal/domain"
)

// TrackPatch is a partial metadata edit. Nil fields are left unchanged.
type TrackPatch struct {
	Name      *string   `json:"name,omitempty"`
	Artist    *string   `json:"artist,omitempty"`
	TotalTime *int64    `json:"totalTime,omitempty" validate:"omitempty,gte=0"`
	BPM       *int      `json:"bpm,omitempty" validate:"omitempty,gte=0,lte=999"`
	Tags      *[]string `json:"tags,omitempty"`
	Comments  *string   `json:"comments,omitempty"`
	TrackType *string   `json:"trackType,omitempty"`
	Location  *string   `json:"location,omitempty"`
}

// IsEmpty reports whether the patch changes nothing.
func (p TrackPatch) IsEmpty() bool {
	return p.Name == nil && p.Artist == nil && p.TotalTime == nil && p.BPM == nil &&
		p.Tags == nil && p.Comments == nil && p.TrackType == nil && p.Location == nil
}

func (p TrackPatch) apply(t *domain.Track) {
	if p.Name != nil {
		t.Name = *p.Name
	}
	if p.Artist != nil {
		t.Artist = *p.Artist
	}
	if p.TotalTime != nil {
		t.TotalTime = *p.TotalTime
	}
	if p.BPM != nil {
		t.BPM = *p.BPM
	}
	if p.Tags != nil {
		t.Tags = slices.Clone(*p.Tags)
	}
	if p.Comments != nil {
		t.Comments = *p.Comments
	}
	if p.TrackType != nil {
		t.TrackType = *p.TrackType
	}
	if p.Location != nil {
		t.Location = *p.Location
	}
}
