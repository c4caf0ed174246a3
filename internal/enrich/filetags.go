package enrich

import (
	"context"
	"errors"
	"fmt"
	"math"
	"os"
	"strconv"
	"strings"

	"github.com/dhowden/tag"
)

// FileTags reads embedded tags (ID3, MP4, FLAC, OGG) from the audio file.
type FileTags struct{}

// bpmKeys are the raw tag names different formats use for tempo.
var bpmKeys = []string{"TBPM", "TBP", "tmpo", "bpm", "BPM"}

// Lookup implements Source. Missing files and files without tags are a
// miss, not an error.
func (FileTags) Lookup(ctx context.Context, path string) (Record, bool, error) {
	if err := ctx.Err(); err != nil {
		return Record{}, false, err
	}

	f, err := os.Open(path)
	if errors.Is(err, os.ErrNotExist) {
		return Record{}, false, nil
	}
	if err != nil {
		return Record{}, false, fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close()

	m, err := tag.ReadFrom(f)
	if err != nil {
		// Unknown formats and corrupt tags both count as no tags.
		return Record{}, false, nil
	}

	rec := Record{
		Title:   strings.TrimSpace(m.Title()),
		Artist:  strings.TrimSpace(m.Artist()),
		Comment: strings.TrimSpace(m.Comment()),
		BPM:     rawBPM(m.Raw()),
	}
	if rec.Artist == "" {
		rec.Artist = strings.TrimSpace(m.AlbumArtist())
	}
	if info, err := f.Stat(); err == nil {
		rec.Modified = info.ModTime().UTC()
	}

	return rec, !rec.IsZero(), nil
}

func rawBPM(raw map[string]any) int {
	for _, key := range bpmKeys {
		switch v := raw[key].(type) {
		case string:
			if f, err := strconv.ParseFloat(strings.TrimSpace(v), 64); err == nil && f > 0 {
				return int(math.Round(f))
			}
		case int:
			if v > 0 {
				return v
			}
		}
	}
	return 0
}
