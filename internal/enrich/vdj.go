package enrich

import (
	"context"
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"math"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
)

// reloadDelay lets a burst of writes to the database settle before reloading.
const reloadDelay = 250 * time.Millisecond

// VDJDatabase serves records from a VirtualDJ database.xml file, matched by
// exact file path.
type VDJDatabase struct {
	path   string
	logger *slog.Logger

	mu    sync.RWMutex
	songs map[string]Record
}

// OpenVDJDatabase reads the database at path.
func OpenVDJDatabase(path string, logger *slog.Logger) (*VDJDatabase, error) {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	db := &VDJDatabase{path: filepath.Clean(path), logger: logger}
	if err := db.Reload(); err != nil {
		return nil, err
	}
	return db, nil
}

// Lookup implements Source.
func (d *VDJDatabase) Lookup(_ context.Context, path string) (Record, bool, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	rec, ok := d.songs[path]
	return rec, ok, nil
}

// Len returns the number of songs loaded.
func (d *VDJDatabase) Len() int {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return len(d.songs)
}

// Reload re-reads the database file. On failure the previous contents stay.
func (d *VDJDatabase) Reload() error {
	f, err := os.Open(d.path)
	if err != nil {
		return fmt.Errorf("open vdj database: %w", err)
	}
	defer f.Close()

	songs, skipped, err := ParseVDJDatabase(f)
	if err != nil {
		return fmt.Errorf("parse vdj database: %w", err)
	}

	d.mu.Lock()
	d.songs = songs
	d.mu.Unlock()

	d.logger.Info("vdj database loaded", "path", d.path, "songs", len(songs), "skipped", skipped)
	return nil
}

// Watch reloads the database whenever the file changes. It blocks until ctx
// is cancelled.
func (d *VDJDatabase) Watch(ctx context.Context) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create fsnotify watcher: %w", err)
	}
	defer watcher.Close()

	// Editors and VirtualDJ replace the file, so watch the directory.
	if err := watcher.Add(filepath.Dir(d.path)); err != nil {
		return fmt.Errorf("watch %s: %w", filepath.Dir(d.path), err)
	}

	var timer *time.Timer
	defer func() {
		if timer != nil {
			timer.Stop()
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return nil
		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(event.Name) != d.path || !event.Has(fsnotify.Write|fsnotify.Create) {
				continue
			}
			if timer != nil {
				timer.Stop()
			}
			timer = time.AfterFunc(reloadDelay, func() {
				if err := d.Reload(); err != nil {
					d.logger.Warn("failed to reload vdj database", "error", err)
				}
			})
		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			d.logger.Warn("vdj database watcher error", "error", err)
		}
	}
}

type vdjSong struct {
	FilePath string `xml:"FilePath,attr"`
	Tags     struct {
		Author string `xml:"Author,attr"`
		Title  string `xml:"Title,attr"`
	} `xml:"Tags"`
	Infos struct {
		SongLength string `xml:"SongLength,attr"` // seconds, fractional
		FirstSeen  string `xml:"FirstSeen,attr"`  // Unix seconds
	} `xml:"Infos"`
	Scan struct {
		Bpm string `xml:"Bpm,attr"` // seconds per beat
	} `xml:"Scan"`
	Comment string `xml:"Comment"`
}

var errSkipSong = errors.New("unusable song entry")

// ParseVDJDatabase reads the Song elements of a VirtualDJ database. Songs
// without a file path or with unparseable numbers are skipped and counted.
func ParseVDJDatabase(r io.Reader) (map[string]Record, int, error) {
	songs := make(map[string]Record)
	skipped := 0

	dec := xml.NewDecoder(r)
	for {
		tok, err := dec.Token()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, skipped, err
		}

		start, ok := tok.(xml.StartElement)
		if !ok || start.Name.Local != "Song" {
			continue
		}

		var song vdjSong
		if err := dec.DecodeElement(&song, &start); err != nil {
			return nil, skipped, err
		}
		rec, err := song.record()
		if err != nil {
			skipped++
			continue
		}
		songs[song.FilePath] = rec
	}

	return songs, skipped, nil
}

func (s vdjSong) record() (Record, error) {
	if s.FilePath == "" {
		return Record{}, errSkipSong
	}

	rec := Record{
		Title:   strings.TrimSpace(s.Tags.Title),
		Artist:  strings.TrimSpace(s.Tags.Author),
		Comment: strings.TrimSpace(s.Comment),
	}

	if s.Infos.SongLength != "" {
		secs, err := strconv.ParseFloat(s.Infos.SongLength, 64)
		if err != nil || secs < 0 {
			return Record{}, errSkipSong
		}
		rec.TotalTime = int64(math.Round(secs * 1000))
	}
	if s.Infos.FirstSeen != "" {
		unix, err := strconv.ParseInt(s.Infos.FirstSeen, 10, 64)
		if err != nil {
			return Record{}, errSkipSong
		}
		rec.FirstSeen = time.Unix(unix, 0).UTC()
	}
	if s.Scan.Bpm != "" {
		spb, err := strconv.ParseFloat(s.Scan.Bpm, 64)
		if err != nil || spb < 0 {
			return Record{}, errSkipSong
		}
		if spb > 0 {
			rec.BPM = int(math.Round(60 / spb))
		}
	}

	return rec, nil
}
