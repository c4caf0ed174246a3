package enrich

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleDatabase = `<?xml version="1.0" encoding="UTF-8"?>
<VirtualDJ_Database Version="8.2">
 <Song FilePath="/Music/strobe.mp3" FileSize="1234">
  <Tags Author="deadmau5" Title="Strobe" />
  <Infos SongLength="637.5" FirstSeen="1600000000" />
  <Scan Version="801" Bpm="0.468750" />
  <Comment>long intro</Comment>
 </Song>
 <Song FilePath="/Music/opus.mp3">
  <Tags Author="Eric Prydz" Title="Opus" />
 </Song>
 <Song FilePath="">
  <Tags Title="No Path" />
 </Song>
 <Song FilePath="/Music/broken.mp3">
  <Infos SongLength="abc" />
 </Song>
</VirtualDJ_Database>
`

func TestParseVDJDatabase(t *testing.T) {
	songs, skipped, err := ParseVDJDatabase(strings.NewReader(sampleDatabase))
	require.NoError(t, err)

	assert.Equal(t, 2, skipped)
	require.Len(t, songs, 2)

	strobe := songs["/Music/strobe.mp3"]
	assert.Equal(t, "Strobe", strobe.Title)
	assert.Equal(t, "deadmau5", strobe.Artist)
	assert.Equal(t, 128, strobe.BPM)
	assert.Equal(t, int64(637500), strobe.TotalTime)
	assert.Equal(t, "long intro", strobe.Comment)
	assert.Equal(t, time.Unix(1600000000, 0).UTC(), strobe.FirstSeen)

	opus := songs["/Music/opus.mp3"]
	assert.Equal(t, "Opus", opus.Title)
	assert.Zero(t, opus.BPM)
}

func TestParseVDJDatabase_InvalidXML(t *testing.T) {
	_, _, err := ParseVDJDatabase(strings.NewReader("<VirtualDJ_Database><Song FilePath="))
	assert.Error(t, err)
}

func TestVDJDatabase_Lookup(t *testing.T) {
	path := filepath.Join(t.TempDir(), "database.xml")
	require.NoError(t, os.WriteFile(path, []byte(sampleDatabase), 0o644))

	db, err := OpenVDJDatabase(path, nil)
	require.NoError(t, err)
	assert.Equal(t, 2, db.Len())

	rec, ok, err := db.Lookup(context.Background(), "/Music/strobe.mp3")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "Strobe", rec.Title)

	_, ok, err = db.Lookup(context.Background(), "/music/strobe.mp3")
	require.NoError(t, err)
	assert.False(t, ok, "paths match exactly")
}

func TestVDJDatabase_MissingFile(t *testing.T) {
	_, err := OpenVDJDatabase(filepath.Join(t.TempDir(), "nope.xml"), nil)
	assert.Error(t, err)
}

func TestVDJDatabase_WatchReloads(t *testing.T) {
	path := filepath.Join(t.TempDir(), "database.xml")
	require.NoError(t, os.WriteFile(path, []byte(sampleDatabase), 0o644))

	db, err := OpenVDJDatabase(path, nil)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	watchDone := make(chan error, 1)
	go func() { watchDone <- db.Watch(ctx) }()

	// Give the watcher time to register.
	time.Sleep(50 * time.Millisecond)

	updated := `<VirtualDJ_Database><Song FilePath="/Music/new.mp3"><Tags Title="New" /></Song></VirtualDJ_Database>`
	require.NoError(t, os.WriteFile(path, []byte(updated), 0o644))

	assert.Eventually(t, func() bool {
		_, ok, _ := db.Lookup(context.Background(), "/Music/new.mp3")
		return ok
	}, 3*time.Second, 20*time.Millisecond)
	assert.Equal(t, 1, db.Len())

	cancel()
	require.NoError(t, <-watchDone)
}
