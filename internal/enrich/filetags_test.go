package enrich

import (
	"bytes"
	"context"
	"encoding/binary"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// id3v23 builds a minimal ID3v2.3 tag holding the given text frames.
func id3v23(frames map[string]string) []byte {
	var body bytes.Buffer
	for _, id := range []string{"TIT2", "TPE1", "TBPM"} {
		text, ok := frames[id]
		if !ok {
			continue
		}
		payload := append([]byte{0x00}, text...) // ISO-8859-1
		body.WriteString(id)
		_ = binary.Write(&body, binary.BigEndian, uint32(len(payload)))
		body.Write([]byte{0, 0})
		body.Write(payload)
	}

	size := body.Len()
	header := []byte{'I', 'D', '3', 3, 0, 0,
		byte(size >> 21 & 0x7f), byte(size >> 14 & 0x7f), byte(size >> 7 & 0x7f), byte(size & 0x7f)}
	return append(header, body.Bytes()...)
}

func TestFileTags_Lookup(t *testing.T) {
	path := filepath.Join(t.TempDir(), "strobe.mp3")
	data := id3v23(map[string]string{"TIT2": "Strobe", "TPE1": "deadmau5", "TBPM": "128"})
	// Some audio frames after the tag.
	data = append(data, make([]byte, 64)...)
	require.NoError(t, os.WriteFile(path, data, 0o644))

	rec, ok, err := FileTags{}.Lookup(context.Background(), path)
	require.NoError(t, err)
	require.True(t, ok)

	assert.Equal(t, "Strobe", rec.Title)
	assert.Equal(t, "deadmau5", rec.Artist)
	assert.Equal(t, 128, rec.BPM)
	assert.False(t, rec.Modified.IsZero())
}

func TestFileTags_Misses(t *testing.T) {
	dir := t.TempDir()
	plain := filepath.Join(dir, "notes.txt")
	require.NoError(t, os.WriteFile(plain, []byte("not audio at all"), 0o644))

	for _, path := range []string{plain, filepath.Join(dir, "missing.mp3")} {
		_, ok, err := FileTags{}.Lookup(context.Background(), path)
		require.NoError(t, err)
		assert.False(t, ok, path)
	}
}
