package id

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewNodeID_Uniqueness(t *testing.T) {
	ids := make(map[string]bool)
	count := 1000

	for i := 0; i < count; i++ {
		id, err := NewNodeID()
		require.NoError(t, err)
		assert.False(t, ids[id], "ID should be unique: %s", id)
		ids[id] = true
	}

	assert.Len(t, ids, count)
}

func TestNewNodeID_Format(t *testing.T) {
	fixed := time.UnixMilli(0x18F3A2B4C10)
	now = func() time.Time { return fixed }
	t.Cleanup(func() { now = time.Now })

	id, err := NewNodeID()
	require.NoError(t, err)

	assert.True(t, strings.HasPrefix(id, "18F3A2B4C10"), "ID: %s", id)
	assert.Len(t, id, len("18F3A2B4C10")+suffixLength)
	for _, char := range id {
		assert.True(t, strings.ContainsRune(hexAlphabet, char), "Character %c should be upper-case hex", char)
	}
}

func TestNewNodeID_SortsByCreationTime(t *testing.T) {
	t.Cleanup(func() { now = time.Now })

	now = func() time.Time { return time.UnixMilli(0x18F3A2B4C10) }
	earlier := MustNewNodeID()

	now = func() time.Time { return time.UnixMilli(0x18F3A2B4C11) }
	later := MustNewNodeID()

	assert.Less(t, earlier, later)
}

func TestGenerate_Format(t *testing.T) {
	tests := []struct {
		name   string
		prefix string
	}{
		{"sse client", "sse"},
		{"import", "imp"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			id, err := Generate(tt.prefix)
			require.NoError(t, err)

			assert.True(t, strings.HasPrefix(id, tt.prefix+"-"))
			// NanoID default is 21 characters.
			assert.Equal(t, len(tt.prefix)+1+21, len(id), "ID: %s", id)
		})
	}
}

func BenchmarkNewNodeID(b *testing.B) {
	for i := 0; i < b.N; i++ {
		_, _ = NewNodeID()
	}
}
