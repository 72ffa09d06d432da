package store

import (
	"testing"

	"github.com/go-git/go-billy/v5/memfs"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/agentic-research/imgstore/internal/format"
)

func TestFilename(t *testing.T) {
	id := uuid.MustParse("0102030405060708090a0b0c0d0e0f10")
	assert.Equal(t, "0102030405060708090a0b0c0d0e0f10.png", Filename(id, format.PNG))
	assert.Equal(t, "0102030405060708090a0b0c0d0e0f10.webp", Filename(id, format.WEBP))
}

func TestBlobsWriteReadRemove(t *testing.T) {
	fs := memfs.New()
	b := NewBlobs(fs)
	name := Filename(uuid.New(), format.PNG)

	require.NoError(t, b.Write(name, []byte("first")))

	got, err := b.Read(name)
	require.NoError(t, err)
	assert.Equal(t, []byte("first"), got)

	// Overwrite replaces the content wholesale.
	require.NoError(t, b.Write(name, []byte("second")))
	got, err = b.Read(name)
	require.NoError(t, err)
	assert.Equal(t, []byte("second"), got)

	require.NoError(t, b.Remove(name))
	_, err = b.Read(name)
	assert.Error(t, err)

	// Removing an already-gone file is fine.
	require.NoError(t, b.Remove(name))
}

func TestBlobsExists(t *testing.T) {
	b := NewBlobs(memfs.New())
	name := Filename(uuid.New(), format.JPG)

	ok, err := b.Exists(name)
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, b.Write(name, []byte{0xff}))

	ok, err = b.Exists(name)
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestBlobsWriteLeavesNoTempFiles(t *testing.T) {
	fs := memfs.New()
	b := NewBlobs(fs)

	require.NoError(t, b.Write(Filename(uuid.New(), format.PNG), []byte("x")))
	require.NoError(t, b.Write(Filename(uuid.New(), format.JPG), []byte("y")))

	entries, err := fs.ReadDir("/")
	require.NoError(t, err)
	assert.Len(t, entries, 2)
	for _, e := range entries {
		assert.NotContains(t, e.Name(), ".tmp-")
	}
}
