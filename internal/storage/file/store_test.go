package file

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWriteAndRead(t *testing.T) {
	s := NewStore()
	path := filepath.Join(t.TempDir(), "data", "conversations.json")

	// Parent directory is created on demand.
	require.NoError(t, s.Write(path, []byte(`[{"id":"1"}]`)))

	data, err := s.Read(path)
	require.NoError(t, err)
	assert.Equal(t, `[{"id":"1"}]`, string(data))
}

func TestWrite_Overwrite(t *testing.T) {
	s := NewStore()
	path := filepath.Join(t.TempDir(), "conversations.json")

	require.NoError(t, s.Write(path, []byte("first")))
	require.NoError(t, s.Write(path, []byte("second")))

	data, err := s.Read(path)
	require.NoError(t, err)
	assert.Equal(t, "second", string(data))
}

func TestWrite_LeavesNoTempFiles(t *testing.T) {
	s := NewStore()
	dir := t.TempDir()
	path := filepath.Join(dir, "conversations.json")

	require.NoError(t, s.Write(path, []byte("data")))

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "conversations.json", entries[0].Name())
}

func TestRead_MissingFile(t *testing.T) {
	s := NewStore()

	_, err := s.Read(filepath.Join(t.TempDir(), "nope.json"))
	assert.Error(t, err)
}
