package batch

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"llmbatch/internal/config"
)

func TestStore_LoadMissingReturnsNilRecord(t *testing.T) {
	store := NewStore(t.TempDir())
	rec, err := store.Load("deadbeef")
	require.NoError(t, err)
	assert.Nil(t, rec)
}

func TestStore_SaveThenLoadRoundTrips(t *testing.T) {
	dir := t.TempDir()
	store := NewStore(dir)
	target := filepath.Join(dir, "out.txt")

	rec := config.Defaults()
	rec.ChunkIndex = 2
	require.NoError(t, store.Save("fp1", target, rec, "batch one"))

	got, err := store.Load("fp1")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, 2, got.ChunkIndex)

	data, err := os.ReadFile(target)
	require.NoError(t, err)
	assert.Equal(t, "batch one", string(data))
}

func TestStore_SaveAppendsWithBlankLineSeparator(t *testing.T) {
	dir := t.TempDir()
	store := NewStore(dir)
	target := filepath.Join(dir, "out.txt")

	rec := config.Defaults()
	require.NoError(t, store.Save("fp1", target, rec, "first"))
	require.NoError(t, store.Save("fp1", target, rec, "second"))

	data, err := os.ReadFile(target)
	require.NoError(t, err)
	assert.Equal(t, "first\n\nsecond", string(data))
}

func TestStore_SaveSkipsSeparatorWhenAlreadyBlank(t *testing.T) {
	dir := t.TempDir()
	target := filepath.Join(dir, "out.txt")
	require.NoError(t, os.WriteFile(target, []byte("existing\n\n"), 0o644))

	store := NewStore(dir)
	rec := config.Defaults()
	require.NoError(t, store.Save("fp1", target, rec, "next"))

	data, err := os.ReadFile(target)
	require.NoError(t, err)
	assert.Equal(t, "existing\n\nnext", string(data))
}

func TestStore_DeleteMissingReturnsErrNotFound(t *testing.T) {
	store := NewStore(t.TempDir())
	err := store.Delete("nope")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestStore_DeleteRemovesRecord(t *testing.T) {
	dir := t.TempDir()
	store := NewStore(dir)
	rec := config.Defaults()
	require.NoError(t, store.Save("fp1", filepath.Join(dir, "out.txt"), rec, ""))

	require.NoError(t, store.Delete("fp1"))
	got, err := store.Load("fp1")
	require.NoError(t, err)
	assert.Nil(t, got)
}
