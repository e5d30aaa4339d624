package storage

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryStoreRoundTrip(t *testing.T) {
	store := NewMemoryStore()
	require.NoError(t, store.Init())

	require.NoError(t, store.Set("quota", []byte(`{"used":1}`)))

	value, err := store.Get("quota")
	require.NoError(t, err)
	assert.Equal(t, []byte(`{"used":1}`), value)
}

func TestMemoryStoreMissingKey(t *testing.T) {
	store := NewMemoryStore()

	_, err := store.Get("absent")
	assert.ErrorIs(t, err, ErrKeyNotFound)

	assert.ErrorIs(t, store.Delete("absent"), ErrKeyNotFound)
}

func TestMemoryStoreReturnsCopies(t *testing.T) {
	store := NewMemoryStore()
	original := []byte("abc")
	require.NoError(t, store.Set("k", original))

	original[0] = 'z'
	value, err := store.Get("k")
	require.NoError(t, err)
	assert.Equal(t, []byte("abc"), value)

	value[1] = 'z'
	again, err := store.Get("k")
	require.NoError(t, err)
	assert.Equal(t, []byte("abc"), again)
}

func TestDiskStoreRoundTrip(t *testing.T) {
	store := NewDiskStore(t.TempDir())
	require.NoError(t, store.Init())

	require.NoError(t, store.Set("quota", []byte(`{"used":2,"max":5}`)))

	value, err := store.Get("quota")
	require.NoError(t, err)
	assert.Equal(t, []byte(`{"used":2,"max":5}`), value)
}

func TestDiskStoreSurvivesReopen(t *testing.T) {
	dir := t.TempDir()

	store := NewDiskStore(dir)
	require.NoError(t, store.Init())
	require.NoError(t, store.Set("quota", []byte("persisted")))
	require.NoError(t, store.Close())

	reopened := NewDiskStore(dir)
	require.NoError(t, reopened.Init())

	value, err := reopened.Get("quota")
	require.NoError(t, err)
	assert.Equal(t, []byte("persisted"), value)
}

func TestDiskStoreLeavesNoTempFile(t *testing.T) {
	dir := t.TempDir()
	store := NewDiskStore(dir)
	require.NoError(t, store.Init())

	require.NoError(t, store.Set("quota", []byte("v1")))
	require.NoError(t, store.Set("quota", []byte("v2")))

	entries, err := os.ReadDir(filepath.Join(dir, "kv"))
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "quota.json", entries[0].Name())
}

func TestDiskStoreDelete(t *testing.T) {
	store := NewDiskStore(t.TempDir())
	require.NoError(t, store.Init())
	require.NoError(t, store.Set("quota", []byte("x")))

	require.NoError(t, store.Delete("quota"))

	_, err := store.Get("quota")
	assert.ErrorIs(t, err, ErrKeyNotFound)
	assert.ErrorIs(t, store.Delete("quota"), ErrKeyNotFound)
}

func TestDiskStoreRejectsUnsafeKeys(t *testing.T) {
	store := NewDiskStore(t.TempDir())
	require.NoError(t, store.Init())

	for _, key := range []string{"", "a/b", `a\b`, "a.b", "../escape"} {
		assert.ErrorIs(t, store.Set(key, []byte("x")), ErrInvalidKey, key)

		_, err := store.Get(key)
		assert.ErrorIs(t, err, ErrInvalidKey, key)
	}
}

func TestDiskStoreBackup(t *testing.T) {
	dir := t.TempDir()
	store := NewDiskStore(dir)
	require.NoError(t, store.Init())
	require.NoError(t, store.Set("quota", []byte("saved")))

	require.NoError(t, store.Backup())

	backups, err := os.ReadDir(filepath.Join(dir, "backup"))
	require.NoError(t, err)
	require.Len(t, backups, 1)

	data, err := os.ReadFile(filepath.Join(dir, "backup", backups[0].Name(), "quota.json"))
	require.NoError(t, err)
	assert.Equal(t, []byte("saved"), data)
}
