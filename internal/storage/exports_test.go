// exports_test.go - Tests for the export file store
package storage

import (
	"os"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func createExportStore(t *testing.T) *LocalStore {
	t.Helper()
	store, err := NewLocalStore(t.TempDir())
	require.NoError(t, err)
	return store
}

func TestLocalStore_SaveAndGet(t *testing.T) {
	store := createExportStore(t)

	info, err := store.Save("7", "sala-7.png", strings.NewReader("png-bytes"))
	require.NoError(t, err)
	assert.Equal(t, "7", info.MapID)
	assert.Equal(t, int64(9), info.Size)

	got, err := store.Get(info.ID)
	require.NoError(t, err)
	assert.Equal(t, info, got)

	path, err := store.GetFilePath(info.ID)
	require.NoError(t, err)
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "png-bytes", string(data))

	_, err = store.Get("missing")
	assert.Error(t, err)
}

func TestLocalStore_List(t *testing.T) {
	store := createExportStore(t)
	for i := 0; i < 3; i++ {
		_, err := store.Save("1", "x.png", strings.NewReader("x"))
		require.NoError(t, err)
		time.Sleep(2 * time.Millisecond)
	}

	all, err := store.List(0)
	require.NoError(t, err)
	require.Len(t, all, 3)
	assert.True(t, all[0].CreatedAt.After(all[2].CreatedAt), "newest first")

	limited, err := store.List(2)
	require.NoError(t, err)
	assert.Len(t, limited, 2)
}

func TestLocalStore_Delete(t *testing.T) {
	store := createExportStore(t)
	info, err := store.Save("1", "x.png", strings.NewReader("x"))
	require.NoError(t, err)
	path, _ := store.GetFilePath(info.ID)

	require.NoError(t, store.Delete(info.ID))
	_, err = os.Stat(path)
	assert.True(t, os.IsNotExist(err))
	assert.Error(t, store.Delete(info.ID))
}

func TestLocalStore_ScansExistingExports(t *testing.T) {
	dir := t.TempDir()
	first, err := NewLocalStore(dir)
	require.NoError(t, err)
	info, err := first.Save("1", "x.png", strings.NewReader("abc"))
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(dir+"/notes.txt", []byte("ignored"), 0644))

	second, err := NewLocalStore(dir)
	require.NoError(t, err)
	got, err := second.Get(info.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(3), got.Size)
	list, _ := second.List(0)
	assert.Len(t, list, 1)
}
