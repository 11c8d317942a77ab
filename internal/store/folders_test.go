package store

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/commons-systems/photovault/internal/sync"
)

func newFolder(path string) *sync.WatchFolder {
	return &sync.WatchFolder{
		Path:              path,
		DisplayName:       path,
		Enabled:           true,
		IncludeSubfolders: true,
		AddedAt:           time.Now(),
	}
}

func TestFolderStore_AddAndList(t *testing.T) {
	ctx := context.Background()
	folders := NewFolderStore(setupDB(t))

	f := newFolder("/photos/camera")
	require.NoError(t, folders.Add(ctx, f))
	assert.NotZero(t, f.ID)

	list, err := folders.List(ctx)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, "/photos/camera", list[0].Path)
	assert.True(t, list[0].Enabled)
	assert.True(t, list[0].IncludeSubfolders)
	assert.Nil(t, list[0].LastScanAt)
}

func TestFolderStore_Add_DuplicatePathRejected(t *testing.T) {
	ctx := context.Background()
	folders := NewFolderStore(setupDB(t))

	require.NoError(t, folders.Add(ctx, newFolder("/photos/camera")))
	err := folders.Add(ctx, newFolder("/photos/camera"))
	assert.Error(t, err)
}

func TestFolderStore_Enabled(t *testing.T) {
	ctx := context.Background()
	folders := NewFolderStore(setupDB(t))

	on := newFolder("/photos/on")
	require.NoError(t, folders.Add(ctx, on))

	off := newFolder("/photos/off")
	off.Enabled = false
	require.NoError(t, folders.Add(ctx, off))

	enabled, err := folders.Enabled(ctx)
	require.NoError(t, err)
	require.Len(t, enabled, 1)
	assert.Equal(t, "/photos/on", enabled[0].Path)
}

func TestFolderStore_SetEnabled(t *testing.T) {
	ctx := context.Background()
	folders := NewFolderStore(setupDB(t))

	f := newFolder("/photos/camera")
	require.NoError(t, folders.Add(ctx, f))

	require.NoError(t, folders.SetEnabled(ctx, f.ID, false))

	enabled, err := folders.Enabled(ctx)
	require.NoError(t, err)
	assert.Empty(t, enabled)

	require.NoError(t, folders.SetEnabled(ctx, f.ID, true))
	enabled, err = folders.Enabled(ctx)
	require.NoError(t, err)
	assert.Len(t, enabled, 1)
}

func TestFolderStore_SetIncludeSubfolders(t *testing.T) {
	ctx := context.Background()
	folders := NewFolderStore(setupDB(t))

	f := newFolder("/photos/camera")
	require.NoError(t, folders.Add(ctx, f))

	require.NoError(t, folders.SetIncludeSubfolders(ctx, f.ID, false))

	list, err := folders.List(ctx)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.False(t, list[0].IncludeSubfolders)

	require.NoError(t, folders.SetIncludeSubfolders(ctx, f.ID, true))
	list, err = folders.List(ctx)
	require.NoError(t, err)
	assert.True(t, list[0].IncludeSubfolders)

	assert.ErrorIs(t, folders.SetIncludeSubfolders(ctx, 999, true), sync.ErrNotFound)
}

func TestFolderStore_TouchScanTime(t *testing.T) {
	ctx := context.Background()
	folders := NewFolderStore(setupDB(t))

	f := newFolder("/photos/camera")
	require.NoError(t, folders.Add(ctx, f))

	at := time.Now()
	require.NoError(t, folders.TouchScanTime(ctx, f.ID, at))

	list, err := folders.List(ctx)
	require.NoError(t, err)
	require.Len(t, list, 1)
	require.NotNil(t, list[0].LastScanAt)
	assert.Equal(t, at.UnixMilli(), list[0].LastScanAt.UnixMilli())
}

func TestFolderStore_Delete(t *testing.T) {
	ctx := context.Background()
	db := setupDB(t)
	folders := NewFolderStore(db)
	records := NewRecordStore(db)

	f := newFolder("/photos/camera")
	require.NoError(t, folders.Add(ctx, f))

	// A record discovered through the folder survives its deletion.
	rec := newRecord("aaa")
	_, err := records.Insert(ctx, rec)
	require.NoError(t, err)

	require.NoError(t, folders.Delete(ctx, f.ID))

	list, err := folders.List(ctx)
	require.NoError(t, err)
	assert.Empty(t, list)

	_, err = records.Get(ctx, rec.ID)
	assert.NoError(t, err)
}

func TestFolderStore_UpdateMissingFolder(t *testing.T) {
	ctx := context.Background()
	folders := NewFolderStore(setupDB(t))

	assert.ErrorIs(t, folders.SetEnabled(ctx, 999, true), sync.ErrNotFound)
	assert.ErrorIs(t, folders.Delete(ctx, 999), sync.ErrNotFound)
}
