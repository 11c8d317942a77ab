package store

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/commons-systems/photovault/internal/sync"
)

// setupDB opens an in-memory database with the schema applied. The pool is
// pinned to one connection so every query sees the same memory database.
func setupDB(t *testing.T) *sql.DB {
	t.Helper()

	db, err := Open(":memory:")
	require.NoError(t, err)
	db.SetMaxOpenConns(1)
	require.NoError(t, Init(db))

	t.Cleanup(func() { db.Close() })
	return db
}

func newRecord(fingerprint string) *sync.FileRecord {
	return &sync.FileRecord{
		SourcePath:  "/photos/" + fingerprint + ".jpg",
		DisplayName: fingerprint + ".jpg",
		Fingerprint: fingerprint,
		FileSize:    1024,
		MimeType:    "image/jpeg",
		Status:      sync.StatusPending,
		CreatedAt:   time.Now(),
	}
}

func TestRecordStore_Insert(t *testing.T) {
	ctx := context.Background()
	records := NewRecordStore(setupDB(t))

	rec := newRecord("aaa")
	inserted, err := records.Insert(ctx, rec)
	require.NoError(t, err)
	assert.True(t, inserted)
	assert.NotZero(t, rec.ID)

	got, err := records.Get(ctx, rec.ID)
	require.NoError(t, err)
	assert.Equal(t, rec.SourcePath, got.SourcePath)
	assert.Equal(t, rec.Fingerprint, got.Fingerprint)
	assert.Equal(t, sync.StatusPending, got.Status)
	assert.Nil(t, got.UploadedAt)
}

func TestRecordStore_Insert_DuplicateFingerprintIsNoOp(t *testing.T) {
	ctx := context.Background()
	records := NewRecordStore(setupDB(t))

	first := newRecord("aaa")
	inserted, err := records.Insert(ctx, first)
	require.NoError(t, err)
	require.True(t, inserted)

	// Same content under a different path and name.
	dup := newRecord("aaa")
	dup.SourcePath = "/elsewhere/copy.jpg"
	dup.DisplayName = "copy.jpg"

	inserted, err = records.Insert(ctx, dup)
	require.NoError(t, err)
	assert.False(t, inserted)

	exists, err := records.ExistsByFingerprint(ctx, "aaa")
	require.NoError(t, err)
	assert.True(t, exists)

	exists, err = records.ExistsByFingerprint(ctx, "bbb")
	require.NoError(t, err)
	assert.False(t, exists)
}

func TestRecordStore_Get_NotFound(t *testing.T) {
	records := NewRecordStore(setupDB(t))

	_, err := records.Get(context.Background(), 999)
	assert.ErrorIs(t, err, sync.ErrNotFound)
}

func TestRecordStore_NextBatch_OrderAndBounds(t *testing.T) {
	ctx := context.Background()
	records := NewRecordStore(setupDB(t))

	base := time.Now()

	older := newRecord("older")
	older.CreatedAt = base.Add(-time.Hour)
	newer := newRecord("newer")
	newer.CreatedAt = base

	_, err := records.Insert(ctx, newer)
	require.NoError(t, err)
	_, err = records.Insert(ctx, older)
	require.NoError(t, err)

	// Oldest discovery first.
	batch, err := records.NextBatch(ctx, 10, 3)
	require.NoError(t, err)
	require.Len(t, batch, 2)
	assert.Equal(t, "older", batch[0].Fingerprint)
	assert.Equal(t, "newer", batch[1].Fingerprint)

	// The limit caps the batch.
	batch, err = records.NextBatch(ctx, 1, 3)
	require.NoError(t, err)
	require.Len(t, batch, 1)
	assert.Equal(t, "older", batch[0].Fingerprint)
}

func TestRecordStore_NextBatch_ExcludesRetriedOut(t *testing.T) {
	ctx := context.Background()
	db := setupDB(t)
	records := NewRecordStore(db)

	rec := newRecord("flaky")
	_, err := records.Insert(ctx, rec)
	require.NoError(t, err)

	// A PENDING record at the retry bound stays visible but is no longer
	// selected.
	_, err = db.ExecContext(ctx, `UPDATE file_records SET retry_count = 3 WHERE id = ?`, rec.ID)
	require.NoError(t, err)

	batch, err := records.NextBatch(ctx, 10, 3)
	require.NoError(t, err)
	assert.Empty(t, batch)

	got, err := records.Get(ctx, rec.ID)
	require.NoError(t, err)
	assert.Equal(t, sync.StatusPending, got.Status)
}

func TestRecordStore_UploadLifecycle(t *testing.T) {
	ctx := context.Background()
	records := NewRecordStore(setupDB(t))

	rec := newRecord("aaa")
	_, err := records.Insert(ctx, rec)
	require.NoError(t, err)

	require.NoError(t, records.MarkUploading(ctx, rec.ID))

	uploadedAt := time.Now()
	ack := sync.UploadAck{FileHandle: "remote-abc", MessageID: 42}
	require.NoError(t, records.MarkCompleted(ctx, rec.ID, ack, uploadedAt))

	got, err := records.Get(ctx, rec.ID)
	require.NoError(t, err)
	assert.Equal(t, sync.StatusCompleted, got.Status)
	assert.Equal(t, "remote-abc", got.RemoteFileHandle)
	assert.EqualValues(t, 42, got.RemoteMessageID)
	require.NotNil(t, got.UploadedAt)
	assert.Equal(t, uploadedAt.UnixMilli(), got.UploadedAt.UnixMilli())
	assert.Empty(t, got.LastError)
}

func TestRecordStore_TransitionGuards(t *testing.T) {
	ctx := context.Background()
	records := NewRecordStore(setupDB(t))

	rec := newRecord("aaa")
	_, err := records.Insert(ctx, rec)
	require.NoError(t, err)

	// Completing a record that never started uploading is rejected.
	err = records.MarkCompleted(ctx, rec.ID, sync.UploadAck{}, time.Now())
	assert.Error(t, err)

	require.NoError(t, records.MarkUploading(ctx, rec.ID))

	// Double-start is rejected.
	err = records.MarkUploading(ctx, rec.ID)
	assert.Error(t, err)

	require.NoError(t, records.MarkCompleted(ctx, rec.ID, sync.UploadAck{FileHandle: "h"}, time.Now()))

	// A COMPLETED record cannot fail.
	err = records.MarkFailed(ctx, rec.ID, "late failure")
	assert.Error(t, err)
}

func TestRecordStore_MarkFailed(t *testing.T) {
	ctx := context.Background()
	records := NewRecordStore(setupDB(t))

	rec := newRecord("aaa")
	_, err := records.Insert(ctx, rec)
	require.NoError(t, err)

	// PENDING records fail directly when the source file is missing.
	require.NoError(t, records.MarkFailed(ctx, rec.ID, "source file missing"))

	got, err := records.Get(ctx, rec.ID)
	require.NoError(t, err)
	assert.Equal(t, sync.StatusFailed, got.Status)
	assert.Equal(t, "source file missing", got.LastError)
	assert.Equal(t, 1, got.RetryCount)
	assert.Empty(t, got.RemoteFileHandle)
}

func TestRecordStore_ResetFailed(t *testing.T) {
	ctx := context.Background()
	records := NewRecordStore(setupDB(t))

	failed := newRecord("failed")
	_, err := records.Insert(ctx, failed)
	require.NoError(t, err)
	require.NoError(t, records.MarkFailed(ctx, failed.ID, "boom"))

	pending := newRecord("pending")
	_, err = records.Insert(ctx, pending)
	require.NoError(t, err)

	n, err := records.ResetFailed(ctx)
	require.NoError(t, err)
	assert.EqualValues(t, 1, n)

	got, err := records.Get(ctx, failed.ID)
	require.NoError(t, err)
	assert.Equal(t, sync.StatusPending, got.Status)
	assert.Zero(t, got.RetryCount)
	assert.Empty(t, got.LastError)
}

func TestRecordStore_CountByStatus(t *testing.T) {
	ctx := context.Background()
	records := NewRecordStore(setupDB(t))

	for _, fp := range []string{"a", "b", "c"} {
		_, err := records.Insert(ctx, newRecord(fp))
		require.NoError(t, err)
	}

	rec := newRecord("d")
	_, err := records.Insert(ctx, rec)
	require.NoError(t, err)
	require.NoError(t, records.MarkUploading(ctx, rec.ID))
	require.NoError(t, records.MarkCompleted(ctx, rec.ID, sync.UploadAck{FileHandle: "h"}, time.Now()))

	counts, err := records.CountByStatus(ctx)
	require.NoError(t, err)
	assert.Equal(t, 3, counts[sync.StatusPending])
	assert.Equal(t, 1, counts[sync.StatusCompleted])
	assert.Zero(t, counts[sync.StatusFailed])
}

func TestRecordStore_TotalUploadedBytes(t *testing.T) {
	ctx := context.Background()
	records := NewRecordStore(setupDB(t))

	// Empty table sums to zero, not an error.
	total, err := records.TotalUploadedBytes(ctx)
	require.NoError(t, err)
	assert.Zero(t, total)

	rec := newRecord("a")
	rec.FileSize = 4096
	_, err = records.Insert(ctx, rec)
	require.NoError(t, err)
	require.NoError(t, records.MarkUploading(ctx, rec.ID))
	require.NoError(t, records.MarkCompleted(ctx, rec.ID, sync.UploadAck{FileHandle: "h"}, time.Now()))

	// PENDING sizes are not counted.
	_, err = records.Insert(ctx, newRecord("b"))
	require.NoError(t, err)

	total, err = records.TotalUploadedBytes(ctx)
	require.NoError(t, err)
	assert.EqualValues(t, 4096, total)
}
