package sync

import (
	"context"
	"time"
)

// RecordStore defines the persistence operations the sync core needs for
// file records. The orchestrator is the single writer during a run; the
// store must remain readable concurrently for observation.
type RecordStore interface {
	// Insert stores a new record. It returns false when a record with the
	// same fingerprint already exists; a duplicate is a no-op, not an error.
	Insert(ctx context.Context, rec *FileRecord) (bool, error)

	// ExistsByFingerprint reports whether any record carries the fingerprint.
	ExistsByFingerprint(ctx context.Context, fingerprint string) (bool, error)

	// NextBatch returns up to limit PENDING records under the retry bound,
	// oldest-created first.
	NextBatch(ctx context.Context, limit, retryLimit int) ([]*FileRecord, error)

	// MarkUploading transitions a PENDING record to UPLOADING.
	MarkUploading(ctx context.Context, id int64) error

	// MarkCompleted transitions an UPLOADING record to COMPLETED and stores
	// the remote acknowledgment.
	MarkCompleted(ctx context.Context, id int64, ack UploadAck, uploadedAt time.Time) error

	// MarkFailed transitions a PENDING or UPLOADING record to FAILED,
	// records the cause and increments the retry counter.
	MarkFailed(ctx context.Context, id int64, cause string) error

	// ResetFailed moves all FAILED records back to PENDING with a cleared
	// retry counter and error. It returns the number of records reset.
	ResetFailed(ctx context.Context) (int64, error)
}

// FolderStore defines the persistence operations for watch folders.
type FolderStore interface {
	// Enabled returns all folders currently enabled for scanning.
	Enabled(ctx context.Context) ([]*WatchFolder, error)

	// TouchScanTime records when a folder was last scanned. Called after
	// every scan, found files or not; the value is observability only.
	TouchScanTime(ctx context.Context, id int64, at time.Time) error
}

// SyncMarker persists the last successful sync time.
type SyncMarker interface {
	SetLastSyncAt(ctx context.Context, at time.Time) error
}

// Uploader performs one network transfer of one file to the remote
// destination and returns its acknowledgment.
type Uploader interface {
	// Configured reports whether credentials for uploads are present.
	Configured() bool

	// Upload sends the file as an unaltered document or as a compressed
	// image, with an optional caption.
	Upload(ctx context.Context, sourcePath, caption string, asDocument bool) (UploadAck, error)
}

// Retainer relocates uploaded source files into a reclaimable holding area.
type Retainer interface {
	// Move relocates the file and returns its new path.
	Move(path string) (string, error)
}
