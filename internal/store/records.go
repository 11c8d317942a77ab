package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/commons-systems/photovault/internal/sync"
)

// RecordStore implements sync.RecordStore on SQLite.
type RecordStore struct {
	db *sql.DB
}

// NewRecordStore creates a record store over the given database.
func NewRecordStore(db *sql.DB) *RecordStore {
	return &RecordStore{db: db}
}

const recordColumns = `id, source_path, display_name, fingerprint, file_size, mime_type,
	status, remote_file_handle, remote_message_id, last_error, retry_count, created_at, uploaded_at`

// Insert stores a new record. Inserting a duplicate fingerprint is a no-op
// and reports inserted=false; the fingerprint uniqueness constraint is the
// dedup invariant.
func (r *RecordStore) Insert(ctx context.Context, rec *sync.FileRecord) (bool, error) {
	query := `
INSERT INTO file_records (source_path, display_name, fingerprint, file_size, mime_type, status, retry_count, created_at)
VALUES (?, ?, ?, ?, ?, ?, ?, ?)
ON CONFLICT(fingerprint) DO NOTHING
`
	res, err := r.db.ExecContext(ctx, query,
		rec.SourcePath, rec.DisplayName, rec.Fingerprint, rec.FileSize, rec.MimeType,
		string(rec.Status), rec.RetryCount, millis(rec.CreatedAt))
	if err != nil {
		return false, fmt.Errorf("failed to insert record: %w", err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to get rows affected: %w", err)
	}
	if n == 0 {
		return false, nil
	}

	id, err := res.LastInsertId()
	if err != nil {
		return false, fmt.Errorf("failed to get insert id: %w", err)
	}
	rec.ID = id

	return true, nil
}

// ExistsByFingerprint reports whether any record carries the fingerprint.
func (r *RecordStore) ExistsByFingerprint(ctx context.Context, fingerprint string) (bool, error) {
	var exists bool
	query := `SELECT EXISTS(SELECT 1 FROM file_records WHERE fingerprint = ?)`
	if err := r.db.QueryRowContext(ctx, query, fingerprint).Scan(&exists); err != nil {
		return false, fmt.Errorf("failed to check fingerprint: %w", err)
	}
	return exists, nil
}

// Get retrieves one record by id.
func (r *RecordStore) Get(ctx context.Context, id int64) (*sync.FileRecord, error) {
	query := `SELECT ` + recordColumns + ` FROM file_records WHERE id = ?`
	rec, err := scanRecord(r.db.QueryRowContext(ctx, query, id))
	if err == sql.ErrNoRows {
		return nil, sync.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get record %d: %w", id, err)
	}
	return rec, nil
}

// NextBatch selects up to limit PENDING records under the retry bound,
// oldest-created first with a deterministic id tiebreak.
func (r *RecordStore) NextBatch(ctx context.Context, limit, retryLimit int) ([]*sync.FileRecord, error) {
	query := `
SELECT ` + recordColumns + `
FROM file_records
WHERE status = ? AND retry_count < ?
ORDER BY created_at ASC, id ASC
LIMIT ?
`
	rows, err := r.db.QueryContext(ctx, query, string(sync.StatusPending), retryLimit, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to select batch: %w", err)
	}
	defer rows.Close()

	var batch []*sync.FileRecord
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, err
		}
		batch = append(batch, rec)
	}

	return batch, rows.Err()
}

// MarkUploading transitions a PENDING record to UPLOADING. The status guard
// in the WHERE clause makes the selection-and-transition a single step.
func (r *RecordStore) MarkUploading(ctx context.Context, id int64) error {
	return r.transition(ctx, id,
		`UPDATE file_records SET status = ? WHERE id = ? AND status = ?`,
		string(sync.StatusUploading), id, string(sync.StatusPending))
}

// MarkCompleted transitions an UPLOADING record to COMPLETED, storing the
// remote acknowledgment and upload time and clearing any previous error.
func (r *RecordStore) MarkCompleted(ctx context.Context, id int64, ack sync.UploadAck, uploadedAt time.Time) error {
	return r.transition(ctx, id, `
UPDATE file_records
SET status = ?, remote_file_handle = ?, remote_message_id = ?, uploaded_at = ?, last_error = NULL
WHERE id = ? AND status = ?`,
		string(sync.StatusCompleted), ack.FileHandle, ack.MessageID, millis(uploadedAt),
		id, string(sync.StatusUploading))
}

// MarkFailed transitions a PENDING or UPLOADING record to FAILED, records
// the cause and increments the retry counter.
func (r *RecordStore) MarkFailed(ctx context.Context, id int64, cause string) error {
	return r.transition(ctx, id, `
UPDATE file_records
SET status = ?, last_error = ?, retry_count = retry_count + 1,
    remote_file_handle = NULL, remote_message_id = NULL
WHERE id = ? AND status IN (?, ?)`,
		string(sync.StatusFailed), cause,
		id, string(sync.StatusPending), string(sync.StatusUploading))
}

// ResetFailed moves all FAILED records back to PENDING with retry counter
// and error cleared. Returns the number of records reset.
func (r *RecordStore) ResetFailed(ctx context.Context) (int64, error) {
	query := `
UPDATE file_records
SET status = ?, retry_count = 0, last_error = NULL
WHERE status = ?`
	res, err := r.db.ExecContext(ctx, query, string(sync.StatusPending), string(sync.StatusFailed))
	if err != nil {
		return 0, fmt.Errorf("failed to reset failed records: %w", err)
	}
	return res.RowsAffected()
}

// CountByStatus returns the number of records in each status.
func (r *RecordStore) CountByStatus(ctx context.Context) (map[sync.UploadStatus]int, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT status, COUNT(*) FROM file_records GROUP BY status`)
	if err != nil {
		return nil, fmt.Errorf("failed to count records: %w", err)
	}
	defer rows.Close()

	counts := make(map[sync.UploadStatus]int)
	for rows.Next() {
		var status string
		var n int
		if err := rows.Scan(&status, &n); err != nil {
			return nil, err
		}
		counts[sync.UploadStatus(status)] = n
	}

	return counts, rows.Err()
}

// TotalUploadedBytes returns the summed size of all COMPLETED records.
func (r *RecordStore) TotalUploadedBytes(ctx context.Context) (int64, error) {
	var total sql.NullInt64
	query := `SELECT SUM(file_size) FROM file_records WHERE status = ?`
	if err := r.db.QueryRowContext(ctx, query, string(sync.StatusCompleted)).Scan(&total); err != nil {
		return 0, fmt.Errorf("failed to sum uploaded size: %w", err)
	}
	return total.Int64, nil
}

// transition executes a guarded status update and fails when the record was
// not in the expected state.
func (r *RecordStore) transition(ctx context.Context, id int64, query string, args ...any) error {
	res, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("failed to update record %d: %w", id, err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if n != 1 {
		return fmt.Errorf("record %d not in expected status", id)
	}

	return nil
}

// rowScanner is satisfied by *sql.Row and *sql.Rows.
type rowScanner interface {
	Scan(dest ...any) error
}

func scanRecord(row rowScanner) (*sync.FileRecord, error) {
	var rec sync.FileRecord
	var status string
	var fileHandle, lastError sql.NullString
	var messageID, createdAt sql.NullInt64
	var uploadedAt sql.NullInt64

	err := row.Scan(&rec.ID, &rec.SourcePath, &rec.DisplayName, &rec.Fingerprint,
		&rec.FileSize, &rec.MimeType, &status, &fileHandle, &messageID,
		&lastError, &rec.RetryCount, &createdAt, &uploadedAt)
	if err != nil {
		return nil, err
	}

	rec.Status = sync.UploadStatus(status)
	rec.RemoteFileHandle = fileHandle.String
	rec.RemoteMessageID = messageID.Int64
	rec.LastError = lastError.String
	rec.CreatedAt = fromMillis(createdAt.Int64)
	if uploadedAt.Valid {
		t := fromMillis(uploadedAt.Int64)
		rec.UploadedAt = &t
	}

	return &rec, nil
}
