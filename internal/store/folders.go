package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/commons-systems/photovault/internal/sync"
)

// FolderStore implements sync.FolderStore on SQLite plus the folder CRUD
// surface used by the CLI.
type FolderStore struct {
	db *sql.DB
}

// NewFolderStore creates a folder store over the given database.
func NewFolderStore(db *sql.DB) *FolderStore {
	return &FolderStore{db: db}
}

const folderColumns = `id, path, display_name, enabled, include_subfolders, added_at, last_scan_at`

// Add registers a new watch folder. The path must not already be watched.
func (f *FolderStore) Add(ctx context.Context, folder *sync.WatchFolder) error {
	query := `
INSERT INTO watch_folders (path, display_name, enabled, include_subfolders, added_at)
VALUES (?, ?, ?, ?, ?)`
	res, err := f.db.ExecContext(ctx, query,
		folder.Path, folder.DisplayName, folder.Enabled, folder.IncludeSubfolders, millis(folder.AddedAt))
	if err != nil {
		return fmt.Errorf("failed to add watch folder: %w", err)
	}

	id, err := res.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to get insert id: %w", err)
	}
	folder.ID = id

	return nil
}

// List returns all watch folders ordered by display name.
func (f *FolderStore) List(ctx context.Context) ([]*sync.WatchFolder, error) {
	return f.query(ctx, `SELECT `+folderColumns+` FROM watch_folders ORDER BY display_name`)
}

// Enabled returns all folders currently enabled for scanning.
func (f *FolderStore) Enabled(ctx context.Context) ([]*sync.WatchFolder, error) {
	return f.query(ctx, `SELECT `+folderColumns+` FROM watch_folders WHERE enabled = 1 ORDER BY display_name`)
}

// SetEnabled toggles whether a folder is scanned.
func (f *FolderStore) SetEnabled(ctx context.Context, id int64, enabled bool) error {
	return f.update(ctx, id, `UPDATE watch_folders SET enabled = ? WHERE id = ?`, enabled, id)
}

// SetIncludeSubfolders toggles recursive scanning for a folder.
func (f *FolderStore) SetIncludeSubfolders(ctx context.Context, id int64, include bool) error {
	return f.update(ctx, id, `UPDATE watch_folders SET include_subfolders = ? WHERE id = ?`, include, id)
}

// TouchScanTime records when a folder was last scanned.
func (f *FolderStore) TouchScanTime(ctx context.Context, id int64, at time.Time) error {
	return f.update(ctx, id, `UPDATE watch_folders SET last_scan_at = ? WHERE id = ?`, millis(at), id)
}

// Delete removes the folder entry only; file records discovered through it
// are never cascade-deleted.
func (f *FolderStore) Delete(ctx context.Context, id int64) error {
	return f.update(ctx, id, `DELETE FROM watch_folders WHERE id = ?`, id)
}

func (f *FolderStore) query(ctx context.Context, query string, args ...any) ([]*sync.WatchFolder, error) {
	rows, err := f.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list watch folders: %w", err)
	}
	defer rows.Close()

	var folders []*sync.WatchFolder
	for rows.Next() {
		var folder sync.WatchFolder
		var addedAt int64
		var lastScanAt sql.NullInt64
		if err := rows.Scan(&folder.ID, &folder.Path, &folder.DisplayName,
			&folder.Enabled, &folder.IncludeSubfolders, &addedAt, &lastScanAt); err != nil {
			return nil, err
		}
		folder.AddedAt = fromMillis(addedAt)
		if lastScanAt.Valid {
			t := fromMillis(lastScanAt.Int64)
			folder.LastScanAt = &t
		}
		folders = append(folders, &folder)
	}

	return folders, rows.Err()
}

func (f *FolderStore) update(ctx context.Context, id int64, query string, args ...any) error {
	res, err := f.db.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("failed to update watch folder %d: %w", id, err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if n != 1 {
		return sync.ErrNotFound
	}

	return nil
}
