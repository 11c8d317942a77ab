// Package store persists file records, watch folders and sync settings in
// SQLite.
package store

import (
	"database/sql"
	"time"

	_ "modernc.org/sqlite"
)

// Open opens (or creates) the SQLite database at path.
func Open(path string) (*sql.DB, error) {
	return sql.Open("sqlite", path)
}

// Init applies pragmas and creates the schema if needed.
func Init(db *sql.DB) error {
	stmts := []string{
		`PRAGMA journal_mode=WAL;`,
		`PRAGMA busy_timeout=5000;`,
		`PRAGMA foreign_keys=ON;`,
		`
CREATE TABLE IF NOT EXISTS file_records (
  id INTEGER PRIMARY KEY AUTOINCREMENT,
  source_path TEXT NOT NULL,
  display_name TEXT NOT NULL,
  fingerprint TEXT NOT NULL UNIQUE,
  file_size INTEGER NOT NULL DEFAULT 0,
  mime_type TEXT NOT NULL DEFAULT '',
  status TEXT NOT NULL,
  remote_file_handle TEXT,
  remote_message_id INTEGER,
  last_error TEXT,
  retry_count INTEGER NOT NULL DEFAULT 0,
  created_at INTEGER NOT NULL,
  uploaded_at INTEGER
);
`,
		`CREATE INDEX IF NOT EXISTS idx_file_records_status ON file_records(status, created_at);`,
		`
CREATE TABLE IF NOT EXISTS watch_folders (
  id INTEGER PRIMARY KEY AUTOINCREMENT,
  path TEXT NOT NULL UNIQUE,
  display_name TEXT NOT NULL,
  enabled INTEGER NOT NULL DEFAULT 1,
  include_subfolders INTEGER NOT NULL DEFAULT 1,
  added_at INTEGER NOT NULL,
  last_scan_at INTEGER
);
`,
		`
CREATE TABLE IF NOT EXISTS settings (
  key TEXT PRIMARY KEY,
  value TEXT NOT NULL
);
`,
	}

	for _, s := range stmts {
		if _, err := db.Exec(s); err != nil {
			return err
		}
	}

	return nil
}

// millis converts a time to the unix-millisecond encoding used in the DB.
func millis(t time.Time) int64 {
	return t.UnixMilli()
}

// fromMillis converts a stored unix-millisecond value back to a time.
func fromMillis(ms int64) time.Time {
	return time.UnixMilli(ms)
}
