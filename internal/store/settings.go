package store

import (
	"context"
	"database/sql"
	"fmt"
	"strconv"
	"time"
)

const keyLastSyncAt = "last_sync_at"

// SettingsStore persists small key/value state such as the last sync time.
type SettingsStore struct {
	db *sql.DB
}

// NewSettingsStore creates a settings store over the given database.
func NewSettingsStore(db *sql.DB) *SettingsStore {
	return &SettingsStore{db: db}
}

// SetLastSyncAt records when the last sync run finished.
func (s *SettingsStore) SetLastSyncAt(ctx context.Context, at time.Time) error {
	return s.set(ctx, keyLastSyncAt, strconv.FormatInt(millis(at), 10))
}

// LastSyncAt returns when the last sync run finished, or the zero time when
// no run has completed yet.
func (s *SettingsStore) LastSyncAt(ctx context.Context) (time.Time, error) {
	v, err := s.get(ctx, keyLastSyncAt)
	if err == sql.ErrNoRows {
		return time.Time{}, nil
	}
	if err != nil {
		return time.Time{}, err
	}

	ms, err := strconv.ParseInt(v, 10, 64)
	if err != nil {
		return time.Time{}, fmt.Errorf("malformed %s value %q: %w", keyLastSyncAt, v, err)
	}

	return fromMillis(ms), nil
}

func (s *SettingsStore) set(ctx context.Context, key, value string) error {
	query := `
INSERT INTO settings (key, value) VALUES (?, ?)
ON CONFLICT(key) DO UPDATE SET value = excluded.value`
	if _, err := s.db.ExecContext(ctx, query, key, value); err != nil {
		return fmt.Errorf("failed to set %s: %w", key, err)
	}
	return nil
}

func (s *SettingsStore) get(ctx context.Context, key string) (string, error) {
	var value string
	err := s.db.QueryRowContext(ctx, `SELECT value FROM settings WHERE key = ?`, key).Scan(&value)
	return value, err
}
