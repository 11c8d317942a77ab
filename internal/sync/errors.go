package sync

import (
	"errors"
	"fmt"
)

// Sentinel errors
var (
	// ErrNotFound is returned when a record or resource is not found
	ErrNotFound = errors.New("not found")

	// ErrNotConfigured is returned when upload credentials are absent
	ErrNotConfigured = errors.New("bot token or chat id not configured")

	// ErrAlreadyRunning is returned when a run is started while one is active
	ErrAlreadyRunning = errors.New("a sync run is already active")

	// ErrCancelled is returned when an operation is cancelled
	ErrCancelled = errors.New("operation cancelled")

	// ErrSourceMissing is returned when a record's source file no longer exists
	ErrSourceMissing = errors.New("source file missing")
)

// DiscoveryError represents an error during folder scanning
type DiscoveryError struct {
	Path string
	Err  error
}

func (e *DiscoveryError) Error() string {
	return fmt.Sprintf("discovery error at %s: %v", e.Path, e.Err)
}

func (e *DiscoveryError) Unwrap() error {
	return e.Err
}

// HashError represents an error while fingerprinting a candidate file
type HashError struct {
	Path string
	Err  error
}

func (e *HashError) Error() string {
	return fmt.Sprintf("fingerprint error for %s: %v", e.Path, e.Err)
}

func (e *HashError) Unwrap() error {
	return e.Err
}

// TransferError represents an error during an upload transfer. Transport
// failures and malformed remote responses both surface through this type;
// callers do not distinguish them.
type TransferError struct {
	Path string
	Err  error
}

func (e *TransferError) Error() string {
	return fmt.Sprintf("transfer error for %s: %v", e.Path, e.Err)
}

func (e *TransferError) Unwrap() error {
	return e.Err
}

// RetentionError represents a failure to relocate or purge a retained file.
// Retention is best-effort; this never affects an upload outcome.
type RetentionError struct {
	Path string
	Err  error
}

func (e *RetentionError) Error() string {
	return fmt.Sprintf("retention error for %s: %v", e.Path, e.Err)
}

func (e *RetentionError) Unwrap() error {
	return e.Err
}
