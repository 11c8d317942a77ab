package sync

import "fmt"

// StateTransition represents a valid status transition
type StateTransition struct {
	From UploadStatus
	To   UploadStatus
}

// validTransitions defines all valid status transitions for a file record.
// There is no terminal state: FAILED records can always be reset to PENDING.
var validTransitions = map[StateTransition]bool{
	// Upload flow
	{StatusPending, StatusUploading}:   true,
	{StatusUploading, StatusCompleted}: true,
	{StatusUploading, StatusFailed}:    true,

	// Source file missing at upload time, no transfer attempted
	{StatusPending, StatusFailed}: true,

	// User-initiated retry of failed records
	{StatusFailed, StatusPending}: true,
}

// ValidateTransition checks if a status transition is valid
func ValidateTransition(from, to UploadStatus) error {
	transition := StateTransition{From: from, To: to}
	if !validTransitions[transition] {
		return fmt.Errorf("invalid status transition from %s to %s", from, to)
	}
	return nil
}

// CanTransitionTo checks if a record can move to a specific status from its
// current one
func CanTransitionTo(from, to UploadStatus) bool {
	transition := StateTransition{From: from, To: to}
	return validTransitions[transition]
}

// CanRetry checks if a record can be reset for another upload attempt
func CanRetry(status UploadStatus) bool {
	return status == StatusFailed
}

// Eligible reports whether a record may be selected for upload: it must be
// PENDING and under the retry bound. Records past the bound stay visible and
// resettable but are excluded from automatic selection.
func Eligible(rec *FileRecord, retryLimit int) bool {
	return rec.Status == StatusPending && rec.RetryCount < retryLimit
}
