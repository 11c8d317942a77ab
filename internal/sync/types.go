package sync

import "time"

// UploadStatus represents the persisted state of a file record. It is a
// closed set in code; the string values are the stable persistence encoding.
type UploadStatus string

const (
	StatusPending   UploadStatus = "PENDING"
	StatusUploading UploadStatus = "UPLOADING"
	StatusCompleted UploadStatus = "COMPLETED"
	StatusFailed    UploadStatus = "FAILED"
	StatusSkipped   UploadStatus = "SKIPPED"
)

// FileRecord is the persistent record of one distinct file content.
// Fingerprint is unique across all records; RemoteFileHandle and
// RemoteMessageID are set exactly when Status is COMPLETED.
type FileRecord struct {
	ID               int64
	SourcePath       string
	DisplayName      string
	Fingerprint      string
	FileSize         int64
	MimeType         string
	Status           UploadStatus
	RemoteFileHandle string
	RemoteMessageID  int64
	LastError        string
	RetryCount       int
	CreatedAt        time.Time
	UploadedAt       *time.Time
}

// WatchFolder is a user-designated directory scanned for new files.
// Deleting a folder removes only the folder entry; file records survive.
type WatchFolder struct {
	ID                int64
	Path              string
	DisplayName       string
	Enabled           bool
	IncludeSubfolders bool
	AddedAt           time.Time
	LastScanAt        *time.Time
}

// Candidate is a file found by the scanner, not yet fingerprinted.
type Candidate struct {
	Path     string
	Name     string
	Size     int64
	ModTime  time.Time
	MimeType string
}

// UploadAck is the remote acknowledgment of a successful transfer.
type UploadAck struct {
	FileHandle string
	MessageID  int64
}

// RunState represents the phase of an orchestrator run.
type RunState string

const (
	RunStateIdle      RunState = "idle"
	RunStateScanning  RunState = "scanning"
	RunStateUploading RunState = "uploading"
	RunStateDone      RunState = "done"
	RunStateCancelled RunState = "cancelled"
	RunStateError     RunState = "error"
)

// ProgressType represents the type of progress update.
type ProgressType string

const (
	// ProgressTypeOperation represents normal progress for file operations
	ProgressTypeOperation ProgressType = "operation"
	// ProgressTypeStatus represents phase transitions and summary messages
	ProgressTypeStatus ProgressType = "status"
	// ProgressTypeError represents error notifications
	ProgressTypeError ProgressType = "error"
)

// Progress represents progress information emitted by a run. Uploaded is the
// running success count across the whole run.
type Progress struct {
	Type     ProgressType
	Stage    string
	File     string
	Uploaded int
	Message  string
}

// RunStats tracks counts across one orchestration run. Skipped counts
// records whose source file had disappeared before upload; those are not
// true transfer failures.
type RunStats struct {
	Discovered int
	Uploaded   int
	Failed     int
	Skipped    int
}

// RunResult is the final summary of one orchestrator run. It is produced
// exactly once per run, including runs that abort early.
type RunResult struct {
	RunID      string
	State      RunState
	Stats      RunStats
	Iterations int
	Duration   time.Duration
	LastStatus string
	Err        error
}
