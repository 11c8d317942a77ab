package sync

import (
	"testing"
)

func TestValidateTransition_Valid(t *testing.T) {
	tests := []struct {
		name string
		from UploadStatus
		to   UploadStatus
	}{
		{name: "pending to uploading", from: StatusPending, to: StatusUploading},
		{name: "uploading to completed", from: StatusUploading, to: StatusCompleted},
		{name: "uploading to failed", from: StatusUploading, to: StatusFailed},
		{name: "pending to failed (missing source)", from: StatusPending, to: StatusFailed},
		{name: "failed to pending (retry)", from: StatusFailed, to: StatusPending},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := ValidateTransition(tt.from, tt.to); err != nil {
				t.Errorf("ValidateTransition(%s, %s) failed: %v", tt.from, tt.to, err)
			}
			if !CanTransitionTo(tt.from, tt.to) {
				t.Errorf("CanTransitionTo(%s, %s) = false, want true", tt.from, tt.to)
			}
		})
	}
}

func TestValidateTransition_Invalid(t *testing.T) {
	tests := []struct {
		name string
		from UploadStatus
		to   UploadStatus
	}{
		{name: "pending to completed skips uploading", from: StatusPending, to: StatusCompleted},
		{name: "completed is terminal for uploads", from: StatusCompleted, to: StatusPending},
		{name: "completed to uploading", from: StatusCompleted, to: StatusUploading},
		{name: "failed to completed", from: StatusFailed, to: StatusCompleted},
		{name: "failed to uploading", from: StatusFailed, to: StatusUploading},
		{name: "self transition", from: StatusPending, to: StatusPending},
		{name: "skipped never transitions", from: StatusSkipped, to: StatusPending},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := ValidateTransition(tt.from, tt.to); err == nil {
				t.Errorf("ValidateTransition(%s, %s) succeeded, want error", tt.from, tt.to)
			}
			if CanTransitionTo(tt.from, tt.to) {
				t.Errorf("CanTransitionTo(%s, %s) = true, want false", tt.from, tt.to)
			}
		})
	}
}

func TestCanRetry(t *testing.T) {
	tests := []struct {
		status UploadStatus
		want   bool
	}{
		{StatusFailed, true},
		{StatusPending, false},
		{StatusUploading, false},
		{StatusCompleted, false},
		{StatusSkipped, false},
	}

	for _, tt := range tests {
		if got := CanRetry(tt.status); got != tt.want {
			t.Errorf("CanRetry(%s) = %v, want %v", tt.status, got, tt.want)
		}
	}
}

func TestEligible(t *testing.T) {
	tests := []struct {
		name       string
		status     UploadStatus
		retryCount int
		retryLimit int
		want       bool
	}{
		{name: "pending under limit", status: StatusPending, retryCount: 0, retryLimit: 3, want: true},
		{name: "pending just under limit", status: StatusPending, retryCount: 2, retryLimit: 3, want: true},
		{name: "pending at limit", status: StatusPending, retryCount: 3, retryLimit: 3, want: false},
		{name: "pending over limit", status: StatusPending, retryCount: 5, retryLimit: 3, want: false},
		{name: "failed never eligible", status: StatusFailed, retryCount: 0, retryLimit: 3, want: false},
		{name: "completed never eligible", status: StatusCompleted, retryCount: 0, retryLimit: 3, want: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := &FileRecord{Status: tt.status, RetryCount: tt.retryCount}
			if got := Eligible(rec, tt.retryLimit); got != tt.want {
				t.Errorf("Eligible() = %v, want %v", got, tt.want)
			}
		})
	}
}
