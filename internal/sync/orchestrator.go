// Package sync implements the photo backup pipeline: folder scanning,
// content-addressed deduplication, the per-record state machine, and the
// orchestration loop that drives batches of uploads to completion.
package sync

import (
	"context"
	"fmt"
	"os"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/commons-systems/photovault/internal/logging"
)

// Options configures orchestrator behavior.
type Options struct {
	BatchSize          int           // Records pulled per batch (default 10)
	RetryLimit         int           // Failed attempts before a record stops being selected (default 3)
	UploadDelay        time.Duration // Pause after each transfer to respect remote rate limits (default 1.5s)
	MaxIterations      int           // Hard cap on batch iterations per run (default 500)
	AsDocument         bool          // Send files unaltered instead of as compressed images
	DeleteAfterUpload  bool          // Relocate sources to the holding area after upload
	ProgressBufferSize int           // Buffer size for the progress channel (default 100)
}

// DefaultOptions returns the default orchestrator options.
func DefaultOptions() Options {
	return Options{
		BatchSize:          10,
		RetryLimit:         3,
		UploadDelay:        1500 * time.Millisecond,
		MaxIterations:      500,
		AsDocument:         true,
		ProgressBufferSize: 100,
	}
}

// Validate validates the options.
func (o Options) Validate() error {
	if o.BatchSize < 1 {
		return fmt.Errorf("BatchSize must be >= 1, got %d", o.BatchSize)
	}
	if o.RetryLimit < 1 {
		return fmt.Errorf("RetryLimit must be >= 1, got %d", o.RetryLimit)
	}
	if o.MaxIterations < 1 {
		return fmt.Errorf("MaxIterations must be >= 1, got %d", o.MaxIterations)
	}
	if o.UploadDelay < 0 {
		return fmt.Errorf("UploadDelay must be >= 0, got %v", o.UploadDelay)
	}
	if o.ProgressBufferSize < 0 {
		return fmt.Errorf("ProgressBufferSize must be >= 0, got %d", o.ProgressBufferSize)
	}
	return nil
}

// Option is a functional option for configuring an Orchestrator
type Option func(*Orchestrator)

// WithOptions sets the orchestrator options
func WithOptions(opts Options) Option {
	return func(o *Orchestrator) {
		o.opts = opts
	}
}

// WithRetainer sets the holding-area manager used after successful uploads
func WithRetainer(r Retainer) Option {
	return func(o *Orchestrator) {
		o.retainer = r
	}
}

// Orchestrator drives scan, batch upload and progress reporting for sync
// runs. At most one run is active at a time; uploads within a run are
// strictly sequential.
type Orchestrator struct {
	records  RecordStore
	folders  FolderStore
	marker   SyncMarker
	uploader Uploader
	ingestor *Ingestor
	retainer Retainer
	opts     Options

	running atomic.Bool
}

// NewOrchestrator creates an orchestrator over the given collaborators.
func NewOrchestrator(
	records RecordStore,
	folders FolderStore,
	marker SyncMarker,
	uploader Uploader,
	ingestor *Ingestor,
	opts ...Option,
) (*Orchestrator, error) {
	if records == nil {
		return nil, fmt.Errorf("record store is required")
	}
	if folders == nil {
		return nil, fmt.Errorf("folder store is required")
	}
	if marker == nil {
		return nil, fmt.Errorf("sync marker is required")
	}
	if uploader == nil {
		return nil, fmt.Errorf("uploader is required")
	}
	if ingestor == nil {
		return nil, fmt.Errorf("ingestor is required")
	}

	o := &Orchestrator{
		records:  records,
		folders:  folders,
		marker:   marker,
		uploader: uploader,
		ingestor: ingestor,
		opts:     DefaultOptions(),
	}

	for _, opt := range opts {
		opt(o)
	}

	if err := o.opts.Validate(); err != nil {
		return nil, fmt.Errorf("invalid orchestrator options: %w", err)
	}

	return o, nil
}

// Running reports whether a run is currently active.
func (o *Orchestrator) Running() bool {
	return o.running.Load()
}

// Run is the handle for one orchestrator execution. The owner consumes its
// progress channel and waits on its result channel; both close when the run
// ends.
type Run struct {
	ID string

	resultCh   chan *RunResult
	progressCh chan Progress
	cancel     context.CancelFunc

	state      atomic.Value // RunState
	lastStatus atomic.Value // string
	stats      *runStats
}

// Result returns the channel carrying the final summary.
func (r *Run) Result() <-chan *RunResult {
	return r.resultCh
}

// Progress returns the channel carrying progress updates.
func (r *Run) Progress() <-chan Progress {
	return r.progressCh
}

// State returns the run's current phase.
func (r *Run) State() RunState {
	return r.state.Load().(RunState)
}

// Stats returns a snapshot of the run's counters so far.
func (r *Run) Stats() RunStats {
	return r.stats.snapshot()
}

// LastStatus returns the most recent human-readable status line.
func (r *Run) LastStatus() string {
	s, _ := r.lastStatus.Load().(string)
	return s
}

// Stop requests cooperative cancellation. The loop observes it at the next
// safe point; an in-flight transfer settles first.
func (r *Run) Stop() {
	r.cancel()
}

func (r *Run) setState(s RunState) {
	r.state.Store(s)
}

// Start begins a run. It returns ErrAlreadyRunning if another run is
// active; uniqueness is enforced by a compare-and-set on the orchestrator's
// running flag, cleared when the run reaches a terminal state.
func (o *Orchestrator) Start(ctx context.Context) (*Run, error) {
	if !o.running.CompareAndSwap(false, true) {
		return nil, ErrAlreadyRunning
	}

	runCtx, cancel := context.WithCancel(ctx)
	run := &Run{
		ID:         uuid.New().String(),
		resultCh:   make(chan *RunResult, 1),
		progressCh: make(chan Progress, o.opts.ProgressBufferSize),
		cancel:     cancel,
		stats:      &runStats{},
	}
	run.setState(RunStateIdle)
	run.lastStatus.Store("")

	go o.execute(runCtx, run)

	return run, nil
}

// execute runs the orchestration loop: scan, then batches until the queue
// drains, the iteration cap is hit, or cancellation is observed. A summary
// is emitted on every exit path.
func (o *Orchestrator) execute(ctx context.Context, run *Run) {
	// Deferred in reverse: the running slot frees first, so a caller that
	// observes the closed channels can immediately start the next run.
	defer run.cancel()
	defer close(run.resultCh)
	defer close(run.progressCh)
	defer o.running.Store(false)

	start := time.Now()
	iterations := 0

	markSync := func() {
		if err := o.marker.SetLastSyncAt(context.WithoutCancel(ctx), time.Now()); err != nil {
			logging.Warn("failed to update last sync time", logging.Err(err))
		}
	}

	finish := func(state RunState, err error) {
		run.setState(state)
		summary := run.stats.snapshot()
		msg := fmt.Sprintf("sync finished: %d uploaded, %d failed, %d skipped",
			summary.Uploaded, summary.Failed, summary.Skipped)
		if err != nil {
			msg = fmt.Sprintf("sync aborted: %v", err)
		}
		o.emit(run, Progress{Type: ProgressTypeStatus, Stage: "summary", Message: msg})

		run.resultCh <- &RunResult{
			RunID:      run.ID,
			State:      state,
			Stats:      summary,
			Iterations: iterations,
			Duration:   time.Since(start),
			LastStatus: run.LastStatus(),
			Err:        err,
		}
	}

	// Missing credentials abort before any work, reported, not retried.
	if !o.uploader.Configured() {
		finish(RunStateError, ErrNotConfigured)
		return
	}

	run.setState(RunStateScanning)
	o.emit(run, Progress{Type: ProgressTypeStatus, Stage: "scan", Message: "scanning watch folders"})

	added, err := o.ingestor.ScanAll(ctx)
	run.stats.addDiscovered(added)
	if err != nil {
		if ctx.Err() != nil {
			finish(RunStateCancelled, ErrCancelled)
			return
		}
		finish(RunStateError, err)
		return
	}
	o.emit(run, Progress{
		Type:    ProgressTypeStatus,
		Stage:   "scan",
		Message: fmt.Sprintf("discovered %d new files", added),
	})

	run.setState(RunStateUploading)

	// An interrupted or aborted run still advances the sync marker when it
	// uploaded anything: those transfers completed and are acknowledged.
	markPartial := func() {
		if run.stats.uploadedCount() > 0 {
			markSync()
		}
	}

	for iterations < o.opts.MaxIterations {
		select {
		case <-ctx.Done():
			markPartial()
			finish(RunStateCancelled, ErrCancelled)
			return
		default:
		}

		iterations++

		batch, err := o.records.NextBatch(ctx, o.opts.BatchSize, o.opts.RetryLimit)
		if err != nil {
			markPartial()
			finish(RunStateError, err)
			return
		}
		if len(batch) == 0 {
			break
		}

		successes, failures := o.processBatch(ctx, run, batch)
		if ctx.Err() != nil {
			markPartial()
			finish(RunStateCancelled, ErrCancelled)
			return
		}
		if successes == 0 && failures == 0 {
			break
		}
	}

	markSync()

	finish(RunStateDone, nil)
}

// processBatch uploads one batch strictly sequentially. Cancellation is
// checked before each file; the file currently in flight always settles,
// including the persistence of its outcome.
func (o *Orchestrator) processBatch(ctx context.Context, run *Run, batch []*FileRecord) (successes, failures int) {
	for _, rec := range batch {
		select {
		case <-ctx.Done():
			return successes, failures
		default:
		}

		// Once a file is started its store writes must not be interrupted
		// by cancellation.
		fileCtx := context.WithoutCancel(ctx)

		if _, err := os.Stat(rec.SourcePath); err != nil {
			// Missing source: FAILED without any network call, counted as
			// skipped in the summary rather than as a transfer failure.
			if err := o.records.MarkFailed(fileCtx, rec.ID, ErrSourceMissing.Error()); err != nil {
				logging.Error("failed to mark record failed",
					logging.Int64("record", rec.ID), logging.Err(err))
			}
			run.stats.incrementSkipped()
			o.emit(run, Progress{
				Type:     ProgressTypeError,
				Stage:    "upload",
				File:     rec.DisplayName,
				Uploaded: run.stats.uploadedCount(),
				Message:  fmt.Sprintf("%s: source file missing", rec.DisplayName),
			})
			continue
		}

		if err := ValidateTransition(rec.Status, StatusUploading); err != nil {
			logging.Error("record not eligible for upload",
				logging.Int64("record", rec.ID), logging.Err(err))
			continue
		}
		if err := o.records.MarkUploading(fileCtx, rec.ID); err != nil {
			logging.Error("failed to mark record uploading",
				logging.Int64("record", rec.ID), logging.Err(err))
			continue
		}

		o.emit(run, Progress{
			Type:     ProgressTypeOperation,
			Stage:    "upload",
			File:     rec.DisplayName,
			Uploaded: run.stats.uploadedCount(),
			Message:  fmt.Sprintf("uploading %s", rec.DisplayName),
		})

		caption := BuildCaption(rec.SourcePath, rec.FileSize)

		ack, err := o.uploader.Upload(fileCtx, rec.SourcePath, caption, o.opts.AsDocument)
		if err != nil {
			terr := &TransferError{Path: rec.SourcePath, Err: err}
			if markErr := o.records.MarkFailed(fileCtx, rec.ID, err.Error()); markErr != nil {
				logging.Error("failed to mark record failed",
					logging.Int64("record", rec.ID), logging.Err(markErr))
			}
			failures++
			run.stats.incrementFailed()
			o.emit(run, Progress{
				Type:     ProgressTypeError,
				Stage:    "upload",
				File:     rec.DisplayName,
				Uploaded: run.stats.uploadedCount(),
				Message:  terr.Error(),
			})
		} else {
			if markErr := o.records.MarkCompleted(fileCtx, rec.ID, ack, time.Now()); markErr != nil {
				logging.Error("failed to mark record completed",
					logging.Int64("record", rec.ID), logging.Err(markErr))
			}
			successes++
			run.stats.incrementUploaded()
			o.emit(run, Progress{
				Type:     ProgressTypeOperation,
				Stage:    "upload",
				File:     rec.DisplayName,
				Uploaded: run.stats.uploadedCount(),
				Message:  fmt.Sprintf("uploaded %s", rec.DisplayName),
			})

			if o.opts.DeleteAfterUpload && o.retainer != nil {
				if _, rerr := o.retainer.Move(rec.SourcePath); rerr != nil {
					// The upload already succeeded; retention never rolls
					// back a COMPLETED record.
					logging.Warn("retention move failed",
						logging.String("path", rec.SourcePath), logging.Err(rerr))
				}
			}
		}

		o.pause(ctx)
	}

	return successes, failures
}

// pause waits the configured inter-request delay, returning early on
// cancellation.
func (o *Orchestrator) pause(ctx context.Context) {
	if o.opts.UploadDelay <= 0 {
		return
	}
	timer := time.NewTimer(o.opts.UploadDelay)
	defer timer.Stop()
	select {
	case <-ctx.Done():
	case <-timer.C:
	}
}

// emit sends a progress update without blocking the loop.
func (o *Orchestrator) emit(run *Run, p Progress) {
	if p.Message != "" {
		run.lastStatus.Store(p.Message)
	}
	select {
	case run.progressCh <- p:
	default:
		logging.Warn("dropped progress event",
			logging.String("stage", p.Stage),
			logging.String("file", p.File))
	}
}
