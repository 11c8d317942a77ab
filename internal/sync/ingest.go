package sync

import (
	"context"
	"sync"
	"time"

	"golang.org/x/sync/semaphore"

	"github.com/commons-systems/photovault/internal/fingerprint"
	"github.com/commons-systems/photovault/internal/logging"
)

// Fingerprinter computes the content digest used as the dedup key.
type Fingerprinter func(path string) (string, error)

// Ingestor walks candidates from the scanner, deduplicates them against
// known fingerprints and inserts new PENDING records. Per-file failures are
// logged and never abort the rest of a scan.
type Ingestor struct {
	records     RecordStore
	folders     FolderStore
	scanner     *Scanner
	fingerprint Fingerprinter
	concurrency int64
}

// IngestorOption configures an Ingestor
type IngestorOption func(*Ingestor)

// WithFingerprinter overrides the digest function
func WithFingerprinter(fn Fingerprinter) IngestorOption {
	return func(i *Ingestor) {
		i.fingerprint = fn
	}
}

// WithConcurrency sets the number of concurrent fingerprint jobs
func WithConcurrency(n int64) IngestorOption {
	return func(i *Ingestor) {
		i.concurrency = n
	}
}

// NewIngestor creates an Ingestor backed by the given stores and scanner.
func NewIngestor(records RecordStore, folders FolderStore, scanner *Scanner, opts ...IngestorOption) *Ingestor {
	ing := &Ingestor{
		records:     records,
		folders:     folders,
		scanner:     scanner,
		fingerprint: fingerprint.Sum,
		concurrency: 4,
	}

	for _, opt := range opts {
		opt(ing)
	}

	return ing
}

// ScanAll runs a full rescan of every enabled watch folder and returns the
// number of newly inserted records.
func (i *Ingestor) ScanAll(ctx context.Context) (int, error) {
	folders, err := i.folders.Enabled(ctx)
	if err != nil {
		return 0, err
	}

	added := 0
	for _, folder := range folders {
		select {
		case <-ctx.Done():
			return added, ctx.Err()
		default:
		}

		n := i.scanFolder(ctx, folder)
		added += n
	}

	return added, nil
}

// scanFolder ingests one folder's current contents. The folder's scan time
// is updated unconditionally, even when nothing new was found.
func (i *Ingestor) scanFolder(ctx context.Context, folder *WatchFolder) int {
	candidateCh, errCh := i.scanner.Scan(ctx, folder)

	sem := semaphore.NewWeighted(i.concurrency)

	var wg sync.WaitGroup
	var mu sync.Mutex
	added := 0

	// Errors drain in parallel with candidates. A folder can produce more
	// per-entry errors than the channel buffers; draining them afterwards
	// would wedge the scan.
	errDone := make(chan struct{})
	go func() {
		defer close(errDone)
		for err := range errCh {
			logging.Warn("scan error",
				logging.String("folder", folder.Path),
				logging.Err(err))
		}
	}()

	for candidate := range candidateCh {
		if err := sem.Acquire(ctx, 1); err != nil {
			break
		}

		wg.Add(1)
		go func(c Candidate) {
			defer wg.Done()
			defer sem.Release(1)

			inserted, err := i.ingest(ctx, c)
			if err != nil {
				logging.Warn("ingest failed",
					logging.String("path", c.Path),
					logging.Err(err))
				return
			}
			if inserted {
				mu.Lock()
				added++
				mu.Unlock()
			}
		}(candidate)
	}

	<-errDone
	wg.Wait()

	if err := i.folders.TouchScanTime(ctx, folder.ID, time.Now()); err != nil {
		logging.Warn("failed to update folder scan time",
			logging.String("folder", folder.Path),
			logging.Err(err))
	}

	return added
}

// ingest deduplicates one candidate and inserts a new record when its
// content has not been seen before. Identical content under a different
// path or name is a duplicate, not an error.
func (i *Ingestor) ingest(ctx context.Context, c Candidate) (bool, error) {
	digest, err := i.fingerprint(c.Path)
	if err != nil {
		return false, &HashError{Path: c.Path, Err: err}
	}

	exists, err := i.records.ExistsByFingerprint(ctx, digest)
	if err != nil {
		return false, err
	}
	if exists {
		return false, nil
	}

	rec := &FileRecord{
		SourcePath:  c.Path,
		DisplayName: c.Name,
		Fingerprint: digest,
		FileSize:    c.Size,
		MimeType:    c.MimeType,
		Status:      StatusPending,
		CreatedAt:   time.Now(),
	}

	// The insert itself is conflict-tolerant: a concurrent ingest of the
	// same content collapses to a single record.
	return i.records.Insert(ctx, rec)
}
