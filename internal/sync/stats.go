package sync

import "sync/atomic"

// runStats accumulates counters for one run. Counters are atomic so a run's
// stats can be observed while the upload loop is still writing them.
type runStats struct {
	discovered int64
	uploaded   int64
	failed     int64
	skipped    int64
}

func (s *runStats) addDiscovered(n int) {
	atomic.AddInt64(&s.discovered, int64(n))
}

func (s *runStats) incrementUploaded() {
	atomic.AddInt64(&s.uploaded, 1)
}

func (s *runStats) incrementFailed() {
	atomic.AddInt64(&s.failed, 1)
}

func (s *runStats) incrementSkipped() {
	atomic.AddInt64(&s.skipped, 1)
}

func (s *runStats) uploadedCount() int {
	return int(atomic.LoadInt64(&s.uploaded))
}

// snapshot returns a consistent copy of the current counters.
func (s *runStats) snapshot() RunStats {
	return RunStats{
		Discovered: int(atomic.LoadInt64(&s.discovered)),
		Uploaded:   int(atomic.LoadInt64(&s.uploaded)),
		Failed:     int(atomic.LoadInt64(&s.failed)),
		Skipped:    int(atomic.LoadInt64(&s.skipped)),
	}
}
