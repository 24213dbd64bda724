package scan

import (
	"sync/atomic"

	"github.com/fwojciec/docindex"
)

// Tracker counts submitted and completed files. It only exposes state and is
// safe to read from any goroutine.
type Tracker struct {
	total     atomic.Int64
	completed atomic.Int64
}

// NewTracker creates a Tracker for total files.
func NewTracker(total int) *Tracker {
	t := &Tracker{}
	t.total.Store(int64(total))
	return t
}

// Complete records one finished file and returns the updated progress.
func (t *Tracker) Complete() docindex.Progress {
	completed := t.completed.Add(1)
	return docindex.Progress{
		Total:     int(t.total.Load()),
		Completed: int(completed),
	}
}

// Snapshot returns the current progress.
func (t *Tracker) Snapshot() docindex.Progress {
	return docindex.Progress{
		Total:     int(t.total.Load()),
		Completed: int(t.completed.Load()),
	}
}
