// Package scan coordinates the extraction of search records from the files of
// a generated site. A Dispatcher fans files out to a fixed pool of extractor
// workers and funnels their records, one at a time, into a Sink.
package scan

import (
	"context"
	"fmt"
	"log/slog"
	"runtime"
	"sync/atomic"
	"time"

	"github.com/fwojciec/docindex"
	"golang.org/x/sync/errgroup"
)

const (
	// MinWorkers is the smallest pool used regardless of host parallelism.
	MinWorkers = 4

	// DefaultFileTimeout bounds the extraction of a single file.
	DefaultFileTimeout = 30 * time.Second
)

// PoolSize returns the default number of workers for this host.
func PoolSize() int {
	return max(MinWorkers, runtime.NumCPU())
}

// FailurePolicy decides what happens to outstanding workers when a run fails.
type FailurePolicy int

const (
	// CancelOutstanding cancels every worker and waits for them to exit
	// before Run returns.
	CancelOutstanding FailurePolicy = iota

	// AbandonOutstanding returns from Run immediately. Workers finish the
	// file they hold, receive no further work and exit in the background.
	AbandonOutstanding
)

// Dispatcher distributes files over a pool of extractor workers.
//
// Distribution is pull-based: a worker receives its next file only after
// reporting the previous one done, so slow files do not hold up the rest of
// the backlog. Records reach the sink in completion order, with the records
// of a single file kept contiguous and in document order.
type Dispatcher struct {
	Extractor     docindex.Extractor
	Workers       int           // 0 means PoolSize()
	FileTimeout   time.Duration // 0 means DefaultFileTimeout
	FailurePolicy FailurePolicy
	Logger        *slog.Logger

	tracker atomic.Pointer[Tracker]
}

// Result holds the outcome of a run.
type Result struct {
	Files   int // files submitted
	Indexed int // files that produced at least one record
	Records int // records delivered to the sink
	Skipped int // files abandoned after FileTimeout
}

// WorkerError reports a worker that failed while processing a file.
type WorkerError struct {
	Slot int
	File docindex.FileDescriptor
	Err  error
}

func (e *WorkerError) Error() string {
	return fmt.Sprintf("worker %d failed on %s: %v", e.Slot, e.File.SourcePath, e.Err)
}

func (e *WorkerError) Unwrap() error {
	return e.Err
}

type messageKind int

const (
	recordMessage messageKind = iota
	doneMessage
)

// message is sent from a worker to the dispatcher.
type message struct {
	slot    int
	kind    messageKind
	record  docindex.Record
	records int  // done: number of records the file produced
	skipped bool // done: the file timed out
}

type exit struct {
	slot int
	err  error
}

// Progress returns the progress of the current or last run.
func (d *Dispatcher) Progress() docindex.Progress {
	if t := d.tracker.Load(); t != nil {
		return t.Snapshot()
	}
	return docindex.Progress{}
}

// Run extracts every file and delivers the records to sink. It returns once
// every worker has exited cleanly, or fails on the first worker fault, sink
// error or context cancellation. File-level problems never fail the run.
// The progress callback, if provided, is called after every completed file.
func (d *Dispatcher) Run(ctx context.Context, files []docindex.FileDescriptor, sink docindex.RecordSink, progress docindex.ProgressFunc) (*Result, error) {
	tracker := NewTracker(len(files))
	d.tracker.Store(tracker)

	result := &Result{Files: len(files)}
	if len(files) == 0 {
		return result, nil
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	n := d.Workers
	if n <= 0 {
		n = PoolSize()
	}
	n = min(n, len(files))

	workCtx, cancel := context.WithCancel(ctx)
	p := newPool(n)

	var g errgroup.Group
	for slot := range n {
		w := &worker{
			slot:      slot,
			extractor: d.Extractor,
			timeout:   d.fileTimeout(),
			logger:    d.logger(),
			assign:    p.assign[slot],
			out:       p.out,
		}
		g.Go(func() error {
			err := w.run(workCtx)
			p.exits <- exit{slot: slot, err: err}
			return err
		})
	}

	next := 0
	dispatch := func(slot int) {
		if next < len(files) {
			p.assign[slot] <- files[next]
			next++
			return
		}
		p.terminate(slot)
	}
	for slot := range n {
		dispatch(slot)
	}

	for p.live > 0 {
		select {
		case msg := <-p.out:
			switch msg.kind {
			case recordMessage:
				if _, err := sink.AddRecord(msg.record); err != nil {
					return nil, d.fail(p, &g, cancel, err)
				}
				result.Records++
			case doneMessage:
				if msg.records > 0 {
					result.Indexed++
				}
				if msg.skipped {
					result.Skipped++
				}
				completed := tracker.Complete()
				if progress != nil {
					progress(completed)
				}
				dispatch(msg.slot)
			}
		case ex := <-p.exits:
			p.live--
			if ex.err != nil {
				return nil, d.fail(p, &g, cancel, ex.err)
			}
		case <-ctx.Done():
			return nil, d.fail(p, &g, cancel, ctx.Err())
		}
	}

	cancel()
	if err := g.Wait(); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return result, nil
}

// fail stops the pool according to the failure policy and returns err.
func (d *Dispatcher) fail(p *pool, g *errgroup.Group, cancel context.CancelFunc, err error) error {
	switch d.FailurePolicy {
	case AbandonOutstanding:
		go func() {
			p.drain()
			cancel()
		}()
	default:
		cancel()
		p.drain()
		_ = g.Wait()
	}
	return err
}

func (d *Dispatcher) fileTimeout() time.Duration {
	if d.FileTimeout > 0 {
		return d.FileTimeout
	}
	return DefaultFileTimeout
}

func (d *Dispatcher) logger() *slog.Logger {
	if d.Logger != nil {
		return d.Logger
	}
	return slog.New(slog.DiscardHandler)
}

// pool holds the channels between the dispatcher and its workers. It is
// owned by a single goroutine at a time: the Run loop, then possibly a drain.
type pool struct {
	assign []chan docindex.FileDescriptor
	closed []bool
	out    chan message
	exits  chan exit
	live   int
}

func newPool(n int) *pool {
	p := &pool{
		assign: make([]chan docindex.FileDescriptor, n),
		closed: make([]bool, n),
		out:    make(chan message, n*2),
		exits:  make(chan exit, n),
		live:   n,
	}
	for i := range p.assign {
		p.assign[i] = make(chan docindex.FileDescriptor, 1)
	}
	return p
}

// terminate signals the worker in slot to exit.
func (p *pool) terminate(slot int) {
	if p.closed[slot] {
		return
	}
	p.closed[slot] = true
	close(p.assign[slot])
}

// drain discards outstanding messages, terminating each worker as it
// reports its current file done, until every worker has exited.
func (p *pool) drain() {
	for p.live > 0 {
		select {
		case msg := <-p.out:
			if msg.kind == doneMessage {
				p.terminate(msg.slot)
			}
		case <-p.exits:
			p.live--
		}
	}
}
