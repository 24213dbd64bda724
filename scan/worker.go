package scan

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/fwojciec/docindex"
)

// worker extracts one file at a time. Its only contact with the dispatcher
// is the assign channel (a closed channel means exit) and the out channel.
type worker struct {
	slot      int
	extractor docindex.Extractor
	timeout   time.Duration
	logger    *slog.Logger
	assign    <-chan docindex.FileDescriptor
	out       chan<- message
}

// run processes assignments until the assign channel is closed, in which
// case it returns nil.
func (w *worker) run(ctx context.Context) error {
	for {
		var (
			file docindex.FileDescriptor
			ok   bool
		)
		select {
		case <-ctx.Done():
			return ctx.Err()
		case file, ok = <-w.assign:
		}
		if !ok {
			return nil
		}
		if err := w.process(ctx, file); err != nil {
			return &WorkerError{Slot: w.slot, File: file, Err: err}
		}
	}
}

// process sends the records of file followed by its done message.
func (w *worker) process(ctx context.Context, file docindex.FileDescriptor) error {
	records, skipped, err := w.extract(ctx, file)
	if err != nil {
		return err
	}
	for _, rec := range records {
		if err := w.send(ctx, message{slot: w.slot, kind: recordMessage, record: rec}); err != nil {
			return err
		}
	}
	return w.send(ctx, message{
		slot:    w.slot,
		kind:    doneMessage,
		records: len(records),
		skipped: skipped,
	})
}

type outcome struct {
	records []docindex.Record
	err     error
}

// extract runs the extractor on a helper goroutine so a pathological file
// can be abandoned after the timeout. An abandoned file counts as skipped.
// A panic in the extractor is returned as an error.
func (w *worker) extract(ctx context.Context, file docindex.FileDescriptor) ([]docindex.Record, bool, error) {
	done := make(chan outcome, 1)
	go func() {
		defer func() {
			if r := recover(); r != nil {
				done <- outcome{err: fmt.Errorf("extractor panic: %v", r)}
			}
		}()
		var records []docindex.Record
		for rec := range w.extractor.Extract(file) {
			records = append(records, rec)
		}
		done <- outcome{records: records}
	}()

	timer := time.NewTimer(w.timeout)
	defer timer.Stop()

	select {
	case o := <-done:
		return o.records, false, o.err
	case <-timer.C:
		w.logger.Warn("extraction timed out",
			"path", file.SourcePath,
			"timeout", w.timeout,
		)
		return nil, true, nil
	case <-ctx.Done():
		return nil, false, ctx.Err()
	}
}

func (w *worker) send(ctx context.Context, msg message) error {
	select {
	case w.out <- msg:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
