package main

import (
	"errors"
	"fmt"

	"github.com/fwojciec/docindex"
	"github.com/fwojciec/docindex/bleve"
	"github.com/fwojciec/docindex/fs"
	"github.com/fwojciec/docindex/scan"
	dislog "github.com/fwojciec/docindex/slog"
	"github.com/fwojciec/docindex/sqlite"
)

// Run executes the build command.
func (c *BuildCmd) Run(deps *Dependencies) error {
	ctx := deps.Ctx

	routes, err := deps.Routes.Routes(ctx, c.OutDir, c.BaseURL)
	if err != nil {
		fmt.Fprintf(deps.Stderr, "error: %s\n", docindex.ErrorMessage(err))
		return err
	}

	files, meta, err := deps.Resolver.Resolve(routes, c.OutDir, c.BaseURL, docindex.ResolveOptions{
		ExcludeRoutes: c.ExcludeRoutes,
		IndexBaseURL:  c.IndexBaseURL,
	})
	if err != nil {
		fmt.Fprintf(deps.Stderr, "error: %s\n", docindex.ErrorMessage(err))
		return err
	}
	if meta.ExcludedCount > 0 {
		fmt.Fprintf(deps.Stdout, "Excluded %d routes\n", meta.ExcludedCount)
	}
	fmt.Fprintf(deps.Stdout, "Building search index for %d documents\n", len(files))

	b, err := c.begin(deps)
	if err != nil {
		return err
	}

	result, err := c.index(deps, b, files)
	if err != nil {
		if abortErr := b.abort(); abortErr != nil {
			deps.Logger.Error("failed to discard build", "err", abortErr)
		}
		return err
	}

	if c.MetricsFile != "" && deps.Metrics != nil {
		if err := deps.Metrics.WriteToTextfile(c.MetricsFile); err != nil {
			return fmt.Errorf("failed to write metrics: %w", err)
		}
	}

	fmt.Fprintf(deps.Stdout, "Indexed %d documents (%d records", result.Indexed, result.Records)
	if result.Skipped > 0 {
		fmt.Fprintf(deps.Stdout, ", %d skipped", result.Skipped)
	}
	fmt.Fprintf(deps.Stdout, ") into %s\n", b.files.Dir())
	return nil
}

// build holds the stores and index of one build until commit or abort.
type build struct {
	files   *fs.FileStore
	stores  []docindex.RecordStore
	builder *bleve.IndexBuilder
}

func (c *BuildCmd) begin(deps *Dependencies) (*build, error) {
	b := &build{files: fs.NewFileStore(c.OutDir, c.Name)}
	if err := b.files.Open(); err != nil {
		return nil, fmt.Errorf("failed to stage artifacts: %w", err)
	}
	b.stores = append(b.stores, b.files)

	if deps.DB != nil {
		runs := sqlite.NewRecordStore(deps.DB, c.OutDir, c.BaseURL)
		if err := runs.Begin(deps.Ctx); err != nil {
			_ = b.abort()
			return nil, fmt.Errorf("failed to start run: %w", err)
		}
		b.stores = append(b.stores, runs)
	}

	builder, err := bleve.NewIndexBuilder(b.files.IndexPath(), docindex.DefaultFieldWeights)
	if err != nil {
		_ = b.abort()
		return nil, err
	}
	b.builder = builder
	return b, nil
}

// index extracts files, builds the index and commits every store.
func (c *BuildCmd) index(deps *Dependencies, b *build, files []docindex.FileDescriptor) (*scan.Result, error) {
	ctx := deps.Ctx

	policy := scan.CancelOutstanding
	if c.AbandonOnFailure {
		policy = scan.AbandonOutstanding
	}
	d := &scan.Dispatcher{
		Extractor:     deps.Extractor,
		Workers:       c.Workers,
		FileTimeout:   c.FileTimeout,
		FailurePolicy: policy,
		Logger:        deps.Logger,
	}

	sink := scan.NewSink(dislog.NewLoggingIndexBuilder(b.builder, deps.Logger))
	result, err := d.Run(ctx, files, sink, func(p docindex.Progress) {
		fmt.Fprintf(deps.Stderr, "[%d/%d]\n", p.Completed, p.Total)
	})
	if err != nil {
		var werr *scan.WorkerError
		if errors.As(err, &werr) {
			fmt.Fprintf(deps.Stderr, "error: worker %d failed on %s\n", werr.Slot, werr.File.SourcePath)
		}
		return nil, err
	}

	if err := sink.Build(); err != nil {
		return nil, err
	}
	count, err := b.builder.Count()
	if err != nil {
		return nil, fmt.Errorf("failed to count indexed documents: %w", err)
	}
	if count != uint64(len(sink.Records())) {
		return nil, docindex.Errorf(docindex.EINTERNAL, "index holds %d documents, expected %d", count, len(sink.Records()))
	}
	if err := b.closeIndex(); err != nil {
		return nil, err
	}

	for _, rec := range sink.Records() {
		for _, s := range b.stores {
			if err := s.Save(ctx, rec); err != nil {
				return nil, fmt.Errorf("failed to save record %d: %w", rec.ID, err)
			}
		}
	}

	// The artifact directory is committed last so a failed database commit
	// leaves no artifacts behind. If the artifact commit fails, abort
	// deletes the committed run.
	for i := len(b.stores) - 1; i >= 0; i-- {
		if err := b.stores[i].Commit(); err != nil {
			return nil, fmt.Errorf("failed to commit: %w", err)
		}
	}
	return result, nil
}

func (b *build) closeIndex() error {
	if b.builder == nil {
		return nil
	}
	builder := b.builder
	b.builder = nil
	return builder.Close()
}

// abort releases the index and discards every store.
func (b *build) abort() error {
	errs := []error{b.closeIndex()}
	for _, s := range b.stores {
		errs = append(errs, s.Abort())
	}
	return errors.Join(errs...)
}
