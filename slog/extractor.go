package slog

import (
	"iter"
	"log/slog"
	"time"

	"github.com/fwojciec/docindex"
)

// Ensure LoggingExtractor implements docindex.Extractor.
var _ docindex.Extractor = (*LoggingExtractor)(nil)

// LoggingExtractor wraps an Extractor with per-file debug logging.
type LoggingExtractor struct {
	next   docindex.Extractor
	logger *slog.Logger
}

// NewLoggingExtractor creates a new LoggingExtractor.
func NewLoggingExtractor(next docindex.Extractor, logger *slog.Logger) *LoggingExtractor {
	return &LoggingExtractor{next: next, logger: logger}
}

// Extract delegates to the wrapped extractor and logs once the sequence
// has been consumed.
func (e *LoggingExtractor) Extract(file docindex.FileDescriptor) iter.Seq[docindex.Record] {
	return func(yield func(docindex.Record) bool) {
		var records int
		defer func(begin time.Time) {
			e.logger.Debug("extract",
				"path", file.SourcePath,
				"url", file.URL,
				"records", records,
				"duration", time.Since(begin),
			)
		}(time.Now())
		for rec := range e.next.Extract(file) {
			records++
			if !yield(rec) {
				return
			}
		}
	}
}

// Ensure LoggingIndexBuilder implements docindex.IndexBuilder.
var _ docindex.IndexBuilder = (*LoggingIndexBuilder)(nil)

// LoggingIndexBuilder wraps an IndexBuilder and logs the build.
type LoggingIndexBuilder struct {
	next    docindex.IndexBuilder
	logger  *slog.Logger
	entries int
}

// NewLoggingIndexBuilder creates a new LoggingIndexBuilder.
func NewLoggingIndexBuilder(next docindex.IndexBuilder, logger *slog.Logger) *LoggingIndexBuilder {
	return &LoggingIndexBuilder{next: next, logger: logger}
}

// Add delegates to the wrapped builder.
func (b *LoggingIndexBuilder) Add(entry docindex.IndexEntry) error {
	if err := b.next.Add(entry); err != nil {
		return err
	}
	b.entries++
	return nil
}

// Build delegates to the wrapped builder and logs the operation.
func (b *LoggingIndexBuilder) Build() (err error) {
	defer func(begin time.Time) {
		b.logger.Info("index build",
			"entries", b.entries,
			"duration", time.Since(begin),
			"err", err,
		)
	}(time.Now())
	return b.next.Build()
}
