package scan

import (
	"fmt"

	"github.com/fwojciec/docindex"
)

// Ensure Sink implements docindex.RecordSink at compile time.
var _ docindex.RecordSink = (*Sink)(nil)

// Sink assigns sequential identifiers to records, keeps them in delivery
// order and forwards their projection to an index builder.
//
// Sink is not safe for concurrent use; the Dispatcher delivers records from a
// single goroutine.
type Sink struct {
	builder docindex.IndexBuilder
	records []docindex.IndexedRecord
	built   bool
}

// NewSink creates a Sink feeding builder.
func NewSink(builder docindex.IndexBuilder) *Sink {
	return &Sink{builder: builder}
}

// AddRecord assigns the next identifier to rec and forwards it to the builder.
func (s *Sink) AddRecord(rec docindex.Record) (int, error) {
	if s.built {
		return 0, docindex.Errorf(docindex.ECONFLICT, "index already built")
	}
	if rec == nil {
		return 0, docindex.Errorf(docindex.EINVALID, "record required")
	}

	indexed := docindex.IndexedRecord{ID: len(s.records), Record: rec}
	if err := s.builder.Add(docindex.EntryOf(indexed)); err != nil {
		return 0, fmt.Errorf("add record %d: %w", indexed.ID, err)
	}
	s.records = append(s.records, indexed)
	return indexed.ID, nil
}

// Records returns every record added so far, ordered by identifier.
func (s *Sink) Records() []docindex.IndexedRecord {
	return s.records
}

// Build runs the index builder. It may be called once.
func (s *Sink) Build() error {
	if s.built {
		return docindex.Errorf(docindex.ECONFLICT, "index already built")
	}
	s.built = true
	if err := s.builder.Build(); err != nil {
		return fmt.Errorf("build index: %w", err)
	}
	return nil
}
