package mock

import (
	"iter"

	"github.com/fwojciec/docindex"
)

var _ docindex.Extractor = (*Extractor)(nil)

// Extractor is a mock implementation of docindex.Extractor.
type Extractor struct {
	ExtractFn func(file docindex.FileDescriptor) iter.Seq[docindex.Record]
}

func (e *Extractor) Extract(file docindex.FileDescriptor) iter.Seq[docindex.Record] {
	return e.ExtractFn(file)
}
