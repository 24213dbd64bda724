package mock

import (
	"context"

	"github.com/fwojciec/docindex"
)

var _ docindex.IndexBuilder = (*IndexBuilder)(nil)

// IndexBuilder is a mock implementation of docindex.IndexBuilder.
type IndexBuilder struct {
	AddFn   func(entry docindex.IndexEntry) error
	BuildFn func() error
}

func (b *IndexBuilder) Add(entry docindex.IndexEntry) error {
	return b.AddFn(entry)
}

func (b *IndexBuilder) Build() error {
	return b.BuildFn()
}

var _ docindex.Searcher = (*Searcher)(nil)

// Searcher is a mock implementation of docindex.Searcher.
type Searcher struct {
	SearchFn func(ctx context.Context, query string, limit int) ([]docindex.SearchHit, error)
}

func (s *Searcher) Search(ctx context.Context, query string, limit int) ([]docindex.SearchHit, error) {
	return s.SearchFn(ctx, query, limit)
}
