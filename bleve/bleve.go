// Package bleve implements the search index on top of a bleve index with an
// English analyzer.
package bleve

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"

	"github.com/blevesearch/bleve"
	"github.com/blevesearch/bleve/analysis/lang/en"
	"github.com/blevesearch/bleve/mapping"
	"github.com/blevesearch/bleve/search/query"
	"github.com/fwojciec/docindex"
)

// Indexed field names.
const (
	fieldTitle    = "title"
	fieldContent  = "content"
	fieldKeywords = "keywords"
)

// weightsKey is the internal storage key holding the field weights.
var weightsKey = []byte("weights")

// DefaultBatchSize is the number of entries buffered before a batch is
// written to the index.
const DefaultBatchSize = 500

// Ensure IndexBuilder implements docindex.IndexBuilder at compile time.
var _ docindex.IndexBuilder = (*IndexBuilder)(nil)

// IndexBuilder writes index entries to a bleve index.
type IndexBuilder struct {
	index     bleve.Index
	weights   docindex.FieldWeights
	batch     *bleve.Batch
	batchSize int
	built     bool
}

// NewIndexBuilder creates an index at path. An empty path creates an
// in-memory index.
func NewIndexBuilder(path string, weights docindex.FieldWeights) (*IndexBuilder, error) {
	var (
		index bleve.Index
		err   error
	)
	if path == "" {
		index, err = bleve.NewMemOnly(newMapping())
	} else {
		index, err = bleve.New(path, newMapping())
	}
	if err != nil {
		return nil, fmt.Errorf("failed to create index: %w", err)
	}
	return &IndexBuilder{
		index:     index,
		weights:   weights,
		batch:     index.NewBatch(),
		batchSize: DefaultBatchSize,
	}, nil
}

func newMapping() mapping.IndexMapping {
	text := bleve.NewTextFieldMapping()
	text.Analyzer = en.AnalyzerName
	text.Store = false

	doc := bleve.NewDocumentMapping()
	doc.AddFieldMappingsAt(fieldTitle, text)
	doc.AddFieldMappingsAt(fieldContent, text)
	doc.AddFieldMappingsAt(fieldKeywords, text)

	m := bleve.NewIndexMapping()
	m.DefaultMapping = doc
	m.DefaultAnalyzer = en.AnalyzerName
	return m
}

// document is the shape indexed for every entry.
type document struct {
	Title    string `json:"title"`
	Content  string `json:"content"`
	Keywords string `json:"keywords"`
}

// Add stages entry for indexing under its decimal record id.
func (b *IndexBuilder) Add(entry docindex.IndexEntry) error {
	if b.built {
		return docindex.Errorf(docindex.ECONFLICT, "index already built")
	}
	err := b.batch.Index(strconv.Itoa(entry.ID), document{
		Title:    entry.Title,
		Content:  entry.Content,
		Keywords: entry.Keywords,
	})
	if err != nil {
		return fmt.Errorf("failed to stage entry %d: %w", entry.ID, err)
	}
	if b.batch.Size() >= b.batchSize {
		return b.flush()
	}
	return nil
}

// Build flushes staged entries and stores the field weights.
func (b *IndexBuilder) Build() error {
	if b.built {
		return docindex.Errorf(docindex.ECONFLICT, "index already built")
	}
	b.built = true
	if err := b.flush(); err != nil {
		return err
	}
	weights, err := json.Marshal(b.weights)
	if err != nil {
		return fmt.Errorf("failed to encode weights: %w", err)
	}
	if err := b.index.SetInternal(weightsKey, weights); err != nil {
		return fmt.Errorf("failed to store weights: %w", err)
	}
	return nil
}

func (b *IndexBuilder) flush() error {
	if b.batch.Size() == 0 {
		return nil
	}
	if err := b.index.Batch(b.batch); err != nil {
		return fmt.Errorf("failed to write batch: %w", err)
	}
	b.batch.Reset()
	return nil
}

// Count returns the number of documents written to the index.
func (b *IndexBuilder) Count() (uint64, error) {
	return b.index.DocCount()
}

// Close releases the index.
func (b *IndexBuilder) Close() error {
	return b.index.Close()
}

// Ensure Searcher implements docindex.Searcher at compile time.
var _ docindex.Searcher = (*Searcher)(nil)

// Searcher queries a built index.
type Searcher struct {
	index   bleve.Index
	weights docindex.FieldWeights
}

// OpenSearcher opens the index at path, reading back its field weights.
// Indexes without stored weights use docindex.DefaultFieldWeights.
func OpenSearcher(path string) (*Searcher, error) {
	index, err := bleve.Open(path)
	if err != nil {
		if err == bleve.ErrorIndexPathDoesNotExist {
			return nil, docindex.Errorf(docindex.ENOTFOUND, "index not found: %s", path)
		}
		return nil, fmt.Errorf("failed to open index: %w", err)
	}

	weights := docindex.DefaultFieldWeights
	raw, err := index.GetInternal(weightsKey)
	if err != nil {
		index.Close()
		return nil, fmt.Errorf("failed to read weights: %w", err)
	}
	if len(raw) > 0 {
		if err := json.Unmarshal(raw, &weights); err != nil {
			index.Close()
			return nil, fmt.Errorf("failed to decode weights: %w", err)
		}
	}
	return &Searcher{index: index, weights: weights}, nil
}

// Search matches q against every field, boosting each by its weight.
func (s *Searcher) Search(ctx context.Context, q string, limit int) ([]docindex.SearchHit, error) {
	if q == "" {
		return nil, docindex.Errorf(docindex.EINVALID, "query required")
	}
	if limit <= 0 {
		return nil, docindex.Errorf(docindex.EINVALID, "limit must be positive")
	}

	req := bleve.NewSearchRequestOptions(s.query(q), limit, 0, false)
	res, err := s.index.SearchInContext(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("failed to search: %w", err)
	}

	hits := make([]docindex.SearchHit, 0, len(res.Hits))
	for _, h := range res.Hits {
		id, err := strconv.Atoi(h.ID)
		if err != nil {
			return nil, docindex.Errorf(docindex.EINTERNAL, "invalid document id %q", h.ID)
		}
		hits = append(hits, docindex.SearchHit{ID: id, Score: h.Score})
	}
	return hits, nil
}

func (s *Searcher) query(q string) query.Query {
	fields := []struct {
		name  string
		boost float64
	}{
		{fieldTitle, s.weights.Title},
		{fieldContent, s.weights.Content},
		{fieldKeywords, s.weights.Keywords},
	}

	var queries []query.Query
	for _, f := range fields {
		if f.boost <= 0 {
			continue
		}
		m := bleve.NewMatchQuery(q)
		m.SetField(f.name)
		m.SetBoost(f.boost)
		queries = append(queries, m)
	}
	return bleve.NewDisjunctionQuery(queries...)
}

// Close releases the index.
func (s *Searcher) Close() error {
	return s.index.Close()
}
