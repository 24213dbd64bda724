package docindex

import "context"

// FieldWeights configures how strongly each field contributes to the score
// of a search hit.
type FieldWeights struct {
	Title    float64 `json:"title"`
	Content  float64 `json:"content"`
	Keywords float64 `json:"keywords"`
}

// DefaultFieldWeights weights titles far above content, with keywords in
// between.
var DefaultFieldWeights = FieldWeights{
	Title:    200,
	Content:  2,
	Keywords: 100,
}

// IndexBuilder turns index entries into a searchable inverted index.
// Add is called once per record in delivery order; Build is called exactly
// once, after the last Add.
type IndexBuilder interface {
	Add(entry IndexEntry) error
	Build() error
}

// SearchHit is a single search match. ID refers to the record identifier.
type SearchHit struct {
	ID    int     `json:"id"`
	Score float64 `json:"score"`
}

// Searcher queries a built index.
type Searcher interface {
	// Search returns hits ordered by descending score.
	Search(ctx context.Context, query string, limit int) ([]SearchHit, error)
}

// RecordStore persists the records of a run with atomic semantics.
// Save stages a record; Commit makes the run permanent; Abort discards it.
type RecordStore interface {
	Save(ctx context.Context, rec IndexedRecord) error
	Commit() error
	Abort() error
}
