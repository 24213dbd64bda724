package docindex

import "iter"

// FileDescriptor identifies one generated HTML page and the site URL it is
// served under. URL never includes a trailing index filename.
type FileDescriptor struct {
	SourcePath string `json:"sourcePath"`
	URL        string `json:"url"`
}

// RecordKind distinguishes page records from section records.
// The numeric values match the "type" field of the search-doc artifact.
type RecordKind int

// RecordKind constants.
const (
	KindPage    RecordKind = 0
	KindSection RecordKind = 1
)

// String returns the lowercase name of the kind.
func (k RecordKind) String() string {
	switch k {
	case KindPage:
		return "page"
	case KindSection:
		return "section"
	default:
		return "unknown"
	}
}

// NoAnchor is used as the fragment of a section URL when the heading carries
// no identifiable anchor.
const NoAnchor = "#"

// Record is a unit of extracted content. It is either a *PageRecord or a
// *SectionRecord.
type Record interface {
	Kind() RecordKind
	record()
}

// PageRecord represents a whole page. Content is empty when the page has
// sections, in which case all text is carried by its SectionRecords.
type PageRecord struct {
	Title    string
	URL      string
	Content  string
	Keywords string
}

// Kind returns KindPage.
func (*PageRecord) Kind() RecordKind { return KindPage }
func (*PageRecord) record()          {}

// SectionRecord represents the content between one sub-heading and the next.
type SectionRecord struct {
	Title     string
	PageTitle string
	URL       string // page URL plus "#" and the heading anchor
	Content   string
}

// Kind returns KindSection.
func (*SectionRecord) Kind() RecordKind { return KindSection }
func (*SectionRecord) record()          {}

// IndexedRecord is a record with the identifier assigned by the sink.
type IndexedRecord struct {
	ID     int
	Record Record
}

// IndexEntry is the projection of a record forwarded to an IndexBuilder.
type IndexEntry struct {
	ID       int
	Title    string
	Content  string
	Keywords string
}

// EntryOf projects an indexed record onto the fields the index builder sees.
func EntryOf(r IndexedRecord) IndexEntry {
	e := IndexEntry{ID: r.ID}
	switch rec := r.Record.(type) {
	case *PageRecord:
		e.Title = rec.Title
		e.Content = rec.Content
		e.Keywords = rec.Keywords
	case *SectionRecord:
		e.Title = rec.Title
		e.Content = rec.Content
	}
	return e
}

// Extractor turns one page into a lazy sequence of records.
// Implementations never fail: missing, unreadable or malformed pages yield
// zero records.
type Extractor interface {
	Extract(file FileDescriptor) iter.Seq[Record]
}

// RecordSink receives records one at a time and assigns their identifiers.
// Implementations are not required to be safe for concurrent use.
type RecordSink interface {
	AddRecord(rec Record) (int, error)
}
