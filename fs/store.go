package fs

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/fwojciec/docindex"
)

// Names of the entries inside an artifact directory.
const (
	SearchDocFile = "search-doc.json"
	IndexDir      = "index"
)

// Ensure FileStore implements docindex.RecordStore at compile time.
var _ docindex.RecordStore = (*FileStore)(nil)

// FileStore implements docindex.RecordStore with atomic update semantics.
// Artifacts are staged in baseDir/name.tmp and moved to baseDir/name on
// Commit.
type FileStore struct {
	baseDir string
	name    string
	docs    []SearchDoc
}

// NewFileStore creates a new FileStore.
func NewFileStore(baseDir, name string) *FileStore {
	return &FileStore{
		baseDir: baseDir,
		name:    name,
	}
}

func (s *FileStore) tempDir() string {
	return filepath.Join(s.baseDir, s.name+".tmp")
}

func (s *FileStore) finalDir() string {
	return filepath.Join(s.baseDir, s.name)
}

// Dir returns the directory artifacts are committed to.
func (s *FileStore) Dir() string {
	return s.finalDir()
}

// IndexPath returns the staging location for the search index.
func (s *FileStore) IndexPath() string {
	return filepath.Join(s.tempDir(), IndexDir)
}

// Open clears any leftover staging directory and creates a fresh one.
func (s *FileStore) Open() error {
	if s.name == "" {
		return docindex.Errorf(docindex.EINVALID, "artifact name required")
	}
	if err := os.RemoveAll(s.tempDir()); err != nil {
		return err
	}
	return os.MkdirAll(s.tempDir(), 0755)
}

// SearchDoc is one entry of the search-doc artifact. Its identifier is its
// position in the array.
type SearchDoc struct {
	Title      string              `json:"title"`
	Type       docindex.RecordKind `json:"type"`
	SectionRef string              `json:"sectionRef,omitempty"`
	PageTitle  string              `json:"pageTitle,omitempty"`
	URL        string              `json:"url"`
	Content    string              `json:"content"`
	Keywords   string              `json:"keywords,omitempty"`
}

var escaper = strings.NewReplacer(
	"&", "&amp;",
	"<", "&lt;",
	">", "&gt;",
	`"`, "&quot;",
)

// NewSearchDoc converts a record to its artifact form. Content is
// HTML-escaped.
func NewSearchDoc(rec docindex.Record) SearchDoc {
	switch r := rec.(type) {
	case *docindex.PageRecord:
		return SearchDoc{
			Title:      r.Title,
			Type:       docindex.KindPage,
			SectionRef: docindex.NoAnchor,
			URL:        r.URL,
			Content:    escaper.Replace(r.Content),
			Keywords:   r.Keywords,
		}
	case *docindex.SectionRecord:
		return SearchDoc{
			Title:     r.Title,
			Type:      docindex.KindSection,
			PageTitle: r.PageTitle,
			URL:       r.URL,
			Content:   escaper.Replace(r.Content),
		}
	}
	return SearchDoc{}
}

// Save stages a record. Records must arrive in identifier order.
func (s *FileStore) Save(ctx context.Context, rec docindex.IndexedRecord) error {
	if rec.Record == nil {
		return docindex.Errorf(docindex.EINVALID, "record required")
	}
	if rec.ID != len(s.docs) {
		return docindex.Errorf(docindex.EINVALID, "record %d out of order, expected %d", rec.ID, len(s.docs))
	}
	s.docs = append(s.docs, NewSearchDoc(rec.Record))
	return nil
}

// Commit writes the search-doc artifact and moves the staging directory
// into place, replacing any previous artifacts.
func (s *FileStore) Commit() error {
	docs := s.docs
	if docs == nil {
		docs = []SearchDoc{}
	}
	data, err := json.Marshal(docs)
	if err != nil {
		return fmt.Errorf("failed to encode search docs: %w", err)
	}
	if err := os.MkdirAll(s.tempDir(), 0755); err != nil {
		return err
	}
	if err := os.WriteFile(filepath.Join(s.tempDir(), SearchDocFile), data, 0644); err != nil {
		return err
	}

	if err := os.RemoveAll(s.finalDir()); err != nil {
		return err
	}
	return os.Rename(s.tempDir(), s.finalDir())
}

// Abort discards everything staged.
func (s *FileStore) Abort() error {
	s.docs = nil
	return os.RemoveAll(s.tempDir())
}

// ReadSearchDocs reads the search-doc artifact of a committed directory.
func ReadSearchDocs(dir string) ([]SearchDoc, error) {
	data, err := os.ReadFile(filepath.Join(dir, SearchDocFile))
	if errors.Is(err, os.ErrNotExist) {
		return nil, docindex.Errorf(docindex.ENOTFOUND, "no search docs in %s", dir)
	}
	if err != nil {
		return nil, err
	}
	var docs []SearchDoc
	if err := json.Unmarshal(data, &docs); err != nil {
		return nil, fmt.Errorf("failed to decode search docs: %w", err)
	}
	return docs, nil
}
