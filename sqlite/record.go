package sqlite

import (
	"context"
	"database/sql"
	"strings"
	"time"

	"github.com/fwojciec/docindex"
	"github.com/google/uuid"
)

// Run describes one committed build.
type Run struct {
	ID          string
	OutDir      string
	BaseURL     string
	RecordCount int
	CreatedAt   time.Time
}

// Compile-time interface verification.
var _ docindex.RecordStore = (*RecordStore)(nil)

// RecordStore writes the records of one run inside a single transaction.
type RecordStore struct {
	db      *DB
	tx        *sql.Tx
	run       Run
	done      bool
	committed bool
	records   int
}

// NewRecordStore creates a RecordStore for a build of outDir served under
// baseURL.
func NewRecordStore(db *DB, outDir, baseURL string) *RecordStore {
	return &RecordStore{
		db: db,
		run: Run{
			OutDir:  outDir,
			BaseURL: baseURL,
		},
	}
}

// Begin opens the transaction and registers the run.
func (s *RecordStore) Begin(ctx context.Context) error {
	if s.tx != nil || s.done {
		return docindex.Errorf(docindex.ECONFLICT, "run already started")
	}

	tx, err := s.db.BeginTx(ctx)
	if err != nil {
		return err
	}

	s.run.ID = uuid.New().String()
	s.run.CreatedAt = time.Now().UTC()
	if _, err := tx.ExecContext(ctx, `
		INSERT INTO runs (id, out_dir, base_url, record_count, created_at)
		VALUES (?, ?, ?, 0, ?)
	`, s.run.ID, s.run.OutDir, s.run.BaseURL, s.run.CreatedAt.Format(time.RFC3339)); err != nil {
		tx.Rollback()
		return err
	}

	s.tx = tx
	return nil
}

// RunID returns the identifier of the run, empty before Begin.
func (s *RecordStore) RunID() string {
	return s.run.ID
}

// Save inserts a record into the open run.
func (s *RecordStore) Save(ctx context.Context, rec docindex.IndexedRecord) error {
	if s.tx == nil {
		return docindex.Errorf(docindex.ECONFLICT, "run not started")
	}
	if rec.Record == nil {
		return docindex.Errorf(docindex.EINVALID, "record required")
	}

	var title, pageTitle, url, content, keywords string
	switch r := rec.Record.(type) {
	case *docindex.PageRecord:
		title, url, content, keywords = r.Title, r.URL, r.Content, r.Keywords
	case *docindex.SectionRecord:
		title, pageTitle, url, content = r.Title, r.PageTitle, r.URL, r.Content
	}

	_, err := s.tx.ExecContext(ctx, `
		INSERT INTO records (run_id, id, kind, title, page_title, url, content, keywords, content_hash)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, s.run.ID, rec.ID, int(rec.Record.Kind()), title, pageTitle, url, content, keywords, hashContent(content))
	if err != nil {
		return err
	}
	s.records++
	return nil
}

// Commit stores the record count and commits the run.
func (s *RecordStore) Commit() error {
	if s.tx == nil {
		return docindex.Errorf(docindex.ECONFLICT, "run not started")
	}
	tx := s.tx
	s.tx = nil
	s.done = true

	if _, err := tx.Exec("UPDATE runs SET record_count = ? WHERE id = ?", s.records, s.run.ID); err != nil {
		tx.Rollback()
		return err
	}
	if err := tx.Commit(); err != nil {
		return err
	}
	s.committed = true
	return nil
}

// Abort rolls the open run back. A run that was already committed is
// deleted, so a build that fails after the database commit leaves no run
// behind. Aborting a store that never began is a no-op.
func (s *RecordStore) Abort() error {
	if s.committed {
		s.committed = false
		return s.deleteRun(context.Background())
	}
	if s.tx == nil {
		return nil
	}
	tx := s.tx
	s.tx = nil
	s.done = true
	return tx.Rollback()
}

func (s *RecordStore) deleteRun(ctx context.Context) error {
	tx, err := s.db.BeginTx(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, "DELETE FROM records WHERE run_id = ?", s.run.ID); err != nil {
		return err
	}
	if _, err := tx.ExecContext(ctx, "DELETE FROM runs WHERE id = ?", s.run.ID); err != nil {
		return err
	}
	return tx.Commit()
}

// RecordService reads committed runs.
type RecordService struct {
	db *DB
}

// NewRecordService creates a new RecordService.
func NewRecordService(db *DB) *RecordService {
	return &RecordService{db: db}
}

// FindRunByID retrieves a run by ID.
func (s *RecordService) FindRunByID(ctx context.Context, id string) (*Run, error) {
	var run Run
	var createdAt string
	err := s.db.QueryRowContext(ctx, `
		SELECT id, out_dir, base_url, record_count, created_at
		FROM runs
		WHERE id = ?
	`, id).Scan(&run.ID, &run.OutDir, &run.BaseURL, &run.RecordCount, &createdAt)
	if err == sql.ErrNoRows {
		return nil, docindex.Errorf(docindex.ENOTFOUND, "run not found")
	}
	if err != nil {
		return nil, err
	}
	if run.CreatedAt, err = parseRFC3339(createdAt, "created_at"); err != nil {
		return nil, err
	}
	return &run, nil
}

// FindRuns returns runs, newest first.
func (s *RecordService) FindRuns(ctx context.Context, limit, offset int) ([]*Run, error) {
	var query strings.Builder
	var args []any
	query.WriteString("SELECT id, out_dir, base_url, record_count, created_at FROM runs ORDER BY created_at DESC, rowid DESC")
	appendPagination(&query, &args, limit, offset)

	rows, err := s.db.QueryContext(ctx, query.String(), args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var runs []*Run
	for rows.Next() {
		var run Run
		var createdAt string
		if err := rows.Scan(&run.ID, &run.OutDir, &run.BaseURL, &run.RecordCount, &createdAt); err != nil {
			return nil, err
		}
		if run.CreatedAt, err = parseRFC3339(createdAt, "created_at"); err != nil {
			return nil, err
		}
		runs = append(runs, &run)
	}
	return runs, rows.Err()
}

// FindRecords returns the records of a run ordered by identifier.
func (s *RecordService) FindRecords(ctx context.Context, runID string) ([]docindex.IndexedRecord, error) {
	if _, err := s.FindRunByID(ctx, runID); err != nil {
		return nil, err
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, kind, title, page_title, url, content, keywords
		FROM records
		WHERE run_id = ?
		ORDER BY id ASC
	`, runID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var records []docindex.IndexedRecord
	for rows.Next() {
		var id, kind int
		var title, pageTitle, url, content, keywords string
		if err := rows.Scan(&id, &kind, &title, &pageTitle, &url, &content, &keywords); err != nil {
			return nil, err
		}
		var rec docindex.Record
		switch docindex.RecordKind(kind) {
		case docindex.KindPage:
			rec = &docindex.PageRecord{Title: title, URL: url, Content: content, Keywords: keywords}
		case docindex.KindSection:
			rec = &docindex.SectionRecord{Title: title, PageTitle: pageTitle, URL: url, Content: content}
		default:
			return nil, docindex.Errorf(docindex.EINTERNAL, "unknown record kind %d", kind)
		}
		records = append(records, docindex.IndexedRecord{ID: id, Record: rec})
	}
	return records, rows.Err()
}

// ContentHashes returns the content hashes stored for url across all runs,
// oldest run first.
func (s *RecordService) ContentHashes(ctx context.Context, url string) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT r.content_hash FROM records r
		JOIN runs ON runs.id = r.run_id
		WHERE r.url = ?
		ORDER BY runs.created_at, runs.rowid, r.id
	`, url)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var hashes []string
	for rows.Next() {
		var h string
		if err := rows.Scan(&h); err != nil {
			return nil, err
		}
		hashes = append(hashes, h)
	}
	return hashes, rows.Err()
}
