package sqlite_test

import (
	"context"
	"testing"

	"github.com/fwojciec/docindex"
	"github.com/fwojciec/docindex/sqlite"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleRecords() []docindex.IndexedRecord {
	return []docindex.IndexedRecord{
		{ID: 0, Record: &docindex.PageRecord{Title: "Intro", URL: "/docs/intro", Keywords: "start"}},
		{ID: 1, Record: &docindex.SectionRecord{Title: "Setup", PageTitle: "Intro", URL: "/docs/intro#setup", Content: "npm install"}},
	}
}

func saveRun(t *testing.T, db *sqlite.DB, records []docindex.IndexedRecord) string {
	t.Helper()

	ctx := context.Background()
	store := sqlite.NewRecordStore(db, "/out", "/")
	require.NoError(t, store.Begin(ctx))
	for _, rec := range records {
		require.NoError(t, store.Save(ctx, rec))
	}
	require.NoError(t, store.Commit())
	return store.RunID()
}

func TestRecordStore(t *testing.T) {
	t.Parallel()

	t.Run("commits a run with its records", func(t *testing.T) {
		t.Parallel()

		// Given a committed run
		db := openDB(t)
		runID := saveRun(t, db, sampleRecords())

		// When reading it back
		svc := sqlite.NewRecordService(db)
		run, err := svc.FindRunByID(context.Background(), runID)
		require.NoError(t, err)
		records, err := svc.FindRecords(context.Background(), runID)
		require.NoError(t, err)

		// Then the run and its records round-trip in identifier order
		assert.Equal(t, "/out", run.OutDir)
		assert.Equal(t, "/", run.BaseURL)
		assert.Equal(t, 2, run.RecordCount)
		assert.False(t, run.CreatedAt.IsZero())
		assert.Equal(t, sampleRecords(), records)
	})

	t.Run("aborted run leaves nothing behind", func(t *testing.T) {
		t.Parallel()

		db := openDB(t)
		ctx := context.Background()
		store := sqlite.NewRecordStore(db, "/out", "/")
		require.NoError(t, store.Begin(ctx))
		for _, rec := range sampleRecords() {
			require.NoError(t, store.Save(ctx, rec))
		}

		require.NoError(t, store.Abort())

		runs, err := sqlite.NewRecordService(db).FindRuns(ctx, 0, 0)
		require.NoError(t, err)
		assert.Empty(t, runs)
		_, err = sqlite.NewRecordService(db).FindRecords(ctx, store.RunID())
		assert.Equal(t, docindex.ENOTFOUND, docindex.ErrorCode(err))
	})

	t.Run("abort after commit deletes the run", func(t *testing.T) {
		t.Parallel()

		// Given a committed run
		db := openDB(t)
		ctx := context.Background()
		store := sqlite.NewRecordStore(db, "/out", "/")
		require.NoError(t, store.Begin(ctx))
		for _, rec := range sampleRecords() {
			require.NoError(t, store.Save(ctx, rec))
		}
		require.NoError(t, store.Commit())

		// When the build is discarded afterwards
		require.NoError(t, store.Abort())

		// Then neither the run nor its records remain
		svc := sqlite.NewRecordService(db)
		_, err := svc.FindRunByID(ctx, store.RunID())
		assert.Equal(t, docindex.ENOTFOUND, docindex.ErrorCode(err))
		hashes, err := svc.ContentHashes(ctx, "/docs/intro#setup")
		require.NoError(t, err)
		assert.Empty(t, hashes)
		assert.NoError(t, store.Abort())
	})

	t.Run("rejects saves before begin", func(t *testing.T) {
		t.Parallel()

		store := sqlite.NewRecordStore(openDB(t), "/out", "/")

		err := store.Save(context.Background(), sampleRecords()[0])

		assert.Equal(t, docindex.ECONFLICT, docindex.ErrorCode(err))
		assert.Equal(t, docindex.ECONFLICT, docindex.ErrorCode(store.Commit()))
		assert.NoError(t, store.Abort())
	})

	t.Run("cannot be reused after commit", func(t *testing.T) {
		t.Parallel()

		db := openDB(t)
		store := sqlite.NewRecordStore(db, "/out", "/")
		require.NoError(t, store.Begin(context.Background()))
		require.NoError(t, store.Commit())

		err := store.Begin(context.Background())

		assert.Equal(t, docindex.ECONFLICT, docindex.ErrorCode(err))
	})

	t.Run("rejects duplicate identifiers", func(t *testing.T) {
		t.Parallel()

		db := openDB(t)
		ctx := context.Background()
		store := sqlite.NewRecordStore(db, "/out", "/")
		require.NoError(t, store.Begin(ctx))
		t.Cleanup(func() { store.Abort() })
		rec := sampleRecords()[0]
		require.NoError(t, store.Save(ctx, rec))

		err := store.Save(ctx, rec)

		require.Error(t, err)
	})
}

func TestRecordService(t *testing.T) {
	t.Parallel()

	t.Run("lists runs newest first", func(t *testing.T) {
		t.Parallel()

		db := openDB(t)
		first := saveRun(t, db, sampleRecords())
		second := saveRun(t, db, nil)

		runs, err := sqlite.NewRecordService(db).FindRuns(context.Background(), 0, 0)

		require.NoError(t, err)
		require.Len(t, runs, 2)
		assert.Equal(t, second, runs[0].ID)
		assert.Equal(t, first, runs[1].ID)
		assert.Equal(t, 0, runs[0].RecordCount)
	})

	t.Run("paginates runs", func(t *testing.T) {
		t.Parallel()

		db := openDB(t)
		saveRun(t, db, nil)
		saveRun(t, db, nil)
		saveRun(t, db, nil)

		runs, err := sqlite.NewRecordService(db).FindRuns(context.Background(), 2, 1)

		require.NoError(t, err)
		assert.Len(t, runs, 2)
	})

	t.Run("returns not found for unknown run", func(t *testing.T) {
		t.Parallel()

		_, err := sqlite.NewRecordService(openDB(t)).FindRunByID(context.Background(), "missing")

		assert.Equal(t, docindex.ENOTFOUND, docindex.ErrorCode(err))
	})

	t.Run("tracks content hashes of a URL across runs", func(t *testing.T) {
		t.Parallel()

		// Given two runs where the section content changed
		db := openDB(t)
		saveRun(t, db, sampleRecords())
		changed := sampleRecords()
		changed[1].Record.(*docindex.SectionRecord).Content = "pnpm install"
		saveRun(t, db, changed)

		// When listing hashes for the section URL
		hashes, err := sqlite.NewRecordService(db).ContentHashes(context.Background(), "/docs/intro#setup")

		// Then each run contributed a distinct hash
		require.NoError(t, err)
		require.Len(t, hashes, 2)
		assert.Len(t, hashes[0], 16)
		assert.NotEqual(t, hashes[0], hashes[1])
	})
}
