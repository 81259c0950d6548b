package history

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"fjacquet/fiscal-organizer/internal/logging"
	"fjacquet/fiscal-organizer/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestStore(t *testing.T) *SQLiteStore {
	t.Helper()
	store, err := NewSQLiteStore(context.Background(), filepath.Join(t.TempDir(), "db", "history.db"), logging.NewDiscardLogger())
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })
	return store
}

func sampleRun(id string, started time.Time) models.RunRecord {
	return models.RunRecord{
		ID:          id,
		StartedAt:   started,
		FinishedAt:  started.Add(2 * time.Second),
		Company:     "Acme",
		TaxID:       "12345678000190",
		Status:      models.StatusPartial,
		ArchiveSize: 512,
		Documents: []models.DocumentOutcome{
			{Name: "cte_saida.xml", Source: "lote.zip", Category: models.CategoryCTeSaida, Path: "CTE_SAIDA/cte_saida.xml"},
			{Name: "vazio.txt", Source: "lote.zip", Error: "unreadable document 'vazio.txt': empty content"},
		},
	}
}

func TestNewSQLiteStore_EmptyPath(t *testing.T) {
	_, err := NewSQLiteStore(context.Background(), "  ", nil)
	assert.Error(t, err)
}

func TestSQLiteStore_RecordAndGet(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	started := time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC)

	require.NoError(t, store.Record(ctx, sampleRun("run-1", started)))

	got, err := store.Get(ctx, "run-1")
	require.NoError(t, err)
	assert.Equal(t, "Acme", got.Company)
	assert.Equal(t, "12345678000190", got.TaxID)
	assert.Equal(t, models.StatusPartial, got.Status)
	assert.Equal(t, 512, got.ArchiveSize)
	assert.True(t, started.Equal(got.StartedAt))
	require.Len(t, got.Documents, 2)
	assert.Equal(t, models.CategoryCTeSaida, got.Documents[0].Category)
	assert.Equal(t, "lote.zip", got.Documents[0].Source)
	assert.Equal(t, []string{"vazio.txt"}, got.FailedDocuments())
	assert.Equal(t, map[models.Category]int{models.CategoryCTeSaida: 1}, got.CategoryCounts())
}

func TestSQLiteStore_GetUnknown(t *testing.T) {
	store := newTestStore(t)
	_, err := store.Get(context.Background(), "nope")
	assert.True(t, errors.Is(err, ErrRunNotFound))
}

func TestSQLiteStore_RecordIsAppendOnly(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	run := sampleRun("run-1", time.Now().UTC())

	require.NoError(t, store.Record(ctx, run))
	assert.Error(t, store.Record(ctx, run))
	assert.Error(t, store.Record(ctx, models.RunRecord{}))
}

func TestSQLiteStore_List(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

	for i, id := range []string{"a", "b", "c"} {
		require.NoError(t, store.Record(ctx, sampleRun(id, base.Add(time.Duration(i)*time.Hour))))
	}

	runs, err := store.List(ctx, 0)
	require.NoError(t, err)
	require.Len(t, runs, 3)
	assert.Equal(t, "c", runs[0].ID)
	assert.Equal(t, "a", runs[2].ID)
	assert.Len(t, runs[1].Documents, 2)

	runs, err = store.List(ctx, 2)
	require.NoError(t, err)
	assert.Len(t, runs, 2)
}

func TestSQLiteStore_ReopenKeepsData(t *testing.T) {
	path := filepath.Join(t.TempDir(), "history.db")
	ctx := context.Background()

	store, err := NewSQLiteStore(ctx, path, nil)
	require.NoError(t, err)
	require.NoError(t, store.Record(ctx, sampleRun("run-1", time.Now().UTC())))
	require.NoError(t, store.Close())

	store, err = NewSQLiteStore(ctx, path, nil)
	require.NoError(t, err)
	defer func() { _ = store.Close() }()

	runs, err := store.List(ctx, 0)
	require.NoError(t, err)
	assert.Len(t, runs, 1)
}

func TestNopRecorder(t *testing.T) {
	var r Recorder = NopRecorder{}
	assert.NoError(t, r.Record(context.Background(), models.RunRecord{}))
}

func TestSQLiteStore_SchemaVersion(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	var version int
	require.NoError(t, store.db.QueryRowContext(ctx, "PRAGMA user_version").Scan(&version))
	assert.Equal(t, ExpectedSchemaVersion, version)
	assert.Equal(t, 1, version)

	rows, err := store.db.QueryContext(ctx, "SELECT name FROM pragma_table_info('run_documents')")
	require.NoError(t, err)
	defer func() { _ = rows.Close() }()
	var columns []string
	for rows.Next() {
		var name string
		require.NoError(t, rows.Scan(&name))
		columns = append(columns, name)
	}
	require.NoError(t, rows.Err())
	assert.Contains(t, columns, "source")
}
