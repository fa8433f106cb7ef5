package records

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/dl-alexandre/sheetmirror/internal/testing/mocks"
	"github.com/dl-alexandre/sheetmirror/internal/utils"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openMemory(t *testing.T) *Store {
	t.Helper()
	s, err := Open(MemoryPath)
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func TestMapRow(t *testing.T) {
	doc := MapRow([]string{"id", "title", "", "notes"}, []string{"7", "", "ignored"})
	assert.Equal(t, Document{"id": "7", "title": nil, "notes": nil}, doc)
}

func TestStore_Upsert(t *testing.T) {
	s := openMemory(t)
	ctx := context.Background()
	first := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	s.now = func() time.Time { return first }

	res, err := s.Upsert(ctx, "c", "k1", Document{"id": "k1", "v": "a"})
	require.NoError(t, err)
	assert.Equal(t, Inserted, res)

	res, err = s.Upsert(ctx, "c", "k1", Document{"id": "k1", "v": "a"})
	require.NoError(t, err)
	assert.Equal(t, Unchanged, res)

	later := first.Add(time.Hour)
	s.now = func() time.Time { return later }
	res, err = s.Upsert(ctx, "c", "k1", Document{"id": "k1", "v": "b"})
	require.NoError(t, err)
	assert.Equal(t, Updated, res)

	rec, ok, err := s.Get(ctx, "c", "k1")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "b", rec.Data["v"])
	assert.True(t, later.Equal(rec.UpdatedAt))

	_, ok, err = s.Get(ctx, "other", "k1")
	require.NoError(t, err)
	assert.False(t, ok, "collections are separate")
}

func TestStore_ReopenFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "records.db")
	s, err := Open(path)
	require.NoError(t, err)
	_, err = s.Upsert(context.Background(), "c", "k", Document{"id": "k"})
	require.NoError(t, err)
	require.NoError(t, s.Close())

	s, err = Open(path)
	require.NoError(t, err)
	defer s.Close()
	recs, err := s.List(context.Background(), "c")
	require.NoError(t, err)
	require.Len(t, recs, 1)
	assert.Equal(t, "k", recs[0].Key)
}

func TestSyncer_Push(t *testing.T) {
	store := openMemory(t)
	values := mocks.NewMockValues()
	values.Set("Sheet2!A1:Z1000", [][]interface{}{
		{"sku", "name", "price"},
		{"A1", "Widget", "9.99"},
		{"B2", "Gadget"},
		{"", "orphan"},
	})
	syncer := NewSyncer(values, store, "sheet-id", "Sheet2!A1:Z1000", "Sheet2Collection", nil)

	res, err := syncer.Push(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 3, res.Rows)
	assert.Equal(t, 2, res.Inserted)
	assert.Equal(t, 1, res.Skipped)
	assert.Equal(t, []string{"sku", "name", "price"}, res.Headers)

	rec, ok, err := store.Get(context.Background(), "Sheet2Collection", "B2")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, Document{"sku": "B2", "name": "Gadget", "price": nil}, rec.Data)

	values.Set("Sheet2!A1:Z1000", [][]interface{}{
		{"sku", "name", "price"},
		{"A1", "Widget", "10.49"},
		{"B2", "Gadget"},
	})
	res, err = syncer.Push(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, res.Updated)
	assert.Equal(t, 1, res.Unchanged)
	assert.Contains(t, res.Summary(), "1 updated")
}

func TestSyncer_EmptySheet(t *testing.T) {
	syncer := NewSyncer(mocks.NewMockValues(), openMemory(t), "sheet-id", "Sheet2!A1:Z1000", "c", nil)
	res, err := syncer.Push(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "No data found in the records sheet.", res.Summary())
}

func TestSyncer_SourceErrors(t *testing.T) {
	values := mocks.NewMockValues()
	values.Err = errors.New("403")
	syncer := NewSyncer(values, openMemory(t), "sheet-id", "Sheet2!A1:Z1000", "c", nil)
	_, err := syncer.Push(context.Background())
	assert.True(t, utils.HasCode(err, utils.ErrCodeSourceUnavailable))

	unconfigured := NewSyncer(values, openMemory(t), "", "Sheet2!A1:Z1000", "c", nil)
	_, err = unconfigured.Push(context.Background())
	assert.True(t, utils.HasCode(err, utils.ErrCodeSourceUnavailable))
}
