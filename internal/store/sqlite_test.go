package store

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/agentic-research/tabula/api"
)

func openTestStore(t *testing.T) *SQLiteStore {
	t.Helper()
	s, err := OpenSQLite(filepath.Join(t.TempDir(), "tabula.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func record(pairs ...string) api.Record {
	rec := api.NewRecord()
	for i := 0; i+1 < len(pairs); i += 2 {
		rec.Set(pairs[i], pairs[i+1])
	}
	return rec
}

func TestSQLiteStore_InsertAndList(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	n, err := s.InsertMany(ctx, []api.Record{
		record("Name", "Ada", "Status", "Pending"),
		record("Name", "Lin", "Status", "Pending"),
	})
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	records, err := s.List(ctx)
	require.NoError(t, err)
	require.Len(t, records, 2)

	// Insertion order and distinct identifiers.
	name0, _ := records[0].Get("Name")
	name1, _ := records[1].Get("Name")
	assert.Equal(t, "Ada", name0)
	assert.Equal(t, "Lin", name1)
	assert.NotEmpty(t, records[0].ID)
	assert.NotEmpty(t, records[1].ID)
	assert.NotEqual(t, records[0].ID, records[1].ID)
}

func TestSQLiteStore_ListPreservesFieldOrder(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	_, err := s.InsertMany(ctx, []api.Record{record("z", "1", "a", "2", "m", "3")})
	require.NoError(t, err)

	records, err := s.List(ctx)
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, []string{"z", "a", "m"}, records[0].Columns())
}

func TestSQLiteStore_HeterogeneousColumnSets(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	_, err := s.InsertMany(ctx, []api.Record{
		record("a", "1"),
		record("x", "9", "y", "8"),
	})
	require.NoError(t, err)

	records, err := s.List(ctx)
	require.NoError(t, err)
	require.Len(t, records, 2)
	assert.Equal(t, []string{"a"}, records[0].Columns())
	assert.Equal(t, []string{"x", "y"}, records[1].Columns())
}

func TestSQLiteStore_UpdateMergesPatch(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	_, err := s.InsertMany(ctx, []api.Record{record("a", "1", "b", "2")})
	require.NoError(t, err)
	records, err := s.List(ctx)
	require.NoError(t, err)
	id := records[0].ID

	updated, err := s.Update(ctx, id, map[string]string{"b": "3"})
	require.NoError(t, err)

	a, _ := updated.Get("a")
	b, _ := updated.Get("b")
	assert.Equal(t, "1", a, "untouched field must be preserved")
	assert.Equal(t, "3", b)
	assert.Equal(t, id, updated.ID, "identifier is immutable")

	// The merge is persisted, not just returned.
	records, err = s.List(ctx)
	require.NoError(t, err)
	b, _ = records[0].Get("b")
	assert.Equal(t, "3", b)
}

func TestSQLiteStore_UpdateAddsNewFields(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	_, err := s.InsertMany(ctx, []api.Record{record("a", "1")})
	require.NoError(t, err)
	records, err := s.List(ctx)
	require.NoError(t, err)

	updated, err := s.Update(ctx, records[0].ID, map[string]string{"b": "2", "c": "3"})
	require.NoError(t, err)
	// Existing fields keep their position; new fields append in lexical order.
	assert.Equal(t, []string{"a", "b", "c"}, updated.Columns())
}

func TestSQLiteStore_UpdateUnknownID(t *testing.T) {
	s := openTestStore(t)

	_, err := s.Update(context.Background(), "no-such-id", map[string]string{"a": "1"})
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestSQLiteStore_DeleteIsTerminal(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	_, err := s.InsertMany(ctx, []api.Record{record("a", "1"), record("a", "2")})
	require.NoError(t, err)
	records, err := s.List(ctx)
	require.NoError(t, err)
	id := records[0].ID

	require.NoError(t, s.Delete(ctx, id))

	records, err = s.List(ctx)
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.NotEqual(t, id, records[0].ID)

	assert.ErrorIs(t, s.Delete(ctx, id), ErrNotFound)
	_, err = s.Update(ctx, id, map[string]string{"a": "3"})
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestSQLiteStore_InsertManyEmptyBatch(t *testing.T) {
	s := openTestStore(t)

	n, err := s.InsertMany(context.Background(), nil)
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestSQLiteStore_PersistsAcrossReopen(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "tabula.db")
	ctx := context.Background()

	s, err := OpenSQLite(path)
	require.NoError(t, err)
	_, err = s.InsertMany(ctx, []api.Record{record("a", "1")})
	require.NoError(t, err)
	require.NoError(t, s.Close())

	s, err = OpenSQLite(path)
	require.NoError(t, err)
	defer s.Close()

	records, err := s.List(ctx)
	require.NoError(t, err)
	assert.Len(t, records, 1)
}
