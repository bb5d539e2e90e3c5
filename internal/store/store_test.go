package store

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOpen_SelectsSQLiteForPaths(t *testing.T) {
	s, err := Open(context.Background(), filepath.Join(t.TempDir(), "data.db"))
	require.NoError(t, err)
	defer s.Close()

	_, ok := s.(*SQLiteStore)
	assert.True(t, ok)
}

func TestOpen_SelectsMongoForMongoURIs(t *testing.T) {
	// Connect is lazy: no dialing happens until the first operation, so the
	// routing decision is testable without a running deployment.
	s, err := Open(context.Background(), "mongodb://localhost:27017/testdb")
	require.NoError(t, err)
	defer s.Close()

	_, ok := s.(*MongoStore)
	assert.True(t, ok)
}

func TestConnstringDatabase(t *testing.T) {
	tests := []struct {
		uri  string
		want string
	}{
		{"mongodb://localhost:27017/tabula", "tabula"},
		{"mongodb://localhost:27017/", ""},
		{"mongodb://localhost:27017", ""},
		{"mongodb+srv://user:pw@cluster.example.net/records", "records"},
	}
	for _, tt := range tests {
		got, err := connstringDatabase(tt.uri)
		require.NoError(t, err, tt.uri)
		assert.Equal(t, tt.want, got, tt.uri)
	}
}

func TestApplyPatch(t *testing.T) {
	rec := record("a", "1", "b", "2")

	applyPatch(rec, map[string]string{"b": "3", "d": "4", "c": "5"})

	a, _ := rec.Get("a")
	b, _ := rec.Get("b")
	assert.Equal(t, "1", a)
	assert.Equal(t, "3", b)
	// Overwritten fields keep their position; new ones append sorted.
	assert.Equal(t, []string{"a", "b", "c", "d"}, rec.Columns())
}

func TestApplyPatch_EmptyPatchIsNoop(t *testing.T) {
	rec := record("a", "1")
	applyPatch(rec, nil)
	assert.Equal(t, []string{"a"}, rec.Columns())
}
