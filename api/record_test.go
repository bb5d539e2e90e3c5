package api

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRecordJSONKeepsFieldOrder(t *testing.T) {
	rec := NewRecord()
	rec.ID = "abc"
	rec.Set("z", "1")
	rec.Set("a", "2")

	data, err := json.Marshal(rec)
	require.NoError(t, err)
	assert.JSONEq(t, `{"id":"abc","fields":{"z":"1","a":"2"}}`, string(data))

	var back Record
	require.NoError(t, json.Unmarshal(data, &back))
	assert.Equal(t, "abc", back.ID)
	assert.Equal(t, []string{"z", "a"}, back.Columns(), "field order survives the wire")
}

func TestRecordSetOverwritesInPlace(t *testing.T) {
	rec := NewRecord()
	rec.Set("a", "1")
	rec.Set("b", "2")
	rec.Set("a", "changed")

	assert.Equal(t, []string{"a", "b"}, rec.Columns())
	v, _ := rec.Get("a")
	assert.Equal(t, "changed", v)
}

func TestRecordCloneIsIndependent(t *testing.T) {
	rec := NewRecord()
	rec.ID = "abc"
	rec.Set("a", "1")

	c := rec.Clone()
	c.Set("a", "mutated")
	c.Set("b", "new")

	v, _ := rec.Get("a")
	assert.Equal(t, "1", v)
	assert.Equal(t, 1, rec.Len())
	assert.Equal(t, "abc", c.ID)
}

func TestZeroRecordIsSafeToRead(t *testing.T) {
	var rec Record
	_, ok := rec.Get("a")
	assert.False(t, ok)
	assert.Zero(t, rec.Len())
	assert.Nil(t, rec.Columns())
}
