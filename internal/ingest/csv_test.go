package ingest

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIngest_RoundTrip(t *testing.T) {
	records, err := Ingest([]byte("Name,Status\nAda,Pending\nLin,Pending\n"))
	require.NoError(t, err)
	require.Len(t, records, 2)

	assert.Equal(t, []string{"Name", "Status"}, records[0].Columns())

	name, ok := records[0].Get("Name")
	require.True(t, ok)
	assert.Equal(t, "Ada", name)

	status, ok := records[1].Get("Status")
	require.True(t, ok)
	assert.Equal(t, "Pending", status)
}

func TestIngest_PreservesColumnOrder(t *testing.T) {
	records, err := Ingest([]byte("z,a,m\n1,2,3\n"))
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, []string{"z", "a", "m"}, records[0].Columns())
}

func TestIngest_ValuesStayText(t *testing.T) {
	records, err := Ingest([]byte("n,b\n42,true\n"))
	require.NoError(t, err)

	n, _ := records[0].Get("n")
	b, _ := records[0].Get("b")
	assert.Equal(t, "42", n)
	assert.Equal(t, "true", b)
}

func TestIngest_ShortRowOmitsTrailingColumns(t *testing.T) {
	records, err := Ingest([]byte("a,b,c\n1,2\n"))
	require.NoError(t, err)
	require.Len(t, records, 1)

	assert.Equal(t, 2, records[0].Len())
	_, ok := records[0].Get("c")
	assert.False(t, ok, "missing trailing cell must not produce a field")
}

func TestIngest_LongRowIsParseError(t *testing.T) {
	records, err := Ingest([]byte("a,b\n1,2\n1,2,3\n"))
	require.Error(t, err)
	assert.Nil(t, records, "no partial record set on failure")

	var pe *ParseError
	require.True(t, errors.As(err, &pe))
	assert.Equal(t, 3, pe.Row)
}

func TestIngest_UnterminatedQuoteIsParseError(t *testing.T) {
	_, err := Ingest([]byte("a,b\n\"oops,2\n"))
	var pe *ParseError
	require.True(t, errors.As(err, &pe))
}

func TestIngest_EmptyInputIsParseError(t *testing.T) {
	_, err := Ingest(nil)
	var pe *ParseError
	require.True(t, errors.As(err, &pe))
}

func TestIngest_HeaderOnlyYieldsNoRecords(t *testing.T) {
	records, err := Ingest([]byte("a,b\n"))
	require.NoError(t, err)
	assert.Empty(t, records)
}

func TestIngest_StripsBOM(t *testing.T) {
	records, err := Ingest([]byte("\xEF\xBB\xBFa,b\n1,2\n"))
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, []string{"a", "b"}, records[0].Columns())
}

func TestIngest_Deterministic(t *testing.T) {
	raw := []byte("Name,Status\nAda,Pending\nLin,Pending\n")

	first, err := Ingest(raw)
	require.NoError(t, err)
	second, err := Ingest(raw)
	require.NoError(t, err)

	require.Len(t, second, len(first))
	for i := range first {
		assert.Equal(t, first[i].Columns(), second[i].Columns())
		for _, c := range first[i].Columns() {
			a, _ := first[i].Get(c)
			b, _ := second[i].Get(c)
			assert.Equal(t, a, b)
		}
	}
}

func TestIngest_QuotedCellsAndEmbeddedCommas(t *testing.T) {
	records, err := Ingest([]byte("Name,Note\n\"Ada, Countess\",\"line one\nline two\"\n"))
	require.NoError(t, err)
	require.Len(t, records, 1)

	name, _ := records[0].Get("Name")
	note, _ := records[0].Get("Note")
	assert.Equal(t, "Ada, Countess", name)
	assert.Equal(t, "line one\nline two", note)
}
