// Package ingest converts raw delimited text into schema-less records.
//
// The pipeline is deliberately dumb: the first row names the columns, every
// later row becomes one record, and every cell stays a string. Interpretation
// of values belongs to downstream consumers. Ingestion is all-or-nothing: a
// structural error anywhere in the input means no records are produced at all,
// so a failed upload can never leave a partial record set behind.
package ingest

import (
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"io"

	"github.com/agentic-research/tabula/api"
)

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// ParseError reports malformed CSV structure: an unterminated quote, a broken
// row boundary, or a row carrying more cells than the header declares. Row is
// 1-based over the raw input (the header is row 1); 0 means unknown.
type ParseError struct {
	Row int
	Err error
}

func (e *ParseError) Error() string {
	if e.Row > 0 {
		return fmt.Sprintf("csv parse error on row %d: %v", e.Row, e.Err)
	}
	return fmt.Sprintf("csv parse error: %v", e.Err)
}

func (e *ParseError) Unwrap() error { return e.Err }

// Ingest parses raw CSV bytes into an ordered sequence of records.
//
// The first row is the header; its column order is preserved in every record.
// A row with fewer cells than the header simply omits the trailing columns.
// A row with more cells than the header is a *ParseError, as is any structural
// CSV error. Re-ingesting the same bytes is deterministic and side-effect-free.
func Ingest(raw []byte) ([]api.Record, error) {
	raw = bytes.TrimPrefix(raw, utf8BOM)

	r := csv.NewReader(bytes.NewReader(raw))
	// Per-row column counts legitimately differ; length is checked against
	// the header below, not by the reader.
	r.FieldsPerRecord = -1

	header, err := r.Read()
	if err == io.EOF {
		return nil, &ParseError{Err: errors.New("empty input, no header row")}
	}
	if err != nil {
		return nil, wrapCSVErr(err)
	}

	var records []api.Record
	for {
		row, err := r.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, wrapCSVErr(err)
		}
		if len(row) > len(header) {
			line, _ := r.FieldPos(0)
			return nil, &ParseError{
				Row: line,
				Err: fmt.Errorf("row has %d cells but header declares %d columns", len(row), len(header)),
			}
		}
		rec := api.NewRecord()
		for i, cell := range row {
			rec.Set(header[i], cell)
		}
		records = append(records, rec)
	}
	return records, nil
}

// wrapCSVErr converts an encoding/csv error into a *ParseError, keeping the
// reader's line number when it has one.
func wrapCSVErr(err error) error {
	var ce *csv.ParseError
	if errors.As(err, &ce) {
		return &ParseError{Row: ce.Line, Err: ce.Err}
	}
	return &ParseError{Err: err}
}
