// Package api defines the wire types shared by the tabula server and its
// clients. A Record is a schema-less document: an insertion-ordered mapping
// of column names to cell values plus a store-assigned identifier. The
// identifier is the canonical `id` field of the wire contract; it is never
// one of the record's own columns and is never editable.
package api

import (
	"encoding/json"
	"fmt"

	orderedmap "github.com/wk8/go-ordered-map/v2"
)

// Record is one schema-less document. Fields preserves source column order,
// but that order is display-only and carries no semantic weight. Two records
// in the same store may have entirely different column sets.
type Record struct {
	// ID is the store-assigned identifier. Opaque, immutable after creation,
	// never reused after deletion.
	ID string `json:"id"`
	// Fields maps column name to cell value in insertion order. Every value
	// is text; tabula never type-coerces cells.
	Fields *orderedmap.OrderedMap[string, string] `json:"fields"`
}

// NewRecord returns a Record with empty ordered fields.
func NewRecord() Record {
	return Record{Fields: orderedmap.New[string, string]()}
}

// Get returns the value of the named field.
func (r Record) Get(name string) (string, bool) {
	if r.Fields == nil {
		return "", false
	}
	return r.Fields.Get(name)
}

// Set adds or overwrites the named field. Existing fields keep their
// position; new fields are appended.
func (r Record) Set(name, value string) {
	r.Fields.Set(name, value)
}

// Len returns the number of fields.
func (r Record) Len() int {
	if r.Fields == nil {
		return 0
	}
	return r.Fields.Len()
}

// Columns returns the field names in insertion order.
func (r Record) Columns() []string {
	if r.Fields == nil {
		return nil
	}
	cols := make([]string, 0, r.Fields.Len())
	for pair := r.Fields.Oldest(); pair != nil; pair = pair.Next() {
		cols = append(cols, pair.Key)
	}
	return cols
}

// Clone returns a deep copy. The copy shares nothing with the original, so
// callers can mutate it without affecting cached records.
func (r Record) Clone() Record {
	c := Record{ID: r.ID, Fields: orderedmap.New[string, string]()}
	if r.Fields != nil {
		for pair := r.Fields.Oldest(); pair != nil; pair = pair.Next() {
			c.Fields.Set(pair.Key, pair.Value)
		}
	}
	return c
}

// MarshalFields serializes just the ordered field map as a JSON object.
func (r Record) MarshalFields() ([]byte, error) {
	if r.Fields == nil {
		return []byte("{}"), nil
	}
	data, err := json.Marshal(r.Fields)
	if err != nil {
		return nil, fmt.Errorf("marshal record fields: %w", err)
	}
	return data, nil
}

// UnmarshalFields parses a JSON object into ordered fields, replacing any
// existing ones. Key order in the JSON text is preserved.
func (r *Record) UnmarshalFields(data []byte) error {
	fields := orderedmap.New[string, string]()
	if err := json.Unmarshal(data, fields); err != nil {
		return fmt.Errorf("unmarshal record fields: %w", err)
	}
	r.Fields = fields
	return nil
}

// UploadResult is the response body of POST /upload.
type UploadResult struct {
	Message  string `json:"message"`
	Inserted int    `json:"inserted"`
}

// DeleteResult is the response body of DELETE /records/{id}.
type DeleteResult struct {
	Message string `json:"message"`
}

// ErrorBody is the body of every non-2xx response. The message is generic;
// detail stays in the server log.
type ErrorBody struct {
	Error string `json:"error"`
}
