// Package store persists schema-less records and owns their identifiers.
//
// Two backends implement the same contract: a SQLite file (the default,
// modernc driver, no cgo) and MongoDB (selected by a mongodb:// connection
// string, the store the system originally grew up against). Both assign a
// fresh UUID to every inserted record, keep insertion order for listing, and
// implement Update as a field merge: fields named in the patch are overwritten
// or appended, everything else is left exactly as stored.
package store

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"sort"
	"strings"

	"github.com/google/uuid"

	"github.com/agentic-research/tabula/api"
)

// ErrNotFound reports that an identifier does not address a stored record.
var ErrNotFound = errors.New("record not found")

// ValidationError reports store-side rejection of a document, e.g. a
// constraint violation during bulk insert.
type ValidationError struct {
	Reason string
	Err    error
}

func (e *ValidationError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("record rejected: %s: %v", e.Reason, e.Err)
	}
	return fmt.Sprintf("record rejected: %s", e.Reason)
}

func (e *ValidationError) Unwrap() error { return e.Err }

// Store is the record persistence contract.
//
// InsertMany reports how many records landed before any failure, so callers
// can surface partial-batch outcomes instead of guessing. The SQLite backend
// runs the batch in one transaction (inserted is 0 on failure); the Mongo
// backend keeps ordered fail-fast semantics, so a mid-batch error leaves
// records 0..k-1 persisted and reports inserted == k.
type Store interface {
	// InsertMany assigns a fresh identifier to each record and persists them
	// in order. Identifiers already present on the inputs are ignored.
	InsertMany(ctx context.Context, records []api.Record) (inserted int, err error)

	// List returns all records in insertion order, bookkeeping stripped.
	List(ctx context.Context) ([]api.Record, error)

	// Update merges patch into the record addressed by id and returns the
	// full resulting record. Returns ErrNotFound if id is unknown. Patch keys
	// are accepted as-is; field whitelisting is a boundary policy, not a
	// store concern.
	Update(ctx context.Context, id string, patch map[string]string) (api.Record, error)

	// Delete removes the record addressed by id. Returns ErrNotFound if
	// absent. Deletion is irreversible and the identifier is never reused.
	Delete(ctx context.Context, id string) error

	Close() error
}

// Open selects a backend from the connection string: mongodb:// and
// mongodb+srv:// URIs open a Mongo store, anything else is treated as a
// SQLite database path.
func Open(ctx context.Context, uri string) (Store, error) {
	if strings.HasPrefix(uri, "mongodb://") || strings.HasPrefix(uri, "mongodb+srv://") {
		return OpenMongo(ctx, uri)
	}
	return OpenSQLite(uri)
}

// newRecordID mints a fresh identifier. UUIDs make reuse after deletion a
// non-issue without the store having to remember tombstones.
func newRecordID() string {
	return uuid.NewString()
}

// connstringDatabase extracts the database name from a MongoDB URI path.
func connstringDatabase(uri string) (string, error) {
	u, err := url.Parse(uri)
	if err != nil {
		return "", fmt.Errorf("parse connection string: %w", err)
	}
	return strings.TrimPrefix(u.Path, "/"), nil
}

// applyPatch merges patch into rec in place. Existing fields keep their
// position and are overwritten; fields new to the record are appended in
// lexical order so the result does not depend on map iteration order.
func applyPatch(rec api.Record, patch map[string]string) {
	var added []string
	for k := range patch {
		if _, ok := rec.Get(k); ok {
			rec.Set(k, patch[k])
		} else {
			added = append(added, k)
		}
	}
	sort.Strings(added)
	for _, k := range added {
		rec.Set(k, patch[k])
	}
}
