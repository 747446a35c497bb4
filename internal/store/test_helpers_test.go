package store

import (
	"context"
	"encoding/json"
	"net/url"
	"path/filepath"
	"testing"

	"github.com/tabkit/tabq/internal/query"
	"github.com/tabkit/tabq/internal/sqlgen"
)

// createTestStore creates a new store backed by a temp file.
func createTestStore(t *testing.T) *Store {
	t.Helper()
	path := filepath.Join(t.TempDir(), "test.db")
	s, err := Open(path)
	if err != nil {
		t.Fatalf("Open() failed: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

// mustInsert inserts JSON document literals into a table, creating it.
func mustInsert(t *testing.T, s *Store, table string, docs ...string) {
	t.Helper()
	parsed := make([]Document, 0, len(docs))
	for _, raw := range docs {
		doc, err := decodeDocument(raw)
		if err != nil {
			t.Fatalf("test document %q: %v", raw, err)
		}
		parsed = append(parsed, doc)
	}
	if _, err := Insert(context.Background(), s, table, parsed); err != nil {
		t.Fatalf("Insert() failed: %v", err)
	}
}

// mustValues parses a raw query string into url.Values.
func mustValues(t *testing.T, rawQuery string) url.Values {
	t.Helper()
	params, err := url.ParseQuery(rawQuery)
	if err != nil {
		t.Fatalf("parse query %q: %v", rawQuery, err)
	}
	return params
}

// mustCompile parses a raw query string against a table and compiles it.
func mustCompile(t *testing.T, table, rawQuery string) sqlgen.Statement {
	t.Helper()
	params, err := url.ParseQuery(rawQuery)
	if err != nil {
		t.Fatalf("parse query %q: %v", rawQuery, err)
	}
	q, err := query.ParseParams(table, params)
	if err != nil {
		t.Fatalf("ParseParams(%q) failed: %v", rawQuery, err)
	}
	stmt, err := sqlgen.Compile(q)
	if err != nil {
		t.Fatalf("Compile(%q) failed: %v", rawQuery, err)
	}
	return stmt
}

// selectJSON runs a compiled select and re-encodes each row so results
// compare as canonical JSON text (map keys sorted by encoding/json).
func selectJSON(t *testing.T, s *Store, stmt sqlgen.Statement) []string {
	t.Helper()
	docs, err := Select(context.Background(), s, stmt)
	if err != nil {
		t.Fatalf("Select() failed: %v", err)
	}
	out := make([]string, 0, len(docs))
	for _, doc := range docs {
		text, err := json.Marshal(doc)
		if err != nil {
			t.Fatalf("re-encode row: %v", err)
		}
		out = append(out, string(text))
	}
	return out
}

// queryJSON is mustCompile followed by selectJSON.
func queryJSON(t *testing.T, s *Store, table, rawQuery string) []string {
	t.Helper()
	return selectJSON(t, s, mustCompile(t, table, rawQuery))
}
