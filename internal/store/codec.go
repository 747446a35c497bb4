package store

import (
	"context"
	"encoding/json"
	"strings"

	"github.com/tabkit/tabq/internal/sqlgen"
)

// Document is a single JSON document, one row of a table.
//
// Values follow encoding/json conventions with one exception: numbers
// are json.Number rather than float64, so integers written to a table
// read back as integers.
type Document = map[string]any

// decodeDocument parses one row's JSON text into a Document.
func decodeDocument(text string) (Document, error) {
	dec := json.NewDecoder(strings.NewReader(text))
	dec.UseNumber()
	var doc Document
	if err := dec.Decode(&doc); err != nil {
		return nil, err
	}
	return doc, nil
}

// Select executes a compiled read statement and decodes every result
// row. Rows come back in table order; a shaped selection yields one
// document per stored row even when the requested paths are absent.
func Select(ctx context.Context, s *Store, stmt sqlgen.Statement) ([]Document, error) {
	rows, err := s.db.QueryContext(ctx, stmt.SQL, stmt.Args...)
	if err != nil {
		return nil, storageErr("select", err)
	}
	defer rows.Close()

	docs := []Document{}
	for rows.Next() {
		var text string
		if err := rows.Scan(&text); err != nil {
			return nil, storageErr("select", err)
		}
		doc, err := decodeDocument(text)
		if err != nil {
			return nil, storageErr("select", err)
		}
		docs = append(docs, doc)
	}
	if err := rows.Err(); err != nil {
		return nil, storageErr("select", err)
	}
	return docs, nil
}

// Exec executes a compiled write statement (update or delete) and
// returns the number of rows affected.
func Exec(ctx context.Context, s *Store, stmt sqlgen.Statement) (int64, error) {
	res, err := s.db.ExecContext(ctx, stmt.SQL, stmt.Args...)
	if err != nil {
		return 0, storageErr("exec", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return 0, storageErr("exec", err)
	}
	return affected, nil
}
