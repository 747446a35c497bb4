package store

import (
	"context"
	"encoding/json"
	"fmt"

	"golang.org/x/text/unicode/norm"

	"github.com/tabkit/tabq/internal/sqlgen"
)

// EnsureTable creates the named document table if it does not exist.
// The table holds one JSON document per row; the engine rejects rows
// that are not valid JSON, and byte-identical duplicates.
func EnsureTable(ctx context.Context, s *Store, name string) error {
	quoted, err := sqlgen.QuoteTable(name)
	if err != nil {
		return err
	}
	ddl := fmt.Sprintf(
		"CREATE TABLE IF NOT EXISTS %s (data TEXT NOT NULL UNIQUE CHECK (json_valid(data)))",
		quoted,
	)
	if _, err := s.db.ExecContext(ctx, ddl); err != nil {
		return storageErr("ensure table", err)
	}
	return nil
}

// ListTables returns the names of all document tables, sorted.
// Internal SQLite tables are excluded.
func ListTables(ctx context.Context, s *Store) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT name FROM sqlite_master
		WHERE type = 'table' AND name NOT LIKE 'sqlite_%'
		ORDER BY name
	`)
	if err != nil {
		return nil, storageErr("list tables", err)
	}
	defer rows.Close()

	names := []string{}
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, storageErr("list tables", err)
		}
		names = append(names, name)
	}
	if err := rows.Err(); err != nil {
		return nil, storageErr("list tables", err)
	}
	return names, nil
}

// Insert appends documents to a table, creating the table on first use.
// All documents are inserted in a single transaction - either every
// document lands or none does. Returns the number of rows inserted.
func Insert(ctx context.Context, s *Store, table string, docs []Document) (int64, error) {
	if err := EnsureTable(ctx, s, table); err != nil {
		return 0, err
	}
	quoted, err := sqlgen.QuoteTable(table)
	if err != nil {
		return 0, err
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, storageErr("insert", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, fmt.Sprintf("INSERT INTO %s (data) VALUES (json(?))", quoted))
	if err != nil {
		return 0, storageErr("insert", err)
	}
	defer stmt.Close()

	var n int64
	for _, doc := range docs {
		text, err := json.Marshal(doc)
		if err != nil {
			return 0, storageErr("insert", err)
		}
		// NFC puts both Unicode spellings of document text on one
		// canonical form, so filters match regardless of input form and
		// the UNIQUE constraint treats the spellings as the same row.
		res, err := stmt.ExecContext(ctx, string(norm.NFC.Bytes(text)))
		if err != nil {
			return 0, storageErr("insert", err)
		}
		affected, err := res.RowsAffected()
		if err != nil {
			return 0, storageErr("insert", err)
		}
		n += affected
	}

	if err := tx.Commit(); err != nil {
		return 0, storageErr("insert", err)
	}
	return n, nil
}
