package store

import (
	"errors"
	"fmt"

	"github.com/mattn/go-sqlite3"
)

// StorageError wraps a database failure with the operation that caused it.
type StorageError struct {
	Op  string // operation, e.g. "insert", "select"
	Err error
}

func (e *StorageError) Error() string {
	return fmt.Sprintf("storage: %s: %v", e.Op, e.Err)
}

func (e *StorageError) Unwrap() error {
	return e.Err
}

// storageErr wraps err as a StorageError for the given operation.
func storageErr(op string, err error) error {
	return &StorageError{Op: op, Err: err}
}

// IsUniqueViolation reports whether err was caused by the UNIQUE
// constraint on a table's data column, i.e. an attempt to insert a
// document that already exists byte-for-byte.
func IsUniqueViolation(err error) bool {
	var sqliteErr sqlite3.Error
	if errors.As(err, &sqliteErr) {
		return sqliteErr.ExtendedCode == sqlite3.ErrConstraintUnique
	}
	return false
}

// IsCheckViolation reports whether err was caused by the json_valid
// CHECK on a table's data column.
func IsCheckViolation(err error) bool {
	var sqliteErr sqlite3.Error
	if errors.As(err, &sqliteErr) {
		return sqliteErr.ExtendedCode == sqlite3.ErrConstraintCheck
	}
	return false
}
