// Package sqlgen compiles a query.Query into one executable SQL
// statement for a JSON1-capable SQLite engine.
//
// The compiler is a pure function: it keeps no state, is safe for
// concurrent use, and either compiles a query fully or fails before the
// store is touched. Values never appear in generated SQL text; they are
// bound as statement parameters.
//
// Shape reconstruction uses the -> operator rather than json_extract:
// -> always yields a JSON value, so booleans and nested structures
// survive reassembly through json_object and json_group_array.
// json_extract is used where SQL-typed values are wanted (filters,
// ordering, null guards).
package sqlgen

import (
	"fmt"
	"regexp"
	"strings"
)

// Statement is one compiled, parameterized SQL statement. It is
// constructed once per query, executed once, and discarded.
type Statement struct {
	SQL  string
	Args []any
}

var tableNamePattern = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

// InvalidTableError reports a table name that cannot be used as an SQL
// identifier.
type InvalidTableError struct {
	Name string
}

func (e *InvalidTableError) Error() string {
	return fmt.Sprintf("invalid table name %q", e.Name)
}

// QuoteTable validates and quotes a table name for use as an SQL
// identifier.
func QuoteTable(name string) (string, error) {
	if !tableNamePattern.MatchString(name) {
		return "", &InvalidTableError{Name: name}
	}
	return `"` + name + `"`, nil
}

// sqlString renders a trusted key or path as an SQL string literal.
// Path keys are identifier-restricted, so this never needs escaping,
// but escape anyway.
func sqlString(s string) string {
	return "'" + strings.ReplaceAll(s, "'", "''") + "'"
}
