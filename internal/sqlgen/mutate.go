package sqlgen

import (
	"encoding/json"
	"fmt"
	"strings"

	"golang.org/x/text/unicode/norm"

	"github.com/tabkit/tabq/internal/keypath"
	"github.com/tabkit/tabq/internal/query"
)

// compileUpdate rewrites the full document of every matched row with
// the target path replaced. Paths without array segments replace in
// place; a single array level is rebuilt element-wise from a tree walk.
// Deeper array nesting is rejected rather than mis-applied.
func compileUpdate(q query.Query, set query.Set) (Statement, error) {
	table, err := QuoteTable(q.Table)
	if err != nil {
		return Statement{}, err
	}
	if len(set.Path) == 0 {
		return Statement{}, unsupported(ReasonSelectionShape, "set path is empty")
	}
	if n := set.Path.ArraySegments(); n >= 2 {
		return Statement{}, unsupported(ReasonNestedArrayMutation,
			"set path %q crosses %d array levels, at most 1 is supported", set.Path, n)
	}

	raw, err := json.Marshal(set.Value)
	if err != nil {
		return Statement{}, fmt.Errorf("encode set value: %w", err)
	}
	// Written text is NFC-normalized like inserted documents, so updates
	// never reintroduce a second Unicode spelling into stored rows.
	value := string(norm.NFC.Bytes(raw))

	var b strings.Builder
	var args []any

	b.WriteString("UPDATE ")
	b.WriteString(table)
	b.WriteString(" SET data = ")

	if set.Path.ArraySegments() == 0 {
		// Structural replace-in-place; json_set creates missing keys.
		b.WriteString("json_set(data, ")
		b.WriteString(sqlString(set.Path.JSONPath()))
		b.WriteString(", json(?))")
		args = append(args, value)
	} else {
		expr, exprArgs := rebuildArrayExpr(set.Path, value)
		b.WriteString(expr)
		args = append(args, exprArgs...)
	}

	whereArgs, err := writeWhere(&b, q.Filter)
	if err != nil {
		return Statement{}, err
	}
	args = append(args, whereArgs...)

	return Statement{SQL: b.String(), Args: args}, nil
}

// rebuildArrayExpr materializes the array containing the mutation
// target, transforms elements, re-aggregates in document order, and
// substitutes the rebuilt array back into the document. Rows whose
// target is not an array pass through unchanged.
func rebuildArrayExpr(path keypath.Path, value string) (string, []any) {
	split := 0
	for i, seg := range path {
		if keypath.IsArrayIndex(seg) {
			split = i
			break
		}
	}
	arrJP := sqlString(path[:split].JSONPath())
	elemSeg := path[split]
	post := path[split+1:]

	elem, args := rebuildElementExpr(elemSeg, post, value)

	sub := fmt.Sprintf(
		"SELECT json_group_array(%s) FROM json_tree(data, %s) AS el WHERE el.path = %s",
		elem, arrJP, arrJP)

	expr := fmt.Sprintf(
		"CASE WHEN json_type(data, %s) = 'array' THEN json_set(data, %s, (%s)) ELSE data END",
		arrJP, arrJP, sub)
	return expr, args
}

// rebuildElementExpr emits the per-element expression of the rebuild:
// the addressed element is replaced (wholesale or at a sub-path), all
// other elements are re-encoded unchanged.
func rebuildElementExpr(elemSeg keypath.Segment, post keypath.Path, value string) (string, []any) {
	passthrough := reencode("el")

	if len(post) == 0 {
		if _, wild := elemSeg.(keypath.Wildcard); wild {
			// Replace every element.
			return "json(?)", []any{value}
		}
		idx := int(elemSeg.(keypath.Index))
		return fmt.Sprintf("json(CASE WHEN el.key = ? THEN ? ELSE %s END)", passthrough),
			[]any{idx, value}
	}

	// Sub-path replacement applies only to container elements; scalar
	// elements cannot hold the key and pass through unchanged.
	replace := fmt.Sprintf("json_set(el.value, %s, json(?))", sqlString(post.JSONPath()))

	if _, wild := elemSeg.(keypath.Wildcard); wild {
		return fmt.Sprintf("json(CASE WHEN el.type IN ('object', 'array') THEN %s ELSE %s END)", replace, passthrough),
			[]any{value}
	}
	idx := int(elemSeg.(keypath.Index))
	return fmt.Sprintf("json(CASE WHEN el.key = ? AND el.type IN ('object', 'array') THEN %s ELSE %s END)", replace, passthrough),
		[]any{idx, value}
}

// compileDelete removes whole rows; no shape reconstruction is needed.
// Without a filter every row of the table is removed.
func compileDelete(q query.Query) (Statement, error) {
	table, err := QuoteTable(q.Table)
	if err != nil {
		return Statement{}, err
	}

	var b strings.Builder
	b.WriteString("DELETE FROM ")
	b.WriteString(table)

	args, err := writeWhere(&b, q.Filter)
	if err != nil {
		return Statement{}, err
	}

	return Statement{SQL: b.String(), Args: args}, nil
}
