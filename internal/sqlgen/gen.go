package sqlgen

import (
	"errors"
	"fmt"
	"strings"

	"github.com/tabkit/tabq/internal/keypath"
	"github.com/tabkit/tabq/internal/query"
	"github.com/tabkit/tabq/internal/shape"
)

// Compile turns a query into one executable statement. The mutation
// field selects between SELECT, UPDATE, and DELETE generation.
func Compile(q query.Query) (Statement, error) {
	switch m := q.Mutation.(type) {
	case nil:
		return compileSelect(q)
	case query.Set:
		return compileUpdate(q, m)
	case query.Delete:
		return compileDelete(q)
	default:
		return Statement{}, fmt.Errorf("unknown mutation type %T", m)
	}
}

// compileSelect emits one labeled expression per selected top-level
// key, all wrapped in a single json_object call so the result set has
// exactly one JSON column per row. An empty selection returns the
// stored document as-is.
func compileSelect(q query.Query) (Statement, error) {
	table, err := QuoteTable(q.Table)
	if err != nil {
		return Statement{}, err
	}

	var b strings.Builder
	var args []any

	b.WriteString("SELECT ")
	if len(q.Select) == 0 {
		b.WriteString("data")
	} else {
		plans, err := shape.Group(q.Select)
		if err != nil {
			var conflict *shape.ConflictError
			if errors.As(err, &conflict) {
				return Statement{}, unsupported(ReasonSelectionShape, "%s", conflict)
			}
			return Statement{}, err
		}

		b.WriteString("json_object(")
		for i, plan := range plans {
			if i > 0 {
				b.WriteString(", ")
			}
			expr, exprArgs, err := keyExpr(plan)
			if err != nil {
				return Statement{}, err
			}
			b.WriteString(sqlString(string(plan.Key)))
			b.WriteString(", ")
			b.WriteString(expr)
			args = append(args, exprArgs...)
		}
		b.WriteString(")")
	}

	b.WriteString(" FROM ")
	b.WriteString(table)

	whereArgs, err := writeWhere(&b, q.Filter)
	if err != nil {
		return Statement{}, err
	}
	args = append(args, whereArgs...)

	if err := writeOrder(&b, q.Order); err != nil {
		return Statement{}, err
	}

	if q.Range != nil {
		b.WriteString(" LIMIT ? OFFSET ?")
		args = append(args, q.Range.Limit, q.Range.Offset)
	}

	return Statement{SQL: b.String(), Args: args}, nil
}

// keyExpr emits the value expression for one top-level key according to
// its classified strategy.
func keyExpr(plan *shape.Plan) (string, []any, error) {
	switch plan.Strategy {
	case shape.StrategyKey:
		jp := keypath.Path{plan.Key}.JSONPath()
		return "data -> " + sqlString(jp), nil, nil
	case shape.StrategyIndex:
		expr, err := indexExpr(plan)
		return expr, nil, err
	case shape.StrategyBroadcast:
		return broadcastExpr(plan)
	}
	return "", nil, fmt.Errorf("unknown strategy %v", plan.Strategy)
}

// guardedElement extracts a single array element, yielding a clean
// one-element array when it exists and a true null when it does not —
// never a one-element array containing null.
func guardedElement(jp string) string {
	p := sqlString(jp)
	return fmt.Sprintf(
		"CASE WHEN json_extract(data, %s) IS NOT NULL THEN json_array(data -> %s) ELSE NULL END",
		p, p)
}

// shellNode rebuilds the object shells between a top-level key and an
// indexed leaf, so a.k1.r1[0] selects as {a: {k1: {r1: [v]}}}.
type shellNode struct {
	order    []string
	children map[string]*shellNode
	leaf     keypath.Path // full path of the indexed extraction
}

func newShellNode() *shellNode {
	return &shellNode{children: make(map[string]*shellNode)}
}

func (n *shellNode) child(key string) *shellNode {
	c, ok := n.children[key]
	if !ok {
		c = newShellNode()
		n.children[key] = c
		n.order = append(n.order, key)
	}
	return c
}

func indexExpr(plan *shape.Plan) (string, error) {
	root := newShellNode()
	for _, p := range plan.Paths {
		node := root
		for _, seg := range p[1:] {
			k, ok := seg.(keypath.Key)
			if !ok {
				break // the index chain belongs to the leaf
			}
			node = node.child(string(k))
		}
		if node.leaf != nil || len(node.order) > 0 {
			return "", unsupported(ReasonDuplicateSelection, "key %q selected more than once", plan.Key)
		}
		node.leaf = p
	}
	return renderShells(root)
}

func renderShells(n *shellNode) (string, error) {
	if n.leaf != nil {
		if len(n.order) > 0 {
			return "", unsupported(ReasonDuplicateSelection, "selections nested under indexed path %q", n.leaf)
		}
		return guardedElement(n.leaf.JSONPath()), nil
	}
	var b strings.Builder
	b.WriteString("json_object(")
	for i, key := range n.order {
		if i > 0 {
			b.WriteString(", ")
		}
		inner, err := renderShells(n.children[key])
		if err != nil {
			return "", err
		}
		b.WriteString(sqlString(key))
		b.WriteString(", ")
		b.WriteString(inner)
	}
	b.WriteString(")")
	return b.String(), nil
}

// broadcastExpr emits the correlated tree-walk subquery that rebuilds
// an array of objects restricted to the requested sub-keys. The walk is
// filtered on structural path equality so only direct elements of the
// array participate, in document order. When the array sits below
// intermediate keys (a.k1.r1[*].h), the result is nested back inside
// the same object shells the index strategy rebuilds.
func broadcastExpr(plan *shape.Plan) (string, []any, error) {
	jp := plan.ArrayPath.JSONPath()
	p := sqlString(jp)

	// Whole-array passthrough: c[*] selects the same value as c.
	if len(plan.SubPaths) == 0 && plan.ElemIndex == nil {
		return wrapShells("data -> "+p, plan.ArrayPath), nil, nil
	}

	var args []any
	elem, err := elementExpr("el.value", plan.SubPaths)
	if err != nil {
		return "", nil, err
	}

	var sub strings.Builder
	fmt.Fprintf(&sub, "SELECT json_group_array(json(%s)) FROM json_tree(data, %s) AS el WHERE el.path = %s AND el.type = 'object'", elem, p, p)

	// A literal element index narrows the walk and the guard both: a
	// present array with no such element selects as null, matching the
	// index strategy's treatment of absent elements.
	guard := p
	if plan.ElemIndex != nil {
		sub.WriteString(" AND el.key = ?")
		args = append(args, *plan.ElemIndex)
		elemPath := append(append(keypath.Path{}, plan.ArrayPath...), keypath.Index(*plan.ElemIndex))
		guard = sqlString(elemPath.JSONPath())
	}

	if plan.Explicit {
		expr := fmt.Sprintf("CASE WHEN json_extract(data, %s) IS NOT NULL THEN (%s) ELSE NULL END", guard, sub.String())
		return wrapShells(expr, plan.ArrayPath), args, nil
	}

	// Implicit broadcast: the query cannot tell an array of objects from
	// a plain nested object, so the statement branches on the stored
	// type and degrades to direct nested reconstruction for objects.
	objElse, err := nestedObjectExpr("data", plan.ArrayPath, plan.SubPaths)
	if err != nil {
		return "", nil, err
	}
	expr := fmt.Sprintf(
		"CASE WHEN json_type(data, %s) = 'array' THEN (%s) WHEN json_type(data, %s) = 'object' THEN %s ELSE NULL END",
		p, sub.String(), p, objElse)
	return expr, args, nil
}

// wrapShells nests expr inside the object shells for the key segments
// between the top-level key and the broadcast array. The top-level key
// itself is the json_object label emitted by compileSelect.
func wrapShells(expr string, arrayPath keypath.Path) string {
	for i := len(arrayPath) - 1; i >= 1; i-- {
		key := arrayPath[i].(keypath.Key)
		expr = fmt.Sprintf("json_object(%s, %s)", sqlString(string(key)), expr)
	}
	return expr
}

// elementExpr rebuilds one array element as an object containing only
// the requested sub-keys. Passthrough (no sub-keys) re-encodes the
// element itself.
func elementExpr(src string, subPaths []keypath.Path) (string, error) {
	if len(subPaths) == 0 {
		return reencode("el"), nil
	}
	return objectExpr(src, nil, subPaths)
}

// objectExpr renders the nested json_object reconstruction of rels,
// all relative to prefix, extracting from src.
func objectExpr(src string, prefix keypath.Path, rels []keypath.Path) (string, error) {
	var order []string
	groups := make(map[string][]keypath.Path)
	for _, rel := range rels {
		key, ok := rel[0].(keypath.Key)
		if !ok {
			return "", unsupported(ReasonSelectionShape, "selection %q cannot be labeled", rel)
		}
		if _, seen := groups[string(key)]; !seen {
			order = append(order, string(key))
		}
		groups[string(key)] = append(groups[string(key)], rel)
	}

	var b strings.Builder
	b.WriteString("json_object(")
	for i, key := range order {
		if i > 0 {
			b.WriteString(", ")
		}
		value, err := groupValueExpr(src, prefix, key, groups[key])
		if err != nil {
			return "", err
		}
		b.WriteString(sqlString(key))
		b.WriteString(", ")
		b.WriteString(value)
	}
	b.WriteString(")")
	return b.String(), nil
}

func groupValueExpr(src string, prefix keypath.Path, key string, rels []keypath.Path) (string, error) {
	next := append(append(keypath.Path{}, prefix...), keypath.Key(key))

	var tails []keypath.Path
	whole := false
	for _, rel := range rels {
		tail := rel[1:]
		if len(tail) == 0 {
			whole = true
		}
		tails = append(tails, tail)
	}

	// Selecting the key itself supersedes deeper selections under it.
	if whole {
		return src + " -> " + sqlString(next.JSONPath()), nil
	}

	allKeys := true
	for _, tail := range tails {
		if _, ok := tail[0].(keypath.Key); !ok {
			allKeys = false
		}
	}
	if allKeys {
		return objectExpr(src, next, tails)
	}

	// A tail starting with an index has no label of its own; it extracts
	// under this key's label, so only one such selection can exist.
	if len(rels) > 1 {
		return "", unsupported(ReasonDuplicateSelection, "multiple selections under %q", next)
	}
	full := append(next, tails[0]...)
	return src + " -> " + sqlString(full.JSONPath()), nil
}

// nestedObjectExpr is objectExpr anchored at an absolute document path;
// used for the object branch of implicit broadcasts.
func nestedObjectExpr(src string, at keypath.Path, rels []keypath.Path) (string, error) {
	return objectExpr(src, at, rels)
}

// reencode re-emits a tree-walk row as JSON text. Object and array
// rows carry JSON text already; boolean and null rows are spelled out
// because their atoms are SQL integers; remaining scalars go through
// json_quote. The result feeds json() so subtype propagation through
// CASE is never relied upon.
func reencode(alias string) string {
	return fmt.Sprintf(
		"CASE %[1]s.type WHEN 'object' THEN %[1]s.value WHEN 'array' THEN %[1]s.value WHEN 'true' THEN 'true' WHEN 'false' THEN 'false' WHEN 'null' THEN 'null' ELSE json_quote(%[1]s.atom) END",
		alias)
}
