package sqlgen

import (
	"fmt"
	"strings"

	"github.com/tabkit/tabq/internal/keypath"
	"github.com/tabkit/tabq/internal/query"
)

// writeWhere appends the WHERE clause for a predicate tree, returning
// the bound arguments in textual order. A nil predicate writes nothing.
func writeWhere(b *strings.Builder, pred query.Predicate) ([]any, error) {
	if pred == nil {
		return nil, nil
	}
	sql, args, err := renderPredicate(pred)
	if err != nil {
		return nil, err
	}
	b.WriteString(" WHERE ")
	b.WriteString(sql)
	return args, nil
}

func renderPredicate(pred query.Predicate) (string, []any, error) {
	switch p := pred.(type) {
	case query.Cmp:
		return renderCmp(p)
	case query.In:
		return renderIn(p)
	case query.Not:
		inner, args, err := renderPredicate(p.Pred)
		if err != nil {
			return "", nil, err
		}
		return "NOT (" + inner + ")", args, nil
	case query.And:
		return renderBool(p.Preds, " AND ")
	case query.Or:
		return renderBool(p.Preds, " OR ")
	default:
		return "", nil, fmt.Errorf("unknown predicate type %T", pred)
	}
}

func renderBool(preds []query.Predicate, joiner string) (string, []any, error) {
	if len(preds) == 0 {
		return "1 = 1", nil, nil
	}
	parts := make([]string, 0, len(preds))
	var args []any
	for _, pred := range preds {
		sql, predArgs, err := renderPredicate(pred)
		if err != nil {
			return "", nil, err
		}
		parts = append(parts, sql)
		args = append(args, predArgs...)
	}
	return "(" + strings.Join(parts, joiner) + ")", args, nil
}

func renderCmp(p query.Cmp) (string, []any, error) {
	lhs, err := filterExtract(p.Path)
	if err != nil {
		return "", nil, err
	}

	// JSON null and absent key both extract as SQL NULL; equality
	// against null has to be an IS test to match them.
	if p.Value == nil {
		switch p.Op {
		case query.OpEq:
			return lhs + " IS NULL", nil, nil
		case query.OpNeq:
			return lhs + " IS NOT NULL", nil, nil
		}
	}

	op, ok := p.Op.SQL()
	if !ok {
		return "", nil, fmt.Errorf("unknown operator %q", p.Op)
	}

	value := p.Value
	if p.Op == query.OpLike {
		s, ok := value.(string)
		if !ok {
			return "", nil, unsupported(ReasonSelectionShape, "like needs a string pattern, got %T", value)
		}
		value = strings.ReplaceAll(s, "*", "%")
	}

	return fmt.Sprintf("%s %s ?", lhs, op), []any{value}, nil
}

func renderIn(p query.In) (string, []any, error) {
	lhs, err := filterExtract(p.Path)
	if err != nil {
		return "", nil, err
	}
	placeholders := strings.TrimSuffix(strings.Repeat("?, ", len(p.Values)), ", ")
	return fmt.Sprintf("%s IN (%s)", lhs, placeholders), p.Values, nil
}

// filterExtract renders the SQL-typed extraction of a path for use in
// comparisons. Wildcard paths have no single value to compare.
func filterExtract(p keypath.Path) (string, error) {
	for _, seg := range p {
		if _, ok := seg.(keypath.Wildcard); ok {
			return "", unsupported(ReasonWildcardFilter, "filter path %q contains a wildcard", p)
		}
	}
	return "json_extract(data, " + sqlString(p.JSONPath()) + ")", nil
}

// writeOrder appends the ORDER BY clause. Ties keep the underlying
// storage order.
func writeOrder(b *strings.Builder, terms []query.OrderTerm) error {
	if len(terms) == 0 {
		return nil
	}
	b.WriteString(" ORDER BY ")
	for i, term := range terms {
		for _, seg := range term.Path {
			if _, ok := seg.(keypath.Wildcard); ok {
				return unsupported(ReasonWildcardOrder, "order path %q contains a wildcard", term.Path)
			}
		}
		if i > 0 {
			b.WriteString(", ")
		}
		b.WriteString("json_extract(data, ")
		b.WriteString(sqlString(term.Path.JSONPath()))
		b.WriteString(")")
		if term.Dir == query.Desc {
			b.WriteString(" DESC")
		} else {
			b.WriteString(" ASC")
		}
	}
	return nil
}
