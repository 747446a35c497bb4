package query

import (
	"fmt"
	"net/url"
	"strconv"
	"strings"

	"golang.org/x/text/unicode/norm"

	"github.com/tabkit/tabq/internal/keypath"
)

// ParseParams builds a Query from decoded URI query parameters.
//
// Recognized parameters:
//
//	select=a,b[0],c.h          comma-separated paths, order preserved
//	where=x=eq.0,and:y=gt.1    filter terms, combined left to right
//	order=x.desc,y.asc         order terms
//	range=0.10                 offset.limit
//
// Mutations are not expressed in parameters; callers attach them to the
// returned Query (the HTTP method decides the intent).
func ParseParams(table string, params url.Values) (Query, error) {
	q := Query{Table: table}

	if raw := params.Get("select"); raw != "" {
		sel, err := parseSelect(raw)
		if err != nil {
			return Query{}, err
		}
		q.Select = sel
	}

	if raw := params.Get("where"); raw != "" {
		pred, err := ParseWhere(raw)
		if err != nil {
			return Query{}, err
		}
		q.Filter = pred
	}

	if raw := params.Get("order"); raw != "" {
		order, err := parseOrder(raw)
		if err != nil {
			return Query{}, err
		}
		q.Order = order
	}

	if raw := params.Get("range"); raw != "" {
		rng, err := parseRange(raw)
		if err != nil {
			return Query{}, err
		}
		q.Range = rng
	}

	return q, nil
}

func parseSelect(raw string) ([]keypath.Path, error) {
	var paths []keypath.Path
	for _, part := range strings.Split(raw, ",") {
		p, err := keypath.Parse(strings.TrimSpace(part))
		if err != nil {
			return nil, err
		}
		paths = append(paths, p)
	}
	return paths, nil
}

// ParseWhere parses a filter expression. Terms are comma-separated; the
// first is bare and later terms carry an `and:` or `or:` prefix. A term
// has the form `path=op.value`, e.g. `x=gt.0`, `y=not.eq.1`,
// `z=in.(1|2|3)`.
func ParseWhere(raw string) (Predicate, error) {
	var pred Predicate
	for i, term := range strings.Split(raw, ",") {
		term = strings.TrimSpace(term)
		comb := "and"
		switch {
		case i == 0:
		case strings.HasPrefix(term, "and:"):
			term = term[len("and:"):]
		case strings.HasPrefix(term, "or:"):
			comb = "or"
			term = term[len("or:"):]
		default:
			return nil, &ParseError{Param: "where", Reason: fmt.Sprintf("term %q lacks and:/or: prefix", term)}
		}

		leaf, err := parseTerm(term)
		if err != nil {
			return nil, err
		}

		switch {
		case pred == nil:
			pred = leaf
		case comb == "and":
			pred = combineAnd(pred, leaf)
		default:
			pred = Or{Preds: []Predicate{pred, leaf}}
		}
	}
	return pred, nil
}

// combineAnd appends to an existing conjunction instead of nesting.
func combineAnd(left, right Predicate) Predicate {
	if and, ok := left.(And); ok {
		and.Preds = append(and.Preds, right)
		return and
	}
	return And{Preds: []Predicate{left, right}}
}

func parseTerm(term string) (Predicate, error) {
	eq := strings.IndexByte(term, '=')
	if eq <= 0 {
		return nil, &ParseError{Param: "where", Reason: fmt.Sprintf("term %q is not path=op.value", term)}
	}
	path, err := keypath.Parse(term[:eq])
	if err != nil {
		return nil, err
	}

	rest := term[eq+1:]
	negated := false
	if strings.HasPrefix(rest, "not.") {
		negated = true
		rest = rest[len("not."):]
	}

	dot := strings.IndexByte(rest, '.')
	if dot <= 0 {
		return nil, &ParseError{Param: "where", Reason: fmt.Sprintf("term %q lacks an operator", term)}
	}
	op, rawVal := Op(rest[:dot]), rest[dot+1:]

	var leaf Predicate
	switch {
	case op == "in":
		vals, err := parseInList(rawVal)
		if err != nil {
			return nil, err
		}
		leaf = In{Path: path, Values: vals}
	default:
		if _, ok := op.SQL(); !ok {
			return nil, &ParseError{Param: "where", Reason: fmt.Sprintf("unsupported operator %q", op)}
		}
		leaf = Cmp{Path: path, Op: op, Value: parseLiteral(rawVal)}
	}

	if negated {
		leaf = Not{Pred: leaf}
	}
	return leaf, nil
}

func parseInList(raw string) ([]any, error) {
	if !strings.HasPrefix(raw, "(") || !strings.HasSuffix(raw, ")") {
		return nil, &ParseError{Param: "where", Reason: fmt.Sprintf("in list %q must be (v1|v2|...)", raw)}
	}
	inner := raw[1 : len(raw)-1]
	if inner == "" {
		return nil, &ParseError{Param: "where", Reason: "empty in list"}
	}
	var vals []any
	for _, part := range strings.Split(inner, "|") {
		vals = append(vals, parseLiteral(part))
	}
	return vals, nil
}

// parseLiteral decodes a term value as a JSON scalar, falling back to a
// plain string. Strings are NFC-normalized to match the store's
// write-side canonicalization, so either Unicode spelling of a value
// filters the same rows.
func parseLiteral(raw string) any {
	switch raw {
	case "null":
		return nil
	case "true":
		return true
	case "false":
		return false
	}
	if n, err := strconv.ParseInt(raw, 10, 64); err == nil {
		return n
	}
	if f, err := strconv.ParseFloat(raw, 64); err == nil {
		return f
	}
	return norm.NFC.String(raw)
}

func parseOrder(raw string) ([]OrderTerm, error) {
	var terms []OrderTerm
	for _, part := range strings.Split(raw, ",") {
		part = strings.TrimSpace(part)
		dot := strings.LastIndexByte(part, '.')
		if dot <= 0 {
			return nil, &ParseError{Param: "order", Reason: fmt.Sprintf("term %q is not path.direction", part)}
		}
		dir := Direction(part[dot+1:])
		if dir != Asc && dir != Desc {
			return nil, &ParseError{Param: "order", Reason: fmt.Sprintf("direction %q is not asc or desc", part[dot+1:])}
		}
		path, err := keypath.Parse(part[:dot])
		if err != nil {
			return nil, err
		}
		terms = append(terms, OrderTerm{Path: path, Dir: dir})
	}
	return terms, nil
}

func parseRange(raw string) (*Range, error) {
	dot := strings.IndexByte(raw, '.')
	if dot < 0 {
		return nil, &ParseError{Param: "range", Reason: "expected offset.limit"}
	}
	offset, err1 := strconv.Atoi(raw[:dot])
	limit, err2 := strconv.Atoi(raw[dot+1:])
	if err1 != nil || err2 != nil || offset < 0 || limit < 0 {
		return nil, &ParseError{Param: "range", Reason: fmt.Sprintf("bad range %q", raw)}
	}
	return &Range{Offset: offset, Limit: limit}, nil
}
