// Package query defines the structured representation of one incoming
// table query: selected paths, filter predicate tree, ordering,
// pagination, and mutation intent. It also parses the URI query
// parameters the HTTP layer receives into that representation.
//
// Values in a Query are never rendered into SQL text; the generator
// binds them as statement parameters.
package query

import (
	"fmt"

	"github.com/tabkit/tabq/internal/keypath"
)

// Op is a comparison operator usable in a filter leaf. The set is a
// closed whitelist; anything else is rejected at parse time.
type Op string

const (
	OpEq   Op = "eq"
	OpNeq  Op = "neq"
	OpGt   Op = "gt"
	OpGte  Op = "gte"
	OpLt   Op = "lt"
	OpLte  Op = "lte"
	OpLike Op = "like"
)

// sqlOps maps each operator to its SQL spelling.
var sqlOps = map[Op]string{
	OpEq:   "=",
	OpNeq:  "!=",
	OpGt:   ">",
	OpGte:  ">=",
	OpLt:   "<",
	OpLte:  "<=",
	OpLike: "LIKE",
}

// SQL returns the SQL spelling of the operator and whether the operator
// is part of the whitelist.
func (o Op) SQL() (string, bool) {
	s, ok := sqlOps[o]
	return s, ok
}

// Predicate is a node of the filter tree.
//
// This is a sealed interface - only types in this package implement it.
// The marker method enables exhaustive type switches in the generator.
type Predicate interface {
	predicateNode()
}

// Cmp compares the value at a path with a literal.
type Cmp struct {
	Path  keypath.Path
	Op    Op
	Value any
}

func (Cmp) predicateNode() {}

// In tests membership of the value at a path in a literal set.
type In struct {
	Path   keypath.Path
	Values []any
}

func (In) predicateNode() {}

// Not negates a predicate.
type Not struct {
	Pred Predicate
}

func (Not) predicateNode() {}

// And is true when all child predicates are true.
type And struct {
	Preds []Predicate
}

func (And) predicateNode() {}

// Or is true when any child predicate is true.
type Or struct {
	Preds []Predicate
}

func (Or) predicateNode() {}

// Direction orders ascending or descending.
type Direction string

const (
	Asc  Direction = "asc"
	Desc Direction = "desc"
)

// OrderTerm is one entry of the order clause.
type OrderTerm struct {
	Path keypath.Path
	Dir  Direction
}

// Range paginates results. Offset and Limit are non-negative.
type Range struct {
	Offset int
	Limit  int
}

// Mutation expresses write intent.
//
// This is a sealed interface - only types in this package implement it.
// A nil Mutation means a plain selection.
type Mutation interface {
	mutationNode()
}

// Set replaces the value at Path with Value in every row matched by the
// query filter.
type Set struct {
	Path  keypath.Path
	Value any
}

func (Set) mutationNode() {}

// Delete removes every row matched by the query filter.
type Delete struct{}

func (Delete) mutationNode() {}

// Query is the structured form of one request against a table.
// Select order is preserved; an empty Select means all top-level keys.
type Query struct {
	Table    string
	Select   []keypath.Path
	Filter   Predicate
	Order    []OrderTerm
	Range    *Range
	Mutation Mutation
}

// ParseError reports a malformed query parameter.
type ParseError struct {
	Param  string // which parameter ("select", "where", ...)
	Reason string
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("bad %s parameter: %s", e.Param, e.Reason)
}
