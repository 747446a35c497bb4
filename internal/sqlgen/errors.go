package sqlgen

import "fmt"

// Reason codes for UnsupportedQueryError.
const (
	ReasonNestedArrayMutation = "nested-array-mutation"
	ReasonWildcardFilter      = "wildcard-filter"
	ReasonWildcardOrder       = "wildcard-order"
	ReasonDuplicateSelection  = "duplicate-selection"
	ReasonSelectionShape      = "selection-shape"
)

// UnsupportedQueryError reports a structurally valid query whose shape
// exceeds what generation supports. The query is rejected before any
// SQL reaches the engine; nothing is silently mis-compiled.
type UnsupportedQueryError struct {
	Reason string // one of the Reason* codes
	Detail string
}

func (e *UnsupportedQueryError) Error() string {
	if e.Detail == "" {
		return fmt.Sprintf("unsupported query (%s)", e.Reason)
	}
	return fmt.Sprintf("unsupported query (%s): %s", e.Reason, e.Detail)
}

func unsupported(reason, format string, args ...any) error {
	return &UnsupportedQueryError{Reason: reason, Detail: fmt.Sprintf(format, args...)}
}
