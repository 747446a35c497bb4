// Package keypath models paths into JSON documents.
//
// A path is an ordered sequence of segments anchored at the document
// root. Segments are either object keys, literal array indices, or the
// wildcard that addresses every element of an array:
//
//	a.k1.r1[0]   key a, key k1, key r1, index 0
//	c[*].h       key c, wildcard, key h
//
// Paths are parsed from the textual form used in query parameters and
// rendered back either canonically (String) or as SQLite JSON path
// expressions (JSONPath).
package keypath

import (
	"fmt"
	"strconv"
	"strings"
)

// Segment is one step of a path.
//
// This is a sealed interface - only types in this package implement it.
// The marker method pattern enables exhaustive type switches in the
// shape classifier and the SQL generator.
type Segment interface {
	segmentNode()
	String() string
}

// Key addresses a field of an object. Keys are restricted to identifier
// characters so that rendered JSON paths match the structural paths
// reported by the engine's tree walk. Unicode canonicalization never
// applies to keys: every accepted key is plain ASCII, so there is no
// second spelling to normalize away (document values are a different
// matter and are NFC-normalized at the store boundary).
type Key string

func (Key) segmentNode()     {}
func (k Key) String() string { return string(k) }

// Index addresses a single array element by position.
type Index int

func (Index) segmentNode()     {}
func (i Index) String() string { return "[" + strconv.Itoa(int(i)) + "]" }

// Wildcard addresses every element of an array.
type Wildcard struct{}

func (Wildcard) segmentNode()   {}
func (Wildcard) String() string { return "[*]" }

// Path is an ordered sequence of segments. The zero value addresses the
// document root.
type Path []Segment

// InvalidPathError reports a malformed textual path. It is returned
// before any SQL is generated.
type InvalidPathError struct {
	Raw    string // the offending input
	Reason string
}

func (e *InvalidPathError) Error() string {
	return fmt.Sprintf("invalid path %q: %s", e.Raw, e.Reason)
}

func invalid(raw, reason string) error {
	return &InvalidPathError{Raw: raw, Reason: reason}
}

// isIdentKey reports whether s is usable as an unquoted key in a SQLite
// JSON path. Restricting keys to this form keeps structural-path
// comparisons against json_tree output exact.
func isIdentKey(s string) bool {
	if s == "" {
		return false
	}
	for i, r := range s {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r == '_':
		case r >= '0' && r <= '9':
			if i == 0 {
				return false
			}
		default:
			return false
		}
	}
	return true
}

// Parse converts a textual path like "a.k1.r1[0]" or "c[*].h" into a
// Path. Non-identifier keys are rejected, which makes all non-ASCII
// input invalid regardless of its Unicode normalization form.
func Parse(raw string) (Path, error) {
	if raw == "" {
		return nil, invalid(raw, "empty path")
	}

	var path Path
	for _, part := range strings.Split(raw, ".") {
		key, brackets, err := splitBrackets(raw, part)
		if err != nil {
			return nil, err
		}
		if !isIdentKey(key) {
			if key == "" {
				return nil, invalid(raw, "empty key segment")
			}
			return nil, invalid(raw, fmt.Sprintf("key %q is not an identifier", key))
		}
		path = append(path, Key(key))
		for _, b := range brackets {
			if b == "*" {
				path = append(path, Wildcard{})
				continue
			}
			n, err := strconv.Atoi(b)
			if err != nil || n < 0 || strings.HasPrefix(b, "+") {
				return nil, invalid(raw, fmt.Sprintf("bad array index %q", b))
			}
			path = append(path, Index(n))
		}
	}
	return path, nil
}

// splitBrackets separates a dotted part like `r1[0][*]` into the leading
// key and the bracket contents, validating bracket pairing.
func splitBrackets(raw, part string) (string, []string, error) {
	open := strings.IndexByte(part, '[')
	if open < 0 {
		if strings.IndexByte(part, ']') >= 0 {
			return "", nil, invalid(raw, "unmatched ']'")
		}
		return part, nil, nil
	}
	key := part[:open]
	rest := part[open:]

	var brackets []string
	for rest != "" {
		if rest[0] != '[' {
			return "", nil, invalid(raw, "text after array index")
		}
		end := strings.IndexByte(rest, ']')
		if end < 0 {
			return "", nil, invalid(raw, "unmatched '['")
		}
		inner := rest[1:end]
		if inner == "" {
			return "", nil, invalid(raw, "empty array index")
		}
		brackets = append(brackets, inner)
		rest = rest[end+1:]
	}
	return key, brackets, nil
}

// MustParse is Parse for trusted literals; it panics on error. Intended
// for tests and internal constants.
func MustParse(raw string) Path {
	p, err := Parse(raw)
	if err != nil {
		panic(err)
	}
	return p
}

// String renders the canonical textual form. Parse(p.String()) yields an
// equal path; the string form is also used as a map key.
func (p Path) String() string {
	var b strings.Builder
	for i, seg := range p {
		if _, ok := seg.(Key); ok && i > 0 {
			b.WriteByte('.')
		}
		b.WriteString(seg.String())
	}
	return b.String()
}

// JSONPath renders the path as a SQLite JSON path expression rooted at
// '$'. Wildcard segments have no JSON path form; callers must expand
// them before rendering.
func (p Path) JSONPath() string {
	var b strings.Builder
	b.WriteByte('$')
	for _, seg := range p {
		switch s := seg.(type) {
		case Key:
			b.WriteByte('.')
			b.WriteString(string(s))
		case Index:
			b.WriteString(s.String())
		case Wildcard:
			panic("keypath: wildcard segment has no JSON path form")
		}
	}
	return b.String()
}

// Depth returns the number of segments.
func (p Path) Depth() int { return len(p) }

// Parent returns the path with the final segment removed, or nil for a
// single-segment path.
func (p Path) Parent() Path {
	if len(p) <= 1 {
		return nil
	}
	return p[:len(p)-1]
}

// Equal reports structural equality.
func (p Path) Equal(q Path) bool {
	if len(p) != len(q) {
		return false
	}
	for i := range p {
		if p[i] != q[i] {
			return false
		}
	}
	return true
}

// IsArrayIndex reports whether the segment addresses an array position,
// either literally or via the wildcard.
func IsArrayIndex(seg Segment) bool {
	switch seg.(type) {
	case Index, Wildcard:
		return true
	}
	return false
}

// ArraySegments counts index and wildcard segments. Mutation support is
// bounded by this count.
func (p Path) ArraySegments() int {
	n := 0
	for _, seg := range p {
		if IsArrayIndex(seg) {
			n++
		}
	}
	return n
}
