// Package shape classifies selected paths into SQL generation
// strategies. Every top-level key of a selection is handled by exactly
// one strategy; a single query may mix strategies across keys.
package shape

import (
	"fmt"

	"github.com/tabkit/tabq/internal/keypath"
)

// Strategy picks the generation rule for one top-level key.
type Strategy int

const (
	// StrategyKey extracts the key's value as stored. Nested object and
	// array structure is preserved natively by the engine.
	StrategyKey Strategy = iota

	// StrategyIndex extracts single array elements addressed by literal
	// indices, wrapped so an absent element yields null rather than a
	// one-element array containing null.
	StrategyIndex

	// StrategyBroadcast applies the same sub-key selections to every
	// object element of an array, rebuilding one object per element.
	StrategyBroadcast
)

func (s Strategy) String() string {
	switch s {
	case StrategyKey:
		return "key"
	case StrategyIndex:
		return "index"
	case StrategyBroadcast:
		return "broadcast"
	}
	return fmt.Sprintf("Strategy(%d)", int(s))
}

// Plan is the classified selection for one top-level key.
type Plan struct {
	Key      keypath.Key
	Strategy Strategy

	// Paths holds the full selected paths for the key, in request order.
	Paths []keypath.Path

	// Broadcast fields.

	// ArrayPath addresses the array being broadcast over, key segments
	// only (e.g. c, or a.k1.r1 for a nested array).
	ArrayPath keypath.Path
	// ElemIndex restricts the broadcast to one element when the query
	// gave a literal index, e.g. c[0].h.
	ElemIndex *int
	// Explicit is true when the query marked the array itself with an
	// index or wildcard segment. Implicit broadcasts (plain c.h) must
	// degrade to object navigation when the target is not an array.
	Explicit bool
	// SubPaths are the per-element selections relative to an element.
	// Empty means whole-element passthrough.
	SubPaths []keypath.Path
}

// ConflictError reports selections under one top-level key that no
// single strategy can serve.
type ConflictError struct {
	Key    string
	Reason string
}

func (e *ConflictError) Error() string {
	return fmt.Sprintf("conflicting selection under key %q: %s", e.Key, e.Reason)
}

// Group partitions selected paths by top-level key, preserving first
// occurrence order, and classifies each group.
func Group(paths []keypath.Path) ([]*Plan, error) {
	var order []keypath.Key
	groups := make(map[keypath.Key][]keypath.Path)

	for _, p := range paths {
		key, ok := p[0].(keypath.Key)
		if !ok {
			return nil, &ConflictError{Key: p.String(), Reason: "path does not start with a key"}
		}
		if _, seen := groups[key]; !seen {
			order = append(order, key)
		}
		groups[key] = append(groups[key], p)
	}

	plans := make([]*Plan, 0, len(order))
	for _, key := range order {
		plan, err := Classify(key, groups[key])
		if err != nil {
			return nil, err
		}
		plans = append(plans, plan)
	}
	return plans, nil
}

// Classify determines the strategy for one top-level key given all
// selected paths rooted at it. Paths must start with the key segment.
func Classify(key keypath.Key, paths []keypath.Path) (*Plan, error) {
	plan := &Plan{Key: key, Paths: paths}

	rels := make([]keypath.Path, len(paths))
	wholeKey := false
	for i, p := range paths {
		rels[i] = p[1:]
		if len(rels[i]) == 0 {
			wholeKey = true
		}
	}

	// Selecting the whole key supersedes any sub-selection of it.
	if wholeKey {
		plan.Strategy = StrategyKey
		return plan, nil
	}

	if allIndexTerminal(rels) {
		plan.Strategy = StrategyIndex
		return plan, nil
	}

	plan.Strategy = StrategyBroadcast
	if err := fillBroadcast(plan, rels); err != nil {
		return nil, err
	}
	return plan, nil
}

// allIndexTerminal reports whether every relative path has the form
// key* index+ — navigation that ends at a literal array element with no
// key or wildcard after any index.
func allIndexTerminal(rels []keypath.Path) bool {
	for _, rel := range rels {
		seenIndex := false
		for _, seg := range rel {
			switch seg.(type) {
			case keypath.Index:
				seenIndex = true
			case keypath.Wildcard:
				return false
			case keypath.Key:
				if seenIndex {
					return false
				}
			}
		}
		if !seenIndex {
			return false
		}
		if _, ok := rel[len(rel)-1].(keypath.Index); !ok {
			return false
		}
	}
	return true
}

// fillBroadcast derives the common array prefix, the optional element
// index, and the per-element sub-paths. All paths under the key must
// agree on the array being broadcast over.
func fillBroadcast(plan *Plan, rels []keypath.Path) error {
	type arraySpec struct {
		prefix   string // textual form of the key segments before the array segment
		elem     string // "", "*", or the literal index
		explicit bool
	}

	var first *arraySpec
	passthrough := false
	for _, rel := range rels {
		spec := arraySpec{}
		split := len(rel)
		for i, seg := range rel {
			if keypath.IsArrayIndex(seg) {
				split = i
				spec.explicit = true
				spec.elem = seg.String()
				break
			}
		}

		var sub keypath.Path
		if spec.explicit {
			spec.prefix = keypath.Path(rel[:split]).String()
			sub = rel[split+1:]
		} else {
			// No array marker: the top-level key itself is the
			// (presumed) array and the whole relative path selects
			// inside each element.
			sub = rel
		}

		for _, seg := range sub {
			if _, ok := seg.(keypath.Wildcard); ok {
				return &ConflictError{Key: string(plan.Key), Reason: "wildcard nested inside a broadcast selection"}
			}
		}
		if len(sub) == 0 {
			if !spec.explicit {
				return &ConflictError{Key: string(plan.Key), Reason: "broadcast selection without sub-paths"}
			}
			passthrough = true
		}

		if first == nil {
			f := spec
			first = &f
			plan.Explicit = spec.explicit
			plan.ArrayPath = keypath.Path{plan.Key}
			if spec.explicit && spec.prefix != "" {
				plan.ArrayPath = append(keypath.Path{plan.Key}, rel[:split]...)
			}
			if idx, ok := elemIndex(spec.elem); ok {
				plan.ElemIndex = &idx
			}
		} else if spec.prefix != first.prefix || spec.elem != first.elem || spec.explicit != first.explicit {
			return &ConflictError{Key: string(plan.Key), Reason: "sub-selections address different arrays"}
		}

		if len(sub) > 0 {
			plan.SubPaths = append(plan.SubPaths, sub)
		}
	}
	if passthrough && len(plan.SubPaths) > 0 {
		return &ConflictError{Key: string(plan.Key), Reason: "whole-element and sub-key selections mixed"}
	}
	return nil
}

func elemIndex(elem string) (int, bool) {
	if elem == "" || elem == "[*]" {
		return 0, false
	}
	var idx int
	if _, err := fmt.Sscanf(elem, "[%d]", &idx); err != nil {
		return 0, false
	}
	return idx, true
}
