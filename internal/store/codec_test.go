package store

import (
	"context"
	"testing"

	"github.com/tabkit/tabq/internal/keypath"
	"github.com/tabkit/tabq/internal/query"
	"github.com/tabkit/tabq/internal/sqlgen"
)

func assertRows(t *testing.T, got, want []string) {
	t.Helper()
	if len(got) != len(want) {
		t.Fatalf("got %d rows %v, want %d rows %v", len(got), got, len(want), want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("row %d = %s, want %s", i, got[i], want[i])
		}
	}
}

func TestSelect_All(t *testing.T) {
	s := createTestStore(t)
	mustInsert(t, s, "events",
		`{"x": 0, "y": 1}`,
		`{"x": 10}`,
	)

	got := queryJSON(t, s, "events", "")
	assertRows(t, got, []string{
		`{"x":0,"y":1}`,
		`{"x":10}`,
	})
}

func TestSelect_IndexedElement(t *testing.T) {
	s := createTestStore(t)
	mustInsert(t, s, "events",
		`{"x": 0, "y": 1, "b": [1, 2, 5, 1]}`,
		`{"x": 10}`,
	)

	// The selected element comes back wrapped in a one-element array;
	// rows without the array yield null for the key.
	got := queryJSON(t, s, "events", "select=b[0]")
	assertRows(t, got, []string{
		`{"b":[1]}`,
		`{"b":null}`,
	})
}

func TestSelect_BroadcastSubKeys(t *testing.T) {
	s := createTestStore(t)
	mustInsert(t, s, "events",
		`{"x": 0, "c": [{"h": 3, "p": 99}, {"h": 32, "p": false}]}`,
		`{"x": 1, "c": {"h": 5, "p": true}}`,
		`{"x": 2}`,
	)

	// Array targets rebuild one object per element, object targets
	// rebuild a single object, anything else is null. Booleans must
	// survive untouched.
	got := queryJSON(t, s, "events", "select=c.h,c.p")
	assertRows(t, got, []string{
		`{"c":[{"h":3,"p":99},{"h":32,"p":false}]}`,
		`{"c":{"h":5,"p":true}}`,
		`{"c":null}`,
	})
}

func TestSelect_BroadcastElementFilter(t *testing.T) {
	s := createTestStore(t)
	mustInsert(t, s, "events",
		`{"c": [{"h": 3}, {"h": 32}, {"h": 7}]}`,
	)

	got := queryJSON(t, s, "events", "select=c[1].h")
	assertRows(t, got, []string{
		`{"c":[{"h":32}]}`,
	})
}

func TestSelect_BroadcastNestedArray(t *testing.T) {
	s := createTestStore(t)
	mustInsert(t, s, "events",
		`{"a": {"k1": {"r1": [{"h": 1, "p": 9}, {"h": 2}]}}}`,
	)

	// The object shells between the top-level key and the array survive.
	got := queryJSON(t, s, "events", "select=a.k1.r1[*].h")
	assertRows(t, got, []string{`{"a":{"k1":{"r1":[{"h":1},{"h":2}]}}}`})

	got = queryJSON(t, s, "events", "select=a.k1.r1[0].h")
	assertRows(t, got, []string{`{"a":{"k1":{"r1":[{"h":1}]}}}`})
}

func TestSelect_BroadcastIndexPastEnd(t *testing.T) {
	s := createTestStore(t)
	mustInsert(t, s, "events", `{"c": [{"h": 3}]}`)

	// A present array with no element at the index selects as null,
	// not as an empty array.
	got := queryJSON(t, s, "events", "select=c[5].h")
	assertRows(t, got, []string{`{"c":null}`})

	got = queryJSON(t, s, "events", "select=c[0].h")
	assertRows(t, got, []string{`{"c":[{"h":3}]}`})
}

func TestSelect_UnicodeSpellingsMatch(t *testing.T) {
	s := createTestStore(t)

	// Decomposed on the way in, precomposed in the filter: stored text
	// is NFC-normalized at insert, string literals at parse.
	mustInsert(t, s, "events", `{"x": 1, "name": "café"}`)

	got := queryJSON(t, s, "events", "select=x&where=name=eq.café")
	assertRows(t, got, []string{`{"x":1}`})
}

func TestSelect_AbsentKeyIsNull(t *testing.T) {
	s := createTestStore(t)
	mustInsert(t, s, "events", `{"x": 1}`)

	got := queryJSON(t, s, "events", "select=zz")
	assertRows(t, got, []string{`{"zz":null}`})
}

func TestSelect_NumbersRoundTrip(t *testing.T) {
	s := createTestStore(t)

	// 2^53+1 is not representable as float64; it must come back
	// verbatim rather than rounded.
	mustInsert(t, s, "events", `{"big": 9007199254740993, "f": 1.5}`)

	got := queryJSON(t, s, "events", "")
	assertRows(t, got, []string{`{"big":9007199254740993,"f":1.5}`})
}

func TestSelect_FilterOrderRange(t *testing.T) {
	s := createTestStore(t)
	mustInsert(t, s, "events",
		`{"x": 0}`, `{"x": 1}`, `{"x": 2}`, `{"x": 3}`, `{"x": 4}`,
	)

	got := queryJSON(t, s, "events", "select=x&where=x=gt.0&order=x.desc&range=1.2")
	assertRows(t, got, []string{
		`{"x":3}`,
		`{"x":2}`,
	})
}

func TestSelect_WhereCombinators(t *testing.T) {
	s := createTestStore(t)
	mustInsert(t, s, "events",
		`{"x": 0, "name": "foo"}`,
		`{"x": 1, "name": "bar"}`,
		`{"x": 2, "name": "fargo"}`,
	)

	got := queryJSON(t, s, "events", "select=x&where=name=like.f*o,or:x=eq.1")
	assertRows(t, got, []string{
		`{"x":0}`,
		`{"x":1}`,
		`{"x":2}`,
	})

	got = queryJSON(t, s, "events", "select=x&where=name=like.f*o,and:x=gt.0")
	assertRows(t, got, []string{`{"x":2}`})

	got = queryJSON(t, s, "events", "select=x&where=x=in.(0|2)")
	assertRows(t, got, []string{`{"x":0}`, `{"x":2}`})
}

func TestExec_UpdatePlainPath(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()
	mustInsert(t, s, "events",
		`{"x": 0, "a": {"k": 1}}`,
		`{"x": 1, "a": {"k": 2}}`,
	)

	q, err := query.ParseParams("events", mustValues(t, "where=x=eq.0"))
	if err != nil {
		t.Fatalf("ParseParams() failed: %v", err)
	}
	q.Mutation = query.Set{Path: keypath.MustParse("a.k"), Value: int64(7)}
	stmt, err := sqlgen.Compile(q)
	if err != nil {
		t.Fatalf("Compile() failed: %v", err)
	}

	n, err := Exec(ctx, s, stmt)
	if err != nil {
		t.Fatalf("Exec() failed: %v", err)
	}
	if n != 1 {
		t.Errorf("Exec() = %d rows, want 1", n)
	}

	got := queryJSON(t, s, "events", "order=x.asc")
	assertRows(t, got, []string{
		`{"a":{"k":7},"x":0}`,
		`{"a":{"k":2},"x":1}`,
	})
}

func TestExec_UpdateArrayElement(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()

	// Untouched elements keep their types, booleans included.
	mustInsert(t, s, "events", `{"b": [true, 2, false]}`)

	q := query.Query{
		Table:    "events",
		Mutation: query.Set{Path: keypath.MustParse("b[1]"), Value: int64(9)},
	}
	stmt, err := sqlgen.Compile(q)
	if err != nil {
		t.Fatalf("Compile() failed: %v", err)
	}

	n, err := Exec(ctx, s, stmt)
	if err != nil {
		t.Fatalf("Exec() failed: %v", err)
	}
	if n != 1 {
		t.Errorf("Exec() = %d rows, want 1", n)
	}

	got := queryJSON(t, s, "events", "")
	assertRows(t, got, []string{`{"b":[true,9,false]}`})
}

func TestExec_UpdateBroadcast(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()
	mustInsert(t, s, "events",
		`{"c": [{"h": 3}, {"h": 32}]}`,
		`{"c": 5}`,
	)

	q := query.Query{
		Table:    "events",
		Mutation: query.Set{Path: keypath.MustParse("c[*].h"), Value: int64(0)},
	}
	stmt, err := sqlgen.Compile(q)
	if err != nil {
		t.Fatalf("Compile() failed: %v", err)
	}

	if _, err := Exec(ctx, s, stmt); err != nil {
		t.Fatalf("Exec() failed: %v", err)
	}

	// The non-array row passes through unchanged.
	got := queryJSON(t, s, "events", "")
	assertRows(t, got, []string{
		`{"c":[{"h":0},{"h":0}]}`,
		`{"c":5}`,
	})
}

func TestExec_DeleteFiltered(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()
	mustInsert(t, s, "events", `{"x": 0}`, `{"x": 1}`, `{"x": 2}`)

	q, err := query.ParseParams("events", mustValues(t, "where=x=eq.1"))
	if err != nil {
		t.Fatalf("ParseParams() failed: %v", err)
	}
	q.Mutation = query.Delete{}
	stmt, err := sqlgen.Compile(q)
	if err != nil {
		t.Fatalf("Compile() failed: %v", err)
	}

	n, err := Exec(ctx, s, stmt)
	if err != nil {
		t.Fatalf("Exec() failed: %v", err)
	}
	if n != 1 {
		t.Errorf("Exec() = %d rows, want 1", n)
	}

	got := queryJSON(t, s, "events", "select=x")
	assertRows(t, got, []string{`{"x":0}`, `{"x":2}`})
}

func TestExec_DeleteAll(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()
	mustInsert(t, s, "events", `{"x": 0}`, `{"x": 1}`)

	stmt, err := sqlgen.Compile(query.Query{Table: "events", Mutation: query.Delete{}})
	if err != nil {
		t.Fatalf("Compile() failed: %v", err)
	}

	n, err := Exec(ctx, s, stmt)
	if err != nil {
		t.Fatalf("Exec() failed: %v", err)
	}
	if n != 2 {
		t.Errorf("Exec() = %d rows, want 2", n)
	}

	got := queryJSON(t, s, "events", "")
	assertRows(t, got, nil)
}
