// Package store provides SQLite-backed storage for JSON document tables.
//
// Every table managed by the store has a single TEXT column named data
// holding one JSON document per row. The column carries a json_valid
// CHECK so malformed documents are rejected at the engine level, and a
// UNIQUE constraint so byte-identical documents cannot be inserted
// twice. Written text is NFC-normalized, which makes that uniqueness
// (and every filter comparison) independent of the Unicode spelling the
// client happened to send.
//
// The store executes statements produced by internal/sqlgen and decodes
// result rows back into Go values. Numbers are decoded with
// json.Number so integer document values survive a round trip without
// being widened to float64.
//
// Connections run in WAL mode with synchronous NORMAL and a 5 second
// busy timeout; see Open.
package store
