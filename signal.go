// Copyright (c) 2025 Michael D Henderson. All rights reserved.

package csvconduit

// Field is a single value within a row. It is a raw byte sequence; the
// package never interprets character encodings, so callers that need
// UTF-8 (or anything else) must handle that themselves.
type Field []byte

// String returns the field bytes as a string.
func (f Field) String() string {
	return string(f)
}

// Row is an ordered sequence of fields representing one record from the
// input. Order is significant; a header line and a data line are both
// plain rows at this level.
type Row []Field

// Strings returns the row as a slice of strings. It copies every field.
func (r Row) Strings() []string {
	out := make([]string, len(r))
	for i, f := range r {
		out[i] = string(f)
	}
	return out
}

// KeyedRow maps header names to field values. It is built by zipping a
// header row positionally against a data row; when the two differ in
// length, the pairing stops at the shorter of them and the excess names
// or values are dropped.
type KeyedRow map[string]Field

// zipKeyed pairs header names with row values, truncating to the
// shorter of the two.
func zipKeyed(header, row Row) KeyedRow {
	n := len(header)
	if len(row) < n {
		n = len(row)
	}
	keyed := make(KeyedRow, n)
	for i := 0; i < n; i++ {
		keyed[string(header[i])] = row[i]
	}
	return keyed
}

// SignalKind implements enums for parse signals.
type SignalKind int

const (
	// SignalRow carries one parsed row.
	SignalRow SignalKind = iota

	// SignalSkip marks a malformed line that was consumed and
	// discarded. It is not an error: one bad line never invalidates
	// the rest of the stream.
	SignalSkip

	// SignalEOF marks end of input. It is delivered exactly once per
	// successful fold, even over an empty source, so cleanup logic in
	// step functions always runs.
	SignalEOF
)

func (k SignalKind) String() string {
	switch k {
	case SignalRow:
		return "row"
	case SignalSkip:
		return "skip"
	case SignalEOF:
		return "eof"
	}
	return "unknown"
}

// Signal is the unit of communication between the parser and caller
// logic. It exists so that "no more input" and "one more row, possibly
// after a skipped line" are never confused.
type Signal struct {
	Kind SignalKind
	Row  Row // set only when Kind is SignalRow
}

// KeyedSignal is the keyed-mode analogue of Signal.
type KeyedSignal struct {
	Kind SignalKind
	Row  KeyedRow // set only when Kind is SignalRow
}
