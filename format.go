// Copyright (c) 2025 Michael D Henderson. All rights reserved.

package csvconduit

import "bytes"

// FormatRow renders one output line: every field wrapped in the output
// quote character and joined with the output separator. The line
// terminator is not included.
//
// Known limitation: fields are written verbatim. A field value that
// itself contains the output quote character is not escaped, so such a
// line will not round-trip through the parser. Callers that need the
// doubled-quote escape must pre-process their fields.
func FormatRow(settings *Settings, row Row) []byte {
	var buf bytes.Buffer
	for i, field := range row {
		if i > 0 {
			buf.WriteByte(settings.outSeparator)
		}
		buf.WriteByte(settings.outQuote)
		buf.Write(field)
		buf.WriteByte(settings.outQuote)
	}
	return buf.Bytes()
}
