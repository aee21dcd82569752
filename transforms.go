// Copyright (c) 2025 Michael D Henderson. All rights reserved.

package csvconduit

// IdentityTransform passes every row through unchanged.
func IdentityTransform() Transform {
	return func(row Row) []Row {
		return []Row{row}
	}
}

// ChainTransforms composes transforms left to right: the output rows of
// each stage feed the next. A stage that returns zero rows drops the
// row from every later stage.
func ChainTransforms(transforms ...Transform) Transform {
	return func(row Row) []Row {
		rows := []Row{row}
		for _, transform := range transforms {
			var next []Row
			for _, r := range rows {
				next = append(next, transform(r)...)
			}
			rows = next
			if len(rows) == 0 {
				break
			}
		}
		return rows
	}
}

// SelectColumns keeps only the named column positions, in the order
// given. Positions past the end of a row become empty fields.
func SelectColumns(columns ...int) Transform {
	return func(row Row) []Row {
		out := make(Row, len(columns))
		for i, col := range columns {
			if 0 <= col && col < len(row) {
				out[i] = row[col]
			} else {
				out[i] = Field(nil)
			}
		}
		return []Row{out}
	}
}

// DropEmptyRows removes rows whose fields are all empty, including the
// single-empty-field row an empty input line parses to.
func DropEmptyRows() Transform {
	return func(row Row) []Row {
		for _, field := range row {
			if len(field) > 0 {
				return []Row{row}
			}
		}
		return nil
	}
}
