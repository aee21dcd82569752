// Copyright (c) 2025 Michael D Henderson. All rights reserved.

package csvconduit

import (
	"errors"
	"fmt"
)

var (
	// ErrSeparatorQuote is returned when a separator and quote
	// character are configured to the same byte.
	ErrSeparatorQuote = errors.New("separator and quote must differ")

	// ErrSinkClosed is returned when a row is written after the sink
	// observed end of input.
	ErrSinkClosed = errors.New("write to closed sink")
)

// FileError records an error and the file operation and path that
// caused it.
type FileError struct {
	Op   string // open, create, write, close
	Path string
	Err  error
}

func (e *FileError) Error() string {
	return fmt.Sprintf("%s %s: %v", e.Op, e.Path, e.Err)
}

func (e *FileError) Unwrap() error {
	return e.Err
}
