// Copyright (c) 2025 Michael D Henderson. All rights reserved.

package csvconduit

import (
	"context"
	"sort"

	"github.com/spf13/afero"
)

// Transform maps one input row to zero, one, or many output rows.
type Transform func(Row) []Row

// KeyedTransform maps one keyed input row to zero, one, or many keyed
// output rows.
type KeyedTransform func(KeyedRow) []KeyedRow

// sinkState tracks the output handle lifecycle inside the fold
// accumulator. The only legal transition to sinkClosed is the SignalEOF
// step, which replaces the usual defer/cleanup block with an explicit
// protocol message.
type sinkState int

const (
	sinkUnopened sinkState = iota
	sinkOpen
	sinkClosed
)

// sink is the accumulator carried by the file-driving folds: an
// optional open output handle plus a count of rows written. The file is
// not created until the first line is written, so an input that
// produces no output rows produces no output file at all.
type sink struct {
	fs    afero.Fs
	path  string
	state sinkState
	out   afero.File
	count int
}

func (s *sink) writeLine(line []byte) error {
	switch s.state {
	case sinkUnopened:
		f, err := s.fs.Create(s.path) // truncate on open
		if err != nil {
			return &FileError{Op: "create", Path: s.path, Err: err}
		}
		s.out = f
		s.state = sinkOpen
	case sinkClosed:
		return ErrSinkClosed
	}
	if _, err := s.out.Write(line); err != nil {
		return &FileError{Op: "write", Path: s.path, Err: err}
	}
	if _, err := s.out.Write([]byte{LF}); err != nil {
		return &FileError{Op: "write", Path: s.path, Err: err}
	}
	return nil
}

// close releases the handle if one was opened. Safe to call when the
// sink never opened.
func (s *sink) close() error {
	if s.state != sinkOpen {
		s.state = sinkClosed
		return nil
	}
	err := s.out.Close()
	s.out = nil
	s.state = sinkClosed
	if err != nil {
		return &FileError{Op: "close", Path: s.path, Err: err}
	}
	return nil
}

// abort closes a dangling handle on the fold's failure path, where
// SignalEOF is never delivered. The close error is secondary to the
// failure that got us here and is dropped.
func (s *sink) abort() {
	if s.state == sinkOpen {
		_ = s.out.Close()
		s.out = nil
	}
	s.state = sinkClosed
}

// MapFile applies transform to every row of the file at inPath and
// streams the results to outPath, one formatted line per output row.
// The output file is created lazily on the first output row and closed
// on end of input; a run that writes nothing creates nothing. The
// returned count is rows written, not rows read.
func MapFile(ctx context.Context, fs afero.Fs, settings *Settings, inPath, outPath string, transform Transform, opts ...FoldOption) (int, error) {
	if settings == nil {
		settings = DefaultSettings()
	}
	in, err := fs.Open(inPath)
	if err != nil {
		return 0, &FileError{Op: "open", Path: inPath, Err: err}
	}
	defer in.Close()

	snk := &sink{fs: fs, path: outPath}
	_, err = Fold(ctx, in, settings, snk, func(s *sink, sig Signal) (*sink, error) {
		switch sig.Kind {
		case SignalRow:
			for _, out := range transform(sig.Row) {
				if err := s.writeLine(FormatRow(settings, out)); err != nil {
					return s, err
				}
				s.count++
			}
		case SignalEOF:
			if err := s.close(); err != nil {
				return s, err
			}
		}
		return s, nil
	}, opts...)
	if err != nil {
		snk.abort()
		return 0, err
	}
	return snk.count, nil
}

// MapKeyedFile is the keyed-mode MapFile. The header line of the input
// names the fields seen by transform. The output header is the sorted
// key set of the first non-empty transform result and is written just
// before the first data line; if every transform call returns zero
// rows, no header and no file are produced. Values missing from a later
// row are written as empty fields; keys outside the header are dropped,
// mirroring the zip rule.
func MapKeyedFile(ctx context.Context, fs afero.Fs, settings *Settings, inPath, outPath string, transform KeyedTransform, opts ...FoldOption) (int, error) {
	if settings == nil {
		settings = DefaultSettings()
	}
	in, err := fs.Open(inPath)
	if err != nil {
		return 0, &FileError{Op: "open", Path: inPath, Err: err}
	}
	defer in.Close()

	var header []string
	snk := &sink{fs: fs, path: outPath}
	_, err = FoldKeyed(ctx, in, settings, snk, func(s *sink, sig KeyedSignal) (*sink, error) {
		switch sig.Kind {
		case SignalRow:
			for _, out := range transform(sig.Row) {
				if header == nil {
					header = sortedKeys(out)
					if err := s.writeLine(FormatRow(settings, headerRow(header))); err != nil {
						return s, err
					}
				}
				row := make(Row, len(header))
				for i, key := range header {
					row[i] = out[key]
				}
				if err := s.writeLine(FormatRow(settings, row)); err != nil {
					return s, err
				}
				s.count++
			}
		case SignalEOF:
			if err := s.close(); err != nil {
				return s, err
			}
		}
		return s, nil
	}, opts...)
	if err != nil {
		snk.abort()
		return 0, err
	}
	return snk.count, nil
}

func sortedKeys(row KeyedRow) []string {
	keys := make([]string, 0, len(row))
	for key := range row {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	return keys
}

func headerRow(keys []string) Row {
	row := make(Row, len(keys))
	for i, key := range keys {
		row[i] = Field(key)
	}
	return row
}

// ReadFile collects every parsed row of the file at path. Malformed
// lines are skipped. Provided as a convenience for callers that can
// afford the whole file in memory; streaming callers should use Fold.
func ReadFile(ctx context.Context, fs afero.Fs, settings *Settings, path string, opts ...FoldOption) ([]Row, error) {
	in, err := fs.Open(path)
	if err != nil {
		return nil, &FileError{Op: "open", Path: path, Err: err}
	}
	defer in.Close()

	return Fold(ctx, in, settings, []Row(nil), func(rows []Row, sig Signal) ([]Row, error) {
		if sig.Kind == SignalRow {
			rows = append(rows, sig.Row)
		}
		return rows, nil
	}, opts...)
}

// ReadKeyedFile collects every keyed row of the file at path. The first
// parsed row is consumed as the header.
func ReadKeyedFile(ctx context.Context, fs afero.Fs, settings *Settings, path string, opts ...FoldOption) ([]KeyedRow, error) {
	in, err := fs.Open(path)
	if err != nil {
		return nil, &FileError{Op: "open", Path: path, Err: err}
	}
	defer in.Close()

	return FoldKeyed(ctx, in, settings, []KeyedRow(nil), func(rows []KeyedRow, sig KeyedSignal) ([]KeyedRow, error) {
		if sig.Kind == SignalRow {
			rows = append(rows, sig.Row)
		}
		return rows, nil
	}, opts...)
}

// WriteFile writes rows to the file at path, one formatted line per
// row, and returns the count written. The lazy-open rule applies: an
// empty rows slice creates no file.
func WriteFile(fs afero.Fs, settings *Settings, path string, rows []Row) (int, error) {
	if settings == nil {
		settings = DefaultSettings()
	}
	snk := &sink{fs: fs, path: path}
	for _, row := range rows {
		if err := snk.writeLine(FormatRow(settings, row)); err != nil {
			snk.abort()
			return 0, err
		}
		snk.count++
	}
	if err := snk.close(); err != nil {
		return 0, err
	}
	return snk.count, nil
}

// WriteKeyedFile writes keyed rows to the file at path. The header is
// the sorted key set of the first row.
func WriteKeyedFile(fs afero.Fs, settings *Settings, path string, rows []KeyedRow) (int, error) {
	if settings == nil {
		settings = DefaultSettings()
	}
	snk := &sink{fs: fs, path: path}
	var header []string
	for _, keyed := range rows {
		if header == nil {
			header = sortedKeys(keyed)
			if err := snk.writeLine(FormatRow(settings, headerRow(header))); err != nil {
				snk.abort()
				return 0, err
			}
		}
		row := make(Row, len(header))
		for i, key := range header {
			row[i] = keyed[key]
		}
		if err := snk.writeLine(FormatRow(settings, row)); err != nil {
			snk.abort()
			return 0, err
		}
		snk.count++
	}
	if err := snk.close(); err != nil {
		return 0, err
	}
	return snk.count, nil
}
