// Copyright (c) 2025 Michael D Henderson. All rights reserved.

package csvconduit

import (
	"fmt"
	"io"
	"log/slog"
)

const (
	// CR is 0x0D or '\r'
	CR byte = 13

	// LF is 0x0A or '\n'
	LF byte = 10

	readChunkSize = 1 << 10
)

// Parser invariants and coordinate system
//
// The parser treats its buffer as a sliding window over the input
// stream. Bytes are pulled from src on demand and appended to buf;
// nothing is ever read twice from src.
//
// Fields:
//   buf  - the unconsumed window. buf[0] is always the first byte of
//          the next line to parse (the fold contract guarantees every
//          parse attempt starts at a line boundary).
//   eof  - src has returned io.EOF; no more bytes will arrive.
//   line - 1-based line number of buf[0] in the original input.
//
// Parse attempts never mutate the window. Both alternatives (the
// structured row and the skip-line fallback) walk indices into buf and
// report how many bytes they would consume; only commit advances the
// window. That gives the backtracking the grammar needs: if the
// structured-row attempt fails partway through a line, no partial state
// leaks and the fallback re-reads the same bytes.
//
// byteAt(i) is the only way attempts look at input. It fills the window
// from src as needed, so a quoted field that runs past the current
// buffer keeps pulling bytes until it closes or the input ends.
type parser struct {
	src      io.Reader
	settings *Settings

	buf  []byte
	eof  bool
	line int

	chunk []byte // scratch buffer for src.Read

	// logging
	logger  *slog.Logger
	skipped int // count of malformed lines consumed
}

func newParser(src io.Reader, settings *Settings, logger *slog.Logger) *parser {
	return &parser{
		src:      src,
		settings: settings,
		chunk:    make([]byte, readChunkSize),
		line:     1,
		logger:   logger,
	}
}

// fill pulls one chunk from src into the window. A nil return with no
// growth means eof was reached.
func (p *parser) fill() error {
	if p.eof {
		return nil
	}
	n, err := p.src.Read(p.chunk)
	if n > 0 {
		p.buf = append(p.buf, p.chunk[:n]...)
	}
	if err == io.EOF {
		p.eof = true
		return nil
	}
	return err
}

// byteAt returns the byte at window index i, filling from src as
// needed. ok is false when the input ends before i.
func (p *parser) byteAt(i int) (b byte, ok bool, err error) {
	for i >= len(p.buf) && !p.eof {
		if err := p.fill(); err != nil {
			return 0, false, err
		}
	}
	if i >= len(p.buf) {
		return 0, false, nil
	}
	return p.buf[i], true, nil
}

// exhausted reports whether any input remains.
func (p *parser) exhausted() (bool, error) {
	_, ok, err := p.byteAt(0)
	if err != nil {
		return false, err
	}
	return !ok, nil
}

// commit consumes n bytes from the window and updates the line count.
func (p *parser) commit(n int) {
	for i := 0; i < n; i++ {
		if p.buf[i] == LF {
			p.line++
		} else if p.buf[i] == CR && (i+1 >= n || p.buf[i+1] != LF) {
			p.line++
		}
	}
	p.buf = p.buf[n:]
}

// next parses one line and returns a row or skip signal. The caller
// must check exhausted first; next on an empty window would fabricate
// a row with a single empty field.
func (p *parser) next() (Signal, error) {
	row, n, ok, err := p.parseRow()
	if err != nil {
		return Signal{}, err
	}
	if ok {
		p.commit(n)
		return Signal{Kind: SignalRow, Row: row}, nil
	}
	n, err = p.skipLine()
	if err != nil {
		return Signal{}, err
	}
	p.skipped++
	p.debug("skipping malformed line %d (%d skipped so far)", p.line, p.skipped)
	p.commit(n)
	return Signal{Kind: SignalSkip}, nil
}

// parseRow attempts the structured-row alternative: fields separated by
// the separator, terminated by a line end or end of input. ok reports
// whether the whole line matched; on failure nothing is consumed.
func (p *parser) parseRow() (row Row, n int, ok bool, err error) {
	i := 0
	for {
		field, width, ok, err := p.parseField(i)
		if err != nil || !ok {
			return nil, 0, false, err
		}
		row = append(row, field)
		i += width

		b, more, err := p.byteAt(i)
		if err != nil {
			return nil, 0, false, err
		}
		if !more {
			// end of input without a trailing terminator still
			// yields a valid final row
			return row, i, true, nil
		}
		switch b {
		case p.settings.separator:
			i++
		case LF:
			return row, i + 1, true, nil
		case CR:
			nb, more, err := p.byteAt(i + 1)
			if err != nil {
				return nil, 0, false, err
			}
			if more && nb == LF {
				return row, i + 2, true, nil
			}
			return row, i + 1, true, nil
		default:
			// stray byte where a separator or terminator belongs,
			// e.g. text glued to a closing quote
			return nil, 0, false, nil
		}
	}
}

// parseField parses one field starting at window index i. Fields are
// quoted only when quoting is enabled and the first byte is the quote
// character; otherwise they are bare.
func (p *parser) parseField(i int) (Field, int, bool, error) {
	if !p.settings.quoteDisabled {
		b, ok, err := p.byteAt(i)
		if err != nil {
			return nil, 0, false, err
		}
		if ok && b == p.settings.quote {
			return p.parseQuoted(i)
		}
	}
	return p.parseBare(i)
}

// parseBare consumes the maximal run of bytes that are not the
// separator, not a line terminator, and (when quoting is enabled) not
// the quote character. The run may be empty: an immediate terminator
// parses as a row with one empty field, not as a malformed line.
func (p *parser) parseBare(i int) (Field, int, bool, error) {
	j := i
	for {
		b, ok, err := p.byteAt(j)
		if err != nil {
			return nil, 0, false, err
		}
		if !ok || b == p.settings.separator || b == LF || b == CR {
			break
		}
		if !p.settings.quoteDisabled && b == p.settings.quote {
			break
		}
		j++
	}
	return Field(append([]byte(nil), p.buf[i:j]...)), j - i, true, nil
}

// parseQuoted consumes a quoted field starting at the opening quote. A
// doubled quote inside the field is an escape for one literal quote;
// every other byte, line terminators included, is literal. The field
// ends at the first quote not followed by another quote. An unclosed
// quote at end of input fails the attempt, which classifies the line
// as malformed.
func (p *parser) parseQuoted(i int) (Field, int, bool, error) {
	j := i + 1
	var val []byte
	for {
		b, ok, err := p.byteAt(j)
		if err != nil {
			return nil, 0, false, err
		}
		if !ok {
			return nil, 0, false, nil // unterminated quote
		}
		if b != p.settings.quote {
			val = append(val, b)
			j++
			continue
		}
		nb, ok, err := p.byteAt(j + 1)
		if err != nil {
			return nil, 0, false, err
		}
		if ok && nb == p.settings.quote {
			val = append(val, p.settings.quote)
			j += 2
			continue
		}
		return Field(val), j + 1 - i, true, nil
	}
}

// skipLine is the fallback alternative: discard everything up to and
// including the next line terminator (or end of input). It always makes
// forward progress.
func (p *parser) skipLine() (int, error) {
	j := 0
	for {
		b, ok, err := p.byteAt(j)
		if err != nil {
			return 0, err
		}
		if !ok {
			return j, nil
		}
		switch b {
		case LF:
			return j + 1, nil
		case CR:
			nb, ok, err := p.byteAt(j + 1)
			if err != nil {
				return 0, err
			}
			if ok && nb == LF {
				return j + 2, nil
			}
			return j + 1, nil
		}
		j++
	}
}

func (p *parser) debug(format string, args ...any) {
	if p.logger == nil {
		return
	}
	p.logger.Debug(fmt.Sprintf(format, args...))
}
