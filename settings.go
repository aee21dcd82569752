// Copyright (c) 2025 Michael D Henderson. All rights reserved.

package csvconduit

// Settings is the immutable configuration for a run. It records the
// input separator, the optional input quote (quoting may be disabled
// entirely), and the separator and quote used when formatting output
// rows. Create one with NewSettings before a run; it is read-only for
// the run's duration.
type Settings struct {
	separator     byte // input field separator
	quote         byte // input quote character
	quoteDisabled bool // when set, all input fields are bare
	outSeparator  byte // output field separator
	outQuote      byte // output quote character
}

// Option configures Settings.
type Option func(s *Settings) error

// WithSeparator sets the input field separator.
func WithSeparator(sep byte) Option {
	return func(s *Settings) error {
		s.separator = sep
		return nil
	}
}

// WithQuote sets the input quote character and enables quoting.
func WithQuote(quote byte) Option {
	return func(s *Settings) error {
		s.quote = quote
		s.quoteDisabled = false
		return nil
	}
}

// WithoutQuoting disables quoted-field parsing; every input field is
// treated as a bare field.
func WithoutQuoting() Option {
	return func(s *Settings) error {
		s.quoteDisabled = true
		return nil
	}
}

// WithOutputSeparator sets the separator used by FormatRow.
func WithOutputSeparator(sep byte) Option {
	return func(s *Settings) error {
		s.outSeparator = sep
		return nil
	}
}

// WithOutputQuote sets the quote character used by FormatRow.
func WithOutputQuote(quote byte) Option {
	return func(s *Settings) error {
		s.outQuote = quote
		return nil
	}
}

// DefaultSettings returns comma-separated, double-quoted settings for
// both input and output.
func DefaultSettings() *Settings {
	return &Settings{
		separator:    ',',
		quote:        '"',
		outSeparator: ',',
		outQuote:     '"',
	}
}

// NewSettings builds Settings from the defaults plus options and
// validates the result.
func NewSettings(opts ...Option) (*Settings, error) {
	s := DefaultSettings()
	for _, opt := range opts {
		if err := opt(s); err != nil {
			return nil, err
		}
	}
	if err := s.Validate(); err != nil {
		return nil, err
	}
	return s, nil
}

// Validate checks that the separator and quote characters can be told
// apart. The input pair is only checked when quoting is enabled.
func (s *Settings) Validate() error {
	if !s.quoteDisabled && s.separator == s.quote {
		return ErrSeparatorQuote
	}
	if s.outSeparator == s.outQuote {
		return ErrSeparatorQuote
	}
	return nil
}

// Separator returns the input field separator.
func (s *Settings) Separator() byte {
	return s.separator
}

// Quote returns the input quote character and whether quoting is
// enabled.
func (s *Settings) Quote() (byte, bool) {
	return s.quote, !s.quoteDisabled
}
