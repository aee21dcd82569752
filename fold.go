// Copyright (c) 2025 Michael D Henderson. All rights reserved.

package csvconduit

import (
	"context"
	"io"
	"log/slog"
)

// Step is the caller-supplied fold step. It receives the accumulator
// and one signal and returns the updated accumulator. Returning an
// error aborts the fold; no further signals are delivered, including
// SignalEOF, so a step that holds a resource in the accumulator must
// release it on its own failure path.
type Step[A any] func(acc A, sig Signal) (A, error)

// KeyedStep is the keyed-mode fold step.
type KeyedStep[A any] func(acc A, sig KeyedSignal) (A, error)

// FoldOption configures one fold run.
type FoldOption func(c *foldConfig)

type foldConfig struct {
	logger *slog.Logger
}

// WithLogger directs parser diagnostics, such as the skipped-line
// debug messages, to logger instead of slog.Default().
func WithLogger(logger *slog.Logger) FoldOption {
	return func(c *foldConfig) {
		c.logger = logger
	}
}

// Fold drives the row parser over src one line at a time, threading
// the accumulator through step. The final SignalEOF step is invoked
// exactly once per successful run, even when src is empty from the
// start. The source is consumed strictly forward, one pass, with no
// lookahead beyond the line being assembled.
//
// Rows are delivered in exact input order. Malformed lines surface as
// SignalSkip, never as errors; read failures and step failures abort
// the fold, and no partial accumulator is returned.
func Fold[A any](ctx context.Context, src io.Reader, settings *Settings, initial A, step Step[A], opts ...FoldOption) (A, error) {
	var zero A
	if settings == nil {
		settings = DefaultSettings()
	}
	if err := settings.Validate(); err != nil {
		return zero, err
	}
	cfg := foldConfig{logger: slog.Default()}
	for _, opt := range opts {
		opt(&cfg)
	}

	p := newParser(src, settings, cfg.logger)
	acc := initial
	for {
		if err := ctx.Err(); err != nil {
			return zero, err
		}
		done, err := p.exhausted()
		if err != nil {
			return zero, err
		}
		if done {
			acc, err = step(acc, Signal{Kind: SignalEOF})
			if err != nil {
				return zero, err
			}
			return acc, nil
		}
		sig, err := p.next()
		if err != nil {
			return zero, err
		}
		acc, err = step(acc, sig)
		if err != nil {
			return zero, err
		}
	}
}

// FoldKeyed folds src in keyed mode: the first parsed row is captured
// as the header and never delivered as data; every later row is zipped
// against the header (truncating to the shorter of the two) before the
// step sees it. A malformed line before the header is skipped like any
// other and does not consume the looking-for-header state.
func FoldKeyed[A any](ctx context.Context, src io.Reader, settings *Settings, initial A, step KeyedStep[A], opts ...FoldOption) (A, error) {
	var header Row
	return Fold(ctx, src, settings, initial, func(acc A, sig Signal) (A, error) {
		switch sig.Kind {
		case SignalRow:
			if header == nil {
				header = sig.Row
				return acc, nil
			}
			return step(acc, KeyedSignal{Kind: SignalRow, Row: zipKeyed(header, sig.Row)})
		case SignalSkip:
			return step(acc, KeyedSignal{Kind: SignalSkip})
		default:
			return step(acc, KeyedSignal{Kind: SignalEOF})
		}
	}, opts...)
}
