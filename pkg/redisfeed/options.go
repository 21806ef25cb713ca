package redisfeed

import (
	"io"
	"log/slog"
)

// Option configures a Feed.
type Option func(*options)

type options struct {
	logger       *slog.Logger
	finishOnStop bool
}

func newOptions(opts []Option) options {
	o := options{
		logger: slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

// WithLogger configures structured logging for the feed.
func WithLogger(logger *slog.Logger) Option {
	return func(o *options) {
		if logger != nil {
			o.logger = logger
		}
	}
}

// WithFinishOnStop finishes the broadcaster when Run returns, so every subscriber
// sees the stream complete.
func WithFinishOnStop() Option {
	return func(o *options) {
		o.finishOnStop = true
	}
}
