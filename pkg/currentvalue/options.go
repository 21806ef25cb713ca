package currentvalue

import "log/slog"

// BufferPolicy controls what a subscriber's queue does with values the consumer has
// not read yet.
type BufferPolicy int

const (
	// KeepNewest keeps a single pending value and overwrites it on every send.
	KeepNewest BufferPolicy = iota
	// BufferAll queues every value in send order without bound.
	BufferAll
)

// String returns the policy name used in logs.
func (p BufferPolicy) String() string {
	switch p {
	case KeepNewest:
		return "keep_newest"
	case BufferAll:
		return "buffer_all"
	default:
		return "unknown"
	}
}

// Option configures a Broadcaster.
type Option func(*options)

type options struct {
	logger *slog.Logger
}

// WithLogger configures structured logging for the broadcaster.
// Registration changes and finish are logged at debug level.
func WithLogger(logger *slog.Logger) Option {
	return func(o *options) {
		if logger != nil {
			o.logger = logger
		}
	}
}

// SubscribeOption configures a single subscription.
type SubscribeOption func(*subscribeConfig)

type subscribeConfig struct {
	skipInitial bool
	policy      BufferPolicy
}

// WithSkipInitialValue makes the subscriber observe only values sent after its
// registration completes. By default the current snapshot is delivered first.
func WithSkipInitialValue() SubscribeOption {
	return func(c *subscribeConfig) {
		c.skipInitial = true
	}
}

// WithBufferAll selects the BufferAll policy for the subscription.
func WithBufferAll() SubscribeOption {
	return WithBufferPolicy(BufferAll)
}

// WithBufferPolicy selects the buffer policy for the subscription.
// Unknown policies are ignored.
func WithBufferPolicy(p BufferPolicy) SubscribeOption {
	return func(c *subscribeConfig) {
		if p == KeepNewest || p == BufferAll {
			c.policy = p
		}
	}
}

func newSubscribeConfig(opts []SubscribeOption) subscribeConfig {
	cfg := subscribeConfig{policy: KeepNewest}
	for _, opt := range opts {
		opt(&cfg)
	}
	return cfg
}
