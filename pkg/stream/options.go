package stream

import (
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/gorilla/websocket"
	"golang.org/x/time/rate"

	"github.com/dmitrymomot/currentvalue/pkg/currentvalue"
)

const (
	// DefaultKeepAlive is the default interval for SSE keepalive comments and WebSocket pings.
	DefaultKeepAlive = 30 * time.Second

	// DefaultWriteTimeout bounds a single WebSocket write.
	DefaultWriteTimeout = 10 * time.Second
)

// Option configures a streaming handler.
type Option func(*config)

type config struct {
	logger        *slog.Logger
	subscribeOpts []currentvalue.SubscribeOption
	keepAlive     time.Duration
	writeTimeout  time.Duration
	eventName     string
	limit         rate.Limit
	burst         int
	upgrader      websocket.Upgrader
}

func newConfig(opts []Option) *config {
	cfg := &config{
		logger:       slog.New(slog.NewTextHandler(io.Discard, nil)),
		keepAlive:    DefaultKeepAlive,
		writeTimeout: DefaultWriteTimeout,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
		},
	}
	for _, opt := range opts {
		opt(cfg)
	}
	return cfg
}

// limiter returns a per-connection limiter, or nil when rate limiting is off.
func (c *config) limiter() *rate.Limiter {
	if c.limit <= 0 {
		return nil
	}
	return rate.NewLimiter(c.limit, max(c.burst, 1))
}

// WithLogger configures structured logging for the handler.
func WithLogger(logger *slog.Logger) Option {
	return func(c *config) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// WithSubscribeOptions sets the options used for every client subscription.
func WithSubscribeOptions(opts ...currentvalue.SubscribeOption) Option {
	return func(c *config) {
		c.subscribeOpts = append(c.subscribeOpts, opts...)
	}
}

// WithKeepAlive sets the idle interval after which a keepalive is sent.
// Zero disables keepalives.
func WithKeepAlive(d time.Duration) Option {
	return func(c *config) {
		if d >= 0 {
			c.keepAlive = d
		}
	}
}

// WithWriteTimeout bounds each WebSocket write.
func WithWriteTimeout(d time.Duration) Option {
	return func(c *config) {
		if d > 0 {
			c.writeTimeout = d
		}
	}
}

// WithEventName sets the SSE event name.
func WithEventName(name string) Option {
	return func(c *config) {
		c.eventName = name
	}
}

// WithRateLimit caps how often values are written to one client.
// With the default KeepNewest policy, values sent while a client is throttled
// collapse into the latest one.
func WithRateLimit(limit rate.Limit, burst int) Option {
	return func(c *config) {
		c.limit = limit
		c.burst = burst
	}
}

// WithOriginCheck sets the WebSocket origin check.
func WithOriginCheck(fn func(r *http.Request) bool) Option {
	return func(c *config) {
		c.upgrader.CheckOrigin = fn
	}
}

// WithAllowAnyOrigin accepts WebSocket upgrades from any origin.
func WithAllowAnyOrigin() Option {
	return WithOriginCheck(func(*http.Request) bool { return true })
}
