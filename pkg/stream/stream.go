package stream

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/gorilla/websocket"

	"github.com/dmitrymomot/currentvalue/internal/logger"
	"github.com/dmitrymomot/currentvalue/pkg/currentvalue"
)

var errIdle = errors.New("idle")

// Snapshot returns a handler that writes the broadcaster's current value as JSON.
func Snapshot[T any](b *currentvalue.Broadcaster[T], opts ...Option) http.Handler {
	cfg := newConfig(opts)

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet && r.Method != http.MethodHead {
			http.Error(w, ErrMethodNotAllowed.Error(), http.StatusMethodNotAllowed)
			return
		}

		v, err := b.Current(r.Context())
		if err != nil {
			// Client went away.
			return
		}

		w.Header().Set("Content-Type", "application/json")
		w.Header().Set("Cache-Control", "no-cache")
		if err := json.NewEncoder(w).Encode(v); err != nil {
			cfg.logger.ErrorContext(r.Context(), "failed to write snapshot",
				logger.Component("stream.snapshot"),
				logger.Error(err))
		}
	})
}

// SSE returns a handler streaming every value as a Server-Sent Event.
func SSE[T any](b *currentvalue.Broadcaster[T], opts ...Option) http.Handler {
	cfg := newConfig(opts)

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		log := cfg.logger.With(logger.Component("stream.sse"), logger.Remote(r.RemoteAddr))

		flusher, ok := w.(http.Flusher)
		if !ok {
			http.Error(w, ErrStreamingUnsupported.Error(), http.StatusInternalServerError)
			return
		}

		sub, err := b.SubscribeConfirmed(ctx, cfg.subscribeOpts...)
		if err != nil {
			return
		}
		defer sub.Close()

		w.Header().Set("Content-Type", "text/event-stream")
		w.Header().Set("Cache-Control", "no-cache")
		w.Header().Set("Connection", "keep-alive")
		w.Header().Set("X-Accel-Buffering", "no")
		w.WriteHeader(http.StatusOK)

		if _, err := fmt.Fprint(w, ": connected\n\n"); err != nil {
			log.DebugContext(ctx, "failed to write connection message", logger.Error(err))
			return
		}
		flusher.Flush()

		// A token taken before an idle pass is kept for the next value.
		limiter, held := cfg.limiter(), false
		for {
			if limiter != nil && !held {
				if err := limiter.Wait(ctx); err != nil {
					return
				}
				held = true
			}

			v, ok, err := next(ctx, sub, cfg.keepAlive)
			switch {
			case errors.Is(err, errIdle):
				if _, err := fmt.Fprint(w, ": keepalive\n\n"); err != nil {
					log.DebugContext(ctx, "failed to send keepalive", logger.Error(err))
					return
				}
				flusher.Flush()
				continue
			case err != nil:
				return
			case !ok:
				log.DebugContext(ctx, "stream finished")
				return
			}

			if err := writeEvent(w, cfg.eventName, v); err != nil {
				log.DebugContext(ctx, "failed to write event", logger.Error(err))
				return
			}
			flusher.Flush()
			held = false
		}
	})
}

// WebSocket returns a handler streaming every value as a JSON text message.
// Messages from the client are read and discarded; a read error ends the stream.
func WebSocket[T any](b *currentvalue.Broadcaster[T], opts ...Option) http.Handler {
	cfg := newConfig(opts)

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		log := cfg.logger.With(logger.Component("stream.websocket"), logger.Remote(r.RemoteAddr))

		conn, err := cfg.upgrader.Upgrade(w, r, nil)
		if err != nil {
			// Upgrade has already replied with an HTTP error.
			log.DebugContext(r.Context(), "websocket upgrade failed", logger.Error(err))
			return
		}
		defer func() { _ = conn.Close() }()

		ctx, cancel := context.WithCancel(r.Context())
		defer cancel()

		sub, err := b.SubscribeConfirmed(ctx, cfg.subscribeOpts...)
		if err != nil {
			return
		}
		defer sub.Close()

		go func() {
			defer cancel()
			for {
				if _, _, err := conn.NextReader(); err != nil {
					return
				}
			}
		}()

		// A token taken before an idle pass is kept for the next value.
		limiter, held := cfg.limiter(), false
		for {
			if limiter != nil && !held {
				if err := limiter.Wait(ctx); err != nil {
					return
				}
				held = true
			}

			v, ok, err := next(ctx, sub, cfg.keepAlive)
			switch {
			case errors.Is(err, errIdle):
				deadline := time.Now().Add(cfg.writeTimeout)
				if err := conn.WriteControl(websocket.PingMessage, nil, deadline); err != nil {
					log.DebugContext(ctx, "failed to send ping", logger.Error(err))
					return
				}
				continue
			case err != nil:
				return
			case !ok:
				msg := websocket.FormatCloseMessage(websocket.CloseNormalClosure, "finished")
				_ = conn.WriteControl(websocket.CloseMessage, msg, time.Now().Add(cfg.writeTimeout))
				log.DebugContext(ctx, "stream finished")
				return
			}

			_ = conn.SetWriteDeadline(time.Now().Add(cfg.writeTimeout))
			if err := conn.WriteJSON(v); err != nil {
				log.DebugContext(ctx, "failed to write message", logger.Error(err))
				return
			}
			held = false
		}
	})
}

// next waits for the subscription's next value. When idle is positive and elapses
// first, it returns errIdle and the subscription stays usable.
func next[T any](ctx context.Context, sub *currentvalue.Subscription[T], idle time.Duration) (T, bool, error) {
	if idle <= 0 {
		return sub.Next(ctx)
	}

	waitCtx, cancel := context.WithTimeout(ctx, idle)
	defer cancel()

	v, ok, err := sub.Next(waitCtx)
	if err != nil && ctx.Err() == nil {
		return v, false, errIdle
	}
	return v, ok, err
}

func writeEvent(w io.Writer, name string, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return err
	}

	if name != "" {
		if _, err := fmt.Fprintf(w, "event: %s\n", name); err != nil {
			return err
		}
	}
	_, err = fmt.Fprintf(w, "data: %s\n\n", data)
	return err
}
