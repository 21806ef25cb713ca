package main

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"golang.org/x/time/rate"

	"github.com/dmitrymomot/currentvalue/pkg/currentvalue"
	"github.com/dmitrymomot/currentvalue/pkg/stream"
)

type beat struct {
	Seq uint64    `json:"seq"`
	At  time.Time `json:"at"`
}

func newHandler(b *currentvalue.Broadcaster[json.RawMessage], cfg appConfig, log *slog.Logger) http.Handler {
	opts := []stream.Option{
		stream.WithLogger(log),
		stream.WithKeepAlive(cfg.StreamKeepAlive),
	}
	if cfg.StreamRateLimit > 0 {
		opts = append(opts, stream.WithRateLimit(rate.Limit(cfg.StreamRateLimit), 1))
	}
	if cfg.AllowAnyOrigin {
		opts = append(opts, stream.WithAllowAnyOrigin())
	}

	mux := http.NewServeMux()
	mux.Handle("GET /current", stream.Snapshot(b, opts...))
	mux.Handle("GET /events", stream.SSE(b, append(opts, stream.WithEventName("value"))...))
	mux.Handle("GET /ws", stream.WebSocket(b, opts...))
	mux.HandleFunc("GET /healthz", func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-b.Done():
			http.Error(w, "finished", http.StatusServiceUnavailable)
		default:
			w.WriteHeader(http.StatusNoContent)
		}
	})
	return mux
}

// heartbeat sends a sequence-numbered beat every interval until ctx ends.
func heartbeat(ctx context.Context, b *currentvalue.Broadcaster[json.RawMessage], interval time.Duration) error {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	var seq uint64
	for {
		select {
		case <-ctx.Done():
			return nil
		case t := <-ticker.C:
			seq++
			data, err := json.Marshal(beat{Seq: seq, At: t.UTC()})
			if err != nil {
				return err
			}
			if err := b.Send(ctx, data); err != nil {
				return nil
			}
		}
	}
}
