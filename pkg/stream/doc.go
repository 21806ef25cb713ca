// Package stream exposes a currentvalue.Broadcaster over HTTP.
//
// Three handlers are provided:
//   - Snapshot: GET returns the current value as JSON
//   - SSE: Server-Sent Events, one "data:" event per value
//   - WebSocket: one JSON text message per value
//
// Streaming handlers subscribe with SubscribeConfirmed, so a client sees the current
// value first (unless currentvalue.WithSkipInitialValue is passed through
// WithSubscribeOptions) and every later update. The stream ends when the
// broadcaster finishes or the client goes away; either way the subscription is
// closed.
//
//	status := currentvalue.New(Status{State: "idle"})
//
//	mux := http.NewServeMux()
//	mux.Handle("GET /status", stream.Snapshot(status))
//	mux.Handle("GET /status/events", stream.SSE(status, stream.WithEventName("status")))
//	mux.Handle("GET /status/ws", stream.WebSocket(status,
//		stream.WithAllowAnyOrigin(),
//		stream.WithRateLimit(rate.Every(100*time.Millisecond), 1),
//	))
package stream
