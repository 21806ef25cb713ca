package stream_test

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/time/rate"

	"github.com/dmitrymomot/currentvalue/pkg/currentvalue"
	"github.com/dmitrymomot/currentvalue/pkg/stream"
)

type reading struct {
	Sensor string  `json:"sensor"`
	Value  float64 `json:"value"`
}

func requireSubscribers[T any](t *testing.T, b *currentvalue.Broadcaster[T], want int) {
	t.Helper()

	require.Eventually(t, func() bool {
		n, err := b.SubscriberCount(context.Background())
		return err == nil && n == want
	}, 2*time.Second, 5*time.Millisecond)
}

func TestSnapshot(t *testing.T) {
	t.Parallel()

	t.Run("returns current value as json", func(t *testing.T) {
		t.Parallel()

		b := currentvalue.New(reading{Sensor: "t1", Value: 20.5})
		defer b.Finish()

		require.NoError(t, b.Send(context.Background(), reading{Sensor: "t1", Value: 21}))

		rec := httptest.NewRecorder()
		stream.Snapshot(b).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/current", nil))

		require.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))

		var got reading
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
		assert.Equal(t, reading{Sensor: "t1", Value: 21}, got)
	})

	t.Run("serves final value after finish", func(t *testing.T) {
		t.Parallel()

		b := currentvalue.New("last")
		b.Finish()

		rec := httptest.NewRecorder()
		stream.Snapshot(b).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/current", nil))

		require.Equal(t, http.StatusOK, rec.Code)
		assert.JSONEq(t, `"last"`, rec.Body.String())
	})

	t.Run("rejects other methods", func(t *testing.T) {
		t.Parallel()

		b := currentvalue.New(1)
		defer b.Finish()

		rec := httptest.NewRecorder()
		stream.Snapshot(b).ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/current", nil))
		assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
	})
}

func readSSEData(t *testing.T, scanner *bufio.Scanner) (string, bool) {
	t.Helper()

	for scanner.Scan() {
		line := scanner.Text()
		if data, ok := strings.CutPrefix(line, "data: "); ok {
			return data, true
		}
	}
	return "", false
}

func TestSSE(t *testing.T) {
	t.Parallel()

	t.Run("streams values until finish", func(t *testing.T) {
		t.Parallel()

		ctx := context.Background()
		b := currentvalue.New(0)

		server := httptest.NewServer(stream.SSE(b,
			stream.WithEventName("counter"),
			stream.WithSubscribeOptions(currentvalue.WithBufferAll()),
		))
		defer server.Close()

		resp, err := http.Get(server.URL)
		require.NoError(t, err)
		defer resp.Body.Close()

		require.Equal(t, http.StatusOK, resp.StatusCode)
		assert.Equal(t, "text/event-stream", resp.Header.Get("Content-Type"))

		scanner := bufio.NewScanner(resp.Body)
		data, ok := readSSEData(t, scanner)
		require.True(t, ok)
		assert.Equal(t, "0", data)

		require.NoError(t, b.Send(ctx, 1))
		require.NoError(t, b.Send(ctx, 2))
		b.Finish()

		var rest []string
		for {
			data, ok := readSSEData(t, scanner)
			if !ok {
				break
			}
			rest = append(rest, data)
		}
		assert.Equal(t, []string{"1", "2"}, rest)
	})

	t.Run("writes event name", func(t *testing.T) {
		t.Parallel()

		b := currentvalue.New("x")
		server := httptest.NewServer(stream.SSE(b, stream.WithEventName("status")))
		defer server.Close()

		resp, err := http.Get(server.URL)
		require.NoError(t, err)
		defer resp.Body.Close()

		scanner := bufio.NewScanner(resp.Body)
		var sawEvent bool
		for scanner.Scan() {
			if scanner.Text() == "event: status" {
				sawEvent = true
				break
			}
		}
		b.Finish()
		assert.True(t, sawEvent)
	})

	t.Run("sends keepalive when idle", func(t *testing.T) {
		t.Parallel()

		b := currentvalue.New(0)
		defer b.Finish()

		server := httptest.NewServer(stream.SSE(b,
			stream.WithKeepAlive(20*time.Millisecond),
			stream.WithSubscribeOptions(currentvalue.WithSkipInitialValue()),
		))
		defer server.Close()

		resp, err := http.Get(server.URL)
		require.NoError(t, err)
		defer resp.Body.Close()

		scanner := bufio.NewScanner(resp.Body)
		var sawKeepAlive bool
		for scanner.Scan() {
			if scanner.Text() == ": keepalive" {
				sawKeepAlive = true
				break
			}
		}
		assert.True(t, sawKeepAlive)
	})

	t.Run("keepalive does not spend rate tokens", func(t *testing.T) {
		t.Parallel()

		ctx := context.Background()
		b := currentvalue.New(0)
		defer b.Finish()

		server := httptest.NewServer(stream.SSE(b,
			stream.WithKeepAlive(10*time.Millisecond),
			stream.WithRateLimit(rate.Every(5*time.Second), 1),
			stream.WithSubscribeOptions(currentvalue.WithSkipInitialValue()),
		))
		defer server.Close()

		resp, err := http.Get(server.URL)
		require.NoError(t, err)
		defer resp.Body.Close()

		scanner := bufio.NewScanner(resp.Body)
		keepalives := 0
		for keepalives < 3 && scanner.Scan() {
			if scanner.Text() == ": keepalive" {
				keepalives++
			}
		}
		require.Equal(t, 3, keepalives)

		start := time.Now()
		require.NoError(t, b.Send(ctx, 7))

		data, ok := readSSEData(t, scanner)
		require.True(t, ok)
		assert.Equal(t, "7", data)
		assert.Less(t, time.Since(start), 2*time.Second)
	})

	t.Run("client disconnect removes subscriber", func(t *testing.T) {
		t.Parallel()

		b := currentvalue.New(0)
		defer b.Finish()

		server := httptest.NewServer(stream.SSE(b))
		defer server.Close()

		ctx, cancel := context.WithCancel(context.Background())
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, server.URL, nil)
		require.NoError(t, err)

		resp, err := http.DefaultClient.Do(req)
		require.NoError(t, err)

		_, ok := readSSEData(t, bufio.NewScanner(resp.Body))
		require.True(t, ok)
		requireSubscribers(t, b, 1)

		cancel()
		_ = resp.Body.Close()
		requireSubscribers(t, b, 0)
	})
}

func dial(t *testing.T, server *httptest.Server) *websocket.Conn {
	t.Helper()

	wsURL := "ws" + strings.TrimPrefix(server.URL, "http")
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	require.NoError(t, err)
	return conn
}

func readAll(t *testing.T, conn *websocket.Conn) ([]int, error) {
	t.Helper()

	var got []int
	for {
		var v int
		_ = conn.SetReadDeadline(time.Now().Add(2 * time.Second))
		if err := conn.ReadJSON(&v); err != nil {
			return got, err
		}
		got = append(got, v)
	}
}

func TestWebSocket(t *testing.T) {
	t.Parallel()

	t.Run("streams values and closes normally on finish", func(t *testing.T) {
		t.Parallel()

		ctx := context.Background()
		b := currentvalue.New(0)

		server := httptest.NewServer(stream.WebSocket(b,
			stream.WithAllowAnyOrigin(),
			stream.WithSubscribeOptions(currentvalue.WithBufferAll()),
		))
		defer server.Close()

		conn := dial(t, server)
		defer conn.Close()

		var first int
		require.NoError(t, conn.ReadJSON(&first))
		assert.Equal(t, 0, first)

		for i := 1; i <= 5; i++ {
			require.NoError(t, b.Send(ctx, i))
		}
		b.Finish()

		got, err := readAll(t, conn)
		assert.Equal(t, []int{1, 2, 3, 4, 5}, got)

		var closeErr *websocket.CloseError
		require.True(t, errors.As(err, &closeErr), "expected close error, got %v", err)
		assert.Equal(t, websocket.CloseNormalClosure, closeErr.Code)
	})

	t.Run("rate limit coalesces to latest value", func(t *testing.T) {
		t.Parallel()

		ctx := context.Background()
		b := currentvalue.New(0)

		server := httptest.NewServer(stream.WebSocket(b,
			stream.WithAllowAnyOrigin(),
			stream.WithRateLimit(rate.Every(100*time.Millisecond), 1),
		))
		defer server.Close()

		conn := dial(t, server)
		defer conn.Close()

		var first int
		require.NoError(t, conn.ReadJSON(&first))
		assert.Equal(t, 0, first)

		for i := 1; i <= 10; i++ {
			require.NoError(t, b.Send(ctx, i))
		}
		b.Finish()

		got, _ := readAll(t, conn)
		require.NotEmpty(t, got)
		assert.Less(t, len(got), 10)
		assert.Equal(t, 10, got[len(got)-1])
	})

	t.Run("client close removes subscriber", func(t *testing.T) {
		t.Parallel()

		b := currentvalue.New(0)
		defer b.Finish()

		server := httptest.NewServer(stream.WebSocket(b, stream.WithAllowAnyOrigin()))
		defer server.Close()

		conn := dial(t, server)

		var first int
		require.NoError(t, conn.ReadJSON(&first))
		requireSubscribers(t, b, 1)

		require.NoError(t, conn.WriteMessage(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, "bye")))
		_ = conn.Close()

		requireSubscribers(t, b, 0)
	})

	t.Run("rejects cross origin by default", func(t *testing.T) {
		t.Parallel()

		b := currentvalue.New(0)
		defer b.Finish()

		server := httptest.NewServer(stream.WebSocket(b))
		defer server.Close()

		wsURL := "ws" + strings.TrimPrefix(server.URL, "http")
		header := http.Header{"Origin": []string{"http://evil.example"}}
		_, resp, err := websocket.DefaultDialer.Dial(wsURL, header)
		require.Error(t, err)
		require.NotNil(t, resp)
		assert.Equal(t, http.StatusForbidden, resp.StatusCode)
	})
}
