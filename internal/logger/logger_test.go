package logger_test

import (
	"bytes"
	"encoding/json"
	"errors"
	"log/slog"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/currentvalue/internal/logger"
)

func TestNewWithWriter(t *testing.T) {
	t.Parallel()

	t.Run("json by default", func(t *testing.T) {
		t.Parallel()

		var buf bytes.Buffer
		log := logger.NewWithWriter(&buf, logger.Config{Level: "info"})
		log.Info("hello", logger.Component("test"))

		var entry map[string]any
		require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
		assert.Equal(t, "hello", entry["msg"])
		assert.Equal(t, "test", entry["component"])
	})

	t.Run("text format", func(t *testing.T) {
		t.Parallel()

		var buf bytes.Buffer
		log := logger.NewWithWriter(&buf, logger.Config{Format: "TEXT"})
		log.Info("hello")

		assert.True(t, strings.Contains(buf.String(), "msg=hello"))
	})

	t.Run("level filters debug", func(t *testing.T) {
		t.Parallel()

		var buf bytes.Buffer
		log := logger.NewWithWriter(&buf, logger.Config{Level: "warn"})
		log.Debug("hidden")
		log.Info("hidden")
		assert.Empty(t, buf.String())

		log.Warn("shown")
		assert.Contains(t, buf.String(), "shown")
	})
}

func TestParseLevel(t *testing.T) {
	t.Parallel()

	assert.Equal(t, slog.LevelDebug, logger.ParseLevel("DEBUG"))
	assert.Equal(t, slog.LevelWarn, logger.ParseLevel("warning"))
	assert.Equal(t, slog.LevelError, logger.ParseLevel(" error "))
	assert.Equal(t, slog.LevelInfo, logger.ParseLevel("nonsense"))
}

func TestErrorAttrs(t *testing.T) {
	t.Parallel()

	err := errors.New("boom")
	attr := logger.Error(err)
	require.Equal(t, "error", attr.Key)
	assert.Equal(t, err, attr.Value.Any())
	assert.True(t, logger.Error(nil).Equal(slog.Attr{}))

	group := logger.Errors(err, nil, err)
	require.Equal(t, "errors", group.Key)
	assert.Len(t, group.Value.Group(), 2)
	assert.True(t, logger.Errors(nil, nil).Equal(slog.Attr{}))
}

func TestBroadcastAttrs(t *testing.T) {
	t.Parallel()

	id := uuid.New()
	assert.Equal(t, id.String(), logger.SubscriberID(id).Value.String())
	assert.True(t, logger.SubscriberID(uuid.Nil).Equal(slog.Attr{}))

	assert.Equal(t, int64(3), logger.Subscribers(3).Value.Int64())
	assert.True(t, logger.Policy(nil).Equal(slog.Attr{}))
	assert.True(t, logger.Channel("").Equal(slog.Attr{}))
	assert.Equal(t, "updates", logger.Channel("updates").Value.String())
	assert.True(t, logger.Remote("").Equal(slog.Attr{}))
	assert.True(t, logger.Component("").Equal(slog.Attr{}))

	g := logger.Group("sub", logger.Subscribers(1))
	require.Equal(t, slog.KindGroup, g.Value.Kind())
	assert.Equal(t, time.Second, logger.Duration(time.Second).Value.Duration())
}
