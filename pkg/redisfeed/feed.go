package redisfeed

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/redis/go-redis/v9"

	"github.com/dmitrymomot/currentvalue/internal/logger"
	"github.com/dmitrymomot/currentvalue/pkg/currentvalue"
)

// Feed forwards a Redis pub/sub channel into a broadcaster.
type Feed[T any] struct {
	client  redis.UniversalClient
	channel string
	key     string
	decode  Decoder[T]
	opts    options
}

// NewFeed creates a feed reading cfg.Channel and seeding from cfg.SnapshotKey.
// An empty SnapshotKey disables seeding.
func NewFeed[T any](client redis.UniversalClient, cfg Config, decode Decoder[T], opts ...Option) *Feed[T] {
	return &Feed[T]{
		client:  client,
		channel: cfg.Channel,
		key:     cfg.SnapshotKey,
		decode:  decode,
		opts:    newOptions(opts),
	}
}

// Run subscribes to the channel, seeds the broadcaster from the snapshot key and
// pumps messages until ctx ends, the subscription closes or the broadcaster finishes.
//
// Messages that reached the channel before the snapshot was read are dropped up to
// the one that produced the snapshot, so the seeded value never moves backwards.
// This relies on every writer storing the snapshot and publishing it atomically,
// as Publisher does.
func (f *Feed[T]) Run(ctx context.Context, b *currentvalue.Broadcaster[T]) error {
	if f.opts.finishOnStop {
		defer b.Finish()
	}

	log := f.opts.logger.With(logger.Component("redisfeed"), logger.Channel(f.channel))

	pubsub := f.client.Subscribe(ctx, f.channel)
	defer func() { _ = pubsub.Close() }()

	if _, err := pubsub.Receive(ctx); err != nil {
		return fmt.Errorf("subscribe to %q: %w", f.channel, err)
	}
	log.InfoContext(ctx, "feed subscribed")

	snapshot, err := f.snapshot(ctx)
	if err != nil {
		return err
	}

	backlog, err := drainBacklog(ctx, pubsub)
	if err != nil {
		return fmt.Errorf("drain backlog on %q: %w", f.channel, err)
	}

	if snapshot != nil {
		if err := f.send(ctx, b, snapshot); err != nil {
			return err
		}
	}

	pending := afterSnapshot(snapshot, backlog)
	if skipped := len(backlog) - len(pending); skipped > 0 {
		log.DebugContext(ctx, "dropped messages covered by snapshot", slog.Int("skipped", skipped))
	}

	for _, msg := range pending {
		if err := forward(ctx, msg, b, f.decode, log); err != nil {
			return err
		}
	}

	err = Pump(ctx, pubsub.Channel(), b, f.decode, log)
	log.InfoContext(ctx, "feed stopped", logger.Error(err))
	return err
}

// Seed sends the value stored under the snapshot key, if any.
func (f *Feed[T]) Seed(ctx context.Context, b *currentvalue.Broadcaster[T]) error {
	data, err := f.snapshot(ctx)
	if err != nil || data == nil {
		return err
	}
	return f.send(ctx, b, data)
}

// snapshot returns the raw value under the snapshot key, or nil when there is none.
func (f *Feed[T]) snapshot(ctx context.Context) ([]byte, error) {
	if f.key == "" {
		return nil, nil
	}

	data, err := f.client.Get(ctx, f.key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read snapshot %q: %w", f.key, err)
	}
	if data == nil {
		data = []byte{}
	}
	return data, nil
}

func (f *Feed[T]) send(ctx context.Context, b *currentvalue.Broadcaster[T], data []byte) error {
	v, err := f.decode(data)
	if err != nil {
		return fmt.Errorf("decode snapshot %q: %w", f.key, err)
	}
	return b.Send(ctx, v)
}

// drainBacklog collects the messages delivered before a PING round trip.
// Redis answers the PING only after everything published before it, so the
// result holds every message published before the snapshot was read.
// It must run before pubsub.Channel is first used.
func drainBacklog(ctx context.Context, pubsub *redis.PubSub) ([]*redis.Message, error) {
	if err := pubsub.Ping(ctx, "backlog"); err != nil {
		return nil, err
	}

	var backlog []*redis.Message
	for {
		reply, err := pubsub.Receive(ctx)
		if err != nil {
			return nil, err
		}
		switch r := reply.(type) {
		case *redis.Message:
			backlog = append(backlog, r)
		case *redis.Pong:
			return backlog, nil
		}
	}
}

// afterSnapshot returns the messages published after the one the snapshot came from.
// When no message matches, the snapshot predates the subscription and the whole
// backlog is newer.
func afterSnapshot(snapshot []byte, backlog []*redis.Message) []*redis.Message {
	if snapshot == nil {
		return backlog
	}
	for i := len(backlog) - 1; i >= 0; i-- {
		if backlog[i].Payload == string(snapshot) {
			return backlog[i+1:]
		}
	}
	return backlog
}

// Pump sends every decodable message payload to b.
// It returns nil when msgs is closed or b finishes, and ctx.Err() on cancellation.
func Pump[T any](ctx context.Context, msgs <-chan *redis.Message, b *currentvalue.Broadcaster[T], decode Decoder[T], log *slog.Logger) error {
	if log == nil {
		log = logger.Discard()
	}

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-b.Done():
			return nil
		case msg, ok := <-msgs:
			if !ok {
				return nil
			}
			if err := forward(ctx, msg, b, decode, log); err != nil {
				return err
			}
		}
	}
}

func forward[T any](ctx context.Context, msg *redis.Message, b *currentvalue.Broadcaster[T], decode Decoder[T], log *slog.Logger) error {
	v, err := decode([]byte(msg.Payload))
	if err != nil {
		log.WarnContext(ctx, "skipping undecodable message",
			logger.Channel(msg.Channel),
			logger.Error(err))
		return nil
	}
	return b.Send(ctx, v)
}
