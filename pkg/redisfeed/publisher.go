package redisfeed

import (
	"context"
	"fmt"

	"github.com/redis/go-redis/v9"
)

// Publisher writes values for Feeds to pick up.
type Publisher[T any] struct {
	client  redis.UniversalClient
	channel string
	key     string
	encode  Encoder[T]
}

// NewPublisher creates a publisher for cfg.Channel and cfg.SnapshotKey.
func NewPublisher[T any](client redis.UniversalClient, cfg Config, encode Encoder[T]) *Publisher[T] {
	return &Publisher[T]{
		client:  client,
		channel: cfg.Channel,
		key:     cfg.SnapshotKey,
		encode:  encode,
	}
}

// Publish stores v under the snapshot key and publishes it on the channel atomically.
func (p *Publisher[T]) Publish(ctx context.Context, v T) error {
	data, err := p.encode(v)
	if err != nil {
		return err
	}

	_, err = p.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		if p.key != "" {
			pipe.Set(ctx, p.key, data, 0)
		}
		pipe.Publish(ctx, p.channel, data)
		return nil
	})
	if err != nil {
		return fmt.Errorf("publish to %q: %w", p.channel, err)
	}
	return nil
}
