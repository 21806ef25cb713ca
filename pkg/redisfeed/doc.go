// Package redisfeed connects a currentvalue.Broadcaster to Redis.
//
// A Feed is the producer side: it seeds the broadcaster from a snapshot key and then
// forwards every message published on a pub/sub channel into Broadcaster.Send.
// A Publisher is the matching writer: it stores a value under the snapshot key and
// publishes it on the channel in one transaction, so a Feed started later still
// begins from the latest value.
//
//	client, err := redisfeed.Connect(ctx, cfg)
//	if err != nil {
//		return err
//	}
//	defer client.Close()
//
//	prices := currentvalue.New(Price{})
//	feed := redisfeed.NewFeed(client, cfg, redisfeed.JSONDecoder[Price](),
//		redisfeed.WithLogger(log),
//		redisfeed.WithFinishOnStop(),
//	)
//	go func() { _ = feed.Run(ctx, prices) }()
//
// The feed subscribes before reading the snapshot key, so an update published in
// between is not lost. Messages already delivered up to the snapshot's own message
// are dropped, so the seeded value does not move backwards. Messages that fail to
// decode are logged and skipped.
//
// # Errors
//
//   - ErrEmptyConnectionURL: no REDIS_URL configured
//   - ErrFailedToParseRedisConnString: malformed connection URL
//   - ErrRedisNotReady: ping did not succeed within the retry budget
//   - ErrDecode: payload could not be decoded into T
package redisfeed
