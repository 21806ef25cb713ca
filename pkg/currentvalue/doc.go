// Package currentvalue provides a generic "current value" broadcaster: a cell holding
// the latest value of type T that any number of independent consumers can observe.
//
// Each consumer reads the current snapshot and then receives a live sequence of
// subsequent updates. This is the replay-latest subject pattern built on goroutines
// and channels.
//
// # Architecture
//
// The package defines two main types:
//   - Broadcaster: owns the current value and the subscriber registry
//   - Subscription: one consumer's view, iterated with Next or Values
//
// All state transitions of a Broadcaster run on a single owner goroutine. Callers hand
// operations to it and wait until they are applied, so Send, Finish, Current and the
// subscribe operations are linearizable with respect to each other without any lock
// exposed to callers.
//
// # Usage
//
//	b := currentvalue.New(0)
//	defer b.Finish()
//
//	sub, err := b.SubscribeConfirmed(ctx)
//	if err != nil {
//		return err
//	}
//
//	go func() {
//		for v := range sub.Values(ctx) {
//			fmt.Println("value:", v)
//		}
//	}()
//
//	_ = b.Send(ctx, 1)
//	_ = b.Send(ctx, 2)
//
// # Subscription Modes
//
// Subscribe returns immediately and completes registration in the background. A Send
// issued before registration completes may be missed, but the value current at
// registration is always delivered.
//
// SubscribeConfirmed waits until the registration is in place. Every Send issued after
// it returns is observed by the subscriber.
//
// # Buffer Policies
//
// KeepNewest (default) holds at most one pending value per subscriber. A new value
// overwrites one that has not been consumed yet, so slow consumers skip intermediate
// values but always see the latest one.
//
// BufferAll queues every value in order. Memory grows without bound while the consumer
// is not reading.
//
//	sub := b.Subscribe(currentvalue.WithBufferAll(), currentvalue.WithSkipInitialValue())
//
// # Termination
//
// Finish is terminal and idempotent: every subscription completes after draining what
// is already queued, Send becomes a no-op, and new subscriptions complete immediately
// with no values. Current keeps returning the last value.
//
// A consumer that stops iterating (break, context cancellation or Close) is removed
// from the registry asynchronously. So is a handle dropped without Close, once the
// garbage collector reclaims it. This never blocks or fails the producer.
//
// Constant builds a one-shot subscription that yields a single value and completes:
//
//	sub := currentvalue.Constant(42)
//	v, ok, _ := sub.Next(ctx) // 42, true
//	_, ok, _ = sub.Next(ctx)  // ok == false
//
// # Errors
//
// There are no domain errors. Operations that wait for the owner goroutine return
// ctx.Err() when the context ends first; nothing else fails.
package currentvalue
