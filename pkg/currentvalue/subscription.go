package currentvalue

import (
	"context"
	"iter"
	"runtime"

	"github.com/google/uuid"
)

// Subscription is one consumer's view of a Broadcaster.
//
// It is meant for a single consumer: Next and Values must not be driven from several
// goroutines at once. Close may be called from anywhere.
type Subscription[T any] struct {
	id uuid.UUID
	b  *Broadcaster[T]
	mb *mailbox[T]
}

func newSubscription[T any](b *Broadcaster[T], policy BufferPolicy) *Subscription[T] {
	sub := &Subscription[T]{
		id: uuid.New(),
		b:  b,
		mb: newMailbox[T](policy),
	}
	// A handle dropped without Close is deregistered once it is collected.
	// The cleanup must only reach the mailbox, never sub itself.
	runtime.AddCleanup(sub, func(mb *mailbox[T]) { mb.cancel() }, sub.mb)
	return sub
}

// Current returns the broadcaster's latest value, independent of what this
// subscription has consumed so far.
func (s *Subscription[T]) Current(ctx context.Context) (T, error) {
	return s.b.Current(ctx)
}

// Next blocks until the next value arrives.
// ok is false once the broadcaster has finished and queued values are drained, or
// after Close. If ctx ends first, Next returns ctx.Err() and the subscription stays
// usable.
func (s *Subscription[T]) Next(ctx context.Context) (v T, ok bool, err error) {
	return s.mb.next(ctx)
}

// Values returns the subscription as a sequence for use with range.
// The sequence ends when the broadcaster finishes. Breaking out of the loop or ctx
// ending closes the subscription, so the sequence cannot be restarted.
func (s *Subscription[T]) Values(ctx context.Context) iter.Seq[T] {
	return func(yield func(T) bool) {
		for {
			v, ok, err := s.mb.next(ctx)
			if err != nil {
				s.Close()
				return
			}
			if !ok {
				return
			}
			if !yield(v) {
				s.Close()
				return
			}
		}
	}
}

// Close stops the subscription and removes it from the broadcaster asynchronously.
// It never blocks the producer. Subsequent calls are no-ops.
func (s *Subscription[T]) Close() {
	s.mb.cancel()
}
