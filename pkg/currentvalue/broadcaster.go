package currentvalue

import (
	"context"
	"io"
	"log/slog"

	"github.com/google/uuid"

	"github.com/dmitrymomot/currentvalue/internal/logger"
)

// Broadcaster holds the current value of type T and fans every update out to its
// subscribers.
//
// All state lives on an owner goroutine started by New. It exits when Finish is
// called; a Broadcaster that is never finished keeps that goroutine alive.
type Broadcaster[T any] struct {
	ops    chan op[T]
	done   chan struct{}
	final  T
	logger *slog.Logger
}

type op[T any] struct {
	apply   func(*state[T])
	applied chan struct{}
}

// state is owned by the run goroutine and never touched elsewhere.
type state[T any] struct {
	current     T
	subscribers map[uuid.UUID]*mailbox[T]
	finished    bool
}

// New creates a broadcaster holding initial.
func New[T any](initial T, opts ...Option) *Broadcaster[T] {
	o := options{
		logger: slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
	for _, opt := range opts {
		opt(&o)
	}

	b := &Broadcaster[T]{
		ops:    make(chan op[T]),
		done:   make(chan struct{}),
		logger: o.logger,
	}

	go b.run(&state[T]{
		current:     initial,
		subscribers: make(map[uuid.UUID]*mailbox[T]),
	})

	return b
}

func (b *Broadcaster[T]) run(s *state[T]) {
	for o := range b.ops {
		o.apply(s)

		if s.finished {
			b.final = s.current
			close(b.done)
			close(o.applied)
			return
		}
		close(o.applied)
	}
}

// exec hands apply to the owner goroutine and waits until it has run.
// Returns false without error if the broadcaster has already finished.
func (b *Broadcaster[T]) exec(ctx context.Context, apply func(*state[T])) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}

	o := op[T]{apply: apply, applied: make(chan struct{})}
	select {
	case b.ops <- o:
		<-o.applied
		return true, nil
	case <-b.done:
		return false, nil
	case <-ctx.Done():
		return false, ctx.Err()
	}
}

// Send replaces the current value and pushes it to every subscriber.
// It is a no-op once the broadcaster has finished.
func (b *Broadcaster[T]) Send(ctx context.Context, v T) error {
	_, err := b.exec(ctx, func(s *state[T]) {
		s.publish(v, b.logger)
	})
	return err
}

// Update atomically replaces the current value with fn(current) and pushes the
// result to every subscriber. It returns the value now held by the broadcaster.
//
// fn runs on the owner goroutine and must not call back into the broadcaster.
// After Finish, fn is not called and the final value is returned.
func (b *Broadcaster[T]) Update(ctx context.Context, fn func(T) T) (T, error) {
	var next T
	applied, err := b.exec(ctx, func(s *state[T]) {
		next = fn(s.current)
		s.publish(next, b.logger)
	})
	if err != nil {
		var zero T
		return zero, err
	}
	if !applied {
		return b.final, nil
	}
	return next, nil
}

// Finish ends the stream for every subscriber and stops the owner goroutine.
// Subsequent calls are no-ops.
func (b *Broadcaster[T]) Finish() {
	_, _ = b.exec(context.Background(), func(s *state[T]) {
		s.finish(b.logger)
	})
}

// Current returns the latest value. After Finish it returns the final value.
func (b *Broadcaster[T]) Current(ctx context.Context) (T, error) {
	var v T
	applied, err := b.exec(ctx, func(s *state[T]) {
		v = s.current
	})
	if err != nil {
		var zero T
		return zero, err
	}
	if !applied {
		return b.final, nil
	}
	return v, nil
}

// SubscriberCount returns the number of live registrations.
func (b *Broadcaster[T]) SubscriberCount(ctx context.Context) (int, error) {
	var n int
	_, err := b.exec(ctx, func(s *state[T]) {
		n = len(s.subscribers)
	})
	return n, err
}

// Done returns a channel that is closed once the broadcaster has finished.
func (b *Broadcaster[T]) Done() <-chan struct{} {
	return b.done
}

// Subscribe returns a subscription immediately and registers it in the background.
//
// A Send issued before the registration completes may not be observed. The value
// current at registration time, or any later one, always is.
func (b *Broadcaster[T]) Subscribe(opts ...SubscribeOption) *Subscription[T] {
	cfg := newSubscribeConfig(opts)
	sub := newSubscription(b, cfg.policy)

	id, mb := sub.id, sub.mb
	go func() {
		_ = b.register(context.Background(), id, mb, cfg)
	}()

	return sub
}

// SubscribeConfirmed registers a subscription and returns once it is in place.
// Every Send issued after it returns is observed by the subscription.
func (b *Broadcaster[T]) SubscribeConfirmed(ctx context.Context, opts ...SubscribeOption) (*Subscription[T], error) {
	cfg := newSubscribeConfig(opts)
	sub := newSubscription(b, cfg.policy)

	if err := b.register(ctx, sub.id, sub.mb, cfg); err != nil {
		return nil, err
	}
	return sub, nil
}

func (b *Broadcaster[T]) register(ctx context.Context, id uuid.UUID, mb *mailbox[T], cfg subscribeConfig) error {
	applied, err := b.exec(ctx, func(s *state[T]) {
		s.register(b, id, mb, cfg)
	})
	if err != nil {
		return err
	}
	if !applied {
		// Finished before registration: complete without values.
		mb.close()
	}
	return nil
}

func (b *Broadcaster[T]) deregister(id uuid.UUID) {
	_, _ = b.exec(context.Background(), func(s *state[T]) {
		s.remove(id, b.logger)
	})
}

func (s *state[T]) publish(v T, log *slog.Logger) {
	s.current = v
	for id, mb := range s.subscribers {
		if !mb.push(v) {
			s.remove(id, log)
		}
	}
}

func (s *state[T]) register(b *Broadcaster[T], id uuid.UUID, mb *mailbox[T], cfg subscribeConfig) {
	if !mb.attach(func() { go b.deregister(id) }) {
		return
	}
	if !cfg.skipInitial && !mb.push(s.current) {
		return
	}

	s.subscribers[id] = mb
	b.logger.Debug("subscriber registered",
		logger.SubscriberID(id),
		logger.Policy(cfg.policy),
		logger.Subscribers(len(s.subscribers)))
}

func (s *state[T]) remove(id uuid.UUID, log *slog.Logger) {
	if _, ok := s.subscribers[id]; !ok {
		return
	}
	delete(s.subscribers, id)
	log.Debug("subscriber removed",
		logger.SubscriberID(id),
		logger.Subscribers(len(s.subscribers)))
}

func (s *state[T]) finish(log *slog.Logger) {
	if s.finished {
		return
	}
	s.finished = true
	n := len(s.subscribers)
	for _, mb := range s.subscribers {
		mb.close()
	}
	clear(s.subscribers)
	log.Debug("broadcaster finished", logger.Subscribers(n))
}
