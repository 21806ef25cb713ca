package currentvalue

import (
	"context"
	"sync"
)

// mailbox is the queue between the owner goroutine (producer side) and one
// Subscription (consumer side).
//
// closed is set by the producer when the broadcaster finishes; cancelled is set by
// the consumer when it stops reading. Either way the mailbox never reopens.
type mailbox[T any] struct {
	mu        sync.Mutex
	policy    BufferPolicy
	queue     []T
	closed    bool
	cancelled bool
	terminate func()

	ready chan struct{}
	once  sync.Once
}

func newMailbox[T any](policy BufferPolicy) *mailbox[T] {
	return &mailbox[T]{
		policy: policy,
		ready:  make(chan struct{}, 1),
	}
}

// attach installs the hook run once when the consumer side terminates.
// Returns false if the consumer is already gone.
func (m *mailbox[T]) attach(hook func()) bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.cancelled {
		return false
	}
	m.terminate = hook
	return true
}

// push enqueues v according to the policy. Returns false if the consumer is gone
// and the mailbox should be dropped from the registry.
func (m *mailbox[T]) push(v T) bool {
	m.mu.Lock()
	if m.cancelled {
		m.mu.Unlock()
		return false
	}
	if m.closed {
		m.mu.Unlock()
		return true
	}

	switch m.policy {
	case BufferAll:
		m.queue = append(m.queue, v)
	default:
		clear(m.queue)
		m.queue = append(m.queue[:0], v)
	}
	m.mu.Unlock()

	m.notify()
	return true
}

// close marks the end of the stream. Values already queued are still delivered.
func (m *mailbox[T]) close() {
	m.mu.Lock()
	m.closed = true
	m.mu.Unlock()

	m.notify()
}

// cancel drops pending values and runs the termination hook. Idempotent.
func (m *mailbox[T]) cancel() {
	m.mu.Lock()
	if m.cancelled {
		m.mu.Unlock()
		return
	}
	m.cancelled = true
	m.queue = nil
	m.mu.Unlock()

	// Wakes a Next blocked on another goroutine.
	m.notify()
	m.release()
}

// next blocks until a value is available, the stream completes (ok == false),
// or ctx ends.
func (m *mailbox[T]) next(ctx context.Context) (v T, ok bool, err error) {
	for {
		m.mu.Lock()
		if m.cancelled {
			m.mu.Unlock()
			return v, false, nil
		}
		if len(m.queue) > 0 {
			v = m.queue[0]
			var zero T
			m.queue[0] = zero
			if len(m.queue) == 1 {
				m.queue = m.queue[:0]
			} else {
				m.queue = m.queue[1:]
			}
			m.mu.Unlock()
			return v, true, nil
		}
		if m.closed {
			m.mu.Unlock()
			m.release()
			return v, false, nil
		}
		m.mu.Unlock()

		select {
		case <-m.ready:
		case <-ctx.Done():
			return v, false, ctx.Err()
		}
	}
}

// pending reports the number of queued values.
func (m *mailbox[T]) pending() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.queue)
}

func (m *mailbox[T]) notify() {
	select {
	case m.ready <- struct{}{}:
	default:
	}
}

func (m *mailbox[T]) release() {
	m.once.Do(func() {
		m.mu.Lock()
		hook := m.terminate
		m.mu.Unlock()

		if hook != nil {
			hook()
		}
	})
}
