// Package pubsub is a small in-process publish/subscribe broker used to
// fan sync results out to observers (notifications, logging) without
// putting them on the sync critical path.
package pubsub

import (
	"context"
	"sync"
)

// subscriberBufferSize is the channel buffer size for each subscriber.
const subscriberBufferSize = 64

// Broker is a generic, thread-safe publish/subscribe broker.
type Broker[T any] struct {
	mu   sync.RWMutex
	subs map[chan T]struct{}
}

// NewBroker creates a new Broker.
func NewBroker[T any]() *Broker[T] {
	return &Broker[T]{
		subs: make(map[chan T]struct{}),
	}
}

// Subscribe creates a new subscription. The returned channel receives
// published values until the context is cancelled, at which point the
// channel is closed and the subscription removed.
func (b *Broker[T]) Subscribe(ctx context.Context) <-chan T {
	ch := make(chan T, subscriberBufferSize)

	b.mu.Lock()
	b.subs[ch] = struct{}{}
	b.mu.Unlock()

	go func() {
		<-ctx.Done()
		b.mu.Lock()
		delete(b.subs, ch)
		b.mu.Unlock()
		close(ch)
	}()

	return ch
}

// Publish broadcasts a value to all active subscribers. A subscriber
// with a full buffer misses the value rather than blocking the
// publisher.
func (b *Broker[T]) Publish(value T) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	for ch := range b.subs {
		select {
		case ch <- value:
		default:
		}
	}
}
