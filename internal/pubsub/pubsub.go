// Package pubsub provides in-memory fan-out of values to subscribers keyed
// by topic.
package pubsub

import (
	"slices"
	"sync"

	"github.com/wethinkt/go-panes/internal/tuilog"
)

// DefaultBuffer is the per-subscriber channel capacity.
const DefaultBuffer = 64

// Bus delivers published values to every subscriber of a topic. Publishing
// never blocks: a subscriber whose buffer is full misses the value.
type Bus[T any] struct {
	mu     sync.RWMutex
	subs   map[string][]*subscriber[T]
	buffer int
}

type subscriber[T any] struct {
	ch     chan T
	closed bool
}

// New creates a Bus whose subscribers buffer up to buffer values.
func New[T any](buffer int) *Bus[T] {
	if buffer <= 0 {
		buffer = DefaultBuffer
	}
	return &Bus[T]{subs: make(map[string][]*subscriber[T]), buffer: buffer}
}

// Subscribe returns a channel that receives values published on topic.
// Call the returned function to unsubscribe and close the channel.
func (b *Bus[T]) Subscribe(topic string) (<-chan T, func()) {
	sub := &subscriber[T]{ch: make(chan T, b.buffer)}

	b.mu.Lock()
	b.subs[topic] = append(b.subs[topic], sub)
	b.mu.Unlock()

	unsub := func() {
		b.mu.Lock()
		defer b.mu.Unlock()

		subs := b.subs[topic]
		if i := slices.Index(subs, sub); i >= 0 {
			b.subs[topic] = slices.Delete(subs, i, i+1)
			if !sub.closed {
				sub.closed = true
				close(sub.ch)
			}
		}
		if len(b.subs[topic]) == 0 {
			delete(b.subs, topic)
		}
	}
	return sub.ch, unsub
}

// Publish sends v to all subscribers of topic and reports how many received it.
func (b *Bus[T]) Publish(topic string, v T) int {
	b.mu.RLock()
	defer b.mu.RUnlock()

	delivered := 0
	for _, sub := range b.subs[topic] {
		if sub.closed {
			continue
		}
		select {
		case sub.ch <- v:
			delivered++
		default:
			dropped.WithLabelValues(topic).Inc()
			tuilog.Log.Warn("pubsub: dropping value for slow subscriber", "topic", topic)
		}
	}
	return delivered
}

// Subscribers returns the number of live subscribers on topic.
func (b *Bus[T]) Subscribers(topic string) int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.subs[topic])
}
