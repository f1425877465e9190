package repo

import (
	"sync"
	"sync/atomic"
)

// Subscription receives values from a Latest or Events broadcast.
type Subscription[T any] struct {
	c     chan T
	close func()
	once  sync.Once
}

// C returns the receive channel. It is closed by Close.
func (s *Subscription[T]) C() <-chan T { return s.c }

// Close detaches the subscription and closes its channel.
func (s *Subscription[T]) Close() {
	s.once.Do(s.close)
}

// broadcast holds the subscriber set shared by Latest and Events.
type broadcast[T any] struct {
	mu     sync.Mutex
	nextID uint64
	subs   map[uint64]chan T
}

func (b *broadcast[T]) add(buffer int, seed func(chan T)) *Subscription[T] {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.subs == nil {
		b.subs = make(map[uint64]chan T)
	}
	id := b.nextID
	b.nextID++
	c := make(chan T, buffer)
	if seed != nil {
		seed(c)
	}
	b.subs[id] = c
	return &Subscription[T]{
		c: c,
		close: func() {
			b.mu.Lock()
			defer b.mu.Unlock()
			if ch, ok := b.subs[id]; ok {
				delete(b.subs, id)
				close(ch)
			}
		},
	}
}

// Latest is a latest-value broadcast. Subscribers immediately receive the
// current value, if there is one, and a slow subscriber only ever sees the
// newest value.
type Latest[T any] struct {
	b     broadcast[T]
	value T
	has   bool
}

// NewLatest creates a Latest with no value.
func NewLatest[T any]() *Latest[T] {
	return &Latest[T]{}
}

// NewLatestWith creates a Latest holding initial.
func NewLatestWith[T any](initial T) *Latest[T] {
	return &Latest[T]{value: initial, has: true}
}

// Publish stores v and delivers it to every subscriber.
func (l *Latest[T]) Publish(v T) {
	l.b.mu.Lock()
	defer l.b.mu.Unlock()
	l.value = v
	l.has = true
	for _, c := range l.b.subs {
		// Only Publish sends, under the lock, so after draining there is room.
		select {
		case <-c:
		default:
		}
		c <- v
	}
}

// Value returns the current value and whether one was ever published.
func (l *Latest[T]) Value() (T, bool) {
	l.b.mu.Lock()
	defer l.b.mu.Unlock()
	return l.value, l.has
}

// Subscribe registers a subscriber, replaying the current value.
func (l *Latest[T]) Subscribe() *Subscription[T] {
	// Called with l.b.mu held by add.
	return l.b.add(1, func(c chan T) {
		if l.has {
			c <- l.value
		}
	})
}

// DefaultEventBuffer is the per-subscriber buffer of an Events broadcast.
const DefaultEventBuffer = 16

// Events is a fire-once broadcast: values are delivered to the current
// subscribers only and never replayed. A subscriber whose buffer is full
// misses the event.
type Events[T any] struct {
	b       broadcast[T]
	buffer  int
	dropped atomic.Int64
}

// NewEvents creates an Events broadcast with the given per-subscriber buffer.
func NewEvents[T any](buffer int) *Events[T] {
	if buffer <= 0 {
		buffer = DefaultEventBuffer
	}
	return &Events[T]{buffer: buffer}
}

// Publish delivers v to every current subscriber.
func (e *Events[T]) Publish(v T) {
	e.b.mu.Lock()
	defer e.b.mu.Unlock()
	for _, c := range e.b.subs {
		select {
		case c <- v:
		default:
			e.dropped.Add(1)
		}
	}
}

// Subscribe registers a subscriber for future events.
func (e *Events[T]) Subscribe() *Subscription[T] {
	return e.b.add(e.buffer, nil)
}

// Dropped returns how many deliveries were lost to full subscriber buffers.
func (e *Events[T]) Dropped() int64 {
	return e.dropped.Load()
}
