// Package events provides an in-memory publish/subscribe bus carrying the
// typed session events exchanged between the core modules and the UI layer.
// It replaces ad hoc callback threading with a closed union of event types.
package events

import (
	"sync"
)

// Level indicates the severity of a user-facing notice.
type Level int

const (
	LevelInfo Level = iota
	LevelWarn
	LevelError
)

// Event is the closed union of session events. Only types in this package
// implement it.
type Event interface {
	isEvent()
}

// SessionEnded signals that the run this client participates in has ended,
// detected either by the liveness poller or by a 410 on an activity-log send.
type SessionEnded struct{}

// LearningCompleted signals that the activity finished with a final
// understanding score.
type LearningCompleted struct {
	Score int // understanding score, 0-100
}

// Notice is a transient, user-facing notification. The UI layer renders it;
// core modules never print directly.
type Notice struct {
	Level   Level
	Message string
}

func (SessionEnded) isEvent()      {}
func (LearningCompleted) isEvent() {}
func (Notice) isEvent()            {}

// subscriber holds one subscription with its buffered delivery channel.
type subscriber struct {
	ch     chan Event
	mu     sync.Mutex
	closed bool
}

// safeSend attempts to deliver an event without blocking.
// Returns false if the subscriber is closed or its buffer is full.
func (s *subscriber) safeSend(ev Event) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return false
	}
	select {
	case s.ch <- ev:
		return true
	default:
		return false
	}
}

func (s *subscriber) close() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.closed {
		s.closed = true
		close(s.ch)
	}
}

// Bus is a thread-safe event bus. The zero value is not usable; create one
// with New.
type Bus struct {
	mu          sync.RWMutex
	subscribers map[uint64]*subscriber
	counter     uint64
}

// New creates a new Bus ready for subscription and publishing.
func New() *Bus {
	return &Bus{
		subscribers: make(map[uint64]*subscriber),
	}
}

// Subscribe registers a new subscriber and returns its event channel and an
// unsubscribe function. bufferSize controls the delivery channel capacity;
// events published while the buffer is full are dropped for that subscriber.
func (b *Bus) Subscribe(bufferSize int) (<-chan Event, func()) {
	sub := &subscriber{ch: make(chan Event, bufferSize)}

	b.mu.Lock()
	b.counter++
	id := b.counter
	b.subscribers[id] = sub
	b.mu.Unlock()

	unsubscribe := func() {
		b.mu.Lock()
		delete(b.subscribers, id)
		b.mu.Unlock()
		sub.close()
	}
	return sub.ch, unsubscribe
}

// Publish delivers the event to all current subscribers without blocking.
// Returns the number of subscribers that received the event.
func (b *Bus) Publish(ev Event) int {
	b.mu.RLock()
	subs := make([]*subscriber, 0, len(b.subscribers))
	for _, s := range b.subscribers {
		subs = append(subs, s)
	}
	b.mu.RUnlock()

	delivered := 0
	for _, s := range subs {
		if s.safeSend(ev) {
			delivered++
		}
	}
	return delivered
}

// Close shuts down the bus and all subscriber channels.
func (b *Bus) Close() {
	b.mu.Lock()
	subs := b.subscribers
	b.subscribers = make(map[uint64]*subscriber)
	b.mu.Unlock()

	for _, s := range subs {
		s.close()
	}
}
