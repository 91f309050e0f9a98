package dispatch

import (
	"sync"
	"time"
)

// Event kinds published by the dispatcher.
const (
	EventStarted        = "started"
	EventFallback       = "fallback"
	EventCompleted      = "completed"
	EventFailed         = "failed"
	EventDeviceDisabled = "device_disabled"
)

// subscriberBufferSize is the channel buffer for each event subscriber.
// Events are dropped if a subscriber falls this far behind.
const subscriberBufferSize = 64

// Event is one dispatch lifecycle notification.
type Event struct {
	Kind       string    `json:"kind"`
	DispatchID string    `json:"dispatch_id"`
	Worklet    string    `json:"worklet"`
	Device     string    `json:"device,omitempty"`
	Message    string    `json:"message,omitempty"`
	Time       time.Time `json:"time"`
}

// EventBroker fans dispatch events out to subscribers. It is safe for
// concurrent use.
type EventBroker struct {
	mu     sync.Mutex
	subs   map[int]chan Event
	nextID int
	closed bool
}

// NewEventBroker creates a new event broker.
func NewEventBroker() *EventBroker {
	return &EventBroker{subs: make(map[int]chan Event)}
}

// Subscribe returns a channel that receives events and an unsubscribe
// function. If the broker is closed the returned channel is already closed.
func (b *EventBroker) Subscribe() (<-chan Event, func()) {
	b.mu.Lock()
	defer b.mu.Unlock()

	ch := make(chan Event, subscriberBufferSize)
	if b.closed {
		close(ch)
		return ch, func() {}
	}

	id := b.nextID
	b.nextID++
	b.subs[id] = ch

	return ch, func() {
		b.mu.Lock()
		defer b.mu.Unlock()
		if c, ok := b.subs[id]; ok {
			delete(b.subs, id)
			close(c)
		}
	}
}

// Publish sends ev to every subscriber. Events are dropped for subscribers
// whose buffers are full.
func (b *EventBroker) Publish(ev Event) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return
	}
	for _, ch := range b.subs {
		select {
		case ch <- ev:
		default:
		}
	}
}

// Close closes every subscriber channel. Later Publish calls are ignored.
func (b *EventBroker) Close() {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.closed = true
	for id, ch := range b.subs {
		close(ch)
		delete(b.subs, id)
	}
}
