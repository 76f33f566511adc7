// Package events implements the publish/subscribe bus that carries timer, audio
// and stats events to observers.
package events

import (
	"sync"
)

// Publisher is the sending side of the bus.
type Publisher interface {
	Publish(event Event)
}

// Bus fans events out to subscribers. Publish never blocks: every subscription
// owns an unbounded mailbox drained by its own goroutine, so a slow or absent
// reader only delays itself. Delivery to one subscription is FIFO.
type Bus struct {
	mu     sync.Mutex
	nextID int
	subs   map[int]*Subscription
	closed bool
}

// NewBus creates an empty bus.
func NewBus() *Bus {
	return &Bus{subs: make(map[int]*Subscription)}
}

// Subscription is a cancellable handle on the bus.
type Subscription struct {
	id     int
	bus    *Bus
	filter map[Type]bool
	out    chan Event

	mu      sync.Mutex
	pending []Event
	wake    chan struct{}
	done    chan struct{}
	once    sync.Once
}

// Subscribe registers an observer for the given event types (all types when none
// are given). buffer sizes the outgoing channel; the mailbox behind it is unbounded.
func (bus *Bus) Subscribe(buffer int, types ...Type) *Subscription {
	if buffer <= 0 {
		buffer = 1
	}
	sub := &Subscription{
		bus:  bus,
		out:  make(chan Event, buffer),
		wake: make(chan struct{}, 1),
		done: make(chan struct{}),
	}
	if len(types) > 0 {
		sub.filter = make(map[Type]bool, len(types))
		for _, eventType := range types {
			sub.filter[eventType] = true
		}
	}

	bus.mu.Lock()
	if bus.closed {
		bus.mu.Unlock()
		sub.closeOnce()
		close(sub.out)
		return sub
	}
	bus.nextID++
	sub.id = bus.nextID
	bus.subs[sub.id] = sub
	bus.mu.Unlock()

	go sub.pump()
	return sub
}

// Publish queues event for every matching subscription.
func (bus *Bus) Publish(event Event) {
	bus.mu.Lock()
	defer bus.mu.Unlock()
	if bus.closed {
		return
	}
	for _, sub := range bus.subs {
		if sub.filter != nil && !sub.filter[event.Type] {
			continue
		}
		sub.enqueue(event)
	}
}

// Close cancels every subscription. Publishing after Close is a no-op.
func (bus *Bus) Close() {
	bus.mu.Lock()
	if bus.closed {
		bus.mu.Unlock()
		return
	}
	bus.closed = true
	subs := bus.subs
	bus.subs = map[int]*Subscription{}
	bus.mu.Unlock()

	for _, sub := range subs {
		sub.closeOnce()
	}
}

// C returns the channel events are delivered on. It is closed after Cancel.
func (sub *Subscription) C() <-chan Event {
	return sub.out
}

// Cancel detaches the subscription. Undelivered events are discarded.
func (sub *Subscription) Cancel() {
	sub.bus.mu.Lock()
	delete(sub.bus.subs, sub.id)
	sub.bus.mu.Unlock()
	sub.closeOnce()
}

func (sub *Subscription) closeOnce() {
	sub.once.Do(func() {
		close(sub.done)
	})
}

func (sub *Subscription) enqueue(event Event) {
	sub.mu.Lock()
	sub.pending = append(sub.pending, event)
	sub.mu.Unlock()
	select {
	case sub.wake <- struct{}{}:
	default:
	}
}

func (sub *Subscription) pump() {
	defer close(sub.out)
	for {
		sub.mu.Lock()
		batch := sub.pending
		sub.pending = nil
		sub.mu.Unlock()

		for _, event := range batch {
			select {
			case sub.out <- event:
			case <-sub.done:
				return
			}
		}
		if len(batch) > 0 {
			continue
		}

		select {
		case <-sub.wake:
		case <-sub.done:
			return
		}
	}
}
