package events

import "sync"

// Bus dispatches events synchronously to the handlers subscribed to their
// kind, in subscription order. Handlers run on the publishing goroutine and
// may subscribe or unsubscribe while being dispatched.
type Bus struct {
	mu       sync.RWMutex
	handlers map[Kind][]subscription
	nextID   uint64
	closed   bool
}

type subscription struct {
	id      uint64
	handler Handler
}

func NewBus() *Bus {
	return &Bus{handlers: map[Kind][]subscription{}}
}

// Subscribe registers handler for events of the given kind. The returned
// function removes the subscription; calling it more than once is a no-op.
func (b *Bus) Subscribe(kind Kind, handler Handler) (unsubscribe func()) {
	if b == nil || handler == nil {
		return func() {}
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return func() {}
	}

	b.nextID++
	id := b.nextID
	b.handlers[kind] = append(b.handlers[kind], subscription{id: id, handler: handler})

	once := sync.Once{}
	return func() { once.Do(func() { b.remove(kind, id) }) }
}

func (b *Bus) remove(kind Kind, id uint64) {
	b.mu.Lock()
	defer b.mu.Unlock()

	subscriptions := b.handlers[kind]
	for i, sub := range subscriptions {
		if sub.id == id {
			// copy so snapshots taken by an in-flight Publish stay intact
			remaining := make([]subscription, 0, len(subscriptions)-1)
			remaining = append(remaining, subscriptions[:i]...)
			remaining = append(remaining, subscriptions[i+1:]...)
			if len(remaining) == 0 {
				delete(b.handlers, kind)
			} else {
				b.handlers[kind] = remaining
			}
			return
		}
	}
}

// Publish delivers event to every handler currently subscribed to its kind.
func (b *Bus) Publish(event Event) {
	if b == nil || event == nil {
		return
	}

	b.mu.RLock()
	subscriptions := b.handlers[event.Kind()]
	b.mu.RUnlock()

	for _, sub := range subscriptions {
		sub.handler(event)
	}
}

// HandlerCount reports how many handlers are subscribed to kind.
func (b *Bus) HandlerCount(kind Kind) int {
	if b == nil {
		return 0
	}

	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.handlers[kind])
}

// Close drops every subscription. Later subscriptions are ignored and later
// publishes reach nobody.
func (b *Bus) Close() {
	if b == nil {
		return
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	b.closed = true
	b.handlers = map[Kind][]subscription{}
}
