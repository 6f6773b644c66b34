// Package events is a process-wide notification bus for named, payload-free
// events such as Unauthorized.
package events

import "sync"

// Unauthorized is emitted when the credential session can no longer be
// recovered and the user must log in again.
const Unauthorized = "unauthorized"

type subscription struct {
	id      uint64
	handler func()
}

// Bus delivers events to subscribers synchronously, in subscription order.
// The zero value is ready to use.
type Bus struct {
	mu     sync.Mutex
	nextID uint64
	subs   map[string][]subscription
}

func NewBus() *Bus {
	return &Bus{}
}

// Subscribe registers handler for event and returns a function that removes
// it again.
func (b *Bus) Subscribe(event string, handler func()) (unsubscribe func()) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.subs == nil {
		b.subs = make(map[string][]subscription)
	}
	b.nextID++
	id := b.nextID
	b.subs[event] = append(b.subs[event], subscription{id: id, handler: handler})

	var once sync.Once
	return func() {
		once.Do(func() { b.remove(event, id) })
	}
}

// Notify calls every handler subscribed to event. Handlers may subscribe or
// unsubscribe while being notified; such changes apply to the next Notify.
func (b *Bus) Notify(event string) {
	b.mu.Lock()
	subs := append([]subscription(nil), b.subs[event]...)
	b.mu.Unlock()

	for _, s := range subs {
		s.handler()
	}
}

func (b *Bus) remove(event string, id uint64) {
	b.mu.Lock()
	defer b.mu.Unlock()

	subs := b.subs[event]
	for i, s := range subs {
		if s.id == id {
			b.subs[event] = append(subs[:i:i], subs[i+1:]...)
			return
		}
	}
}
