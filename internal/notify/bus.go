package notify

import "sync"

// Listener is called once per mutating operation. It carries no payload;
// listeners re-read whatever state they care about.
type Listener func()

type subscription struct {
	id int
	fn Listener
}

// Bus is a synchronous "something changed" broadcaster.
type Bus struct {
	mu     sync.Mutex
	nextID int
	subs   []subscription
}

// NewBus creates an empty bus.
func NewBus() *Bus {
	return &Bus{}
}

// Subscribe registers l and returns a function that removes it.
// The returned function may be called more than once.
func (b *Bus) Subscribe(l Listener) (unsubscribe func()) {
	b.mu.Lock()
	b.nextID++
	id := b.nextID
	b.subs = append(b.subs, subscription{id: id, fn: l})
	b.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() { b.remove(id) })
	}
}

func (b *Bus) remove(id int) {
	b.mu.Lock()
	defer b.mu.Unlock()

	kept := make([]subscription, 0, len(b.subs))
	for _, s := range b.subs {
		if s.id != id {
			kept = append(kept, s)
		}
	}
	b.subs = kept
}

// Publish calls every listener registered at the time of the call, in
// registration order. Listeners may subscribe or unsubscribe from inside
// their callback; the current round is not affected.
func (b *Bus) Publish() {
	b.mu.Lock()
	snapshot := b.subs
	b.mu.Unlock()

	for _, s := range snapshot {
		s.fn()
	}
}

// NumListeners returns the number of registered listeners.
func (b *Bus) NumListeners() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.subs)
}
