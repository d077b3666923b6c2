package countdown

import "sync"

// Emitter delivers events to listeners, channel subscribers and an
// optional host bridge, in the order Emit is called.
type Emitter struct {
	mu        sync.Mutex
	nextID    int
	listeners []listener
	subs      []chan Event
	bridge    HostBridge
	closed    bool
}

type listener struct {
	id int
	fn func(Event)
}

// NewEmitter returns an empty Emitter.
func NewEmitter() *Emitter {
	return &Emitter{}
}

// On registers a synchronous listener and returns a function that removes it.
func (em *Emitter) On(fn func(Event)) (cancel func()) {
	em.mu.Lock()
	defer em.mu.Unlock()
	em.nextID++
	id := em.nextID
	em.listeners = append(em.listeners, listener{id: id, fn: fn})
	return func() {
		em.mu.Lock()
		defer em.mu.Unlock()
		for i, l := range em.listeners {
			if l.id == id {
				em.listeners = append(em.listeners[:i], em.listeners[i+1:]...)
				return
			}
		}
	}
}

// Subscribe returns a buffered channel of events. Sends never block; a
// subscriber that falls behind misses events. The channel is closed by Close.
func (em *Emitter) Subscribe(buffer int) <-chan Event {
	if buffer <= 0 {
		buffer = 1
	}
	ch := make(chan Event, buffer)
	em.mu.Lock()
	defer em.mu.Unlock()
	if em.closed {
		close(ch)
		return ch
	}
	em.subs = append(em.subs, ch)
	return ch
}

// SetBridge attaches a host bridge; nil detaches it.
func (em *Emitter) SetBridge(b HostBridge) {
	em.mu.Lock()
	defer em.mu.Unlock()
	em.bridge = b
}

// Emit delivers event to every listener, subscriber and the bridge.
func (em *Emitter) Emit(event Event) {
	em.mu.Lock()
	if em.closed {
		em.mu.Unlock()
		return
	}
	listeners := append([]listener(nil), em.listeners...)
	bridge := em.bridge
	for _, ch := range em.subs {
		select {
		case ch <- event:
		default:
		}
	}
	em.mu.Unlock()

	for _, l := range listeners {
		l.fn(event)
	}
	if bridge != nil {
		bridge.Deliver(event)
	}
}

// Close closes subscriber channels and stops further delivery.
func (em *Emitter) Close() {
	em.mu.Lock()
	defer em.mu.Unlock()
	if em.closed {
		return
	}
	em.closed = true
	for _, ch := range em.subs {
		close(ch)
	}
	em.subs = nil
	em.listeners = nil
	em.bridge = nil
}
