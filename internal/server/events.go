package server

import "sync"

// EventKind names a server-sent event.
type EventKind string

// Event kinds.
const (
	EventReload EventKind = "reload"
	EventError  EventKind = "error"
)

// Event reports a template reload to /events subscribers.
type Event struct {
	Kind      EventKind `json:"kind"`
	File      string    `json:"file,omitempty"`
	Templates int       `json:"templates,omitempty"`
	Error     string    `json:"error,omitempty"`
}

// broadcaster fans events out to subscribers. Each subscriber holds only the
// most recent undelivered event; a slow reader skips intermediate ones.
type broadcaster struct {
	mu        sync.Mutex
	listeners map[chan Event]struct{}
	closed    bool
}

func newBroadcaster() *broadcaster {
	return &broadcaster{listeners: make(map[chan Event]struct{})}
}

// subscribe returns a channel of events. It is closed by unsubscribe or
// when the broadcaster shuts down.
func (b *broadcaster) subscribe() chan Event {
	ch := make(chan Event, 1)
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		close(ch)
		return ch
	}
	b.listeners[ch] = struct{}{}
	return ch
}

func (b *broadcaster) unsubscribe(ch chan Event) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if _, ok := b.listeners[ch]; ok {
		delete(b.listeners, ch)
		close(ch)
	}
}

// publish never blocks.
func (b *broadcaster) publish(e Event) {
	b.mu.Lock()
	defer b.mu.Unlock()

	for ch := range b.listeners {
		// drop the stale event, if any, so the newest one wins
		select {
		case <-ch:
		default:
		}
		select {
		case ch <- e:
		default:
		}
	}
}

func (b *broadcaster) close() {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return
	}
	b.closed = true
	for ch := range b.listeners {
		delete(b.listeners, ch)
		close(ch)
	}
}

func (b *broadcaster) count() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.listeners)
}
