package pkg

import "sync"

// Bus is a one-producer, many-subscriber broadcast channel (§2, §5).
// Each subscriber gets its own buffered channel of the configured
// capacity. Broadcast first attempts a non-blocking send to every
// subscriber (a "try-broadcast"); subscribers whose channel is full
// are then delivered to with a blocking send, so a slow consumer never
// causes a dropped message for anyone — only added latency for the
// producer. Broadcast reports whether it had to fall back to blocking
// for any subscriber, so callers can log a bus-full warning (§4.3).
type Bus[T any] struct {
	mu   sync.RWMutex
	subs []chan T
	cap  int
}

// NewBus creates a broadcast bus whose subscriber channels each have
// the given buffer capacity.
func NewBus[T any](capacity int) *Bus[T] {
	return &Bus[T]{cap: capacity}
}

// Subscribe registers a new subscriber and returns its receive channel.
// Subscribers must be registered before the producer starts broadcasting
// values they need to see; a subscriber never receives values sent
// before it subscribed.
func (b *Bus[T]) Subscribe() <-chan T {
	b.mu.Lock()
	defer b.mu.Unlock()
	ch := make(chan T, b.cap)
	b.subs = append(b.subs, ch)
	return ch
}

// Broadcast delivers v to every subscriber, never dropping it: a
// subscriber whose buffer is currently full receives it via a blocking
// send after the non-blocking pass completes for everyone else. The
// returned bool is true iff at least one subscriber required the
// blocking fallback.
func (b *Bus[T]) Broadcast(v T) bool {
	b.mu.RLock()
	subs := make([]chan T, len(b.subs))
	copy(subs, b.subs)
	b.mu.RUnlock()

	delivered := make([]bool, len(subs))
	full := false
	for i, ch := range subs {
		select {
		case ch <- v:
			delivered[i] = true
		default:
			full = true
		}
	}
	if full {
		for i, ch := range subs {
			if !delivered[i] {
				ch <- v
			}
		}
	}
	return full
}

// SubscriberCount returns the number of currently registered subscribers.
func (b *Bus[T]) SubscriberCount() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.subs)
}

// Drain empties ch without blocking, discarding whatever was queued,
// and returns how many values it discarded. No worker in this module
// calls it; each worker receives from its buses in its own select loop.
func Drain[T any](ch <-chan T) int {
	n := 0
	for {
		select {
		case <-ch:
			n++
		default:
			return n
		}
	}
}

// PollNonRunning reports the most recent non-Running MainState found on
// ch without blocking, per §4.1's "non-blocking polling of the app-state
// bus on each loop iteration". ok is false if nothing new arrived or
// everything seen was Running.
func PollNonRunning(ch <-chan MainState) (state MainState, ok bool) {
	for {
		select {
		case s := <-ch:
			if s != MainRunning {
				state, ok = s, true
			}
		default:
			return state, ok
		}
	}
}
