// Package vehicle turns decoded bus signals into presentation-ready
// state: derived gear and turn-signal modes, smoothed channels, and a
// last-value-wins event bus the presentation layer polls.
package vehicle

import (
	"sync"
	"time"

	"dash-service/catalog"
)

// Event is one published sample: the value and the receipt time of
// the frame it came from.
type Event struct {
	Value catalog.Value
	Time  time.Time
}

// EventBus is the publication channel between producers (pipeline,
// poller, state engine) and the presentation layer. Only the most
// recent value per name is retained; publishers never block on
// readers and Snapshot never blocks publishers beyond a map copy.
type EventBus struct {
	mu     sync.RWMutex
	values map[string]Event
}

func NewEventBus() *EventBus {
	return &EventBus{values: make(map[string]Event)}
}

// Publish records the latest value for name. Concurrent publishes to
// the same name are not queued; the last one wins.
func (b *EventBus) Publish(name string, v catalog.Value, ts time.Time) {
	b.mu.Lock()
	b.values[name] = Event{Value: v, Time: ts}
	b.mu.Unlock()
}

// Snapshot returns a copy of the current values. Callers own the
// returned map.
func (b *EventBus) Snapshot() map[string]Event {
	b.mu.RLock()
	defer b.mu.RUnlock()

	out := make(map[string]Event, len(b.values))
	for name, ev := range b.values {
		out[name] = ev
	}
	return out
}

// Get returns the latest value for one name.
func (b *EventBus) Get(name string) (Event, bool) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	ev, ok := b.values[name]
	return ev, ok
}
