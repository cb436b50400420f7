package events

import (
	"sync"
	"time"
)

// DatasetChanged is published when the dataset file changes on disk.
const DatasetChanged = "dataset_changed"

// Event is one notification pushed to dashboard clients.
type Event struct {
	Type string    `json:"type"`
	Path string    `json:"path,omitempty"`
	Op   string    `json:"op,omitempty"`
	At   time.Time `json:"at"`
}

// Bus provides simple in-process pub/sub. Slow subscribers drop events
// rather than block publishers.
type Bus struct {
	mu   sync.RWMutex
	subs map[chan Event]struct{}
}

func NewBus() *Bus { return &Bus{subs: make(map[chan Event]struct{})} }

// Subscribe returns a buffered channel of events and a func that removes it.
func (b *Bus) Subscribe() (<-chan Event, func()) {
	ch := make(chan Event, 16)
	b.mu.Lock()
	b.subs[ch] = struct{}{}
	b.mu.Unlock()

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			b.mu.Lock()
			delete(b.subs, ch)
			b.mu.Unlock()
			close(ch)
		})
	}
}

func (b *Bus) Publish(ev Event) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	for ch := range b.subs {
		select {
		case ch <- ev:
		default:
		}
	}
}

// Subscribers counts live subscriptions.
func (b *Bus) Subscribers() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.subs)
}
