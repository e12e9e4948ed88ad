package memory

import (
	"context"
	"sync"

	audit "authsync/pkg/platform/audit"
)

// InMemoryStore is a Sink that retains events in memory. Used by the demo
// wiring and by tests that assert on emitted events.
type InMemoryStore struct {
	mu     sync.RWMutex
	events []audit.Event
}

func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{}
}

func (s *InMemoryStore) Record(_ context.Context, event audit.Event) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = append(s.events, event)
	return nil
}

// Events returns a copy of every recorded event in emission order.
func (s *InMemoryStore) Events() []audit.Event {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]audit.Event{}, s.events...)
}

// ByName returns recorded events matching the given name.
func (s *InMemoryStore) ByName(name audit.EventName) []audit.Event {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var matched []audit.Event
	for _, e := range s.events {
		if e.Name == name {
			matched = append(matched, e)
		}
	}
	return matched
}

func (s *InMemoryStore) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = nil
}
