package events

import (
	"sync"
)

// EventStore is the interface for storing and retrieving events.
type EventStore interface {
	Append(handID string, event Event) error
	LoadEvents(handID string) ([]Event, error)
}

// InMemoryEventStore is an in-memory implementation of the EventStore interface.
type InMemoryEventStore struct {
	events map[string][]Event
	mutex  sync.RWMutex
}

// NewInMemoryEventStore creates a new in-memory event store.
func NewInMemoryEventStore() *InMemoryEventStore {
	return &InMemoryEventStore{
		events: make(map[string][]Event),
	}
}

// Append adds a new event to the store under the given hand ID.
func (s *InMemoryEventStore) Append(handID string, event Event) error {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	s.events[handID] = append(s.events[handID], event)
	return nil
}

// LoadEvents retrieves all events for a hand in append order.
func (s *InMemoryEventStore) LoadEvents(handID string) ([]Event, error) {
	s.mutex.RLock()
	defer s.mutex.RUnlock()

	stored := s.events[handID]
	out := make([]Event, len(stored))
	copy(out, stored)
	return out, nil
}
