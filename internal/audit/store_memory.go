package audit

import (
	"context"
	"sort"
	"sync"

	"github.com/google/uuid"
)

// InMemoryStore keeps audit events per case, guarded by a RWMutex.
type InMemoryStore struct {
	mu     sync.RWMutex
	events map[uuid.UUID][]Event
}

func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{events: make(map[uuid.UUID][]Event)}
}

func (s *InMemoryStore) Append(_ context.Context, event Event) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events[event.CaseID] = append(s.events[event.CaseID], event)
	return nil
}

// ListByCase returns events newest-first.
func (s *InMemoryStore) ListByCase(_ context.Context, caseID uuid.UUID) ([]Event, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	events := append([]Event{}, s.events[caseID]...)
	sort.Slice(events, func(i, j int) bool {
		return events[i].Timestamp.After(events[j].Timestamp)
	})
	return events, nil
}
