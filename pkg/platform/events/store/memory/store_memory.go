package memory

import (
	"context"
	"sync"

	"scanbo/pkg/platform/events"
)

// InMemoryStore keeps events in process. Used by the memory backend and tests.
type InMemoryStore struct {
	mu     sync.RWMutex
	all    []events.Event
	bySubj map[string][]int
}

func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{bySubj: make(map[string][]int)}
}

func (s *InMemoryStore) Append(_ context.Context, event events.Event) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.bySubj[event.Subject] = append(s.bySubj[event.Subject], len(s.all))
	s.all = append(s.all, event)
	return nil
}

// AppendBatch appends every event in order.
func (s *InMemoryStore) AppendBatch(ctx context.Context, batch []events.Event) error {
	for _, event := range batch {
		if err := s.Append(ctx, event); err != nil {
			return err
		}
	}
	return nil
}

// ListBySubject returns the events about subject in append order.
func (s *InMemoryStore) ListBySubject(_ context.Context, subject string) ([]events.Event, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]events.Event, 0, len(s.bySubj[subject]))
	for _, i := range s.bySubj[subject] {
		out = append(out, s.all[i])
	}
	return out, nil
}

// ListAll returns every event in append order.
func (s *InMemoryStore) ListAll(_ context.Context) ([]events.Event, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]events.Event(nil), s.all...), nil
}

func (s *InMemoryStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.all)
}

func (s *InMemoryStore) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.all = nil
	s.bySubj = make(map[string][]int)
}
