package store

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"moa/internal/outbox"
)

type memoryEntry struct {
	event        outbox.Event
	dispatchedAt *time.Time
	publishedAt  *time.Time
	lastError    string
}

// InMemoryStore keeps outbox rows in insertion order.
type InMemoryStore struct {
	mu      sync.RWMutex
	entries []*memoryEntry
}

func NewInMemory() *InMemoryStore {
	return &InMemoryStore{}
}

func (s *InMemoryStore) Append(_ context.Context, events ...outbox.Event) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, evt := range events {
		s.entries = append(s.entries, &memoryEntry{event: evt})
	}
	return nil
}

func (s *InMemoryStore) ListUndispatched(_ context.Context, limit, maxAttempts int) ([]outbox.Event, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []outbox.Event
	for _, e := range s.entries {
		if e.dispatchedAt == nil && e.event.Attempts < maxAttempts {
			out = append(out, e.event)
			if len(out) == limit {
				break
			}
		}
	}
	return out, nil
}

func (s *InMemoryStore) ListUnpublished(_ context.Context, limit int) ([]outbox.Event, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []outbox.Event
	for _, e := range s.entries {
		if e.publishedAt == nil {
			out = append(out, e.event)
			if len(out) == limit {
				break
			}
		}
	}
	return out, nil
}

func (s *InMemoryStore) MarkDispatched(_ context.Context, id uuid.UUID, at time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if e := s.find(id); e != nil {
		e.dispatchedAt = &at
		e.lastError = ""
	}
	return nil
}

func (s *InMemoryStore) RecordDispatchFailure(_ context.Context, id uuid.UUID, reason string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if e := s.find(id); e != nil {
		e.event.Attempts++
		e.lastError = reason
	}
	return nil
}

func (s *InMemoryStore) MarkPublished(_ context.Context, ids []uuid.UUID, at time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, id := range ids {
		if e := s.find(id); e != nil {
			e.publishedAt = &at
		}
	}
	return nil
}

// Events returns every stored event, optionally filtered by type.
func (s *InMemoryStore) Events(eventType string) []outbox.Event {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []outbox.Event
	for _, e := range s.entries {
		if eventType == "" || e.event.Type == eventType {
			out = append(out, e.event)
		}
	}
	return out
}

func (s *InMemoryStore) find(id uuid.UUID) *memoryEntry {
	for _, e := range s.entries {
		if e.event.ID == id {
			return e
		}
	}
	return nil
}
