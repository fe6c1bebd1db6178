package pending

import (
	"context"
	"sync"
	"time"

	"moa/internal/account/models"
	"moa/pkg/domain"
	"moa/pkg/platform/sentinel"
)

type entry struct {
	pending   models.PendingVerification
	expiresAt time.Time
}

// InMemoryStore expires entries lazily on read.
type InMemoryStore struct {
	mu      sync.Mutex
	entries map[domain.UserID]entry
	now     func() time.Time
}

func NewInMemory() *InMemoryStore {
	return &InMemoryStore{entries: make(map[domain.UserID]entry), now: time.Now}
}

// WithClock replaces the clock used for expiry.
func (s *InMemoryStore) WithClock(now func() time.Time) *InMemoryStore {
	s.now = now
	return s
}

func (s *InMemoryStore) Save(_ context.Context, p *models.PendingVerification, ttl time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries[p.UserID] = entry{pending: *p, expiresAt: s.now().Add(ttl)}
	return nil
}

func (s *InMemoryStore) Find(_ context.Context, userID domain.UserID) (*models.PendingVerification, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.entries[userID]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	if !s.now().Before(e.expiresAt) {
		delete(s.entries, userID)
		return nil, sentinel.ErrNotFound
	}
	p := e.pending
	return &p, nil
}

func (s *InMemoryStore) Delete(_ context.Context, userID domain.UserID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.entries, userID)
	return nil
}
