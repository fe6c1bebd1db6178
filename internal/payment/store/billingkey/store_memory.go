package billingkey

import (
	"context"
	"sync"

	"moa/internal/payment/models"
	"moa/pkg/domain"
	"moa/pkg/platform/sentinel"
)

type InMemoryStore struct {
	mu   sync.RWMutex
	keys map[domain.UserID]models.BillingKey
}

func NewInMemory() *InMemoryStore {
	return &InMemoryStore{keys: make(map[domain.UserID]models.BillingKey)}
}

func (s *InMemoryStore) Upsert(_ context.Context, k *models.BillingKey) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if existing, ok := s.keys[k.UserID]; ok {
		cp := *k
		cp.CreatedAt = existing.CreatedAt
		s.keys[k.UserID] = cp
		return nil
	}
	s.keys[k.UserID] = *k
	return nil
}

func (s *InMemoryStore) FindByUser(_ context.Context, userID domain.UserID) (*models.BillingKey, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	k, ok := s.keys[userID]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	return &k, nil
}
