package payout

import (
	"context"
	"sync"

	"moa/internal/account/models"
	"moa/pkg/domain"
	"moa/pkg/platform/sentinel"
)

type InMemoryStore struct {
	mu       sync.RWMutex
	accounts map[domain.UserID]models.PayoutAccount
}

func NewInMemory() *InMemoryStore {
	return &InMemoryStore{accounts: make(map[domain.UserID]models.PayoutAccount)}
}

func (s *InMemoryStore) Save(_ context.Context, a *models.PayoutAccount) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.accounts[a.UserID] = *a
	return nil
}

func (s *InMemoryStore) FindByUserID(_ context.Context, userID domain.UserID) (*models.PayoutAccount, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	a, ok := s.accounts[userID]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	return &a, nil
}
