package retry

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"moa/internal/deposit/models"
	"moa/pkg/domain"
	"moa/pkg/platform/sentinel"
)

type InMemoryStore struct {
	mu      sync.Mutex
	retries map[uuid.UUID]*models.Retry
}

func NewInMemory() *InMemoryStore {
	return &InMemoryStore{retries: make(map[uuid.UUID]*models.Retry)}
}

func (s *InMemoryStore) Create(_ context.Context, r *models.Retry) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, existing := range s.retries {
		if existing.DepositID == r.DepositID && existing.Type == r.Type &&
			existing.Status == models.RetryStatusPending && r.Status == models.RetryStatusPending {
			return sentinel.ErrConflict
		}
	}
	s.retries[r.ID] = clone(r)
	return nil
}

func (s *InMemoryStore) ListDue(_ context.Context, dueBefore, staleBefore time.Time, limit int) ([]*models.Retry, error) {
	out := s.filter(func(r *models.Retry) bool { return isDue(r, dueBefore, staleBefore) })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (s *InMemoryStore) Claim(_ context.Context, id uuid.UUID, dueBefore, now, staleBefore time.Time) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	r, ok := s.retries[id]
	if !ok || !isDue(r, dueBefore, staleBefore) {
		return false, nil
	}
	r.NextRetryAt = nil
	r.UpdatedAt = now
	return true, nil
}

func (s *InMemoryStore) Save(_ context.Context, r *models.Retry) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.retries[r.ID]; !ok {
		return sentinel.ErrNotFound
	}
	s.retries[r.ID] = clone(r)
	return nil
}

func (s *InMemoryStore) ListByDeposit(_ context.Context, depositID domain.DepositID) ([]*models.Retry, error) {
	return s.filter(func(r *models.Retry) bool { return r.DepositID == depositID }), nil
}

func isDue(r *models.Retry, dueBefore, staleBefore time.Time) bool {
	if r.Status != models.RetryStatusPending {
		return false
	}
	if r.NextRetryAt == nil {
		return r.UpdatedAt.Before(staleBefore)
	}
	return r.NextRetryAt.Before(dueBefore)
}

func (s *InMemoryStore) filter(keep func(*models.Retry) bool) []*models.Retry {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []*models.Retry
	for _, r := range s.retries {
		if keep(r) {
			out = append(out, clone(r))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out
}

func clone(r *models.Retry) *models.Retry {
	cp := *r
	if r.NextRetryAt != nil {
		t := *r.NextRetryAt
		cp.NextRetryAt = &t
	}
	return &cp
}
