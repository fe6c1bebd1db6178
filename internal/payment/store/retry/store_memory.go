package retry

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"moa/internal/payment/models"
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
		if existing.PaymentID == r.PaymentID && existing.AttemptNumber == r.AttemptNumber {
			return sentinel.ErrConflict
		}
	}
	s.retries[r.ID] = clone(r)
	return nil
}

func (s *InMemoryStore) ResolveVoid(_ context.Context, r *models.Retry) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	existing, ok := s.retries[r.ID]
	if !ok || existing.Status != models.RetryStatusVoid {
		return sentinel.ErrInvalidState
	}
	resolved := clone(r)
	resolved.PaymentID = existing.PaymentID
	resolved.AttemptNumber = existing.AttemptNumber
	resolved.GatewayRef = existing.GatewayRef
	s.retries[r.ID] = resolved
	return nil
}

func (s *InMemoryStore) ListDue(_ context.Context, dueBefore time.Time, limit int) ([]*models.Retry, error) {
	s.mu.Lock()
	var out []*models.Retry
	for _, r := range s.retries {
		if isDue(r, dueBefore) {
			out = append(out, clone(r))
		}
	}
	s.mu.Unlock()
	sort.Slice(out, func(i, j int) bool { return out[i].NextRetryAt.Before(*out[j].NextRetryAt) })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (s *InMemoryStore) Claim(_ context.Context, id uuid.UUID, dueBefore, leaseUntil time.Time) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	r, ok := s.retries[id]
	if !ok || !isDue(r, dueBefore) {
		return false, nil
	}
	r.NextRetryAt = &leaseUntil
	return true, nil
}

func (s *InMemoryStore) ClearSchedule(_ context.Context, id uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if r, ok := s.retries[id]; ok {
		r.NextRetryAt = nil
	}
	return nil
}

func (s *InMemoryStore) ListByPayment(_ context.Context, paymentID domain.PaymentID) ([]*models.Retry, error) {
	s.mu.Lock()
	var out []*models.Retry
	for _, r := range s.retries {
		if r.PaymentID == paymentID {
			out = append(out, clone(r))
		}
	}
	s.mu.Unlock()
	sort.Slice(out, func(i, j int) bool { return out[i].AttemptNumber < out[j].AttemptNumber })
	return out, nil
}

func isDue(r *models.Retry, dueBefore time.Time) bool {
	return r.NextRetryAt != nil && r.NextRetryAt.Before(dueBefore)
}

func clone(r *models.Retry) *models.Retry {
	cp := *r
	if r.NextRetryAt != nil {
		t := *r.NextRetryAt
		cp.NextRetryAt = &t
	}
	return &cp
}
