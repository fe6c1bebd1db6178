package payment

import (
	"context"
	"sort"
	"sync"
	"time"

	"moa/internal/payment/models"
	"moa/pkg/domain"
	"moa/pkg/platform/sentinel"
)

type monthKey struct {
	membership domain.MembershipID
	month      domain.Month
}

// InMemoryStore enforces the same one-payment-per-month rule as Postgres.
type InMemoryStore struct {
	mu       sync.Mutex
	payments map[domain.PaymentID]*models.Payment
	byMonth  map[monthKey]domain.PaymentID
}

func NewInMemory() *InMemoryStore {
	return &InMemoryStore{
		payments: make(map[domain.PaymentID]*models.Payment),
		byMonth:  make(map[monthKey]domain.PaymentID),
	}
}

func (s *InMemoryStore) Create(_ context.Context, p *models.Payment) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	key := monthKey{p.MembershipID, p.TargetMonth}
	if _, ok := s.byMonth[key]; ok {
		return sentinel.ErrConflict
	}
	s.payments[p.ID] = clone(p)
	s.byMonth[key] = p.ID
	return nil
}

func (s *InMemoryStore) FindByID(_ context.Context, id domain.PaymentID) (*models.Payment, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.payments[id]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	return clone(p), nil
}

func (s *InMemoryStore) FindByMembershipMonth(_ context.Context, membershipID domain.MembershipID, month domain.Month) (*models.Payment, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	id, ok := s.byMonth[monthKey{membershipID, month}]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	return clone(s.payments[id]), nil
}

func (s *InMemoryStore) FindInitial(_ context.Context, membershipID domain.MembershipID) (*models.Payment, error) {
	matches := s.filter(func(p *models.Payment) bool {
		return p.MembershipID == membershipID && p.Type == models.TypeInitial
	})
	if len(matches) == 0 {
		return nil, sentinel.ErrNotFound
	}
	return matches[len(matches)-1], nil
}

func (s *InMemoryStore) RecordAttempt(_ context.Context, p *models.Payment, prevAttempts int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cur, ok := s.payments[p.ID]
	if !ok || cur.AttemptCount != prevAttempts ||
		(cur.Status != models.StatusPending && cur.Status != models.StatusFailed) {
		return sentinel.ErrInvalidState
	}
	cur.Status = p.Status
	cur.AttemptCount = p.AttemptCount
	cur.GatewayRef = p.GatewayRef
	cur.FailureCode = p.FailureCode
	cur.FailureMessage = p.FailureMessage
	cur.PaidAt = copyTime(p.PaidAt)
	cur.UpdatedAt = p.UpdatedAt
	return nil
}

func (s *InMemoryStore) MarkRefunded(_ context.Context, id domain.PaymentID, now time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.payments[id]
	if !ok || p.Status != models.StatusCompleted {
		return sentinel.ErrInvalidState
	}
	p.ApplyRefund(now)
	return nil
}

func (s *InMemoryStore) ListByMembership(_ context.Context, membershipID domain.MembershipID) ([]*models.Payment, error) {
	return s.filter(func(p *models.Payment) bool { return p.MembershipID == membershipID }), nil
}

func (s *InMemoryStore) ListCompletedForMonth(_ context.Context, partyID domain.PartyID, month domain.Month) ([]*models.Payment, error) {
	out := s.filter(func(p *models.Payment) bool {
		return p.PartyID == partyID && p.Status == models.StatusCompleted && p.TargetMonth == month
	})
	sort.SliceStable(out, func(i, j int) bool { return out[i].PaidAt.Before(*out[j].PaidAt) })
	return out, nil
}

func (s *InMemoryStore) filter(keep func(*models.Payment) bool) []*models.Payment {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []*models.Payment
	for _, p := range s.payments {
		if keep(p) {
			out = append(out, clone(p))
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.Before(out[j].CreatedAt)
		}
		return out[i].ID.String() < out[j].ID.String()
	})
	return out
}

func clone(p *models.Payment) *models.Payment {
	cp := *p
	cp.PaidAt = copyTime(p.PaidAt)
	cp.RefundedAt = copyTime(p.RefundedAt)
	return &cp
}

func copyTime(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	v := *t
	return &v
}
