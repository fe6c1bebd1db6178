package deposit

import (
	"context"
	"sort"
	"sync"
	"time"

	"moa/internal/deposit/models"
	"moa/pkg/domain"
	"moa/pkg/platform/sentinel"
)

type InMemoryStore struct {
	mu       sync.Mutex
	deposits map[domain.DepositID]*models.Deposit
}

func NewInMemory() *InMemoryStore {
	return &InMemoryStore{deposits: make(map[domain.DepositID]*models.Deposit)}
}

func (s *InMemoryStore) Create(_ context.Context, d *models.Deposit) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.deposits[d.ID]; ok {
		return sentinel.ErrConflict
	}
	s.deposits[d.ID] = clone(d)
	return nil
}

func (s *InMemoryStore) FindByID(_ context.Context, id domain.DepositID) (*models.Deposit, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	d, ok := s.deposits[id]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	return clone(d), nil
}

func (s *InMemoryStore) FindByMembership(_ context.Context, membershipID domain.MembershipID) (*models.Deposit, error) {
	matches := s.filter(func(d *models.Deposit) bool { return d.MembershipID == membershipID })
	if len(matches) == 0 {
		return nil, sentinel.ErrNotFound
	}
	return matches[len(matches)-1], nil
}

func (s *InMemoryStore) MarkPaid(_ context.Context, id domain.DepositID, gatewayRef string, now time.Time) error {
	return s.transition(id, models.StatusPending, func(d *models.Deposit) { d.ApplyPaid(gatewayRef, now) })
}

func (s *InMemoryStore) MarkRefunded(_ context.Context, id domain.DepositID, reason string, now time.Time) error {
	return s.transition(id, models.StatusPaid, func(d *models.Deposit) { d.ApplyRefund(reason, now) })
}

func (s *InMemoryStore) MarkForfeited(_ context.Context, id domain.DepositID, reason string, now time.Time) error {
	return s.transition(id, models.StatusPaid, func(d *models.Deposit) { d.ApplyForfeit(reason, now) })
}

func (s *InMemoryStore) DeletePending(_ context.Context, id domain.DepositID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	d, ok := s.deposits[id]
	if !ok || d.Status != models.StatusPending {
		return sentinel.ErrInvalidState
	}
	delete(s.deposits, id)
	return nil
}

func (s *InMemoryStore) ListByParty(_ context.Context, partyID domain.PartyID) ([]*models.Deposit, error) {
	return s.filter(func(d *models.Deposit) bool { return d.PartyID == partyID }), nil
}

func (s *InMemoryStore) ListPaidByParty(_ context.Context, partyID domain.PartyID) ([]*models.Deposit, error) {
	return s.filter(func(d *models.Deposit) bool {
		return d.PartyID == partyID && d.Status == models.StatusPaid
	}), nil
}

func (s *InMemoryStore) ListForfeitedBetween(_ context.Context, partyID domain.PartyID, from, until time.Time) ([]*models.Deposit, error) {
	return s.filter(func(d *models.Deposit) bool {
		return d.PartyID == partyID && d.Status == models.StatusForfeited && d.ForfeitedAt != nil &&
			!d.ForfeitedAt.Before(from) && d.ForfeitedAt.Before(until)
	}), nil
}

func (s *InMemoryStore) transition(id domain.DepositID, from models.Status, apply func(*models.Deposit)) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	d, ok := s.deposits[id]
	if !ok || d.Status != from {
		return sentinel.ErrInvalidState
	}
	apply(d)
	return nil
}

func (s *InMemoryStore) filter(keep func(*models.Deposit) bool) []*models.Deposit {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []*models.Deposit
	for _, d := range s.deposits {
		if keep(d) {
			out = append(out, clone(d))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out
}

func clone(d *models.Deposit) *models.Deposit {
	cp := *d
	cp.PaidAt = copyTime(d.PaidAt)
	cp.RefundedAt = copyTime(d.RefundedAt)
	cp.ForfeitedAt = copyTime(d.ForfeitedAt)
	return &cp
}

func copyTime(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	v := *t
	return &v
}
