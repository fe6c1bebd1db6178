package membership

import (
	"context"
	"sort"
	"sync"
	"time"

	"moa/internal/party/models"
	"moa/pkg/domain"
	"moa/pkg/platform/sentinel"
)

// InMemoryStore mirrors the Postgres uniqueness rules: one open membership
// per (party, user) and one leader per party.
type InMemoryStore struct {
	mu          sync.Mutex
	memberships map[domain.MembershipID]*models.Membership
}

func NewInMemory() *InMemoryStore {
	return &InMemoryStore{memberships: make(map[domain.MembershipID]*models.Membership)}
}

func (s *InMemoryStore) Create(_ context.Context, m *models.Membership) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, existing := range s.memberships {
		if existing.PartyID != m.PartyID {
			continue
		}
		if existing.UserID == m.UserID && existing.Status != models.MembershipStatusWithdrawn {
			return sentinel.ErrConflict
		}
		if existing.IsLeader() && m.IsLeader() {
			return sentinel.ErrConflict
		}
	}
	s.memberships[m.ID] = clone(m)
	return nil
}

func (s *InMemoryStore) FindByID(_ context.Context, id domain.MembershipID) (*models.Membership, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	m, ok := s.memberships[id]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	return clone(m), nil
}

func (s *InMemoryStore) FindOpen(_ context.Context, partyID domain.PartyID, userID domain.UserID) (*models.Membership, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, m := range s.memberships {
		if m.PartyID == partyID && m.UserID == userID && m.Status != models.MembershipStatusWithdrawn {
			return clone(m), nil
		}
	}
	return nil, sentinel.ErrNotFound
}

func (s *InMemoryStore) ListByParty(_ context.Context, partyID domain.PartyID) ([]*models.Membership, error) {
	return s.filter(func(m *models.Membership) bool { return m.PartyID == partyID }), nil
}

func (s *InMemoryStore) ListActive(_ context.Context, partyID domain.PartyID) ([]*models.Membership, error) {
	return s.filter(func(m *models.Membership) bool {
		return m.PartyID == partyID && m.Status == models.MembershipStatusActive
	}), nil
}

func (s *InMemoryStore) CountActive(ctx context.Context, partyID domain.PartyID) (int, error) {
	active, _ := s.ListActive(ctx, partyID)
	return len(active), nil
}

func (s *InMemoryStore) Activate(_ context.Context, id domain.MembershipID, depositID domain.DepositID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	m, ok := s.memberships[id]
	if !ok || m.Status != models.MembershipStatusPendingPayment {
		return sentinel.ErrInvalidState
	}
	m.ApplyActivation(depositID)
	return nil
}

func (s *InMemoryStore) Withdraw(_ context.Context, id domain.MembershipID, reason string, now time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	m, ok := s.memberships[id]
	if !ok || m.Status != models.MembershipStatusActive {
		return sentinel.ErrInvalidState
	}
	m.ApplyWithdrawal(reason, now)
	return nil
}

func (s *InMemoryStore) DeletePending(_ context.Context, id domain.MembershipID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	m, ok := s.memberships[id]
	if !ok || m.Status != models.MembershipStatusPendingPayment {
		return sentinel.ErrInvalidState
	}
	delete(s.memberships, id)
	return nil
}

func (s *InMemoryStore) filter(keep func(*models.Membership) bool) []*models.Membership {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []*models.Membership
	for _, m := range s.memberships {
		if keep(m) {
			out = append(out, clone(m))
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].JoinDate.Equal(out[j].JoinDate) {
			return out[i].JoinDate.Before(out[j].JoinDate)
		}
		if out[i].IsLeader() != out[j].IsLeader() {
			return out[i].IsLeader()
		}
		return out[i].ID.String() < out[j].ID.String()
	})
	return out
}

func clone(m *models.Membership) *models.Membership {
	cp := *m
	if m.DepositID != nil {
		d := *m.DepositID
		cp.DepositID = &d
	}
	if m.WithdrawDate != nil {
		w := *m.WithdrawDate
		cp.WithdrawDate = &w
	}
	return &cp
}
