package party

import (
	"context"
	"sort"
	"sync"
	"time"

	"moa/internal/party/models"
	"moa/pkg/domain"
	"moa/pkg/platform/sentinel"
)

// InMemoryStore keeps parties in a map. Conditional updates run under one
// lock, so they are atomic just like their SQL counterparts.
type InMemoryStore struct {
	mu      sync.Mutex
	parties map[domain.PartyID]*models.Party
}

func NewInMemory() *InMemoryStore {
	return &InMemoryStore{parties: make(map[domain.PartyID]*models.Party)}
}

func (s *InMemoryStore) Create(_ context.Context, p *models.Party) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.parties[p.ID]; ok {
		return sentinel.ErrConflict
	}
	s.parties[p.ID] = clone(p)
	return nil
}

func (s *InMemoryStore) FindByID(_ context.Context, id domain.PartyID) (*models.Party, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.parties[id]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	return clone(p), nil
}

// FindByIDForUpdate is FindByID. Conditional updates already run under the
// store lock, so there is no row to hold.
func (s *InMemoryStore) FindByIDForUpdate(ctx context.Context, id domain.PartyID) (*models.Party, error) {
	return s.FindByID(ctx, id)
}

func (s *InMemoryStore) MarkClosing(_ context.Context, id domain.PartyID, now time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.parties[id]
	if !ok || (!p.Status.IsRunning() && p.Status != models.PartyStatusClosing) {
		return sentinel.ErrInvalidState
	}
	p.Status = models.PartyStatusClosing
	p.UpdatedAt = now
	return nil
}

func (s *InMemoryStore) UpdateStatus(_ context.Context, id domain.PartyID, from, to models.PartyStatus, now time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.parties[id]
	if !ok || p.Status != from {
		return sentinel.ErrInvalidState
	}
	p.Status = to
	p.UpdatedAt = now
	if to == models.PartyStatusClosed {
		p.ClosedAt = &now
	}
	return nil
}

func (s *InMemoryStore) ReserveSeat(_ context.Context, id domain.PartyID, now time.Time) (*models.Party, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.parties[id]
	if !ok || p.Status != models.PartyStatusRecruiting || p.CurrentMembers >= p.MaxMembers {
		return nil, sentinel.ErrCapacity
	}
	p.CurrentMembers++
	p.UpdatedAt = now
	return clone(p), nil
}

func (s *InMemoryStore) ReleaseSeat(_ context.Context, id domain.PartyID, now time.Time) (*models.Party, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.parties[id]
	if !ok || p.CurrentMembers <= 1 {
		return nil, sentinel.ErrInvalidState
	}
	p.CurrentMembers--
	if p.Status == models.PartyStatusActive {
		p.Status = models.PartyStatusRecruiting
	}
	p.UpdatedAt = now
	return clone(p), nil
}

func (s *InMemoryStore) ListPendingPaymentBefore(_ context.Context, cutoff time.Time) ([]*models.Party, error) {
	return s.filter(func(p *models.Party) bool {
		return p.Status == models.PartyStatusPendingPayment && p.CreatedAt.Before(cutoff)
	}), nil
}

func (s *InMemoryStore) ListBillingDue(_ context.Context, date time.Time) ([]*models.Party, error) {
	day := domain.DateOf(date)
	return s.filter(func(p *models.Party) bool {
		return p.Status.IsRunning() && !p.StartDate.After(day) && (p.EndDate == nil || !p.EndDate.Before(day)) &&
			domain.IsBillingDay(p.StartDay(), day)
	}), nil
}

func (s *InMemoryStore) ListExpired(_ context.Context, date time.Time) ([]*models.Party, error) {
	day := domain.DateOf(date)
	return s.filter(func(p *models.Party) bool {
		open := p.Status.IsRunning() || p.Status == models.PartyStatusClosing
		return open && p.EndDate != nil && p.EndDate.Before(day)
	}), nil
}

func (s *InMemoryStore) ListSettleable(_ context.Context, date, closedSince time.Time) ([]*models.Party, error) {
	day := domain.DateOf(date)
	return s.filter(func(p *models.Party) bool {
		if p.Status == models.PartyStatusPendingPayment || !p.StartDate.Before(day) {
			return false
		}
		if p.ClosedAt != nil && p.ClosedAt.Before(closedSince) {
			return false
		}
		return domain.IsBillingDay(p.StartDay(), day)
	}), nil
}

func (s *InMemoryStore) filter(keep func(*models.Party) bool) []*models.Party {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []*models.Party
	for _, p := range s.parties {
		if keep(p) {
			out = append(out, clone(p))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out
}

func clone(p *models.Party) *models.Party {
	cp := *p
	if p.EndDate != nil {
		e := *p.EndDate
		cp.EndDate = &e
	}
	if p.ClosedAt != nil {
		c := *p.ClosedAt
		cp.ClosedAt = &c
	}
	return &cp
}
