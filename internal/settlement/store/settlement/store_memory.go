package settlement

import (
	"context"
	"slices"
	"sort"
	"sync"
	"time"

	"moa/internal/settlement/models"
	"moa/pkg/domain"
	"moa/pkg/platform/sentinel"
)

type partyMonth struct {
	party domain.PartyID
	month domain.Month
}

// InMemoryStore mirrors the Postgres conditional updates under one lock.
type InMemoryStore struct {
	mu          sync.Mutex
	settlements map[domain.SettlementID]*models.Settlement
	byMonth     map[partyMonth]domain.SettlementID
}

func NewInMemory() *InMemoryStore {
	return &InMemoryStore{
		settlements: make(map[domain.SettlementID]*models.Settlement),
		byMonth:     make(map[partyMonth]domain.SettlementID),
	}
}

func (s *InMemoryStore) Create(_ context.Context, st *models.Settlement) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	key := partyMonth{party: st.PartyID, month: st.Month}
	if _, ok := s.byMonth[key]; ok {
		return sentinel.ErrConflict
	}
	if _, ok := s.settlements[st.ID]; ok {
		return sentinel.ErrConflict
	}
	s.settlements[st.ID] = clone(st)
	s.byMonth[key] = st.ID
	return nil
}

func (s *InMemoryStore) FindByID(_ context.Context, id domain.SettlementID) (*models.Settlement, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	st, ok := s.settlements[id]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	return summary(st), nil
}

func (s *InMemoryStore) FindByPartyMonth(_ context.Context, partyID domain.PartyID, month domain.Month) (*models.Settlement, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	id, ok := s.byMonth[partyMonth{party: partyID, month: month}]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	return summary(s.settlements[id]), nil
}

func (s *InMemoryStore) ListDetails(_ context.Context, id domain.SettlementID) ([]models.Detail, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	st, ok := s.settlements[id]
	if !ok {
		return nil, nil
	}
	return slices.Clone(st.Details), nil
}

func (s *InMemoryStore) Claim(_ context.Context, id domain.SettlementID, now time.Time) error {
	return s.transition(id, []models.Status{models.StatusPending, models.StatusFailed}, func(st *models.Settlement) {
		st.ApplyClaim(now)
	})
}

func (s *InMemoryStore) MarkCompleted(_ context.Context, id domain.SettlementID, bankTxID string, now time.Time) error {
	return s.transition(id, []models.Status{models.StatusInProgress, models.StatusFailed}, func(st *models.Settlement) {
		st.ApplyCompleted(bankTxID, now)
	})
}

func (s *InMemoryStore) MarkFailed(_ context.Context, id domain.SettlementID, bankTxID, reason string, now time.Time) error {
	return s.transition(id, []models.Status{models.StatusInProgress}, func(st *models.Settlement) {
		st.ApplyFailed(bankTxID, reason, now)
	})
}

func (s *InMemoryStore) ListByParty(_ context.Context, partyID domain.PartyID) ([]*models.Settlement, error) {
	out := s.filter(func(st *models.Settlement) bool { return st.PartyID == partyID })
	sort.SliceStable(out, func(i, j int) bool { return out[j].Month.Before(out[i].Month) })
	return out, nil
}

func (s *InMemoryStore) ListByStatus(_ context.Context, statuses []models.Status, limit int) ([]*models.Settlement, error) {
	out := s.filter(func(st *models.Settlement) bool { return slices.Contains(statuses, st.Status) })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (s *InMemoryStore) transition(id domain.SettlementID, from []models.Status, apply func(*models.Settlement)) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	st, ok := s.settlements[id]
	if !ok || !slices.Contains(from, st.Status) {
		return sentinel.ErrInvalidState
	}
	apply(st)
	return nil
}

func (s *InMemoryStore) filter(keep func(*models.Settlement) bool) []*models.Settlement {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []*models.Settlement
	for _, st := range s.settlements {
		if keep(st) {
			out = append(out, summary(st))
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

// summary copies a settlement without its details, as the Postgres reads do.
func summary(st *models.Settlement) *models.Settlement {
	cp := clone(st)
	cp.Details = nil
	return cp
}

func clone(st *models.Settlement) *models.Settlement {
	cp := *st
	if st.SettledAt != nil {
		t := *st.SettledAt
		cp.SettledAt = &t
	}
	cp.Details = slices.Clone(st.Details)
	return &cp
}
