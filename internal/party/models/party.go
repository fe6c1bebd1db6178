package models

import (
	"time"

	"moa/pkg/domain"
	dErrors "moa/pkg/domain-errors"
)

// PartyStatus is the lifecycle state of a party.
type PartyStatus string

const (
	PartyStatusPendingPayment PartyStatus = "PENDING_PAYMENT"
	PartyStatusRecruiting     PartyStatus = "RECRUITING"
	PartyStatusActive         PartyStatus = "ACTIVE"
	PartyStatusClosing        PartyStatus = "CLOSING"
	PartyStatusClosed         PartyStatus = "CLOSED"
)

// Capacity bounds, leader included.
const (
	MinMembers = 2
	MaxMembers = 10
)

var partyTransitions = map[PartyStatus][]PartyStatus{
	PartyStatusPendingPayment: {PartyStatusRecruiting, PartyStatusClosed},
	PartyStatusRecruiting:     {PartyStatusActive, PartyStatusClosing},
	PartyStatusActive:         {PartyStatusRecruiting, PartyStatusClosing},
	PartyStatusClosing:        {PartyStatusClosed},
}

func (s PartyStatus) IsValid() bool {
	switch s {
	case PartyStatusPendingPayment, PartyStatusRecruiting, PartyStatusActive, PartyStatusClosing, PartyStatusClosed:
		return true
	}
	return false
}

// IsRunning reports whether the party bills and admits state changes from its
// members.
func (s PartyStatus) IsRunning() bool {
	return s == PartyStatusRecruiting || s == PartyStatusActive
}

// CanTransitionTo reports whether the state machine allows s -> to.
// ACTIVE -> RECRUITING is the only backwards edge. A running party closes
// through CLOSING, which admits no joins while deposits are refunded.
func (s PartyStatus) CanTransitionTo(to PartyStatus) bool {
	for _, allowed := range partyTransitions[s] {
		if allowed == to {
			return true
		}
	}
	return false
}

// Party is a group sharing one subscription.
//
// Invariants:
//   - 0 < CurrentMembers <= MaxMembers, and MinMembers <= MaxMembers <= 10
//   - CurrentMembers counts the leader and every seat reserved by a join in flight
//   - MonthlyFee is positive; the deposit for every member equals MonthlyFee
//   - StartDate and EndDate are civil dates (see domain.DateOf)
type Party struct {
	ID             domain.PartyID
	LeaderID       domain.UserID
	ProductID      domain.ProductID
	Status         PartyStatus
	MaxMembers     int
	CurrentMembers int
	MonthlyFee     int64
	StartDate      time.Time
	EndDate        *time.Time
	CreatedAt      time.Time
	UpdatedAt      time.Time
	ClosedAt       *time.Time
}

func NewParty(id domain.PartyID, leaderID domain.UserID, req CreatePartyRequest, now time.Time) (*Party, error) {
	if leaderID.IsNil() {
		return nil, dErrors.New(dErrors.CodeInvariantViolation, "leader is required")
	}
	if req.MaxMembers < MinMembers || req.MaxMembers > MaxMembers {
		return nil, dErrors.Newf(dErrors.CodeInvariantViolation, "max members must be between %d and %d", MinMembers, MaxMembers)
	}
	if req.MonthlyFee <= 0 {
		return nil, dErrors.New(dErrors.CodeInvariantViolation, "monthly fee must be positive")
	}
	if req.StartDate.IsZero() {
		return nil, dErrors.New(dErrors.CodeInvariantViolation, "start date is required")
	}
	start := domain.DateOf(req.StartDate)
	var end *time.Time
	if req.EndDate != nil {
		e := domain.DateOf(*req.EndDate)
		if !e.After(start) {
			return nil, dErrors.New(dErrors.CodeInvariantViolation, "end date must be after start date")
		}
		end = &e
	}
	return &Party{
		ID:             id,
		LeaderID:       leaderID,
		ProductID:      req.ProductID,
		Status:         PartyStatusPendingPayment,
		MaxMembers:     req.MaxMembers,
		CurrentMembers: 1,
		MonthlyFee:     req.MonthlyFee,
		StartDate:      start,
		EndDate:        end,
		CreatedAt:      now,
		UpdatedAt:      now,
	}, nil
}

// StartDay anchors the billing cycle.
func (p *Party) StartDay() int {
	return p.StartDate.Day()
}

// DepositAmount is what every member, leader included, leaves as security.
func (p *Party) DepositAmount() int64 {
	return p.MonthlyFee
}

// JoinAmount is the combined charge for a member joining: the deposit plus
// the first month's fee.
func (p *Party) JoinAmount() int64 {
	return p.DepositAmount() + p.MonthlyFee
}

// HasStarted reports whether the party's start date is on or before today.
func (p *Party) HasStarted(today time.Time) bool {
	return !domain.DateOf(today).Before(p.StartDate)
}

// IsExpired reports whether the party's end date is strictly before today.
func (p *Party) IsExpired(today time.Time) bool {
	return p.EndDate != nil && domain.DateOf(today).After(*p.EndDate)
}

func (p *Party) IsLeader(userID domain.UserID) bool {
	return p.LeaderID == userID
}

func (p *Party) IsFull() bool {
	return p.CurrentMembers >= p.MaxMembers
}

// FirstCycleMonth is the billing month the initial payment of a member
// joining at joinedAt covers.
func (p *Party) FirstCycleMonth(joinedAt time.Time) domain.Month {
	day := domain.DateOf(joinedAt)
	if day.Before(p.StartDate) {
		day = p.StartDate
	}
	return domain.CycleMonthOf(p.StartDay(), day)
}

// CanActivate checks the leader-deposit gate.
func (p *Party) CanActivate() error {
	if p.Status != PartyStatusPendingPayment {
		return dErrors.Newf(dErrors.CodeInvariantViolation, "party is %s, not awaiting the leader deposit", p.Status)
	}
	return nil
}

// ApplyActivation opens the party for recruiting.
// Call CanActivate first to validate the transition.
func (p *Party) ApplyActivation(now time.Time) {
	p.Status = PartyStatusRecruiting
	p.UpdatedAt = now
}

// CanAcceptMembers checks whether new joins are allowed.
func (p *Party) CanAcceptMembers() error {
	if p.Status != PartyStatusRecruiting {
		return dErrors.Newf(dErrors.CodeInvariantViolation, "party is %s, not recruiting", p.Status)
	}
	return nil
}

// CanClose checks the closing transition. A running party and one whose
// closure is already under way may be closed; CLOSED is terminal.
func (p *Party) CanClose() error {
	if !p.Status.IsRunning() && p.Status != PartyStatusClosing {
		return dErrors.Newf(dErrors.CodeInvariantViolation, "party is %s and cannot be closed", p.Status)
	}
	return nil
}

func (p *Party) ApplyClose(now time.Time) {
	p.Status = PartyStatusClosed
	p.UpdatedAt = now
	p.ClosedAt = &now
}
