package models

import (
	"time"

	"github.com/google/uuid"

	"moa/pkg/domain"
	dErrors "moa/pkg/domain-errors"
)

type Status string

const (
	StatusPending    Status = "PENDING"
	StatusInProgress Status = "IN_PROGRESS"
	StatusCompleted  Status = "COMPLETED"
	StatusFailed     Status = "FAILED"
)

// DefaultCommissionBasisPoints is 15% of collected fees.
const DefaultCommissionBasisPoints = 1500

// Settlement is the payout of one party's billing cycle to its leader.
//
// Invariants:
//   - unique per (PartyID, Month)
//   - NetAmount = TotalAmount - CommissionAmount
//   - a non-empty BankTransactionID means the money left; it is never transferred again
type Settlement struct {
	ID                domain.SettlementID
	PartyID           domain.PartyID
	LeaderID          domain.UserID
	Month             domain.Month
	WindowStart       time.Time
	WindowEnd         time.Time
	TotalAmount       int64
	CommissionAmount  int64
	NetAmount         int64
	Status            Status
	BankTransactionID string
	FailureReason     string
	SettledAt         *time.Time
	CreatedAt         time.Time
	UpdatedAt         time.Time
	Details           []Detail
}

// Detail itemizes one payment that contributed to a settlement.
type Detail struct {
	ID           uuid.UUID
	SettlementID domain.SettlementID
	PaymentID    domain.PaymentID
	MembershipID domain.MembershipID
	Amount       int64
}

// Contribution is one input to a settlement.
type Contribution struct {
	PaymentID    domain.PaymentID
	MembershipID domain.MembershipID
	Amount       int64
}

// Totals is the money side of a settlement.
type Totals struct {
	Payments    int64
	Forfeitures int64
	Commission  int64
}

func (t Totals) Total() int64 { return t.Payments + t.Forfeitures }

func (t Totals) Net() int64 { return t.Total() - t.Commission }

func (t Totals) IsEmpty() bool { return t.Total() == 0 }

// Commission is the platform's share of collected payments, rounded half up.
// Forfeited deposits pass through to the leader untouched.
func Commission(payments, basisPoints int64) int64 {
	return (payments*basisPoints + 5000) / 10000
}

// Aggregate sums payments and forfeitures for one window.
func Aggregate(payments []Contribution, forfeitures []int64, basisPoints int64) Totals {
	var t Totals
	for _, p := range payments {
		t.Payments += p.Amount
	}
	for _, f := range forfeitures {
		t.Forfeitures += f
	}
	t.Commission = Commission(t.Payments, basisPoints)
	return t
}

// NewSettlement builds a PENDING settlement with one detail per payment.
func NewSettlement(partyID domain.PartyID, leaderID domain.UserID, month domain.Month, window domain.Window,
	payments []Contribution, totals Totals, now time.Time) (*Settlement, error) {
	if totals.IsEmpty() {
		return nil, dErrors.New(dErrors.CodeInvariantViolation, "nothing to settle")
	}
	if totals.Commission < 0 || totals.Commission > totals.Payments {
		return nil, dErrors.Newf(dErrors.CodeInvariantViolation, "commission %d outside collected payments %d", totals.Commission, totals.Payments)
	}
	s := &Settlement{
		ID:               domain.NewSettlementID(),
		PartyID:          partyID,
		LeaderID:         leaderID,
		Month:            month,
		WindowStart:      window.Start,
		WindowEnd:        window.End,
		TotalAmount:      totals.Total(),
		CommissionAmount: totals.Commission,
		NetAmount:        totals.Net(),
		Status:           StatusPending,
		CreatedAt:        now,
		UpdatedAt:        now,
	}
	s.Details = make([]Detail, 0, len(payments))
	for _, p := range payments {
		s.Details = append(s.Details, Detail{
			ID:           uuid.New(),
			SettlementID: s.ID,
			PaymentID:    p.PaymentID,
			MembershipID: p.MembershipID,
			Amount:       p.Amount,
		})
	}
	return s, nil
}

// CanClaim allows a transfer attempt from PENDING or FAILED only.
func (s *Settlement) CanClaim() error {
	switch s.Status {
	case StatusPending, StatusFailed:
		return nil
	case StatusCompleted:
		return dErrors.New(dErrors.CodeAlreadyCompleted, "settlement already completed")
	case StatusInProgress:
		return dErrors.New(dErrors.CodeRetryNotAllowed, "settlement transfer already in progress")
	default:
		return dErrors.Newf(dErrors.CodeInvariantViolation, "unknown settlement status %s", s.Status)
	}
}

// Transferred reports whether the bank already accepted the payout.
func (s *Settlement) Transferred() bool {
	return s.BankTransactionID != ""
}

func (s *Settlement) ApplyClaim(now time.Time) {
	s.Status = StatusInProgress
	s.UpdatedAt = now
}

func (s *Settlement) ApplyCompleted(bankTxID string, now time.Time) {
	s.Status = StatusCompleted
	s.BankTransactionID = bankTxID
	s.FailureReason = ""
	s.SettledAt = &now
	s.UpdatedAt = now
}

// ApplyFailed keeps any bank transaction id already recorded.
func (s *Settlement) ApplyFailed(bankTxID, reason string, now time.Time) {
	s.Status = StatusFailed
	if bankTxID != "" {
		s.BankTransactionID = bankTxID
	}
	s.FailureReason = reason
	s.UpdatedAt = now
}
