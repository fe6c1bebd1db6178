package models

import (
	"time"

	"moa/pkg/domain"
	dErrors "moa/pkg/domain-errors"
)

type Status string

const (
	StatusPending   Status = "PENDING"
	StatusPaid      Status = "PAID"
	StatusRefunded  Status = "REFUNDED"
	StatusForfeited Status = "FORFEITED"
)

// IsTerminal reports whether no further transition is possible.
func (s Status) IsTerminal() bool {
	return s == StatusRefunded || s == StatusForfeited
}

// Deposit is the security amount a member leaves with the platform.
//
// Invariants:
//   - PENDING -> PAID -> {REFUNDED | FORFEITED}
//   - REFUNDED and FORFEITED are terminal
//   - RefundAmount is zero unless REFUNDED
type Deposit struct {
	ID           domain.DepositID
	PartyID      domain.PartyID
	MembershipID domain.MembershipID
	UserID       domain.UserID
	Amount       int64
	Status       Status
	GatewayRef   string
	OrderID      string
	PaidAt       *time.Time
	RefundedAt   *time.Time
	RefundAmount int64
	ForfeitedAt  *time.Time
	Reason       string
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// NewPending opens a deposit before its charge is confirmed.
func NewPending(req OpenRequest, now time.Time) (*Deposit, error) {
	if req.Amount <= 0 {
		return nil, dErrors.New(dErrors.CodeInvariantViolation, "deposit amount must be positive")
	}
	return &Deposit{
		ID:           domain.NewDepositID(),
		PartyID:      req.PartyID,
		MembershipID: req.MembershipID,
		UserID:       req.UserID,
		Amount:       req.Amount,
		Status:       StatusPending,
		OrderID:      req.OrderID,
		CreatedAt:    now,
		UpdatedAt:    now,
	}, nil
}

// NewPaid records a deposit whose charge the caller already confirmed.
func NewPaid(req OpenRequest, gatewayRef string, now time.Time) (*Deposit, error) {
	d, err := NewPending(req, now)
	if err != nil {
		return nil, err
	}
	d.ApplyPaid(gatewayRef, now)
	return d, nil
}

func (d *Deposit) CanMarkPaid() error {
	if d.Status != StatusPending {
		return dErrors.Newf(dErrors.CodeInvariantViolation, "deposit is %s, not pending", d.Status)
	}
	return nil
}

func (d *Deposit) ApplyPaid(gatewayRef string, now time.Time) {
	d.Status = StatusPaid
	d.GatewayRef = gatewayRef
	d.PaidAt = &now
	d.UpdatedAt = now
}

// CanRefund and CanForfeit both require PAID; terminal deposits never move.
func (d *Deposit) CanRefund() error {
	if d.Status != StatusPaid {
		return dErrors.Newf(dErrors.CodeInvariantViolation, "deposit is %s, only paid deposits can be refunded", d.Status)
	}
	return nil
}

func (d *Deposit) ApplyRefund(reason string, now time.Time) {
	d.Status = StatusRefunded
	d.RefundAmount = d.Amount
	d.RefundedAt = &now
	d.Reason = reason
	d.UpdatedAt = now
}

func (d *Deposit) CanForfeit() error {
	if d.Status != StatusPaid {
		return dErrors.Newf(dErrors.CodeInvariantViolation, "deposit is %s, only paid deposits can be forfeited", d.Status)
	}
	return nil
}

func (d *Deposit) ApplyForfeit(reason string, now time.Time) {
	d.Status = StatusForfeited
	d.RefundAmount = 0
	d.ForfeitedAt = &now
	d.Reason = reason
	d.UpdatedAt = now
}

// OpenRequest describes a deposit to open.
type OpenRequest struct {
	PartyID      domain.PartyID
	MembershipID domain.MembershipID
	UserID       domain.UserID
	Amount       int64
	OrderID      string
}

// Disposition is what a withdrawal did to the member's deposit.
type Disposition string

const (
	DispositionRefunded        Disposition = "REFUNDED"
	DispositionForfeited       Disposition = "FORFEITED"
	DispositionRefundScheduled Disposition = "REFUND_SCHEDULED"
)

// RefundCutoffDays is the default minimum lead time before the party start
// for a voluntary leave to get the deposit back.
const RefundCutoffDays = 2

// WithdrawalDisposition applies the leave policy: leaving at least cutoffDays
// before the party starts refunds in full, anything later forfeits in full.
func WithdrawalDisposition(today, partyStart time.Time, cutoffDays int) Disposition {
	if domain.DaysUntil(today, partyStart) >= cutoffDays {
		return DispositionRefunded
	}
	return DispositionForfeited
}
