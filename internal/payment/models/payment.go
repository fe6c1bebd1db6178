package models

import (
	"time"

	"moa/pkg/domain"
	dErrors "moa/pkg/domain-errors"
)

type Type string

const (
	TypeInitial Type = "INITIAL"
	TypeMonthly Type = "MONTHLY"
)

type Status string

const (
	StatusPending   Status = "PENDING"
	StatusCompleted Status = "COMPLETED"
	StatusFailed    Status = "FAILED"
	StatusRefunded  Status = "REFUNDED"
)

// MaxAttempts caps charge attempts per payment; attempt 1 is the original
// charge.
const MaxAttempts = 4

// RetryInterval is the linear backoff unit: attempt n failing schedules the
// next attempt n*RetryInterval later.
const RetryInterval = 24 * time.Hour

// FailureNoBillingKey is recorded when the member has no stored credential.
const FailureNoBillingKey = "NO_BILLING_KEY"

// FailureLedgerWrite is recorded for an attempt whose charge was accepted,
// could not be stored and was cancelled.
const FailureLedgerWrite = "LEDGER_WRITE_FAILED"

// Payment is one charge for one membership and one billing month.
//
// Invariants:
//   - unique per (MembershipID, TargetMonth)
//   - AttemptCount never exceeds MaxAttempts
//   - COMPLETED payments carry a GatewayRef and PaidAt
type Payment struct {
	ID             domain.PaymentID
	PartyID        domain.PartyID
	MembershipID   domain.MembershipID
	UserID         domain.UserID
	Type           Type
	TargetMonth    domain.Month
	Amount         int64
	Status         Status
	AttemptCount   int
	GatewayRef     string
	OrderID        string
	FailureCode    string
	FailureMessage string
	PaidAt         *time.Time
	RefundedAt     *time.Time
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

// NewMonthly opens a PENDING monthly payment.
func NewMonthly(req MonthlyRequest, now time.Time) (*Payment, error) {
	if req.Amount <= 0 {
		return nil, dErrors.New(dErrors.CodeInvariantViolation, "payment amount must be positive")
	}
	if req.TargetMonth.IsZero() {
		return nil, dErrors.New(dErrors.CodeInvariantViolation, "target month is required")
	}
	id := domain.NewPaymentID()
	return &Payment{
		ID:           id,
		PartyID:      req.PartyID,
		MembershipID: req.MembershipID,
		UserID:       req.UserID,
		Type:         TypeMonthly,
		TargetMonth:  req.TargetMonth,
		Amount:       req.Amount,
		Status:       StatusPending,
		OrderID:      orderID(req.TargetMonth, id),
		CreatedAt:    now,
		UpdatedAt:    now,
	}, nil
}

// NewInitial records the first-month fee already captured by the join charge.
func NewInitial(req InitialRequest, now time.Time) (*Payment, error) {
	if req.Amount <= 0 {
		return nil, dErrors.New(dErrors.CodeInvariantViolation, "payment amount must be positive")
	}
	return &Payment{
		ID:           domain.NewPaymentID(),
		PartyID:      req.PartyID,
		MembershipID: req.MembershipID,
		UserID:       req.UserID,
		Type:         TypeInitial,
		TargetMonth:  req.TargetMonth,
		Amount:       req.Amount,
		Status:       StatusCompleted,
		AttemptCount: 1,
		GatewayRef:   req.GatewayRef,
		OrderID:      req.OrderID,
		PaidAt:       &now,
		CreatedAt:    now,
		UpdatedAt:    now,
	}, nil
}

func orderID(month domain.Month, id domain.PaymentID) string {
	return "moa-" + month.String() + "-" + id.String()
}

// CanAttempt checks that attempt is the next attempt for this payment.
func (p *Payment) CanAttempt(attempt int) error {
	if p.Status == StatusCompleted || p.Status == StatusRefunded {
		return dErrors.Newf(dErrors.CodeInvariantViolation, "payment is %s", p.Status)
	}
	if attempt != p.AttemptCount+1 {
		return dErrors.Newf(dErrors.CodeInvariantViolation, "attempt %d out of order, %d attempts made", attempt, p.AttemptCount)
	}
	if attempt > MaxAttempts {
		return dErrors.Newf(dErrors.CodeInvariantViolation, "attempt %d exceeds the limit of %d", attempt, MaxAttempts)
	}
	return nil
}

func (p *Payment) ApplySuccess(attempt int, gatewayRef string, now time.Time) {
	p.Status = StatusCompleted
	p.AttemptCount = attempt
	p.GatewayRef = gatewayRef
	p.FailureCode = ""
	p.FailureMessage = ""
	p.PaidAt = &now
	p.UpdatedAt = now
}

func (p *Payment) ApplyFailure(attempt int, code, message string, now time.Time) {
	p.Status = StatusFailed
	p.AttemptCount = attempt
	p.FailureCode = code
	p.FailureMessage = message
	p.UpdatedAt = now
}

// Records reports whether the payment is completed by the charge gatewayRef.
func (p *Payment) Records(gatewayRef string) bool {
	return p.Status == StatusCompleted && p.GatewayRef == gatewayRef
}

func (p *Payment) CanRefund() error {
	if p.Status != StatusCompleted {
		return dErrors.Newf(dErrors.CodeInvariantViolation, "payment is %s, only completed payments can be refunded", p.Status)
	}
	return nil
}

func (p *Payment) ApplyRefund(now time.Time) {
	p.Status = StatusRefunded
	p.RefundedAt = &now
	p.UpdatedAt = now
}

// IsFinalAttempt reports whether attempt is the last one allowed.
func IsFinalAttempt(attempt int) bool {
	return attempt >= MaxAttempts
}

// NextRetryAt schedules the attempt after a failed one: 24h after attempt 1,
// 48h after attempt 2, 72h after attempt 3.
func NextRetryAt(now time.Time, failedAttempt int) time.Time {
	return now.Add(RetryInterval * time.Duration(failedAttempt))
}
