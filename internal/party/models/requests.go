package models

import (
	"strings"
	"time"

	"moa/pkg/domain"
	dErrors "moa/pkg/domain-errors"
)

// CreatePartyRequest carries the leader's party settings.
type CreatePartyRequest struct {
	ProductID  domain.ProductID
	MaxMembers int
	MonthlyFee int64
	StartDate  time.Time
	EndDate    *time.Time
}

// Validate checks the request at the service boundary.
func (r *CreatePartyRequest) Validate() error {
	if r == nil {
		return dErrors.New(dErrors.CodeBadRequest, "request is required")
	}
	if _, err := domain.ParseProductID(string(r.ProductID)); err != nil {
		return dErrors.Wrap(err, dErrors.CodeValidation, "product is required")
	}
	if r.MaxMembers < MinMembers || r.MaxMembers > MaxMembers {
		return dErrors.Newf(dErrors.CodeValidation, "max members must be between %d and %d", MinMembers, MaxMembers)
	}
	if r.MonthlyFee <= 0 {
		return dErrors.New(dErrors.CodeValidation, "monthly fee must be positive")
	}
	if r.StartDate.IsZero() {
		return dErrors.New(dErrors.CodeValidation, "start date is required")
	}
	return nil
}

// JoinRequest carries the member's payment authorization for the combined
// deposit and first-month charge.
type JoinRequest struct {
	PartyID    domain.PartyID
	UserID     domain.UserID
	PaymentRef string
	OrderID    string
	Amount     int64
}

func (r *JoinRequest) Normalize() {
	r.PaymentRef = strings.TrimSpace(r.PaymentRef)
	r.OrderID = strings.TrimSpace(r.OrderID)
}

func (r *JoinRequest) Validate() error {
	if r.PartyID.IsNil() || r.UserID.IsNil() {
		return dErrors.New(dErrors.CodeValidation, "party and user are required")
	}
	if r.PaymentRef == "" || r.OrderID == "" {
		return dErrors.New(dErrors.CodeValidation, "payment reference and order ID are required")
	}
	if r.Amount <= 0 {
		return dErrors.New(dErrors.CodeValidation, "amount must be positive")
	}
	return nil
}

// DepositOutcome describes what happened to a leaving member's deposit.
type DepositOutcome string

const (
	DepositRefunded        DepositOutcome = "REFUNDED"
	DepositForfeited       DepositOutcome = "FORFEITED"
	DepositRefundScheduled DepositOutcome = "REFUND_SCHEDULED"
	DepositNone            DepositOutcome = "NONE"
)

// LeaveResult reports the side effects of a voluntary leave.
type LeaveResult struct {
	Membership      *Membership
	Deposit         DepositOutcome
	InitialRefunded bool
}

// BillingTarget is one membership due a monthly charge.
type BillingTarget struct {
	PartyID      domain.PartyID
	MembershipID domain.MembershipID
	UserID       domain.UserID
	Amount       int64
	Month        domain.Month
}

// PartyDetails is a party with its members.
type PartyDetails struct {
	Party   *Party
	Members []*Membership
}
