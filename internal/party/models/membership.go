package models

import (
	"time"

	"moa/pkg/domain"
	dErrors "moa/pkg/domain-errors"
)

type Role string

const (
	RoleLeader Role = "LEADER"
	RoleMember Role = "MEMBER"
)

type MembershipStatus string

const (
	MembershipStatusPendingPayment MembershipStatus = "PENDING_PAYMENT"
	MembershipStatusActive         MembershipStatus = "ACTIVE"
	MembershipStatusWithdrawn      MembershipStatus = "WITHDRAWN"
)

// Withdrawal reasons.
const (
	WithdrawReasonVoluntary     = "VOLUNTARY"
	WithdrawReasonPaymentFailed = "PAYMENT_FAILED"
	WithdrawReasonPartyClosed   = "PARTY_CLOSED"
)

// Membership is a user's seat in a party.
//
// Invariants:
//   - exactly one LEADER membership per party
//   - at most one non-withdrawn membership per (party, user)
//   - WITHDRAWN is terminal
type Membership struct {
	ID             domain.MembershipID
	PartyID        domain.PartyID
	UserID         domain.UserID
	Role           Role
	Status         MembershipStatus
	DepositID      *domain.DepositID
	JoinDate       time.Time
	WithdrawDate   *time.Time
	WithdrawReason string
}

func NewLeaderMembership(partyID domain.PartyID, leaderID domain.UserID, now time.Time) *Membership {
	return &Membership{
		ID:       domain.NewMembershipID(),
		PartyID:  partyID,
		UserID:   leaderID,
		Role:     RoleLeader,
		Status:   MembershipStatusPendingPayment,
		JoinDate: now,
	}
}

func NewMemberMembership(partyID domain.PartyID, userID domain.UserID, now time.Time) *Membership {
	return &Membership{
		ID:       domain.NewMembershipID(),
		PartyID:  partyID,
		UserID:   userID,
		Role:     RoleMember,
		Status:   MembershipStatusPendingPayment,
		JoinDate: now,
	}
}

func (m *Membership) IsLeader() bool {
	return m.Role == RoleLeader
}

func (m *Membership) IsActive() bool {
	return m.Status == MembershipStatusActive
}

func (m *Membership) CanActivate() error {
	if m.Status != MembershipStatusPendingPayment {
		return dErrors.Newf(dErrors.CodeInvariantViolation, "membership is %s, not awaiting payment", m.Status)
	}
	return nil
}

// ApplyActivation marks the membership paid and links its deposit.
func (m *Membership) ApplyActivation(depositID domain.DepositID) {
	m.Status = MembershipStatusActive
	m.DepositID = &depositID
}

// CanWithdraw allows withdrawal only from ACTIVE.
func (m *Membership) CanWithdraw() error {
	if m.Status != MembershipStatusActive {
		return dErrors.Newf(dErrors.CodeInvariantViolation, "membership is %s, only active memberships can withdraw", m.Status)
	}
	return nil
}

func (m *Membership) ApplyWithdrawal(reason string, now time.Time) {
	m.Status = MembershipStatusWithdrawn
	m.WithdrawDate = &now
	m.WithdrawReason = reason
}
