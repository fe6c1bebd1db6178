package models

import "moa/pkg/domain"

// MonthlyRequest asks for one membership's monthly charge.
type MonthlyRequest struct {
	PartyID      domain.PartyID
	MembershipID domain.MembershipID
	UserID       domain.UserID
	Amount       int64
	TargetMonth  domain.Month
}

// InitialRequest records the first-month part of a join charge.
type InitialRequest struct {
	PartyID      domain.PartyID
	MembershipID domain.MembershipID
	UserID       domain.UserID
	Amount       int64
	TargetMonth  domain.Month
	GatewayRef   string
	OrderID      string
}

// ChargeRequest charges a user's stored billing key outside the monthly
// cycle, for example the leader's deposit.
type ChargeRequest struct {
	UserID      domain.UserID
	Amount      int64
	OrderID     string
	Description string
}
