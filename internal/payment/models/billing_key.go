package models

import (
	"time"

	"moa/pkg/domain"
)

// BillingKey is a member's stored card credential for recurring charges.
type BillingKey struct {
	UserID           domain.UserID
	Credential       string
	CardCompany      string
	CardNumberMasked string
	CreatedAt        time.Time
	UpdatedAt        time.Time
}
