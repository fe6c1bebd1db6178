package models

import (
	"strings"
	"time"
	"unicode"

	"moa/pkg/domain"
	dErrors "moa/pkg/domain-errors"
)

// PayoutAccount is a leader's bank account that passed the bank's one-time
// code check. Only verified accounts are stored; settlement pays to FintechID.
type PayoutAccount struct {
	UserID              domain.UserID
	BankCode            string
	AccountNumberMasked string
	HolderName          string
	FintechID           string
	VerifiedAt          time.Time
	UpdatedAt           time.Time
}

// VerificationRequest starts the one-time code check for an account.
type VerificationRequest struct {
	UserID        domain.UserID
	BankCode      string
	AccountNumber string
	HolderName    string
}

func (r *VerificationRequest) Validate() error {
	if r.UserID.IsNil() {
		return dErrors.New(dErrors.CodeValidation, "user id is required")
	}
	if strings.TrimSpace(r.BankCode) == "" {
		return dErrors.New(dErrors.CodeValidation, "bank code is required")
	}
	if strings.TrimSpace(r.HolderName) == "" {
		return dErrors.New(dErrors.CodeValidation, "holder name is required")
	}
	digits := strings.ReplaceAll(r.AccountNumber, "-", "")
	if len(digits) < 6 || strings.IndexFunc(digits, func(c rune) bool { return !unicode.IsDigit(c) }) >= 0 {
		return dErrors.New(dErrors.CodeValidation, "account number must be at least 6 digits")
	}
	return nil
}

// PendingVerification is the short-lived state between requesting a code
// and confirming it. The raw account number is never kept.
type PendingVerification struct {
	UserID              domain.UserID `json:"user_id"`
	TransactionID       string        `json:"transaction_id"`
	BankCode            string        `json:"bank_code"`
	AccountNumberMasked string        `json:"account_number_masked"`
	HolderName          string        `json:"holder_name"`
	ExpiresAt           time.Time     `json:"expires_at"`
}

func (p *PendingVerification) IsExpired(now time.Time) bool {
	return !now.Before(p.ExpiresAt)
}

// Verified turns a confirmed pending verification into a payout account.
func (p *PendingVerification) Verified(fintechID string, now time.Time) (*PayoutAccount, error) {
	if fintechID == "" {
		return nil, dErrors.New(dErrors.CodeInvariantViolation, "verified account has no fintech id")
	}
	return &PayoutAccount{
		UserID:              p.UserID,
		BankCode:            p.BankCode,
		AccountNumberMasked: p.AccountNumberMasked,
		HolderName:          p.HolderName,
		FintechID:           fintechID,
		VerifiedAt:          now,
		UpdatedAt:           now,
	}, nil
}

// MaskAccountNumber keeps the last four digits.
func MaskAccountNumber(number string) string {
	digits := strings.ReplaceAll(number, "-", "")
	if len(digits) <= 4 {
		return strings.Repeat("*", len(digits))
	}
	return strings.Repeat("*", len(digits)-4) + digits[len(digits)-4:]
}
