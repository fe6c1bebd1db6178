// Package gateway defines the narrow ports to the external payment processor
// and banking API, and the decorators every outbound call passes through.
// Wire protocols live behind these interfaces.
package gateway

import (
	"context"
	"time"
)

// PaymentGateway is the card processor.
type PaymentGateway interface {
	// ConfirmPayment captures a client-authorized one-off payment.
	ConfirmPayment(ctx context.Context, req ConfirmRequest) (*Receipt, error)
	// CancelPayment refunds (fully or partially) a captured payment.
	CancelPayment(ctx context.Context, req CancelRequest) (*Receipt, error)
	// IssueBillingCredential exchanges a card authorization for a reusable
	// billing credential.
	IssueBillingCredential(ctx context.Context, authKey, customerID string) (*BillingCredential, error)
	// ChargeWithCredential charges a stored billing credential.
	ChargeWithCredential(ctx context.Context, req ChargeRequest) (*Receipt, error)
}

// BankGateway is the open-banking API used for payout accounts.
type BankGateway interface {
	// RequestAccountVerification sends a one-won deposit carrying a code to
	// the account.
	RequestAccountVerification(ctx context.Context, req AccountVerificationRequest) (*VerificationTicket, error)
	// VerifyCode confirms the code and returns the account's fintech id.
	VerifyCode(ctx context.Context, transactionID, code string) (*VerifiedAccount, error)
	// TransferDeposit moves money to a verified account.
	TransferDeposit(ctx context.Context, req TransferRequest) (*TransferReceipt, error)
}

type ConfirmRequest struct {
	PaymentRef string
	OrderID    string
	Amount     int64
}

type CancelRequest struct {
	PaymentRef string
	Reason     string
	// Amount of zero cancels the full remaining balance.
	Amount int64
}

type ChargeRequest struct {
	Credential  string
	OrderID     string
	Amount      int64
	Description string
	CustomerID  string
}

// Receipt is the processor's acknowledgement of a capture, charge or cancel.
type Receipt struct {
	PaymentRef string
	OrderID    string
	Amount     int64
	ApprovedAt time.Time
}

type BillingCredential struct {
	Credential       string
	CardCompany      string
	CardNumberMasked string
}

type AccountVerificationRequest struct {
	BankCode      string
	AccountNumber string
	HolderName    string
}

type VerificationTicket struct {
	TransactionID string
	ExpiresAt     time.Time
}

type VerifiedAccount struct {
	FintechID string
}

type TransferRequest struct {
	FintechID string
	Amount    int64
	Memo      string
}

type TransferReceipt struct {
	BankTransactionID string
	TransferredAt     time.Time
}
