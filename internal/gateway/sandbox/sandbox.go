// Package sandbox provides in-process gateways that approve every request
// unless a failure has been scripted. The server uses them when no real
// processor is configured; service tests use them to drive failure paths.
package sandbox

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"moa/internal/gateway"
)

// Operation names used to script failures.
const (
	OpConfirm             = "confirm"
	OpCancel              = "cancel"
	OpIssueCredential     = "issue_credential"
	OpCharge              = "charge"
	OpRequestVerification = "request_verification"
	OpVerifyCode          = "verify_code"
	OpTransfer            = "transfer"
)

// VerificationCode is the code the sandbox bank accepts.
const VerificationCode = "123"

type script struct {
	mu       sync.Mutex
	failures map[string][]error
	calls    map[string]int
	now      func() time.Time
}

func newScript() script {
	return script{failures: map[string][]error{}, calls: map[string]int{}, now: time.Now}
}

// FailNext makes the next call to op return err. Calls queue in order.
func (s *script) FailNext(op string, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failures[op] = append(s.failures[op], err)
}

// Calls returns how many times op was invoked.
func (s *script) Calls(op string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls[op]
}

func (s *script) record(op string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls[op]++
	if q := s.failures[op]; len(q) > 0 {
		s.failures[op] = q[1:]
		return q[0]
	}
	return nil
}

// Payments is a sandbox PaymentGateway.
type Payments struct {
	script
	mu        sync.Mutex
	cancelled map[string]int64
}

func NewPayments() *Payments {
	return &Payments{script: newScript(), cancelled: map[string]int64{}}
}

func (p *Payments) ConfirmPayment(ctx context.Context, req gateway.ConfirmRequest) (*gateway.Receipt, error) {
	if err := p.record(OpConfirm); err != nil {
		return nil, err
	}
	ref := req.PaymentRef
	if ref == "" {
		ref = "pay_" + uuid.NewString()
	}
	return &gateway.Receipt{PaymentRef: ref, OrderID: req.OrderID, Amount: req.Amount, ApprovedAt: p.now()}, nil
}

func (p *Payments) CancelPayment(ctx context.Context, req gateway.CancelRequest) (*gateway.Receipt, error) {
	if err := p.record(OpCancel); err != nil {
		return nil, err
	}
	p.mu.Lock()
	p.cancelled[req.PaymentRef] += req.Amount
	p.mu.Unlock()
	return &gateway.Receipt{PaymentRef: req.PaymentRef, Amount: req.Amount, ApprovedAt: p.now()}, nil
}

func (p *Payments) IssueBillingCredential(ctx context.Context, authKey, customerID string) (*gateway.BillingCredential, error) {
	if err := p.record(OpIssueCredential); err != nil {
		return nil, err
	}
	if authKey == "" {
		return nil, gateway.NewError("INVALID_REQUEST", "authKey is required")
	}
	return &gateway.BillingCredential{
		Credential:       fmt.Sprintf("bk_%s_%s", customerID, authKey),
		CardCompany:      "SANDBOX",
		CardNumberMasked: "4330-****-****-1234",
	}, nil
}

func (p *Payments) ChargeWithCredential(ctx context.Context, req gateway.ChargeRequest) (*gateway.Receipt, error) {
	if err := p.record(OpCharge); err != nil {
		return nil, err
	}
	return &gateway.Receipt{PaymentRef: "pay_" + uuid.NewString(), OrderID: req.OrderID, Amount: req.Amount, ApprovedAt: p.now()}, nil
}

// Cancelled returns the total cancelled against ref.
func (p *Payments) Cancelled(ref string) int64 {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.cancelled[ref]
}

// Bank is a sandbox BankGateway.
type Bank struct {
	script
	mu        sync.Mutex
	transfers []gateway.TransferRequest
}

func NewBank() *Bank {
	return &Bank{script: newScript()}
}

func (b *Bank) RequestAccountVerification(ctx context.Context, req gateway.AccountVerificationRequest) (*gateway.VerificationTicket, error) {
	if err := b.record(OpRequestVerification); err != nil {
		return nil, err
	}
	return &gateway.VerificationTicket{TransactionID: "vt_" + uuid.NewString(), ExpiresAt: b.now().Add(10 * time.Minute)}, nil
}

func (b *Bank) VerifyCode(ctx context.Context, transactionID, code string) (*gateway.VerifiedAccount, error) {
	if err := b.record(OpVerifyCode); err != nil {
		return nil, err
	}
	if code != VerificationCode {
		return nil, gateway.NewError("INVALID_CODE", "verification code does not match")
	}
	return &gateway.VerifiedAccount{FintechID: "fin_" + transactionID}, nil
}

func (b *Bank) TransferDeposit(ctx context.Context, req gateway.TransferRequest) (*gateway.TransferReceipt, error) {
	if err := b.record(OpTransfer); err != nil {
		return nil, err
	}
	b.mu.Lock()
	b.transfers = append(b.transfers, req)
	b.mu.Unlock()
	return &gateway.TransferReceipt{BankTransactionID: "btx_" + uuid.NewString(), TransferredAt: b.now()}, nil
}

// Transfers returns every accepted transfer.
func (b *Bank) Transfers() []gateway.TransferRequest {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]gateway.TransferRequest(nil), b.transfers...)
}
