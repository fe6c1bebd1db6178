package models

import (
	"time"

	"github.com/google/uuid"

	"moa/pkg/domain"
)

type RetryStatus string

const (
	RetryStatusSuccess RetryStatus = "SUCCESS"
	RetryStatusFailed  RetryStatus = "FAILED"
	// RetryStatusVoid marks a charge the gateway accepted but the ledger
	// never recorded. It is resolved into a SUCCESS or FAILED row once the
	// charge has been cancelled or found in the ledger.
	RetryStatusVoid RetryStatus = "VOID"
)

// Retry is the history row of one charge attempt. A FAILED row with
// NextRetryAt set is the schedule for the following attempt.
//
// Invariants:
//   - unique per (PaymentID, AttemptNumber)
//   - the final attempt never carries a NextRetryAt
//   - GatewayRef is set only on VOID rows
type Retry struct {
	ID            uuid.UUID
	PaymentID     domain.PaymentID
	AttemptNumber int
	Status        RetryStatus
	NextRetryAt   *time.Time
	ErrorCode     string
	ErrorMessage  string
	GatewayRef    string
	AttemptedAt   time.Time
}

func NewSuccessRecord(paymentID domain.PaymentID, attempt int, now time.Time) *Retry {
	return &Retry{
		ID:            uuid.New(),
		PaymentID:     paymentID,
		AttemptNumber: attempt,
		Status:        RetryStatusSuccess,
		AttemptedAt:   now,
	}
}

// NewFailureRecord schedules the next attempt unless attempt was the last.
func NewFailureRecord(paymentID domain.PaymentID, attempt int, code, message string, now time.Time) *Retry {
	r := &Retry{
		ID:            uuid.New(),
		PaymentID:     paymentID,
		AttemptNumber: attempt,
		Status:        RetryStatusFailed,
		ErrorCode:     code,
		ErrorMessage:  message,
		AttemptedAt:   now,
	}
	if !IsFinalAttempt(attempt) {
		next := NextRetryAt(now, attempt)
		r.NextRetryAt = &next
	}
	return r
}

// NewVoidRecord notes that attempt charged gatewayRef without the ledger
// recording it. The cancellation is due immediately.
func NewVoidRecord(paymentID domain.PaymentID, attempt int, gatewayRef, message string, now time.Time) *Retry {
	return &Retry{
		ID:            uuid.New(),
		PaymentID:     paymentID,
		AttemptNumber: attempt,
		Status:        RetryStatusVoid,
		NextRetryAt:   &now,
		ErrorCode:     FailureLedgerWrite,
		ErrorMessage:  message,
		GatewayRef:    gatewayRef,
		AttemptedAt:   now,
	}
}
