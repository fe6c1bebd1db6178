package models

import (
	"time"

	"github.com/google/uuid"

	"moa/pkg/domain"
)

// RetryType distinguishes why a deposit needs another gateway attempt.
type RetryType string

const (
	// RetryRefund re-attempts a refund the gateway rejected.
	RetryRefund RetryType = "REFUND"
	// RetryCompensation reconciles a gateway action that succeeded while the
	// matching ledger write failed.
	RetryCompensation RetryType = "COMPENSATION"
)

type RetryStatus string

const (
	RetryStatusPending RetryStatus = "PENDING"
	RetryStatusSuccess RetryStatus = "SUCCESS"
	RetryStatusFailed  RetryStatus = "FAILED"
)

// MaxRetryAttempts caps attempts per retry record; the failure that created
// the record counts as attempt 1.
const MaxRetryAttempts = 4

var retryBackoff = []time.Duration{time.Hour, 4 * time.Hour, 24 * time.Hour}

// RetryBackoff is the delay after the given failed attempt.
func RetryBackoff(attempt int) time.Duration {
	if attempt < 1 {
		attempt = 1
	}
	if attempt > len(retryBackoff) {
		return retryBackoff[len(retryBackoff)-1]
	}
	return retryBackoff[attempt-1]
}

// Retry is a durable record of a deposit side effect still owed.
//
// Invariants:
//   - AttemptNumber starts at 1 and only grows, never beyond MaxRetryAttempts
//   - at most one PENDING record per (deposit, type)
//   - NextRetryAt is nil once the record is SUCCESS or FAILED, and while a
//     worker holds the claim
type Retry struct {
	ID            uuid.UUID
	DepositID     domain.DepositID
	Type          RetryType
	AttemptNumber int
	Status        RetryStatus
	NextRetryAt   *time.Time
	GatewayRef    string
	Amount        int64
	Reason        string
	ErrorCode     string
	ErrorMessage  string
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// NewRetry records the first failed attempt.
func NewRetry(depositID domain.DepositID, typ RetryType, gatewayRef string, amount int64, reason, errCode, errMsg string, now time.Time) *Retry {
	next := now.Add(RetryBackoff(1))
	return &Retry{
		ID:            uuid.New(),
		DepositID:     depositID,
		Type:          typ,
		AttemptNumber: 1,
		Status:        RetryStatusPending,
		NextRetryAt:   &next,
		GatewayRef:    gatewayRef,
		Amount:        amount,
		Reason:        reason,
		ErrorCode:     errCode,
		ErrorMessage:  errMsg,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
}

// ApplyFailure records one more failed attempt. It reports true when the
// attempt budget is spent and the record became FAILED.
func (r *Retry) ApplyFailure(errCode, errMsg string, now time.Time) (exhausted bool) {
	r.AttemptNumber++
	r.ErrorCode = errCode
	r.ErrorMessage = errMsg
	r.UpdatedAt = now
	if r.AttemptNumber >= MaxRetryAttempts {
		r.Status = RetryStatusFailed
		r.NextRetryAt = nil
		return true
	}
	next := now.Add(RetryBackoff(r.AttemptNumber))
	r.NextRetryAt = &next
	return false
}

func (r *Retry) ApplySuccess(now time.Time) {
	r.Status = RetryStatusSuccess
	r.NextRetryAt = nil
	r.UpdatedAt = now
}
