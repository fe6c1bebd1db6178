// Package outbox implements the transactional outbox: domain events are
// appended in the same transaction as the ledger change that caused them, then
// delivered at least once to in-process handlers and relayed to Kafka.
package outbox

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Aggregate types.
const (
	AggregateParty      = "party"
	AggregateDeposit    = "deposit"
	AggregatePayment    = "payment"
	AggregateSettlement = "settlement"
	AggregateUser       = "user"
)

// Event types.
const (
	TypePartyStarted          = "party.started"
	TypePartyClosed           = "party.closed"
	TypeMemberJoined          = "party.member_joined"
	TypeMemberWithdrawn       = "party.member_withdrawn"
	TypeDepositPaid           = "deposit.paid"
	TypeDepositRefunded       = "deposit.refunded"
	TypeDepositForfeited      = "deposit.forfeited"
	TypeJoinCompensated       = "deposit.join_compensated"
	TypeDepositRetryExhausted = "deposit.retry_exhausted"
	TypePaymentCompleted      = "payment.completed"
	TypePaymentFailed         = "payment.failed"
	TypePaymentFinalFailed    = "payment.final_failed"
	TypePaymentRefunded       = "payment.refunded"
	TypeSettlementCompleted   = "settlement.completed"
	TypeSettlementFailed      = "settlement.failed"
	TypeNotificationRequested = "notification.requested"
)

// Event is one outbox row.
type Event struct {
	ID            uuid.UUID
	AggregateType string
	AggregateID   string
	Type          string
	Payload       json.RawMessage
	CreatedAt     time.Time
	Attempts      int
}

// New builds an event with a JSON-encoded payload.
func New(aggregateType, aggregateID, eventType string, payload any, now time.Time) (Event, error) {
	raw, err := json.Marshal(payload)
	if err != nil {
		return Event{}, fmt.Errorf("marshal %s payload: %w", eventType, err)
	}
	return Event{
		ID:            uuid.New(),
		AggregateType: aggregateType,
		AggregateID:   aggregateID,
		Type:          eventType,
		Payload:       raw,
		CreatedAt:     now,
	}, nil
}

// Decode unmarshals the payload into v.
func (e Event) Decode(v any) error {
	if err := json.Unmarshal(e.Payload, v); err != nil {
		return fmt.Errorf("decode %s payload: %w", e.Type, err)
	}
	return nil
}

// Appender writes events in the caller's unit of work.
type Appender interface {
	Append(ctx context.Context, events ...Event) error
}

// Store is the full outbox persistence contract.
type Store interface {
	Appender
	ListUndispatched(ctx context.Context, limit, maxAttempts int) ([]Event, error)
	MarkDispatched(ctx context.Context, id uuid.UUID, at time.Time) error
	RecordDispatchFailure(ctx context.Context, id uuid.UUID, reason string) error
	ListUnpublished(ctx context.Context, limit int) ([]Event, error)
	MarkPublished(ctx context.Context, ids []uuid.UUID, at time.Time) error
}

// PaymentFinalFailed is the payload of TypePaymentFinalFailed.
type PaymentFinalFailed struct {
	PaymentID    string `json:"payment_id"`
	PartyID      string `json:"party_id"`
	MembershipID string `json:"membership_id"`
	UserID       string `json:"user_id"`
	TargetMonth  string `json:"target_month"`
	ErrorCode    string `json:"error_code"`
}

// JoinCompensated is the payload of TypeJoinCompensated: a join whose charge
// succeeded but whose ledger write failed has been cancelled at the gateway.
type JoinCompensated struct {
	DepositID    string `json:"deposit_id"`
	PartyID      string `json:"party_id"`
	MembershipID string `json:"membership_id"`
	UserID       string `json:"user_id"`
	Amount       int64  `json:"amount"`
}

// LedgerChange is the generic payload for ledger state changes.
type LedgerChange struct {
	PartyID      string `json:"party_id"`
	MembershipID string `json:"membership_id,omitempty"`
	UserID       string `json:"user_id,omitempty"`
	Amount       int64  `json:"amount,omitempty"`
	Month        string `json:"month,omitempty"`
	Reason       string `json:"reason,omitempty"`
}

// Notification is the payload of TypeNotificationRequested.
type Notification struct {
	UserID    string            `json:"user_id"`
	Template  string            `json:"template"`
	Params    map[string]string `json:"params,omitempty"`
	Reference string            `json:"reference,omitempty"`
}
