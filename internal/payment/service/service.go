// Package service is the payment orchestrator: initial and monthly charges,
// the bounded retry schedule for failed monthly charges, INITIAL payment
// refunds and the billing keys recurring charges are made with.
package service

import (
	"context"
	"errors"
	"log/slog"
	"strconv"
	"time"

	"github.com/google/uuid"

	"moa/internal/gateway"
	"moa/internal/notification"
	"moa/internal/outbox"
	"moa/internal/payment/models"
	"moa/internal/platform/logger"
	"moa/internal/platform/metrics"
	"moa/pkg/domain"
	dErrors "moa/pkg/domain-errors"
	"moa/pkg/platform/sentinel"
	txcontext "moa/pkg/platform/tx"
)

type PaymentStore interface {
	Create(ctx context.Context, p *models.Payment) error
	FindByID(ctx context.Context, id domain.PaymentID) (*models.Payment, error)
	FindByMembershipMonth(ctx context.Context, membershipID domain.MembershipID, month domain.Month) (*models.Payment, error)
	FindInitial(ctx context.Context, membershipID domain.MembershipID) (*models.Payment, error)
	RecordAttempt(ctx context.Context, p *models.Payment, prevAttempts int) error
	MarkRefunded(ctx context.Context, id domain.PaymentID, now time.Time) error
	ListByMembership(ctx context.Context, membershipID domain.MembershipID) ([]*models.Payment, error)
}

type RetryStore interface {
	Create(ctx context.Context, r *models.Retry) error
	ListDue(ctx context.Context, dueBefore time.Time, limit int) ([]*models.Retry, error)
	Claim(ctx context.Context, id uuid.UUID, dueBefore, leaseUntil time.Time) (bool, error)
	ClearSchedule(ctx context.Context, id uuid.UUID) error
	ResolveVoid(ctx context.Context, r *models.Retry) error
	ListByPayment(ctx context.Context, paymentID domain.PaymentID) ([]*models.Retry, error)
}

type BillingKeyStore interface {
	Upsert(ctx context.Context, k *models.BillingKey) error
	FindByUser(ctx context.Context, userID domain.UserID) (*models.BillingKey, error)
}

// EligibilityChecker reports whether a membership should still be charged.
// Retries for memberships that left the party are dropped.
type EligibilityChecker interface {
	IsBillable(ctx context.Context, membershipID domain.MembershipID) (bool, error)
}

const (
	defaultBatchSize  = 500
	defaultClaimLease = 30 * time.Minute
)

// Service orchestrates payments.
type Service struct {
	payments    PaymentStore
	retries     RetryStore
	keys        BillingKeyStore
	gateway     gateway.PaymentGateway
	tx          txcontext.Runner
	events      outbox.Appender
	notifier    notification.Notifier
	eligibility EligibilityChecker
	logger      *slog.Logger
	metrics     *metrics.Metrics
	now         func() time.Time
	location    *time.Location
	batchSize   int
	claimLease  time.Duration
}

type Option func(*Service)

func WithLogger(l *slog.Logger) Option {
	return func(s *Service) { s.logger = l }
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Service) { s.metrics = m }
}

func WithNotifier(n notification.Notifier) Option {
	return func(s *Service) { s.notifier = n }
}

func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

// WithLocation sets the zone whose calendar day bounds a retry run.
func WithLocation(loc *time.Location) Option {
	return func(s *Service) { s.location = loc }
}

func WithBatchSize(n int) Option {
	return func(s *Service) { s.batchSize = n }
}

// WithClaimLease sets how long past the end of the current retry day a
// claimed retry stays hidden from other workers.
func WithClaimLease(d time.Duration) Option {
	return func(s *Service) { s.claimLease = d }
}

// SetEligibilityChecker installs the membership check used before each
// retry. It is set after construction because the party service depends on
// this one.
func (s *Service) SetEligibilityChecker(c EligibilityChecker) {
	s.eligibility = c
}

func New(payments PaymentStore, retries RetryStore, keys BillingKeyStore, gw gateway.PaymentGateway, runner txcontext.Runner, events outbox.Appender, opts ...Option) *Service {
	s := &Service{
		payments:   payments,
		retries:    retries,
		keys:       keys,
		gateway:    gw,
		tx:         runner,
		events:     events,
		notifier:   notification.Nop{},
		logger:     logger.Discard(),
		now:        time.Now,
		location:   time.UTC,
		batchSize:  defaultBatchSize,
		claimLease: defaultClaimLease,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// RecordInitialPayment records the first-month fee captured together with a
// join deposit. It joins the caller's transaction.
func (s *Service) RecordInitialPayment(ctx context.Context, req models.InitialRequest) (*models.Payment, error) {
	p, err := models.NewInitial(req, s.now())
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeValidation, "invalid initial payment")
	}
	if err := s.payments.Create(ctx, p); err != nil {
		if errors.Is(err, sentinel.ErrConflict) {
			return nil, dErrors.Newf(dErrors.CodeDuplicatePayment, "payment for %s already recorded", p.TargetMonth)
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to record initial payment")
	}
	if err := s.appendEvent(ctx, outbox.TypePaymentCompleted, p, ""); err != nil {
		return nil, err
	}
	return p, nil
}

// ProcessMonthlyPayment charges one membership for one month. A payment that
// already exists for the month is returned unchanged without charging again.
func (s *Service) ProcessMonthlyPayment(ctx context.Context, req models.MonthlyRequest) (*models.Payment, error) {
	existing, err := s.payments.FindByMembershipMonth(ctx, req.MembershipID, req.TargetMonth)
	switch {
	case err == nil:
		return existing, nil
	case !errors.Is(err, sentinel.ErrNotFound):
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to check existing payment")
	}

	p, err := models.NewMonthly(req, s.now())
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeValidation, "invalid monthly payment")
	}
	if err := s.payments.Create(ctx, p); err != nil {
		if errors.Is(err, sentinel.ErrConflict) {
			return s.payments.FindByMembershipMonth(ctx, req.MembershipID, req.TargetMonth)
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to open monthly payment")
	}
	return s.execute(ctx, p, 1, uuid.Nil)
}

// RefundPayment cancels the membership's INITIAL payment. It is a no-op when
// there is none or it was already refunded.
func (s *Service) RefundPayment(ctx context.Context, partyID domain.PartyID, membershipID domain.MembershipID, reason string) error {
	p, err := s.payments.FindInitial(ctx, membershipID)
	if errors.Is(err, sentinel.ErrNotFound) {
		return nil
	}
	if err != nil {
		return dErrors.Wrap(err, dErrors.CodeInternal, "failed to load initial payment")
	}
	if p.PartyID != partyID {
		return nil
	}
	if p.Status == models.StatusRefunded {
		return nil
	}
	if err := p.CanRefund(); err != nil {
		return dErrors.Wrap(err, dErrors.CodeInvalidState, "payment cannot be refunded")
	}

	if _, err := s.gateway.CancelPayment(ctx, gateway.CancelRequest{
		PaymentRef: p.GatewayRef,
		Reason:     reason,
		Amount:     p.Amount,
	}); err != nil {
		return dErrors.Wrap(err, dErrors.CodePaymentFailed, "payment refund rejected")
	}

	now := s.now()
	err = s.tx.RunInTx(ctx, func(ctx context.Context) error {
		if err := s.payments.MarkRefunded(ctx, p.ID, now); err != nil {
			return err
		}
		p.ApplyRefund(now)
		return s.appendEvent(ctx, outbox.TypePaymentRefunded, p, reason)
	})
	if err != nil {
		if errors.Is(err, sentinel.ErrInvalidState) {
			return nil
		}
		s.logger.ErrorContext(ctx, "payment refunded at gateway but ledger update failed",
			"payment_id", p.ID.String(),
			"gateway_ref", p.GatewayRef,
			"error", err,
		)
		return dErrors.Wrap(err, dErrors.CodeInternal, "failed to record payment refund")
	}
	return nil
}

// RegisterBillingKey exchanges a card authorization for a reusable credential
// and stores it as the user's billing key.
func (s *Service) RegisterBillingKey(ctx context.Context, userID domain.UserID, authKey string) (*models.BillingKey, error) {
	if userID.IsNil() {
		return nil, dErrors.New(dErrors.CodeValidation, "user id is required")
	}
	if authKey == "" {
		return nil, dErrors.New(dErrors.CodeValidation, "auth key is required")
	}
	cred, err := s.gateway.IssueBillingCredential(ctx, authKey, userID.String())
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodePaymentFailed, "billing key issuance rejected")
	}
	now := s.now()
	k := &models.BillingKey{
		UserID:           userID,
		Credential:       cred.Credential,
		CardCompany:      cred.CardCompany,
		CardNumberMasked: cred.CardNumberMasked,
		CreatedAt:        now,
		UpdatedAt:        now,
	}
	if err := s.keys.Upsert(ctx, k); err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to store billing key")
	}
	return k, nil
}

// ChargeWithBillingKey charges the user's billing key outside the monthly
// cycle. Nothing is recorded; the caller owns the ledger entry.
func (s *Service) ChargeWithBillingKey(ctx context.Context, req models.ChargeRequest) (*gateway.Receipt, error) {
	k, err := s.billingKey(ctx, req.UserID)
	if err != nil {
		return nil, err
	}
	receipt, err := s.gateway.ChargeWithCredential(ctx, gateway.ChargeRequest{
		Credential:  k.Credential,
		OrderID:     req.OrderID,
		Amount:      req.Amount,
		Description: req.Description,
		CustomerID:  req.UserID.String(),
	})
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodePaymentFailed, "charge rejected")
	}
	return receipt, nil
}

// CancelCharge voids a charge made with ChargeWithBillingKey whose ledger
// entry could not be written.
func (s *Service) CancelCharge(ctx context.Context, gatewayRef string, amount int64, reason string) error {
	if _, err := s.gateway.CancelPayment(ctx, gateway.CancelRequest{PaymentRef: gatewayRef, Reason: reason, Amount: amount}); err != nil {
		return dErrors.Wrap(err, dErrors.CodePaymentFailed, "charge cancellation rejected")
	}
	return nil
}

func (s *Service) GetPayment(ctx context.Context, id domain.PaymentID) (*models.Payment, error) {
	p, err := s.payments.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, dErrors.New(dErrors.CodeNotFound, "payment not found")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load payment")
	}
	return p, nil
}

func (s *Service) ListByMembership(ctx context.Context, membershipID domain.MembershipID) ([]*models.Payment, error) {
	payments, err := s.payments.ListByMembership(ctx, membershipID)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to list payments")
	}
	return payments, nil
}

// ListAttempts returns the attempt history of a payment.
func (s *Service) ListAttempts(ctx context.Context, id domain.PaymentID) ([]*models.Retry, error) {
	attempts, err := s.retries.ListByPayment(ctx, id)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to list payment attempts")
	}
	return attempts, nil
}

func (s *Service) billingKey(ctx context.Context, userID domain.UserID) (*models.BillingKey, error) {
	k, err := s.keys.FindByUser(ctx, userID)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, dErrors.New(dErrors.CodeBillingKeyMissing, "no billing key registered")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load billing key")
	}
	return k, nil
}

func (s *Service) appendEvent(ctx context.Context, eventType string, p *models.Payment, reason string) error {
	evt, err := outbox.New(outbox.AggregatePayment, p.ID.String(), eventType, outbox.LedgerChange{
		PartyID:      p.PartyID.String(),
		MembershipID: p.MembershipID.String(),
		UserID:       p.UserID.String(),
		Amount:       p.Amount,
		Month:        p.TargetMonth.String(),
		Reason:       reason,
	}, s.now())
	if err != nil {
		return dErrors.Wrap(err, dErrors.CodeInternal, "failed to build payment event")
	}
	if err := s.events.Append(ctx, evt); err != nil {
		return dErrors.Wrap(err, dErrors.CodeInternal, "failed to record payment event")
	}
	return nil
}

func paymentParams(p *models.Payment) map[string]string {
	return map[string]string{
		"month":  p.TargetMonth.String(),
		"amount": strconv.FormatInt(p.Amount, 10),
	}
}
