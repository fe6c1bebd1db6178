// Package service owns the deposit ledger: opening and confirming deposits,
// refunds, forfeitures and the retry records that reconcile gateway side
// effects the ledger has not caught up with.
package service

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"moa/internal/deposit/models"
	"moa/internal/gateway"
	"moa/internal/notification"
	"moa/internal/outbox"
	"moa/internal/platform/logger"
	"moa/internal/platform/metrics"
	"moa/pkg/domain"
	dErrors "moa/pkg/domain-errors"
	"moa/pkg/platform/sentinel"
	txcontext "moa/pkg/platform/tx"
)

type DepositStore interface {
	Create(ctx context.Context, d *models.Deposit) error
	FindByID(ctx context.Context, id domain.DepositID) (*models.Deposit, error)
	FindByMembership(ctx context.Context, membershipID domain.MembershipID) (*models.Deposit, error)
	MarkPaid(ctx context.Context, id domain.DepositID, gatewayRef string, now time.Time) error
	MarkRefunded(ctx context.Context, id domain.DepositID, reason string, now time.Time) error
	MarkForfeited(ctx context.Context, id domain.DepositID, reason string, now time.Time) error
	DeletePending(ctx context.Context, id domain.DepositID) error
	ListByParty(ctx context.Context, partyID domain.PartyID) ([]*models.Deposit, error)
	ListPaidByParty(ctx context.Context, partyID domain.PartyID) ([]*models.Deposit, error)
}

type RetryStore interface {
	Create(ctx context.Context, r *models.Retry) error
	ListDue(ctx context.Context, dueBefore, staleBefore time.Time, limit int) ([]*models.Retry, error)
	Claim(ctx context.Context, id uuid.UUID, dueBefore, now, staleBefore time.Time) (bool, error)
	Save(ctx context.Context, r *models.Retry) error
	ListByDeposit(ctx context.Context, depositID domain.DepositID) ([]*models.Retry, error)
}

// Reasons recorded on deposits and retry records.
const (
	ReasonVoluntaryLeave = "VOLUNTARY_LEAVE"
	ReasonPaymentFailed  = "PAYMENT_FAILED"
	ReasonPartyClosed    = "PARTY_CLOSED"
	ReasonJoinAborted    = "JOIN_ABORTED"
	ReasonReconciled     = "RECONCILED"

	// Compensation reasons select how a COMPENSATION record is resolved.
	CompensationJoin   = "JOIN_LEDGER_WRITE_FAILED"
	CompensationRefund = "REFUND_LEDGER_WRITE_FAILED"
)

const (
	defaultBatchSize       = 200
	defaultStaleClaimAfter = time.Hour
)

// Service manages deposits.
type Service struct {
	deposits   DepositStore
	retries    RetryStore
	gateway    gateway.PaymentGateway
	tx         txcontext.Runner
	events     outbox.Appender
	notifier   notification.Notifier
	logger     *slog.Logger
	metrics    *metrics.Metrics
	now        func() time.Time
	location   *time.Location
	cutoffDays int
	batchSize  int
	staleAfter time.Duration
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

// WithLocation sets the zone in which "days before the party starts" is
// counted.
func WithLocation(loc *time.Location) Option {
	return func(s *Service) { s.location = loc }
}

func WithRefundCutoffDays(days int) Option {
	return func(s *Service) { s.cutoffDays = days }
}

func WithBatchSize(n int) Option {
	return func(s *Service) { s.batchSize = n }
}

// WithStaleClaimAfter sets how long a claimed retry may stay unfinished
// before another worker may take it over.
func WithStaleClaimAfter(d time.Duration) Option {
	return func(s *Service) { s.staleAfter = d }
}

func New(deposits DepositStore, retries RetryStore, gw gateway.PaymentGateway, runner txcontext.Runner, events outbox.Appender, opts ...Option) *Service {
	s := &Service{
		deposits:   deposits,
		retries:    retries,
		gateway:    gw,
		tx:         runner,
		events:     events,
		notifier:   notification.Nop{},
		logger:     logger.Discard(),
		now:        time.Now,
		location:   time.UTC,
		cutoffDays: models.RefundCutoffDays,
		batchSize:  defaultBatchSize,
		staleAfter: defaultStaleClaimAfter,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// OpenPending records a deposit for a join whose charge has not been
// confirmed yet. It joins the caller's transaction.
func (s *Service) OpenPending(ctx context.Context, req models.OpenRequest) (*models.Deposit, error) {
	d, err := models.NewPending(req, s.now())
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeValidation, "invalid deposit")
	}
	if err := s.deposits.Create(ctx, d); err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to open deposit")
	}
	return d, nil
}

// CreateDeposit records a deposit whose charge the caller already confirmed.
// It joins the caller's transaction.
func (s *Service) CreateDeposit(ctx context.Context, req models.OpenRequest, gatewayRef string) (*models.Deposit, error) {
	d, err := models.NewPaid(req, gatewayRef, s.now())
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeValidation, "invalid deposit")
	}
	if err := s.deposits.Create(ctx, d); err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to record deposit")
	}
	if err := s.appendEvent(ctx, outbox.TypeDepositPaid, d, ""); err != nil {
		return nil, err
	}
	s.metrics.IncDepositTransition(string(models.StatusPaid))
	return d, nil
}

// ConfirmPaid marks a pending deposit PAID once its charge is confirmed. It
// joins the caller's transaction.
func (s *Service) ConfirmPaid(ctx context.Context, id domain.DepositID, gatewayRef string) (*models.Deposit, error) {
	d, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := d.CanMarkPaid(); err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInvalidState, "deposit cannot be confirmed")
	}
	now := s.now()
	if err := s.deposits.MarkPaid(ctx, id, gatewayRef, now); err != nil {
		return nil, s.translateTransition(err, "failed to confirm deposit")
	}
	d.ApplyPaid(gatewayRef, now)
	if err := s.appendEvent(ctx, outbox.TypeDepositPaid, d, ""); err != nil {
		return nil, err
	}
	s.metrics.IncDepositTransition(string(models.StatusPaid))
	return d, nil
}

// Discard deletes a pending deposit whose join was aborted before any money
// moved.
func (s *Service) Discard(ctx context.Context, id domain.DepositID) error {
	if err := s.deposits.DeletePending(ctx, id); err != nil {
		return s.translateTransition(err, "failed to discard deposit")
	}
	return nil
}

func (s *Service) GetDeposit(ctx context.Context, id domain.DepositID) (*models.Deposit, error) {
	return s.load(ctx, id)
}

func (s *Service) FindByMembership(ctx context.Context, membershipID domain.MembershipID) (*models.Deposit, error) {
	d, err := s.deposits.FindByMembership(ctx, membershipID)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, dErrors.New(dErrors.CodeNotFound, "deposit not found")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load deposit")
	}
	return d, nil
}

func (s *Service) ListByParty(ctx context.Context, partyID domain.PartyID) ([]*models.Deposit, error) {
	deposits, err := s.deposits.ListByParty(ctx, partyID)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to list deposits")
	}
	return deposits, nil
}

// ListRetries returns the retry history of a deposit.
func (s *Service) ListRetries(ctx context.Context, id domain.DepositID) ([]*models.Retry, error) {
	retries, err := s.retries.ListByDeposit(ctx, id)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to list deposit retries")
	}
	return retries, nil
}

func (s *Service) load(ctx context.Context, id domain.DepositID) (*models.Deposit, error) {
	d, err := s.deposits.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, dErrors.New(dErrors.CodeNotFound, "deposit not found")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load deposit")
	}
	return d, nil
}

func (s *Service) translateTransition(err error, msg string) error {
	if errors.Is(err, sentinel.ErrInvalidState) {
		return dErrors.Wrap(err, dErrors.CodeInvalidState, "deposit changed concurrently")
	}
	return dErrors.Wrap(err, dErrors.CodeInternal, msg)
}

func (s *Service) appendEvent(ctx context.Context, eventType string, d *models.Deposit, reason string) error {
	evt, err := outbox.New(outbox.AggregateDeposit, d.ID.String(), eventType, outbox.LedgerChange{
		PartyID:      d.PartyID.String(),
		MembershipID: d.MembershipID.String(),
		UserID:       d.UserID.String(),
		Amount:       d.Amount,
		Reason:       reason,
	}, s.now())
	if err != nil {
		return dErrors.Wrap(err, dErrors.CodeInternal, "failed to build deposit event")
	}
	if err := s.events.Append(ctx, evt); err != nil {
		return dErrors.Wrap(err, dErrors.CodeInternal, "failed to record deposit event")
	}
	return nil
}

func (s *Service) today() time.Time {
	return s.now().In(s.location)
}
