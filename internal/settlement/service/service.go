// Package service computes monthly settlements for party leaders and pays
// them out through the bank gateway.
package service

import (
	"context"
	"errors"
	"log/slog"
	"strconv"
	"time"

	accountmodels "moa/internal/account/models"
	depositmodels "moa/internal/deposit/models"
	"moa/internal/gateway"
	"moa/internal/notification"
	"moa/internal/outbox"
	partymodels "moa/internal/party/models"
	paymentmodels "moa/internal/payment/models"
	"moa/internal/platform/logger"
	"moa/internal/platform/metrics"
	"moa/internal/settlement/models"
	"moa/pkg/domain"
	dErrors "moa/pkg/domain-errors"
	"moa/pkg/platform/sentinel"
	txcontext "moa/pkg/platform/tx"
)

type SettlementStore interface {
	Create(ctx context.Context, st *models.Settlement) error
	FindByID(ctx context.Context, id domain.SettlementID) (*models.Settlement, error)
	FindByPartyMonth(ctx context.Context, partyID domain.PartyID, month domain.Month) (*models.Settlement, error)
	ListDetails(ctx context.Context, id domain.SettlementID) ([]models.Detail, error)
	Claim(ctx context.Context, id domain.SettlementID, now time.Time) error
	MarkCompleted(ctx context.Context, id domain.SettlementID, bankTxID string, now time.Time) error
	MarkFailed(ctx context.Context, id domain.SettlementID, bankTxID, reason string, now time.Time) error
	ListByParty(ctx context.Context, partyID domain.PartyID) ([]*models.Settlement, error)
	ListByStatus(ctx context.Context, statuses []models.Status, limit int) ([]*models.Settlement, error)
}

// PartyDirectory is the read side of the party lifecycle.
type PartyDirectory interface {
	FindParty(ctx context.Context, id domain.PartyID) (*partymodels.Party, error)
	ListSettleable(ctx context.Context, date, closedSince time.Time) ([]*partymodels.Party, error)
}

// PaymentHistory reads collected payments. Settlement never mutates them.
type PaymentHistory interface {
	ListCompletedForMonth(ctx context.Context, partyID domain.PartyID, month domain.Month) ([]*paymentmodels.Payment, error)
}

// DepositHistory reads forfeited deposits. Settlement never mutates them.
type DepositHistory interface {
	ListForfeitedBetween(ctx context.Context, partyID domain.PartyID, from, until time.Time) ([]*depositmodels.Deposit, error)
}

// PayoutAccounts resolves a leader's verified bank account.
type PayoutAccounts interface {
	FindVerified(ctx context.Context, userID domain.UserID) (*accountmodels.PayoutAccount, error)
}

const defaultBatchSize = 200

// Service owns settlements.
type Service struct {
	settlements SettlementStore
	parties     PartyDirectory
	payments    PaymentHistory
	deposits    DepositHistory
	accounts    PayoutAccounts
	bank        gateway.BankGateway
	tx          txcontext.Runner
	events      outbox.Appender
	notifier    notification.Notifier
	logger      *slog.Logger
	metrics     *metrics.Metrics
	now         func() time.Time
	location    *time.Location
	commission  int64
	batchSize   int
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

// WithLocation sets the zone billing windows are cut in.
func WithLocation(loc *time.Location) Option {
	return func(s *Service) { s.location = loc }
}

// WithCommissionBasisPoints sets the platform share of collected payments in
// parts per 10,000.
func WithCommissionBasisPoints(bp int64) Option {
	return func(s *Service) { s.commission = bp }
}

func WithBatchSize(n int) Option {
	return func(s *Service) {
		if n > 0 {
			s.batchSize = n
		}
	}
}

func New(
	settlements SettlementStore,
	parties PartyDirectory,
	payments PaymentHistory,
	deposits DepositHistory,
	accounts PayoutAccounts,
	bank gateway.BankGateway,
	runner txcontext.Runner,
	events outbox.Appender,
	opts ...Option,
) *Service {
	s := &Service{
		settlements: settlements,
		parties:     parties,
		payments:    payments,
		deposits:    deposits,
		accounts:    accounts,
		bank:        bank,
		tx:          runner,
		events:      events,
		notifier:    notification.Nop{},
		logger:      logger.Discard(),
		now:         time.Now,
		location:    time.UTC,
		commission:  models.DefaultCommissionBasisPoints,
		batchSize:   defaultBatchSize,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// CreateMonthlySettlement totals the billing cycle of the party that begins
// in month: COMPLETED payments whose target month is month, and FORFEITED
// deposits inside the window. The first cycle also takes deposits forfeited
// before the party started. Commission is charged on payments only. It
// returns nil when the cycle has nothing to settle.
func (s *Service) CreateMonthlySettlement(ctx context.Context, partyID domain.PartyID, month domain.Month) (*models.Settlement, error) {
	p, err := s.parties.FindParty(ctx, partyID)
	if err != nil {
		return nil, err
	}
	if _, err := s.settlements.FindByPartyMonth(ctx, partyID, month); err == nil {
		return nil, dErrors.Newf(dErrors.CodeDuplicateSettle, "party already settled for %s", month)
	} else if !errors.Is(err, sentinel.ErrNotFound) {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to check existing settlement")
	}

	window := domain.CycleWindow(p.StartDay(), month)
	from, until := window.Bounds(s.location)
	if month == p.FirstCycleMonth(p.StartDate) && p.CreatedAt.Before(from) {
		from = p.CreatedAt
	}
	payments, err := s.payments.ListCompletedForMonth(ctx, partyID, month)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to list completed payments")
	}
	forfeited, err := s.deposits.ListForfeitedBetween(ctx, partyID, from, until)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to list forfeited deposits")
	}

	contributions := make([]models.Contribution, 0, len(payments))
	for _, pay := range payments {
		contributions = append(contributions, models.Contribution{
			PaymentID:    pay.ID,
			MembershipID: pay.MembershipID,
			Amount:       pay.Amount,
		})
	}
	forfeitures := make([]int64, 0, len(forfeited))
	for _, d := range forfeited {
		forfeitures = append(forfeitures, d.Amount)
	}
	totals := models.Aggregate(contributions, forfeitures, s.commission)
	if totals.IsEmpty() {
		s.logger.DebugContext(ctx, "nothing to settle", "party_id", partyID.String(), "month", month.String())
		return nil, nil
	}

	st, err := models.NewSettlement(partyID, p.LeaderID, month, window, contributions, totals, s.now())
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "invalid settlement")
	}
	err = s.tx.RunInTx(ctx, func(ctx context.Context) error {
		return s.settlements.Create(ctx, st)
	})
	if errors.Is(err, sentinel.ErrConflict) {
		return nil, dErrors.Newf(dErrors.CodeDuplicateSettle, "party already settled for %s", month)
	}
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to create settlement")
	}

	s.metrics.IncSettlement("created")
	s.logger.InfoContext(ctx, "settlement created",
		"settlement_id", st.ID.String(),
		"party_id", partyID.String(),
		"month", month.String(),
		"total", st.TotalAmount,
		"commission", st.CommissionAmount,
		"net", st.NetAmount,
		"payments", len(payments),
		"forfeitures", len(forfeited),
	)
	return st, nil
}

// GetSettlement returns the settlement with its details.
func (s *Service) GetSettlement(ctx context.Context, id domain.SettlementID) (*models.Settlement, error) {
	st, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	details, err := s.settlements.ListDetails(ctx, id)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to list settlement details")
	}
	st.Details = details
	return st, nil
}

// ListByParty returns the party's settlements, newest month first.
func (s *Service) ListByParty(ctx context.Context, partyID domain.PartyID) ([]*models.Settlement, error) {
	out, err := s.settlements.ListByParty(ctx, partyID)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to list settlements")
	}
	return out, nil
}

func (s *Service) load(ctx context.Context, id domain.SettlementID) (*models.Settlement, error) {
	st, err := s.settlements.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, dErrors.New(dErrors.CodeNotFound, "settlement not found")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load settlement")
	}
	return st, nil
}

func (s *Service) appendEvent(ctx context.Context, eventType string, st *models.Settlement, reason string) error {
	evt, err := outbox.New(outbox.AggregateSettlement, st.ID.String(), eventType, outbox.LedgerChange{
		PartyID: st.PartyID.String(),
		UserID:  st.LeaderID.String(),
		Amount:  st.NetAmount,
		Month:   st.Month.String(),
		Reason:  reason,
	}, s.now())
	if err != nil {
		return err
	}
	return s.events.Append(ctx, evt)
}

func settlementParams(st *models.Settlement) map[string]string {
	return map[string]string{
		"party_id":   st.PartyID.String(),
		"month":      st.Month.String(),
		"net_amount": strconv.FormatInt(st.NetAmount, 10),
	}
}
