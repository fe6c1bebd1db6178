// Package service is the party state machine. It owns parties and
// memberships and drives the deposit and payment services through every
// lifecycle transition.
package service

import (
	"context"
	"errors"
	"log/slog"
	"time"

	depositmodels "moa/internal/deposit/models"
	"moa/internal/gateway"
	"moa/internal/notification"
	"moa/internal/outbox"
	"moa/internal/party/models"
	paymentmodels "moa/internal/payment/models"
	"moa/internal/platform/logger"
	"moa/internal/platform/metrics"
	"moa/pkg/domain"
	dErrors "moa/pkg/domain-errors"
	"moa/pkg/platform/sentinel"
	txcontext "moa/pkg/platform/tx"
)

type PartyStore interface {
	Create(ctx context.Context, p *models.Party) error
	FindByID(ctx context.Context, id domain.PartyID) (*models.Party, error)
	FindByIDForUpdate(ctx context.Context, id domain.PartyID) (*models.Party, error)
	UpdateStatus(ctx context.Context, id domain.PartyID, from, to models.PartyStatus, now time.Time) error
	ReserveSeat(ctx context.Context, id domain.PartyID, now time.Time) (*models.Party, error)
	ReleaseSeat(ctx context.Context, id domain.PartyID, now time.Time) (*models.Party, error)
	MarkClosing(ctx context.Context, id domain.PartyID, now time.Time) error
	ListPendingPaymentBefore(ctx context.Context, cutoff time.Time) ([]*models.Party, error)
	ListBillingDue(ctx context.Context, date time.Time) ([]*models.Party, error)
	ListExpired(ctx context.Context, date time.Time) ([]*models.Party, error)
	ListSettleable(ctx context.Context, date, closedSince time.Time) ([]*models.Party, error)
}

type MembershipStore interface {
	Create(ctx context.Context, m *models.Membership) error
	FindByID(ctx context.Context, id domain.MembershipID) (*models.Membership, error)
	FindOpen(ctx context.Context, partyID domain.PartyID, userID domain.UserID) (*models.Membership, error)
	ListByParty(ctx context.Context, partyID domain.PartyID) ([]*models.Membership, error)
	ListActive(ctx context.Context, partyID domain.PartyID) ([]*models.Membership, error)
	CountActive(ctx context.Context, partyID domain.PartyID) (int, error)
	Activate(ctx context.Context, id domain.MembershipID, depositID domain.DepositID) error
	Withdraw(ctx context.Context, id domain.MembershipID, reason string, now time.Time) error
	DeletePending(ctx context.Context, id domain.MembershipID) error
}

// DepositService is the deposit ledger as seen by the party lifecycle.
type DepositService interface {
	OpenPending(ctx context.Context, req depositmodels.OpenRequest) (*depositmodels.Deposit, error)
	ConfirmPaid(ctx context.Context, id domain.DepositID, gatewayRef string) (*depositmodels.Deposit, error)
	CreateDeposit(ctx context.Context, req depositmodels.OpenRequest, gatewayRef string) (*depositmodels.Deposit, error)
	Discard(ctx context.Context, id domain.DepositID) error
	ProcessWithdrawalRefund(ctx context.Context, id domain.DepositID, partyStart time.Time) (depositmodels.Disposition, error)
	ForfeitForMembership(ctx context.Context, membershipID domain.MembershipID, reason string) (*depositmodels.Deposit, error)
	ResolveForClosure(ctx context.Context, partyID domain.PartyID) (int, error)
	CountPaid(ctx context.Context, partyID domain.PartyID) (int, error)
	RecordCompensation(ctx context.Context, id domain.DepositID, gatewayRef string, amount int64, cause error) error
}

// PaymentService is the payment orchestrator as seen by the party lifecycle.
type PaymentService interface {
	RecordInitialPayment(ctx context.Context, req paymentmodels.InitialRequest) (*paymentmodels.Payment, error)
	RefundPayment(ctx context.Context, partyID domain.PartyID, membershipID domain.MembershipID, reason string) error
	ChargeWithBillingKey(ctx context.Context, req paymentmodels.ChargeRequest) (*gateway.Receipt, error)
	CancelCharge(ctx context.Context, gatewayRef string, amount int64, reason string) error
}

// Reasons recorded on deposits, payments and events.
const (
	ReasonVoluntaryLeave = "VOLUNTARY_LEAVE"
	ReasonPaymentFailed  = "PAYMENT_FAILED"
	ReasonPaymentTimeout = "PAYMENT_TIMEOUT"
	ReasonPartyExpired   = "PARTY_EXPIRED"
	ReasonLeaderClosed   = "LEADER_CLOSED"
)

const defaultPendingTimeout = 30 * time.Minute

// Service runs the party state machine.
type Service struct {
	parties        PartyStore
	memberships    MembershipStore
	deposits       DepositService
	payments       PaymentService
	gateway        gateway.PaymentGateway
	tx             txcontext.Runner
	events         outbox.Appender
	notifier       notification.Notifier
	logger         *slog.Logger
	metrics        *metrics.Metrics
	now            func() time.Time
	location       *time.Location
	pendingTimeout time.Duration
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

// WithLocation sets the zone party dates are interpreted in.
func WithLocation(loc *time.Location) Option {
	return func(s *Service) { s.location = loc }
}

// WithPendingTimeout sets how long a party may wait for the leader deposit
// before the timeout sweep cancels it.
func WithPendingTimeout(d time.Duration) Option {
	return func(s *Service) { s.pendingTimeout = d }
}

func New(
	parties PartyStore,
	memberships MembershipStore,
	deposits DepositService,
	payments PaymentService,
	gw gateway.PaymentGateway,
	runner txcontext.Runner,
	events outbox.Appender,
	opts ...Option,
) *Service {
	s := &Service{
		parties:        parties,
		memberships:    memberships,
		deposits:       deposits,
		payments:       payments,
		gateway:        gw,
		tx:             runner,
		events:         events,
		notifier:       notification.Nop{},
		logger:         logger.Discard(),
		now:            time.Now,
		location:       time.UTC,
		pendingTimeout: defaultPendingTimeout,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// CreateParty opens a party awaiting the leader's deposit. The leader holds
// the first seat from the start.
func (s *Service) CreateParty(ctx context.Context, leaderID domain.UserID, req *models.CreatePartyRequest) (*models.Party, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}
	now := s.now()
	p, err := models.NewParty(domain.NewPartyID(), leaderID, *req, now)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeValidation, "invalid party")
	}
	leader := models.NewLeaderMembership(p.ID, leaderID, now)

	err = s.tx.RunInTx(ctx, func(ctx context.Context) error {
		if err := s.parties.Create(ctx, p); err != nil {
			return err
		}
		return s.memberships.Create(ctx, leader)
	})
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to create party")
	}
	s.metrics.IncPartyCreated()
	s.logger.InfoContext(ctx, "party created",
		"party_id", p.ID.String(),
		"leader_id", leaderID.String(),
		"max_members", p.MaxMembers,
	)
	return p, nil
}

// ActivateLeaderDeposit charges the leader's deposit with their billing key
// and opens the party for recruiting.
func (s *Service) ActivateLeaderDeposit(ctx context.Context, partyID domain.PartyID, leaderID domain.UserID) (*models.Party, error) {
	p, err := s.loadParty(ctx, partyID)
	if err != nil {
		return nil, err
	}
	if !p.IsLeader(leaderID) {
		return nil, dErrors.New(dErrors.CodeNotLeader, "only the leader can pay the leader deposit")
	}
	if err := p.CanActivate(); err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInvalidState, "party cannot be activated")
	}
	leader, err := s.memberships.FindOpen(ctx, partyID, leaderID)
	if err != nil {
		return nil, s.translateMembership(err)
	}

	amount := p.DepositAmount()
	receipt, err := s.payments.ChargeWithBillingKey(ctx, paymentmodels.ChargeRequest{
		UserID:      leaderID,
		Amount:      amount,
		OrderID:     "moa-deposit-" + leader.ID.String(),
		Description: "party leader deposit",
	})
	if err != nil {
		return nil, err
	}

	now := s.now()
	err = s.tx.RunInTx(ctx, func(ctx context.Context) error {
		d, err := s.deposits.CreateDeposit(ctx, depositmodels.OpenRequest{
			PartyID:      p.ID,
			MembershipID: leader.ID,
			UserID:       leaderID,
			Amount:       amount,
			OrderID:      receipt.OrderID,
		}, receipt.PaymentRef)
		if err != nil {
			return err
		}
		if err := s.memberships.Activate(ctx, leader.ID, d.ID); err != nil {
			return err
		}
		return s.parties.UpdateStatus(ctx, p.ID, models.PartyStatusPendingPayment, models.PartyStatusRecruiting, now)
	})
	if err != nil {
		if cancelErr := s.payments.CancelCharge(ctx, receipt.PaymentRef, amount, "leader deposit ledger write failed"); cancelErr != nil {
			s.logger.ErrorContext(ctx, "leader deposit charged but neither recorded nor cancelled",
				"party_id", p.ID.String(),
				"gateway_ref", receipt.PaymentRef,
				"error", cancelErr,
			)
		}
		return nil, s.translate(err, "failed to activate party")
	}
	p.ApplyActivation(now)
	s.logger.InfoContext(ctx, "party recruiting", "party_id", p.ID.String())
	return p, nil
}

// GetParty returns a party with all its memberships.
func (s *Service) GetParty(ctx context.Context, id domain.PartyID) (*models.PartyDetails, error) {
	p, err := s.loadParty(ctx, id)
	if err != nil {
		return nil, err
	}
	members, err := s.memberships.ListByParty(ctx, id)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to list members")
	}
	return &models.PartyDetails{Party: p, Members: members}, nil
}

// FindParty returns the party alone.
func (s *Service) FindParty(ctx context.Context, id domain.PartyID) (*models.Party, error) {
	return s.loadParty(ctx, id)
}

func (s *Service) ListMembers(ctx context.Context, partyID domain.PartyID) ([]*models.Membership, error) {
	if _, err := s.loadParty(ctx, partyID); err != nil {
		return nil, err
	}
	members, err := s.memberships.ListByParty(ctx, partyID)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to list members")
	}
	return members, nil
}

// ListBillingTargets returns every ACTIVE non-leader membership of the
// parties whose billing day is date.
func (s *Service) ListBillingTargets(ctx context.Context, date time.Time) ([]models.BillingTarget, error) {
	date = domain.DateOf(date.In(s.location))
	parties, err := s.parties.ListBillingDue(ctx, date)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to list parties due for billing")
	}
	month := domain.MonthOf(date)
	var targets []models.BillingTarget
	for _, p := range parties {
		active, err := s.memberships.ListActive(ctx, p.ID)
		if err != nil {
			return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to list active members")
		}
		for _, m := range active {
			if m.IsLeader() {
				continue
			}
			targets = append(targets, models.BillingTarget{
				PartyID:      p.ID,
				MembershipID: m.ID,
				UserID:       m.UserID,
				Amount:       p.MonthlyFee,
				Month:        month,
			})
		}
	}
	return targets, nil
}

// IsBillable reports whether a membership is still ACTIVE in a running party.
func (s *Service) IsBillable(ctx context.Context, membershipID domain.MembershipID) (bool, error) {
	m, err := s.memberships.FindByID(ctx, membershipID)
	if errors.Is(err, sentinel.ErrNotFound) {
		return false, nil
	}
	if err != nil {
		return false, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load membership")
	}
	if !m.IsActive() {
		return false, nil
	}
	p, err := s.parties.FindByID(ctx, m.PartyID)
	if err != nil {
		return false, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load party")
	}
	return p.Status.IsRunning(), nil
}

// ListSettleable returns the parties that may have proceeds to settle on
// date: started, and open or closed on or after closedSince.
func (s *Service) ListSettleable(ctx context.Context, date, closedSince time.Time) ([]*models.Party, error) {
	parties, err := s.parties.ListSettleable(ctx, domain.DateOf(date.In(s.location)), closedSince)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to list settleable parties")
	}
	return parties, nil
}

func (s *Service) loadParty(ctx context.Context, id domain.PartyID) (*models.Party, error) {
	p, err := s.parties.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, dErrors.New(dErrors.CodeNotFound, "party not found")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load party")
	}
	return p, nil
}

func (s *Service) translateMembership(err error) error {
	if errors.Is(err, sentinel.ErrNotFound) {
		return dErrors.New(dErrors.CodeNotFound, "membership not found")
	}
	return dErrors.Wrap(err, dErrors.CodeInternal, "failed to load membership")
}

// translate maps store sentinels escaping a unit of work; coded errors from
// the deposit and payment services pass through.
func (s *Service) translate(err error, msg string) error {
	var dErr *dErrors.Error
	switch {
	case errors.Is(err, sentinel.ErrCapacity):
		return dErrors.New(dErrors.CodePartyFull, "party is full")
	case errors.Is(err, sentinel.ErrInvalidState):
		return dErrors.Wrap(err, dErrors.CodeInvalidState, "party changed concurrently")
	case errors.Is(err, sentinel.ErrConflict):
		return dErrors.Wrap(err, dErrors.CodeConflict, "membership already exists")
	case errors.As(err, &dErr):
		return err
	default:
		return dErrors.Wrap(err, dErrors.CodeInternal, msg)
	}
}

func (s *Service) appendEvent(ctx context.Context, eventType string, p *models.Party, m *models.Membership, reason string) error {
	payload := outbox.LedgerChange{PartyID: p.ID.String(), Reason: reason}
	if m != nil {
		payload.MembershipID = m.ID.String()
		payload.UserID = m.UserID.String()
	}
	evt, err := outbox.New(outbox.AggregateParty, p.ID.String(), eventType, payload, s.now())
	if err != nil {
		return err
	}
	return s.events.Append(ctx, evt)
}

func (s *Service) today() time.Time {
	return domain.DateOf(s.now().In(s.location))
}

func memberIDs(members []*models.Membership) []domain.UserID {
	ids := make([]domain.UserID, 0, len(members))
	for _, m := range members {
		ids = append(ids, m.UserID)
	}
	return ids
}
