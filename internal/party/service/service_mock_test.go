package service_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/suite"
	"go.uber.org/mock/gomock"

	depositmodels "moa/internal/deposit/models"
	"moa/internal/gateway"
	"moa/internal/gateway/sandbox"
	outboxstore "moa/internal/outbox/store"
	"moa/internal/party/models"
	"moa/internal/party/service"
	"moa/internal/party/service/mocks"
	paymentmodels "moa/internal/payment/models"
	"moa/pkg/domain"
	dErrors "moa/pkg/domain-errors"
	"moa/pkg/platform/sentinel"
	txcontext "moa/pkg/platform/tx"
)

// PartyFailureSuite drives failure paths the real collaborators cannot
// produce on demand.
type PartyFailureSuite struct {
	suite.Suite
	ctrl        *gomock.Controller
	parties     *mocks.MockPartyStore
	memberships *mocks.MockMembershipStore
	deposits    *mocks.MockDepositService
	payments    *mocks.MockPaymentService
	svc         *service.Service
	now         time.Time
}

func TestPartyFailureSuite(t *testing.T) {
	suite.Run(t, new(PartyFailureSuite))
}

func (s *PartyFailureSuite) SetupTest() {
	s.ctrl = gomock.NewController(s.T())
	s.parties = mocks.NewMockPartyStore(s.ctrl)
	s.memberships = mocks.NewMockMembershipStore(s.ctrl)
	s.deposits = mocks.NewMockDepositService(s.ctrl)
	s.payments = mocks.NewMockPaymentService(s.ctrl)
	s.now = time.Date(2025, 3, 1, 10, 0, 0, 0, time.UTC)
	s.svc = service.New(s.parties, s.memberships, s.deposits, s.payments, sandbox.NewPayments(),
		txcontext.LocalRunner{}, outboxstore.NewInMemory(),
		service.WithClock(func() time.Time { return s.now }),
	)
}

func (s *PartyFailureSuite) TearDownTest() {
	s.ctrl.Finish()
}

func (s *PartyFailureSuite) party(status models.PartyStatus) *models.Party {
	return &models.Party{
		ID:             domain.NewPartyID(),
		LeaderID:       domain.UserID(uuid.New()),
		ProductID:      "netflix-premium",
		Status:         status,
		MaxMembers:     4,
		CurrentMembers: 2,
		MonthlyFee:     monthlyFee,
		StartDate:      time.Date(2025, 3, 10, 0, 0, 0, 0, time.UTC),
		CreatedAt:      s.now,
		UpdatedAt:      s.now,
	}
}

func (s *PartyFailureSuite) TestLeaveParty_ReturnsResultWhenPaymentRefundFails() {
	p := s.party(models.PartyStatusRecruiting)
	depositID := domain.NewDepositID()
	m := models.NewMemberMembership(p.ID, domain.UserID(uuid.New()), s.now)
	m.ApplyActivation(depositID)
	released := *p
	released.CurrentMembers = 1

	s.parties.EXPECT().FindByID(gomock.Any(), p.ID).Return(p, nil)
	s.memberships.EXPECT().FindOpen(gomock.Any(), p.ID, m.UserID).Return(m, nil)
	s.memberships.EXPECT().Withdraw(gomock.Any(), m.ID, models.WithdrawReasonVoluntary, s.now).Return(nil)
	s.parties.EXPECT().ReleaseSeat(gomock.Any(), p.ID, s.now).Return(&released, nil)
	s.deposits.EXPECT().ProcessWithdrawalRefund(gomock.Any(), depositID, p.StartDate).Return(depositmodels.DispositionRefunded, nil)
	refundErr := dErrors.New(dErrors.CodePaymentFailed, "refund rejected")
	s.payments.EXPECT().RefundPayment(gomock.Any(), p.ID, m.ID, service.ReasonVoluntaryLeave).Return(refundErr)

	res, err := s.svc.LeaveParty(context.Background(), p.ID, m.UserID)
	s.ErrorIs(err, refundErr)
	s.Require().NotNil(res, "the withdrawal stands even though a refund failed")
	s.Equal(models.DepositRefunded, res.Deposit)
	s.False(res.InitialRefunded)
	s.Equal(models.MembershipStatusWithdrawn, res.Membership.Status)
}

func (s *PartyFailureSuite) TestActivateLeaderDeposit_CancelsChargeWhenLedgerWriteFails() {
	p := s.party(models.PartyStatusPendingPayment)
	p.CurrentMembers = 1
	leader := models.NewLeaderMembership(p.ID, p.LeaderID, s.now)
	receipt := &gateway.Receipt{PaymentRef: "pay_leader", OrderID: "moa-deposit-" + leader.ID.String(), Amount: monthlyFee}

	s.parties.EXPECT().FindByID(gomock.Any(), p.ID).Return(p, nil)
	s.memberships.EXPECT().FindOpen(gomock.Any(), p.ID, p.LeaderID).Return(leader, nil)
	s.payments.EXPECT().ChargeWithBillingKey(gomock.Any(), gomock.AssignableToTypeOf(paymentmodels.ChargeRequest{})).Return(receipt, nil)
	s.deposits.EXPECT().CreateDeposit(gomock.Any(), gomock.Any(), "pay_leader").Return(nil, errors.New("connection reset"))
	s.payments.EXPECT().CancelCharge(gomock.Any(), "pay_leader", int64(monthlyFee), gomock.Any()).Return(nil)

	_, err := s.svc.ActivateLeaderDeposit(context.Background(), p.ID, p.LeaderID)
	s.True(dErrors.HasCode(err, dErrors.CodeInternal))
}

func (s *PartyFailureSuite) TestJoinParty_CompensatesWhenLedgerWriteFails() {
	p := s.party(models.PartyStatusRecruiting)
	userID := domain.UserID(uuid.New())
	reserved := *p
	reserved.CurrentMembers = 3
	pending := &depositmodels.Deposit{ID: domain.NewDepositID(), PartyID: p.ID, UserID: userID, Amount: monthlyFee, Status: depositmodels.StatusPending}
	writeErr := errors.New("connection reset")

	s.parties.EXPECT().FindByID(gomock.Any(), p.ID).Return(p, nil)
	s.memberships.EXPECT().FindOpen(gomock.Any(), p.ID, userID).Return(nil, sentinel.ErrNotFound)
	s.parties.EXPECT().ReserveSeat(gomock.Any(), p.ID, s.now).Return(&reserved, nil)
	s.memberships.EXPECT().Create(gomock.Any(), gomock.Any()).Return(nil)
	s.deposits.EXPECT().OpenPending(gomock.Any(), gomock.Any()).Return(pending, nil)
	s.parties.EXPECT().FindByIDForUpdate(gomock.Any(), p.ID).Return(&reserved, nil)
	s.deposits.EXPECT().ConfirmPaid(gomock.Any(), pending.ID, "pk_join").Return(nil, writeErr)
	s.deposits.EXPECT().RecordCompensation(gomock.Any(), pending.ID, "pk_join", p.JoinAmount(), writeErr).Return(nil)

	_, err := s.svc.JoinParty(context.Background(), models.JoinRequest{
		PartyID:    p.ID,
		UserID:     userID,
		PaymentRef: "pk_join",
		OrderID:    "ord_join",
		Amount:     p.JoinAmount(),
	})
	s.True(dErrors.HasCode(err, dErrors.CodeInternal))
}

func (s *PartyFailureSuite) TestJoinParty_LocksPartyBeforeCountingSeats() {
	p := s.party(models.PartyStatusRecruiting)
	p.CurrentMembers = 3
	userID := domain.UserID(uuid.New())
	reserved := *p
	reserved.CurrentMembers = 4
	pending := &depositmodels.Deposit{ID: domain.NewDepositID(), PartyID: p.ID, UserID: userID, Amount: monthlyFee, Status: depositmodels.StatusPending}

	s.parties.EXPECT().FindByID(gomock.Any(), p.ID).Return(p, nil)
	s.memberships.EXPECT().FindOpen(gomock.Any(), p.ID, userID).Return(nil, sentinel.ErrNotFound)
	s.parties.EXPECT().ReserveSeat(gomock.Any(), p.ID, s.now).Return(&reserved, nil)
	s.memberships.EXPECT().Create(gomock.Any(), gomock.Any()).Return(nil)
	s.deposits.EXPECT().OpenPending(gomock.Any(), gomock.Any()).Return(pending, nil)
	gomock.InOrder(
		s.parties.EXPECT().FindByIDForUpdate(gomock.Any(), p.ID).Return(&reserved, nil),
		s.deposits.EXPECT().ConfirmPaid(gomock.Any(), pending.ID, "pk_last").Return(pending, nil),
		s.payments.EXPECT().RecordInitialPayment(gomock.Any(), gomock.Any()).Return(&paymentmodels.Payment{}, nil),
		s.memberships.EXPECT().Activate(gomock.Any(), gomock.Any(), pending.ID).Return(nil),
		s.memberships.EXPECT().CountActive(gomock.Any(), p.ID).Return(4, nil),
		s.parties.EXPECT().UpdateStatus(gomock.Any(), p.ID, models.PartyStatusRecruiting, models.PartyStatusActive, s.now).Return(nil),
	)
	s.memberships.EXPECT().ListActive(gomock.Any(), p.ID).Return(nil, nil)

	m, err := s.svc.JoinParty(context.Background(), models.JoinRequest{
		PartyID:    p.ID,
		UserID:     userID,
		PaymentRef: "pk_last",
		OrderID:    "ord_last",
		Amount:     p.JoinAmount(),
	})
	s.Require().NoError(err)
	s.Equal(models.MembershipStatusActive, m.Status)
}

func (s *PartyFailureSuite) TestJoinParty_CompensatesWhenPartyStartedClosing() {
	p := s.party(models.PartyStatusRecruiting)
	userID := domain.UserID(uuid.New())
	reserved := *p
	reserved.CurrentMembers = 3
	closing := reserved
	closing.Status = models.PartyStatusClosing
	pending := &depositmodels.Deposit{ID: domain.NewDepositID(), PartyID: p.ID, UserID: userID, Amount: monthlyFee, Status: depositmodels.StatusPending}

	s.parties.EXPECT().FindByID(gomock.Any(), p.ID).Return(p, nil)
	s.memberships.EXPECT().FindOpen(gomock.Any(), p.ID, userID).Return(nil, sentinel.ErrNotFound)
	s.parties.EXPECT().ReserveSeat(gomock.Any(), p.ID, s.now).Return(&reserved, nil)
	s.memberships.EXPECT().Create(gomock.Any(), gomock.Any()).Return(nil)
	s.deposits.EXPECT().OpenPending(gomock.Any(), gomock.Any()).Return(pending, nil)
	s.parties.EXPECT().FindByIDForUpdate(gomock.Any(), p.ID).Return(&closing, nil)
	s.deposits.EXPECT().RecordCompensation(gomock.Any(), pending.ID, "pk_late", p.JoinAmount(), gomock.Any()).Return(nil)

	_, err := s.svc.JoinParty(context.Background(), models.JoinRequest{
		PartyID:    p.ID,
		UserID:     userID,
		PaymentRef: "pk_late",
		OrderID:    "ord_late",
		Amount:     p.JoinAmount(),
	})
	s.True(dErrors.HasCode(err, dErrors.CodeInvalidState))
}

func (s *PartyFailureSuite) TestCloseParty_AbortsWhenDepositPaidDuringClosure() {
	p := s.party(models.PartyStatusActive)
	closing := *p
	closing.Status = models.PartyStatusClosing

	s.parties.EXPECT().FindByID(gomock.Any(), p.ID).Return(p, nil)
	gomock.InOrder(
		s.parties.EXPECT().MarkClosing(gomock.Any(), p.ID, s.now).Return(nil),
		s.deposits.EXPECT().ResolveForClosure(gomock.Any(), p.ID).Return(0, nil),
		s.parties.EXPECT().FindByIDForUpdate(gomock.Any(), p.ID).Return(&closing, nil),
		s.deposits.EXPECT().CountPaid(gomock.Any(), p.ID).Return(1, nil),
	)

	_, err := s.svc.CloseParty(context.Background(), p.ID, p.LeaderID)
	s.True(dErrors.HasCode(err, dErrors.CodeInvalidState))
}
