package service_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/suite"

	"moa/internal/deposit/models"
	"moa/internal/deposit/service"
	depositstore "moa/internal/deposit/store/deposit"
	retrystore "moa/internal/deposit/store/retry"
	"moa/internal/gateway"
	"moa/internal/gateway/sandbox"
	"moa/internal/outbox"
	outboxstore "moa/internal/outbox/store"
	"moa/pkg/domain"
	dErrors "moa/pkg/domain-errors"
	txcontext "moa/pkg/platform/tx"
)

type DepositServiceSuite struct {
	suite.Suite
	ctx      context.Context
	deposits *depositstore.InMemoryStore
	retries  *retrystore.InMemoryStore
	events   *outboxstore.InMemoryStore
	gw       *sandbox.Payments
	now      time.Time
	svc      *service.Service
	partyID  domain.PartyID
}

func TestDepositServiceSuite(t *testing.T) {
	suite.Run(t, new(DepositServiceSuite))
}

func (s *DepositServiceSuite) SetupTest() {
	s.ctx = context.Background()
	s.deposits = depositstore.NewInMemory()
	s.retries = retrystore.NewInMemory()
	s.events = outboxstore.NewInMemory()
	s.gw = sandbox.NewPayments()
	s.now = time.Date(2025, 3, 1, 10, 0, 0, 0, time.UTC)
	s.partyID = domain.NewPartyID()
	s.svc = service.New(s.deposits, s.retries, s.gw, txcontext.LocalRunner{}, s.events,
		service.WithClock(func() time.Time { return s.now }),
	)
}

func (s *DepositServiceSuite) openRequest() models.OpenRequest {
	return models.OpenRequest{
		PartyID:      s.partyID,
		MembershipID: domain.NewMembershipID(),
		UserID:       domain.UserID(uuid.New()),
		Amount:       13000,
		OrderID:      "ord_" + domain.NewPaymentID().String(),
	}
}

func (s *DepositServiceSuite) paidDeposit() *models.Deposit {
	d, err := s.svc.CreateDeposit(s.ctx, s.openRequest(), "pay_"+domain.NewPaymentID().String())
	s.Require().NoError(err)
	return d
}

func (s *DepositServiceSuite) reload(id domain.DepositID) *models.Deposit {
	d, err := s.deposits.FindByID(s.ctx, id)
	s.Require().NoError(err)
	return d
}

func (s *DepositServiceSuite) retriesFor(id domain.DepositID) []*models.Retry {
	retries, err := s.retries.ListByDeposit(s.ctx, id)
	s.Require().NoError(err)
	return retries
}

func (s *DepositServiceSuite) TestConfirmPaid() {
	pending, err := s.svc.OpenPending(s.ctx, s.openRequest())
	s.Require().NoError(err)
	s.Equal(models.StatusPending, pending.Status)

	paid, err := s.svc.ConfirmPaid(s.ctx, pending.ID, "pay_1")
	s.Require().NoError(err)
	s.Equal(models.StatusPaid, paid.Status)
	s.Equal("pay_1", s.reload(pending.ID).GatewayRef)
	s.Len(s.events.Events(outbox.TypeDepositPaid), 1)

	_, err = s.svc.ConfirmPaid(s.ctx, pending.ID, "pay_1")
	s.True(dErrors.HasCode(err, dErrors.CodeInvalidState))
}

func (s *DepositServiceSuite) TestRefundDeposit() {
	s.Run("cancels the charge and marks the deposit refunded", func() {
		d := s.paidDeposit()

		refunded, err := s.svc.RefundDeposit(s.ctx, d.ID, service.ReasonVoluntaryLeave)
		s.Require().NoError(err)
		s.Equal(models.StatusRefunded, refunded.Status)

		stored := s.reload(d.ID)
		s.Equal(models.StatusRefunded, stored.Status)
		s.Equal(d.Amount, stored.RefundAmount)
		s.Equal(d.Amount, s.gw.Cancelled(d.GatewayRef))
		s.NotEmpty(s.events.Events(outbox.TypeDepositRefunded))
	})

	s.Run("gateway failure keeps the deposit paid and schedules a retry", func() {
		d := s.paidDeposit()
		s.gw.FailNext(sandbox.OpCancel, gateway.NewError("PROVIDER_ERROR", "bank offline"))

		_, err := s.svc.RefundDeposit(s.ctx, d.ID, service.ReasonVoluntaryLeave)
		s.True(dErrors.HasCode(err, dErrors.CodePaymentFailed))
		s.Equal(models.StatusPaid, s.reload(d.ID).Status)

		retries := s.retriesFor(d.ID)
		s.Require().Len(retries, 1)
		s.Equal(models.RetryRefund, retries[0].Type)
		s.Equal(1, retries[0].AttemptNumber)
		s.Equal("PROVIDER_ERROR", retries[0].ErrorCode)
		s.Equal(s.now.Add(time.Hour), *retries[0].NextRetryAt)
	})
}

func (s *DepositServiceSuite) TestTerminalStatesAreImmutable() {
	d := s.paidDeposit()
	_, err := s.svc.ForfeitDeposit(s.ctx, d.ID, service.ReasonPaymentFailed)
	s.Require().NoError(err)

	_, err = s.svc.RefundDeposit(s.ctx, d.ID, service.ReasonVoluntaryLeave)
	s.True(dErrors.HasCode(err, dErrors.CodeInvalidState))
	_, err = s.svc.ForfeitDeposit(s.ctx, d.ID, service.ReasonPaymentFailed)
	s.True(dErrors.HasCode(err, dErrors.CodeInvalidState))

	stored := s.reload(d.ID)
	s.Equal(models.StatusForfeited, stored.Status)
	s.Zero(stored.RefundAmount)
	s.Zero(s.gw.Calls(sandbox.OpCancel))
}

func (s *DepositServiceSuite) TestProcessWithdrawalRefund() {
	tests := []struct {
		name       string
		startsIn   int
		wantStatus models.Status
		want       models.Disposition
	}{
		{"three days before start refunds", 3, models.StatusRefunded, models.DispositionRefunded},
		{"exactly two days before start refunds", 2, models.StatusRefunded, models.DispositionRefunded},
		{"one day before start forfeits", 1, models.StatusForfeited, models.DispositionForfeited},
		{"after start forfeits", -5, models.StatusForfeited, models.DispositionForfeited},
	}
	for _, tt := range tests {
		s.Run(tt.name, func() {
			d := s.paidDeposit()
			start := domain.DateOf(s.now).AddDate(0, 0, tt.startsIn)

			got, err := s.svc.ProcessWithdrawalRefund(s.ctx, d.ID, start)
			s.Require().NoError(err)
			s.Equal(tt.want, got)
			s.Equal(tt.wantStatus, s.reload(d.ID).Status)
		})
	}

	s.Run("rejected refund is reported as scheduled", func() {
		d := s.paidDeposit()
		s.gw.FailNext(sandbox.OpCancel, gateway.NewError("PROVIDER_ERROR", "bank offline"))

		got, err := s.svc.ProcessWithdrawalRefund(s.ctx, d.ID, domain.DateOf(s.now).AddDate(0, 0, 10))
		s.Require().NoError(err)
		s.Equal(models.DispositionRefundScheduled, got)
		s.Equal(models.StatusPaid, s.reload(d.ID).Status)
	})
}

func (s *DepositServiceSuite) TestRefundRetry_BackoffAndExhaustion() {
	d := s.paidDeposit()
	for i := 0; i < 4; i++ {
		s.gw.FailNext(sandbox.OpCancel, gateway.NewError("PROVIDER_ERROR", "bank offline"))
	}
	_, err := s.svc.RefundDeposit(s.ctx, d.ID, service.ReasonPartyClosed)
	s.Require().Error(err)

	steps := []struct {
		advance time.Duration
		attempt int
		next    time.Duration
	}{
		{time.Hour, 2, 4 * time.Hour},
		{4 * time.Hour, 3, 24 * time.Hour},
	}
	for _, step := range steps {
		s.now = s.now.Add(step.advance)
		res, err := s.svc.ProcessDueRetries(s.ctx)
		s.Require().NoError(err)
		s.Equal(1, res.Failed)

		r := s.retriesFor(d.ID)[0]
		s.Equal(step.attempt, r.AttemptNumber)
		s.Equal(models.RetryStatusPending, r.Status)
		s.Equal(s.now.Add(step.next), *r.NextRetryAt)
	}

	s.now = s.now.Add(24 * time.Hour)
	_, err = s.svc.ProcessDueRetries(s.ctx)
	s.Require().NoError(err)

	r := s.retriesFor(d.ID)[0]
	s.Equal(models.MaxRetryAttempts, r.AttemptNumber)
	s.Equal(models.RetryStatusFailed, r.Status)
	s.Nil(r.NextRetryAt)
	s.Len(s.events.Events(outbox.TypeDepositRetryExhausted), 1)
	s.Equal(models.StatusPaid, s.reload(d.ID).Status)

	s.now = s.now.Add(48 * time.Hour)
	res, err := s.svc.ProcessDueRetries(s.ctx)
	s.Require().NoError(err)
	s.Zero(res.Total, "exhausted records are never replayed")
	s.Equal(4, s.gw.Calls(sandbox.OpCancel))
}

func (s *DepositServiceSuite) TestRefundRetry_HourlyDriverWithMovingClock() {
	tick := s.now
	svc := service.New(s.deposits, s.retries, s.gw, txcontext.LocalRunner{}, s.events,
		service.WithClock(func() time.Time {
			tick = tick.Add(10 * time.Millisecond)
			return tick
		}),
	)
	d, err := svc.CreateDeposit(s.ctx, s.openRequest(), "pay_moving_clock")
	s.Require().NoError(err)
	for i := 0; i < 3; i++ {
		s.gw.FailNext(sandbox.OpCancel, gateway.NewError("PROVIDER_ERROR", "bank offline"))
	}
	_, err = svc.RefundDeposit(s.ctx, d.ID, service.ReasonPartyClosed)
	s.Require().Error(err)

	// The retry driver runs on the hour, starting with the hour after the
	// failed refund.
	var replayHours []int
	for hour := 1; hour <= 30; hour++ {
		tick = s.now.Add(time.Duration(hour) * time.Hour)
		res, err := svc.ProcessDueRetries(s.ctx)
		s.Require().NoError(err)
		if res.Total > 0 {
			replayHours = append(replayHours, hour)
		}
	}

	s.Equal([]int{1, 5, 29}, replayHours)
	s.Equal(models.StatusRefunded, s.reload(d.ID).Status)
}

func (s *DepositServiceSuite) TestRefundRetry_Succeeds() {
	d := s.paidDeposit()
	s.gw.FailNext(sandbox.OpCancel, errors.New("connection reset"))
	_, err := s.svc.RefundDeposit(s.ctx, d.ID, service.ReasonPartyClosed)
	s.Require().Error(err)

	s.now = s.now.Add(30 * time.Minute)
	res, err := s.svc.ProcessDueRetries(s.ctx)
	s.Require().NoError(err)
	s.Zero(res.Total, "not due before the first backoff elapses")

	s.now = s.now.Add(30 * time.Minute)
	res, err = s.svc.ProcessDueRetries(s.ctx)
	s.Require().NoError(err)
	s.Equal(1, res.Succeeded)

	s.Equal(models.StatusRefunded, s.reload(d.ID).Status)
	s.Equal(models.RetryStatusSuccess, s.retriesFor(d.ID)[0].Status)
}

func (s *DepositServiceSuite) TestJoinCompensation() {
	pending, err := s.svc.OpenPending(s.ctx, s.openRequest())
	s.Require().NoError(err)

	err = s.svc.RecordCompensation(s.ctx, pending.ID, "pay_join", 26000, errors.New("commit failed"))
	s.Require().NoError(err)

	s.now = s.now.Add(time.Hour)
	res, err := s.svc.ProcessDueRetries(s.ctx)
	s.Require().NoError(err)
	s.Equal(1, res.Succeeded)

	s.Equal(int64(26000), s.gw.Cancelled("pay_join"))
	_, err = s.deposits.FindByID(s.ctx, pending.ID)
	s.Error(err, "stale pending deposit is deleted")

	events := s.events.Events(outbox.TypeJoinCompensated)
	s.Require().Len(events, 1)
	var payload outbox.JoinCompensated
	s.Require().NoError(events[0].Decode(&payload))
	s.Equal(pending.MembershipID.String(), payload.MembershipID)
	s.Equal(int64(26000), payload.Amount)
}

func (s *DepositServiceSuite) TestJoinCompensation_CommittedJoinNeedsNoCancel() {
	pending, err := s.svc.OpenPending(s.ctx, s.openRequest())
	s.Require().NoError(err)
	_, err = s.svc.ConfirmPaid(s.ctx, pending.ID, "pay_join")
	s.Require().NoError(err)
	s.Require().NoError(s.svc.RecordCompensation(s.ctx, pending.ID, "pay_join", 26000, errors.New("ack lost")))

	s.now = s.now.Add(time.Hour)
	_, err = s.svc.ProcessDueRetries(s.ctx)
	s.Require().NoError(err)

	s.Zero(s.gw.Calls(sandbox.OpCancel))
	s.Equal(models.StatusPaid, s.reload(pending.ID).Status)
	s.Equal(models.RetryStatusSuccess, s.retriesFor(pending.ID)[0].Status)
}

func (s *DepositServiceSuite) TestResolveForClosure() {
	first := s.paidDeposit()
	s.now = s.now.Add(time.Minute)
	second := s.paidDeposit()
	s.gw.FailNext(sandbox.OpCancel, gateway.NewError("PROVIDER_ERROR", "bank offline"))

	remaining, err := s.svc.ResolveForClosure(s.ctx, s.partyID)
	s.Require().NoError(err)
	s.Equal(1, remaining)
	s.Equal(models.StatusPaid, s.reload(first.ID).Status)
	s.Equal(models.StatusRefunded, s.reload(second.ID).Status)

	remaining, err = s.svc.ResolveForClosure(s.ctx, s.partyID)
	s.Require().NoError(err)
	s.Equal(1, remaining, "pending retry is left to the retry driver")
	s.Equal(2, s.gw.Calls(sandbox.OpCancel))
}

func (s *DepositServiceSuite) TestForfeitForMembership() {
	d := s.paidDeposit()

	none, err := s.svc.ForfeitForMembership(s.ctx, domain.NewMembershipID(), service.ReasonPaymentFailed)
	s.Require().NoError(err)
	s.Nil(none)

	forfeited, err := s.svc.ForfeitForMembership(s.ctx, d.MembershipID, service.ReasonPaymentFailed)
	s.Require().NoError(err)
	s.Equal(models.StatusForfeited, forfeited.Status)

	again, err := s.svc.ForfeitForMembership(s.ctx, d.MembershipID, service.ReasonPaymentFailed)
	s.Require().NoError(err)
	s.Equal(models.StatusForfeited, again.Status)
	s.Len(s.events.Events(outbox.TypeDepositForfeited), 1)
}
