package service_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/suite"
	"go.uber.org/mock/gomock"

	"moa/internal/gateway"
	"moa/internal/gateway/sandbox"
	"moa/internal/notification"
	notificationmocks "moa/internal/notification/mocks"
	"moa/internal/outbox"
	outboxstore "moa/internal/outbox/store"
	"moa/internal/payment/models"
	"moa/internal/payment/service"
	billingkeystore "moa/internal/payment/store/billingkey"
	paymentstore "moa/internal/payment/store/payment"
	retrystore "moa/internal/payment/store/retry"
	"moa/pkg/domain"
	dErrors "moa/pkg/domain-errors"
	txcontext "moa/pkg/platform/tx"
)

type PaymentServiceSuite struct {
	suite.Suite
	ctx      context.Context
	payments *paymentstore.InMemoryStore
	retries  *retrystore.InMemoryStore
	keys     *billingkeystore.InMemoryStore
	events   *outboxstore.InMemoryStore
	gw       *sandbox.Payments
	now      time.Time
	svc      *service.Service
	userID   domain.UserID
}

func TestPaymentServiceSuite(t *testing.T) {
	suite.Run(t, new(PaymentServiceSuite))
}

func (s *PaymentServiceSuite) SetupTest() {
	s.ctx = context.Background()
	s.payments = paymentstore.NewInMemory()
	s.retries = retrystore.NewInMemory()
	s.keys = billingkeystore.NewInMemory()
	s.events = outboxstore.NewInMemory()
	s.gw = sandbox.NewPayments()
	s.now = time.Date(2025, 3, 15, 0, 30, 0, 0, time.UTC)
	s.userID = domain.UserID(uuid.New())
	s.svc = s.newService()

	_, err := s.svc.RegisterBillingKey(s.ctx, s.userID, "auth_1")
	s.Require().NoError(err)
}

func (s *PaymentServiceSuite) newService(opts ...service.Option) *service.Service {
	opts = append([]service.Option{service.WithClock(func() time.Time { return s.now })}, opts...)
	return service.New(s.payments, s.retries, s.keys, s.gw, txcontext.LocalRunner{}, s.events, opts...)
}

func (s *PaymentServiceSuite) monthlyRequest() models.MonthlyRequest {
	return models.MonthlyRequest{
		PartyID:      domain.NewPartyID(),
		MembershipID: domain.NewMembershipID(),
		UserID:       s.userID,
		Amount:       4250,
		TargetMonth:  domain.MonthOf(s.now),
	}
}

func (s *PaymentServiceSuite) attempts(id domain.PaymentID) []*models.Retry {
	attempts, err := s.svc.ListAttempts(s.ctx, id)
	s.Require().NoError(err)
	return attempts
}

func (s *PaymentServiceSuite) decline() {
	s.gw.FailNext(sandbox.OpCharge, gateway.NewError("NOT_ENOUGH_BALANCE", "insufficient funds"))
}

func (s *PaymentServiceSuite) TestProcessMonthlyPayment() {
	s.Run("charges the billing key and records the attempt", func() {
		p, err := s.svc.ProcessMonthlyPayment(s.ctx, s.monthlyRequest())
		s.Require().NoError(err)
		s.Equal(models.StatusCompleted, p.Status)
		s.Equal(1, p.AttemptCount)
		s.NotEmpty(p.GatewayRef)
		s.Require().NotNil(p.PaidAt)

		attempts := s.attempts(p.ID)
		s.Require().Len(attempts, 1)
		s.Equal(models.RetryStatusSuccess, attempts[0].Status)
		s.Nil(attempts[0].NextRetryAt)
		s.NotEmpty(s.events.Events(outbox.TypePaymentCompleted))
	})

	s.Run("a second run for the same month returns the existing payment", func() {
		req := s.monthlyRequest()
		first, err := s.svc.ProcessMonthlyPayment(s.ctx, req)
		s.Require().NoError(err)
		charges := s.gw.Calls(sandbox.OpCharge)

		second, err := s.svc.ProcessMonthlyPayment(s.ctx, req)
		s.Require().NoError(err)
		s.Equal(first.ID, second.ID)
		s.Equal(charges, s.gw.Calls(sandbox.OpCharge))
	})

	s.Run("a member without a billing key fails with NO_BILLING_KEY", func() {
		req := s.monthlyRequest()
		req.UserID = domain.UserID(uuid.New())

		p, err := s.svc.ProcessMonthlyPayment(s.ctx, req)
		s.True(dErrors.HasCode(err, dErrors.CodePaymentFailed))
		s.Require().NotNil(p)
		s.Equal(models.StatusFailed, p.Status)
		s.Equal(models.FailureNoBillingKey, p.FailureCode)
	})
}

func (s *PaymentServiceSuite) TestRetrySchedule_BackoffAndFinalFailure() {
	for i := 0; i < models.MaxAttempts; i++ {
		s.decline()
	}
	start := s.now

	p, err := s.svc.ProcessMonthlyPayment(s.ctx, s.monthlyRequest())
	s.True(dErrors.HasCode(err, dErrors.CodePaymentFailed))
	s.Equal(models.StatusFailed, p.Status)

	res, err := s.svc.ProcessDueRetries(s.ctx)
	s.Require().NoError(err)
	s.Equal(0, res.Total, "nothing is due before the backoff elapses")

	// Attempt n failing schedules attempt n+1 after n*24h.
	offsets := []time.Duration{24 * time.Hour, 72 * time.Hour, 144 * time.Hour}
	for i, offset := range offsets {
		attempts := s.attempts(p.ID)
		s.Require().Len(attempts, i+1)
		last := attempts[len(attempts)-1]
		s.Require().NotNil(last.NextRetryAt)
		s.Equal(start.Add(offset), *last.NextRetryAt)

		s.now = start.Add(offset)
		res, err := s.svc.ProcessDueRetries(s.ctx)
		s.Require().NoError(err)
		s.Equal(1, res.Total)
		s.Equal(1, res.Failed)
	}

	attempts := s.attempts(p.ID)
	s.Require().Len(attempts, models.MaxAttempts)
	for i, a := range attempts {
		s.Equal(i+1, a.AttemptNumber)
		s.Equal(models.RetryStatusFailed, a.Status)
		s.Nil(a.NextRetryAt, "every schedule is consumed")
	}

	stored, err := s.svc.GetPayment(s.ctx, p.ID)
	s.Require().NoError(err)
	s.Equal(models.StatusFailed, stored.Status)
	s.Equal(models.MaxAttempts, stored.AttemptCount)

	final := s.events.Events(outbox.TypePaymentFinalFailed)
	s.Require().Len(final, 1)
	var payload outbox.PaymentFinalFailed
	s.Require().NoError(final[0].Decode(&payload))
	s.Equal(p.MembershipID.String(), payload.MembershipID)
	s.Equal("NOT_ENOUGH_BALANCE", payload.ErrorCode)

	s.now = s.now.Add(30 * 24 * time.Hour)
	res, err = s.svc.ProcessDueRetries(s.ctx)
	s.Require().NoError(err)
	s.Equal(0, res.Total)
}

func (s *PaymentServiceSuite) TestRetrySchedule_DailyDriverWithMovingClock() {
	for i := 0; i < models.MaxAttempts; i++ {
		s.decline()
	}
	billingDay := s.now
	tick := billingDay
	svc := s.newService(service.WithClock(func() time.Time {
		tick = tick.Add(10 * time.Millisecond)
		return tick
	}))

	p, err := svc.ProcessMonthlyPayment(s.ctx, s.monthlyRequest())
	s.True(dErrors.HasCode(err, dErrors.CodePaymentFailed))

	// The retry driver runs at 01:00 every day, after the 00:30 billing run.
	driverSlot := time.Date(billingDay.Year(), billingDay.Month(), billingDay.Day(), 1, 0, 0, 0, time.UTC)
	var retryDays []int
	for day := 0; day <= 10; day++ {
		tick = driverSlot.AddDate(0, 0, day)
		res, err := svc.ProcessDueRetries(s.ctx)
		s.Require().NoError(err)
		if res.Total > 0 {
			retryDays = append(retryDays, day)
		}
	}

	s.Equal([]int{1, 3, 6}, retryDays)
	stored, err := s.svc.GetPayment(s.ctx, p.ID)
	s.Require().NoError(err)
	s.Equal(models.MaxAttempts, stored.AttemptCount)
	s.Len(s.events.Events(outbox.TypePaymentFinalFailed), 1)
}

func (s *PaymentServiceSuite) TestRetryIsNotDueBeforeItsDay() {
	s.decline()
	s.now = time.Date(2025, 3, 15, 23, 0, 0, 0, time.UTC)
	_, err := s.svc.ProcessMonthlyPayment(s.ctx, s.monthlyRequest())
	s.Require().Error(err)

	s.now = time.Date(2025, 3, 15, 23, 30, 0, 0, time.UTC)
	res, err := s.svc.ProcessDueRetries(s.ctx)
	s.Require().NoError(err)
	s.Equal(0, res.Total)

	s.now = time.Date(2025, 3, 16, 1, 0, 0, 0, time.UTC)
	res, err = s.svc.ProcessDueRetries(s.ctx)
	s.Require().NoError(err)
	s.Equal(1, res.Total, "due later the same day counts as due")
}

func (s *PaymentServiceSuite) TestRetrySucceeds() {
	s.decline()
	p, err := s.svc.ProcessMonthlyPayment(s.ctx, s.monthlyRequest())
	s.Require().Error(err)

	s.now = s.now.Add(24 * time.Hour)
	res, err := s.svc.ProcessDueRetries(s.ctx)
	s.Require().NoError(err)
	s.Equal(1, res.Succeeded)

	stored, err := s.svc.GetPayment(s.ctx, p.ID)
	s.Require().NoError(err)
	s.Equal(models.StatusCompleted, stored.Status)
	s.Equal(2, stored.AttemptCount)
	s.Empty(stored.FailureCode)

	attempts := s.attempts(p.ID)
	s.Require().Len(attempts, 2)
	s.Nil(attempts[0].NextRetryAt)
	s.Equal(models.RetryStatusSuccess, attempts[1].Status)
}

type billableFunc func(domain.MembershipID) bool

func (f billableFunc) IsBillable(_ context.Context, id domain.MembershipID) (bool, error) {
	return f(id), nil
}

func (s *PaymentServiceSuite) TestRetrySkipsWithdrawnMembership() {
	s.decline()
	p, err := s.svc.ProcessMonthlyPayment(s.ctx, s.monthlyRequest())
	s.Require().Error(err)

	s.svc.SetEligibilityChecker(billableFunc(func(domain.MembershipID) bool { return false }))
	s.now = s.now.Add(24 * time.Hour)
	res, err := s.svc.ProcessDueRetries(s.ctx)
	s.Require().NoError(err)
	s.Equal(1, res.Skipped)
	s.Equal(1, s.gw.Calls(sandbox.OpCharge))

	attempts := s.attempts(p.ID)
	s.Require().Len(attempts, 1)
	s.Nil(attempts[0].NextRetryAt)
}

func (s *PaymentServiceSuite) TestRepeatedRetryRunsChargeOnce() {
	s.decline()
	_, err := s.svc.ProcessMonthlyPayment(s.ctx, s.monthlyRequest())
	s.Require().Error(err)
	s.now = s.now.Add(24 * time.Hour)

	other := s.newService()
	first, err := s.svc.ProcessDueRetries(s.ctx)
	s.Require().NoError(err)
	second, err := other.ProcessDueRetries(s.ctx)
	s.Require().NoError(err)

	s.Equal(1, first.Succeeded+second.Succeeded)
	s.Equal(2, s.gw.Calls(sandbox.OpCharge))
}

type failingRetryStore struct {
	*retrystore.InMemoryStore
}

func (f failingRetryStore) Create(context.Context, *models.Retry) error {
	return errors.New("disk full")
}

// flakyRetryStore fails the next failCreates inserts.
type flakyRetryStore struct {
	*retrystore.InMemoryStore
	failCreates int
}

func (f *flakyRetryStore) Create(ctx context.Context, r *models.Retry) error {
	if f.failCreates > 0 {
		f.failCreates--
		return errors.New("connection reset")
	}
	return f.InMemoryStore.Create(ctx, r)
}

func (s *PaymentServiceSuite) stored(req models.MonthlyRequest) *models.Payment {
	p, err := s.payments.FindByMembershipMonth(s.ctx, req.MembershipID, req.TargetMonth)
	s.Require().NoError(err)
	return p
}

func (s *PaymentServiceSuite) TestChargeIsVoidedWhenLedgerWriteFails() {
	svc := service.New(s.payments, failingRetryStore{retrystore.NewInMemory()}, s.keys, s.gw, txcontext.LocalRunner{}, s.events,
		service.WithClock(func() time.Time { return s.now }),
	)
	req := s.monthlyRequest()

	_, err := svc.ProcessMonthlyPayment(s.ctx, req)
	s.True(dErrors.HasCode(err, dErrors.CodeInternal))
	s.Equal(1, s.gw.Calls(sandbox.OpCharge))
	s.Equal(1, s.gw.Calls(sandbox.OpCancel))

	p := s.stored(req)
	s.Equal(models.StatusPending, p.Status, "a voided charge never shows as collected")
	s.Zero(p.AttemptCount)
	s.Empty(s.events.Events(outbox.TypePaymentCompleted))
}

func (s *PaymentServiceSuite) TestVoidedChargeBecomesFailedAttempt() {
	retries := &flakyRetryStore{InMemoryStore: s.retries, failCreates: 1}
	svc := service.New(s.payments, retries, s.keys, s.gw, txcontext.LocalRunner{}, s.events,
		service.WithClock(func() time.Time { return s.now }),
	)
	req := s.monthlyRequest()

	_, err := svc.ProcessMonthlyPayment(s.ctx, req)
	s.True(dErrors.HasCode(err, dErrors.CodeInternal))

	p := s.stored(req)
	s.Equal(models.StatusFailed, p.Status)
	s.Equal(1, p.AttemptCount)
	s.Equal(models.FailureLedgerWrite, p.FailureCode)

	attempts := s.attempts(p.ID)
	s.Require().Len(attempts, 1)
	s.Equal(models.RetryStatusFailed, attempts[0].Status)
	s.Require().NotNil(attempts[0].NextRetryAt)
	s.Equal(s.now.Add(models.RetryInterval), *attempts[0].NextRetryAt)
	s.Equal(int64(4250), s.gw.Cancelled(attempts[0].GatewayRef))
	s.Empty(s.events.Events(outbox.TypePaymentCompleted))
	s.Len(s.events.Events(outbox.TypePaymentFailed), 1)

	s.now = s.now.Add(24 * time.Hour)
	res, err := svc.ProcessDueRetries(s.ctx)
	s.Require().NoError(err)
	s.Equal(1, res.Succeeded)

	p = s.stored(req)
	s.Equal(models.StatusCompleted, p.Status)
	s.Equal(2, p.AttemptCount)
	s.Equal(2, s.gw.Calls(sandbox.OpCharge))
	s.Len(s.events.Events(outbox.TypePaymentCompleted), 1)
}

func (s *PaymentServiceSuite) TestVoidRejectedByGatewayIsSettledByRetryRun() {
	retries := &flakyRetryStore{InMemoryStore: s.retries, failCreates: 1}
	svc := service.New(s.payments, retries, s.keys, s.gw, txcontext.LocalRunner{}, s.events,
		service.WithClock(func() time.Time { return s.now }),
	)
	req := s.monthlyRequest()
	s.gw.FailNext(sandbox.OpCancel, gateway.NewError("PROVIDER_ERROR", "gateway unavailable"))

	_, err := svc.ProcessMonthlyPayment(s.ctx, req)
	s.True(dErrors.HasCode(err, dErrors.CodeInternal))

	p := s.stored(req)
	s.Equal(models.StatusPending, p.Status)
	attempts := s.attempts(p.ID)
	s.Require().Len(attempts, 1)
	s.Equal(models.RetryStatusVoid, attempts[0].Status)
	ref := attempts[0].GatewayRef
	s.NotEmpty(ref)
	s.Zero(s.gw.Cancelled(ref))

	res, err := svc.ProcessDueRetries(s.ctx)
	s.Require().NoError(err)
	s.Zero(res.Total, "the void stays leased for the rest of the day")

	s.now = s.now.Add(24 * time.Hour)
	res, err = svc.ProcessDueRetries(s.ctx)
	s.Require().NoError(err)
	s.Equal(1, res.Succeeded)
	s.Equal(int64(4250), s.gw.Cancelled(ref))
	s.Equal(1, s.gw.Calls(sandbox.OpCharge), "the sweep only voids")

	p = s.stored(req)
	s.Equal(models.StatusFailed, p.Status)
	s.Equal(1, p.AttemptCount)
	attempts = s.attempts(p.ID)
	s.Require().Len(attempts, 1)
	s.Equal(models.RetryStatusFailed, attempts[0].Status)
	s.Require().NotNil(attempts[0].NextRetryAt)
}

func (s *PaymentServiceSuite) TestRecordInitialPayment() {
	req := models.InitialRequest{
		PartyID:      domain.NewPartyID(),
		MembershipID: domain.NewMembershipID(),
		UserID:       s.userID,
		Amount:       4250,
		TargetMonth:  domain.MonthOf(s.now),
		GatewayRef:   "pay_join",
		OrderID:      "ord_join",
	}
	p, err := s.svc.RecordInitialPayment(s.ctx, req)
	s.Require().NoError(err)
	s.Equal(models.TypeInitial, p.Type)
	s.Equal(models.StatusCompleted, p.Status)

	_, err = s.svc.RecordInitialPayment(s.ctx, req)
	s.True(dErrors.HasCode(err, dErrors.CodeDuplicatePayment))
}

func (s *PaymentServiceSuite) TestRefundPayment() {
	req := models.InitialRequest{
		PartyID:      domain.NewPartyID(),
		MembershipID: domain.NewMembershipID(),
		UserID:       s.userID,
		Amount:       4250,
		TargetMonth:  domain.MonthOf(s.now),
		GatewayRef:   "pay_join",
		OrderID:      "ord_join",
	}
	p, err := s.svc.RecordInitialPayment(s.ctx, req)
	s.Require().NoError(err)

	s.Require().NoError(s.svc.RefundPayment(s.ctx, req.PartyID, req.MembershipID, "VOLUNTARY_LEAVE"))
	stored, err := s.svc.GetPayment(s.ctx, p.ID)
	s.Require().NoError(err)
	s.Equal(models.StatusRefunded, stored.Status)
	s.Equal(int64(4250), s.gw.Cancelled("pay_join"))

	s.Require().NoError(s.svc.RefundPayment(s.ctx, req.PartyID, req.MembershipID, "VOLUNTARY_LEAVE"))
	s.Equal(1, s.gw.Calls(sandbox.OpCancel), "already refunded is a no-op")

	s.Require().NoError(s.svc.RefundPayment(s.ctx, req.PartyID, domain.NewMembershipID(), "VOLUNTARY_LEAVE"))
}

func (s *PaymentServiceSuite) TestRefundPayment_GatewayRejection() {
	req := models.InitialRequest{
		PartyID:      domain.NewPartyID(),
		MembershipID: domain.NewMembershipID(),
		UserID:       s.userID,
		Amount:       4250,
		TargetMonth:  domain.MonthOf(s.now),
		GatewayRef:   "pay_join",
		OrderID:      "ord_join",
	}
	p, err := s.svc.RecordInitialPayment(s.ctx, req)
	s.Require().NoError(err)
	s.gw.FailNext(sandbox.OpCancel, gateway.NewError("PROVIDER_ERROR", "unavailable"))

	err = s.svc.RefundPayment(s.ctx, req.PartyID, req.MembershipID, "VOLUNTARY_LEAVE")
	s.True(dErrors.HasCode(err, dErrors.CodePaymentFailed))
	stored, err := s.svc.GetPayment(s.ctx, p.ID)
	s.Require().NoError(err)
	s.Equal(models.StatusCompleted, stored.Status)
}

func (s *PaymentServiceSuite) TestBillingKeys() {
	s.Run("registration replaces the previous credential", func() {
		k, err := s.svc.RegisterBillingKey(s.ctx, s.userID, "auth_2")
		s.Require().NoError(err)
		s.Contains(k.Credential, "auth_2")

		receipt, err := s.svc.ChargeWithBillingKey(s.ctx, models.ChargeRequest{UserID: s.userID, Amount: 4250, OrderID: "ord_dep"})
		s.Require().NoError(err)
		s.Equal(int64(4250), receipt.Amount)
	})

	s.Run("empty auth key is rejected", func() {
		_, err := s.svc.RegisterBillingKey(s.ctx, s.userID, "")
		s.True(dErrors.HasCode(err, dErrors.CodeValidation))
	})

	s.Run("charging without a key", func() {
		_, err := s.svc.ChargeWithBillingKey(s.ctx, models.ChargeRequest{UserID: domain.UserID(uuid.New()), Amount: 100, OrderID: "ord"})
		s.True(dErrors.HasCode(err, dErrors.CodeBillingKeyMissing))
	})
}

func (s *PaymentServiceSuite) TestNotifications() {
	ctrl := gomock.NewController(s.T())
	notifier := notificationmocks.NewMockNotifier(ctrl)
	svc := s.newService(service.WithNotifier(notifier))

	notifier.EXPECT().Notify(gomock.Any(), s.userID, notification.TemplatePaymentCompleted, gomock.Any(), gomock.Any())
	_, err := svc.ProcessMonthlyPayment(s.ctx, s.monthlyRequest())
	s.Require().NoError(err)

	s.gw.FailNext(sandbox.OpCharge, gateway.NewError("INVALID_CARD_EXPIRATION", "expired"))
	notifier.EXPECT().Notify(gomock.Any(), s.userID, notification.TemplatePaymentRetrying, gomock.Any(), gomock.Any()).
		Do(func(_ context.Context, _ domain.UserID, _ notification.Template, params map[string]string, _ string) {
			s.Equal(string(gateway.FailureCard), params["reason"])
			s.Equal("1", params["attempt"])
			s.NotEmpty(params["next_retry_at"])
		})
	_, err = svc.ProcessMonthlyPayment(s.ctx, s.monthlyRequest())
	s.Require().Error(err)
}
