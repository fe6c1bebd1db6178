package service

//go:generate mockgen -source=service.go -destination=mocks/mocks.go -package=mocks

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/suite"
	"go.uber.org/mock/gomock"

	"moa/internal/account/models"
	"moa/internal/account/service/mocks"
	"moa/internal/account/store/payout"
	"moa/internal/account/store/pending"
	"moa/internal/gateway"
	"moa/internal/gateway/sandbox"
	"moa/internal/notification"
	"moa/pkg/domain"
	dErrors "moa/pkg/domain-errors"
)

type sentNotice struct {
	userID   domain.UserID
	template notification.Template
	params   map[string]string
}

type captureNotifier struct {
	sent []sentNotice
}

func (c *captureNotifier) Notify(_ context.Context, userID domain.UserID, template notification.Template, params map[string]string, _ string) {
	c.sent = append(c.sent, sentNotice{userID: userID, template: template, params: params})
}

type AccountServiceSuite struct {
	suite.Suite
	now      time.Time
	accounts *payout.InMemoryStore
	pending  *pending.InMemoryStore
	bank     *sandbox.Bank
	notifier *captureNotifier
	svc      *Service
	userID   domain.UserID
}

func TestAccountServiceSuite(t *testing.T) {
	suite.Run(t, new(AccountServiceSuite))
}

func (s *AccountServiceSuite) SetupTest() {
	s.now = time.Date(2025, 3, 1, 9, 0, 0, 0, time.UTC)
	clock := func() time.Time { return s.now }
	s.accounts = payout.NewInMemory()
	s.pending = pending.NewInMemory().WithClock(clock)
	s.bank = sandbox.NewBank()
	s.notifier = &captureNotifier{}
	s.svc = New(s.accounts, s.pending, s.bank, WithClock(clock), WithNotifier(s.notifier))
	s.userID = domain.UserID(uuid.New())
}

func (s *AccountServiceSuite) request() models.VerificationRequest {
	return models.VerificationRequest{
		UserID:        s.userID,
		BankCode:      "004",
		AccountNumber: "123-456-7890",
		HolderName:    "Kim Leader",
	}
}

func (s *AccountServiceSuite) TestVerifyAccount() {
	ctx := context.Background()

	p, err := s.svc.RequestVerification(ctx, s.request())
	s.Require().NoError(err)
	s.Equal("******7890", p.AccountNumberMasked)
	s.Equal(s.now.Add(10*time.Minute), p.ExpiresAt)

	_, err = s.svc.FindVerified(ctx, s.userID)
	s.True(dErrors.HasCode(err, dErrors.CodeAccountNotVerified), "pending is not verified")

	account, err := s.svc.ConfirmVerification(ctx, s.userID, sandbox.VerificationCode)
	s.Require().NoError(err)
	s.Equal("fin_"+p.TransactionID, account.FintechID)
	s.Equal(s.now, account.VerifiedAt)

	found, err := s.svc.FindVerified(ctx, s.userID)
	s.Require().NoError(err)
	s.Equal(account.FintechID, found.FintechID)

	s.Require().Len(s.notifier.sent, 1)
	s.Equal(notification.TemplateAccountVerified, s.notifier.sent[0].template)
	s.Equal("******7890", s.notifier.sent[0].params["account_number"])

	_, err = s.svc.ConfirmVerification(ctx, s.userID, sandbox.VerificationCode)
	s.True(dErrors.HasCode(err, dErrors.CodeNotFound), "pending state is cleared after confirmation")
}

func (s *AccountServiceSuite) TestWrongCodeKeepsPending() {
	ctx := context.Background()
	_, err := s.svc.RequestVerification(ctx, s.request())
	s.Require().NoError(err)

	_, err = s.svc.ConfirmVerification(ctx, s.userID, "999")
	s.True(dErrors.HasCode(err, dErrors.CodeValidation))

	_, err = s.svc.ConfirmVerification(ctx, s.userID, sandbox.VerificationCode)
	s.NoError(err, "a wrong code can be corrected before expiry")
}

func (s *AccountServiceSuite) TestExpiredVerification() {
	ctx := context.Background()
	_, err := s.svc.RequestVerification(ctx, s.request())
	s.Require().NoError(err)

	s.now = s.now.Add(10 * time.Minute)
	_, err = s.svc.ConfirmVerification(ctx, s.userID, sandbox.VerificationCode)
	s.True(dErrors.HasCode(err, dErrors.CodeNotFound))
	s.Zero(s.bank.Calls(sandbox.OpVerifyCode))
}

func (s *AccountServiceSuite) TestRequestRejectedByBank() {
	s.bank.FailNext(sandbox.OpRequestVerification, gateway.NewError("INVALID_ACCOUNT", "account does not exist"))

	_, err := s.svc.RequestVerification(context.Background(), s.request())
	s.True(dErrors.HasCode(err, dErrors.CodePaymentFailed))
	_, err = s.pending.Find(context.Background(), s.userID)
	s.Error(err)
}

func (s *AccountServiceSuite) TestRequestValidation() {
	req := s.request()
	req.AccountNumber = "12"
	_, err := s.svc.RequestVerification(context.Background(), req)
	s.True(dErrors.HasCode(err, dErrors.CodeValidation))
	s.Zero(s.bank.Calls(sandbox.OpRequestVerification))
}

func TestConfirmVerification_SaveFailureKeepsPending(t *testing.T) {
	ctrl := gomock.NewController(t)
	accounts := mocks.NewMockPayoutStore(ctrl)
	pendingStore := mocks.NewMockPendingStore(ctrl)
	now := time.Date(2025, 3, 1, 9, 0, 0, 0, time.UTC)
	userID := domain.UserID(uuid.New())

	pendingStore.EXPECT().Find(gomock.Any(), userID).Return(&models.PendingVerification{
		UserID:        userID,
		TransactionID: "vt_1",
		ExpiresAt:     now.Add(time.Minute),
	}, nil)
	accounts.EXPECT().Save(gomock.Any(), gomock.Any()).Return(errors.New("connection reset"))
	pendingStore.EXPECT().Delete(gomock.Any(), gomock.Any()).Times(0)

	svc := New(accounts, pendingStore, sandbox.NewBank(), WithClock(func() time.Time { return now }))
	_, err := svc.ConfirmVerification(context.Background(), userID, sandbox.VerificationCode)
	if !dErrors.HasCode(err, dErrors.CodeInternal) {
		t.Fatalf("expected internal error, got %v", err)
	}
}
