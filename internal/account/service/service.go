// Package service verifies leader payout accounts through the bank's
// one-time code flow.
package service

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"moa/internal/account/models"
	"moa/internal/gateway"
	"moa/internal/notification"
	"moa/internal/platform/logger"
	"moa/pkg/domain"
	dErrors "moa/pkg/domain-errors"
	"moa/pkg/platform/sentinel"
)

type PayoutStore interface {
	Save(ctx context.Context, a *models.PayoutAccount) error
	FindByUserID(ctx context.Context, userID domain.UserID) (*models.PayoutAccount, error)
}

type PendingStore interface {
	Save(ctx context.Context, p *models.PendingVerification, ttl time.Duration) error
	Find(ctx context.Context, userID domain.UserID) (*models.PendingVerification, error)
	Delete(ctx context.Context, userID domain.UserID) error
}

const defaultVerificationTTL = 10 * time.Minute

type Service struct {
	accounts PayoutStore
	pending  PendingStore
	bank     gateway.BankGateway
	notifier notification.Notifier
	logger   *slog.Logger
	now      func() time.Time
	ttl      time.Duration
}

type Option func(*Service)

func WithLogger(l *slog.Logger) Option {
	return func(s *Service) { s.logger = l }
}

func WithNotifier(n notification.Notifier) Option {
	return func(s *Service) { s.notifier = n }
}

func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

// WithVerificationTTL bounds how long a requested code stays confirmable.
func WithVerificationTTL(d time.Duration) Option {
	return func(s *Service) {
		if d > 0 {
			s.ttl = d
		}
	}
}

func New(accounts PayoutStore, pending PendingStore, bank gateway.BankGateway, opts ...Option) *Service {
	s := &Service{
		accounts: accounts,
		pending:  pending,
		bank:     bank,
		notifier: notification.Nop{},
		logger:   logger.Discard(),
		now:      time.Now,
		ttl:      defaultVerificationTTL,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// RequestVerification asks the bank to send a one-time code for the account
// and remembers the pending transaction. A second request replaces the first.
func (s *Service) RequestVerification(ctx context.Context, req models.VerificationRequest) (*models.PendingVerification, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}
	ticket, err := s.bank.RequestAccountVerification(ctx, gateway.AccountVerificationRequest{
		BankCode:      req.BankCode,
		AccountNumber: req.AccountNumber,
		HolderName:    req.HolderName,
	})
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodePaymentFailed, "bank rejected verification request: "+gateway.MessageOf(err))
	}

	now := s.now()
	expiresAt := now.Add(s.ttl)
	if !ticket.ExpiresAt.IsZero() && ticket.ExpiresAt.Before(expiresAt) {
		expiresAt = ticket.ExpiresAt
	}
	p := &models.PendingVerification{
		UserID:              req.UserID,
		TransactionID:       ticket.TransactionID,
		BankCode:            req.BankCode,
		AccountNumberMasked: models.MaskAccountNumber(req.AccountNumber),
		HolderName:          req.HolderName,
		ExpiresAt:           expiresAt,
	}
	if err := s.pending.Save(ctx, p, expiresAt.Sub(now)); err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to store pending verification")
	}
	s.logger.InfoContext(ctx, "account verification requested",
		"user_id", req.UserID.String(),
		"bank_code", req.BankCode,
		"expires_at", expiresAt,
	)
	return p, nil
}

// ConfirmVerification checks the code with the bank and stores the verified
// account, replacing any earlier one.
func (s *Service) ConfirmVerification(ctx context.Context, userID domain.UserID, code string) (*models.PayoutAccount, error) {
	if code == "" {
		return nil, dErrors.New(dErrors.CodeValidation, "verification code is required")
	}
	p, err := s.pending.Find(ctx, userID)
	if errors.Is(err, sentinel.ErrNotFound) {
		return nil, dErrors.New(dErrors.CodeNotFound, "no pending verification, request a new code")
	}
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load pending verification")
	}
	now := s.now()
	if p.IsExpired(now) {
		return nil, dErrors.New(dErrors.CodeNotFound, "verification expired, request a new code")
	}

	verified, err := s.bank.VerifyCode(ctx, p.TransactionID, code)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeValidation, "verification failed: "+gateway.MessageOf(err))
	}
	account, err := p.Verified(verified.FintechID, now)
	if err != nil {
		return nil, err
	}
	if err := s.accounts.Save(ctx, account); err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to save payout account")
	}
	if err := s.pending.Delete(ctx, userID); err != nil {
		s.logger.WarnContext(ctx, "failed to clear pending verification", "user_id", userID.String(), "error", err)
	}

	s.notifier.Notify(ctx, userID, notification.TemplateAccountVerified, map[string]string{
		"bank_code":      account.BankCode,
		"account_number": account.AccountNumberMasked,
	}, userID.String())
	s.logger.InfoContext(ctx, "payout account verified", "user_id", userID.String(), "bank_code", account.BankCode)
	return account, nil
}

func (s *Service) GetAccount(ctx context.Context, userID domain.UserID) (*models.PayoutAccount, error) {
	a, err := s.accounts.FindByUserID(ctx, userID)
	if errors.Is(err, sentinel.ErrNotFound) {
		return nil, dErrors.New(dErrors.CodeNotFound, "payout account not found")
	}
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load payout account")
	}
	return a, nil
}

// FindVerified returns the account settlement pays into.
func (s *Service) FindVerified(ctx context.Context, userID domain.UserID) (*models.PayoutAccount, error) {
	a, err := s.accounts.FindByUserID(ctx, userID)
	if errors.Is(err, sentinel.ErrNotFound) {
		return nil, dErrors.New(dErrors.CodeAccountNotVerified, "leader has no verified payout account")
	}
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load payout account")
	}
	return a, nil
}
