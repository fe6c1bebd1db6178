package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"moa/internal/deposit/models"
	"moa/internal/gateway"
	"moa/internal/notification"
	"moa/internal/outbox"
	"moa/pkg/domain"
	dErrors "moa/pkg/domain-errors"
	"moa/pkg/platform/sentinel"
	txcontext "moa/pkg/platform/tx"
)

// RefundDeposit cancels the deposit charge and marks the deposit REFUNDED.
//
// When the gateway rejects the cancel, a REFUND retry is recorded and the
// error is returned with CodePaymentFailed; the deposit stays PAID. When the
// gateway cancelled but the ledger write failed, a COMPENSATION record is
// written so the ledger catches up later.
func (s *Service) RefundDeposit(ctx context.Context, id domain.DepositID, reason string) (*models.Deposit, error) {
	d, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := d.CanRefund(); err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInvalidState, "deposit cannot be refunded")
	}

	if _, err := s.gateway.CancelPayment(ctx, gateway.CancelRequest{
		PaymentRef: d.GatewayRef,
		Reason:     reason,
		Amount:     d.Amount,
	}); err != nil {
		s.recordRetry(ctx, d, models.RetryRefund, reason, err)
		return nil, dErrors.Wrap(err, dErrors.CodePaymentFailed, "deposit refund failed, retry scheduled")
	}

	if err := s.completeRefund(ctx, d, reason); err != nil {
		s.recordRetry(ctx, d, models.RetryCompensation, CompensationRefund, err)
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "deposit refunded at gateway but not recorded")
	}
	s.notifier.Notify(ctx, d.UserID, notification.TemplateDepositRefunded, map[string]string{
		"amount": fmt.Sprint(d.Amount),
		"reason": reason,
	}, "deposit:"+d.ID.String())
	return d, nil
}

func (s *Service) completeRefund(ctx context.Context, d *models.Deposit, reason string) error {
	now := s.now()
	err := s.tx.RunInTx(ctx, func(ctx context.Context) error {
		if err := s.deposits.MarkRefunded(ctx, d.ID, reason, now); err != nil {
			return err
		}
		d.ApplyRefund(reason, now)
		return s.appendEvent(ctx, outbox.TypeDepositRefunded, d, reason)
	})
	if err != nil {
		return err
	}
	s.metrics.IncDepositTransition(string(models.StatusRefunded))
	return nil
}

// ForfeitDeposit keeps a PAID deposit for the party leader. No money moves.
func (s *Service) ForfeitDeposit(ctx context.Context, id domain.DepositID, reason string) (*models.Deposit, error) {
	d, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := d.CanForfeit(); err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInvalidState, "deposit cannot be forfeited")
	}
	now := s.now()
	err = s.tx.RunInTx(ctx, func(ctx context.Context) error {
		if err := s.deposits.MarkForfeited(ctx, id, reason, now); err != nil {
			return s.translateTransition(err, "failed to forfeit deposit")
		}
		d.ApplyForfeit(reason, now)
		return s.appendEvent(ctx, outbox.TypeDepositForfeited, d, reason)
	})
	if err != nil {
		return nil, err
	}
	s.metrics.IncDepositTransition(string(models.StatusForfeited))
	s.notifier.Notify(ctx, d.UserID, notification.TemplateDepositForfeited, map[string]string{
		"amount": fmt.Sprint(d.Amount),
		"reason": reason,
	}, "deposit:"+d.ID.String())
	return d, nil
}

// ForfeitForMembership forfeits the membership's deposit if it is still PAID.
// A missing or already settled deposit is not an error, so repeated calls are
// harmless.
func (s *Service) ForfeitForMembership(ctx context.Context, membershipID domain.MembershipID, reason string) (*models.Deposit, error) {
	d, err := s.deposits.FindByMembership(ctx, membershipID)
	if errors.Is(err, sentinel.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load deposit")
	}
	if d.Status != models.StatusPaid {
		return d, nil
	}
	return s.ForfeitDeposit(ctx, d.ID, reason)
}

// ProcessWithdrawalRefund applies the voluntary-leave policy to a deposit:
// refund when the party starts at least the cutoff number of days from today,
// forfeit otherwise. A refund the gateway rejects is reported as
// DispositionRefundScheduled, not as an error.
func (s *Service) ProcessWithdrawalRefund(ctx context.Context, id domain.DepositID, partyStart time.Time) (models.Disposition, error) {
	switch models.WithdrawalDisposition(s.today(), partyStart, s.cutoffDays) {
	case models.DispositionRefunded:
		if _, err := s.RefundDeposit(ctx, id, ReasonVoluntaryLeave); err != nil {
			if dErrors.HasCode(err, dErrors.CodePaymentFailed) {
				return models.DispositionRefundScheduled, nil
			}
			return "", err
		}
		return models.DispositionRefunded, nil
	default:
		if _, err := s.ForfeitDeposit(ctx, id, ReasonVoluntaryLeave); err != nil {
			return "", err
		}
		return models.DispositionForfeited, nil
	}
}

// ResolveForClosure refunds every PAID deposit of a closing party. It returns
// how many are still PAID afterwards; the party may close only at zero.
// Deposits that already have a refund retry pending are left to the retry
// driver.
func (s *Service) ResolveForClosure(ctx context.Context, partyID domain.PartyID) (int, error) {
	paid, err := s.deposits.ListPaidByParty(ctx, partyID)
	if err != nil {
		return 0, dErrors.Wrap(err, dErrors.CodeInternal, "failed to list paid deposits")
	}
	remaining := 0
	for _, d := range paid {
		pending, err := s.hasPendingRetry(ctx, d.ID)
		if err != nil {
			return 0, err
		}
		if pending {
			remaining++
			continue
		}
		if _, err := s.RefundDeposit(ctx, d.ID, ReasonPartyClosed); err != nil {
			s.logger.WarnContext(ctx, "closure refund failed",
				"party_id", partyID.String(),
				"deposit_id", d.ID.String(),
				"error", err,
			)
			remaining++
		}
	}
	return remaining, nil
}

// CountPaid returns how many deposits of the party are still PAID.
func (s *Service) CountPaid(ctx context.Context, partyID domain.PartyID) (int, error) {
	paid, err := s.deposits.ListPaidByParty(ctx, partyID)
	if err != nil {
		return 0, dErrors.Wrap(err, dErrors.CodeInternal, "failed to list paid deposits")
	}
	return len(paid), nil
}

// RecordCompensation durably notes that the gateway charged for a join whose
// ledger write failed. It commits on its own, independent of ctx's
// transaction.
func (s *Service) RecordCompensation(ctx context.Context, id domain.DepositID, gatewayRef string, amount int64, cause error) error {
	r := models.NewRetry(id, models.RetryCompensation, gatewayRef, amount, CompensationJoin,
		gateway.CodeOf(cause), causeMessage(cause), s.now())
	if err := s.retries.Create(txcontext.Detach(ctx), r); err != nil && !errors.Is(err, sentinel.ErrConflict) {
		s.logger.ErrorContext(ctx, "failed to record join compensation",
			"deposit_id", id.String(),
			"gateway_ref", gatewayRef,
			"amount", amount,
			"error", err,
		)
		return dErrors.Wrap(err, dErrors.CodeInternal, "failed to record compensation")
	}
	s.logger.WarnContext(ctx, "join compensation recorded",
		"deposit_id", id.String(),
		"gateway_ref", gatewayRef,
		"amount", amount,
	)
	return nil
}

func (s *Service) recordRetry(ctx context.Context, d *models.Deposit, typ models.RetryType, reason string, cause error) {
	r := models.NewRetry(d.ID, typ, d.GatewayRef, d.Amount, reason, gateway.CodeOf(cause), causeMessage(cause), s.now())
	err := s.retries.Create(txcontext.Detach(ctx), r)
	switch {
	case errors.Is(err, sentinel.ErrConflict):
		s.logger.InfoContext(ctx, "deposit retry already pending", "deposit_id", d.ID.String(), "retry_type", string(typ))
	case err != nil:
		s.logger.ErrorContext(ctx, "failed to record deposit retry",
			"deposit_id", d.ID.String(),
			"retry_type", string(typ),
			"gateway_ref", d.GatewayRef,
			"amount", d.Amount,
			"error", err,
		)
	default:
		s.logger.WarnContext(ctx, "deposit retry scheduled",
			"deposit_id", d.ID.String(),
			"retry_type", string(typ),
			"next_retry_at", r.NextRetryAt,
			"cause", cause,
		)
	}
}

func (s *Service) hasPendingRetry(ctx context.Context, id domain.DepositID) (bool, error) {
	retries, err := s.retries.ListByDeposit(ctx, id)
	if err != nil {
		return false, dErrors.Wrap(err, dErrors.CodeInternal, "failed to list deposit retries")
	}
	for _, r := range retries {
		if r.Status == models.RetryStatusPending {
			return true, nil
		}
	}
	return false, nil
}

func causeMessage(err error) string {
	if err == nil {
		return ""
	}
	return gateway.MessageOf(err)
}
