package service

import (
	"context"
	"errors"

	depositmodels "moa/internal/deposit/models"
	"moa/internal/notification"
	"moa/internal/outbox"
	"moa/internal/party/models"
	"moa/pkg/domain"
	dErrors "moa/pkg/domain-errors"
	"moa/pkg/platform/sentinel"
)

// LeaveParty withdraws a member voluntarily. The seat is released at once;
// the deposit is refunded or forfeited depending on how close the party
// start is, and the INITIAL payment is refunded when the party has not
// started yet.
//
// The withdrawal commits before any money moves. When a refund step fails
// afterwards the result is returned together with the error.
func (s *Service) LeaveParty(ctx context.Context, partyID domain.PartyID, userID domain.UserID) (*models.LeaveResult, error) {
	p, err := s.loadParty(ctx, partyID)
	if err != nil {
		return nil, err
	}
	if p.IsLeader(userID) {
		return nil, dErrors.New(dErrors.CodeLeaderCannotLeave, "the leader cannot leave the party")
	}
	m, err := s.memberships.FindOpen(ctx, partyID, userID)
	if err != nil {
		return nil, s.translateMembership(err)
	}
	if err := m.CanWithdraw(); err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInvalidState, "membership cannot leave")
	}

	if err := s.withdraw(ctx, p, m, models.WithdrawReasonVoluntary); err != nil {
		return nil, s.translate(err, "failed to withdraw membership")
	}
	s.metrics.IncWithdrawal(models.WithdrawReasonVoluntary)

	result := &models.LeaveResult{Membership: m, Deposit: models.DepositNone}
	var errs []error
	if m.DepositID != nil {
		disposition, err := s.deposits.ProcessWithdrawalRefund(ctx, *m.DepositID, p.StartDate)
		if err != nil {
			errs = append(errs, err)
		} else {
			result.Deposit = depositOutcome(disposition)
		}
	}
	if !p.HasStarted(s.today()) {
		if err := s.payments.RefundPayment(ctx, p.ID, m.ID, ReasonVoluntaryLeave); err != nil {
			errs = append(errs, err)
		} else {
			result.InitialRefunded = true
		}
	}

	s.notifier.Notify(ctx, p.LeaderID, notification.TemplateMemberLeft,
		map[string]string{"party_id": p.ID.String()}, m.ID.String())
	s.logger.InfoContext(ctx, "member left",
		"party_id", p.ID.String(),
		"membership_id", m.ID.String(),
		"deposit", string(result.Deposit),
		"initial_refunded", result.InitialRefunded,
	)
	if len(errs) > 0 {
		s.logger.ErrorContext(ctx, "member left but refunds are incomplete",
			"party_id", p.ID.String(),
			"membership_id", m.ID.String(),
			"error", errors.Join(errs...),
		)
		return result, errs[0]
	}
	return result, nil
}

// ForceWithdraw removes a member whose monthly payment failed for good. The
// deposit is forfeited, never refunded. Every step tolerates having run
// before, so redelivered events are harmless.
func (s *Service) ForceWithdraw(ctx context.Context, partyID domain.PartyID, userID domain.UserID, reason string) (*models.Membership, error) {
	p, err := s.loadParty(ctx, partyID)
	if err != nil {
		return nil, err
	}
	m, err := s.memberships.FindOpen(ctx, partyID, userID)
	if errors.Is(err, sentinel.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, s.translateMembership(err)
	}
	if m.IsLeader() {
		return nil, dErrors.New(dErrors.CodeLeaderCannotLeave, "the leader cannot be force-withdrawn")
	}
	if !m.IsActive() {
		return nil, nil
	}

	if _, err := s.deposits.ForfeitForMembership(ctx, m.ID, reason); err != nil {
		return nil, err
	}
	if err := s.withdraw(ctx, p, m, models.WithdrawReasonPaymentFailed); err != nil {
		if errors.Is(err, sentinel.ErrInvalidState) {
			return nil, nil
		}
		return nil, s.translate(err, "failed to force-withdraw membership")
	}
	s.metrics.IncWithdrawal(models.WithdrawReasonPaymentFailed)

	params := map[string]string{"party_id": p.ID.String(), "reason": reason}
	s.notifier.Notify(ctx, m.UserID, notification.TemplateForceWithdrawn, params, m.ID.String())
	s.notifier.Notify(ctx, p.LeaderID, notification.TemplateMemberRemoved, params, m.ID.String())
	s.logger.WarnContext(ctx, "member force-withdrawn",
		"party_id", p.ID.String(),
		"membership_id", m.ID.String(),
		"reason", reason,
	)
	return m, nil
}

// withdraw marks m WITHDRAWN and releases its seat in one unit of work.
func (s *Service) withdraw(ctx context.Context, p *models.Party, m *models.Membership, reason string) error {
	now := s.now()
	return s.tx.RunInTx(ctx, func(ctx context.Context) error {
		if err := s.memberships.Withdraw(ctx, m.ID, reason, now); err != nil {
			return err
		}
		released, err := s.parties.ReleaseSeat(ctx, p.ID, now)
		if err != nil {
			return err
		}
		*p = *released
		m.ApplyWithdrawal(reason, now)
		return s.appendEvent(ctx, outbox.TypeMemberWithdrawn, p, m, reason)
	})
}

func depositOutcome(d depositmodels.Disposition) models.DepositOutcome {
	switch d {
	case depositmodels.DispositionRefunded:
		return models.DepositRefunded
	case depositmodels.DispositionForfeited:
		return models.DepositForfeited
	case depositmodels.DispositionRefundScheduled:
		return models.DepositRefundScheduled
	default:
		return models.DepositNone
	}
}
