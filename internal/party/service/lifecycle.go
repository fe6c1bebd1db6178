package service

import (
	"context"
	"errors"

	"moa/internal/notification"
	"moa/internal/outbox"
	"moa/internal/party/models"
	"moa/pkg/domain"
	dErrors "moa/pkg/domain-errors"
	"moa/pkg/platform/batch"
	"moa/pkg/platform/sentinel"
)

// CloseParty closes a party on the leader's request.
func (s *Service) CloseParty(ctx context.Context, partyID domain.PartyID, actorID domain.UserID) (*models.Party, error) {
	p, err := s.loadParty(ctx, partyID)
	if err != nil {
		return nil, err
	}
	if !p.IsLeader(actorID) {
		return nil, dErrors.New(dErrors.CodeNotLeader, "only the leader can close the party")
	}
	if err := s.closeParty(ctx, p, ReasonLeaderClosed); err != nil {
		return nil, err
	}
	return p, nil
}

// CloseExpiredParties closes every party whose end date has passed. A party
// with deposits still awaiting a refund stays open until a later run.
func (s *Service) CloseExpiredParties(ctx context.Context) (batch.Result, error) {
	expired, err := s.parties.ListExpired(ctx, s.today())
	if err != nil {
		return batch.Result{}, dErrors.Wrap(err, dErrors.CodeInternal, "failed to list expired parties")
	}
	return batch.Each(ctx, expired, func(ctx context.Context, p *models.Party) error {
		err := s.closeParty(ctx, p, ReasonPartyExpired)
		if dErrors.HasCode(err, dErrors.CodeInvalidState) {
			return batch.ErrSkipped
		}
		return err
	}, func(p *models.Party, err error) {
		s.logger.WarnContext(ctx, "expired party not closed",
			"party_id", p.ID.String(),
			"error", err,
		)
	})
}

// CancelExpiredPendingParties closes parties whose leader never paid the
// deposit within the pending timeout. No money has moved for them.
func (s *Service) CancelExpiredPendingParties(ctx context.Context) (batch.Result, error) {
	cutoff := s.now().Add(-s.pendingTimeout)
	stale, err := s.parties.ListPendingPaymentBefore(ctx, cutoff)
	if err != nil {
		return batch.Result{}, dErrors.Wrap(err, dErrors.CodeInternal, "failed to list pending parties")
	}
	return batch.Each(ctx, stale, func(ctx context.Context, p *models.Party) error {
		now := s.now()
		err := s.tx.RunInTx(ctx, func(ctx context.Context) error {
			if err := s.parties.UpdateStatus(ctx, p.ID, models.PartyStatusPendingPayment, models.PartyStatusClosed, now); err != nil {
				return err
			}
			p.ApplyClose(now)
			return s.appendEvent(ctx, outbox.TypePartyClosed, p, nil, ReasonPaymentTimeout)
		})
		if errors.Is(err, sentinel.ErrInvalidState) {
			return batch.ErrSkipped
		}
		if err != nil {
			return err
		}
		s.logger.InfoContext(ctx, "pending party cancelled", "party_id", p.ID.String())
		return nil
	}, func(p *models.Party, err error) {
		s.logger.WarnContext(ctx, "pending party not cancelled",
			"party_id", p.ID.String(),
			"error", err,
		)
	})
}

// closeParty marks the party CLOSING, which stops new joins, and refunds every
// outstanding deposit. Once none is left PAID the party is CLOSED and its
// members withdrawn in one unit of work. Until then it returns invalid_state
// and the party stays CLOSING for a later run.
func (s *Service) closeParty(ctx context.Context, p *models.Party, reason string) error {
	if err := p.CanClose(); err != nil {
		return dErrors.Wrap(err, dErrors.CodeInvalidState, "party cannot be closed")
	}
	if err := s.parties.MarkClosing(ctx, p.ID, s.now()); err != nil {
		return s.translate(err, "failed to mark party closing")
	}
	p.Status = models.PartyStatusClosing

	remaining, err := s.deposits.ResolveForClosure(ctx, p.ID)
	if err != nil {
		return err
	}
	if remaining > 0 {
		return dErrors.Newf(dErrors.CodeInvalidState, "%d deposits still await a refund", remaining)
	}

	var active []*models.Membership
	now := s.now()
	err = s.tx.RunInTx(ctx, func(ctx context.Context) error {
		locked, err := s.parties.FindByIDForUpdate(ctx, p.ID)
		if err != nil {
			return err
		}
		if locked.Status != models.PartyStatusClosing {
			return sentinel.ErrInvalidState
		}
		paid, err := s.deposits.CountPaid(ctx, p.ID)
		if err != nil {
			return err
		}
		if paid > 0 {
			return dErrors.Newf(dErrors.CodeInvalidState, "%d deposits were paid while the party was closing", paid)
		}
		if err := s.parties.UpdateStatus(ctx, p.ID, models.PartyStatusClosing, models.PartyStatusClosed, now); err != nil {
			return err
		}
		active, err = s.memberships.ListActive(ctx, p.ID)
		if err != nil {
			return err
		}
		for _, m := range active {
			if err := s.memberships.Withdraw(ctx, m.ID, models.WithdrawReasonPartyClosed, now); err != nil {
				return err
			}
		}
		p.ApplyClose(now)
		return s.appendEvent(ctx, outbox.TypePartyClosed, p, nil, reason)
	})
	if err != nil {
		return s.translate(err, "failed to close party")
	}

	notification.NotifyAll(ctx, s.notifier, memberIDs(active), notification.TemplatePartyClosed,
		map[string]string{"party_id": p.ID.String(), "reason": reason}, p.ID.String())
	s.logger.InfoContext(ctx, "party closed",
		"party_id", p.ID.String(),
		"reason", reason,
	)
	return nil
}
