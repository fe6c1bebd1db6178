package service

import (
	"context"
	"errors"
	"strconv"

	depositmodels "moa/internal/deposit/models"
	"moa/internal/gateway"
	"moa/internal/notification"
	"moa/internal/outbox"
	"moa/internal/party/models"
	paymentmodels "moa/internal/payment/models"
	"moa/pkg/domain"
	dErrors "moa/pkg/domain-errors"
	"moa/pkg/platform/sentinel"
)

// JoinParty adds a member to a recruiting party.
//
// The seat, the pending membership and the pending deposit are written in one
// unit of work before the combined deposit and first-month charge is
// confirmed. A declined charge releases all three. A confirmed charge is
// recorded in a second unit of work under the party row lock; if that fails,
// or the party started closing meanwhile, the charge is handed to the deposit
// compensation sweep, which refunds it and releases the seat.
func (s *Service) JoinParty(ctx context.Context, req models.JoinRequest) (*models.Membership, error) {
	req.Normalize()
	if err := req.Validate(); err != nil {
		return nil, err
	}
	p, err := s.loadParty(ctx, req.PartyID)
	if err != nil {
		return nil, err
	}
	if err := p.CanAcceptMembers(); err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInvalidState, "party is not recruiting")
	}
	if p.IsLeader(req.UserID) {
		return nil, dErrors.New(dErrors.CodeConflict, "the leader is already a member")
	}
	if req.Amount != p.JoinAmount() {
		return nil, dErrors.Newf(dErrors.CodeValidation, "join amount must be %d", p.JoinAmount())
	}
	if _, err := s.memberships.FindOpen(ctx, p.ID, req.UserID); err == nil {
		return nil, dErrors.New(dErrors.CodeConflict, "user already joined this party")
	} else if !errors.Is(err, sentinel.ErrNotFound) {
		return nil, s.translateMembership(err)
	}

	m := models.NewMemberMembership(p.ID, req.UserID, s.now())
	var deposit *depositmodels.Deposit
	err = s.tx.RunInTx(ctx, func(ctx context.Context) error {
		reserved, err := s.parties.ReserveSeat(ctx, p.ID, s.now())
		if err != nil {
			return err
		}
		p = reserved
		if err := s.memberships.Create(ctx, m); err != nil {
			return err
		}
		deposit, err = s.deposits.OpenPending(ctx, depositmodels.OpenRequest{
			PartyID:      p.ID,
			MembershipID: m.ID,
			UserID:       req.UserID,
			Amount:       p.DepositAmount(),
			OrderID:      req.OrderID,
		})
		return err
	})
	if err != nil {
		s.metrics.IncJoin("rejected")
		return nil, s.translate(err, "failed to reserve seat")
	}

	receipt, err := s.gateway.ConfirmPayment(ctx, gateway.ConfirmRequest{
		PaymentRef: req.PaymentRef,
		OrderID:    req.OrderID,
		Amount:     req.Amount,
	})
	if err != nil {
		s.abortJoin(ctx, p, m, deposit)
		s.metrics.IncJoin("payment_failed")
		return nil, dErrors.Wrap(err, dErrors.CodePaymentFailed, "join payment declined")
	}

	started := false
	err = s.tx.RunInTx(ctx, func(ctx context.Context) error {
		locked, err := s.parties.FindByIDForUpdate(ctx, p.ID)
		if err != nil {
			return err
		}
		if !locked.Status.IsRunning() {
			return dErrors.Newf(dErrors.CodeInvalidState, "party is %s, join cannot complete", locked.Status)
		}
		p = locked
		if _, err := s.deposits.ConfirmPaid(ctx, deposit.ID, receipt.PaymentRef); err != nil {
			return err
		}
		if _, err := s.payments.RecordInitialPayment(ctx, paymentmodels.InitialRequest{
			PartyID:      p.ID,
			MembershipID: m.ID,
			UserID:       req.UserID,
			Amount:       p.MonthlyFee,
			TargetMonth:  p.FirstCycleMonth(s.now().In(s.location)),
			GatewayRef:   receipt.PaymentRef,
			OrderID:      req.OrderID,
		}); err != nil {
			return err
		}
		if err := s.memberships.Activate(ctx, m.ID, deposit.ID); err != nil {
			return err
		}
		m.ApplyActivation(deposit.ID)
		if err := s.appendEvent(ctx, outbox.TypeMemberJoined, p, m, ""); err != nil {
			return err
		}
		started, err = s.startIfFull(ctx, p)
		return err
	})
	if err != nil {
		if compErr := s.deposits.RecordCompensation(ctx, deposit.ID, receipt.PaymentRef, req.Amount, err); compErr != nil {
			s.logger.ErrorContext(ctx, "join charged but not recorded",
				"party_id", p.ID.String(),
				"membership_id", m.ID.String(),
				"gateway_ref", receipt.PaymentRef,
				"error", compErr,
			)
		}
		s.metrics.IncJoin("compensated")
		return nil, s.translate(err, "failed to record join")
	}

	s.metrics.IncJoin("success")
	s.logger.InfoContext(ctx, "member joined",
		"party_id", p.ID.String(),
		"membership_id", m.ID.String(),
		"user_id", req.UserID.String(),
	)
	s.notifier.Notify(ctx, p.LeaderID, notification.TemplateMemberJoined,
		map[string]string{"party_id": p.ID.String()}, m.ID.String())
	if started {
		s.announceStart(ctx, p)
	}
	return m, nil
}

// startIfFull moves a recruiting party to ACTIVE once every seat is held by
// an ACTIVE membership. The caller holds the party row lock, so concurrent
// final joins count one after the other and the last one sees every seat.
func (s *Service) startIfFull(ctx context.Context, p *models.Party) (bool, error) {
	active, err := s.memberships.CountActive(ctx, p.ID)
	if err != nil {
		return false, err
	}
	if active < p.MaxMembers {
		return false, nil
	}
	now := s.now()
	err = s.parties.UpdateStatus(ctx, p.ID, models.PartyStatusRecruiting, models.PartyStatusActive, now)
	if errors.Is(err, sentinel.ErrInvalidState) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	p.Status = models.PartyStatusActive
	p.UpdatedAt = now
	return true, s.appendEvent(ctx, outbox.TypePartyStarted, p, nil, "")
}

func (s *Service) announceStart(ctx context.Context, p *models.Party) {
	members, err := s.memberships.ListActive(ctx, p.ID)
	if err != nil {
		s.logger.WarnContext(ctx, "party started but members could not be listed for notification",
			"party_id", p.ID.String(),
			"error", err,
		)
		return
	}
	s.logger.InfoContext(ctx, "party started", "party_id", p.ID.String(), "members", len(members))
	notification.NotifyAll(ctx, s.notifier, memberIDs(members), notification.TemplatePartyStarted, map[string]string{
		"party_id":    p.ID.String(),
		"start_date":  p.StartDate.Format("2006-01-02"),
		"monthly_fee": strconv.FormatInt(p.MonthlyFee, 10),
	}, p.ID.String())
}

// abortJoin undoes the first unit of work of a join whose charge was
// declined. Nothing was charged, so a failure here only leaves a stale
// pending membership behind, which is logged.
func (s *Service) abortJoin(ctx context.Context, p *models.Party, m *models.Membership, d *depositmodels.Deposit) {
	err := s.tx.RunInTx(ctx, func(ctx context.Context) error {
		if err := s.deposits.Discard(ctx, d.ID); err != nil {
			return err
		}
		if err := s.memberships.DeletePending(ctx, m.ID); err != nil {
			return err
		}
		_, err := s.parties.ReleaseSeat(ctx, p.ID, s.now())
		return err
	})
	if err != nil {
		s.logger.ErrorContext(ctx, "failed to release seat of declined join",
			"party_id", p.ID.String(),
			"membership_id", m.ID.String(),
			"error", err,
		)
	}
}

// AbandonPendingJoin releases the seat of a join whose charge the deposit
// compensation sweep refunded. Memberships that are no longer pending are
// left alone, so redelivery is harmless.
func (s *Service) AbandonPendingJoin(ctx context.Context, membershipID domain.MembershipID) error {
	m, err := s.memberships.FindByID(ctx, membershipID)
	if errors.Is(err, sentinel.ErrNotFound) {
		return nil
	}
	if err != nil {
		return dErrors.Wrap(err, dErrors.CodeInternal, "failed to load membership")
	}
	if m.Status != models.MembershipStatusPendingPayment || m.IsLeader() {
		return nil
	}
	err = s.tx.RunInTx(ctx, func(ctx context.Context) error {
		if err := s.memberships.DeletePending(ctx, m.ID); err != nil {
			return err
		}
		_, err := s.parties.ReleaseSeat(ctx, m.PartyID, s.now())
		return err
	})
	if errors.Is(err, sentinel.ErrInvalidState) {
		return nil
	}
	if err != nil {
		return dErrors.Wrap(err, dErrors.CodeInternal, "failed to abandon pending join")
	}
	s.logger.InfoContext(ctx, "pending join abandoned",
		"party_id", m.PartyID.String(),
		"membership_id", m.ID.String(),
	)
	return nil
}
