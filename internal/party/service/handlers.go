package service

import (
	"context"

	"moa/internal/outbox"
	"moa/pkg/domain"
)

// RegisterHandlers subscribes the party lifecycle to the events it reacts to.
func (s *Service) RegisterHandlers(d *outbox.Dispatcher) {
	d.Register(outbox.TypePaymentFinalFailed, outbox.HandlerFunc(s.handlePaymentFinalFailed))
	d.Register(outbox.TypeJoinCompensated, outbox.HandlerFunc(s.handleJoinCompensated))
}

func (s *Service) handlePaymentFinalFailed(ctx context.Context, evt outbox.Event) error {
	var payload outbox.PaymentFinalFailed
	if err := evt.Decode(&payload); err != nil {
		return err
	}
	partyID, err := domain.ParsePartyID(payload.PartyID)
	if err != nil {
		return err
	}
	userID, err := domain.ParseUserID(payload.UserID)
	if err != nil {
		return err
	}
	_, err = s.ForceWithdraw(ctx, partyID, userID, ReasonPaymentFailed)
	return err
}

func (s *Service) handleJoinCompensated(ctx context.Context, evt outbox.Event) error {
	var payload outbox.JoinCompensated
	if err := evt.Decode(&payload); err != nil {
		return err
	}
	membershipID, err := domain.ParseMembershipID(payload.MembershipID)
	if err != nil {
		return err
	}
	return s.AbandonPendingJoin(ctx, membershipID)
}
