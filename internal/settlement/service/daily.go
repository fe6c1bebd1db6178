package service

import (
	"context"
	"time"

	partymodels "moa/internal/party/models"
	"moa/internal/settlement/models"
	"moa/pkg/domain"
	dErrors "moa/pkg/domain-errors"
	"moa/pkg/platform/batch"
)

// RunDailySettlement first retries every PENDING or FAILED settlement, then
// settles the cycle that ended yesterday for each party whose new cycle
// starts today. Parties closed during that cycle are still settled.
func (s *Service) RunDailySettlement(ctx context.Context, now time.Time) (batch.Result, error) {
	var total batch.Result

	redriven, err := s.redrive(ctx)
	total.Add(redriven)
	if err != nil {
		return total, err
	}

	today := domain.DateOf(now.In(s.location))
	closedSince := time.Date(today.Year(), today.Month()-1, today.Day()-1, 0, 0, 0, 0, s.location)
	parties, err := s.parties.ListSettleable(ctx, today, closedSince)
	if err != nil {
		return total, dErrors.Wrap(err, dErrors.CodeInternal, "failed to list settleable parties")
	}
	created, err := batch.Each(ctx, parties, func(ctx context.Context, p *partymodels.Party) error {
		month := domain.CycleMonthOf(p.StartDay(), today).Prev()
		st, err := s.CreateMonthlySettlement(ctx, p.ID, month)
		if dErrors.HasCode(err, dErrors.CodeDuplicateSettle) {
			return batch.ErrSkipped
		}
		if err != nil {
			return err
		}
		if st == nil {
			return batch.ErrSkipped
		}
		_, err = s.CompleteSettlement(ctx, st.ID)
		return skipAwaitingAccount(err)
	}, func(p *partymodels.Party, err error) {
		s.logger.WarnContext(ctx, "party settlement failed",
			"party_id", p.ID.String(),
			"error", err,
		)
	})
	total.Add(created)
	return total, err
}

func (s *Service) redrive(ctx context.Context) (batch.Result, error) {
	open, err := s.settlements.ListByStatus(ctx, []models.Status{models.StatusPending, models.StatusFailed}, s.batchSize)
	if err != nil {
		return batch.Result{}, dErrors.Wrap(err, dErrors.CodeInternal, "failed to list open settlements")
	}
	return batch.Each(ctx, open, func(ctx context.Context, st *models.Settlement) error {
		_, err := s.CompleteSettlement(ctx, st.ID)
		return skipAwaitingAccount(err)
	}, func(st *models.Settlement, err error) {
		s.logger.WarnContext(ctx, "settlement retry failed",
			"settlement_id", st.ID.String(),
			"party_id", st.PartyID.String(),
			"error", err,
		)
	})
}

// A leader without a verified account is not a failure; the settlement stays
// PENDING until the account is verified.
func skipAwaitingAccount(err error) error {
	if dErrors.HasCode(err, dErrors.CodeAccountNotVerified) {
		return batch.ErrSkipped
	}
	return err
}
