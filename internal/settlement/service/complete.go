package service

import (
	"context"
	"errors"

	"moa/internal/gateway"
	"moa/internal/notification"
	"moa/internal/outbox"
	"moa/internal/settlement/models"
	"moa/pkg/domain"
	dErrors "moa/pkg/domain-errors"
	"moa/pkg/platform/sentinel"
	txcontext "moa/pkg/platform/tx"
)

// CompleteSettlement pays the net amount to the leader's verified account.
//
// The settlement is claimed (PENDING or FAILED -> IN_PROGRESS) before the
// bank is called, so concurrent or repeated runs never transfer twice. A
// FAILED settlement that already carries a bank transaction id is completed
// without calling the bank again.
func (s *Service) CompleteSettlement(ctx context.Context, id domain.SettlementID) (*models.Settlement, error) {
	st, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := st.CanClaim(); err != nil {
		return nil, err
	}
	account, err := s.accounts.FindVerified(ctx, st.LeaderID)
	if err != nil {
		return nil, err
	}

	if st.Transferred() {
		if err := s.reconcile(ctx, st); err != nil {
			return nil, err
		}
		return st, nil
	}

	now := s.now()
	if err := s.settlements.Claim(ctx, st.ID, now); err != nil {
		if errors.Is(err, sentinel.ErrInvalidState) {
			return nil, dErrors.New(dErrors.CodeRetryNotAllowed, "settlement claimed by another run")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to claim settlement")
	}
	st.ApplyClaim(now)

	var bankTxID string
	if st.NetAmount > 0 {
		receipt, err := s.bank.TransferDeposit(ctx, gateway.TransferRequest{
			FintechID: account.FintechID,
			Amount:    st.NetAmount,
			Memo:      "moa settlement " + st.Month.String(),
		})
		if err != nil {
			s.fail(ctx, st, "", gateway.CodeOf(err)+": "+gateway.MessageOf(err))
			return nil, dErrors.Wrap(err, dErrors.CodePaymentFailed, "settlement transfer failed")
		}
		bankTxID = receipt.BankTransactionID
	}

	if err := s.complete(ctx, st, bankTxID); err != nil {
		// The money left. Keep the transaction id so no later run pays again.
		s.fail(ctx, st, bankTxID, "transfer succeeded but completion was not recorded: "+err.Error())
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "settlement transferred but not recorded")
	}
	return st, nil
}

func (s *Service) complete(ctx context.Context, st *models.Settlement, bankTxID string) error {
	now := s.now()
	err := s.tx.RunInTx(ctx, func(ctx context.Context) error {
		if err := s.settlements.MarkCompleted(ctx, st.ID, bankTxID, now); err != nil {
			return err
		}
		return s.appendEvent(ctx, outbox.TypeSettlementCompleted, st, "")
	})
	if err != nil {
		return err
	}
	st.ApplyCompleted(bankTxID, now)

	s.metrics.IncSettlement("completed")
	s.metrics.AddSettledNet(st.NetAmount)
	s.notifier.Notify(ctx, st.LeaderID, notification.TemplateSettlementCompleted, settlementParams(st), st.ID.String())
	s.logger.InfoContext(ctx, "settlement completed",
		"settlement_id", st.ID.String(),
		"party_id", st.PartyID.String(),
		"month", st.Month.String(),
		"net", st.NetAmount,
		"bank_transaction_id", bankTxID,
	)
	return nil
}

// reconcile completes a settlement whose transfer went through on an earlier
// run but whose completion was lost.
func (s *Service) reconcile(ctx context.Context, st *models.Settlement) error {
	err := s.complete(ctx, st, st.BankTransactionID)
	if errors.Is(err, sentinel.ErrInvalidState) {
		return dErrors.New(dErrors.CodeAlreadyCompleted, "settlement already completed")
	}
	if err != nil {
		return dErrors.Wrap(err, dErrors.CodeInternal, "failed to reconcile settlement")
	}
	s.logger.WarnContext(ctx, "settlement reconciled from recorded transfer",
		"settlement_id", st.ID.String(),
		"bank_transaction_id", st.BankTransactionID,
	)
	return nil
}

// fail releases the claim in its own unit of work so the outcome survives a
// rolled back caller.
func (s *Service) fail(ctx context.Context, st *models.Settlement, bankTxID, reason string) {
	detached := txcontext.Detach(ctx)
	now := s.now()
	err := s.tx.RunInTx(detached, func(ctx context.Context) error {
		if err := s.settlements.MarkFailed(ctx, st.ID, bankTxID, reason, now); err != nil {
			return err
		}
		return s.appendEvent(ctx, outbox.TypeSettlementFailed, st, reason)
	})
	if err != nil {
		s.logger.ErrorContext(ctx, "settlement outcome not recorded, operator action required",
			"settlement_id", st.ID.String(),
			"bank_transaction_id", bankTxID,
			"reason", reason,
			"error", err,
		)
		return
	}
	st.ApplyFailed(bankTxID, reason, now)

	s.metrics.IncSettlement("failed")
	s.notifier.Notify(ctx, st.LeaderID, notification.TemplateSettlementFailed, settlementParams(st), st.ID.String())
	s.logger.WarnContext(ctx, "settlement failed",
		"settlement_id", st.ID.String(),
		"party_id", st.PartyID.String(),
		"bank_transaction_id", bankTxID,
		"reason", reason,
	)
}
