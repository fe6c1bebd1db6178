package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"moa/internal/deposit/models"
	"moa/internal/gateway"
	"moa/internal/outbox"
	dErrors "moa/pkg/domain-errors"
	"moa/pkg/platform/batch"
	"moa/pkg/platform/sentinel"
	txcontext "moa/pkg/platform/tx"
)

// ProcessDueRetries replays every REFUND and COMPENSATION record due within
// the current hour. Each record is claimed first so concurrent runs never
// replay the same one, and a failing record never stops the batch.
func (s *Service) ProcessDueRetries(ctx context.Context) (batch.Result, error) {
	now := s.now()
	hourEnd := now.Truncate(time.Hour).Add(time.Hour)
	staleBefore := now.Add(-s.staleAfter)
	due, err := s.retries.ListDue(ctx, hourEnd, staleBefore, s.batchSize)
	if err != nil {
		return batch.Result{}, dErrors.Wrap(err, dErrors.CodeInternal, "failed to list due deposit retries")
	}
	return batch.Each(ctx, due, func(ctx context.Context, r *models.Retry) error {
		claimed, err := s.retries.Claim(ctx, r.ID, hourEnd, now, staleBefore)
		if err != nil {
			return err
		}
		if !claimed {
			return batch.ErrSkipped
		}
		return s.replay(ctx, r)
	}, func(r *models.Retry, err error) {
		s.logger.WarnContext(ctx, "deposit retry attempt failed",
			"retry_id", r.ID.String(),
			"deposit_id", r.DepositID.String(),
			"retry_type", string(r.Type),
			"error", err,
		)
	})
}

func (s *Service) replay(ctx context.Context, r *models.Retry) error {
	d, err := s.deposits.FindByID(ctx, r.DepositID)
	if errors.Is(err, sentinel.ErrNotFound) {
		return s.finishRetry(ctx, r)
	}
	if err != nil {
		return s.failRetry(ctx, r, err)
	}
	switch r.Type {
	case models.RetryRefund:
		return s.replayRefund(ctx, r, d)
	case models.RetryCompensation:
		return s.replayCompensation(ctx, r, d)
	default:
		return s.failRetry(ctx, r, dErrors.Newf(dErrors.CodeInternal, "unknown retry type %q", r.Type))
	}
}

func (s *Service) replayRefund(ctx context.Context, r *models.Retry, d *models.Deposit) error {
	if d.Status != models.StatusPaid {
		return s.finishRetry(ctx, r)
	}
	if _, err := s.gateway.CancelPayment(ctx, gateway.CancelRequest{
		PaymentRef: d.GatewayRef,
		Reason:     r.Reason,
		Amount:     d.Amount,
	}); err != nil {
		return s.failRetry(ctx, r, err)
	}
	if err := s.completeRefund(ctx, d, r.Reason); err != nil {
		s.recordRetry(ctx, d, models.RetryCompensation, CompensationRefund, err)
	}
	return s.finishRetry(ctx, r)
}

// replayCompensation settles a gateway side effect the ledger missed.
//
// CompensationJoin: the member was charged but the join never committed. A
// still PENDING deposit means the money must go back: the whole charge is
// cancelled, the stale deposit is deleted and the party is told to drop the
// pending membership. A PAID deposit means the join did commit after all.
//
// CompensationRefund: the gateway refunded but the deposit is still PAID, so
// only the ledger moves.
func (s *Service) replayCompensation(ctx context.Context, r *models.Retry, d *models.Deposit) error {
	switch r.Reason {
	case CompensationJoin:
		if d.Status != models.StatusPending {
			return s.finishRetry(ctx, r)
		}
		if _, err := s.gateway.CancelPayment(ctx, gateway.CancelRequest{
			PaymentRef: r.GatewayRef,
			Reason:     ReasonJoinAborted,
			Amount:     r.Amount,
		}); err != nil {
			return s.failRetry(ctx, r, err)
		}
		err := s.tx.RunInTx(ctx, func(ctx context.Context) error {
			if err := s.deposits.DeletePending(ctx, d.ID); err != nil {
				return err
			}
			evt, err := outbox.New(outbox.AggregateDeposit, d.ID.String(), outbox.TypeJoinCompensated, outbox.JoinCompensated{
				DepositID:    d.ID.String(),
				PartyID:      d.PartyID.String(),
				MembershipID: d.MembershipID.String(),
				UserID:       d.UserID.String(),
				Amount:       r.Amount,
			}, s.now())
			if err != nil {
				return err
			}
			return s.events.Append(ctx, evt)
		})
		if err != nil {
			return s.failRetry(ctx, r, err)
		}
		return s.finishRetry(ctx, r)

	case CompensationRefund:
		if d.Status == models.StatusPaid {
			if err := s.completeRefund(ctx, d, ReasonReconciled); err != nil {
				return s.failRetry(ctx, r, err)
			}
		}
		return s.finishRetry(ctx, r)

	default:
		return s.failRetry(ctx, r, dErrors.Newf(dErrors.CodeInternal, "unknown compensation reason %q", r.Reason))
	}
}

func (s *Service) finishRetry(ctx context.Context, r *models.Retry) error {
	r.ApplySuccess(s.now())
	if err := s.retries.Save(txcontext.Detach(ctx), r); err != nil {
		return dErrors.Wrap(err, dErrors.CodeInternal, "failed to save deposit retry")
	}
	return nil
}

// failRetry records a failed attempt. On the last allowed attempt the record
// becomes FAILED and an operator alert is raised.
func (s *Service) failRetry(ctx context.Context, r *models.Retry, cause error) error {
	now := s.now()
	exhausted := r.ApplyFailure(gateway.CodeOf(cause), causeMessage(cause), now)
	detached := txcontext.Detach(ctx)
	if err := s.retries.Save(detached, r); err != nil {
		s.logger.ErrorContext(ctx, "failed to save deposit retry", "retry_id", r.ID.String(), "error", err)
		return errors.Join(cause, err)
	}
	if exhausted {
		s.alertExhausted(detached, r)
	}
	return cause
}

func (s *Service) alertExhausted(ctx context.Context, r *models.Retry) {
	kind := "deposit_" + strings.ToLower(string(r.Type))
	s.metrics.IncRetryExhausted(kind)
	s.logger.ErrorContext(ctx, "deposit retry exhausted, operator action required",
		"retry_id", r.ID.String(),
		"deposit_id", r.DepositID.String(),
		"retry_type", string(r.Type),
		"gateway_ref", r.GatewayRef,
		"amount", r.Amount,
		"error_code", r.ErrorCode,
		"error_message", r.ErrorMessage,
	)
	evt, err := outbox.New(outbox.AggregateDeposit, r.DepositID.String(), outbox.TypeDepositRetryExhausted, outbox.LedgerChange{
		Amount: r.Amount,
		Reason: string(r.Type) + ":" + r.ErrorCode,
	}, s.now())
	if err == nil {
		err = s.events.Append(ctx, evt)
	}
	if err != nil {
		s.logger.ErrorContext(ctx, "failed to record retry exhaustion event", "retry_id", r.ID.String(), "error", err)
	}
}
