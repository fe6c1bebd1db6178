package service

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/google/uuid"

	"moa/internal/gateway"
	"moa/internal/notification"
	"moa/internal/outbox"
	"moa/internal/payment/models"
	"moa/pkg/domain"
	dErrors "moa/pkg/domain-errors"
	"moa/pkg/platform/batch"
	"moa/pkg/platform/sentinel"
	txcontext "moa/pkg/platform/tx"
)

// AttemptPaymentExecution runs charge attempt number attempt for p. A
// declined charge is recorded and returned together with a payment_failed
// error; the returned payment always reflects what was stored.
func (s *Service) AttemptPaymentExecution(ctx context.Context, p *models.Payment, attempt int) (*models.Payment, error) {
	previous, err := s.previousAttempt(ctx, p.ID, attempt)
	if err != nil {
		return nil, err
	}
	return s.execute(ctx, p, attempt, previous)
}

func (s *Service) previousAttempt(ctx context.Context, id domain.PaymentID, attempt int) (uuid.UUID, error) {
	if attempt <= 1 {
		return uuid.Nil, nil
	}
	history, err := s.retries.ListByPayment(ctx, id)
	if err != nil {
		return uuid.Nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load payment attempts")
	}
	for _, r := range history {
		if r.AttemptNumber == attempt-1 {
			return r.ID, nil
		}
	}
	return uuid.Nil, nil
}

// execute charges p and records the outcome in one unit of work: the payment
// row, the attempt row, the schedule of the previous attempt and the events.
func (s *Service) execute(ctx context.Context, p *models.Payment, attempt int, previous uuid.UUID) (*models.Payment, error) {
	if err := p.CanAttempt(attempt); err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInvalidState, "payment attempt not allowed")
	}
	prevAttempts := p.AttemptCount

	k, err := s.keys.FindByUser(ctx, p.UserID)
	if err != nil && !errors.Is(err, sentinel.ErrNotFound) {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load billing key")
	}
	receipt, chargeErr := s.charge(ctx, p, attempt, k)
	now := s.now()
	if chargeErr == nil {
		p.ApplySuccess(attempt, receipt.PaymentRef, now)
		if err := s.recordSuccess(ctx, p, prevAttempts, previous); err != nil {
			s.recordVoid(ctx, p, attempt, receipt.PaymentRef, err)
			return nil, err
		}
		s.metrics.IncPaymentAttempt("success")
		s.notifier.Notify(ctx, p.UserID, notification.TemplatePaymentCompleted, paymentParams(p), p.ID.String())
		s.logger.InfoContext(ctx, "payment completed",
			"payment_id", p.ID.String(),
			"membership_id", p.MembershipID.String(),
			"target_month", p.TargetMonth.String(),
			"attempt", attempt,
		)
		return p, nil
	}

	code, message := failureOf(chargeErr)
	p.ApplyFailure(attempt, code, message, now)
	record := models.NewFailureRecord(p.ID, attempt, code, message, now)
	if err := s.recordFailure(ctx, p, prevAttempts, previous, record, s.retries.Create); err != nil {
		return nil, err
	}
	s.metrics.IncPaymentAttempt("failed")
	s.notifyFailure(ctx, p, record, chargeErr)
	return p, dErrors.Wrap(chargeErr, dErrors.CodePaymentFailed, fmt.Sprintf("payment attempt %d failed", attempt))
}

func (s *Service) charge(ctx context.Context, p *models.Payment, attempt int, k *models.BillingKey) (*gateway.Receipt, error) {
	if k == nil {
		return nil, gateway.NewError(models.FailureNoBillingKey, "no billing key registered")
	}
	return s.gateway.ChargeWithCredential(ctx, gateway.ChargeRequest{
		Credential:  k.Credential,
		OrderID:     p.OrderID + "-" + strconv.Itoa(attempt),
		Amount:      p.Amount,
		Description: "monthly fee " + p.TargetMonth.String(),
		CustomerID:  p.UserID.String(),
	})
}

// recordSuccess writes the attempt row first: a VOID row for the same attempt
// can only be created while this one is absent.
func (s *Service) recordSuccess(ctx context.Context, p *models.Payment, prevAttempts int, previous uuid.UUID) error {
	err := s.tx.RunInTx(ctx, func(ctx context.Context) error {
		if err := s.retries.Create(ctx, models.NewSuccessRecord(p.ID, p.AttemptCount, *p.PaidAt)); err != nil {
			return err
		}
		if err := s.payments.RecordAttempt(ctx, p, prevAttempts); err != nil {
			return err
		}
		if err := s.clearSchedule(ctx, previous); err != nil {
			return err
		}
		return s.appendEvent(ctx, outbox.TypePaymentCompleted, p, "")
	})
	if err != nil {
		return s.translateRecord(err, "failed to record payment success")
	}
	return nil
}

// recordFailure stores a failed attempt. write persists the attempt row: a
// fresh insert, or the resolution of the VOID row the attempt left behind.
func (s *Service) recordFailure(ctx context.Context, p *models.Payment, prevAttempts int, previous uuid.UUID, record *models.Retry, write func(context.Context, *models.Retry) error) error {
	err := s.tx.RunInTx(ctx, func(ctx context.Context) error {
		if err := write(ctx, record); err != nil {
			return err
		}
		if err := s.payments.RecordAttempt(ctx, p, prevAttempts); err != nil {
			return err
		}
		if err := s.clearSchedule(ctx, previous); err != nil {
			return err
		}
		if err := s.appendEvent(ctx, outbox.TypePaymentFailed, p, record.ErrorCode); err != nil {
			return err
		}
		if !models.IsFinalAttempt(record.AttemptNumber) {
			return nil
		}
		evt, err := outbox.New(outbox.AggregatePayment, p.ID.String(), outbox.TypePaymentFinalFailed, outbox.PaymentFinalFailed{
			PaymentID:    p.ID.String(),
			PartyID:      p.PartyID.String(),
			MembershipID: p.MembershipID.String(),
			UserID:       p.UserID.String(),
			TargetMonth:  p.TargetMonth.String(),
			ErrorCode:    record.ErrorCode,
		}, s.now())
		if err != nil {
			return err
		}
		return s.events.Append(ctx, evt)
	})
	if err != nil {
		return s.translateRecord(err, "failed to record payment failure")
	}
	return nil
}

func (s *Service) clearSchedule(ctx context.Context, previous uuid.UUID) error {
	if previous == uuid.Nil {
		return nil
	}
	return s.retries.ClearSchedule(ctx, previous)
}

func (s *Service) translateRecord(err error, msg string) error {
	if errors.Is(err, sentinel.ErrInvalidState) || errors.Is(err, sentinel.ErrConflict) {
		return dErrors.Wrap(err, dErrors.CodeInvalidState, "payment attempt recorded concurrently")
	}
	var dErr *dErrors.Error
	if errors.As(err, &dErr) {
		return err
	}
	return dErrors.Wrap(err, dErrors.CodeInternal, msg)
}

// recordVoid runs when a charge succeeded but its ledger write did not. The
// charge is noted in a VOID row committed outside ctx's transaction, then
// cancelled right away; a cancellation that fails is left to the retry sweep.
// When the VOID row cannot be written, including when the attempt already has
// a row, the charge is cancelled once, best effort.
func (s *Service) recordVoid(ctx context.Context, p *models.Payment, attempt int, gatewayRef string, cause error) {
	detached := txcontext.Detach(ctx)
	now := s.now()
	r := models.NewVoidRecord(p.ID, attempt, gatewayRef, cause.Error(), now)
	err := s.retries.Create(detached, r)
	if err != nil {
		s.logger.ErrorContext(ctx, "failed to record void for charged payment",
			"payment_id", p.ID.String(),
			"gateway_ref", gatewayRef,
			"cause", cause,
			"error", err,
		)
		s.cancelUnrecorded(detached, p.ID, gatewayRef, p.Amount)
		return
	}
	s.logger.WarnContext(ctx, "charged payment not recorded, void scheduled",
		"payment_id", p.ID.String(),
		"attempt", attempt,
		"gateway_ref", gatewayRef,
		"cause", cause,
	)
	dayEnd := s.endOfDay(now)
	claimed, err := s.retries.Claim(detached, r.ID, dayEnd, dayEnd.Add(s.claimLease))
	if err != nil || !claimed {
		return
	}
	if err := s.settleVoid(detached, r); err != nil {
		s.logger.WarnContext(ctx, "void of charged payment deferred to retry run",
			"payment_id", p.ID.String(),
			"gateway_ref", gatewayRef,
			"error", err,
		)
	}
}

// cancelUnrecorded voids a charge that has neither a ledger row nor a VOID
// row, unless the payment turns out to show it after all.
func (s *Service) cancelUnrecorded(ctx context.Context, id domain.PaymentID, gatewayRef string, amount int64) {
	if stored, err := s.payments.FindByID(ctx, id); err == nil && stored.Records(gatewayRef) {
		return
	}
	_, err := s.gateway.CancelPayment(ctx, gateway.CancelRequest{
		PaymentRef: gatewayRef,
		Reason:     voidReason,
		Amount:     amount,
	})
	if err != nil {
		s.metrics.IncRetryExhausted("payment_void")
		s.logger.ErrorContext(ctx, "charged payment could not be recorded or voided, operator action required",
			"payment_id", id.String(),
			"gateway_ref", gatewayRef,
			"amount", amount,
			"error", err,
		)
		return
	}
	s.logger.WarnContext(ctx, "charged payment voided after ledger write failure",
		"payment_id", id.String(),
		"gateway_ref", gatewayRef,
	)
}

const voidReason = "payment ledger write failed"

// settleVoid resolves a VOID row. A payment that already shows the charge
// keeps it and the row becomes its SUCCESS attempt. Otherwise the charge is
// cancelled and the row becomes a FAILED attempt, scheduling the next one
// like any declined charge.
func (s *Service) settleVoid(ctx context.Context, r *models.Retry) error {
	p, err := s.payments.FindByID(ctx, r.PaymentID)
	if err != nil {
		return fmt.Errorf("load payment: %w", err)
	}
	now := s.now()
	if p.Records(r.GatewayRef) {
		resolved := models.NewSuccessRecord(p.ID, r.AttemptNumber, now)
		resolved.ID = r.ID
		return s.retries.ResolveVoid(ctx, resolved)
	}

	if _, err := s.gateway.CancelPayment(ctx, gateway.CancelRequest{
		PaymentRef: r.GatewayRef,
		Reason:     voidReason,
		Amount:     p.Amount,
	}); err != nil {
		s.logger.ErrorContext(ctx, "void of charged payment rejected",
			"payment_id", p.ID.String(),
			"gateway_ref", r.GatewayRef,
			"amount", p.Amount,
			"error", err,
		)
		return dErrors.Wrap(err, dErrors.CodePaymentFailed, "charge void rejected")
	}

	record := models.NewFailureRecord(p.ID, r.AttemptNumber, models.FailureLedgerWrite, r.ErrorMessage, now)
	record.ID = r.ID
	if p.CanAttempt(r.AttemptNumber) != nil {
		// A later attempt was recorded meanwhile; this one only closes.
		record.NextRetryAt = nil
		return s.retries.ResolveVoid(ctx, record)
	}
	previous, err := s.previousAttempt(ctx, p.ID, r.AttemptNumber)
	if err != nil {
		return err
	}
	prevAttempts := p.AttemptCount
	p.ApplyFailure(r.AttemptNumber, models.FailureLedgerWrite, r.ErrorMessage, now)
	if err := s.recordFailure(ctx, p, prevAttempts, previous, record, s.retries.ResolveVoid); err != nil {
		return err
	}
	s.logger.WarnContext(ctx, "charged payment voided after ledger write failure",
		"payment_id", p.ID.String(),
		"gateway_ref", r.GatewayRef,
		"attempt", r.AttemptNumber,
	)
	s.metrics.IncPaymentAttempt("voided")
	s.notifyFailure(ctx, p, record, gateway.NewError(models.FailureLedgerWrite, r.ErrorMessage))
	return nil
}

func (s *Service) notifyFailure(ctx context.Context, p *models.Payment, record *models.Retry, chargeErr error) {
	params := paymentParams(p)
	params["attempt"] = strconv.Itoa(record.AttemptNumber)
	params["reason"] = string(gateway.Classify(chargeErr))
	if record.NextRetryAt != nil {
		params["next_retry_at"] = record.NextRetryAt.Format(time.RFC3339)
		s.notifier.Notify(ctx, p.UserID, notification.TemplatePaymentRetrying, params, p.ID.String())
		s.logger.WarnContext(ctx, "payment attempt failed, retry scheduled",
			"payment_id", p.ID.String(),
			"attempt", record.AttemptNumber,
			"error_code", record.ErrorCode,
			"next_retry_at", *record.NextRetryAt,
		)
		return
	}
	s.metrics.IncRetryExhausted("payment")
	s.notifier.Notify(ctx, p.UserID, notification.TemplatePaymentFinalFailed, params, p.ID.String())
	s.logger.ErrorContext(ctx, "payment failed permanently",
		"payment_id", p.ID.String(),
		"membership_id", p.MembershipID.String(),
		"target_month", p.TargetMonth.String(),
		"error_code", record.ErrorCode,
	)
}

func failureOf(err error) (code, message string) {
	return gateway.CodeOf(err), gateway.MessageOf(err)
}

// ProcessDueRetries replays every payment whose next attempt falls on or
// before the current day and settles VOID rows still owed a cancellation.
// Rows are leased before the charge so concurrent runs never replay the same
// attempt.
func (s *Service) ProcessDueRetries(ctx context.Context) (batch.Result, error) {
	dayEnd := s.endOfDay(s.now())
	due, err := s.retries.ListDue(ctx, dayEnd, s.batchSize)
	if err != nil {
		return batch.Result{}, dErrors.Wrap(err, dErrors.CodeInternal, "failed to list due payment retries")
	}
	return batch.Each(ctx, due, func(ctx context.Context, r *models.Retry) error {
		claimed, err := s.retries.Claim(ctx, r.ID, dayEnd, dayEnd.Add(s.claimLease))
		if err != nil {
			return err
		}
		if !claimed {
			return batch.ErrSkipped
		}
		if r.Status == models.RetryStatusVoid {
			return s.settleVoid(ctx, r)
		}
		return s.retry(ctx, r)
	}, func(r *models.Retry, err error) {
		s.logger.WarnContext(ctx, "payment retry failed",
			"payment_id", r.PaymentID.String(),
			"attempt", r.AttemptNumber+1,
			"error", err,
		)
	})
}

// endOfDay is the start of the day after now. A schedule computed from the
// finish time of an attempt lands a little after the driver slot, so the
// daily run treats everything due that day as due.
func (s *Service) endOfDay(now time.Time) time.Time {
	local := now.In(s.location)
	y, m, d := local.Date()
	return time.Date(y, m, d+1, 0, 0, 0, 0, s.location)
}

func (s *Service) retry(ctx context.Context, r *models.Retry) error {
	p, err := s.payments.FindByID(ctx, r.PaymentID)
	if err != nil {
		return fmt.Errorf("load payment: %w", err)
	}
	if p.Status != models.StatusFailed || p.AttemptCount != r.AttemptNumber {
		if err := s.retries.ClearSchedule(ctx, r.ID); err != nil {
			return err
		}
		return batch.ErrSkipped
	}
	if s.eligibility != nil {
		ok, err := s.eligibility.IsBillable(ctx, p.MembershipID)
		if err != nil {
			return fmt.Errorf("check membership: %w", err)
		}
		if !ok {
			s.logger.InfoContext(ctx, "payment retry dropped, membership no longer billable",
				"payment_id", p.ID.String(),
				"membership_id", p.MembershipID.String(),
			)
			if err := s.retries.ClearSchedule(ctx, r.ID); err != nil {
				return err
			}
			return batch.ErrSkipped
		}
	}
	_, err = s.execute(ctx, p, r.AttemptNumber+1, r.ID)
	return err
}
