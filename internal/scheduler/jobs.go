package scheduler

import (
	"context"
	"time"

	partymodels "moa/internal/party/models"
	paymentmodels "moa/internal/payment/models"
	"moa/pkg/platform/batch"
)

// Job names, also used by the admin trigger endpoint.
const (
	JobMonthlyBilling = "monthly_billing"
	JobPaymentRetry   = "payment_retry"
	JobPendingTimeout = "pending_timeout"
	JobPartyClosure   = "party_closure"
	JobDepositRetry   = "deposit_retry"
	JobSettlement     = "settlement"
	JobOutboxDispatch = "outbox_dispatch"
	JobOutboxRelay    = "outbox_relay"
)

type PartyDriver interface {
	ListBillingTargets(ctx context.Context, date time.Time) ([]partymodels.BillingTarget, error)
	CancelExpiredPendingParties(ctx context.Context) (batch.Result, error)
	CloseExpiredParties(ctx context.Context) (batch.Result, error)
}

type PaymentDriver interface {
	ProcessMonthlyPayment(ctx context.Context, req paymentmodels.MonthlyRequest) (*paymentmodels.Payment, error)
	ProcessDueRetries(ctx context.Context) (batch.Result, error)
}

type DepositDriver interface {
	ProcessDueRetries(ctx context.Context) (batch.Result, error)
}

type SettlementDriver interface {
	RunDailySettlement(ctx context.Context, now time.Time) (batch.Result, error)
}

type OutboxDispatcher interface {
	DispatchPending(ctx context.Context) (int, error)
}

type OutboxRelay interface {
	RelayPending(ctx context.Context) (int, error)
}

// Drivers are the services the standard jobs drive. Relay is optional.
type Drivers struct {
	Parties     PartyDriver
	Payments    PaymentDriver
	Deposits    DepositDriver
	Settlements SettlementDriver
	Dispatcher  OutboxDispatcher
	Relay       OutboxRelay
}

// StandardJobs returns the production schedule. Times are evaluated in the
// scheduler's location.
func StandardJobs(d Drivers) []Job {
	jobs := []Job{
		{Name: JobMonthlyBilling, Spec: "30 0 * * *", Run: monthlyBilling(d.Parties, d.Payments)},
		{Name: JobPaymentRetry, Spec: "0 1 * * *", Run: ignoreNow(d.Payments.ProcessDueRetries)},
		{Name: JobPendingTimeout, Spec: "*/5 * * * *", Run: ignoreNow(d.Parties.CancelExpiredPendingParties)},
		{Name: JobPartyClosure, Spec: "0 2 * * *", Run: ignoreNow(d.Parties.CloseExpiredParties)},
		{Name: JobDepositRetry, Spec: "0 * * * *", Run: ignoreNow(d.Deposits.ProcessDueRetries)},
		{Name: JobSettlement, Spec: "0 3 * * *", Run: d.Settlements.RunDailySettlement},
		{Name: JobOutboxDispatch, Spec: "* * * * *", Run: counted(d.Dispatcher.DispatchPending)},
	}
	if d.Relay != nil {
		jobs = append(jobs, Job{Name: JobOutboxRelay, Spec: "* * * * *", Run: counted(d.Relay.RelayPending)})
	}
	return jobs
}

// monthlyBilling charges every ACTIVE member of the parties whose billing
// day is today. A declined charge is isolated; the retry job picks it up.
func monthlyBilling(parties PartyDriver, payments PaymentDriver) func(context.Context, time.Time) (batch.Result, error) {
	return func(ctx context.Context, now time.Time) (batch.Result, error) {
		targets, err := parties.ListBillingTargets(ctx, now)
		if err != nil {
			return batch.Result{}, err
		}
		return batch.Each(ctx, targets, func(ctx context.Context, t partymodels.BillingTarget) error {
			_, err := payments.ProcessMonthlyPayment(ctx, paymentmodels.MonthlyRequest{
				PartyID:      t.PartyID,
				MembershipID: t.MembershipID,
				UserID:       t.UserID,
				Amount:       t.Amount,
				TargetMonth:  t.Month,
			})
			return err
		}, nil)
	}
}

func ignoreNow(fn func(context.Context) (batch.Result, error)) func(context.Context, time.Time) (batch.Result, error) {
	return func(ctx context.Context, _ time.Time) (batch.Result, error) {
		return fn(ctx)
	}
}

func counted(fn func(context.Context) (int, error)) func(context.Context, time.Time) (batch.Result, error) {
	return func(ctx context.Context, _ time.Time) (batch.Result, error) {
		n, err := fn(ctx)
		return batch.Result{Total: n, Succeeded: n}, err
	}
}
