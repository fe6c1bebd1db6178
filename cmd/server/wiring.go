package main

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"

	accountservice "moa/internal/account/service"
	payoutstore "moa/internal/account/store/payout"
	pendingstore "moa/internal/account/store/pending"
	depositservice "moa/internal/deposit/service"
	depositstore "moa/internal/deposit/store/deposit"
	depositretrystore "moa/internal/deposit/store/retry"
	"moa/internal/gateway"
	"moa/internal/gateway/sandbox"
	"moa/internal/notification"
	"moa/internal/ops"
	"moa/internal/outbox"
	outboxstore "moa/internal/outbox/store"
	partyservice "moa/internal/party/service"
	membershipstore "moa/internal/party/store/membership"
	partystore "moa/internal/party/store/party"
	paymentservice "moa/internal/payment/service"
	billingkeystore "moa/internal/payment/store/billingkey"
	paymentstore "moa/internal/payment/store/payment"
	paymentretrystore "moa/internal/payment/store/retry"
	"moa/internal/platform/config"
	"moa/internal/platform/kafka"
	"moa/internal/platform/metrics"
	"moa/internal/platform/postgres"
	moaredis "moa/internal/platform/redis"
	"moa/internal/scheduler"
	settlementservice "moa/internal/settlement/service"
	settlementstore "moa/internal/settlement/store/settlement"
	txcontext "moa/pkg/platform/tx"
)

// infra holds the external connections. Every field is optional; missing
// backends fall back to in-process implementations.
type infra struct {
	db       *sql.DB
	redis    *moaredis.Client
	producer *kafka.Producer
	logger   *slog.Logger
}

func openInfra(ctx context.Context, cfg config.Config, log *slog.Logger) (*infra, error) {
	in := &infra{logger: log}

	if cfg.Postgres.URL != "" {
		db, err := postgres.Open(ctx, cfg.Postgres)
		if err != nil {
			return nil, err
		}
		in.db = db
		if cfg.Postgres.MigrateOnStart {
			if err := postgres.Migrate(db); err != nil {
				in.Close()
				return nil, err
			}
		}
	} else {
		log.Warn("DATABASE_URL not set, using in-memory stores")
	}

	client, err := moaredis.New(ctx, cfg.Redis)
	if err != nil {
		in.Close()
		return nil, err
	}
	in.redis = client
	if client == nil {
		log.Warn("REDIS_URL not set, job locks and verification tickets are process-local")
	}

	producer, err := kafka.NewProducer(cfg.Kafka, log)
	if err != nil {
		in.Close()
		return nil, err
	}
	in.producer = producer
	if producer != nil {
		if err := producer.EnsureTopics(ctx, 3, 1, outbox.Topics(cfg.Kafka.TopicPrefix)...); err != nil {
			log.Warn("could not ensure kafka topics", "error", err)
		}
	}
	return in, nil
}

// Mode names the storage backend for the startup log.
func (in *infra) Mode() string {
	if in.db != nil {
		return "postgres"
	}
	return "memory"
}

// Checks returns the health probes for every connected backend.
func (in *infra) Checks() []ops.Check {
	var checks []ops.Check
	if in.db != nil {
		checks = append(checks, ops.Check{Name: "postgres", Ping: func(ctx context.Context) error {
			return postgres.Health(ctx, in.db)
		}})
	}
	if in.redis != nil {
		checks = append(checks, ops.Check{Name: "redis", Ping: in.redis.Health})
	}
	if in.producer != nil {
		checks = append(checks, ops.Check{Name: "kafka", Ping: in.producer.Health})
	}
	return checks
}

func (in *infra) Close() {
	if in.producer != nil {
		in.producer.Close()
	}
	if in.redis != nil {
		if err := in.redis.Close(); err != nil {
			in.logger.Warn("close redis", "error", err)
		}
	}
	if in.db != nil {
		if err := in.db.Close(); err != nil {
			in.logger.Warn("close postgres", "error", err)
		}
	}
}

type paymentStore interface {
	paymentservice.PaymentStore
	settlementservice.PaymentHistory
}

type depositStore interface {
	depositservice.DepositStore
	settlementservice.DepositHistory
}

// stores is one backend's set of repositories.
type stores struct {
	runner         txcontext.Runner
	outbox         outbox.Store
	parties        partyservice.PartyStore
	memberships    partyservice.MembershipStore
	deposits       depositStore
	depositRetries depositservice.RetryStore
	payments       paymentStore
	paymentRetries paymentservice.RetryStore
	billingKeys    paymentservice.BillingKeyStore
	settlements    settlementservice.SettlementStore
	payouts        accountservice.PayoutStore
	pending        accountservice.PendingStore
}

func newStores(in *infra) stores {
	var s stores
	if in.db != nil {
		s = stores{
			runner:         txcontext.NewPostgresRunner(in.db),
			outbox:         outboxstore.NewPostgres(in.db),
			parties:        partystore.NewPostgres(in.db),
			memberships:    membershipstore.NewPostgres(in.db),
			deposits:       depositstore.NewPostgres(in.db),
			depositRetries: depositretrystore.NewPostgres(in.db),
			payments:       paymentstore.NewPostgres(in.db),
			paymentRetries: paymentretrystore.NewPostgres(in.db),
			billingKeys:    billingkeystore.NewPostgres(in.db),
			settlements:    settlementstore.NewPostgres(in.db),
			payouts:        payoutstore.NewPostgres(in.db),
		}
	} else {
		s = stores{
			runner:         txcontext.LocalRunner{},
			outbox:         outboxstore.NewInMemory(),
			parties:        partystore.NewInMemory(),
			memberships:    membershipstore.NewInMemory(),
			deposits:       depositstore.NewInMemory(),
			depositRetries: depositretrystore.NewInMemory(),
			payments:       paymentstore.NewInMemory(),
			paymentRetries: paymentretrystore.NewInMemory(),
			billingKeys:    billingkeystore.NewInMemory(),
			settlements:    settlementstore.NewInMemory(),
			payouts:        payoutstore.NewInMemory(),
		}
	}
	if in.redis != nil {
		s.pending = pendingstore.NewRedis(in.redis.Client)
	} else {
		s.pending = pendingstore.NewInMemory()
	}
	return s
}

// buildScheduler wires the service graph and returns the scheduler that
// drives it.
func buildScheduler(cfg config.Config, in *infra, log *slog.Logger, m *metrics.Metrics) (*scheduler.Scheduler, error) {
	if cfg.Gateway.Mode != "sandbox" {
		return nil, fmt.Errorf("GATEWAY_MODE %q is not supported", cfg.Gateway.Mode)
	}
	loc := cfg.Scheduler.Location()
	st := newStores(in)

	payGW := gateway.NewResilientPayments(sandbox.NewPayments(),
		gateway.WithTimeout(cfg.Gateway.Timeout),
		gateway.WithMetrics(m),
		gateway.WithLogger(log),
	)
	bankGW := gateway.NewResilientBank(sandbox.NewBank(),
		gateway.WithTimeout(cfg.Gateway.Timeout),
		gateway.WithMetrics(m),
		gateway.WithLogger(log),
	)
	notifier := notification.NewOutboxNotifier(st.outbox, notification.WithLogger(log))

	deposits := depositservice.New(st.deposits, st.depositRetries, payGW, st.runner, st.outbox,
		depositservice.WithLogger(log),
		depositservice.WithMetrics(m),
		depositservice.WithNotifier(notifier),
		depositservice.WithLocation(loc),
		depositservice.WithRefundCutoffDays(cfg.Billing.RefundCutoffDays),
	)
	payments := paymentservice.New(st.payments, st.paymentRetries, st.billingKeys, payGW, st.runner, st.outbox,
		paymentservice.WithLogger(log),
		paymentservice.WithMetrics(m),
		paymentservice.WithNotifier(notifier),
		paymentservice.WithLocation(loc),
	)
	parties := partyservice.New(st.parties, st.memberships, deposits, payments, payGW, st.runner, st.outbox,
		partyservice.WithLogger(log),
		partyservice.WithMetrics(m),
		partyservice.WithNotifier(notifier),
		partyservice.WithLocation(loc),
		partyservice.WithPendingTimeout(cfg.Billing.PendingPaymentTimeout),
	)
	payments.SetEligibilityChecker(parties)

	accounts := accountservice.New(st.payouts, st.pending, bankGW,
		accountservice.WithLogger(log),
		accountservice.WithNotifier(notifier),
	)
	settlements := settlementservice.New(st.settlements, parties, st.payments, st.deposits, accounts, bankGW, st.runner, st.outbox,
		settlementservice.WithLogger(log),
		settlementservice.WithMetrics(m),
		settlementservice.WithNotifier(notifier),
		settlementservice.WithLocation(loc),
		settlementservice.WithCommissionBasisPoints(cfg.Billing.CommissionBasisPoints),
	)

	dispatcher := outbox.NewDispatcher(st.outbox, outbox.WithLogger(log), outbox.WithMetrics(m))
	parties.RegisterHandlers(dispatcher)

	drivers := scheduler.Drivers{
		Parties:     parties,
		Payments:    payments,
		Deposits:    deposits,
		Settlements: settlements,
		Dispatcher:  dispatcher,
	}
	if in.producer != nil {
		drivers.Relay = outbox.NewRelay(st.outbox, in.producer, cfg.Kafka.TopicPrefix, log, m)
	}

	var locker scheduler.Locker = scheduler.NewLocalLocker()
	if in.redis != nil {
		locker = in.redis.Locker()
	}
	sched := scheduler.New(
		scheduler.WithLogger(log),
		scheduler.WithMetrics(m),
		scheduler.WithLocker(locker),
		scheduler.WithLockTTL(cfg.Scheduler.LockTTL),
		scheduler.WithLocation(loc),
	)
	if err := sched.Register(scheduler.StandardJobs(drivers)...); err != nil {
		return nil, fmt.Errorf("register jobs: %w", err)
	}

	return sched, nil
}
