package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds all Prometheus metrics for the ledger. A nil *Metrics is
// valid and records nothing, so services can be built without one.
type Metrics struct {
	PartiesCreated      prometheus.Counter
	Joins               *prometheus.CounterVec
	Withdrawals         *prometheus.CounterVec
	DepositTransitions  *prometheus.CounterVec
	PaymentAttempts     *prometheus.CounterVec
	RetriesExhausted    *prometheus.CounterVec
	Settlements         *prometheus.CounterVec
	SettledNetAmount    prometheus.Counter
	JobRuns             *prometheus.CounterVec
	JobItemFailures     *prometheus.CounterVec
	JobDuration         *prometheus.HistogramVec
	GatewayCalls        *prometheus.CounterVec
	GatewayCallDuration *prometheus.HistogramVec
	CircuitOpen         *prometheus.GaugeVec
	OutboxDelivered     *prometheus.CounterVec
}

// New registers all metrics with reg. Pass prometheus.DefaultRegisterer in
// main and prometheus.NewRegistry() in tests.
func New(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		PartiesCreated: f.NewCounter(prometheus.CounterOpts{
			Name: "moa_parties_created_total",
			Help: "Total number of parties created",
		}),
		Joins: f.NewCounterVec(prometheus.CounterOpts{
			Name: "moa_party_joins_total",
			Help: "Join attempts by outcome",
		}, []string{"outcome"}),
		Withdrawals: f.NewCounterVec(prometheus.CounterOpts{
			Name: "moa_membership_withdrawals_total",
			Help: "Memberships withdrawn by reason",
		}, []string{"reason"}),
		DepositTransitions: f.NewCounterVec(prometheus.CounterOpts{
			Name: "moa_deposit_transitions_total",
			Help: "Deposit status transitions by target status",
		}, []string{"status"}),
		PaymentAttempts: f.NewCounterVec(prometheus.CounterOpts{
			Name: "moa_payment_attempts_total",
			Help: "Monthly payment attempts by outcome",
		}, []string{"outcome"}),
		RetriesExhausted: f.NewCounterVec(prometheus.CounterOpts{
			Name: "moa_retry_exhausted_total",
			Help: "Retry chains that reached their final attempt without success",
		}, []string{"kind"}),
		Settlements: f.NewCounterVec(prometheus.CounterOpts{
			Name: "moa_settlements_total",
			Help: "Settlement lifecycle events by outcome",
		}, []string{"outcome"}),
		SettledNetAmount: f.NewCounter(prometheus.CounterOpts{
			Name: "moa_settled_net_amount_total",
			Help: "Sum of net amounts transferred to leaders, in minor units",
		}),
		JobRuns: f.NewCounterVec(prometheus.CounterOpts{
			Name: "moa_job_runs_total",
			Help: "Scheduled job runs by job and outcome",
		}, []string{"job", "outcome"}),
		JobItemFailures: f.NewCounterVec(prometheus.CounterOpts{
			Name: "moa_job_item_failures_total",
			Help: "Per-item failures isolated by scheduled jobs",
		}, []string{"job"}),
		JobDuration: f.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "moa_job_duration_seconds",
			Help:    "Duration of scheduled job runs",
			Buckets: []float64{0.01, 0.05, 0.1, 0.5, 1, 5, 15, 60, 300},
		}, []string{"job"}),
		GatewayCalls: f.NewCounterVec(prometheus.CounterOpts{
			Name: "moa_gateway_calls_total",
			Help: "External gateway calls by gateway, operation and outcome",
		}, []string{"gateway", "operation", "outcome"}),
		GatewayCallDuration: f.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "moa_gateway_call_duration_seconds",
			Help:    "Latency of external gateway calls",
			Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
		}, []string{"gateway", "operation"}),
		CircuitOpen: f.NewGaugeVec(prometheus.GaugeOpts{
			Name: "moa_gateway_circuit_open",
			Help: "1 while the gateway circuit breaker is open",
		}, []string{"gateway"}),
		OutboxDelivered: f.NewCounterVec(prometheus.CounterOpts{
			Name: "moa_outbox_delivered_total",
			Help: "Outbox events delivered by sink and event type",
		}, []string{"sink", "event_type"}),
	}
}

func (m *Metrics) IncPartyCreated() {
	if m == nil {
		return
	}
	m.PartiesCreated.Inc()
}

func (m *Metrics) IncJoin(outcome string) {
	if m == nil {
		return
	}
	m.Joins.WithLabelValues(outcome).Inc()
}

func (m *Metrics) IncWithdrawal(reason string) {
	if m == nil {
		return
	}
	m.Withdrawals.WithLabelValues(reason).Inc()
}

func (m *Metrics) IncDepositTransition(status string) {
	if m == nil {
		return
	}
	m.DepositTransitions.WithLabelValues(status).Inc()
}

func (m *Metrics) IncPaymentAttempt(outcome string) {
	if m == nil {
		return
	}
	m.PaymentAttempts.WithLabelValues(outcome).Inc()
}

func (m *Metrics) IncRetryExhausted(kind string) {
	if m == nil {
		return
	}
	m.RetriesExhausted.WithLabelValues(kind).Inc()
}

func (m *Metrics) IncSettlement(outcome string) {
	if m == nil {
		return
	}
	m.Settlements.WithLabelValues(outcome).Inc()
}

func (m *Metrics) AddSettledNet(amount int64) {
	if m == nil || amount <= 0 {
		return
	}
	m.SettledNetAmount.Add(float64(amount))
}

// ObserveJob records a job run. Call with time.Now() taken at the start.
func (m *Metrics) ObserveJob(job string, start time.Time, err error) {
	if m == nil {
		return
	}
	outcome := "success"
	if err != nil {
		outcome = "error"
	}
	m.JobRuns.WithLabelValues(job, outcome).Inc()
	m.JobDuration.WithLabelValues(job).Observe(time.Since(start).Seconds())
}

func (m *Metrics) IncJobItemFailure(job string) {
	if m == nil {
		return
	}
	m.JobItemFailures.WithLabelValues(job).Inc()
}

// ObserveGatewayCall records one outbound call. Call with time.Now() taken at the start.
func (m *Metrics) ObserveGatewayCall(gateway, operation string, start time.Time, err error) {
	if m == nil {
		return
	}
	outcome := "success"
	if err != nil {
		outcome = "error"
	}
	m.GatewayCalls.WithLabelValues(gateway, operation, outcome).Inc()
	m.GatewayCallDuration.WithLabelValues(gateway, operation).Observe(time.Since(start).Seconds())
}

func (m *Metrics) SetCircuitOpen(gateway string, open bool) {
	if m == nil {
		return
	}
	v := 0.0
	if open {
		v = 1
	}
	m.CircuitOpen.WithLabelValues(gateway).Set(v)
}

func (m *Metrics) IncOutboxDelivered(sink, eventType string) {
	if m == nil {
		return
	}
	m.OutboxDelivered.WithLabelValues(sink, eventType).Inc()
}
