package metrics

import (
	"errors"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestMetrics_Record(t *testing.T) {
	m := New(prometheus.NewRegistry())

	m.IncJoin("party_full")
	m.IncJoin("party_full")
	m.IncRetryExhausted("payment")
	m.AddSettledNet(8500)
	m.ObserveJob("billing", time.Now(), errors.New("partial"))
	m.SetCircuitOpen("payment", true)

	assert.Equal(t, 2.0, testutil.ToFloat64(m.Joins.WithLabelValues("party_full")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.RetriesExhausted.WithLabelValues("payment")))
	assert.Equal(t, 8500.0, testutil.ToFloat64(m.SettledNetAmount))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.JobRuns.WithLabelValues("billing", "error")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.CircuitOpen.WithLabelValues("payment")))
}

func TestMetrics_NilIsNoop(t *testing.T) {
	var m *Metrics
	assert.NotPanics(t, func() {
		m.IncPartyCreated()
		m.IncPaymentAttempt("success")
		m.ObserveGatewayCall("bank", "transfer", time.Now(), nil)
	})
}
