package main

import (
	"net/http"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"moa/internal/ops"
	"moa/internal/platform/config"
	"moa/internal/platform/logger"
	"moa/internal/platform/metrics"
	"moa/internal/scheduler"
	"moa/pkg/testutil"
)

func testConfig() config.Config {
	return config.Config{
		Server:    config.Server{Addr: ":0", Env: "test", AdminToken: "token"},
		Billing:   config.BillingConfig{CommissionBasisPoints: 1500, PendingPaymentTimeout: 30 * time.Minute, RefundCutoffDays: 2},
		Scheduler: config.SchedulerConfig{Timezone: "Asia/Seoul", LockTTL: 10 * time.Minute},
		Gateway:   config.GatewayConfig{Timeout: 10 * time.Second, Mode: "sandbox"},
	}
}

func TestBuildScheduler_InMemory(t *testing.T) {
	in := &infra{logger: logger.Discard()}
	reg := prometheus.NewRegistry()

	sched, err := buildScheduler(testConfig(), in, logger.Discard(), metrics.New(reg))
	require.NoError(t, err)

	assert.Equal(t, []string{
		scheduler.JobDepositRetry,
		scheduler.JobMonthlyBilling,
		scheduler.JobOutboxDispatch,
		scheduler.JobPartyClosure,
		scheduler.JobPaymentRetry,
		scheduler.JobPendingTimeout,
		scheduler.JobSettlement,
	}, sched.Jobs(), "relay is only scheduled with a broker")
	assert.Equal(t, "memory", in.Mode())
	assert.Empty(t, in.Checks())

	h := ops.New(sched, reg, "token").Router()
	req := testutil.NewAdminRequest(t, http.MethodPost, "/admin/jobs/"+scheduler.JobSettlement, "token")
	rr := testutil.DoRequest(h, req)
	testutil.AssertStatusOK(t, rr)
	testutil.AssertJSONContains(t, rr, "total", float64(0))
}

func TestBuildScheduler_RejectsUnknownGateway(t *testing.T) {
	cfg := testConfig()
	cfg.Gateway.Mode = "live"

	_, err := buildScheduler(cfg, &infra{logger: logger.Discard()}, logger.Discard(), metrics.New(prometheus.NewRegistry()))
	require.Error(t, err)
}
