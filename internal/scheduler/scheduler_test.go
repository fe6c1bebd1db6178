package scheduler

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"moa/internal/platform/metrics"
	dErrors "moa/pkg/domain-errors"
	"moa/pkg/platform/batch"
)

func noop(context.Context, time.Time) (batch.Result, error) { return batch.Result{}, nil }

func TestRegister(t *testing.T) {
	s := New()
	require.NoError(t, s.Register(Job{Name: "a", Spec: "*/5 * * * *", Run: noop}, Job{Name: "b", Spec: "@hourly", Run: noop}))
	assert.Equal(t, []string{"a", "b"}, s.Jobs())

	assert.Error(t, s.Register(Job{Name: "a", Spec: "@daily", Run: noop}), "duplicate name")
	assert.Error(t, s.Register(Job{Name: "c", Spec: "every tuesday", Run: noop}), "bad spec")
	assert.Error(t, s.Register(Job{Name: "d", Spec: "@daily"}), "missing run func")
}

func TestTrigger(t *testing.T) {
	now := time.Date(2025, 4, 10, 3, 0, 0, 0, time.UTC)
	m := metrics.New(prometheus.NewRegistry())
	s := New(WithClock(func() time.Time { return now }), WithMetrics(m))

	var seen time.Time
	require.NoError(t, s.Register(Job{Name: JobSettlement, Spec: "0 3 * * *", Run: func(_ context.Context, at time.Time) (batch.Result, error) {
		seen = at
		return batch.Result{Total: 3, Succeeded: 1, Failed: 2}, nil
	}}))

	res, err := s.Trigger(context.Background(), JobSettlement)
	require.NoError(t, err)
	assert.Equal(t, now, seen)
	assert.Equal(t, 2, res.Failed)
	assert.Equal(t, 1.0, testutil.ToFloat64(m.JobRuns.WithLabelValues(JobSettlement, "success")))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.JobItemFailures.WithLabelValues(JobSettlement)))

	_, err = s.Trigger(context.Background(), "nope")
	assert.True(t, dErrors.HasCode(err, dErrors.CodeNotFound))
}

func TestTrigger_RespectsLock(t *testing.T) {
	locker := NewLocalLocker()
	s := New(WithLocker(locker))
	calls := 0
	require.NoError(t, s.Register(Job{Name: JobMonthlyBilling, Spec: "30 0 * * *", Run: func(context.Context, time.Time) (batch.Result, error) {
		calls++
		return batch.Result{}, nil
	}}))

	release, ok, err := locker.TryLock(context.Background(), "job:"+JobMonthlyBilling, time.Minute)
	require.NoError(t, err)
	require.True(t, ok)

	_, err = s.Trigger(context.Background(), JobMonthlyBilling)
	assert.True(t, dErrors.HasCode(err, dErrors.CodeConflict))
	assert.Zero(t, calls)

	require.NoError(t, release(context.Background()))
	_, err = s.Trigger(context.Background(), JobMonthlyBilling)
	require.NoError(t, err)
	assert.Equal(t, 1, calls)

	_, ok, err = locker.TryLock(context.Background(), "job:"+JobMonthlyBilling, time.Minute)
	require.NoError(t, err)
	assert.True(t, ok, "lock is released after the run")
}

type brokenLocker struct{}

func (brokenLocker) TryLock(context.Context, string, time.Duration) (func(context.Context) error, bool, error) {
	return nil, false, errors.New("redis: connection refused")
}

func TestTrigger_LockerUnavailable(t *testing.T) {
	s := New(WithLocker(brokenLocker{}))
	require.NoError(t, s.Register(Job{Name: JobDepositRetry, Spec: "@hourly", Run: noop}))

	_, err := s.Trigger(context.Background(), JobDepositRetry)
	assert.True(t, dErrors.HasCode(err, dErrors.CodeUnavailable))
}

func TestTrigger_PanicBecomesError(t *testing.T) {
	m := metrics.New(prometheus.NewRegistry())
	s := New(WithMetrics(m))
	require.NoError(t, s.Register(Job{Name: JobPartyClosure, Spec: "0 2 * * *", Run: func(context.Context, time.Time) (batch.Result, error) {
		panic("boom")
	}}))

	_, err := s.Trigger(context.Background(), JobPartyClosure)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "boom")
	assert.Equal(t, 1.0, testutil.ToFloat64(m.JobRuns.WithLabelValues(JobPartyClosure, "error")))

	_, err = s.Trigger(context.Background(), JobPartyClosure)
	assert.False(t, dErrors.HasCode(err, dErrors.CodeConflict), "panicking run still releases its lock")
}

func TestStart_StopsOnCancel(t *testing.T) {
	s := New()
	require.NoError(t, s.Register(Job{Name: "tick", Spec: "@every 1h", Run: noop}))

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- s.Start(ctx) }()
	cancel()

	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("scheduler did not stop")
	}
}
