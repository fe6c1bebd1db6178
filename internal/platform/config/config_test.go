package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFromEnv_Defaults(t *testing.T) {
	t.Setenv("MOA_ENV", "development")
	t.Setenv("COMMISSION_RATE", "")

	cfg, err := FromEnv()
	require.NoError(t, err)

	assert.Equal(t, ":8080", cfg.Server.Addr)
	assert.Equal(t, int64(1500), cfg.Billing.CommissionBasisPoints)
	assert.Equal(t, 30*time.Minute, cfg.Billing.PendingPaymentTimeout)
	assert.Equal(t, 2, cfg.Billing.RefundCutoffDays)
	assert.Equal(t, 10*time.Second, cfg.Gateway.Timeout)
	assert.True(t, cfg.Scheduler.Enabled)
}

func TestFromEnv_Overrides(t *testing.T) {
	t.Setenv("COMMISSION_RATE", "0.2")
	t.Setenv("KAFKA_BROKERS", "a:9092, b:9092,")
	t.Setenv("PARTY_PENDING_TIMEOUT", "45m")
	t.Setenv("SCHEDULER_ENABLED", "false")

	cfg, err := FromEnv()
	require.NoError(t, err)

	assert.Equal(t, int64(2000), cfg.Billing.CommissionBasisPoints)
	assert.Equal(t, []string{"a:9092", "b:9092"}, cfg.Kafka.Brokers)
	assert.Equal(t, 45*time.Minute, cfg.Billing.PendingPaymentTimeout)
	assert.False(t, cfg.Scheduler.Enabled)
}

func TestValidate(t *testing.T) {
	t.Run("rejects bad commission rate", func(t *testing.T) {
		t.Setenv("COMMISSION_RATE", "1.5")
		_, err := FromEnv()
		require.Error(t, err)
		assert.Contains(t, err.Error(), "COMMISSION_RATE")
	})

	t.Run("production requires external dependencies", func(t *testing.T) {
		t.Setenv("MOA_ENV", "production")
		t.Setenv("DATABASE_URL", "")
		t.Setenv("REDIS_URL", "")
		_, err := FromEnv()
		require.Error(t, err)
		assert.Contains(t, err.Error(), "DATABASE_URL")
		assert.Contains(t, err.Error(), "REDIS_URL")
	})

	t.Run("unknown timezone", func(t *testing.T) {
		t.Setenv("SCHEDULER_TIMEZONE", "Mars/Olympus")
		_, err := FromEnv()
		require.Error(t, err)
	})
}
