package circuit

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeClock struct{ now time.Time }

func (c *fakeClock) Now() time.Time { return c.now }

func newTestBreaker(opts ...Option) (*Breaker, *fakeClock) {
	clock := &fakeClock{now: time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)}
	return New("bank", append([]Option{WithClock(clock.Now)}, opts...)...), clock
}

func TestBreaker_StartsClosed(t *testing.T) {
	b, _ := newTestBreaker()
	assert.Equal(t, "bank", b.Name())
	assert.Equal(t, StateClosed, b.State())
	assert.True(t, b.Allow())
}

func TestBreaker_OpensOnConsecutiveFailures(t *testing.T) {
	b, _ := newTestBreaker(WithFailureThreshold(3))

	for i := 1; i <= 2; i++ {
		fallback, change := b.RecordFailure()
		require.False(t, fallback, "failure %d", i)
		require.False(t, change.Opened, "failure %d", i)
	}
	fallback, change := b.RecordFailure()
	assert.True(t, fallback)
	assert.True(t, change.Opened)
	assert.Equal(t, StateOpen, b.State())

	_, change = b.RecordFailure()
	assert.False(t, change.Opened, "already open")
}

func TestBreaker_SuccessResetsFailureStreak(t *testing.T) {
	b, _ := newTestBreaker(WithFailureThreshold(2))

	b.RecordFailure()
	b.RecordSuccess()
	b.RecordFailure()
	assert.False(t, b.IsOpen(), "streak was broken by a success")

	b.RecordFailure()
	assert.True(t, b.IsOpen())
}

func TestBreaker_ClosesAfterSuccessThreshold(t *testing.T) {
	b, _ := newTestBreaker(WithFailureThreshold(1), WithSuccessThreshold(2))
	b.RecordFailure()

	primary, change := b.RecordSuccess()
	assert.False(t, primary)
	assert.False(t, change.Closed)

	b.RecordFailure()
	b.RecordSuccess()
	assert.True(t, b.IsOpen(), "a failure restarts the success count")

	primary, change = b.RecordSuccess()
	assert.True(t, primary)
	assert.True(t, change.Closed)
	assert.Equal(t, StateClosed, b.State())
}

func TestBreaker_AllowProbesAfterCooldown(t *testing.T) {
	b, clock := newTestBreaker(WithFailureThreshold(1), WithCooldown(time.Minute))
	b.RecordFailure()
	assert.False(t, b.Allow())

	clock.now = clock.now.Add(59 * time.Second)
	assert.False(t, b.Allow())

	clock.now = clock.now.Add(time.Second)
	assert.True(t, b.Allow(), "first probe after cooldown")
	assert.False(t, b.Allow(), "only one probe per cooldown")
}

func TestBreaker_Reset(t *testing.T) {
	b, _ := newTestBreaker(WithFailureThreshold(1))
	b.RecordFailure()
	require.True(t, b.IsOpen())

	b.Reset()
	assert.Equal(t, StateClosed, b.State())
	assert.True(t, b.Allow())
}
