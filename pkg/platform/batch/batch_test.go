package batch

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEach_IsolatesFailures(t *testing.T) {
	var failed []int
	res, err := Each(context.Background(), []int{1, 2, 3, 4, 5}, func(_ context.Context, n int) error {
		switch n {
		case 2:
			return errors.New("boom")
		case 3:
			panic("bad row")
		case 4:
			return ErrSkipped
		}
		return nil
	}, func(n int, _ error) { failed = append(failed, n) })

	require.NoError(t, err)
	assert.Equal(t, Result{Total: 5, Succeeded: 2, Failed: 2, Skipped: 1}, res)
	assert.Equal(t, []int{2, 3}, failed)
}

func TestEach_StopsOnCancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	calls := 0
	res, err := Each(ctx, []int{1, 2, 3}, func(_ context.Context, _ int) error {
		calls++
		cancel()
		return nil
	}, nil)

	require.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 1, calls)
	assert.Equal(t, 1, res.Succeeded)
}

func TestResult_Add(t *testing.T) {
	r := Result{Total: 1, Succeeded: 1}
	r.Add(Result{Total: 2, Failed: 1, Skipped: 1})
	assert.Equal(t, Result{Total: 3, Succeeded: 1, Failed: 1, Skipped: 1}, r)
}
