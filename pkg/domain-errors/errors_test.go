package domainerrors

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestHasCode(t *testing.T) {
	t.Run("matches outer code", func(t *testing.T) {
		err := New(CodePartyFull, "party is full")
		assert.True(t, HasCode(err, CodePartyFull))
		assert.False(t, HasCode(err, CodeConflict))
	})

	t.Run("matches wrapped code", func(t *testing.T) {
		inner := New(CodeConflict, "duplicate")
		err := Wrap(inner, CodeInternal, "failed to create")
		assert.True(t, HasCode(err, CodeConflict))
		assert.True(t, HasCode(err, CodeInternal))
		assert.Equal(t, CodeInternal, CodeOf(err))
	})

	t.Run("sees through fmt wrapping", func(t *testing.T) {
		err := fmt.Errorf("join: %w", New(CodeNotLeader, "not leader"))
		assert.True(t, Is(err, CodeNotLeader))
	})

	t.Run("uncoded errors default to internal", func(t *testing.T) {
		err := errors.New("boom")
		assert.False(t, HasCode(err, CodeInternal))
		assert.Equal(t, CodeInternal, CodeOf(err))
	})

	t.Run("wrap of nil is nil", func(t *testing.T) {
		assert.NoError(t, Wrap(nil, CodeInternal, "nothing"))
	})
}

func TestCategoryOf(t *testing.T) {
	cases := map[Code]Category{
		CodeValidation:         CategoryValidation,
		CodeNotLeader:          CategoryValidation,
		CodeDuplicatePayment:   CategoryConflict,
		CodeInvalidState:       CategoryConflict,
		CodeNotFound:           CategoryNotFound,
		CodePartyFull:          CategoryCapacity,
		CodePaymentFailed:      CategoryRetryable,
		CodePermanentFailure:   CategoryPermanent,
		Code("something_else"): CategoryInternal,
	}
	for code, want := range cases {
		assert.Equal(t, want, CategoryOf(code), string(code))
	}

	assert.True(t, Retryable(Wrap(errors.New("io"), CodePaymentFailed, "charge failed")))
	assert.False(t, Retryable(New(CodePartyFull, "full")))
}
