package models

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"moa/pkg/domain"
	dErrors "moa/pkg/domain-errors"
)

func TestAggregate_CommissionOnlyOnPayments(t *testing.T) {
	payments := []Contribution{
		{PaymentID: domain.NewPaymentID(), MembershipID: domain.NewMembershipID(), Amount: 4250},
		{PaymentID: domain.NewPaymentID(), MembershipID: domain.NewMembershipID(), Amount: 5750},
	}
	totals := Aggregate(payments, []int64{4250}, DefaultCommissionBasisPoints)

	assert.Equal(t, int64(14250), totals.Total())
	assert.Equal(t, int64(1500), totals.Commission)
	assert.Equal(t, int64(12750), totals.Net())
}

func TestCommission_RoundsHalfUp(t *testing.T) {
	cases := []struct {
		payments int64
		want     int64
	}{
		{payments: 0, want: 0},
		{payments: 10, want: 2},       // 1.5
		{payments: 3, want: 0},        // 0.45
		{payments: 4250, want: 638},   // 637.5
		{payments: 12750, want: 1913}, // 1912.5
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, Commission(tc.payments, DefaultCommissionBasisPoints), "payments=%d", tc.payments)
	}
}

func TestNewSettlement(t *testing.T) {
	now := time.Date(2025, 4, 10, 3, 0, 0, 0, time.UTC)
	month := domain.Month{Year: 2025, Month: time.March}
	window := domain.CycleWindow(10, month)
	payments := []Contribution{{PaymentID: domain.NewPaymentID(), MembershipID: domain.NewMembershipID(), Amount: 4250}}

	_, err := NewSettlement(domain.NewPartyID(), domain.UserID(domain.NewPartyID()), month, window, nil, Totals{}, now)
	assert.True(t, dErrors.HasCode(err, dErrors.CodeInvariantViolation))

	s, err := NewSettlement(domain.NewPartyID(), domain.UserID(domain.NewPartyID()), month, window, payments,
		Aggregate(payments, nil, DefaultCommissionBasisPoints), now)
	require.NoError(t, err)
	assert.Equal(t, StatusPending, s.Status)
	assert.Equal(t, s.TotalAmount-s.CommissionAmount, s.NetAmount)
	require.Len(t, s.Details, 1)
	assert.Equal(t, s.ID, s.Details[0].SettlementID)
	assert.Equal(t, time.Date(2025, 4, 9, 0, 0, 0, 0, time.UTC), s.WindowEnd)
}

func TestSettlement_CanClaim(t *testing.T) {
	cases := map[Status]dErrors.Code{
		StatusCompleted:  dErrors.CodeAlreadyCompleted,
		StatusInProgress: dErrors.CodeRetryNotAllowed,
	}
	for status, code := range cases {
		s := &Settlement{Status: status}
		assert.True(t, dErrors.HasCode(s.CanClaim(), code), "status %s", status)
	}
	for _, status := range []Status{StatusPending, StatusFailed} {
		s := &Settlement{Status: status}
		assert.NoError(t, s.CanClaim())
	}
}

func TestSettlement_ApplyFailedKeepsTransfer(t *testing.T) {
	now := time.Date(2025, 4, 10, 3, 0, 0, 0, time.UTC)
	s := &Settlement{Status: StatusInProgress}
	s.ApplyFailed("btx_1", "ledger write failed", now)
	s.ApplyClaim(now)
	s.ApplyFailed("", "bank timeout", now)
	assert.True(t, s.Transferred())
	assert.Equal(t, "btx_1", s.BankTransactionID)
}
