package payment

import (
	"context"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"moa/internal/payment/models"
	"moa/pkg/domain"
	"moa/pkg/platform/sentinel"
)

var paymentRowColumns = []string{"id", "party_id", "membership_id", "user_id", "payment_type", "target_month", "amount",
	"status", "attempt_count", "gateway_ref", "order_id", "failure_code", "failure_message", "paid_at", "refunded_at",
	"created_at", "updated_at"}

func newMonthly(t *testing.T, now time.Time) *models.Payment {
	t.Helper()
	p, err := models.NewMonthly(models.MonthlyRequest{
		PartyID:      domain.NewPartyID(),
		MembershipID: domain.NewMembershipID(),
		UserID:       domain.UserID(domain.NewPartyID()),
		Amount:       4250,
		TargetMonth:  domain.MonthOf(now),
	}, now)
	require.NoError(t, err)
	return p
}

func TestPostgresStore_CreateDuplicateMonth(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	now := time.Date(2025, 3, 15, 0, 30, 0, 0, time.UTC)
	p := newMonthly(t, now)
	mock.ExpectExec("INSERT INTO payments").
		WillReturnError(&pq.Error{Code: "23505", Constraint: "payments_one_per_month"})

	err = NewPostgres(db).Create(context.Background(), p)
	assert.ErrorIs(t, err, sentinel.ErrConflict)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_RecordAttemptGuardsAttemptCount(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	now := time.Date(2025, 3, 15, 0, 30, 0, 0, time.UTC)
	p := newMonthly(t, now)
	p.ApplyFailure(1, "NOT_ENOUGH_BALANCE", "insufficient funds", now)

	mock.ExpectExec("UPDATE payments").
		WithArgs(p.ID.String(), 0, "FAILED", 1, "", "NOT_ENOUGH_BALANCE", "insufficient funds", nil, now).
		WillReturnResult(sqlmock.NewResult(0, 0))

	err = NewPostgres(db).RecordAttempt(context.Background(), p, 0)
	assert.ErrorIs(t, err, sentinel.ErrInvalidState)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_ListCompletedForMonth(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	partyID := domain.NewPartyID()
	month := domain.MonthOf(time.Date(2025, 2, 15, 0, 0, 0, 0, time.UTC))
	paidAt := time.Date(2025, 2, 15, 0, 31, 0, 0, time.UTC)
	id := domain.NewPaymentID()

	rows := sqlmock.NewRows(paymentRowColumns).AddRow(
		id.String(), partyID.String(), domain.NewMembershipID().String(), domain.NewPartyID().String(),
		"MONTHLY", "2025-02", int64(4250), "COMPLETED", 2, "pay_1", "moa-2025-02-x", "", "",
		paidAt, nil, paidAt, paidAt,
	)
	mock.ExpectQuery("SELECT id, party_id .+ target_month = \\$2").WithArgs(partyID.String(), "2025-02").WillReturnRows(rows)

	payments, err := NewPostgres(db).ListCompletedForMonth(context.Background(), partyID, month)
	require.NoError(t, err)
	require.Len(t, payments, 1)
	got := payments[0]
	assert.Equal(t, id, got.ID)
	assert.Equal(t, models.TypeMonthly, got.Type)
	assert.Equal(t, "2025-02", got.TargetMonth.String())
	assert.Equal(t, 2, got.AttemptCount)
	require.NotNil(t, got.PaidAt)
	assert.True(t, paidAt.Equal(*got.PaidAt))
	assert.Nil(t, got.RefundedAt)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestInMemoryStore_OnePaymentPerMonth(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2025, 3, 15, 0, 30, 0, 0, time.UTC)
	s := NewInMemory()
	p := newMonthly(t, now)
	require.NoError(t, s.Create(ctx, p))

	dup := *p
	dup.ID = domain.NewPaymentID()
	assert.ErrorIs(t, s.Create(ctx, &dup), sentinel.ErrConflict)

	p.ApplySuccess(1, "pay_1", now)
	require.NoError(t, s.RecordAttempt(ctx, p, 0))
	assert.ErrorIs(t, s.RecordAttempt(ctx, p, 0), sentinel.ErrInvalidState)

	found, err := s.FindByMembershipMonth(ctx, p.MembershipID, p.TargetMonth)
	require.NoError(t, err)
	assert.Equal(t, models.StatusCompleted, found.Status)

	completed, err := s.ListCompletedForMonth(ctx, p.PartyID, p.TargetMonth)
	require.NoError(t, err)
	assert.Len(t, completed, 1)
	completed, err = s.ListCompletedForMonth(ctx, p.PartyID, p.TargetMonth.Next())
	require.NoError(t, err)
	assert.Empty(t, completed)
}
