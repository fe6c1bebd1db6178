package retry

import (
	"context"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"moa/internal/payment/models"
	"moa/pkg/domain"
	"moa/pkg/platform/sentinel"
)

func TestPostgresStore_CreateVoidKeepsGatewayRef(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	now := time.Date(2025, 3, 15, 0, 30, 0, 0, time.UTC)
	r := models.NewVoidRecord(domain.NewPaymentID(), 1, "pay_123", "insert payment retry: connection reset", now)
	mock.ExpectExec("INSERT INTO payment_retries .+ gateway_ref").
		WithArgs(r.ID.String(), sqlmock.AnyArg(), 1, "VOID", now, models.FailureLedgerWrite, r.ErrorMessage, "pay_123", now).
		WillReturnResult(sqlmock.NewResult(0, 1))

	require.NoError(t, NewPostgres(db).Create(context.Background(), r))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_ResolveVoid(t *testing.T) {
	now := time.Date(2025, 3, 15, 0, 30, 0, 0, time.UTC)
	resolved := models.NewFailureRecord(domain.NewPaymentID(), 1, models.FailureLedgerWrite, "connection reset", now)

	t.Run("overwrites the void row", func(t *testing.T) {
		db, mock, err := sqlmock.New()
		require.NoError(t, err)
		defer db.Close()

		mock.ExpectExec("UPDATE payment_retries SET status = \\$2, .+ WHERE id = \\$1 AND status = 'VOID'").
			WithArgs(resolved.ID.String(), "FAILED", *resolved.NextRetryAt, models.FailureLedgerWrite, "connection reset", now).
			WillReturnResult(sqlmock.NewResult(0, 1))

		require.NoError(t, NewPostgres(db).ResolveVoid(context.Background(), resolved))
		require.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("a row resolved elsewhere is invalid state", func(t *testing.T) {
		db, mock, err := sqlmock.New()
		require.NoError(t, err)
		defer db.Close()

		mock.ExpectExec("UPDATE payment_retries").WillReturnResult(sqlmock.NewResult(0, 0))

		err = NewPostgres(db).ResolveVoid(context.Background(), resolved)
		assert.ErrorIs(t, err, sentinel.ErrInvalidState)
		require.NoError(t, mock.ExpectationsWereMet())
	})
}
