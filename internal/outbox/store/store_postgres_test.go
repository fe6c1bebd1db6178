package store

import (
	"context"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"moa/internal/outbox"
	txcontext "moa/pkg/platform/tx"
)

func TestPostgresStore_AppendJoinsAmbientTransaction(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	now := time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC)
	evt, err := outbox.New(outbox.AggregateParty, "p-1", outbox.TypePartyStarted, outbox.LedgerChange{PartyID: "p-1"}, now)
	require.NoError(t, err)

	mock.ExpectBegin()
	mock.ExpectExec("INSERT INTO outbox").
		WithArgs(evt.ID, outbox.AggregateParty, "p-1", outbox.TypePartyStarted, []byte(evt.Payload), now).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	s := NewPostgres(db)
	err = txcontext.NewPostgresRunner(db).RunInTx(context.Background(), func(ctx context.Context) error {
		return s.Append(ctx, evt)
	})
	require.NoError(t, err)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_ListUndispatched(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	id := uuid.New()
	created := time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC)
	rows := sqlmock.NewRows([]string{"id", "aggregate_type", "aggregate_id", "event_type", "payload", "created_at", "attempts"}).
		AddRow(id.String(), "payment", "pay-1", outbox.TypePaymentFinalFailed, []byte(`{"payment_id":"pay-1"}`), created, 2)
	mock.ExpectQuery("SELECT id, aggregate_type").WithArgs(50, 10).WillReturnRows(rows)

	events, err := NewPostgres(db).ListUndispatched(context.Background(), 50, 10)
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.Equal(t, id, events[0].ID)
	assert.Equal(t, 2, events[0].Attempts)

	var p outbox.PaymentFinalFailed
	require.NoError(t, events[0].Decode(&p))
	assert.Equal(t, "pay-1", p.PaymentID)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_MarkPublished(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	at := time.Now()
	mock.ExpectExec("UPDATE outbox SET published_at").
		WithArgs(sqlmock.AnyArg(), at).
		WillReturnResult(sqlmock.NewResult(0, 2))

	s := NewPostgres(db)
	require.NoError(t, s.MarkPublished(context.Background(), []uuid.UUID{uuid.New(), uuid.New()}, at))
	require.NoError(t, s.MarkPublished(context.Background(), nil, at))
	require.NoError(t, mock.ExpectationsWereMet())
}

var _ outbox.Store = (*PostgresStore)(nil)
var _ outbox.Store = (*InMemoryStore)(nil)
