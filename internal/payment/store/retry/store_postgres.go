package retry

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"

	"moa/internal/payment/models"
	"moa/pkg/domain"
	"moa/pkg/platform/pgutil"
	"moa/pkg/platform/sentinel"
	txcontext "moa/pkg/platform/tx"
)

const retryColumns = `id, payment_id, attempt_number, status, next_retry_at, error_code, error_message, gateway_ref, attempted_at`

// PostgresStore persists the attempt history of payments. The
// (payment_id, attempt_number) unique constraint keeps attempts from being
// recorded twice.
type PostgresStore struct {
	db *sql.DB
}

func NewPostgres(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

// Create inserts r. A row for an attempt already recorded returns
// sentinel.ErrConflict.
func (s *PostgresStore) Create(ctx context.Context, r *models.Retry) error {
	query := `
		INSERT INTO payment_retries (id, payment_id, attempt_number, status, next_retry_at, error_code, error_message, gateway_ref, attempted_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`
	_, err := txcontext.Executor(ctx, s.db).ExecContext(ctx, query,
		r.ID,
		r.PaymentID,
		r.AttemptNumber,
		string(r.Status),
		r.NextRetryAt,
		r.ErrorCode,
		r.ErrorMessage,
		r.GatewayRef,
		r.AttemptedAt,
	)
	if err != nil {
		return fmt.Errorf("insert payment retry: %w", pgutil.Classify(err))
	}
	return nil
}

// ResolveVoid overwrites a VOID row with the outcome in r, keyed by r.ID. A
// row that is no longer VOID returns sentinel.ErrInvalidState.
func (s *PostgresStore) ResolveVoid(ctx context.Context, r *models.Retry) error {
	query := `
		UPDATE payment_retries
		SET status = $2, next_retry_at = $3, error_code = $4, error_message = $5, attempted_at = $6
		WHERE id = $1 AND status = 'VOID'
	`
	res, err := txcontext.Executor(ctx, s.db).ExecContext(ctx, query,
		r.ID,
		string(r.Status),
		r.NextRetryAt,
		r.ErrorCode,
		r.ErrorMessage,
		r.AttemptedAt,
	)
	if err != nil {
		return fmt.Errorf("resolve void payment retry: %w", err)
	}
	return pgutil.RequireOne(res, sentinel.ErrInvalidState)
}

// ListDue returns FAILED and VOID rows whose scheduled next attempt falls before
// dueBefore.
func (s *PostgresStore) ListDue(ctx context.Context, dueBefore time.Time, limit int) ([]*models.Retry, error) {
	query := `SELECT ` + retryColumns + ` FROM payment_retries
		WHERE next_retry_at IS NOT NULL AND next_retry_at < $1
		ORDER BY next_retry_at
		LIMIT $2`
	return s.list(ctx, query, dueBefore, limit)
}

// Claim leases a due row until leaseUntil by pushing its schedule forward.
// Only one concurrent caller observes true; a worker that dies mid-attempt
// leaves the row due again once the lease runs out.
func (s *PostgresStore) Claim(ctx context.Context, id uuid.UUID, dueBefore, leaseUntil time.Time) (bool, error) {
	query := `
		UPDATE payment_retries SET next_retry_at = $3
		WHERE id = $1 AND next_retry_at IS NOT NULL AND next_retry_at < $2
	`
	res, err := txcontext.Executor(ctx, s.db).ExecContext(ctx, query, id, dueBefore, leaseUntil)
	if err != nil {
		return false, fmt.Errorf("claim payment retry: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("claim payment retry rows affected: %w", err)
	}
	return n == 1, nil
}

// ClearSchedule removes the pending schedule of a row once its follow-up
// attempt has been recorded or abandoned.
func (s *PostgresStore) ClearSchedule(ctx context.Context, id uuid.UUID) error {
	query := `UPDATE payment_retries SET next_retry_at = NULL WHERE id = $1`
	if _, err := txcontext.Executor(ctx, s.db).ExecContext(ctx, query, id); err != nil {
		return fmt.Errorf("clear payment retry schedule: %w", err)
	}
	return nil
}

func (s *PostgresStore) ListByPayment(ctx context.Context, paymentID domain.PaymentID) ([]*models.Retry, error) {
	query := `SELECT ` + retryColumns + ` FROM payment_retries WHERE payment_id = $1 ORDER BY attempt_number`
	return s.list(ctx, query, paymentID)
}

func (s *PostgresStore) list(ctx context.Context, query string, args ...any) ([]*models.Retry, error) {
	rows, err := txcontext.Executor(ctx, s.db).QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query payment retries: %w", err)
	}
	defer rows.Close()

	var out []*models.Retry
	for rows.Next() {
		var (
			r           models.Retry
			status      string
			nextRetryAt sql.NullTime
		)
		err := rows.Scan(&r.ID, &r.PaymentID, &r.AttemptNumber, &status, &nextRetryAt, &r.ErrorCode, &r.ErrorMessage, &r.GatewayRef, &r.AttemptedAt)
		if err != nil {
			return nil, fmt.Errorf("scan payment retry: %w", err)
		}
		r.Status = models.RetryStatus(status)
		if nextRetryAt.Valid {
			t := nextRetryAt.Time
			r.NextRetryAt = &t
		}
		out = append(out, &r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate payment retries: %w", err)
	}
	return out, nil
}
