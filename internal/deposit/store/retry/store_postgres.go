package retry

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"

	"moa/internal/deposit/models"
	"moa/pkg/domain"
	"moa/pkg/platform/pgutil"
	txcontext "moa/pkg/platform/tx"
)

const retryColumns = `id, deposit_id, retry_type, attempt_number, status, next_retry_at, gateway_ref, amount,
	reason, error_code, error_message, created_at, updated_at`

// PostgresStore persists deposit retry records. Callers write these with a
// detached context so they survive a rollback of the operation that failed.
type PostgresStore struct {
	db *sql.DB
}

func NewPostgres(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

// Create inserts r. A second PENDING record for the same deposit and type
// returns sentinel.ErrConflict.
func (s *PostgresStore) Create(ctx context.Context, r *models.Retry) error {
	query := `
		INSERT INTO deposit_retries (id, deposit_id, retry_type, attempt_number, status, next_retry_at, gateway_ref,
			amount, reason, error_code, error_message, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
	`
	_, err := txcontext.Executor(ctx, s.db).ExecContext(ctx, query,
		r.ID,
		r.DepositID,
		string(r.Type),
		r.AttemptNumber,
		string(r.Status),
		r.NextRetryAt,
		r.GatewayRef,
		r.Amount,
		r.Reason,
		r.ErrorCode,
		r.ErrorMessage,
		r.CreatedAt,
		r.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert deposit retry: %w", pgutil.Classify(err))
	}
	return nil
}

// ListDue returns PENDING records whose next attempt falls before dueBefore,
// plus records whose claim went stale (claimed before staleBefore and never
// finished).
func (s *PostgresStore) ListDue(ctx context.Context, dueBefore, staleBefore time.Time, limit int) ([]*models.Retry, error) {
	query := `SELECT ` + retryColumns + ` FROM deposit_retries
		WHERE status = 'PENDING'
		  AND (next_retry_at < $1 OR (next_retry_at IS NULL AND updated_at < $2))
		ORDER BY created_at
		LIMIT $3`
	return s.list(ctx, query, dueBefore, staleBefore, limit)
}

// Claim takes ownership of a due record by clearing next_retry_at. Only one
// concurrent caller observes true.
func (s *PostgresStore) Claim(ctx context.Context, id uuid.UUID, dueBefore, now, staleBefore time.Time) (bool, error) {
	query := `
		UPDATE deposit_retries SET next_retry_at = NULL, updated_at = $3
		WHERE id = $1 AND status = 'PENDING'
		  AND (next_retry_at < $2 OR (next_retry_at IS NULL AND updated_at < $4))
	`
	res, err := txcontext.Executor(ctx, s.db).ExecContext(ctx, query, id, dueBefore, now, staleBefore)
	if err != nil {
		return false, fmt.Errorf("claim deposit retry: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("claim deposit retry rows affected: %w", err)
	}
	return n == 1, nil
}

// Save writes the outcome of an attempt.
func (s *PostgresStore) Save(ctx context.Context, r *models.Retry) error {
	query := `
		UPDATE deposit_retries
		SET attempt_number = $2, status = $3, next_retry_at = $4, error_code = $5, error_message = $6, updated_at = $7
		WHERE id = $1
	`
	_, err := txcontext.Executor(ctx, s.db).ExecContext(ctx, query,
		r.ID, r.AttemptNumber, string(r.Status), r.NextRetryAt, r.ErrorCode, r.ErrorMessage, r.UpdatedAt)
	if err != nil {
		return fmt.Errorf("save deposit retry: %w", err)
	}
	return nil
}

func (s *PostgresStore) ListByDeposit(ctx context.Context, depositID domain.DepositID) ([]*models.Retry, error) {
	query := `SELECT ` + retryColumns + ` FROM deposit_retries WHERE deposit_id = $1 ORDER BY created_at`
	return s.list(ctx, query, depositID)
}

func (s *PostgresStore) list(ctx context.Context, query string, args ...any) ([]*models.Retry, error) {
	rows, err := txcontext.Executor(ctx, s.db).QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query deposit retries: %w", err)
	}
	defer rows.Close()

	var out []*models.Retry
	for rows.Next() {
		var (
			r           models.Retry
			typ, status string
			nextRetryAt sql.NullTime
		)
		err := rows.Scan(&r.ID, &r.DepositID, &typ, &r.AttemptNumber, &status, &nextRetryAt, &r.GatewayRef, &r.Amount,
			&r.Reason, &r.ErrorCode, &r.ErrorMessage, &r.CreatedAt, &r.UpdatedAt)
		if err != nil {
			return nil, fmt.Errorf("scan deposit retry: %w", err)
		}
		r.Type = models.RetryType(typ)
		r.Status = models.RetryStatus(status)
		if nextRetryAt.Valid {
			t := nextRetryAt.Time
			r.NextRetryAt = &t
		}
		out = append(out, &r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate deposit retries: %w", err)
	}
	return out, nil
}
