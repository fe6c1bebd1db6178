package payment

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"moa/internal/payment/models"
	"moa/pkg/domain"
	"moa/pkg/platform/pgutil"
	"moa/pkg/platform/sentinel"
	txcontext "moa/pkg/platform/tx"
)

const paymentColumns = `id, party_id, membership_id, user_id, payment_type, target_month, amount, status, attempt_count,
	gateway_ref, order_id, failure_code, failure_message, paid_at, refunded_at, created_at, updated_at`

// PostgresStore persists payments. The (membership_id, target_month) unique
// constraint is the duplicate-billing guard.
type PostgresStore struct {
	db *sql.DB
}

func NewPostgres(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

// Create inserts p. A payment already recorded for the same membership and
// month returns sentinel.ErrConflict.
func (s *PostgresStore) Create(ctx context.Context, p *models.Payment) error {
	query := `
		INSERT INTO payments (id, party_id, membership_id, user_id, payment_type, target_month, amount, status,
			attempt_count, gateway_ref, order_id, failure_code, failure_message, paid_at, refunded_at, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17)
	`
	_, err := txcontext.Executor(ctx, s.db).ExecContext(ctx, query,
		p.ID,
		p.PartyID,
		p.MembershipID,
		p.UserID,
		string(p.Type),
		p.TargetMonth,
		p.Amount,
		string(p.Status),
		p.AttemptCount,
		p.GatewayRef,
		p.OrderID,
		p.FailureCode,
		p.FailureMessage,
		p.PaidAt,
		p.RefundedAt,
		p.CreatedAt,
		p.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert payment: %w", pgutil.Classify(err))
	}
	return nil
}

func (s *PostgresStore) FindByID(ctx context.Context, id domain.PaymentID) (*models.Payment, error) {
	query := `SELECT ` + paymentColumns + ` FROM payments WHERE id = $1`
	p, err := scanPayment(txcontext.Executor(ctx, s.db).QueryRowContext(ctx, query, id))
	if err != nil {
		return nil, fmt.Errorf("find payment: %w", pgutil.Classify(err))
	}
	return p, nil
}

func (s *PostgresStore) FindByMembershipMonth(ctx context.Context, membershipID domain.MembershipID, month domain.Month) (*models.Payment, error) {
	query := `SELECT ` + paymentColumns + ` FROM payments WHERE membership_id = $1 AND target_month = $2`
	p, err := scanPayment(txcontext.Executor(ctx, s.db).QueryRowContext(ctx, query, membershipID, month))
	if err != nil {
		return nil, fmt.Errorf("find payment by month: %w", pgutil.Classify(err))
	}
	return p, nil
}

// FindInitial returns the membership's INITIAL payment.
func (s *PostgresStore) FindInitial(ctx context.Context, membershipID domain.MembershipID) (*models.Payment, error) {
	query := `SELECT ` + paymentColumns + ` FROM payments
		WHERE membership_id = $1 AND payment_type = 'INITIAL'
		ORDER BY created_at DESC LIMIT 1`
	p, err := scanPayment(txcontext.Executor(ctx, s.db).QueryRowContext(ctx, query, membershipID))
	if err != nil {
		return nil, fmt.Errorf("find initial payment: %w", pgutil.Classify(err))
	}
	return p, nil
}

// RecordAttempt writes the outcome of an attempt. The update only applies
// while the stored attempt count is still prevAttempts, so two workers can
// never record the same attempt.
func (s *PostgresStore) RecordAttempt(ctx context.Context, p *models.Payment, prevAttempts int) error {
	query := `
		UPDATE payments
		SET status = $3, attempt_count = $4, gateway_ref = $5, failure_code = $6, failure_message = $7,
			paid_at = $8, updated_at = $9
		WHERE id = $1 AND attempt_count = $2 AND status IN ('PENDING', 'FAILED')
	`
	res, err := txcontext.Executor(ctx, s.db).ExecContext(ctx, query,
		p.ID,
		prevAttempts,
		string(p.Status),
		p.AttemptCount,
		p.GatewayRef,
		p.FailureCode,
		p.FailureMessage,
		p.PaidAt,
		p.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("record payment attempt: %w", err)
	}
	if err := pgutil.RequireOne(res, sentinel.ErrInvalidState); err != nil {
		return fmt.Errorf("record payment attempt: %w", err)
	}
	return nil
}

func (s *PostgresStore) MarkRefunded(ctx context.Context, id domain.PaymentID, now time.Time) error {
	query := `
		UPDATE payments SET status = 'REFUNDED', refunded_at = $2, updated_at = $2
		WHERE id = $1 AND status = 'COMPLETED'
	`
	res, err := txcontext.Executor(ctx, s.db).ExecContext(ctx, query, id, now)
	if err != nil {
		return fmt.Errorf("mark payment refunded: %w", err)
	}
	if err := pgutil.RequireOne(res, sentinel.ErrInvalidState); err != nil {
		return fmt.Errorf("mark payment refunded: %w", err)
	}
	return nil
}

func (s *PostgresStore) ListByMembership(ctx context.Context, membershipID domain.MembershipID) ([]*models.Payment, error) {
	query := `SELECT ` + paymentColumns + ` FROM payments WHERE membership_id = $1 ORDER BY target_month, created_at`
	return s.list(ctx, query, membershipID)
}

// ListCompletedForMonth returns the party's COMPLETED payments that cover
// month.
func (s *PostgresStore) ListCompletedForMonth(ctx context.Context, partyID domain.PartyID, month domain.Month) ([]*models.Payment, error) {
	query := `SELECT ` + paymentColumns + ` FROM payments
		WHERE party_id = $1 AND status = 'COMPLETED' AND target_month = $2
		ORDER BY paid_at, id`
	return s.list(ctx, query, partyID, month)
}

func (s *PostgresStore) list(ctx context.Context, query string, args ...any) ([]*models.Payment, error) {
	rows, err := txcontext.Executor(ctx, s.db).QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query payments: %w", err)
	}
	defer rows.Close()

	var out []*models.Payment
	for rows.Next() {
		p, err := scanPayment(rows)
		if err != nil {
			return nil, fmt.Errorf("scan payment: %w", err)
		}
		out = append(out, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate payments: %w", err)
	}
	return out, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanPayment(row rowScanner) (*models.Payment, error) {
	var (
		p                  models.Payment
		typ, status        string
		paidAt, refundedAt sql.NullTime
	)
	err := row.Scan(
		&p.ID,
		&p.PartyID,
		&p.MembershipID,
		&p.UserID,
		&typ,
		&p.TargetMonth,
		&p.Amount,
		&status,
		&p.AttemptCount,
		&p.GatewayRef,
		&p.OrderID,
		&p.FailureCode,
		&p.FailureMessage,
		&paidAt,
		&refundedAt,
		&p.CreatedAt,
		&p.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	p.Type = models.Type(typ)
	p.Status = models.Status(status)
	if paidAt.Valid {
		t := paidAt.Time
		p.PaidAt = &t
	}
	if refundedAt.Valid {
		t := refundedAt.Time
		p.RefundedAt = &t
	}
	return &p, nil
}
