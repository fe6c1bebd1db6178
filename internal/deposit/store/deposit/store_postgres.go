package deposit

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"moa/internal/deposit/models"
	"moa/pkg/domain"
	"moa/pkg/platform/pgutil"
	"moa/pkg/platform/sentinel"
	txcontext "moa/pkg/platform/tx"
)

const depositColumns = `id, party_id, membership_id, user_id, amount, status, gateway_ref, order_id,
	paid_at, refunded_at, refund_amount, forfeited_at, reason, created_at, updated_at`

// PostgresStore persists deposits. Every status change is a conditional
// update on the expected source status.
type PostgresStore struct {
	db *sql.DB
}

func NewPostgres(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

func (s *PostgresStore) Create(ctx context.Context, d *models.Deposit) error {
	query := `
		INSERT INTO deposits (id, party_id, membership_id, user_id, amount, status, gateway_ref, order_id,
			paid_at, refunded_at, refund_amount, forfeited_at, reason, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15)
	`
	_, err := txcontext.Executor(ctx, s.db).ExecContext(ctx, query,
		d.ID,
		d.PartyID,
		d.MembershipID,
		d.UserID,
		d.Amount,
		string(d.Status),
		d.GatewayRef,
		d.OrderID,
		d.PaidAt,
		d.RefundedAt,
		d.RefundAmount,
		d.ForfeitedAt,
		d.Reason,
		d.CreatedAt,
		d.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert deposit: %w", pgutil.Classify(err))
	}
	return nil
}

func (s *PostgresStore) FindByID(ctx context.Context, id domain.DepositID) (*models.Deposit, error) {
	query := `SELECT ` + depositColumns + ` FROM deposits WHERE id = $1`
	d, err := scanDeposit(txcontext.Executor(ctx, s.db).QueryRowContext(ctx, query, id))
	if err != nil {
		return nil, fmt.Errorf("find deposit: %w", pgutil.Classify(err))
	}
	return d, nil
}

// FindByMembership returns the most recent deposit of the membership.
func (s *PostgresStore) FindByMembership(ctx context.Context, membershipID domain.MembershipID) (*models.Deposit, error) {
	query := `SELECT ` + depositColumns + ` FROM deposits
		WHERE membership_id = $1 ORDER BY created_at DESC LIMIT 1`
	d, err := scanDeposit(txcontext.Executor(ctx, s.db).QueryRowContext(ctx, query, membershipID))
	if err != nil {
		return nil, fmt.Errorf("find deposit by membership: %w", pgutil.Classify(err))
	}
	return d, nil
}

func (s *PostgresStore) MarkPaid(ctx context.Context, id domain.DepositID, gatewayRef string, now time.Time) error {
	query := `
		UPDATE deposits SET status = 'PAID', gateway_ref = $2, paid_at = $3, updated_at = $3
		WHERE id = $1 AND status = 'PENDING'
	`
	return s.transition(ctx, "mark deposit paid", query, id, gatewayRef, now)
}

func (s *PostgresStore) MarkRefunded(ctx context.Context, id domain.DepositID, reason string, now time.Time) error {
	query := `
		UPDATE deposits SET status = 'REFUNDED', refund_amount = amount, refunded_at = $2, reason = $3, updated_at = $2
		WHERE id = $1 AND status = 'PAID'
	`
	return s.transition(ctx, "mark deposit refunded", query, id, now, reason)
}

func (s *PostgresStore) MarkForfeited(ctx context.Context, id domain.DepositID, reason string, now time.Time) error {
	query := `
		UPDATE deposits SET status = 'FORFEITED', refund_amount = 0, forfeited_at = $2, reason = $3, updated_at = $2
		WHERE id = $1 AND status = 'PAID'
	`
	return s.transition(ctx, "mark deposit forfeited", query, id, now, reason)
}

// DeletePending removes a deposit whose charge never landed in the ledger.
func (s *PostgresStore) DeletePending(ctx context.Context, id domain.DepositID) error {
	return s.transition(ctx, "delete pending deposit", `DELETE FROM deposits WHERE id = $1 AND status = 'PENDING'`, id)
}

func (s *PostgresStore) ListByParty(ctx context.Context, partyID domain.PartyID) ([]*models.Deposit, error) {
	query := `SELECT ` + depositColumns + ` FROM deposits WHERE party_id = $1 ORDER BY created_at`
	return s.list(ctx, query, partyID)
}

func (s *PostgresStore) ListPaidByParty(ctx context.Context, partyID domain.PartyID) ([]*models.Deposit, error) {
	query := `SELECT ` + depositColumns + ` FROM deposits WHERE party_id = $1 AND status = 'PAID' ORDER BY created_at`
	return s.list(ctx, query, partyID)
}

// ListForfeitedBetween returns deposits forfeited in [from, until).
func (s *PostgresStore) ListForfeitedBetween(ctx context.Context, partyID domain.PartyID, from, until time.Time) ([]*models.Deposit, error) {
	query := `SELECT ` + depositColumns + ` FROM deposits
		WHERE party_id = $1 AND status = 'FORFEITED' AND forfeited_at >= $2 AND forfeited_at < $3
		ORDER BY forfeited_at`
	return s.list(ctx, query, partyID, from, until)
}

func (s *PostgresStore) transition(ctx context.Context, op, query string, args ...any) error {
	res, err := txcontext.Executor(ctx, s.db).ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	if err := pgutil.RequireOne(res, sentinel.ErrInvalidState); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}

func (s *PostgresStore) list(ctx context.Context, query string, args ...any) ([]*models.Deposit, error) {
	rows, err := txcontext.Executor(ctx, s.db).QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query deposits: %w", err)
	}
	defer rows.Close()

	var out []*models.Deposit
	for rows.Next() {
		d, err := scanDeposit(rows)
		if err != nil {
			return nil, fmt.Errorf("scan deposit: %w", err)
		}
		out = append(out, d)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate deposits: %w", err)
	}
	return out, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanDeposit(row rowScanner) (*models.Deposit, error) {
	var (
		d                               models.Deposit
		status                          string
		paidAt, refundedAt, forfeitedAt sql.NullTime
	)
	err := row.Scan(
		&d.ID,
		&d.PartyID,
		&d.MembershipID,
		&d.UserID,
		&d.Amount,
		&status,
		&d.GatewayRef,
		&d.OrderID,
		&paidAt,
		&refundedAt,
		&d.RefundAmount,
		&forfeitedAt,
		&d.Reason,
		&d.CreatedAt,
		&d.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	d.Status = models.Status(status)
	d.PaidAt = timePtr(paidAt)
	d.RefundedAt = timePtr(refundedAt)
	d.ForfeitedAt = timePtr(forfeitedAt)
	return &d, nil
}

func timePtr(t sql.NullTime) *time.Time {
	if !t.Valid {
		return nil
	}
	v := t.Time
	return &v
}
