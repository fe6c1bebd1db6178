package settlement

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/lib/pq"

	"moa/internal/settlement/models"
	"moa/pkg/domain"
	"moa/pkg/platform/pgutil"
	"moa/pkg/platform/sentinel"
	txcontext "moa/pkg/platform/tx"
)

const dateLayout = "2006-01-02"

const settlementColumns = `id, party_id, leader_id, month, window_start, window_end, total_amount,
	commission_amount, net_amount, status, bank_transaction_id, failure_reason, settled_at, created_at, updated_at`

// PostgresStore persists settlements and their details. Status changes are
// conditional updates, so a transfer is only attempted by the caller that
// moved the row to IN_PROGRESS.
type PostgresStore struct {
	db *sql.DB
}

func NewPostgres(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

// Create inserts the settlement and its details. Call it inside a unit of
// work. A second settlement for the same party and month returns
// sentinel.ErrConflict.
func (s *PostgresStore) Create(ctx context.Context, st *models.Settlement) error {
	exec := txcontext.Executor(ctx, s.db)
	query := `
		INSERT INTO settlements (id, party_id, leader_id, month, window_start, window_end, total_amount,
			commission_amount, net_amount, status, bank_transaction_id, failure_reason, settled_at, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15)
	`
	_, err := exec.ExecContext(ctx, query,
		st.ID,
		st.PartyID,
		st.LeaderID,
		st.Month,
		st.WindowStart.Format(dateLayout),
		st.WindowEnd.Format(dateLayout),
		st.TotalAmount,
		st.CommissionAmount,
		st.NetAmount,
		string(st.Status),
		st.BankTransactionID,
		st.FailureReason,
		st.SettledAt,
		st.CreatedAt,
		st.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert settlement: %w", pgutil.Classify(err))
	}
	if len(st.Details) == 0 {
		return nil
	}

	ids := make([]string, len(st.Details))
	paymentIDs := make([]string, len(st.Details))
	membershipIDs := make([]string, len(st.Details))
	amounts := make([]int64, len(st.Details))
	for i, d := range st.Details {
		ids[i] = d.ID.String()
		paymentIDs[i] = d.PaymentID.String()
		membershipIDs[i] = d.MembershipID.String()
		amounts[i] = d.Amount
	}
	detailQuery := `
		INSERT INTO settlement_details (id, settlement_id, payment_id, membership_id, amount)
		SELECT unnest($1::uuid[]), $2, unnest($3::uuid[]), unnest($4::uuid[]), unnest($5::bigint[])
	`
	if _, err := exec.ExecContext(ctx, detailQuery,
		pq.Array(ids), st.ID, pq.Array(paymentIDs), pq.Array(membershipIDs), pq.Array(amounts),
	); err != nil {
		return fmt.Errorf("insert settlement details: %w", err)
	}
	return nil
}

func (s *PostgresStore) FindByID(ctx context.Context, id domain.SettlementID) (*models.Settlement, error) {
	query := `SELECT ` + settlementColumns + ` FROM settlements WHERE id = $1`
	st, err := scanSettlement(txcontext.Executor(ctx, s.db).QueryRowContext(ctx, query, id))
	if err != nil {
		return nil, fmt.Errorf("find settlement: %w", pgutil.Classify(err))
	}
	return st, nil
}

func (s *PostgresStore) FindByPartyMonth(ctx context.Context, partyID domain.PartyID, month domain.Month) (*models.Settlement, error) {
	query := `SELECT ` + settlementColumns + ` FROM settlements WHERE party_id = $1 AND month = $2`
	st, err := scanSettlement(txcontext.Executor(ctx, s.db).QueryRowContext(ctx, query, partyID, month))
	if err != nil {
		return nil, fmt.Errorf("find settlement by month: %w", pgutil.Classify(err))
	}
	return st, nil
}

func (s *PostgresStore) ListDetails(ctx context.Context, id domain.SettlementID) ([]models.Detail, error) {
	rows, err := txcontext.Executor(ctx, s.db).QueryContext(ctx,
		`SELECT id, settlement_id, payment_id, membership_id, amount FROM settlement_details
		WHERE settlement_id = $1 ORDER BY id`, id)
	if err != nil {
		return nil, fmt.Errorf("query settlement details: %w", err)
	}
	defer rows.Close()

	var out []models.Detail
	for rows.Next() {
		var d models.Detail
		if err := rows.Scan(&d.ID, &d.SettlementID, &d.PaymentID, &d.MembershipID, &d.Amount); err != nil {
			return nil, fmt.Errorf("scan settlement detail: %w", err)
		}
		out = append(out, d)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate settlement details: %w", err)
	}
	return out, nil
}

// Claim moves a PENDING or FAILED settlement to IN_PROGRESS. A settlement in
// any other status returns sentinel.ErrInvalidState.
func (s *PostgresStore) Claim(ctx context.Context, id domain.SettlementID, now time.Time) error {
	query := `
		UPDATE settlements SET status = 'IN_PROGRESS', updated_at = $2
		WHERE id = $1 AND status IN ('PENDING', 'FAILED')
	`
	res, err := txcontext.Executor(ctx, s.db).ExecContext(ctx, query, id, now)
	if err != nil {
		return fmt.Errorf("claim settlement: %w", err)
	}
	if err := pgutil.RequireOne(res, sentinel.ErrInvalidState); err != nil {
		return fmt.Errorf("claim settlement: %w", err)
	}
	return nil
}

// MarkCompleted records the bank transfer. FAILED rows are accepted so a
// transfer whose completion was lost can be reconciled.
func (s *PostgresStore) MarkCompleted(ctx context.Context, id domain.SettlementID, bankTxID string, now time.Time) error {
	query := `
		UPDATE settlements
		SET status = 'COMPLETED', bank_transaction_id = $2, failure_reason = '', settled_at = $3, updated_at = $3
		WHERE id = $1 AND status IN ('IN_PROGRESS', 'FAILED')
	`
	res, err := txcontext.Executor(ctx, s.db).ExecContext(ctx, query, id, bankTxID, now)
	if err != nil {
		return fmt.Errorf("complete settlement: %w", err)
	}
	if err := pgutil.RequireOne(res, sentinel.ErrInvalidState); err != nil {
		return fmt.Errorf("complete settlement: %w", err)
	}
	return nil
}

// MarkFailed releases the claim. A non-empty bankTxID is stored; an empty one
// never clears a transaction id recorded earlier.
func (s *PostgresStore) MarkFailed(ctx context.Context, id domain.SettlementID, bankTxID, reason string, now time.Time) error {
	query := `
		UPDATE settlements
		SET status = 'FAILED',
			bank_transaction_id = COALESCE(NULLIF($2, ''), bank_transaction_id),
			failure_reason = $3,
			updated_at = $4
		WHERE id = $1 AND status = 'IN_PROGRESS'
	`
	res, err := txcontext.Executor(ctx, s.db).ExecContext(ctx, query, id, bankTxID, reason, now)
	if err != nil {
		return fmt.Errorf("fail settlement: %w", err)
	}
	if err := pgutil.RequireOne(res, sentinel.ErrInvalidState); err != nil {
		return fmt.Errorf("fail settlement: %w", err)
	}
	return nil
}

func (s *PostgresStore) ListByParty(ctx context.Context, partyID domain.PartyID) ([]*models.Settlement, error) {
	query := `SELECT ` + settlementColumns + ` FROM settlements WHERE party_id = $1 ORDER BY month DESC`
	return s.list(ctx, query, partyID)
}

// ListByStatus returns settlements in any of statuses, oldest first.
func (s *PostgresStore) ListByStatus(ctx context.Context, statuses []models.Status, limit int) ([]*models.Settlement, error) {
	values := make([]string, len(statuses))
	for i, st := range statuses {
		values[i] = string(st)
	}
	query := `SELECT ` + settlementColumns + ` FROM settlements
		WHERE status = ANY($1) ORDER BY created_at, id LIMIT $2`
	return s.list(ctx, query, pq.Array(values), limit)
}

func (s *PostgresStore) list(ctx context.Context, query string, args ...any) ([]*models.Settlement, error) {
	rows, err := txcontext.Executor(ctx, s.db).QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query settlements: %w", err)
	}
	defer rows.Close()

	var out []*models.Settlement
	for rows.Next() {
		st, err := scanSettlement(rows)
		if err != nil {
			return nil, fmt.Errorf("scan settlement: %w", err)
		}
		out = append(out, st)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate settlements: %w", err)
	}
	return out, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanSettlement(row rowScanner) (*models.Settlement, error) {
	var (
		st        models.Settlement
		status    string
		settledAt sql.NullTime
	)
	err := row.Scan(
		&st.ID,
		&st.PartyID,
		&st.LeaderID,
		&st.Month,
		&st.WindowStart,
		&st.WindowEnd,
		&st.TotalAmount,
		&st.CommissionAmount,
		&st.NetAmount,
		&status,
		&st.BankTransactionID,
		&st.FailureReason,
		&settledAt,
		&st.CreatedAt,
		&st.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	st.Status = models.Status(status)
	st.WindowStart = domain.DateOf(st.WindowStart)
	st.WindowEnd = domain.DateOf(st.WindowEnd)
	if settledAt.Valid {
		t := settledAt.Time
		st.SettledAt = &t
	}
	return &st, nil
}
