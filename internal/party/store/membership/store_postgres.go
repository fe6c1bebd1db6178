package membership

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"moa/internal/party/models"
	"moa/pkg/domain"
	"moa/pkg/platform/pgutil"
	"moa/pkg/platform/sentinel"
	txcontext "moa/pkg/platform/tx"
)

const membershipColumns = `id, party_id, user_id, role, status, deposit_id, join_date, withdraw_date, withdraw_reason`

// PostgresStore persists memberships. Uniqueness of open memberships and of
// the leader seat is enforced by partial unique indexes.
type PostgresStore struct {
	db *sql.DB
}

func NewPostgres(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

// Create inserts m. A second open membership for the same user, or a second
// leader, returns sentinel.ErrConflict.
func (s *PostgresStore) Create(ctx context.Context, m *models.Membership) error {
	query := `
		INSERT INTO memberships (id, party_id, user_id, role, status, deposit_id, join_date, withdraw_date, withdraw_reason)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`
	_, err := txcontext.Executor(ctx, s.db).ExecContext(ctx, query,
		m.ID,
		m.PartyID,
		m.UserID,
		string(m.Role),
		string(m.Status),
		nullDepositID(m.DepositID),
		m.JoinDate,
		m.WithdrawDate,
		m.WithdrawReason,
	)
	if err != nil {
		return fmt.Errorf("insert membership: %w", pgutil.Classify(err))
	}
	return nil
}

func (s *PostgresStore) FindByID(ctx context.Context, id domain.MembershipID) (*models.Membership, error) {
	query := `SELECT ` + membershipColumns + ` FROM memberships WHERE id = $1`
	m, err := scanMembership(txcontext.Executor(ctx, s.db).QueryRowContext(ctx, query, id))
	if err != nil {
		return nil, fmt.Errorf("find membership: %w", pgutil.Classify(err))
	}
	return m, nil
}

// FindOpen returns the user's non-withdrawn membership in the party.
func (s *PostgresStore) FindOpen(ctx context.Context, partyID domain.PartyID, userID domain.UserID) (*models.Membership, error) {
	query := `SELECT ` + membershipColumns + ` FROM memberships
		WHERE party_id = $1 AND user_id = $2 AND status <> 'WITHDRAWN'`
	m, err := scanMembership(txcontext.Executor(ctx, s.db).QueryRowContext(ctx, query, partyID, userID))
	if err != nil {
		return nil, fmt.Errorf("find open membership: %w", pgutil.Classify(err))
	}
	return m, nil
}

func (s *PostgresStore) ListByParty(ctx context.Context, partyID domain.PartyID) ([]*models.Membership, error) {
	query := `SELECT ` + membershipColumns + ` FROM memberships WHERE party_id = $1 ORDER BY join_date, id`
	return s.list(ctx, query, partyID)
}

// ListActive returns ACTIVE memberships of the party, leader included.
func (s *PostgresStore) ListActive(ctx context.Context, partyID domain.PartyID) ([]*models.Membership, error) {
	query := `SELECT ` + membershipColumns + ` FROM memberships
		WHERE party_id = $1 AND status = 'ACTIVE' ORDER BY join_date, id`
	return s.list(ctx, query, partyID)
}

func (s *PostgresStore) CountActive(ctx context.Context, partyID domain.PartyID) (int, error) {
	var n int
	query := `SELECT COUNT(*) FROM memberships WHERE party_id = $1 AND status = 'ACTIVE'`
	if err := txcontext.Executor(ctx, s.db).QueryRowContext(ctx, query, partyID).Scan(&n); err != nil {
		return 0, fmt.Errorf("count active memberships: %w", err)
	}
	return n, nil
}

// Activate marks a pending membership paid. sentinel.ErrInvalidState when it
// is no longer pending.
func (s *PostgresStore) Activate(ctx context.Context, id domain.MembershipID, depositID domain.DepositID) error {
	query := `
		UPDATE memberships SET status = 'ACTIVE', deposit_id = $2
		WHERE id = $1 AND status = 'PENDING_PAYMENT'
	`
	res, err := txcontext.Executor(ctx, s.db).ExecContext(ctx, query, id, depositID)
	if err != nil {
		return fmt.Errorf("activate membership: %w", err)
	}
	if err := pgutil.RequireOne(res, sentinel.ErrInvalidState); err != nil {
		return fmt.Errorf("activate membership: %w", err)
	}
	return nil
}

// Withdraw moves an ACTIVE membership to WITHDRAWN. sentinel.ErrInvalidState
// when it was not active, which makes repeated withdrawals detectable.
func (s *PostgresStore) Withdraw(ctx context.Context, id domain.MembershipID, reason string, now time.Time) error {
	query := `
		UPDATE memberships SET status = 'WITHDRAWN', withdraw_date = $2, withdraw_reason = $3
		WHERE id = $1 AND status = 'ACTIVE'
	`
	res, err := txcontext.Executor(ctx, s.db).ExecContext(ctx, query, id, now, reason)
	if err != nil {
		return fmt.Errorf("withdraw membership: %w", err)
	}
	if err := pgutil.RequireOne(res, sentinel.ErrInvalidState); err != nil {
		return fmt.Errorf("withdraw membership: %w", err)
	}
	return nil
}

// DeletePending removes a membership whose join never completed.
func (s *PostgresStore) DeletePending(ctx context.Context, id domain.MembershipID) error {
	res, err := txcontext.Executor(ctx, s.db).ExecContext(ctx,
		`DELETE FROM memberships WHERE id = $1 AND status = 'PENDING_PAYMENT'`, id)
	if err != nil {
		return fmt.Errorf("delete pending membership: %w", err)
	}
	if err := pgutil.RequireOne(res, sentinel.ErrInvalidState); err != nil {
		return fmt.Errorf("delete pending membership: %w", err)
	}
	return nil
}

func (s *PostgresStore) list(ctx context.Context, query string, args ...any) ([]*models.Membership, error) {
	rows, err := txcontext.Executor(ctx, s.db).QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query memberships: %w", err)
	}
	defer rows.Close()

	var out []*models.Membership
	for rows.Next() {
		m, err := scanMembership(rows)
		if err != nil {
			return nil, fmt.Errorf("scan membership: %w", err)
		}
		out = append(out, m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate memberships: %w", err)
	}
	return out, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanMembership(row rowScanner) (*models.Membership, error) {
	var (
		m            models.Membership
		role, status string
		depositID    sql.NullString
		withdrawDate sql.NullTime
	)
	err := row.Scan(&m.ID, &m.PartyID, &m.UserID, &role, &status, &depositID, &m.JoinDate, &withdrawDate, &m.WithdrawReason)
	if err != nil {
		return nil, err
	}
	m.Role = models.Role(role)
	m.Status = models.MembershipStatus(status)
	if depositID.Valid {
		id, err := domain.ParseDepositID(depositID.String)
		if err != nil {
			return nil, err
		}
		m.DepositID = &id
	}
	if withdrawDate.Valid {
		t := withdrawDate.Time
		m.WithdrawDate = &t
	}
	return &m, nil
}

func nullDepositID(id *domain.DepositID) any {
	if id == nil {
		return nil
	}
	return *id
}
