package party

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"moa/internal/party/models"
	"moa/pkg/domain"
	"moa/pkg/platform/pgutil"
	"moa/pkg/platform/sentinel"
	txcontext "moa/pkg/platform/tx"
)

const dateLayout = "2006-01-02"

const partyColumns = `id, leader_id, product_id, status, max_members, current_members, monthly_fee,
	start_date, end_date, created_at, updated_at, closed_at`

// billingDayMatches is true when $1 is the (clamped) billing day of the party.
const billingDayMatches = `LEAST(EXTRACT(DAY FROM start_date),
		EXTRACT(DAY FROM (date_trunc('month', $1::date) + INTERVAL '1 month - 1 day')))
		= EXTRACT(DAY FROM $1::date)`

// PostgresStore persists parties. Seat counts only change through the
// conditional ReserveSeat/ReleaseSeat statements.
type PostgresStore struct {
	db *sql.DB
}

func NewPostgres(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

func (s *PostgresStore) Create(ctx context.Context, p *models.Party) error {
	query := `
		INSERT INTO parties (id, leader_id, product_id, status, max_members, current_members, monthly_fee,
			start_date, end_date, created_at, updated_at, closed_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
	`
	_, err := txcontext.Executor(ctx, s.db).ExecContext(ctx, query,
		p.ID,
		p.LeaderID,
		string(p.ProductID),
		string(p.Status),
		p.MaxMembers,
		p.CurrentMembers,
		p.MonthlyFee,
		p.StartDate.Format(dateLayout),
		nullDate(p.EndDate),
		p.CreatedAt,
		p.UpdatedAt,
		p.ClosedAt,
	)
	if err != nil {
		return fmt.Errorf("insert party: %w", pgutil.Classify(err))
	}
	return nil
}

func (s *PostgresStore) FindByID(ctx context.Context, id domain.PartyID) (*models.Party, error) {
	query := `SELECT ` + partyColumns + ` FROM parties WHERE id = $1`
	p, err := scanParty(txcontext.Executor(ctx, s.db).QueryRowContext(ctx, query, id))
	if err != nil {
		return nil, fmt.Errorf("find party: %w", pgutil.Classify(err))
	}
	return p, nil
}

// FindByIDForUpdate loads the party and locks its row until the surrounding
// transaction ends. Joins completing and closures finishing serialize on this
// lock.
func (s *PostgresStore) FindByIDForUpdate(ctx context.Context, id domain.PartyID) (*models.Party, error) {
	query := `SELECT ` + partyColumns + ` FROM parties WHERE id = $1 FOR UPDATE`
	p, err := scanParty(txcontext.Executor(ctx, s.db).QueryRowContext(ctx, query, id))
	if err != nil {
		return nil, fmt.Errorf("lock party: %w", pgutil.Classify(err))
	}
	return p, nil
}

// MarkClosing moves a running party to CLOSING, after which ReserveSeat
// misses. Marking a party that is already closing succeeds; any other status
// returns sentinel.ErrInvalidState.
func (s *PostgresStore) MarkClosing(ctx context.Context, id domain.PartyID, now time.Time) error {
	query := `
		UPDATE parties SET status = 'CLOSING', updated_at = $2
		WHERE id = $1 AND status IN ('RECRUITING', 'ACTIVE', 'CLOSING')
	`
	res, err := txcontext.Executor(ctx, s.db).ExecContext(ctx, query, id, now)
	if err != nil {
		return fmt.Errorf("mark party closing: %w", err)
	}
	if err := pgutil.RequireOne(res, sentinel.ErrInvalidState); err != nil {
		return fmt.Errorf("mark party closing: %w", err)
	}
	return nil
}

// UpdateStatus moves the party from one status to another. It returns
// sentinel.ErrInvalidState when the party is no longer in from.
func (s *PostgresStore) UpdateStatus(ctx context.Context, id domain.PartyID, from, to models.PartyStatus, now time.Time) error {
	query := `
		UPDATE parties
		SET status = $3,
			updated_at = $4,
			closed_at = CASE WHEN $3 = 'CLOSED' THEN $4 ELSE closed_at END
		WHERE id = $1 AND status = $2
	`
	res, err := txcontext.Executor(ctx, s.db).ExecContext(ctx, query, id, string(from), string(to), now)
	if err != nil {
		return fmt.Errorf("update party status: %w", err)
	}
	if err := pgutil.RequireOne(res, sentinel.ErrInvalidState); err != nil {
		return fmt.Errorf("update party status: %w", err)
	}
	return nil
}

// ReserveSeat increments current_members only while the party is recruiting
// and has room. A miss returns sentinel.ErrCapacity.
func (s *PostgresStore) ReserveSeat(ctx context.Context, id domain.PartyID, now time.Time) (*models.Party, error) {
	query := `
		UPDATE parties
		SET current_members = current_members + 1, updated_at = $2
		WHERE id = $1 AND status = 'RECRUITING' AND current_members < max_members
		RETURNING ` + partyColumns
	p, err := scanParty(txcontext.Executor(ctx, s.db).QueryRowContext(ctx, query, id, now))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("reserve seat: %w", sentinel.ErrCapacity)
	}
	if err != nil {
		return nil, fmt.Errorf("reserve seat: %w", err)
	}
	return p, nil
}

// ReleaseSeat decrements current_members, never below the leader's seat, and
// reopens an ACTIVE party for recruiting in the same statement.
func (s *PostgresStore) ReleaseSeat(ctx context.Context, id domain.PartyID, now time.Time) (*models.Party, error) {
	query := `
		UPDATE parties
		SET current_members = current_members - 1,
			status = CASE WHEN status = 'ACTIVE' THEN 'RECRUITING' ELSE status END,
			updated_at = $2
		WHERE id = $1 AND current_members > 1
		RETURNING ` + partyColumns
	p, err := scanParty(txcontext.Executor(ctx, s.db).QueryRowContext(ctx, query, id, now))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("release seat: %w", sentinel.ErrInvalidState)
	}
	if err != nil {
		return nil, fmt.Errorf("release seat: %w", err)
	}
	return p, nil
}

// ListPendingPaymentBefore returns parties still awaiting the leader deposit
// that were created before cutoff.
func (s *PostgresStore) ListPendingPaymentBefore(ctx context.Context, cutoff time.Time) ([]*models.Party, error) {
	query := `SELECT ` + partyColumns + ` FROM parties
		WHERE status = 'PENDING_PAYMENT' AND created_at < $1
		ORDER BY created_at`
	return s.list(ctx, query, cutoff)
}

// ListBillingDue returns running parties whose billing day is date.
func (s *PostgresStore) ListBillingDue(ctx context.Context, date time.Time) ([]*models.Party, error) {
	query := `SELECT ` + partyColumns + ` FROM parties
		WHERE status IN ('RECRUITING', 'ACTIVE')
		  AND start_date <= $1::date
		  AND (end_date IS NULL OR end_date >= $1::date)
		  AND ` + billingDayMatches + `
		ORDER BY id`
	return s.list(ctx, query, date.Format(dateLayout))
}

// ListExpired returns open parties whose end date is before date, including
// those whose closure has not finished yet.
func (s *PostgresStore) ListExpired(ctx context.Context, date time.Time) ([]*models.Party, error) {
	query := `SELECT ` + partyColumns + ` FROM parties
		WHERE status IN ('RECRUITING', 'ACTIVE', 'CLOSING')
		  AND end_date IS NOT NULL AND end_date < $1::date
		ORDER BY end_date, id`
	return s.list(ctx, query, date.Format(dateLayout))
}

// ListSettleable returns parties for which date starts a new cycle, so the
// previous cycle can be settled. Closed parties qualify until closedSince.
func (s *PostgresStore) ListSettleable(ctx context.Context, date, closedSince time.Time) ([]*models.Party, error) {
	query := `SELECT ` + partyColumns + ` FROM parties
		WHERE status IN ('RECRUITING', 'ACTIVE', 'CLOSING', 'CLOSED')
		  AND start_date < $1::date
		  AND (closed_at IS NULL OR closed_at >= $2)
		  AND ` + billingDayMatches + `
		ORDER BY id`
	return s.list(ctx, query, date.Format(dateLayout), closedSince)
}

func (s *PostgresStore) list(ctx context.Context, query string, args ...any) ([]*models.Party, error) {
	rows, err := txcontext.Executor(ctx, s.db).QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query parties: %w", err)
	}
	defer rows.Close()

	var parties []*models.Party
	for rows.Next() {
		p, err := scanParty(rows)
		if err != nil {
			return nil, fmt.Errorf("scan party: %w", err)
		}
		parties = append(parties, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate parties: %w", err)
	}
	return parties, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanParty(row rowScanner) (*models.Party, error) {
	var (
		p         models.Party
		productID string
		status    string
		endDate   sql.NullTime
		closedAt  sql.NullTime
	)
	err := row.Scan(
		&p.ID,
		&p.LeaderID,
		&productID,
		&status,
		&p.MaxMembers,
		&p.CurrentMembers,
		&p.MonthlyFee,
		&p.StartDate,
		&endDate,
		&p.CreatedAt,
		&p.UpdatedAt,
		&closedAt,
	)
	if err != nil {
		return nil, err
	}
	p.ProductID = domain.ProductID(productID)
	p.Status = models.PartyStatus(status)
	p.StartDate = domain.DateOf(p.StartDate)
	if endDate.Valid {
		d := domain.DateOf(endDate.Time)
		p.EndDate = &d
	}
	if closedAt.Valid {
		t := closedAt.Time
		p.ClosedAt = &t
	}
	return &p, nil
}

func nullDate(t *time.Time) any {
	if t == nil {
		return nil
	}
	return t.Format(dateLayout)
}
