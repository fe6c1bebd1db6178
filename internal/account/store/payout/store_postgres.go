package payout

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"moa/internal/account/models"
	"moa/pkg/domain"
	"moa/pkg/platform/pgutil"
	"moa/pkg/platform/sentinel"
	txcontext "moa/pkg/platform/tx"
)

type PostgresStore struct {
	db *sql.DB
}

func NewPostgres(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

// Save inserts the account or replaces the user's previous one.
func (s *PostgresStore) Save(ctx context.Context, a *models.PayoutAccount) error {
	query := `
		INSERT INTO payout_accounts (user_id, bank_code, account_number_masked, holder_name, fintech_id, verified_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (user_id) DO UPDATE SET
			bank_code = EXCLUDED.bank_code,
			account_number_masked = EXCLUDED.account_number_masked,
			holder_name = EXCLUDED.holder_name,
			fintech_id = EXCLUDED.fintech_id,
			verified_at = EXCLUDED.verified_at,
			updated_at = EXCLUDED.updated_at
	`
	_, err := txcontext.Executor(ctx, s.db).ExecContext(ctx, query,
		a.UserID,
		a.BankCode,
		a.AccountNumberMasked,
		a.HolderName,
		a.FintechID,
		a.VerifiedAt,
		a.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("save payout account: %w", pgutil.Classify(err))
	}
	return nil
}

func (s *PostgresStore) FindByUserID(ctx context.Context, userID domain.UserID) (*models.PayoutAccount, error) {
	query := `
		SELECT user_id, bank_code, account_number_masked, holder_name, fintech_id, verified_at, updated_at
		FROM payout_accounts WHERE user_id = $1
	`
	var a models.PayoutAccount
	err := txcontext.Executor(ctx, s.db).QueryRowContext(ctx, query, userID).Scan(
		&a.UserID,
		&a.BankCode,
		&a.AccountNumberMasked,
		&a.HolderName,
		&a.FintechID,
		&a.VerifiedAt,
		&a.UpdatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, sentinel.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("find payout account: %w", err)
	}
	return &a, nil
}
