package billingkey

import (
	"context"
	"database/sql"
	"fmt"

	"moa/internal/payment/models"
	"moa/pkg/domain"
	"moa/pkg/platform/pgutil"
	txcontext "moa/pkg/platform/tx"
)

// PostgresStore keeps one billing key per user.
type PostgresStore struct {
	db *sql.DB
}

func NewPostgres(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

// Upsert stores k, replacing any previous credential of the user.
func (s *PostgresStore) Upsert(ctx context.Context, k *models.BillingKey) error {
	query := `
		INSERT INTO billing_keys (user_id, credential, card_company, card_number_masked, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (user_id) DO UPDATE SET
			credential = EXCLUDED.credential,
			card_company = EXCLUDED.card_company,
			card_number_masked = EXCLUDED.card_number_masked,
			updated_at = EXCLUDED.updated_at
	`
	_, err := txcontext.Executor(ctx, s.db).ExecContext(ctx, query,
		k.UserID, k.Credential, k.CardCompany, k.CardNumberMasked, k.CreatedAt, k.UpdatedAt)
	if err != nil {
		return fmt.Errorf("upsert billing key: %w", err)
	}
	return nil
}

func (s *PostgresStore) FindByUser(ctx context.Context, userID domain.UserID) (*models.BillingKey, error) {
	query := `
		SELECT user_id, credential, card_company, card_number_masked, created_at, updated_at
		FROM billing_keys WHERE user_id = $1
	`
	var k models.BillingKey
	err := txcontext.Executor(ctx, s.db).QueryRowContext(ctx, query, userID).Scan(
		&k.UserID, &k.Credential, &k.CardCompany, &k.CardNumberMasked, &k.CreatedAt, &k.UpdatedAt)
	if err != nil {
		return nil, fmt.Errorf("find billing key: %w", pgutil.Classify(err))
	}
	return &k, nil
}
