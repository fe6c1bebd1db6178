package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"moa/internal/outbox"
	txcontext "moa/pkg/platform/tx"
)

// PostgresStore persists outbox rows. Append joins the ambient transaction so
// the event commits or rolls back with the ledger change that produced it.
type PostgresStore struct {
	db *sql.DB
}

func NewPostgres(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

func (s *PostgresStore) Append(ctx context.Context, events ...outbox.Event) error {
	query := `
		INSERT INTO outbox (id, aggregate_type, aggregate_id, event_type, payload, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`
	exec := txcontext.Executor(ctx, s.db)
	for _, evt := range events {
		_, err := exec.ExecContext(ctx, query,
			evt.ID,
			evt.AggregateType,
			evt.AggregateID,
			evt.Type,
			[]byte(evt.Payload),
			evt.CreatedAt,
		)
		if err != nil {
			return fmt.Errorf("insert outbox entry: %w", err)
		}
	}
	return nil
}

func (s *PostgresStore) ListUndispatched(ctx context.Context, limit, maxAttempts int) ([]outbox.Event, error) {
	query := `
		SELECT id, aggregate_type, aggregate_id, event_type, payload, created_at, attempts
		FROM outbox
		WHERE dispatched_at IS NULL AND attempts < $2
		ORDER BY created_at
		LIMIT $1
	`
	return s.list(ctx, query, limit, maxAttempts)
}

func (s *PostgresStore) ListUnpublished(ctx context.Context, limit int) ([]outbox.Event, error) {
	query := `
		SELECT id, aggregate_type, aggregate_id, event_type, payload, created_at, attempts
		FROM outbox
		WHERE published_at IS NULL
		ORDER BY created_at
		LIMIT $1
	`
	return s.list(ctx, query, limit)
}

func (s *PostgresStore) MarkDispatched(ctx context.Context, id uuid.UUID, at time.Time) error {
	_, err := s.db.ExecContext(ctx, `UPDATE outbox SET dispatched_at = $2, last_error = '' WHERE id = $1`, id, at)
	if err != nil {
		return fmt.Errorf("mark outbox dispatched: %w", err)
	}
	return nil
}

func (s *PostgresStore) RecordDispatchFailure(ctx context.Context, id uuid.UUID, reason string) error {
	_, err := s.db.ExecContext(ctx, `UPDATE outbox SET attempts = attempts + 1, last_error = $2 WHERE id = $1`, id, reason)
	if err != nil {
		return fmt.Errorf("record outbox failure: %w", err)
	}
	return nil
}

func (s *PostgresStore) MarkPublished(ctx context.Context, ids []uuid.UUID, at time.Time) error {
	if len(ids) == 0 {
		return nil
	}
	raw := make([]string, len(ids))
	for i, id := range ids {
		raw[i] = id.String()
	}
	_, err := s.db.ExecContext(ctx, `UPDATE outbox SET published_at = $2 WHERE id = ANY($1::uuid[])`, pq.Array(raw), at)
	if err != nil {
		return fmt.Errorf("mark outbox published: %w", err)
	}
	return nil
}

func (s *PostgresStore) list(ctx context.Context, query string, args ...any) ([]outbox.Event, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query outbox: %w", err)
	}
	defer rows.Close()

	var events []outbox.Event
	for rows.Next() {
		var (
			evt     outbox.Event
			payload []byte
		)
		if err := rows.Scan(&evt.ID, &evt.AggregateType, &evt.AggregateID, &evt.Type, &payload, &evt.CreatedAt, &evt.Attempts); err != nil {
			return nil, fmt.Errorf("scan outbox entry: %w", err)
		}
		evt.Payload = payload
		events = append(events, evt)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate outbox: %w", err)
	}
	return events, nil
}
