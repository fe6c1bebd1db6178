// Package pgutil classifies Postgres driver errors into store sentinels.
package pgutil

import (
	"database/sql"
	"errors"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/lib/pq"

	"moa/pkg/platform/sentinel"
)

const uniqueViolation = "23505"

// IsUniqueViolation reports whether err is a unique-constraint violation from
// either the pgx or lib/pq driver.
func IsUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == uniqueViolation
	}
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return string(pqErr.Code) == uniqueViolation
	}
	return false
}

// Classify maps driver errors onto sentinels: no rows becomes ErrNotFound
// and unique violations become ErrConflict. Other errors pass through.
func Classify(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, sql.ErrNoRows):
		return sentinel.ErrNotFound
	case IsUniqueViolation(err):
		return sentinel.ErrConflict
	default:
		return err
	}
}

// RequireOne converts a zero-row conditional update into miss.
func RequireOne(res sql.Result, miss error) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return miss
	}
	return nil
}
