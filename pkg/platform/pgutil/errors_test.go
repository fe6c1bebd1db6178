package pgutil

import (
	"database/sql"
	"errors"
	"fmt"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"

	"moa/pkg/platform/sentinel"
)

func TestClassify(t *testing.T) {
	assert.NoError(t, Classify(nil))
	assert.ErrorIs(t, Classify(sql.ErrNoRows), sentinel.ErrNotFound)
	assert.ErrorIs(t, Classify(fmt.Errorf("insert: %w", &pgconn.PgError{Code: "23505"})), sentinel.ErrConflict)
	assert.ErrorIs(t, Classify(&pq.Error{Code: "23505"}), sentinel.ErrConflict)

	other := errors.New("connection reset")
	assert.Equal(t, other, Classify(other))
	assert.False(t, IsUniqueViolation(&pgconn.PgError{Code: "23503"}))
}

func TestRequireOne(t *testing.T) {
	assert.NoError(t, RequireOne(sqlmock.NewResult(0, 1), sentinel.ErrCapacity))
	assert.ErrorIs(t, RequireOne(sqlmock.NewResult(0, 0), sentinel.ErrCapacity), sentinel.ErrCapacity)
}
