package postgres

import (
	"context"
	"io/fs"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"moa/internal/platform/config"
)

func TestEmbeddedMigrations_ArePaired(t *testing.T) {
	entries, err := fs.ReadDir(migrations, "migrations")
	require.NoError(t, err)

	ups, downs := map[string]bool{}, map[string]bool{}
	for _, e := range entries {
		name := e.Name()
		switch {
		case strings.HasSuffix(name, ".up.sql"):
			ups[strings.TrimSuffix(name, ".up.sql")] = true
		case strings.HasSuffix(name, ".down.sql"):
			downs[strings.TrimSuffix(name, ".down.sql")] = true
		}
	}
	require.NotEmpty(t, ups)
	assert.Equal(t, ups, downs)
}

func TestEmbeddedMigrations_DeclareLedgerConstraints(t *testing.T) {
	raw, err := fs.ReadFile(migrations, "migrations/000001_ledger.up.sql")
	require.NoError(t, err)
	schema := string(raw)

	for _, want := range []string{
		"UNIQUE (membership_id, target_month)",
		"UNIQUE (payment_id, attempt_number)",
		"UNIQUE (party_id, month)",
		"memberships_one_open_per_user",
		"deposit_retries_one_pending",
		"current_members <= max_members",
	} {
		assert.Contains(t, schema, want)
	}
}

func TestOpen_RejectsEmptyURL(t *testing.T) {
	_, err := Open(context.Background(), config.PostgresConfig{})
	require.Error(t, err)
}
