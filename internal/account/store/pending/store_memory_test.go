package pending

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"moa/internal/account/models"
	"moa/pkg/domain"
	"moa/pkg/platform/sentinel"
)

func TestInMemoryStore_Expiry(t *testing.T) {
	now := time.Date(2025, 3, 1, 9, 0, 0, 0, time.UTC)
	store := NewInMemory().WithClock(func() time.Time { return now })
	ctx := context.Background()
	userID := domain.UserID(uuid.New())

	require.NoError(t, store.Save(ctx, &models.PendingVerification{UserID: userID, TransactionID: "vt_1"}, 10*time.Minute))
	got, err := store.Find(ctx, userID)
	require.NoError(t, err)
	assert.Equal(t, "vt_1", got.TransactionID)

	now = now.Add(10 * time.Minute)
	_, err = store.Find(ctx, userID)
	assert.ErrorIs(t, err, sentinel.ErrNotFound)
}

func TestInMemoryStore_SaveReplaces(t *testing.T) {
	store := NewInMemory()
	ctx := context.Background()
	userID := domain.UserID(uuid.New())

	require.NoError(t, store.Save(ctx, &models.PendingVerification{UserID: userID, TransactionID: "vt_1"}, time.Minute))
	require.NoError(t, store.Save(ctx, &models.PendingVerification{UserID: userID, TransactionID: "vt_2"}, time.Minute))

	got, err := store.Find(ctx, userID)
	require.NoError(t, err)
	assert.Equal(t, "vt_2", got.TransactionID)

	require.NoError(t, store.Delete(ctx, userID))
	_, err = store.Find(ctx, userID)
	assert.ErrorIs(t, err, sentinel.ErrNotFound)
}
