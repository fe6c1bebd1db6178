package notification_test

//go:generate mockgen -source=notification.go -destination=mocks/mocks.go -package=mocks

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"moa/internal/notification"
	"moa/internal/outbox"
	outboxstore "moa/internal/outbox/store"
	"moa/pkg/domain"
)

type failingAppender struct{}

func (failingAppender) Append(context.Context, ...outbox.Event) error {
	return errors.New("database is down")
}

func TestOutboxNotifier_RecordsNotificationEvent(t *testing.T) {
	store := outboxstore.NewInMemory()
	now := time.Date(2025, 5, 1, 9, 0, 0, 0, time.UTC)
	n := notification.NewOutboxNotifier(store, notification.WithClock(func() time.Time { return now }))
	user := domain.UserID(uuid.New())

	n.Notify(context.Background(), user, notification.TemplatePartyStarted, map[string]string{"party_id": "p1"}, "party:p1")

	events := store.Events(outbox.TypeNotificationRequested)
	require.Len(t, events, 1)
	var payload outbox.Notification
	require.NoError(t, events[0].Decode(&payload))
	assert.Equal(t, user.String(), payload.UserID)
	assert.Equal(t, "PARTY_STARTED", payload.Template)
	assert.Equal(t, "p1", payload.Params["party_id"])
	assert.Equal(t, now, events[0].CreatedAt)
}

func TestOutboxNotifier_SwallowsFailures(t *testing.T) {
	n := notification.NewOutboxNotifier(failingAppender{})
	assert.NotPanics(t, func() {
		n.Notify(context.Background(), domain.UserID(uuid.New()), notification.TemplatePaymentCompleted, nil, "")
	})
}

func TestNotifyAll(t *testing.T) {
	store := outboxstore.NewInMemory()
	n := notification.NewOutboxNotifier(store)
	ids := []domain.UserID{domain.UserID(uuid.New()), domain.UserID(uuid.New()), domain.UserID(uuid.New())}

	notification.NotifyAll(context.Background(), n, ids, notification.TemplatePartyStarted, nil, "")

	assert.Len(t, store.Events(outbox.TypeNotificationRequested), 3)
}
