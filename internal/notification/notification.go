// Package notification requests user notifications. Delivery happens outside
// this module; the core only records that a notification is owed.
package notification

import (
	"context"
	"log/slog"
	"time"

	"moa/internal/outbox"
	"moa/internal/platform/logger"
	"moa/pkg/domain"
	txcontext "moa/pkg/platform/tx"
)

// Template identifies the message a downstream sender renders.
type Template string

const (
	TemplatePartyStarted        Template = "PARTY_STARTED"
	TemplatePartyClosed         Template = "PARTY_CLOSED"
	TemplateMemberJoined        Template = "PARTY_MEMBER_JOINED"
	TemplateMemberLeft          Template = "PARTY_MEMBER_LEFT"
	TemplateForceWithdrawn      Template = "PARTY_FORCE_WITHDRAWN"
	TemplateMemberRemoved       Template = "PARTY_MEMBER_REMOVED"
	TemplateDepositRefunded     Template = "DEPOSIT_REFUNDED"
	TemplateDepositForfeited    Template = "DEPOSIT_FORFEITED"
	TemplatePaymentCompleted    Template = "PAYMENT_COMPLETED"
	TemplatePaymentRetrying     Template = "PAYMENT_RETRYING"
	TemplatePaymentFinalFailed  Template = "PAYMENT_FINAL_FAILED"
	TemplateSettlementCompleted Template = "SETTLEMENT_COMPLETED"
	TemplateSettlementFailed    Template = "SETTLEMENT_FAILED"
	TemplateAccountVerified     Template = "ACCOUNT_VERIFIED"
)

// Notifier is fire-and-forget: implementations log and swallow failures so a
// notification problem never fails the business operation that raised it.
type Notifier interface {
	Notify(ctx context.Context, userID domain.UserID, template Template, params map[string]string, ref string)
}

// OutboxNotifier records notification.requested events. Each notification
// commits on its own so it never aborts the caller's transaction.
type OutboxNotifier struct {
	appender outbox.Appender
	logger   *slog.Logger
	now      func() time.Time
}

type Option func(*OutboxNotifier)

func WithLogger(l *slog.Logger) Option {
	return func(n *OutboxNotifier) { n.logger = l }
}

func WithClock(now func() time.Time) Option {
	return func(n *OutboxNotifier) { n.now = now }
}

func NewOutboxNotifier(appender outbox.Appender, opts ...Option) *OutboxNotifier {
	n := &OutboxNotifier{appender: appender, logger: logger.Discard(), now: time.Now}
	for _, opt := range opts {
		opt(n)
	}
	return n
}

func (n *OutboxNotifier) Notify(ctx context.Context, userID domain.UserID, template Template, params map[string]string, ref string) {
	evt, err := outbox.New(outbox.AggregateUser, userID.String(), outbox.TypeNotificationRequested, outbox.Notification{
		UserID:    userID.String(),
		Template:  string(template),
		Params:    params,
		Reference: ref,
	}, n.now())
	if err == nil {
		err = n.appender.Append(txcontext.Detach(ctx), evt)
	}
	if err != nil {
		n.logger.WarnContext(ctx, "notification dropped",
			"user_id", userID.String(),
			"template", string(template),
			"error", err,
		)
	}
}

// NotifyAll sends the same notification to every user in ids.
func NotifyAll(ctx context.Context, n Notifier, ids []domain.UserID, template Template, params map[string]string, ref string) {
	for _, id := range ids {
		n.Notify(ctx, id, template, params, ref)
	}
}

// Nop discards every notification.
type Nop struct{}

func (Nop) Notify(context.Context, domain.UserID, Template, map[string]string, string) {}
