package outbox

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"moa/internal/platform/kafka"
	"moa/internal/platform/logger"
	"moa/internal/platform/metrics"
)

// Producer publishes records to the broker.
type Producer interface {
	Publish(ctx context.Context, msgs ...kafka.Message) error
}

// Relay copies unpublished outbox rows to Kafka, one topic per aggregate type.
// Rows are marked published only after the broker acknowledged the batch.
type Relay struct {
	store     Store
	producer  Producer
	prefix    string
	logger    *slog.Logger
	metrics   *metrics.Metrics
	batchSize int
	now       func() time.Time
}

func NewRelay(store Store, producer Producer, topicPrefix string, log *slog.Logger, m *metrics.Metrics) *Relay {
	if log == nil {
		log = logger.Discard()
	}
	return &Relay{
		store:     store,
		producer:  producer,
		prefix:    topicPrefix,
		logger:    log,
		metrics:   m,
		batchSize: defaultBatchSize,
		now:       time.Now,
	}
}

// Topic names the Kafka topic for an aggregate type.
func Topic(prefix, aggregateType string) string {
	return prefix + "." + aggregateType
}

// Topics lists every topic the relay can write to.
func Topics(prefix string) []string {
	return []string{
		Topic(prefix, AggregateParty),
		Topic(prefix, AggregateDeposit),
		Topic(prefix, AggregatePayment),
		Topic(prefix, AggregateSettlement),
		Topic(prefix, AggregateUser),
	}
}

// RelayPending publishes one batch and returns how many rows were sent.
func (r *Relay) RelayPending(ctx context.Context) (int, error) {
	events, err := r.store.ListUnpublished(ctx, r.batchSize)
	if err != nil {
		return 0, fmt.Errorf("list unpublished events: %w", err)
	}
	if len(events) == 0 {
		return 0, nil
	}

	msgs := make([]kafka.Message, 0, len(events))
	ids := make([]uuid.UUID, 0, len(events))
	for _, evt := range events {
		msgs = append(msgs, kafka.Message{
			Topic: Topic(r.prefix, evt.AggregateType),
			Key:   []byte(evt.AggregateID),
			Value: evt.Payload,
			Headers: map[string]string{
				"event_id":   evt.ID.String(),
				"event_type": evt.Type,
				"created_at": evt.CreatedAt.UTC().Format(time.RFC3339Nano),
			},
		})
		ids = append(ids, evt.ID)
	}

	if err := r.producer.Publish(ctx, msgs...); err != nil {
		return 0, fmt.Errorf("publish outbox batch: %w", err)
	}
	if err := r.store.MarkPublished(ctx, ids, r.now()); err != nil {
		r.logger.Error("outbox batch published but not marked; it will be republished",
			"count", len(ids),
			"error", err,
		)
		return 0, fmt.Errorf("mark published: %w", err)
	}
	for _, evt := range events {
		r.metrics.IncOutboxDelivered("kafka", evt.Type)
	}
	return len(events), nil
}
