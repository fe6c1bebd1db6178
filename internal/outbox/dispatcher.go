package outbox

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"moa/internal/platform/logger"
	"moa/internal/platform/metrics"
)

// Handler consumes one event. Handlers must be idempotent: an event is
// redelivered until every handler registered for its type succeeds.
type Handler interface {
	Handle(ctx context.Context, event Event) error
}

// HandlerFunc adapts a function to Handler.
type HandlerFunc func(ctx context.Context, event Event) error

func (f HandlerFunc) Handle(ctx context.Context, event Event) error {
	return f(ctx, event)
}

const (
	defaultBatchSize   = 100
	defaultMaxAttempts = 10
)

// Dispatcher delivers undispatched events to in-process handlers by type, in
// creation order.
type Dispatcher struct {
	store       Store
	handlers    map[string][]Handler
	logger      *slog.Logger
	metrics     *metrics.Metrics
	batchSize   int
	maxAttempts int
	now         func() time.Time
}

type DispatcherOption func(*Dispatcher)

func WithLogger(l *slog.Logger) DispatcherOption {
	return func(d *Dispatcher) { d.logger = l }
}

func WithMetrics(m *metrics.Metrics) DispatcherOption {
	return func(d *Dispatcher) { d.metrics = m }
}

func WithBatchSize(n int) DispatcherOption {
	return func(d *Dispatcher) { d.batchSize = n }
}

func WithMaxAttempts(n int) DispatcherOption {
	return func(d *Dispatcher) { d.maxAttempts = n }
}

func WithClock(now func() time.Time) DispatcherOption {
	return func(d *Dispatcher) { d.now = now }
}

func NewDispatcher(store Store, opts ...DispatcherOption) *Dispatcher {
	d := &Dispatcher{
		store:       store,
		handlers:    make(map[string][]Handler),
		logger:      logger.Discard(),
		batchSize:   defaultBatchSize,
		maxAttempts: defaultMaxAttempts,
		now:         time.Now,
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Register adds a handler for an event type.
func (d *Dispatcher) Register(eventType string, h Handler) {
	d.handlers[eventType] = append(d.handlers[eventType], h)
}

// DispatchPending delivers one batch. A failing event is recorded and left
// for the next run; it never blocks the rest of the batch.
func (d *Dispatcher) DispatchPending(ctx context.Context) (int, error) {
	events, err := d.store.ListUndispatched(ctx, d.batchSize, d.maxAttempts)
	if err != nil {
		return 0, fmt.Errorf("list undispatched events: %w", err)
	}

	delivered := 0
	var errs []error
	for _, evt := range events {
		if err := d.deliver(ctx, evt); err != nil {
			errs = append(errs, err)
			d.logger.Error("outbox event handler failed",
				"event_id", evt.ID,
				"event_type", evt.Type,
				"attempt", evt.Attempts+1,
				"error", err,
			)
			if recErr := d.store.RecordDispatchFailure(ctx, evt.ID, err.Error()); recErr != nil {
				errs = append(errs, recErr)
			}
			if evt.Attempts+1 >= d.maxAttempts {
				d.logger.Error("outbox event parked after max attempts",
					"event_id", evt.ID,
					"event_type", evt.Type,
				)
			}
			continue
		}
		if err := d.store.MarkDispatched(ctx, evt.ID, d.now()); err != nil {
			errs = append(errs, fmt.Errorf("mark dispatched %s: %w", evt.ID, err))
			continue
		}
		d.metrics.IncOutboxDelivered("dispatcher", evt.Type)
		delivered++
	}
	return delivered, errors.Join(errs...)
}

func (d *Dispatcher) deliver(ctx context.Context, evt Event) error {
	for _, h := range d.handlers[evt.Type] {
		if err := h.Handle(ctx, evt); err != nil {
			return err
		}
	}
	return nil
}
