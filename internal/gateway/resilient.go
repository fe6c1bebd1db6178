package gateway

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"moa/internal/platform/logger"
	"moa/internal/platform/metrics"
	"moa/pkg/platform/circuit"
)

const defaultTimeout = 10 * time.Second

// guard applies timeout, circuit breaking, tracing and metrics to one
// external system.
type guard struct {
	name    string
	timeout time.Duration
	breaker *circuit.Breaker
	tracer  trace.Tracer
	metrics *metrics.Metrics
	logger  *slog.Logger
}

type Option func(*guard)

func WithTimeout(d time.Duration) Option {
	return func(g *guard) { g.timeout = d }
}

func WithBreaker(b *circuit.Breaker) Option {
	return func(g *guard) { g.breaker = b }
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(g *guard) { g.metrics = m }
}

func WithLogger(l *slog.Logger) Option {
	return func(g *guard) { g.logger = l }
}

func WithTracer(t trace.Tracer) Option {
	return func(g *guard) { g.tracer = t }
}

func newGuard(name string, opts ...Option) *guard {
	g := &guard{
		name:    name,
		timeout: defaultTimeout,
		tracer:  otel.Tracer("moa/gateway"),
		logger:  logger.Discard(),
	}
	for _, opt := range opts {
		opt(g)
	}
	if g.breaker == nil {
		g.breaker = circuit.New(name)
	}
	return g
}

func guarded[T any](ctx context.Context, g *guard, op string, fn func(ctx context.Context) (T, error)) (T, error) {
	var zero T
	if !g.breaker.Allow() {
		return zero, NewError(CodeCircuitOpen, g.name+" gateway unavailable")
	}

	ctx, span := g.tracer.Start(ctx, g.name+"."+op,
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(attribute.String("gateway.name", g.name)),
	)
	defer span.End()

	callCtx, cancel := context.WithTimeout(ctx, g.timeout)
	defer cancel()

	start := time.Now()
	res, err := fn(callCtx)
	if err != nil && errors.Is(callCtx.Err(), context.DeadlineExceeded) {
		err = NewError(CodeTimeout, g.name+" "+op+" timed out")
	}
	g.metrics.ObserveGatewayCall(g.name, op, start, err)

	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, CodeOf(err))
		if isInfrastructureFailure(err) {
			if _, change := g.breaker.RecordFailure(); change.Opened {
				g.logger.Warn("gateway circuit opened", "gateway", g.name, "operation", op)
				g.metrics.SetCircuitOpen(g.name, true)
			}
		}
		return zero, err
	}

	if _, change := g.breaker.RecordSuccess(); change.Closed {
		g.logger.Info("gateway circuit closed", "gateway", g.name)
		g.metrics.SetCircuitOpen(g.name, false)
	}
	return res, nil
}

// Declines (balance, card, limit) are answers from a healthy gateway and do
// not count against the breaker.
func isInfrastructureFailure(err error) bool {
	var gwErr *Error
	if !errors.As(err, &gwErr) {
		return true
	}
	switch gwErr.Code {
	case CodeTimeout, CodeUnknown:
		return true
	}
	return strings.HasPrefix(gwErr.Code, "FAILED_INTERNAL") || strings.HasPrefix(gwErr.Code, "PROVIDER_")
}

// ResilientPayments decorates a PaymentGateway.
type ResilientPayments struct {
	next PaymentGateway
	g    *guard
}

func NewResilientPayments(next PaymentGateway, opts ...Option) *ResilientPayments {
	return &ResilientPayments{next: next, g: newGuard("payment", opts...)}
}

func (r *ResilientPayments) ConfirmPayment(ctx context.Context, req ConfirmRequest) (*Receipt, error) {
	return guarded(ctx, r.g, "confirm", func(ctx context.Context) (*Receipt, error) {
		return r.next.ConfirmPayment(ctx, req)
	})
}

func (r *ResilientPayments) CancelPayment(ctx context.Context, req CancelRequest) (*Receipt, error) {
	return guarded(ctx, r.g, "cancel", func(ctx context.Context) (*Receipt, error) {
		return r.next.CancelPayment(ctx, req)
	})
}

func (r *ResilientPayments) IssueBillingCredential(ctx context.Context, authKey, customerID string) (*BillingCredential, error) {
	return guarded(ctx, r.g, "issue_credential", func(ctx context.Context) (*BillingCredential, error) {
		return r.next.IssueBillingCredential(ctx, authKey, customerID)
	})
}

func (r *ResilientPayments) ChargeWithCredential(ctx context.Context, req ChargeRequest) (*Receipt, error) {
	return guarded(ctx, r.g, "charge", func(ctx context.Context) (*Receipt, error) {
		return r.next.ChargeWithCredential(ctx, req)
	})
}

// ResilientBank decorates a BankGateway.
type ResilientBank struct {
	next BankGateway
	g    *guard
}

func NewResilientBank(next BankGateway, opts ...Option) *ResilientBank {
	return &ResilientBank{next: next, g: newGuard("bank", opts...)}
}

func (r *ResilientBank) RequestAccountVerification(ctx context.Context, req AccountVerificationRequest) (*VerificationTicket, error) {
	return guarded(ctx, r.g, "request_verification", func(ctx context.Context) (*VerificationTicket, error) {
		return r.next.RequestAccountVerification(ctx, req)
	})
}

func (r *ResilientBank) VerifyCode(ctx context.Context, transactionID, code string) (*VerifiedAccount, error) {
	return guarded(ctx, r.g, "verify_code", func(ctx context.Context) (*VerifiedAccount, error) {
		return r.next.VerifyCode(ctx, transactionID, code)
	})
}

func (r *ResilientBank) TransferDeposit(ctx context.Context, req TransferRequest) (*TransferReceipt, error) {
	return guarded(ctx, r.g, "transfer", func(ctx context.Context) (*TransferReceipt, error) {
		return r.next.TransferDeposit(ctx, req)
	})
}
