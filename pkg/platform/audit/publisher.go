package audit

import (
	"context"
	"log/slog"
	"time"

	"authsync/pkg/requestcontext"

	"github.com/google/uuid"
)

// Publisher delivers audit events to a sink, fire-and-forget. Sink failures
// are logged and swallowed; a run of failures opens the breaker and further
// events are dropped until the cooldown elapses. Audit delivery must never
// abort verification or logout.
type Publisher struct {
	sink    Sink
	breaker *CircuitBreaker
	logger  *slog.Logger
}

// PublisherOption configures a Publisher.
type PublisherOption func(*Publisher)

// WithBreaker overrides the default circuit breaker.
func WithBreaker(b *CircuitBreaker) PublisherOption {
	return func(p *Publisher) {
		if b != nil {
			p.breaker = b
		}
	}
}

func NewPublisher(sink Sink, logger *slog.Logger, opts ...PublisherOption) *Publisher {
	p := &Publisher{
		sink:    sink,
		breaker: NewCircuitBreaker(5, time.Minute),
		logger:  logger,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Emit records an event. Missing ID, timestamp, and request ID are filled in
// from context. Never returns an error.
func (p *Publisher) Emit(ctx context.Context, event Event) {
	if p.sink == nil {
		return
	}
	if event.ID == "" {
		event.ID = uuid.NewString()
	}
	if event.Timestamp.IsZero() {
		event.Timestamp = requestcontext.Now(ctx)
	}
	if event.RequestID == "" {
		event.RequestID = requestcontext.RequestID(ctx)
	}
	if event.Path == "" {
		event.Path = requestcontext.RoutePath(ctx)
	}
	if event.WalletAddress == "" {
		event.WalletAddress = requestcontext.WalletAddress(ctx)
	}

	if !p.breaker.Allow() {
		p.logger.Debug("audit breaker open, dropping event", "event", string(event.Name))
		return
	}

	if err := p.sink.Record(ctx, event); err != nil {
		p.breaker.RecordFailure()
		p.logger.Warn("audit sink rejected event",
			"event", string(event.Name),
			"error", err,
		)
		return
	}
	p.breaker.RecordSuccess()
}
