// Package worker consumes audit events from a channel and delivers them to a
// sink. It keeps background processing testable without wiring queue
// implementations.
package worker

import (
	"context"
	"log/slog"

	audit "authsync/pkg/platform/audit"
)

type Worker struct {
	sink   audit.Sink
	inbox  <-chan audit.Event
	logger *slog.Logger
}

func NewWorker(sink audit.Sink, inbox <-chan audit.Event, logger *slog.Logger) *Worker {
	return &Worker{sink: sink, inbox: inbox, logger: logger}
}

// Run drains the inbox until ctx is done. Delivery failures are logged and
// skipped; audit is fire-and-forget end to end.
func (w *Worker) Run(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case event := <-w.inbox:
			if err := w.sink.Record(ctx, event); err != nil {
				w.logger.Warn("audit worker delivery failed",
					"event", string(event.Name),
					"error", err,
				)
			}
		}
	}
}
