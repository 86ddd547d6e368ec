package audit

import (
	"context"
	"log/slog"
)

// Worker drains the service's publish queue into Kafka. It runs for the life
// of the process; publish failures are logged and the event dropped, since the
// audit store already holds it.
type Worker struct {
	publisher *Publisher
	inbox     <-chan Event
	logger    *slog.Logger
}

func NewWorker(publisher *Publisher, inbox <-chan Event, logger *slog.Logger) *Worker {
	return &Worker{publisher: publisher, inbox: inbox, logger: logger}
}

func (w *Worker) Run(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case event := <-w.inbox:
			if err := w.publisher.Publish(ctx, event); err != nil {
				w.logger.ErrorContext(ctx, "audit publish failed",
					"action", event.Action, "subject", event.Subject, "error", err)
			}
		}
	}
}
