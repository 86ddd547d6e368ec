package audit

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"himstay/internal/platform/middleware"
)

// Store persists audit events.
type Store interface {
	Append(ctx context.Context, event Event) error
	ListBySubject(ctx context.Context, subject string) ([]Event, error)
}

// Service appends audit events to the store and hands them to the async
// publisher. Auditing must never fail a business operation: errors are logged
// and swallowed, and a full publish queue drops rather than blocks.
type Service struct {
	store  Store
	logger *slog.Logger
	queue  chan Event
}

func NewService(store Store, logger *slog.Logger) *Service {
	return &Service{
		store:  store,
		logger: logger,
		queue:  make(chan Event, 256),
	}
}

// Record enriches the event with identity, device and request metadata from
// the context and persists it.
func (s *Service) Record(ctx context.Context, action, subject, detail string) {
	device := middleware.GetDevice(ctx)
	event := Event{
		ID:         uuid.NewString(),
		Action:     action,
		Subject:    subject,
		ActorID:    middleware.GetUserID(ctx),
		ActorRole:  middleware.GetRole(ctx),
		Detail:     detail,
		Device:     device.Browser,
		RequestID:  middleware.GetRequestID(ctx),
		OccurredAt: time.Now().UTC(),
	}
	if err := s.store.Append(ctx, event); err != nil {
		s.logger.ErrorContext(ctx, "audit append failed",
			"action", action, "subject", subject, "error", err)
	}
	select {
	case s.queue <- event:
	default:
		s.logger.WarnContext(ctx, "audit publish queue full, dropping event",
			"action", action, "subject", subject)
	}
}

// Events exposes the publish queue to the worker.
func (s *Service) Events() <-chan Event { return s.queue }

// ListBySubject returns the audit trail for one application or attempt.
func (s *Service) ListBySubject(ctx context.Context, subject string) ([]Event, error) {
	return s.store.ListBySubject(ctx, subject)
}
