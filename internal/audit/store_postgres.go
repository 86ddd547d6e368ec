package audit

import (
	"context"
	"database/sql"
	"fmt"
)

// PostgresStore persists audit events.
type PostgresStore struct {
	db *sql.DB
}

func NewPostgresStore(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

func (s *PostgresStore) Append(ctx context.Context, event Event) error {
	query := `
		INSERT INTO audit_events (id, action, subject, actor_id, actor_role, detail, device, request_id, occurred_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`
	_, err := s.db.ExecContext(ctx, query,
		event.ID, event.Action, event.Subject, event.ActorID, event.ActorRole,
		event.Detail, event.Device, event.RequestID, event.OccurredAt)
	if err != nil {
		return fmt.Errorf("insert audit event: %w", err)
	}
	return nil
}

func (s *PostgresStore) ListBySubject(ctx context.Context, subject string) ([]Event, error) {
	query := `
		SELECT id, action, subject, actor_id, actor_role, detail, device, request_id, occurred_at
		FROM audit_events WHERE subject = $1 ORDER BY occurred_at DESC`
	rows, err := s.db.QueryContext(ctx, query, subject)
	if err != nil {
		return nil, fmt.Errorf("list audit events: %w", err)
	}
	defer rows.Close()

	var out []Event
	for rows.Next() {
		var event Event
		if err := rows.Scan(
			&event.ID, &event.Action, &event.Subject, &event.ActorID, &event.ActorRole,
			&event.Detail, &event.Device, &event.RequestID, &event.OccurredAt); err != nil {
			return nil, fmt.Errorf("scan audit event: %w", err)
		}
		out = append(out, event)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list audit events: %w", err)
	}
	return out, nil
}
