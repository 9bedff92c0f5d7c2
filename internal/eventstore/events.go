package eventstore

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
)

// Action is one of the four classification-event actions a domain can move
// through: queued, classifying, classified, error.
type Action string

const (
	ActionQueued      Action = "queued"
	ActionClassifying Action = "classifying"
	ActionClassified  Action = "classified"
	ActionError       Action = "error"
)

// Event is a single row of domain_classification_events.
type Event struct {
	ID         int64
	Domain     string
	Action     Action
	ActionData json.RawMessage
	CreatedAt  time.Time
}

// AppendEvent inserts a new event for domain. data is marshaled to JSON and
// stored in action_data; pass nil for no payload.
func (s *Store) AppendEvent(ctx context.Context, domain string, action Action, data any) error {
	payload := json.RawMessage(`{}`)
	if data != nil {
		b, err := json.Marshal(data)
		if err != nil {
			return fmt.Errorf("eventstore: marshal action_data: %w", err)
		}
		payload = b
	}

	_, err := s.db.Pool().Exec(ctx,
		`INSERT INTO domain_classification_events (domain, action, action_data)
		 VALUES ($1, $2, $3)`,
		domain, action, payload,
	)
	if err != nil {
		return fmt.Errorf("eventstore: append event: %w", err)
	}
	return nil
}

// LatestEvent returns the most recent event for domain, ordered by the real
// auto-increment primary key (not wall-clock created_at alone) so that two
// events inserted within the same timestamp resolution still resolve in
// insertion order. Returns nil, nil if the domain has no events.
func (s *Store) LatestEvent(ctx context.Context, domain string) (*Event, error) {
	row := s.db.Pool().QueryRow(ctx,
		`SELECT id, domain, action, action_data, created_at
		 FROM domain_classification_events
		 WHERE domain = $1
		 ORDER BY created_at DESC, id DESC
		 LIMIT 1`,
		domain,
	)
	var e Event
	err := row.Scan(&e.ID, &e.Domain, &e.Action, &e.ActionData, &e.CreatedAt)
	if err == pgx.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("eventstore: latest event: %w", err)
	}
	return &e, nil
}

// ConsecutiveErrorCount counts how many of the most recent events for domain,
// scanning back from the latest (newest created_at first, ties broken by
// primary key), are error events with no intervening classified/queued/
// classifying event. This backs the queue-processor's circuit breaker (§7:
// three consecutive errors opens the circuit for that domain).
//
// Breaks ties by the real auto-increment primary key (id) rather than a
// SQLite-style implicit rowid, which Postgres has no equivalent of.
func (s *Store) ConsecutiveErrorCount(ctx context.Context, domain string) (int, error) {
	rows, err := s.db.Pool().Query(ctx,
		`SELECT action FROM domain_classification_events
		 WHERE domain = $1
		 ORDER BY created_at DESC, id DESC`,
		domain,
	)
	if err != nil {
		return 0, fmt.Errorf("eventstore: consecutive error count: %w", err)
	}
	defer rows.Close()

	count := 0
	for rows.Next() {
		var action Action
		if err := rows.Scan(&action); err != nil {
			return 0, fmt.Errorf("eventstore: consecutive error count scan: %w", err)
		}
		if action != ActionError {
			break
		}
		count++
	}
	if err := rows.Err(); err != nil {
		return 0, fmt.Errorf("eventstore: consecutive error count rows: %w", err)
	}
	return count, nil
}
