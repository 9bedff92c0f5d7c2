package eventstore

import (
	"context"
	"fmt"
	"time"
)

// Metrics is a point-in-time snapshot of the event store's aggregate state,
// used to populate blocklist-server's /metrics endpoint.
type Metrics struct {
	DomainsTotal           int
	ClassificationsCurrent map[string]int // classification_type -> count valid now
	ClassificationsTotal   map[string]int // classification_type -> count ever committed
	EventsTotal            map[string]int // action -> count
}

// MetricsSnapshot aggregates counts across three tables in four queries
// (domains and events once each, classifications twice). Callers that need
// to serve stale-but-available metrics on a transient query failure should
// cache the last successful result
// themselves (see internal/blocklistserver), since the store has no concept
// of "last known good" — it always reflects the current database state.
func (s *Store) MetricsSnapshot(ctx context.Context) (Metrics, error) {
	m := Metrics{
		ClassificationsCurrent: map[string]int{},
		ClassificationsTotal:   map[string]int{},
		EventsTotal:            map[string]int{},
	}

	if err := s.db.Pool().QueryRow(ctx, `SELECT COUNT(*) FROM domains`).Scan(&m.DomainsTotal); err != nil {
		return Metrics{}, fmt.Errorf("eventstore: metrics domains total: %w", err)
	}

	now := time.Now().UTC()
	curRows, err := s.db.Pool().Query(ctx,
		`SELECT classification_type, COUNT(DISTINCT domain) FROM domain_classifications
		 WHERE valid_on <= $1 AND $1 < valid_until
		 GROUP BY classification_type`, now)
	if err != nil {
		return Metrics{}, fmt.Errorf("eventstore: metrics classifications current: %w", err)
	}
	for curRows.Next() {
		var t string
		var n int
		if err := curRows.Scan(&t, &n); err != nil {
			curRows.Close()
			return Metrics{}, fmt.Errorf("eventstore: metrics classifications current scan: %w", err)
		}
		m.ClassificationsCurrent[t] = n
	}
	curRows.Close()
	if err := curRows.Err(); err != nil {
		return Metrics{}, fmt.Errorf("eventstore: metrics classifications current rows: %w", err)
	}

	totRows, err := s.db.Pool().Query(ctx,
		`SELECT classification_type, COUNT(*) FROM domain_classifications GROUP BY classification_type`)
	if err != nil {
		return Metrics{}, fmt.Errorf("eventstore: metrics classifications total: %w", err)
	}
	for totRows.Next() {
		var t string
		var n int
		if err := totRows.Scan(&t, &n); err != nil {
			totRows.Close()
			return Metrics{}, fmt.Errorf("eventstore: metrics classifications total scan: %w", err)
		}
		m.ClassificationsTotal[t] = n
	}
	totRows.Close()
	if err := totRows.Err(); err != nil {
		return Metrics{}, fmt.Errorf("eventstore: metrics classifications total rows: %w", err)
	}

	evtRows, err := s.db.Pool().Query(ctx,
		`SELECT action, COUNT(*) FROM domain_classification_events GROUP BY action`)
	if err != nil {
		return Metrics{}, fmt.Errorf("eventstore: metrics events total: %w", err)
	}
	for evtRows.Next() {
		var a string
		var n int
		if err := evtRows.Scan(&a, &n); err != nil {
			evtRows.Close()
			return Metrics{}, fmt.Errorf("eventstore: metrics events total scan: %w", err)
		}
		m.EventsTotal[a] = n
	}
	evtRows.Close()
	if err := evtRows.Err(); err != nil {
		return Metrics{}, fmt.Errorf("eventstore: metrics events total rows: %w", err)
	}

	return m, nil
}
