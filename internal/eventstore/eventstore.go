// Package eventstore implements the append-only classification event log and
// its derived projections (domains, prompts, domain_classifications) on top
// of internal/storage's Postgres connection pool.
package eventstore

import (
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/LoganBarnett/dns-smart-block/internal/storage"
)

// Store provides the event-store contract operations over a shared
// *storage.DB connection pool.
type Store struct {
	db *storage.DB
}

// New wraps an existing storage.DB in a Store.
func New(db *storage.DB) *Store {
	return &Store{db: db}
}

// Pool exposes the underlying connection pool for callers (such as tests)
// that need to issue queries this package doesn't wrap.
func (s *Store) Pool() *pgxpool.Pool {
	return s.db.Pool()
}
