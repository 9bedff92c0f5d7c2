package eventstore

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/LoganBarnett/dns-smart-block/internal/storage"
)

// CommitClassificationParams are the inputs to CommitClassification.
// PromptHash must be "sha256:" + hex(SHA-256(prompt_template_bytes)) computed
// over the raw prompt template file — identically to how the classifier
// computes it — so a prompt is deduplicated by its template identity rather
// than by the per-domain rendered text.
type CommitClassificationParams struct {
	Domain             string
	ClassificationType string
	Confidence         float32
	Model              string
	PromptContent      string
	PromptHash         string
	TTLDays            int
}

// CommitClassification performs the three-step projection update the
// queue-processor makes after a successful classification: insert-or-ignore
// the prompt by content hash, upsert the domain's last_updated timestamp,
// and insert a new classification row with a [valid_on, valid_until) window.
// All three run in a single transaction, retried on Postgres serialization
// conflicts.
func (s *Store) CommitClassification(ctx context.Context, p CommitClassificationParams) error {
	return storage.WithRetry(ctx, 3, 100*time.Millisecond, func() error {
		tx, err := s.db.Pool().Begin(ctx)
		if err != nil {
			return fmt.Errorf("eventstore: begin commit classification: %w", err)
		}
		defer tx.Rollback(ctx) //nolint:errcheck

		promptID, err := ensurePrompt(ctx, tx, p.PromptContent, p.PromptHash)
		if err != nil {
			return err
		}

		if _, err := tx.Exec(ctx,
			`INSERT INTO domains (domain, last_updated) VALUES ($1, now())
			 ON CONFLICT (domain) DO UPDATE SET last_updated = now()`,
			p.Domain,
		); err != nil {
			return fmt.Errorf("eventstore: upsert domain: %w", err)
		}

		validOn := time.Now().UTC()
		validUntil := validOn.Add(time.Duration(p.TTLDays) * 24 * time.Hour)

		if _, err := tx.Exec(ctx,
			`INSERT INTO domain_classifications
			   (domain, classification_type, confidence, valid_on, valid_until, model, prompt_id)
			 VALUES ($1, $2, $3, $4, $5, $6, $7)`,
			p.Domain, p.ClassificationType, p.Confidence, validOn, validUntil, p.Model, promptID,
		); err != nil {
			return fmt.Errorf("eventstore: insert classification: %w", err)
		}

		if err := tx.Commit(ctx); err != nil {
			return fmt.Errorf("eventstore: commit classification: %w", err)
		}
		return nil
	})
}

// ensurePrompt inserts the prompt if its hash isn't already known, and
// returns the row's id either way. hash is the caller-computed
// "sha256:"+hex(SHA-256(template bytes)) identity, not recomputed here, so
// the stored hash matches whatever both classifier and queue-processor
// independently derived from the same template file.
func ensurePrompt(ctx context.Context, tx pgx.Tx, content, hash string) (int, error) {
	if _, err := tx.Exec(ctx,
		`INSERT INTO prompts (content, hash) VALUES ($1, $2)
		 ON CONFLICT (hash) DO NOTHING`,
		content, hash,
	); err != nil {
		return 0, fmt.Errorf("eventstore: insert prompt: %w", err)
	}

	var id int
	if err := tx.QueryRow(ctx,
		`SELECT id FROM prompts WHERE hash = $1`, hash,
	).Scan(&id); err != nil {
		return 0, fmt.Errorf("eventstore: select prompt id: %w", err)
	}
	return id, nil
}

// DomainsValidAt returns every domain whose classification of
// classificationType is valid at the instant `at` — i.e. valid_on <= at <
// valid_until — matching the half-open bi-temporal interval invariant.
func (s *Store) DomainsValidAt(ctx context.Context, classificationType string, at time.Time) ([]string, error) {
	rows, err := s.db.Pool().Query(ctx,
		`SELECT DISTINCT domain FROM domain_classifications
		 WHERE classification_type = $1 AND valid_on <= $2 AND $2 < valid_until
		 ORDER BY domain`,
		classificationType, at,
	)
	if err != nil {
		return nil, fmt.Errorf("eventstore: domains valid at: %w", err)
	}
	defer rows.Close()

	var domains []string
	for rows.Next() {
		var d string
		if err := rows.Scan(&d); err != nil {
			return nil, fmt.Errorf("eventstore: domains valid at scan: %w", err)
		}
		domains = append(domains, d)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("eventstore: domains valid at rows: %w", err)
	}
	return domains, nil
}

// HasValidClassification reports whether domain currently has a classification
// of classificationType valid at `at`. This is a point check used by the
// log-processor's should_queue decision, cheaper than scanning DomainsValidAt.
func (s *Store) HasValidClassification(ctx context.Context, domain, classificationType string, at time.Time) (bool, error) {
	var count int
	err := s.db.Pool().QueryRow(ctx,
		`SELECT COUNT(*) FROM domain_classifications
		 WHERE domain = $1 AND classification_type = $2 AND valid_on <= $3 AND $3 < valid_until`,
		domain, classificationType, at,
	).Scan(&count)
	if err != nil {
		return false, fmt.Errorf("eventstore: has valid classification: %w", err)
	}
	return count > 0, nil
}
