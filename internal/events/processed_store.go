// Package events deduplicates inbound webhook deliveries.
package events

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
)

// ProviderWhatsApp names the WhatsApp webhook in processed_webhooks.
const ProviderWhatsApp = "whatsapp"

// Execer is satisfied by *pgxpool.Pool and pgx.Tx.
type Execer interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
}

// ProcessedStore records inbound message ids that were already handled, so
// a redelivered webhook does not run the state machine twice.
type ProcessedStore struct {
	db Execer
}

func NewProcessedStore(db Execer) *ProcessedStore {
	if db == nil {
		panic("events: db required")
	}
	return &ProcessedStore{db: db}
}

// Claim inserts the message id and reports whether this call owns it. A
// false result means another delivery already claimed the id.
func (s *ProcessedStore) Claim(ctx context.Context, businessID, provider, messageID string) (bool, error) {
	ct, err := s.db.Exec(ctx, `
		INSERT INTO processed_webhooks (business_id, provider, message_id)
		VALUES ($1, $2, $3)
		ON CONFLICT DO NOTHING
	`, businessID, provider, messageID)
	if err != nil {
		return false, fmt.Errorf("events: claim: %w", err)
	}
	return ct.RowsAffected() > 0, nil
}

// Complete stores the result tag of a claimed message.
func (s *ProcessedStore) Complete(ctx context.Context, businessID, provider, messageID, tag string) error {
	_, err := s.db.Exec(ctx, `
		UPDATE processed_webhooks SET tag = $4
		WHERE business_id = $1 AND provider = $2 AND message_id = $3
	`, businessID, provider, messageID, tag)
	if err != nil {
		return fmt.Errorf("events: complete: %w", err)
	}
	return nil
}

// Release drops a claim so a later redelivery is processed again.
func (s *ProcessedStore) Release(ctx context.Context, businessID, provider, messageID string) error {
	_, err := s.db.Exec(ctx, `
		DELETE FROM processed_webhooks
		WHERE business_id = $1 AND provider = $2 AND message_id = $3
	`, businessID, provider, messageID)
	if err != nil {
		return fmt.Errorf("events: release: %w", err)
	}
	return nil
}

// PurgeBefore deletes claims older than cutoff and returns how many went.
func (s *ProcessedStore) PurgeBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	ct, err := s.db.Exec(ctx, `DELETE FROM processed_webhooks WHERE created_at < $1`, cutoff)
	if err != nil {
		return 0, fmt.Errorf("events: purge: %w", err)
	}
	return ct.RowsAffected(), nil
}
