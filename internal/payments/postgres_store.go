package payments

import (
	"context"
	"database/sql"
	"fmt"
	"time"
)

// PostgresStore persists processed checkout sessions so idempotency survives
// restarts.
type PostgresStore struct {
	db *sql.DB
}

// NewPostgresStore creates a Postgres-backed session store.
func NewPostgresStore(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

// Migrate creates the schema if needed.
func (s *PostgresStore) Migrate(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS processed_payment_sessions (
			session_id   TEXT PRIMARY KEY,
			processed_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		);
		CREATE INDEX IF NOT EXISTS idx_payment_sessions_processed_at
			ON processed_payment_sessions(processed_at);
	`)
	if err != nil {
		return fmt.Errorf("migrate payment sessions schema: %w", err)
	}
	return nil
}

func (s *PostgresStore) MarkProcessed(ctx context.Context, sessionID string) (bool, error) {
	res, err := s.db.ExecContext(ctx, `
		INSERT INTO processed_payment_sessions (session_id)
		VALUES ($1)
		ON CONFLICT (session_id) DO NOTHING
	`, sessionID)
	if err != nil {
		return false, fmt.Errorf("mark session processed: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("mark session processed: %w", err)
	}
	return n == 1, nil
}

func (s *PostgresStore) Unmark(ctx context.Context, sessionID string) error {
	_, err := s.db.ExecContext(ctx, `
		DELETE FROM processed_payment_sessions WHERE session_id = $1
	`, sessionID)
	if err != nil {
		return fmt.Errorf("unmark session: %w", err)
	}
	return nil
}

func (s *PostgresStore) PruneOlderThan(ctx context.Context, cutoff time.Time) (int64, error) {
	res, err := s.db.ExecContext(ctx, `
		DELETE FROM processed_payment_sessions WHERE processed_at < $1
	`, cutoff)
	if err != nil {
		return 0, fmt.Errorf("prune sessions: %w", err)
	}
	return res.RowsAffected()
}
