//go:build integration

package payments

import (
	"context"
	"database/sql"
	"os"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	_ "github.com/lib/pq"
)

func setupTestDB(t *testing.T) (*PostgresStore, func()) {
	t.Helper()

	dbURL := os.Getenv("POSTGRES_URL")
	if dbURL == "" {
		t.Skip("POSTGRES_URL not set, skipping integration test")
	}

	db, err := sql.Open("postgres", dbURL)
	if err != nil {
		t.Fatalf("Failed to open database: %v", err)
	}

	if err := db.Ping(); err != nil {
		t.Fatalf("Failed to connect to database: %v", err)
	}

	store := NewPostgresStore(db)
	ctx := context.Background()

	if err := store.Migrate(ctx); err != nil {
		t.Fatalf("Failed to migrate: %v", err)
	}

	cleanup := func() {
		db.ExecContext(ctx, "DELETE FROM processed_payment_sessions")
		db.Close()
	}

	return store, cleanup
}

func TestPostgres_MarkProcessed_Idempotent(t *testing.T) {
	store, cleanup := setupTestDB(t)
	defer cleanup()

	ctx := context.Background()

	first, err := store.MarkProcessed(ctx, "cs_pg_1")
	if err != nil {
		t.Fatalf("MarkProcessed failed: %v", err)
	}
	if !first {
		t.Error("Expected first=true for a fresh session")
	}

	first, err = store.MarkProcessed(ctx, "cs_pg_1")
	if err != nil {
		t.Fatalf("MarkProcessed failed: %v", err)
	}
	if first {
		t.Error("Expected first=false for a repeated session")
	}
}

func TestPostgres_ConcurrentMark_OneWinner(t *testing.T) {
	store, cleanup := setupTestDB(t)
	defer cleanup()

	ctx := context.Background()

	var wins int64
	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if first, err := store.MarkProcessed(ctx, "cs_pg_hot"); err == nil && first {
				atomic.AddInt64(&wins, 1)
			}
		}()
	}
	wg.Wait()

	if wins != 1 {
		t.Errorf("Expected exactly 1 winner, got %d", wins)
	}
}

func TestPostgres_UnmarkAllowsRetry(t *testing.T) {
	store, cleanup := setupTestDB(t)
	defer cleanup()

	ctx := context.Background()

	store.MarkProcessed(ctx, "cs_pg_2")
	if err := store.Unmark(ctx, "cs_pg_2"); err != nil {
		t.Fatalf("Unmark failed: %v", err)
	}

	first, _ := store.MarkProcessed(ctx, "cs_pg_2")
	if !first {
		t.Error("Expected first=true after unmark")
	}
}

func TestPostgres_PruneOlderThan(t *testing.T) {
	store, cleanup := setupTestDB(t)
	defer cleanup()

	ctx := context.Background()

	store.MarkProcessed(ctx, "cs_pg_old")
	store.MarkProcessed(ctx, "cs_pg_new")
	store.db.ExecContext(ctx,
		"UPDATE processed_payment_sessions SET processed_at = NOW() - INTERVAL '48 hours' WHERE session_id = 'cs_pg_old'")

	removed, err := store.PruneOlderThan(ctx, time.Now().Add(-24*time.Hour))
	if err != nil {
		t.Fatalf("PruneOlderThan failed: %v", err)
	}
	if removed != 1 {
		t.Errorf("Expected 1 removed, got %d", removed)
	}
}
