package payments

import (
	"context"
	"log/slog"
	"time"
)

// Timer periodically prunes old processed-session records. Stripe stops
// redelivering events long before the retention window closes, so pruned
// sessions cannot be double-credited.
type Timer struct {
	store     Store
	retention time.Duration
	interval  time.Duration
	logger    *slog.Logger
	stop      chan struct{}
}

// NewTimer creates a session-prune timer.
func NewTimer(store Store, retention time.Duration, logger *slog.Logger) *Timer {
	return &Timer{
		store:     store,
		retention: retention,
		interval:  24 * time.Hour,
		logger:    logger,
		stop:      make(chan struct{}),
	}
}

// Start begins the prune loop. Call in a goroutine.
func (t *Timer) Start(ctx context.Context) {
	ticker := time.NewTicker(t.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-t.stop:
			return
		case <-ticker.C:
			t.prune(ctx)
		}
	}
}

// Stop signals the timer to stop.
func (t *Timer) Stop() {
	select {
	case t.stop <- struct{}{}:
	default:
	}
}

func (t *Timer) prune(ctx context.Context) {
	removed, err := t.store.PruneOlderThan(ctx, time.Now().Add(-t.retention))
	if err != nil {
		t.logger.Warn("failed to prune processed payment sessions", "error", err)
		return
	}
	if removed > 0 {
		t.logger.Info("pruned processed payment sessions", "count", removed)
	}
}
