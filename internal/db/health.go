package db

import (
	"context"
	"database/sql"
	"log/slog"
	"sync/atomic"
	"time"
)

const (
	defaultPingInterval = 5 * time.Second
	defaultPingTimeout  = 2 * time.Second
)

// HealthTracker is the production StatusProvider for the directory router.
// It keeps an atomic reachability flag for the Postgres pool, refreshed by a
// background ping loop and forced down immediately when a store operation
// reports a connectivity failure. Readers may observe a stale value for at
// most one ping interval; the router tolerates that.
type HealthTracker struct {
	db        *sql.DB
	logger    *slog.Logger
	available atomic.Bool
	interval  time.Duration
}

// NewHealthTracker probes the pool once to seed the flag and returns the
// tracker. Call Run to keep the flag fresh.
func NewHealthTracker(pool *sql.DB, logger *slog.Logger) *HealthTracker {
	t := &HealthTracker{
		db:       pool,
		logger:   logger,
		interval: defaultPingInterval,
	}
	t.available.Store(t.ping(context.Background()))
	return t
}

// Available reports whether the durable store is currently reachable.
func (t *HealthTracker) Available() bool {
	return t.available.Load()
}

// MarkDown forces the flag down after an in-flight operation hit a
// connectivity error. The ping loop flips it back once the database answers.
func (t *HealthTracker) MarkDown() {
	if t.available.Swap(false) {
		t.logger.Warn("durable store marked unavailable, routing to fallback")
	}
}

// Run pings the database on a fixed interval until ctx is cancelled,
// logging every availability transition.
func (t *HealthTracker) Run(ctx context.Context) {
	ticker := time.NewTicker(t.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			up := t.ping(ctx)
			was := t.available.Swap(up)
			switch {
			case up && !was:
				t.logger.Info("durable store reachable again, leaving fallback mode")
			case !up && was:
				t.logger.Warn("durable store unreachable, entering fallback mode")
			}
		}
	}
}

func (t *HealthTracker) ping(ctx context.Context) bool {
	ctx, cancel := context.WithTimeout(ctx, defaultPingTimeout)
	defer cancel()
	return t.db.PingContext(ctx) == nil
}
