package sessions

import (
	"context"
	"log/slog"
	"time"

	"github.com/ashureev/devenglish/internal/journal"
)

// Expirer is a registry that can drop idle sessions.
type Expirer interface {
	Expire(cutoff time.Time) int
}

// SweeperConfig configures the background sweeper.
type SweeperConfig struct {
	Interval         time.Duration
	TTL              time.Duration
	JournalRetention time.Duration
}

// StartSweeper runs a background goroutine that periodically closes idle
// sessions and prunes old journal rows. It stops when ctx is cancelled.
func StartSweeper(ctx context.Context, cfg SweeperConfig, repo journal.Repository, registries ...Expirer) {
	ticker := time.NewTicker(cfg.Interval)
	go func() {
		defer ticker.Stop()
		slog.Info("Session sweeper started", "interval", cfg.Interval, "ttl", cfg.TTL)

		for {
			select {
			case <-ticker.C:
				Sweep(ctx, cfg, repo, registries...)
			case <-ctx.Done():
				slog.Info("Session sweeper shutting down", "reason", ctx.Err())
				return
			}
		}
	}()
}

// Sweep performs one sweep pass.
func Sweep(ctx context.Context, cfg SweeperConfig, repo journal.Repository, registries ...Expirer) {
	cutoff := time.Now().Add(-cfg.TTL)
	expired := 0
	for _, r := range registries {
		expired += r.Expire(cutoff)
	}
	if expired > 0 {
		slog.Info("Session sweeper cleanup completed", "expired", expired)
	}

	if repo == nil || cfg.JournalRetention <= 0 {
		return
	}
	if deleted, err := repo.Prune(ctx, cfg.JournalRetention); err != nil {
		slog.Error("Session sweeper failed to prune journal", "error", err)
	} else if deleted > 0 {
		slog.Info("Session sweeper pruned journal", "count", deleted)
	}
}
