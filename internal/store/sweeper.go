package store

import (
	"context"
	"log/slog"
	"time"
)

// SweepInterval is how often StartSweeper looks for stale tokens.
const SweepInterval = 5 * time.Minute

// SweepCallback is called for each device whose token was swept.
type SweepCallback func(deviceID string)

// StartSweeper runs a background goroutine that periodically deletes tokens
// unused for longer than ttl. It stops when ctx is done.
func StartSweeper(ctx context.Context, repo Repository, ttl time.Duration, onSweep SweepCallback) {
	ticker := time.NewTicker(SweepInterval)
	go func() {
		defer ticker.Stop()
		slog.Info("Token sweeper started", "interval", SweepInterval, "ttl", ttl)

		for {
			select {
			case <-ticker.C:
				Sweep(ctx, repo, ttl, onSweep)
			case <-ctx.Done():
				slog.Info("Token sweeper shutting down", "reason", ctx.Err())
				return
			}
		}
	}()
}

// Sweep performs one pass of stale token removal and returns how many
// devices were affected.
func Sweep(ctx context.Context, repo Repository, ttl time.Duration, onSweep SweepCallback) int {
	devices, err := repo.DeleteStaleTokens(ctx, ttl)
	if err != nil {
		slog.Error("Token sweeper failed to delete stale tokens", "error", err)
		return 0
	}
	if len(devices) == 0 {
		return 0
	}

	for _, deviceID := range devices {
		slog.Debug("Token sweeper removed token", "device_id", deviceID)
		if onSweep != nil {
			onSweep(deviceID)
		}
	}
	slog.Info("Token sweeper cleanup completed", "swept", len(devices))
	return len(devices)
}
