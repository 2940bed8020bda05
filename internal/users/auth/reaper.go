// Copyright (c) 2026 Addressbook. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package auth

import (
	"context"
	"fmt"
	"log/slog"
	"time"
)

// # Refresh Token Reaper

// Reaper periodically deletes refresh tokens that can never be used again:
// expired ones and ones revoked more than [StaleRevokedAfter] ago.
type Reaper struct {
	repository RefreshTokenRepository
	interval   time.Duration
	logger     *slog.Logger
	now        func() time.Time
}

// NewReaper creates a reaper that sweeps every interval.
func NewReaper(repository RefreshTokenRepository, interval time.Duration, logger *slog.Logger) *Reaper {
	return &Reaper{
		repository: repository,
		interval:   interval,
		logger:     logger,
		now:        time.Now,
	}
}

// WithClock overrides the time source used for cutoffs.
func (reaper *Reaper) WithClock(now func() time.Time) *Reaper {
	reaper.now = now
	return reaper
}

// Run sweeps once immediately and then on every tick until ctx is cancelled.
// Failed sweeps are logged; the loop keeps going.
func (reaper *Reaper) Run(ctx context.Context) {
	ticker := time.NewTicker(reaper.interval)
	defer ticker.Stop()

	reaper.logger.InfoContext(ctx, "reaper_started", slog.Duration("interval", reaper.interval))

	for {
		if _, err := reaper.Sweep(ctx); err != nil && ctx.Err() == nil {
			reaper.logger.ErrorContext(ctx, "reaper_sweep_failed", slog.Any("error", err))
		}

		select {
		case <-ctx.Done():
			reaper.logger.InfoContext(ctx, "reaper_stopped")
			return
		case <-ticker.C:
		}
	}
}

/*
Sweep deletes dead refresh tokens once.

Returns:
  - int64: Number of rows deleted
  - error: Storage failures
*/
func (reaper *Reaper) Sweep(ctx context.Context) (int64, error) {
	now := reaper.now()

	deleted, err := reaper.repository.DeleteStale(ctx, now, now.Add(-StaleRevokedAfter))
	if err != nil {
		return 0, fmt.Errorf("auth_reaper_sweep_failed: %w", err)
	}

	reaper.logger.InfoContext(ctx, "reaper_swept", slog.Int64("deleted", deleted))
	return deleted, nil
}
