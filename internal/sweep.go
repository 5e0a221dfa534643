package internal

import (
	"context"
	"log/slog"
	"time"
)

// SweepExpired deactivates every active link whose expiration date has
// passed and reports how many it retired. With nothing to do it returns
// without touching the store again or the cache at all.
func (s *LinkService) SweepExpired(ctx context.Context, now time.Time) (int, error) {
	expired, err := s.store.ListExpiredActive(ctx, now)
	if err != nil {
		return 0, err
	}

	n, err := s.deactivateBatch(ctx, expired)
	if err != nil {
		return 0, err
	}
	if n > 0 {
		slog.Info("Expired links deactivated", "count", n)
	}
	return n, nil
}

// SweepStale deactivates active links that have not been used since the
// cutoff. Links never used at all keep a NULL last_used_at and are not
// matched; their default expiration retires them through SweepExpired.
func (s *LinkService) SweepStale(ctx context.Context, cutoff time.Time) (int, error) {
	stale, err := s.store.ListStaleActive(ctx, cutoff)
	if err != nil {
		return 0, err
	}

	n, err := s.deactivateBatch(ctx, stale)
	if err != nil {
		return 0, err
	}
	if n > 0 {
		slog.Info("Stale links deactivated", "count", n, "cutoff", cutoff)
	}
	return n, nil
}
