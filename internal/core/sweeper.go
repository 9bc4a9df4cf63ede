package core

// sweeper.go removes expired import sessions in the background. Expiry is
// garbage collection, not a business transition: sessions are deleted in any
// status once past their expires_at.

import (
	"context"
	"log/slog"
	"time"

	"menu-import-service/internal/metrics"
)

// StartExpirySweeper runs the expiry sweep immediately, then every interval,
// until the context is cancelled.
func (s *Service) StartExpirySweeper(ctx context.Context, interval time.Duration) {
	slog.Info("session expiry sweeper started", "interval", interval)

	s.sweepExpired(ctx)

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			slog.Info("session expiry sweeper stopped")
			return
		case <-ticker.C:
			s.sweepExpired(ctx)
		}
	}
}

func (s *Service) sweepExpired(ctx context.Context) {
	start := time.Now()
	removed, err := s.sessions.DeleteExpired(ctx, time.Now().UTC())
	if err != nil {
		slog.Error("expiry sweep failed", "error", err)
		return
	}
	if removed > 0 {
		metrics.ExpiredSessionsSwept.Add(float64(removed))
		slog.Info("expired sessions removed",
			"count", removed,
			"duration_ms", time.Since(start).Milliseconds(),
		)
	}
}
