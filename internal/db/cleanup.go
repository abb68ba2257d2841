package db

import (
	"context"
	"log/slog"
	"time"
)

const (
	DefaultCleanupInterval = 1 * time.Hour
)

// CleanupService periodically clears recovery tokens that can no longer be
// redeemed.
type CleanupService struct {
	users    *UserRepository
	interval time.Duration
	now      func() time.Time
}

func NewCleanupService(users *UserRepository) *CleanupService {
	return &CleanupService{
		users:    users,
		interval: DefaultCleanupInterval,
		now:      time.Now,
	}
}

func (s *CleanupService) Start(ctx context.Context) {
	slog.Info("starting recovery token cleanup service", "component", "cleanup", "interval", s.interval)

	s.runCleanup(ctx)

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			slog.Info("stopping recovery token cleanup service", "component", "cleanup")
			return
		case <-ticker.C:
			s.runCleanup(ctx)
		}
	}
}

func (s *CleanupService) runCleanup(ctx context.Context) {
	cleared, err := s.users.ClearExpiredRecovery(ctx, s.now())
	if err != nil {
		slog.Error("error clearing expired recovery tokens", "component", "cleanup", "error", err)
		return
	}
	if cleared > 0 {
		slog.Info("cleared expired recovery tokens", "component", "cleanup", "count", cleared)
	}
}
