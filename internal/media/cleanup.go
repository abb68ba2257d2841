package media

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"
)

const (
	DefaultCleanupInterval = 1 * time.Hour
	DefaultScopeMaxAge     = 24 * time.Hour
)

// CleanupService removes upload scopes left behind by requests that never
// finished, for example after a crash.
type CleanupService struct {
	area     *TempArea
	interval time.Duration
	maxAge   time.Duration
	now      func() time.Time
}

func NewCleanupService(area *TempArea) *CleanupService {
	return &CleanupService{
		area:     area,
		interval: DefaultCleanupInterval,
		maxAge:   DefaultScopeMaxAge,
		now:      time.Now,
	}
}

func (s *CleanupService) Start(ctx context.Context) {
	slog.Info("starting upload scope cleanup service", "component", "upload_cleanup", "interval", s.interval)

	s.runCleanup()

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			slog.Info("stopping upload scope cleanup service", "component", "upload_cleanup")
			return
		case <-ticker.C:
			s.runCleanup()
		}
	}
}

func (s *CleanupService) runCleanup() {
	removed, err := s.sweep()
	if err != nil {
		slog.Error("error sweeping upload scopes", "component", "upload_cleanup", "error", err)
	}
	if removed > 0 {
		slog.Info("removed stale upload scopes", "component", "upload_cleanup", "count", removed)
	}
}

func (s *CleanupService) sweep() (int, error) {
	entries, err := os.ReadDir(s.area.Root())
	if err != nil {
		return 0, fmt.Errorf("listing upload directory: %w", err)
	}

	cutoff := s.now().Add(-s.maxAge)
	removed := 0
	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}
		info, err := entry.Info()
		if err != nil || info.ModTime().After(cutoff) {
			continue
		}

		dir := filepath.Join(s.area.Root(), entry.Name())
		if err := os.RemoveAll(dir); err != nil {
			slog.Warn("error removing stale upload scope", "component", "upload_cleanup", "dir", dir, "error", err)
			continue
		}
		removed++
	}

	return removed, nil
}
