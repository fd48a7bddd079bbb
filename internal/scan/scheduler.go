package scan

import (
	"context"
	"time"

	"go.uber.org/zap"
)

// DefaultInterval is how often the wishlist is re-scanned.
const DefaultInterval = 6 * time.Hour

// Scheduler triggers full scans on a fixed period.
type Scheduler struct {
	scanner  *Scanner
	interval time.Duration
	logger   *zap.Logger
}

// NewScheduler wraps a scanner with a ticker loop. A non-positive
// interval uses the default.
func NewScheduler(scanner *Scanner, interval time.Duration, logger *zap.Logger) *Scheduler {
	if interval <= 0 {
		interval = DefaultInterval
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Scheduler{scanner: scanner, interval: interval, logger: logger}
}

// Run scans immediately, then on every tick until the context ends.
func (s *Scheduler) Run(ctx context.Context) error {
	if _, err := s.scanner.Run(ctx); err != nil && ctx.Err() == nil {
		s.logger.Error("scheduled scan failed", zap.Error(err))
	}

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			if _, err := s.scanner.Run(ctx); err != nil && ctx.Err() == nil {
				s.logger.Error("scheduled scan failed", zap.Error(err))
			}
		}
	}
}
