package app

import (
	"context"
	"time"

	"go.uber.org/zap"
)

const maxBackoff = 30 * time.Second

// Refresher is the part of the grid controller the poller drives.
type Refresher interface {
	Refresh(ctx context.Context) error
	Busy() bool
}

// StartPoller launches a background goroutine that refreshes the grid at a
// fixed cadence, skipping ticks while another operation holds the grid busy
// and backing off after failures. It returns immediately; the returned
// channel closes once the poller has stopped.
func StartPoller(ctx context.Context, grid Refresher, interval time.Duration, logger *zap.Logger) <-chan struct{} {
	if logger == nil {
		logger = zap.NewNop()
	}
	done := make(chan struct{})
	if interval <= 0 {
		close(done)
		return done
	}
	go func() {
		defer close(done)
		failures := 0
		for {
			timer := time.NewTimer(calculateBackoff(failures, interval))
			select {
			case <-ctx.Done():
				timer.Stop()
				return
			case <-timer.C:
			}

			if grid.Busy() {
				logger.Debug("skipping refresh, grid busy")
				continue
			}
			if err := grid.Refresh(ctx); err != nil {
				if ctx.Err() != nil {
					return
				}
				failures++
				logger.Warn("auto refresh failed",
					zap.Int("failures", failures),
					zap.Duration("next", calculateBackoff(failures, interval)),
					zap.Error(err))
				continue
			}
			failures = 0
		}
	}()
	return done
}

// calculateBackoff doubles the base interval per consecutive failure, capped
// at maxBackoff. A base interval longer than the cap is never shortened.
func calculateBackoff(failures int, base time.Duration) time.Duration {
	if failures <= 0 {
		return base
	}
	backoff := base
	for i := 0; i < failures; i++ {
		backoff *= 2
		if backoff >= maxBackoff {
			break
		}
	}
	if backoff > maxBackoff {
		if base > maxBackoff {
			return base
		}
		return maxBackoff
	}
	return backoff
}
