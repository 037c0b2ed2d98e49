package workers

import (
	"context"
	"log/slog"
	"time"
)

//go:generate mockgen -source=claim_reaper.go -destination=mocks/mock.go

// ClaimExpirer releases claims older than cutoff and reports how many it freed.
type ClaimExpirer interface {
	ExpireClaims(ctx context.Context, cutoff time.Time) (int, error)
}

// ClaimReaper periodically returns stale claims to the pending pool so a
// volunteer who went silent does not hold a request forever.
type ClaimReaper struct {
	claims   ClaimExpirer
	timeout  time.Duration
	interval time.Duration
	logger   *slog.Logger
	now      func() time.Time
}

func NewClaimReaper(claims ClaimExpirer, timeout, interval time.Duration, logger *slog.Logger) *ClaimReaper {
	if interval <= 0 {
		interval = time.Minute
	}
	return &ClaimReaper{
		claims:   claims,
		timeout:  timeout,
		interval: interval,
		logger:   logger,
		now:      time.Now,
	}
}

// Run ticks until ctx is done. A non-positive timeout disables reaping.
func (w *ClaimReaper) Run(ctx context.Context) {
	if w.timeout <= 0 {
		w.logger.Info("claim reaper disabled")
		return
	}
	w.logger.Info("claim reaper STARTED",
		slog.Duration("timeout", w.timeout),
		slog.Duration("interval", w.interval),
	)

	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			w.logger.Info("claim reaper STOPPED")
			return
		case <-ticker.C:
			w.Tick(ctx)
		}
	}
}

// Tick runs one reaping pass.
func (w *ClaimReaper) Tick(ctx context.Context) int {
	cutoff := w.now().Add(-w.timeout)
	n, err := w.claims.ExpireClaims(ctx, cutoff)
	if err != nil {
		w.logger.Error("expire claims failed", slog.Time("cutoff", cutoff), slog.Any("error", err))
		return n
	}
	if n > 0 {
		w.logger.Info("expired stale claims", slog.Int("released", n), slog.Time("cutoff", cutoff))
	}
	return n
}
