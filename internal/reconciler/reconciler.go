// Package reconciler periodically sweeps transcribing orders and converges
// any whose external job finished without a callback arriving.
package reconciler

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/forgemedia/portal/internal/portal"
)

// Coordinator is the slice of the order coordinator the sweeper needs.
type Coordinator interface {
	List(ctx context.Context, filter portal.ListFilter) ([]portal.Order, error)
	Reconcile(ctx context.Context, orderID string) (portal.Order, error)
}

// Config controls sweep cadence.
type Config struct {
	// Interval between sweeps (default 30s).
	Interval time.Duration
}

const defaultInterval = 30 * time.Second

// Runner drives the periodic sweep.
type Runner struct {
	co       Coordinator
	interval time.Duration
	logger   *zap.Logger
}

// New constructs a Runner.
func New(co Coordinator, cfg Config, logger *zap.Logger) *Runner {
	interval := cfg.Interval
	if interval <= 0 {
		interval = defaultInterval
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Runner{co: co, interval: interval, logger: logger}
}

// Run sweeps on a ticker until ctx is cancelled. Per-order failures are
// logged and skipped; the sweep always visits every transcribing order.
func (r *Runner) Run(ctx context.Context) {
	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			r.Sweep(ctx)
		}
	}
}

// Sweep reconciles every transcribing order once.
func (r *Runner) Sweep(ctx context.Context) {
	orders, err := r.co.List(ctx, portal.ListFilter{Status: portal.StatusTranscribing})
	if err != nil {
		r.logger.Warn("reconcile sweep list failed", zap.Error(err))
		return
	}
	settled := 0
	for _, order := range orders {
		got, err := r.co.Reconcile(ctx, order.ID)
		if err != nil {
			r.logger.Warn("reconcile failed",
				zap.String("order_id", order.ID),
				zap.Error(err))
			continue
		}
		if got.Status == portal.StatusReady {
			settled++
		}
	}
	if len(orders) > 0 {
		r.logger.Debug("reconcile sweep finished",
			zap.Int("checked", len(orders)),
			zap.Int("settled", settled))
	}
}
