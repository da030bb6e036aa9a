// Package scheduler owns the two periodic cycles. Each driver ticks
// independently so a slow visual cycle never starves the ping cycle.
package scheduler

import (
	"context"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"storewatch/internal/domain"
	"storewatch/internal/observability"
	"storewatch/internal/repo"
)

// Driver runs one store-set cycle per interval. Overlap protection is a
// compare-and-swap busy flag owned here: a tick that fires while the
// previous cycle is still running is dropped, never queued.
type Driver struct {
	Name     string
	Logger   *zap.Logger
	Stores   repo.StoreRepo
	Interval time.Duration
	// Delay paces sequential store processing to respect rate limits on
	// the shared render backend.
	Delay   time.Duration
	Process func(ctx context.Context, s domain.Store)
	Metrics *observability.Metrics

	busy atomic.Bool
}

func NewDriver(
	name string,
	logger *zap.Logger,
	stores repo.StoreRepo,
	interval time.Duration,
	delay time.Duration,
	process func(ctx context.Context, s domain.Store),
	metrics *observability.Metrics,
) *Driver {
	if interval < 0 {
		interval = 0
	}
	if delay < 0 {
		delay = 0
	}
	return &Driver{
		Name:     name,
		Logger:   logger,
		Stores:   stores,
		Interval: interval,
		Delay:    delay,
		Process:  process,
		Metrics:  metrics,
	}
}

// Run starts the loop. It does an immediate pass, then runs each tick.
// Stops when ctx is cancelled.
func (d *Driver) Run(ctx context.Context) {
	if d.Interval == 0 {
		// disabled
		d.Logger.Info("driver_disabled", zap.String("driver", d.Name))
		return
	}
	t := time.NewTicker(d.Interval)
	defer t.Stop()

	// immediate pass
	d.Tick(ctx)

	for {
		select {
		case <-ctx.Done():
			d.Logger.Info("driver_stopped", zap.String("driver", d.Name))
			return
		case <-t.C:
			d.Tick(ctx)
		}
	}
}

// Tick runs one cycle, unless the previous one is still in flight. It is
// the only entry point that touches the busy flag.
func (d *Driver) Tick(ctx context.Context) {
	if !d.busy.CompareAndSwap(false, true) {
		d.Logger.Warn("tick_skipped_busy", zap.String("driver", d.Name))
		d.Metrics.TickSkipped(d.Name)
		return
	}
	defer d.busy.Store(false)

	stores, err := d.Stores.ListActive(ctx)
	if err != nil {
		d.Logger.Warn("store_list_error", zap.String("driver", d.Name), zap.Error(err))
		return
	}
	if len(stores) == 0 {
		return
	}

	d.Logger.Debug("cycle_start",
		zap.String("driver", d.Name),
		zap.Int("stores", len(stores)),
	)

	// Strictly sequential: one store's full pipeline finishes before the
	// next begins, capping load on the shared backends.
	for i, s := range stores {
		if ctx.Err() != nil {
			return
		}
		d.Process(ctx, s)

		if d.Delay > 0 && i < len(stores)-1 {
			select {
			case <-ctx.Done():
				return
			case <-time.After(d.Delay):
			}
		}
	}
}
