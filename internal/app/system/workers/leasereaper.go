// internal/app/system/workers/leasereaper.go
package workers

import (
	"context"
	"sync"
	"time"

	"github.com/dalemusser/sevadesk/internal/app/system/auditlog"
	"github.com/dalemusser/sevadesk/internal/app/system/metrics"
	"go.uber.org/zap"
)

// LeaseStore releases confirm leases whose expiry has passed.
type LeaseStore interface {
	ReapExpiredLeases(ctx context.Context, now time.Time) (int64, error)
}

// LeaseReaper is a background worker that returns cards stuck in
// PROCESSING to the decision they held before the confirm started.
type LeaseReaper struct {
	leases   LeaseStore
	audit    *auditlog.Logger
	metrics  metrics.Collector
	log      *zap.Logger
	interval time.Duration
	now      func() time.Time
	stopCh   chan struct{}
	wg       sync.WaitGroup
}

// NewLeaseReaper creates a new lease reaper.
//
// Parameters:
//   - leases: the assignment store
//   - audit: audit logger (may be nil)
//   - m: metrics collector (nil means no-op)
//   - logger: zap logger for logging
//   - interval: how often to sweep (e.g., 30 seconds)
func NewLeaseReaper(leases LeaseStore, audit *auditlog.Logger, m metrics.Collector, logger *zap.Logger, interval time.Duration) *LeaseReaper {
	if m == nil {
		m = metrics.NewNop()
	}
	return &LeaseReaper{
		leases:   leases,
		audit:    audit,
		metrics:  m,
		log:      logger,
		interval: interval,
		now:      func() time.Time { return time.Now().UTC() },
		stopCh:   make(chan struct{}),
	}
}

// Start begins the background sweep loop.
func (w *LeaseReaper) Start() {
	w.wg.Add(1)
	go w.run()
	w.log.Info("lease reaper started", zap.Duration("interval", w.interval))
}

// Stop signals the worker to stop and waits for it to finish.
func (w *LeaseReaper) Stop() {
	close(w.stopCh)
	w.wg.Wait()
	w.log.Info("lease reaper stopped")
}

func (w *LeaseReaper) run() {
	defer w.wg.Done()

	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-w.stopCh:
			return
		case <-ticker.C:
			ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
			_, _ = w.Sweep(ctx)
			cancel()
		}
	}
}

// Sweep releases every expired lease once and reports how many cards were
// restored.
func (w *LeaseReaper) Sweep(ctx context.Context) (int64, error) {
	count, err := w.leases.ReapExpiredLeases(ctx, w.now())
	if err != nil {
		w.log.Error("failed to reap expired leases", zap.Error(err))
		return 0, err
	}
	if count > 0 {
		w.log.Warn("released expired confirm leases", zap.Int64("count", count))
		w.metrics.RecordLeasesReaped(int(count))
		w.audit.LeasesReaped(ctx, int(count))
	}
	return count, nil
}
