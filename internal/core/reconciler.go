package core

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"
)

// Reconciler periodically re-derives the status of non-terminal orders
type Reconciler struct {
	orders   *OrderService
	interval time.Duration
	logger   *zap.Logger

	stopCh chan struct{}
	wg     sync.WaitGroup
	once   sync.Once
}

// NewReconciler creates a reconciler running every interval
func NewReconciler(orders *OrderService, interval time.Duration, logger *zap.Logger) *Reconciler {
	return &Reconciler{
		orders:   orders,
		interval: interval,
		logger:   logger,
		stopCh:   make(chan struct{}),
	}
}

// Start runs the reconcile loop in the background
func (r *Reconciler) Start() {
	r.wg.Add(1)
	go func() {
		defer r.wg.Done()

		ticker := time.NewTicker(r.interval)
		defer ticker.Stop()

		for {
			select {
			case <-ticker.C:
				r.reconcile()
			case <-r.stopCh:
				return
			}
		}
	}()

	r.logger.Info("Order status reconciler started", zap.Duration("interval", r.interval))
}

// Stop ends the loop and waits for a running pass to finish
func (r *Reconciler) Stop() {
	r.once.Do(func() { close(r.stopCh) })
	r.wg.Wait()
}

func (r *Reconciler) reconcile() {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go func() {
		select {
		case <-r.stopCh:
			cancel()
		case <-ctx.Done():
		}
	}()

	if _, err := r.orders.Backfill(ctx); err != nil && ctx.Err() == nil {
		r.logger.Error("Order status reconcile failed", zap.Error(err))
	}
}
