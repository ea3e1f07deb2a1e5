package worker

import (
	"context"
	"github.com/rookgm/pcmart/internal/logger"
	"github.com/rookgm/pcmart/internal/models"
	"go.uber.org/zap"
	"time"
)

type PaymentService interface {
	ReconcileOrders(ctx context.Context, orderCh <-chan models.Order)
	GetAwaitingOrders(ctx context.Context, orderCh chan<- models.Order) error
}

// PaymentReconciler is worker that settles payments whose callback never arrived
type PaymentReconciler struct {
	svc      PaymentService
	interval time.Duration
}

// NewPaymentReconciler create new payment reconciler
func NewPaymentReconciler(svc PaymentService, interval time.Duration) *PaymentReconciler {
	return &PaymentReconciler{svc: svc, interval: interval}
}

// Run polls awaiting orders on every tick until ctx is done
func (pr *PaymentReconciler) Run(ctx context.Context) {
	orders := make(chan models.Order, 10)

	go pr.svc.ReconcileOrders(ctx, orders)

	ticker := time.NewTicker(pr.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			logger.Log.Debug("payment reconciler is done")
			return
		case <-ticker.C:
			if err := pr.svc.GetAwaitingOrders(ctx, orders); err != nil && ctx.Err() == nil {
				logger.Log.Error("error get awaiting orders", zap.Error(err))
			}
		}
	}
}
