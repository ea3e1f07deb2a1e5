package service

import (
	"context"
	"github.com/go-faster/errors"
	"github.com/rookgm/pcmart/internal/gateway"
	"github.com/rookgm/pcmart/internal/logger"
	"github.com/rookgm/pcmart/internal/models"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"time"
)

const defaultReconcileBatch = 100

// CallbackResult is order state after payment confirmation
type CallbackResult struct {
	Order            *models.Order
	Success          bool
	BonusPointsAdded decimal.Decimal
	// Duplicate is true when payment status was already final
	Duplicate bool
	// Pending is true when provider has no final result yet
	Pending bool
}

// CallbackService records payment confirmations of asynchronous gateways
type CallbackService struct {
	store          Store
	gateways       GatewayRegistry
	now            Clock
	reconcileAfter time.Duration
}

// NewCallbackService creates new CallbackService instance.
// Orders awaiting payment longer than reconcileAfter are checked with the gateway.
func NewCallbackService(store Store, gateways GatewayRegistry, now Clock, reconcileAfter time.Duration) *CallbackService {
	if now == nil {
		now = time.Now
	}
	return &CallbackService{
		store:          store,
		gateways:       gateways,
		now:            now,
		reconcileAfter: reconcileAfter,
	}
}

// ConfirmCallback verifies gateway callback and records payment result.
// On success the order bonus is credited in the same transaction.
func (cs *CallbackService) ConfirmCallback(ctx context.Context, method models.PaymentMethod, payload map[string]string) (*CallbackResult, error) {
	gw, err := cs.gateways.Lookup(method)
	if err != nil {
		return nil, err
	}

	conf, err := gw.Confirm(ctx, payload)
	if err != nil {
		logger.Log.Warn("callback rejected", zap.String("method", string(method)), zap.Error(err))
		return nil, err
	}

	return cs.applyConfirmation(ctx, conf)
}

func (cs *CallbackService) applyConfirmation(ctx context.Context, conf *gateway.Confirmation) (*CallbackResult, error) {
	res := &CallbackResult{BonusPointsAdded: decimal.Zero}

	err := cs.store.WithinTx(ctx, func(r Repos) error {
		order, err := r.Orders().GetOrderByGatewayID(ctx, conf.GatewayOrderID)
		if err != nil {
			return err
		}

		if !conf.Amount.Equal(order.Product.Price) {
			return errors.Wrapf(models.ErrAmountMismatch, "got %s, want %s", conf.Amount, order.Product.Price)
		}

		if order.PaymentStatus.Final() {
			res.Order = order
			res.Success = order.PaymentStatus == models.PaymentStatusSuccess
			res.Duplicate = true
			return nil
		}

		// order keeps awaiting until a final callback or reconciliation
		if conf.Pending {
			res.Order = order
			res.Pending = true
			return nil
		}

		status := models.PaymentStatusFailed
		if conf.Success {
			status = models.PaymentStatusSuccess
		}

		if order, err = r.Orders().UpdateOrderPayment(ctx, order.ID, status, conf.TxnID); err != nil {
			return errors.Wrap(err, "update payment")
		}
		res.Order = order
		res.Success = conf.Success

		// cancelled orders are never credited
		if !conf.Success || order.Status == models.OrderStatusCancelled {
			return nil
		}
		res.BonusPointsAdded, err = creditBonus(ctx, r.Balances(), order)
		return err
	})
	if err != nil {
		return nil, err
	}

	logger.Log.Info("payment confirmed",
		zap.String("order", res.Order.ID),
		zap.String("gateway_order", conf.GatewayOrderID),
		zap.Bool("success", res.Success),
		zap.Bool("pending", res.Pending),
		zap.Bool("duplicate", res.Duplicate))

	return res, nil
}

// GetAwaitingOrders writes orders awaiting payment for too long to channel
func (cs *CallbackService) GetAwaitingOrders(ctx context.Context, orderCh chan<- models.Order) error {
	orders, err := cs.store.Orders().GetAwaitingPaymentOrders(ctx, cs.now().Add(-cs.reconcileAfter), defaultReconcileBatch)
	if err != nil {
		return err
	}

	for _, order := range orders {
		select {
		case orderCh <- order:
		case <-ctx.Done():
			return ctx.Err()
		}
	}

	return nil
}

// ReconcileOrders asks gateways about payment of received orders until ctx is done
func (cs *CallbackService) ReconcileOrders(ctx context.Context, orderCh <-chan models.Order) {
	for {
		select {
		case <-ctx.Done():
			logger.Log.Debug("reconciliation is done")
			return
		case order, ok := <-orderCh:
			if !ok {
				return
			}
			if _, err := cs.ReconcileOrder(ctx, &order); err != nil {
				logger.Log.Error("reconcile order", zap.String("order", order.ID), zap.Error(err))
			}
		}
	}
}

// ReconcileOrder queries gateway for payment status of the order and records it once final.
// It returns nil result while payment is still pending.
func (cs *CallbackService) ReconcileOrder(ctx context.Context, order *models.Order) (*CallbackResult, error) {
	method, ok := models.PaymentMethodByLabel(order.PaymentMethod)
	if !ok {
		return nil, errors.Wrap(models.ErrUnknownPaymentMethod, order.PaymentMethod)
	}
	gw, err := cs.gateways.Lookup(method)
	if err != nil {
		return nil, err
	}
	checker, ok := gw.(gateway.StatusChecker)
	if !ok {
		return nil, nil
	}

	conf, err := checker.Status(ctx, order.GatewayOrderID)
	if err != nil {
		return nil, errors.Wrap(err, "payment status")
	}
	if conf.Pending {
		logger.Log.Debug("payment still pending", zap.String("order", order.ID))
		return nil, nil
	}

	return cs.applyConfirmation(ctx, conf)
}
