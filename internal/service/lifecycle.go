package service

import (
	"context"
	"github.com/go-faster/errors"
	"github.com/rookgm/pcmart/internal/logger"
	"github.com/rookgm/pcmart/internal/models"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"time"
)

// TransitionOutcome is order state after a status mutation
type TransitionOutcome struct {
	Order  *models.Order
	Result models.TransitionResult
	// BonusReversed is bonus taken back from the customer by this mutation
	BonusReversed decimal.Decimal
}

// LifecycleService mutates order status and delivery date
type LifecycleService struct {
	store Store
}

// NewLifecycleService creates new LifecycleService instance
func NewLifecycleService(store Store) *LifecycleService {
	return &LifecycleService{store: store}
}

// transition applies status mutation and ledger reversal in one transaction.
// Order row is locked, so concurrent cancellations are serialized.
func (ls *LifecycleService) transition(ctx context.Context, orderID string, req models.TransitionRequest) (*TransitionOutcome, error) {
	out := &TransitionOutcome{BonusReversed: decimal.Zero}

	err := ls.store.WithinTx(ctx, func(r Repos) error {
		order, err := r.Orders().GetOrderByIDForUpdate(ctx, orderID)
		if err != nil {
			return err
		}

		res, err := models.Transition(order.Status, req)
		if err != nil {
			return err
		}
		out.Result = res

		if res.To != res.From {
			if order, err = r.Orders().UpdateOrderStatus(ctx, orderID, res.To); err != nil {
				return errors.Wrap(err, "update status")
			}
		}
		out.Order = order

		if res.EnteredCancelled {
			out.BonusReversed, err = reverseBonus(ctx, r.Balances(), order)
			return err
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	logger.Log.Info("order status changed",
		zap.String("order", orderID),
		zap.String("from", string(out.Result.From)),
		zap.String("to", string(out.Result.To)),
		zap.String("bonus_reversed", out.BonusReversed.String()))

	return out, nil
}

// SetStatus sets any settable status regardless of the current one
func (ls *LifecycleService) SetStatus(ctx context.Context, orderID, status string) (*TransitionOutcome, error) {
	st, ok := models.ParseOrderStatus(status)
	if !ok {
		return nil, models.ErrInvalidStatus
	}
	return ls.transition(ctx, orderID, models.TransitionRequest{Kind: models.TransitionSet, Status: st})
}

// ApplyAction confirms or cancels a pending order
func (ls *LifecycleService) ApplyAction(ctx context.Context, orderID, action string) (*TransitionOutcome, error) {
	return ls.transition(ctx, orderID, models.TransitionRequest{Kind: models.TransitionAction, Action: action})
}

// Cancel cancels order on behalf of the customer. Cancelling a cancelled order changes nothing.
func (ls *LifecycleService) Cancel(ctx context.Context, orderID string) (*TransitionOutcome, error) {
	return ls.transition(ctx, orderID, models.TransitionRequest{Kind: models.TransitionCustomerCancel})
}

// SetDeliveryDate overwrites order delivery date
func (ls *LifecycleService) SetDeliveryDate(ctx context.Context, orderID string, date time.Time) (*models.Order, error) {
	if date.IsZero() {
		return nil, models.ErrInvalidDeliveryDate
	}
	return ls.store.Orders().UpdateDeliveryDate(ctx, orderID, date)
}

// GetOrder returns order by id
func (ls *LifecycleService) GetOrder(ctx context.Context, orderID string) (*models.Order, error) {
	return ls.store.Orders().GetOrderByID(ctx, orderID)
}

// ListUserOrders returns list of user orders
func (ls *LifecycleService) ListUserOrders(ctx context.Context, userID string) ([]models.Order, error) {
	return ls.store.Orders().GetOrdersByUserID(ctx, userID)
}
