package service

import (
	"bytes"
	"context"
	"encoding/json"
	"github.com/go-faster/errors"
	"github.com/google/uuid"
	"github.com/rookgm/pcmart/internal/gateway"
	"github.com/rookgm/pcmart/internal/logger"
	"github.com/rookgm/pcmart/internal/models"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"
	"strings"
	"time"
)

// GatewayRegistry selects gateway by payment method
type GatewayRegistry interface {
	Lookup(method models.PaymentMethod) (gateway.Gateway, error)
}

// CheckoutRequest is a finalized checkout submitted by the customer
type CheckoutRequest struct {
	PaymentMethod models.PaymentMethod
	// Product is the product object as submitted
	Product        json.RawMessage
	UserDetails    models.CustomerSnapshot
	IdempotencyKey string
}

// CheckoutResult tells the caller what to do next
type CheckoutResult struct {
	Order            *models.Order
	Outcome          gateway.Outcome
	BonusPointsAdded decimal.Decimal
	// RedirectParams are set for hosted page payments
	RedirectParams map[string]string
	// Provider is raw provider response for remotely authorized payments
	Provider json.RawMessage
	// Replayed is true when the result belongs to an earlier request with the same key
	Replayed bool
}

// CheckoutService routes checkout to payment gateway and records accepted orders
type CheckoutService struct {
	store    Store
	gateways GatewayRegistry
	now      Clock
	inflight singleflight.Group
}

// NewCheckoutService creates new CheckoutService instance
func NewCheckoutService(store Store, gateways GatewayRegistry, now Clock) *CheckoutService {
	if now == nil {
		now = time.Now
	}
	return &CheckoutService{
		store:    store,
		gateways: gateways,
		now:      now,
	}
}

// Checkout validates request, initiates payment and persists the order.
// Nothing is written if the gateway fails.
func (cs *CheckoutService) Checkout(ctx context.Context, req CheckoutRequest) (*CheckoutResult, error) {
	gw, err := cs.gateways.Lookup(req.PaymentMethod)
	if err != nil {
		return nil, err
	}

	product, err := parseProduct(req.Product)
	if err != nil {
		return nil, err
	}

	customer := req.UserDetails
	customer.UserID = strings.TrimSpace(customer.UserID)
	if customer.UserID == "" {
		return nil, models.ErrUserIDRequired
	}

	if _, err := cs.store.Balances().Balance(ctx, customer.UserID); err != nil {
		if errors.Is(err, models.ErrDataNotFound) {
			return nil, models.ErrCustomerNotFound
		}
		return nil, errors.Wrap(err, "resolve customer")
	}

	key := strings.TrimSpace(req.IdempotencyKey)
	if key == "" {
		return cs.checkout(ctx, gw, req.PaymentMethod, product, customer, "")
	}

	// concurrent retries with the same key wait for the first one,
	// which must not be cancelled by its own client going away
	flightCtx := context.WithoutCancel(ctx)
	leader := false
	v, err, _ := cs.inflight.Do(customer.UserID+"\x00"+key, func() (any, error) {
		leader = true
		res, err := cs.replay(flightCtx, customer.UserID, key)
		if err == nil {
			return res, nil
		}
		if !errors.Is(err, models.ErrDataNotFound) {
			return nil, err
		}
		return cs.checkout(flightCtx, gw, req.PaymentMethod, product, customer, key)
	})
	if err != nil {
		return nil, err
	}

	res := v.(*CheckoutResult)
	if !leader {
		replayed := *res
		replayed.Replayed = true
		return &replayed, nil
	}
	return res, nil
}

func (cs *CheckoutService) checkout(ctx context.Context, gw gateway.Gateway, method models.PaymentMethod,
	product models.ProductSnapshot, customer models.CustomerSnapshot, key string) (*CheckoutResult, error) {
	order := &models.Order{
		ID:             uuid.NewString(),
		UserID:         customer.UserID,
		Product:        product,
		UserDetails:    customer,
		Status:         models.OrderStatusPending,
		PaymentMethod:  method.Label(),
		DeliveryDate:   models.NextDeliveryDate(cs.now()),
		IdempotencyKey: key,
	}

	init, err := gw.Initiate(ctx, order)
	if err != nil {
		return nil, errors.Wrapf(err, "initiate %s payment", method)
	}

	order.GatewayOrderID = init.GatewayOrderID
	switch init.Outcome {
	case gateway.OutcomeRedirect:
		order.PaymentStatus = models.PaymentStatusAwaiting
		if order.GatewayPayload, err = json.Marshal(init.RedirectParams); err != nil {
			return nil, err
		}
	default:
		order.GatewayPayload = init.Provider
	}

	res := &CheckoutResult{
		Outcome:          init.Outcome,
		BonusPointsAdded: decimal.Zero,
		RedirectParams:   init.RedirectParams,
		Provider:         init.Provider,
	}

	err = cs.store.WithinTx(ctx, func(r Repos) error {
		created, err := r.Orders().CreateOrder(ctx, order)
		if err != nil {
			return err
		}
		res.Order = created

		// redirect payments are credited on confirmation
		if init.Outcome != gateway.OutcomeCompleted {
			return nil
		}
		res.BonusPointsAdded, err = creditBonus(ctx, r.Balances(), created)
		return err
	})
	if err != nil {
		if key != "" && errors.Is(err, models.ErrIdempotencyKeyConflict) {
			logger.Log.Info("checkout raced with the same idempotency key", zap.String("key", key))
			return cs.replay(ctx, customer.UserID, key)
		}
		logger.Log.Error("persist order", zap.String("order", order.ID), zap.Error(err))
		return nil, errors.Wrap(err, "persist order")
	}

	logger.Log.Info("order accepted",
		zap.String("order", res.Order.ID),
		zap.String("user", res.Order.UserID),
		zap.String("method", string(method)),
		zap.String("bonus_added", res.BonusPointsAdded.String()))

	return res, nil
}

// replay returns result of an earlier checkout with the same idempotency key
func (cs *CheckoutService) replay(ctx context.Context, userID, key string) (*CheckoutResult, error) {
	order, err := cs.store.Orders().GetOrderByIdempotencyKey(ctx, userID, key)
	if err != nil {
		return nil, err
	}

	res := &CheckoutResult{
		Order:            order,
		Outcome:          gateway.OutcomeCompleted,
		BonusPointsAdded: decimal.Zero,
		Replayed:         true,
	}

	if order.PaymentStatus == models.PaymentStatusAwaiting {
		res.Outcome = gateway.OutcomeRedirect
		if len(order.GatewayPayload) > 0 {
			if err := json.Unmarshal(order.GatewayPayload, &res.RedirectParams); err != nil {
				return nil, errors.Wrap(err, "decode redirect params")
			}
		}
	} else {
		res.Provider = order.GatewayPayload
	}

	credit, err := cs.store.Balances().GetEntry(ctx, order.ID, models.LedgerCredit)
	switch {
	case err == nil:
		res.BonusPointsAdded = credit.Amount
	case !errors.Is(err, models.ErrDataNotFound):
		return nil, errors.Wrap(err, "get credit entry")
	}

	logger.Log.Debug("checkout replayed", zap.String("order", order.ID), zap.String("key", key))

	return res, nil
}

// parseProduct takes product snapshot fields from submitted product object.
// Price and bonus may be numbers or numeric strings.
func parseProduct(raw json.RawMessage) (models.ProductSnapshot, error) {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		return models.ProductSnapshot{}, models.ErrInvalidOrderDetails
	}

	var fields map[string]any
	dec := json.NewDecoder(bytes.NewReader(trimmed))
	dec.UseNumber()
	if err := dec.Decode(&fields); err != nil {
		return models.ProductSnapshot{}, errors.Wrap(models.ErrInvalidOrderDetails, "product must be an object")
	}

	price, ok := toDecimal(fields["price"])
	if !ok || price.IsNegative() {
		return models.ProductSnapshot{}, models.ErrInvalidPrice
	}

	product := models.ProductSnapshot{
		Price:    price,
		Quantity: 1,
		Bonus:    decimal.Zero,
		Raw:      json.RawMessage(trimmed),
	}

	if name, ok := fields["name"].(string); ok {
		product.Name = name
	}

	if q, ok := toDecimal(fields["quantity"]); ok && q.IntPart() > 0 {
		product.Quantity = int(q.IntPart())
	}

	bonusValue, found := fields["bonus"]
	if !found {
		bonusValue, found = fields["bonuses"]
	}
	if found {
		if bonus, ok := toDecimal(bonusValue); ok && bonus.IsPositive() {
			product.Bonus = bonus
		} else {
			logger.Log.Debug("product bonus is not a positive number, ignored", zap.Any("bonus", bonusValue))
		}
	}

	return product, nil
}

func toDecimal(v any) (decimal.Decimal, bool) {
	var s string
	switch val := v.(type) {
	case json.Number:
		s = val.String()
	case string:
		s = strings.TrimSpace(val)
	default:
		return decimal.Zero, false
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, false
	}
	return d, true
}
