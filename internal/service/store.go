package service

import (
	"context"
	"github.com/rookgm/pcmart/internal/models"
	"github.com/shopspring/decimal"
	"time"
)

// OrderRepository is interface for interacting with order-related data
type OrderRepository interface {
	// CreateOrder inserts new order, ErrConflictData is returned on duplicate key
	// and ErrIdempotencyKeyConflict on duplicate (user, idempotency key)
	CreateOrder(ctx context.Context, order *models.Order) (*models.Order, error)
	// GetOrderByID returns order by id
	GetOrderByID(ctx context.Context, id string) (*models.Order, error)
	// GetOrderByIDForUpdate returns order by id and locks it until transaction ends
	GetOrderByIDForUpdate(ctx context.Context, id string) (*models.Order, error)
	// GetOrderByGatewayID returns order by gateway order id and locks it
	GetOrderByGatewayID(ctx context.Context, gatewayOrderID string) (*models.Order, error)
	// GetOrderByIdempotencyKey returns order created with the key
	GetOrderByIdempotencyKey(ctx context.Context, userID, key string) (*models.Order, error)
	// GetOrdersByUserID gets user orders
	GetOrdersByUserID(ctx context.Context, userID string) ([]models.Order, error)
	// UpdateOrderStatus sets order status
	UpdateOrderStatus(ctx context.Context, id string, status models.OrderStatus) (*models.Order, error)
	// UpdateOrderPayment sets payment status and transaction id
	UpdateOrderPayment(ctx context.Context, id string, status models.PaymentStatus, txnID string) (*models.Order, error)
	// UpdateDeliveryDate sets delivery date
	UpdateDeliveryDate(ctx context.Context, id string, date time.Time) (*models.Order, error)
	// GetAwaitingPaymentOrders returns orders awaiting payment created before given time
	GetAwaitingPaymentOrders(ctx context.Context, before time.Time, limit int) ([]models.Order, error)
}

// BalanceRepository is interface for interacting with bonus balance
type BalanceRepository interface {
	// Balance returns customer balance, ErrDataNotFound for unknown customer
	Balance(ctx context.Context, userID string) (models.Balance, error)
	// AddEntry records ledger entry. It returns false if the order already has entry of this kind.
	AddEntry(ctx context.Context, entry *models.LedgerEntry) (bool, error)
	// GetEntry returns ledger entry of the order
	GetEntry(ctx context.Context, orderID string, kind models.LedgerEntryKind) (*models.LedgerEntry, error)
	// Credit atomically adds amount to customer balance
	Credit(ctx context.Context, userID string, amount decimal.Decimal) error
	// Debit atomically subtracts amount, never going below zero. It returns subtracted amount.
	Debit(ctx context.Context, userID string, amount decimal.Decimal) (decimal.Decimal, error)
	// GetEntriesByUserID returns customer ledger entries
	GetEntriesByUserID(ctx context.Context, userID string) ([]models.LedgerEntry, error)
}

// Repos gives access to repositories sharing one connection or transaction
type Repos interface {
	Orders() OrderRepository
	Balances() BalanceRepository
}

// Store is Repos with transaction support
type Store interface {
	Repos
	// WithinTx runs fn with repositories bound to one transaction
	WithinTx(ctx context.Context, fn func(r Repos) error) error
}

// Clock returns current time
type Clock func() time.Time
