package repository

import (
	"context"
	"encoding/json"
	"github.com/go-faster/errors"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/rookgm/pcmart/internal/models"
	"github.com/rookgm/pcmart/internal/repository/postgres"
	"time"
)

const (
	pgErrUniqueViolationCode = "23505"
	idempotencyConstraint    = "orders_idempotency_idx"
)

const orderColumns = `id, user_id, product, product_name, price, quantity, bonus, user_details,
						status, payment_method, payment_status, delivery_date, gateway_order_id,
						gateway_payload, txn_id, idempotency_key, created_at, updated_at`

const (
	insertOrderQuery = `
						INSERT INTO orders (id, user_id, product, product_name, price, quantity, bonus, user_details,
							status, payment_method, payment_status, delivery_date, gateway_order_id, gateway_payload, idempotency_key)
						VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15)
						RETURNING ` + orderColumns

	selectOrderByIDQuery = `
						SELECT ` + orderColumns + ` FROM orders
						WHERE id = $1
`
	selectOrderByIDForUpdateQuery = selectOrderByIDQuery + ` FOR UPDATE`

	selectOrderByGatewayIDQuery = `
						SELECT ` + orderColumns + ` FROM orders
						WHERE gateway_order_id = $1
						FOR UPDATE
`
	selectOrderByIdempotencyKeyQuery = `
						SELECT ` + orderColumns + ` FROM orders
						WHERE user_id = $1 AND idempotency_key = $2
`
	selectOrdersByUserIDQuery = `
						SELECT ` + orderColumns + ` FROM orders
						WHERE user_id = $1
						ORDER BY created_at DESC
`
	updateOrderStatusQuery = `
						UPDATE orders
						SET status = $2, updated_at = now()
						WHERE id = $1
						RETURNING ` + orderColumns

	updateOrderPaymentQuery = `
						UPDATE orders
						SET payment_status = $2, txn_id = $3, updated_at = now()
						WHERE id = $1
						RETURNING ` + orderColumns

	updateDeliveryDateQuery = `
						UPDATE orders
						SET delivery_date = $2, updated_at = now()
						WHERE id = $1
						RETURNING ` + orderColumns

	selectAwaitingOrdersQuery = `
						SELECT ` + orderColumns + ` FROM orders
						WHERE payment_status = 'Awaiting' AND created_at < $1
						ORDER BY created_at
						LIMIT $2
`
)

// OrderRepository implements service.OrderRepository interface
type OrderRepository struct {
	db postgres.Querier
}

// NewOrderRepository creates new OrderRepository instance
func NewOrderRepository(db postgres.Querier) *OrderRepository {
	return &OrderRepository{db: db}
}

// validID reports whether id can be an order key
func validID(id string) bool {
	return uuid.Validate(id) == nil
}

func nullString(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

func nullJSON(b json.RawMessage) []byte {
	if len(b) == 0 {
		return nil
	}
	return b
}

func scanOrder(row pgx.Row) (*models.Order, error) {
	var (
		order          models.Order
		product        []byte
		userDetails    []byte
		gatewayOrderID *string
		gatewayPayload []byte
		idempotencyKey *string
	)
	err := row.Scan(&order.ID, &order.UserID, &product, &order.Product.Name, &order.Product.Price,
		&order.Product.Quantity, &order.Product.Bonus, &userDetails, &order.Status, &order.PaymentMethod,
		&order.PaymentStatus, &order.DeliveryDate, &gatewayOrderID, &gatewayPayload, &order.TxnID, &idempotencyKey,
		&order.CreatedAt, &order.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, models.ErrDataNotFound
		}
		return nil, err
	}

	order.Product.Raw = product
	if err := json.Unmarshal(userDetails, &order.UserDetails); err != nil {
		return nil, errors.Wrap(err, "decode user details")
	}
	if gatewayOrderID != nil {
		order.GatewayOrderID = *gatewayOrderID
	}
	if len(gatewayPayload) > 0 {
		order.GatewayPayload = gatewayPayload
	}
	if idempotencyKey != nil {
		order.IdempotencyKey = *idempotencyKey
	}

	return &order, nil
}

func scanOrders(rows pgx.Rows) ([]models.Order, error) {
	defer rows.Close()

	orders := []models.Order{}
	for rows.Next() {
		order, err := scanOrder(rows)
		if err != nil {
			return nil, err
		}
		orders = append(orders, *order)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return orders, nil
}

// CreateOrder inserts new order to database
func (or *OrderRepository) CreateOrder(ctx context.Context, order *models.Order) (*models.Order, error) {
	product := order.Product.Raw
	if len(product) == 0 {
		product = []byte("{}")
	}
	userDetails, err := json.Marshal(order.UserDetails)
	if err != nil {
		return nil, err
	}

	created, err := scanOrder(or.db.QueryRow(ctx, insertOrderQuery,
		order.ID, order.UserID, product, order.Product.Name, order.Product.Price, order.Product.Quantity,
		order.Product.Bonus, userDetails, order.Status, order.PaymentMethod, order.PaymentStatus,
		order.DeliveryDate, nullString(order.GatewayOrderID), nullJSON(order.GatewayPayload), nullString(order.IdempotencyKey)))
	if err != nil {
		if postgres.ErrorCode(err) == pgErrUniqueViolationCode {
			if postgres.ConstraintName(err) == idempotencyConstraint {
				return nil, models.ErrIdempotencyKeyConflict
			}
			return nil, models.ErrConflictData
		}
		return nil, err
	}

	return created, nil
}

// GetOrderByID returns order by id
func (or *OrderRepository) GetOrderByID(ctx context.Context, id string) (*models.Order, error) {
	if !validID(id) {
		return nil, models.ErrDataNotFound
	}
	return scanOrder(or.db.QueryRow(ctx, selectOrderByIDQuery, id))
}

// GetOrderByIDForUpdate returns order by id and locks its row
func (or *OrderRepository) GetOrderByIDForUpdate(ctx context.Context, id string) (*models.Order, error) {
	if !validID(id) {
		return nil, models.ErrDataNotFound
	}
	return scanOrder(or.db.QueryRow(ctx, selectOrderByIDForUpdateQuery, id))
}

// GetOrderByGatewayID returns order by gateway order id and locks its row
func (or *OrderRepository) GetOrderByGatewayID(ctx context.Context, gatewayOrderID string) (*models.Order, error) {
	return scanOrder(or.db.QueryRow(ctx, selectOrderByGatewayIDQuery, gatewayOrderID))
}

// GetOrderByIdempotencyKey returns order created by user with the key
func (or *OrderRepository) GetOrderByIdempotencyKey(ctx context.Context, userID, key string) (*models.Order, error) {
	return scanOrder(or.db.QueryRow(ctx, selectOrderByIdempotencyKeyQuery, userID, key))
}

// GetOrdersByUserID gets user orders
func (or *OrderRepository) GetOrdersByUserID(ctx context.Context, userID string) ([]models.Order, error) {
	rows, err := or.db.Query(ctx, selectOrdersByUserIDQuery, userID)
	if err != nil {
		return nil, err
	}
	return scanOrders(rows)
}

// UpdateOrderStatus updates order status
func (or *OrderRepository) UpdateOrderStatus(ctx context.Context, id string, status models.OrderStatus) (*models.Order, error) {
	if !validID(id) {
		return nil, models.ErrDataNotFound
	}
	return scanOrder(or.db.QueryRow(ctx, updateOrderStatusQuery, id, status))
}

// UpdateOrderPayment updates payment status and transaction id
func (or *OrderRepository) UpdateOrderPayment(ctx context.Context, id string, status models.PaymentStatus, txnID string) (*models.Order, error) {
	if !validID(id) {
		return nil, models.ErrDataNotFound
	}
	return scanOrder(or.db.QueryRow(ctx, updateOrderPaymentQuery, id, status, txnID))
}

// UpdateDeliveryDate updates delivery date
func (or *OrderRepository) UpdateDeliveryDate(ctx context.Context, id string, date time.Time) (*models.Order, error) {
	if !validID(id) {
		return nil, models.ErrDataNotFound
	}
	return scanOrder(or.db.QueryRow(ctx, updateDeliveryDateQuery, id, date))
}

// GetAwaitingPaymentOrders returns orders awaiting payment confirmation
func (or *OrderRepository) GetAwaitingPaymentOrders(ctx context.Context, before time.Time, limit int) ([]models.Order, error) {
	rows, err := or.db.Query(ctx, selectAwaitingOrdersQuery, before, limit)
	if err != nil {
		return nil, err
	}
	return scanOrders(rows)
}
