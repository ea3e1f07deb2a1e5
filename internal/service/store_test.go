package service

import (
	"context"
	"github.com/rookgm/pcmart/internal/models"
	"github.com/shopspring/decimal"
	"sort"
	"sync"
	"time"
)

// memState is an in-memory copy of the database
type memState struct {
	customers map[string]decimal.Decimal
	orders    map[string]models.Order
	entries   []models.LedgerEntry
	seq       uint64
}

func (s *memState) clone() *memState {
	c := &memState{
		customers: make(map[string]decimal.Decimal, len(s.customers)),
		orders:    make(map[string]models.Order, len(s.orders)),
		entries:   append([]models.LedgerEntry(nil), s.entries...),
		seq:       s.seq,
	}
	for k, v := range s.customers {
		c.customers[k] = v
	}
	for k, v := range s.orders {
		c.orders[k] = v
	}
	return c
}

// memStore commits transaction state only when fn succeeds
type memStore struct {
	mu    sync.Mutex
	state *memState
	now   func() time.Time
	// creditErr makes Credit fail, to check rollback
	creditErr error
}

func newMemStore(customers ...string) *memStore {
	st := &memState{
		customers: map[string]decimal.Decimal{},
		orders:    map[string]models.Order{},
	}
	for _, c := range customers {
		st.customers[c] = decimal.Zero
	}
	return &memStore{state: st, now: time.Now}
}

func (m *memStore) Orders() OrderRepository {
	return memOrders{memRepos{store: m}}
}

func (m *memStore) Balances() BalanceRepository {
	return memBalances{memRepos{store: m}}
}

func (m *memStore) WithinTx(_ context.Context, fn func(r Repos) error) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	tx := m.state.clone()
	if err := fn(memRepos{store: m, tx: tx}); err != nil {
		return err
	}
	m.state = tx
	return nil
}

func (m *memStore) points(userID string) decimal.Decimal {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state.customers[userID]
}

func (m *memStore) setPoints(userID string, p decimal.Decimal) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.state.customers[userID] = p
}

func (m *memStore) orderCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.state.orders)
}

func (m *memStore) order(id string) models.Order {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state.orders[id]
}

type memRepos struct {
	store *memStore
	tx    *memState
}

func (r memRepos) with(fn func(st *memState) error) error {
	if r.tx != nil {
		return fn(r.tx)
	}
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	return fn(r.store.state)
}

func (r memRepos) Orders() OrderRepository     { return memOrders{r} }
func (r memRepos) Balances() BalanceRepository { return memBalances{r} }

type memOrders struct{ memRepos }

func (o memOrders) CreateOrder(_ context.Context, order *models.Order) (*models.Order, error) {
	var created models.Order
	err := o.with(func(st *memState) error {
		if _, ok := st.customers[order.UserID]; !ok {
			return models.ErrDataNotFound
		}
		for _, existing := range st.orders {
			if order.IdempotencyKey != "" && existing.UserID == order.UserID && existing.IdempotencyKey == order.IdempotencyKey {
				return models.ErrIdempotencyKeyConflict
			}
			if order.GatewayOrderID != "" && existing.GatewayOrderID == order.GatewayOrderID {
				return models.ErrConflictData
			}
		}
		created = *order
		created.CreatedAt = o.store.now()
		created.UpdatedAt = created.CreatedAt
		st.orders[created.ID] = created
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &created, nil
}

func (o memOrders) find(match func(models.Order) bool) (*models.Order, error) {
	var found *models.Order
	err := o.with(func(st *memState) error {
		for _, order := range st.orders {
			if match(order) {
				order := order
				found = &order
				return nil
			}
		}
		return models.ErrDataNotFound
	})
	return found, err
}

func (o memOrders) GetOrderByID(_ context.Context, id string) (*models.Order, error) {
	return o.find(func(order models.Order) bool { return order.ID == id })
}

func (o memOrders) GetOrderByIDForUpdate(ctx context.Context, id string) (*models.Order, error) {
	return o.GetOrderByID(ctx, id)
}

func (o memOrders) GetOrderByGatewayID(_ context.Context, gatewayOrderID string) (*models.Order, error) {
	return o.find(func(order models.Order) bool { return order.GatewayOrderID == gatewayOrderID })
}

func (o memOrders) GetOrderByIdempotencyKey(_ context.Context, userID, key string) (*models.Order, error) {
	return o.find(func(order models.Order) bool { return order.UserID == userID && order.IdempotencyKey == key })
}

func (o memOrders) filter(match func(models.Order) bool) []models.Order {
	orders := []models.Order{}
	_ = o.with(func(st *memState) error {
		for _, order := range st.orders {
			if match(order) {
				orders = append(orders, order)
			}
		}
		return nil
	})
	sort.Slice(orders, func(i, j int) bool { return orders[i].CreatedAt.Before(orders[j].CreatedAt) })
	return orders
}

func (o memOrders) GetOrdersByUserID(_ context.Context, userID string) ([]models.Order, error) {
	return o.filter(func(order models.Order) bool { return order.UserID == userID }), nil
}

func (o memOrders) update(id string, fn func(order *models.Order)) (*models.Order, error) {
	var updated models.Order
	err := o.with(func(st *memState) error {
		order, ok := st.orders[id]
		if !ok {
			return models.ErrDataNotFound
		}
		fn(&order)
		st.orders[id] = order
		updated = order
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &updated, nil
}

func (o memOrders) UpdateOrderStatus(_ context.Context, id string, status models.OrderStatus) (*models.Order, error) {
	return o.update(id, func(order *models.Order) { order.Status = status })
}

func (o memOrders) UpdateOrderPayment(_ context.Context, id string, status models.PaymentStatus, txnID string) (*models.Order, error) {
	return o.update(id, func(order *models.Order) {
		order.PaymentStatus = status
		order.TxnID = txnID
	})
}

func (o memOrders) UpdateDeliveryDate(_ context.Context, id string, date time.Time) (*models.Order, error) {
	return o.update(id, func(order *models.Order) { order.DeliveryDate = date })
}

func (o memOrders) GetAwaitingPaymentOrders(_ context.Context, before time.Time, limit int) ([]models.Order, error) {
	orders := o.filter(func(order models.Order) bool {
		return order.PaymentStatus == models.PaymentStatusAwaiting && order.CreatedAt.Before(before)
	})
	if len(orders) > limit {
		orders = orders[:limit]
	}
	return orders, nil
}

type memBalances struct{ memRepos }

func (b memBalances) Balance(_ context.Context, userID string) (models.Balance, error) {
	var bal models.Balance
	err := b.with(func(st *memState) error {
		points, ok := st.customers[userID]
		if !ok {
			return models.ErrDataNotFound
		}
		bal = models.Balance{UserID: userID, Points: points, Credited: decimal.Zero, Reversed: decimal.Zero}
		for _, e := range st.entries {
			if e.UserID != userID {
				continue
			}
			if e.Kind == models.LedgerCredit {
				bal.Credited = bal.Credited.Add(e.Amount)
			} else {
				bal.Reversed = bal.Reversed.Add(e.Amount)
			}
		}
		return nil
	})
	return bal, err
}

func (b memBalances) AddEntry(_ context.Context, entry *models.LedgerEntry) (bool, error) {
	inserted := false
	err := b.with(func(st *memState) error {
		for _, e := range st.entries {
			if e.OrderID == entry.OrderID && e.Kind == entry.Kind {
				return nil
			}
		}
		st.seq++
		entry.ID = st.seq
		entry.CreatedAt = b.store.now()
		st.entries = append(st.entries, *entry)
		inserted = true
		return nil
	})
	return inserted, err
}

func (b memBalances) GetEntry(_ context.Context, orderID string, kind models.LedgerEntryKind) (*models.LedgerEntry, error) {
	var found *models.LedgerEntry
	err := b.with(func(st *memState) error {
		for _, e := range st.entries {
			if e.OrderID == orderID && e.Kind == kind {
				e := e
				found = &e
				return nil
			}
		}
		return models.ErrDataNotFound
	})
	return found, err
}

func (b memBalances) Credit(_ context.Context, userID string, amount decimal.Decimal) error {
	if b.store.creditErr != nil {
		return b.store.creditErr
	}
	return b.with(func(st *memState) error {
		points, ok := st.customers[userID]
		if !ok {
			return models.ErrDataNotFound
		}
		st.customers[userID] = points.Add(amount)
		return nil
	})
}

func (b memBalances) Debit(_ context.Context, userID string, amount decimal.Decimal) (decimal.Decimal, error) {
	debited := decimal.Zero
	err := b.with(func(st *memState) error {
		points, ok := st.customers[userID]
		if !ok {
			return models.ErrDataNotFound
		}
		debited = decimal.Min(points, amount)
		st.customers[userID] = points.Sub(debited)
		return nil
	})
	return debited, err
}

func (b memBalances) GetEntriesByUserID(_ context.Context, userID string) ([]models.LedgerEntry, error) {
	entries := []models.LedgerEntry{}
	err := b.with(func(st *memState) error {
		for _, e := range st.entries {
			if e.UserID == userID {
				entries = append(entries, e)
			}
		}
		return nil
	})
	return entries, err
}
