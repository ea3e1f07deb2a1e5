package repository

import (
	"context"
	"github.com/jackc/pgx/v5"
	"github.com/rookgm/pcmart/internal/repository/postgres"
	"github.com/rookgm/pcmart/internal/service"
)

var _ service.Store = (*Store)(nil)

type repos struct {
	orders   *OrderRepository
	balances *BalanceRepository
}

func newRepos(q postgres.Querier) repos {
	return repos{
		orders:   NewOrderRepository(q),
		balances: NewBalanceRepository(q),
	}
}

func (r repos) Orders() service.OrderRepository {
	return r.orders
}

func (r repos) Balances() service.BalanceRepository {
	return r.balances
}

// Store gives repositories bound to the pool or to a transaction
type Store struct {
	repos
	db *postgres.DB
}

// NewStore creates new Store instance
func NewStore(db *postgres.DB) *Store {
	return &Store{repos: newRepos(db), db: db}
}

// WithinTx runs fn with repositories sharing one transaction
func (s *Store) WithinTx(ctx context.Context, fn func(r service.Repos) error) error {
	return s.db.WithinTx(ctx, func(tx pgx.Tx) error {
		return fn(newRepos(tx))
	})
}
