package repository

import (
	"context"
	"github.com/go-faster/errors"
	"github.com/jackc/pgx/v5"
	"github.com/rookgm/pcmart/internal/models"
	"github.com/rookgm/pcmart/internal/repository/postgres"
	"github.com/shopspring/decimal"
)

const (
	selectBalanceQuery = `
						SELECT c.id, c.bonus_points,
							COALESCE((SELECT SUM(amount) FROM bonus_ledger WHERE user_id = c.id AND kind = 'credit'), 0),
							COALESCE((SELECT SUM(amount) FROM bonus_ledger WHERE user_id = c.id AND kind = 'debit'), 0)
						FROM customers c
						WHERE c.id = $1
`
	insertEntryQuery = `
						INSERT INTO bonus_ledger (order_id, user_id, kind, amount)
						VALUES ($1, $2, $3, $4)
						ON CONFLICT (order_id, kind) DO NOTHING
						RETURNING id, created_at
`
	selectEntryQuery = `
						SELECT id, order_id, user_id, kind, amount, created_at FROM bonus_ledger
						WHERE order_id = $1 AND kind = $2
`
	selectEntriesByUserIDQuery = `
						SELECT id, order_id, user_id, kind, amount, created_at FROM bonus_ledger
						WHERE user_id = $1
						ORDER BY created_at DESC, id DESC
`
	creditQuery = `
						UPDATE customers
						SET bonus_points = bonus_points + $2
						WHERE id = $1
`
	// old balance is read in the same statement, row lock makes it exact
	debitQuery = `
						UPDATE customers c
						SET bonus_points = GREATEST(c.bonus_points - $2, 0)
						FROM (SELECT id, bonus_points FROM customers WHERE id = $1 FOR UPDATE) old
						WHERE c.id = old.id
						RETURNING old.bonus_points - c.bonus_points
`
)

// BalanceRepository implements service.BalanceRepository interface
type BalanceRepository struct {
	db postgres.Querier
}

// NewBalanceRepository creates new balance repository instance
func NewBalanceRepository(db postgres.Querier) *BalanceRepository {
	return &BalanceRepository{db: db}
}

// Balance returns current balance
func (br *BalanceRepository) Balance(ctx context.Context, userID string) (models.Balance, error) {
	var b models.Balance
	err := br.db.QueryRow(ctx, selectBalanceQuery, userID).Scan(&b.UserID, &b.Points, &b.Credited, &b.Reversed)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return models.Balance{}, models.ErrDataNotFound
		}
		return models.Balance{}, err
	}
	return b, nil
}

// AddEntry records ledger entry unless the order already has one of this kind
func (br *BalanceRepository) AddEntry(ctx context.Context, entry *models.LedgerEntry) (bool, error) {
	err := br.db.QueryRow(ctx, insertEntryQuery, entry.OrderID, entry.UserID, entry.Kind, entry.Amount).Scan(&entry.ID, &entry.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return false, nil
		}
		return false, err
	}
	return true, nil
}

// GetEntry returns ledger entry of the order
func (br *BalanceRepository) GetEntry(ctx context.Context, orderID string, kind models.LedgerEntryKind) (*models.LedgerEntry, error) {
	var e models.LedgerEntry
	err := br.db.QueryRow(ctx, selectEntryQuery, orderID, kind).Scan(&e.ID, &e.OrderID, &e.UserID, &e.Kind, &e.Amount, &e.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, models.ErrDataNotFound
		}
		return nil, err
	}
	return &e, nil
}

// Credit adds amount to customer balance
func (br *BalanceRepository) Credit(ctx context.Context, userID string, amount decimal.Decimal) error {
	cmd, err := br.db.Exec(ctx, creditQuery, userID, amount)
	if err != nil {
		return err
	}

	if cmd.RowsAffected() == 0 {
		return models.ErrDataNotFound
	}

	return nil
}

// Debit subtracts amount from customer balance, flooring at zero
func (br *BalanceRepository) Debit(ctx context.Context, userID string, amount decimal.Decimal) (decimal.Decimal, error) {
	var debited decimal.Decimal
	err := br.db.QueryRow(ctx, debitQuery, userID, amount).Scan(&debited)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return decimal.Zero, models.ErrDataNotFound
		}
		return decimal.Zero, err
	}
	return debited, nil
}

// GetEntriesByUserID returns ledger entries
func (br *BalanceRepository) GetEntriesByUserID(ctx context.Context, userID string) ([]models.LedgerEntry, error) {
	rows, err := br.db.Query(ctx, selectEntriesByUserIDQuery, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	entries := []models.LedgerEntry{}

	for rows.Next() {
		e := models.LedgerEntry{}
		if err := rows.Scan(&e.ID, &e.OrderID, &e.UserID, &e.Kind, &e.Amount, &e.CreatedAt); err != nil {
			return nil, err
		}
		entries = append(entries, e)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return entries, nil
}
