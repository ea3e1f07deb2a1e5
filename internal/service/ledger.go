package service

import (
	"context"
	"github.com/go-faster/errors"
	"github.com/rookgm/pcmart/internal/logger"
	"github.com/rookgm/pcmart/internal/models"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// creditBonus applies order bonus to customer balance once per order.
// It must run in the transaction that accepted the order.
func creditBonus(ctx context.Context, balances BalanceRepository, order *models.Order) (decimal.Decimal, error) {
	bonus := order.Product.Bonus
	if !bonus.IsPositive() {
		logger.Log.Debug("order has no bonus to credit", zap.String("order", order.ID))
		return decimal.Zero, nil
	}

	inserted, err := balances.AddEntry(ctx, &models.LedgerEntry{
		OrderID: order.ID,
		UserID:  order.UserID,
		Kind:    models.LedgerCredit,
		Amount:  bonus,
	})
	if err != nil {
		return decimal.Zero, errors.Wrap(err, "add credit entry")
	}
	if !inserted {
		logger.Log.Debug("order bonus already credited", zap.String("order", order.ID))
		return decimal.Zero, nil
	}

	if err := balances.Credit(ctx, order.UserID, bonus); err != nil {
		return decimal.Zero, errors.Wrap(err, "credit balance")
	}

	logger.Log.Info("bonus credited",
		zap.String("order", order.ID),
		zap.String("user", order.UserID),
		zap.String("amount", bonus.String()))

	return bonus, nil
}

// reverseBonus takes back credited bonus once per order. Balance never goes below zero,
// so the reversed amount may be less than the credit.
func reverseBonus(ctx context.Context, balances BalanceRepository, order *models.Order) (decimal.Decimal, error) {
	credit, err := balances.GetEntry(ctx, order.ID, models.LedgerCredit)
	if err != nil {
		if errors.Is(err, models.ErrDataNotFound) {
			return decimal.Zero, nil
		}
		return decimal.Zero, errors.Wrap(err, "get credit entry")
	}

	// order may enter Cancelled again after an administrative status reset
	if _, err := balances.GetEntry(ctx, order.ID, models.LedgerDebit); err == nil {
		return decimal.Zero, nil
	} else if !errors.Is(err, models.ErrDataNotFound) {
		return decimal.Zero, errors.Wrap(err, "get debit entry")
	}

	debited, err := balances.Debit(ctx, order.UserID, credit.Amount)
	if err != nil {
		return decimal.Zero, errors.Wrap(err, "debit balance")
	}

	inserted, err := balances.AddEntry(ctx, &models.LedgerEntry{
		OrderID: order.ID,
		UserID:  order.UserID,
		Kind:    models.LedgerDebit,
		Amount:  debited,
	})
	if err != nil {
		return decimal.Zero, errors.Wrap(err, "add debit entry")
	}
	if !inserted {
		// rolls back the debit above
		return decimal.Zero, errors.Wrap(models.ErrConflictData, "bonus already reversed")
	}

	if debited.LessThan(credit.Amount) {
		logger.Log.Warn("bonus reversal floored at zero balance",
			zap.String("order", order.ID),
			zap.String("user", order.UserID),
			zap.String("credited", credit.Amount.String()),
			zap.String("debited", debited.String()))
	}

	return debited, nil
}
