package service

import (
	"context"
	"github.com/rookgm/pcmart/internal/models"
)

// BalanceService implements BalanceService interface
type BalanceService struct {
	repo BalanceRepository
}

// NewBalanceService creates new BalanceService instance
func NewBalanceService(repo BalanceRepository) *BalanceService {
	return &BalanceService{repo: repo}
}

// GetBalance returns current customer bonus balance
func (bs *BalanceService) GetBalance(ctx context.Context, userID string) (models.Balance, error) {
	return bs.repo.Balance(ctx, userID)
}

// GetEntries returns customer bonus ledger entries
func (bs *BalanceService) GetEntries(ctx context.Context, userID string) ([]models.LedgerEntry, error) {
	if _, err := bs.repo.Balance(ctx, userID); err != nil {
		return nil, err
	}
	return bs.repo.GetEntriesByUserID(ctx, userID)
}
