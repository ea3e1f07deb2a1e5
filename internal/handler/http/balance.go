package handler

import (
	"context"
	"github.com/go-chi/chi/v5"
	"github.com/rookgm/pcmart/internal/models"
	"net/http"
	"time"
)

type BalanceService interface {
	// GetBalance returns current customer bonus balance
	GetBalance(ctx context.Context, userID string) (models.Balance, error)
	// GetEntries returns customer bonus ledger entries
	GetEntries(ctx context.Context, userID string) ([]models.LedgerEntry, error)
}

// BalanceHandler represents HTTP handler for bonus balance requests
type BalanceHandler struct {
	svc BalanceService
}

// NewBalanceHandler creates new BalanceHandler instance
func NewBalanceHandler(svc BalanceService) *BalanceHandler {
	return &BalanceHandler{svc: svc}
}

type ledgerEntryResponse struct {
	OrderID   string                 `json:"orderId"`
	Kind      models.LedgerEntryKind `json:"kind"`
	Amount    float64                `json:"amount"`
	CreatedAt string                 `json:"createdAt"`
}

type bonusResponse struct {
	BonusPoints float64               `json:"bonusPoints"`
	Credited    float64               `json:"credited"`
	Reversed    float64               `json:"reversed"`
	Entries     []ledgerEntryResponse `json:"entries"`
}

// GetUserBonus returns customer bonus balance and ledger
// 200 - success;
// 404 - customer not found;
// 500 - internal server error.
func (bh *BalanceHandler) GetUserBonus() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID := chi.URLParam(r, "userId")

		balance, err := bh.svc.GetBalance(r.Context(), userID)
		if err != nil {
			writeError(w, err)
			return
		}

		entries, err := bh.svc.GetEntries(r.Context(), userID)
		if err != nil {
			writeError(w, err)
			return
		}

		resp := bonusResponse{
			BonusPoints: balance.Points.InexactFloat64(),
			Credited:    balance.Credited.InexactFloat64(),
			Reversed:    balance.Reversed.InexactFloat64(),
			Entries:     make([]ledgerEntryResponse, 0, len(entries)),
		}
		for _, e := range entries {
			resp.Entries = append(resp.Entries, ledgerEntryResponse{
				OrderID:   e.OrderID,
				Kind:      e.Kind,
				Amount:    e.Amount.InexactFloat64(),
				CreatedAt: e.CreatedAt.Format(time.RFC3339),
			})
		}

		writeJSON(w, http.StatusOK, resp)
	}
}
