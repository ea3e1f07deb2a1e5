package handler

import (
	"encoding/json"
	"github.com/golang/mock/gomock"
	"github.com/google/go-cmp/cmp"
	"github.com/rookgm/pcmart/internal/handler/http/mocks"
	"github.com/rookgm/pcmart/internal/models"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func TestBalanceHandler_GetUserBonus(t *testing.T) {
	at := time.Date(2024, time.May, 10, 15, 4, 5, 0, time.UTC)

	tests := []struct {
		name     string
		setup    func(t *testing.T) *mocks.MockBalanceService
		wantCode int
		wantBody *bonusResponse
	}{
		{
			name: "valid_request_return_200",
			setup: func(t *testing.T) *mocks.MockBalanceService {
				svcMock := mocks.NewMockBalanceService(gomock.NewController(t))
				svcMock.EXPECT().GetBalance(gomock.Any(), "u1").Return(models.Balance{
					UserID:   "u1",
					Points:   decimal.NewFromInt(30),
					Credited: decimal.NewFromInt(130),
					Reversed: decimal.NewFromInt(100),
				}, nil)
				svcMock.EXPECT().GetEntries(gomock.Any(), "u1").Return([]models.LedgerEntry{
					{OrderID: "o1", Kind: models.LedgerCredit, Amount: decimal.NewFromInt(100), CreatedAt: at},
					{OrderID: "o2", Kind: models.LedgerCredit, Amount: decimal.NewFromInt(30), CreatedAt: at},
					{OrderID: "o1", Kind: models.LedgerDebit, Amount: decimal.NewFromInt(100), CreatedAt: at},
				}, nil)
				return svcMock
			},
			wantCode: http.StatusOK,
			wantBody: &bonusResponse{
				BonusPoints: 30,
				Credited:    130,
				Reversed:    100,
				Entries: []ledgerEntryResponse{
					{OrderID: "o1", Kind: models.LedgerCredit, Amount: 100, CreatedAt: "2024-05-10T15:04:05Z"},
					{OrderID: "o2", Kind: models.LedgerCredit, Amount: 30, CreatedAt: "2024-05-10T15:04:05Z"},
					{OrderID: "o1", Kind: models.LedgerDebit, Amount: 100, CreatedAt: "2024-05-10T15:04:05Z"},
				},
			},
		},
		{
			name: "unknown_customer_return_404",
			setup: func(t *testing.T) *mocks.MockBalanceService {
				svcMock := mocks.NewMockBalanceService(gomock.NewController(t))
				svcMock.EXPECT().GetBalance(gomock.Any(), "u1").Return(models.Balance{}, models.ErrDataNotFound)
				svcMock.EXPECT().GetEntries(gomock.Any(), gomock.Any()).Times(0)
				return svcMock
			},
			wantCode: http.StatusNotFound,
		},
		{
			name: "internal_error_return_500",
			setup: func(t *testing.T) *mocks.MockBalanceService {
				svcMock := mocks.NewMockBalanceService(gomock.NewController(t))
				svcMock.EXPECT().GetBalance(gomock.Any(), "u1").Return(models.Balance{}, assert.AnError)
				return svcMock
			},
			wantCode: http.StatusInternalServerError,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/api/users/u1/bonus", nil)
			w := httptest.NewRecorder()

			NewBalanceHandler(tt.setup(t)).GetUserBonus()(w, withURLParams(req, "userId", "u1"))

			res := w.Result()
			defer res.Body.Close()
			assert.Equal(t, tt.wantCode, res.StatusCode)

			if tt.wantBody != nil {
				var got bonusResponse
				require.NoError(t, json.NewDecoder(res.Body).Decode(&got))
				if diff := cmp.Diff(*tt.wantBody, got); diff != "" {
					t.Errorf("body mismatch (-want +got):\n%s", diff)
				}
			}
		})
	}
}
