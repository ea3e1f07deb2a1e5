package handler

import (
	"encoding/json"
	"github.com/golang/mock/gomock"
	"github.com/rookgm/pcmart/internal/handler/http/mocks"
	"github.com/rookgm/pcmart/internal/models"
	"github.com/rookgm/pcmart/internal/service"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
)

func TestCallbackHandler_Callback(t *testing.T) {
	paid := &models.Order{ID: "o1", PaymentStatus: models.PaymentStatusSuccess}
	form := url.Values{"ORDERID": {"ORDER-1"}, "STATUS": {"TXN_SUCCESS"}, "TXNAMOUNT": {"45000.00"}}
	wantPayload := map[string]string{"ORDERID": "ORDER-1", "STATUS": "TXN_SUCCESS", "TXNAMOUNT": "45000.00"}

	tests := []struct {
		name        string
		contentType string
		body        string
		setup       func(t *testing.T) *mocks.MockCallbackService
		wantCode    int
		wantMessage string
		wantError   string
	}{
		{
			name:        "form_success_return_200",
			contentType: "application/x-www-form-urlencoded",
			body:        form.Encode(),
			setup: func(t *testing.T) *mocks.MockCallbackService {
				svcMock := mocks.NewMockCallbackService(gomock.NewController(t))
				svcMock.EXPECT().ConfirmCallback(gomock.Any(), models.PaymentPaytm, wantPayload).
					Return(&service.CallbackResult{Order: paid, Success: true}, nil)
				return svcMock
			},
			wantCode:    http.StatusOK,
			wantMessage: "Payment Successful",
		},
		{
			name:        "json_failure_return_200",
			contentType: "application/json; charset=utf-8",
			body:        `{"ORDERID":"ORDER-1","STATUS":"TXN_SUCCESS","TXNAMOUNT":45000.00}`,
			setup: func(t *testing.T) *mocks.MockCallbackService {
				svcMock := mocks.NewMockCallbackService(gomock.NewController(t))
				svcMock.EXPECT().ConfirmCallback(gomock.Any(), models.PaymentPaytm, gomock.Any()).DoAndReturn(
					func(_ any, _ models.PaymentMethod, payload map[string]string) (*service.CallbackResult, error) {
						assert.Equal(t, "45000.00", payload["TXNAMOUNT"])
						return &service.CallbackResult{Order: &models.Order{ID: "o1"}, Success: false}, nil
					})
				return svcMock
			},
			wantCode:    http.StatusOK,
			wantMessage: "Payment Failed",
		},
		{
			name:        "pending_return_200",
			contentType: "application/x-www-form-urlencoded",
			body:        form.Encode(),
			setup: func(t *testing.T) *mocks.MockCallbackService {
				svcMock := mocks.NewMockCallbackService(gomock.NewController(t))
				svcMock.EXPECT().ConfirmCallback(gomock.Any(), models.PaymentPaytm, wantPayload).
					Return(&service.CallbackResult{Order: &models.Order{ID: "o1"}, Pending: true}, nil)
				return svcMock
			},
			wantCode:    http.StatusOK,
			wantMessage: "Payment Pending",
		},
		{
			name:        "broken_json_return_400",
			contentType: "application/json",
			body:        `{"ORDERID":`,
			setup: func(t *testing.T) *mocks.MockCallbackService {
				svcMock := mocks.NewMockCallbackService(gomock.NewController(t))
				svcMock.EXPECT().ConfirmCallback(gomock.Any(), gomock.Any(), gomock.Any()).Times(0)
				return svcMock
			},
			wantCode:  http.StatusBadRequest,
			wantError: models.ErrInvalidCallback.Error(),
		},
		{
			name:        "checksum_mismatch_return_400",
			contentType: "application/x-www-form-urlencoded",
			body:        form.Encode(),
			setup: func(t *testing.T) *mocks.MockCallbackService {
				svcMock := mocks.NewMockCallbackService(gomock.NewController(t))
				svcMock.EXPECT().ConfirmCallback(gomock.Any(), gomock.Any(), gomock.Any()).
					Return(nil, models.ErrChecksumMismatch)
				return svcMock
			},
			wantCode:  http.StatusBadRequest,
			wantError: models.ErrChecksumMismatch.Error(),
		},
		{
			name:        "unknown_order_return_404",
			contentType: "application/x-www-form-urlencoded",
			body:        form.Encode(),
			setup: func(t *testing.T) *mocks.MockCallbackService {
				svcMock := mocks.NewMockCallbackService(gomock.NewController(t))
				svcMock.EXPECT().ConfirmCallback(gomock.Any(), gomock.Any(), gomock.Any()).
					Return(nil, models.ErrDataNotFound)
				return svcMock
			},
			wantCode:  http.StatusNotFound,
			wantError: models.ErrDataNotFound.Error(),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodPost, "/api/paytm/callback", strings.NewReader(tt.body))
			req.Header.Set("Content-Type", tt.contentType)
			w := httptest.NewRecorder()

			NewCallbackHandler(tt.setup(t)).Callback(models.PaymentPaytm)(w, req)

			res := w.Result()
			defer res.Body.Close()
			assert.Equal(t, tt.wantCode, res.StatusCode)

			var got struct {
				Message string         `json:"message"`
				Error   string         `json:"error"`
				Order   *orderResponse `json:"order"`
			}
			require.NoError(t, json.NewDecoder(res.Body).Decode(&got))
			assert.Equal(t, tt.wantMessage, got.Message)
			assert.Equal(t, tt.wantError, got.Error)
			if tt.wantMessage != "" {
				require.NotNil(t, got.Order)
				assert.Equal(t, "o1", got.Order.ID)
			}
		})
	}
}
