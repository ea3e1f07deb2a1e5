package handler

//go:generate mockgen -destination=mocks/services.go -package=mocks . CheckoutService,CallbackService,OrderService,BalanceService

import (
	"encoding/json"
	"github.com/go-faster/errors"
	"github.com/rookgm/pcmart/internal/gateway"
	"github.com/rookgm/pcmart/internal/logger"
	"github.com/rookgm/pcmart/internal/models"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"net/http"
	"time"
)

type errorResponse struct {
	Error   string          `json:"error"`
	Details json.RawMessage `json:"details,omitempty"`
}

type orderResponse struct {
	ID             string                  `json:"id"`
	UserID         string                  `json:"userId"`
	Product        json.RawMessage         `json:"product"`
	UserDetails    models.CustomerSnapshot `json:"userDetails"`
	Status         models.OrderStatus      `json:"status"`
	PaymentMethod  string                  `json:"paymentMethod"`
	PaymentStatus  models.PaymentStatus    `json:"paymentStatus,omitempty"`
	DeliveryDate   string                  `json:"deliveryDate"`
	GatewayOrderID string                  `json:"gatewayOrderId,omitempty"`
	TxnID          string                  `json:"txnId,omitempty"`
	CreatedAt      string                  `json:"createdAt"`
	UpdatedAt      string                  `json:"updatedAt"`
}

func newOrderResponse(order *models.Order) *orderResponse {
	if order == nil {
		return nil
	}
	return &orderResponse{
		ID:             order.ID,
		UserID:         order.UserID,
		Product:        order.Product.Raw,
		UserDetails:    order.UserDetails,
		Status:         order.Status,
		PaymentMethod:  order.PaymentMethod,
		PaymentStatus:  order.PaymentStatus,
		DeliveryDate:   order.DeliveryDate.Format(time.RFC3339),
		GatewayOrderID: order.GatewayOrderID,
		TxnID:          order.TxnID,
		CreatedAt:      order.CreatedAt.Format(time.RFC3339),
		UpdatedAt:      order.UpdatedAt.Format(time.RFC3339),
	}
}

// points renders bonus amount as JSON number
func points(d decimal.Decimal) json.Number {
	return json.Number(d.String())
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)

	if err := json.NewEncoder(w).Encode(v); err != nil {
		logger.Log.Debug("encode response", zap.Error(err))
	}
}

// writeError maps service error to response status
func writeError(w http.ResponseWriter, err error) {
	var upstream *gateway.UpstreamError

	switch {
	case errors.As(err, &upstream):
		writeJSON(w, http.StatusBadGateway, errorResponse{Error: upstream.Error(), Details: upstream.Details})
	case errors.Is(err, models.ErrDataNotFound), errors.Is(err, models.ErrCustomerNotFound):
		writeJSON(w, http.StatusNotFound, errorResponse{Error: err.Error()})
	case errors.Is(err, models.ErrInvalidTransition), errors.Is(err, models.ErrConflictData):
		writeJSON(w, http.StatusConflict, errorResponse{Error: err.Error()})
	case errors.Is(err, models.ErrInvalidOrderDetails),
		errors.Is(err, models.ErrInvalidPrice),
		errors.Is(err, models.ErrUserIDRequired),
		errors.Is(err, models.ErrUnknownPaymentMethod),
		errors.Is(err, models.ErrInvalidStatus),
		errors.Is(err, models.ErrInvalidAction),
		errors.Is(err, models.ErrInvalidDeliveryDate),
		errors.Is(err, models.ErrInvalidCallback),
		errors.Is(err, models.ErrChecksumMismatch),
		errors.Is(err, models.ErrAmountMismatch),
		errors.Is(err, models.ErrCallbackUnsupported):
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: err.Error()})
	default:
		logger.Log.Error("internal error", zap.Error(err))
		writeJSON(w, http.StatusInternalServerError, errorResponse{Error: "internal error"})
	}
}
