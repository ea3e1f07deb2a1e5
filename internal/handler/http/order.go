package handler

import (
	"context"
	"encoding/json"
	"github.com/go-chi/chi/v5"
	"github.com/rookgm/pcmart/internal/models"
	"github.com/rookgm/pcmart/internal/service"
	"net/http"
	"strings"
	"time"
)

type OrderService interface {
	SetStatus(ctx context.Context, orderID, status string) (*service.TransitionOutcome, error)
	ApplyAction(ctx context.Context, orderID, action string) (*service.TransitionOutcome, error)
	Cancel(ctx context.Context, orderID string) (*service.TransitionOutcome, error)
	SetDeliveryDate(ctx context.Context, orderID string, date time.Time) (*models.Order, error)
	GetOrder(ctx context.Context, orderID string) (*models.Order, error)
	ListUserOrders(ctx context.Context, userID string) ([]models.Order, error)
}

// OrderHandler represents HTTP handler for order-related requests
type OrderHandler struct {
	svc OrderService
}

// NewOrderHandler creates new OrderHandler instance
func NewOrderHandler(svc OrderService) *OrderHandler {
	return &OrderHandler{svc: svc}
}

type statusRequest struct {
	Status string `json:"status"`
}

type actionRequest struct {
	Action string `json:"action"`
}

type deliveryDateRequest struct {
	DeliveryDate string `json:"deliveryDate"`
}

type cancelResponse struct {
	Success             bool           `json:"success"`
	Message             string         `json:"message"`
	Order               *orderResponse `json:"order"`
	BonusPointsReversed json.Number    `json:"bonusPointsReversed,omitempty"`
}

type getOrderResponse struct {
	Success bool           `json:"success"`
	Order   *orderResponse `json:"order"`
}

// SetStatus sets order status
// 200 - status is set;
// 400 - unknown status;
// 404 - order not found;
// 500 - internal server error.
func (oh *OrderHandler) SetStatus() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req statusRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, models.ErrInvalidStatus)
			return
		}
		defer r.Body.Close()

		out, err := oh.svc.SetStatus(r.Context(), chi.URLParam(r, "orderId"), req.Status)
		if err != nil {
			writeError(w, err)
			return
		}

		writeJSON(w, http.StatusOK, newOrderResponse(out.Order))
	}
}

// ApplyAction confirms or cancels pending order
// 200 - action is applied;
// 400 - unknown action;
// 404 - order not found;
// 409 - order is not pending;
// 500 - internal server error.
func (oh *OrderHandler) ApplyAction() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req actionRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, models.ErrInvalidAction)
			return
		}
		defer r.Body.Close()

		out, err := oh.svc.ApplyAction(r.Context(), chi.URLParam(r, "orderId"), req.Action)
		if err != nil {
			writeError(w, err)
			return
		}

		writeJSON(w, http.StatusOK, newOrderResponse(out.Order))
	}
}

// CancelOrder cancels order on behalf of customer
// 200 - order is cancelled or was cancelled before;
// 404 - order not found;
// 500 - internal server error.
func (oh *OrderHandler) CancelOrder() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		out, err := oh.svc.Cancel(r.Context(), chi.URLParam(r, "orderId"))
		if err != nil {
			writeError(w, err)
			return
		}

		if out.Result.AlreadyCancelled {
			writeJSON(w, http.StatusOK, cancelResponse{
				Message: "Order is already cancelled",
				Order:   newOrderResponse(out.Order),
			})
			return
		}

		writeJSON(w, http.StatusOK, cancelResponse{
			Success:             true,
			Message:             "Order cancelled successfully",
			Order:               newOrderResponse(out.Order),
			BonusPointsReversed: points(out.BonusReversed),
		})
	}
}

// SetDeliveryDate sets order delivery date
// 200 - date is set;
// 400 - invalid date;
// 404 - order not found;
// 500 - internal server error.
func (oh *OrderHandler) SetDeliveryDate() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req deliveryDateRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, models.ErrInvalidDeliveryDate)
			return
		}
		defer r.Body.Close()

		date, ok := parseDate(req.DeliveryDate)
		if !ok {
			writeError(w, models.ErrInvalidDeliveryDate)
			return
		}

		order, err := oh.svc.SetDeliveryDate(r.Context(), chi.URLParam(r, "orderId"), date)
		if err != nil {
			writeError(w, err)
			return
		}

		writeJSON(w, http.StatusOK, newOrderResponse(order))
	}
}

// GetOrder returns order
// 200 - success;
// 404 - order not found;
// 500 - internal server error.
func (oh *OrderHandler) GetOrder() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		order, err := oh.svc.GetOrder(r.Context(), chi.URLParam(r, "orderId"))
		if err != nil {
			writeError(w, err)
			return
		}

		writeJSON(w, http.StatusOK, getOrderResponse{Success: true, Order: newOrderResponse(order)})
	}
}

// ListUserOrders returns customer orders
// 200 - success;
// 204 - customer has no orders;
// 500 - internal server error.
func (oh *OrderHandler) ListUserOrders() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		orders, err := oh.svc.ListUserOrders(r.Context(), chi.URLParam(r, "userId"))
		if err != nil {
			writeError(w, err)
			return
		}

		if len(orders) == 0 {
			w.WriteHeader(http.StatusNoContent)
			return
		}

		resp := make([]*orderResponse, 0, len(orders))
		for i := range orders {
			resp = append(resp, newOrderResponse(&orders[i]))
		}

		writeJSON(w, http.StatusOK, resp)
	}
}

func parseDate(s string) (time.Time, bool) {
	s = strings.TrimSpace(s)
	for _, layout := range []string{time.RFC3339, time.DateOnly} {
		if t, err := time.Parse(layout, s); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}
