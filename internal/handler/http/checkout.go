package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"github.com/rookgm/pcmart/internal/gateway"
	"github.com/rookgm/pcmart/internal/models"
	"github.com/rookgm/pcmart/internal/service"
	"net/http"
	"strings"
)

const (
	headerIdempotencyKey = "Idempotency-Key"
	headerReplayed       = "Idempotent-Replayed"
)

type CheckoutService interface {
	Checkout(ctx context.Context, req service.CheckoutRequest) (*service.CheckoutResult, error)
}

// CheckoutHandler represents HTTP handler for checkout requests
type CheckoutHandler struct {
	svc CheckoutService
}

// NewCheckoutHandler creates new CheckoutHandler instance
func NewCheckoutHandler(svc CheckoutService) *CheckoutHandler {
	return &CheckoutHandler{svc: svc}
}

type orderDetails struct {
	Product     json.RawMessage `json:"product"`
	UserDetails json.RawMessage `json:"userDetails"`
}

// checkoutRequest accepts both wrapped and flat order details
type checkoutRequest struct {
	PaymentMethod string        `json:"paymentMethod"`
	OrderDetails  *orderDetails `json:"orderDetails"`
	orderDetails
}

type userDetailsRequest struct {
	UserID      string          `json:"userId"`
	ID          string          `json:"_id"`
	Name        string          `json:"name"`
	Email       string          `json:"email"`
	PhoneNumber string          `json:"phoneNumber"`
	Phone       string          `json:"phone"`
	Address     json.RawMessage `json:"address"`
}

func (u userDetailsRequest) snapshot() models.CustomerSnapshot {
	c := models.CustomerSnapshot{
		UserID: u.UserID,
		Name:   u.Name,
		Email:  u.Email,
		Phone:  u.PhoneNumber,
	}
	if strings.TrimSpace(c.UserID) == "" {
		c.UserID = u.ID
	}
	if c.Phone == "" {
		c.Phone = u.Phone
	}

	// address may be a plain string or a structured object
	var address string
	if err := json.Unmarshal(u.Address, &address); err == nil {
		c.Address = address
	} else if len(u.Address) > 0 && !bytes.Equal(u.Address, []byte("null")) {
		var buf bytes.Buffer
		if json.Compact(&buf, u.Address) == nil {
			c.Address = buf.String()
		}
	}
	return c
}

type checkoutResponse struct {
	Message              string            `json:"message"`
	OrderID              string            `json:"orderId"`
	BonusPointsAdded     json.Number       `json:"bonusPointsAdded,omitempty"`
	PaypalOrder          json.RawMessage   `json:"paypalOrder,omitempty"`
	PaytmTransactionData map[string]string `json:"paytmTransactionData,omitempty"`
}

// Checkout places order paid with given method
// 200 - order is accepted or payment redirect is prepared;
// 400 - invalid order details;
// 404 - customer not found;
// 502 - payment provider failed;
// 500 - internal server error.
func (ch *CheckoutHandler) Checkout(method models.PaymentMethod) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ch.checkout(w, r, method)
	}
}

// CheckoutAny places order paid with method named in request body
func (ch *CheckoutHandler) CheckoutAny() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ch.checkout(w, r, "")
	}
}

func (ch *CheckoutHandler) checkout(w http.ResponseWriter, r *http.Request, method models.PaymentMethod) {
	var body checkoutRequest
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "Invalid order details"})
		return
	}
	defer r.Body.Close()

	details := body.orderDetails
	if body.OrderDetails != nil {
		details = *body.OrderDetails
	}
	if len(details.Product) == 0 || len(details.UserDetails) == 0 {
		writeError(w, models.ErrInvalidOrderDetails)
		return
	}

	var user userDetailsRequest
	if err := json.Unmarshal(details.UserDetails, &user); err != nil {
		writeError(w, models.ErrInvalidOrderDetails)
		return
	}

	if method == "" {
		method = parseMethod(body.PaymentMethod)
	}

	res, err := ch.svc.Checkout(r.Context(), service.CheckoutRequest{
		PaymentMethod:  method,
		Product:        details.Product,
		UserDetails:    user.snapshot(),
		IdempotencyKey: r.Header.Get(headerIdempotencyKey),
	})
	if err != nil {
		writeError(w, err)
		return
	}

	if res.Replayed {
		w.Header().Set(headerReplayed, "true")
	}

	resp := checkoutResponse{OrderID: res.Order.ID}
	switch res.Outcome {
	case gateway.OutcomeRedirect:
		resp.Message = "Order confirmed. Redirecting to Paytm for payment."
		resp.PaytmTransactionData = res.RedirectParams
	default:
		resp.Message = fmt.Sprintf("Order confirmed with %s.", res.Order.PaymentMethod)
		resp.BonusPointsAdded = points(res.BonusPointsAdded)
		resp.PaypalOrder = res.Provider
	}

	writeJSON(w, http.StatusOK, resp)
}

// parseMethod accepts method id or its display label
func parseMethod(s string) models.PaymentMethod {
	s = strings.TrimSpace(s)
	if m, ok := models.PaymentMethodByLabel(s); ok {
		return m
	}
	return models.PaymentMethod(s)
}
