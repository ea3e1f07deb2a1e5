package handler

import (
	"context"
	"encoding/json"
	"github.com/rookgm/pcmart/internal/gateway"
	"github.com/rookgm/pcmart/internal/models"
	"github.com/rookgm/pcmart/internal/service"
	"mime"
	"net/http"
)

type CallbackService interface {
	ConfirmCallback(ctx context.Context, method models.PaymentMethod, payload map[string]string) (*service.CallbackResult, error)
}

// CallbackHandler represents HTTP handler for payment provider callbacks
type CallbackHandler struct {
	svc CallbackService
}

// NewCallbackHandler creates new CallbackHandler instance
func NewCallbackHandler(svc CallbackService) *CallbackHandler {
	return &CallbackHandler{svc: svc}
}

type callbackResponse struct {
	Message string         `json:"message"`
	Order   *orderResponse `json:"order"`
}

// Callback records payment result posted by provider
// 200 - payment result is recorded;
// 400 - invalid payload or checksum;
// 404 - order not found;
// 500 - internal server error.
func (ch *CallbackHandler) Callback(method models.PaymentMethod) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		payload, err := callbackPayload(r)
		if err != nil {
			writeJSON(w, http.StatusBadRequest, errorResponse{Error: models.ErrInvalidCallback.Error()})
			return
		}

		res, err := ch.svc.ConfirmCallback(r.Context(), method, payload)
		if err != nil {
			writeError(w, err)
			return
		}

		msg := "Payment Failed"
		switch {
		case res.Success:
			msg = "Payment Successful"
		case res.Pending:
			msg = "Payment Pending"
		}

		writeJSON(w, http.StatusOK, callbackResponse{Message: msg, Order: newOrderResponse(res.Order)})
	}
}

// callbackPayload reads flat fields from JSON or form body
func callbackPayload(r *http.Request) (map[string]string, error) {
	defer r.Body.Close()

	mediaType, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))
	if mediaType == "application/json" {
		var raw map[string]any
		dec := json.NewDecoder(r.Body)
		dec.UseNumber()
		if err := dec.Decode(&raw); err != nil {
			return nil, err
		}
		return gateway.StringifyPayload(raw), nil
	}

	if err := r.ParseForm(); err != nil {
		return nil, err
	}
	payload := make(map[string]string, len(r.PostForm))
	for k := range r.PostForm {
		payload[k] = r.PostForm.Get(k)
	}
	return payload, nil
}
