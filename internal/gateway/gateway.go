package gateway

import (
	"context"
	"encoding/json"
	"fmt"
	"github.com/go-faster/errors"
	"github.com/rookgm/pcmart/internal/models"
	"github.com/shopspring/decimal"
)

// Outcome is the result class of a payment initiation
type Outcome int

const (
	// OutcomeCompleted means the gateway accepted the payment right away
	OutcomeCompleted Outcome = iota
	// OutcomeRedirect means the customer must finish payment on the hosted page
	OutcomeRedirect
)

// Initiation is normalized gateway response to a checkout
type Initiation struct {
	Outcome        Outcome
	GatewayOrderID string
	// RedirectParams are sent to the client for the hosted page redirect
	RedirectParams map[string]string
	// Provider is the raw provider response, if any
	Provider json.RawMessage
}

// Confirmation is normalized payment confirmation
type Confirmation struct {
	GatewayOrderID string
	TxnID          string
	Amount         decimal.Decimal
	Success        bool
	// Pending is set when the gateway has no final answer yet
	Pending bool
}

// Gateway is implemented once per payment method
type Gateway interface {
	// Method returns payment method served by gateway
	Method() models.PaymentMethod
	// Initiate starts payment for the order. It must not persist anything.
	Initiate(ctx context.Context, order *models.Order) (*Initiation, error)
	// Confirm validates inbound callback payload
	Confirm(ctx context.Context, payload map[string]string) (*Confirmation, error)
}

// StatusChecker is implemented by gateways able to report payment status on request
type StatusChecker interface {
	Status(ctx context.Context, gatewayOrderID string) (*Confirmation, error)
}

// UpstreamError is returned when a provider fails or answers with non-success
type UpstreamError struct {
	Gateway    string
	StatusCode int
	Details    json.RawMessage
	Err        error
}

func (e *UpstreamError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("%s: unexpected status %d", e.Gateway, e.StatusCode)
	}
	return fmt.Sprintf("%s: %v", e.Gateway, e.Err)
}

func (e *UpstreamError) Unwrap() error {
	return e.Err
}

// Registry is lookup table of gateways by payment method
type Registry struct {
	gateways map[models.PaymentMethod]Gateway
}

// NewRegistry creates new Registry instance
func NewRegistry(gws ...Gateway) *Registry {
	r := &Registry{gateways: make(map[models.PaymentMethod]Gateway, len(gws))}
	for _, gw := range gws {
		r.gateways[gw.Method()] = gw
	}
	return r
}

// Lookup returns gateway for payment method
func (r *Registry) Lookup(method models.PaymentMethod) (Gateway, error) {
	gw, ok := r.gateways[method]
	if !ok {
		return nil, errors.Wrap(models.ErrUnknownPaymentMethod, string(method))
	}
	return gw, nil
}

// All returns registered gateways
func (r *Registry) All() []Gateway {
	gws := make([]Gateway, 0, len(r.gateways))
	for _, gw := range r.gateways {
		gws = append(gws, gw)
	}
	return gws
}

// jsonDetails makes provider body safe to embed into JSON response
func jsonDetails(body []byte) json.RawMessage {
	if len(body) == 0 {
		return nil
	}
	if json.Valid(body) {
		return body
	}
	quoted, _ := json.Marshal(string(body))
	return quoted
}
