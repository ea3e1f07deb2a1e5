package gateway

import (
	"context"
	"github.com/rookgm/pcmart/internal/models"
)

// Stub completes every payment synchronously. There is no capture step behind it.
type Stub struct {
	method models.PaymentMethod
}

// NewStub creates stub gateway for the payment method
func NewStub(method models.PaymentMethod) *Stub {
	return &Stub{method: method}
}

// StubGateways returns stubs for all locally simulated payment methods
func StubGateways() []Gateway {
	return []Gateway{
		NewStub(models.PaymentCashOnDelivery),
		NewStub(models.PaymentCreditCard),
		NewStub(models.PaymentGooglePay),
		NewStub(models.PaymentPhonePay),
		NewStub(models.PaymentNetBanking),
	}
}

func (s *Stub) Method() models.PaymentMethod {
	return s.method
}

func (s *Stub) Initiate(_ context.Context, _ *models.Order) (*Initiation, error) {
	return &Initiation{Outcome: OutcomeCompleted}, nil
}

func (s *Stub) Confirm(_ context.Context, _ map[string]string) (*Confirmation, error) {
	return nil, models.ErrCallbackUnsupported
}
