package gateway

import (
	"context"
	"encoding/json"
	"github.com/go-faster/errors"
	"github.com/rookgm/pcmart/internal/models"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"
)

type paypalStub struct {
	tokenCalls  atomic.Int32
	createCalls atomic.Int32
	// createStatus returns status for n-th create call, starting from 1
	createStatus func(n int32) int
	gotBody      paypalOrderRequest
	gotRequestID string
}

func (s *paypalStub) handler(t *testing.T) http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/v1/oauth2/token", func(w http.ResponseWriter, r *http.Request) {
		s.tokenCalls.Add(1)
		user, pass, ok := r.BasicAuth()
		assert.True(t, ok)
		assert.Equal(t, "client", user)
		assert.Equal(t, "secret", pass)
		require.NoError(t, r.ParseForm())
		assert.Equal(t, "client_credentials", r.PostForm.Get("grant_type"))
		_ = json.NewEncoder(w).Encode(map[string]any{"access_token": "tok", "expires_in": 3600})
	})
	mux.HandleFunc("/v2/checkout/orders", func(w http.ResponseWriter, r *http.Request) {
		n := s.createCalls.Add(1)
		assert.Equal(t, "Bearer tok", r.Header.Get("Authorization"))
		s.gotRequestID = r.Header.Get("PayPal-Request-Id")
		require.NoError(t, json.NewDecoder(r.Body).Decode(&s.gotBody))

		status := s.createStatus(n)
		w.WriteHeader(status)
		if status == http.StatusCreated {
			_ = json.NewEncoder(w).Encode(map[string]any{"id": "PP-1", "status": "CREATED"})
			return
		}
		_ = json.NewEncoder(w).Encode(map[string]any{"name": "UNPROCESSABLE_ENTITY"})
	})
	return mux
}

func newTestPayPal(baseURL string) *PayPal {
	p := NewPayPal(PayPalConfig{
		BaseURL:  baseURL,
		ClientID: "client",
		Secret:   "secret",
		Currency: "USD",
		Rate:     decimal.RequireFromString("0.012"),
		Timeout:  time.Second,
		Retries:  2,
	})
	p.retry.initialInterval = time.Millisecond
	return p
}

func testOrder() *models.Order {
	return &models.Order{
		ID:      "o1",
		UserID:  "u1",
		Product: models.ProductSnapshot{Name: "Mini PC", Price: decimal.NewFromInt(1000)},
	}
}

func TestPayPal_ConvertAmount(t *testing.T) {
	p := newTestPayPal("")
	assert.Equal(t, "12.00", p.ConvertAmount(decimal.NewFromInt(1000)))
	assert.Equal(t, "540.00", p.ConvertAmount(decimal.NewFromInt(45000)))
	assert.Equal(t, "0.15", p.ConvertAmount(decimal.RequireFromString("12.5")))
}

func TestPayPal_Initiate(t *testing.T) {
	stub := &paypalStub{createStatus: func(int32) int { return http.StatusCreated }}
	srv := httptest.NewServer(stub.handler(t))
	defer srv.Close()

	p := newTestPayPal(srv.URL)

	order := testOrder()
	order.IdempotencyKey = "key-1"
	init, err := p.Initiate(context.Background(), order)
	require.NoError(t, err)

	assert.Equal(t, OutcomeCompleted, init.Outcome)
	assert.Equal(t, "PP-1", init.GatewayOrderID)
	assert.JSONEq(t, `{"id":"PP-1","status":"CREATED"}`, string(init.Provider))
	assert.Equal(t, "CAPTURE", stub.gotBody.Intent)
	require.Len(t, stub.gotBody.PurchaseUnits, 1)
	assert.Equal(t, paypalAmount{CurrencyCode: "USD", Value: "12.00"}, stub.gotBody.PurchaseUnits[0].Amount)
	assert.Equal(t, paypalRequestID(order), stub.gotRequestID)

	// token is cached
	_, err = p.Initiate(context.Background(), testOrder())
	require.NoError(t, err)
	assert.Equal(t, int32(1), stub.tokenCalls.Load())
	assert.Equal(t, "o1", stub.gotRequestID)
}

func TestPayPal_RequestIDIsScopedToCustomer(t *testing.T) {
	stub := &paypalStub{createStatus: func(int32) int { return http.StatusCreated }}
	srv := httptest.NewServer(stub.handler(t))
	defer srv.Close()

	p := newTestPayPal(srv.URL)

	first := testOrder()
	first.IdempotencyKey = "1"
	_, err := p.Initiate(context.Background(), first)
	require.NoError(t, err)
	firstID := stub.gotRequestID

	second := testOrder()
	second.ID = "o2"
	second.UserID = "u2"
	second.IdempotencyKey = "1"
	_, err = p.Initiate(context.Background(), second)
	require.NoError(t, err)

	assert.NotEqual(t, firstID, stub.gotRequestID)
	assert.NotEqual(t, "1", firstID)

	// retry of the same customer request keeps its id
	again := testOrder()
	again.ID = "o3"
	again.IdempotencyKey = "1"
	assert.Equal(t, firstID, paypalRequestID(again))
}

func TestPayPal_InitiateRefreshesRevokedToken(t *testing.T) {
	stub := &paypalStub{createStatus: func(n int32) int {
		if n == 1 {
			return http.StatusUnauthorized
		}
		return http.StatusCreated
	}}
	srv := httptest.NewServer(stub.handler(t))
	defer srv.Close()

	init, err := newTestPayPal(srv.URL).Initiate(context.Background(), testOrder())
	require.NoError(t, err)
	assert.Equal(t, "PP-1", init.GatewayOrderID)
	assert.Equal(t, int32(2), stub.tokenCalls.Load())
	assert.Equal(t, int32(2), stub.createCalls.Load())
}

func TestPayPal_InitiateUnauthorized(t *testing.T) {
	stub := &paypalStub{createStatus: func(int32) int { return http.StatusUnauthorized }}
	srv := httptest.NewServer(stub.handler(t))
	defer srv.Close()

	_, err := newTestPayPal(srv.URL).Initiate(context.Background(), testOrder())

	var upErr *UpstreamError
	require.True(t, errors.As(err, &upErr))
	assert.Equal(t, http.StatusUnauthorized, upErr.StatusCode)
	// token is refreshed once
	assert.Equal(t, int32(2), stub.tokenCalls.Load())
	assert.Equal(t, int32(2), stub.createCalls.Load())
}

func TestPayPal_InitiateRejected(t *testing.T) {
	stub := &paypalStub{createStatus: func(int32) int { return http.StatusUnprocessableEntity }}
	srv := httptest.NewServer(stub.handler(t))
	defer srv.Close()

	_, err := newTestPayPal(srv.URL).Initiate(context.Background(), testOrder())
	require.Error(t, err)

	var upErr *UpstreamError
	require.True(t, errors.As(err, &upErr))
	assert.Equal(t, http.StatusUnprocessableEntity, upErr.StatusCode)
	assert.JSONEq(t, `{"name":"UNPROCESSABLE_ENTITY"}`, string(upErr.Details))
	// client errors are not retried
	assert.Equal(t, int32(1), stub.createCalls.Load())
}

func TestPayPal_InitiateRetriesServerErrors(t *testing.T) {
	stub := &paypalStub{createStatus: func(n int32) int {
		if n < 3 {
			return http.StatusServiceUnavailable
		}
		return http.StatusCreated
	}}
	srv := httptest.NewServer(stub.handler(t))
	defer srv.Close()

	init, err := newTestPayPal(srv.URL).Initiate(context.Background(), testOrder())
	require.NoError(t, err)
	assert.Equal(t, "PP-1", init.GatewayOrderID)
	assert.Equal(t, int32(3), stub.createCalls.Load())
}

func TestPayPal_InitiateRetriesExhausted(t *testing.T) {
	stub := &paypalStub{createStatus: func(int32) int { return http.StatusBadGateway }}
	srv := httptest.NewServer(stub.handler(t))
	defer srv.Close()

	_, err := newTestPayPal(srv.URL).Initiate(context.Background(), testOrder())

	var upErr *UpstreamError
	require.True(t, errors.As(err, &upErr))
	assert.Equal(t, http.StatusBadGateway, upErr.StatusCode)
	// first attempt plus two retries
	assert.Equal(t, int32(3), stub.createCalls.Load())
}

func TestRegistry_Lookup(t *testing.T) {
	r := NewRegistry(StubGateways()...)

	gw, err := r.Lookup(models.PaymentGooglePay)
	require.NoError(t, err)
	assert.Equal(t, models.PaymentGooglePay, gw.Method())

	_, err = r.Lookup("bitcoin")
	assert.ErrorIs(t, err, models.ErrUnknownPaymentMethod)
}

func TestStub(t *testing.T) {
	s := NewStub(models.PaymentNetBanking)

	init, err := s.Initiate(context.Background(), testOrder())
	require.NoError(t, err)
	assert.Equal(t, OutcomeCompleted, init.Outcome)

	_, err = s.Confirm(context.Background(), nil)
	assert.ErrorIs(t, err, models.ErrCallbackUnsupported)
}
