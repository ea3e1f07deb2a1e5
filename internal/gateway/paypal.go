package gateway

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"github.com/go-faster/errors"
	"github.com/rookgm/pcmart/internal/logger"
	"github.com/rookgm/pcmart/internal/models"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"
)

const (
	paypalName = "paypal"
	// token is refreshed a bit earlier than provider expiry
	tokenExpirySkew = 30 * time.Second
	paypalCreated   = "CREATED"
)

// PayPalConfig is remote-authorization gateway settings
type PayPalConfig struct {
	BaseURL  string
	ClientID string
	Secret   string
	Currency string
	Rate     decimal.Decimal
	Timeout  time.Duration
	Retries  int
}

// PayPal creates provider orders after client-credentials authorization
type PayPal struct {
	client *http.Client
	cfg    PayPalConfig
	retry  retrier
	now    func() time.Time

	mu       sync.Mutex
	token    string
	tokenExp time.Time
}

// NewPayPal creates new PayPal gateway instance
func NewPayPal(cfg PayPalConfig) *PayPal {
	return &PayPal{
		client: &http.Client{Timeout: cfg.Timeout},
		cfg:    cfg,
		retry:  newRetrier(cfg.Retries),
		now:    time.Now,
	}
}

func (p *PayPal) Method() models.PaymentMethod {
	return models.PaymentPayPal
}

// ConvertAmount converts store price to settlement currency value
func (p *PayPal) ConvertAmount(price decimal.Decimal) string {
	return price.Mul(p.cfg.Rate).StringFixed(2)
}

type paypalTokenResponse struct {
	AccessToken string `json:"access_token"`
	ExpiresIn   int64  `json:"expires_in"`
}

type paypalAmount struct {
	CurrencyCode string `json:"currency_code"`
	Value        string `json:"value"`
}

type paypalPurchaseUnit struct {
	ReferenceID string       `json:"reference_id,omitempty"`
	Amount      paypalAmount `json:"amount"`
}

type paypalOrderRequest struct {
	Intent        string               `json:"intent"`
	PurchaseUnits []paypalPurchaseUnit `json:"purchase_units"`
}

type paypalOrderResponse struct {
	ID     string `json:"id"`
	Status string `json:"status"`
}

// accessToken returns cached token or requests a new one
func (p *PayPal) accessToken(ctx context.Context) (string, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.token != "" && p.now().Before(p.tokenExp) {
		return p.token, nil
	}

	// POST /v1/oauth2/token
	endpoint, err := url.JoinPath(p.cfg.BaseURL, "v1", "oauth2", "token")
	if err != nil {
		return "", err
	}
	form := url.Values{"grant_type": {"client_credentials"}}.Encode()

	var tokenResp paypalTokenResponse
	err = p.retry.do(ctx, "paypal token", func() error {
		status, body, err := send(ctx, p.client, paypalName, func() (*http.Request, error) {
			req, err := http.NewRequest(http.MethodPost, endpoint, strings.NewReader(form))
			if err != nil {
				return nil, err
			}
			req.SetBasicAuth(p.cfg.ClientID, p.cfg.Secret)
			req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
			req.Header.Set("Accept", "application/json")
			return req, nil
		})
		if err != nil {
			return err
		}
		if status != http.StatusOK {
			return permanent(&UpstreamError{Gateway: paypalName, StatusCode: status, Details: jsonDetails(body)})
		}
		if err := json.Unmarshal(body, &tokenResp); err != nil || tokenResp.AccessToken == "" {
			return permanent(&UpstreamError{Gateway: paypalName, Err: errors.New("malformed token response"), Details: jsonDetails(body)})
		}
		return nil
	})
	if err != nil {
		return "", err
	}

	p.token = tokenResp.AccessToken
	p.tokenExp = p.now().Add(time.Duration(tokenResp.ExpiresIn)*time.Second - tokenExpirySkew)

	return p.token, nil
}

// Initiate creates provider order for the converted amount.
// Only a created provider order counts as success.
func (p *PayPal) Initiate(ctx context.Context, order *models.Order) (*Initiation, error) {
	token, err := p.accessToken(ctx)
	if err != nil {
		return nil, errors.Wrap(err, "paypal access token")
	}

	payload, err := json.Marshal(paypalOrderRequest{
		Intent: "CAPTURE",
		PurchaseUnits: []paypalPurchaseUnit{{
			ReferenceID: order.ID,
			Amount: paypalAmount{
				CurrencyCode: p.cfg.Currency,
				Value:        p.ConvertAmount(order.Product.Price),
			},
		}},
	})
	if err != nil {
		return nil, err
	}

	requestID := paypalRequestID(order)

	created, raw, err := p.createOrder(ctx, token, requestID, payload)
	var upErr *UpstreamError
	if errors.As(err, &upErr) && upErr.StatusCode == http.StatusUnauthorized {
		// token was revoked before its expiry
		p.dropToken(token)
		if token, err = p.accessToken(ctx); err != nil {
			return nil, errors.Wrap(err, "paypal access token")
		}
		created, raw, err = p.createOrder(ctx, token, requestID, payload)
	}
	if err != nil {
		logger.Log.Error("paypal order creation failed", zap.String("order", order.ID), zap.Error(err))
		return nil, err
	}

	logger.Log.Debug("paypal order created",
		zap.String("order", order.ID),
		zap.String("paypal_order", created.ID),
		zap.String("status", created.Status))

	return &Initiation{
		Outcome:        OutcomeCompleted,
		GatewayOrderID: created.ID,
		Provider:       raw,
	}, nil
}

func (p *PayPal) createOrder(ctx context.Context, token, requestID string, payload []byte) (*paypalOrderResponse, []byte, error) {
	// POST /v2/checkout/orders
	endpoint, err := url.JoinPath(p.cfg.BaseURL, "v2", "checkout", "orders")
	if err != nil {
		return nil, nil, err
	}

	var (
		created paypalOrderResponse
		raw     []byte
	)
	err = p.retry.do(ctx, "paypal create order", func() error {
		status, body, err := send(ctx, p.client, paypalName, func() (*http.Request, error) {
			req, err := http.NewRequest(http.MethodPost, endpoint, bytes.NewReader(payload))
			if err != nil {
				return nil, err
			}
			req.Header.Set("Authorization", "Bearer "+token)
			req.Header.Set("Content-Type", "application/json")
			req.Header.Set("PayPal-Request-Id", requestID)
			return req, nil
		})
		if err != nil {
			return err
		}
		// 200 is returned for a replayed request id
		if status != http.StatusCreated && status != http.StatusOK {
			return permanent(&UpstreamError{Gateway: paypalName, StatusCode: status, Details: jsonDetails(body)})
		}
		if err := json.Unmarshal(body, &created); err != nil {
			return permanent(&UpstreamError{Gateway: paypalName, StatusCode: status, Err: err, Details: jsonDetails(body)})
		}
		if status == http.StatusOK && !strings.EqualFold(created.Status, paypalCreated) {
			return permanent(&UpstreamError{Gateway: paypalName, StatusCode: status, Details: jsonDetails(body)})
		}
		raw = body
		return nil
	})
	if err != nil {
		return nil, nil, err
	}
	return &created, raw, nil
}

// dropToken forgets cached token unless it was already replaced
func (p *PayPal) dropToken(token string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.token == token {
		p.token = ""
	}
}

// paypalRequestID makes order creation safe to retry.
// Provider dedups request ids per merchant while keys are per customer.
func paypalRequestID(order *models.Order) string {
	if order.IdempotencyKey == "" {
		return order.ID
	}
	sum := sha256.Sum256([]byte(order.UserID + "\x00" + order.IdempotencyKey))
	return hex.EncodeToString(sum[:])
}

func (p *PayPal) Confirm(_ context.Context, _ map[string]string) (*Confirmation, error) {
	return nil, models.ErrCallbackUnsupported
}
