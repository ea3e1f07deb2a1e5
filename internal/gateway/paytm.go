package gateway

import (
	"bytes"
	"context"
	"crypto/rand"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"github.com/go-faster/errors"
	"github.com/rookgm/pcmart/internal/logger"
	"github.com/rookgm/pcmart/internal/models"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"net/http"
	"net/url"
	"strings"
	"time"
)

const (
	paytmName          = "paytm"
	paytmSuccessMarker = "txnsuccess"
	paytmPendingMarker = "pending"
)

// paytm callback fields
const (
	FieldOrderID  = "ORDERID"
	FieldStatus   = "STATUS"
	FieldAmount   = "TXNAMOUNT"
	FieldTxnID    = "TXNID"
	FieldChecksum = checksumField
)

// PaytmConfig is asynchronous-redirect gateway settings
type PaytmConfig struct {
	MerchantID   string
	MerchantKey  string
	BaseURL      string
	CallbackURL  string
	Website      string
	ChannelID    string
	IndustryType string
	Timeout      time.Duration
	Retries      int
}

// Paytm returns signed parameters for hosted page redirect and verifies callbacks
type Paytm struct {
	client *http.Client
	cfg    PaytmConfig
	retry  retrier
	now    func() time.Time
}

// NewPaytm creates new Paytm gateway instance
func NewPaytm(cfg PaytmConfig) (*Paytm, error) {
	if len(cfg.MerchantKey) != MerchantKeySize {
		return nil, errors.Wrap(errMerchantKey, "paytm")
	}
	return &Paytm{
		client: &http.Client{Timeout: cfg.Timeout},
		cfg:    cfg,
		retry:  newRetrier(cfg.Retries),
		now:    time.Now,
	}, nil
}

func (p *Paytm) Method() models.PaymentMethod {
	return models.PaymentPaytm
}

func (p *Paytm) newOrderID() string {
	b := make([]byte, 2)
	_, _ = rand.Read(b)
	return fmt.Sprintf("ORDER-%d-%s", p.now().UnixMilli(), hex.EncodeToString(b))
}

// Initiate builds signed transaction parameters. Payment is confirmed later by callback.
func (p *Paytm) Initiate(_ context.Context, order *models.Order) (*Initiation, error) {
	gatewayOrderID := p.newOrderID()

	params := map[string]string{
		"MID":               p.cfg.MerchantID,
		"ORDER_ID":          gatewayOrderID,
		"CUST_ID":           order.UserID,
		"TXN_AMOUNT":        order.Product.Price.StringFixed(2),
		"CHANNEL_ID":        p.cfg.ChannelID,
		"WEBSITE":           p.cfg.Website,
		"INDUSTRY_TYPE_ID":  p.cfg.IndustryType,
		"PAYMENT_MODE_ONLY": "YES",
		"CALLBACK_URL":      strings.TrimRight(p.cfg.CallbackURL, "/") + "/paytm/callback",
	}
	if order.UserDetails.Phone != "" {
		params["MOBILE_NO"] = order.UserDetails.Phone
	}
	if order.UserDetails.Email != "" {
		params["EMAIL"] = order.UserDetails.Email
	}

	checksum, err := GenerateChecksum(params, p.cfg.MerchantKey)
	if err != nil {
		return nil, errors.Wrap(err, "paytm checksum")
	}
	params[checksumField] = checksum

	return &Initiation{
		Outcome:        OutcomeRedirect,
		GatewayOrderID: gatewayOrderID,
		RedirectParams: params,
	}, nil
}

// Confirm verifies callback payload and returns payment result
func (p *Paytm) Confirm(_ context.Context, payload map[string]string) (*Confirmation, error) {
	for _, field := range []string{FieldOrderID, FieldStatus, FieldAmount, FieldChecksum} {
		if strings.TrimSpace(payload[field]) == "" {
			return nil, errors.Wrapf(models.ErrInvalidCallback, "missing %s", field)
		}
	}

	if !VerifyChecksum(payload, p.cfg.MerchantKey, payload[FieldChecksum]) {
		return nil, models.ErrChecksumMismatch
	}

	return newPaytmConfirmation(payload)
}

func newPaytmConfirmation(fields map[string]string) (*Confirmation, error) {
	amount, err := decimal.NewFromString(strings.TrimSpace(fields[FieldAmount]))
	if err != nil {
		return nil, errors.Wrap(models.ErrInvalidCallback, "amount is not a number")
	}
	status := normalizeStatus(fields[FieldStatus])

	return &Confirmation{
		GatewayOrderID: fields[FieldOrderID],
		TxnID:          fields[FieldTxnID],
		Amount:         amount,
		Success:        status == paytmSuccessMarker,
		Pending:        status == paytmPendingMarker,
	}, nil
}

// normalizeStatus maps TXN_SUCCESS and TxnSuccess to the same marker
func normalizeStatus(s string) string {
	return strings.ToLower(strings.ReplaceAll(strings.TrimSpace(s), "_", ""))
}

// Status queries transaction status of the gateway order
func (p *Paytm) Status(ctx context.Context, gatewayOrderID string) (*Confirmation, error) {
	params := map[string]string{
		"MID":     p.cfg.MerchantID,
		"ORDERID": gatewayOrderID,
	}
	checksum, err := GenerateChecksum(params, p.cfg.MerchantKey)
	if err != nil {
		return nil, errors.Wrap(err, "paytm checksum")
	}
	params[checksumField] = checksum

	payload, err := json.Marshal(params)
	if err != nil {
		return nil, err
	}

	// POST /order/status
	endpoint, err := url.JoinPath(p.cfg.BaseURL, "order", "status")
	if err != nil {
		return nil, err
	}

	var fields map[string]string
	err = p.retry.do(ctx, "paytm order status", func() error {
		status, body, err := send(ctx, p.client, paytmName, func() (*http.Request, error) {
			req, err := http.NewRequest(http.MethodPost, endpoint, bytes.NewReader(payload))
			if err != nil {
				return nil, err
			}
			req.Header.Set("Content-Type", "application/json")
			return req, nil
		})
		if err != nil {
			return err
		}
		if status != http.StatusOK {
			return permanent(&UpstreamError{Gateway: paytmName, StatusCode: status, Details: jsonDetails(body)})
		}
		fields, err = decodeFlatJSON(body)
		if err != nil {
			return permanent(&UpstreamError{Gateway: paytmName, Err: err, Details: jsonDetails(body)})
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	logger.Log.Debug("paytm order status",
		zap.String("order", gatewayOrderID),
		zap.String("status", fields[FieldStatus]))

	if fields[FieldOrderID] == "" {
		fields[FieldOrderID] = gatewayOrderID
	}
	if fields[FieldAmount] == "" {
		// nothing was paid yet
		return &Confirmation{GatewayOrderID: gatewayOrderID, Pending: true}, nil
	}
	return newPaytmConfirmation(fields)
}

// decodeFlatJSON decodes object of scalars into string map
func decodeFlatJSON(body []byte) (map[string]string, error) {
	var raw map[string]any
	dec := json.NewDecoder(bytes.NewReader(body))
	dec.UseNumber()
	if err := dec.Decode(&raw); err != nil {
		return nil, err
	}
	return StringifyPayload(raw), nil
}

// StringifyPayload converts decoded JSON scalars to strings; nested values are dropped
func StringifyPayload(raw map[string]any) map[string]string {
	fields := make(map[string]string, len(raw))
	for k, v := range raw {
		switch val := v.(type) {
		case string:
			fields[k] = val
		case json.Number:
			fields[k] = val.String()
		case bool:
			fields[k] = fmt.Sprint(val)
		case nil:
			fields[k] = ""
		}
	}
	return fields
}
