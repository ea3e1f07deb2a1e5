package config

import (
	"flag"
	"github.com/go-faster/errors"
	"github.com/joho/godotenv"
	"github.com/shopspring/decimal"
	"os"
	"strconv"
	"sync"
	"time"
)

const (
	defaultServerAddress     = ":8080"
	defaultDatabaseDSN       = ""
	defaultLogLevel          = "debug"
	defaultAuthSecret        = "dev_secret_change_me"
	defaultPayPalBaseURL     = "https://api-m.sandbox.paypal.com"
	defaultPayPalCurrency    = "USD"
	defaultConversionRate    = "0.012"
	defaultPaytmBaseURL      = "https://securegw-stage.paytm.in"
	defaultPaytmWebsite      = "WEBSTAGING"
	defaultPaytmChannelID    = "WEB"
	defaultPaytmIndustryType = "Retail"
	defaultGatewayTimeout    = 10 * time.Second
	defaultGatewayRetries    = 3
	defaultReconcileInterval = time.Minute
	defaultReconcileAfter    = 15 * time.Minute
)

// PayPal holds remote-authorization gateway settings
type PayPal struct {
	ClientID string
	Secret   string
	BaseURL  string
	Currency string
	// Rate converts store currency to Currency
	Rate decimal.Decimal
}

// Paytm holds asynchronous-redirect gateway settings
type Paytm struct {
	MerchantID   string
	MerchantKey  string
	BaseURL      string
	CallbackURL  string
	Website      string
	ChannelID    string
	IndustryType string
}

type Config struct {
	ServerAddr  string
	DatabaseDSN string
	LogLevel    string
	AuthSecret  string

	PayPal PayPal
	Paytm  Paytm

	GatewayTimeout time.Duration
	GatewayRetries int

	// ReconcileInterval disables reconciliation worker when zero
	ReconcileInterval time.Duration
	ReconcileAfter    time.Duration
}

var (
	once      sync.Once
	singleton *Config
	errConfig error
)

// New returns new Config. It parses .env, command line and environment variables only once.
func New() (*Config, error) {
	once.Do(func() {
		// .env is optional
		_ = godotenv.Load()
		singleton, errConfig = Parse(flag.CommandLine, os.Args[1:], os.Getenv)
	})

	return singleton, errConfig
}

// Parse builds Config from flags, then overrides it with environment variables
func Parse(fs *flag.FlagSet, args []string, getenv func(string) string) (*Config, error) {
	cfg := Config{}
	var rate string

	// initialize flags
	fs.StringVar(&cfg.ServerAddr, "a", defaultServerAddress, "server address")
	fs.StringVar(&cfg.DatabaseDSN, "d", defaultDatabaseDSN, "database DSN")
	fs.StringVar(&cfg.LogLevel, "l", defaultLogLevel, "log level")
	fs.StringVar(&cfg.AuthSecret, "s", defaultAuthSecret, "auth token secret")
	fs.StringVar(&cfg.PayPal.BaseURL, "paypal-url", defaultPayPalBaseURL, "paypal api base url")
	fs.StringVar(&cfg.PayPal.Currency, "paypal-currency", defaultPayPalCurrency, "paypal settlement currency")
	fs.StringVar(&rate, "rate", defaultConversionRate, "store to settlement currency conversion rate")
	fs.StringVar(&cfg.Paytm.BaseURL, "paytm-url", defaultPaytmBaseURL, "paytm api base url")
	fs.StringVar(&cfg.Paytm.CallbackURL, "paytm-callback", "", "paytm callback base url")
	fs.DurationVar(&cfg.GatewayTimeout, "gateway-timeout", defaultGatewayTimeout, "gateway request timeout")
	fs.IntVar(&cfg.GatewayRetries, "gateway-retries", defaultGatewayRetries, "gateway request retries")
	fs.DurationVar(&cfg.ReconcileInterval, "reconcile-interval", defaultReconcileInterval, "awaiting payments reconciliation interval")
	fs.DurationVar(&cfg.ReconcileAfter, "reconcile-after", defaultReconcileAfter, "age of awaiting payment to reconcile")

	if err := fs.Parse(args); err != nil {
		return nil, errors.Wrap(err, "parse flags")
	}

	cfg.Paytm.Website = defaultPaytmWebsite
	cfg.Paytm.ChannelID = defaultPaytmChannelID
	cfg.Paytm.IndustryType = defaultPaytmIndustryType

	// if environment variable is set, then using it
	strEnv := map[string]*string{
		"RUN_ADDRESS":         &cfg.ServerAddr,
		"DATABASE_URI":        &cfg.DatabaseDSN,
		"LOG_LEVEL":           &cfg.LogLevel,
		"AUTH_SECRET":         &cfg.AuthSecret,
		"PAYPAL_CLIENT_ID":    &cfg.PayPal.ClientID,
		"PAYPAL_SECRET":       &cfg.PayPal.Secret,
		"PAYPAL_BASE_URL":     &cfg.PayPal.BaseURL,
		"PAYPAL_CURRENCY":     &cfg.PayPal.Currency,
		"CONVERSION_RATE":     &rate,
		"PAYTM_MERCHANT_ID":   &cfg.Paytm.MerchantID,
		"PAYTM_MERCHANT_KEY":  &cfg.Paytm.MerchantKey,
		"PAYTM_BASE_URL":      &cfg.Paytm.BaseURL,
		"PAYTM_CALLBACK_URL":  &cfg.Paytm.CallbackURL,
		"PAYTM_WEBSITE":       &cfg.Paytm.Website,
		"PAYTM_CHANNEL_ID":    &cfg.Paytm.ChannelID,
		"PAYTM_INDUSTRY_TYPE": &cfg.Paytm.IndustryType,
	}
	for key, dst := range strEnv {
		if v := getenv(key); v != "" {
			*dst = v
		}
	}

	durEnv := map[string]*time.Duration{
		"GATEWAY_TIMEOUT":    &cfg.GatewayTimeout,
		"RECONCILE_INTERVAL": &cfg.ReconcileInterval,
		"RECONCILE_AFTER":    &cfg.ReconcileAfter,
	}
	for key, dst := range durEnv {
		if v := getenv(key); v != "" {
			d, err := time.ParseDuration(v)
			if err != nil {
				return nil, errors.Wrapf(err, "parse %s", key)
			}
			*dst = d
		}
	}

	if v := getenv("GATEWAY_RETRIES"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return nil, errors.Wrap(err, "parse GATEWAY_RETRIES")
		}
		cfg.GatewayRetries = n
	}

	r, err := decimal.NewFromString(rate)
	if err != nil || !r.IsPositive() {
		return nil, errors.Errorf("invalid conversion rate %q", rate)
	}
	cfg.PayPal.Rate = r

	if cfg.GatewayRetries < 0 {
		return nil, errors.New("gateway retries must not be negative")
	}

	return &cfg, nil
}
