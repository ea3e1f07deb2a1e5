package main

import (
	"context"
	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/rookgm/pcmart/config"
	"github.com/rookgm/pcmart/internal/auth"
	"github.com/rookgm/pcmart/internal/gateway"
	handler "github.com/rookgm/pcmart/internal/handler/http"
	"github.com/rookgm/pcmart/internal/logger"
	"github.com/rookgm/pcmart/internal/middleware"
	"github.com/rookgm/pcmart/internal/models"
	"github.com/rookgm/pcmart/internal/repository"
	"github.com/rookgm/pcmart/internal/repository/postgres"
	"github.com/rookgm/pcmart/internal/service"
	"github.com/rookgm/pcmart/internal/worker"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"
)

const shutdownTimeout = 10 * time.Second

// newGateways registers stub gateways and configured remote ones
func newGateways(cfg *config.Config) *gateway.Registry {
	gws := gateway.StubGateways()

	gws = append(gws, gateway.NewPayPal(gateway.PayPalConfig{
		BaseURL:  cfg.PayPal.BaseURL,
		ClientID: cfg.PayPal.ClientID,
		Secret:   cfg.PayPal.Secret,
		Currency: cfg.PayPal.Currency,
		Rate:     cfg.PayPal.Rate,
		Timeout:  cfg.GatewayTimeout,
		Retries:  cfg.GatewayRetries,
	}))

	paytm, err := gateway.NewPaytm(gateway.PaytmConfig{
		MerchantID:   cfg.Paytm.MerchantID,
		MerchantKey:  cfg.Paytm.MerchantKey,
		BaseURL:      cfg.Paytm.BaseURL,
		CallbackURL:  cfg.Paytm.CallbackURL,
		Website:      cfg.Paytm.Website,
		ChannelID:    cfg.Paytm.ChannelID,
		IndustryType: cfg.Paytm.IndustryType,
		Timeout:      cfg.GatewayTimeout,
		Retries:      cfg.GatewayRetries,
	})
	if err != nil {
		logger.Log.Warn("paytm gateway is disabled", zap.Error(err))
	} else {
		gws = append(gws, paytm)
	}

	registry := gateway.NewRegistry(gws...)
	for _, gw := range registry.All() {
		logger.Log.Debug("payment gateway registered", zap.String("method", string(gw.Method())))
	}

	return registry
}

func main() {
	// create new config
	cfg, err := config.New()
	if err != nil {
		log.Fatalf("Error loading config: %v", err)
	}

	// initialize logger
	if err := logger.Initialize(cfg.LogLevel); err != nil {
		log.Fatalf("Error initializing logger: %v", err)
	}
	defer logger.Log.Sync()

	// create context
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// initialize database
	db, err := postgres.New(ctx, cfg.DatabaseDSN)
	if err != nil {
		logger.Log.Fatal("Error initializing database", zap.Error(err))
	}
	defer db.Close()

	// migrate database
	if err := db.Migrate(); err != nil {
		logger.Log.Fatal("Error migrating database", zap.Error(err))
	}

	token := auth.NewAuthToken([]byte(cfg.AuthSecret))
	gateways := newGateways(cfg)

	// dependency injection
	store := repository.NewStore(db)

	// checkout
	checkoutService := service.NewCheckoutService(store, gateways, time.Now)
	checkoutHandler := handler.NewCheckoutHandler(checkoutService)

	// callback
	callbackService := service.NewCallbackService(store, gateways, time.Now, cfg.ReconcileAfter)
	callbackHandler := handler.NewCallbackHandler(callbackService)

	// order
	lifecycleService := service.NewLifecycleService(store)
	orderHandler := handler.NewOrderHandler(lifecycleService)

	// balance
	balanceService := service.NewBalanceService(store.Balances())
	balanceHandler := handler.NewBalanceHandler(balanceService)

	router := chi.NewRouter()

	router.Use(chimw.RequestID)
	router.Use(chimw.Recoverer)
	router.Use(middleware.Logging(logger.Log))
	router.Use(chimw.Heartbeat("/ping"))

	router.Route("/api", func(r chi.Router) {
		r.Post("/cash-on-delivery", checkoutHandler.Checkout(models.PaymentCashOnDelivery))
		r.Post("/credit-card", checkoutHandler.Checkout(models.PaymentCreditCard))
		r.Post("/google-pay", checkoutHandler.Checkout(models.PaymentGooglePay))
		r.Post("/phone-pay", checkoutHandler.Checkout(models.PaymentPhonePay))
		r.Post("/net-banking", checkoutHandler.Checkout(models.PaymentNetBanking))
		r.Post("/create-paypal-order", checkoutHandler.Checkout(models.PaymentPayPal))
		r.Post("/paytm", checkoutHandler.Checkout(models.PaymentPaytm))
		r.Post("/checkout", checkoutHandler.CheckoutAny())
		r.Post("/paytm/callback", callbackHandler.Callback(models.PaymentPaytm))

		r.Get("/orders/{orderId}", orderHandler.GetOrder())
		r.Put("/orders/{orderId}/cancel", orderHandler.CancelOrder())
		r.Get("/users/{userId}/orders", orderHandler.ListUserOrders())
		r.Get("/users/{userId}/bonus", balanceHandler.GetUserBonus())

		// back-office routes
		r.Group(func(group chi.Router) {
			group.Use(middleware.Auth(token, models.RoleAdmin))
			group.Put("/orders/{orderId}/status", orderHandler.SetStatus())
			group.Put("/orders/{orderId}/state", orderHandler.ApplyAction())
			group.Put("/orders/{orderId}/delivery-date", orderHandler.SetDeliveryDate())
		})
	})

	server := &http.Server{
		Addr:    cfg.ServerAddr,
		Handler: router,
	}

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		logger.Log.Info("Running server", zap.String("addr", cfg.ServerAddr))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			return err
		}
		return nil
	})

	if cfg.ReconcileInterval > 0 {
		g.Go(func() error {
			worker.NewPaymentReconciler(callbackService, cfg.ReconcileInterval).Run(gctx)
			return nil
		})
	}

	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return server.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil {
		logger.Log.Fatal("Server stopped with error", zap.Error(err))
	}
	logger.Log.Info("Server stopped")
}
