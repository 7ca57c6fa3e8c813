package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"github.com/angelsplants/checkout-backend/api/routes"
	"github.com/angelsplants/checkout-backend/internal/cart"
	"github.com/angelsplants/checkout-backend/internal/checkout"
	"github.com/angelsplants/checkout-backend/internal/orders"
	"github.com/angelsplants/checkout-backend/internal/payments"
	"github.com/angelsplants/checkout-backend/internal/stock"
	"github.com/angelsplants/checkout-backend/internal/users"
	"github.com/angelsplants/checkout-backend/pkg/config"
	"github.com/angelsplants/checkout-backend/pkg/db"
	"github.com/angelsplants/checkout-backend/pkg/env"
	"github.com/angelsplants/checkout-backend/pkg/logger"
	"github.com/angelsplants/checkout-backend/pkg/metrics"
	"github.com/angelsplants/checkout-backend/pkg/migrate"
	"github.com/angelsplants/checkout-backend/pkg/outbox"
	"github.com/angelsplants/checkout-backend/pkg/razorpay"
	"github.com/angelsplants/checkout-backend/pkg/redis"
)

const shutdownTimeout = 15 * time.Second

func main() {
	logg := logger.New(logger.Options{ServiceName: "api"})

	if err := godotenv.Load(); err != nil {
		logg.Warn(context.Background(), ".env file not found, relying on environment")
	}

	cfg, err := config.Load()
	if err != nil {
		logg.Error(context.Background(), "failed to load config", err)
		os.Exit(1)
	}

	logg = logger.New(logger.Options{
		ServiceName: "api",
		Level:       logger.ParseLevel(cfg.App.LogLevel),
		WarnStack:   cfg.App.LogWarnStack,
		Fields:      map[string]any{"env": cfg.App.Env, "instance": env.InstanceID()},
	})

	dbClient, err := db.New(context.Background(), cfg.DB, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to bootstrap database", err)
		os.Exit(1)
	}
	defer func() {
		if err := dbClient.Close(); err != nil {
			logg.Error(context.Background(), "error closing database", err)
		}
	}()

	if err := migrate.MaybeRunDev(context.Background(), cfg, logg, dbClient); err != nil {
		logg.Error(context.Background(), "failed to run dev migrations", err)
		os.Exit(1)
	}

	redisClient, err := redis.New(context.Background(), cfg.Redis, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to bootstrap redis", err)
		os.Exit(1)
	}
	defer func() {
		if err := redisClient.Close(); err != nil {
			logg.Error(context.Background(), "error closing redis", err)
		}
	}()

	gateway, err := razorpay.NewClient(cfg.Razorpay, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to create razorpay client", err)
		os.Exit(1)
	}

	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	paymentMetrics := metrics.NewPaymentMetrics(registry)

	conn := dbClient.DB()
	stockGuard := stock.NewGuard(conn)
	outboxService := outbox.NewService(outbox.NewRepository(conn), logg)
	ordersRepo := orders.NewRepository(conn)

	cartService, err := cart.NewService(cart.NewRepository(conn), dbClient, stockGuard, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to create cart service", err)
		os.Exit(1)
	}

	userService, err := users.NewService(users.NewRepository(conn), dbClient, cartService, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to create user service", err)
		os.Exit(1)
	}

	checkoutService, err := checkout.NewService(checkout.Deps{
		Tx:      dbClient,
		Carts:   cartService,
		Stock:   stockGuard,
		Orders:  ordersRepo,
		Outbox:  outboxService,
		Gateway: gateway,
		Config:  cfg.Checkout,
		Logger:  logg,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create checkout service", err)
		os.Exit(1)
	}

	ordersService, err := orders.NewService(ordersRepo, dbClient, outboxService, stockGuard, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to create orders service", err)
		os.Exit(1)
	}

	engine, err := payments.NewEngine(payments.Deps{
		Tx:       dbClient,
		Orders:   ordersRepo,
		Payments: payments.NewRepository(conn),
		Carts:    cartService,
		Outbox:   outboxService,
		Gateway:  gateway,
		Metrics:  paymentMetrics,
		Logger:   logg,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create payment engine", err)
		os.Exit(1)
	}

	webhookGuard, err := payments.NewWebhookGuard(redisClient, cfg.Eventing.WebhookDedupTTL)
	if err != nil {
		logg.Error(context.Background(), "failed to create webhook guard", err)
		os.Exit(1)
	}

	port := os.Getenv("PORT")
	if port == "" {
		port = cfg.App.Port
	}
	addr := ":" + port
	ctx := logg.WithFields(context.Background(), map[string]any{
		"addr":            addr,
		"razorpay_key_id": gateway.KeyID(),
		"public_base_url": cfg.App.PublicBaseURL,
	})
	logg.Info(ctx, "starting api server")

	handler := routes.NewRouter(routes.Deps{
		Config:       cfg,
		Logger:       logg,
		DB:           dbClient,
		Cache:        redisClient,
		Gatherer:     registry,
		Users:        userService,
		Cart:         cartService,
		Checkout:     checkoutService,
		Orders:       ordersService,
		Payments:     engine,
		Webhooks:     engine,
		WebhookGuard: webhookGuard,
	})
	server := &http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	sigCtx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 1)
	go func() {
		errCh <- server.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			logg.Error(ctx, "api server stopped unexpectedly", err)
			os.Exit(1)
		}
	case <-sigCtx.Done():
		logg.Info(ctx, "shutting down api server")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			logg.Error(ctx, "graceful shutdown failed", err)
		}
	}
}
