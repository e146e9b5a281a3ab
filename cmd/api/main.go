package main

import (
	"context"
	"net/http"
	"os"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/vendlyhq/vendly-backend/api/routes"
	"github.com/vendlyhq/vendly-backend/internal/checkout"
	"github.com/vendlyhq/vendly-backend/internal/notifications"
	"github.com/vendlyhq/vendly-backend/internal/orders"
	"github.com/vendlyhq/vendly-backend/internal/plans"
	"github.com/vendlyhq/vendly-backend/internal/stores"
	"github.com/vendlyhq/vendly-backend/internal/subscriptions"
	mpwebhook "github.com/vendlyhq/vendly-backend/internal/webhooks/mercadopago"
	"github.com/vendlyhq/vendly-backend/pkg/config"
	"github.com/vendlyhq/vendly-backend/pkg/db"
	"github.com/vendlyhq/vendly-backend/pkg/logger"
	"github.com/vendlyhq/vendly-backend/pkg/mercadopago"
	"github.com/vendlyhq/vendly-backend/pkg/metrics"
	"github.com/vendlyhq/vendly-backend/pkg/migrate"
	pubsubpkg "github.com/vendlyhq/vendly-backend/pkg/pubsub"
	"github.com/vendlyhq/vendly-backend/pkg/redis"
)

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

	mpClient, err := mercadopago.NewClient(context.Background(), cfg.MercadoPago, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to bootstrap mercadopago client", err)
		os.Exit(1)
	}

	pubsubClient, err := pubsubpkg.NewClient(context.Background(), cfg.GCP, cfg.PubSub, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to bootstrap pubsub", err)
		os.Exit(1)
	}
	defer func() {
		if err := pubsubClient.Close(); err != nil {
			logg.Error(context.Background(), "error closing pubsub", err)
		}
	}()

	dispatcher := notifications.NewDispatcher(
		notifications.NewTopicPublisher(pubsubClient.NotificationPublisher()),
		logg,
	)

	planRepo := plans.NewRepository(dbClient.DB())
	storeRepo := stores.NewRepository(dbClient.DB())

	planService, err := plans.NewService(planRepo)
	if err != nil {
		logg.Error(context.Background(), "failed to create plan service", err)
		os.Exit(1)
	}

	subscriptionService, err := subscriptions.NewService(subscriptions.ServiceParams{
		Repo:              subscriptions.NewRepository(dbClient.DB()),
		PlanRepo:          planRepo,
		StoreRepo:         storeRepo,
		Processor:         mpClient,
		TransactionRunner: dbClient,
		Notifier:          dispatcher,
		Logger:            logg,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create subscription service", err)
		os.Exit(1)
	}

	checkoutService, err := checkout.NewService(checkout.ServiceParams{
		Repo:            checkout.NewRepository(dbClient.DB()),
		PlanRepo:        planRepo,
		StoreRepo:       storeRepo,
		Processor:       mpClient,
		NotificationURL: cfg.MercadoPago.NotificationURL,
		Logger:          logg,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create checkout service", err)
		os.Exit(1)
	}

	orderService, err := orders.NewService(orders.NewRepository(dbClient.DB()))
	if err != nil {
		logg.Error(context.Background(), "failed to create order service", err)
		os.Exit(1)
	}

	webhookService, err := mpwebhook.NewService(mpwebhook.ServiceParams{
		Ledger:        mpwebhook.NewLedgerRepository(dbClient.DB()),
		Guard:         mpwebhook.NewIdempotencyGuard(redisClient, cfg.Webhook.IdempotencyTTL, logg),
		Processor:     mpClient,
		Checkout:      checkoutService,
		Subscriptions: subscriptionService,
		Orders:        orderService,
		Notifier:      dispatcher,
		Metrics:       metrics.NewWebhookMetrics(prometheus.DefaultRegisterer),
		Logger:        logg,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create webhook service", err)
		os.Exit(1)
	}

	port := os.Getenv("PORT")
	if port == "" {
		port = cfg.App.Port
	}
	addr := ":" + port
	ctx := logg.WithFields(context.Background(), map[string]any{
		"env":  cfg.App.Env,
		"addr": addr,
	})
	logg.Info(ctx, "starting api server")

	server := &http.Server{
		Addr: addr,
		Handler: routes.NewRouter(
			cfg,
			logg,
			dbClient,
			redisClient,
			planService,
			subscriptionService,
			checkoutService,
			orderService,
			webhookService,
			mercadopago.NewHMACVerifier(mpClient.SigningSecret()),
		),
	}

	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logg.Error(ctx, "api server stopped unexpectedly", err)
		os.Exit(1)
	}
}
