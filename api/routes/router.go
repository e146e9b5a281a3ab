package routes

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/vendlyhq/vendly-backend/api/controllers"
	webhookcontrollers "github.com/vendlyhq/vendly-backend/api/controllers/webhooks"
	"github.com/vendlyhq/vendly-backend/api/middleware"
	checkoutsvc "github.com/vendlyhq/vendly-backend/internal/checkout"
	orderssvc "github.com/vendlyhq/vendly-backend/internal/orders"
	"github.com/vendlyhq/vendly-backend/internal/plans"
	subscriptionsvc "github.com/vendlyhq/vendly-backend/internal/subscriptions"
	mpwebhook "github.com/vendlyhq/vendly-backend/internal/webhooks/mercadopago"
	"github.com/vendlyhq/vendly-backend/pkg/config"
	"github.com/vendlyhq/vendly-backend/pkg/db"
	"github.com/vendlyhq/vendly-backend/pkg/logger"
	"github.com/vendlyhq/vendly-backend/pkg/mercadopago"
	"github.com/vendlyhq/vendly-backend/pkg/redis"
)

func NewRouter(
	cfg *config.Config,
	logg *logger.Logger,
	dbP db.Pinger,
	redisP redis.Pinger,
	planService plans.Service,
	subscriptionService subscriptionsvc.Service,
	checkoutService checkoutsvc.Service,
	orderService orderssvc.Service,
	webhookService mpwebhook.Service,
	webhookVerifier mercadopago.SignatureVerifier,
) http.Handler {
	r := chi.NewRouter()
	r.Use(
		middleware.Recoverer(logg),
		middleware.RequestID(logg),
		middleware.Logging(logg),
	)

	r.Route("/health", func(r chi.Router) {
		r.Get("/live", controllers.HealthLive(cfg))
		r.Get("/ready", controllers.HealthReady(cfg, logg, dbP, redisP))
	})

	r.Handle("/metrics", promhttp.Handler())

	r.Route("/api/v1/webhooks", func(r chi.Router) {
		r.Post("/mercadopago", webhookcontrollers.MercadoPagoWebhook(webhookService, webhookVerifier, logg))
	})

	r.Get("/api/v1/plans", controllers.PlanList(planService, logg))

	r.Route("/api", func(r chi.Router) {
		r.Use(middleware.Auth(cfg.JWT, logg))

		r.Route("/v1/subscriptions", func(r chi.Router) {
			r.Get("/{storeId}", controllers.SubscriptionFetch(subscriptionService, logg))
			r.Put("/{storeId}/manage", controllers.SubscriptionManage(subscriptionService, logg))
			r.Delete("/{storeId}", controllers.SubscriptionCancel(subscriptionService, logg))
			r.Post("/sync/{subscriptionId}", controllers.SubscriptionSync(subscriptionService, logg))
		})

		r.Route("/v1/checkout", func(r chi.Router) {
			r.Post("/sessions", controllers.CheckoutSessionCreate(checkoutService, logg))
			r.Get("/session-status", controllers.CheckoutSessionStatus(checkoutService, logg))
		})

		r.Get("/v1/orders/{orderId}", controllers.OrderFetch(orderService, logg))
	})

	r.Route("/api/admin", func(r chi.Router) {
		r.Use(middleware.Auth(cfg.JWT, logg))
		r.Use(middleware.RequireAdmin(logg))

		r.Route("/v1/plans", func(r chi.Router) {
			r.Post("/", controllers.AdminPlanCreate(planService, logg))
			r.Delete("/{planId}", controllers.AdminPlanDeactivate(planService, logg))
		})
	})

	return r
}
