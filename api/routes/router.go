package routes

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/angelsplants/checkout-backend/api/controllers"
	webhookcontrollers "github.com/angelsplants/checkout-backend/api/controllers/webhooks"
	"github.com/angelsplants/checkout-backend/api/middleware"
	"github.com/angelsplants/checkout-backend/internal/users"
	"github.com/angelsplants/checkout-backend/pkg/config"
	"github.com/angelsplants/checkout-backend/pkg/db"
	"github.com/angelsplants/checkout-backend/pkg/db/models"
	"github.com/angelsplants/checkout-backend/pkg/enums"
	"github.com/angelsplants/checkout-backend/pkg/logger"
)

const (
	webhookRateLimitPerMinute = 600
	checkoutIdempotencyTTL    = 7 * 24 * time.Hour
)

// Cache is the Redis surface the HTTP layer needs: readiness, idempotent replay and rate limits.
type Cache interface {
	Ping(ctx context.Context) error
	Get(ctx context.Context, key string) (string, error)
	SetNX(ctx context.Context, key string, value any, ttl time.Duration) (bool, error)
	IdempotencyKey(scope, id string) string
	FixedWindowAllow(ctx context.Context, scope string, limit int64, window time.Duration) (bool, int64, error)
}

type WebhookGuard interface {
	Claim(ctx context.Context, rawBody []byte) (string, bool, error)
	Release(ctx context.Context, digest string) error
}

type UserProvisioner interface {
	Provision(ctx context.Context, in users.ProvisionInput) (*models.User, error)
}

type Deps struct {
	Config   *config.Config
	Logger   *logger.Logger
	DB       db.Pinger
	Cache    Cache
	Gatherer prometheus.Gatherer

	Users        UserProvisioner
	Cart         controllers.CartService
	Checkout     controllers.CheckoutService
	Orders       controllers.OrdersService
	Payments     controllers.PaymentRedirects
	Webhooks     webhookcontrollers.RazorpayWebhookService
	WebhookGuard WebhookGuard
}

func NewRouter(deps Deps) http.Handler {
	cfg := deps.Config
	logg := deps.Logger

	r := chi.NewRouter()
	r.Use(
		middleware.Recoverer(logg),
		middleware.RequestID(logg),
		middleware.Logging(logg),
		middleware.CORS(cfg.App.PublicBaseURL),
	)

	apiPolicy := middleware.RateLimitPolicy{
		Name:   "api",
		Limit:  cfg.Redis.RateLimitPerMinute,
		Window: time.Minute,
	}
	webhookPolicy := middleware.RateLimitPolicy{
		Name:   "webhook",
		Limit:  webhookRateLimitPerMinute,
		Window: time.Minute,
	}

	r.Route("/health", func(r chi.Router) {
		r.Get("/live", controllers.HealthLive(cfg))
		r.Get("/ready", controllers.HealthReady(cfg, logg, deps.DB, deps.Cache))
	})

	gatherer := deps.Gatherer
	if gatherer == nil {
		gatherer = prometheus.DefaultGatherer
	}
	r.Handle("/metrics", promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{}))

	// Razorpay retries any non-2xx delivery, so gateway and database outages answer 503 and the
	// event is redelivered. Rejected or ignored events answer 200 with their outcome.
	r.Route("/api/v1/webhooks", func(r chi.Router) {
		r.Use(middleware.RateLimit(webhookPolicy, deps.Cache, logg))
		r.Post("/razorpay", webhookcontrollers.RazorpayWebhook(deps.Webhooks, deps.WebhookGuard, logg))
	})

	authenticated := func(r chi.Router) {
		r.Use(middleware.Auth(cfg.JWT, logg))
		r.Use(middleware.ProvisionUser(deps.Users, logg))
		r.Use(middleware.RateLimit(apiPolicy, deps.Cache, logg))
	}
	idempotent := middleware.Idempotency(deps.Cache, cfg.Redis.IdempotencyTTL, logg)
	idempotentCheckout := middleware.Idempotency(deps.Cache, checkoutIdempotencyTTL, logg)

	r.Route("/api/v1", func(r chi.Router) {
		authenticated(r)

		r.Route("/cart", func(r chi.Router) {
			r.Get("/", controllers.CartView(deps.Cart, logg))
			r.With(idempotent).Post("/items", controllers.CartAddItem(deps.Cart, logg))
			r.Patch("/items/{productId}", controllers.CartUpdateItem(deps.Cart, logg))
			r.Delete("/items/{productId}", controllers.CartRemoveItem(deps.Cart, logg))
		})

		r.With(idempotentCheckout).Post("/checkout", controllers.Checkout(deps.Checkout, logg))

		r.Route("/orders", func(r chi.Router) {
			r.Get("/", controllers.OrdersList(deps.Orders, logg))
			r.Get("/{orderId}", controllers.OrderDetail(deps.Orders, logg))
			r.With(idempotent).Post("/{orderId}/payment", controllers.StartPayment(deps.Checkout, logg))
		})

		// Razorpay's callback_url POST from the browser carries no bearer token. The frontend
		// receives that callback and relays the payment fields here with the buyer's JWT.
		r.Route("/payments/razorpay", func(r chi.Router) {
			r.Get("/success", controllers.PaymentSuccess(deps.Payments, cfg, logg))
			r.Post("/success", controllers.PaymentSuccess(deps.Payments, cfg, logg))
			r.Get("/failure", controllers.PaymentFailure(deps.Payments, cfg, logg))
			r.Post("/failure", controllers.PaymentFailure(deps.Payments, cfg, logg))
		})
	})

	r.Route("/api/staff", func(r chi.Router) {
		authenticated(r)
		r.Use(middleware.RequireRole(enums.UserRoleStaff, logg))

		r.Route("/orders/{orderId}", func(r chi.Router) {
			r.Get("/", controllers.StaffOrderDetail(deps.Orders, logg))
			r.With(idempotent).Post("/status", controllers.StaffUpdateStatus(deps.Orders, logg))
			r.With(idempotent).Post("/notes", controllers.StaffAddNote(deps.Orders, logg))
		})
	})

	return r
}
