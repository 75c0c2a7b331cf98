package routes

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/angelmondragon/tradedesk-backend/api/controllers"
	"github.com/angelmondragon/tradedesk-backend/api/middleware"
	"github.com/angelmondragon/tradedesk-backend/internal/attributes"
	"github.com/angelmondragon/tradedesk-backend/internal/auth"
	"github.com/angelmondragon/tradedesk-backend/internal/inquiries"
	"github.com/angelmondragon/tradedesk-backend/internal/notifications"
	"github.com/angelmondragon/tradedesk-backend/internal/orders"
	"github.com/angelmondragon/tradedesk-backend/internal/payments"
	product "github.com/angelmondragon/tradedesk-backend/internal/products"
	"github.com/angelmondragon/tradedesk-backend/internal/settings"
	"github.com/angelmondragon/tradedesk-backend/internal/shipping"
	"github.com/angelmondragon/tradedesk-backend/internal/users"
	"github.com/angelmondragon/tradedesk-backend/pkg/config"
	"github.com/angelmondragon/tradedesk-backend/pkg/enums"
	"github.com/angelmondragon/tradedesk-backend/pkg/logger"
	"github.com/angelmondragon/tradedesk-backend/pkg/metrics"
	"github.com/angelmondragon/tradedesk-backend/pkg/redis"
)

// Deps carries everything the router hands to middleware and controllers.
// A nil Redis disables idempotency and rate limiting.
type Deps struct {
	Config      *config.Config
	Logger      *logger.Logger
	Pingers     map[string]controllers.Pinger
	Redis       *redis.Client
	HTTPMetrics *metrics.HTTPMetrics
	Gatherer    prometheus.Gatherer

	Auth          auth.Service
	Register      auth.RegisterService
	Users         users.Service
	Attributes    attributes.Service
	Products      product.Service
	Inquiries     inquiries.Service
	Orders        orders.Service
	Payments      payments.Service
	Shipping      shipping.Service
	Notifications notifications.Service
	Settings      settings.Service
}

func NewRouter(d Deps) http.Handler {
	cfg, logg := d.Config, d.Logger

	r := chi.NewRouter()
	r.Use(
		middleware.Recoverer(logg),
		middleware.RequestID(logg),
		middleware.Logging(logg, d.HTTPMetrics),
		middleware.CORS(cfg.App.CORSOrigins),
		middleware.Locale(),
	)

	loginPolicy := middleware.NewAuthRateLimitPolicy(
		"login",
		cfg.AuthRateLimit.LoginWindow,
		cfg.AuthRateLimit.LoginIPLimit,
		cfg.AuthRateLimit.LoginEmailLimit,
	)
	registerPolicy := middleware.NewAuthRateLimitPolicy(
		"register",
		cfg.AuthRateLimit.RegisterWindow,
		cfg.AuthRateLimit.RegisterIPLimit,
		cfg.AuthRateLimit.RegisterEmailLimit,
	)

	// Typed nils must not reach the middleware interfaces.
	var (
		callerLimit   func(http.Handler) http.Handler
		loginLimit    func(http.Handler) http.Handler
		registerLimit func(http.Handler) http.Handler
		idempotency   func(http.Handler) http.Handler
	)
	if d.Redis != nil {
		callerLimit = middleware.RateLimit(d.Redis, cfg.RateLimit.Limit, cfg.RateLimit.Window, logg)
		loginLimit = middleware.AuthRateLimit(loginPolicy, d.Redis, logg)
		registerLimit = middleware.AuthRateLimit(registerPolicy, d.Redis, logg)
		idempotency = middleware.Idempotency(d.Redis, logg)
	} else {
		callerLimit = middleware.RateLimit(nil, 0, 0, logg)
		loginLimit = middleware.AuthRateLimit(loginPolicy, nil, logg)
		registerLimit = loginLimit
		idempotency = middleware.Idempotency(nil, logg)
	}

	r.Route("/health", func(r chi.Router) {
		r.Get("/live", controllers.HealthLive(cfg))
		r.Get("/ready", controllers.HealthReady(cfg, logg, d.Pingers))
	})

	gatherer := d.Gatherer
	if gatherer == nil {
		gatherer = prometheus.DefaultGatherer
	}
	r.Handle("/metrics", promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{}))

	adminOnly := middleware.RequireRole(logg, enums.UserRoleAdmin)

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(callerLimit)

		r.Route("/auth", func(r chi.Router) {
			r.With(registerLimit).Post("/register", controllers.AuthRegister(d.Register, logg))
			r.With(loginLimit).Post("/login", controllers.AuthLogin(d.Auth, logg))
			r.With(middleware.Auth(cfg.JWT, logg)).Get("/me", controllers.AuthMe(d.Auth, logg))
		})

		// Public storefront. A valid token still identifies staff so they
		// can browse drafts.
		r.Group(func(r chi.Router) {
			r.Use(middleware.OptionalAuth(cfg.JWT, logg))

			r.Get("/attributes", controllers.AttributeList(d.Attributes, logg))
			r.Get("/attributes/{id}", controllers.AttributeGet(d.Attributes, logg))
			r.Get("/products", controllers.ProductList(d.Products, logg))
			r.Get("/products/{id}", controllers.ProductGet(d.Products, logg))
			r.Post("/inquiries", controllers.InquiryCreate(d.Inquiries, logg))
			r.Get("/storefront/layout", controllers.StorefrontLayout(d.Settings, logg))
			r.Get("/exchange-rates", controllers.ExchangeRatesGet(d.Settings, logg))
		})

		r.Group(func(r chi.Router) {
			r.Use(middleware.Auth(cfg.JWT, logg))
			r.Use(idempotency)

			// Flat paths: a mounted /inquiries subrouter would shadow the
			// public POST registered above.
			r.Get("/inquiries", controllers.InquiryList(d.Inquiries, logg))
			r.Post("/inquiries/import", controllers.InquiryImport(d.Inquiries, logg))
			r.Get("/inquiries/{id}", controllers.InquiryGet(d.Inquiries, logg))
			r.Patch("/inquiries/{id}", controllers.InquiryUpdate(d.Inquiries, logg))
			r.Post("/inquiries/{id}/messages", controllers.InquiryAddMessage(d.Inquiries, logg))
			r.Get("/inquiries/{id}/messages", controllers.InquiryListMessages(d.Inquiries, logg))
			r.Get("/inquiries/{id}/document", controllers.InquiryDocument(d.Inquiries, logg))

			r.Post("/orders", controllers.OrderCreate(d.Orders, logg))
			r.Get("/orders", controllers.OrderList(d.Orders, logg))
			r.Get("/orders/{id}", controllers.OrderGet(d.Orders, logg))
			r.Post("/orders/{id}/cancel", controllers.OrderCancel(d.Orders, logg))
			r.Get("/orders/{id}/payments", controllers.OrderPayments(d.Payments, logg))
			r.Get("/orders/{id}/shipping", controllers.OrderShipping(d.Shipping, logg))
			r.Get("/orders/{id}/{kind}", controllers.OrderDocument(d.Orders, logg))
			r.With(adminOnly).Patch("/orders/{id}/status", controllers.OrderUpdateStatus(d.Orders, logg))

			r.Post("/payments", controllers.PaymentCreate(d.Payments, logg))
			r.With(adminOnly).Patch("/payments/{id}/status", controllers.PaymentUpdateStatus(d.Payments, logg))
			r.With(adminOnly).Post("/shippings", controllers.ShippingCreate(d.Shipping, logg))

			r.Get("/notifications", controllers.ListNotifications(d.Notifications, logg))
			r.Get("/notifications/unread-count", controllers.UnreadNotificationCount(d.Notifications, logg))
			r.Post("/notifications/read-all", controllers.MarkAllNotificationsRead(d.Notifications, logg))
			r.Post("/notifications/{id}/read", controllers.MarkNotificationRead(d.Notifications, logg))

			r.Group(func(r chi.Router) {
				r.Use(adminOnly)

				r.Post("/attributes", controllers.AttributeCreate(d.Attributes, logg))
				r.Patch("/attributes/{id}", controllers.AttributeUpdate(d.Attributes, logg))
				r.Delete("/attributes/{id}", controllers.AttributeDelete(d.Attributes, logg))
				r.Post("/attributes/{id}/values", controllers.AttributeAddValue(d.Attributes, logg))
				r.Delete("/attributes/{id}/values/{valueId}", controllers.AttributeDeleteValue(d.Attributes, logg))

				r.Post("/products", controllers.ProductCreate(d.Products, logg))
				r.Post("/products/sku-matrix", controllers.ProductSKUMatrix(d.Products, logg))
				r.Patch("/products/{id}", controllers.ProductUpdate(d.Products, logg))
				r.Delete("/products/{id}", controllers.ProductDelete(d.Products, logg))

				r.Get("/system-settings", controllers.SettingsGet(d.Settings, logg))
				r.Put("/system-settings", controllers.SettingsPut(d.Settings, logg))
				r.Get("/layout", controllers.LayoutGet(d.Settings, logg))
				r.Put("/layout", controllers.LayoutPut(d.Settings, logg))
				r.Put("/exchange-rates", controllers.ExchangeRatesPut(d.Settings, logg))

				r.Post("/admin/users", controllers.AdminCreateStaff(d.Users, logg))
				r.Put("/admin/companies/{id}/sales-rep", controllers.AdminAssignSalesRep(d.Users, logg))
			})
		})
	})

	return r
}
